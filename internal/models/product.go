package models

import "time"

type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	Category  string    `json:"category"`
	VendorID  string    `json:"vendor_id"`
	CreatedAt time.Time `json:"created_at"`
}
