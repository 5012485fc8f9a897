package service

import (
	"github.com/openbasket/marketplace/internal/models"
)

// VendorGroup is one vendor's partition of a cart: their priced lines and
// sub-total.
type VendorGroup struct {
	VendorID string
	Lines    []PricedLine
	Subtotal float64
}

// PricedLine is a cart line with the unit price captured from the product
// snapshot taken at checkout.
type PricedLine struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   float64
}

// PartitionByVendor decomposes a cart into per-vendor groups against the
// product snapshots read in the same transaction. It is a pure function:
// no stock is mutated here.
//
// Vendors appear in order of their first line in the cart, and duplicate
// product ids stay separate lines, so the output is deterministic for a
// given cart. Each line is checked against the snapshot stock; the
// cumulative effect of duplicates is enforced later by the ledger's
// conditional decrement.
//
// The grand total is the sum of the sub-totals, so the master total equals
// the vendor totals by construction.
func PartitionByVendor(lines []models.CartLine, products map[string]models.Product) ([]VendorGroup, float64, error) {
	groupIndex := make(map[string]int)
	var groups []VendorGroup

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, 0, &models.ProductNotFoundError{ProductID: line.ProductID}
		}
		if product.Stock < line.Quantity {
			return nil, 0, &models.InsufficientStockError{
				ProductID: line.ProductID,
				Available: product.Stock,
				Requested: line.Quantity,
			}
		}

		idx, seen := groupIndex[product.VendorID]
		if !seen {
			idx = len(groups)
			groupIndex[product.VendorID] = idx
			groups = append(groups, VendorGroup{VendorID: product.VendorID})
		}

		groups[idx].Lines = append(groups[idx].Lines, PricedLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
		})
		groups[idx].Subtotal += product.Price * float64(line.Quantity)
	}

	var total float64
	for _, g := range groups {
		total += g.Subtotal
	}
	return groups, total, nil
}
