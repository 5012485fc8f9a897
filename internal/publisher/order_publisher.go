package publisher

import (
	"encoding/json"
	"fmt"

	"github.com/openbasket/marketplace/internal/messaging"
	"github.com/openbasket/marketplace/internal/models"
)

const (
	OrderCreatedQueue  = "order.created"
	StatusChangedQueue = "order.status_changed"
)

// OrderPublisher emits order lifecycle events after the engine commits.
type OrderPublisher struct {
	mq *messaging.RabbitMQ
}

func NewOrderPublisher(mq *messaging.RabbitMQ) (*OrderPublisher, error) {
	// Declare both queues up front
	if err := mq.DeclareQueue(OrderCreatedQueue); err != nil {
		return nil, err
	}
	if err := mq.DeclareQueue(StatusChangedQueue); err != nil {
		return nil, err
	}

	return &OrderPublisher{mq: mq}, nil
}

// PublishOrderCreated publishes an order.created event
func (p *OrderPublisher) PublishOrderCreated(order *models.Order) error {
	event := models.OrderCreatedEvent{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
	}

	for _, item := range order.Items {
		event.Items = append(event.Items, models.OrderItemEvent{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.mq.Publish(OrderCreatedQueue, data)
}

// PublishStatusChanged publishes an order.status_changed event
func (p *OrderPublisher) PublishStatusChanged(event models.OrderStatusChangedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.mq.Publish(StatusChangedQueue, data)
}
