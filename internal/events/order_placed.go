package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dkoun25/SportStoreProject/internal/order"
)

const (
	EventTypeOrderPlaced    = "OrderPlaced"
	OrderPlacedVersion      = 1
	OrderPlacedSchema       = "storefront.order.placed.v1"
	OrderPlacedRoutingKey   = "order.placed.v1"
	defaultProducerIdentity = "storefront"
)

type OrderPlacedPayload struct {
	OrderID   int64             `json:"orderId"`
	SessionID string            `json:"sessionId"`
	UserEmail string            `json:"userEmail,omitempty"`
	Items     []OrderPlacedItem `json:"items"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
	Discount  decimal.Decimal   `json:"discount"`
	Total     decimal.Decimal   `json:"total"`
	PromoCode string            `json:"promoCode,omitempty"`
	PlacedAt  time.Time         `json:"placedAt"`
}

type OrderPlacedItem struct {
	ProductID int             `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
}

type OrderPlacedEnvelope = EventEnvelope[OrderPlacedPayload]

func newOrderPlacedPayload(o *order.Order) OrderPlacedPayload {
	p := OrderPlacedPayload{
		OrderID:   o.ID,
		SessionID: o.SessionID,
		UserEmail: o.UserEmail,
		Items:     make([]OrderPlacedItem, 0, len(o.Items)),
		Subtotal:  o.Subtotal,
		Discount:  o.Discount,
		Total:     o.Total,
		PromoCode: o.PromoCode,
		PlacedAt:  o.CreatedAt,
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, OrderPlacedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Size:      it.Size,
			Color:     it.Color,
		})
	}
	return p
}

func newOrderPlacedEvent(meta EnvelopeMetadata, partitionKey string, seq int64, producer string, payload OrderPlacedPayload, occurredAt time.Time) OrderPlacedEnvelope {
	return OrderPlacedEnvelope{
		EventName:     EventTypeOrderPlaced,
		EventVersion:  OrderPlacedVersion,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      producer,
		PartitionKey:  partitionKey,
		Sequence:      &seq,
		OccurredAt:    occurredAt,
		Schema:        OrderPlacedSchema,
		Payload:       payload,
	}
}
