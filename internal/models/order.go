package models

import "time"

// OrderStatus is the closed set of fulfillment states.
type OrderStatus string

const (
	OrderPendingPickup   OrderStatus = "pending_pickup"
	OrderPickupScheduled OrderStatus = "pickup_scheduled"
	OrderInTransit       OrderStatus = "in_transit"
	OrderDelivered       OrderStatus = "delivered"
	OrderCompleted       OrderStatus = "completed"
	OrderCancelled       OrderStatus = "cancelled"
	OrderDisputed        OrderStatus = "disputed"
)

// orderTransitions covers the party-driven edges. The disputed detour is not
// listed here: a dispute may interrupt any non-terminal state and resolution
// restores the remembered prior state, which the dispute service enforces.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPendingPickup:   {OrderPickupScheduled, OrderCancelled},
	OrderPickupScheduled: {OrderInTransit, OrderCancelled},
	OrderInTransit:       {OrderDelivered, OrderCancelled},
	OrderDelivered:       {OrderCompleted, OrderCancelled},
}

// CanTransitionTo reports whether the fulfillment state machine has an edge
// from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether fulfillment has ended for good.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// Disputable reports whether a dispute may still be opened against an order
// in this state.
func (s OrderStatus) Disputable() bool {
	return !s.Terminal() && s != OrderDisputed
}

// Order is the binding fulfillment record created exactly once per accepted
// offer. Amount is copied from the offer at creation and never changes.
type Order struct {
	ID                 string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OfferID            string      `json:"offer_id" gorm:"uniqueIndex;type:varchar(36)"`
	ListingID          string      `json:"listing_id" gorm:"index;type:varchar(36)"`
	BuyerID            string      `json:"buyer_id" gorm:"index;type:varchar(36)"`
	SellerID           string      `json:"seller_id" gorm:"index;type:varchar(36)"`
	Amount             float64     `json:"amount"`
	Status             OrderStatus `json:"status" gorm:"index;type:varchar(20)"`
	PickupDate         string      `json:"pickup_date,omitempty"`
	PickupTime         string      `json:"pickup_time,omitempty"`
	PickupAddress      string      `json:"pickup_address,omitempty"`
	PickupNotes        string      `json:"pickup_notes,omitempty"`
	SellerConfirmedAt  *time.Time  `json:"seller_confirmed_at,omitempty"`
	BuyerConfirmedAt   *time.Time  `json:"buyer_confirmed_at,omitempty"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty"`
	CancelledAt        *time.Time  `json:"cancelled_at,omitempty"`
	CancellationReason string      `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// OrderStatusHistory is the append-only audit trail of every status change.
// Rows are inserted in the same transaction as the change they describe and
// are never updated or deleted.
type OrderStatusHistory struct {
	ID        string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string      `json:"order_id" gorm:"index;type:varchar(36)"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(20)"`
	ChangedBy string      `json:"changed_by" gorm:"type:varchar(36)"`
	Notes     string      `json:"notes,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
