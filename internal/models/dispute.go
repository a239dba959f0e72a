package models

import "time"

// DisputeStatus is the closed set of mediation states.
type DisputeStatus string

const (
	DisputeOpen                DisputeStatus = "open"
	DisputeUnderReview         DisputeStatus = "under_review"
	DisputeAwaitingResponse    DisputeStatus = "awaiting_response"
	DisputeResolvedBuyerFavor  DisputeStatus = "resolved_buyer_favor"
	DisputeResolvedSellerFavor DisputeStatus = "resolved_seller_favor"
	DisputeResolvedMutual      DisputeStatus = "resolved_mutual"
	DisputeClosed              DisputeStatus = "closed"
)

// Resolved reports whether the dispute has reached one of the resolved_*
// outcomes (closed counts too, since it follows a resolution).
func (s DisputeStatus) Resolved() bool {
	switch s {
	case DisputeResolvedBuyerFavor, DisputeResolvedSellerFavor, DisputeResolvedMutual, DisputeClosed:
		return true
	}
	return false
}

// ResolvedOutcome reports whether s is a legal target for an admin resolve
// action.
func (s DisputeStatus) ResolvedOutcome() bool {
	switch s {
	case DisputeResolvedBuyerFavor, DisputeResolvedSellerFavor, DisputeResolvedMutual:
		return true
	}
	return false
}

// OrderOutcome is what a dispute resolution dictates for the underlying
// order: resume fulfillment at its pre-dispute status, cancel it, or
// complete it outright.
type OrderOutcome string

const (
	OutcomeResume   OrderOutcome = "resume"
	OutcomeCancel   OrderOutcome = "cancel"
	OutcomeComplete OrderOutcome = "complete"
)

// Dispute is a formal contestation of an order's fulfillment, mediated by an
// administrative party. At most one unresolved dispute exists per order.
// PriorOrderStatus remembers where fulfillment stood when the dispute forced
// the order into disputed, so resolution can put it back.
type Dispute struct {
	ID               string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID          string        `json:"order_id" gorm:"index;type:varchar(36)" validate:"required"`
	RaisedBy         string        `json:"raised_by" gorm:"type:varchar(36)" validate:"required"`
	Reason           string        `json:"reason" validate:"required,max=100"`
	Description      string        `json:"description" validate:"required,max=2000"`
	Status           DisputeStatus `json:"status" gorm:"index;type:varchar(30)"`
	PriorOrderStatus OrderStatus   `json:"prior_order_status" gorm:"type:varchar(20)"`
	AdminID          *string       `json:"admin_id,omitempty" gorm:"type:varchar(36)"`
	AdminNotes       string        `json:"admin_notes,omitempty"`
	ResolutionNotes  string        `json:"resolution_notes,omitempty"`
	ResolvedAt       *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// DisputeMessage is the append-only communication log on a dispute.
type DisputeMessage struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DisputeID string    `json:"dispute_id" gorm:"index;type:varchar(36)"`
	SenderID  string    `json:"sender_id" gorm:"type:varchar(36)"`
	Message   string    `json:"message"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}
