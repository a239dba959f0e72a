package models

import "time"

// OfferStatus is the closed set of negotiation states an offer can be in.
type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferCountered OfferStatus = "countered"
	OfferAccepted  OfferStatus = "accepted"
	OfferDeclined  OfferStatus = "declined"
	OfferWithdrawn OfferStatus = "withdrawn"
	OfferExpired   OfferStatus = "expired"
	OfferPaid      OfferStatus = "paid"
)

// offerTransitions is the exhaustive edge set of the offer state machine.
// Anything not listed here is an invalid transition.
var offerTransitions = map[OfferStatus][]OfferStatus{
	OfferPending:   {OfferCountered, OfferAccepted, OfferDeclined, OfferWithdrawn, OfferExpired},
	OfferCountered: {OfferWithdrawn, OfferExpired},
	OfferAccepted:  {OfferPaid},
}

// CanTransitionTo reports whether the offer state machine has an edge from s to next.
func (s OfferStatus) CanTransitionTo(next OfferStatus) bool {
	for _, t := range offerTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further negotiation transition is possible.
func (s OfferStatus) Terminal() bool {
	return len(offerTransitions[s]) == 0
}

// Offer is a proposed price for a listing. Counter-acceptance never mutates
// the countered row; it inserts a new accepted row pointing back via
// ParentOfferID, so the negotiation history is an append-only chain.
type Offer struct {
	ID             string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ListingID      string      `json:"listing_id" gorm:"index;type:varchar(36)" validate:"required"`
	BuyerID        string      `json:"buyer_id" gorm:"index;type:varchar(36)" validate:"required"`
	SellerID       string      `json:"seller_id" gorm:"index;type:varchar(36)" validate:"required"`
	Amount         float64     `json:"amount" validate:"required,gt=0"`
	Message        string      `json:"message,omitempty" validate:"omitempty,max=1000"`
	Status         OfferStatus `json:"status" gorm:"index;type:varchar(20)"`
	ParentOfferID  *string     `json:"parent_offer_id,omitempty" gorm:"uniqueIndex;type:varchar(36)"`
	CounterAmount  *float64    `json:"counter_amount,omitempty"`
	CounterMessage string      `json:"counter_message,omitempty"`
	RespondedAt    *time.Time  `json:"responded_at,omitempty"`
	PaidAt         *time.Time  `json:"paid_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
