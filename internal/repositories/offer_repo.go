package repositories

import (
	"time"

	"pasar/internal/models"
)

// OfferRepository defines the interface for offer data access. Every status
// write is conditional on the expected current status; a zero-row update is
// surfaced as models.ErrStaleState (or ErrNotFound when the row is gone).
type OfferRepository interface {
	GetByID(id string) (*models.Offer, error)
	// GetChain returns the offer together with its ancestors, following
	// parent_offer_id up to the root of the negotiation.
	GetChain(id string) ([]models.Offer, error)
	Create(offer *models.Offer) error
	// UpdateStatusIf applies updates only if the offer still has the expected
	// status.
	UpdateStatusIf(id string, expected models.OfferStatus, updates map[string]interface{}) error
	// AcceptWithOrder atomically flips the offer to accepted and creates the
	// order plus its first history row. Either all three commit or none.
	AcceptWithOrder(id string, expected models.OfferStatus, updates map[string]interface{}, order *models.Order, history *models.OrderStatusHistory) error
	// CreateAcceptedFromCounter atomically inserts the counter-acceptance
	// offer row plus the order it binds. The parent offer is left countered;
	// its unique child index guarantees at most one acceptance row per
	// countered offer.
	CreateAcceptedFromCounter(parentID string, offer *models.Offer, order *models.Order, history *models.OrderStatusHistory) error
	// ListStale returns pending and countered offers last touched before the
	// cutoff, for the expiry sweeper.
	ListStale(before time.Time) ([]models.Offer, error)
}
