package repositories

import (
	"errors"
	"fmt"
	"time"

	"pasar/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOfferRepository is a GORM implementation of OfferRepository.
type GORMOfferRepository struct {
	db *gorm.DB
}

// NewGORMOfferRepository creates a new instance of GORMOfferRepository.
func NewGORMOfferRepository(db *gorm.DB) *GORMOfferRepository {
	return &GORMOfferRepository{
		db: db,
	}
}

// GetByID retrieves a single offer by its ID.
func (r *GORMOfferRepository) GetByID(id string) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.First(&offer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("offer %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get offer %s: %w", id, err)
	}
	return &offer, nil
}

// GetChain retrieves the offer and every ancestor up the parent_offer_id
// chain, newest first. Chains are short (one hop per counter round), so a
// walk is fine.
func (r *GORMOfferRepository) GetChain(id string) ([]models.Offer, error) {
	var chain []models.Offer
	next := id
	for next != "" {
		offer, err := r.GetByID(next)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *offer)
		if offer.ParentOfferID == nil {
			break
		}
		next = *offer.ParentOfferID
	}
	return chain, nil
}

// Create inserts a new offer row.
func (r *GORMOfferRepository) Create(offer *models.Offer) error {
	if offer.ID == "" {
		offer.ID = uuid.New().String()
	}
	if err := r.db.Create(offer).Error; err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

// UpdateStatusIf applies updates only while the offer still has the expected
// status. The WHERE clause is the optimistic-concurrency precondition: if the
// status moved under the caller the update hits zero rows and we report
// ErrStaleState (ErrNotFound when the row is missing entirely).
func (r *GORMOfferRepository) UpdateStatusIf(id string, expected models.OfferStatus, updates map[string]interface{}) error {
	return r.conditionalUpdate(r.db, id, expected, updates)
}

func (r *GORMOfferRepository) conditionalUpdate(tx *gorm.DB, id string, expected models.OfferStatus, updates map[string]interface{}) error {
	res := tx.Model(&models.Offer{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update offer %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Zero rows: the offer is either gone or no longer in the expected
		// status. Re-fetch to tell the two apart.
		var offer models.Offer
		if err := tx.First(&offer, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("offer %s: %w", id, models.ErrNotFound)
			}
			return fmt.Errorf("failed to re-fetch offer %s: %w", id, err)
		}
		return fmt.Errorf("offer %s is %s, expected %s: %w", id, offer.Status, expected, models.ErrStaleState)
	}
	return nil
}

// AcceptWithOrder flips the offer to accepted and creates the order and its
// first history row in one transaction. If any write fails the acceptance
// rolls back, so an accepted offer without an order can never be observed.
func (r *GORMOfferRepository) AcceptWithOrder(id string, expected models.OfferStatus, updates map[string]interface{}, order *models.Order, history *models.OrderStatusHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.conditionalUpdate(tx, id, expected, updates); err != nil {
			return err
		}
		if order.ID == "" {
			order.ID = uuid.New().String()
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order for offer %s: %w", id, err)
		}
		history.OrderID = order.ID
		if history.ID == "" {
			history.ID = uuid.New().String()
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to create order history for offer %s: %w", id, err)
		}
		return nil
	})
}

// CreateAcceptedFromCounter inserts the counter-acceptance offer row and the
// order it binds in one transaction. The unique index on parent_offer_id is
// the serialization point: a concurrent second acceptance of the same
// countered offer fails the insert, and we report it as stale.
func (r *GORMOfferRepository) CreateAcceptedFromCounter(parentID string, offer *models.Offer, order *models.Order, history *models.OrderStatusHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// The parent must still be countered; a withdrawal or expiry that
		// slipped in first invalidates the acceptance.
		var parent models.Offer
		if err := tx.First(&parent, "id = ?", parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("offer %s: %w", parentID, models.ErrNotFound)
			}
			return fmt.Errorf("failed to fetch countered offer %s: %w", parentID, err)
		}
		if parent.Status != models.OfferCountered {
			return fmt.Errorf("offer %s is %s, expected %s: %w", parentID, parent.Status, models.OfferCountered, models.ErrStaleState)
		}

		if offer.ID == "" {
			offer.ID = uuid.New().String()
		}
		if err := tx.Create(offer).Error; err != nil {
			return fmt.Errorf("counter-acceptance for offer %s: %w", parentID, models.ErrStaleState)
		}
		if order.ID == "" {
			order.ID = uuid.New().String()
		}
		order.OfferID = offer.ID
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order for counter-acceptance of %s: %w", parentID, err)
		}
		history.OrderID = order.ID
		if history.ID == "" {
			history.ID = uuid.New().String()
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to create order history for counter-acceptance of %s: %w", parentID, err)
		}
		return nil
	})
}

// ListStale returns pending and countered offers last touched before the
// cutoff. Used by the expiry sweeper; expiry itself still goes through the
// conditional update, so a racing acceptance wins.
func (r *GORMOfferRepository) ListStale(before time.Time) ([]models.Offer, error) {
	var offers []models.Offer
	err := r.db.
		Where("status IN ? AND updated_at < ?", []models.OfferStatus{models.OfferPending, models.OfferCountered}, before).
		Find(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale offers: %w", err)
	}
	return offers, nil
}
