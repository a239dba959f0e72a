package repositories

import (
	"errors"
	"fmt"
	"time"

	"pasar/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// GetByID retrieves a single order by its ID.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return &order, nil
}

// GetByOfferID retrieves the order bound to an offer, if any.
func (r *GORMOrderRepository) GetByOfferID(offerID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, "offer_id = ?", offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order for offer %s: %w", offerID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order for offer %s: %w", offerID, err)
	}
	return &order, nil
}

// History returns the append-only status log for an order, oldest first.
func (r *GORMOrderRepository) History(orderID string) ([]models.OrderStatusHistory, error) {
	var entries []models.OrderStatusHistory
	if err := r.db.Where("order_id = ?", orderID).Order("created_at asc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to get history for order %s: %w", orderID, err)
	}
	return entries, nil
}

// TransitionIf applies updates only while the order status is one of the
// expected values and appends the history row in the same transaction, so a
// status change and its audit entry commit or fail together.
func (r *GORMOrderRepository) TransitionIf(id string, expected []models.OrderStatus, updates map[string]interface{}, history *models.OrderStatusHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", id, expected).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update order %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			var order models.Order
			if err := tx.First(&order, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("order %s: %w", id, models.ErrNotFound)
				}
				return fmt.Errorf("failed to re-fetch order %s: %w", id, err)
			}
			return fmt.Errorf("order %s is %s: %w", id, order.Status, models.ErrStaleState)
		}
		history.OrderID = id
		if history.ID == "" {
			history.ID = uuid.New().String()
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to append history for order %s: %w", id, err)
		}
		return nil
	})
}

// ConfirmDelivery implements dual confirmation without a read-then-write
// race. The caller's column is stamped by a conditional write that requires
// the delivered status and an unset column; the completion flip is a second
// conditional write in the same transaction that re-reads nothing in the
// application and instead lets the WHERE clause check both columns on the
// row as it exists at write time. Whichever party's transaction lands second
// is the one whose flip condition matches, so completed happens exactly
// once. A redundant confirmation (column already stamped, or the order
// already completed by the counterpart) is reported as success with
// completed=false.
func (r *GORMOrderRepository) ConfirmDelivery(id string, asBuyer bool, actor string, at time.Time) (*models.Order, bool, error) {
	column := "seller_confirmed_at"
	if asBuyer {
		column = "buyer_confirmed_at"
	}

	var completed bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ? AND "+column+" IS NULL", id, models.OrderDelivered).
			Updates(map[string]interface{}{column: at, "updated_at": at})
		if res.Error != nil {
			return fmt.Errorf("failed to confirm delivery on order %s: %w", id, res.Error)
		}

		var order models.Order
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order %s: %w", id, models.ErrNotFound)
			}
			return fmt.Errorf("failed to re-fetch order %s: %w", id, err)
		}

		if res.RowsAffected == 0 {
			// Nothing stamped. Idempotent success if this party already
			// confirmed (including when the counterpart's confirmation has
			// since completed the order); otherwise the order is not in a
			// confirmable state.
			alreadyConfirmed := (asBuyer && order.BuyerConfirmedAt != nil) || (!asBuyer && order.SellerConfirmedAt != nil)
			if alreadyConfirmed {
				return nil
			}
			return fmt.Errorf("order %s is %s: %w", id, order.Status, models.ErrStaleState)
		}

		flip := tx.Model(&models.Order{}).
			Where("id = ? AND status = ? AND buyer_confirmed_at IS NOT NULL AND seller_confirmed_at IS NOT NULL", id, models.OrderDelivered).
			Updates(map[string]interface{}{
				"status":       models.OrderCompleted,
				"completed_at": at,
				"updated_at":   at,
			})
		if flip.Error != nil {
			return fmt.Errorf("failed to complete order %s: %w", id, flip.Error)
		}
		if flip.RowsAffected > 0 {
			completed = true
			history := models.OrderStatusHistory{
				ID:        uuid.New().String(),
				OrderID:   id,
				Status:    models.OrderCompleted,
				ChangedBy: actor,
				Notes:     "both parties confirmed delivery",
				CreatedAt: at,
			}
			if err := tx.Create(&history).Error; err != nil {
				return fmt.Errorf("failed to append completion history for order %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	order, err := r.GetByID(id)
	if err != nil {
		return nil, false, err
	}
	return order, completed, nil
}
