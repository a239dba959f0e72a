package repositories

import (
	"errors"
	"fmt"

	"pasar/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// unresolvedDisputeStatuses are the statuses that block a second dispute on
// the same order.
var unresolvedDisputeStatuses = []models.DisputeStatus{
	models.DisputeOpen,
	models.DisputeUnderReview,
	models.DisputeAwaitingResponse,
}

// GORMDisputeRepository is a GORM implementation of DisputeRepository.
type GORMDisputeRepository struct {
	db *gorm.DB
}

// NewGORMDisputeRepository creates a new instance of GORMDisputeRepository.
func NewGORMDisputeRepository(db *gorm.DB) *GORMDisputeRepository {
	return &GORMDisputeRepository{
		db: db,
	}
}

// GetByID retrieves a single dispute by its ID.
func (r *GORMDisputeRepository) GetByID(id string) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.First(&dispute, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("dispute %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get dispute %s: %w", id, err)
	}
	return &dispute, nil
}

// UnresolvedByOrderID returns the unresolved dispute for an order, if any.
func (r *GORMDisputeRepository) UnresolvedByOrderID(orderID string) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.First(&dispute, "order_id = ? AND status IN ?", orderID, unresolvedDisputeStatuses).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unresolved dispute for order %s: %w", orderID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get unresolved dispute for order %s: %w", orderID, err)
	}
	return &dispute, nil
}

// OpenForOrder creates the dispute, flips the order to disputed and appends
// the order history row in one transaction. The order flip is conditional on
// the prior status captured by the caller, so a fulfillment action that
// committed in between surfaces as ErrStaleState and nothing is written.
func (r *GORMDisputeRepository) OpenForOrder(dispute *models.Dispute, history *models.OrderStatusHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		err := tx.Model(&models.Dispute{}).
			Where("order_id = ? AND status IN ?", dispute.OrderID, unresolvedDisputeStatuses).
			Count(&existing).Error
		if err != nil {
			return fmt.Errorf("failed to count disputes for order %s: %w", dispute.OrderID, err)
		}
		if existing > 0 {
			return fmt.Errorf("order %s already has an unresolved dispute: %w", dispute.OrderID, models.ErrConflict)
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", dispute.OrderID, dispute.PriorOrderStatus).
			Updates(map[string]interface{}{"status": models.OrderDisputed})
		if res.Error != nil {
			return fmt.Errorf("failed to flag order %s disputed: %w", dispute.OrderID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %s moved past %s: %w", dispute.OrderID, dispute.PriorOrderStatus, models.ErrStaleState)
		}

		if dispute.ID == "" {
			dispute.ID = uuid.New().String()
		}
		if err := tx.Create(dispute).Error; err != nil {
			return fmt.Errorf("failed to create dispute for order %s: %w", dispute.OrderID, err)
		}
		history.OrderID = dispute.OrderID
		if history.ID == "" {
			history.ID = uuid.New().String()
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to append history for order %s: %w", dispute.OrderID, err)
		}
		return nil
	})
}

// UpdateStatusIf applies updates only while the dispute status is one of the
// expected values.
func (r *GORMDisputeRepository) UpdateStatusIf(id string, expected []models.DisputeStatus, updates map[string]interface{}) error {
	return r.conditionalUpdate(r.db, id, expected, updates)
}

func (r *GORMDisputeRepository) conditionalUpdate(tx *gorm.DB, id string, expected []models.DisputeStatus, updates map[string]interface{}) error {
	res := tx.Model(&models.Dispute{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update dispute %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var dispute models.Dispute
		if err := tx.First(&dispute, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("dispute %s: %w", id, models.ErrNotFound)
			}
			return fmt.Errorf("failed to re-fetch dispute %s: %w", id, err)
		}
		return fmt.Errorf("dispute %s is %s: %w", id, dispute.Status, models.ErrStaleState)
	}
	return nil
}

// ResolveWithOrder moves the dispute to its resolved status and applies the
// dictated order update plus history row in one transaction.
func (r *GORMDisputeRepository) ResolveWithOrder(id string, expected []models.DisputeStatus, updates map[string]interface{}, orderID string, orderUpdates map[string]interface{}, history *models.OrderStatusHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.conditionalUpdate(tx, id, expected, updates); err != nil {
			return err
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderDisputed).
			Updates(orderUpdates)
		if res.Error != nil {
			return fmt.Errorf("failed to restore order %s: %w", orderID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %s is no longer disputed: %w", orderID, models.ErrStaleState)
		}
		history.OrderID = orderID
		if history.ID == "" {
			history.ID = uuid.New().String()
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to append history for order %s: %w", orderID, err)
		}
		return nil
	})
}

// AppendMessage appends to the dispute communication log. Messages are
// append-only and carry no precondition; the service layer gates who may
// post and when.
func (r *GORMDisputeRepository) AppendMessage(message *models.DisputeMessage) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("failed to append message to dispute %s: %w", message.DisputeID, err)
	}
	return nil
}

// Messages returns the communication log for a dispute, oldest first.
func (r *GORMDisputeRepository) Messages(disputeID string) ([]models.DisputeMessage, error) {
	var messages []models.DisputeMessage
	if err := r.db.Where("dispute_id = ?", disputeID).Order("created_at asc").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to get messages for dispute %s: %w", disputeID, err)
	}
	return messages, nil
}
