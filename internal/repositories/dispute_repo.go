package repositories

import (
	"pasar/internal/models"
)

// DisputeRepository defines the interface for dispute data access. Opening
// and resolving a dispute both touch the order row; those writes share a
// transaction with the dispute write.
type DisputeRepository interface {
	GetByID(id string) (*models.Dispute, error)
	// UnresolvedByOrderID returns the unresolved dispute for an order, or
	// models.ErrNotFound when there is none.
	UnresolvedByOrderID(orderID string) (*models.Dispute, error)
	// OpenForOrder atomically creates the dispute, forces the order into
	// disputed (conditional on the order still being in the captured prior
	// status) and appends the order history row. A second unresolved dispute
	// on the same order is rejected with models.ErrConflict.
	OpenForOrder(dispute *models.Dispute, history *models.OrderStatusHistory) error
	// UpdateStatusIf applies updates only while the dispute status is one of
	// the expected values.
	UpdateStatusIf(id string, expected []models.DisputeStatus, updates map[string]interface{}) error
	// ResolveWithOrder atomically moves the dispute to a resolved status and
	// applies the dictated order update plus its history row.
	ResolveWithOrder(id string, expected []models.DisputeStatus, updates map[string]interface{}, orderID string, orderUpdates map[string]interface{}, history *models.OrderStatusHistory) error
	AppendMessage(message *models.DisputeMessage) error
	Messages(disputeID string) ([]models.DisputeMessage, error)
}
