package repositories

import (
	"time"

	"pasar/internal/models"
)

// OrderRepository defines the interface for order data access. Orders are
// only ever created through OfferRepository (acceptance is atomic with order
// creation); this interface covers reads and status transitions.
type OrderRepository interface {
	GetByID(id string) (*models.Order, error)
	GetByOfferID(offerID string) (*models.Order, error)
	History(orderID string) ([]models.OrderStatusHistory, error)
	// TransitionIf applies updates only while the order status is one of the
	// expected values, appending the history row in the same transaction.
	TransitionIf(id string, expected []models.OrderStatus, updates map[string]interface{}, history *models.OrderStatusHistory) error
	// ConfirmDelivery stamps the caller's confirmation column and, when both
	// parties have confirmed, flips the order to completed, all as
	// conditional writes inside one transaction. It returns the resulting
	// order and whether this call performed the completion flip.
	ConfirmDelivery(id string, asBuyer bool, actor string, at time.Time) (*models.Order, bool, error)
}
