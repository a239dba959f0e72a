package services

import (
	"fmt"
	"time"

	"pasar/internal/models"
	"pasar/internal/repositories"
)

// SchedulePickupInput carries the seller's pickup arrangement.
type SchedulePickupInput struct {
	Date    string
	Time    string
	Address string
	Notes   string
}

// OrderService owns the fulfillment state machine. Orders are created by
// OfferService at acceptance time; from there the parties drive
// pickup, transit, delivery and completion, with every change appending to
// the status history in the same transaction.
type OrderService struct {
	orderRepo repositories.OrderRepository
	events    EventPublisher
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, events EventPublisher) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		events:    events,
	}
}

// GetOrder retrieves a single order by its ID.
func (s *OrderService) GetOrder(id string) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

// History retrieves the append-only status log for an order.
func (s *OrderService) History(orderID string) ([]models.OrderStatusHistory, error) {
	return s.orderRepo.History(orderID)
}

// SchedulePickup is the seller arranging collection. Only legal while the
// order is waiting for pickup.
func (s *OrderService) SchedulePickup(orderID, actorID string, input SchedulePickupInput) (*models.Order, error) {
	if input.Date == "" || input.Address == "" {
		return nil, fmt.Errorf("pickup date and address are required: %w", models.ErrInvalidInput)
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if actorID != order.SellerID {
		return nil, fmt.Errorf("only the seller may schedule pickup: %w", models.ErrForbidden)
	}
	if order.Status != models.OrderPendingPickup {
		return nil, fmt.Errorf("order is %s, pickup scheduling requires %s: %w", order.Status, models.OrderPendingPickup, models.ErrInvalidTransition)
	}

	history := &models.OrderStatusHistory{
		Status:    models.OrderPickupScheduled,
		ChangedBy: actorID,
		Notes:     fmt.Sprintf("pickup scheduled for %s %s", input.Date, input.Time),
		CreatedAt: time.Now(),
	}
	err = s.orderRepo.TransitionIf(order.ID, []models.OrderStatus{models.OrderPendingPickup}, map[string]interface{}{
		"status":         models.OrderPickupScheduled,
		"pickup_date":    input.Date,
		"pickup_time":    input.Time,
		"pickup_address": input.Address,
		"pickup_notes":   input.Notes,
	}, history)
	if err != nil {
		return nil, err
	}

	emitEvent(s.events, "order", order.ID, string(models.OrderPendingPickup), string(models.OrderPickupScheduled), actorID)
	return s.orderRepo.GetByID(order.ID)
}

// Advance moves fulfillment forward along the fixed edges
// pickup_scheduled to in_transit to delivered. Either party may report
// progress; the actor lands in the history entry.
func (s *OrderService) Advance(orderID, actorID string, target models.OrderStatus) (*models.Order, error) {
	if target != models.OrderInTransit && target != models.OrderDelivered {
		return nil, fmt.Errorf("advance target must be %s or %s: %w", models.OrderInTransit, models.OrderDelivered, models.ErrInvalidInput)
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if actorID != order.BuyerID && actorID != order.SellerID {
		return nil, fmt.Errorf("only the buyer or seller may advance an order: %w", models.ErrForbidden)
	}
	if !order.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("order is %s, cannot advance to %s: %w", order.Status, target, models.ErrInvalidTransition)
	}

	history := &models.OrderStatusHistory{
		Status:    target,
		ChangedBy: actorID,
		CreatedAt: time.Now(),
	}
	err = s.orderRepo.TransitionIf(order.ID, []models.OrderStatus{order.Status}, map[string]interface{}{
		"status": target,
	}, history)
	if err != nil {
		return nil, err
	}

	emitEvent(s.events, "order", order.ID, string(order.Status), string(target), actorID)
	return s.orderRepo.GetByID(order.ID)
}

// ConfirmDelivery stamps the calling party's confirmation. The order
// completes only once both parties have confirmed; whichever confirmation
// lands second triggers the flip inside the repository's transaction.
// Confirming again after the fact is an idempotent success.
func (s *OrderService) ConfirmDelivery(orderID, actorID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	var asBuyer bool
	switch actorID {
	case order.BuyerID:
		asBuyer = true
	case order.SellerID:
		asBuyer = false
	default:
		return nil, fmt.Errorf("only the buyer or seller may confirm delivery: %w", models.ErrForbidden)
	}
	if order.Status != models.OrderDelivered && order.Status != models.OrderCompleted {
		return nil, fmt.Errorf("order is %s, confirmation requires %s: %w", order.Status, models.OrderDelivered, models.ErrInvalidTransition)
	}

	updated, completed, err := s.orderRepo.ConfirmDelivery(order.ID, asBuyer, actorID, time.Now())
	if err != nil {
		return nil, err
	}
	if completed {
		// Exactly one confirmation performs the flip, so this event fires
		// once per order.
		emitEvent(s.events, "order", order.ID, string(models.OrderDelivered), string(models.OrderCompleted), actorID)
	}
	return updated, nil
}

// Cancel terminates fulfillment. Legal from any non-terminal state; a
// completed order can no longer be cancelled.
func (s *OrderService) Cancel(orderID, actorID, reason string) (*models.Order, error) {
	if reason == "" {
		return nil, fmt.Errorf("cancellation reason is required: %w", models.ErrInvalidInput)
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if actorID != order.BuyerID && actorID != order.SellerID {
		return nil, fmt.Errorf("only the buyer or seller may cancel an order: %w", models.ErrForbidden)
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("order is already %s: %w", order.Status, models.ErrInvalidTransition)
	}

	now := time.Now()
	history := &models.OrderStatusHistory{
		Status:    models.OrderCancelled,
		ChangedBy: actorID,
		Notes:     reason,
		CreatedAt: now,
	}
	err = s.orderRepo.TransitionIf(order.ID, []models.OrderStatus{order.Status}, map[string]interface{}{
		"status":              models.OrderCancelled,
		"cancelled_at":        now,
		"cancellation_reason": reason,
	}, history)
	if err != nil {
		return nil, err
	}

	emitEvent(s.events, "order", order.ID, string(order.Status), string(models.OrderCancelled), actorID)
	return s.orderRepo.GetByID(order.ID)
}
