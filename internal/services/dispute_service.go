package services

import (
	"errors"
	"fmt"
	"time"

	"pasar/internal/models"
	"pasar/internal/repositories"

	"github.com/google/uuid"
)

// OpenDisputeInput carries a party's contestation of an order.
type OpenDisputeInput struct {
	OrderID     string
	RaisedBy    string
	Reason      string
	Description string
}

// ResolveDisputeInput is the administrative resolution of a dispute. Outcome
// dictates what happens to the order: resume at its pre-dispute status,
// cancel it, or complete it.
type ResolveDisputeInput struct {
	Status          models.DisputeStatus
	Outcome         models.OrderOutcome
	AdminNotes      string
	ResolutionNotes string
}

// DisputeService owns the dispute state machine. Opening a dispute parks the
// order in disputed and remembers where fulfillment stood; resolution puts
// it back (or terminates it, if the outcome says so).
type DisputeService struct {
	disputeRepo repositories.DisputeRepository
	orderRepo   repositories.OrderRepository
	events      EventPublisher
}

// NewDisputeService creates a new DisputeService.
func NewDisputeService(disputeRepo repositories.DisputeRepository, orderRepo repositories.OrderRepository, events EventPublisher) *DisputeService {
	return &DisputeService{
		disputeRepo: disputeRepo,
		orderRepo:   orderRepo,
		events:      events,
	}
}

// GetDispute retrieves a single dispute by its ID.
func (s *DisputeService) GetDispute(id string) (*models.Dispute, error) {
	return s.disputeRepo.GetByID(id)
}

// Messages retrieves the communication log for a dispute.
func (s *DisputeService) Messages(disputeID string) ([]models.DisputeMessage, error) {
	return s.disputeRepo.Messages(disputeID)
}

// Open raises a dispute against an in-flight or delivered order. Only the
// order's buyer or seller may raise one, terminal orders cannot be disputed,
// and a second unresolved dispute on the same order is a conflict.
func (s *DisputeService) Open(input OpenDisputeInput) (*models.Dispute, error) {
	if input.OrderID == "" || input.RaisedBy == "" || input.Reason == "" || input.Description == "" {
		return nil, fmt.Errorf("order_id, raised_by, reason and description are required: %w", models.ErrInvalidInput)
	}

	order, err := s.orderRepo.GetByID(input.OrderID)
	if err != nil {
		return nil, err
	}
	if input.RaisedBy != order.BuyerID && input.RaisedBy != order.SellerID {
		return nil, fmt.Errorf("only the buyer or seller may raise a dispute: %w", models.ErrForbidden)
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("order is already %s, disputes are closed: %w", order.Status, models.ErrInvalidTransition)
	}
	if order.Status == models.OrderDisputed {
		return nil, fmt.Errorf("order %s is already disputed: %w", order.ID, models.ErrConflict)
	}

	now := time.Now()
	dispute := &models.Dispute{
		ID:               uuid.New().String(),
		OrderID:          order.ID,
		RaisedBy:         input.RaisedBy,
		Reason:           input.Reason,
		Description:      input.Description,
		Status:           models.DisputeOpen,
		PriorOrderStatus: order.Status,
	}
	history := &models.OrderStatusHistory{
		Status:    models.OrderDisputed,
		ChangedBy: input.RaisedBy,
		Notes:     fmt.Sprintf("dispute opened: %s", input.Reason),
		CreatedAt: now,
	}
	if err := s.disputeRepo.OpenForOrder(dispute, history); err != nil {
		return nil, err
	}

	emitEvent(s.events, "dispute", dispute.ID, "", string(models.DisputeOpen), input.RaisedBy)
	emitEvent(s.events, "order", order.ID, string(dispute.PriorOrderStatus), string(models.OrderDisputed), input.RaisedBy)
	return dispute, nil
}

// PostMessage appends to the dispute's communication log. Parties may post
// while the dispute is unresolved; admins may post at any time, including to
// close out communication after resolution.
func (s *DisputeService) PostMessage(disputeID, senderID, text string, isAdmin bool) (*models.DisputeMessage, error) {
	if text == "" {
		return nil, fmt.Errorf("message text is required: %w", models.ErrInvalidInput)
	}

	dispute, err := s.disputeRepo.GetByID(disputeID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		order, err := s.orderRepo.GetByID(dispute.OrderID)
		if err != nil {
			return nil, err
		}
		if senderID != order.BuyerID && senderID != order.SellerID {
			return nil, fmt.Errorf("only the parties or an admin may post to a dispute: %w", models.ErrForbidden)
		}
		if dispute.Status.Resolved() {
			return nil, fmt.Errorf("dispute is %s, party messages are closed: %w", dispute.Status, models.ErrInvalidTransition)
		}
	}

	message := &models.DisputeMessage{
		ID:        uuid.New().String(),
		DisputeID: dispute.ID,
		SenderID:  senderID,
		Message:   text,
		IsAdmin:   isAdmin,
		CreatedAt: time.Now(),
	}
	if err := s.disputeRepo.AppendMessage(message); err != nil {
		return nil, err
	}
	return message, nil
}

// Assign puts an admin on the case, moving it from open to under_review.
func (s *DisputeService) Assign(disputeID, adminID string, isAdmin bool) (*models.Dispute, error) {
	if !isAdmin {
		return nil, fmt.Errorf("dispute assignment is an administrative action: %w", models.ErrForbidden)
	}

	err := s.disputeRepo.UpdateStatusIf(disputeID, []models.DisputeStatus{models.DisputeOpen}, map[string]interface{}{
		"status":   models.DisputeUnderReview,
		"admin_id": adminID,
	})
	if err != nil {
		return nil, err
	}

	emitEvent(s.events, "dispute", disputeID, string(models.DisputeOpen), string(models.DisputeUnderReview), adminID)
	return s.disputeRepo.GetByID(disputeID)
}

// RequestResponse asks the parties for more information, moving the case
// from under_review to awaiting_response.
func (s *DisputeService) RequestResponse(disputeID, adminID string, isAdmin bool) (*models.Dispute, error) {
	if !isAdmin {
		return nil, fmt.Errorf("requesting a response is an administrative action: %w", models.ErrForbidden)
	}

	err := s.disputeRepo.UpdateStatusIf(disputeID, []models.DisputeStatus{models.DisputeUnderReview}, map[string]interface{}{
		"status": models.DisputeAwaitingResponse,
	})
	if err != nil {
		return nil, err
	}

	emitEvent(s.events, "dispute", disputeID, string(models.DisputeUnderReview), string(models.DisputeAwaitingResponse), adminID)
	return s.disputeRepo.GetByID(disputeID)
}

// Resolve is the administrative verdict. The dispute moves to one of the
// resolved_* statuses and the order is restored to its pre-dispute status,
// cancelled, or completed, all in one transaction.
func (s *DisputeService) Resolve(disputeID, adminID string, isAdmin bool, input ResolveDisputeInput) (*models.Dispute, error) {
	if !isAdmin {
		return nil, fmt.Errorf("dispute resolution is an administrative action: %w", models.ErrForbidden)
	}
	if !input.Status.ResolvedOutcome() {
		return nil, fmt.Errorf("resolution status must be one of the resolved outcomes: %w", models.ErrInvalidInput)
	}
	switch input.Outcome {
	case models.OutcomeResume, models.OutcomeCancel, models.OutcomeComplete:
	default:
		return nil, fmt.Errorf("unknown order outcome %q: %w", input.Outcome, models.ErrInvalidInput)
	}

	dispute, err := s.disputeRepo.GetByID(disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status.Resolved() {
		return nil, fmt.Errorf("dispute is already %s: %w", dispute.Status, models.ErrInvalidTransition)
	}

	now := time.Now()
	var restored models.OrderStatus
	orderUpdates := map[string]interface{}{}
	switch input.Outcome {
	case models.OutcomeResume:
		restored = dispute.PriorOrderStatus
		orderUpdates["status"] = restored
	case models.OutcomeCancel:
		restored = models.OrderCancelled
		orderUpdates["status"] = restored
		orderUpdates["cancelled_at"] = now
		orderUpdates["cancellation_reason"] = fmt.Sprintf("dispute resolved as %s", input.Status)
	case models.OutcomeComplete:
		restored = models.OrderCompleted
		orderUpdates["status"] = restored
		orderUpdates["completed_at"] = now
	}

	history := &models.OrderStatusHistory{
		Status:    restored,
		ChangedBy: adminID,
		Notes:     fmt.Sprintf("dispute resolved as %s", input.Status),
		CreatedAt: now,
	}
	unresolved := []models.DisputeStatus{models.DisputeOpen, models.DisputeUnderReview, models.DisputeAwaitingResponse}
	err = s.disputeRepo.ResolveWithOrder(dispute.ID, unresolved, map[string]interface{}{
		"status":           input.Status,
		"admin_id":         adminID,
		"admin_notes":      input.AdminNotes,
		"resolution_notes": input.ResolutionNotes,
		"resolved_at":      now,
	}, dispute.OrderID, orderUpdates, history)
	if err != nil {
		return nil, err
	}

	emitEvent(s.events, "dispute", dispute.ID, string(dispute.Status), string(input.Status), adminID)
	emitEvent(s.events, "order", dispute.OrderID, string(models.OrderDisputed), string(restored), adminID)
	return s.disputeRepo.GetByID(dispute.ID)
}

// Close is the terminal administrative action after resolution. It has no
// further effect on the order.
func (s *DisputeService) Close(disputeID, adminID string, isAdmin bool) (*models.Dispute, error) {
	if !isAdmin {
		return nil, fmt.Errorf("closing a dispute is an administrative action: %w", models.ErrForbidden)
	}

	resolved := []models.DisputeStatus{
		models.DisputeResolvedBuyerFavor,
		models.DisputeResolvedSellerFavor,
		models.DisputeResolvedMutual,
	}
	err := s.disputeRepo.UpdateStatusIf(disputeID, resolved, map[string]interface{}{
		"status": models.DisputeClosed,
	})
	if err != nil {
		if errors.Is(err, models.ErrStaleState) {
			return nil, fmt.Errorf("only a resolved dispute can be closed: %w", models.ErrInvalidTransition)
		}
		return nil, err
	}

	emitEvent(s.events, "dispute", disputeID, "", string(models.DisputeClosed), adminID)
	return s.disputeRepo.GetByID(disputeID)
}
