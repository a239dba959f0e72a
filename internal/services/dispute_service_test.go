package services_test

import (
	"testing"
	"time"

	"pasar/internal/models"
	"pasar/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockDisputeRepository is a mock implementation of repositories.DisputeRepository
type MockDisputeRepository struct {
	mock.Mock
}

func (m *MockDisputeRepository) GetByID(id string) (*models.Dispute, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *MockDisputeRepository) UnresolvedByOrderID(orderID string) (*models.Dispute, error) {
	args := m.Called(orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *MockDisputeRepository) OpenForOrder(dispute *models.Dispute, history *models.OrderStatusHistory) error {
	args := m.Called(dispute, history)
	return args.Error(0)
}

func (m *MockDisputeRepository) UpdateStatusIf(id string, expected []models.DisputeStatus, updates map[string]interface{}) error {
	args := m.Called(id, expected, updates)
	return args.Error(0)
}

func (m *MockDisputeRepository) ResolveWithOrder(id string, expected []models.DisputeStatus, updates map[string]interface{}, orderID string, orderUpdates map[string]interface{}, history *models.OrderStatusHistory) error {
	args := m.Called(id, expected, updates, orderID, orderUpdates, history)
	return args.Error(0)
}

func (m *MockDisputeRepository) AppendMessage(message *models.DisputeMessage) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MockDisputeRepository) Messages(disputeID string) ([]models.DisputeMessage, error) {
	args := m.Called(disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DisputeMessage), args.Error(1)
}

func newDisputeFixtures() (*MockDisputeRepository, *MockOrderRepository, *services.DisputeService) {
	disputeRepo := new(MockDisputeRepository)
	orderRepo := new(MockOrderRepository)
	events := new(MockEventPublisher)
	events.On("PublishStatusEvent", mock.Anything).Return(nil).Maybe()
	service := services.NewDisputeService(disputeRepo, orderRepo, events)
	return disputeRepo, orderRepo, service
}

func inTransitOrder() *models.Order {
	return &models.Order{
		ID:       "order-1",
		OfferID:  "offer-1",
		BuyerID:  "buyer-1",
		SellerID: "seller-1",
		Amount:   1200,
		Status:   models.OrderInTransit,
	}
}

func TestDisputeService_Open_CapturesPriorStatus(t *testing.T) {
	disputeRepo, orderRepo, service := newDisputeFixtures()
	orderRepo.On("GetByID", "order-1").Return(inTransitOrder(), nil).Once()
	disputeRepo.On("OpenForOrder",
		mock.MatchedBy(func(d *models.Dispute) bool {
			return d.OrderID == "order-1" && d.Status == models.DisputeOpen &&
				d.PriorOrderStatus == models.OrderInTransit && d.RaisedBy == "buyer-1"
		}),
		mock.MatchedBy(func(h *models.OrderStatusHistory) bool {
			return h.Status == models.OrderDisputed && h.ChangedBy == "buyer-1"
		})).Return(nil).Once()

	dispute, err := service.Open(services.OpenDisputeInput{
		OrderID:     "order-1",
		RaisedBy:    "buyer-1",
		Reason:      "quality_issue",
		Description: "half the batch arrived cracked",
	})
	assert.NoError(t, err)
	assert.Equal(t, models.OrderInTransit, dispute.PriorOrderStatus)
	disputeRepo.AssertExpectations(t)
}

func TestDisputeService_Open_OnlyParties(t *testing.T) {
	_, orderRepo, service := newDisputeFixtures()
	orderRepo.On("GetByID", "order-1").Return(inTransitOrder(), nil).Once()

	_, err := service.Open(services.OpenDisputeInput{
		OrderID:     "order-1",
		RaisedBy:    "someone-else",
		Reason:      "quality_issue",
		Description: "not my order but still unhappy",
	})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestDisputeService_Open_NotOnTerminalOrder(t *testing.T) {
	_, orderRepo, service := newDisputeFixtures()
	order := inTransitOrder()
	order.Status = models.OrderCompleted
	orderRepo.On("GetByID", "order-1").Return(order, nil).Once()

	_, err := service.Open(services.OpenDisputeInput{
		OrderID:     "order-1",
		RaisedBy:    "buyer-1",
		Reason:      "quality_issue",
		Description: "too late now",
	})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestDisputeService_Open_SecondDisputeConflicts(t *testing.T) {
	_, orderRepo, service := newDisputeFixtures()
	order := inTransitOrder()
	order.Status = models.OrderDisputed
	orderRepo.On("GetByID", "order-1").Return(order, nil).Once()

	_, err := service.Open(services.OpenDisputeInput{
		OrderID:     "order-1",
		RaisedBy:    "seller-1",
		Reason:      "non_payment",
		Description: "buyer also unhappy apparently",
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func openDispute() *models.Dispute {
	return &models.Dispute{
		ID:               "dispute-1",
		OrderID:          "order-1",
		RaisedBy:         "buyer-1",
		Reason:           "quality_issue",
		Description:      "half the batch arrived cracked",
		Status:           models.DisputeOpen,
		PriorOrderStatus: models.OrderInTransit,
	}
}

func TestDisputeService_PostMessage_PartiesWhileUnresolved(t *testing.T) {
	disputeRepo, orderRepo, service := newDisputeFixtures()
	disputeRepo.On("GetByID", "dispute-1").Return(openDispute(), nil).Once()
	orderRepo.On("GetByID", "order-1").Return(inTransitOrder(), nil).Once()
	disputeRepo.On("AppendMessage", mock.MatchedBy(func(m *models.DisputeMessage) bool {
		return m.DisputeID == "dispute-1" && m.SenderID == "seller-1" && !m.IsAdmin
	})).Return(nil).Once()

	message, err := service.PostMessage("dispute-1", "seller-1", "photos please", false)
	assert.NoError(t, err)
	assert.Equal(t, "photos please", message.Message)
}

func TestDisputeService_PostMessage_PartiesBlockedAfterResolution(t *testing.T) {
	disputeRepo, orderRepo, service := newDisputeFixtures()
	resolved := openDispute()
	resolved.Status = models.DisputeResolvedMutual
	disputeRepo.On("GetByID", "dispute-1").Return(resolved, nil).Once()
	orderRepo.On("GetByID", "order-1").Return(inTransitOrder(), nil).Once()

	_, err := service.PostMessage("dispute-1", "buyer-1", "one more thing", false)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestDisputeService_PostMessage_AdminAlwaysAllowed(t *testing.T) {
	disputeRepo, _, service := newDisputeFixtures()
	resolved := openDispute()
	resolved.Status = models.DisputeResolvedMutual
	disputeRepo.On("GetByID", "dispute-1").Return(resolved, nil).Once()
	disputeRepo.On("AppendMessage", mock.MatchedBy(func(m *models.DisputeMessage) bool {
		return m.IsAdmin
	})).Return(nil).Once()

	_, err := service.PostMessage("dispute-1", "admin-1", "case closed, thanks all", true)
	assert.NoError(t, err)
}

func TestDisputeService_Resolve_AdminOnly(t *testing.T) {
	_, _, service := newDisputeFixtures()

	_, err := service.Resolve("dispute-1", "buyer-1", false, services.ResolveDisputeInput{
		Status:  models.DisputeResolvedMutual,
		Outcome: models.OutcomeResume,
	})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestDisputeService_Resolve_ResumeRestoresPriorStatus(t *testing.T) {
	disputeRepo, _, service := newDisputeFixtures()
	dispute := openDispute()
	resolved := *dispute
	resolved.Status = models.DisputeResolvedMutual

	disputeRepo.On("GetByID", "dispute-1").Return(dispute, nil).Once()
	disputeRepo.On("ResolveWithOrder", "dispute-1",
		mock.Anything,
		mock.MatchedBy(func(u map[string]interface{}) bool {
			return u["status"] == models.DisputeResolvedMutual && u["admin_id"] == "admin-1"
		}),
		"order-1",
		mock.MatchedBy(func(u map[string]interface{}) bool {
			// Resume puts the order back where the dispute found it.
			return u["status"] == models.OrderInTransit
		}),
		mock.MatchedBy(func(h *models.OrderStatusHistory) bool {
			return h.Status == models.OrderInTransit && h.ChangedBy == "admin-1"
		})).Return(nil).Once()
	disputeRepo.On("GetByID", "dispute-1").Return(&resolved, nil).Once()

	result, err := service.Resolve("dispute-1", "admin-1", true, services.ResolveDisputeInput{
		Status:  models.DisputeResolvedMutual,
		Outcome: models.OutcomeResume,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeResolvedMutual, result.Status)
	disputeRepo.AssertExpectations(t)
}

func TestDisputeService_Resolve_CancelOutcome(t *testing.T) {
	disputeRepo, _, service := newDisputeFixtures()
	dispute := openDispute()
	resolved := *dispute
	resolved.Status = models.DisputeResolvedBuyerFavor

	disputeRepo.On("GetByID", "dispute-1").Return(dispute, nil).Once()
	disputeRepo.On("ResolveWithOrder", "dispute-1", mock.Anything, mock.Anything, "order-1",
		mock.MatchedBy(func(u map[string]interface{}) bool {
			return u["status"] == models.OrderCancelled && u["cancelled_at"] != nil
		}),
		mock.Anything).Return(nil).Once()
	disputeRepo.On("GetByID", "dispute-1").Return(&resolved, nil).Once()

	_, err := service.Resolve("dispute-1", "admin-1", true, services.ResolveDisputeInput{
		Status:  models.DisputeResolvedBuyerFavor,
		Outcome: models.OutcomeCancel,
	})
	assert.NoError(t, err)
}

func TestDisputeService_Resolve_RejectsNonResolvedTarget(t *testing.T) {
	_, _, service := newDisputeFixtures()

	_, err := service.Resolve("dispute-1", "admin-1", true, services.ResolveDisputeInput{
		Status:  models.DisputeClosed,
		Outcome: models.OutcomeResume,
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestDisputeService_Resolve_AlreadyResolved(t *testing.T) {
	disputeRepo, _, service := newDisputeFixtures()
	resolved := openDispute()
	resolved.Status = models.DisputeResolvedMutual
	disputeRepo.On("GetByID", "dispute-1").Return(resolved, nil).Once()

	_, err := service.Resolve("dispute-1", "admin-1", true, services.ResolveDisputeInput{
		Status:  models.DisputeResolvedSellerFavor,
		Outcome: models.OutcomeResume,
	})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestDisputeService_Close_OnlyAfterResolution(t *testing.T) {
	disputeRepo, _, service := newDisputeFixtures()
	disputeRepo.On("UpdateStatusIf", "dispute-1", mock.Anything, mock.Anything).
		Return(assert.AnError).Once()

	_, err := service.Close("dispute-1", "admin-1", true)
	assert.Error(t, err)
}

func TestDisputeService_Assign(t *testing.T) {
	disputeRepo, _, service := newDisputeFixtures()
	assigned := openDispute()
	assigned.Status = models.DisputeUnderReview
	adminID := "admin-1"
	assigned.AdminID = &adminID

	disputeRepo.On("UpdateStatusIf", "dispute-1",
		[]models.DisputeStatus{models.DisputeOpen},
		mock.MatchedBy(func(u map[string]interface{}) bool {
			return u["status"] == models.DisputeUnderReview && u["admin_id"] == "admin-1"
		})).Return(nil).Once()
	disputeRepo.On("GetByID", "dispute-1").Return(assigned, nil).Once()

	result, err := service.Assign("dispute-1", "admin-1", true)
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeUnderReview, result.Status)
}

func TestDisputeService_Assign_AdminOnly(t *testing.T) {
	_, _, service := newDisputeFixtures()

	_, err := service.Assign("dispute-1", "buyer-1", false)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestDisputeService_Messages(t *testing.T) {
	disputeRepo, _, service := newDisputeFixtures()
	expected := []models.DisputeMessage{
		{ID: "m1", DisputeID: "dispute-1", SenderID: "buyer-1", Message: "cracked tiles", CreatedAt: time.Now()},
	}
	disputeRepo.On("Messages", "dispute-1").Return(expected, nil).Once()

	messages, err := service.Messages("dispute-1")
	assert.NoError(t, err)
	assert.Len(t, messages, 1)
}
