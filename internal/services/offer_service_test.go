package services_test

import (
	"fmt"
	"testing"
	"time"

	"pasar/internal/models"
	"pasar/internal/repositories"
	"pasar/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOfferRepository is a mock implementation of repositories.OfferRepository
type MockOfferRepository struct {
	mock.Mock
}

func (m *MockOfferRepository) GetByID(id string) (*models.Offer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *MockOfferRepository) GetChain(id string) ([]models.Offer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Offer), args.Error(1)
}

func (m *MockOfferRepository) Create(offer *models.Offer) error {
	args := m.Called(offer)
	return args.Error(0)
}

func (m *MockOfferRepository) UpdateStatusIf(id string, expected models.OfferStatus, updates map[string]interface{}) error {
	args := m.Called(id, expected, updates)
	return args.Error(0)
}

func (m *MockOfferRepository) AcceptWithOrder(id string, expected models.OfferStatus, updates map[string]interface{}, order *models.Order, history *models.OrderStatusHistory) error {
	args := m.Called(id, expected, updates, order, history)
	return args.Error(0)
}

func (m *MockOfferRepository) CreateAcceptedFromCounter(parentID string, offer *models.Offer, order *models.Order, history *models.OrderStatusHistory) error {
	args := m.Called(parentID, offer, order, history)
	return args.Error(0)
}

func (m *MockOfferRepository) ListStale(before time.Time) ([]models.Offer, error) {
	args := m.Called(before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Offer), args.Error(1)
}

// MockOrderRepository is a mock implementation of repositories.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByOfferID(offerID string) (*models.Order, error) {
	args := m.Called(offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) History(orderID string) ([]models.OrderStatusHistory, error) {
	args := m.Called(orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderStatusHistory), args.Error(1)
}

func (m *MockOrderRepository) TransitionIf(id string, expected []models.OrderStatus, updates map[string]interface{}, history *models.OrderStatusHistory) error {
	args := m.Called(id, expected, updates, history)
	return args.Error(0)
}

func (m *MockOrderRepository) ConfirmDelivery(id string, asBuyer bool, actor string, at time.Time) (*models.Order, bool, error) {
	args := m.Called(id, asBuyer, actor, at)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Order), args.Bool(1), args.Error(2)
}

// MockEventPublisher is a mock implementation of services.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishStatusEvent(event models.StatusEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func newOfferFixtures() (*MockOfferRepository, *MockOrderRepository, *repositories.InMemoryListingDirectory, *MockEventPublisher, *services.OfferService) {
	offerRepo := new(MockOfferRepository)
	orderRepo := new(MockOrderRepository)
	listings := repositories.NewInMemoryListingDirectory()
	events := new(MockEventPublisher)
	events.On("PublishStatusEvent", mock.Anything).Return(nil).Maybe()
	service := services.NewOfferService(offerRepo, orderRepo, listings, events, 72*time.Hour)
	return offerRepo, orderRepo, listings, events, service
}

func TestOfferService_Propose(t *testing.T) {
	offerRepo, _, listings, _, service := newOfferFixtures()
	listings.Register("listing-1", "seller-1")

	offerRepo.On("Create", mock.MatchedBy(func(o *models.Offer) bool {
		return o.ListingID == "listing-1" && o.SellerID == "seller-1" && o.Status == models.OfferPending
	})).Return(nil).Once()

	offer, err := service.Propose(services.ProposeOfferInput{
		ListingID: "listing-1",
		BuyerID:   "buyer-1",
		Amount:    1000,
		Message:   "would take the whole lot",
	})
	assert.NoError(t, err)
	assert.Equal(t, models.OfferPending, offer.Status)
	assert.Equal(t, "seller-1", offer.SellerID)
	offerRepo.AssertExpectations(t)
}

func TestOfferService_Propose_OwnListing(t *testing.T) {
	_, _, listings, _, service := newOfferFixtures()
	listings.Register("listing-1", "seller-1")

	offer, err := service.Propose(services.ProposeOfferInput{
		ListingID: "listing-1",
		BuyerID:   "seller-1",
		Amount:    1000,
	})
	assert.Nil(t, offer)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestOfferService_Propose_InvalidAmount(t *testing.T) {
	_, _, listings, _, service := newOfferFixtures()
	listings.Register("listing-1", "seller-1")

	_, err := service.Propose(services.ProposeOfferInput{
		ListingID: "listing-1",
		BuyerID:   "buyer-1",
		Amount:    0,
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = service.Propose(services.ProposeOfferInput{
		ListingID: "listing-1",
		BuyerID:   "buyer-1",
		Amount:    -5,
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func pendingOffer() *models.Offer {
	return &models.Offer{
		ID:        "offer-1",
		ListingID: "listing-1",
		BuyerID:   "buyer-1",
		SellerID:  "seller-1",
		Amount:    1000,
		Status:    models.OfferPending,
	}
}

func TestOfferService_Respond_AcceptCreatesOrder(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	offer := pendingOffer()
	accepted := *offer
	accepted.Status = models.OfferAccepted

	offerRepo.On("GetByID", "offer-1").Return(offer, nil).Once()
	offerRepo.On("AcceptWithOrder", "offer-1", models.OfferPending, mock.Anything,
		mock.MatchedBy(func(o *models.Order) bool {
			return o.OfferID == "offer-1" && o.Amount == 1000 && o.Status == models.OrderPendingPickup &&
				o.BuyerID == "buyer-1" && o.SellerID == "seller-1"
		}),
		mock.MatchedBy(func(h *models.OrderStatusHistory) bool {
			return h.Status == models.OrderPendingPickup && h.ChangedBy == "seller-1"
		})).Return(nil).Once()
	offerRepo.On("GetByID", "offer-1").Return(&accepted, nil).Once()

	result, err := service.Respond("offer-1", "seller-1", services.RespondAccept, nil, "")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, result.Status)
	offerRepo.AssertExpectations(t)
}

func TestOfferService_Respond_AcceptRollsBackWithOrder(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	offerRepo.On("GetByID", "offer-1").Return(pendingOffer(), nil).Once()
	offerRepo.On("AcceptWithOrder", "offer-1", models.OfferPending, mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("order insert failed")).Once()

	result, err := service.Respond("offer-1", "seller-1", services.RespondAccept, nil, "")
	assert.Nil(t, result)
	assert.Error(t, err)
	offerRepo.AssertExpectations(t)
}

func TestOfferService_Respond_OnlySeller(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	offerRepo.On("GetByID", "offer-1").Return(pendingOffer(), nil).Once()

	_, err := service.Respond("offer-1", "buyer-1", services.RespondAccept, nil, "")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestOfferService_Respond_OnlyFromPending(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	declined := pendingOffer()
	declined.Status = models.OfferDeclined
	offerRepo.On("GetByID", "offer-1").Return(declined, nil).Once()

	_, err := service.Respond("offer-1", "seller-1", services.RespondAccept, nil, "")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestOfferService_Respond_CounterRequiresAmount(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	offerRepo.On("GetByID", "offer-1").Return(pendingOffer(), nil).Once()

	_, err := service.Respond("offer-1", "seller-1", services.RespondCounter, nil, "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestOfferService_Respond_Counter(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	offer := pendingOffer()
	counterAmount := 1200.0
	countered := *offer
	countered.Status = models.OfferCountered
	countered.CounterAmount = &counterAmount

	offerRepo.On("GetByID", "offer-1").Return(offer, nil).Once()
	offerRepo.On("UpdateStatusIf", "offer-1", models.OfferPending, mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["status"] == models.OfferCountered && u["counter_amount"] == counterAmount
	})).Return(nil).Once()
	offerRepo.On("GetByID", "offer-1").Return(&countered, nil).Once()

	result, err := service.Respond("offer-1", "seller-1", services.RespondCounter, &counterAmount, "best I can do")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferCountered, result.Status)
	offerRepo.AssertExpectations(t)
}

func TestOfferService_AcceptCounter(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	counterAmount := 1200.0
	countered := pendingOffer()
	countered.Status = models.OfferCountered
	countered.CounterAmount = &counterAmount

	offerRepo.On("GetByID", "offer-1").Return(countered, nil).Once()
	offerRepo.On("CreateAcceptedFromCounter", "offer-1",
		mock.MatchedBy(func(o *models.Offer) bool {
			return o.Amount == 1200 && o.Status == models.OfferAccepted &&
				o.ParentOfferID != nil && *o.ParentOfferID == "offer-1"
		}),
		mock.MatchedBy(func(o *models.Order) bool {
			return o.Amount == 1200 && o.Status == models.OrderPendingPickup
		}),
		mock.Anything).Return(nil).Once()

	accepted, err := service.AcceptCounter("offer-1", "buyer-1")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, accepted.Status)
	assert.Equal(t, 1200.0, accepted.Amount)
	assert.Equal(t, "offer-1", *accepted.ParentOfferID)
	offerRepo.AssertExpectations(t)
}

func TestOfferService_AcceptCounter_OnlyBuyer(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	counterAmount := 1200.0
	countered := pendingOffer()
	countered.Status = models.OfferCountered
	countered.CounterAmount = &counterAmount
	offerRepo.On("GetByID", "offer-1").Return(countered, nil).Once()

	_, err := service.AcceptCounter("offer-1", "seller-1")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestOfferService_Withdraw(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	offer := pendingOffer()
	withdrawn := *offer
	withdrawn.Status = models.OfferWithdrawn

	offerRepo.On("GetByID", "offer-1").Return(offer, nil).Once()
	offerRepo.On("UpdateStatusIf", "offer-1", models.OfferPending, mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["status"] == models.OfferWithdrawn
	})).Return(nil).Once()
	offerRepo.On("GetByID", "offer-1").Return(&withdrawn, nil).Once()

	result, err := service.Withdraw("offer-1", "buyer-1")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferWithdrawn, result.Status)
}

func TestOfferService_Withdraw_NotAfterAcceptance(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	accepted := pendingOffer()
	accepted.Status = models.OfferAccepted
	offerRepo.On("GetByID", "offer-1").Return(accepted, nil).Once()

	_, err := service.Withdraw("offer-1", "buyer-1")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestOfferService_MarkPaid(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	accepted := pendingOffer()
	accepted.Status = models.OfferAccepted
	paid := *accepted
	paid.Status = models.OfferPaid

	offerRepo.On("GetByID", "offer-1").Return(accepted, nil).Once()
	offerRepo.On("UpdateStatusIf", "offer-1", models.OfferAccepted, mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["status"] == models.OfferPaid
	})).Return(nil).Once()
	offerRepo.On("GetByID", "offer-1").Return(&paid, nil).Once()

	result, err := service.MarkPaid("offer-1", "buyer-1")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferPaid, result.Status)
}

func TestOfferService_MarkPaid_OnlyFromAccepted(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	offerRepo.On("GetByID", "offer-1").Return(pendingOffer(), nil).Once()

	_, err := service.MarkPaid("offer-1", "buyer-1")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestOfferService_ExpireIfStale_Idempotent(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()

	// Terminal offer: nothing to do, no error.
	paid := pendingOffer()
	paid.Status = models.OfferPaid
	offerRepo.On("GetByID", "offer-1").Return(paid, nil).Once()
	result, err := service.ExpireIfStale("offer-1")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferPaid, result.Status)

	// Fresh pending offer: not yet stale, left alone.
	fresh := pendingOffer()
	fresh.UpdatedAt = time.Now()
	offerRepo.On("GetByID", "offer-1").Return(fresh, nil).Once()
	result, err = service.ExpireIfStale("offer-1")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferPending, result.Status)

	offerRepo.AssertNotCalled(t, "UpdateStatusIf", mock.Anything, mock.Anything, mock.Anything)
}

func TestOfferService_ExpireIfStale_ExpiresOldOffer(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	stale := pendingOffer()
	stale.UpdatedAt = time.Now().Add(-100 * time.Hour)
	expired := *stale
	expired.Status = models.OfferExpired

	offerRepo.On("GetByID", "offer-1").Return(stale, nil).Once()
	offerRepo.On("UpdateStatusIf", "offer-1", models.OfferPending, mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["status"] == models.OfferExpired
	})).Return(nil).Once()
	offerRepo.On("GetByID", "offer-1").Return(&expired, nil).Once()

	result, err := service.ExpireIfStale("offer-1")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferExpired, result.Status)
	offerRepo.AssertExpectations(t)
}

func TestOfferService_ExpireIfStale_LosesRaceGracefully(t *testing.T) {
	offerRepo, _, _, _, service := newOfferFixtures()
	stale := pendingOffer()
	stale.UpdatedAt = time.Now().Add(-100 * time.Hour)
	accepted := *stale
	accepted.Status = models.OfferAccepted

	offerRepo.On("GetByID", "offer-1").Return(stale, nil).Once()
	offerRepo.On("UpdateStatusIf", "offer-1", models.OfferPending, mock.Anything).
		Return(fmt.Errorf("offer moved: %w", models.ErrStaleState)).Once()
	offerRepo.On("GetByID", "offer-1").Return(&accepted, nil).Once()

	// The acceptance that landed first wins; expiry reports the offer as-is.
	result, err := service.ExpireIfStale("offer-1")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, result.Status)
}
