package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"pasar/internal/models"
	"pasar/internal/repositories"

	"github.com/google/uuid"
)

// RespondAction is what a seller can do with a pending offer.
type RespondAction string

const (
	RespondAccept  RespondAction = "accept"
	RespondDecline RespondAction = "decline"
	RespondCounter RespondAction = "counter"
)

// ProposeOfferInput carries a buyer's opening proposal.
type ProposeOfferInput struct {
	ListingID string
	BuyerID   string
	Amount    float64
	Message   string
}

// OfferService owns the offer negotiation state machine. Every transition is
// a conditional write against the store; accepting an offer creates the
// order in the same transaction.
type OfferService struct {
	offerRepo repositories.OfferRepository
	orderRepo repositories.OrderRepository
	listings  repositories.ListingDirectory
	events    EventPublisher
	offerTTL  time.Duration
}

// NewOfferService creates a new OfferService. offerTTL is how long a pending
// or countered offer may sit untouched before ExpireIfStale retires it.
func NewOfferService(offerRepo repositories.OfferRepository, orderRepo repositories.OrderRepository, listings repositories.ListingDirectory, events EventPublisher, offerTTL time.Duration) *OfferService {
	return &OfferService{
		offerRepo: offerRepo,
		orderRepo: orderRepo,
		listings:  listings,
		events:    events,
		offerTTL:  offerTTL,
	}
}

// GetOffer retrieves a single offer by its ID.
func (s *OfferService) GetOffer(id string) (*models.Offer, error) {
	return s.offerRepo.GetByID(id)
}

// GetNegotiationChain retrieves the offer plus its ancestors up the
// parent_offer_id chain.
func (s *OfferService) GetNegotiationChain(id string) ([]models.Offer, error) {
	return s.offerRepo.GetChain(id)
}

// GetOrderForOffer retrieves the order bound to an accepted offer.
func (s *OfferService) GetOrderForOffer(offerID string) (*models.Order, error) {
	return s.orderRepo.GetByOfferID(offerID)
}

// Propose creates a new pending offer. The seller is resolved from the
// listing directory so seller_id always equals the listing owner at creation
// time; a buyer cannot make an offer against their own listing.
func (s *OfferService) Propose(input ProposeOfferInput) (*models.Offer, error) {
	if input.ListingID == "" || input.BuyerID == "" {
		return nil, fmt.Errorf("listing_id and buyer_id are required: %w", models.ErrInvalidInput)
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", models.ErrInvalidInput)
	}

	sellerID, err := s.listings.OwnerOf(input.ListingID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve listing owner: %w", err)
	}
	if sellerID == input.BuyerID {
		return nil, fmt.Errorf("cannot make an offer on your own listing: %w", models.ErrForbidden)
	}

	offer := &models.Offer{
		ID:        uuid.New().String(),
		ListingID: input.ListingID,
		BuyerID:   input.BuyerID,
		SellerID:  sellerID,
		Amount:    input.Amount,
		Message:   input.Message,
		Status:    models.OfferPending,
	}
	if err := s.offerRepo.Create(offer); err != nil {
		return nil, err
	}

	emitEvent(s.events, "offer", offer.ID, "", string(models.OfferPending), input.BuyerID)
	return offer, nil
}

// Respond is the seller's move on a pending offer: accept, decline or
// counter. Accepting creates the order atomically with the status flip, so a
// failed order creation rolls the acceptance back.
func (s *OfferService) Respond(offerID, actorID string, action RespondAction, counterAmount *float64, counterMessage string) (*models.Offer, error) {
	offer, err := s.offerRepo.GetByID(offerID)
	if err != nil {
		return nil, err
	}
	if actorID != offer.SellerID {
		return nil, fmt.Errorf("only the seller may respond to an offer: %w", models.ErrForbidden)
	}
	if offer.Status != models.OfferPending {
		return nil, fmt.Errorf("offer is %s, responses are only legal from %s: %w", offer.Status, models.OfferPending, models.ErrInvalidTransition)
	}

	now := time.Now()
	switch action {
	case RespondAccept:
		order := &models.Order{
			ID:        uuid.New().String(),
			OfferID:   offer.ID,
			ListingID: offer.ListingID,
			BuyerID:   offer.BuyerID,
			SellerID:  offer.SellerID,
			Amount:    offer.Amount,
			Status:    models.OrderPendingPickup,
		}
		history := &models.OrderStatusHistory{
			Status:    models.OrderPendingPickup,
			ChangedBy: actorID,
			Notes:     "order created from accepted offer",
			CreatedAt: now,
		}
		err = s.offerRepo.AcceptWithOrder(offer.ID, models.OfferPending, map[string]interface{}{
			"status":       models.OfferAccepted,
			"responded_at": now,
		}, order, history)
		if err != nil {
			return nil, err
		}
		emitEvent(s.events, "offer", offer.ID, string(models.OfferPending), string(models.OfferAccepted), actorID)
		emitEvent(s.events, "order", order.ID, "", string(models.OrderPendingPickup), actorID)

	case RespondDecline:
		err = s.offerRepo.UpdateStatusIf(offer.ID, models.OfferPending, map[string]interface{}{
			"status":       models.OfferDeclined,
			"responded_at": now,
		})
		if err != nil {
			return nil, err
		}
		emitEvent(s.events, "offer", offer.ID, string(models.OfferPending), string(models.OfferDeclined), actorID)

	case RespondCounter:
		if counterAmount == nil || *counterAmount <= 0 {
			return nil, fmt.Errorf("counter_amount must be positive: %w", models.ErrInvalidInput)
		}
		err = s.offerRepo.UpdateStatusIf(offer.ID, models.OfferPending, map[string]interface{}{
			"status":          models.OfferCountered,
			"counter_amount":  *counterAmount,
			"counter_message": counterMessage,
			"responded_at":    now,
		})
		if err != nil {
			return nil, err
		}
		emitEvent(s.events, "offer", offer.ID, string(models.OfferPending), string(models.OfferCountered), actorID)

	default:
		return nil, fmt.Errorf("unknown response action %q: %w", action, models.ErrInvalidInput)
	}

	return s.offerRepo.GetByID(offer.ID)
}

// AcceptCounter is the buyer accepting the seller's counter-offer. A new
// offer row is created with the countered amount, already accepted and
// pointing back at the original via parent_offer_id; the original stays
// countered as the audit trail. The order binds to the new row.
func (s *OfferService) AcceptCounter(offerID, actorID string) (*models.Offer, error) {
	original, err := s.offerRepo.GetByID(offerID)
	if err != nil {
		return nil, err
	}
	if actorID != original.BuyerID {
		return nil, fmt.Errorf("only the buyer may accept a counter-offer: %w", models.ErrForbidden)
	}
	if original.Status != models.OfferCountered {
		return nil, fmt.Errorf("offer is %s, counter-acceptance requires %s: %w", original.Status, models.OfferCountered, models.ErrInvalidTransition)
	}
	if original.CounterAmount == nil {
		return nil, fmt.Errorf("countered offer %s has no counter amount: %w", original.ID, models.ErrInvalidTransition)
	}

	now := time.Now()
	accepted := &models.Offer{
		ID:            uuid.New().String(),
		ListingID:     original.ListingID,
		BuyerID:       original.BuyerID,
		SellerID:      original.SellerID,
		Amount:        *original.CounterAmount,
		Status:        models.OfferAccepted,
		ParentOfferID: &original.ID,
		RespondedAt:   &now,
	}
	order := &models.Order{
		ID:        uuid.New().String(),
		ListingID: original.ListingID,
		BuyerID:   original.BuyerID,
		SellerID:  original.SellerID,
		Amount:    *original.CounterAmount,
		Status:    models.OrderPendingPickup,
	}
	history := &models.OrderStatusHistory{
		Status:    models.OrderPendingPickup,
		ChangedBy: actorID,
		Notes:     "order created from accepted counter-offer",
		CreatedAt: now,
	}
	if err := s.offerRepo.CreateAcceptedFromCounter(original.ID, accepted, order, history); err != nil {
		return nil, err
	}

	emitEvent(s.events, "offer", accepted.ID, "", string(models.OfferAccepted), actorID)
	emitEvent(s.events, "order", order.ID, "", string(models.OrderPendingPickup), actorID)
	return accepted, nil
}

// Withdraw retires the buyer's own offer while negotiation is still open.
func (s *OfferService) Withdraw(offerID, actorID string) (*models.Offer, error) {
	offer, err := s.offerRepo.GetByID(offerID)
	if err != nil {
		return nil, err
	}
	if actorID != offer.BuyerID {
		return nil, fmt.Errorf("only the buyer may withdraw an offer: %w", models.ErrForbidden)
	}
	if offer.Status != models.OfferPending && offer.Status != models.OfferCountered {
		return nil, fmt.Errorf("offer is %s, withdrawal requires %s or %s: %w", offer.Status, models.OfferPending, models.OfferCountered, models.ErrInvalidTransition)
	}

	err = s.offerRepo.UpdateStatusIf(offer.ID, offer.Status, map[string]interface{}{
		"status": models.OfferWithdrawn,
	})
	if err != nil {
		return nil, err
	}

	emitEvent(s.events, "offer", offer.ID, string(offer.Status), string(models.OfferWithdrawn), actorID)
	return s.offerRepo.GetByID(offer.ID)
}

// MarkPaid records the buyer's acknowledgement that the external payment
// collaborator has captured payment. It creates no financial side effects;
// it is the boundary between negotiation and payment.
func (s *OfferService) MarkPaid(offerID, actorID string) (*models.Offer, error) {
	offer, err := s.offerRepo.GetByID(offerID)
	if err != nil {
		return nil, err
	}
	if actorID != offer.BuyerID {
		return nil, fmt.Errorf("only the buyer may mark an offer paid: %w", models.ErrForbidden)
	}
	if offer.Status != models.OfferAccepted {
		return nil, fmt.Errorf("offer is %s, payment requires %s: %w", offer.Status, models.OfferAccepted, models.ErrInvalidTransition)
	}

	now := time.Now()
	err = s.offerRepo.UpdateStatusIf(offer.ID, models.OfferAccepted, map[string]interface{}{
		"status":  models.OfferPaid,
		"paid_at": now,
	})
	if err != nil {
		return nil, err
	}

	emitEvent(s.events, "offer", offer.ID, string(models.OfferAccepted), string(models.OfferPaid), actorID)
	return s.offerRepo.GetByID(offer.ID)
}

// ExpireIfStale retires a pending or countered offer whose last touch is
// older than the TTL. It is idempotent: an offer that already progressed, or
// one not yet stale, is left alone and no error is returned. A periodic
// external tick drives this; there are no request-level timeouts.
func (s *OfferService) ExpireIfStale(offerID string) (*models.Offer, error) {
	offer, err := s.offerRepo.GetByID(offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != models.OfferPending && offer.Status != models.OfferCountered {
		return offer, nil
	}
	if time.Since(offer.UpdatedAt) < s.offerTTL {
		return offer, nil
	}

	err = s.offerRepo.UpdateStatusIf(offer.ID, offer.Status, map[string]interface{}{
		"status": models.OfferExpired,
	})
	if err != nil {
		// A transition that landed first wins; expiry has nothing to do.
		if errors.Is(err, models.ErrStaleState) {
			return s.offerRepo.GetByID(offer.ID)
		}
		return nil, err
	}

	emitEvent(s.events, "offer", offer.ID, string(offer.Status), string(models.OfferExpired), "system")
	return s.offerRepo.GetByID(offer.ID)
}

// SweepExpired expires every stale offer, returning how many were retired.
// main runs this on a ticker as the built-in scheduler.
func (s *OfferService) SweepExpired() (int, error) {
	cutoff := time.Now().Add(-s.offerTTL)
	stale, err := s.offerRepo.ListStale(cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, offer := range stale {
		before := offer.Status
		after, err := s.ExpireIfStale(offer.ID)
		if err != nil {
			log.Printf("Warning: Failed to expire offer %s: %v", offer.ID, err)
			continue
		}
		if before != after.Status && after.Status == models.OfferExpired {
			expired++
		}
	}
	return expired, nil
}
