package repositories

import (
	"fmt"
	"sync"

	"pasar/internal/models"
)

// ListingDirectory resolves a listing to its owning party. The listing
// catalog itself lives outside the engine; only ownership matters here,
// because an offer's seller_id must equal the listing owner at proposal
// time.
type ListingDirectory interface {
	OwnerOf(listingID string) (string, error)
}

// InMemoryListingDirectory is an in-memory implementation of
// ListingDirectory, used in development and tests. Production wires an
// adapter over the catalog service instead.
type InMemoryListingDirectory struct {
	owners map[string]string
	mu     sync.RWMutex
}

// NewInMemoryListingDirectory creates a new instance of
// InMemoryListingDirectory.
func NewInMemoryListingDirectory() *InMemoryListingDirectory {
	return &InMemoryListingDirectory{
		owners: make(map[string]string),
	}
}

// Register records a listing's owner.
func (d *InMemoryListingDirectory) Register(listingID, ownerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.owners[listingID] = ownerID
}

// OwnerOf returns the owner of a listing.
func (d *InMemoryListingDirectory) OwnerOf(listingID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	owner, ok := d.owners[listingID]
	if !ok {
		return "", fmt.Errorf("listing %s: %w", listingID, models.ErrNotFound)
	}
	return owner, nil
}
