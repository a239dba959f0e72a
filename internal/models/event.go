package models

import "time"

// StatusEvent is the domain event emitted once per successful status
// mutation, consumed by the external notification relay. Delivery is
// best-effort; the engine never blocks on it.
type StatusEvent struct {
	Entity     string    `json:"entity"` // offer, order, dispute, review
	ID         string    `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor"`
	At         time.Time `json:"at"`
}
