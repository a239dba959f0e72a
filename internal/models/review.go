package models

import "time"

// Review is mutual post-completion feedback. At most one review per
// (order, reviewer); reviewer and reviewee must be the order's buyer/seller
// pair in opposite roles.
type Review struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID    string    `json:"order_id" gorm:"index:idx_review_order_reviewer,unique;type:varchar(36)" validate:"required"`
	ReviewerID string    `json:"reviewer_id" gorm:"index:idx_review_order_reviewer,unique;type:varchar(36)" validate:"required"`
	RevieweeID string    `json:"reviewee_id" gorm:"type:varchar(36)" validate:"required"`
	Rating     int       `json:"rating" validate:"required,min=1,max=5"`
	Comment    string    `json:"comment,omitempty" validate:"omitempty,max=2000"`
	CreatedAt  time.Time `json:"created_at"`
}
