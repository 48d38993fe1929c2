package model

import "time"

// Item represents a catalog item. The identifier is assigned by the store
// and immutable; UpdatedAt is refreshed on every successful mutation and is
// never earlier than CreatedAt.
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemCreate is the payload for creating an item.
type ItemCreate struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// ItemUpdate is the payload for a partial item update.
// A nil field leaves the stored value unchanged.
type ItemUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}
