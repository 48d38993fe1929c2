package model

import "time"

// Note represents a free-form note. Unlike Item it carries no update
// timestamp; CreatedAt is set once by the store.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NoteCreate is the payload for creating a note.
type NoteCreate struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NoteUpdate is the payload for a partial note update.
type NoteUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}
