package journal

import (
	"context"
	"time"
)

// Entry records one generated passage and how it was produced.
type Entry struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id,omitempty"`
	UserName    string    `json:"user_name,omitempty"`
	Language    string    `json:"language"`
	Level       string    `json:"level"`
	Module      string    `json:"module,omitempty"`
	Tier        string    `json:"tier"`
	Model       string    `json:"model,omitempty"`
	Prompt      string    `json:"prompt"`
	Text        string    `json:"text"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store archives generated passages. It is never read back into a
// conversation; sessions live in the session store.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}
