// Package repository provides data access for conversation state: the
// provider thread mappings and the human-takeover pauses.
package repository

import (
	"context"
	"time"
)

// ThreadMapping links a conversation to a provider-side thread. Rows are
// append-only: written once per (conversation, provider) pair, never updated.
type ThreadMapping struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversationId"`
	Provider       string    `json:"provider"`
	ThreadID       string    `json:"threadId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationPause suppresses automated replies for one conversation until
// the stored instant passes.
type ConversationPause struct {
	ConversationID string    `json:"conversationId"`
	PausedUntil    time.Time `json:"pausedUntil"`
}

// ActiveAt reports whether the pause suppresses replies at the given instant.
// The pause ends exactly at PausedUntil.
func (p *ConversationPause) ActiveAt(now time.Time) bool {
	return p != nil && p.PausedUntil.After(now)
}

// ExtendDeadline returns the pause deadline to store given the current one
// and a newly requested one. The deadline only moves forward: a shorter
// pause never shortens a longer one already in place.
func ExtendDeadline(current, requested time.Time) time.Time {
	if requested.After(current) {
		return requested
	}
	return current
}

// Repository defines data access for conversation state.
type Repository interface {
	// GetThreadID returns the provider thread id for a conversation, or an
	// empty string when no mapping exists yet.
	GetThreadID(ctx context.Context, conversationID, provider string) (string, error)
	// StoreThreadID records a new mapping. An existing mapping for the same
	// (conversation, provider) pair is kept untouched.
	StoreThreadID(ctx context.Context, conversationID, provider, threadID string) error

	// IsPaused reports whether the conversation has an active pause.
	IsPaused(ctx context.Context, conversationID string) (bool, error)
	// PauseFor upserts a pause ending at now + duration. A shorter pause never
	// shortens a longer one already in place.
	PauseFor(ctx context.Context, conversationID string, duration time.Duration) error
	// Unpause removes the pause row, if any.
	Unpause(ctx context.Context, conversationID string) error
	// GetPause returns the pause row for a conversation.
	GetPause(ctx context.Context, conversationID string) (*ConversationPause, error)
}
