package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"battbot_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository backed by PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// New creates a new conversation state repository.
func New(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) GetThreadID(ctx context.Context, conversationID, provider string) (string, error) {
	query := `
		SELECT thread_id
		FROM thread_mappings
		WHERE conversation_id = $1 AND provider = $2`

	var threadID string
	err := r.pool.QueryRow(ctx, query, conversationID, provider).Scan(&threadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get thread id: %w", err)
	}
	return threadID, nil
}

func (r *PostgresRepository) StoreThreadID(ctx context.Context, conversationID, provider, threadID string) error {
	query := `
		INSERT INTO thread_mappings (conversation_id, provider, thread_id)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT uq_conversation_provider DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, conversationID, provider, threadID); err != nil {
		return fmt.Errorf("store thread id: %w", err)
	}
	return nil
}

func (r *PostgresRepository) IsPaused(ctx context.Context, conversationID string) (bool, error) {
	pause, err := r.GetPause(ctx, conversationID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check pause: %w", err)
	}
	return pause.ActiveAt(time.Now().UTC()), nil
}

func (r *PostgresRepository) PauseFor(ctx context.Context, conversationID string, duration time.Duration) error {
	requested := time.Now().UTC().Add(duration)
	deadline := requested
	if current, err := r.GetPause(ctx, conversationID); err == nil {
		deadline = ExtendDeadline(current.PausedUntil, requested)
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return fmt.Errorf("pause conversation: %w", err)
	}

	// GREATEST keeps the forward-only rule under concurrent writers.
	query := `
		INSERT INTO conversation_pauses (conversation_id, paused_until)
		VALUES ($1, $2)
		ON CONFLICT (conversation_id) DO UPDATE
		SET paused_until = GREATEST(conversation_pauses.paused_until, EXCLUDED.paused_until)`

	if _, err := r.pool.Exec(ctx, query, conversationID, deadline); err != nil {
		return fmt.Errorf("pause conversation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Unpause(ctx context.Context, conversationID string) error {
	query := `DELETE FROM conversation_pauses WHERE conversation_id = $1`

	if _, err := r.pool.Exec(ctx, query, conversationID); err != nil {
		return fmt.Errorf("unpause conversation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetPause(ctx context.Context, conversationID string) (*ConversationPause, error) {
	query := `
		SELECT conversation_id, paused_until
		FROM conversation_pauses
		WHERE conversation_id = $1`

	var pause ConversationPause
	err := r.pool.QueryRow(ctx, query, conversationID).Scan(&pause.ConversationID, &pause.PausedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("pause not found")
		}
		return nil, fmt.Errorf("get pause: %w", err)
	}
	return &pause, nil
}
