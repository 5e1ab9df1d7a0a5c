package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRepository inserts settlement events for the Kafka poller. Rows are
// written inside the settlement transaction.
type OutboxRepository struct{}

// NewOutboxRepository returns a pgx-backed outbox repository.
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

// OutboxDraft is an event staged for publication.
type OutboxDraft struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       json.RawMessage
}

func (r *OutboxRepository) Insert(ctx context.Context, tx pgx.Tx, d OutboxDraft) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO event_outbox (event_id, aggregate_type, aggregate_id, event_type, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		uuid.New(), d.AggregateType, d.AggregateID, d.EventType, d.Payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}
