package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunarush/crashcore/internal/domain"
)

func TestMarkBroadcastingRecordsIntentBeforeSend(t *testing.T) {
	db := &execStub{tag: pgconn.NewCommandTag("UPDATE 1")}
	id := uuid.New()

	err := NewWithdrawalRepository().MarkBroadcasting(context.Background(), db, id,
		"0x9e1a4c6d1b2f3a4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4", 7)

	require.NoError(t, err)
	// The durable intent carries the signed hash and the assigned nonce, and
	// counts as an attempt.
	assert.Contains(t, db.args, string(domain.WithdrawalBroadcasting))
	assert.Contains(t, db.args, "0x9e1a4c6d1b2f3a4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4")
	assert.Contains(t, db.args, int64(7))
	assert.Contains(t, db.args, id)
	assert.Contains(t, db.sql, "attempts + 1")
}
