package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunarush/crashcore/internal/domain"
)

// execStub satisfies DBTX for statements that do not read rows back.
type execStub struct {
	sql  string
	args []any
	tag  pgconn.CommandTag
	err  error
}

func (s *execStub) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.sql = sql
	s.args = args
	return s.tag, s.err
}

func (s *execStub) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (s *execStub) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func TestMarkRunningRecordsTransition(t *testing.T) {
	db := &execStub{tag: pgconn.NewCommandTag("UPDATE 1")}

	err := NewRoundRepository().MarkRunning(context.Background(), db, "r-1")

	require.NoError(t, err)
	assert.Contains(t, db.args, string(domain.RoundRunning))
	assert.Contains(t, db.args, string(domain.RoundBetting))
	assert.Contains(t, db.args, "r-1")
}

func TestMarkRunningRequiresBettingRow(t *testing.T) {
	// A settled or missing round must never be flipped back to running.
	db := &execStub{tag: pgconn.NewCommandTag("UPDATE 0")}

	err := NewRoundRepository().MarkRunning(context.Background(), db, "r-1")

	assert.Error(t, err)
}
