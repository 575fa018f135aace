package outbox

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type stubExecer struct {
	calls []execCall
	rows  []int64
	err   error
}

func (s *stubExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, execCall{sql: sql, args: args})
	if s.err != nil {
		return pgconn.CommandTag{}, s.err
	}
	n := s.rows[len(s.calls)-1]
	return pgconn.NewCommandTag("DELETE " + strconv.FormatInt(n, 10)), nil
}

func TestCleaner_PrunesPublishedAndDead(t *testing.T) {
	db := &stubExecer{rows: []int64{3, 2}}
	c, err := newCleaner(db, pgx.Identifier{"proposal_outbox"}, CleanerOptions{
		Enabled:               true,
		Retention:             24 * time.Hour,
		DeadRetention:         72 * time.Hour,
		DeadAttemptsThreshold: 25,
	})
	require.NoError(t, err)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	removed, err := c.clean(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 5, removed)

	require.Len(t, db.calls, 2)
	assert.Contains(t, db.calls[0].sql, `DELETE FROM "proposal_outbox" WHERE published_at IS NOT NULL`)
	assert.Equal(t, []any{now.Add(-24 * time.Hour)}, db.calls[0].args)
	assert.Equal(t, []any{25, now.Add(-72 * time.Hour)}, db.calls[1].args)
}

func TestCleaner_SkipsDeadWithoutRetention(t *testing.T) {
	db := &stubExecer{rows: []int64{0}}
	c, err := newCleaner(db, pgx.Identifier{"proposal_outbox"}, CleanerOptions{Enabled: true})
	require.NoError(t, err)

	_, err = c.clean(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Len(t, db.calls, 1)
}

func TestCleaner_WrapsErrors(t *testing.T) {
	db := &stubExecer{err: errors.New("conn reset")}
	c, err := newCleaner(db, pgx.Identifier{"proposal_outbox"}, CleanerOptions{Enabled: true})
	require.NoError(t, err)

	_, err = c.clean(context.Background(), time.Now())
	require.ErrorContains(t, err, "delete published: conn reset")
}

func TestNewCleaner_Validation(t *testing.T) {
	_, err := NewCleaner(nil, pgx.Identifier{"proposal_outbox"}, CleanerOptions{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = newCleaner(&stubExecer{}, nil, CleanerOptions{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = newCleaner(&stubExecer{}, pgx.Identifier{"proposal_outbox"}, CleanerOptions{DeadRetention: time.Hour})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
