package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
)

func TestChangeLogRepository_Append_FillsIDsInOrder(t *testing.T) {
	eventID := uuid.New()
	at := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	next := int64(40)
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "INSERT INTO proposal_change_log")
			require.Equal(t, eventID, args[0])
			next++
			return valuesRow(next)
		},
	}

	newTitle := "New"
	entries := []*changelog.Entry{
		{EventID: eventID, ProposalCode: "G-2025-CS-IND-001", ChangeType: changelog.ChangeModified, FieldName: "title", NewValue: &newTitle, Actor: "alice", Timestamp: at},
		{EventID: eventID, ProposalCode: "G-2025-CS-IND-001", ChangeType: changelog.ChangeModified, FieldName: "status", Actor: "alice", Timestamp: at},
	}
	require.NoError(t, NewChangeLogRepository().Append(txContext(tx), entries))
	require.Equal(t, int64(41), entries[0].ID)
	require.Equal(t, int64(42), entries[1].ID)
}

func TestChangeLogRepository_List_ClosedInterval(t *testing.T) {
	from := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 12, 23, 59, 59, 999999999, time.UTC)
	eventID := uuid.New()
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "changed_at >= $1")
			require.Contains(t, sql, "changed_at <= $2")
			require.Contains(t, sql, "ORDER BY changed_at, id")
			require.Equal(t, []any{from, to}, args)
			return &stubRows{data: [][]any{
				{int64(1), eventID, "G-2025-CS-IND-001", "created", "title", pgtype.Text{}, pgtype.Text{String: "T", Valid: true}, "system", from},
			}}, nil
		},
	}

	out, err := NewChangeLogRepository().List(txContext(tx), &changelog.FindParams{From: from, To: to})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Nil(t, out[0].OldValue)
	require.Equal(t, "T", *out[0].NewValue)
	require.Equal(t, "CREATED", out[0].Label())
}

func TestChangeLogRepository_List_RejectsInvertedRange(t *testing.T) {
	from := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	_, err := NewChangeLogRepository().List(txContext(&stubTx{}), &changelog.FindParams{From: from, To: from.Add(-time.Second)})
	require.ErrorIs(t, err, changelog.ErrInvalidRange)
}
