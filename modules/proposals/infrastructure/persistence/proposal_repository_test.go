package persistence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
)

func proposalRow(code string, status proposal.Status, at time.Time) []any {
	return []any{
		code, 2025, 1, int64(1), int64(2),
		pgtype.Int8{Int64: 3, Valid: true}, "NSF", "Soil moisture sensing", string(status),
		pgtype.Date{Time: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), Valid: true},
		pgtype.Date{}, pgtype.Date{},
		"", decimal.NullDecimal{}, at, at, pgtype.Timestamptz{},
	}
}

func TestProposalRepository_GetByCode_LoadsTeam(t *testing.T) {
	at := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	calls := 0
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			calls++
			switch calls {
			case 1:
				require.Contains(t, sql, "FROM proposals p WHERE p.code = $1")
				require.NotContains(t, sql, "FOR UPDATE")
				require.Equal(t, "G-2025-CS-IND-001", args[0])
				return &stubRows{data: [][]any{proposalRow("G-2025-CS-IND-001", proposal.StatusDraft, at)}}, nil
			default:
				require.Contains(t, sql, "FROM proposal_investigators pi")
				require.Equal(t, []string{"G-2025-CS-IND-001"}, args[0])
				return &stubRows{data: [][]any{
					{"G-2025-CS-IND-001", "G0001", "PI", 0, "Dr. Alice Smith"},
					{"G-2025-CS-IND-001", "G0002", "CoPI", 1, "Dr. Bob Johnson"},
				}}, nil
			}
		},
	}

	p, err := NewProposalRepository().GetByCode(txContext(tx), "G-2025-CS-IND-001")
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, "G-2025-CS-IND-001", p.Code().String())
	require.Equal(t, "CS", p.Code().Department)
	require.Equal(t, int64(3), p.FundingAgencyID())
	require.Equal(t, "2025-01-03", p.ApplicationDate().Format(proposal.DateLayout))
	require.True(t, p.StartDate().IsZero())
	require.Equal(t, "PI:G0001, CoPI:G0002", p.Investigators().String())
	pi, ok := p.Investigators().PI()
	require.True(t, ok)
	require.Equal(t, "Dr. Alice Smith", pi.Name)
	require.False(t, p.IsDeleted())
}

func TestProposalRepository_GetByCodeForUpdate_LocksRow(t *testing.T) {
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.True(t, strings.HasSuffix(sql, "FOR UPDATE"))
			return &stubRows{}, nil
		},
	}
	_, err := NewProposalRepository().GetByCodeForUpdate(txContext(tx), "G-2025-CS-IND-009")
	require.ErrorIs(t, err, proposal.ErrNotFound)
}

func TestProposalRepository_Search_BuildsFilters(t *testing.T) {
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "p.deleted_at IS NULL")
			require.Contains(t, sql, "p.code ILIKE $1")
			require.Contains(t, sql, "p.title ILIKE $2")
			require.Contains(t, sql, "p.funding_agency ILIKE $3")
			require.Contains(t, sql, "pi.role = 'PI' AND i.name ILIKE $4")
			require.Contains(t, sql, "d.code = $5")
			require.Contains(t, sql, "p.status = $6")
			require.Contains(t, sql, "LIMIT 10 OFFSET 20")
			require.Equal(t, []any{"%2025%", "%50\\%%", "%nsf%", "%alice%", "CS", "Approved"}, args)
			return &stubRows{}, nil
		},
	}

	out, err := NewProposalRepository().Search(txContext(tx), &proposal.FindParams{
		Code:       "2025",
		Title:      "50%",
		Agency:     "nsf",
		PIName:     "alice",
		Department: "cs",
		Status:     proposal.StatusApproved,
		Limit:      10,
		Offset:     20,
	})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestProposalRepository_Search_IncludeDeleted(t *testing.T) {
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.NotContains(t, sql, "deleted_at IS NULL")
			require.Empty(t, args)
			return &stubRows{}, nil
		},
	}
	_, err := NewProposalRepository().Search(txContext(tx), &proposal.FindParams{IncludeDeleted: true})
	require.NoError(t, err)
}

func TestProposalRepository_Create_MapsUniqueViolation(t *testing.T) {
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Contains(t, sql, "INSERT INTO proposals")
			require.Equal(t, "G-2025-CS-IND-001", args[0])
			require.Equal(t, 2025, args[1])
			require.Equal(t, 1, args[2])
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505", ConstraintName: "proposals_pkey"}
		},
	}

	p, err := proposal.New(
		proposal.Code{Year: 2025, Department: "CS", ProjectType: "IND", Serial: 1}, 1, 2,
		proposal.Fields{Title: "t", Investigators: proposal.Team{{InvestigatorID: "G0001", Role: proposal.RolePI}}},
		time.Now(),
	)
	require.NoError(t, err)

	_, err = NewProposalRepository().Create(txContext(tx), p)
	require.ErrorIs(t, err, proposal.ErrCodeTaken)
}

func TestProposalRepository_Create_WritesTeamInOrder(t *testing.T) {
	at := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	var teamArgs []any
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			if strings.Contains(sql, "proposal_investigators") {
				teamArgs = args
			}
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			if strings.Contains(sql, "FROM proposals p") {
				return &stubRows{data: [][]any{proposalRow("G-2025-CS-IND-001", proposal.StatusDraft, at)}}, nil
			}
			return &stubRows{}, nil
		},
	}

	p, err := proposal.New(
		proposal.Code{Year: 2025, Department: "CS", ProjectType: "IND", Serial: 1}, 1, 2,
		proposal.Fields{Title: "t", Investigators: proposal.Team{
			{InvestigatorID: "G0002", Role: proposal.RoleCoPI},
			{InvestigatorID: "G0001", Role: proposal.RolePI},
		}},
		at,
	)
	require.NoError(t, err)

	_, err = NewProposalRepository().Create(txContext(tx), p)
	require.NoError(t, err)
	require.Equal(t, []any{
		"G-2025-CS-IND-001",
		[]string{"G0002", "G0001"},
		[]string{"CoPI", "PI"},
		[]int32{0, 1},
	}, teamArgs)
}

func TestProposalRepository_Update_NotFound(t *testing.T) {
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Contains(t, sql, "UPDATE proposals SET")
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}
	p := proposal.Hydrate(proposal.HydrateParams{
		Code:   proposal.Code{Year: 2025, Department: "CS", ProjectType: "IND", Serial: 7},
		Title:  "t",
		Status: proposal.StatusDraft,
	})
	_, err := NewProposalRepository().Update(txContext(tx), p)
	require.ErrorIs(t, err, proposal.ErrNotFound)
}

func TestProposalRepository_MaxSerial_EscapesPrefix(t *testing.T) {
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "MAX(serial)")
			require.Equal(t, "G-2025-CS-IND-%", args[0])
			return valuesRow(4)
		},
	}
	n, err := NewProposalRepository().MaxSerial(txContext(tx), "G-2025-CS-IND-")
	require.NoError(t, err)
	require.Equal(t, 4, n)
}
