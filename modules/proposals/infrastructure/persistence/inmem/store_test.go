package inmem

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.InTx(ctx, func(ctx context.Context) error {
		for _, l := range []*lookup.Lookup{
			{Kind: lookup.KindDepartment, Code: "CS", Name: "Computer Science"},
			{Kind: lookup.KindProjectType, Code: "IND", Name: "Individual Research"},
		} {
			if err := s.Lookups().Upsert(ctx, l); err != nil {
				return err
			}
		}
		return s.Investigators().Upsert(ctx, &investigator.Investigator{ID: "G0001", Kind: investigator.KindInternal, Name: "Dr. Alice Smith", DepartmentID: 1})
	}))
	return s
}

func draft(t *testing.T, serial int) proposal.Proposal {
	t.Helper()
	p, err := proposal.New(
		proposal.Code{Year: 2025, Department: "CS", ProjectType: "IND", Serial: serial}, 1, 2,
		proposal.Fields{Title: "Sensing", Investigators: proposal.Team{{InvestigatorID: "G0001", Role: proposal.RolePI}}},
		time.Date(2025, 1, 6, 9, 0, serial, 0, time.UTC),
	)
	require.NoError(t, err)
	return p
}

func TestStore_InTx_RollsBackOnError(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.Proposals().Create(ctx, draft(t, 1)); err != nil {
			return err
		}
		if _, err := s.Counters().Next(ctx, "G-2025-CS-IND-", func(context.Context) (int, error) { return 0, nil }); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Proposals().GetByCode(ctx, "G-2025-CS-IND-001")
	require.ErrorIs(t, err, proposal.ErrNotFound)
	n, err := s.Counters().Peek(ctx, "G-2025-CS-IND-", func(context.Context) (int, error) { return 0, nil })
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestStore_InTx_NestedJoinsOuter(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	require.NoError(t, s.InTx(ctx, func(ctx context.Context) error {
		return s.InTx(ctx, func(ctx context.Context) error {
			_, err := s.Proposals().Create(ctx, draft(t, 1))
			return err
		})
	}))
	p, err := s.Proposals().GetByCode(ctx, "G-2025-CS-IND-001")
	require.NoError(t, err)
	pi, _ := p.Investigators().PI()
	require.Equal(t, "Dr. Alice Smith", pi.Name)
}

func TestStore_Create_RejectsTakenCodeAndUnknownInvestigator(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	_, err := s.Proposals().Create(ctx, draft(t, 1))
	require.NoError(t, err)
	_, err = s.Proposals().Create(ctx, draft(t, 1))
	require.ErrorIs(t, err, proposal.ErrCodeTaken)

	p, err := proposal.New(proposal.Code{Year: 2025, Department: "CS", ProjectType: "IND", Serial: 2}, 1, 2,
		proposal.Fields{Title: "x", Investigators: proposal.Team{{InvestigatorID: "G9999", Role: proposal.RolePI}}}, time.Now())
	require.NoError(t, err)
	_, err = s.Proposals().Create(ctx, p)
	require.ErrorIs(t, err, proposal.ErrInvalidField)
}

func TestStore_Counters_ConcurrentNextIsGapFree(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	got := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.InTx(ctx, func(ctx context.Context) error {
				serial, err := s.Counters().Next(ctx, "G-2025-CS-IND-", func(ctx context.Context) (int, error) {
					return s.Proposals().MaxSerial(ctx, "G-2025-CS-IND-")
				})
				if err != nil {
					return err
				}
				got <- serial
				return nil
			})
		}()
	}
	wg.Wait()
	close(got)

	seen := map[int]bool{}
	for serial := range got {
		require.False(t, seen[serial], "serial %d issued twice", serial)
		seen[serial] = true
	}
	for i := 1; i <= n; i++ {
		require.True(t, seen[i], "serial %d missing", i)
	}
}

func TestStore_MaxSerialSeedsCounter(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	_, err := s.Proposals().Create(ctx, draft(t, 7))
	require.NoError(t, err)

	n, err := s.Counters().Peek(ctx, "G-2025-CS-IND-", func(ctx context.Context) (int, error) {
		return s.Proposals().MaxSerial(ctx, "G-2025-CS-IND-")
	})
	require.NoError(t, err)
	require.Equal(t, 8, n)
}

func TestStore_Search(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := s.Proposals().Create(ctx, draft(t, i))
		require.NoError(t, err)
	}
	deleted := draft(t, 2).MarkDeleted(time.Now())
	_, err := s.Proposals().Update(ctx, deleted)
	require.NoError(t, err)

	out, err := s.Proposals().Search(ctx, &proposal.FindParams{PIName: "alice"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "G-2025-CS-IND-003", out[0].Code().String())

	n, err := s.Proposals().Count(ctx, &proposal.FindParams{IncludeDeleted: true, Department: "cs"})
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	out, err = s.Proposals().Search(ctx, &proposal.FindParams{Status: proposal.StatusApproved})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestStore_ChangeLog_ClosedIntervalAscending(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	entries := []*changelog.Entry{
		{ProposalCode: "A", FieldName: "title", Timestamp: base.Add(2 * time.Hour)},
		{ProposalCode: "A", FieldName: "status", Timestamp: base},
		{ProposalCode: "B", FieldName: "title", Timestamp: base.Add(-time.Second)},
		{ProposalCode: "B", FieldName: "status", Timestamp: base.Add(2 * time.Hour)},
	}
	require.NoError(t, s.ChangeLog().Append(ctx, entries))

	out, err := s.ChangeLog().List(ctx, &changelog.FindParams{From: base, To: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "status", out[0].FieldName)
	require.Equal(t, int64(1), out[1].ID)
	require.Equal(t, int64(4), out[2].ID)
}

func TestStore_Lookups_CodeImmutableOnceReferenced(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	dept, err := s.Lookups().GetByCode(ctx, lookup.KindDepartment, "CS")
	require.NoError(t, err)

	require.ErrorIs(t, s.Lookups().UpdateCode(ctx, lookup.KindDepartment, dept.ID, "CSE"), lookup.ErrCodeInUse)

	pt, err := s.Lookups().GetByCode(ctx, lookup.KindProjectType, "IND")
	require.NoError(t, err)
	require.NoError(t, s.Lookups().UpdateCode(ctx, lookup.KindProjectType, pt.ID, "INDV"))
}

func TestStore_Investigators_MaxExternalSerial(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	require.NoError(t, s.Investigators().Create(ctx, &investigator.Investigator{ID: "E0003", Kind: investigator.KindExternal, Name: "x"}))
	require.ErrorIs(t, s.Investigators().Create(ctx, &investigator.Investigator{ID: "E0003", Kind: investigator.KindExternal, Name: "y"}), investigator.ErrDuplicate)
	n, err := s.Investigators().MaxExternalSerial(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}
