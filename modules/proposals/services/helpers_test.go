package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
	"github.com/gcir/gms/modules/proposals/infrastructure/persistence/inmem"
	"github.com/gcir/gms/modules/proposals/services"
	"github.com/gcir/gms/pkg/eventbus"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	store     *inmem.Store
	repos     services.Repositories
	tx        services.Transactor
	clock     *fakeClock
	bus       eventbus.EventBus
	proposals *services.ProposalService
	changelog *services.ChangeLogService
}

func repositoriesOf(store *inmem.Store) services.Repositories {
	return services.Repositories{
		Proposals:     store.Proposals(),
		Lookups:       store.Lookups(),
		Investigators: store.Investigators(),
		Counters:      store.Counters(),
		ChangeLog:     store.ChangeLog(),
	}
}

func newFixture(t *testing.T, mutate ...func(*services.Repositories)) *fixture {
	t.Helper()
	store := inmem.NewStore()
	seedStore(t, store)

	repos := repositoriesOf(store)
	for _, m := range mutate {
		m(&repos)
	}
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	bus := eventbus.NewEventPublisher(logger)
	tx := services.TransactorFunc(store.InTx)

	return &fixture{
		store:     store,
		repos:     repos,
		tx:        tx,
		clock:     clock,
		bus:       bus,
		proposals: services.NewProposalService(repos, tx, bus, services.WithClock(clock.Now)),
		changelog: services.NewChangeLogService(repos.ChangeLog, services.ReportSettings{Currency: "INR", Location: time.UTC},
			services.WithClock(clock.Now)),
	}
}

func seedStore(t *testing.T, store *inmem.Store) {
	t.Helper()
	ctx := context.Background()
	lookups := map[lookup.Kind][]string{
		lookup.KindDepartment:    {"CS", "EE", "ME"},
		lookup.KindProjectType:   {"IND", "GOV", "COL"},
		lookup.KindFundingAgency: {"NSF", "DOD"},
	}
	for _, kind := range lookup.Kinds {
		for _, code := range lookups[kind] {
			require.NoError(t, store.Lookups().Upsert(ctx, &lookup.Lookup{Kind: kind, Code: code, Name: code + " name"}))
		}
	}
	for _, inv := range []*investigator.Investigator{
		{ID: "G0001", Kind: investigator.KindInternal, Name: "Asha Rao"},
		{ID: "G0002", Kind: investigator.KindInternal, Name: "Vikram Menon"},
		{ID: "G0003", Kind: investigator.KindInternal, Name: "Meera Iyer"},
	} {
		require.NoError(t, store.Investigators().Create(ctx, inv))
	}
}

func createDTO(dept, typ string) *proposal.CreateDTO {
	return &proposal.CreateDTO{
		Year:        2025,
		Department:  dept,
		ProjectType: typ,
		Title:       "Low-power edge inference",
		Investigators: []proposal.MemberDocument{
			{InvestigatorID: "G0001", Role: "PI"},
			{InvestigatorID: "G0002", Role: "CoPI"},
		},
	}
}

func (f *fixture) create(t *testing.T, dept, typ string) proposal.Proposal {
	t.Helper()
	p, err := f.proposals.CreateProposal(context.Background(), createDTO(dept, typ), "alice")
	require.NoError(t, err)
	return p
}

func (f *fixture) transition(t *testing.T, code string, targets ...proposal.Status) {
	t.Helper()
	for _, target := range targets {
		_, err := f.proposals.TransitionStatus(context.Background(), code, target, proposal.TransitionFields{}, "bob")
		require.NoError(t, err)
	}
}

func (f *fixture) history(t *testing.T, code string) []*changelog.Entry {
	t.Helper()
	entries, err := f.changelog.History(context.Background(), code)
	require.NoError(t, err)
	return entries
}

func requireServiceError(t *testing.T, err error, code string) *services.ServiceError {
	t.Helper()
	var se *services.ServiceError
	require.ErrorAs(t, err, &se)
	require.Equal(t, code, se.Code, se.Error())
	return se
}

type failingChangeLog struct {
	changelog.Repository
	calls int
}

func (r *failingChangeLog) Append(context.Context, []*changelog.Entry) error {
	r.calls++
	return errors.New("disk full")
}

// conflictingProposals fails the first `conflicts` inserts with ErrCodeTaken.
type conflictingProposals struct {
	proposal.Repository
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (r *conflictingProposals) Create(ctx context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	r.mu.Lock()
	r.calls++
	fail := r.calls <= r.conflicts
	r.mu.Unlock()
	if fail {
		return proposal.Proposal{}, proposal.ErrCodeTaken
	}
	return r.Repository.Create(ctx, p)
}
