// Package inmem is a transactional in-memory store behind the proposals
// repositories. A transaction works on a private copy of the state and
// publishes it on success; the store mutex is held for the whole
// transaction, so writers serialize.
package inmem

import (
	"context"
	"sync"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
	"github.com/gcir/gms/modules/proposals/domain/entities/sequence"
)

var _ sequence.Repository = (*CounterRepository)(nil)

type state struct {
	proposals     map[string]proposal.Proposal
	lookups       map[lookup.Kind]map[int64]lookup.Lookup
	investigators map[string]investigator.Investigator
	counters      map[string]int
	changelog     []changelog.Entry
	lastLookupID  int64
	lastEntryID   int64
}

func newState() *state {
	s := &state{
		proposals:     map[string]proposal.Proposal{},
		lookups:       map[lookup.Kind]map[int64]lookup.Lookup{},
		investigators: map[string]investigator.Investigator{},
		counters:      map[string]int{},
	}
	for _, k := range lookup.Kinds {
		s.lookups[k] = map[int64]lookup.Lookup{}
	}
	return s
}

func (s *state) clone() *state {
	out := &state{
		proposals:     make(map[string]proposal.Proposal, len(s.proposals)),
		lookups:       make(map[lookup.Kind]map[int64]lookup.Lookup, len(s.lookups)),
		investigators: make(map[string]investigator.Investigator, len(s.investigators)),
		counters:      make(map[string]int, len(s.counters)),
		changelog:     make([]changelog.Entry, len(s.changelog)),
		lastLookupID:  s.lastLookupID,
		lastEntryID:   s.lastEntryID,
	}
	for k, v := range s.proposals {
		out.proposals[k] = v
	}
	for kind, rows := range s.lookups {
		m := make(map[int64]lookup.Lookup, len(rows))
		for id, l := range rows {
			m[id] = l
		}
		out.lookups[kind] = m
	}
	for k, v := range s.investigators {
		out.investigators[k] = v
	}
	for k, v := range s.counters {
		out.counters[k] = v
	}
	copy(out.changelog, s.changelog)
	return out
}

type txKey struct{}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// InTx runs fn against a working copy of the store and commits it when fn
// succeeds. Nested calls join the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, work)); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) view(ctx context.Context, fn func(*state) error) error {
	if st, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) Proposals() proposal.Repository {
	return &proposalRepository{store: s}
}

func (s *Store) Lookups() lookup.Repository {
	return &lookupRepository{store: s}
}

func (s *Store) Investigators() investigator.Repository {
	return &investigatorRepository{store: s}
}

func (s *Store) Counters() *CounterRepository {
	return &CounterRepository{store: s}
}

func (s *Store) ChangeLog() changelog.Repository {
	return &changeLogRepository{store: s}
}
