package inmem

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
)

type lookupRepository struct {
	store *Store
}

func (r *lookupRepository) GetByID(ctx context.Context, kind lookup.Kind, id int64) (*lookup.Lookup, error) {
	var out *lookup.Lookup
	err := r.store.view(ctx, func(st *state) error {
		rows, ok := st.lookups[kind]
		if !ok {
			return lookup.ErrInvalidKind
		}
		l, ok := rows[id]
		if !ok {
			return lookup.ErrNotFound
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *lookupRepository) GetByCode(ctx context.Context, kind lookup.Kind, code string) (*lookup.Lookup, error) {
	var out *lookup.Lookup
	err := r.store.view(ctx, func(st *state) error {
		rows, ok := st.lookups[kind]
		if !ok {
			return lookup.ErrInvalidKind
		}
		for _, l := range rows {
			if l.Code == code {
				l := l
				out = &l
				return nil
			}
		}
		return lookup.ErrNotFound
	})
	return out, err
}

func (r *lookupRepository) List(ctx context.Context, params *lookup.FindParams) ([]*lookup.Lookup, error) {
	if params == nil {
		return nil, lookup.ErrInvalidKind
	}
	var out []*lookup.Lookup
	err := r.store.view(ctx, func(st *state) error {
		rows, ok := st.lookups[params.Kind]
		if !ok {
			return lookup.ErrInvalidKind
		}
		for _, l := range rows {
			if params.Query != "" && !contains(l.Code, params.Query) && !contains(l.Name, params.Query) {
				continue
			}
			l := l
			out = append(out, &l)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

func (r *lookupRepository) Upsert(ctx context.Context, l *lookup.Lookup) error {
	return r.store.view(ctx, func(st *state) error {
		rows, ok := st.lookups[l.Kind]
		if !ok {
			return lookup.ErrInvalidKind
		}
		for id, existing := range rows {
			if existing.Code == l.Code {
				existing.Name = l.Name
				rows[id] = existing
				l.ID = id
				l.CreatedAt = existing.CreatedAt
				return nil
			}
		}
		st.lastLookupID++
		l.ID = st.lastLookupID
		rows[l.ID] = *l
		return nil
	})
}

func (r *lookupRepository) UpdateCode(ctx context.Context, kind lookup.Kind, id int64, code string) error {
	return r.store.view(ctx, func(st *state) error {
		rows, ok := st.lookups[kind]
		if !ok {
			return lookup.ErrInvalidKind
		}
		l, ok := rows[id]
		if !ok {
			return lookup.ErrNotFound
		}
		if st.lookupReferenced(kind, id) {
			return lookup.ErrCodeInUse
		}
		for otherID, other := range rows {
			if otherID != id && other.Code == code {
				return lookup.ErrInvalidCode
			}
		}
		l.Code = code
		rows[id] = l
		return nil
	})
}

func (st *state) lookupReferenced(kind lookup.Kind, id int64) bool {
	for _, p := range st.proposals {
		switch kind {
		case lookup.KindDepartment:
			if p.DepartmentID() == id {
				return true
			}
		case lookup.KindProjectType:
			if p.ProjectTypeID() == id {
				return true
			}
		case lookup.KindFundingAgency:
			if p.FundingAgencyID() == id {
				return true
			}
		}
	}
	if kind == lookup.KindDepartment {
		for _, inv := range st.investigators {
			if inv.DepartmentID == id {
				return true
			}
		}
	}
	return false
}

type investigatorRepository struct {
	store *Store
}

func (r *investigatorRepository) GetByID(ctx context.Context, id string) (*investigator.Investigator, error) {
	var out *investigator.Investigator
	err := r.store.view(ctx, func(st *state) error {
		inv, ok := st.investigators[id]
		if !ok {
			return investigator.ErrNotFound
		}
		out = &inv
		return nil
	})
	return out, err
}

func (r *investigatorRepository) GetByIDs(ctx context.Context, ids []string) ([]*investigator.Investigator, error) {
	var out []*investigator.Investigator
	err := r.store.view(ctx, func(st *state) error {
		for _, id := range ids {
			if inv, ok := st.investigators[id]; ok {
				inv := inv
				out = append(out, &inv)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *investigatorRepository) List(ctx context.Context, params *investigator.FindParams) ([]*investigator.Investigator, error) {
	if params == nil {
		params = &investigator.FindParams{}
	}
	var out []*investigator.Investigator
	err := r.store.view(ctx, func(st *state) error {
		for _, inv := range st.investigators {
			if params.Kind != "" && inv.Kind != params.Kind {
				continue
			}
			if q := params.Query; q != "" && !contains(inv.ID, q) && !contains(inv.Name, q) && !contains(inv.Email, q) {
				continue
			}
			inv := inv
			out = append(out, &inv)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, err
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, err
}

func (r *investigatorRepository) Create(ctx context.Context, inv *investigator.Investigator) error {
	return r.store.view(ctx, func(st *state) error {
		if _, exists := st.investigators[inv.ID]; exists {
			return investigator.ErrDuplicate
		}
		st.investigators[inv.ID] = *inv
		return nil
	})
}

func (r *investigatorRepository) Upsert(ctx context.Context, inv *investigator.Investigator) error {
	return r.store.view(ctx, func(st *state) error {
		if existing, ok := st.investigators[inv.ID]; ok && inv.CreatedAt.IsZero() {
			inv.CreatedAt = existing.CreatedAt
		}
		st.investigators[inv.ID] = *inv
		return nil
	})
}

func (r *investigatorRepository) MaxExternalSerial(ctx context.Context) (int, error) {
	max := 0
	err := r.store.view(ctx, func(st *state) error {
		for id, inv := range st.investigators {
			if inv.Kind != investigator.KindExternal || !strings.HasPrefix(id, investigator.ExternalPrefix) {
				continue
			}
			if n, err := strconv.Atoi(id[len(investigator.ExternalPrefix):]); err == nil && n > max {
				max = n
			}
		}
		return nil
	})
	return max, err
}

// CounterRepository implements sequence.Repository over the store.
type CounterRepository struct {
	store *Store
}

// Next must run inside InTx; the store mutex then serializes allocations.
func (r *CounterRepository) Next(ctx context.Context, prefix string, floor func(context.Context) (int, error)) (int, error) {
	last, err := r.current(ctx, prefix, floor)
	if err != nil {
		return 0, err
	}
	err = r.store.view(ctx, func(st *state) error {
		st.counters[prefix] = last + 1
		return nil
	})
	return last + 1, err
}

func (r *CounterRepository) Peek(ctx context.Context, prefix string, floor func(context.Context) (int, error)) (int, error) {
	last, err := r.current(ctx, prefix, floor)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// current reads the counter, falling back to floor outside the store lock.
func (r *CounterRepository) current(ctx context.Context, prefix string, floor func(context.Context) (int, error)) (int, error) {
	var last int
	var ok bool
	if err := r.store.view(ctx, func(st *state) error {
		last, ok = st.counters[prefix]
		return nil
	}); err != nil {
		return 0, err
	}
	if ok {
		return last, nil
	}
	return floor(ctx)
}

type changeLogRepository struct {
	store *Store
}

func (r *changeLogRepository) Append(ctx context.Context, entries []*changelog.Entry) error {
	return r.store.view(ctx, func(st *state) error {
		for _, e := range entries {
			st.lastEntryID++
			e.ID = st.lastEntryID
			st.changelog = append(st.changelog, *e)
		}
		return nil
	})
}

func (r *changeLogRepository) List(ctx context.Context, params *changelog.FindParams) ([]*changelog.Entry, error) {
	if params == nil {
		params = &changelog.FindParams{}
	}
	if !params.From.IsZero() && !params.To.IsZero() && params.To.Before(params.From) {
		return nil, changelog.ErrInvalidRange
	}
	var out []*changelog.Entry
	err := r.store.view(ctx, func(st *state) error {
		for _, e := range st.changelog {
			if !params.From.IsZero() && e.Timestamp.Before(params.From) {
				continue
			}
			if !params.To.IsZero() && e.Timestamp.After(params.To) {
				continue
			}
			if params.ProposalCode != "" && e.ProposalCode != params.ProposalCode {
				continue
			}
			e := e
			out = append(out, &e)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, err
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, err
}
