package services

import (
	"context"
	"strings"

	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
)

type LookupService struct {
	repo lookup.Repository
	tx   Transactor
}

func NewLookupService(repo lookup.Repository, tx Transactor) *LookupService {
	return &LookupService{repo: repo, tx: tx}
}

func (s *LookupService) List(ctx context.Context, kind lookup.Kind, query string) ([]*lookup.Lookup, error) {
	out, err := s.repo.List(ctx, &lookup.FindParams{Kind: kind, Query: strings.TrimSpace(query)})
	if err != nil {
		return nil, failWith(ctx, "list_lookups", err)
	}
	return out, nil
}

func (s *LookupService) GetByCode(ctx context.Context, kind lookup.Kind, code string) (*lookup.Lookup, error) {
	l, err := s.repo.GetByCode(ctx, kind, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, failWith(ctx, "get_lookup", err)
	}
	return l, nil
}

// Save inserts l or renames the row holding its code.
func (s *LookupService) Save(ctx context.Context, l *lookup.Lookup) error {
	l.Normalize()
	if err := l.Validate(); err != nil {
		return failWith(ctx, "save_lookup", err)
	}
	if err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		return s.repo.Upsert(txCtx, l)
	}); err != nil {
		return failWith(ctx, "save_lookup", err)
	}
	return nil
}

// ChangeCode rewrites the abbreviation of a lookup no proposal or
// investigator references yet.
func (s *LookupService) ChangeCode(ctx context.Context, kind lookup.Kind, id int64, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !lookup.ValidCode(code) {
		return failWith(ctx, "change_lookup_code", lookup.ErrInvalidCode)
	}
	if err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		return s.repo.UpdateCode(txCtx, kind, id, code)
	}); err != nil {
		return failWith(ctx, "change_lookup_code", err)
	}
	return nil
}
