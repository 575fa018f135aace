package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
	"github.com/gcir/gms/modules/proposals/infrastructure/persistence/models"
	"github.com/gcir/gms/pkg/composables"
	"github.com/gcir/gms/pkg/repo"
)

var lookupTables = map[lookup.Kind]string{
	lookup.KindDepartment:    "departments",
	lookup.KindProjectType:   "project_types",
	lookup.KindFundingAgency: "funding_agencies",
}

type lookupRef struct {
	table  string
	column string
}

// lookupReferences lists the columns that pin a lookup code once set.
var lookupReferences = map[lookup.Kind][]lookupRef{
	lookup.KindDepartment:    {{"proposals", "department_id"}, {"investigators", "department_id"}},
	lookup.KindProjectType:   {{"proposals", "project_type_id"}},
	lookup.KindFundingAgency: {{"proposals", "funding_agency_id"}},
}

type LookupRepository struct{}

func NewLookupRepository() lookup.Repository {
	return &LookupRepository{}
}

func lookupTable(kind lookup.Kind) (string, error) {
	t, ok := lookupTables[kind]
	if !ok {
		return "", errors.Wrapf(lookup.ErrInvalidKind, "%q", kind)
	}
	return t, nil
}

func (r *LookupRepository) GetByID(ctx context.Context, kind lookup.Kind, id int64) (*lookup.Lookup, error) {
	return r.getOne(ctx, kind, "id = $1", id)
}

func (r *LookupRepository) GetByCode(ctx context.Context, kind lookup.Kind, code string) (*lookup.Lookup, error) {
	return r.getOne(ctx, kind, "code = $1", code)
}

func (r *LookupRepository) getOne(ctx context.Context, kind lookup.Kind, where string, arg any) (*lookup.Lookup, error) {
	table, err := lookupTable(kind)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var row models.Lookup
	err = tx.QueryRow(ctx,
		fmt.Sprintf("SELECT id, code, name, created_at FROM %s WHERE %s", table, where), arg,
	).Scan(&row.ID, &row.Code, &row.Name, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lookup.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get %s", kind)
	}
	return toDomainLookup(kind, row), nil
}

func (r *LookupRepository) List(ctx context.Context, params *lookup.FindParams) ([]*lookup.Lookup, error) {
	if params == nil {
		return nil, lookup.ErrInvalidKind
	}
	table, err := lookupTable(params.Kind)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT id, code, name, created_at FROM %s", table)
	var args []any
	if params.Query != "" {
		query += " WHERE code ILIKE $1 OR name ILIKE $1"
		args = append(args, repo.ContainsPattern(params.Query))
	}
	query += " ORDER BY code"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", params.Kind)
	}
	defer rows.Close()

	var out []*lookup.Lookup
	for rows.Next() {
		var row models.Lookup
		if err := rows.Scan(&row.ID, &row.Code, &row.Name, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, toDomainLookup(params.Kind, row))
	}
	return out, rows.Err()
}

func (r *LookupRepository) Upsert(ctx context.Context, l *lookup.Lookup) error {
	table, err := lookupTable(l.Kind)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (code, name) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, created_at`, table)
	if err := tx.QueryRow(ctx, query, l.Code, l.Name).Scan(&l.ID, &l.CreatedAt); err != nil {
		return errors.Wrapf(err, "upsert %s %s", l.Kind, l.Code)
	}
	return nil
}

func (r *LookupRepository) UpdateCode(ctx context.Context, kind lookup.Kind, id int64, code string) error {
	table, err := lookupTable(kind)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, ref := range lookupReferences[kind] {
		var referenced bool
		if err := tx.QueryRow(ctx,
			fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)", ref.table, ref.column), id,
		).Scan(&referenced); err != nil {
			return errors.Wrapf(err, "check %s references", kind)
		}
		if referenced {
			return lookup.ErrCodeInUse
		}
	}
	tag, err := tx.Exec(ctx, fmt.Sprintf("UPDATE %s SET code = $2 WHERE id = $1", table), id, code)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(lookup.ErrInvalidCode, "%s already exists", code)
		}
		return errors.Wrapf(err, "update %s code", kind)
	}
	if tag.RowsAffected() == 0 {
		return lookup.ErrNotFound
	}
	return nil
}
