package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/infrastructure/persistence/models"
	"github.com/gcir/gms/pkg/composables"
	"github.com/gcir/gms/pkg/repo"
)

const (
	selectInvestigatorsQuery = `SELECT id, kind, name, email, department_id, organization, country, designation, created_at
		FROM investigators`

	insertInvestigatorQuery = `INSERT INTO investigators (id, kind, name, email, department_id, organization, country, designation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	upsertInvestigatorQuery = insertInvestigatorQuery + `
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			department_id = EXCLUDED.department_id,
			organization = EXCLUDED.organization,
			country = EXCLUDED.country,
			designation = EXCLUDED.designation`

	maxExternalSerialQuery = `SELECT COALESCE(MAX(substring(id FROM 2)::int), 0)
		FROM investigators WHERE kind = 'external' AND id ~ '^E[0-9]+$'`
)

type InvestigatorRepository struct{}

func NewInvestigatorRepository() investigator.Repository {
	return &InvestigatorRepository{}
}

func (r *InvestigatorRepository) GetByID(ctx context.Context, id string) (*investigator.Investigator, error) {
	out, err := r.query(ctx, selectInvestigatorsQuery+" WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, investigator.ErrNotFound
	}
	return out[0], nil
}

func (r *InvestigatorRepository) GetByIDs(ctx context.Context, ids []string) ([]*investigator.Investigator, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, selectInvestigatorsQuery+" WHERE id = ANY($1) ORDER BY id", ids)
}

func (r *InvestigatorRepository) List(ctx context.Context, params *investigator.FindParams) ([]*investigator.Investigator, error) {
	if params == nil {
		params = &investigator.FindParams{}
	}
	where := []string{"TRUE"}
	var args []any
	if q := strings.TrimSpace(params.Query); q != "" {
		args = append(args, repo.ContainsPattern(q))
		where = append(where, fmt.Sprintf("(id ILIKE $%[1]d OR name ILIKE $%[1]d OR email ILIKE $%[1]d)", len(args)))
	}
	if params.Kind != "" {
		args = append(args, string(params.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	query := selectInvestigatorsQuery + " WHERE " + strings.Join(where, " AND ") + " ORDER BY name, id"
	if s := repo.FormatLimitOffset(params.Limit, params.Offset); s != "" {
		query += " " + s
	}
	return r.query(ctx, query, args...)
}

func (r *InvestigatorRepository) Create(ctx context.Context, inv *investigator.Investigator) error {
	if err := r.exec(ctx, insertInvestigatorQuery, inv); err != nil {
		if isUniqueViolation(err) {
			return investigator.ErrDuplicate
		}
		return errors.Wrapf(err, "create investigator %s", inv.ID)
	}
	return nil
}

func (r *InvestigatorRepository) Upsert(ctx context.Context, inv *investigator.Investigator) error {
	if err := r.exec(ctx, upsertInvestigatorQuery, inv); err != nil {
		return errors.Wrapf(err, "upsert investigator %s", inv.ID)
	}
	return nil
}

func (r *InvestigatorRepository) MaxExternalSerial(ctx context.Context) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var serial int
	if err := tx.QueryRow(ctx, maxExternalSerialQuery).Scan(&serial); err != nil {
		return 0, errors.Wrap(err, "max external serial")
	}
	return serial, nil
}

func (r *InvestigatorRepository) exec(ctx context.Context, query string, inv *investigator.Investigator) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row := toDBInvestigator(inv)
	_, err = tx.Exec(ctx, query,
		row.ID,
		row.Kind,
		row.Name,
		row.Email,
		row.DepartmentID,
		row.Organization,
		row.Country,
		row.Designation,
		row.CreatedAt,
	)
	return err
}

func (r *InvestigatorRepository) query(ctx context.Context, query string, args ...any) ([]*investigator.Investigator, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query investigators")
	}
	defer rows.Close()

	var out []*investigator.Investigator
	for rows.Next() {
		var row models.Investigator
		if err := rows.Scan(
			&row.ID,
			&row.Kind,
			&row.Name,
			&row.Email,
			&row.DepartmentID,
			&row.Organization,
			&row.Country,
			&row.Designation,
			&row.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan investigator")
		}
		out = append(out, toDomainInvestigator(row))
	}
	return out, rows.Err()
}
