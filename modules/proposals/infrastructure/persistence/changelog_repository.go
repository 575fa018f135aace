package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
	"github.com/gcir/gms/modules/proposals/infrastructure/persistence/models"
	"github.com/gcir/gms/pkg/composables"
	"github.com/gcir/gms/pkg/repo"
)

const (
	insertChangeLogQuery = `INSERT INTO proposal_change_log
		(event_id, proposal_code, change_type, field_name, old_value, new_value, actor, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	selectChangeLogQuery = `SELECT id, event_id, proposal_code, change_type, field_name, old_value, new_value, actor, changed_at
		FROM proposal_change_log`
)

type ChangeLogRepository struct{}

func NewChangeLogRepository() changelog.Repository {
	return &ChangeLogRepository{}
}

func (r *ChangeLogRepository) Append(ctx context.Context, entries []*changelog.Entry) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		row := toDBChangeLogEntry(e)
		if err := tx.QueryRow(ctx, insertChangeLogQuery,
			row.EventID,
			row.ProposalCode,
			row.ChangeType,
			row.FieldName,
			row.OldValue,
			row.NewValue,
			row.Actor,
			row.ChangedAt,
		).Scan(&e.ID); err != nil {
			return errors.Wrapf(err, "append changelog %s.%s", e.ProposalCode, e.FieldName)
		}
	}
	return nil
}

func (r *ChangeLogRepository) List(ctx context.Context, params *changelog.FindParams) ([]*changelog.Entry, error) {
	if params == nil {
		params = &changelog.FindParams{}
	}
	if !params.From.IsZero() && !params.To.IsZero() && params.To.Before(params.From) {
		return nil, changelog.ErrInvalidRange
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"TRUE"}
	var args []any
	if !params.From.IsZero() {
		args = append(args, params.From)
		where = append(where, fmt.Sprintf("changed_at >= $%d", len(args)))
	}
	if !params.To.IsZero() {
		args = append(args, params.To)
		where = append(where, fmt.Sprintf("changed_at <= $%d", len(args)))
	}
	if params.ProposalCode != "" {
		args = append(args, params.ProposalCode)
		where = append(where, fmt.Sprintf("proposal_code = $%d", len(args)))
	}
	query := selectChangeLogQuery + " WHERE " + strings.Join(where, " AND ") + " ORDER BY changed_at, id"
	if s := repo.FormatLimitOffset(params.Limit, params.Offset); s != "" {
		query += " " + s
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query changelog")
	}
	defer rows.Close()

	var out []*changelog.Entry
	for rows.Next() {
		var row models.ChangeLogEntry
		if err := rows.Scan(
			&row.ID,
			&row.EventID,
			&row.ProposalCode,
			&row.ChangeType,
			&row.FieldName,
			&row.OldValue,
			&row.NewValue,
			&row.Actor,
			&row.ChangedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan changelog")
		}
		out = append(out, toDomainChangeLogEntry(row))
	}
	return out, rows.Err()
}
