package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/infrastructure/persistence/models"
	"github.com/gcir/gms/pkg/composables"
	"github.com/gcir/gms/pkg/repo"
)

const (
	proposalColumns = `p.code, p.year, p.serial, p.department_id, p.project_type_id, p.funding_agency_id,
		p.funding_agency, p.title, p.status, p.application_date, p.start_date, p.end_date,
		p.sanction_letter_number, p.final_sanctioned_cost, p.created_at, p.updated_at, p.deleted_at`

	selectProposalsQuery = `SELECT ` + proposalColumns + ` FROM proposals p`

	countProposalsQuery = `SELECT COUNT(*) FROM proposals p`

	insertProposalQuery = `INSERT INTO proposals (
		code, year, serial, department_id, project_type_id, funding_agency_id, funding_agency, title, status,
		application_date, start_date, end_date, sanction_letter_number, final_sanctioned_cost,
		created_at, updated_at, deleted_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	updateProposalQuery = `UPDATE proposals SET
		funding_agency_id = $2,
		funding_agency = $3,
		title = $4,
		status = $5,
		application_date = $6,
		start_date = $7,
		end_date = $8,
		sanction_letter_number = $9,
		final_sanctioned_cost = $10,
		updated_at = $11,
		deleted_at = $12
	WHERE code = $1`

	selectTeamsQuery = `SELECT pi.proposal_code, pi.investigator_id, pi.role, pi.position, i.name
		FROM proposal_investigators pi
		JOIN investigators i ON i.id = pi.investigator_id
		WHERE pi.proposal_code = ANY($1)
		ORDER BY pi.proposal_code, pi.position`

	deleteTeamQuery = `DELETE FROM proposal_investigators WHERE proposal_code = $1`

	insertTeamQuery = `INSERT INTO proposal_investigators (proposal_code, investigator_id, role, position)
		SELECT $1, m.investigator_id, m.role, m.position
		FROM unnest($2::text[], $3::text[], $4::int[]) AS m(investigator_id, role, position)`

	maxSerialQuery = `SELECT COALESCE(MAX(serial), 0) FROM proposals WHERE code LIKE $1`
)

type ProposalRepository struct{}

func NewProposalRepository() proposal.Repository {
	return &ProposalRepository{}
}

func (r *ProposalRepository) GetByCode(ctx context.Context, code string) (proposal.Proposal, error) {
	return r.getOne(ctx, code, "")
}

func (r *ProposalRepository) GetByCodeForUpdate(ctx context.Context, code string) (proposal.Proposal, error) {
	return r.getOne(ctx, code, " FOR UPDATE")
}

func (r *ProposalRepository) getOne(ctx context.Context, code, lock string) (proposal.Proposal, error) {
	proposals, err := r.queryProposals(ctx, selectProposalsQuery+" WHERE p.code = $1"+lock, code)
	if err != nil {
		return proposal.Proposal{}, err
	}
	if len(proposals) == 0 {
		return proposal.Proposal{}, proposal.ErrNotFound
	}
	return proposals[0], nil
}

func (r *ProposalRepository) Search(ctx context.Context, params *proposal.FindParams) ([]proposal.Proposal, error) {
	if params == nil {
		params = &proposal.FindParams{}
	}
	where, args := buildProposalFilters(params)
	query := selectProposalsQuery + " WHERE " + strings.Join(where, " AND ") +
		" ORDER BY p.created_at DESC, p.code DESC"
	if s := repo.FormatLimitOffset(params.Limit, params.Offset); s != "" {
		query += " " + s
	}
	return r.queryProposals(ctx, query, args...)
}

func (r *ProposalRepository) Count(ctx context.Context, params *proposal.FindParams) (int64, error) {
	if params == nil {
		params = &proposal.FindParams{}
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildProposalFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, countProposalsQuery+" WHERE "+strings.Join(where, " AND "), args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count proposals")
	}
	return count, nil
}

func (r *ProposalRepository) Create(ctx context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return proposal.Proposal{}, err
	}
	row := toDBProposal(p)
	if _, err := tx.Exec(ctx, insertProposalQuery,
		row.Code,
		row.Year,
		row.Serial,
		row.DepartmentID,
		row.ProjectTypeID,
		row.FundingAgencyID,
		row.FundingAgency,
		row.Title,
		row.Status,
		row.ApplicationDate,
		row.StartDate,
		row.EndDate,
		row.SanctionLetterNumber,
		row.FinalSanctionedCost,
		row.CreatedAt,
		row.UpdatedAt,
		row.DeletedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return proposal.Proposal{}, proposal.ErrCodeTaken
		}
		return proposal.Proposal{}, errors.Wrap(err, "insert proposal")
	}
	if err := r.insertTeam(ctx, tx, row.Code, p.Investigators()); err != nil {
		return proposal.Proposal{}, err
	}
	return r.GetByCode(ctx, row.Code)
}

func (r *ProposalRepository) Update(ctx context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return proposal.Proposal{}, err
	}
	row := toDBProposal(p)
	tag, err := tx.Exec(ctx, updateProposalQuery,
		row.Code,
		row.FundingAgencyID,
		row.FundingAgency,
		row.Title,
		row.Status,
		row.ApplicationDate,
		row.StartDate,
		row.EndDate,
		row.SanctionLetterNumber,
		row.FinalSanctionedCost,
		row.UpdatedAt,
		row.DeletedAt,
	)
	if err != nil {
		return proposal.Proposal{}, errors.Wrap(err, "update proposal")
	}
	if tag.RowsAffected() == 0 {
		return proposal.Proposal{}, proposal.ErrNotFound
	}
	if _, err := tx.Exec(ctx, deleteTeamQuery, row.Code); err != nil {
		return proposal.Proposal{}, errors.Wrap(err, "clear proposal team")
	}
	if err := r.insertTeam(ctx, tx, row.Code, p.Investigators()); err != nil {
		return proposal.Proposal{}, err
	}
	return r.GetByCode(ctx, row.Code)
}

func (r *ProposalRepository) MaxSerial(ctx context.Context, prefix string) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var serial int
	if err := tx.QueryRow(ctx, maxSerialQuery, repo.PrefixPattern(prefix)).Scan(&serial); err != nil {
		return 0, errors.Wrap(err, "max serial")
	}
	return serial, nil
}

func (r *ProposalRepository) insertTeam(ctx context.Context, tx repo.Tx, code string, team proposal.Team) error {
	if len(team) == 0 {
		return nil
	}
	ids := make([]string, len(team))
	roles := make([]string, len(team))
	positions := make([]int32, len(team))
	for i, m := range team {
		ids[i] = m.InvestigatorID
		roles[i] = string(m.Role)
		positions[i] = int32(i)
	}
	if _, err := tx.Exec(ctx, insertTeamQuery, code, ids, roles, positions); err != nil {
		if isForeignKeyViolation(err) {
			return proposal.InvalidField("investigators", "unknown investigator")
		}
		return errors.Wrap(err, "insert proposal team")
	}
	return nil
}

func (r *ProposalRepository) queryProposals(ctx context.Context, query string, args ...any) ([]proposal.Proposal, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query proposals")
	}
	var dbRows []models.Proposal
	for rows.Next() {
		var row models.Proposal
		if err := rows.Scan(
			&row.Code,
			&row.Year,
			&row.Serial,
			&row.DepartmentID,
			&row.ProjectTypeID,
			&row.FundingAgencyID,
			&row.FundingAgency,
			&row.Title,
			&row.Status,
			&row.ApplicationDate,
			&row.StartDate,
			&row.EndDate,
			&row.SanctionLetterNumber,
			&row.FinalSanctionedCost,
			&row.CreatedAt,
			&row.UpdatedAt,
			&row.DeletedAt,
		); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan proposal")
		}
		dbRows = append(dbRows, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(dbRows) == 0 {
		return nil, nil
	}

	teams, err := r.loadTeams(ctx, tx, dbRows)
	if err != nil {
		return nil, err
	}
	out := make([]proposal.Proposal, 0, len(dbRows))
	for _, row := range dbRows {
		p, err := toDomainProposal(row, teams[row.Code])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *ProposalRepository) loadTeams(ctx context.Context, tx repo.Tx, dbRows []models.Proposal) (map[string][]models.ProposalInvestigator, error) {
	codes := make([]string, len(dbRows))
	for i, row := range dbRows {
		codes[i] = row.Code
	}
	rows, err := tx.Query(ctx, selectTeamsQuery, codes)
	if err != nil {
		return nil, errors.Wrap(err, "query proposal teams")
	}
	defer rows.Close()

	teams := make(map[string][]models.ProposalInvestigator, len(codes))
	for rows.Next() {
		var m models.ProposalInvestigator
		if err := rows.Scan(&m.ProposalCode, &m.InvestigatorID, &m.Role, &m.Position, &m.Name); err != nil {
			return nil, errors.Wrap(err, "scan proposal team")
		}
		teams[m.ProposalCode] = append(teams[m.ProposalCode], m)
	}
	return teams, rows.Err()
}

func buildProposalFilters(params *proposal.FindParams) ([]string, []any) {
	where := []string{"TRUE"}
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if !params.IncludeDeleted {
		where = append(where, "p.deleted_at IS NULL")
	}
	if v := strings.TrimSpace(params.Code); v != "" {
		add("p.code ILIKE $%d", repo.ContainsPattern(v))
	}
	if v := strings.TrimSpace(params.Title); v != "" {
		add("p.title ILIKE $%d", repo.ContainsPattern(v))
	}
	if v := strings.TrimSpace(params.Agency); v != "" {
		add("p.funding_agency ILIKE $%d", repo.ContainsPattern(v))
	}
	if v := strings.TrimSpace(params.PIName); v != "" {
		add(`EXISTS (
			SELECT 1 FROM proposal_investigators pi
			JOIN investigators i ON i.id = pi.investigator_id
			WHERE pi.proposal_code = p.code AND pi.role = 'PI' AND i.name ILIKE $%d)`, repo.ContainsPattern(v))
	}
	if v := strings.TrimSpace(params.Department); v != "" {
		add("p.department_id = (SELECT d.id FROM departments d WHERE d.code = $%d)", strings.ToUpper(v))
	}
	if params.Status != "" {
		add("p.status = $%d", string(params.Status))
	}
	return where, args
}
