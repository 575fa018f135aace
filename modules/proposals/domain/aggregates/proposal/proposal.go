package proposal

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and changelog format of calendar dates.
const DateLayout = "2006-01-02"

// Sanctioned costs are stored as NUMERIC(14, 2).
const (
	CostScale         = 2
	CostIntegerDigits = 12
)

var maxCost = decimal.New(1, CostIntegerDigits)

// Proposal is a grant proposal keyed by its GCIR code. Values are
// immutable; every mutator returns a modified copy.
type Proposal struct {
	code                 Code
	title                string
	departmentID         int64
	projectTypeID        int64
	fundingAgencyID      int64
	fundingAgency        string
	applicationDate      time.Time
	startDate            time.Time
	endDate              time.Time
	status               Status
	sanctionLetterNumber string
	finalSanctionedCost  decimal.NullDecimal
	investigators        Team
	createdAt            time.Time
	updatedAt            time.Time
	deletedAt            time.Time
}

type Fields struct {
	Title           string
	FundingAgencyID int64
	FundingAgency   string
	ApplicationDate time.Time
	StartDate       time.Time
	EndDate         time.Time
	Investigators   Team
}

// New builds a Draft proposal for an allocated code.
func New(code Code, departmentID, projectTypeID int64, f Fields, at time.Time) (Proposal, error) {
	p := Proposal{
		code:            code,
		departmentID:    departmentID,
		projectTypeID:   projectTypeID,
		title:           strings.TrimSpace(f.Title),
		fundingAgencyID: f.FundingAgencyID,
		fundingAgency:   strings.TrimSpace(f.FundingAgency),
		applicationDate: Date(f.ApplicationDate),
		startDate:       Date(f.StartDate),
		endDate:         Date(f.EndDate),
		status:          StatusDraft,
		investigators:   f.Investigators.clone(),
		createdAt:       at,
		updatedAt:       at,
	}
	if err := p.Validate(); err != nil {
		return Proposal{}, err
	}
	return p, nil
}

type HydrateParams struct {
	Code                 Code
	Title                string
	DepartmentID         int64
	ProjectTypeID        int64
	FundingAgencyID      int64
	FundingAgency        string
	ApplicationDate      time.Time
	StartDate            time.Time
	EndDate              time.Time
	Status               Status
	SanctionLetterNumber string
	FinalSanctionedCost  decimal.NullDecimal
	Investigators        Team
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            time.Time
}

// Hydrate rebuilds a stored proposal without validation.
func Hydrate(h HydrateParams) Proposal {
	return Proposal{
		code:                 h.Code,
		title:                h.Title,
		departmentID:         h.DepartmentID,
		projectTypeID:        h.ProjectTypeID,
		fundingAgencyID:      h.FundingAgencyID,
		fundingAgency:        h.FundingAgency,
		applicationDate:      Date(h.ApplicationDate),
		startDate:            Date(h.StartDate),
		endDate:              Date(h.EndDate),
		status:               h.Status,
		sanctionLetterNumber: h.SanctionLetterNumber,
		finalSanctionedCost:  h.FinalSanctionedCost,
		investigators:        h.Investigators.clone(),
		createdAt:            h.CreatedAt,
		updatedAt:            h.UpdatedAt,
		deletedAt:            h.DeletedAt,
	}
}

func (p Proposal) Code() Code                               { return p.code }
func (p Proposal) Title() string                            { return p.title }
func (p Proposal) DepartmentID() int64                      { return p.departmentID }
func (p Proposal) ProjectTypeID() int64                     { return p.projectTypeID }
func (p Proposal) FundingAgencyID() int64                   { return p.fundingAgencyID }
func (p Proposal) FundingAgency() string                    { return p.fundingAgency }
func (p Proposal) ApplicationDate() time.Time               { return p.applicationDate }
func (p Proposal) StartDate() time.Time                     { return p.startDate }
func (p Proposal) EndDate() time.Time                       { return p.endDate }
func (p Proposal) Status() Status                           { return p.status }
func (p Proposal) SanctionLetterNumber() string             { return p.sanctionLetterNumber }
func (p Proposal) FinalSanctionedCost() decimal.NullDecimal { return p.finalSanctionedCost }
func (p Proposal) Investigators() Team                      { return p.investigators.clone() }
func (p Proposal) CreatedAt() time.Time                     { return p.createdAt }
func (p Proposal) UpdatedAt() time.Time                     { return p.updatedAt }
func (p Proposal) DeletedAt() time.Time                     { return p.deletedAt }
func (p Proposal) IsDeleted() bool                          { return !p.deletedAt.IsZero() }
func (p Proposal) IsZero() bool                             { return p.code.IsZero() }

// Validate checks the invariants every stored proposal satisfies.
func (p Proposal) Validate() error {
	if p.title == "" {
		return &MissingFieldError{Field: "title"}
	}
	if !p.status.IsValid() {
		return InvalidField("status", string(p.status))
	}
	if !p.startDate.IsZero() && !p.endDate.IsZero() && p.endDate.Before(p.startDate) {
		return InvalidField("end_date", "must not be before start_date")
	}
	if p.finalSanctionedCost.Valid {
		if err := validateCost(p.finalSanctionedCost.Decimal); err != nil {
			return err
		}
	}
	if p.status.RequiresSanction() {
		if p.sanctionLetterNumber == "" {
			return &MissingFieldError{Field: "sanction_letter_number", Reason: "required once " + string(p.status)}
		}
		if !p.finalSanctionedCost.Valid {
			return &MissingFieldError{Field: "final_sanctioned_cost", Reason: "required once " + string(p.status)}
		}
	}
	return p.investigators.Validate()
}

func validateCost(d decimal.Decimal) error {
	switch {
	case !d.IsPositive():
		return InvalidField("final_sanctioned_cost", "must be greater than zero")
	case !d.Equal(d.Round(CostScale)):
		return InvalidField("final_sanctioned_cost", "at most 2 decimal places")
	case d.GreaterThanOrEqual(maxCost):
		return InvalidField("final_sanctioned_cost", "at most 12 integer digits")
	}
	return nil
}

// Date truncates t to a UTC calendar date; the zero time stays zero.
func Date(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, raw)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
