package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type Proposal struct {
	Code                 string
	Year                 int
	Serial               int
	DepartmentID         int64
	ProjectTypeID        int64
	FundingAgencyID      pgtype.Int8
	FundingAgency        string
	Title                string
	Status               string
	ApplicationDate      pgtype.Date
	StartDate            pgtype.Date
	EndDate              pgtype.Date
	SanctionLetterNumber string
	FinalSanctionedCost  decimal.NullDecimal
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            pgtype.Timestamptz
}

type ProposalInvestigator struct {
	ProposalCode   string
	InvestigatorID string
	Role           string
	Position       int
	Name           string
}

type Investigator struct {
	ID           string
	Kind         string
	Name         string
	Email        string
	DepartmentID pgtype.Int8
	Organization string
	Country      string
	Designation  string
	CreatedAt    time.Time
}

type Lookup struct {
	ID        int64
	Code      string
	Name      string
	CreatedAt time.Time
}

type ChangeLogEntry struct {
	ID           int64
	EventID      uuid.UUID
	ProposalCode string
	ChangeType   string
	FieldName    string
	OldValue     pgtype.Text
	NewValue     pgtype.Text
	Actor        string
	ChangedAt    time.Time
}
