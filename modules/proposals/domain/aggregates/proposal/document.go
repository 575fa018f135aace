package proposal

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// MemberDocument is the JSON shape of a team member.
type MemberDocument struct {
	InvestigatorID string `json:"investigator_id" validate:"required"`
	Role           string `json:"role" validate:"required"`
}

// Document is the JSON form of the editable fields. Edits are expressed as
// RFC 7386 merge patches against it.
type Document struct {
	Title                string           `json:"title"`
	FundingAgency        string           `json:"funding_agency,omitempty"`
	ApplicationDate      string           `json:"application_date,omitempty"`
	StartDate            string           `json:"start_date,omitempty"`
	EndDate              string           `json:"end_date,omitempty"`
	SanctionLetterNumber string           `json:"sanction_letter_number,omitempty"`
	FinalSanctionedCost  *decimal.Decimal `json:"final_sanctioned_cost,omitempty"`
	Investigators        []MemberDocument `json:"investigators"`
}

// DocumentKeys are the top-level keys a merge patch may touch.
var DocumentKeys = map[string]struct{}{
	"title":                  {},
	"funding_agency":         {},
	"application_date":       {},
	"start_date":             {},
	"end_date":               {},
	"sanction_letter_number": {},
	"final_sanctioned_cost":  {},
	"investigators":          {},
}

// ImmutableKeys name fields fixed at creation or owned by the workflow.
var ImmutableKeys = map[string]struct{}{
	"code":         {},
	"year":         {},
	"serial":       {},
	"department":   {},
	"project_type": {},
	"status":       {},
}

func (p Proposal) Document() Document {
	d := Document{
		Title:                p.title,
		FundingAgency:        p.fundingAgency,
		ApplicationDate:      formatDate(p.applicationDate),
		StartDate:            formatDate(p.startDate),
		EndDate:              formatDate(p.endDate),
		SanctionLetterNumber: p.sanctionLetterNumber,
		Investigators:        make([]MemberDocument, 0, len(p.investigators)),
	}
	if p.finalSanctionedCost.Valid {
		cost := p.finalSanctionedCost.Decimal
		d.FinalSanctionedCost = &cost
	}
	for _, m := range p.investigators {
		d.Investigators = append(d.Investigators, MemberDocument{InvestigatorID: m.InvestigatorID, Role: string(m.Role)})
	}
	return d
}

func (p Proposal) DocumentJSON() ([]byte, error) {
	return json.Marshal(p.Document())
}

// EditFields parses d. FundingAgencyID is left for the caller to resolve.
func (d Document) EditFields() (EditFields, error) {
	var f EditFields
	var err error
	f.Title = d.Title
	f.FundingAgency = strings.TrimSpace(d.FundingAgency)
	f.SanctionLetterNumber = d.SanctionLetterNumber
	if f.ApplicationDate, err = ParseDate(d.ApplicationDate); err != nil {
		return f, InvalidField("application_date", "expected YYYY-MM-DD")
	}
	if f.StartDate, err = ParseDate(d.StartDate); err != nil {
		return f, InvalidField("start_date", "expected YYYY-MM-DD")
	}
	if f.EndDate, err = ParseDate(d.EndDate); err != nil {
		return f, InvalidField("end_date", "expected YYYY-MM-DD")
	}
	if d.FinalSanctionedCost != nil {
		f.FinalSanctionedCost = decimal.NewNullDecimal(*d.FinalSanctionedCost)
	}
	team, err := ParseTeam(d.Investigators)
	if err != nil {
		return f, err
	}
	f.Investigators = team
	return f, nil
}

func ParseTeam(members []MemberDocument) (Team, error) {
	team := make(Team, 0, len(members))
	for _, m := range members {
		role, err := ParseRole(m.Role)
		if err != nil {
			return nil, InvalidField("investigators", err.Error())
		}
		team = append(team, Member{InvestigatorID: strings.TrimSpace(m.InvestigatorID), Role: role})
	}
	return team, nil
}
