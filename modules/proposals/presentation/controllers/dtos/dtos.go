package dtos

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
	"github.com/gcir/gms/modules/proposals/services"
)

type Member struct {
	InvestigatorID string `json:"investigator_id"`
	Role           string `json:"role"`
	Name           string `json:"name,omitempty"`
}

type Proposal struct {
	Code                       string           `json:"code"`
	Year                       int              `json:"year"`
	Serial                     int              `json:"serial"`
	Department                 string           `json:"department"`
	ProjectType                string           `json:"project_type"`
	Title                      string           `json:"title"`
	FundingAgency              string           `json:"funding_agency,omitempty"`
	ApplicationDate            string           `json:"application_date,omitempty"`
	StartDate                  string           `json:"start_date,omitempty"`
	EndDate                    string           `json:"end_date,omitempty"`
	Status                     string           `json:"status"`
	NextStatuses               []string         `json:"next_statuses"`
	SanctionLetterNumber       string           `json:"sanction_letter_number,omitempty"`
	FinalSanctionedCost        *decimal.Decimal `json:"final_sanctioned_cost,omitempty"`
	FinalSanctionedCostDisplay string           `json:"final_sanctioned_cost_display,omitempty"`
	Investigators              []Member         `json:"investigators"`
	CreatedAt                  time.Time        `json:"created_at"`
	UpdatedAt                  time.Time        `json:"updated_at"`
}

func ProposalFrom(p proposal.Proposal, currency string) Proposal {
	doc := p.Document()
	out := Proposal{
		Code:                 p.Code().String(),
		Year:                 p.Code().Year,
		Serial:               p.Code().Serial,
		Department:           p.Code().Department,
		ProjectType:          p.Code().ProjectType,
		Title:                p.Title(),
		FundingAgency:        p.FundingAgency(),
		ApplicationDate:      doc.ApplicationDate,
		StartDate:            doc.StartDate,
		EndDate:              doc.EndDate,
		Status:               string(p.Status()),
		SanctionLetterNumber: p.SanctionLetterNumber(),
		FinalSanctionedCost:  doc.FinalSanctionedCost,
		CreatedAt:            p.CreatedAt(),
		UpdatedAt:            p.UpdatedAt(),
	}
	if out.FinalSanctionedCost != nil {
		out.FinalSanctionedCostDisplay = services.FormatAmount(*out.FinalSanctionedCost, currency)
	}
	for _, s := range p.Status().NextStatuses() {
		out.NextStatuses = append(out.NextStatuses, string(s))
	}
	if out.NextStatuses == nil {
		out.NextStatuses = []string{}
	}
	for _, m := range p.Investigators() {
		out.Investigators = append(out.Investigators, Member{InvestigatorID: m.InvestigatorID, Role: string(m.Role), Name: m.Name})
	}
	return out
}

type ProposalPage struct {
	Items  []Proposal `json:"items"`
	Total  int64      `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

type ChangeLogEntry struct {
	ID           int64     `json:"id"`
	EventID      string    `json:"event_id"`
	ProposalCode string    `json:"proposal_code"`
	ChangeType   string    `json:"change_type"`
	FieldName    string    `json:"field_name"`
	OldValue     *string   `json:"old_value"`
	NewValue     *string   `json:"new_value"`
	Actor        string    `json:"actor"`
	Timestamp    time.Time `json:"timestamp"`
}

func ChangeLogEntriesFrom(entries []*changelog.Entry) []ChangeLogEntry {
	out := make([]ChangeLogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, ChangeLogEntry{
			ID:           e.ID,
			EventID:      e.EventID.String(),
			ProposalCode: e.ProposalCode,
			ChangeType:   string(e.ChangeType),
			FieldName:    e.FieldName,
			OldValue:     e.OldValue,
			NewValue:     e.NewValue,
			Actor:        e.Actor,
			Timestamp:    e.Timestamp,
		})
	}
	return out
}

type WeeklyChangeLog struct {
	WeekStart time.Time        `json:"week_start"`
	WeekEnd   time.Time        `json:"week_end"`
	Entries   []ChangeLogEntry `json:"entries"`
}

type Lookup struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

func LookupsFrom(items []*lookup.Lookup) []Lookup {
	out := make([]Lookup, 0, len(items))
	for _, l := range items {
		out = append(out, Lookup{ID: l.ID, Code: l.Code, Name: l.Name})
	}
	return out
}

type Investigator struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Organization string `json:"organization,omitempty"`
	Country      string `json:"country,omitempty"`
	Designation  string `json:"designation,omitempty"`
}

func InvestigatorFrom(inv *investigator.Investigator) Investigator {
	return Investigator{
		ID:           inv.ID,
		Kind:         string(inv.Kind),
		Name:         inv.Name,
		Email:        inv.Email,
		Organization: inv.Organization,
		Country:      inv.Country,
		Designation:  inv.Designation,
	}
}

func InvestigatorsFrom(items []*investigator.Investigator) []Investigator {
	out := make([]Investigator, 0, len(items))
	for _, inv := range items {
		out = append(out, InvestigatorFrom(inv))
	}
	return out
}
