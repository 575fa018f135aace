package persistence

import (
	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
	"github.com/gcir/gms/modules/proposals/infrastructure/persistence/models"
)

func toDBProposal(p proposal.Proposal) models.Proposal {
	return models.Proposal{
		Code:                 p.Code().String(),
		Year:                 p.Code().Year,
		Serial:               p.Code().Serial,
		DepartmentID:         p.DepartmentID(),
		ProjectTypeID:        p.ProjectTypeID(),
		FundingAgencyID:      pgInt8(p.FundingAgencyID()),
		FundingAgency:        p.FundingAgency(),
		Title:                p.Title(),
		Status:               string(p.Status()),
		ApplicationDate:      pgDate(p.ApplicationDate()),
		StartDate:            pgDate(p.StartDate()),
		EndDate:              pgDate(p.EndDate()),
		SanctionLetterNumber: p.SanctionLetterNumber(),
		FinalSanctionedCost:  p.FinalSanctionedCost(),
		CreatedAt:            p.CreatedAt(),
		UpdatedAt:            p.UpdatedAt(),
		DeletedAt:            pgTimestamptz(p.DeletedAt()),
	}
}

func toDomainProposal(row models.Proposal, members []models.ProposalInvestigator) (proposal.Proposal, error) {
	code, err := proposal.ParseCode(row.Code)
	if err != nil {
		return proposal.Proposal{}, err
	}
	team := make(proposal.Team, 0, len(members))
	for _, m := range members {
		team = append(team, proposal.Member{
			InvestigatorID: m.InvestigatorID,
			Role:           proposal.Role(m.Role),
			Name:           m.Name,
		})
	}
	h := proposal.HydrateParams{
		Code:                 code,
		Title:                row.Title,
		DepartmentID:         row.DepartmentID,
		ProjectTypeID:        row.ProjectTypeID,
		FundingAgency:        row.FundingAgency,
		ApplicationDate:      fromPgDate(row.ApplicationDate),
		StartDate:            fromPgDate(row.StartDate),
		EndDate:              fromPgDate(row.EndDate),
		Status:               proposal.Status(row.Status),
		SanctionLetterNumber: row.SanctionLetterNumber,
		FinalSanctionedCost:  row.FinalSanctionedCost,
		Investigators:        team,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if row.FundingAgencyID.Valid {
		h.FundingAgencyID = row.FundingAgencyID.Int64
	}
	if row.DeletedAt.Valid {
		h.DeletedAt = row.DeletedAt.Time
	}
	return proposal.Hydrate(h), nil
}

func toDomainInvestigator(row models.Investigator) *investigator.Investigator {
	inv := &investigator.Investigator{
		ID:           row.ID,
		Kind:         investigator.Kind(row.Kind),
		Name:         row.Name,
		Email:        row.Email,
		Organization: row.Organization,
		Country:      row.Country,
		Designation:  row.Designation,
		CreatedAt:    row.CreatedAt,
	}
	if row.DepartmentID.Valid {
		inv.DepartmentID = row.DepartmentID.Int64
	}
	return inv
}

func toDBInvestigator(inv *investigator.Investigator) models.Investigator {
	return models.Investigator{
		ID:           inv.ID,
		Kind:         string(inv.Kind),
		Name:         inv.Name,
		Email:        inv.Email,
		DepartmentID: pgInt8(inv.DepartmentID),
		Organization: inv.Organization,
		Country:      inv.Country,
		Designation:  inv.Designation,
		CreatedAt:    inv.CreatedAt,
	}
}

func toDomainLookup(kind lookup.Kind, row models.Lookup) *lookup.Lookup {
	return &lookup.Lookup{
		ID:        row.ID,
		Kind:      kind,
		Code:      row.Code,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
	}
}

func toDomainChangeLogEntry(row models.ChangeLogEntry) *changelog.Entry {
	return &changelog.Entry{
		ID:           row.ID,
		EventID:      row.EventID,
		ProposalCode: row.ProposalCode,
		ChangeType:   changelog.ChangeType(row.ChangeType),
		FieldName:    row.FieldName,
		OldValue:     fromPgText(row.OldValue),
		NewValue:     fromPgText(row.NewValue),
		Actor:        row.Actor,
		Timestamp:    row.ChangedAt,
	}
}

func toDBChangeLogEntry(e *changelog.Entry) models.ChangeLogEntry {
	return models.ChangeLogEntry{
		ID:           e.ID,
		EventID:      e.EventID,
		ProposalCode: e.ProposalCode,
		ChangeType:   string(e.ChangeType),
		FieldName:    e.FieldName,
		OldValue:     pgText(e.OldValue),
		NewValue:     pgText(e.NewValue),
		Actor:        e.Actor,
		ChangedAt:    e.Timestamp,
	}
}
