package proposal

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransitionFields are the values a transition may set alongside the status.
type TransitionFields struct {
	SanctionLetterNumber string
	FinalSanctionedCost  decimal.NullDecimal
}

// Transition moves p to target. Entering Approved requires both sanction
// fields in f; on any error p is returned unchanged.
func (p Proposal) Transition(target Status, f TransitionFields, at time.Time) (Proposal, error) {
	if !target.IsValid() {
		return p, InvalidField("status", string(target))
	}
	if !p.status.CanTransitionTo(target) {
		return p, &IllegalTransitionError{From: p.status, To: target}
	}

	letter := strings.TrimSpace(f.SanctionLetterNumber)
	if target == StatusApproved {
		if letter == "" {
			return p, &MissingFieldError{Field: "sanction_letter_number", Reason: "required to enter Approved"}
		}
		if !f.FinalSanctionedCost.Valid {
			return p, &MissingFieldError{Field: "final_sanctioned_cost", Reason: "required to enter Approved"}
		}
	}

	next := p
	next.investigators = p.investigators.clone()
	if letter != "" {
		next.sanctionLetterNumber = letter
	}
	if f.FinalSanctionedCost.Valid {
		next.finalSanctionedCost = f.FinalSanctionedCost
	}
	next.status = target
	next.updatedAt = at
	if err := next.Validate(); err != nil {
		return p, err
	}
	return next, nil
}

// EditFields is the full editable state of a proposal.
type EditFields struct {
	Fields
	SanctionLetterNumber string
	FinalSanctionedCost  decimal.NullDecimal
}

// Edit replaces the editable state. Code, lookups and status are untouched.
func (p Proposal) Edit(f EditFields, at time.Time) (Proposal, error) {
	next := p
	next.title = strings.TrimSpace(f.Title)
	next.fundingAgencyID = f.FundingAgencyID
	next.fundingAgency = strings.TrimSpace(f.FundingAgency)
	next.applicationDate = Date(f.ApplicationDate)
	next.startDate = Date(f.StartDate)
	next.endDate = Date(f.EndDate)
	next.sanctionLetterNumber = strings.TrimSpace(f.SanctionLetterNumber)
	next.finalSanctionedCost = f.FinalSanctionedCost
	next.investigators = f.Investigators.clone()
	next.updatedAt = at
	if err := next.Validate(); err != nil {
		return p, err
	}
	return next, nil
}

// MarkDeleted flags p as logically deleted.
func (p Proposal) MarkDeleted(at time.Time) Proposal {
	next := p
	next.investigators = p.investigators.clone()
	next.deletedAt = at
	next.updatedAt = at
	return next
}
