package proposal

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusDraft              Status = "Draft"
	StatusPermissionPrepared Status = "PermissionPrepared"
	StatusSubmitted          Status = "Submitted"
	StatusUnderReview        Status = "UnderReview"
	StatusApproved           Status = "Approved"
	StatusDisbursed          Status = "Disbursed"
	StatusRejected           Status = "Rejected"
)

// AllStatuses lists the workflow states in lifecycle order.
var AllStatuses = []Status{
	StatusDraft,
	StatusPermissionPrepared,
	StatusSubmitted,
	StatusUnderReview,
	StatusApproved,
	StatusDisbursed,
	StatusRejected,
}

var edges = map[Status][]Status{
	StatusDraft:              {StatusPermissionPrepared},
	StatusPermissionPrepared: {StatusSubmitted},
	StatusSubmitted:          {StatusUnderReview, StatusApproved, StatusRejected},
	StatusUnderReview:        {StatusApproved, StatusRejected},
	StatusApproved:           {StatusDisbursed, StatusRejected},
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusDisbursed || s == StatusRejected
}

// NextStatuses returns the legal targets from s.
func (s Status) NextStatuses() []Status {
	next := edges[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range edges[s] {
		if next == target {
			return true
		}
	}
	return false
}

// RequiresSanction reports whether a proposal in s must carry a sanction
// letter number and final sanctioned cost.
func (s Status) RequiresSanction() bool {
	return s == StatusApproved || s == StatusDisbursed
}

// ParseStatus accepts the canonical names case-insensitively, ignoring
// spaces, dashes and underscores ("under_review", "Under Review").
func ParseStatus(raw string) (Status, error) {
	key := normalizeStatusKey(raw)
	for _, s := range AllStatuses {
		if normalizeStatusKey(string(s)) == key {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

func normalizeStatusKey(raw string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(raw)))
}
