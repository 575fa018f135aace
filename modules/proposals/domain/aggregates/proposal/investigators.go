package proposal

import (
	"fmt"
	"strings"
)

type Role string

const (
	RolePI   Role = "PI"
	RoleCoPI Role = "CoPI"
)

// ParseRole accepts "PI", "CoPI", "Co-PI" and "CO_PI" in any case.
func ParseRole(raw string) (Role, error) {
	switch strings.ToUpper(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(raw))) {
	case "PI":
		return RolePI, nil
	case "COPI":
		return RoleCoPI, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

// Member is one investigator on a proposal. Name is read-side only.
type Member struct {
	InvestigatorID string
	Role           Role
	Name           string
}

// Team is the ordered investigator list of a proposal.
type Team []Member

// Validate requires exactly one PI and no investigator listed twice.
func (t Team) Validate() error {
	seen := make(map[string]struct{}, len(t))
	pis := 0
	for _, m := range t {
		if strings.TrimSpace(m.InvestigatorID) == "" {
			return fmt.Errorf("%w: investigator id", ErrMissingField)
		}
		if m.Role != RolePI && m.Role != RoleCoPI {
			return fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
		}
		if _, dup := seen[m.InvestigatorID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateInvestigator, m.InvestigatorID)
		}
		seen[m.InvestigatorID] = struct{}{}
		if m.Role == RolePI {
			pis++
		}
	}
	switch {
	case pis == 0:
		return ErrMissingPI
	case pis > 1:
		return ErrMultiplePI
	}
	return nil
}

// PI returns the principal investigator.
func (t Team) PI() (Member, bool) {
	for _, m := range t {
		if m.Role == RolePI {
			return m, true
		}
	}
	return Member{}, false
}

func (t Team) IDs() []string {
	out := make([]string, len(t))
	for i, m := range t {
		out[i] = m.InvestigatorID
	}
	return out
}

// String renders the team as "PI:G0001, CoPI:G0002" for the changelog.
func (t Team) String() string {
	parts := make([]string, len(t))
	for i, m := range t {
		parts[i] = string(m.Role) + ":" + m.InvestigatorID
	}
	return strings.Join(parts, ", ")
}

func (t Team) clone() Team {
	if t == nil {
		return nil
	}
	out := make(Team, len(t))
	copy(out, t)
	return out
}
