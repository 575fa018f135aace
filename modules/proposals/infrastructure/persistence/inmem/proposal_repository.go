package inmem

import (
	"context"
	"sort"
	"strings"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
)

type proposalRepository struct {
	store *Store
}

func (r *proposalRepository) GetByCode(ctx context.Context, code string) (proposal.Proposal, error) {
	var out proposal.Proposal
	err := r.store.view(ctx, func(st *state) error {
		p, ok := st.proposals[code]
		if !ok {
			return proposal.ErrNotFound
		}
		out = st.withNames(p)
		return nil
	})
	return out, err
}

// GetByCodeForUpdate needs no row lock: the transaction owns the store.
func (r *proposalRepository) GetByCodeForUpdate(ctx context.Context, code string) (proposal.Proposal, error) {
	return r.GetByCode(ctx, code)
}

func (r *proposalRepository) Search(ctx context.Context, params *proposal.FindParams) ([]proposal.Proposal, error) {
	if params == nil {
		params = &proposal.FindParams{}
	}
	var out []proposal.Proposal
	err := r.store.view(ctx, func(st *state) error {
		out = st.search(params)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *proposalRepository) Count(ctx context.Context, params *proposal.FindParams) (int64, error) {
	if params == nil {
		params = &proposal.FindParams{}
	}
	var n int64
	err := r.store.view(ctx, func(st *state) error {
		n = int64(len(st.search(params)))
		return nil
	})
	return n, err
}

func (r *proposalRepository) Create(ctx context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	var out proposal.Proposal
	err := r.store.view(ctx, func(st *state) error {
		code := p.Code().String()
		if _, exists := st.proposals[code]; exists {
			return proposal.ErrCodeTaken
		}
		if err := st.checkTeam(p.Investigators()); err != nil {
			return err
		}
		st.proposals[code] = p
		out = st.withNames(p)
		return nil
	})
	return out, err
}

func (r *proposalRepository) Update(ctx context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	var out proposal.Proposal
	err := r.store.view(ctx, func(st *state) error {
		code := p.Code().String()
		if _, exists := st.proposals[code]; !exists {
			return proposal.ErrNotFound
		}
		if err := st.checkTeam(p.Investigators()); err != nil {
			return err
		}
		st.proposals[code] = p
		out = st.withNames(p)
		return nil
	})
	return out, err
}

func (r *proposalRepository) MaxSerial(ctx context.Context, prefix string) (int, error) {
	max := 0
	err := r.store.view(ctx, func(st *state) error {
		for code, p := range st.proposals {
			if strings.HasPrefix(code, prefix) && p.Code().Serial > max {
				max = p.Code().Serial
			}
		}
		return nil
	})
	return max, err
}

func (st *state) checkTeam(team proposal.Team) error {
	for _, m := range team {
		if _, ok := st.investigators[m.InvestigatorID]; !ok {
			return proposal.InvalidField("investigators", "unknown investigator")
		}
	}
	return nil
}

func (st *state) withNames(p proposal.Proposal) proposal.Proposal {
	team := p.Investigators()
	for i := range team {
		if inv, ok := st.investigators[team[i].InvestigatorID]; ok {
			team[i].Name = inv.Name
		}
	}
	return proposal.Hydrate(proposal.HydrateParams{
		Code:                 p.Code(),
		Title:                p.Title(),
		DepartmentID:         p.DepartmentID(),
		ProjectTypeID:        p.ProjectTypeID(),
		FundingAgencyID:      p.FundingAgencyID(),
		FundingAgency:        p.FundingAgency(),
		ApplicationDate:      p.ApplicationDate(),
		StartDate:            p.StartDate(),
		EndDate:              p.EndDate(),
		Status:               p.Status(),
		SanctionLetterNumber: p.SanctionLetterNumber(),
		FinalSanctionedCost:  p.FinalSanctionedCost(),
		Investigators:        team,
		CreatedAt:            p.CreatedAt(),
		UpdatedAt:            p.UpdatedAt(),
		DeletedAt:            p.DeletedAt(),
	})
}

func (st *state) search(params *proposal.FindParams) []proposal.Proposal {
	var out []proposal.Proposal
	for _, p := range st.proposals {
		if !params.IncludeDeleted && p.IsDeleted() {
			continue
		}
		p = st.withNames(p)
		if !matches(p, params) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].CreatedAt().After(out[j].CreatedAt())
		}
		return out[i].Code().String() > out[j].Code().String()
	})
	return out
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

func matches(p proposal.Proposal, params *proposal.FindParams) bool {
	if v := strings.TrimSpace(params.Code); v != "" && !contains(p.Code().String(), v) {
		return false
	}
	if v := strings.TrimSpace(params.Title); v != "" && !contains(p.Title(), v) {
		return false
	}
	if v := strings.TrimSpace(params.Agency); v != "" && !contains(p.FundingAgency(), v) {
		return false
	}
	if v := strings.TrimSpace(params.PIName); v != "" {
		pi, ok := p.Investigators().PI()
		if !ok || !contains(pi.Name, v) {
			return false
		}
	}
	if v := strings.TrimSpace(params.Department); v != "" && !strings.EqualFold(p.Code().Department, v) {
		return false
	}
	if params.Status != "" && p.Status() != params.Status {
		return false
	}
	return true
}
