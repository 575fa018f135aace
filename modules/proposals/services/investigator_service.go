package services

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
	"github.com/gcir/gms/pkg/constants"
)

const defaultSuggestLimit = 10

type InvestigatorService struct {
	repo      investigator.Repository
	lookups   lookup.Repository
	allocator *CodeAllocator
	tx        Transactor
	now       func() time.Time
}

func NewInvestigatorService(repos Repositories, tx Transactor, opts ...Option) *InvestigatorService {
	return &InvestigatorService{
		repo:      repos.Investigators,
		lookups:   repos.Lookups,
		allocator: NewCodeAllocator(repos),
		tx:        tx,
		now:       buildOptions(opts).now,
	}
}

func (s *InvestigatorService) GetByID(ctx context.Context, id string) (*investigator.Investigator, error) {
	inv, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, failWith(ctx, "get_investigator", err)
	}
	return inv, nil
}

func (s *InvestigatorService) List(ctx context.Context, params *investigator.FindParams) ([]*investigator.Investigator, error) {
	out, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, failWith(ctx, "list_investigators", err)
	}
	return out, nil
}

// Suggest ranks investigators by fuzzy match of q against their name and
// id, best first. An empty q lists the first limit investigators.
func (s *InvestigatorService) Suggest(ctx context.Context, q string, kind investigator.Kind, limit int) ([]*investigator.Investigator, error) {
	if limit <= 0 {
		limit = defaultSuggestLimit
	}
	q = strings.TrimSpace(q)
	all, err := s.repo.List(ctx, &investigator.FindParams{Kind: kind})
	if err != nil {
		return nil, failWith(ctx, "suggest_investigators", err)
	}
	if q == "" {
		if len(all) > limit {
			all = all[:limit]
		}
		return all, nil
	}

	targets := make([]string, len(all))
	for i, inv := range all {
		targets[i] = inv.Name + " " + inv.ID
	}
	ranks := fuzzy.RankFindNormalizedFold(q, targets)
	sort.Sort(ranks)

	out := make([]*investigator.Investigator, 0, min(limit, len(ranks)))
	for _, rank := range ranks {
		if len(out) == limit {
			break
		}
		out = append(out, all[rank.OriginalIndex])
	}
	return out, nil
}

// CreateExternal registers an external collaborator under the next E-code.
func (s *InvestigatorService) CreateExternal(ctx context.Context, dto *investigator.CreateExternalDTO) (*investigator.Investigator, error) {
	dto.Normalize()
	if err := constants.Validate.Struct(dto); err != nil {
		return nil, failWith(ctx, "create_external_investigator", validationFailure(err))
	}
	inv, err := inTx(ctx, s.tx, func(txCtx context.Context) (*investigator.Investigator, error) {
		id, err := s.allocator.NextExternalID(txCtx)
		if err != nil {
			return nil, err
		}
		inv := dto.ToEntity(id, s.now().UTC().Truncate(time.Microsecond))
		if err := s.repo.Create(txCtx, inv); err != nil {
			return nil, err
		}
		return inv, nil
	})
	if err != nil {
		return nil, failWith(ctx, "create_external_investigator", err)
	}
	codesAllocated.WithLabelValues("external_investigator").Inc()
	return inv, nil
}

// SaveInternal upserts a staff member keyed by PSRN. departmentCode may be
// empty.
func (s *InvestigatorService) SaveInternal(ctx context.Context, inv *investigator.Investigator, departmentCode string) error {
	inv.ID = strings.TrimSpace(inv.ID)
	inv.Name = strings.TrimSpace(inv.Name)
	inv.Kind = investigator.KindInternal
	if inv.ID == "" {
		return failWith(ctx, "save_investigator", newServiceError(http.StatusUnprocessableEntity,
			CodeMissingRequiredField, "investigator id is required", nil).with("field", "id"))
	}
	if inv.Name == "" {
		return failWith(ctx, "save_investigator", newServiceError(http.StatusUnprocessableEntity,
			CodeMissingRequiredField, "investigator name is required", nil).with("field", "name"))
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.now().UTC().Truncate(time.Microsecond)
	}
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		if code := strings.ToUpper(strings.TrimSpace(departmentCode)); code != "" {
			dept, err := s.lookups.GetByCode(txCtx, lookup.KindDepartment, code)
			if errors.Is(err, lookup.ErrNotFound) {
				return invalidLookup("department", departmentCode)
			}
			if err != nil {
				return err
			}
			inv.DepartmentID = dept.ID
		}
		return s.repo.Upsert(txCtx, inv)
	})
	if err != nil {
		return failWith(ctx, "save_investigator", err)
	}
	return nil
}

func validationFailure(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newServiceError(http.StatusUnprocessableEntity, CodeInvalidField, err.Error(), err)
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	if fe.Tag() == "required" {
		return newServiceError(http.StatusUnprocessableEntity, CodeMissingRequiredField,
			"missing required field "+field, err).with("field", field)
	}
	return newServiceError(http.StatusUnprocessableEntity, CodeInvalidField,
		field+": failed "+fe.Tag()+" check", err).with("field", field)
}
