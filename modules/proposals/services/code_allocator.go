package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
	"github.com/gcir/gms/modules/proposals/domain/entities/sequence"
)

// Allocation is a reserved code together with the resolved lookup rows.
type Allocation struct {
	Code          proposal.Code
	DepartmentID  int64
	ProjectTypeID int64
}

// CodeAllocator issues G-{year}-{dept}-{type}-{serial} codes and external
// investigator ids from the shared counter table.
type CodeAllocator struct {
	lookups       lookup.Repository
	proposals     proposal.Repository
	investigators investigator.Repository
	counters      sequence.Repository
}

func NewCodeAllocator(repos Repositories) *CodeAllocator {
	return &CodeAllocator{
		lookups:       repos.Lookups,
		proposals:     repos.Proposals,
		investigators: repos.Investigators,
		counters:      repos.Counters,
	}
}

type tuple struct {
	year        int
	department  *lookup.Lookup
	projectType *lookup.Lookup
}

func (t tuple) prefix() string {
	return proposal.Prefix(t.year, t.department.Code, t.projectType.Code)
}

func (a *CodeAllocator) resolve(ctx context.Context, year int, department, projectType string) (tuple, error) {
	if !proposal.ValidYear(year) {
		return tuple{}, newServiceError(http.StatusUnprocessableEntity, CodeInvalidField,
			"year must have four digits", nil).with("field", "year")
	}
	dept, err := a.lookupCode(ctx, lookup.KindDepartment, "department", department)
	if err != nil {
		return tuple{}, err
	}
	typ, err := a.lookupCode(ctx, lookup.KindProjectType, "project_type", projectType)
	if err != nil {
		return tuple{}, err
	}
	return tuple{year: year, department: dept, projectType: typ}, nil
}

func (a *CodeAllocator) lookupCode(ctx context.Context, kind lookup.Kind, field, raw string) (*lookup.Lookup, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !lookup.ValidCode(code) {
		return nil, invalidLookup(field, raw)
	}
	l, err := a.lookups.GetByCode(ctx, kind, code)
	if errors.Is(err, lookup.ErrNotFound) {
		return nil, invalidLookup(field, raw)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s %s", field, code)
	}
	return l, nil
}

func (a *CodeAllocator) floor(prefix string) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		return a.proposals.MaxSerial(ctx, prefix)
	}
}

// Allocate reserves the next serial for the tuple. It must run inside the
// transaction that inserts the proposal, so a rollback releases the serial.
func (a *CodeAllocator) Allocate(ctx context.Context, year int, department, projectType string) (Allocation, error) {
	t, err := a.resolve(ctx, year, department, projectType)
	if err != nil {
		return Allocation{}, err
	}
	prefix := t.prefix()
	serial, err := a.counters.Next(ctx, prefix, a.floor(prefix))
	if err != nil {
		return Allocation{}, errors.Wrapf(err, "allocate %s", prefix)
	}
	return Allocation{
		Code: proposal.Code{
			Year:        t.year,
			Department:  t.department.Code,
			ProjectType: t.projectType.Code,
			Serial:      serial,
		},
		DepartmentID:  t.department.ID,
		ProjectTypeID: t.projectType.ID,
	}, nil
}

// Preview returns the code Allocate would issue next without reserving it.
func (a *CodeAllocator) Preview(ctx context.Context, year int, department, projectType string) (proposal.Code, error) {
	t, err := a.resolve(ctx, year, department, projectType)
	if err != nil {
		return proposal.Code{}, err
	}
	prefix := t.prefix()
	serial, err := a.counters.Peek(ctx, prefix, a.floor(prefix))
	if err != nil {
		return proposal.Code{}, errors.Wrapf(err, "peek %s", prefix)
	}
	return proposal.Code{
		Year:        t.year,
		Department:  t.department.Code,
		ProjectType: t.projectType.Code,
		Serial:      serial,
	}, nil
}

// NextExternalID reserves the next E-code for an external investigator.
func (a *CodeAllocator) NextExternalID(ctx context.Context) (string, error) {
	n, err := a.counters.Next(ctx, investigator.ExternalPrefix, a.investigators.MaxExternalSerial)
	if err != nil {
		return "", errors.Wrap(err, "allocate external investigator id")
	}
	return investigator.ExternalID(n), nil
}
