package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
	"github.com/gcir/gms/modules/proposals/domain/entities/sequence"
	"github.com/gcir/gms/pkg/composables"
	"github.com/gcir/gms/pkg/constants"
	"github.com/gcir/gms/pkg/eventbus"
)

// createAttempts bounds CreateProposal when the code constraint fires.
const createAttempts = 2

// Repositories is the storage a service set is built on. Both the Postgres
// and the in-memory store provide all of them.
type Repositories struct {
	Proposals     proposal.Repository
	Lookups       lookup.Repository
	Investigators investigator.Repository
	Counters      sequence.Repository
	ChangeLog     changelog.Repository
}

type Option func(*options)

type options struct {
	now    func() time.Time
	outbox EventOutbox
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithOutbox stages every domain event in the mutation transaction.
func WithOutbox(outbox EventOutbox) Option {
	return func(o *options) { o.outbox = outbox }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ProposalService is the only writer of proposals. Every mutation reads
// the current state, applies the domain change, persists it and appends
// the changelog in one transaction.
type ProposalService struct {
	repos     Repositories
	tx        Transactor
	allocator *CodeAllocator
	recorder  *ChangeRecorder
	publisher eventbus.EventBus
	outbox    EventOutbox
	now       func() time.Time
}

func NewProposalService(repos Repositories, tx Transactor, publisher eventbus.EventBus, opts ...Option) *ProposalService {
	o := buildOptions(opts)
	return &ProposalService{
		repos:     repos,
		tx:        tx,
		allocator: NewCodeAllocator(repos),
		recorder:  NewChangeRecorder(repos.ChangeLog),
		publisher: publisher,
		outbox:    o.outbox,
		now:       o.now,
	}
}

func (s *ProposalService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func actorOrSystem(actor string) string {
	if actor = strings.TrimSpace(actor); actor == "" {
		return constants.SystemActor
	}
	return actor
}

// AllocateCode previews the next code for the tuple. Nothing is reserved.
func (s *ProposalService) AllocateCode(ctx context.Context, year int, department, projectType string) (string, error) {
	code, err := s.allocator.Preview(ctx, year, department, projectType)
	if err != nil {
		return "", s.fail(ctx, "allocate_code", err)
	}
	return code.String(), nil
}

func (s *ProposalService) CreateProposal(ctx context.Context, dto *proposal.CreateDTO, actor string) (proposal.Proposal, error) {
	if err := dto.Validate(); err != nil {
		return proposal.Proposal{}, s.fail(ctx, "create_proposal", err)
	}
	fields, err := dto.Fields()
	if err != nil {
		return proposal.Proposal{}, s.fail(ctx, "create_proposal", err)
	}
	actor = actorOrSystem(actor)
	year := dto.ResolveYear(s.now())

	var created proposal.Proposal
	for attempt := 1; ; attempt++ {
		created, err = s.create(ctx, dto, year, fields, actor)
		if err == nil || !errors.Is(err, proposal.ErrCodeTaken) || attempt == createAttempts {
			break
		}
		allocationConflicts.Inc()
		composables.UseLogger(ctx).WithFields(logrus.Fields{
			"department":   dto.Department,
			"project_type": dto.ProjectType,
			"year":         year,
		}).Warn("proposal code taken, retrying allocation")
	}
	if err != nil {
		if errors.Is(err, proposal.ErrCodeTaken) {
			allocationConflicts.Inc()
		}
		return proposal.Proposal{}, s.fail(ctx, "create_proposal", err)
	}

	codesAllocated.WithLabelValues("proposal").Inc()
	s.publish(createdEvent(created, actor))
	return created, nil
}

func (s *ProposalService) create(
	ctx context.Context,
	dto *proposal.CreateDTO,
	year int,
	fields proposal.Fields,
	actor string,
) (proposal.Proposal, error) {
	return inTx(ctx, s.tx, func(txCtx context.Context) (proposal.Proposal, error) {
		now := s.timestamp()
		alloc, err := s.allocator.Allocate(txCtx, year, dto.Department, dto.ProjectType)
		if err != nil {
			return proposal.Proposal{}, err
		}
		if fields.FundingAgencyID, fields.FundingAgency, err = s.resolveAgency(txCtx, fields.FundingAgency); err != nil {
			return proposal.Proposal{}, err
		}
		if err := s.checkInvestigators(txCtx, fields.Investigators); err != nil {
			return proposal.Proposal{}, err
		}
		p, err := proposal.New(alloc.Code, alloc.DepartmentID, alloc.ProjectTypeID, fields, now)
		if err != nil {
			return proposal.Proposal{}, err
		}
		created, err := s.repos.Proposals.Create(txCtx, p)
		if err != nil {
			return proposal.Proposal{}, err
		}
		if _, err := s.recorder.Created(txCtx, created, actor, now); err != nil {
			return proposal.Proposal{}, err
		}
		if err := s.stage(txCtx, createdEvent(created, actor)); err != nil {
			return proposal.Proposal{}, err
		}
		return created, nil
	})
}

// EditProposal applies an RFC 7386 merge patch to the editable fields.
// A patch that changes nothing writes nothing.
func (s *ProposalService) EditProposal(ctx context.Context, code string, patch proposal.EditDTO, actor string) (proposal.Proposal, error) {
	if err := patch.Validate(); err != nil {
		return proposal.Proposal{}, s.fail(ctx, "edit_proposal", err)
	}
	patchJSON, err := patch.MergePatch()
	if err != nil {
		return proposal.Proposal{}, s.fail(ctx, "edit_proposal", err)
	}
	actor = actorOrSystem(actor)

	var event *proposal.UpdatedEvent
	updated, err := inTx(ctx, s.tx, func(txCtx context.Context) (proposal.Proposal, error) {
		now := s.timestamp()
		current, err := s.load(txCtx, code)
		if err != nil {
			return proposal.Proposal{}, err
		}
		doc, err := current.DocumentJSON()
		if err != nil {
			return proposal.Proposal{}, errors.Wrap(err, "encode proposal document")
		}
		merged, err := jsonpatch.MergePatch(doc, patchJSON)
		if err != nil {
			return proposal.Proposal{}, proposal.InvalidField("body", err.Error())
		}
		var next proposal.Document
		if err := json.Unmarshal(merged, &next); err != nil {
			return proposal.Proposal{}, proposal.InvalidField("body", err.Error())
		}
		fields, err := next.EditFields()
		if err != nil {
			return proposal.Proposal{}, err
		}
		if fields.FundingAgencyID, fields.FundingAgency, err = s.resolveAgency(txCtx, fields.FundingAgency); err != nil {
			return proposal.Proposal{}, err
		}
		if err := s.checkInvestigators(txCtx, fields.Investigators); err != nil {
			return proposal.Proposal{}, err
		}
		edited, err := current.Edit(fields, now)
		if err != nil {
			return proposal.Proposal{}, err
		}
		changes, err := Diff(current.Snapshot(), edited.Snapshot())
		if err != nil {
			return proposal.Proposal{}, err
		}
		if len(changes) == 0 {
			return current, nil
		}
		saved, err := s.repos.Proposals.Update(txCtx, edited)
		if err != nil {
			return proposal.Proposal{}, err
		}
		if _, err := s.recorder.Record(txCtx, code, changelog.ChangeModified, changes, actor, now); err != nil {
			return proposal.Proposal{}, err
		}
		changed := make([]string, 0, len(changes))
		for _, c := range changes {
			changed = append(changed, c.Field)
		}
		event = &proposal.UpdatedEvent{Code: saved.Code().String(), Fields: changed, Actor: actor, At: saved.UpdatedAt()}
		if err := s.stage(txCtx, event); err != nil {
			return proposal.Proposal{}, err
		}
		return saved, nil
	})
	if err != nil {
		return proposal.Proposal{}, s.fail(ctx, "edit_proposal", err)
	}

	if event != nil {
		s.publish(event)
	}
	return updated, nil
}

// TransitionStatus moves a proposal along the workflow. Sanction fields in
// extra are committed together with the status.
func (s *ProposalService) TransitionStatus(
	ctx context.Context,
	code string,
	target proposal.Status,
	extra proposal.TransitionFields,
	actor string,
) (proposal.Proposal, error) {
	actor = actorOrSystem(actor)
	var event *proposal.StatusChangedEvent
	updated, err := inTx(ctx, s.tx, func(txCtx context.Context) (proposal.Proposal, error) {
		now := s.timestamp()
		current, err := s.load(txCtx, code)
		if err != nil {
			return proposal.Proposal{}, err
		}
		next, err := current.Transition(target, extra, now)
		if err != nil {
			return proposal.Proposal{}, err
		}
		saved, err := s.repos.Proposals.Update(txCtx, next)
		if err != nil {
			return proposal.Proposal{}, err
		}
		if _, err := s.recorder.Modified(txCtx, current, saved, actor, now); err != nil {
			return proposal.Proposal{}, err
		}
		event = &proposal.StatusChangedEvent{
			Code:  saved.Code().String(),
			From:  current.Status(),
			To:    saved.Status(),
			Actor: actor,
			At:    saved.UpdatedAt(),
		}
		if err := s.stage(txCtx, event); err != nil {
			return proposal.Proposal{}, err
		}
		return saved, nil
	})
	if err != nil {
		if errors.Is(err, proposal.ErrIllegalTransition) {
			illegalTransitions.Inc()
		}
		return proposal.Proposal{}, s.fail(ctx, "transition_status", err)
	}

	recordTransition(string(event.From), string(event.To))
	s.publish(event)
	return updated, nil
}

// DeleteProposal hides a proposal and writes the deletion marker. The row
// and its code stay reserved.
func (s *ProposalService) DeleteProposal(ctx context.Context, code, actor string) error {
	actor = actorOrSystem(actor)
	var event *proposal.DeletedEvent
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		at := s.timestamp()
		current, err := s.load(txCtx, code)
		if err != nil {
			return err
		}
		if _, err := s.repos.Proposals.Update(txCtx, current.MarkDeleted(at)); err != nil {
			return err
		}
		if _, err := s.recorder.Deleted(txCtx, current.Code().String(), actor, at); err != nil {
			return err
		}
		event = &proposal.DeletedEvent{Code: current.Code().String(), Actor: actor, At: at}
		return s.stage(txCtx, event)
	})
	if err != nil {
		return s.fail(ctx, "delete_proposal", err)
	}
	s.publish(event)
	return nil
}

func (s *ProposalService) GetProposal(ctx context.Context, code string) (proposal.Proposal, error) {
	p, err := s.repos.Proposals.GetByCode(ctx, strings.TrimSpace(code))
	if err == nil && p.IsDeleted() {
		err = proposal.ErrNotFound
	}
	if err != nil {
		return proposal.Proposal{}, s.fail(ctx, "get_proposal", err)
	}
	return p, nil
}

func (s *ProposalService) SearchProposals(ctx context.Context, params *proposal.FindParams) ([]proposal.Proposal, error) {
	out, err := s.repos.Proposals.Search(ctx, params)
	if err != nil {
		return nil, s.fail(ctx, "search_proposals", err)
	}
	return out, nil
}

func (s *ProposalService) CountProposals(ctx context.Context, params *proposal.FindParams) (int64, error) {
	n, err := s.repos.Proposals.Count(ctx, params)
	if err != nil {
		return 0, s.fail(ctx, "count_proposals", err)
	}
	return n, nil
}

// load reads and locks a live proposal.
func (s *ProposalService) load(ctx context.Context, code string) (proposal.Proposal, error) {
	p, err := s.repos.Proposals.GetByCodeForUpdate(ctx, strings.TrimSpace(code))
	if err != nil {
		return proposal.Proposal{}, err
	}
	if p.IsDeleted() {
		return proposal.Proposal{}, proposal.ErrNotFound
	}
	return p, nil
}

// resolveAgency links a funding agency matching a registered code; any
// other text is kept as entered.
func (s *ProposalService) resolveAgency(ctx context.Context, raw string) (int64, string, error) {
	raw = strings.TrimSpace(raw)
	code := strings.ToUpper(raw)
	if raw == "" || !lookup.ValidCode(code) {
		return 0, raw, nil
	}
	l, err := s.repos.Lookups.GetByCode(ctx, lookup.KindFundingAgency, code)
	switch {
	case errors.Is(err, lookup.ErrNotFound):
		return 0, raw, nil
	case err != nil:
		return 0, "", errors.Wrap(err, "resolve funding agency")
	}
	return l.ID, l.Code, nil
}

func (s *ProposalService) checkInvestigators(ctx context.Context, team proposal.Team) error {
	if len(team) == 0 {
		return nil
	}
	found, err := s.repos.Investigators.GetByIDs(ctx, team.IDs())
	if err != nil {
		return errors.Wrap(err, "load investigators")
	}
	known := make(map[string]struct{}, len(found))
	for _, inv := range found {
		known[inv.ID] = struct{}{}
	}
	for _, id := range team.IDs() {
		if _, ok := known[id]; !ok {
			return invalidLookup("investigators", id)
		}
	}
	return nil
}

func createdEvent(p proposal.Proposal, actor string) *proposal.CreatedEvent {
	return &proposal.CreatedEvent{
		Code:   p.Code().String(),
		Status: p.Status(),
		Actor:  actor,
		At:     p.CreatedAt(),
	}
}

// stage hands event to the outbox, inside the caller's transaction.
func (s *ProposalService) stage(ctx context.Context, event eventbus.Subjecter) error {
	if s.outbox == nil {
		return nil
	}
	if err := s.outbox.Stage(ctx, event); err != nil {
		return errors.Wrap(err, "stage event")
	}
	return nil
}

func (s *ProposalService) publish(event interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

// fail maps err for callers and logs what they are not shown.
func (s *ProposalService) fail(ctx context.Context, op string, err error) error {
	return failWith(ctx, op, err)
}

func failWith(ctx context.Context, op string, err error) error {
	se := toServiceError(err)
	switch se.Code {
	case CodeAuditWriteFailure:
		auditWriteFailures.Inc()
		composables.UseLogger(ctx).WithError(err).WithField("op", op).
			Error("changelog write failed, mutation rolled back")
	case CodeInternal:
		composables.UseLogger(ctx).WithError(err).WithField("op", op).Error("proposal operation failed")
	}
	return se
}
