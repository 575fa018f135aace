package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/wI2L/jsondiff"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
)

// FieldChange is one audited field before and after a mutation.
type FieldChange struct {
	Field string
	Old   *string
	New   *string
}

var fieldOrder = func() map[string]int {
	m := make(map[string]int, len(proposal.AuditFields))
	for i, f := range proposal.AuditFields {
		m[f] = i
	}
	return m
}()

func emptySnapshot() map[string]*string {
	s := make(map[string]*string, len(proposal.AuditFields))
	for _, f := range proposal.AuditFields {
		s[f] = nil
	}
	return s
}

// Diff compares two proposal snapshots and returns the changed fields in
// audit order.
func Diff(before, after map[string]*string) ([]FieldChange, error) {
	patch, err := jsondiff.Compare(before, after)
	if err != nil {
		return nil, errors.Wrap(err, "diff snapshots")
	}
	seen := make(map[string]struct{}, len(patch))
	changes := make([]FieldChange, 0, len(patch))
	for _, op := range patch {
		field := strings.TrimPrefix(string(op.Path), "/")
		if i := strings.IndexByte(field, '/'); i >= 0 {
			field = field[:i]
		}
		if _, ok := seen[field]; ok || field == "" {
			continue
		}
		seen[field] = struct{}{}
		changes = append(changes, FieldChange{Field: field, Old: before[field], New: after[field]})
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return order(changes[i].Field) < order(changes[j].Field)
	})
	return changes, nil
}

func order(field string) int {
	if i, ok := fieldOrder[field]; ok {
		return i
	}
	return len(fieldOrder)
}

// ChangeRecorder appends changelog entries inside the caller's transaction.
// Every failure comes back as an audit error so the mutation rolls back.
type ChangeRecorder struct {
	repo changelog.Repository
}

func NewChangeRecorder(repo changelog.Repository) *ChangeRecorder {
	return &ChangeRecorder{repo: repo}
}

func (r *ChangeRecorder) Record(
	ctx context.Context,
	code string,
	changeType changelog.ChangeType,
	changes []FieldChange,
	actor string,
	at time.Time,
) ([]*changelog.Entry, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	eventID := uuid.New()
	entries := make([]*changelog.Entry, 0, len(changes))
	for _, c := range changes {
		entries = append(entries, &changelog.Entry{
			EventID:      eventID,
			ProposalCode: code,
			ChangeType:   changeType,
			FieldName:    c.Field,
			OldValue:     c.Old,
			NewValue:     c.New,
			Actor:        actor,
			Timestamp:    at,
		})
	}
	if err := r.repo.Append(ctx, entries); err != nil {
		return nil, &auditError{cause: err}
	}
	changelogEntries.WithLabelValues(string(changeType)).Add(float64(len(entries)))
	return entries, nil
}

// Created records every populated field of a new proposal with a nil old value.
func (r *ChangeRecorder) Created(ctx context.Context, p proposal.Proposal, actor string, at time.Time) ([]*changelog.Entry, error) {
	changes, err := Diff(emptySnapshot(), p.Snapshot())
	if err != nil {
		return nil, &auditError{cause: err}
	}
	return r.Record(ctx, p.Code().String(), changelog.ChangeCreated, changes, actor, at)
}

// Modified records the fields that differ between before and after.
func (r *ChangeRecorder) Modified(ctx context.Context, before, after proposal.Proposal, actor string, at time.Time) ([]*changelog.Entry, error) {
	changes, err := Diff(before.Snapshot(), after.Snapshot())
	if err != nil {
		return nil, &auditError{cause: err}
	}
	return r.Record(ctx, after.Code().String(), changelog.ChangeModified, changes, actor, at)
}

// Deleted writes the single marker entry of a logical deletion.
func (r *ChangeRecorder) Deleted(ctx context.Context, code, actor string, at time.Time) ([]*changelog.Entry, error) {
	old, next := "false", "true"
	return r.Record(ctx, code, changelog.ChangeDeleted,
		[]FieldChange{{Field: changelog.DeletedField, Old: &old, New: &next}}, actor, at)
}
