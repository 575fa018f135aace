package changelog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// DeletedField is the field name of the marker written on logical deletion.
const DeletedField = "deleted"

var ErrInvalidRange = errors.New("changelog range end is before start")

// Entry is one immutable field-level change of a proposal. Entries written
// by a single mutation share EventID.
type Entry struct {
	ID           int64
	EventID      uuid.UUID
	ProposalCode string
	ChangeType   ChangeType
	FieldName    string
	OldValue     *string
	NewValue     *string
	Actor        string
	Timestamp    time.Time
}

// Label is the upper-case change type used in reports.
func (e *Entry) Label() string {
	switch e.ChangeType {
	case ChangeCreated:
		return "CREATED"
	case ChangeDeleted:
		return "DELETED"
	default:
		return "MODIFIED"
	}
}

// FindParams selects entries with From <= Timestamp <= To. Zero bounds are
// open.
type FindParams struct {
	From         time.Time
	To           time.Time
	ProposalCode string
	Limit        int
	Offset       int
}

type Repository interface {
	// Append stores entries in order and fills their IDs.
	Append(ctx context.Context, entries []*Entry) error
	// List returns matching entries ordered by timestamp, then id.
	List(ctx context.Context, params *FindParams) ([]*Entry, error)
}
