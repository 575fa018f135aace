package proposal

import "context"

// FindParams filters proposals. String filters match case-insensitively as
// substrings; Department and Status match exactly.
type FindParams struct {
	Code           string
	PIName         string
	Title          string
	Department     string
	Status         Status
	Agency         string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

type Repository interface {
	GetByCode(ctx context.Context, code string) (Proposal, error)
	// GetByCodeForUpdate locks the row for the rest of the transaction.
	GetByCodeForUpdate(ctx context.Context, code string) (Proposal, error)
	Search(ctx context.Context, params *FindParams) ([]Proposal, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	// Create fails with ErrCodeTaken when the code already exists.
	Create(ctx context.Context, p Proposal) (Proposal, error)
	Update(ctx context.Context, p Proposal) (Proposal, error)
	// MaxSerial returns the highest serial stored under prefix, deleted
	// proposals included, or 0.
	MaxSerial(ctx context.Context, prefix string) (int, error)
}
