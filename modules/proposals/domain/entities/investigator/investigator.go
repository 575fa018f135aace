package investigator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindInternal Kind = "internal"
	KindExternal Kind = "external"
)

const (
	// ExternalPrefix leads generated external investigator ids.
	ExternalPrefix = "E"
	ExternalWidth  = 4
)

var (
	ErrNotFound  = errors.New("investigator not found")
	ErrDuplicate = errors.New("investigator id already exists")
)

// ExternalID formats the n-th external investigator id, e.g. E0001.
func ExternalID(n int) string {
	return fmt.Sprintf("%s%0*d", ExternalPrefix, ExternalWidth, n)
}

// Investigator is internal staff keyed by PSRN, or an external
// collaborator keyed by a generated E-code.
type Investigator struct {
	ID           string
	Kind         Kind
	Name         string
	Email        string
	DepartmentID int64
	Organization string
	Country      string
	Designation  string
	CreatedAt    time.Time
}

func (i *Investigator) IsExternal() bool {
	return i.Kind == KindExternal
}

type FindParams struct {
	Query  string
	Kind   Kind
	Limit  int
	Offset int
}

type Repository interface {
	GetByID(ctx context.Context, id string) (*Investigator, error)
	GetByIDs(ctx context.Context, ids []string) ([]*Investigator, error)
	List(ctx context.Context, params *FindParams) ([]*Investigator, error)
	// Create fails with ErrDuplicate when the id exists.
	Create(ctx context.Context, inv *Investigator) error
	// Upsert inserts inv or overwrites the stored fields for inv.ID.
	Upsert(ctx context.Context, inv *Investigator) error
	// MaxExternalSerial returns the highest numeric suffix among external ids.
	MaxExternalSerial(ctx context.Context) (int, error)
}

type CreateExternalDTO struct {
	Name         string `json:"name" validate:"required,max=255"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Organization string `json:"organization" validate:"required,max=255"`
	Country      string `json:"country,omitempty" validate:"omitempty,max=100"`
	Designation  string `json:"designation,omitempty" validate:"omitempty,max=200"`
}

func (d *CreateExternalDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.Organization = strings.TrimSpace(d.Organization)
	d.Country = strings.TrimSpace(d.Country)
	d.Designation = strings.TrimSpace(d.Designation)
}

func (d *CreateExternalDTO) ToEntity(id string, at time.Time) *Investigator {
	return &Investigator{
		ID:           id,
		Kind:         KindExternal,
		Name:         d.Name,
		Email:        d.Email,
		Organization: d.Organization,
		Country:      d.Country,
		Designation:  d.Designation,
		CreatedAt:    at,
	}
}
