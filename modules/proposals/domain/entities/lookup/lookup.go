package lookup

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Kind names one of the lookup registries.
type Kind string

const (
	KindDepartment    Kind = "department"
	KindProjectType   Kind = "project_type"
	KindFundingAgency Kind = "funding_agency"
)

var Kinds = []Kind{KindDepartment, KindProjectType, KindFundingAgency}

var (
	ErrNotFound    = errors.New("lookup not found")
	ErrInvalidKind = errors.New("invalid lookup kind")
	ErrInvalidCode = errors.New("invalid lookup code")
	ErrCodeInUse   = errors.New("lookup code is referenced and cannot change")
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// ValidCode reports whether code is an uppercase alphanumeric abbreviation
// short enough to embed in a proposal code.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

func (k Kind) IsValid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// ParseKind accepts the kind name or its URL plural ("project-types").
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "department", "departments":
		return KindDepartment, nil
	case "project_type", "project-type", "project-types", "project_types":
		return KindProjectType, nil
	case "funding_agency", "funding-agency", "funding-agencies", "funding_agencies":
		return KindFundingAgency, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
}

type Lookup struct {
	ID        int64
	Kind      Kind
	Code      string
	Name      string
	CreatedAt time.Time
}

// Normalize uppercases the code and trims the name.
func (l *Lookup) Normalize() {
	l.Code = strings.ToUpper(strings.TrimSpace(l.Code))
	l.Name = strings.TrimSpace(l.Name)
}

func (l *Lookup) Validate() error {
	if !l.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, l.Kind)
	}
	if !ValidCode(l.Code) {
		return fmt.Errorf("%w: %q", ErrInvalidCode, l.Code)
	}
	if l.Name == "" {
		return fmt.Errorf("lookup %s: name is required", l.Code)
	}
	return nil
}

type FindParams struct {
	Kind  Kind
	Query string
}

type Repository interface {
	GetByID(ctx context.Context, kind Kind, id int64) (*Lookup, error)
	GetByCode(ctx context.Context, kind Kind, code string) (*Lookup, error)
	List(ctx context.Context, params *FindParams) ([]*Lookup, error)
	// Upsert inserts l or renames the row holding l.Code.
	Upsert(ctx context.Context, l *Lookup) error
	// UpdateCode changes the code of an unreferenced row; ErrCodeInUse otherwise.
	UpdateCode(ctx context.Context, kind Kind, id int64, code string) error
}
