package proposal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
)

const (
	// CampusCode leads every generated code.
	CampusCode = "G"
	// SerialWidth is the zero-padded width of the serial; larger serials widen.
	SerialWidth = 3
)

// Code is a parsed GCIR code: G-{year}-{department}-{projectType}-{serial}.
type Code struct {
	Year        int
	Department  string
	ProjectType string
	Serial      int
}

// ValidLookupCode reports whether v can be embedded in a code.
func ValidLookupCode(v string) bool {
	return lookup.ValidCode(v)
}

func ValidYear(year int) bool {
	return year >= 1900 && year <= 9999
}

// Prefix returns the code prefix shared by every serial of a tuple,
// including the trailing dash.
func Prefix(year int, department, projectType string) string {
	return fmt.Sprintf("%s-%04d-%s-%s-", CampusCode, year, department, projectType)
}

func (c Code) Prefix() string {
	return Prefix(c.Year, c.Department, c.ProjectType)
}

func (c Code) String() string {
	return fmt.Sprintf("%s%0*d", c.Prefix(), SerialWidth, c.Serial)
}

func (c Code) IsZero() bool {
	return c.Serial == 0 && c.Department == ""
}

func ParseCode(raw string) (Code, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 5 || parts[0] != CampusCode {
		return Code{}, fmt.Errorf("%w: %q", ErrInvalidCode, raw)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 4 || !ValidYear(year) {
		return Code{}, fmt.Errorf("%w: bad year in %q", ErrInvalidCode, raw)
	}
	if !ValidLookupCode(parts[2]) || !ValidLookupCode(parts[3]) {
		return Code{}, fmt.Errorf("%w: bad lookup code in %q", ErrInvalidCode, raw)
	}
	serial, err := strconv.Atoi(parts[4])
	if err != nil || serial < 1 || len(parts[4]) < SerialWidth {
		return Code{}, fmt.Errorf("%w: bad serial in %q", ErrInvalidCode, raw)
	}
	return Code{Year: year, Department: parts[2], ProjectType: parts[3], Serial: serial}, nil
}
