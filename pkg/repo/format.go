package repo

import (
	"fmt"
	"strings"
)

// FormatLimitOffset renders a LIMIT/OFFSET suffix, omitting zero values.
func FormatLimitOffset(limit, offset int) string {
	var parts []string
	if limit > 0 {
		parts = append(parts, fmt.Sprintf("LIMIT %d", limit))
	}
	if offset > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET %d", offset))
	}
	return strings.Join(parts, " ")
}

// ContainsPattern turns a user search term into an ILIKE pattern,
// escaping the LIKE metacharacters it contains.
func ContainsPattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// PrefixPattern is ContainsPattern anchored at the start.
func PrefixPattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term) + "%"
}
