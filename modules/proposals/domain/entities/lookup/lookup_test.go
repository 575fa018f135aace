package lookup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for raw, want := range map[string]Kind{
		"departments":      KindDepartment,
		"project-types":    KindProjectType,
		"funding-agencies": KindFundingAgency,
		"Funding_Agency":   KindFundingAgency,
	} {
		got, err := ParseKind(raw)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseKind("sponsors")
	require.ErrorIs(t, err, ErrInvalidKind)
}

func TestLookup_Validate(t *testing.T) {
	l := &Lookup{Kind: KindDepartment, Code: " cs ", Name: " Computer Science "}
	l.Normalize()
	require.NoError(t, l.Validate())
	require.Equal(t, "CS", l.Code)
	require.Equal(t, "Computer Science", l.Name)

	bad := &Lookup{Kind: KindDepartment, Code: "C-S", Name: "x"}
	require.ErrorIs(t, bad.Validate(), ErrInvalidCode)

	noKind := &Lookup{Code: "CS", Name: "x"}
	require.ErrorIs(t, noKind.Validate(), ErrInvalidKind)

	require.Error(t, (&Lookup{Kind: KindProjectType, Code: "IND"}).Validate())
}
