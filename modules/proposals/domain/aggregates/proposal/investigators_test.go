package proposal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTeam_Validate(t *testing.T) {
	cases := []struct {
		name string
		team Team
		err  error
	}{
		{name: "single PI", team: Team{{InvestigatorID: "G0001", Role: RolePI}}},
		{name: "PI and CoPIs", team: Team{
			{InvestigatorID: "G0001", Role: RolePI},
			{InvestigatorID: "G0002", Role: RoleCoPI},
			{InvestigatorID: "E0001", Role: RoleCoPI},
		}},
		{name: "empty", team: nil, err: ErrMissingField},
		{name: "only CoPI", team: Team{{InvestigatorID: "G0002", Role: RoleCoPI}}, err: ErrMissingField},
		{name: "two PIs", team: Team{
			{InvestigatorID: "G0001", Role: RolePI},
			{InvestigatorID: "G0002", Role: RolePI},
		}, err: ErrMissingField},
		{name: "duplicate", team: Team{
			{InvestigatorID: "G0001", Role: RolePI},
			{InvestigatorID: "G0001", Role: RoleCoPI},
		}, err: ErrDuplicateInvestigator},
		{name: "bad role", team: Team{{InvestigatorID: "G0001", Role: "Lead"}}, err: ErrInvalidRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.team.Validate()
			if tc.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestTeam_MultiplePIReportsField(t *testing.T) {
	err := Team{{InvestigatorID: "a", Role: RolePI}, {InvestigatorID: "b", Role: RolePI}}.Validate()
	var mf *MissingFieldError
	require.ErrorAs(t, err, &mf)
	require.Equal(t, "investigators", mf.Field)
}

func TestParseRole(t *testing.T) {
	for raw, want := range map[string]Role{"PI": RolePI, "pi": RolePI, "CoPI": RoleCoPI, "Co-PI": RoleCoPI, "CO_PI": RoleCoPI} {
		got, err := ParseRole(raw)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseRole("lead")
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestTeam_String(t *testing.T) {
	team := Team{{InvestigatorID: "G0001", Role: RolePI}, {InvestigatorID: "G0002", Role: RoleCoPI}}
	require.Equal(t, "PI:G0001, CoPI:G0002", team.String())
	pi, ok := team.PI()
	require.True(t, ok)
	require.Equal(t, "G0001", pi.InvestigatorID)
	require.Equal(t, []string{"G0001", "G0002"}, team.IDs())
}
