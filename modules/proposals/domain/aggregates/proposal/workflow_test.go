package proposal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

func newTestProposal(t *testing.T) Proposal {
	t.Helper()
	p, err := New(
		Code{Year: 2025, Department: "CS", ProjectType: "IND", Serial: 1},
		1, 2,
		Fields{
			Title:         "Edge inference for crop disease detection",
			FundingAgency: "NSF",
			Investigators: Team{{InvestigatorID: "G0001", Role: RolePI}},
		},
		testTime,
	)
	require.NoError(t, err)
	return p
}

func withStatus(p Proposal, s Status) Proposal {
	p.status = s
	return p
}

func cost(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func TestNew_StartsAsDraft(t *testing.T) {
	p := newTestProposal(t)
	require.Equal(t, StatusDraft, p.Status())
	require.Equal(t, "G-2025-CS-IND-001", p.Code().String())
	require.Equal(t, testTime, p.CreatedAt())
}

func TestNew_RequiresTitleAndPI(t *testing.T) {
	_, err := New(Code{Year: 2025, Department: "CS", ProjectType: "IND", Serial: 1}, 1, 2,
		Fields{Investigators: Team{{InvestigatorID: "G0001", Role: RolePI}}}, testTime)
	require.ErrorIs(t, err, ErrMissingField)

	_, err = New(Code{Year: 2025, Department: "CS", ProjectType: "IND", Serial: 1}, 1, 2,
		Fields{Title: "x"}, testTime)
	require.ErrorIs(t, err, ErrMissingPI)
}

func TestTransition_IllegalEdgeLeavesProposalUnchanged(t *testing.T) {
	p := newTestProposal(t)
	got, err := p.Transition(StatusDisbursed, TransitionFields{}, testTime.Add(time.Hour))

	var ite *IllegalTransitionError
	require.ErrorAs(t, err, &ite)
	require.ErrorIs(t, err, ErrIllegalTransition)
	require.Equal(t, StatusDraft, ite.From)
	require.Equal(t, StatusDisbursed, ite.To)
	require.Equal(t, StatusDraft, got.Status())
	require.Equal(t, testTime, got.UpdatedAt())
}

func TestTransition_TerminalStatesHaveNoExit(t *testing.T) {
	for _, terminal := range []Status{StatusDisbursed, StatusRejected} {
		p := withStatus(newTestProposal(t), terminal)
		for _, target := range AllStatuses {
			_, err := p.Transition(target, TransitionFields{SanctionLetterNumber: "S", FinalSanctionedCost: cost("1")}, testTime)
			require.ErrorIs(t, err, ErrIllegalTransition)
		}
	}
}

func TestTransition_ApprovedRequiresSanctionFields(t *testing.T) {
	p := withStatus(newTestProposal(t), StatusUnderReview)

	_, err := p.Transition(StatusApproved, TransitionFields{}, testTime)
	var mf *MissingFieldError
	require.ErrorAs(t, err, &mf)
	require.Equal(t, "sanction_letter_number", mf.Field)

	_, err = p.Transition(StatusApproved, TransitionFields{SanctionLetterNumber: "SL/2025/17"}, testTime)
	require.ErrorAs(t, err, &mf)
	require.Equal(t, "final_sanctioned_cost", mf.Field)

	_, err = p.Transition(StatusApproved, TransitionFields{FinalSanctionedCost: cost("1250000.00")}, testTime)
	require.ErrorIs(t, err, ErrMissingField)

	at := testTime.Add(time.Minute)
	approved, err := p.Transition(StatusApproved, TransitionFields{
		SanctionLetterNumber: " SL/2025/17 ",
		FinalSanctionedCost:  cost("1250000.00"),
	}, at)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status())
	require.Equal(t, "SL/2025/17", approved.SanctionLetterNumber())
	require.True(t, approved.FinalSanctionedCost().Decimal.Equal(decimal.RequireFromString("1250000")))
	require.Equal(t, at, approved.UpdatedAt())
	require.Equal(t, StatusUnderReview, p.Status(), "receiver must not change")
}

func TestTransition_SubmittedMaySkipReview(t *testing.T) {
	p := withStatus(newTestProposal(t), StatusSubmitted)
	approved, err := p.Transition(StatusApproved, TransitionFields{SanctionLetterNumber: "SL-1", FinalSanctionedCost: cost("10")}, testTime)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status())
}

func TestTransition_SanctionedCostBounds(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"0", false},
		{"-5", false},
		{"0.004", false},
		{"1500.125", false},
		{"1000000000000", false},
		{"0.01", true},
		{"1500.000", true},
		{"999999999999.99", true},
	}
	p := withStatus(newTestProposal(t), StatusUnderReview)
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			next, err := p.Transition(StatusApproved, TransitionFields{SanctionLetterNumber: "SL-1", FinalSanctionedCost: cost(tc.value)}, testTime)
			if tc.ok {
				require.NoError(t, err)
				require.Equal(t, StatusApproved, next.Status())
				return
			}
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, "final_sanctioned_cost", fe.Field)
			require.ErrorIs(t, err, ErrInvalidField)
			require.Equal(t, StatusUnderReview, next.Status())
		})
	}
}

func TestEdit_CannotClearSanctionOnceApproved(t *testing.T) {
	p := withStatus(newTestProposal(t), StatusUnderReview)
	approved, err := p.Transition(StatusApproved, TransitionFields{SanctionLetterNumber: "SL-1", FinalSanctionedCost: cost("10")}, testTime)
	require.NoError(t, err)

	f, err := approved.Document().EditFields()
	require.NoError(t, err)
	f.SanctionLetterNumber = ""
	_, err = approved.Edit(f, testTime)
	require.ErrorIs(t, err, ErrMissingField)
}

func TestEdit_EndBeforeStart(t *testing.T) {
	p := newTestProposal(t)
	f, err := p.Document().EditFields()
	require.NoError(t, err)
	f.StartDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f.EndDate = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = p.Edit(f, testTime)
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestMarkDeleted(t *testing.T) {
	p := newTestProposal(t)
	at := testTime.Add(time.Hour)
	d := p.MarkDeleted(at)
	require.True(t, d.IsDeleted())
	require.False(t, p.IsDeleted())
	require.Equal(t, at, d.DeletedAt())
}
