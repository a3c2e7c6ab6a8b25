package scoring

import (
	"testing"

	"github.com/reelworks/crm-api/internal/entity"
)

func strPtr(s string) *string { return &s }

func TestCalculate_EmptyLead(t *testing.T) {
	lead := &entity.Lead{Status: entity.LeadStatusNew}

	breakdown := Calculate(lead, nil)

	if breakdown.Total != 0 {
		t.Fatalf("expected total 0 for empty lead, got %d", breakdown.Total)
	}
	if breakdown.ProfileCompleteness.Score != 0 {
		t.Fatalf("expected profile completeness 0, got %d", breakdown.ProfileCompleteness.Score)
	}
	if breakdown.Grade != GradeD {
		t.Fatalf("expected grade D, got %s", breakdown.Grade)
	}
	if breakdown.ShouldAutoQualify {
		t.Fatalf("empty lead must not auto-qualify")
	}
}

func TestCalculate_FullProfileCompleteness(t *testing.T) {
	lead := &entity.Lead{
		Status:       entity.LeadStatusNew,
		Email:        strPtr("owner@acme.com"),
		Phone:        strPtr("+15551234567"),
		BusinessName: strPtr("Acme"),
		Website:      strPtr("https://acme.com"),
		BudgetRange:  strPtr("around 2000"),
	}

	breakdown := Calculate(lead, nil)

	if breakdown.ProfileCompleteness.Score != 25 {
		t.Fatalf("expected profile completeness 25, got %d", breakdown.ProfileCompleteness.Score)
	}
	details := breakdown.ProfileCompleteness.Details
	if !details.HasEmail || !details.HasPhone || !details.HasBusinessName || !details.HasWebsite || !details.HasBudgetInfo {
		t.Fatalf("expected all profile details true, got %+v", details)
	}
}

func TestCalculate_WhitespaceFieldsCountAsAbsent(t *testing.T) {
	lead := &entity.Lead{
		Status: entity.LeadStatusNew,
		Email:  strPtr("   "),
		Phone:  strPtr(""),
	}

	breakdown := Calculate(lead, nil)

	if breakdown.ProfileCompleteness.Score != 0 {
		t.Fatalf("expected 0 for whitespace-only fields, got %d", breakdown.ProfileCompleteness.Score)
	}
}

func TestCalculate_QualifiedScenario(t *testing.T) {
	lead := &entity.Lead{
		Status:          entity.LeadStatusNew,
		Email:           strPtr("a@b.com"),
		BusinessName:    strPtr("Acme"),
		BudgetRange:     strPtr("1000-2000"),
		Timeline:        strPtr("asap please"),
		VideoGoals:      strPtr("grow our audience fast"),
		PackageInterest: strPtr("content-engine"),
	}
	conversations := []entity.VoiceConversation{
		{
			CallBooked:     true,
			Outcome:        strPtr("booked_call"),
			IntentDetected: strPtr("purchase"),
			Transcript:     strPtr("ready to purchase"),
		},
	}

	breakdown := Calculate(lead, conversations)

	if breakdown.ProfileCompleteness.Score != 15 {
		t.Fatalf("expected profile 15, got %d", breakdown.ProfileCompleteness.Score)
	}
	if breakdown.EngagementSignals.Score != 35 {
		t.Fatalf("expected engagement 35, got %d", breakdown.EngagementSignals.Score)
	}
	if breakdown.BusinessFit.Score != 30 {
		t.Fatalf("expected business fit 30, got %d", breakdown.BusinessFit.Score)
	}
	if breakdown.IntentSignals.Score != 35 {
		t.Fatalf("expected intent 35, got %d", breakdown.IntentSignals.Score)
	}
	if breakdown.Total != 115 {
		t.Fatalf("expected total 115, got %d", breakdown.Total)
	}
	if breakdown.Grade != GradeA {
		t.Fatalf("expected grade A, got %s", breakdown.Grade)
	}
	if !breakdown.ShouldAutoQualify {
		t.Fatalf("expected auto-qualify for total %d with email present", breakdown.Total)
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	lead := &entity.Lead{
		Status:          entity.LeadStatusNew,
		Email:           strPtr("a@b.com"),
		PackageInterest: strPtr("launch-kit"),
		BudgetRange:     strPtr("500"),
	}
	conversations := []entity.VoiceConversation{{Transcript: strPtr("let me think about it")}}

	first := Calculate(lead, conversations)
	second := Calculate(lead, conversations)

	if first.Total != second.Total {
		t.Fatalf("totals differ: %d vs %d", first.Total, second.Total)
	}
	if first.ProfileCompleteness != second.ProfileCompleteness {
		t.Fatalf("profile sub-scores differ")
	}
	if first.EngagementSignals != second.EngagementSignals {
		t.Fatalf("engagement sub-scores differ")
	}
	if first.BusinessFit != second.BusinessFit {
		t.Fatalf("business fit sub-scores differ")
	}
	if first.IntentSignals != second.IntentSignals {
		t.Fatalf("intent sub-scores differ")
	}
}

func TestGradeFor(t *testing.T) {
	cases := []struct {
		total int
		want  Grade
	}{
		{0, GradeD},
		{39, GradeD},
		{40, GradeC},
		{59, GradeC},
		{60, GradeB},
		{79, GradeB},
		{80, GradeA},
		{115, GradeA},
	}

	for _, tc := range cases {
		if got := GradeFor(tc.total); got != tc.want {
			t.Fatalf("GradeFor(%d)=%s, want %s", tc.total, got, tc.want)
		}
	}
}

func TestShouldAutoQualify(t *testing.T) {
	cases := map[string]struct {
		lead  entity.Lead
		total int
		want  bool
	}{
		"below threshold with contact info": {
			lead:  entity.Lead{Email: strPtr("a@b.com"), Phone: strPtr("+123")},
			total: 69,
			want:  false,
		},
		"at threshold without contact info": {
			lead:  entity.Lead{},
			total: 90,
			want:  false,
		},
		"at threshold with email only": {
			lead:  entity.Lead{Email: strPtr("a@b.com")},
			total: 70,
			want:  true,
		},
		"at threshold with phone only": {
			lead:  entity.Lead{Phone: strPtr("+15551234567")},
			total: 70,
			want:  true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := ShouldAutoQualify(&tc.lead, tc.total); got != tc.want {
				t.Fatalf("ShouldAutoQualify=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestBudgetMatchesPackageBands(t *testing.T) {
	cases := []struct {
		budget *string
		want   bool
	}{
		{nil, false},
		{strPtr(""), false},
		{strPtr("no idea yet"), false},
		{strPtr("$750 per month"), true},      // inside launch kit band
		{strPtr("1000-2000"), true},           // inside content engine band
		{strPtr("maybe 12000"), false},        // above all bands
		{strPtr("100 bucks"), false},          // below all bands
		{strPtr("the authority package"), true},
		{strPtr("around 2500"), true},         // keyword match
		{strPtr("launch budget tbd"), true},
	}

	for _, tc := range cases {
		label := "<nil>"
		if tc.budget != nil {
			label = *tc.budget
		}
		if got := budgetMatchesPackageBands(tc.budget); got != tc.want {
			t.Fatalf("budgetMatchesPackageBands(%q)=%v, want %v", label, got, tc.want)
		}
	}
}

func TestTimelineIsImmediate(t *testing.T) {
	cases := []struct {
		timeline *string
		want     bool
	}{
		{nil, false},
		{strPtr("sometime next year"), false},
		{strPtr("ASAP please"), true},
		{strPtr("we need this NOW"), true},
		{strPtr("within this month"), true},
	}

	for _, tc := range cases {
		if got := timelineIsImmediate(tc.timeline); got != tc.want {
			t.Fatalf("timelineIsImmediate(%v)=%v, want %v", tc.timeline, got, tc.want)
		}
	}
}

func TestIntentSignals_FromTranscriptOnly(t *testing.T) {
	lead := &entity.Lead{Status: entity.LeadStatusNew}
	conversations := []entity.VoiceConversation{
		{Transcript: strPtr("Sounds good, let's move forward with the plan")},
	}

	breakdown := Calculate(lead, conversations)

	if !breakdown.IntentSignals.Details.ExpressedPurchaseIntent {
		t.Fatalf("expected purchase intent from transcript phrase")
	}
	if breakdown.IntentSignals.Details.BookedCall {
		t.Fatalf("did not expect booked call")
	}
}

func TestIntentSignals_ProposalFromStatus(t *testing.T) {
	lead := &entity.Lead{Status: entity.LeadStatusProposalSent}

	breakdown := Calculate(lead, nil)

	if !breakdown.IntentSignals.Details.RequestedProposal {
		t.Fatalf("expected requested proposal for PROPOSAL_SENT status")
	}
	if breakdown.IntentSignals.Score != 10 {
		t.Fatalf("expected intent score 10, got %d", breakdown.IntentSignals.Score)
	}
}

func TestFirstNumber(t *testing.T) {
	cases := []struct {
		input string
		want  int
		ok    bool
	}{
		{"", 0, false},
		{"no digits", 0, false},
		{"$1,000", 1, true}, // comma ends the first digit run
		{"750 per month", 750, true},
		{"between 2500 and 5000", 2500, true},
	}

	for _, tc := range cases {
		got, ok := firstNumber(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("firstNumber(%q)=(%d,%v), want (%d,%v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}
