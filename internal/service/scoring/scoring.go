// Package scoring evaluates leads on a 0-100 scale across four categories:
// profile completeness, engagement signals, business fit and intent signals.
//
// Calculate is pure and total: it performs no I/O, and absent or malformed
// fields simply contribute zero points. Category weights are summed as listed;
// the MaxScore carried on each category is informational and not enforced as a
// clamp, so engagement signals can contribute more than their nominal maximum.
package scoring

import (
	"strings"
	"time"
	"unicode"

	"github.com/reelworks/crm-api/internal/entity"
)

// Grade is the letter bucket derived from the total score.
type Grade string

// Grade boundaries: A >= 80, B >= 60, C >= 40, D below.
const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// AutoQualifyThreshold is the minimum total for automatic qualification.
const AutoQualifyThreshold = 70

const categoryMax = 25

type budgetBand struct {
	min int
	max int
}

// Price bands for the four productized packages: Launch Kit, Content Engine,
// Content Engine PRO and Authority Engine.
var packageBudgetBands = []budgetBand{
	{min: 497, max: 997},
	{min: 997, max: 2497},
	{min: 2497, max: 4997},
	{min: 4997, max: 10000},
}

var packageKeywords = []string{"launch", "content", "authority", "500", "1000", "2500"}

var immediateTimelineKeywords = []string{"immediate", "asap", "now", "this week", "this month", "urgent"}

var purchaseIntentKeywords = []string{"purchase", "buy", "ready"}

var purchaseIntentPhrases = []string{
	"i want to buy",
	"ready to purchase",
	"let's move forward",
	"sign up",
	"get started",
}

var proposalPhrases = []string{"send proposal", "quote", "pricing details"}

// ProfileCompletenessDetails justifies the profile completeness sub-score.
type ProfileCompletenessDetails struct {
	HasEmail        bool `json:"hasEmail"`
	HasPhone        bool `json:"hasPhone"`
	HasBusinessName bool `json:"hasBusinessName"`
	HasWebsite      bool `json:"hasWebsite"`
	HasBudgetInfo   bool `json:"hasBudgetInfo"`
}

// ProfileCompleteness scores how much of the lead profile is filled in.
type ProfileCompleteness struct {
	Score    int                        `json:"score"`
	MaxScore int                        `json:"maxScore"`
	Details  ProfileCompletenessDetails `json:"details"`
}

// EngagementSignalsDetails justifies the engagement sub-score. Pricing-page and
// checkout signals are proxies inferred from package interest and budget fields,
// not real page-visit tracking.
type EngagementSignalsDetails struct {
	VisitedPricingPage    bool `json:"visitedPricingPage"`
	StartedCheckout       bool `json:"startedCheckout"`
	HadVoiceConversation  bool `json:"hadVoiceConversation"`
	MultipleConversations bool `json:"multipleConversations"`
	ConversationCount     int  `json:"conversationCount"`
}

// EngagementSignals scores how actively the lead has interacted.
type EngagementSignals struct {
	Score    int                      `json:"score"`
	MaxScore int                      `json:"maxScore"`
	Details  EngagementSignalsDetails `json:"details"`
}

// BusinessFitDetails justifies the business fit sub-score.
type BusinessFitDetails struct {
	BudgetMatchesPackages  bool `json:"budgetMatchesPackages"`
	TimelineIsImmediate    bool `json:"timelineIsImmediate"`
	HasVideoMarketingGoals bool `json:"hasVideoMarketingGoals"`
}

// BusinessFit scores how well the lead matches the agency's offering.
type BusinessFit struct {
	Score    int                `json:"score"`
	MaxScore int                `json:"maxScore"`
	Details  BusinessFitDetails `json:"details"`
}

// IntentSignalsDetails justifies the intent sub-score.
type IntentSignalsDetails struct {
	ExpressedPurchaseIntent bool `json:"expressedPurchaseIntent"`
	BookedCall              bool `json:"bookedCall"`
	RequestedProposal       bool `json:"requestedProposal"`
}

// IntentSignals scores explicit buying signals from voice conversations.
type IntentSignals struct {
	Score    int                  `json:"score"`
	MaxScore int                  `json:"maxScore"`
	Details  IntentSignalsDetails `json:"details"`
}

// Breakdown is the full result of scoring a lead. It is recomputed in full on
// every pass and stored on the lead for audit and display.
type Breakdown struct {
	Total               int                 `json:"total"`
	ProfileCompleteness ProfileCompleteness `json:"profileCompleteness"`
	EngagementSignals   EngagementSignals   `json:"engagementSignals"`
	BusinessFit         BusinessFit         `json:"businessFit"`
	IntentSignals       IntentSignals       `json:"intentSignals"`
	Grade               Grade               `json:"grade"`
	ShouldAutoQualify   bool                `json:"shouldAutoQualify"`
	CalculatedAt        time.Time           `json:"calculatedAt"`
}

// Calculate produces the score breakdown for a lead and its conversations.
func Calculate(lead *entity.Lead, conversations []entity.VoiceConversation) Breakdown {
	profile := scoreProfileCompleteness(lead)
	engagement := scoreEngagementSignals(lead, conversations)
	fit := scoreBusinessFit(lead)
	intent := scoreIntentSignals(lead, conversations)

	total := profile.Score + engagement.Score + fit.Score + intent.Score

	return Breakdown{
		Total:               total,
		ProfileCompleteness: profile,
		EngagementSignals:   engagement,
		BusinessFit:         fit,
		IntentSignals:       intent,
		Grade:               GradeFor(total),
		ShouldAutoQualify:   ShouldAutoQualify(lead, total),
		CalculatedAt:        time.Now().UTC(),
	}
}

// GradeFor maps a total score onto its letter grade.
func GradeFor(total int) Grade {
	switch {
	case total >= 80:
		return GradeA
	case total >= 60:
		return GradeB
	case total >= 40:
		return GradeC
	default:
		return GradeD
	}
}

// ShouldAutoQualify reports whether the lead qualifies automatically: the total
// must reach the threshold and the lead must be reachable by email or phone.
func ShouldAutoQualify(lead *entity.Lead, total int) bool {
	return total >= AutoQualifyThreshold && (hasText(lead.Email) || hasText(lead.Phone))
}

func scoreProfileCompleteness(lead *entity.Lead) ProfileCompleteness {
	details := ProfileCompletenessDetails{
		HasEmail:        hasText(lead.Email),
		HasPhone:        hasText(lead.Phone),
		HasBusinessName: hasText(lead.BusinessName),
		HasWebsite:      hasText(lead.Website),
		HasBudgetInfo:   hasText(lead.BudgetRange) || hasText(lead.BudgetAllocated),
	}

	score := 0
	if details.HasEmail {
		score += 5
	}
	if details.HasPhone {
		score += 5
	}
	if details.HasBusinessName {
		score += 5
	}
	if details.HasWebsite {
		score += 5
	}
	if details.HasBudgetInfo {
		score += 5
	}

	return ProfileCompleteness{Score: score, MaxScore: categoryMax, Details: details}
}

func scoreEngagementSignals(lead *entity.Lead, conversations []entity.VoiceConversation) EngagementSignals {
	count := len(conversations)
	details := EngagementSignalsDetails{
		VisitedPricingPage:    hasText(lead.PackageInterest),
		StartedCheckout:       hasText(lead.PackageInterest) && hasText(lead.BudgetRange),
		HadVoiceConversation:  count > 0,
		MultipleConversations: count > 1,
		ConversationCount:     count,
	}

	score := 0
	if details.VisitedPricingPage {
		score += 10
	}
	if details.StartedCheckout {
		score += 15
	}
	if details.HadVoiceConversation {
		score += 10
	}
	if details.MultipleConversations {
		score += 5
	}

	return EngagementSignals{Score: score, MaxScore: categoryMax, Details: details}
}

func scoreBusinessFit(lead *entity.Lead) BusinessFit {
	details := BusinessFitDetails{
		BudgetMatchesPackages:  budgetMatchesPackageBands(lead.BudgetRange),
		TimelineIsImmediate:    timelineIsImmediate(lead.Timeline),
		HasVideoMarketingGoals: hasText(lead.VideoGoals) && len(strings.TrimSpace(*lead.VideoGoals)) > 10,
	}

	score := 0
	if details.BudgetMatchesPackages {
		score += 15
	}
	if details.TimelineIsImmediate {
		score += 10
	}
	if details.HasVideoMarketingGoals {
		score += 5
	}

	return BusinessFit{Score: score, MaxScore: categoryMax, Details: details}
}

func scoreIntentSignals(lead *entity.Lead, conversations []entity.VoiceConversation) IntentSignals {
	details := IntentSignalsDetails{
		ExpressedPurchaseIntent: expressedPurchaseIntent(conversations),
		BookedCall:              bookedCall(conversations),
		RequestedProposal:       requestedProposal(lead, conversations),
	}

	score := 0
	if details.ExpressedPurchaseIntent {
		score += 15
	}
	if details.BookedCall {
		score += 20
	}
	if details.RequestedProposal {
		score += 10
	}

	return IntentSignals{Score: score, MaxScore: categoryMax, Details: details}
}

// budgetMatchesPackageBands reports whether free-text budget information lines
// up with one of the package price bands, either by the first number found in
// the text or by a package keyword mention.
func budgetMatchesPackageBands(budgetRange *string) bool {
	if !hasText(budgetRange) {
		return false
	}
	budget := strings.ToLower(*budgetRange)

	if amount, ok := firstNumber(budget); ok {
		for _, band := range packageBudgetBands {
			if amount >= band.min && amount <= band.max {
				return true
			}
		}
	}

	return containsAny(budget, packageKeywords)
}

// timelineIsImmediate reports whether the stated timeline suggests urgency.
func timelineIsImmediate(timeline *string) bool {
	if !hasText(timeline) {
		return false
	}
	return containsAny(strings.ToLower(*timeline), immediateTimelineKeywords)
}

// expressedPurchaseIntent scans the detected intent and raw transcripts for
// buying language.
func expressedPurchaseIntent(conversations []entity.VoiceConversation) bool {
	for _, conv := range conversations {
		if hasText(conv.IntentDetected) && containsAny(strings.ToLower(*conv.IntentDetected), purchaseIntentKeywords) {
			return true
		}
	}
	for _, conv := range conversations {
		if transcriptSuggestsPurchaseIntent(conv.Transcript) {
			return true
		}
	}
	return false
}

// transcriptSuggestsPurchaseIntent matches the fixed buying-phrase set against
// a lowercased transcript.
func transcriptSuggestsPurchaseIntent(transcript *string) bool {
	if !hasText(transcript) {
		return false
	}
	return containsAny(strings.ToLower(*transcript), purchaseIntentPhrases)
}

func bookedCall(conversations []entity.VoiceConversation) bool {
	for _, conv := range conversations {
		if conv.CallBooked {
			return true
		}
		if conv.Outcome != nil && *conv.Outcome == "booked_call" {
			return true
		}
	}
	return false
}

func requestedProposal(lead *entity.Lead, conversations []entity.VoiceConversation) bool {
	if lead.Status == entity.LeadStatusProposalSent {
		return true
	}
	for _, conv := range conversations {
		if hasText(conv.Transcript) && containsAny(strings.ToLower(*conv.Transcript), proposalPhrases) {
			return true
		}
	}
	return false
}

func hasText(value *string) bool {
	return value != nil && strings.TrimSpace(*value) != ""
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

// firstNumber extracts the first run of digits from the text.
func firstNumber(text string) (int, bool) {
	value := 0
	seen := false
	for _, r := range text {
		if unicode.IsDigit(r) {
			seen = true
			value = value*10 + int(r-'0')
			continue
		}
		if seen {
			break
		}
	}
	return value, seen
}
