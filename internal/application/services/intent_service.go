package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
)

const milesToKm = 1.60934

// healthcareKeywords gates the ask pipeline: questions containing none of
// these are refused before any model call is made.
var healthcareKeywords = []string{
	"hospital", "provider", "doctor", "medical", "surgery", "procedure",
	"drg", "cost", "price", "cheap", "expensive", "rating", "quality",
	"treatment", "cardiac", "heart", "knee", "hip", "replacement",
	"emergency", "discharge", "medicare", "patient", "clinic",
}

// intentKeywords is checked in priority order so an explicit cost phrase wins
// over a location phrase in the same question.
var intentKeywords = []struct {
	intent   entities.SearchIntent
	keywords []string
}{
	{entities.IntentCheapest, []string{"cheapest", "cheap", "affordable", "lowest cost", "lowest price", "least expensive"}},
	{entities.IntentBestRated, []string{"best rated", "best-rated", "highest rated", "highest rating", "top rated", "best quality"}},
	{entities.IntentNearest, []string{"nearest", "closest", "nearby", "near me"}},
}

var (
	zipPattern    = regexp.MustCompile(`\b(\d{5})\b`)
	radiusPattern = regexp.MustCompile(`(?i)(?:within\s+)?(\d+(?:\.\d+)?)\s*(km|kilometers?|mi|miles?)\b`)
	drgPattern    = regexp.MustCompile(`(?i)\bdrg\s*#?\s*(\d{1,3})\b`)
)

// QuestionAnalysis is the classifier's best-effort reading of a free-text
// question: a ranking intent plus any criteria that could be extracted.
// Missing fields fall back to system defaults downstream; extraction never
// blocks a request.
type QuestionAnalysis struct {
	Intent        entities.SearchIntent
	ZipCode       string
	RadiusKm      float64
	DRGCode       string
	ProcedureText string
	InScope       bool
}

// IntentService classifies natural-language questions. It holds only static
// keyword tables, so a single instance serves all requests concurrently.
type IntentService struct{}

func NewIntentService() *IntentService {
	return &IntentService{}
}

// Classify inspects the question and returns the detected intent plus any
// extracted search criteria.
func (s *IntentService) Classify(question string) QuestionAnalysis {
	lowered := strings.ToLower(question)

	analysis := QuestionAnalysis{
		Intent:  entities.IntentBestValue,
		InScope: s.inScope(lowered),
	}

	for _, group := range intentKeywords {
		if containsAny(lowered, group.keywords) {
			analysis.Intent = group.intent
			break
		}
	}

	if m := zipPattern.FindStringSubmatch(question); m != nil {
		analysis.ZipCode = m[1]
	}
	if m := radiusPattern.FindStringSubmatch(question); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			if strings.HasPrefix(strings.ToLower(m[2]), "mi") {
				v *= milesToKm
			}
			analysis.RadiusKm = v
		}
	}
	if m := drgPattern.FindStringSubmatch(question); m != nil {
		analysis.DRGCode = m[1]
	}

	analysis.ProcedureText = s.extractProcedureText(lowered, analysis)
	return analysis
}

func (s *IntentService) inScope(lowered string) bool {
	return containsAny(lowered, healthcareKeywords)
}

// extractProcedureText strips intent phrases, location fragments, and filler
// from the question, leaving text the procedure matcher can work with.
func (s *IntentService) extractProcedureText(lowered string, analysis QuestionAnalysis) string {
	text := lowered

	text = drgPattern.ReplaceAllString(text, " ")
	text = radiusPattern.ReplaceAllString(text, " ")
	text = zipPattern.ReplaceAllString(text, " ")

	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			text = strings.ReplaceAll(text, kw, " ")
		}
	}
	for _, filler := range []string{
		"who is", "what is", "what's", "which", "show me", "find me", "find",
		"hospitals", "hospital", "providers", "provider", "for", "near",
		"zip code", "zip", "the", "within", "of", "in", "me", "a",
	} {
		text = strings.ReplaceAll(text, " "+filler+" ", " ")
		text = strings.TrimPrefix(text, filler+" ")
		text = strings.TrimSuffix(text, " "+filler)
	}

	text = strings.Map(func(r rune) rune {
		if r == '?' || r == ',' || r == '.' || r == '!' {
			return ' '
		}
		return r
	}, text)

	return strings.Join(strings.Fields(text), " ")
}

// ExamplePrompts lists questions the ask pipeline is known to handle well,
// served verbatim to clients.
func (s *IntentService) ExamplePrompts() []string {
	return []string{
		"Who is the cheapest for DRG 470 within 25 miles of 10001?",
		"What are the best rated hospitals for heart surgery in New York?",
		"Show me hospitals with lowest cost for knee replacement",
		"Which providers have the highest ratings for cardiac procedures?",
		"Find hospitals near ZIP code 10032 with good ratings",
		"What's the average cost for major joint replacement in NYC?",
		"Compare costs between hospitals for DRG 470",
		"Which hospital has the best value (cost vs rating) for knee surgery?",
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
