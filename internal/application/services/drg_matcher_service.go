package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrNoMatch is returned when no tier of the matcher can relate the input to a
// known DRG definition. Callers decide whether to broaden the procedure filter
// or surface an empty result.
var ErrNoMatch = errors.New("no matching drg definition")

// MatchTier records which matching strategy produced a result, in decreasing
// order of confidence.
type MatchTier string

const (
	TierExactCode MatchTier = "exact_code"
	TierSubstring MatchTier = "substring"
	TierSynonym   MatchTier = "synonym"
	TierFuzzy     MatchTier = "fuzzy"
)

const (
	fuzzyMinSimilarity = 0.55
	fuzzyTopN          = 5
)

// synonymTable maps common lay terms to the clinical vocabulary used in DRG
// definition text. Checked longest-key-first so multi-word phrases win over
// their substrings.
var synonymTable = map[string]string{
	"knee replacement":  "major joint replacement",
	"hip replacement":   "major joint replacement",
	"joint replacement": "major joint replacement",
	"heart attack":      "acute myocardial infarction",
	"heart failure":     "heart failure",
	"stent":             "percutaneous cardiovascular procedure",
	"angioplasty":       "percutaneous cardiovascular procedure",
	"bypass surgery":    "coronary bypass",
	"gallbladder":       "cholecystectomy",
	"kidney infection":  "kidney and urinary tract infections",
	"uti":               "kidney and urinary tract infections",
	"pneumonia":         "simple pneumonia",
	"stroke":            "intracranial hemorrhage or cerebral infarction",
	"childbirth":        "vaginal delivery",
	"c-section":         "cesarean section",
	"appendix":          "appendectomy",
	"spine surgery":     "spinal fusion",
	"back surgery":      "spinal fusion",
	"sepsis":            "septicemia",
	"copd":              "chronic obstructive pulmonary disease",
}

// DRGMatch is the outcome of a successful match: the DRG codes to constrain a
// provider query with, and the tier that produced them.
type DRGMatch struct {
	Codes []string
	Tier  MatchTier
}

type drgEntry struct {
	code       string
	definition string
	lowered    string
	tokens     []string
}

// DRGMatcherService resolves a user-supplied DRG code or free-text procedure
// description into the DRG codes present in the dataset. The dictionary is
// loaded once at startup and never mutated, so concurrent reads are safe.
type DRGMatcherService struct {
	entries []drgEntry
	byCode  map[string][]int
}

// NewDRGMatcherService builds the matcher dictionary from the distinct DRG
// definition strings in the dataset. Definitions are expected in the MRF form
// "470 - MAJOR JOINT REPLACEMENT ..."; entries without a leading numeric code
// are indexed for text matching only.
func NewDRGMatcherService(definitions []string) *DRGMatcherService {
	svc := &DRGMatcherService{byCode: make(map[string][]int)}
	for _, def := range definitions {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}
		entry := drgEntry{
			definition: def,
			lowered:    strings.ToLower(def),
		}
		entry.code = leadingCode(def)
		entry.tokens = strings.Fields(entry.lowered)
		svc.entries = append(svc.entries, entry)
		if entry.code != "" {
			key := normalizeCode(entry.code)
			svc.byCode[key] = append(svc.byCode[key], len(svc.entries)-1)
		}
	}
	return svc
}

// DefinitionCount reports the dictionary size, exposed for startup logging.
func (s *DRGMatcherService) DefinitionCount() int {
	return len(s.entries)
}

// Match resolves input to DRG codes, stopping at the first tier that yields a
// non-empty result: exact numeric code, substring/token, synonym expansion,
// then fuzzy similarity. Returns ErrNoMatch when every tier comes up empty.
func (s *DRGMatcherService) Match(input string) (DRGMatch, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return DRGMatch{}, ErrNoMatch
	}

	if codes := s.matchExactCode(input); len(codes) > 0 {
		return DRGMatch{Codes: codes, Tier: TierExactCode}, nil
	}
	if codes := s.matchSubstring(strings.ToLower(input)); len(codes) > 0 {
		return DRGMatch{Codes: codes, Tier: TierSubstring}, nil
	}
	if codes := s.matchSynonym(strings.ToLower(input)); len(codes) > 0 {
		return DRGMatch{Codes: codes, Tier: TierSynonym}, nil
	}
	if codes := s.matchFuzzy(strings.ToLower(input)); len(codes) > 0 {
		return DRGMatch{Codes: codes, Tier: TierFuzzy}, nil
	}
	return DRGMatch{}, ErrNoMatch
}

// MatchBroad unions every tier's results, used when a stricter match produced
// an empty provider set and the search ladder relaxes the procedure filter.
func (s *DRGMatcherService) MatchBroad(input string) (DRGMatch, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return DRGMatch{}, ErrNoMatch
	}

	lowered := strings.ToLower(input)
	seen := make(map[string]bool)
	var codes []string
	add := func(found []string) {
		for _, c := range found {
			if !seen[c] {
				seen[c] = true
				codes = append(codes, c)
			}
		}
	}
	add(s.matchExactCode(input))
	add(s.matchSubstring(lowered))
	add(s.matchSynonym(lowered))
	add(s.matchFuzzy(lowered))

	if len(codes) == 0 {
		return DRGMatch{}, ErrNoMatch
	}
	return DRGMatch{Codes: codes, Tier: TierFuzzy}, nil
}

func (s *DRGMatcherService) matchExactCode(input string) []string {
	if !isNumeric(input) {
		return nil
	}
	indexes, ok := s.byCode[normalizeCode(input)]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var codes []string
	for _, i := range indexes {
		code := s.entries[i].code
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}

func (s *DRGMatcherService) matchSubstring(lowered string) []string {
	var codes []string
	seen := make(map[string]bool)

	for _, e := range s.entries {
		if e.code == "" || seen[e.code] {
			continue
		}
		if strings.Contains(e.lowered, lowered) {
			seen[e.code] = true
			codes = append(codes, e.code)
		}
	}
	if len(codes) > 0 {
		return codes
	}

	// Phrase not present verbatim: accept entries containing every
	// meaningful token of the input.
	tokens := meaningfulTokens(lowered)
	if len(tokens) == 0 {
		return nil
	}
	for _, e := range s.entries {
		if e.code == "" || seen[e.code] {
			continue
		}
		if containsAllTokens(e.lowered, tokens) {
			seen[e.code] = true
			codes = append(codes, e.code)
		}
	}
	return codes
}

func (s *DRGMatcherService) matchSynonym(lowered string) []string {
	keys := make([]string, 0, len(synonymTable))
	for k := range synonymTable {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	for _, key := range keys {
		if strings.Contains(lowered, key) {
			expanded := strings.ReplaceAll(lowered, key, synonymTable[key])
			if codes := s.matchSubstring(expanded); len(codes) > 0 {
				return codes
			}
		}
	}
	return nil
}

func (s *DRGMatcherService) matchFuzzy(lowered string) []string {
	inputTokens := strings.Fields(lowered)
	if len(inputTokens) == 0 {
		return nil
	}

	type scored struct {
		code       string
		similarity float64
	}
	best := make(map[string]float64)

	for _, e := range s.entries {
		if e.code == "" {
			continue
		}
		sim := windowSimilarity(lowered, inputTokens, e.tokens)
		if sim >= fuzzyMinSimilarity && sim > best[e.code] {
			best[e.code] = sim
		}
	}
	if len(best) == 0 {
		return nil
	}

	results := make([]scored, 0, len(best))
	for code, sim := range best {
		results = append(results, scored{code: code, similarity: sim})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].similarity != results[j].similarity {
			return results[i].similarity > results[j].similarity
		}
		return results[i].code < results[j].code
	})
	if len(results) > fuzzyTopN {
		results = results[:fuzzyTopN]
	}

	codes := make([]string, len(results))
	for i, r := range results {
		codes[i] = r.code
	}
	return codes
}

// windowSimilarity slides an input-sized token window over the definition and
// keeps the best normalized Levenshtein similarity, so a short phrase can match
// part of a long definition without the unmatched tail drowning the score.
func windowSimilarity(input string, inputTokens, defTokens []string) float64 {
	width := len(inputTokens)
	if width == 0 || len(defTokens) == 0 {
		return 0
	}
	if width > len(defTokens) {
		width = len(defTokens)
	}

	best := 0.0
	for i := 0; i+width <= len(defTokens); i++ {
		window := strings.Join(defTokens[i:i+width], " ")
		sim := similarity(input, window)
		if sim > best {
			best = sim
		}
	}
	return best
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// leadingCode extracts the numeric DRG code prefix of a definition string,
// preserving any leading zeros so the code can be prefix-matched against the
// stored definition text.
func leadingCode(definition string) string {
	i := 0
	for i < len(definition) && definition[i] >= '0' && definition[i] <= '9' {
		i++
	}
	return definition[:i]
}

func normalizeCode(code string) string {
	trimmed := strings.TrimLeft(code, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

var stopTokens = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "for": true,
	"and": true, "or": true, "with": true, "without": true, "in": true,
	"w": true, "w/o": true, "to": true,
}

func meaningfulTokens(lowered string) []string {
	var out []string
	for _, tok := range strings.Fields(lowered) {
		if len(tok) < 3 || stopTokens[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func containsAllTokens(text string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(text, tok) {
			return false
		}
	}
	return true
}
