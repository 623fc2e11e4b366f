package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/costnav/healthcare-cost-navigator/pkg/errors"
)

// maxResultRows caps how many rows a generated query may return. A missing
// LIMIT is injected; a larger one is clamped.
const maxResultRows = 50

// allowedTables and allowedColumns define the schema a generated query may
// reference. Anything outside them is rejected, fail-closed.
var allowedTables = map[string]bool{
	"providers": true,
	"ratings":   true,
}

var allowedColumns = map[string]bool{
	"provider_id":               true,
	"provider_name":             true,
	"provider_city":             true,
	"provider_state":            true,
	"provider_zip_code":         true,
	"ms_drg_definition":         true,
	"total_discharges":          true,
	"average_covered_charges":   true,
	"average_total_payments":    true,
	"average_medicare_payments": true,
	"latitude":                  true,
	"longitude":                 true,
	"rating":                    true,
	"category":                  true,
}

// allowedWords covers the SQL vocabulary a read-only analytical query needs.
// Tokens outside this set, the schema allow-list, and numeric/string literals
// cause rejection.
var allowedWords = map[string]bool{
	"select": true, "from": true, "where": true, "as": true, "on": true,
	"and": true, "or": true, "not": true, "in": true, "is": true, "null": true,
	"join": true, "inner": true, "left": true, "right": true, "full": true, "outer": true,
	"group": true, "by": true, "order": true, "having": true,
	"limit": true, "offset": true, "asc": true, "desc": true, "distinct": true,
	"like": true, "ilike": true, "between": true, "exists": true,
	"case": true, "when": true, "then": true, "else": true, "end": true,
	"with": true, "true": true, "false": true, "nulls": true, "first": true, "last": true,
	"avg": true, "count": true, "sum": true, "min": true, "max": true,
	"round": true, "coalesce": true, "nullif": true, "abs": true, "cast": true,
	"lower": true, "upper": true, "trim": true, "length": true, "substring": true,
	"numeric": true, "integer": true, "float": true, "text": true, "bigint": true,
	"any": true, "all": true, "p": true, "r": true,
	// computed-column aliases the generation prompt permits
	"avg_rating": true, "avg_cost": true, "avg_charge": true, "avg_payment": true,
	"total": true, "cnt": true, "provider_count": true,
	"min_cost": true, "max_cost": true,
}

// forbiddenVerbs are data- or schema-modifying (or administrative) statements.
// Their presence anywhere in the query is an immediate rejection, even inside
// a subquery.
var forbiddenVerbs = []string{
	"insert", "update", "delete", "drop", "alter", "create", "truncate",
	"grant", "revoke", "copy", "vacuum", "execute", "call", "merge",
	"comment", "set", "listen", "notify", "prepare", "deallocate",
	"lock", "reindex", "cluster", "refresh", "do", "pg_sleep", "pg_read_file",
	"into", "returning", "union", "intersect", "except",
}

var (
	codeFencePattern  = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	stringLitPattern  = regexp.MustCompile(`'(?:[^']|'')*'`)
	identifierPattern = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
	limitPattern      = regexp.MustCompile(`(?i)\blimit\s+(\d+)`)
)

// SQLGuard statically validates a generated query against the allow-list
// policy before it may touch storage. It holds no state; one instance serves
// all requests.
type SQLGuard struct{}

func NewSQLGuard() *SQLGuard {
	return &SQLGuard{}
}

// Validate checks the candidate query and returns the executable text with a
// row cap guaranteed. Every failing rule yields a REJECTED error carrying the
// reason; rejected queries must never reach execution.
func (g *SQLGuard) Validate(candidate string) (string, error) {
	text := strings.TrimSpace(candidate)
	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if text == "" {
		return "", apperrors.NewRejectedError("empty query")
	}

	// Exactly one statement: a trailing separator is tolerated, any other
	// separator means a second statement is being smuggled in.
	text = strings.TrimRight(text, "; \t\n")
	if strings.Contains(text, ";") {
		return "", apperrors.NewRejectedError("multiple statements are not allowed")
	}
	if strings.Contains(text, "--") || strings.Contains(text, "/*") || strings.Contains(text, "#") {
		return "", apperrors.NewRejectedError("comments are not allowed")
	}

	lowered := strings.ToLower(text)
	if !strings.HasPrefix(lowered, "select") && !strings.HasPrefix(lowered, "with") {
		return "", apperrors.NewRejectedError("only SELECT statements are allowed")
	}

	// Scan with string literals removed so their contents cannot trip or
	// evade the word checks.
	scannable := stringLitPattern.ReplaceAllString(lowered, "''")
	for _, verb := range forbiddenVerbs {
		if containsWord(scannable, verb) {
			return "", apperrors.NewRejectedError(fmt.Sprintf("forbidden keyword: %s", strings.ToUpper(verb)))
		}
	}

	for _, ident := range identifierPattern.FindAllString(scannable, -1) {
		if allowedWords[ident] || allowedTables[ident] || allowedColumns[ident] {
			continue
		}
		return "", apperrors.NewRejectedError(fmt.Sprintf("identifier not in schema allow-list: %s", ident))
	}

	return g.enforceRowCap(text), nil
}

// enforceRowCap injects a LIMIT when missing and clamps an oversized one. Only
// a LIMIT on the outer statement counts: one buried in a subquery does not cap
// the result set.
func (g *SQLGuard) enforceRowCap(text string) string {
	if loc := outerLimit(text); loc != nil {
		if n, err := strconv.Atoi(text[loc[2]:loc[3]]); err == nil && n > maxResultRows {
			return text[:loc[0]] + fmt.Sprintf("LIMIT %d", maxResultRows) + text[loc[1]:]
		}
		return text
	}
	return text + fmt.Sprintf(" LIMIT %d", maxResultRows)
}

// outerLimit locates a LIMIT clause at parenthesis depth zero and returns
// {start, end, numStart, numEnd} offsets, or nil when the outer statement has
// no cap. String literals are skipped so their contents cannot open or close
// depth.
func outerLimit(text string) []int {
	lowered := strings.ToLower(text)
	depth := 0
	for i := 0; i < len(lowered); i++ {
		switch lowered[i] {
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		case '\'':
			j := i + 1
			for j < len(lowered) {
				if lowered[j] == '\'' {
					if j+1 < len(lowered) && lowered[j+1] == '\'' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			i = j
			continue
		}
		if depth != 0 || lowered[i] != 'l' {
			continue
		}
		if i > 0 && isWordChar(lowered[i-1]) {
			continue
		}
		m := limitPattern.FindStringSubmatchIndex(lowered[i:])
		if m == nil || m[0] != 0 {
			continue
		}
		return []int{i + m[0], i + m[1], i + m[2], i + m[3]}
	}
	return nil
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		before := start == 0 || !isWordChar(text[start-1])
		after := end == len(text) || !isWordChar(text[end])
		if before && after {
			return true
		}
		idx = end
	}
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
