package openai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaDescription is the fixed schema context handed to the SQL generation
// stage. It mirrors the providers and ratings tables exactly; the safety
// validator enforces that generated SQL stays inside it.
const SchemaDescription = `Available tables and columns:

providers table:
- provider_id (string): CMS ID for the hospital
- provider_name (string): Hospital name
- provider_city (string): Hospital city
- provider_state (string): Hospital state
- provider_zip_code (string): Hospital ZIP code
- ms_drg_definition (string): Procedure description (e.g., "470 - Major Joint Replacement w/o MCC")
- total_discharges (integer): Number of procedures
- average_covered_charges (float): Average hospital charges
- average_total_payments (float): Total payments
- average_medicare_payments (float): Medicare payments
- latitude (float): Hospital latitude
- longitude (float): Hospital longitude

ratings table:
- provider_id (string): Foreign key to providers
- rating (float): Rating from 1-10
- category (string): Rating category (overall, cardiac, orthopedic, etc.)

Common DRG codes:
- 470: Major Joint Replacement (knee, hip)
- 247: Percutaneous Cardiovascular Procedure
- 292: Heart Failure & Shock
- 690: Kidney & Urinary Tract Infections`

// SQLGenerationSystemPrompt constrains the first stage to one read-only
// statement over the known schema.
const SQLGenerationSystemPrompt = `You are a SQL expert for a healthcare database. Return only a single valid PostgreSQL SELECT statement, no explanations and no markdown.`

// AnswerSystemPrompt constrains the second stage to the grounding rows.
const AnswerSystemPrompt = `You are a helpful healthcare assistant. Provide clear, accurate answers based only on the hospital data you are given. Never invent numbers that are not in the data.`

// QueryHints carries entities extracted from the question ahead of the model
// call. Non-empty fields are surfaced in the prompt so the model does not have
// to re-derive them.
type QueryHints struct {
	Intent        string
	ZipCode       string
	DRGCode       string
	ProcedureText string
}

func (h QueryHints) render() string {
	var lines []string
	if h.Intent != "" {
		lines = append(lines, fmt.Sprintf("- User preference: %s", h.Intent))
	}
	if h.ZipCode != "" {
		lines = append(lines, fmt.Sprintf("- ZIP code mentioned: %s", h.ZipCode))
	}
	if h.DRGCode != "" {
		lines = append(lines, fmt.Sprintf("- DRG code mentioned: %s", h.DRGCode))
	}
	if h.ProcedureText != "" {
		lines = append(lines, fmt.Sprintf("- Procedure described: %s", h.ProcedureText))
	}
	if len(lines) == 0 {
		return ""
	}
	return "\nExtracted from the question:\n" + strings.Join(lines, "\n") + "\n"
}

// BuildSQLGenerationPrompt renders the user prompt for the SQL stage.
func BuildSQLGenerationPrompt(question string, hints QueryHints) string {
	return fmt.Sprintf(`Convert the following natural language question into a SQL query.

Database Schema:
%s

Question: %s
%s
Rules:
1. Only return the SQL query, no explanations
2. Produce exactly one SELECT statement
3. Use proper JOIN syntax when needed
4. For location-based queries, use ZIP codes or city names
5. For DRG matching, use ILIKE with partial matches
6. For cost queries, sort by average_covered_charges
7. For rating queries, join with ratings table and use AVG()
8. Always include a LIMIT between 10 and 50
9. Use PostgreSQL syntax
10. If you alias tables, use only the aliases p (providers) and r (ratings); never use comments or semicolons
11. If you alias computed columns, use only avg_rating, avg_cost, avg_charge, avg_payment, total, cnt, provider_count, min_cost or max_cost

SQL Query:`, SchemaDescription, question, hints.render())
}

// BuildAnswerPrompt renders the user prompt for the answer stage with a
// bounded row sample as grounding context.
func BuildAnswerPrompt(question string, rows []map[string]interface{}) string {
	sample, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		sample = []byte("[]")
	}

	return fmt.Sprintf(`Based on the following database results, provide a natural, helpful answer to the user's question.

User Question: %s

Database Results:
%s

Instructions:
1. Provide a direct, conversational answer
2. Include specific hospital names, costs, and ratings when relevant
3. If showing costs, format them as currency (e.g., $25,000)
4. If showing ratings, mention them clearly (e.g., "rating: 8.5/10")
5. Keep the response concise but informative
6. Don't mention technical details like SQL queries or table names

Answer:`, question, string(sample))
}
