package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSQLGenerationPrompt_IncludesHints(t *testing.T) {
	got := BuildSQLGenerationPrompt("cheapest knee replacement near 10001", QueryHints{
		Intent:        "cheapest",
		ZipCode:       "10001",
		ProcedureText: "knee replacement",
	})

	assert.Contains(t, got, "Extracted from the question:")
	assert.Contains(t, got, "User preference: cheapest")
	assert.Contains(t, got, "ZIP code mentioned: 10001")
	assert.Contains(t, got, "Procedure described: knee replacement")
}

func TestBuildSQLGenerationPrompt_EmptyHintsAddNothing(t *testing.T) {
	got := BuildSQLGenerationPrompt("show me hospital data", QueryHints{})

	assert.NotContains(t, got, "Extracted from the question:")
	assert.Contains(t, got, "show me hospital data")
}

func TestBuildAnswerPrompt_EmbedsRowSample(t *testing.T) {
	rows := []map[string]interface{}{
		{"provider_name": "TEST MEDICAL CENTER", "average_covered_charges": 52000.0},
	}

	got := BuildAnswerPrompt("how much does it cost?", rows)

	assert.Contains(t, got, "TEST MEDICAL CENTER")
	assert.Contains(t, got, "how much does it cost?")
}
