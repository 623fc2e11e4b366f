package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
	apperrors "github.com/costnav/healthcare-cost-navigator/pkg/errors"
)

type llmStub struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *llmStub) Complete(_ context.Context, _ string, userPrompt string) (string, error) {
	s.prompts = append(s.prompts, userPrompt)
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

type executorStub struct {
	columns []string
	rows    []map[string]interface{}
	err     error
	calls   int
	lastSQL string
}

func (s *executorStub) Query(_ context.Context, sqlText string) ([]string, []map[string]interface{}, error) {
	s.calls++
	s.lastSQL = sqlText
	return s.columns, s.rows, s.err
}

type memoryCache struct {
	store map[string][]byte
}

func newMemoryCache() *memoryCache { return &memoryCache{store: make(map[string][]byte)} }

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	return c.store[key], nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.store[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	delete(c.store, key)
	return nil
}

func (c *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.store[key]
	return ok, nil
}

func hospitalRows(n int) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, map[string]interface{}{
			"provider_name":           fmt.Sprintf("HOSPITAL %d", i),
			"average_covered_charges": 45000.0 + float64(i)*1000,
		})
	}
	return rows
}

func newAskService(llm *llmStub, executor *executorStub, cache providers.CacheProvider) *AskService {
	return NewAskService(llm, NewSQLGuard(), executor, NewIntentService(), cache, nil)
}

func TestAsk_OutOfScopeIsRefusedBeforeAnyModelCall(t *testing.T) {
	llm := &llmStub{}
	executor := &executorStub{}
	svc := newAskService(llm, executor, nil)

	result, err := svc.Ask(context.Background(), "What is the weather in Paris?")

	require.NoError(t, err)
	assert.Equal(t, outOfScopeAnswer, result.Answer)
	assert.Empty(t, result.GeneratedSQL)
	assert.Empty(t, result.DataUsed)
	assert.Zero(t, llm.calls)
	assert.Zero(t, executor.calls)
}

func TestAsk_HappyPath(t *testing.T) {
	llm := &llmStub{responses: []string{
		"SELECT provider_name, average_covered_charges FROM providers ORDER BY average_covered_charges ASC LIMIT 10",
		"Hospital 0 is the cheapest at $45,000.",
	}}
	executor := &executorStub{columns: []string{"provider_name", "average_covered_charges"}, rows: hospitalRows(2)}
	svc := newAskService(llm, executor, nil)

	result, err := svc.Ask(context.Background(), "Who is the cheapest hospital for DRG 470?")

	require.NoError(t, err)
	assert.Equal(t, "Hospital 0 is the cheapest at $45,000.", result.Answer)
	assert.Contains(t, result.GeneratedSQL, "SELECT")
	assert.Len(t, result.DataUsed, 2)
	assert.Equal(t, 2, llm.calls)
	assert.Equal(t, 1, executor.calls)
}

func TestAsk_GenerationPromptCarriesExtractedEntities(t *testing.T) {
	llm := &llmStub{responses: []string{
		"SELECT provider_name FROM providers WHERE provider_zip_code = '10001' LIMIT 10",
		"HOSPITAL 0 is closest.",
	}}
	executor := &executorStub{rows: hospitalRows(1)}
	svc := newAskService(llm, executor, nil)

	_, err := svc.Ask(context.Background(), "What is the cheapest hospital for DRG 470 near 10001?")

	require.NoError(t, err)
	require.NotEmpty(t, llm.prompts)
	generation := llm.prompts[0]
	assert.Contains(t, generation, "User preference: cheapest")
	assert.Contains(t, generation, "ZIP code mentioned: 10001")
	assert.Contains(t, generation, "DRG code mentioned: 470")
}

func TestAsk_GenerationFailureDegradesGracefully(t *testing.T) {
	llm := &llmStub{errs: []error{providers.ErrModelUnavailable}}
	executor := &executorStub{}
	svc := newAskService(llm, executor, nil)

	result, err := svc.Ask(context.Background(), "Cheapest hospital for knee replacement?")

	require.NoError(t, err)
	assert.Equal(t, generateFailed, result.Answer)
	assert.Empty(t, result.GeneratedSQL)
	assert.Zero(t, executor.calls)
}

func TestAsk_RejectedSQLNeverExecutes(t *testing.T) {
	llm := &llmStub{responses: []string{"DROP TABLE providers"}}
	executor := &executorStub{}
	svc := newAskService(llm, executor, nil)

	result, err := svc.Ask(context.Background(), "Delete all hospital records please, doctor")

	require.NoError(t, err)
	assert.Equal(t, rejectedAnswer, result.Answer)
	assert.Empty(t, result.GeneratedSQL)
	assert.Zero(t, executor.calls)
}

func TestAsk_StorageFailurePropagates(t *testing.T) {
	llm := &llmStub{responses: []string{"SELECT provider_name FROM providers LIMIT 10"}}
	executor := &executorStub{err: apperrors.NewUnavailableError("database unavailable", nil)}
	svc := newAskService(llm, executor, nil)

	_, err := svc.Ask(context.Background(), "Which hospital has the best ratings?")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
}

func TestAsk_ComposeFailureUsesTemplatedFallback(t *testing.T) {
	llm := &llmStub{
		responses: []string{"SELECT provider_name, average_covered_charges FROM providers LIMIT 10", ""},
		errs:      []error{nil, providers.ErrModelUnavailable},
	}
	executor := &executorStub{rows: hospitalRows(3)}
	svc := newAskService(llm, executor, nil)

	result, err := svc.Ask(context.Background(), "Cheapest hospital for heart surgery?")

	require.NoError(t, err)
	assert.Contains(t, result.Answer, "Top result: HOSPITAL 0")
	assert.Contains(t, result.Answer, "$45000")
	assert.Len(t, result.DataUsed, 3)
}

func TestAsk_EmptyRowsShortCircuitComposition(t *testing.T) {
	llm := &llmStub{responses: []string{"SELECT provider_name FROM providers LIMIT 10"}}
	executor := &executorStub{}
	svc := newAskService(llm, executor, nil)

	result, err := svc.Ask(context.Background(), "Hospital prices for DRG 999?")

	require.NoError(t, err)
	assert.Equal(t, noDataAnswer, result.Answer)
	assert.NotEmpty(t, result.GeneratedSQL)
	assert.Equal(t, 1, llm.calls)
}

func TestAsk_DataUsedIsCapped(t *testing.T) {
	llm := &llmStub{responses: []string{
		"SELECT provider_name FROM providers LIMIT 50",
		"Lots of hospitals.",
	}}
	executor := &executorStub{rows: hospitalRows(25)}
	svc := newAskService(llm, executor, nil)

	result, err := svc.Ask(context.Background(), "List every hospital with surgery pricing")

	require.NoError(t, err)
	assert.Len(t, result.DataUsed, dataUsedCap)
}

func TestAsk_CachedAnswerSkipsPipeline(t *testing.T) {
	cache := newMemoryCache()
	llm := &llmStub{responses: []string{
		"SELECT provider_name, average_covered_charges FROM providers LIMIT 10",
		"Hospital 0 is the cheapest.",
	}}
	executor := &executorStub{rows: hospitalRows(1)}
	svc := newAskService(llm, executor, cache)

	first, err := svc.Ask(context.Background(), "Cheapest hospital for DRG 470?")
	require.NoError(t, err)

	second, err := svc.Ask(context.Background(), "cheapest  hospital for drg 470?")
	require.NoError(t, err)

	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, 2, llm.calls)
	assert.Equal(t, 1, executor.calls)
}
