package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/openai"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/observability"
)

const (
	// dataUsedCap bounds the grounding row sample echoed back to the caller.
	dataUsedCap = 10

	askCacheTTLSeconds = 300
)

const (
	outOfScopeAnswer = "I can only help with hospital pricing and quality information. Please ask about medical procedures, costs, or hospital ratings."
	generateFailed   = "I encountered an error processing your question. Please try rephrasing it."
	rejectedAnswer   = "I can't answer that question safely. Please ask about specific procedures, costs, or hospital ratings."
	noDataAnswer     = "I couldn't find any data matching your criteria. Please try a different search."
)

// AskService runs the natural-language question pipeline: scope gate, SQL
// generation, safety validation, read-only execution, answer composition. The
// two model calls are sequential; the second depends on the first's validated
// results.
type AskService struct {
	llm      providers.LLMProvider
	guard    *SQLGuard
	executor repositories.ReadOnlyQueryExecutor
	intents  *IntentService
	cache    providers.CacheProvider
	metrics  *observability.Metrics
}

func NewAskService(
	llm providers.LLMProvider,
	guard *SQLGuard,
	executor repositories.ReadOnlyQueryExecutor,
	intents *IntentService,
	cache providers.CacheProvider,
	metrics *observability.Metrics,
) *AskService {
	return &AskService{
		llm:      llm,
		guard:    guard,
		executor: executor,
		intents:  intents,
		cache:    cache,
		metrics:  metrics,
	}
}

// Ask answers a free-text question grounded on database rows. Model failures
// degrade to deterministic text; only storage failures surface as errors.
func (s *AskService) Ask(ctx context.Context, question string) (*entities.AskResult, error) {
	log := observability.LoggerFromContext(ctx)

	question = strings.TrimSpace(question)
	analysis := s.intents.Classify(question)
	if !analysis.InScope {
		return &entities.AskResult{Answer: outOfScopeAnswer}, nil
	}

	if cached := s.cachedResult(ctx, question); cached != nil {
		return cached, nil
	}

	// No model configured: degrade the same way a failed call would.
	if s.llm == nil {
		observability.RecordAskStageError(ctx, s.metrics, "generate")
		return &entities.AskResult{Answer: generateFailed}, nil
	}

	plan := entities.QueryPlan{Question: question}

	hints := openai.QueryHints{
		Intent:        string(analysis.Intent),
		ZipCode:       analysis.ZipCode,
		DRGCode:       analysis.DRGCode,
		ProcedureText: analysis.ProcedureText,
	}
	generated, err := s.llm.Complete(ctx, openai.SQLGenerationSystemPrompt, openai.BuildSQLGenerationPrompt(question, hints))
	if err != nil {
		observability.RecordAskStageError(ctx, s.metrics, "generate")
		log.Warn().Err(err).Msg("sql generation failed")
		return &entities.AskResult{Answer: generateFailed}, nil
	}
	plan.GeneratedSQL = generated

	validated, err := s.guard.Validate(generated)
	if err != nil {
		observability.RecordAskStageError(ctx, s.metrics, "validate")
		log.Warn().Err(err).Str("sql", generated).Msg("generated sql rejected")
		return &entities.AskResult{Answer: rejectedAnswer}, nil
	}
	plan.Accepted = true
	plan.GeneratedSQL = validated

	columns, rows, err := s.executor.Query(ctx, validated)
	if err != nil {
		observability.RecordAskStageError(ctx, s.metrics, "execute")
		return nil, err
	}
	plan.Columns = columns
	plan.Rows = rows
	log.Debug().
		Str("sql", plan.GeneratedSQL).
		Int("columns", len(plan.Columns)).
		Int("rows", len(plan.Rows)).
		Bool("accepted", plan.Accepted).
		Msg("query plan executed")

	if len(rows) == 0 {
		return &entities.AskResult{Answer: noDataAnswer, GeneratedSQL: validated}, nil
	}

	sample := rows
	if len(sample) > dataUsedCap {
		sample = sample[:dataUsedCap]
	}

	answer, err := s.llm.Complete(ctx, openai.AnswerSystemPrompt, openai.BuildAnswerPrompt(question, sample))
	if err != nil {
		observability.RecordAskStageError(ctx, s.metrics, "compose")
		log.Warn().Err(err).Msg("answer composition failed, using templated fallback")
		answer = fallbackAnswer(sample)
	}

	result := &entities.AskResult{
		Answer:       answer,
		GeneratedSQL: validated,
		DataUsed:     sample,
	}
	s.storeResult(ctx, question, result)
	return result, nil
}

// ExamplePrompts exposes the questions the pipeline handles well.
func (s *AskService) ExamplePrompts() []string {
	return s.intents.ExamplePrompts()
}

// fallbackAnswer builds a deterministic summary straight from the grounding
// rows when the composition model is unavailable.
func fallbackAnswer(rows []map[string]interface{}) string {
	if len(rows) == 0 {
		return noDataAnswer
	}
	top := rows[0]

	name := firstString(top, "provider_name", "provider_id")
	cost := firstNumber(top, "average_covered_charges", "average_total_payments", "avg", "cost")

	switch {
	case name != "" && cost > 0:
		return fmt.Sprintf("Top result: %s, estimated cost $%.0f. %d matching records found.", name, cost, len(rows))
	case name != "":
		return fmt.Sprintf("Top result: %s. %d matching records found.", name, len(rows))
	default:
		return fmt.Sprintf("Found %d matching records.", len(rows))
	}
}

func firstString(row map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func firstNumber(row map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		switch v := row[k].(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		case string:
			var f float64
			if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
				return f
			}
		}
	}
	return 0
}

func (s *AskService) cachedResult(ctx context.Context, question string) *entities.AskResult {
	if s.cache == nil {
		return nil
	}
	key := askCacheKey(question)
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == nil {
		observability.RecordCacheMiss(ctx, s.metrics, "ask")
		return nil
	}
	var result entities.AskResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	observability.RecordCacheHit(ctx, s.metrics, "ask")
	return &result
}

func (s *AskService) storeResult(ctx context.Context, question string, result *entities.AskResult) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, askCacheKey(question), raw, askCacheTTLSeconds); err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Msg("ask cache write failed")
	}
}

func askCacheKey(question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.Join(strings.Fields(question), " "))))
	return "ask:" + hex.EncodeToString(sum[:])
}
