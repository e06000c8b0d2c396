package qa

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	ports "github.com/ragstack/medrag/medrag/qa/ports"
)

// Verdict is the typed outcome of judging a generated answer.
type Verdict int

const (
	VerdictValid Verdict = iota
	VerdictEmpty
	VerdictTooShort
	VerdictBoilerplate
)

// Judge classifies an answer without side effects. Detection rules: empty or
// whitespace-only, shorter than minAnswerLength, or containing any fixed
// boilerplate refusal/failure phrase (matched case-insensitively).
func Judge(answer string) Verdict {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return VerdictEmpty
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(lower, phrase) {
			return VerdictBoilerplate
		}
	}
	if len(trimmed) < minAnswerLength {
		return VerdictTooShort
	}
	return VerdictValid
}

// Validator guarantees a usable answer for in-domain questions by escalating
// through the fallback cascade: one directive re-generation, then a static
// canned sentence. All failures are recovered locally.
type Validator struct {
	generator ports.Generator
	prompts   *PromptBuilder
	maxTokens int
	logger    zerolog.Logger
}

func NewValidator(generator ports.Generator, prompts *PromptBuilder, maxTokens int, logger zerolog.Logger) *Validator {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Validator{generator: generator, prompts: prompts, maxTokens: maxTokens, logger: logger}
}

// Ensure returns the answer unchanged when it passes validation; otherwise it
// runs the cascade. The escalation is capped at a single generator call, so
// validation never loops.
func (v *Validator) Ensure(ctx context.Context, answer, question string, style Style) string {
	if Judge(answer) == VerdictValid {
		return answer
	}

	v.logger.Warn().
		Str("question", question).
		Str("answer", answer).
		Msg("invalid or insufficient answer, entering fallback cascade")

	if !containsMedicalTerm(question) {
		return RefusalSentence
	}

	if v.generator != nil {
		escalated, err := v.generator.Complete(ctx, v.prompts.BuildEscalation(question, matchedMedicalTerms(question)), v.maxTokens)
		if err == nil && Judge(escalated) == VerdictValid {
			return escalated
		}
		if err != nil {
			v.logger.Warn().Err(err).Msg("escalated re-generation failed, using canned fallback")
		}
	}

	return cannedFallback(question)
}
