package qa

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestJudge(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   Verdict
	}{
		{"valid", "The liver metabolizes drugs and filters toxins from the blood.", VerdictValid},
		{"empty", "", VerdictEmpty},
		{"whitespace only", "   \n\t  ", VerdictEmpty},
		{"too short", "Yes, it can.", VerdictTooShort},
		{"boilerplate", "I don't know the answer to that question.", VerdictBoilerplate},
		{"boilerplate case-insensitive", "Sorry, I Cannot Provide A Response right now.", VerdictBoilerplate},
		{"boilerplate embedded", "Unfortunately there is not enough information in the provided context to say.", VerdictBoilerplate},
		{"boilerplate beats length", "I couldn't generate a response despite reviewing all of the provided medical context in detail.", VerdictBoilerplate},
		{"exactly at threshold", "12345678901234567890", VerdictValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Judge(tt.answer))
		})
	}
}

func TestEnsure_ValidAnswerUnchanged(t *testing.T) {
	gen := &StubGenerator{}
	v := NewValidator(gen, NewPromptBuilder(0, ""), 0, zerolog.Nop())

	answer := "Anemia is a shortage of healthy red blood cells or hemoglobin."
	got := v.Ensure(context.Background(), answer, "What is anemia?", StyleBasic)

	assert.Equal(t, answer, got)
	assert.Equal(t, 0, gen.promptCount())
}

func TestEnsure_NonMedicalQuestionRefused(t *testing.T) {
	gen := &StubGenerator{}
	v := NewValidator(gen, NewPromptBuilder(0, ""), 0, zerolog.Nop())

	got := v.Ensure(context.Background(), "", "What is your favorite movie?", StyleBasic)

	assert.Equal(t, RefusalSentence, got)
	assert.Equal(t, 0, gen.promptCount())
}

func TestEnsure_EscalationRepairsAnswer(t *testing.T) {
	escalated := "Blood pressure is the force of circulating blood against artery walls, measured in mmHg."
	gen := &StubGenerator{completeFunc: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		return escalated, nil
	}}
	v := NewValidator(gen, NewPromptBuilder(0, ""), 0, zerolog.Nop())

	got := v.Ensure(context.Background(), "I don't know.", "What is blood pressure?", StyleBasic)

	assert.Equal(t, escalated, got)
	assert.Equal(t, 1, gen.promptCount())
	assert.Contains(t, gen.lastPrompt(), "What is blood pressure?")
	assert.Contains(t, gen.lastPrompt(), "Never say you don't know")
}

func TestEnsure_InvalidEscalationFallsToCanned(t *testing.T) {
	// The escalated answer itself fails validation, so the cascade ends at the
	// canned sentence.
	gen := &StubGenerator{completeFunc: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		return "I don't know.", nil
	}}
	v := NewValidator(gen, NewPromptBuilder(0, ""), 0, zerolog.Nop())

	got := v.Ensure(context.Background(), "", "Tell me about the human body", StyleBasic)

	assert.Contains(t, got, "The human body is a complex biological system")
	assert.Equal(t, 1, gen.promptCount())
}

func TestEnsure_EscalationErrorFallsToCanned(t *testing.T) {
	gen := &StubGenerator{completeFunc: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		return "", errors.New("model unavailable")
	}}
	v := NewValidator(gen, NewPromptBuilder(0, ""), 0, zerolog.Nop())

	got := v.Ensure(context.Background(), "", "What is a nursing career like?", StyleBasic)

	assert.Contains(t, got, "Nursing is a healthcare profession")
	assert.Equal(t, 1, gen.promptCount())
}

func TestEnsure_GenericCannedFallback(t *testing.T) {
	gen := &StubGenerator{completeFunc: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		return "", errors.New("model unavailable")
	}}
	v := NewValidator(gen, NewPromptBuilder(0, ""), 0, zerolog.Nop())

	got := v.Ensure(context.Background(), "", "What is the prognosis for this condition?", StyleBasic)

	assert.Contains(t, got, "consult with a healthcare professional")
}
