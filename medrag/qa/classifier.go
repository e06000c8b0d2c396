package qa

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	ports "github.com/ragstack/medrag/medrag/qa/ports"
)

// Classification is the topic gate decision for a question.
type Classification int

const (
	ClassificationUnknown Classification = iota
	ClassificationMedical
	ClassificationNonMedical
)

func (c Classification) String() string {
	switch c {
	case ClassificationMedical:
		return "medical"
	case ClassificationNonMedical:
		return "non-medical"
	default:
		return "unknown"
	}
}

const classifierInstructions = "You are a classifier that labels user questions as either medical or non-medical. " +
	"Respond with a single word: 'medical' if the primary intent is about health, medicine, " +
	"or healthcare topics; otherwise respond with 'non-medical'.\n\nQuestion: "

// Classifier decides whether a question is in-domain. The primary path asks
// the generator for a one-word label; when that call fails or the label is
// unparseable it degrades silently to the keyword heuristic, so topic gating
// keeps working with the generator offline.
type Classifier struct {
	generator ports.Generator
	maxTokens int
	logger    zerolog.Logger
}

// NewClassifier creates a classifier. maxTokens bounds the label completion
// (a handful of tokens is enough for a single word).
func NewClassifier(generator ports.Generator, maxTokens int, logger zerolog.Logger) *Classifier {
	if maxTokens <= 0 {
		maxTokens = 5
	}
	return &Classifier{generator: generator, maxTokens: maxTokens, logger: logger}
}

// Classify labels a question. An empty question is Unknown without any
// generator call.
func (c *Classifier) Classify(ctx context.Context, question string) Classification {
	if strings.TrimSpace(question) == "" {
		return ClassificationUnknown
	}

	if cls, ok := c.classifyPrimary(ctx, question); ok {
		return cls
	}

	return keywordClassify(question)
}

func (c *Classifier) classifyPrimary(ctx context.Context, question string) (Classification, bool) {
	if c.generator == nil {
		return ClassificationUnknown, false
	}

	label, err := c.generator.Complete(ctx, classifierInstructions+question, c.maxTokens)
	if err != nil {
		c.logger.Debug().Err(err).Msg("classifier generator call failed, using keyword fallback")
		return ClassificationUnknown, false
	}

	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.ReplaceAll(normalized, "nonmedical", "non-medical")
	switch {
	case strings.HasPrefix(normalized, "non-medical"), strings.HasPrefix(normalized, "non medical"):
		return ClassificationNonMedical, true
	case strings.HasPrefix(normalized, "medical"):
		return ClassificationMedical, true
	default:
		return ClassificationUnknown, false
	}
}

// keywordClassify is the deterministic fallback: a non-medical term with no
// medical term wins, then any medical term, else Unknown.
func keywordClassify(question string) Classification {
	hasMedical := containsMedicalTerm(question)
	switch {
	case containsNonMedicalTerm(question) && !hasMedical:
		return ClassificationNonMedical
	case hasMedical:
		return ClassificationMedical
	default:
		return ClassificationUnknown
	}
}
