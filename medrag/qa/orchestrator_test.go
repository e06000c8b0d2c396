package qa

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/ragstack/medrag/medrag/qa/ports"
)

// StubGenerator implements Generator for testing. It records every prompt it
// receives so tests can assert on prompt routing.
type StubGenerator struct {
	mu           sync.Mutex
	completeFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)
	visionFunc   func(ctx context.Context, prompt string, image []byte) (string, error)
	prompts      []string
	visionCalls  int
}

func (g *StubGenerator) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.completeFunc != nil {
		return g.completeFunc(ctx, prompt, maxTokens)
	}
	return "This is a sufficiently long stub answer about the requested topic.", nil
}

func (g *StubGenerator) CompleteVision(ctx context.Context, prompt string, image []byte) (string, error) {
	g.mu.Lock()
	g.visionCalls++
	g.mu.Unlock()
	if g.visionFunc != nil {
		return g.visionFunc(ctx, prompt, image)
	}
	return "The image shows anatomical structures described in sufficient detail.", nil
}

func (g *StubGenerator) promptCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func (g *StubGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

var _ ports.Generator = (*StubGenerator)(nil)

// StubRetriever implements Retriever for testing.
type StubRetriever struct {
	mu         sync.Mutex
	searchFunc func(ctx context.Context, query string, k int) ([]ports.Chunk, error)
	calls      int
}

func (r *StubRetriever) Search(ctx context.Context, query string, k int, filter map[string]any) ([]ports.Chunk, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.searchFunc != nil {
		return r.searchFunc(ctx, query, k)
	}
	return nil, nil
}

func (r *StubRetriever) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

var _ ports.Retriever = (*StubRetriever)(nil)

// StubExtractor implements TextExtractor for testing.
type StubExtractor struct {
	text string
	err  error
}

func (e *StubExtractor) Extract(ctx context.Context, data []byte, filename string) (string, error) {
	return e.text, e.err
}

var _ ports.TextExtractor = (*StubExtractor)(nil)

func chunksOf(contents ...string) []ports.Chunk {
	chunks := make([]ports.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = ports.Chunk{Content: c}
	}
	return chunks
}

func newTestOrchestrator(gen *StubGenerator, ret *StubRetriever, ext ports.TextExtractor) *Orchestrator {
	logger := zerolog.Nop()
	prompts := NewPromptBuilder(0, "")
	classifier := NewClassifier(gen, 0, logger)
	validator := NewValidator(gen, prompts, 0, logger)
	history := NewHistoryManager(NewMemoryStore(), 0, logger)
	return NewOrchestrator(classifier, ret, gen, ext, prompts, validator, history, &noOpTracer{}, 3, 1000, logger)
}

// classifyThenAnswer returns a completion func that answers the classifier
// prompt with label and every other prompt with answer.
func classifyThenAnswer(label, answer string) func(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		if strings.Contains(prompt, "Respond with a single word") {
			return label, nil
		}
		return answer, nil
	}
}

func TestQuery_NonMedicalShortCircuit(t *testing.T) {
	gen := &StubGenerator{completeFunc: classifyThenAnswer("non-medical", "should never be asked")}
	ret := &StubRetriever{}
	o := newTestOrchestrator(gen, ret, nil)

	res := o.Query(context.Background(), QueryRequest{
		Question:  "What is the best programming language for games?",
		SessionID: "s1",
	})

	assert.True(t, res.Success)
	assert.Equal(t, RefusalSentence, res.Answer)
	assert.Equal(t, "non-medical", res.Classification)
	assert.Equal(t, 0, res.ChunksFound)
	// Only the classification call reached the generator, and retrieval was
	// skipped entirely.
	assert.Equal(t, 1, gen.promptCount())
	assert.Equal(t, 0, ret.callCount())
	// Refused questions are not recorded in the conversation history.
	assert.Empty(t, o.History(context.Background(), "s1"))
}

func TestQuery_SufficientContext(t *testing.T) {
	answer := "Type 2 diabetes is managed through diet, exercise, and medication under professional guidance."
	gen := &StubGenerator{completeFunc: classifyThenAnswer("medical", answer)}
	ret := &StubRetriever{searchFunc: func(ctx context.Context, query string, k int) ([]ports.Chunk, error) {
		assert.Equal(t, 3, k)
		return chunksOf("Diabetes overview passage.", "Insulin function passage.", "Management guidance passage."), nil
	}}
	o := newTestOrchestrator(gen, ret, nil)

	res := o.Query(context.Background(), QueryRequest{Question: "How is diabetes managed?", SessionID: "s1"})

	require.True(t, res.Success)
	assert.Equal(t, answer, res.Answer)
	assert.Equal(t, 3, res.ChunksFound)
	assert.Equal(t, "medical", res.Classification)

	// The answer prompt embedded all retrieved passages in order.
	prompt := gen.lastPrompt()
	assert.Contains(t, prompt, "Diabetes overview passage.\n\nInsulin function passage.\n\nManagement guidance passage.")
	assert.Contains(t, prompt, "How is diabetes managed?")

	entries := o.History(context.Background(), "s1")
	require.Len(t, entries, 1)
	assert.Equal(t, "How is diabetes managed?", entries[0].Question)
	assert.Equal(t, answer, entries[0].Answer)
}

func TestQuery_MedicalNoContext(t *testing.T) {
	answer := "HP is not a standard medical abbreviation; the user may mean pH levels, which measure acidity in body fluids."
	gen := &StubGenerator{completeFunc: classifyThenAnswer("medical", answer)}
	ret := &StubRetriever{}
	o := newTestOrchestrator(gen, ret, nil)

	res := o.Query(context.Background(), QueryRequest{Question: "What are HP levels in the body?", SessionID: "s1"})

	require.True(t, res.Success)
	assert.Equal(t, answer, res.Answer)
	assert.Equal(t, 0, res.ChunksFound)
	// Zero chunks on a medical question routes to the directive prompt, not a
	// refusal.
	assert.Contains(t, gen.lastPrompt(), "I don't have specific information about this in my database")
	assert.Contains(t, gen.lastPrompt(), "hp")
}

func TestQuery_OneChunkMedicalUsesPartialContext(t *testing.T) {
	gen := &StubGenerator{completeFunc: classifyThenAnswer("medical", "The liver filters blood and metabolizes nutrients, drugs, and toxins.")}
	ret := &StubRetriever{searchFunc: func(ctx context.Context, query string, k int) ([]ports.Chunk, error) {
		return chunksOf("Liver function passage."), nil
	}}
	o := newTestOrchestrator(gen, ret, nil)

	res := o.Query(context.Background(), QueryRequest{Question: "What does the liver do?", SessionID: "s1"})

	require.True(t, res.Success)
	assert.Equal(t, 1, res.ChunksFound)
	assert.Contains(t, gen.lastPrompt(), "limited information in my database")
	assert.Contains(t, gen.lastPrompt(), "Liver function passage.")
}

func TestQuery_GeneratorDownCannedFallback(t *testing.T) {
	gen := &StubGenerator{completeFunc: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		return "", errors.New("model unavailable")
	}}
	o := newTestOrchestrator(gen, &StubRetriever{}, nil)

	res := o.Query(context.Background(), QueryRequest{Question: "What is nursing?", SessionID: "s1"})

	require.True(t, res.Success)
	assert.Contains(t, res.Answer, "Nursing is a healthcare profession")
	// Classification, generation, and one escalation all hit the failing
	// generator before the canned answer was used.
	assert.Equal(t, 3, gen.promptCount())
}

func TestQuery_RetrieverErrorLastResort(t *testing.T) {
	answer := "Blood pressure measures the force of circulating blood on vessel walls."
	gen := &StubGenerator{completeFunc: classifyThenAnswer("medical", answer)}
	ret := &StubRetriever{searchFunc: func(ctx context.Context, query string, k int) ([]ports.Chunk, error) {
		return nil, errors.New("index offline")
	}}
	o := newTestOrchestrator(gen, ret, nil)

	res := o.Query(context.Background(), QueryRequest{Question: "What is blood pressure?", SessionID: "s1"})

	assert.True(t, res.Success)
	assert.Equal(t, answer, res.Answer)
	assert.Contains(t, res.Err, "index offline")
}

func TestQuery_EverythingDownStaticApology(t *testing.T) {
	gen := &StubGenerator{completeFunc: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		return "", errors.New("model unavailable")
	}}
	ret := &StubRetriever{searchFunc: func(ctx context.Context, query string, k int) ([]ports.Chunk, error) {
		return nil, errors.New("index offline")
	}}
	o := newTestOrchestrator(gen, ret, nil)

	res := o.Query(context.Background(), QueryRequest{Question: "What is blood pressure?", SessionID: "s1"})

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Err)
	assert.Contains(t, res.Answer, "I encountered an issue generating a response")
}

func TestQuery_GeneratesSessionID(t *testing.T) {
	gen := &StubGenerator{completeFunc: classifyThenAnswer("medical", "Hydration supports circulation, digestion, and temperature regulation.")}
	o := newTestOrchestrator(gen, &StubRetriever{}, nil)

	res := o.Query(context.Background(), QueryRequest{Question: "Why is hydration important for health?"})

	assert.NotEmpty(t, res.SessionID)
	assert.Len(t, o.History(context.Background(), res.SessionID), 1)
}

func TestQuery_ImageUpload(t *testing.T) {
	gen := &StubGenerator{}
	o := newTestOrchestrator(gen, &StubRetriever{}, nil)

	up, err := ResolveUpload("scan.png", []byte{0x89, 0x50})
	require.NoError(t, err)

	res := o.Query(context.Background(), QueryRequest{SessionID: "s1", Upload: up})

	require.True(t, res.Success)
	assert.True(t, res.FileProcessed)
	assert.Equal(t, 1, gen.visionCalls)
	assert.Equal(t, 0, res.ChunksFound)

	entries := o.History(context.Background(), "s1")
	require.Len(t, entries, 1)
	assert.Equal(t, "[File uploaded: scan.png]", entries[0].Question)
}

func TestQuery_DocumentUpload(t *testing.T) {
	answer := "The report documents elevated blood glucose values consistent with the stated history."
	gen := &StubGenerator{completeFunc: classifyThenAnswer("medical", answer)}
	ext := &StubExtractor{text: "Patient report: fasting glucose 142 mg/dL."}
	o := newTestOrchestrator(gen, &StubRetriever{}, ext)

	up, err := ResolveUpload("report.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	res := o.Query(context.Background(), QueryRequest{
		Question:  "What does this report say about blood sugar?",
		SessionID: "s1",
		Upload:    up,
	})

	require.True(t, res.Success)
	assert.True(t, res.FileProcessed)
	assert.Equal(t, answer, res.Answer)
	assert.Contains(t, gen.lastPrompt(), "Patient report: fasting glucose 142 mg/dL.")
}

func TestQuery_DocumentExtractionFailure(t *testing.T) {
	gen := &StubGenerator{}
	ext := &StubExtractor{err: errors.New("encrypted pdf")}
	o := newTestOrchestrator(gen, &StubRetriever{}, ext)

	up, err := ResolveUpload("locked.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	res := o.Query(context.Background(), QueryRequest{Question: "Summarize this medical file", SessionID: "s1", Upload: up})

	assert.False(t, res.Success)
	assert.True(t, res.FileProcessed)
	assert.Contains(t, res.Answer, "Error processing file")
	assert.Contains(t, res.Err, "encrypted pdf")
}

func TestDeleteSession(t *testing.T) {
	gen := &StubGenerator{completeFunc: classifyThenAnswer("medical", "Vaccines train the immune system to recognize specific pathogens.")}
	o := newTestOrchestrator(gen, &StubRetriever{}, nil)

	o.Query(context.Background(), QueryRequest{Question: "How do vaccines work?", SessionID: "s1"})
	require.Len(t, o.History(context.Background(), "s1"), 1)

	require.NoError(t, o.DeleteSession(context.Background(), "s1"))
	assert.Empty(t, o.History(context.Background(), "s1"))

	// Deleting an unknown session is not an error.
	assert.NoError(t, o.DeleteSession(context.Background(), "missing"))
}

func TestAPIQuery_RequiresQuestion(t *testing.T) {
	o := newTestOrchestrator(&StubGenerator{}, &StubRetriever{}, nil)

	res := o.APIQuery(context.Background(), APIRequest{Question: "   "})

	assert.False(t, res.Success)
	assert.Equal(t, "query text is required", res.Err)
}

func TestAPIQuery_MedicalPayload(t *testing.T) {
	answer := "The heart pumps oxygenated blood through the arterial system to the body's tissues."
	gen := &StubGenerator{completeFunc: classifyThenAnswer("medical", answer)}
	ret := &StubRetriever{searchFunc: func(ctx context.Context, query string, k int) ([]ports.Chunk, error) {
		return chunksOf("Cardiac anatomy passage.", "Circulation passage."), nil
	}}
	o := newTestOrchestrator(gen, ret, nil)

	res := o.APIQuery(context.Background(), APIRequest{
		Question:   "How does the heart circulate blood?",
		SessionID:  "s1",
		Disclaimer: "For education only.",
	})

	require.True(t, res.Success)
	assert.Equal(t, answer, res.Answer)
	assert.Equal(t, "medical", res.Classification)
	assert.Equal(t, 2, res.ChunksFound)
	assert.Equal(t, "s1", res.SessionID)
	assert.Contains(t, res.Disclaimer, "You are MedBot")
	assert.Contains(t, res.Disclaimer, "For education only.")
	assert.Contains(t, res.RAGContext, "Cardiac anatomy passage.")
	require.Len(t, res.ContextSnippets, 2)

	assert.Len(t, o.History(context.Background(), "s1"), 1)
}

func TestAPIQuery_NonMedicalRefusal(t *testing.T) {
	gen := &StubGenerator{completeFunc: classifyThenAnswer("non-medical", "unused")}
	o := newTestOrchestrator(gen, &StubRetriever{}, nil)

	res := o.APIQuery(context.Background(), APIRequest{Question: "Who won the stock market today?", SessionID: "s1"})

	require.True(t, res.Success)
	assert.Equal(t, RefusalSentence, res.Answer)
	assert.Equal(t, "non-medical", res.Classification)
	assert.Empty(t, o.History(context.Background(), "s1"))
}

func TestAPIQuery_RetrievalFailureTolerated(t *testing.T) {
	answer := "Antibiotics target bacterial infections and have no effect on viruses."
	gen := &StubGenerator{completeFunc: classifyThenAnswer("medical", answer)}
	ret := &StubRetriever{searchFunc: func(ctx context.Context, query string, k int) ([]ports.Chunk, error) {
		return nil, errors.New("index offline")
	}}
	o := newTestOrchestrator(gen, ret, nil)

	res := o.APIQuery(context.Background(), APIRequest{Question: "When do antibiotics help an infection?", SessionID: "s1"})

	require.True(t, res.Success)
	assert.Equal(t, answer, res.Answer)
	assert.Equal(t, 0, res.ChunksFound)
	assert.Equal(t, "No context retrieved from the knowledge base.", res.RAGContext)
	assert.NotNil(t, res.ContextSnippets)
	assert.Empty(t, res.ContextSnippets)
}

func TestAPIQuery_PriorChatTranscript(t *testing.T) {
	gen := &StubGenerator{completeFunc: classifyThenAnswer("medical", "A1C reflects average blood glucose over roughly three months.")}
	o := newTestOrchestrator(gen, &StubRetriever{}, nil)

	res := o.APIQuery(context.Background(), APIRequest{
		Question:  "What does that test measure?",
		SessionID: "s1",
		PriorChat: []ChatMessage{
			{Role: "user", Content: "My doctor ordered an A1C test."},
			{Role: "assistant", Content: "That is a common blood test for diabetes monitoring."},
		},
	})

	require.True(t, res.Success)
	assert.Contains(t, gen.lastPrompt(), "User: My doctor ordered an A1C test.")
	assert.Contains(t, gen.lastPrompt(), "Assistant: That is a common blood test for diabetes monitoring.")
}
