package qa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ports "github.com/ragstack/medrag/medrag/qa/ports"
)

// QueryRequest is one conversational query.
type QueryRequest struct {
	Question  string
	SessionID string // generated when blank
	Style     Style
	K         int // retrieval count, 0 = configured default
	Upload    Upload
}

// Result is the conversational outcome of a query. Constructed fresh per
// call, never mutated after return.
type Result struct {
	Answer         string  `json:"answer"`
	ChunksFound    int     `json:"chunks_found"`
	QueryTime      float64 `json:"query_time"`
	Success        bool    `json:"success"`
	Err            string  `json:"error,omitempty"`
	Classification string  `json:"classification,omitempty"`
	SessionID      string  `json:"session_id,omitempty"`
	FileProcessed  bool    `json:"file_processed,omitempty"`
}

// ChatMessage is a caller-supplied prior transcript turn for the structured
// entry point.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// APIRequest is one structured/API query.
type APIRequest struct {
	Question                      string
	SessionID                     string
	K                             int
	IncludeHistory                bool
	Disclaimer                    string
	PriorChat                     []ChatMessage
	ExternalKnowledgeInstructions string
}

// APIResult is the structured outcome, always carrying the diagnostic fields.
type APIResult struct {
	Success                     bool          `json:"success"`
	Answer                      string        `json:"answer"`
	Classification              string        `json:"classification"`
	ChunksFound                 int           `json:"chunks_found"`
	SessionID                   string        `json:"session_id"`
	Disclaimer                  string        `json:"disclaimer"`
	ConversationHistoryIncluded bool          `json:"conversation_history_included"`
	RAGContext                  string        `json:"rag_context"`
	ContextSnippets             []ports.Chunk `json:"context_snippets"`
	Err                         string        `json:"error,omitempty"`
}

// fileFailureAnswer substitutes for empty generator output on upload queries.
const fileFailureAnswer = "The system processed your file but couldn't generate a response. This might be due to API limits or content restrictions."

// Orchestrator sequences classification, retrieval, prompt tiering,
// generation, validation, and history persistence for a single-domain RAG
// question-answering pipeline. Each request runs strictly sequentially;
// independent requests may run in parallel.
type Orchestrator struct {
	classifier *Classifier
	retriever  ports.Retriever
	generator  ports.Generator
	extractor  ports.TextExtractor
	prompts    *PromptBuilder
	validator  *Validator
	history    *HistoryManager
	tracer     ports.Tracer
	retrievalK int
	maxTokens  int
	logger     zerolog.Logger
}

// NewOrchestrator wires the pipeline. retrievalK and maxTokens fall back to
// their defaults (3 and 1000) when non-positive.
func NewOrchestrator(
	classifier *Classifier,
	retriever ports.Retriever,
	generator ports.Generator,
	extractor ports.TextExtractor,
	prompts *PromptBuilder,
	validator *Validator,
	history *HistoryManager,
	tracer ports.Tracer,
	retrievalK int,
	maxTokens int,
	logger zerolog.Logger,
) *Orchestrator {
	if retrievalK <= 0 {
		retrievalK = 3
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	if tracer == nil {
		tracer = &noOpTracer{}
	}
	return &Orchestrator{
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		extractor:  extractor,
		prompts:    prompts,
		validator:  validator,
		history:    history,
		tracer:     tracer,
		retrievalK: retrievalK,
		maxTokens:  maxTokens,
		logger:     logger,
	}
}

// Query processes one conversational query end to end. It never returns an
// error and never panics: unexpected failures are converted into the
// error-fallback response.
func (o *Orchestrator) Query(ctx context.Context, req QueryRequest) Result {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.K <= 0 {
		req.K = o.retrievalK
	}

	ctx, finish := o.tracer.StartSpan(ctx, "query", map[string]any{
		"session_id": req.SessionID,
		"style":      string(req.Style),
	})

	res, err := o.query(ctx, req)
	if err != nil {
		res = o.errorFallback(ctx, req, err)
	}
	finish(err)
	return res
}

func (o *Orchestrator) query(ctx context.Context, req QueryRequest) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("query panic: %v", r)
		}
	}()

	history := o.history.Formatted(ctx, req.SessionID)
	cls := o.classifier.Classify(ctx, req.Question)

	// Unambiguously off-topic questions without an attachment skip retrieval
	// and generation entirely.
	if cls == ClassificationNonMedical && req.Upload == nil {
		return Result{
			Answer:         RefusalSentence,
			ChunksFound:    0,
			Success:        true,
			Classification: cls.String(),
			SessionID:      req.SessionID,
		}, nil
	}

	if req.Upload != nil {
		return o.queryUpload(ctx, req, history, cls)
	}

	start := time.Now()

	chunks, err := o.retriever.Search(ctx, req.Question, req.K, nil)
	if err != nil {
		return Result{}, fmt.Errorf("retrieving context: %w", err)
	}
	chunksFound := len(chunks)
	o.tracer.Event(ctx, "retrieved", map[string]any{"chunks_found": chunksFound})

	var prompt string
	switch {
	case chunksFound >= 2:
		prompt = o.prompts.Build(req.Question, JoinChunks(chunks), req.Style, history)
	case cls == ClassificationMedical:
		prompt = o.prompts.BuildInsufficientMedical(req.Question, JoinChunks(chunks), matchedMedicalTerms(req.Question))
	case chunksFound > 0:
		prompt = o.prompts.Build(req.Question, JoinChunks(chunks), req.Style, history)
	default:
		prompt = o.prompts.BuildNoContext(req.Question, req.Style, history)
	}

	answer := o.generate(ctx, prompt)
	answer = o.validator.Ensure(ctx, answer, req.Question, req.Style)

	o.history.Append(ctx, req.SessionID, req.Question, answer)

	return Result{
		Answer:         answer,
		ChunksFound:    chunksFound,
		QueryTime:      time.Since(start).Seconds(),
		Success:        true,
		Classification: cls.String(),
		SessionID:      req.SessionID,
	}, nil
}

// generate runs the generator, treating any failure as an empty answer for
// the validator to repair.
func (o *Orchestrator) generate(ctx context.Context, prompt string) string {
	answer, err := o.generator.Complete(ctx, prompt, o.maxTokens)
	if err != nil {
		o.logger.Warn().Err(err).Msg("generation failed, continuing with empty answer")
		o.tracer.Event(ctx, "generation_failed", map[string]any{"error": err.Error()})
		return ""
	}
	return answer
}

// queryUpload handles file-bearing queries: images go straight to the vision
// capability, documents through text extraction and the file-analysis
// prompts. Retrieval is bypassed; validation and persistence are not.
func (o *Orchestrator) queryUpload(ctx context.Context, req QueryRequest, history string, cls Classification) (Result, error) {
	start := time.Now()

	label := req.Question
	if strings.TrimSpace(label) == "" {
		label = fmt.Sprintf("[File uploaded: %s]", req.Upload.Filename())
	}

	var answer string
	switch up := req.Upload.(type) {
	case *ImageUpload:
		prompt := o.prompts.BuildImage(req.Question, req.Style)
		a, err := o.generator.CompleteVision(ctx, prompt, up.Data)
		if err != nil {
			o.logger.Warn().Err(err).Str("file", up.Name).Msg("vision generation failed")
			a = ""
		}
		answer = a
	case *DocumentUpload:
		text, err := o.extractor.Extract(ctx, up.Data, up.Name)
		if err != nil {
			return Result{
				Answer:        fmt.Sprintf("Error processing file: %v. Please try again with a different file or format.", err),
				QueryTime:     time.Since(start).Seconds(),
				Success:       false,
				Err:           err.Error(),
				FileProcessed: true,
				SessionID:     req.SessionID,
			}, nil
		}
		var prompt string
		if strings.TrimSpace(req.Question) != "" {
			prompt = o.prompts.BuildFileAnalysis(text, req.Question, req.Style, history)
		} else {
			prompt = o.prompts.BuildFileSummary(text, req.Style, history)
		}
		answer = o.generate(ctx, prompt)
	default:
		return Result{}, fmt.Errorf("unknown upload kind %T", req.Upload)
	}

	if strings.TrimSpace(answer) == "" {
		answer = fileFailureAnswer
	}
	answer = o.validator.Ensure(ctx, answer, label, req.Style)

	o.history.Append(ctx, req.SessionID, label, answer)

	return Result{
		Answer:         answer,
		ChunksFound:    0,
		QueryTime:      time.Since(start).Seconds(),
		Success:        true,
		Classification: cls.String(),
		SessionID:      req.SessionID,
		FileProcessed:  true,
	}, nil
}

// errorFallback is the terminal recovery state: one last-resort generation
// with a minimal prompt, then a generic apology carrying the captured error.
func (o *Orchestrator) errorFallback(ctx context.Context, req QueryRequest, cause error) Result {
	o.logger.Error().Err(cause).Str("session_id", req.SessionID).Msg("query failed, attempting last-resort generation")

	answer, err := o.generator.Complete(ctx, o.prompts.BuildLastResort(req.Question), o.maxTokens)
	if err == nil && strings.TrimSpace(answer) != "" {
		return Result{
			Answer:    answer,
			Success:   true,
			Err:       cause.Error(),
			SessionID: req.SessionID,
		}
	}
	if err != nil {
		o.logger.Error().Err(err).Msg("last-resort generation failed")
	}

	return Result{
		Answer:    "This appears to be a medical question, but I encountered an issue generating a response. Please try asking in a different way.",
		Success:   false,
		Err:       cause.Error(),
		SessionID: req.SessionID,
	}
}

// APIQuery mirrors the Query state machine for structured callers: it never
// short-circuits silently, and always surfaces classification, retrieved
// snippets, and the disclaimer in the payload.
func (o *Orchestrator) APIQuery(ctx context.Context, req APIRequest) APIResult {
	if strings.TrimSpace(req.Question) == "" {
		return APIResult{Success: false, Err: "query text is required"}
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.K <= 0 {
		req.K = o.retrievalK
	}

	ctx, finish := o.tracer.StartSpan(ctx, "api_query", map[string]any{"session_id": req.SessionID})
	defer finish(nil)

	var history string
	switch {
	case len(req.PriorChat) > 0:
		var sb strings.Builder
		for _, msg := range req.PriorChat {
			role := msg.Role
			if role == "" {
				role = "user"
			}
			fmt.Fprintf(&sb, "%s: %s\n", capitalize(role), msg.Content)
		}
		history = sb.String()
	case req.IncludeHistory:
		history = o.history.Formatted(ctx, req.SessionID)
	}

	cls := o.classifier.Classify(ctx, req.Question)

	chunks, err := o.retriever.Search(ctx, req.Question, req.K, nil)
	if err != nil {
		// Structured mode tolerates a failing index: proceed with no context.
		o.logger.Warn().Err(err).Msg("retrieval failed for structured query")
		chunks = nil
	}
	ragContext := JoinChunks(chunks)
	if ragContext == "" {
		ragContext = "No context retrieved from the knowledge base."
	}

	prompt, disclaimerText := o.prompts.BuildStructured(req.Question, ragContext, history, req.Disclaimer, req.ExternalKnowledgeInstructions)

	var answer string
	if cls == ClassificationNonMedical {
		answer = RefusalSentence
	} else {
		answer = o.generate(ctx, prompt)
		answer = o.validator.Ensure(ctx, answer, req.Question, StyleMedical)
		if strings.TrimSpace(answer) == "" {
			answer = "I couldn't retrieve medical context for this question yet. " +
				"Based on general medical guidance, please consult a healthcare professional for personalized advice."
		}
		o.history.Append(ctx, req.SessionID, req.Question, answer)
	}

	if chunks == nil {
		chunks = []ports.Chunk{}
	}
	return APIResult{
		Success:                     true,
		Answer:                      answer,
		Classification:              cls.String(),
		ChunksFound:                 len(chunks),
		SessionID:                   req.SessionID,
		Disclaimer:                  disclaimerText,
		ConversationHistoryIncluded: req.IncludeHistory,
		RAGContext:                  ragContext,
		ContextSnippets:             chunks,
	}
}

// History returns the session's conversation log in chronological order.
func (o *Orchestrator) History(ctx context.Context, sessionID string) []ports.Entry {
	return o.history.Entries(ctx, sessionID)
}

// DeleteSession removes a session from memory and durable storage.
func (o *Orchestrator) DeleteSession(ctx context.Context, sessionID string) error {
	return o.history.Delete(ctx, sessionID)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
