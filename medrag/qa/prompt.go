package qa

import (
	"fmt"
	"strings"

	ports "github.com/ragstack/medrag/medrag/qa/ports"
)

// Style selects instruction verbosity for composed prompts. All styles share
// the same hard rules; they differ only in phrasing and depth.
type Style string

const (
	StyleBasic    Style = "basic"
	StyleMedical  Style = "medical"
	StyleDetailed Style = "detailed"
)

// ParseStyle maps free-form input to a known style, defaulting to basic.
func ParseStyle(s string) Style {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleMedical:
		return StyleMedical
	case StyleDetailed:
		return StyleDetailed
	default:
		return StyleBasic
	}
}

// baseDisclaimer anchors every structured/API prompt; caller-supplied
// disclaimer text is appended to it, never substituted for it.
const baseDisclaimer = "You are MedBot, a medical information assistant. Provide educational medical information only, " +
	"avoid diagnoses or treatment advice, and use a professional tone. If the user asks about a non-medical " +
	"topic, respond exactly with: \"I am a medical bot and can only assist with medical-related topics.\""

// PromptBuilder assembles every prompt variant the pipeline uses. It owns all
// prompt text; adapters and the orchestrator never format instructions
// themselves.
type PromptBuilder struct {
	maxContextChars int
	disclaimer      string
}

// NewPromptBuilder creates a builder. maxContextChars bounds embedded
// document text so prompts respect generator input limits; disclaimer
// overrides the built-in base disclaimer when non-empty.
func NewPromptBuilder(maxContextChars int, disclaimer string) *PromptBuilder {
	if maxContextChars <= 0 {
		maxContextChars = 8000
	}
	if disclaimer == "" {
		disclaimer = baseDisclaimer
	}
	return &PromptBuilder{maxContextChars: maxContextChars, disclaimer: disclaimer}
}

// JoinChunks concatenates retrieved passages in retrieval order.
func JoinChunks(chunks []ports.Chunk) string {
	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = ch.Content
	}
	return strings.Join(parts, "\n\n")
}

func historySection(history string) string {
	if history == "" {
		return ""
	}
	return fmt.Sprintf("\nConversation History:\n%s\n", history)
}

// Build composes a with-context prompt in the requested style.
func (b *PromptBuilder) Build(question, context string, style Style, history string) string {
	switch style {
	case StyleMedical:
		return fmt.Sprintf(`You are a knowledgeable medical assistant. Use the provided medical context to answer the question accurately.
%s
Important guidelines:
- First, try to answer based on the provided medical context
- If the context doesn't contain relevant information but the question is medical in nature, use your general medical knowledge
- If the question asks about medical terminology or concepts mentioned in previous messages, provide a detailed explanation
- NEVER say "I don't know" or "I couldn't generate a response" for medical topics - always provide an informative answer
- Only say "I am a medical bot and can only assist with medical-related topics" if the question is completely unrelated to medicine or healthcare
- Maintain consistency with information provided in the conversation history
- Provide clear, concise answers
- Do not provide medical diagnosis or treatment recommendations; provide factual information only

Medical Context:
%s

Question: %s
Answer:`, historySection(history), context, question)
	case StyleDetailed:
		return fmt.Sprintf(`You are an expert medical assistant specializing in document analysis and question answering.
%s
Instructions:
1. Carefully read the provided context
2. First try to answer based solely on the information in the context
3. If the context doesn't contain relevant information but the question is medical in nature, use your general medical knowledge
4. If the question asks about medical terms, concepts or phrases mentioned in previous messages, provide a comprehensive explanation
5. NEVER say "I don't know" or "I couldn't generate a response" for medical topics - always provide an informative answer
6. Only say "I am a medical bot and can only assist with medical-related topics" if the question is completely unrelated to medicine or healthcare
7. Maintain consistency with information provided in the conversation history
8. Quote specific parts of the context when relevant
9. Be precise and factual
10. Do not provide medical diagnosis or treatment recommendations; provide factual information only

Context:
%s

Question: %s

Please provide a detailed answer:`, historySection(history), context, question)
	default:
		return fmt.Sprintf(`You are a helpful medical assistant. Use the context below to answer the question.
%s
IMPORTANT INSTRUCTIONS:
1. If the context contains information relevant to the question, use it to provide an accurate answer
2. If the context does not contain information relevant to the question but the question is medical in nature, use your general medical knowledge to provide a helpful response
3. NEVER say "I don't know" or "I couldn't generate a response" for medical topics - always provide an informative answer
4. Only say "I am a medical bot and can only assist with medical-related topics" if the question is completely unrelated to medicine or healthcare
5. Maintain consistency with information provided in the conversation history
6. If the question refers to terms or concepts mentioned in previous messages, explain them thoroughly

Context:
%s

Question: %s
Answer:`, historySection(history), context, question)
	}
}

// BuildNoContext composes a prompt for queries with no retrieved context:
// the generator is told explicitly that no matching documents were found and
// directed to answer from general domain knowledge when the question is
// in-domain.
func (b *PromptBuilder) BuildNoContext(question string, style Style, history string) string {
	var opening, firstRule string
	switch style {
	case StyleMedical:
		opening = "You are a helpful medical assistant. The user is asking a question about a medical topic."
		firstRule = "1. Always respond to medical questions using your general medical knowledge"
	case StyleDetailed:
		opening = "You are a helpful medical assistant with extensive knowledge. The user is asking a detailed question."
		firstRule = "1. Provide a thorough and comprehensive response using your general knowledge"
	default:
		opening = "You are a helpful medical assistant. The user is asking a question."
		firstRule = "1. Respond using your general medical knowledge if the question is related to medical topics"
	}

	return fmt.Sprintf(`%s
%s
Even though I don't have specific documents that match their query, you MUST:
%s
2. Be informative and educational when explaining medical terminology, processes, or concepts
3. NEVER say "I don't know" or "I couldn't generate a response" for medical topics
4. Only say "I am a medical bot and can only assist with medical-related topics" if the question is completely unrelated to medicine or healthcare
5. Maintain consistent information with any previous responses in the conversation history
6. If the question refers to something mentioned in previous messages, address it directly

Question: %s

Answer:`, opening, historySection(history), firstRule, question)
}

// medicalFocus renders the matched vocabulary terms for directive prompts.
func medicalFocus(terms []string) string {
	if len(terms) == 0 {
		return "general medical knowledge"
	}
	return strings.Join(terms, ", ")
}

// BuildInsufficientMedical composes the directive prompt for a medical
// question with fewer than two retrieved chunks. Whatever partial context
// exists is included; with none at all the generator answers purely from its
// own knowledge.
func (b *PromptBuilder) BuildInsufficientMedical(question, context string, terms []string) string {
	focus := medicalFocus(terms)
	if context != "" {
		return fmt.Sprintf(`You are a knowledgeable medical assistant.
The user asked: "%s"

I have limited information in my database that might be relevant:
%s

However, this information may be incomplete. Please provide a comprehensive, educational response about this medical topic,
focusing on %s. Always provide factual medical information, being clear when something is general knowledge
versus specific medical advice (which should be sought from healthcare professionals).

If the question contains unclear or uncommon terminology, interpret what the user might be asking about and provide information
that would be most helpful, while clarifying the standard medical terms.

Question: %s
Answer:`, question, context, focus, question)
	}
	return fmt.Sprintf(`You are a knowledgeable medical assistant.
The user asked: "%s"

I don't have specific information about this in my database, but this appears to be a medical question about %s.
Please provide an educational, informative response based on general medical knowledge. Be clear, factual, and helpful.

If the question contains unclear or uncommon terminology (like non-standard abbreviations), interpret what the user might be
asking about and provide information that would be most helpful, while clarifying the standard medical terms.

Question: %s
Answer:`, question, focus, question)
}

// BuildEscalation composes the single re-generation prompt used when a first
// answer fails validation: never refuse, interpret non-standard terminology
// charitably.
func (b *PromptBuilder) BuildEscalation(question string, terms []string) string {
	return fmt.Sprintf(`You are a medical assistant with extensive knowledge.
The user asked the following medical question: "%s"

You MUST provide a helpful, informative response using your %s.
Be educational and clear. Never say you don't know or can't answer.
Explain medical terminology thoroughly. Format your answer professionally.
Keep your response focused on medical information only.
If the question uses non-standard terms or abbreviations (for example "HP levels in the body"), interpret what the user
might be asking about, suggest the standard medical terms, and provide useful information.

Question: %s
Answer:`, question, medicalFocus(terms), question)
}

// BuildLastResort is the minimal prompt for the orchestrator's error-fallback
// path.
func (b *PromptBuilder) BuildLastResort(question string) string {
	return fmt.Sprintf(`You are a medical assistant. The user asked: "%s"
Please provide a brief but helpful response to this medical question.`, question)
}

func (b *PromptBuilder) truncate(text string) string {
	if len(text) > b.maxContextChars {
		return text[:b.maxContextChars]
	}
	return text
}

// BuildFileAnalysis composes the prompt for answering a question about an
// uploaded document. Extracted text replaces retrieved context and is
// truncated to the configured budget.
func (b *PromptBuilder) BuildFileAnalysis(fileText, question string, style Style, history string) string {
	base := fmt.Sprintf(`You are analyzing a document that was directly uploaded by the user. You must provide a clear, helpful response.
%s
Document Content:
%s

User Question: %s
`, historySection(history), b.truncate(fileText), question)

	switch style {
	case StyleMedical:
		return base + `
Provide a medically focused analysis addressing the question.
If the document doesn't clearly contain relevant medical information but the question is medical in nature, use your general medical knowledge to respond.
NEVER say "I don't know" or "I couldn't generate a response" for medical topics - always provide an informative answer.
Only say "I am a medical bot and can only assist with medical-related topics" if the question is completely unrelated to medicine or healthcare.
Do not provide medical advice or diagnosis. Be factual and precise.
Maintain consistency with information provided in the conversation history.
`
	case StyleDetailed:
		return base + `
Provide a comprehensive analysis of the document addressing the question.
If the document doesn't clearly contain relevant information but the question is medical in nature, use your general medical knowledge to respond.
NEVER say "I don't know" or "I couldn't generate a response" for medical topics - always provide an informative answer.
Only say "I am a medical bot and can only assist with medical-related topics" if the question is completely unrelated to medicine or healthcare.
Reference specific parts of the document when relevant. Be detailed and precise.
Maintain consistency with information provided in the conversation history.
`
	default:
		return base + `
Please provide a clear and helpful analysis addressing the question.
If the document doesn't clearly contain relevant information but the question is medical in nature, use your general medical knowledge to respond.
NEVER say "I don't know" or "I couldn't generate a response" for medical topics - always provide an informative answer.
Only say "I am a medical bot and can only assist with medical-related topics" if the question is completely unrelated to medicine or healthcare.
Focus on the information that's most relevant to answering the user's specific question.
Maintain consistency with information provided in the conversation history.
`
	}
}

// BuildFileSummary composes the prompt for an upload with no question.
func (b *PromptBuilder) BuildFileSummary(fileText string, style Style, history string) string {
	base := fmt.Sprintf(`You are analyzing a document that was directly uploaded by the user. Provide a helpful summary of its content.
%s
Document Content:
%s
`, historySection(history), b.truncate(fileText))

	switch style {
	case StyleMedical:
		return base + `
Please provide a comprehensive medical summary of this document.
Highlight key medical information, findings, conditions, treatments, or recommendations.
If the document doesn't clearly contain medical information, describe its general content and highlight any aspects that might be relevant to medical topics.
NEVER say "I don't know" or "I couldn't generate a response" - always provide an informative answer.
Do not provide medical advice or diagnosis. Be factual and precise.
Maintain consistency with information provided in the conversation history.
`
	case StyleDetailed:
		return base + `
Please provide a detailed analysis of this document.
Break down the document structure, highlight key information, main topics, and important details.
Include a comprehensive summary of the content, focusing on any medical or health-related aspects if present.
NEVER say "I don't know" or "I couldn't generate a response" - always provide an informative answer.
Maintain consistency with information provided in the conversation history.
`
	default:
		return base + `
Please provide a clear summary of this document.
Highlight key information and main topics covered, particularly any medical or health-related content.
Describe what type of document this appears to be and its general purpose.
NEVER say "I don't know" or "I couldn't generate a response" - always provide an informative answer.
Maintain consistency with information provided in the conversation history.
`
	}
}

// BuildImage composes the prompt paired with image bytes for vision analysis.
func (b *PromptBuilder) BuildImage(question string, style Style) string {
	if question != "" {
		switch style {
		case StyleMedical:
			return fmt.Sprintf("You are a medical expert analyzing this image. Please examine the image carefully and answer the following question: %s", question)
		case StyleDetailed:
			return fmt.Sprintf("Please provide a detailed analysis of this image and answer the following question with thorough explanations: %s", question)
		default:
			return fmt.Sprintf("Please analyze this image and answer: %s", question)
		}
	}
	switch style {
	case StyleMedical:
		return "You are a medical expert. Please analyze this image and provide a detailed description of any medical content visible."
	case StyleDetailed:
		return "Please provide a comprehensive and detailed analysis of everything visible in this image."
	default:
		return "Please describe what you see in this image."
	}
}

// BuildStructured composes the structured/API prompt and returns it together
// with the disclaimer text embedded in it. A caller-supplied disclaimer is
// appended to the fixed base disclaimer.
func (b *PromptBuilder) BuildStructured(question, ragContext, history, disclaimer, extraInstructions string) (prompt, disclaimerText string) {
	disclaimerText = b.disclaimer
	if d := strings.TrimSpace(disclaimer); d != "" {
		disclaimerText = fmt.Sprintf("%s\n\nAdditional context: %s", b.disclaimer, d)
	}
	if ragContext == "" {
		ragContext = "No context retrieved from the knowledge base."
	}
	if history == "" {
		history = "No previous messages."
	}
	if extraInstructions == "" {
		extraInstructions = "None provided."
	}

	prompt = fmt.Sprintf(`%s

User Query:
%s

Relevant RAG Chunks:
%s

Previous Chat Context:
%s

External Knowledge Instructions:
%s

Instructions:
- Use the provided RAG context first; if it is insufficient, rely on safe, general medical knowledge.
- Maintain continuity with the prior conversation when present.
- Be concise, clear, and educational.
- Never leave a medical question unanswered.
Answer:`, disclaimerText, question, ragContext, history, extraInstructions)
	return prompt, disclaimerText
}
