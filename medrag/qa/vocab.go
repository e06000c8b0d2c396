package qa

import "strings"

// RefusalSentence is emitted verbatim, and only, for questions outside the
// medical domain.
const RefusalSentence = "I am a medical bot and can only assist with medical-related topics."

// minAnswerLength is the single too-short threshold applied everywhere an
// answer is judged (see DESIGN.md).
const minAnswerLength = 20

// medicalTerms and nonMedicalTerms back the keyword heuristic used by both
// the classifier fallback and the validator's in-domain check. One shared
// list, matched case-folded by substring.
var medicalTerms = []string{
	"health", "medicine", "doctor", "hospital", "disease", "condition",
	"symptom", "treatment", "drug", "patient", "nurse", "therapy", "medical",
	"clinical", "diagnosis", "surgery", "organ", "body", "anatomy", "nursing",
	"blood", "heart", "lungs", "brain", "liver", "kidney", "ph level", "hp",
	"immune", "diet", "nutrition", "cancer", "diabetes", "virus", "bacterial",
	"infection", "prescription", "prognosis", "chronic", "acute",
}

var nonMedicalTerms = []string{
	"computer", "programming", "gaming", "video game", "sports", "politics",
	"entertainment", "movies", "celebrity", "stock market", "finance",
	"cooking", "recipes", "food", "pizza", "travel", "vacation", "cars", "fashion",
	"technology", "crypto", "weather", "news", "music", "art", "books",
}

// boilerplatePhrases mark an answer as a refusal/failure regardless of length.
var boilerplatePhrases = []string{
	"the system processed your query but couldn't generate a response",
	"i don't know",
	"i couldn't generate a response",
	"no answer generated",
	"sorry, i cannot provide a response",
	"not enough information",
}

func containsMedicalTerm(question string) bool {
	q := strings.ToLower(question)
	for _, term := range medicalTerms {
		if strings.Contains(q, term) {
			return true
		}
	}
	return false
}

func containsNonMedicalTerm(question string) bool {
	q := strings.ToLower(question)
	for _, term := range nonMedicalTerms {
		if strings.Contains(q, term) {
			return true
		}
	}
	return false
}

// matchedMedicalTerms returns the medical vocabulary terms present in the
// question, used to steer directive prompts toward the user's topic.
func matchedMedicalTerms(question string) []string {
	q := strings.ToLower(question)
	var matched []string
	for _, term := range medicalTerms {
		if strings.Contains(q, term) {
			matched = append(matched, term)
		}
	}
	return matched
}

// cannedFallback is the last tier of the cascade: a static, topic-appropriate
// sentence chosen by simple keyword match.
func cannedFallback(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "nursing"):
		return "Nursing is a healthcare profession focused on the care of individuals, families, and communities to help them attain, maintain, or recover optimal health and quality of life. Nurses work in various settings including hospitals, clinics, schools, homes, and research institutions, providing care, education, and support to patients."
	case strings.Contains(q, "body") || strings.Contains(q, "human"):
		return "The human body is a complex biological system with numerous interconnected parts working together to maintain life. It consists of cells, tissues, organs, and organ systems that perform specific functions necessary for survival and well-being."
	default:
		return "This appears to be a medical question. While I don't have specific information about this in my medical knowledge base, I'd encourage you to consult with a healthcare professional for accurate, personalized medical information."
	}
}
