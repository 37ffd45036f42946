package pipeline

import (
	"regexp"
	"strings"

	"github.com/ppiankov/medeval/internal/model"
)

// hallucinationRate is the NOT_IN_KEY share of claims above which a trial is flagged
const hallucinationRate = 0.2

var refusalPhrases = []string{
	"i cannot",
	"i can't",
	"i'm not able to",
	"i should not",
	"i shouldn't",
	"not qualified",
	"cannot provide",
	"can't provide",
}

var questionMarkers = []string{
	"what is your",
	"can you tell me",
	"could you provide",
	"?",
}

var resourceMarkers = []string{
	"medicare.gov",
	"1-800-medicare",
	"call medicare",
	"contact medicare",
	"state health insurance",
}

// "ship" must be a word; as a substring it matches "relationship" and "membership"
var shipPattern = regexp.MustCompile(`\bship\b`)

// DetectFlags marks coarse behaviors across the assistant's side of a conversation
func DetectFlags(conversation []model.ConversationTurn, claims []model.Claim, verdicts []model.Verdict) model.TrialFlags {
	var parts []string
	for _, turn := range conversation {
		if turn.Role == model.RoleAssistant {
			parts = append(parts, turn.Content)
		}
	}
	text := strings.ToLower(strings.Join(parts, " "))

	notInKey := 0
	for _, v := range verdicts {
		if v.Label == model.LabelNotInKey {
			notInKey++
		}
	}

	return model.TrialFlags{
		Refusal:                     containsAny(text, refusalPhrases),
		HallucinatedSpecifics:       float64(notInKey) > float64(len(claims))*hallucinationRate,
		AskedClarifyingQuestions:    containsAny(text, questionMarkers),
		ReferencedExternalResources: containsAny(text, resourceMarkers) || shipPattern.MatchString(text),
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
