package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/medeval/internal/model"
)

const (
	minSentenceLen = 15
	maxSentenceLen = 500
)

var (
	bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
	emphasis     = strings.NewReplacer("**", "", "__", "", "`", "")
)

// typeRule assigns a claim type when any keyword appears in the sentence
type typeRule struct {
	claimType model.ClaimType
	keywords  []string
}

// HeuristicExtractor extracts claims without a judgment model. It splits the
// answer into sentences and classifies each by keyword.
type HeuristicExtractor struct {
	rules     []typeRule
	hedges    []string
	anaphora  []string
	nonClaims []string
}

// NewHeuristicExtractor creates a new heuristic extractor
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{
		// First match wins
		rules: []typeRule{
			{model.ClaimTypeReferral, []string{
				"contact", "call ", "1-800", "visit ", "medicare.gov", " ship", "state health insurance",
				"speak with", "talk to", "reach out", "counselor",
			}},
			{model.ClaimTypeConditional, []string{
				"if you", "if your", "unless", "as long as", "provided that", "depending on", "in case",
			}},
			{model.ClaimTypeTemporal, []string{
				"deadline", "enrollment period", "within ", "months before", "months after", "each year",
				"annually", "by december", "january", "october", "starting in", " days",
			}},
			{model.ClaimTypeProcedural, []string{
				"you can enroll", "to enroll", "to switch", "apply", "sign up", "you should", "you'll need to",
				"you need to", "must ", "first,", "then ", "step",
			}},
		},
		hedges: []string{
			"may ", "might ", "generally", "usually", "typically", "often", "could ", "in most cases",
			"it depends", "likely", "some plans",
		},
		anaphora:  []string{"this ", "that ", "it ", "they ", "these ", "those ", "the same "},
		nonClaims: []string{"i hope this helps", "let me know", "feel free", "great question", "happy to help"},
	}
}

// Extract implements Extractor
func (e *HeuristicExtractor) Extract(ctx context.Context, answer string, priorTurns []string) ([]model.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := answer
	if looksLikeHTML(answer) {
		doc, err := html.Parse(strings.NewReader(answer))
		if err != nil {
			return nil, &model.ExtractionFormatError{Reason: "unparseable HTML answer", Raw: model.Truncate(answer, rawExcerpt), Err: err}
		}
		text = extractVisibleText(doc)
	}

	var claims []model.Claim
	seen := make(map[string]bool)
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		if strings.HasSuffix(sentence, "?") || strings.HasSuffix(sentence, ":") || e.isFiller(lower) {
			continue
		}
		if seen[lower] {
			continue
		}
		seen[lower] = true

		claim := model.Claim{
			ClaimID:          fmt.Sprintf("C%d", len(claims)+1),
			Text:             sentence,
			ClaimType:        e.classify(lower),
			Confidence:       model.ConfidenceMedium,
			Verifiable:       true,
			IsHedged:         containsAny(lower, e.hedges),
			ContextDependent: len(priorTurns) > 0 && hasPrefixAny(lower, e.anaphora),
		}
		if start := strings.Index(answer, sentence); start >= 0 {
			claim.QuoteSpans = []model.QuoteSpan{{Start: start, End: start + len(sentence)}}
		}
		claims = append(claims, claim)
	}

	if claims == nil {
		claims = []model.Claim{}
	}
	return claims, nil
}

func (e *HeuristicExtractor) classify(lower string) model.ClaimType {
	for _, rule := range e.rules {
		if containsAny(lower, rule.keywords) {
			return rule.claimType
		}
	}
	return model.ClaimTypeFactual
}

func (e *HeuristicExtractor) isFiller(lower string) bool {
	return containsAny(lower, e.nonClaims)
}

func looksLikeHTML(s string) bool {
	i := strings.Index(s, "<")
	return i >= 0 && strings.Contains(s[i:], ">")
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles.
// Block elements end a line so list items stay separate sentences.
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "li", "br", "div", "h1", "h2", "h3", "h4", "tr":
				buf.WriteString("\n")
			}
		}
	}

	walk(n)
	return buf.String()
}

// splitSentences splits text into sentences line by line, dropping list
// markers and markdown emphasis
func splitSentences(text string) []string {
	var sentences []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if len(s) >= minSentenceLen && len(s) <= maxSentenceLen {
			sentences = append(sentences, s)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = emphasis.Replace(bulletPrefix.ReplaceAllString(line, ""))
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var current strings.Builder
		for i, r := range line {
			current.WriteRune(r)

			if r == '.' || r == '!' || r == '?' {
				// Only split when followed by whitespace, so "$1,632.00" and "medicare.gov" survive
				if i+1 < len(line) && (line[i+1] == ' ' || line[i+1] == '\t') {
					add(current.String())
					current.Reset()
				}
			}
		}
		add(current.String())
	}

	return sentences
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hasPrefixAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
