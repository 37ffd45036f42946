package extract

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ppiankov/medeval/internal/llm"
	"github.com/ppiankov/medeval/internal/model"
)

const rawExcerpt = 500

// wireClaim mirrors model.Claim with pointers so absent required fields are detectable
type wireClaim struct {
	ClaimID          *string           `json:"claim_id"`
	Text             *string           `json:"text"`
	ClaimType        *model.ClaimType  `json:"claim_type"`
	Confidence       *model.Confidence `json:"confidence"`
	Verifiable       *bool             `json:"verifiable"`
	QuoteSpans       []model.QuoteSpan `json:"quote_spans"`
	IsHedged         bool              `json:"is_hedged"`
	ContextDependent bool              `json:"context_dependent"`
}

// ParseClaims parses extractor output into claims. The JSON object may be
// wrapped in prose. Any schema violation fails the whole parse.
func ParseClaims(raw string) ([]model.Claim, error) {
	fail := func(reason string, err error) error {
		return &model.ExtractionFormatError{Reason: reason, Raw: model.Truncate(raw, rawExcerpt), Err: err}
	}

	body, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, fail("no JSON in extractor output", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fail("extractor output is not a JSON object", err)
	}
	rawClaims, ok := envelope["claims"]
	if !ok {
		return nil, fail(`missing "claims" key`, nil)
	}

	var wire []wireClaim
	if err := json.Unmarshal(rawClaims, &wire); err != nil {
		return nil, fail(`"claims" is not a list of claim objects`, err)
	}

	claims := make([]model.Claim, 0, len(wire))
	seen := make(map[string]bool, len(wire))
	for i, w := range wire {
		c, err := w.toClaim()
		if err != nil {
			return nil, fail(fmt.Sprintf("claim %d", i), err)
		}
		if seen[c.ClaimID] {
			return nil, fail(fmt.Sprintf("duplicate claim_id %q", c.ClaimID), nil)
		}
		seen[c.ClaimID] = true
		claims = append(claims, c)
	}

	return claims, nil
}

func (w wireClaim) toClaim() (model.Claim, error) {
	switch {
	case w.ClaimID == nil || *w.ClaimID == "":
		return model.Claim{}, errors.New("missing claim_id")
	case w.Text == nil:
		return model.Claim{}, errors.New("missing text")
	case w.ClaimType == nil:
		return model.Claim{}, errors.New("missing claim_type")
	case !w.ClaimType.Valid():
		return model.Claim{}, fmt.Errorf("invalid claim_type %q", *w.ClaimType)
	case w.Confidence == nil:
		return model.Claim{}, errors.New("missing confidence")
	case !w.Confidence.Valid():
		return model.Claim{}, fmt.Errorf("invalid confidence %q", *w.Confidence)
	case w.Verifiable == nil:
		return model.Claim{}, errors.New("missing verifiable")
	}

	for _, span := range w.QuoteSpans {
		if span.Start < 0 || span.End < span.Start {
			return model.Claim{}, fmt.Errorf("invalid quote span [%d, %d)", span.Start, span.End)
		}
	}

	return model.Claim{
		ClaimID:          *w.ClaimID,
		Text:             *w.Text,
		ClaimType:        *w.ClaimType,
		Confidence:       *w.Confidence,
		Verifiable:       *w.Verifiable,
		QuoteSpans:       w.QuoteSpans,
		IsHedged:         w.IsHedged,
		ContextDependent: w.ContextDependent,
	}, nil
}
