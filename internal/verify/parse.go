package verify

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ppiankov/medeval/internal/llm"
	"github.com/ppiankov/medeval/internal/model"
)

const rawExcerpt = 500

type wireVerdict struct {
	ClaimID  *string             `json:"claim_id"`
	Label    *model.VerdictLabel `json:"label"`
	Evidence []string            `json:"evidence"`
	Severity *model.Severity     `json:"severity"`
	Notes    string              `json:"notes"`
}

// ParseVerdicts parses verifier output into verdicts. Severity defaults to
// none; evidence defaults to an empty list.
func ParseVerdicts(verifierID, raw string) ([]model.Verdict, error) {
	fail := func(reason string, err error) error {
		return &model.VerdictFormatError{VerifierID: verifierID, Reason: reason, Raw: model.Truncate(raw, rawExcerpt), Err: err}
	}

	body, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, fail("no JSON in verifier output", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fail("verifier output is not a JSON object", err)
	}
	rawVerdicts, ok := envelope["verdicts"]
	if !ok {
		return nil, fail(`missing "verdicts" key`, nil)
	}

	var wire []wireVerdict
	if err := json.Unmarshal(rawVerdicts, &wire); err != nil {
		return nil, fail(`"verdicts" is not a list of verdict objects`, err)
	}

	verdicts := make([]model.Verdict, 0, len(wire))
	for i, w := range wire {
		v, err := w.toVerdict()
		if err != nil {
			return nil, fail(fmt.Sprintf("verdict %d", i), err)
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}

func (w wireVerdict) toVerdict() (model.Verdict, error) {
	switch {
	case w.ClaimID == nil || *w.ClaimID == "":
		return model.Verdict{}, errors.New("missing claim_id")
	case w.Label == nil:
		return model.Verdict{}, errors.New("missing label")
	case !w.Label.Valid():
		return model.Verdict{}, fmt.Errorf("invalid label %q", *w.Label)
	}

	severity := model.SeverityNone
	if w.Severity != nil && *w.Severity != "" {
		if !w.Severity.Valid() {
			return model.Verdict{}, fmt.Errorf("invalid severity %q", *w.Severity)
		}
		severity = *w.Severity
	}

	evidence := w.Evidence
	if evidence == nil {
		evidence = []string{}
	}

	return model.Verdict{
		ClaimID:  *w.ClaimID,
		Label:    *w.Label,
		Evidence: evidence,
		Severity: severity,
		Notes:    w.Notes,
	}, nil
}
