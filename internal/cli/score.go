package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/medeval/internal/adjudicate"
	"github.com/ppiankov/medeval/internal/model"
	"github.com/ppiankov/medeval/internal/scenario"
	"github.com/ppiankov/medeval/internal/score"
	"github.com/ppiankov/medeval/internal/verify"
)

var (
	scoreThreshold float64
	scoreOut       string
)

// verificationFile holds pre-computed claims and verifier outputs
type verificationFile struct {
	Claims        []model.Claim              `json:"claims"`
	Verifications []model.VerificationResult `json:"verifications"`
}

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <scenario.yaml> <verifications.json>",
	Short: "Adjudicate and score pre-computed verification results",
	Long: `Reconcile pre-computed verifier outputs and score them against the
scenario's answer key and rubric. No provider is called.

The input file holds the extracted claims and one verification result per
verifier:

  {
    "claims": [{"claim_id": "C1", "text": "...", "claim_type": "factual", ...}],
    "verifications": [
      {"verifier_id": "V1", "verdicts": [{"claim_id": "C1", "label": "SUPPORTED", "evidence": ["F1"]}]}
    ]
  }`,
	Args: cobra.ExactArgs(2),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().Float64Var(&scoreThreshold, "threshold", 0.20, "disagreement rate above which manual review is required")
	scoreCmd.Flags().StringVarP(&scoreOut, "out", "o", "", "write the adjudication JSON to this file (default: stdout)")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Grading.DisagreementThreshold = scoreThreshold
	}

	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	if sc.AnswerKey == nil {
		return fmt.Errorf("scenario %s has no answer key", sc.ScenarioID)
	}

	vf, err := loadVerificationFile(args[1])
	if err != nil {
		return err
	}

	adj := adjudicate.NewAdjudicator(cfg.Grading.DisagreementThreshold, score.NewScorer())
	result, err := adj.Adjudicate(vf.Claims, vf.Verifications, sc.AnswerKey, sc.ScoringRubric)
	if err != nil {
		return fmt.Errorf("adjudicate: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ %d claims, %d verifiers: %s\n", len(vf.Claims), len(vf.Verifications), rubricSummary(result.FinalScores))
	if result.NeedsManualReview {
		fmt.Fprintf(os.Stderr, "⚠ Needs manual review: %s\n", result.AdjudicationNotes)
	}

	return writeJSONOutput(scoreOut, result)
}

// loadVerificationFile reads a claims+verifications document, rejecting
// unknown fields, verdict labels outside the closed set and verifiers that
// do not judge every claim exactly once
func loadVerificationFile(path string) (*verificationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read verifications: %w", err)
	}

	var vf verificationFile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&vf); err != nil {
		return nil, fmt.Errorf("parse verifications %s: %w", path, err)
	}

	if len(vf.Verifications) == 0 {
		return nil, fmt.Errorf("%s: no verifications", path)
	}
	for i := range vf.Verifications {
		v := &vf.Verifications[i]
		for j := range v.Verdicts {
			verdict := &v.Verdicts[j]
			if !verdict.Label.Valid() {
				return nil, fmt.Errorf("%s: verifier %s: claim %s: invalid label %q", path, v.VerifierID, verdict.ClaimID, verdict.Label)
			}
			if verdict.Severity == "" {
				verdict.Severity = model.SeverityNone
			}
			if !verdict.Severity.Valid() {
				return nil, fmt.Errorf("%s: verifier %s: claim %s: invalid severity %q", path, v.VerifierID, verdict.ClaimID, verdict.Severity)
			}
		}
		if err := verify.CheckCoverage(v, vf.Claims); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return &vf, nil
}
