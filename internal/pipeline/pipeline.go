// Package pipeline grades one transcript end to end:
// extract claims, verify them in parallel, adjudicate, flag and persist.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/medeval/internal/adjudicate"
	"github.com/ppiankov/medeval/internal/extract"
	"github.com/ppiankov/medeval/internal/log"
	"github.com/ppiankov/medeval/internal/model"
	"github.com/ppiankov/medeval/internal/storage"
	"github.com/ppiankov/medeval/internal/verify"
)

// Pipeline orchestrates grading of existing transcripts
type Pipeline struct {
	extractor        extract.Extractor
	verifiers        []verify.Verifier
	adjudicator      *adjudicate.Adjudicator
	run              *storage.Run // Optional; nil disables persistence
	saveIntermediate bool
	seed             int
	judgeModel       string
	newID            func() string
	now              func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithRun persists every graded trial to run
func WithRun(run *storage.Run, saveIntermediate bool) Option {
	return func(p *Pipeline) {
		p.run = run
		p.saveIntermediate = saveIntermediate
	}
}

// WithSeed records the judgment seed in trial metadata
func WithSeed(seed int) Option {
	return func(p *Pipeline) { p.seed = seed }
}

// WithJudgeModel records the judgment model in trial metadata
func WithJudgeModel(name string) Option {
	return func(p *Pipeline) { p.judgeModel = name }
}

// New creates a pipeline from its stages
func New(extractor extract.Extractor, verifiers []verify.Verifier, adjudicator *adjudicate.Adjudicator, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   extractor,
		verifiers:   verifiers,
		adjudicator: adjudicator,
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GradeTrial grades one transcript against the scenario's answer key
func (p *Pipeline) GradeTrial(ctx context.Context, sc *model.Scenario, tr *model.Transcript) (*model.TrialResult, error) {
	if sc == nil || sc.AnswerKey == nil {
		return nil, fmt.Errorf("scenario has no answer key")
	}
	if tr == nil {
		return nil, fmt.Errorf("transcript is nil")
	}

	trialID := p.newID()
	log.Infof("grading trial %s (scenario %s, %d turns)", trialID, sc.ScenarioID, len(tr.Conversation))

	if p.run != nil {
		if _, err := p.run.SaveTranscript(trialID, tr.Conversation); err != nil {
			return nil, fmt.Errorf("save transcript: %w", err)
		}
	}

	// 1. Extract claims per assistant turn
	claims, err := p.extractClaims(ctx, tr.Conversation)
	if err != nil {
		return nil, err
	}
	log.Debugf("trial %s: %d claims", trialID, len(claims))
	p.saveStage(trialID, "extraction", map[string]interface{}{"claims": claims})

	// 2. Verify with every verifier in parallel
	verifications, err := p.verifyClaims(ctx, claims, sc.AnswerKey)
	if err != nil {
		return nil, fmt.Errorf("verify claims: %w", err)
	}
	for _, v := range verifications {
		p.saveStage(trialID, "verification_"+v.VerifierID, v)
	}

	// 3. Adjudicate and score
	adjudication, err := p.adjudicator.Adjudicate(claims, verifications, sc.AnswerKey, sc.ScoringRubric)
	if err != nil {
		return nil, fmt.Errorf("adjudicate: %w", err)
	}
	p.saveStage(trialID, "adjudication", adjudication)
	if adjudication.NeedsManualReview {
		log.Warnf("trial %s flagged for manual review (disagreement %.1f%%, critical %v)",
			trialID, adjudication.DisagreementPercentage*100, adjudication.CriticalDisagreements)
	}

	// 4. Flags and final record
	result := &model.TrialResult{
		TrialID:       trialID,
		ScenarioID:    sc.ScenarioID,
		Target:        tr.Target,
		Conversation:  tr.Conversation,
		Claims:        claims,
		Verifications: verifications,
		Adjudication:  adjudication,
		FinalScores:   adjudication.FinalScores,
		Flags:         DetectFlags(tr.Conversation, claims, adjudication.FinalVerdicts),
		Timestamp:     p.now().UTC(),
		Metadata: map[string]interface{}{
			"num_verifiers":          len(p.verifiers),
			"seed":                   p.seed,
			"judge_model":            p.judgeModel,
			"rubric_version":         sc.RubricVersion,
			"disagreement_threshold": p.adjudicator.Threshold(),
		},
	}
	if result.Target.Parameters == (model.TargetParameters{}) {
		result.Target.Parameters = sc.TargetParameters
	}

	if p.run != nil {
		if err := p.run.AppendResult(result); err != nil {
			return nil, fmt.Errorf("save trial result: %w", err)
		}
	}
	return result, nil
}

// extractClaims runs the extractor on each assistant turn with everything
// said before it as context. Claim ids are prefixed with the turn id when
// more than one assistant turn is graded, so assistant turn labels must be
// unique.
func (p *Pipeline) extractClaims(ctx context.Context, conversation []model.ConversationTurn) ([]model.Claim, error) {
	assistantTurns := 0
	labels := make(map[string]bool)
	for i, turn := range conversation {
		if turn.Role != model.RoleAssistant {
			continue
		}
		assistantTurns++
		label := turnLabel(turn, i)
		if labels[label] {
			return nil, fmt.Errorf("duplicate assistant turn id %q", label)
		}
		labels[label] = true
	}

	claims := []model.Claim{}
	var prior []string
	for i, turn := range conversation {
		if turn.Role != model.RoleAssistant {
			prior = append(prior, turn.Content)
			continue
		}

		turnClaims, err := p.extractor.Extract(ctx, turn.Content, prior)
		if err != nil {
			return nil, fmt.Errorf("extract claims from turn %s: %w", turnLabel(turn, i), err)
		}
		if assistantTurns > 1 {
			for j := range turnClaims {
				turnClaims[j].ClaimID = turnLabel(turn, i) + "/" + turnClaims[j].ClaimID
			}
		}
		claims = append(claims, turnClaims...)
		prior = append(prior, turn.Content)
	}
	return claims, nil
}

// verifyClaims skips provider calls when there is nothing to verify
func (p *Pipeline) verifyClaims(ctx context.Context, claims []model.Claim, key *model.AnswerKey) ([]model.VerificationResult, error) {
	if len(claims) > 0 {
		return verify.RunAll(ctx, p.verifiers, claims, key)
	}
	if len(p.verifiers) == 0 {
		return nil, fmt.Errorf("no verifiers configured")
	}
	results := make([]model.VerificationResult, len(p.verifiers))
	for i, v := range p.verifiers {
		results[i] = model.VerificationResult{
			VerifierID: v.ID(),
			Verdicts:   []model.Verdict{},
			Metadata:   map[string]interface{}{"skipped": "no claims"},
		}
	}
	return results, nil
}

func (p *Pipeline) saveStage(trialID, stage string, data interface{}) {
	if p.run == nil || !p.saveIntermediate {
		return
	}
	if _, err := p.run.SaveIntermediate(trialID, stage, data); err != nil {
		log.Warnf("save %s for trial %s: %v", stage, trialID, err)
	}
}

func turnLabel(turn model.ConversationTurn, index int) string {
	if turn.TurnID != "" {
		return turn.TurnID
	}
	return fmt.Sprintf("turn%d", index+1)
}
