package model

import "time"

// Scenario is one graded question set with its ground truth
type Scenario struct {
	ScenarioID       string            `json:"scenario_id" yaml:"scenario_id"`
	Title            string            `json:"title" yaml:"title"`
	ScenarioType     string            `json:"scenario_type,omitempty" yaml:"scenario_type"`
	EffectiveDate    string            `json:"effective_date" yaml:"effective_date"` // YYYY-MM-DD
	Persona          Persona           `json:"persona" yaml:"persona"`
	ScriptedTurns    []ScriptedTurn    `json:"scripted_turns" yaml:"scripted_turns"`
	AnswerKey        *AnswerKey        `json:"answer_key,omitempty" yaml:"answer_key"`
	ScoringRubric    *ScoringRubric    `json:"scoring_rubric,omitempty" yaml:"scoring_rubric"`
	RubricVersion    string            `json:"rubric_version" yaml:"rubric_version"`
	TemporalValidity *TemporalValidity `json:"temporal_validity,omitempty" yaml:"temporal_validity"`
	TargetParameters TargetParameters  `json:"target_parameters" yaml:"target_parameters"`
}

// Persona describes the beneficiary asking the questions
type Persona struct {
	Age                  int    `json:"age" yaml:"age"`
	Location             string `json:"location" yaml:"location"`
	CurrentCoverage      string `json:"current_coverage" yaml:"current_coverage"`
	Situation            string `json:"situation" yaml:"situation"`
	PrimaryCarePhysician string `json:"primary_care_physician,omitempty" yaml:"primary_care_physician"`
}

// ScriptedTurn is one question from the scenario script
type ScriptedTurn struct {
	TurnID         string   `json:"turn_id" yaml:"turn_id"`
	UserMessage    string   `json:"user_message" yaml:"user_message"`
	ExpectedTopics []string `json:"expected_topics,omitempty" yaml:"expected_topics"`
}

// TemporalValidity bounds the dates the answer key is valid for
type TemporalValidity struct {
	ValidFrom  string `json:"valid_from" yaml:"valid_from"`
	ValidUntil string `json:"valid_until" yaml:"valid_until"`
	Notes      string `json:"notes,omitempty" yaml:"notes"`
}

// TargetParameters are the sampling parameters used for the graded model
type TargetParameters struct {
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	TopP        float64 `json:"top_p" yaml:"top_p"`
	Seed        *int    `json:"seed,omitempty" yaml:"seed"`
}

// RubricTierName identifies one ordinal tier of a scoring rubric
type RubricTierName string

const (
	TierAccurateComplete      RubricTierName = "accurate_complete"
	TierSubstantiveIncomplete RubricTierName = "substantive_incomplete"
	TierNotSubstantive        RubricTierName = "not_substantive"
	TierIncorrect             RubricTierName = "incorrect"
)

// RubricTier is a score/label pair
type RubricTier struct {
	Score int    `json:"score" yaml:"score"`
	Label string `json:"label" yaml:"label"`
}

// DefaultRubricTiers is the SHIP four-tier accuracy scale
var DefaultRubricTiers = map[RubricTierName]RubricTier{
	TierAccurateComplete:      {Score: 1, Label: "Accurate and Complete"},
	TierSubstantiveIncomplete: {Score: 2, Label: "Substantive but Incomplete"},
	TierNotSubstantive:        {Score: 3, Label: "Not Substantive"},
	TierIncorrect:             {Score: 4, Label: "Incorrect"},
}

// FactSubset is a named group of facts a rubric checks coverage of.
// Membership is the explicit Facts list, or required points containing MatchSuffix.
type FactSubset struct {
	Name        string   `json:"name" yaml:"name"`
	Facts       []string `json:"facts,omitempty" yaml:"facts"`
	MatchSuffix string   `json:"match_suffix,omitempty" yaml:"match_suffix"`
}

// ScoringRubric is the scenario-supplied classification data
type ScoringRubric struct {
	Type    string                        `json:"type" yaml:"type"`
	Subsets []FactSubset                  `json:"subsets,omitempty" yaml:"subsets"`
	Tiers   map[RubricTierName]RubricTier `json:"tiers,omitempty" yaml:"tiers"`
}

// Tier returns the configured tier, falling back to the default scale
func (r *ScoringRubric) Tier(name RubricTierName) RubricTier {
	if r != nil {
		if t, ok := r.Tiers[name]; ok {
			return t
		}
	}
	return DefaultRubricTiers[name]
}

// ConversationTurn is one message of a graded transcript
type ConversationTurn struct {
	TurnID    string    `json:"turn_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TargetModelInfo identifies the model whose answers were graded
type TargetModelInfo struct {
	Provider     string           `json:"provider"`
	ModelName    string           `json:"model_name"`
	ModelVersion string           `json:"model_version,omitempty"`
	Parameters   TargetParameters `json:"parameters"`
}

// TrialFlags are coarse behavioral markers detected in a transcript
type TrialFlags struct {
	Refusal                     bool `json:"refusal"`
	HallucinatedSpecifics       bool `json:"hallucinated_specifics"`
	AskedClarifyingQuestions    bool `json:"asked_clarifying_questions"`
	ReferencedExternalResources bool `json:"referenced_external_resources"`
}

// TrialResult is the persisted record of one graded transcript
type TrialResult struct {
	TrialID       string                 `json:"trial_id"`
	ScenarioID    string                 `json:"scenario_id"`
	Target        TargetModelInfo        `json:"target"`
	Conversation  []ConversationTurn     `json:"conversation"`
	Claims        []Claim                `json:"claims"`
	Verifications []VerificationResult   `json:"verifications"`
	Adjudication  *AdjudicationResult    `json:"adjudication,omitempty"`
	FinalScores   ScoreResult            `json:"final_scores"`
	Flags         TrialFlags             `json:"flags"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// Transcript is the grading input: an existing conversation with a target model
type Transcript struct {
	Target       TargetModelInfo    `json:"target"`
	Conversation []ConversationTurn `json:"conversation"`
}
