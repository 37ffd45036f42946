package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/medeval/internal/model"
	"github.com/ppiankov/medeval/internal/pipeline"
	"github.com/ppiankov/medeval/internal/scenario"
	"github.com/ppiankov/medeval/internal/storage"
)

var (
	gradeFlags  gradingFlags
	gradeOut    string
	gradeRunDir string
	gradeRunID  string
)

// gradeCmd represents the grade command
var gradeCmd = &cobra.Command{
	Use:   "grade <scenario.yaml> <transcript.json>",
	Short: "Grade one transcript against a scenario answer key",
	Long: `Grade an existing conversation against the scenario's answer key.

The assistant turns are split into atomic claims, each claim is checked by
--verifiers independent verifiers, and the verdicts are reconciled by
majority vote before scoring on the four-tier rubric.

Examples:
  medeval grade scenarios/ma_vs_tm_basics.yaml transcripts/trial1.json
  medeval grade scenario.yaml trial.json --verifiers 5 --out result.json
  medeval grade scenario.yaml trial.json --offline`,
	Args: cobra.ExactArgs(2),
	RunE: runGrade,
}

func init() {
	rootCmd.AddCommand(gradeCmd)

	gradeFlags.register(gradeCmd)
	gradeCmd.Flags().StringVarP(&gradeOut, "out", "o", "", "write the trial result JSON to this file (default: stdout)")
	gradeCmd.Flags().StringVar(&gradeRunDir, "run-dir", "", "also persist the trial under this runs directory")
	gradeCmd.Flags().StringVar(&gradeRunID, "run-id", "", "run id inside --run-dir (default: timestamp)")
}

func runGrade(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	gradeFlags.apply(cmd, cfg)

	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	tr, err := scenario.LoadTranscript(args[1])
	if err != nil {
		return err
	}
	warnIfOutdated(sc)

	var run *storage.Run
	if gradeRunDir != "" {
		store, err := storage.New(gradeRunDir)
		if err != nil {
			return err
		}
		if run, err = store.CreateRun(gradeRunID); err != nil {
			return err
		}
	}

	p, err := pipeline.NewPipeline(cfg, run)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stderr, "Grading %s against %s (%d verifiers)...\n", args[1], sc.ScenarioID, cfg.Grading.NumVerifiers)
	start := time.Now()

	result, err := p.GradeTrial(ctx, sc, tr)
	if err != nil {
		return fmt.Errorf("grade %s: %w", args[1], err)
	}

	fmt.Fprintf(os.Stderr, "✓ Graded in %s: %s\n", time.Since(start).Round(time.Millisecond), rubricSummary(result.FinalScores))
	if result.Adjudication != nil && result.Adjudication.NeedsManualReview {
		fmt.Fprintf(os.Stderr, "⚠ Needs manual review: %s\n", result.Adjudication.AdjudicationNotes)
	}
	if run != nil {
		fmt.Fprintf(os.Stderr, "  Run: %s\n", run.Dir)
	}

	return writeJSONOutput(gradeOut, result)
}

// warnIfOutdated notes scenarios whose temporal validity excludes today
func warnIfOutdated(sc *model.Scenario) {
	if !scenario.IsCurrent(sc, time.Now()) {
		fmt.Fprintf(os.Stderr, "⚠ Scenario %s is outside its temporal validity window; answer key may be outdated\n", sc.ScenarioID)
	}
}

func rubricSummary(s model.ScoreResult) string {
	if s.RubricScore == nil || s.RubricLabel == nil {
		return fmt.Sprintf("completeness %.1f%%, accuracy %.1f%%", s.CompletenessPercentage, s.AccuracyPercentage)
	}
	return fmt.Sprintf("score %d (%s), completeness %.1f%%, accuracy %.1f%%",
		*s.RubricScore, *s.RubricLabel, s.CompletenessPercentage, s.AccuracyPercentage)
}

// writeJSONOutput writes v as indented JSON to path, or stdout when path is empty
func writeJSONOutput(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	return nil
}
