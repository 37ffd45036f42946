package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/medeval/internal/model"
	"github.com/ppiankov/medeval/internal/pipeline"
	"github.com/ppiankov/medeval/internal/scenario"
	"github.com/ppiankov/medeval/internal/storage"
	"github.com/ppiankov/medeval/internal/worker"
)

var (
	batchFlags       gradingFlags
	batchConcurrency int
	batchTimeout     time.Duration
	batchRunID       string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <scenario.yaml> <transcripts-dir|list-file>",
	Short: "Grade many transcripts concurrently",
	Long: `Grade every *.json transcript in a directory, or every path listed in a
file (one per line, # for comments), against one scenario.

Results are appended to results.jsonl in a new run directory under the
configured runs directory.

Examples:
  medeval batch scenario.yaml transcripts/
  medeval batch scenario.yaml trials.txt --concurrency 8
  medeval batch scenario.yaml transcripts/ --offline --run-id baseline`,
	Args: cobra.ExactArgs(2),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchFlags.register(batchCmd)
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 4, "number of transcripts graded in parallel")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 0, "overall timeout for the batch (0 = none)")
	batchCmd.Flags().StringVar(&batchRunID, "run-id", "", "run id (default: timestamp)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	batchFlags.apply(cmd, cfg)
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = batchConcurrency
	}
	if cfg.Concurrency.Workers < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}

	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	warnIfOutdated(sc)

	paths, err := worker.TranscriptPaths(args[1])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no transcripts found in %s", args[1])
	}

	store, err := storage.New(cfg.Output.RunsDir)
	if err != nil {
		return err
	}
	run, err := store.CreateRun(batchRunID)
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(cfg, run)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, batchTimeout)
		defer cancel()
	}

	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Grading: %s\n", sc.ScenarioID)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "Transcripts: %d\n", len(paths))
	fmt.Fprintf(os.Stderr, "Verifiers: %d\n", cfg.Grading.NumVerifiers)
	fmt.Fprintf(os.Stderr, "Concurrency: %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "Run: %s\n\n", run.Dir)

	start := time.Now()
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)
	results := processor.ProcessTranscripts(ctx, sc, paths)
	elapsed := time.Since(start)

	summary := summarizeBatch(results)
	for _, r := range results {
		name := filepath.Base(r.Path)
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", name, r.Error)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %s\n", name, rubricSummary(r.Trial.FinalScores))
	}

	metadata := map[string]interface{}{
		"scenario_id":     sc.ScenarioID,
		"rubric_version":  sc.RubricVersion,
		"num_transcripts": len(paths),
		"num_verifiers":   cfg.Grading.NumVerifiers,
		"threshold":       cfg.Grading.DisagreementThreshold,
		"seed":            cfg.Grading.Seed,
		"offline":         cfg.Grading.Offline,
		"llm_provider":    cfg.LLM.Provider,
		"llm_model":       cfg.LLM.Model,
		"started_at":      start.UTC(),
		"duration_ms":     elapsed.Milliseconds(),
		"succeeded":       summary.succeeded,
		"failed":          summary.failed,
		"manual_review":   summary.manualReview,
		"rubric_counts":   summary.rubricCounts,
	}
	if _, err := run.SaveMetadata(metadata); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Summary\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "Graded: %d/%d\n", summary.succeeded, len(results))
	fmt.Fprintf(os.Stderr, "Failed: %d\n", summary.failed)
	fmt.Fprintf(os.Stderr, "Needs manual review: %d\n", summary.manualReview)
	for _, name := range tierOrder {
		tier := model.DefaultRubricTiers[name]
		fmt.Fprintf(os.Stderr, "Score %d (%s): %d\n", tier.Score, tier.Label, summary.rubricCounts[tier.Score])
	}
	if summary.unscored > 0 {
		fmt.Fprintf(os.Stderr, "Unscored: %d\n", summary.unscored)
	}
	fmt.Fprintf(os.Stderr, "Duration: %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "Results: %s\n", run.ResultsPath())

	if summary.failed > 0 {
		return fmt.Errorf("%d of %d transcripts failed to grade", summary.failed, len(results))
	}
	return nil
}

var tierOrder = []model.RubricTierName{
	model.TierAccurateComplete,
	model.TierSubstantiveIncomplete,
	model.TierNotSubstantive,
	model.TierIncorrect,
}

type batchSummary struct {
	succeeded    int
	failed       int
	manualReview int
	unscored     int
	rubricCounts map[int]int
}

func summarizeBatch(results []*worker.GradeResult) batchSummary {
	s := batchSummary{rubricCounts: make(map[int]int)}
	for _, r := range results {
		if r.Error != nil || r.Trial == nil {
			s.failed++
			continue
		}
		s.succeeded++
		if r.Trial.Adjudication != nil && r.Trial.Adjudication.NeedsManualReview {
			s.manualReview++
		}
		if r.Trial.FinalScores.RubricScore == nil {
			s.unscored++
			continue
		}
		s.rubricCounts[*r.Trial.FinalScores.RubricScore]++
	}
	return s
}
