package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/medeval/internal/model"
	"github.com/ppiankov/medeval/internal/storage"
)

var runsShowJSON bool

// runsCmd groups commands that inspect persisted runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect persisted grading runs",
	Long:  `List and summarize the run directories written by grade --run-dir and batch.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		ids, err := store.ListRuns()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintf(os.Stderr, "No runs in %s\n", store.BaseDir())
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Summarize the trial results of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		run, err := store.OpenRun(args[0])
		if err != nil {
			return err
		}
		results, err := run.LoadResults()
		if err != nil {
			return err
		}

		if runsShowJSON {
			return writeJSONOutput("", results)
		}

		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Printf("  Run %s\n", run.ID)
		fmt.Println("═══════════════════════════════════════════════════════════")
		if metadata, err := run.LoadMetadata(); err == nil {
			for _, key := range []string{"scenario_id", "num_verifiers", "llm_provider", "llm_model", "started_at"} {
				if v, ok := metadata[key]; ok {
					fmt.Printf("%s: %v\n", key, v)
				}
			}
		}
		fmt.Println()

		for _, tr := range results {
			fmt.Printf("%s  %s  %s\n", tr.TrialID, targetName(tr.Target), rubricSummary(tr.FinalScores))
			if tr.Adjudication != nil && tr.Adjudication.NeedsManualReview {
				fmt.Printf("    needs manual review (disagreement %.1f%%)\n", tr.Adjudication.DisagreementPercentage)
			}
		}
		fmt.Printf("\nTrials: %d\n", len(results))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsShowCmd.Flags().BoolVar(&runsShowJSON, "json", false, "print the trial results as JSON")
}

func openStore() (*storage.Store, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return storage.New(cfg.Output.RunsDir)
}

func targetName(t model.TargetModelInfo) string {
	if t.Provider == "" {
		return t.ModelName
	}
	return t.Provider + "/" + t.ModelName
}
