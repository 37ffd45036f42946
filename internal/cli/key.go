package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/medeval/internal/keycheck"
	"github.com/ppiankov/medeval/internal/model"
	"github.com/ppiankov/medeval/internal/scenario"
)

var (
	keyJSON    bool
	keyOffline bool
	keyStrict  bool
)

// keyCmd groups answer-key maintenance commands
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Answer key maintenance",
}

// keyCheckCmd represents the key check command
var keyCheckCmd = &cobra.Command{
	Use:   "check <scenario.yaml>",
	Short: "Validate an answer key and check its sources",
	Long: `Validate the scenario's answer key for internal consistency (fact ids,
severities, required points, rubric subsets), then check every canonical
fact's source URL: reachability, redirects, robots.txt, Last-Modified age and
authority tier.

A source is stale when it was last modified before the scenario's validity
window opened.

Examples:
  medeval key check scenarios/ma_vs_tm_basics.yaml
  medeval key check scenario.yaml --offline
  medeval key check scenario.yaml --strict --json`,
	Args: cobra.ExactArgs(1),
	RunE: runKeyCheck,
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyCheckCmd)

	keyCheckCmd.Flags().BoolVar(&keyJSON, "json", false, "print source checks as JSON")
	keyCheckCmd.Flags().BoolVar(&keyOffline, "offline", false, "check consistency only, no network")
	keyCheckCmd.Flags().BoolVar(&keyStrict, "strict", false, "fail on dead, stale, robots-blocked or tertiary sources")
}

func runKeyCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	sc, err := scenario.Load(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Answer key inconsistent\n")
		return err
	}
	if sc.AnswerKey == nil {
		return fmt.Errorf("scenario %s has no answer key", sc.ScenarioID)
	}
	fmt.Fprintf(os.Stderr, "✓ Answer key consistent: %d facts, %d required points\n",
		len(sc.AnswerKey.CanonicalFacts), len(sc.AnswerKey.RequiredPoints))
	warnIfOutdated(sc)

	if keyOffline {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stderr, "Checking sources...\n")
	checks, err := keycheck.NewChecker(cfg).Check(ctx, sc)
	if err != nil {
		return err
	}

	if keyJSON {
		if err := writeJSONOutput("", checks); err != nil {
			return err
		}
	} else {
		printSourceChecks(checks)
	}

	problems := countSourceProblems(checks)
	if problems > 0 && keyStrict {
		return fmt.Errorf("%d source problems found", problems)
	}
	return nil
}

func printSourceChecks(checks []model.SourceCheck) {
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("  Answer Key Sources")
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()

	for _, c := range checks {
		mark := "✓"
		if sourceProblem(c) {
			mark = "✗"
		}
		fmt.Printf("%s %s  %s\n", mark, c.FactID, displaySource(c))

		switch {
		case c.Error != "":
			fmt.Printf("    error: %s\n", c.Error)
		case c.IsDead:
			fmt.Printf("    dead (HTTP %d)\n", c.StatusCode)
		}
		if c.StatusCode != 0 && !c.IsDead {
			fmt.Printf("    HTTP %d, authority: %s\n", c.StatusCode, c.Authority)
		}
		if c.RedirectURL != "" {
			fmt.Printf("    redirects to %s\n", c.RedirectURL)
		}
		if c.Age != nil {
			stale := ""
			if c.IsStale {
				stale = " (stale)"
			}
			fmt.Printf("    last modified %d days ago%s\n", *c.Age, stale)
		}
	}

	fmt.Println()
	fmt.Printf("Sources checked: %d, problems: %d\n", len(checks), countSourceProblems(checks))
}

func displaySource(c model.SourceCheck) string {
	if c.URL != "" {
		return c.URL
	}
	return c.Source
}

// sourceProblem reports whether a check would fail --strict
func sourceProblem(c model.SourceCheck) bool {
	return c.Error != "" || c.IsDead || c.IsStale || !c.RobotsAllowed || c.Authority == model.TierTertiary
}

func countSourceProblems(checks []model.SourceCheck) int {
	n := 0
	for _, c := range checks {
		if sourceProblem(c) {
			n++
		}
	}
	return n
}
