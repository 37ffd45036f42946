// Package verify judges claims against an answer key and joins independent verifiers.
package verify

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/medeval/internal/log"
	"github.com/ppiankov/medeval/internal/model"
)

// Verifier labels every claim against the answer key
type Verifier interface {
	ID() string
	Verify(ctx context.Context, claims []model.Claim, key *model.AnswerKey) (*model.VerificationResult, error)
}

// CheckCoverage confirms result has exactly one verdict per claim
func CheckCoverage(result *model.VerificationResult, claims []model.Claim) error {
	want := make(map[string]bool, len(claims))
	for _, c := range claims {
		want[c.ClaimID] = true
	}

	counts := make(map[string]int, len(result.Verdicts))
	for _, v := range result.Verdicts {
		counts[v.ClaimID]++
	}

	var missing, extra, dups []string
	for _, c := range claims {
		if counts[c.ClaimID] == 0 {
			missing = append(missing, c.ClaimID)
		}
	}
	for id, n := range counts {
		if !want[id] {
			extra = append(extra, id)
		}
		if n > 1 {
			dups = append(dups, id)
		}
	}

	if len(missing) == 0 && len(extra) == 0 && len(dups) == 0 {
		return nil
	}
	sort.Strings(extra)
	sort.Strings(dups)
	return &model.CoverageMismatchError{
		VerifierID: result.VerifierID,
		Missing:    missing,
		Extra:      extra,
		Duplicates: dups,
	}
}

// RunAll runs every verifier concurrently and waits for all of them.
// Results keep verifier order. The first failure cancels the rest.
func RunAll(ctx context.Context, verifiers []Verifier, claims []model.Claim, key *model.AnswerKey) ([]model.VerificationResult, error) {
	if len(verifiers) == 0 {
		return nil, fmt.Errorf("no verifiers configured")
	}

	results := make([]model.VerificationResult, len(verifiers))
	g, gctx := errgroup.WithContext(ctx)

	for i, v := range verifiers {
		g.Go(func() error {
			res, err := v.Verify(gctx, claims, key)
			if err != nil {
				return fmt.Errorf("verifier %s: %w", v.ID(), err)
			}
			if res == nil {
				return fmt.Errorf("verifier %s returned no result", v.ID())
			}
			if res.VerifierID == "" {
				res.VerifierID = v.ID()
			}
			if err := CheckCoverage(res, claims); err != nil {
				return err
			}
			results[i] = *res
			log.Debugf("verifier %s returned %d verdicts", v.ID(), len(res.Verdicts))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
