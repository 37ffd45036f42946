package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/medeval/internal/model"
	"github.com/ppiankov/medeval/internal/scenario"
)

// Grader grades one transcript against a scenario
type Grader interface {
	GradeTrial(ctx context.Context, sc *model.Scenario, tr *model.Transcript) (*model.TrialResult, error)
}

// GradeJob grades the transcript at Path
type GradeJob struct {
	Index    int
	Path     string
	Scenario *model.Scenario
	Grader   Grader
}

// Execute loads and grades the transcript
func (j *GradeJob) Execute(ctx context.Context) Result {
	tr, err := scenario.LoadTranscript(j.Path)
	if err != nil {
		return &GradeResult{Index: j.Index, Path: j.Path, Error: err}
	}

	result, err := j.Grader.GradeTrial(ctx, j.Scenario, tr)
	if err != nil {
		return &GradeResult{Index: j.Index, Path: j.Path, Error: err}
	}
	return &GradeResult{Index: j.Index, Path: j.Path, Trial: result}
}

// GradeResult is the outcome for one transcript file
type GradeResult struct {
	Index int
	Path  string
	Trial *model.TrialResult
	Error error
}

// GetError returns the error from the grade result
func (r *GradeResult) GetError() error {
	return r.Error
}

// BatchProcessor grades many transcripts concurrently
type BatchProcessor struct {
	grader      Grader
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(grader Grader, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		grader:      grader,
		concurrency: concurrency,
	}
}

// ProcessTranscripts grades each path and returns results in input order
func (b *BatchProcessor) ProcessTranscripts(ctx context.Context, sc *model.Scenario, paths []string) []*GradeResult {
	if len(paths) == 0 {
		return []*GradeResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	out := make([]*GradeResult, len(paths))
	for i, path := range paths {
		if !pool.Submit(&GradeJob{Index: i, Path: path, Scenario: sc, Grader: b.grader}) {
			out[i] = &GradeResult{Index: i, Path: path, Error: fmt.Errorf("not graded: %w", ctx.Err())}
		}
	}

	for _, r := range pool.Wait() {
		gr := r.(*GradeResult)
		out[gr.Index] = gr
	}

	// Jobs dropped by a cancelled pool never produce a result
	for i, r := range out {
		if r == nil {
			out[i] = &GradeResult{Index: i, Path: paths[i], Error: fmt.Errorf("not graded: %w", context.Canceled)}
		}
	}

	return out
}

// ProcessDir grades every *.json transcript in dir, or every path listed in a list file
func (b *BatchProcessor) ProcessDir(ctx context.Context, sc *model.Scenario, target string) ([]*GradeResult, error) {
	paths, err := TranscriptPaths(target)
	if err != nil {
		return nil, err
	}
	return b.ProcessTranscripts(ctx, sc, paths), nil
}

// TranscriptPaths expands target into transcript files. A directory yields its
// *.json files sorted by name; any other file is read as a path list.
func TranscriptPaths(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", target, err)
	}
	if !info.IsDir() {
		return ReadPathList(target)
	}

	matches, err := filepath.Glob(filepath.Join(target, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadPathList reads paths from a file (one per line, # comments, relative to the file)
func ReadPathList(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
