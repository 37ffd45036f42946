// Package storage persists graded trials under timestamped run directories.
//
// Layout of one run:
//
//	<base>/<run_id>/results.jsonl
//	<base>/<run_id>/run_metadata.json
//	<base>/<run_id>/transcripts/<trial_id>.json
//	<base>/<run_id>/intermediate/<trial_id>/<stage>.json
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/medeval/internal/model"
)

const (
	runIDLayout     = "20060102_150405"
	resultsFile     = "results.jsonl"
	metadataFile    = "run_metadata.json"
	transcriptsDir  = "transcripts"
	intermediateDir = "intermediate"

	maxResultLine = 16 << 20
)

// Store is a directory of runs
type Store struct {
	baseDir string
	now     func() time.Time
}

// New creates the base directory if needed
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, errors.New("runs directory is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create runs directory: %w", err)
	}
	return &Store{baseDir: baseDir, now: time.Now}, nil
}

// BaseDir returns the directory holding all runs
func (s *Store) BaseDir() string { return s.baseDir }

// CreateRun makes a run directory. An empty runID uses the current UTC time.
func (s *Store) CreateRun(runID string) (*Run, error) {
	if runID == "" {
		runID = s.now().UTC().Format(runIDLayout)
	}
	if err := checkName(runID); err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	dir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &Run{ID: runID, Dir: dir}, nil
}

// OpenRun returns an existing run
func (s *Store) OpenRun(runID string) (*Run, error) {
	if err := checkName(runID); err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	dir := filepath.Join(s.baseDir, runID)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open run %s: %w", runID, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open run %s: not a directory", runID)
	}
	return &Run{ID: runID, Dir: dir}, nil
}

// ListRuns returns run ids, most recently modified first. Hidden directories are skipped.
func (s *Store) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list runs: %w", err)
	}

	type runEntry struct {
		id      string
		modTime time.Time
	}
	var runs []runEntry
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		runs = append(runs, runEntry{id: e.Name(), modTime: info.ModTime()})
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].modTime.Equal(runs[j].modTime) {
			return runs[i].modTime.After(runs[j].modTime)
		}
		return runs[i].id > runs[j].id
	})

	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.id
	}
	return ids, nil
}

// Run is one run directory. It is safe for concurrent use.
type Run struct {
	ID  string
	Dir string

	mu sync.Mutex
}

// ResultsPath returns the path of the run's JSONL results file
func (r *Run) ResultsPath() string {
	return filepath.Join(r.Dir, resultsFile)
}

// AppendResult writes tr as one line of results.jsonl
func (r *Run) AppendResult(tr *model.TrialResult) error {
	if tr == nil {
		return errors.New("trial result is nil")
	}
	line, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("marshal trial %s: %w", tr.TrialID, err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.ResultsPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append trial %s: %w", tr.TrialID, err)
	}
	return f.Close()
}

// LoadResults reads every trial in results.jsonl. A missing file yields no trials.
func (r *Run) LoadResults() ([]*model.TrialResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.ResultsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*model.TrialResult{}, nil
		}
		return nil, fmt.Errorf("open results: %w", err)
	}
	defer func() { _ = f.Close() }()

	results := []*model.TrialResult{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxResultLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var tr model.TrialResult
		if err := json.Unmarshal([]byte(line), &tr); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", resultsFile, lineNo, err)
		}
		results = append(results, &tr)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return results, nil
}

type transcriptRecord struct {
	TrialID      string                   `json:"trial_id"`
	Conversation []model.ConversationTurn `json:"conversation"`
}

// SaveTranscript writes the raw conversation for a trial
func (r *Run) SaveTranscript(trialID string, conversation []model.ConversationTurn) (string, error) {
	if err := checkName(trialID); err != nil {
		return "", fmt.Errorf("trial id: %w", err)
	}
	path := filepath.Join(r.Dir, transcriptsDir, trialID+".json")
	return path, writeJSON(path, transcriptRecord{TrialID: trialID, Conversation: conversation})
}

// SaveIntermediate writes one stage's output (extraction, verification_V1, ...) for debugging
func (r *Run) SaveIntermediate(trialID, stage string, data interface{}) (string, error) {
	if err := checkName(trialID); err != nil {
		return "", fmt.Errorf("trial id: %w", err)
	}
	if err := checkName(stage); err != nil {
		return "", fmt.Errorf("stage: %w", err)
	}
	path := filepath.Join(r.Dir, intermediateDir, trialID, stage+".json")
	return path, writeJSON(path, data)
}

// SaveMetadata writes run_metadata.json, replacing any previous copy
func (r *Run) SaveMetadata(metadata map[string]interface{}) (string, error) {
	path := filepath.Join(r.Dir, metadataFile)
	return path, writeJSON(path, metadata)
}

// LoadMetadata reads run_metadata.json
func (r *Run) LoadMetadata() (map[string]interface{}, error) {
	data, err := os.ReadFile(filepath.Join(r.Dir, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("read run metadata: %w", err)
	}
	var metadata map[string]interface{}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("parse run metadata: %w", err)
	}
	return metadata, nil
}

// writeJSON writes v as indented JSON through a temp file and rename
func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func checkName(name string) error {
	switch {
	case name == "":
		return errors.New("empty name")
	case name == "." || name == "..":
		return fmt.Errorf("invalid name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name %q contains a path separator", name)
	}
	return nil
}
