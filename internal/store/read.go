package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/clicheck/internal/harness"
)

// ErrRunNotFound is returned by ReadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is the header row of one recorded run.
type RunRecord struct {
	Seq       int64     `json:"seq"`
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Catalogue string    `json:"catalogue,omitempty"`
	AllPassed bool      `json:"all_passed"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
	Total     int       `json:"total"`
}

// ScenarioRecord is one recorded execution of a named scenario.
type ScenarioRecord struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Pass      bool      `json:"pass"`
	ExitCode  int       `json:"exit_code"`
	Errors    []string  `json:"errors,omitempty"`
}

// ListRuns returns recorded runs, newest first. A limit <= 0 returns all runs.
//
// Returns an empty slice (not nil) if nothing has been recorded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, started_at, catalogue, all_passed, passed, failed, total
		FROM runs
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun reconstructs the full summary of one run. Channel results carry
// paths and outcome only; compared text is not stored.
func (s *Store) ReadRun(ctx context.Context, id string) (*harness.Summary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, started_at, catalogue, all_passed, passed, failed, total
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	summary := &harness.Summary{
		RunID:     run.ID,
		StartedAt: run.StartedAt,
		Catalogue: run.Catalogue,
		AllPassed: run.AllPassed,
		Passed:    run.Passed,
		Failed:    run.Failed,
		Total:     run.Total,
		Results:   []*harness.RunResult{},
	}

	results, ids, err := s.readScenarioResults(ctx, id)
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		channels, err := s.readChannelResults(ctx, ids[i])
		if err != nil {
			return nil, err
		}
		r.Channels = channels
		summary.Results = append(summary.Results, r)
	}
	return summary, nil
}

// ScenarioHistory returns the recorded executions of one scenario, newest
// first. A limit <= 0 returns the full history.
func (s *Store) ScenarioHistory(ctx context.Context, scenario string, limit int) ([]ScenarioRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, sr.pass, sr.exit_code, sr.errors
		FROM scenario_results sr
		JOIN runs r ON sr.run_id = r.id
		WHERE sr.scenario = ?
		ORDER BY r.seq DESC
		LIMIT ?
	`, scenario, limit)
	if err != nil {
		return nil, fmt.Errorf("query scenario history: %w", err)
	}
	defer rows.Close()

	history := []ScenarioRecord{}
	for rows.Next() {
		var (
			rec       ScenarioRecord
			startedAt string
			pass      int
			errsJSON  string
		)
		if err := rows.Scan(&rec.RunID, &startedAt, &pass, &rec.ExitCode, &errsJSON); err != nil {
			return nil, fmt.Errorf("scan scenario history: %w", err)
		}
		if rec.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if rec.Errors, err = unmarshalErrors(errsJSON); err != nil {
			return nil, err
		}
		rec.Pass = pass != 0
		history = append(history, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario history: %w", err)
	}
	return history, nil
}

func (s *Store) readScenarioResults(ctx context.Context, runID string) ([]*harness.RunResult, []int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, pass, exit_code, errors
		FROM scenario_results
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("query scenario results: %w", err)
	}
	defer rows.Close()

	var (
		results []*harness.RunResult
		ids     []int64
	)
	for rows.Next() {
		var (
			id       int64
			r        harness.RunResult
			pass     int
			errsJSON string
		)
		if err := rows.Scan(&id, &r.Scenario, &pass, &r.ExitCode, &errsJSON); err != nil {
			return nil, nil, fmt.Errorf("scan scenario result: %w", err)
		}
		if r.Errors, err = unmarshalErrors(errsJSON); err != nil {
			return nil, nil, err
		}
		r.Pass = pass != 0
		results = append(results, &r)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate scenario results: %w", err)
	}
	return results, ids, nil
}

func (s *Store) readChannelResults(ctx context.Context, scenarioResultID int64) ([]harness.ChannelResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel, matched, applied, expected_path, result_path, error
		FROM channel_results
		WHERE scenario_result_id = ?
		ORDER BY id ASC
	`, scenarioResultID)
	if err != nil {
		return nil, fmt.Errorf("query channel results: %w", err)
	}
	defer rows.Close()

	channels := []harness.ChannelResult{}
	for rows.Next() {
		var (
			cr             harness.ChannelResult
			channel        string
			match, applied int
		)
		if err := rows.Scan(&channel, &match, &applied, &cr.ExpectedPath, &cr.ResultPath, &cr.Error); err != nil {
			return nil, fmt.Errorf("scan channel result: %w", err)
		}
		cr.Channel = harness.Channel(channel)
		cr.Match = match != 0
		cr.Applied = applied != 0
		channels = append(channels, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel results: %w", err)
	}
	return channels, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		run       RunRecord
		startedAt string
		allPassed int
	)
	err := row.Scan(&run.Seq, &run.ID, &startedAt, &run.Catalogue, &allPassed, &run.Passed, &run.Failed, &run.Total)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("scan run: %w", err)
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return run, err
	}
	run.AllPassed = allPassed != 0
	return run, nil
}
