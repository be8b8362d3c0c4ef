package store

import (
	"context"
	"fmt"

	"github.com/roach88/clicheck/internal/harness"
)

// RecordRun writes a run summary with all scenario and channel outcomes in
// one transaction. Uses ON CONFLICT(id) DO NOTHING for idempotency:
// recording the same run ID twice leaves the first record intact and
// returns inserted=false.
func (s *Store) RecordRun(ctx context.Context, summary *harness.Summary) (inserted bool, err error) {
	if summary == nil || summary.RunID == "" {
		return false, fmt.Errorf("record run: run ID is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, catalogue, all_passed, passed, failed, total)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		summary.RunID,
		formatTime(summary.StartedAt),
		summary.Catalogue,
		boolToInt(summary.AllPassed),
		summary.Passed,
		summary.Failed,
		summary.Total,
	)
	if err != nil {
		return false, fmt.Errorf("record run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record run: rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	for i, r := range summary.Results {
		errsJSON, err := marshalErrors(r.Errors)
		if err != nil {
			return false, fmt.Errorf("record run: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO scenario_results
			(run_id, position, scenario, pass, exit_code, errors)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			summary.RunID,
			i,
			r.Scenario,
			boolToInt(r.Pass),
			r.ExitCode,
			errsJSON,
		)
		if err != nil {
			return false, fmt.Errorf("record scenario %q: %w", r.Scenario, err)
		}
		scenarioID, err := res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("record scenario %q: last insert id: %w", r.Scenario, err)
		}

		for _, ch := range r.Channels {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO channel_results
				(scenario_result_id, channel, matched, applied, expected_path, result_path, error)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`,
				scenarioID,
				string(ch.Channel),
				boolToInt(ch.Match),
				boolToInt(ch.Applied),
				ch.ExpectedPath,
				ch.ResultPath,
				ch.Error,
			)
			if err != nil {
				return false, fmt.Errorf("record channel %s/%s: %w", r.Scenario, ch.Channel, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("record run: commit: %w", err)
	}
	return true, nil
}
