package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ddmitrov/fincore/internal/domain"
)

const maxRunErrorLen = 2000

// StartParsingRun records a RUNNING row for an ingestion attempt and returns
// its id.
func (s *Store) StartParsingRun(ctx context.Context, userID string, modality domain.Modality) (string, error) {
	runID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO parsing_runs (id, user_id, modality, status, started_at)
		VALUES (?, ?, ?, 'RUNNING', ?)`,
		runID, userID, string(modality), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("start parsing run: %w", err)
	}
	return runID, nil
}

// FinishParsingRun closes a run as SUCCESS or FAILED, retaining the raw
// model output for later inspection.
func (s *Store) FinishParsingRun(ctx context.Context, runID string, rawOutput string, runErr error) error {
	status := "SUCCESS"
	errMsg := ""
	if runErr != nil {
		status = "FAILED"
		errMsg = runErr.Error()
		if len(errMsg) > maxRunErrorLen {
			errMsg = errMsg[:maxRunErrorLen]
		}
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE parsing_runs
		SET status = ?, error_message = ?, raw_output = ?, finished_at = ?
		WHERE id = ?`,
		status, errMsg, rawOutput, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("finish parsing run: %w", err)
	}
	return nil
}
