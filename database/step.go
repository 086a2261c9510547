package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"
)

const stepColumns = `step_id, lot_id, parent_step_id, process_id, notes, started_at, finished_at, created_at`

func scanStep(row interface{ Scan(...interface{}) error }) (model.Step, error) {
	var (
		step          model.Step
		parent, notes sql.NullString
	)
	err := row.Scan(&step.StepID, &step.LotID, &parent, &step.ProcessID, &notes,
		&step.StartedAt, &step.FinishedAt, &step.CreatedAt)
	if err != nil {
		return model.Step{}, err
	}
	step.ParentStepID = parent.String
	step.Notes = notes.String
	return step, nil
}

func (d Datasource) CreateStep(ctx context.Context, step model.Step) (model.Step, error) {
	ctx, span := tracer.Start(ctx, "CreateStep")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO pesquera.steps (step_id, lot_id, parent_step_id, process_id, notes, started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, step.StepID, step.LotID, nullString(step.ParentStepID), step.ProcessID, nullString(step.Notes),
		step.StartedAt, step.FinishedAt, step.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return model.Step{}, mapError(err, "Step", "Failed to create step")
	}
	return step, nil
}

func (d Datasource) GetStepByID(ctx context.Context, id string) (*model.Step, error) {
	ctx, span := tracer.Start(ctx, "GetStepByID")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `SELECT `+stepColumns+` FROM pesquera.steps WHERE step_id = $1`, id)
	step, err := scanStep(row)
	if err != nil {
		return nil, mapError(err, "Step", "Failed to retrieve step")
	}
	return &step, nil
}

func (d Datasource) GetStepsByLot(ctx context.Context, lotID string) ([]model.Step, error) {
	ctx, span := tracer.Start(ctx, "GetStepsByLot")
	defer span.End()

	return d.querySteps(ctx, `SELECT `+stepColumns+` FROM pesquera.steps WHERE lot_id = $1 ORDER BY id`, lotID)
}

func (d Datasource) querySteps(ctx context.Context, query string, args ...interface{}) ([]model.Step, error) {
	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "Step", "Failed to retrieve steps")
	}
	defer rows.Close()

	steps := []model.Step{}
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan step data", err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "Step", "Error occurred while iterating over steps")
	}
	return steps, nil
}

func (d Datasource) FinishStep(ctx context.Context, stepID string, finishedAt time.Time) error {
	ctx, span := tracer.Start(ctx, "FinishStep")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE pesquera.steps SET finished_at = $2 WHERE step_id = $1 AND finished_at IS NULL
	`, stepID, finishedAt)
	if err != nil {
		return mapError(err, "Step", "Failed to finish step")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrPersistence, "Failed to read affected rows", err)
	}
	if n == 0 {
		return apierror.New(apierror.ErrConflict, apierror.ReasonStepFinished, "Step is already finished", nil)
	}
	return nil
}

// UpdateStepParent moves a step that consumes nothing yet. The step row lock
// waits out any ledger write holding the step, and the consumption check
// then runs on a snapshot that includes what that write committed.
func (d Datasource) UpdateStepParent(ctx context.Context, stepID, parentStepID string) error {
	ctx, span := tracer.Start(ctx, "UpdateStepParent")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return mapError(err, "Step", "Failed to move step")
	}
	defer func() { _ = tx.Rollback() }()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT step_id FROM pesquera.steps WHERE step_id = $1 FOR UPDATE`, stepID).Scan(&locked)
	if err != nil {
		return mapError(err, "Step", "Failed to move step")
	}

	var consumes bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM pesquera.consumptions WHERE step_id = $1)
	`, stepID).Scan(&consumes)
	if err != nil {
		return mapError(err, "Step", "Failed to move step")
	}
	if consumes {
		return apierror.NewAPIError(apierror.ErrConflict, "Step already consumes outputs of its parent and cannot be moved", nil)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE pesquera.steps SET parent_step_id = $2 WHERE step_id = $1`,
		stepID, nullString(parentStepID)); err != nil {
		span.RecordError(err)
		return mapError(err, "Step", "Failed to move step")
	}
	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return mapError(err, "Step", "Failed to move step")
	}
	return nil
}
