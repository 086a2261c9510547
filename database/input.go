package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"
)

// BindInputs inserts all bindings in one statement. Pairs that already exist
// are skipped by the unique (step_id, box_id) constraint and left out of the
// returned slice.
func (d Datasource) BindInputs(ctx context.Context, inputs []model.Input) ([]model.Input, error) {
	ctx, span := tracer.Start(ctx, "BindInputs")
	defer span.End()

	if len(inputs) == 0 {
		return []model.Input{}, nil
	}

	values := make([]string, 0, len(inputs))
	args := make([]interface{}, 0, len(inputs)*4)
	for i, in := range inputs {
		n := i * 4
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4))
		args = append(args, in.InputID, in.StepID, in.BoxID, in.CreatedAt)
	}

	rows, err := d.Conn.QueryContext(ctx, `
		INSERT INTO pesquera.inputs (input_id, step_id, box_id, created_at)
		VALUES `+strings.Join(values, ", ")+`
		ON CONFLICT (step_id, box_id) DO NOTHING
		RETURNING input_id, step_id, box_id, created_at
	`, args...)
	if err != nil {
		span.RecordError(err)
		return nil, mapError(err, "Input", "Failed to bind inputs")
	}
	defer rows.Close()

	bound := []model.Input{}
	for rows.Next() {
		in := model.Input{}
		if err := rows.Scan(&in.InputID, &in.StepID, &in.BoxID, &in.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan input data", err)
		}
		bound = append(bound, in)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "Input", "Failed to bind inputs")
	}
	return bound, nil
}

func (d Datasource) GetInputByID(ctx context.Context, id string) (*model.Input, error) {
	ctx, span := tracer.Start(ctx, "GetInputByID")
	defer span.End()

	in := model.Input{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT input_id, step_id, box_id, created_at FROM pesquera.inputs WHERE input_id = $1
	`, id).Scan(&in.InputID, &in.StepID, &in.BoxID, &in.CreatedAt)
	if err != nil {
		return nil, mapError(err, "Input", "Failed to retrieve input")
	}
	return &in, nil
}

func (d Datasource) GetInputsByStep(ctx context.Context, stepID string) ([]model.Input, error) {
	ctx, span := tracer.Start(ctx, "GetInputsByStep")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT input_id, step_id, box_id, created_at FROM pesquera.inputs WHERE step_id = $1 ORDER BY id
	`, stepID)
	if err != nil {
		return nil, mapError(err, "Input", "Failed to retrieve inputs")
	}
	defer rows.Close()

	inputs := []model.Input{}
	for rows.Next() {
		in := model.Input{}
		if err := rows.Scan(&in.InputID, &in.StepID, &in.BoxID, &in.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan input data", err)
		}
		inputs = append(inputs, in)
	}
	return inputs, rows.Err()
}

func (d Datasource) DeleteInput(ctx context.Context, inputID string) error {
	ctx, span := tracer.Start(ctx, "DeleteInput")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `DELETE FROM pesquera.inputs WHERE input_id = $1`, inputID)
	if err != nil {
		return mapError(err, "Input", "Failed to delete input")
	}
	return expectAffected(result, "Input")
}
