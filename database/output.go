package database

import (
	"context"
	"database/sql"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"
)

const outputColumns = `output_id, step_id, product_id, lot_code, boxes, weight, created_at, updated_at`

func scanOutput(row interface{ Scan(...interface{}) error }) (model.Output, error) {
	var (
		out     model.Output
		lotCode sql.NullString
	)
	err := row.Scan(&out.OutputID, &out.StepID, &out.ProductID, &lotCode, &out.Boxes, &out.Weight, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return model.Output{}, err
	}
	out.LotCode = lotCode.String
	return out, nil
}

func (d Datasource) GetOutputByID(ctx context.Context, id string) (*model.Output, error) {
	ctx, span := tracer.Start(ctx, "GetOutputByID")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `SELECT `+outputColumns+` FROM pesquera.outputs WHERE output_id = $1`, id)
	out, err := scanOutput(row)
	if err != nil {
		return nil, mapError(err, "Output", "Failed to retrieve output")
	}
	return &out, nil
}

func (d Datasource) GetOutputsByStep(ctx context.Context, stepID string) ([]model.Output, error) {
	ctx, span := tracer.Start(ctx, "GetOutputsByStep")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `SELECT `+outputColumns+` FROM pesquera.outputs WHERE step_id = $1 ORDER BY id`, stepID)
	if err != nil {
		return nil, mapError(err, "Output", "Failed to retrieve outputs")
	}
	defer rows.Close()

	outputs := []model.Output{}
	for rows.Next() {
		out, err := scanOutput(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan output data", err)
		}
		outputs = append(outputs, out)
	}
	return outputs, rows.Err()
}
