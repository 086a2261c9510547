package database

import (
	"context"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"
)

// GetLotGraph reads a whole lot in five queries so tree building never has
// to go back to the database per node.
func (d Datasource) GetLotGraph(ctx context.Context, lotID string) (*model.LotGraph, error) {
	ctx, span := tracer.Start(ctx, "GetLotGraph")
	defer span.End()

	lot, err := d.GetLotByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	steps, err := d.GetStepsByLot(ctx, lotID)
	if err != nil {
		return nil, err
	}

	graph := &model.LotGraph{
		Lot:          *lot,
		Steps:        steps,
		Inputs:       []model.Input{},
		Outputs:      []model.Output{},
		Consumptions: []model.Consumption{},
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT i.input_id, i.step_id, i.box_id, i.created_at
		FROM pesquera.inputs i JOIN pesquera.steps s ON s.step_id = i.step_id
		WHERE s.lot_id = $1 ORDER BY i.id
	`, lotID)
	if err != nil {
		return nil, mapError(err, "Input", "Failed to load lot inputs")
	}
	for rows.Next() {
		in := model.Input{}
		if err := rows.Scan(&in.InputID, &in.StepID, &in.BoxID, &in.CreatedAt); err != nil {
			rows.Close()
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan input data", err)
		}
		graph.Inputs = append(graph.Inputs, in)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "Input", "Failed to load lot inputs")
	}

	rows, err = d.Conn.QueryContext(ctx, `
		SELECT o.output_id, o.step_id, o.product_id, o.lot_code, o.boxes, o.weight, o.created_at, o.updated_at
		FROM pesquera.outputs o JOIN pesquera.steps s ON s.step_id = o.step_id
		WHERE s.lot_id = $1 ORDER BY o.id
	`, lotID)
	if err != nil {
		return nil, mapError(err, "Output", "Failed to load lot outputs")
	}
	for rows.Next() {
		out, err := scanOutput(rows)
		if err != nil {
			rows.Close()
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan output data", err)
		}
		graph.Outputs = append(graph.Outputs, out)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "Output", "Failed to load lot outputs")
	}

	rows, err = d.Conn.QueryContext(ctx, `
		SELECT c.consumption_id, c.step_id, c.output_id, c.weight, c.boxes, c.notes, c.created_at, c.updated_at
		FROM pesquera.consumptions c JOIN pesquera.steps s ON s.step_id = c.step_id
		WHERE s.lot_id = $1 ORDER BY c.id
	`, lotID)
	if err != nil {
		return nil, mapError(err, "Consumption", "Failed to load lot consumptions")
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanConsumption(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan consumption data", err)
		}
		graph.Consumptions = append(graph.Consumptions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "Consumption", "Failed to load lot consumptions")
	}

	return graph, nil
}
