package database

import (
	"context"
	"database/sql"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const consumptionColumns = `consumption_id, step_id, output_id, weight, boxes, notes, created_at, updated_at`

func scanConsumption(row interface{ Scan(...interface{}) error }) (model.Consumption, error) {
	var (
		c     model.Consumption
		notes sql.NullString
	)
	err := row.Scan(&c.ConsumptionID, &c.StepID, &c.OutputID, &c.Weight, &c.Boxes, &notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Consumption{}, err
	}
	c.Notes = notes.String
	return c, nil
}

func (d Datasource) GetConsumptionByID(ctx context.Context, id string) (*model.Consumption, error) {
	ctx, span := tracer.Start(ctx, "GetConsumptionByID")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `SELECT `+consumptionColumns+` FROM pesquera.consumptions WHERE consumption_id = $1`, id)
	c, err := scanConsumption(row)
	if err != nil {
		return nil, mapError(err, "Consumption", "Failed to retrieve consumption")
	}
	return &c, nil
}

func (d Datasource) GetConsumptionsByStep(ctx context.Context, stepID string) ([]model.Consumption, error) {
	ctx, span := tracer.Start(ctx, "GetConsumptionsByStep")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+consumptionColumns+` FROM pesquera.consumptions WHERE step_id = $1 ORDER BY id
	`, stepID)
	if err != nil {
		return nil, mapError(err, "Consumption", "Failed to retrieve consumptions")
	}
	defer rows.Close()

	consumptions := []model.Consumption{}
	for rows.Next() {
		c, err := scanConsumption(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan consumption data", err)
		}
		consumptions = append(consumptions, c)
	}
	return consumptions, rows.Err()
}

func (d Datasource) GetOutputUsage(ctx context.Context, outputIDs []string) (map[string]model.Usage, error) {
	ctx, span := tracer.Start(ctx, "GetOutputUsage")
	defer span.End()

	usage := make(map[string]model.Usage, len(outputIDs))
	if len(outputIDs) == 0 {
		return usage, nil
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT output_id, COALESCE(SUM(weight), 0), COALESCE(SUM(boxes), 0)
		FROM pesquera.consumptions
		WHERE output_id = ANY($1)
		GROUP BY output_id
	`, pq.Array(outputIDs))
	if err != nil {
		return nil, mapError(err, "Consumption", "Failed to aggregate consumptions")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			outputID string
			weight   decimal.Decimal
			boxes    int64
		)
		if err := rows.Scan(&outputID, &weight, &boxes); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan consumption totals", err)
		}
		usage[outputID] = model.Usage{Weight: weight, Boxes: boxes}
	}
	return usage, rows.Err()
}
