package database

import (
	"context"
	"database/sql"
	"sort"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/metrics"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RunLedgerTx runs fn inside a database transaction. A serialization,
// deadlock or lock-timeout failure rolls back and runs fn once more; a second
// transient failure is reported as a persistence error.
func (d Datasource) RunLedgerTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	ctx, span := tracer.Start(ctx, "RunLedgerTx")
	defer span.End()

	attempt := 0
	operation := func() error {
		attempt++
		err := d.runLedgerTxOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if isTransient(err) {
			if attempt == 1 {
				metrics.TransientRetries.Inc()
				logrus.WithField("attempt", attempt).Warnf("retrying ledger transaction: %v", err)
			}
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(d.retryDelay()), 1), ctx)
	err := backoff.Retry(operation, policy)
	if err == nil {
		return nil
	}

	span.RecordError(err)
	if isTransient(err) {
		return apierror.NewAPIError(apierror.ErrPersistence, "Ledger transaction failed after retry", err)
	}
	return mapError(err, "Ledger entry", "Ledger transaction failed")
}

func (d Datasource) runLedgerTxOnce(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin ledger transaction")
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logrus.Errorf("ledger transaction rollback failed: %v", rbErr)
		}
	}()

	if err := fn(&sqlLedgerTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit ledger transaction")
	}
	return nil
}

type sqlLedgerTx struct {
	tx *sql.Tx
}

// LockStep takes a share lock on the step and its lot. A concurrent close or
// finish waits for this transaction, and this one sees the state it committed.
func (t *sqlLedgerTx) LockStep(ctx context.Context, stepID string) (*model.Step, *model.Lot, error) {
	var (
		step   model.Step
		lot    model.Lot
		parent sql.NullString
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT s.step_id, s.lot_id, s.parent_step_id, s.process_id, s.started_at, s.finished_at, l.opened_at, l.closed_at
		FROM pesquera.steps s
		JOIN pesquera.lots l ON l.lot_id = s.lot_id
		WHERE s.step_id = $1
		FOR SHARE
	`, stepID).Scan(&step.StepID, &step.LotID, &parent, &step.ProcessID, &step.StartedAt, &step.FinishedAt,
		&lot.OpenedAt, &lot.ClosedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apierror.NewAPIError(apierror.ErrNotFound, "Step not found", map[string]string{"step_id": stepID})
		}
		return nil, nil, errors.Wrap(err, "lock step")
	}
	step.ParentStepID = parent.String
	lot.LotID = step.LotID
	return &step, &lot, nil
}

func (t *sqlLedgerTx) LockOutputs(ctx context.Context, outputIDs []string) (map[string]model.Output, error) {
	ids := uniqueSorted(outputIDs)
	locked := make(map[string]model.Output, len(ids))
	if len(ids) == 0 {
		return locked, nil
	}

	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+outputColumns+`
		FROM pesquera.outputs
		WHERE output_id = ANY($1)
		ORDER BY output_id
		FOR UPDATE
	`, pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "lock outputs")
	}
	defer rows.Close()

	for rows.Next() {
		out, err := scanOutput(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan locked output")
		}
		locked[out.OutputID] = out
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "lock outputs")
	}

	for _, id := range ids {
		if _, ok := locked[id]; !ok {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Output not found", map[string]string{"output_id": id})
		}
	}
	return locked, nil
}

func (t *sqlLedgerTx) ConsumedTotals(ctx context.Context, outputID, excludeConsumptionID string) (model.Usage, error) {
	var usage model.Usage
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(weight), 0), COALESCE(SUM(boxes), 0)
		FROM pesquera.consumptions
		WHERE output_id = $1 AND consumption_id <> $2
	`, outputID, excludeConsumptionID).Scan(&usage.Weight, &usage.Boxes)
	if err != nil {
		return model.Usage{}, errors.Wrap(err, "sum consumptions")
	}
	return usage, nil
}

func (t *sqlLedgerTx) FindConsumption(ctx context.Context, stepID, outputID string) (*model.Consumption, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+consumptionColumns+` FROM pesquera.consumptions WHERE step_id = $1 AND output_id = $2
	`, stepID, outputID)
	c, err := scanConsumption(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find consumption")
	}
	return &c, nil
}

func (t *sqlLedgerTx) GetConsumption(ctx context.Context, consumptionID string) (*model.Consumption, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+consumptionColumns+` FROM pesquera.consumptions WHERE consumption_id = $1 FOR UPDATE
	`, consumptionID)
	c, err := scanConsumption(row)
	if err != nil {
		return nil, mapError(err, "Consumption", "Failed to retrieve consumption")
	}
	return &c, nil
}

func (t *sqlLedgerTx) InsertConsumption(ctx context.Context, c model.Consumption) (model.Consumption, error) {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO pesquera.consumptions (consumption_id, step_id, output_id, weight, boxes, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ConsumptionID, c.StepID, c.OutputID, c.Weight, c.Boxes, nullString(c.Notes), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return model.Consumption{}, apierror.New(apierror.ErrConflict, apierror.ReasonDuplicateConsumption,
				"Step already consumes this output", map[string]string{"step_id": c.StepID, "output_id": c.OutputID})
		}
		return model.Consumption{}, errors.Wrap(err, "insert consumption")
	}
	return c, nil
}

func (t *sqlLedgerTx) UpdateConsumption(ctx context.Context, c model.Consumption) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE pesquera.consumptions SET weight = $2, boxes = $3, notes = $4, updated_at = $5
		WHERE consumption_id = $1
	`, c.ConsumptionID, c.Weight, c.Boxes, nullString(c.Notes), c.UpdatedAt)
	return errors.Wrap(err, "update consumption")
}

func (t *sqlLedgerTx) DeleteConsumption(ctx context.Context, consumptionID string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM pesquera.consumptions WHERE consumption_id = $1`, consumptionID)
	if err != nil {
		return errors.Wrap(err, "delete consumption")
	}
	return expectAffected(result, "Consumption")
}

func (t *sqlLedgerTx) InsertOutput(ctx context.Context, o model.Output) (model.Output, error) {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO pesquera.outputs (output_id, step_id, product_id, lot_code, boxes, weight, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, o.OutputID, o.StepID, o.ProductID, nullString(o.LotCode), o.Boxes, o.Weight, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return model.Output{}, apierror.NewAPIError(apierror.ErrReferentialIntegrity, "Output references a missing step",
				map[string]string{"step_id": o.StepID})
		}
		return model.Output{}, errors.Wrap(err, "insert output")
	}
	return o, nil
}

func (t *sqlLedgerTx) UpdateOutput(ctx context.Context, o model.Output) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE pesquera.outputs SET product_id = $2, lot_code = $3, boxes = $4, weight = $5, updated_at = $6
		WHERE output_id = $1
	`, o.OutputID, o.ProductID, nullString(o.LotCode), o.Boxes, o.Weight, o.UpdatedAt)
	return errors.Wrap(err, "update output")
}

func (t *sqlLedgerTx) DeleteOutput(ctx context.Context, outputID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM pesquera.outputs WHERE output_id = $1`, outputID)
	if err != nil && pqCode(err) == pqForeignKeyViolation {
		return apierror.New(apierror.ErrReferentialIntegrity, apierror.ReasonOutputInUse,
			"Output is consumed by another step", map[string]string{"output_id": outputID})
	}
	return errors.Wrap(err, "delete output")
}

func (t *sqlLedgerTx) CountConsumptions(ctx context.Context, outputID string) (int64, error) {
	var n int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pesquera.consumptions WHERE output_id = $1
	`, outputID).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count consumptions")
	}
	return n, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
