package memory

import (
	"context"
	"sort"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"
)

type ledgerTx struct {
	state state
}

// LockStep reads under the store lock that RunLedgerTx already holds, so no
// close or finish can land between this check and the commit.
func (t *ledgerTx) LockStep(_ context.Context, stepID string) (*model.Step, *model.Lot, error) {
	step, ok := t.state.steps[stepID]
	if !ok {
		return nil, nil, apierror.NewAPIError(apierror.ErrNotFound, "Step not found", map[string]string{"step_id": stepID})
	}
	lot, ok := t.state.lots[step.LotID]
	if !ok {
		return nil, nil, notFound("Lot")
	}
	return &step, &lot, nil
}

func (t *ledgerTx) LockOutputs(_ context.Context, outputIDs []string) (map[string]model.Output, error) {
	ids := append([]string(nil), outputIDs...)
	sort.Strings(ids)
	locked := make(map[string]model.Output, len(ids))
	for _, id := range ids {
		out, ok := t.state.outputs[id]
		if !ok {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Output not found", map[string]string{"output_id": id})
		}
		locked[id] = out
	}
	return locked, nil
}

func (t *ledgerTx) ConsumedTotals(_ context.Context, outputID, excludeConsumptionID string) (model.Usage, error) {
	var usage model.Usage
	for _, c := range t.state.consumptions {
		if c.OutputID == outputID && c.ConsumptionID != excludeConsumptionID {
			usage = usage.Add(c.Weight, c.Boxes)
		}
	}
	return usage, nil
}

func (t *ledgerTx) FindConsumption(_ context.Context, stepID, outputID string) (*model.Consumption, error) {
	for _, c := range t.state.consumptions {
		if c.StepID == stepID && c.OutputID == outputID {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (t *ledgerTx) GetConsumption(_ context.Context, consumptionID string) (*model.Consumption, error) {
	c, ok := t.state.consumptions[consumptionID]
	if !ok {
		return nil, notFound("Consumption")
	}
	return &c, nil
}

func (t *ledgerTx) InsertConsumption(ctx context.Context, c model.Consumption) (model.Consumption, error) {
	if existing, _ := t.FindConsumption(ctx, c.StepID, c.OutputID); existing != nil {
		return model.Consumption{}, apierror.New(apierror.ErrConflict, apierror.ReasonDuplicateConsumption,
			"Step already consumes this output", map[string]string{"step_id": c.StepID, "output_id": c.OutputID})
	}
	c.ID = t.state.nextID()
	t.state.consumptions[c.ConsumptionID] = c
	return c, nil
}

func (t *ledgerTx) UpdateConsumption(_ context.Context, c model.Consumption) error {
	existing, ok := t.state.consumptions[c.ConsumptionID]
	if !ok {
		return notFound("Consumption")
	}
	c.ID = existing.ID
	t.state.consumptions[c.ConsumptionID] = c
	return nil
}

func (t *ledgerTx) DeleteConsumption(_ context.Context, consumptionID string) error {
	if _, ok := t.state.consumptions[consumptionID]; !ok {
		return notFound("Consumption")
	}
	delete(t.state.consumptions, consumptionID)
	return nil
}

func (t *ledgerTx) InsertOutput(_ context.Context, o model.Output) (model.Output, error) {
	if _, ok := t.state.steps[o.StepID]; !ok {
		return model.Output{}, apierror.NewAPIError(apierror.ErrReferentialIntegrity, "Output references a missing step",
			map[string]string{"step_id": o.StepID})
	}
	o.ID = t.state.nextID()
	t.state.outputs[o.OutputID] = o
	return o, nil
}

func (t *ledgerTx) UpdateOutput(_ context.Context, o model.Output) error {
	existing, ok := t.state.outputs[o.OutputID]
	if !ok {
		return notFound("Output")
	}
	o.ID = existing.ID
	t.state.outputs[o.OutputID] = o
	return nil
}

func (t *ledgerTx) DeleteOutput(ctx context.Context, outputID string) error {
	if _, ok := t.state.outputs[outputID]; !ok {
		return notFound("Output")
	}
	if n, _ := t.CountConsumptions(ctx, outputID); n > 0 {
		return apierror.New(apierror.ErrReferentialIntegrity, apierror.ReasonOutputInUse,
			"Output is consumed by another step", map[string]string{"output_id": outputID})
	}
	delete(t.state.outputs, outputID)
	return nil
}

func (t *ledgerTx) CountConsumptions(_ context.Context, outputID string) (int64, error) {
	var n int64
	for _, c := range t.state.consumptions {
		if c.OutputID == outputID {
			n++
		}
	}
	return n, nil
}
