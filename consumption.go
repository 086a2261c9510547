/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package pesquera

import (
	"context"
	"strings"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/database"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/metrics"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/shopspring/decimal"
)

// ConsumptionRequest is a child step's claim on one output of its parent.
type ConsumptionRequest struct {
	StepID   string          `json:"step_id"`
	OutputID string          `json:"output_id"`
	Weight   decimal.Decimal `json:"weight"`
	Boxes    int64           `json:"boxes"`
	Notes    string          `json:"notes,omitempty"`
}

// RecordConsumption claims part of a parent output for a child step. Every
// check and the insert share one ledger transaction that holds the step lock
// and the output's row lock. Concurrent claims cannot together overdraw an
// output, and a close or reparent that lands mid-request is seen before
// anything is written.
func (p *Pesquera) RecordConsumption(ctx context.Context, req ConsumptionRequest) (model.Consumption, error) {
	ctx, span := tracer.Start(ctx, "RecordConsumption")
	defer span.End()

	if req.StepID == "" || req.OutputID == "" {
		return model.Consumption{}, validationError("step_id and output_id are required", nil)
	}
	if err := validateConsumed(req.Weight, req.Boxes); err != nil {
		return model.Consumption{}, err
	}

	var created model.Consumption
	err := p.datasource.RunLedgerTx(ctx, func(tx database.LedgerTx) error {
		step, err := lockWritableStep(ctx, tx, req.StepID)
		if err != nil {
			return err
		}
		if err := requireParent(step); err != nil {
			return err
		}
		locked, err := tx.LockOutputs(ctx, []string{req.OutputID})
		if err != nil {
			return err
		}
		if locked[req.OutputID].StepID != step.ParentStepID {
			return wrongParentOutput(step, req.OutputID)
		}
		existing, err := tx.FindConsumption(ctx, step.StepID, req.OutputID)
		if err != nil {
			return err
		}
		if existing != nil {
			return duplicateConsumption(step.StepID, req.OutputID, existing.ConsumptionID)
		}

		used, err := tx.ConsumedTotals(ctx, req.OutputID, "")
		if err != nil {
			return err
		}
		if short := shortfalls(locked[req.OutputID], used, req.Weight, req.Boxes); len(short) > 0 {
			return insufficientOutput("Requested quantity exceeds what remains of the output", short)
		}

		now := p.timestamp()
		created, err = tx.InsertConsumption(ctx, model.Consumption{
			ConsumptionID: model.GenerateUUIDWithSuffix("csm"),
			StepID:        step.StepID,
			OutputID:      req.OutputID,
			Weight:        req.Weight,
			Boxes:         req.Boxes,
			Notes:         strings.TrimSpace(req.Notes),
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		return model.Consumption{}, err
	}

	metrics.ConsumptionsRecorded.Inc()
	p.publish(ctx, EventConsumptionRecorded, created)
	return created, nil
}

// UpdateConsumption changes the quantities of an existing consumption. The
// availability check excludes the row being updated.
func (p *Pesquera) UpdateConsumption(ctx context.Context, consumptionID string, weight *decimal.Decimal, boxes *int64) (model.Consumption, error) {
	ctx, span := tracer.Start(ctx, "UpdateConsumption")
	defer span.End()

	if weight == nil && boxes == nil {
		return model.Consumption{}, validationError("Nothing to update: provide weight or boxes", nil)
	}
	current, err := p.datasource.GetConsumptionByID(ctx, consumptionID)
	if err != nil {
		return model.Consumption{}, err
	}

	var updated model.Consumption
	err = p.datasource.RunLedgerTx(ctx, func(tx database.LedgerTx) error {
		if _, err := lockWritableStep(ctx, tx, current.StepID); err != nil {
			return err
		}
		locked, err := tx.LockOutputs(ctx, []string{current.OutputID})
		if err != nil {
			return err
		}
		c, err := tx.GetConsumption(ctx, consumptionID)
		if err != nil {
			return err
		}
		if weight != nil {
			c.Weight = *weight
		}
		if boxes != nil {
			c.Boxes = *boxes
		}
		if err := validateConsumed(c.Weight, c.Boxes); err != nil {
			return err
		}

		used, err := tx.ConsumedTotals(ctx, c.OutputID, c.ConsumptionID)
		if err != nil {
			return err
		}
		if short := shortfalls(locked[c.OutputID], used, c.Weight, c.Boxes); len(short) > 0 {
			return insufficientOutput("Requested quantity exceeds what remains of the output", short)
		}

		c.UpdatedAt = p.timestamp()
		if err := tx.UpdateConsumption(ctx, *c); err != nil {
			return err
		}
		updated = *c
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return model.Consumption{}, err
	}
	return updated, nil
}

// RecordConsumptionsBulk records a whole split in one go. Lines naming the
// same output are merged, every output is checked before anything is
// written, and a single overdrawn output fails the whole batch with one
// shortfall per violation.
func (p *Pesquera) RecordConsumptionsBulk(ctx context.Context, stepID string, lines []model.ConsumptionLine) ([]model.Consumption, error) {
	ctx, span := tracer.Start(ctx, "RecordConsumptionsBulk")
	defer span.End()

	if len(lines) == 0 {
		return nil, validationError("At least one consumption line is required", nil)
	}
	requested, order, err := aggregateLines(lines)
	if err != nil {
		return nil, err
	}

	var created []model.Consumption
	err = p.datasource.RunLedgerTx(ctx, func(tx database.LedgerTx) error {
		step, err := lockWritableStep(ctx, tx, stepID)
		if err != nil {
			return err
		}
		if err := requireParent(step); err != nil {
			return err
		}
		locked, err := tx.LockOutputs(ctx, order)
		if err != nil {
			return err
		}

		var short []model.Shortfall
		for _, outputID := range order {
			output := locked[outputID]
			if output.StepID != step.ParentStepID {
				return wrongParentOutput(step, outputID)
			}
			existing, err := tx.FindConsumption(ctx, step.StepID, outputID)
			if err != nil {
				return err
			}
			if existing != nil {
				return duplicateConsumption(step.StepID, outputID, existing.ConsumptionID)
			}
			used, err := tx.ConsumedTotals(ctx, outputID, "")
			if err != nil {
				return err
			}
			line := requested[outputID]
			short = append(short, shortfalls(output, used, line.Weight, line.Boxes)...)
		}
		if len(short) > 0 {
			return insufficientOutput("Batch would overdraw one or more outputs", short)
		}

		now := p.timestamp()
		created = make([]model.Consumption, 0, len(order))
		for _, outputID := range order {
			line := requested[outputID]
			c, err := tx.InsertConsumption(ctx, model.Consumption{
				ConsumptionID: model.GenerateUUIDWithSuffix("csm"),
				StepID:        step.StepID,
				OutputID:      outputID,
				Weight:        line.Weight,
				Boxes:         line.Boxes,
				Notes:         line.Notes,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			if err != nil {
				return err
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.ConsumptionsRecorded.Add(float64(len(created)))
	p.publish(ctx, EventConsumptionsRecorded, created)
	return created, nil
}

// ListAvailableOutputs lists what a step can still consume from its parent.
// Outputs with nothing left in either dimension are omitted.
func (p *Pesquera) ListAvailableOutputs(ctx context.Context, stepID string) ([]model.AvailableOutput, error) {
	ctx, span := tracer.Start(ctx, "ListAvailableOutputs")
	defer span.End()

	step, err := p.datasource.GetStepByID(ctx, stepID)
	if err != nil {
		return nil, err
	}
	if err := requireParent(step); err != nil {
		return nil, err
	}

	outputs, err := p.datasource.GetOutputsByStep(ctx, step.ParentStepID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(outputs))
	productIDs := make([]string, 0, len(outputs))
	for _, o := range outputs {
		ids = append(ids, o.OutputID)
		productIDs = append(productIDs, o.ProductID)
	}

	usage, err := p.datasource.GetOutputUsage(ctx, ids)
	if err != nil {
		return nil, err
	}
	own, err := p.datasource.GetConsumptionsByStep(ctx, stepID)
	if err != nil {
		return nil, err
	}
	consumedByStep := make(map[string]bool, len(own))
	for _, c := range own {
		consumedByStep[c.OutputID] = true
	}
	products, err := p.datasource.GetProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	available := make([]model.AvailableOutput, 0, len(outputs))
	for _, o := range outputs {
		used := usage[o.OutputID]
		weight, boxes := model.Availability(o, used)
		if !weight.IsPositive() && boxes <= 0 {
			continue
		}
		available = append(available, model.AvailableOutput{
			Output:          o,
			ProductName:     products[o.ProductID].Name,
			TotalWeight:     o.Weight,
			TotalBoxes:      o.Boxes,
			ConsumedWeight:  used.Weight,
			ConsumedBoxes:   used.Boxes,
			AvailableWeight: weight,
			AvailableBoxes:  boxes,
			AlreadyConsumed: consumedByStep[o.OutputID],
		})
	}
	return available, nil
}

func (p *Pesquera) GetConsumption(ctx context.Context, consumptionID string) (*model.Consumption, error) {
	return p.datasource.GetConsumptionByID(ctx, consumptionID)
}

func (p *Pesquera) GetStepConsumptions(ctx context.Context, stepID string) ([]model.Consumption, error) {
	if _, err := p.datasource.GetStepByID(ctx, stepID); err != nil {
		return nil, err
	}
	return p.datasource.GetConsumptionsByStep(ctx, stepID)
}

// DeleteConsumption removes a consumption entered by mistake, releasing its
// quantities back to the parent output.
func (p *Pesquera) DeleteConsumption(ctx context.Context, consumptionID string) error {
	ctx, span := tracer.Start(ctx, "DeleteConsumption")
	defer span.End()

	c, err := p.datasource.GetConsumptionByID(ctx, consumptionID)
	if err != nil {
		return err
	}
	err = p.datasource.RunLedgerTx(ctx, func(tx database.LedgerTx) error {
		if _, err := lockWritableStep(ctx, tx, c.StepID); err != nil {
			return err
		}
		return tx.DeleteConsumption(ctx, consumptionID)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// aggregateLines merges lines per output, keeping first-seen order.
func aggregateLines(lines []model.ConsumptionLine) (map[string]model.ConsumptionLine, []string, error) {
	requested := make(map[string]model.ConsumptionLine, len(lines))
	order := make([]string, 0, len(lines))
	for i, line := range lines {
		if line.OutputID == "" {
			return nil, nil, validationError("output_id is required", map[string]int{"line": i})
		}
		if line.Weight.IsNegative() || line.Boxes < 0 {
			return nil, nil, validationError("weight and boxes must not be negative", map[string]int{"line": i})
		}
		agg, seen := requested[line.OutputID]
		if !seen {
			order = append(order, line.OutputID)
			agg = model.ConsumptionLine{OutputID: line.OutputID, Weight: decimal.Zero}
		}
		agg.Weight = agg.Weight.Add(line.Weight)
		agg.Boxes += line.Boxes
		if notes := strings.TrimSpace(line.Notes); notes != "" {
			if agg.Notes != "" {
				agg.Notes += "; "
			}
			agg.Notes += notes
		}
		requested[line.OutputID] = agg
	}
	for i, outputID := range order {
		agg := requested[outputID]
		if err := validateConsumed(agg.Weight, agg.Boxes); err != nil {
			return nil, nil, validationError("Consumption line is empty", map[string]interface{}{"line": i, "output_id": outputID})
		}
	}
	return requested, order, nil
}

// shortfalls compares a claim with what remains of an output. Boxes are only
// checked when some are claimed.
func shortfalls(o model.Output, used model.Usage, weight decimal.Decimal, boxes int64) []model.Shortfall {
	availableWeight, availableBoxes := model.Availability(o, used)
	var short []model.Shortfall
	if weight.GreaterThan(availableWeight) {
		short = append(short, model.Shortfall{
			OutputID:  o.OutputID,
			Dimension: model.DimensionWeight,
			Available: availableWeight,
			Requested: weight,
		})
	}
	if boxes > 0 && boxes > availableBoxes {
		short = append(short, model.Shortfall{
			OutputID:  o.OutputID,
			Dimension: model.DimensionBoxes,
			Available: model.BoxesToDecimal(availableBoxes),
			Requested: model.BoxesToDecimal(boxes),
		})
	}
	return short
}

func validateConsumed(weight decimal.Decimal, boxes int64) error {
	if weight.IsNegative() || boxes < 0 {
		return validationError("weight and boxes must not be negative",
			map[string]interface{}{"weight": weight, "boxes": boxes})
	}
	if weight.IsZero() && boxes == 0 {
		return validationError("Either weight or boxes must be greater than zero", nil)
	}
	return nil
}

func requireParent(step *model.Step) error {
	if step.IsRoot() {
		metrics.RecordRejection(string(apierror.ReasonNoParentStep))
		return apierror.New(apierror.ErrReferentialIntegrity, apierror.ReasonNoParentStep,
			"Root step has no parent to consume from", map[string]string{"step_id": step.StepID})
	}
	return nil
}

func wrongParentOutput(step *model.Step, outputID string) error {
	metrics.RecordRejection(string(apierror.ReasonWrongParentOutput))
	return apierror.New(apierror.ErrReferentialIntegrity, apierror.ReasonWrongParentOutput,
		"Output does not belong to the step's parent",
		map[string]string{"step_id": step.StepID, "parent_step_id": step.ParentStepID, "output_id": outputID})
}

func duplicateConsumption(stepID, outputID, existingID string) error {
	metrics.RecordRejection(string(apierror.ReasonDuplicateConsumption))
	return apierror.New(apierror.ErrConflict, apierror.ReasonDuplicateConsumption,
		"Step already consumes this output; update the existing consumption instead",
		map[string]string{"step_id": stepID, "output_id": outputID, "consumption_id": existingID})
}

func insufficientOutput(message string, short []model.Shortfall) error {
	metrics.RecordRejection(string(apierror.ReasonInsufficientOutput))
	return apierror.New(apierror.ErrConservation, apierror.ReasonInsufficientOutput, message, short)
}
