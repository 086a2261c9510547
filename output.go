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
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/shopspring/decimal"
)

// RecordOutput stores a quantity of product produced by a step.
func (p *Pesquera) RecordOutput(ctx context.Context, output model.Output) (model.Output, error) {
	ctx, span := tracer.Start(ctx, "RecordOutput")
	defer span.End()

	output.ProductID = strings.TrimSpace(output.ProductID)
	if output.StepID == "" || output.ProductID == "" {
		return model.Output{}, validationError("step_id and product_id are required", nil)
	}
	if err := validateQuantities(output.Weight, output.Boxes); err != nil {
		return model.Output{}, err
	}

	var created model.Output
	err := p.datasource.RunLedgerTx(ctx, func(tx database.LedgerTx) error {
		if _, err := lockWritableStep(ctx, tx, output.StepID); err != nil {
			return err
		}
		now := p.timestamp()
		output.OutputID = model.GenerateUUIDWithSuffix("out")
		output.CreatedAt = now
		output.UpdatedAt = now

		var err error
		created, err = tx.InsertOutput(ctx, output)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return model.Output{}, err
	}
	p.publish(ctx, EventOutputRecorded, created)
	return created, nil
}

// UpdateOutput changes an output. Its weight and boxes may not drop below
// what downstream steps have already consumed from it.
func (p *Pesquera) UpdateOutput(ctx context.Context, outputID string, update model.OutputUpdate) (model.Output, error) {
	ctx, span := tracer.Start(ctx, "UpdateOutput")
	defer span.End()

	if update.ProductID != nil && strings.TrimSpace(*update.ProductID) == "" {
		return model.Output{}, validationError("product_id cannot be empty", nil)
	}
	current, err := p.datasource.GetOutputByID(ctx, outputID)
	if err != nil {
		return model.Output{}, err
	}

	var updated model.Output
	err = p.datasource.RunLedgerTx(ctx, func(tx database.LedgerTx) error {
		if _, err := lockWritableStep(ctx, tx, current.StepID); err != nil {
			return err
		}
		locked, err := tx.LockOutputs(ctx, []string{outputID})
		if err != nil {
			return err
		}
		next := update.Apply(locked[outputID])
		if err := validateQuantities(next.Weight, next.Boxes); err != nil {
			return err
		}

		used, err := tx.ConsumedTotals(ctx, outputID, "")
		if err != nil {
			return err
		}
		var short []model.Shortfall
		if used.Weight.GreaterThan(next.Weight) {
			short = append(short, model.Shortfall{OutputID: outputID, Dimension: model.DimensionWeight, Available: next.Weight, Requested: used.Weight})
		}
		if used.Boxes > next.Boxes {
			short = append(short, model.Shortfall{OutputID: outputID, Dimension: model.DimensionBoxes,
				Available: model.BoxesToDecimal(next.Boxes), Requested: model.BoxesToDecimal(used.Boxes)})
		}
		if len(short) > 0 {
			return insufficientOutput("Output cannot drop below what is already consumed", short)
		}

		next.UpdatedAt = p.timestamp()
		if err := tx.UpdateOutput(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return model.Output{}, err
	}
	return updated, nil
}

// DeleteOutput removes an output nothing has consumed yet.
func (p *Pesquera) DeleteOutput(ctx context.Context, outputID string) error {
	ctx, span := tracer.Start(ctx, "DeleteOutput")
	defer span.End()

	current, err := p.datasource.GetOutputByID(ctx, outputID)
	if err != nil {
		return err
	}

	err = p.datasource.RunLedgerTx(ctx, func(tx database.LedgerTx) error {
		if _, err := lockWritableStep(ctx, tx, current.StepID); err != nil {
			return err
		}
		if _, err := tx.LockOutputs(ctx, []string{outputID}); err != nil {
			return err
		}
		n, err := tx.CountConsumptions(ctx, outputID)
		if err != nil {
			return err
		}
		if n > 0 {
			return apierror.New(apierror.ErrReferentialIntegrity, apierror.ReasonOutputInUse,
				"Output is consumed by another step and cannot be deleted",
				map[string]interface{}{"output_id": outputID, "consumptions": n})
		}
		return tx.DeleteOutput(ctx, outputID)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (p *Pesquera) GetOutput(ctx context.Context, outputID string) (*model.Output, error) {
	return p.datasource.GetOutputByID(ctx, outputID)
}

func (p *Pesquera) GetStepOutputs(ctx context.Context, stepID string) ([]model.Output, error) {
	if _, err := p.datasource.GetStepByID(ctx, stepID); err != nil {
		return nil, err
	}
	return p.datasource.GetOutputsByStep(ctx, stepID)
}

// validateQuantities rejects negative quantities and a record with neither
// weight nor boxes.
func validateQuantities(weight decimal.Decimal, boxes int64) error {
	if weight.IsNegative() || boxes < 0 {
		return validationError("weight and boxes must not be negative",
			map[string]interface{}{"weight": weight, "boxes": boxes})
	}
	if weight.IsZero() && boxes == 0 {
		return apierror.New(apierror.ErrInvalidInput, apierror.ReasonEmptyOutput,
			"Either weight or boxes must be greater than zero", nil)
	}
	return nil
}
