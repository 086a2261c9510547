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
	"fmt"
	"strings"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	redlock "github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/lock"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/metrics"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/sirupsen/logrus"
)

// BindInput records that a scanned box entered a step.
func (p *Pesquera) BindInput(ctx context.Context, stepID, boxID string) (model.Input, error) {
	ctx, span := tracer.Start(ctx, "BindInput")
	defer span.End()

	if boxID == "" {
		return model.Input{}, validationError("box_id is required", nil)
	}
	if _, err := p.writableStep(ctx, stepID); err != nil {
		return model.Input{}, err
	}

	if p.boxLock && p.redis != nil {
		locker := redlock.NewLocker(p.redis, redlock.BoxKey(boxID), model.GenerateUUIDWithSuffix("loc"))
		if err := locker.WaitLock(ctx, p.boxLockTTL, p.boxLockTTL); err != nil {
			span.RecordError(err)
			return model.Input{}, apierror.NewAPIError(apierror.ErrConflict, "Box is being scanned by another operator", err)
		}
		defer func() {
			if err := locker.Unlock(context.Background()); err != nil {
				logrus.Errorf("failed to release box lock %s: %v", locker.Key(), err)
			}
		}()
	}

	box, err := p.datasource.GetBoxByID(ctx, boxID)
	if err != nil {
		return model.Input{}, err
	}
	bound, err := p.boundBoxes(ctx, stepID)
	if err != nil {
		return model.Input{}, err
	}
	if bound[boxID] {
		return model.Input{}, duplicateBinding(stepID, boxID)
	}
	if !box.Available {
		return model.Input{}, boxUnavailable(boxID)
	}

	inserted, err := p.datasource.BindInputs(ctx, []model.Input{p.newInput(stepID, boxID)})
	if err != nil {
		span.RecordError(err)
		return model.Input{}, err
	}
	if len(inserted) == 0 {
		return model.Input{}, duplicateBinding(stepID, boxID)
	}
	return inserted[0], nil
}

// BindInputsBulk binds many scanned boxes at once. Boxes that cannot be bound
// are reported individually; the rest are committed as long as at least one
// succeeds. When none succeed nothing is written and an error is returned
// together with the per-box report.
func (p *Pesquera) BindInputsBulk(ctx context.Context, stepID string, boxIDs []string) (model.BulkBindResult, error) {
	ctx, span := tracer.Start(ctx, "BindInputsBulk")
	defer span.End()

	result := model.BulkBindResult{StepID: stepID, Bound: []model.Input{}, Failed: []model.BindFailure{}}
	if len(boxIDs) == 0 {
		return result, validationError("At least one box_id is required", nil)
	}
	if _, err := p.writableStep(ctx, stepID); err != nil {
		return result, err
	}

	boxes, err := p.datasource.GetBoxes(ctx, boxIDs)
	if err != nil {
		return result, err
	}
	bound, err := p.boundBoxes(ctx, stepID)
	if err != nil {
		return result, err
	}

	fail := func(boxID string, err error) {
		reason := "error"
		if apiErr, ok := apierror.As(err); ok {
			reason = strings.ToLower(string(apiErr.Code))
			if apiErr.Reason != "" {
				reason = string(apiErr.Reason)
			}
		}
		metrics.BindFailures.WithLabelValues(reason).Inc()
		result.Failed = append(result.Failed, model.BindFailure{BoxID: boxID, Reason: reason, Error: err.Error()})
	}

	candidates := make([]model.Input, 0, len(boxIDs))
	for _, boxID := range boxIDs {
		box, ok := boxes[boxID]
		switch {
		case boxID == "":
			fail(boxID, validationError("box_id is required", nil))
		case !ok:
			fail(boxID, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Box with ID '%s' not found", boxID), nil))
		case bound[boxID]:
			fail(boxID, duplicateBinding(stepID, boxID))
		case !box.Available:
			fail(boxID, boxUnavailable(boxID))
		default:
			bound[boxID] = true
			candidates = append(candidates, p.newInput(stepID, boxID))
		}
	}

	if len(candidates) > 0 {
		inserted, err := p.datasource.BindInputs(ctx, candidates)
		if err != nil {
			span.RecordError(err)
			return result, err
		}
		written := make(map[string]bool, len(inserted))
		for _, in := range inserted {
			written[in.BoxID] = true
		}
		for _, c := range candidates {
			if !written[c.BoxID] {
				fail(c.BoxID, duplicateBinding(stepID, c.BoxID))
			}
		}
		result.Bound = inserted
	}

	if len(result.Bound) == 0 {
		return result, apierror.NewAPIError(apierror.ErrConflict, "None of the boxes could be bound", result.Failed)
	}
	return result, nil
}

func (p *Pesquera) GetStepInputs(ctx context.Context, stepID string) ([]model.Input, error) {
	if _, err := p.datasource.GetStepByID(ctx, stepID); err != nil {
		return nil, err
	}
	return p.datasource.GetInputsByStep(ctx, stepID)
}

// UnbindInput removes a binding entered by mistake. It follows the same
// freeze rules as binding.
func (p *Pesquera) UnbindInput(ctx context.Context, inputID string) error {
	ctx, span := tracer.Start(ctx, "UnbindInput")
	defer span.End()

	in, err := p.datasource.GetInputByID(ctx, inputID)
	if err != nil {
		return err
	}
	if _, err := p.writableStep(ctx, in.StepID); err != nil {
		return err
	}
	if err := p.datasource.DeleteInput(ctx, inputID); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (p *Pesquera) newInput(stepID, boxID string) model.Input {
	return model.Input{
		InputID:   model.GenerateUUIDWithSuffix("inp"),
		StepID:    stepID,
		BoxID:     boxID,
		CreatedAt: p.timestamp(),
	}
}

func (p *Pesquera) boundBoxes(ctx context.Context, stepID string) (map[string]bool, error) {
	inputs, err := p.datasource.GetInputsByStep(ctx, stepID)
	if err != nil {
		return nil, err
	}
	bound := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		bound[in.BoxID] = true
	}
	return bound, nil
}

func duplicateBinding(stepID, boxID string) error {
	return apierror.New(apierror.ErrConflict, apierror.ReasonDuplicateBinding,
		"Box is already bound to this step", map[string]string{"step_id": stepID, "box_id": boxID})
}

func boxUnavailable(boxID string) error {
	return apierror.New(apierror.ErrConflict, apierror.ReasonBoxUnavailable,
		"Box is not available in inventory", map[string]string{"box_id": boxID})
}
