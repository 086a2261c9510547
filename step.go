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

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"
)

// CreateStep adds a processing step to an open lot. A step with a parent
// must live in the same lot as that parent.
func (p *Pesquera) CreateStep(ctx context.Context, step model.Step) (model.Step, error) {
	ctx, span := tracer.Start(ctx, "CreateStep")
	defer span.End()

	if step.LotID == "" || step.ProcessID == "" {
		return model.Step{}, validationError("lot_id and process_id are required", nil)
	}
	if _, err := p.openLotOf(ctx, step.LotID); err != nil {
		return model.Step{}, err
	}
	if _, err := p.datasource.GetProcessByID(ctx, step.ProcessID); err != nil {
		return model.Step{}, err
	}
	if step.ParentStepID != "" {
		parent, err := p.datasource.GetStepByID(ctx, step.ParentStepID)
		if err != nil {
			return model.Step{}, err
		}
		if parent.LotID != step.LotID {
			return model.Step{}, apierror.NewAPIError(apierror.ErrReferentialIntegrity,
				"Parent step belongs to a different lot", map[string]string{"parent_step_id": parent.StepID, "lot_id": parent.LotID})
		}
	}

	now := p.timestamp()
	step.StepID = model.GenerateUUIDWithSuffix("stp")
	step.FinishedAt = nil
	step.CreatedAt = now
	if step.StartedAt.IsZero() {
		step.StartedAt = now
	}

	created, err := p.datasource.CreateStep(ctx, step)
	if err != nil {
		span.RecordError(err)
		return model.Step{}, err
	}
	return created, nil
}

// FinishStep marks a step complete. From then on its outputs, inputs and
// its own consumptions are frozen; children may still consume its outputs.
func (p *Pesquera) FinishStep(ctx context.Context, stepID string) (model.Step, error) {
	ctx, span := tracer.Start(ctx, "FinishStep")
	defer span.End()

	step, err := p.datasource.GetStepByID(ctx, stepID)
	if err != nil {
		return model.Step{}, err
	}
	if step.IsFinished() {
		return model.Step{}, apierror.New(apierror.ErrConflict, apierror.ReasonStepFinished,
			"Step is already finished", map[string]string{"step_id": stepID})
	}

	now := p.timestamp()
	if err := p.datasource.FinishStep(ctx, stepID, now); err != nil {
		span.RecordError(err)
		return model.Step{}, err
	}
	step.FinishedAt = &now
	p.publish(ctx, EventStepFinished, step)
	return *step, nil
}

// ReparentStep moves a step under another step of the same lot, or makes it
// a root when newParentID is empty. Moving is only allowed while the step
// has no consumptions, and never under one of its own descendants.
func (p *Pesquera) ReparentStep(ctx context.Context, stepID, newParentID string) (model.Step, error) {
	ctx, span := tracer.Start(ctx, "ReparentStep")
	defer span.End()

	step, err := p.datasource.GetStepByID(ctx, stepID)
	if err != nil {
		return model.Step{}, err
	}
	if _, err := p.openLotOf(ctx, step.LotID); err != nil {
		return model.Step{}, err
	}

	if newParentID != "" {
		steps, err := p.datasource.GetStepsByLot(ctx, step.LotID)
		if err != nil {
			return model.Step{}, err
		}
		parents := make(map[string]string, len(steps))
		for _, s := range steps {
			parents[s.StepID] = s.ParentStepID
		}
		if _, ok := parents[newParentID]; !ok {
			if _, err := p.datasource.GetStepByID(ctx, newParentID); err != nil {
				return model.Step{}, err
			}
			return model.Step{}, apierror.NewAPIError(apierror.ErrReferentialIntegrity,
				"New parent step belongs to a different lot", map[string]string{"parent_step_id": newParentID})
		}
		if createsCycle(parents, stepID, newParentID) {
			return model.Step{}, apierror.New(apierror.ErrReferentialIntegrity, apierror.ReasonCycleDetected,
				"New parent is the step itself or one of its descendants",
				map[string]string{"step_id": stepID, "parent_step_id": newParentID})
		}
	}

	if err := p.datasource.UpdateStepParent(ctx, stepID, newParentID); err != nil {
		span.RecordError(err)
		return model.Step{}, err
	}
	step.ParentStepID = newParentID
	return *step, nil
}

// createsCycle walks up from newParentID and reports whether it meets stepID.
func createsCycle(parents map[string]string, stepID, newParentID string) bool {
	for cur, hops := newParentID, 0; cur != "" && hops <= len(parents); cur, hops = parents[cur], hops+1 {
		if cur == stepID {
			return true
		}
	}
	return false
}

func (p *Pesquera) GetStep(ctx context.Context, stepID string) (*model.Step, error) {
	return p.datasource.GetStepByID(ctx, stepID)
}

func (p *Pesquera) GetLotSteps(ctx context.Context, lotID string) ([]model.Step, error) {
	if _, err := p.datasource.GetLotByID(ctx, lotID); err != nil {
		return nil, err
	}
	return p.datasource.GetStepsByLot(ctx, lotID)
}
