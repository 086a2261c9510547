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

package model

import (
	"time"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/shopspring/decimal"
)

type OpenLot struct {
	LotCode       string                 `json:"lot_code"`
	SpeciesID     string                 `json:"species_id"`
	CaptureZoneID string                 `json:"capture_zone_id"`
	Notes         string                 `json:"notes"`
	MetaData      map[string]interface{} `json:"meta_data"`
}

type CreateProcess struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type CreateStep struct {
	LotID        string `json:"lot_id"`
	ProcessID    string `json:"process_id"`
	ParentStepID string `json:"parent_step_id"`
	Notes        string `json:"notes"`
	StartedAt    string `json:"started_at"`
}

type ReparentStep struct {
	ParentStepID string `json:"parent_step_id"`
}

type BindInput struct {
	BoxID string `json:"box_id"`
}

type BindInputs struct {
	BoxIDs []string `json:"box_ids"`
}

type RecordOutput struct {
	ProductID string          `json:"product_id"`
	LotCode   string          `json:"lot_code"`
	Boxes     int64           `json:"boxes"`
	Weight    decimal.Decimal `json:"weight"`
}

type UpdateOutput struct {
	ProductID *string          `json:"product_id"`
	LotCode   *string          `json:"lot_code"`
	Boxes     *int64           `json:"boxes"`
	Weight    *decimal.Decimal `json:"weight"`
}

type RecordConsumption struct {
	StepID   string          `json:"step_id"`
	OutputID string          `json:"output_id"`
	Weight   decimal.Decimal `json:"weight"`
	Boxes    int64           `json:"boxes"`
	Notes    string          `json:"notes"`
}

type UpdateConsumption struct {
	Weight *decimal.Decimal `json:"weight"`
	Boxes  *int64           `json:"boxes"`
}

type ConsumptionLine struct {
	OutputID string          `json:"output_id"`
	Weight   decimal.Decimal `json:"weight"`
	Boxes    int64           `json:"boxes"`
	Notes    string          `json:"notes"`
}

type BulkConsumptions struct {
	Lines []ConsumptionLine `json:"lines"`
}

func (l *OpenLot) ToLot() model.Lot {
	return model.Lot{
		LotCode:       l.LotCode,
		SpeciesID:     l.SpeciesID,
		CaptureZoneID: l.CaptureZoneID,
		Notes:         l.Notes,
		MetaData:      l.MetaData,
	}
}

func (p *CreateProcess) ToProcess() model.Process {
	return model.Process{Name: p.Name, Type: model.ProcessType(p.Type)}
}

// ToStep assumes the request has been validated, so StartedAt is empty or RFC 3339.
func (s *CreateStep) ToStep() model.Step {
	step := model.Step{
		LotID:        s.LotID,
		ProcessID:    s.ProcessID,
		ParentStepID: s.ParentStepID,
		Notes:        s.Notes,
	}
	if s.StartedAt != "" {
		if startedAt, err := time.Parse(time.RFC3339, s.StartedAt); err == nil {
			step.StartedAt = startedAt.UTC()
		}
	}
	return step
}

func (o *RecordOutput) ToOutput(stepID string) model.Output {
	return model.Output{
		StepID:    stepID,
		ProductID: o.ProductID,
		LotCode:   o.LotCode,
		Boxes:     o.Boxes,
		Weight:    o.Weight,
	}
}

func (o *UpdateOutput) ToOutputUpdate() model.OutputUpdate {
	return model.OutputUpdate{
		ProductID: o.ProductID,
		LotCode:   o.LotCode,
		Boxes:     o.Boxes,
		Weight:    o.Weight,
	}
}

func (b *BulkConsumptions) ToLines() []model.ConsumptionLine {
	lines := make([]model.ConsumptionLine, 0, len(b.Lines))
	for _, l := range b.Lines {
		lines = append(lines, model.ConsumptionLine{OutputID: l.OutputID, Weight: l.Weight, Boxes: l.Boxes, Notes: l.Notes})
	}
	return lines
}
