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
	"errors"
	"testing"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

func TestRecordOutput(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	lot := openTestLot(t, p)
	step := createTestStep(t, p, lot.LotID, "")

	out, err := p.RecordOutput(ctx, model.Output{StepID: step.StepID, ProductID: "prd_cod_fillet", Weight: kg("60.125"), Boxes: 4})
	require.NoError(t, err)
	assert.Contains(t, out.OutputID, "out_")
	assert.Equal(t, "60.125", out.Weight.String())

	boxesOnly, err := p.RecordOutput(ctx, model.Output{StepID: step.StepID, ProductID: "prd_cod_fillet", Boxes: 2})
	require.NoError(t, err)
	assert.True(t, boxesOnly.Weight.IsZero())

	outputs, err := p.GetStepOutputs(ctx, step.StepID)
	require.NoError(t, err)
	assert.Len(t, outputs, 2)
}

func TestRecordOutputValidation(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	lot := openTestLot(t, p)
	step := createTestStep(t, p, lot.LotID, "")

	tests := []struct {
		name   string
		output model.Output
		want   error
	}{
		{"empty", model.Output{StepID: step.StepID, ProductID: "prd_cod"}, apierror.EmptyOutput},
		{"negative weight", model.Output{StepID: step.StepID, ProductID: "prd_cod", Weight: kg("-1")}, apierror.Validation},
		{"negative boxes", model.Output{StepID: step.StepID, ProductID: "prd_cod", Weight: kg("1"), Boxes: -1}, apierror.Validation},
		{"missing product", model.Output{StepID: step.StepID, Weight: kg("1")}, apierror.Validation},
		{"missing step", model.Output{StepID: "stp_missing", ProductID: "prd_cod", Weight: kg("1")}, apierror.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.RecordOutput(ctx, tt.output)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestUpdateOutput(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	lot := openTestLot(t, p)
	parent := createTestStep(t, p, lot.LotID, "")
	out := recordTestOutput(t, p, parent.StepID, "prd_cod", kg("60"), 6)
	child := createTestStep(t, p, lot.LotID, parent.StepID)

	_, err := p.RecordConsumption(ctx, ConsumptionRequest{StepID: child.StepID, OutputID: out.OutputID, Weight: kg("40"), Boxes: 4})
	require.NoError(t, err)

	w := kg("45")
	updated, err := p.UpdateOutput(ctx, out.OutputID, model.OutputUpdate{Weight: &w, LotCode: ptr.String("COD-1")})
	require.NoError(t, err)
	assert.Equal(t, "45", updated.Weight.String())
	assert.Equal(t, "COD-1", updated.LotCode)
	assert.Equal(t, int64(6), updated.Boxes)

	below := kg("39.5")
	_, err = p.UpdateOutput(ctx, out.OutputID, model.OutputUpdate{Weight: &below, Boxes: ptr.Int64(3)})
	require.True(t, errors.Is(err, apierror.InsufficientOutput))
	apiErr, _ := apierror.As(err)
	short, ok := apiErr.Details.([]model.Shortfall)
	require.True(t, ok)
	require.Len(t, short, 2)
	assert.Equal(t, model.DimensionWeight, short[0].Dimension)
	assert.Equal(t, "39.5", short[0].Available.String())
	assert.Equal(t, "40", short[0].Requested.String())
	assert.Equal(t, model.DimensionBoxes, short[1].Dimension)

	stored, err := p.GetOutput(ctx, out.OutputID)
	require.NoError(t, err)
	assert.Equal(t, "45", stored.Weight.String())

	zero := kg("0")
	_, err = p.UpdateOutput(ctx, out.OutputID, model.OutputUpdate{Weight: &zero, Boxes: ptr.Int64(0)})
	assert.True(t, errors.Is(err, apierror.EmptyOutput))
}

func TestDeleteOutput(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	lot := openTestLot(t, p)
	parent := createTestStep(t, p, lot.LotID, "")
	used := recordTestOutput(t, p, parent.StepID, "prd_cod", kg("60"), 0)
	spare := recordTestOutput(t, p, parent.StepID, "prd_cod_trim", kg("5"), 0)
	child := createTestStep(t, p, lot.LotID, parent.StepID)

	_, err := p.RecordConsumption(ctx, ConsumptionRequest{StepID: child.StepID, OutputID: used.OutputID, Weight: kg("1")})
	require.NoError(t, err)

	err = p.DeleteOutput(ctx, used.OutputID)
	assert.True(t, errors.Is(err, apierror.OutputInUse))

	require.NoError(t, p.DeleteOutput(ctx, spare.OutputID))
	_, err = p.GetOutput(ctx, spare.OutputID)
	assert.True(t, errors.Is(err, apierror.NotFound))
}
