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
	"sync"
	"testing"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

type splitFixture struct {
	lot    model.Lot
	parent model.Step
	child  model.Step
	output model.Output
}

func newSplitFixture(t *testing.T, p *Pesquera, weight decimal.Decimal, boxes int64) splitFixture {
	t.Helper()
	lot := openTestLot(t, p)
	parent := createTestStep(t, p, lot.LotID, "")
	out := recordTestOutput(t, p, parent.StepID, "prd_cod_fillet", weight, boxes)
	child := createTestStep(t, p, lot.LotID, parent.StepID)
	return splitFixture{lot: lot, parent: parent, child: child, output: out}
}

func shortfallsOf(t *testing.T, err error) []model.Shortfall {
	t.Helper()
	require.True(t, errors.Is(err, apierror.InsufficientOutput), "got %v", err)
	apiErr, _ := apierror.As(err)
	short, ok := apiErr.Details.([]model.Shortfall)
	require.True(t, ok)
	return short
}

func TestConsumptionScenario(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	f := newSplitFixture(t, p, kg("60"), 0)
	sibling := createTestStep(t, p, f.lot.LotID, f.parent.StepID)

	_, err := p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.child.StepID, OutputID: f.output.OutputID, Weight: kg("60")})
	require.NoError(t, err)

	available, err := p.ListAvailableOutputs(ctx, sibling.StepID)
	require.NoError(t, err)
	assert.Empty(t, available)

	_, err = p.RecordConsumption(ctx, ConsumptionRequest{StepID: sibling.StepID, OutputID: f.output.OutputID, Weight: kg("1")})
	short := shortfallsOf(t, err)
	require.Len(t, short, 1)
	assert.Equal(t, f.output.OutputID, short[0].OutputID)
	assert.Equal(t, model.DimensionWeight, short[0].Dimension)
	assert.True(t, short[0].Available.IsZero())
	assert.Equal(t, "1", short[0].Requested.String())
}

func TestConsumptionRequiresParentOutput(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	f := newSplitFixture(t, p, kg("60"), 0)

	// A root step has no parent at all.
	_, err := p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.parent.StepID, OutputID: f.output.OutputID, Weight: kg("1")})
	assert.True(t, errors.Is(err, apierror.NoParentStep))
	assert.True(t, errors.Is(err, apierror.WrongParentOutput))

	// A grandchild may not skip a generation.
	grandchild := createTestStep(t, p, f.lot.LotID, f.child.StepID)
	_, err = p.RecordConsumption(ctx, ConsumptionRequest{StepID: grandchild.StepID, OutputID: f.output.OutputID, Weight: kg("1")})
	assert.True(t, errors.Is(err, apierror.WrongParentOutput))
	assert.False(t, errors.Is(err, apierror.NoParentStep))

	// An unrelated root's output is not the parent's either.
	other := createTestStep(t, p, f.lot.LotID, "")
	foreign := recordTestOutput(t, p, other.StepID, "prd_cod", kg("10"), 0)
	_, err = p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.child.StepID, OutputID: foreign.OutputID, Weight: kg("1")})
	assert.True(t, errors.Is(err, apierror.WrongParentOutput))
}

func TestDuplicateConsumptionAndUpdate(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	f := newSplitFixture(t, p, kg("60"), 6)
	sibling := createTestStep(t, p, f.lot.LotID, f.parent.StepID)

	first, err := p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.child.StepID, OutputID: f.output.OutputID, Weight: kg("20"), Boxes: 2})
	require.NoError(t, err)
	other, err := p.RecordConsumption(ctx, ConsumptionRequest{StepID: sibling.StepID, OutputID: f.output.OutputID, Weight: kg("15")})
	require.NoError(t, err)

	_, err = p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.child.StepID, OutputID: f.output.OutputID, Weight: kg("5")})
	assert.True(t, errors.Is(err, apierror.DuplicateConsumption))

	// The row's own 20kg is excluded, so 45kg is the ceiling.
	w := kg("45")
	updated, err := p.UpdateConsumption(ctx, first.ConsumptionID, &w, ptr.Int64(6))
	require.NoError(t, err)
	assert.Equal(t, "45", updated.Weight.String())
	assert.Equal(t, int64(6), updated.Boxes)

	over := kg("45.001")
	_, err = p.UpdateConsumption(ctx, first.ConsumptionID, &over, nil)
	short := shortfallsOf(t, err)
	assert.Equal(t, "45", short[0].Available.String())

	untouched, err := p.GetConsumption(ctx, other.ConsumptionID)
	require.NoError(t, err)
	assert.Equal(t, "15", untouched.Weight.String())

	_, err = p.UpdateConsumption(ctx, first.ConsumptionID, nil, nil)
	assert.True(t, errors.Is(err, apierror.Validation))
}

func TestConsumptionKeepsFullWeightPrecision(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	f := newSplitFixture(t, p, kg("1.2345"), 0)

	out, err := p.GetOutput(ctx, f.output.OutputID)
	require.NoError(t, err)
	assert.Equal(t, "1.2345", out.Weight.String())

	// 1.235 would fit if the output had been rounded to three places.
	_, err = p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.child.StepID, OutputID: f.output.OutputID, Weight: kg("1.235")})
	short := shortfallsOf(t, err)
	assert.Equal(t, "1.2345", short[0].Available.String())

	c, err := p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.child.StepID, OutputID: f.output.OutputID, Weight: kg("1.2345")})
	require.NoError(t, err)
	assert.Equal(t, "1.2345", c.Weight.String())
}

func TestConsumptionBoxesCheckedOnlyWhenClaimed(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	f := newSplitFixture(t, p, kg("60"), 2)
	sibling := createTestStep(t, p, f.lot.LotID, f.parent.StepID)

	_, err := p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.child.StepID, OutputID: f.output.OutputID, Weight: kg("10"), Boxes: 2})
	require.NoError(t, err)

	_, err = p.RecordConsumption(ctx, ConsumptionRequest{StepID: sibling.StepID, OutputID: f.output.OutputID, Weight: kg("10"), Boxes: 1})
	short := shortfallsOf(t, err)
	require.Len(t, short, 1)
	assert.Equal(t, model.DimensionBoxes, short[0].Dimension)

	_, err = p.RecordConsumption(ctx, ConsumptionRequest{StepID: sibling.StepID, OutputID: f.output.OutputID, Weight: kg("10")})
	assert.NoError(t, err)
}

func TestConsumptionValidation(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	f := newSplitFixture(t, p, kg("60"), 0)

	_, err := p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.child.StepID, OutputID: f.output.OutputID})
	assert.True(t, errors.Is(err, apierror.Validation))

	_, err = p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.child.StepID, OutputID: f.output.OutputID, Weight: kg("-1")})
	assert.True(t, errors.Is(err, apierror.Validation))

	_, err = p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.child.StepID, OutputID: "out_missing", Weight: kg("1")})
	assert.True(t, errors.Is(err, apierror.NotFound))
}

func TestConcurrentConsumptionsNeverOverdraw(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	f := newSplitFixture(t, p, kg("60"), 0)

	const workers = 10
	children := make([]model.Step, workers)
	for i := range children {
		children[i] = createTestStep(t, p, f.lot.LotID, f.parent.StepID)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for _, child := range children {
		wg.Add(1)
		go func(stepID string) {
			defer wg.Done()
			_, err := p.RecordConsumption(ctx, ConsumptionRequest{StepID: stepID, OutputID: f.output.OutputID, Weight: kg("25")})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if errors.Is(err, apierror.InsufficientOutput) {
				rejected++
			}
		}(child.StepID)
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, workers-2, rejected)

	usage, err := p.Datasource().GetOutputUsage(ctx, []string{f.output.OutputID})
	require.NoError(t, err)
	assert.True(t, usage[f.output.OutputID].Weight.LessThanOrEqual(f.output.Weight))
	assert.Equal(t, "50", usage[f.output.OutputID].Weight.String())
}

func TestRecordConsumptionsBulkIsAllOrNothing(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	lot := openTestLot(t, p)
	parent := createTestStep(t, p, lot.LotID, "")
	o1 := recordTestOutput(t, p, parent.StepID, "prd_cod_loin", kg("30"), 0)
	o2 := recordTestOutput(t, p, parent.StepID, "prd_cod_tail", kg("20"), 0)
	o3 := recordTestOutput(t, p, parent.StepID, "prd_cod_trim", kg("5"), 0)
	child := createTestStep(t, p, lot.LotID, parent.StepID)

	_, err := p.RecordConsumptionsBulk(ctx, child.StepID, []model.ConsumptionLine{
		{OutputID: o1.OutputID, Weight: kg("30")},
		{OutputID: o2.OutputID, Weight: kg("10")},
		{OutputID: o3.OutputID, Weight: kg("6")},
	})
	short := shortfallsOf(t, err)
	require.Len(t, short, 1)
	assert.Equal(t, o3.OutputID, short[0].OutputID)
	assert.Equal(t, "5", short[0].Available.String())
	assert.Equal(t, "6", short[0].Requested.String())

	written, err := p.GetStepConsumptions(ctx, child.StepID)
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestRecordConsumptionsBulk(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	lot := openTestLot(t, p)
	parent := createTestStep(t, p, lot.LotID, "")
	o1 := recordTestOutput(t, p, parent.StepID, "prd_cod_loin", kg("30"), 3)
	o2 := recordTestOutput(t, p, parent.StepID, "prd_cod_tail", kg("20"), 0)
	child := createTestStep(t, p, lot.LotID, parent.StepID)

	created, err := p.RecordConsumptionsBulk(ctx, child.StepID, []model.ConsumptionLine{
		{OutputID: o2.OutputID, Weight: kg("10"), Notes: "first pallet"},
		{OutputID: o1.OutputID, Weight: kg("12.5"), Boxes: 1},
		{OutputID: o2.OutputID, Weight: kg("10"), Notes: "second pallet"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, o2.OutputID, created[0].OutputID)
	assert.Equal(t, "20", created[0].Weight.String())
	assert.Equal(t, "first pallet; second pallet", created[0].Notes)
	assert.Equal(t, o1.OutputID, created[1].OutputID)

	_, err = p.RecordConsumptionsBulk(ctx, child.StepID, []model.ConsumptionLine{{OutputID: o1.OutputID, Weight: kg("1")}})
	assert.True(t, errors.Is(err, apierror.DuplicateConsumption))
}

func TestRecordConsumptionsBulkWrongParent(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	f := newSplitFixture(t, p, kg("60"), 0)
	other := createTestStep(t, p, f.lot.LotID, "")
	foreign := recordTestOutput(t, p, other.StepID, "prd_cod", kg("10"), 0)

	_, err := p.RecordConsumptionsBulk(ctx, f.child.StepID, []model.ConsumptionLine{
		{OutputID: f.output.OutputID, Weight: kg("1")},
		{OutputID: foreign.OutputID, Weight: kg("1")},
	})
	assert.True(t, errors.Is(err, apierror.WrongParentOutput))

	_, err = p.RecordConsumptionsBulk(ctx, f.child.StepID, nil)
	assert.True(t, errors.Is(err, apierror.Validation))
}

func TestListAvailableOutputs(t *testing.T) {
	p, store := newTestPesquera(t)
	ctx := context.Background()
	store.SaveProduct(model.Product{ProductID: "prd_cod_loin", Name: "Cod loin"})

	lot := openTestLot(t, p)
	parent := createTestStep(t, p, lot.LotID, "")
	loin := recordTestOutput(t, p, parent.StepID, "prd_cod_loin", kg("30"), 3)
	tail := recordTestOutput(t, p, parent.StepID, "prd_cod_tail", kg("20"), 0)
	child := createTestStep(t, p, lot.LotID, parent.StepID)
	sibling := createTestStep(t, p, lot.LotID, parent.StepID)

	_, err := p.RecordConsumption(ctx, ConsumptionRequest{StepID: child.StepID, OutputID: loin.OutputID, Weight: kg("10"), Boxes: 1})
	require.NoError(t, err)
	_, err = p.RecordConsumption(ctx, ConsumptionRequest{StepID: sibling.StepID, OutputID: tail.OutputID, Weight: kg("20")})
	require.NoError(t, err)

	available, err := p.ListAvailableOutputs(ctx, child.StepID)
	require.NoError(t, err)
	require.Len(t, available, 1)

	got := available[0]
	assert.Equal(t, loin.OutputID, got.Output.OutputID)
	assert.Equal(t, "Cod loin", got.ProductName)
	assert.Equal(t, "20", got.AvailableWeight.String())
	assert.Equal(t, int64(2), got.AvailableBoxes)
	assert.Equal(t, "10", got.ConsumedWeight.String())
	assert.True(t, got.AlreadyConsumed)

	_, err = p.ListAvailableOutputs(ctx, parent.StepID)
	assert.True(t, errors.Is(err, apierror.NoParentStep))
}

func TestDeleteConsumptionReleasesOutput(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	f := newSplitFixture(t, p, kg("60"), 0)

	c, err := p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.child.StepID, OutputID: f.output.OutputID, Weight: kg("60")})
	require.NoError(t, err)

	require.NoError(t, p.DeleteConsumption(ctx, c.ConsumptionID))

	available, err := p.ListAvailableOutputs(ctx, f.child.StepID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "60", available[0].AvailableWeight.String())
	assert.False(t, available[0].AlreadyConsumed)
}
