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
	"testing"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepIDs(nodes []*model.ProcessNode) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.Step.StepID)
	}
	return ids
}

func TestBuildProcessTreeShape(t *testing.T) {
	p, store := newTestPesquera(t)
	ctx := context.Background()
	store.SaveProduct(model.Product{ProductID: "prd_cod_whole", Name: "Whole cod"})
	store.SaveProduct(model.Product{ProductID: "prd_cod_fillet", Name: "Cod fillet"})

	lot := openTestLot(t, p)
	a := createTestStep(t, p, lot.LotID, "")
	b := createTestStep(t, p, lot.LotID, a.StepID)
	c := createTestStep(t, p, lot.LotID, a.StepID)
	d := createTestStep(t, p, lot.LotID, b.StepID)

	box := seedBox(store, "prd_cod_whole", kg("100"))
	_, err := p.BindInput(ctx, a.StepID, box.BoxID)
	require.NoError(t, err)

	aOut := recordTestOutput(t, p, a.StepID, "prd_cod_fillet", kg("60"), 4)
	recordTestOutput(t, p, a.StepID, "prd_cod_fillet", kg("20"), 1)
	recordTestOutput(t, p, b.StepID, "prd_cod_fillet", kg("35"), 2)
	_, err = p.RecordConsumption(ctx, ConsumptionRequest{StepID: b.StepID, OutputID: aOut.OutputID, Weight: kg("40")})
	require.NoError(t, err)

	tree, err := p.BuildProcessTree(ctx, a.StepID)
	require.NoError(t, err)

	assert.Equal(t, a.StepID, tree.Step.StepID)
	assert.Equal(t, []string{b.StepID, c.StepID}, stepIDs(tree.Children))
	assert.Equal(t, []string{d.StepID}, stepIDs(tree.Children[0].Children))
	assert.Empty(t, tree.Children[1].Children)

	// A node's totals cover its own outputs only.
	assert.Equal(t, "80", tree.TotalWeight.String())
	assert.Equal(t, int64(5), tree.TotalBoxes)
	assert.Equal(t, "35", tree.Children[0].TotalWeight.String())
	assert.True(t, tree.Children[1].TotalWeight.IsZero())

	assert.Equal(t, "100", tree.InputWeight.String())
	require.Len(t, tree.Inputs, 1)
	assert.Equal(t, "Whole cod", tree.Inputs[0].ProductName)
	require.NotNil(t, tree.Process)

	require.Len(t, tree.Outputs, 2)
	assert.Equal(t, "Cod fillet", tree.Outputs[0].ProductName)
	assert.False(t, tree.Outputs[0].Leaf)
	assert.Equal(t, "40", tree.Outputs[0].ConsumedWeight.String())
	assert.True(t, tree.Outputs[1].Leaf)
	assert.Len(t, tree.Children[0].Consumptions, 1)

	sub, err := p.BuildProcessTree(ctx, b.StepID)
	require.NoError(t, err)
	assert.Equal(t, []string{d.StepID}, stepIDs(sub.Children))
}

func TestBuildLotForest(t *testing.T) {
	p, _ := newTestPesquera(t)
	lot := openTestLot(t, p)
	r1 := createTestStep(t, p, lot.LotID, "")
	r2 := createTestStep(t, p, lot.LotID, "")
	createTestStep(t, p, lot.LotID, r1.StepID)

	forest, err := p.BuildLotForest(context.Background(), lot.LotID)
	require.NoError(t, err)
	assert.Equal(t, []string{r1.StepID, r2.StepID}, stepIDs(forest))
	assert.Len(t, forest[0].Children, 1)
}

func TestGlobalTotalsYield(t *testing.T) {
	p, store := newTestPesquera(t)
	ctx := context.Background()
	lot := openTestLot(t, p)
	root := createTestStep(t, p, lot.LotID, "")

	for _, w := range []string{"60", "40"} {
		box := seedBox(store, "prd_cod_whole", kg(w))
		_, err := p.BindInput(ctx, root.StepID, box.BoxID)
		require.NoError(t, err)
	}
	recordTestOutput(t, p, root.StepID, "prd_cod_loin", kg("40"), 0)
	recordTestOutput(t, p, root.StepID, "prd_cod_tail", kg("35"), 0)

	totals, err := p.GlobalTotals(ctx, lot.LotID)
	require.NoError(t, err)
	assert.Equal(t, "100", totals.InputWeight.String())
	assert.Equal(t, int64(2), totals.InputBoxes)
	assert.Equal(t, "75", totals.FinalOutputWeight.String())
	require.NotNil(t, totals.YieldRatio)
	assert.Equal(t, "0.75", totals.YieldRatio.String())
}

func TestGlobalTotalsWithoutInputs(t *testing.T) {
	p, _ := newTestPesquera(t)
	lot := openTestLot(t, p)
	root := createTestStep(t, p, lot.LotID, "")
	recordTestOutput(t, p, root.StepID, "prd_cod_loin", kg("40"), 0)

	totals, err := p.GlobalTotals(context.Background(), lot.LotID)
	require.NoError(t, err)
	assert.True(t, totals.InputWeight.IsZero())
	assert.Equal(t, "40", totals.FinalOutputWeight.String())
	assert.Nil(t, totals.YieldRatio)
}

func TestGlobalTotalsExcludesConsumedOutputs(t *testing.T) {
	p, store := newTestPesquera(t)
	ctx := context.Background()
	f := newSplitFixture(t, p, kg("80"), 0)
	box := seedBox(store, "prd_cod_whole", kg("100"))
	_, err := p.BindInput(ctx, f.parent.StepID, box.BoxID)
	require.NoError(t, err)

	_, err = p.RecordConsumption(ctx, ConsumptionRequest{StepID: f.child.StepID, OutputID: f.output.OutputID, Weight: kg("80")})
	require.NoError(t, err)
	recordTestOutput(t, p, f.child.StepID, "prd_cod_portion", kg("70"), 0)

	totals, err := p.GlobalTotals(ctx, f.lot.LotID)
	require.NoError(t, err)
	assert.Equal(t, "70", totals.FinalOutputWeight.String())
	assert.Equal(t, "0.7", totals.YieldRatio.String())
}
