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

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/shopspring/decimal"
)

// lotView is a lot's graph indexed for traversal. Steps are an arena keyed
// by id; nesting is computed on demand from parent ids.
type lotView struct {
	graph        *model.LotGraph
	steps        map[string]model.Step
	children     map[string][]string
	inputs       map[string][]model.Input
	outputs      map[string][]model.Output
	consumptions map[string][]model.Consumption
	usage        map[string]model.Usage
	boxes        map[string]model.Box
	products     map[string]model.Product
	processes    map[string]model.Process
}

func (p *Pesquera) loadLotView(ctx context.Context, lotID string) (*lotView, error) {
	graph, err := p.datasource.GetLotGraph(ctx, lotID)
	if err != nil {
		return nil, err
	}

	v := &lotView{
		graph:        graph,
		steps:        make(map[string]model.Step, len(graph.Steps)),
		children:     make(map[string][]string),
		inputs:       make(map[string][]model.Input),
		outputs:      make(map[string][]model.Output),
		consumptions: make(map[string][]model.Consumption),
		usage:        make(map[string]model.Usage),
		processes:    make(map[string]model.Process),
	}
	for _, s := range graph.Steps {
		v.steps[s.StepID] = s
		if !s.IsRoot() {
			v.children[s.ParentStepID] = append(v.children[s.ParentStepID], s.StepID)
		}
	}

	boxIDs := make([]string, 0, len(graph.Inputs))
	for _, in := range graph.Inputs {
		v.inputs[in.StepID] = append(v.inputs[in.StepID], in)
		boxIDs = append(boxIDs, in.BoxID)
	}
	productIDs := make([]string, 0, len(graph.Outputs))
	for _, o := range graph.Outputs {
		v.outputs[o.StepID] = append(v.outputs[o.StepID], o)
		productIDs = append(productIDs, o.ProductID)
	}
	for _, c := range graph.Consumptions {
		v.consumptions[c.StepID] = append(v.consumptions[c.StepID], c)
		v.usage[c.OutputID] = v.usage[c.OutputID].Add(c.Weight, c.Boxes)
	}

	if v.boxes, err = p.datasource.GetBoxes(ctx, boxIDs); err != nil {
		return nil, err
	}
	for _, b := range v.boxes {
		productIDs = append(productIDs, b.ProductID)
	}
	if v.products, err = p.datasource.GetProducts(ctx, productIDs); err != nil {
		return nil, err
	}

	processes, err := p.datasource.GetAllProcesses(ctx)
	if err != nil {
		return nil, err
	}
	for _, pr := range processes {
		v.processes[pr.ProcessID] = pr
	}
	return v, nil
}

// isLeaf reports whether no consumption references the output.
func (v *lotView) isLeaf(outputID string) bool {
	_, consumed := v.usage[outputID]
	return !consumed
}

// node builds the subtree rooted at stepID. visited guards against a
// corrupted parent chain looping back on itself.
func (v *lotView) node(stepID string, visited map[string]bool) *model.ProcessNode {
	visited[stepID] = true
	step := v.steps[stepID]

	n := &model.ProcessNode{
		Step:         step,
		Inputs:       make([]model.InputDetail, 0, len(v.inputs[stepID])),
		Outputs:      make([]model.OutputDetail, 0, len(v.outputs[stepID])),
		Consumptions: v.consumptions[stepID],
		Children:     []*model.ProcessNode{},
		InputWeight:  decimal.Zero,
		TotalWeight:  decimal.Zero,
	}
	if n.Consumptions == nil {
		n.Consumptions = []model.Consumption{}
	}
	if pr, ok := v.processes[step.ProcessID]; ok {
		n.Process = &pr
	}

	for _, in := range v.inputs[stepID] {
		detail := model.InputDetail{Input: in}
		if box, ok := v.boxes[in.BoxID]; ok {
			detail.Box = &box
			detail.ProductName = v.products[box.ProductID].Name
			n.InputWeight = n.InputWeight.Add(box.NetWeight)
		}
		n.Inputs = append(n.Inputs, detail)
	}

	for _, o := range v.outputs[stepID] {
		used := v.usage[o.OutputID]
		n.Outputs = append(n.Outputs, model.OutputDetail{
			Output:         o,
			ProductName:    v.products[o.ProductID].Name,
			ConsumedWeight: used.Weight,
			ConsumedBoxes:  used.Boxes,
			Leaf:           v.isLeaf(o.OutputID),
		})
		n.TotalWeight = n.TotalWeight.Add(o.Weight)
		n.TotalBoxes += o.Boxes
	}

	for _, childID := range v.children[stepID] {
		if visited[childID] {
			continue
		}
		n.Children = append(n.Children, v.node(childID, visited))
	}
	return n
}

// roots returns the lot's root steps in creation order.
func (v *lotView) roots() []string {
	var roots []string
	for _, s := range v.graph.Steps {
		if s.IsRoot() {
			roots = append(roots, s.StepID)
		}
	}
	return roots
}

// totals sums the lot's input weight over distinct bound boxes and its final
// weight over leaf outputs.
func (v *lotView) totals() model.GlobalTotals {
	t := model.GlobalTotals{
		LotID:             v.graph.Lot.LotID,
		InputWeight:       decimal.Zero,
		FinalOutputWeight: decimal.Zero,
	}
	counted := make(map[string]bool, len(v.graph.Inputs))
	for _, in := range v.graph.Inputs {
		box, ok := v.boxes[in.BoxID]
		if !ok || counted[in.BoxID] {
			continue
		}
		counted[in.BoxID] = true
		t.InputWeight = t.InputWeight.Add(box.NetWeight)
		t.InputBoxes++
	}
	for _, o := range v.graph.Outputs {
		if v.isLeaf(o.OutputID) {
			t.FinalOutputWeight = t.FinalOutputWeight.Add(o.Weight)
			t.FinalOutputBoxes += o.Boxes
		}
	}
	t.YieldRatio = model.Ratio(t.FinalOutputWeight, t.InputWeight)
	return t
}

// BuildProcessTree nests a step and all of its descendants. Each node's
// totals cover its own outputs only.
func (p *Pesquera) BuildProcessTree(ctx context.Context, rootStepID string) (*model.ProcessNode, error) {
	ctx, span := tracer.Start(ctx, "BuildProcessTree")
	defer span.End()

	step, err := p.datasource.GetStepByID(ctx, rootStepID)
	if err != nil {
		return nil, err
	}
	v, err := p.loadLotView(ctx, step.LotID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if _, ok := v.steps[rootStepID]; !ok {
		v.steps[rootStepID] = *step
	}
	return v.node(rootStepID, map[string]bool{}), nil
}

// BuildLotForest returns one tree per root step of the lot.
func (p *Pesquera) BuildLotForest(ctx context.Context, lotID string) ([]*model.ProcessNode, error) {
	ctx, span := tracer.Start(ctx, "BuildLotForest")
	defer span.End()

	v, err := p.loadLotView(ctx, lotID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	visited := map[string]bool{}
	forest := make([]*model.ProcessNode, 0)
	for _, root := range v.roots() {
		forest = append(forest, v.node(root, visited))
	}
	return forest, nil
}

// GlobalTotals reports a lot's input weight, final output weight and yield.
// Yield is nil when nothing was bound as input.
func (p *Pesquera) GlobalTotals(ctx context.Context, lotID string) (model.GlobalTotals, error) {
	ctx, span := tracer.Start(ctx, "GlobalTotals")
	defer span.End()

	v, err := p.loadLotView(ctx, lotID)
	if err != nil {
		span.RecordError(err)
		return model.GlobalTotals{}, err
	}
	return v.totals(), nil
}
