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
	"sort"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/shopspring/decimal"
)

// Reconcile compares what entered a lot with what it finally produced, per
// product and lot-wide. It only reads and never blocks closing the lot.
func (p *Pesquera) Reconcile(ctx context.Context, lotID string) (model.Reconciliation, error) {
	ctx, span := tracer.Start(ctx, "Reconcile")
	defer span.End()

	v, err := p.loadLotView(ctx, lotID)
	if err != nil {
		span.RecordError(err)
		return model.Reconciliation{}, err
	}

	byProduct := make(map[string]*model.ProductReconciliation)
	for _, o := range v.graph.Outputs {
		r, ok := byProduct[o.ProductID]
		if !ok {
			r = &model.ProductReconciliation{
				ProductID:      o.ProductID,
				ProductName:    v.products[o.ProductID].Name,
				ProducedWeight: decimal.Zero,
				ConsumedWeight: decimal.Zero,
				LeafWeight:     decimal.Zero,
			}
			byProduct[o.ProductID] = r
		}
		r.ProducedWeight = r.ProducedWeight.Add(o.Weight)
		r.ProducedBoxes += o.Boxes
		if v.isLeaf(o.OutputID) {
			r.LeafWeight = r.LeafWeight.Add(o.Weight)
			r.LeafBoxes += o.Boxes
			continue
		}
		r.ConsumedWeight = r.ConsumedWeight.Add(v.usage[o.OutputID].Weight)
	}

	products := make([]model.ProductReconciliation, 0, len(byProduct))
	for _, r := range byProduct {
		products = append(products, *r)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ProductID < products[j].ProductID })

	totals := v.totals()
	rec := model.Reconciliation{
		LotID:             lotID,
		Products:          products,
		InputWeight:       totals.InputWeight,
		FinalOutputWeight: totals.FinalOutputWeight,
		YieldRatio:        totals.YieldRatio,
		GeneratedAt:       p.timestamp(),
	}
	if totals.InputWeight.IsPositive() {
		loss := totals.InputWeight.Sub(totals.FinalOutputWeight)
		rec.LossWeight = &loss
	}
	return rec, nil
}
