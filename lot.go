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

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"
)

// OpenLot starts a lot. A lot without an id is created open; an existing
// closed lot is reopened. Opening a lot that is already open is a conflict.
func (p *Pesquera) OpenLot(ctx context.Context, lot model.Lot) (model.Lot, error) {
	ctx, span := tracer.Start(ctx, "OpenLot")
	defer span.End()

	now := p.timestamp()

	if lot.LotID == "" {
		lot.LotCode = strings.TrimSpace(lot.LotCode)
		lot.LotID = model.GenerateUUIDWithSuffix("lot")
		lot.OpenedAt = &now
		lot.ClosedAt = nil
		lot.CreatedAt = now
		created, err := p.datasource.CreateLot(ctx, lot)
		if err != nil {
			span.RecordError(err)
			return model.Lot{}, err
		}
		p.publish(ctx, EventLotOpened, created)
		return created, nil
	}

	existing, err := p.datasource.GetLotByID(ctx, lot.LotID)
	if err != nil {
		return model.Lot{}, err
	}
	if existing.IsOpen() {
		return model.Lot{}, apierror.New(apierror.ErrConflict, apierror.ReasonAlreadyOpen,
			"Lot is already open", map[string]string{"lot_id": existing.LotID})
	}

	existing.OpenedAt = &now
	existing.ClosedAt = nil
	if err := p.datasource.UpdateLotState(ctx, existing.LotID, existing.OpenedAt, existing.ClosedAt); err != nil {
		span.RecordError(err)
		return model.Lot{}, err
	}
	p.publish(ctx, EventLotOpened, existing)
	return *existing, nil
}

// CloseLot seals a lot. Conservation is not checked here: reconciliation is
// a report, not a gate.
func (p *Pesquera) CloseLot(ctx context.Context, lotID string) (model.Lot, error) {
	ctx, span := tracer.Start(ctx, "CloseLot")
	defer span.End()

	lot, err := p.datasource.GetLotByID(ctx, lotID)
	if err != nil {
		return model.Lot{}, err
	}
	if lot.IsClosed() {
		return model.Lot{}, apierror.New(apierror.ErrConflict, apierror.ReasonAlreadyClosed,
			"Lot is already closed", map[string]string{"lot_id": lotID})
	}

	now := p.timestamp()
	lot.ClosedAt = &now
	if err := p.datasource.UpdateLotState(ctx, lot.LotID, lot.OpenedAt, lot.ClosedAt); err != nil {
		span.RecordError(err)
		return model.Lot{}, err
	}
	p.publish(ctx, EventLotClosed, lot)
	return *lot, nil
}

func (p *Pesquera) GetLot(ctx context.Context, lotID string) (*model.Lot, error) {
	return p.datasource.GetLotByID(ctx, lotID)
}

func (p *Pesquera) GetAllLots(ctx context.Context, limit, offset int) ([]model.Lot, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return p.datasource.GetAllLots(ctx, limit, offset)
}
