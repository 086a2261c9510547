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
	"embed"
	"time"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/config"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/database"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	redis_db "github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/redis-db"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

var tracer = otel.Tracer("pesquera")

const defaultBoxLockTTL = 5 * time.Second

// Pesquera is the production traceability service. It owns every rule about
// lots, steps, inputs, outputs and consumptions; the datasource only stores.
type Pesquera struct {
	datasource database.IDataSource
	queue      *Queue
	redis      redis.UniversalClient
	boxLock    bool
	boxLockTTL time.Duration
	now        func() time.Time
}

// NewPesquera wires the service to a datasource. Redis is optional: without
// it no webhooks are published and box scans are not serialised across
// processes.
func NewPesquera(db database.IDataSource) (*Pesquera, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	p := &Pesquera{
		datasource: db,
		boxLockTTL: cfg.Ledger.BoxLockTimeout(),
		now:        time.Now,
	}
	if p.boxLockTTL <= 0 {
		p.boxLockTTL = defaultBoxLockTTL
	}

	if cfg.Redis.Dns != "" {
		client, err := redis_db.NewRedisClient([]string{cfg.Redis.Dns}, false)
		if err != nil {
			return nil, err
		}
		queue, err := NewQueue(cfg)
		if err != nil {
			return nil, err
		}
		p.redis = client.Client()
		p.queue = queue
		p.boxLock = cfg.Ledger.EnableBoxLock
	}
	return p, nil
}

// Datasource exposes the underlying store to the request layer for health checks.
func (p *Pesquera) Datasource() database.IDataSource {
	return p.datasource
}

func (p *Pesquera) timestamp() time.Time {
	return p.now().UTC()
}

func validationError(message string, details interface{}) error {
	return apierror.NewAPIError(apierror.ErrInvalidInput, message, details)
}

// openLotOf loads a lot and rejects writes against a sealed one.
func (p *Pesquera) openLotOf(ctx context.Context, lotID string) (*model.Lot, error) {
	lot, err := p.datasource.GetLotByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if err := checkLotOpen(lot); err != nil {
		return nil, err
	}
	return lot, nil
}

// writableStep loads a step whose lot is open and which is not finished.
// Ledger writes repeat the check with lockWritableStep once inside their
// transaction.
func (p *Pesquera) writableStep(ctx context.Context, stepID string) (*model.Step, error) {
	step, err := p.datasource.GetStepByID(ctx, stepID)
	if err != nil {
		return nil, err
	}
	lot, err := p.datasource.GetLotByID(ctx, step.LotID)
	if err != nil {
		return nil, err
	}
	if err := checkWritable(step, lot); err != nil {
		return nil, err
	}
	return step, nil
}

// lockWritableStep is writableStep under the ledger transaction's step lock.
func lockWritableStep(ctx context.Context, tx database.LedgerTx, stepID string) (*model.Step, error) {
	step, lot, err := tx.LockStep(ctx, stepID)
	if err != nil {
		return nil, err
	}
	if err := checkWritable(step, lot); err != nil {
		return nil, err
	}
	return step, nil
}

func checkLotOpen(lot *model.Lot) error {
	if !lot.IsOpen() {
		return apierror.New(apierror.ErrConflict, apierror.ReasonLotSealed,
			"Lot is closed and accepts no further changes", map[string]string{"lot_id": lot.LotID})
	}
	return nil
}

func checkWritable(step *model.Step, lot *model.Lot) error {
	if err := checkLotOpen(lot); err != nil {
		return err
	}
	if step.IsFinished() {
		return apierror.New(apierror.ErrConflict, apierror.ReasonStepFinished,
			"Step is finished and its records are frozen", map[string]string{"step_id": step.StepID})
	}
	return nil
}
