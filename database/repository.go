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

package database

import (
	"context"
	"time"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	lot         // Lot headers and their open/closed state
	process     // Process catalog
	step        // Steps within a lot
	input       // Boxes bound to steps
	output      // Outputs produced by steps
	consumption // Consumptions read outside the ledger transaction
	inventory   // Read-only box and product lookups
	graph       // Whole-lot snapshot for tree building
	ledger      // Transactional boundary for conservation checks
}

type lot interface {
	CreateLot(ctx context.Context, lot model.Lot) (model.Lot, error)
	GetLotByID(ctx context.Context, id string) (*model.Lot, error)
	GetAllLots(ctx context.Context, limit, offset int) ([]model.Lot, error)
	UpdateLotState(ctx context.Context, lotID string, openedAt, closedAt *time.Time) error
}

type process interface {
	CreateProcess(ctx context.Context, process model.Process) (model.Process, error)
	GetProcessByID(ctx context.Context, id string) (*model.Process, error)
	GetAllProcesses(ctx context.Context) ([]model.Process, error)
}

type step interface {
	CreateStep(ctx context.Context, step model.Step) (model.Step, error)
	GetStepByID(ctx context.Context, id string) (*model.Step, error)
	GetStepsByLot(ctx context.Context, lotID string) ([]model.Step, error)
	// Fails with StepFinished when already finished
	FinishStep(ctx context.Context, stepID string, finishedAt time.Time) error
	// Fails when the step already has consumptions
	UpdateStepParent(ctx context.Context, stepID, parentStepID string) error
}

type input interface {
	// Returns only the rows actually inserted
	BindInputs(ctx context.Context, inputs []model.Input) ([]model.Input, error)
	GetInputByID(ctx context.Context, id string) (*model.Input, error)
	GetInputsByStep(ctx context.Context, stepID string) ([]model.Input, error)
	DeleteInput(ctx context.Context, inputID string) error
}

type output interface {
	GetOutputByID(ctx context.Context, id string) (*model.Output, error)
	GetOutputsByStep(ctx context.Context, stepID string) ([]model.Output, error)
}

type consumption interface {
	GetConsumptionByID(ctx context.Context, id string) (*model.Consumption, error)
	GetConsumptionsByStep(ctx context.Context, stepID string) ([]model.Consumption, error)
	// Consumed totals per output id
	GetOutputUsage(ctx context.Context, outputIDs []string) (map[string]model.Usage, error)
}

type inventory interface {
	GetBoxByID(ctx context.Context, boxID string) (*model.Box, error)
	GetBoxes(ctx context.Context, boxIDs []string) (map[string]model.Box, error)
	GetProducts(ctx context.Context, productIDs []string) (map[string]model.Product, error)
}

type graph interface {
	GetLotGraph(ctx context.Context, lotID string) (*model.LotGraph, error)
}

type ledger interface {
	// RunLedgerTx runs fn atomically. Either every write fn makes is
	// committed or none is.
	RunLedgerTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx is the view of the store available inside RunLedgerTx. Outputs
// must be locked before their consumed totals are read.
type LedgerTx interface {
	// LockStep reads a step with its lot and keeps both from changing state
	// until the transaction ends.
	LockStep(ctx context.Context, stepID string) (*model.Step, *model.Lot, error)
	LockOutputs(ctx context.Context, outputIDs []string) (map[string]model.Output, error)
	ConsumedTotals(ctx context.Context, outputID, excludeConsumptionID string) (model.Usage, error)
	// nil, nil when none exists
	FindConsumption(ctx context.Context, stepID, outputID string) (*model.Consumption, error)
	GetConsumption(ctx context.Context, consumptionID string) (*model.Consumption, error)
	InsertConsumption(ctx context.Context, c model.Consumption) (model.Consumption, error)
	UpdateConsumption(ctx context.Context, c model.Consumption) error
	DeleteConsumption(ctx context.Context, consumptionID string) error
	InsertOutput(ctx context.Context, o model.Output) (model.Output, error)
	UpdateOutput(ctx context.Context, o model.Output) error
	DeleteOutput(ctx context.Context, outputID string) error
	CountConsumptions(ctx context.Context, outputID string) (int64, error)
}
