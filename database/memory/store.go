// Package memory is a single-process IDataSource kept entirely in maps. Every
// write, ledger transactions included, runs under one mutex; a ledger
// transaction works on a cloned state that replaces the live one only when
// it succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/database"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"
)

type state struct {
	seq          int64
	lots         map[string]model.Lot
	processes    map[string]model.Process
	steps        map[string]model.Step
	inputs       map[string]model.Input
	outputs      map[string]model.Output
	consumptions map[string]model.Consumption
	boxes        map[string]model.Box
	products     map[string]model.Product
}

func newState() state {
	return state{
		lots:         map[string]model.Lot{},
		processes:    map[string]model.Process{},
		steps:        map[string]model.Step{},
		inputs:       map[string]model.Input{},
		outputs:      map[string]model.Output{},
		consumptions: map[string]model.Consumption{},
		boxes:        map[string]model.Box{},
		products:     map[string]model.Product{},
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies the ledger tables. Reference tables are never written inside
// a ledger transaction and stay shared.
func (s state) clone() state {
	c := s
	c.outputs = cloneMap(s.outputs)
	c.consumptions = cloneMap(s.consumptions)
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

type Store struct {
	mu    sync.RWMutex
	state state
}

var _ database.IDataSource = (*Store)(nil)

func New() *Store {
	return &Store{state: newState()}
}

// SaveBox registers a box from the surrounding inventory.
func (s *Store) SaveBox(box model.Box) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.boxes[box.BoxID] = box
}

// SaveProduct registers a product from the surrounding catalog.
func (s *Store) SaveProduct(product model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[product.ProductID] = product
}

func notFound(entity string) error {
	return apierror.NewAPIError(apierror.ErrNotFound, entity+" not found", nil)
}

func sortedByID[V any](m map[string]V, id func(V) int64, keep func(V) bool) []V {
	out := make([]V, 0)
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

func (s *Store) CreateLot(_ context.Context, lot model.Lot) (model.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.lots[lot.LotID]; ok {
		return model.Lot{}, apierror.NewAPIError(apierror.ErrConflict, "Lot already exists", nil)
	}
	lot.ID = s.state.nextID()
	s.state.lots[lot.LotID] = lot
	return lot, nil
}

func (s *Store) GetLotByID(_ context.Context, id string) (*model.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.state.lots[id]
	if !ok {
		return nil, notFound("Lot")
	}
	return &lot, nil
}

func (s *Store) GetAllLots(_ context.Context, limit, offset int) ([]model.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lots := sortedByID(s.state.lots, func(l model.Lot) int64 { return -l.ID }, func(model.Lot) bool { return true })
	if offset >= len(lots) {
		return []model.Lot{}, nil
	}
	lots = lots[offset:]
	if limit > 0 && limit < len(lots) {
		lots = lots[:limit]
	}
	return lots, nil
}

func (s *Store) UpdateLotState(_ context.Context, lotID string, openedAt, closedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.state.lots[lotID]
	if !ok {
		return notFound("Lot")
	}
	lot.OpenedAt, lot.ClosedAt = openedAt, closedAt
	s.state.lots[lotID] = lot
	return nil
}

func (s *Store) CreateProcess(_ context.Context, process model.Process) (model.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.processes[process.ProcessID]; ok {
		return model.Process{}, apierror.NewAPIError(apierror.ErrConflict, "Process already exists", nil)
	}
	process.ID = s.state.nextID()
	s.state.processes[process.ProcessID] = process
	return process, nil
}

func (s *Store) GetProcessByID(_ context.Context, id string) (*model.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.processes[id]
	if !ok {
		return nil, notFound("Process")
	}
	return &p, nil
}

func (s *Store) GetAllProcesses(_ context.Context) ([]model.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	processes := sortedByID(s.state.processes, func(p model.Process) int64 { return p.ID }, func(model.Process) bool { return true })
	sort.SliceStable(processes, func(i, j int) bool { return processes[i].Name < processes[j].Name })
	return processes, nil
}

func (s *Store) CreateStep(_ context.Context, step model.Step) (model.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.lots[step.LotID]; !ok {
		return model.Step{}, apierror.NewAPIError(apierror.ErrReferentialIntegrity, "Step references a missing lot", nil)
	}
	if step.ParentStepID != "" {
		if _, ok := s.state.steps[step.ParentStepID]; !ok {
			return model.Step{}, apierror.NewAPIError(apierror.ErrReferentialIntegrity, "Step references a missing parent", nil)
		}
	}
	step.ID = s.state.nextID()
	s.state.steps[step.StepID] = step
	return step, nil
}

func (s *Store) GetStepByID(_ context.Context, id string) (*model.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	step, ok := s.state.steps[id]
	if !ok {
		return nil, notFound("Step")
	}
	return &step, nil
}

func (s *Store) GetStepsByLot(_ context.Context, lotID string) ([]model.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.stepsByLot(lotID), nil
}

func (st *state) stepsByLot(lotID string) []model.Step {
	return sortedByID(st.steps, func(s model.Step) int64 { return s.ID }, func(s model.Step) bool { return s.LotID == lotID })
}

func (s *Store) FinishStep(_ context.Context, stepID string, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.state.steps[stepID]
	if !ok {
		return notFound("Step")
	}
	if step.FinishedAt != nil {
		return apierror.New(apierror.ErrConflict, apierror.ReasonStepFinished, "Step is already finished", nil)
	}
	step.FinishedAt = &finishedAt
	s.state.steps[stepID] = step
	return nil
}

func (s *Store) UpdateStepParent(_ context.Context, stepID, parentStepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.state.steps[stepID]
	if !ok {
		return notFound("Step")
	}
	for _, c := range s.state.consumptions {
		if c.StepID == stepID {
			return apierror.NewAPIError(apierror.ErrConflict, "Step already consumes outputs of its parent and cannot be moved", nil)
		}
	}
	step.ParentStepID = parentStepID
	s.state.steps[stepID] = step
	return nil
}

func (s *Store) BindInputs(_ context.Context, inputs []model.Input) ([]model.Input, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bound := []model.Input{}
	for _, in := range inputs {
		if _, ok := s.state.steps[in.StepID]; !ok {
			return nil, apierror.NewAPIError(apierror.ErrReferentialIntegrity, "Input references a missing step", nil)
		}
		if s.state.hasInput(in.StepID, in.BoxID) {
			continue
		}
		in.ID = s.state.nextID()
		s.state.inputs[in.InputID] = in
		bound = append(bound, in)
	}
	return bound, nil
}

func (st *state) hasInput(stepID, boxID string) bool {
	for _, in := range st.inputs {
		if in.StepID == stepID && in.BoxID == boxID {
			return true
		}
	}
	return false
}

func (s *Store) GetInputByID(_ context.Context, id string) (*model.Input, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.state.inputs[id]
	if !ok {
		return nil, notFound("Input")
	}
	return &in, nil
}

func (s *Store) GetInputsByStep(_ context.Context, stepID string) ([]model.Input, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.state.inputs, func(i model.Input) int64 { return i.ID }, func(i model.Input) bool { return i.StepID == stepID }), nil
}

func (s *Store) DeleteInput(_ context.Context, inputID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.inputs[inputID]; !ok {
		return notFound("Input")
	}
	delete(s.state.inputs, inputID)
	return nil
}

func (s *Store) GetOutputByID(_ context.Context, id string) (*model.Output, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, ok := s.state.outputs[id]
	if !ok {
		return nil, notFound("Output")
	}
	return &out, nil
}

func (s *Store) GetOutputsByStep(_ context.Context, stepID string) ([]model.Output, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.state.outputs, func(o model.Output) int64 { return o.ID }, func(o model.Output) bool { return o.StepID == stepID }), nil
}

func (s *Store) GetConsumptionByID(_ context.Context, id string) (*model.Consumption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.consumptions[id]
	if !ok {
		return nil, notFound("Consumption")
	}
	return &c, nil
}

func (s *Store) GetConsumptionsByStep(_ context.Context, stepID string) ([]model.Consumption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.state.consumptions, func(c model.Consumption) int64 { return c.ID }, func(c model.Consumption) bool { return c.StepID == stepID }), nil
}

func (s *Store) GetOutputUsage(_ context.Context, outputIDs []string) (map[string]model.Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]struct{}, len(outputIDs))
	for _, id := range outputIDs {
		wanted[id] = struct{}{}
	}
	usage := map[string]model.Usage{}
	for _, c := range s.state.consumptions {
		if _, ok := wanted[c.OutputID]; ok {
			usage[c.OutputID] = usage[c.OutputID].Add(c.Weight, c.Boxes)
		}
	}
	return usage, nil
}

func (s *Store) GetBoxByID(_ context.Context, boxID string) (*model.Box, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	box, ok := s.state.boxes[boxID]
	if !ok {
		return nil, notFound("Box")
	}
	return &box, nil
}

func (s *Store) GetBoxes(_ context.Context, boxIDs []string) (map[string]model.Box, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	boxes := make(map[string]model.Box, len(boxIDs))
	for _, id := range boxIDs {
		if box, ok := s.state.boxes[id]; ok {
			boxes[id] = box
		}
	}
	return boxes, nil
}

func (s *Store) GetProducts(_ context.Context, productIDs []string) (map[string]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products := make(map[string]model.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := s.state.products[id]; ok {
			products[id] = p
		}
	}
	return products, nil
}

func (s *Store) GetLotGraph(_ context.Context, lotID string) (*model.LotGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.state.lots[lotID]
	if !ok {
		return nil, notFound("Lot")
	}

	steps := s.state.stepsByLot(lotID)
	inLot := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		inLot[step.StepID] = struct{}{}
	}
	belongs := func(stepID string) bool {
		_, ok := inLot[stepID]
		return ok
	}

	return &model.LotGraph{
		Lot:          lot,
		Steps:        steps,
		Inputs:       sortedByID(s.state.inputs, func(i model.Input) int64 { return i.ID }, func(i model.Input) bool { return belongs(i.StepID) }),
		Outputs:      sortedByID(s.state.outputs, func(o model.Output) int64 { return o.ID }, func(o model.Output) bool { return belongs(o.StepID) }),
		Consumptions: sortedByID(s.state.consumptions, func(c model.Consumption) int64 { return c.ID }, func(c model.Consumption) bool { return belongs(c.StepID) }),
	}, nil
}

// RunLedgerTx holds the store lock for the whole of fn, which is what makes
// the read-check-write sequence atomic here.
func (s *Store) RunLedgerTx(_ context.Context, fn func(tx database.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &ledgerTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}
