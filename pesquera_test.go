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

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/config"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/database/memory"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestPesquera(t *testing.T) (*Pesquera, *memory.Store) {
	t.Helper()
	config.MockConfig(&config.Configuration{
		ProjectName: "pesquera-test",
		DataSource:  config.DataSourceConfig{Dns: "memory"},
	})
	store := memory.New()
	p, err := NewPesquera(store)
	require.NoError(t, err)
	return p, store
}

func kg(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func openTestLot(t *testing.T, p *Pesquera) model.Lot {
	t.Helper()
	lot, err := p.OpenLot(context.Background(), model.Lot{
		LotCode:       gofakeit.LetterN(3) + "-" + gofakeit.DigitN(6),
		SpeciesID:     "spc_cod",
		CaptureZoneID: "fao_27",
	})
	require.NoError(t, err)
	return lot
}

func createTestProcess(t *testing.T, p *Pesquera, processType model.ProcessType) model.Process {
	t.Helper()
	process, err := p.CreateProcess(context.Background(), model.Process{Name: gofakeit.Word(), Type: processType})
	require.NoError(t, err)
	return process
}

func createTestStep(t *testing.T, p *Pesquera, lotID, parentID string) model.Step {
	t.Helper()
	process := createTestProcess(t, p, model.ProcessStep)
	step, err := p.CreateStep(context.Background(), model.Step{LotID: lotID, ProcessID: process.ProcessID, ParentStepID: parentID})
	require.NoError(t, err)
	return step
}

func recordTestOutput(t *testing.T, p *Pesquera, stepID, productID string, weight decimal.Decimal, boxes int64) model.Output {
	t.Helper()
	out, err := p.RecordOutput(context.Background(), model.Output{StepID: stepID, ProductID: productID, Weight: weight, Boxes: boxes})
	require.NoError(t, err)
	return out
}

func seedBox(store *memory.Store, productID string, weight decimal.Decimal) model.Box {
	box := model.Box{
		BoxID:     model.GenerateUUIDWithSuffix("box"),
		ProductID: productID,
		NetWeight: weight,
		Available: true,
	}
	store.SaveBox(box)
	return box
}
