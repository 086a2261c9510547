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

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/config"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/database/memory"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	redlock "github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/lock"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindInput(t *testing.T) {
	p, store := newTestPesquera(t)
	ctx := context.Background()
	lot := openTestLot(t, p)
	step := createTestStep(t, p, lot.LotID, "")
	box := seedBox(store, "prd_cod_whole", kg("25.5"))

	in, err := p.BindInput(ctx, step.StepID, box.BoxID)
	require.NoError(t, err)
	assert.Equal(t, step.StepID, in.StepID)
	assert.Equal(t, box.BoxID, in.BoxID)

	_, err = p.BindInput(ctx, step.StepID, box.BoxID)
	assert.True(t, errors.Is(err, apierror.DuplicateBinding))

	inputs, err := p.GetStepInputs(ctx, step.StepID)
	require.NoError(t, err)
	assert.Len(t, inputs, 1)
}

func TestBindInputUnavailableBox(t *testing.T) {
	p, store := newTestPesquera(t)
	lot := openTestLot(t, p)
	step := createTestStep(t, p, lot.LotID, "")
	box := model.Box{BoxID: "box_sold", ProductID: "prd_cod", NetWeight: kg("10"), Available: false}
	store.SaveBox(box)

	_, err := p.BindInput(context.Background(), step.StepID, box.BoxID)
	assert.True(t, errors.Is(err, apierror.BoxUnavailable))
}

func TestBindInputMissingBox(t *testing.T) {
	p, _ := newTestPesquera(t)
	lot := openTestLot(t, p)
	step := createTestStep(t, p, lot.LotID, "")

	_, err := p.BindInput(context.Background(), step.StepID, "box_missing")
	assert.True(t, errors.Is(err, apierror.NotFound))

	_, err = p.BindInput(context.Background(), step.StepID, "")
	assert.True(t, errors.Is(err, apierror.Validation))
}

func TestBindInputsBulkPartial(t *testing.T) {
	p, store := newTestPesquera(t)
	ctx := context.Background()
	lot := openTestLot(t, p)
	step := createTestStep(t, p, lot.LotID, "")

	first := seedBox(store, "prd_cod", kg("10"))
	second := seedBox(store, "prd_cod", kg("12"))
	already := seedBox(store, "prd_cod", kg("9"))
	sold := model.Box{BoxID: "box_sold", ProductID: "prd_cod", NetWeight: kg("8")}
	store.SaveBox(sold)

	_, err := p.BindInput(ctx, step.StepID, already.BoxID)
	require.NoError(t, err)

	result, err := p.BindInputsBulk(ctx, step.StepID, []string{first.BoxID, "box_missing", second.BoxID, already.BoxID, sold.BoxID, first.BoxID})
	require.NoError(t, err)

	assert.Len(t, result.Bound, 2)
	reasons := map[string][]string{}
	for _, f := range result.Failed {
		reasons[f.Reason] = append(reasons[f.Reason], f.BoxID)
	}
	assert.Equal(t, []string{"box_missing"}, reasons["not_found"])
	assert.ElementsMatch(t, []string{already.BoxID, first.BoxID}, reasons[string(apierror.ReasonDuplicateBinding)])
	assert.Equal(t, []string{sold.BoxID}, reasons[string(apierror.ReasonBoxUnavailable)])

	inputs, err := p.GetStepInputs(ctx, step.StepID)
	require.NoError(t, err)
	assert.Len(t, inputs, 3)
}

func TestBindInputsBulkAllFail(t *testing.T) {
	p, _ := newTestPesquera(t)
	ctx := context.Background()
	lot := openTestLot(t, p)
	step := createTestStep(t, p, lot.LotID, "")

	result, err := p.BindInputsBulk(ctx, step.StepID, []string{"box_a", "box_b"})
	require.Error(t, err)
	assert.Empty(t, result.Bound)
	assert.Len(t, result.Failed, 2)

	inputs, err := p.GetStepInputs(ctx, step.StepID)
	require.NoError(t, err)
	assert.Empty(t, inputs)
}

func TestUnbindInput(t *testing.T) {
	p, store := newTestPesquera(t)
	ctx := context.Background()
	lot := openTestLot(t, p)
	step := createTestStep(t, p, lot.LotID, "")
	box := seedBox(store, "prd_cod", kg("10"))

	in, err := p.BindInput(ctx, step.StepID, box.BoxID)
	require.NoError(t, err)

	require.NoError(t, p.UnbindInput(ctx, in.InputID))

	_, err = p.BindInput(ctx, step.StepID, box.BoxID)
	assert.NoError(t, err)
}

func TestBindInputWithBoxLock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config.MockConfig(&config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "memory"},
		Redis:      config.RedisConfig{Dns: mr.Addr()},
		Queue:      config.QueueConfig{WebhookQueue: "pesquera_webhooks"},
		Ledger:     config.LedgerConfig{EnableBoxLock: true, BoxLockTimeoutSec: 1},
	})
	store := memory.New()
	p, err := NewPesquera(store)
	require.NoError(t, err)
	require.True(t, p.boxLock)

	ctx := context.Background()
	lot := openTestLot(t, p)
	step := createTestStep(t, p, lot.LotID, "")
	free := seedBox(store, "prd_cod", kg("10"))
	held := seedBox(store, "prd_cod", kg("10"))

	_, err = p.BindInput(ctx, step.StepID, free.BoxID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(redlock.BoxKey(free.BoxID)))

	require.NoError(t, mr.Set(redlock.BoxKey(held.BoxID), "another-scanner"))
	_, err = p.BindInput(ctx, step.StepID, held.BoxID)
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
}
