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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/config"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/database/memory"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookURL = "https://erp.example.com/hooks/traceability"

func TestPublishEnqueuesWebhook(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	defer mr.Close()

	config.MockConfig(&config.Configuration{
		ProjectName: "pesquera-test",
		DataSource:  config.DataSourceConfig{Dns: "memory"},
		Redis:       config.RedisConfig{Dns: mr.Addr()},
		Queue:       config.QueueConfig{WebhookQueue: "pesquera_webhooks", Concurrency: 1},
	})

	p, err := NewPesquera(memory.New())
	require.NoError(t, err)
	require.NotNil(t, p.queue)
	defer p.queue.Close()

	_, err = p.OpenLot(context.Background(), model.Lot{LotCode: "COD-1"})
	require.NoError(t, err)

	keys := mr.Keys()
	t.Log(keys)
	assert.NotEmpty(t, keys)
}

func TestPublishWithoutQueue(t *testing.T) {
	p, _ := newTestPesquera(t)
	assert.Nil(t, p.queue)

	assert.NotPanics(t, func() {
		p.publish(context.Background(), EventLotOpened, model.Lot{})
	})
}

func webhookTask(t *testing.T, hook NewWebhook) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(hook)
	require.NoError(t, err)
	return asynq.NewTask("pesquera_webhooks", payload)
}

func TestProcessWebhook(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	cnf := &config.Configuration{ProjectName: "pesquera-test"}
	cnf.Notification.Webhook.Url = testWebhookURL
	cnf.Notification.Webhook.Headers = map[string]string{"X-Api-Key": "secret"}
	config.MockConfig(cnf)

	var received NewWebhook
	var apiKey string
	httpmock.RegisterResponder(http.MethodPost, testWebhookURL,
		func(req *http.Request) (*http.Response, error) {
			apiKey = req.Header.Get("X-Api-Key")
			body, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(body, &received)
			return httpmock.NewStringResponse(200, "ok"), nil
		})

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{Event: EventStepFinished, Payload: map[string]string{"step_id": "stp_1"}}))
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, EventStepFinished, received.Event)
	assert.Equal(t, "secret", apiKey)
}

func TestProcessWebhookRetriesOnFailure(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	cnf := &config.Configuration{}
	cnf.Notification.Webhook.Url = testWebhookURL
	config.MockConfig(cnf)

	httpmock.RegisterResponder(http.MethodPost, testWebhookURL, httpmock.NewStringResponder(502, "bad gateway"))

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{Event: EventLotClosed}))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessWebhookMalformedPayload(t *testing.T) {
	cnf := &config.Configuration{}
	cnf.Notification.Webhook.Url = testWebhookURL
	config.MockConfig(cnf)

	err := ProcessWebhook(context.Background(), asynq.NewTask("pesquera_webhooks", []byte("{not json")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessWebhookNotConfigured(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	config.MockConfig(&config.Configuration{})

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{Event: EventLotOpened}))
	assert.NoError(t, err)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}
