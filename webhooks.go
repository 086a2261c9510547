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
	"fmt"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/config"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/metrics"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/notification"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/request"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const (
	EventLotOpened            = "lot.opened"
	EventLotClosed            = "lot.closed"
	EventStepFinished         = "step.finished"
	EventOutputRecorded       = "output.recorded"
	EventConsumptionRecorded  = "consumption.recorded"
	EventConsumptionsRecorded = "consumption.bulk_recorded"
)

// NewWebhook is the envelope delivered to the configured webhook URL.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// publish enqueues a webhook once the change it describes is committed.
// Failing to enqueue never fails the operation that triggered it.
func (p *Pesquera) publish(ctx context.Context, event string, payload interface{}) {
	if p.queue == nil {
		return
	}
	if err := p.queue.EnqueueWebhook(ctx, NewWebhook{Event: event, Payload: payload}); err != nil {
		notification.NotifyError(fmt.Errorf("enqueue %s webhook: %w", event, err))
		return
	}
	metrics.WebhooksEnqueued.WithLabelValues(event).Inc()
}

// ProcessWebhook delivers one queued webhook. It is registered on the
// workers' asynq mux; returning an error makes asynq retry the task.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var hook NewWebhook
	if err := json.Unmarshal(task.Payload(), &hook); err != nil {
		logrus.Errorf("dropping malformed webhook task: %v", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	logrus.WithField("event", hook.Event).Info("delivering webhook")
	_, err = request.PostJSON(ctx, conf.Notification.Webhook.Url, hook, conf.Notification.Webhook.Headers, nil)
	return err
}
