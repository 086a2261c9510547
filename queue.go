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

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/config"
	redis_db "github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/redis-db"

	"github.com/hibiken/asynq"
)

// Queue enqueues background tasks on redis for the workers command.
type Queue struct {
	Client       *asynq.Client
	webhookQueue string
}

// RedisClientOpt translates the configured redis address into asynq options.
func RedisClientOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	opts, err := redis_db.ParseRedisURL(conf.Redis.Dns, false)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}

func NewQueue(conf *config.Configuration) (*Queue, error) {
	opt, err := RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}
	return &Queue{
		Client:       asynq.NewClient(opt),
		webhookQueue: conf.Queue.WebhookQueue,
	}, nil
}

// EnqueueWebhook puts a webhook on the webhook queue. The task type equals
// the queue name so the worker mux can route it.
func (q *Queue) EnqueueWebhook(ctx context.Context, hook NewWebhook) error {
	payload, err := json.Marshal(hook)
	if err != nil {
		return err
	}
	task := asynq.NewTask(q.webhookQueue, payload, asynq.Queue(q.webhookQueue), asynq.MaxRetry(5))
	_, err = q.Client.EnqueueContext(ctx, task)
	return err
}

func (q *Queue) Close() error {
	return q.Client.Close()
}
