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

package main

import (
	"context"
	"log"

	pesquera "github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/config"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
)

func initializeWorkerServer(conf *config.Configuration) (*asynq.Server, error) {
	opt, err := pesquera.RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}

	return asynq.NewServer(opt, asynq.Config{
		Concurrency: conf.Queue.Concurrency,
		Queues:      map[string]int{conf.Queue.WebhookQueue: 1},
	}), nil
}

func initializeTaskHandlers(conf *config.Configuration, mux *asynq.ServeMux) {
	mux.HandleFunc(conf.Queue.WebhookQueue, pesquera.ProcessWebhook)
}

// workerCommands starts the asynq workers that deliver queued webhooks.
func workerCommands(p *pesqueraInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start the webhook workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conf := p.cnf

			if conf.Redis.Dns == "" {
				log.Fatal("workers need redis: set redis.dns")
			}

			shutdown, err := initializeTracing(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			srv, err := initializeWorkerServer(conf)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(conf, mux)

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
