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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"

	defaultWebhookQueue     = "pesquera_webhooks"
	defaultRetryDelayMs     = 50
	defaultBoxLockTimeout   = 5
	defaultProductCacheTTL  = 300
	defaultCleanupInterval  = 10800
	defaultTelemetryService = "pesquera-traceability"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"PESQUERA_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"PESQUERA_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"PESQUERA_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"PESQUERA_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"PESQUERA_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"PESQUERA_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns          string `json:"dns" envconfig:"PESQUERA_DATA_SOURCE_DNS"`
	MaxOpenConns int    `json:"max_open_conns" envconfig:"PESQUERA_DATA_SOURCE_MAX_OPEN_CONNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"PESQUERA_REDIS_DNS"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"PESQUERA_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"PESQUERA_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"PESQUERA_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"PESQUERA_SLACK_WEBHOOK_URL"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"PESQUERA_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type QueueConfig struct {
	WebhookQueue string `json:"webhook_queue" envconfig:"PESQUERA_QUEUE_WEBHOOK"`
	Concurrency  int    `json:"concurrency" envconfig:"PESQUERA_QUEUE_CONCURRENCY"`
}

// LedgerConfig tunes the consumption ledger transaction boundary.
type LedgerConfig struct {
	RetryDelayMs      int  `json:"retry_delay_ms" envconfig:"PESQUERA_LEDGER_RETRY_DELAY_MS"`
	BoxLockTimeoutSec int  `json:"box_lock_timeout_sec" envconfig:"PESQUERA_LEDGER_BOX_LOCK_TIMEOUT_SEC"`
	EnableBoxLock     bool `json:"enable_box_lock" envconfig:"PESQUERA_LEDGER_ENABLE_BOX_LOCK"`
}

type CacheConfig struct {
	ProductTTLSeconds int `json:"product_ttl_seconds" envconfig:"PESQUERA_CACHE_PRODUCT_TTL_SECONDS"`
}

type TelemetryConfig struct {
	Enabled     bool   `json:"enabled" envconfig:"PESQUERA_TELEMETRY_ENABLED"`
	Endpoint    string `json:"endpoint" envconfig:"PESQUERA_TELEMETRY_ENDPOINT"`
	ServiceName string `json:"service_name" envconfig:"PESQUERA_TELEMETRY_SERVICE_NAME"`
	Insecure    bool   `json:"insecure" envconfig:"PESQUERA_TELEMETRY_INSECURE"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"PESQUERA_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Notification Notification     `json:"notification"`
	Queue        QueueConfig      `json:"queue"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
	Ledger       LedgerConfig     `json:"ledger"`
	Cache        CacheConfig      `json:"cache"`
	Telemetry    TelemetryConfig  `json:"telemetry"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("pesquera", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called pesquera.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Pesquera Traceability"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Redis.Dns == "" {
		log.Println("Warning: Redis DNS is empty. Webhooks, product cache and box locks are disabled.")
		cnf.Ledger.EnableBoxLock = false
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = defaultWebhookQueue
	}
	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = 10
	}

	if cnf.Ledger.RetryDelayMs <= 0 {
		cnf.Ledger.RetryDelayMs = defaultRetryDelayMs
	}
	if cnf.Ledger.BoxLockTimeoutSec <= 0 {
		cnf.Ledger.BoxLockTimeoutSec = defaultBoxLockTimeout
	}
	if cnf.Cache.ProductTTLSeconds <= 0 {
		cnf.Cache.ProductTTLSeconds = defaultProductCacheTTL
	}
	if cnf.Telemetry.ServiceName == "" {
		cnf.Telemetry.ServiceName = defaultTelemetryService
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		cleanup := defaultCleanupInterval
		cnf.RateLimit.CleanupIntervalSec = &cleanup
	}

	return nil
}

func (l LedgerConfig) RetryDelay() time.Duration {
	return time.Duration(l.RetryDelayMs) * time.Millisecond
}

func (l LedgerConfig) BoxLockTimeout() time.Duration {
	return time.Duration(l.BoxLockTimeoutSec) * time.Second
}

func (c CacheConfig) ProductTTL() time.Duration {
	return time.Duration(c.ProductTTLSeconds) * time.Second
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
