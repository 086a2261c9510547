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
	"database/sql"
	"sync"
	"time"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/cache"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/config"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var (
	instance *Datasource
	once     sync.Once

	tracer = otel.Tracer("pesquera.database")
)

const defaultRetryDelay = 50 * time.Millisecond

// Datasource is the PostgreSQL implementation of IDataSource. Cache is
// optional and only fronts product lookups.
type Datasource struct {
	Conn       *sql.DB
	Cache      cache.Cache
	RetryDelay time.Duration
	ProductTTL time.Duration
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection returns the process-wide datasource, connecting on first use.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns, configuration.DataSource.MaxOpenConns)
		if errConn != nil {
			err = errConn
			return
		}

		ds := &Datasource{
			Conn:       con,
			RetryDelay: configuration.Ledger.RetryDelay(),
			ProductTTL: configuration.Cache.ProductTTL(),
		}
		if configuration.Redis.Dns != "" {
			c, cacheErr := cache.NewCache()
			if cacheErr != nil {
				logrus.Warnf("product cache disabled: %v", cacheErr)
			} else {
				ds.Cache = c
			}
		}
		instance = ds
	})
	if err != nil {
		once = sync.Once{}
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns / 2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		logrus.Errorf("database connection error: %v", err)
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (d Datasource) retryDelay() time.Duration {
	if d.RetryDelay <= 0 {
		return defaultRetryDelay
	}
	return d.RetryDelay
}

// nullString stores empty strings as NULL.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
