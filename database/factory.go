/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tomoncle/dao/utils"
	"github.com/uptrace/bun"
)

// BaseDatabaseFactory builds the database manager from a Config and keeps it
// for the package level helpers.
type BaseDatabaseFactory struct {
	manager    AbstractDatabaseManager
	logger     Logger
	registerer prometheus.Registerer
}

// NewDatabaseFactory returns a factory that logs through the global logger
// and registers query metrics on the default Prometheus registerer.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger:     GetLogger(),
		registerer: prometheus.DefaultRegisterer,
	}
}

// SetMetricsRegisterer selects where query metrics are registered when
// metrics are enabled.
func (f *BaseDatabaseFactory) SetMetricsRegisterer(reg prometheus.Registerer) {
	f.registerer = reg
}

// CreateFromConfig applies .env and DB_* overrides to the connection section
// of cfg, validates the database type and creates an unconnected manager.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	f.loadDotEnv()
	applyEnvOverrides(&cfg.ConnectionConfig)

	if _, ok := lookupDialect(cfg.ConnectionConfig.Type); !ok {
		return nil, fmt.Errorf("unsupported database type: %q", cfg.ConnectionConfig.Type)
	}

	opts := []ManagerOption{WithManagerLogger(f.logger)}
	if cfg.Metrics.Enabled {
		hook, err := NewMetricsHook(f.registerer, cfg.Metrics.Namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to register query metrics: %w", err)
		}
		opts = append(opts, WithQueryHooks(hook))
	}

	f.manager = NewDatabaseManager(&cfg.ConnectionConfig, opts...)
	return f.manager, nil
}

// loadDotEnv loads DB_ENV_FILE (default .env) into the process environment.
// Variables that are already set win.
func (f *BaseDatabaseFactory) loadDotEnv() {
	path := utils.EnvDefaultString("DB_ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("Failed to load env file", "path", path, "error", err)
	}
}

// applyEnvOverrides replaces configured values with the DB_* variables that
// are set. Unparseable numbers and durations are ignored; durations accept
// Go syntax or whole seconds.
func applyEnvOverrides(c *ConnectionConfig) {
	c.Type = utils.EnvDefaultString("DB_TYPE", c.Type)
	c.Host = utils.EnvDefaultString("DB_HOST", c.Host)
	c.Port = utils.EnvDefaultInt("DB_PORT", c.Port)
	c.Username = utils.EnvDefaultString("DB_USERNAME", c.Username)
	c.Password = utils.EnvDefaultString("DB_PASSWORD", c.Password)
	c.DBName = utils.EnvDefaultString("DB_NAME", c.DBName)
	c.SSLMode = utils.EnvDefaultString("DB_SSLMODE", c.SSLMode)

	c.MaxIdleConns = utils.EnvDefaultInt("DB_MAX_IDLE_CONNS", c.MaxIdleConns)
	c.MaxOpenConns = utils.EnvDefaultInt("DB_MAX_OPEN_CONNS", c.MaxOpenConns)
	c.ConnMaxLifetime = utils.EnvDefaultDuration("DB_CONN_MAX_LIFETIME", c.ConnMaxLifetime)

	c.EnableReconnect = utils.EnvDefaultBool("DB_ENABLE_RECONNECT", c.EnableReconnect)
	c.ReconnectInterval = utils.EnvDefaultDuration("DB_RECONNECT_INTERVAL", c.ReconnectInterval)
	c.EnableQueryLog = utils.EnvDefaultBool("DB_ENABLE_QUERY_LOG", c.EnableQueryLog)
	c.SlowQueryTime = utils.EnvDefaultDuration("DB_SLOW_QUERY_TIME", c.SlowQueryTime)
}

// InitializeDatabase connects the created manager.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

// GetManager returns the underlying database manager.
func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the Bun database instance, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close closes the database connection managed by the factory.
func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

// GetHealthStatus returns the current database health status from the manager.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

// GetStats returns database connection statistics from the manager.
func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
