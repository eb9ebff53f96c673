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
	"fmt"
	"sync"

	"github.com/tomoncle/dao/utils"
	"github.com/uptrace/bun"
)

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory

	// DB mirrors the connection opened by InitDB. Prefer GetDB, which
	// follows reconnects.
	DB *bun.DB
)

func currentFactory() *BaseDatabaseFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// GetDB returns the global database, or nil before InitDB.
func GetDB() *bun.DB {
	if f := currentFactory(); f != nil {
		return f.GetDB()
	}
	return nil
}

// GetDatabaseManager returns the manager created by InitDB.
func GetDatabaseManager() AbstractDatabaseManager {
	if f := currentFactory(); f != nil {
		return f.GetManager()
	}
	return nil
}

func GetDatabaseFactory() *BaseDatabaseFactory {
	return currentFactory()
}

// InitDB applies the logging section of cfg, then creates and connects the
// global database. A previous global connection is closed once the new one
// is up.
func InitDB(ctx context.Context, cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if level := cfg.Logging.Level; level != "" {
		utils.ConfigureLogLevel(level)
	}
	if format := cfg.Logging.Format; format != "" {
		utils.ConfigureConsoleLogFormat(format)
	}

	factory := NewDatabaseFactory()
	if _, err := factory.CreateFromConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	globalMu.Lock()
	previous := globalFactory
	globalFactory = factory
	DB = factory.GetDB()
	globalMu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			GetLogger().Warn("Failed to close previous database", "error", err)
		}
	}
	return factory.GetDB(), nil
}

// InitDBFromFile loads a YAML config file and calls InitDB.
func InitDBFromFile(ctx context.Context, path string) (*bun.DB, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return InitDB(ctx, cfg)
}

// CloseDB closes the global database. It is safe to call more than once.
func CloseDB() error {
	globalMu.Lock()
	f := globalFactory
	globalFactory, DB = nil, nil
	globalMu.Unlock()

	if f == nil {
		return nil
	}
	return f.Close()
}

func GetHealthStatus(ctx context.Context) *HealthStatus {
	if f := currentFactory(); f != nil {
		return f.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: "Database not initialized"}
}

func GetDatabaseStats() *DBStats {
	if f := currentFactory(); f != nil {
		return f.GetStats()
	}
	return &DBStats{}
}
