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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHook_CountsQueries(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	hook, err := NewMetricsHook(reg, "test")
	require.NoError(t, err)

	manager := newTestManager(t, WithQueryHooks(hook))
	db := manager.GetDB()

	_, err = db.ExecContext(ctx, "CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	var n int
	require.NoError(t, db.NewSelect().ColumnExpr("count(*)").TableExpr("tags").Scan(ctx, &n))
	require.NoError(t, db.NewSelect().ColumnExpr("count(*)").TableExpr("tags").Scan(ctx, &n))
	assert.Error(t, db.NewSelect().ColumnExpr("count(*)").TableExpr("missing").Scan(ctx, &n))

	assert.Equal(t, 2.0, testutil.ToFloat64(hook.queries.WithLabelValues("SELECT", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(hook.queries.WithLabelValues("SELECT", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(hook.queries.WithLabelValues("CREATE", "ok")))
	// one histogram series per operation: CREATE and SELECT
	assert.Equal(t, 2, testutil.CollectAndCount(hook.duration, "test_query_duration_seconds"))
}

func TestMetricsHook_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewMetricsHook(reg, "dao")
	require.NoError(t, err)
	second, err := NewMetricsHook(reg, "dao")
	require.NoError(t, err)

	first.queries.WithLabelValues("INSERT", "ok").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.queries.WithLabelValues("INSERT", "ok")))
}

func TestFactory_MetricsEnabled(t *testing.T) {
	t.Setenv("DB_ENV_FILE", "")
	t.Setenv("DB_TYPE", "")
	reg := prometheus.NewRegistry()

	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "sqlite"
	cfg.ConnectionConfig.DBName = "file:factory_metrics?mode=memory&cache=shared"
	cfg.ConnectionConfig.HealthCheckInterval = 0
	cfg.Metrics.Enabled = true
	cfg.Metrics.Namespace = "factory"

	factory := NewDatabaseFactory()
	factory.SetLogger(NopLogger())
	factory.SetMetricsRegisterer(reg)
	_, err := factory.CreateFromConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, factory.InitializeDatabase(context.Background()))
	t.Cleanup(func() { _ = factory.Close() })

	_, err = factory.GetDB().NewSelect().ColumnExpr("1").Exec(context.Background())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "factory_queries_total")
	assert.Contains(t, names, "factory_query_duration_seconds")
}
