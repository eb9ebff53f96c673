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
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var querySilentMode atomic.Bool

// EnableBunSqlSilent suppresses QueryLogHook output process-wide.
func EnableBunSqlSilent(b bool) {
	querySilentMode.Store(b)
}

var operationColors = map[string]*color.Color{
	"SELECT": color.New(color.FgGreen),
	"INSERT": color.New(color.FgBlue),
	"UPDATE": color.New(color.FgYellow),
	"DELETE": color.New(color.FgMagenta),
}

func colorizeQuery(event *bun.QueryEvent) string {
	if c, ok := operationColors[event.Operation()]; ok {
		return c.Sprint(event.Query)
	}
	return color.New(color.FgRed).Sprint(event.Query)
}

// QueryLogHook reports failed and slow queries through a Logger. With
// verbose set every query is logged at debug level.
type QueryLogHook struct {
	logger   Logger
	verbose  bool
	slowTime time.Duration
}

var _ bun.QueryHook = (*QueryLogHook)(nil)

// NewQueryLogHook creates a hook; slowTime <= 0 disables slow query reports.
func NewQueryLogHook(logger Logger, verbose bool, slowTime time.Duration) *QueryLogHook {
	if logger == nil {
		logger = GetLogger()
	}
	return &QueryLogHook{logger: logger, verbose: verbose, slowTime: slowTime}
}

func (h *QueryLogHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryLogHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if querySilentMode.Load() {
		return
	}
	dur := time.Since(event.StartTime)

	switch {
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) && !errors.Is(event.Err, sql.ErrTxDone):
		h.logger.Error("Query failed",
			"operation", event.Operation(),
			"duration", dur.Round(time.Microsecond),
			"query", colorizeQuery(event),
			"error", event.Err,
		)
	case h.slowTime > 0 && dur > h.slowTime:
		h.logger.Warn("Database slow query detected",
			"operation", event.Operation(),
			"duration", dur.Round(time.Microsecond),
			"slow_threshold", h.slowTime,
			"query", colorizeQuery(event),
		)
	case h.verbose:
		h.logger.Debug("Query executed",
			"operation", event.Operation(),
			"duration", dur.Round(time.Microsecond),
			"query", colorizeQuery(event),
		)
	}
}
