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
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// ScriptResult describes one executed SQL script.
type ScriptResult struct {
	Source       string
	Statements   int
	RowsAffected int64
	Duration     time.Duration
}

// ExecScriptFile reads path and executes it with ExecScript.
func ExecScriptFile(ctx context.Context, db bun.IDB, path string) (*ScriptResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sql script %s: %w", path, err)
	}
	result, err := execScript(ctx, db, string(content))
	if result != nil {
		result.Source = path
	}
	return result, err
}

// ExecScript runs every statement of script inside one transaction. The
// script is split on lines ending with ";" and "--" comment lines are
// skipped. It is meant for fixtures and seed data; nothing is versioned.
func ExecScript(ctx context.Context, db bun.IDB, script string) (*ScriptResult, error) {
	return execScript(ctx, db, script)
}

func execScript(ctx context.Context, db bun.IDB, script string) (*ScriptResult, error) {
	start := time.Now()
	statements := SplitSQLStatements(script)
	result := &ScriptResult{Source: "inline", Statements: len(statements)}
	if len(statements) == 0 {
		return result, nil
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range statements {
			res, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				return WrapError("exec_script", "", fmt.Errorf("%s: %w", stmt, err))
			}
			n, _ := res.RowsAffected()
			result.RowsAffected += n
		}
		return nil
	})
	result.Duration = time.Since(start)
	if err != nil {
		GetLogger().Error("SQL script failed", "source", result.Source, "error", err)
		return result, err
	}

	GetLogger().Debug("SQL script executed",
		"statements", result.Statements,
		"rows_affected", result.RowsAffected,
		"duration", result.Duration.String())
	return result, nil
}

// SplitSQLStatements splits a script into statements. A statement ends at a
// line whose last character is ";"; a trailing unterminated statement is
// kept.
func SplitSQLStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(script))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}
