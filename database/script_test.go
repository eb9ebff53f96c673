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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSQLStatements(t *testing.T) {
	script := `
-- schema
CREATE TABLE a (
  id INTEGER
);

INSERT INTO a VALUES (1);
INSERT INTO a VALUES (2)
`
	assert.Equal(t, []string{
		"CREATE TABLE a ( id INTEGER );",
		"INSERT INTO a VALUES (1);",
		"INSERT INTO a VALUES (2)",
	}, SplitSQLStatements(script))

	assert.Empty(t, SplitSQLStatements("-- nothing\n\n"))
}

func TestExecScript(t *testing.T) {
	ctx := context.Background()
	db := newTestManager(t).GetDB()

	result, err := ExecScript(ctx, db, `
CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
INSERT INTO tags (name) VALUES ('go');
INSERT INTO tags (name) VALUES ('sql');
`)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Statements)
	assert.Equal(t, int64(2), result.RowsAffected)

	var n int
	require.NoError(t, db.NewSelect().ColumnExpr("count(*)").TableExpr("tags").Scan(ctx, &n))
	assert.Equal(t, 2, n)
}

func TestExecScript_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	db := newTestManager(t).GetDB()

	_, err := ExecScript(ctx, db, "CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")
	require.NoError(t, err)

	_, err = ExecScript(ctx, db, `
INSERT INTO tags (name) VALUES ('go');
INSERT INTO tags (name) VALUES (NULL);
`)
	require.Error(t, err)
	pe, ok := AsPersistenceError(err)
	require.True(t, ok)
	assert.Equal(t, NotNullViolationErr, pe.Kind)

	var n int
	require.NoError(t, db.NewSelect().ColumnExpr("count(*)").TableExpr("tags").Scan(ctx, &n))
	assert.Equal(t, 0, n)
}

func TestExecScriptFile(t *testing.T) {
	ctx := context.Background()
	db := newTestManager(t).GetDB()

	path := filepath.Join(t.TempDir(), "001_tags.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE tags (id INTEGER);\n"), 0o600))

	result, err := ExecScriptFile(ctx, db, path)
	require.NoError(t, err)
	assert.Equal(t, path, result.Source)
	assert.Equal(t, 1, result.Statements)

	_, err = ExecScriptFile(ctx, db, filepath.Join(t.TempDir(), "missing.sql"))
	assert.Error(t, err)
}
