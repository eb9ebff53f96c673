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

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/dao/database"
	"github.com/tomoncle/dao/types"
	"github.com/uptrace/bun"
)

const postsSchema = `
-- posts fixture
CREATE TABLE posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	views INTEGER NOT NULL DEFAULT 0,
	note TEXT
);
`

type post struct {
	ID     int64
	Title  string
	Status string
	Views  int64
	Note   *string
}

func (p *post) GetID() int64   { return p.ID }
func (p *post) SetID(id int64) { p.ID = id }

var postConverter = NewConverter[*post](
	func(p *post) (types.Row, error) {
		var note interface{}
		if p.Note != nil {
			note = *p.Note
		}
		return types.Row{
			"id":     p.ID,
			"title":  p.Title,
			"status": p.Status,
			"views":  p.Views,
			"note":   note,
		}, nil
	},
	func(row types.Row) (*post, error) {
		p := &post{}
		var err error
		if p.ID, err = row.Int64("id"); err != nil {
			return nil, err
		}
		if p.Title, err = row.String("title"); err != nil {
			return nil, err
		}
		if p.Status, err = row.String("status"); err != nil {
			return nil, err
		}
		if p.Views, err = row.Int64("views"); err != nil {
			return nil, err
		}
		if !row.IsNull("note") {
			note, err := row.String("note")
			if err != nil {
				return nil, err
			}
			p.Note = &note
		}
		return p, nil
	},
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	cfg := database.DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DBName = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	cfg.MaxOpenConns = 1
	cfg.HealthCheckInterval = 0

	manager := database.NewDatabaseManager(cfg, database.WithManagerLogger(database.NopLogger()))
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })

	_, err := database.ExecScript(ctx, manager.GetDB(), postsSchema)
	require.NoError(t, err)
	return manager.GetDB()
}

func newPostRepo(t *testing.T, opts ...Option[*post]) Repository[*post] {
	t.Helper()
	opts = append([]Option[*post]{WithLogger[*post](database.NopLogger())}, opts...)
	return NewRepository[*post](newTestDB(t), "posts", postConverter, opts...)
}

func seedPosts(t *testing.T, repo Repository[*post], n int) {
	t.Helper()
	statuses := []string{"draft", "published", "archived"}
	for i := 1; i <= n; i++ {
		_, err := repo.Save(context.Background(), &post{
			Title:  fmt.Sprintf("post-%02d", i),
			Status: statuses[(i-1)%len(statuses)],
			Views:  int64(i),
		})
		require.NoError(t, err)
	}
}

func strPtr(s string) *string { return &s }

func TestRepository_SaveCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	repo := newPostRepo(t)

	p := &post{Title: "hello", Status: "draft"}
	saved, err := repo.Save(ctx, p)
	require.NoError(t, err)
	require.NotZero(t, saved.ID)
	assert.Equal(t, saved.ID, p.ID)

	p.Title = "hello again"
	p.Note = strPtr("edited")
	_, err = repo.Save(ctx, p)
	require.NoError(t, err)

	found, ok, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello again", found.Title)
	require.NotNil(t, found.Note)
	assert.Equal(t, "edited", *found.Note)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, all.Len())
}

func TestRepository_CreateAssignsDistinctIDs(t *testing.T) {
	ctx := context.Background()
	repo := newPostRepo(t)

	a, err := repo.Create(ctx, &post{Title: "a", Status: "draft"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, &post{Title: "b", Status: "draft"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, all.IDs())
}

func TestRepository_UpdateMissingRowIsNotAnError(t *testing.T) {
	repo := newPostRepo(t)
	_, err := repo.Update(context.Background(), &post{ID: 404, Title: "ghost", Status: "draft"})
	assert.NoError(t, err)
}

func TestRepository_FindByIDMissing(t *testing.T) {
	ctx := context.Background()
	repo := newPostRepo(t)

	p, ok, err := repo.FindByID(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, p)

	_, err = repo.MustFindByID(ctx, 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "posts", nf.Table)
	assert.Equal(t, int64(99), nf.Value)
}

func TestRepository_FindByIDs(t *testing.T) {
	ctx := context.Background()
	repo := newPostRepo(t)
	seedPosts(t, repo, 5)

	found, err := repo.FindByIDs(ctx, []int64{2, 4, 42})
	require.NoError(t, err)
	assert.Equal(t, 2, found.Len())
	assert.True(t, found.Has(2))
	assert.True(t, found.Has(4))

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestRepository_FindByValueKinds(t *testing.T) {
	ctx := context.Background()
	repo := newPostRepo(t)
	seedPosts(t, repo, 6)
	_, err := repo.Save(ctx, &post{Title: "noted", Status: "draft", Views: 100, Note: strPtr("x")})
	require.NoError(t, err)

	drafts, err := repo.FindBy(ctx, "status", "draft")
	require.NoError(t, err)
	assert.Equal(t, 3, drafts.Len())

	set, err := repo.FindBy(ctx, "status", []string{"published", "archived"})
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())

	none, err := repo.FindBy(ctx, "status", []string{})
	require.NoError(t, err)
	assert.Equal(t, 0, none.Len())

	unnoted, err := repo.FindBy(ctx, "note", nil)
	require.NoError(t, err)
	assert.Equal(t, 6, unnoted.Len())

	ranged, err := repo.FindBy(ctx, "views", types.Range{Min: 2, Max: 4})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, ranged.IDs())

	one, ok, err := repo.FindOneBy(ctx, "title", "noted")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(100), one.Views)
}

func TestRepository_FindByVerbatimSet(t *testing.T) {
	ctx := context.Background()
	repo := newPostRepo(t)
	seedPosts(t, repo, 5)

	byIDs, err := repo.FindBy(ctx, "id IN (?)", []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, byIDs.IDs())

	loose, err := repo.FindBy(ctx, "id IN (?)", []interface{}{1, 2, 4})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 4}, loose.IDs())

	mixed, err := repo.FindBy(ctx, "status = ? AND id IN (?)", []interface{}{"draft", []int64{1, 2, 4}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, mixed.IDs())

	count, err := repo.Count(ctx, types.NewUnpagedSearchFilter().
		Require(types.NewNegatedRequirement("id IN (?)", []int64{1, 2})))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRepository_HasAnyRecords(t *testing.T) {
	ctx := context.Background()
	repo := newPostRepo(t)

	has, err := repo.HasAnyRecords(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	seedPosts(t, repo, 1)
	has, err = repo.HasAnyRecords(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRepository_FindFilteredPaginates(t *testing.T) {
	ctx := context.Background()
	repo := newPostRepo(t)
	seedPosts(t, repo, 25)

	filter := types.NewSearchFilter(2, 10).OrderBy("id", types.Asc)
	result, err := repo.FindFiltered(ctx, filter)
	require.NoError(t, err)

	assert.Equal(t, 25, result.TotalRecords)
	assert.Equal(t, 2, result.PageNumber)
	assert.Equal(t, 10, result.PageSize)
	assert.Equal(t, 3, result.TotalPages())
	require.Equal(t, 10, result.Entities.Len())
	ids := result.Entities.IDs()
	assert.Equal(t, int64(11), ids[0])
	assert.Equal(t, int64(20), ids[9])

	last, err := repo.FindFiltered(ctx, filter.SetPage(3, 10))
	require.NoError(t, err)
	assert.Equal(t, 5, last.Entities.Len())
	assert.Equal(t, 25, last.TotalRecords)
}

func TestRepository_FindFilteredUnpaged(t *testing.T) {
	ctx := context.Background()
	repo := newPostRepo(t)
	seedPosts(t, repo, 12)

	result, err := repo.FindFiltered(ctx, types.NewSearchFilter(3, 0))
	require.NoError(t, err)
	assert.Equal(t, 12, result.Entities.Len())
	assert.Equal(t, 12, result.TotalRecords)

	result, err = repo.FindFiltered(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, result.Entities.Len())
}

func TestRepository_FindFilteredOrdering(t *testing.T) {
	ctx := context.Background()
	repo := newPostRepo(t)
	seedPosts(t, repo, 6)

	filter := types.NewUnpagedSearchFilter().
		OrderBy("status", types.Asc).
		OrderBy("views", types.Desc)
	result, err := repo.FindFiltered(ctx, filter)
	require.NoError(t, err)
	// archived: 6,3; draft: 4,1; published: 5,2
	assert.Equal(t, []int64{6, 3, 4, 1, 5, 2}, result.Entities.IDs())
}

func TestRepository_FindFilteredOrderingTokenWithPlaceholder(t *testing.T) {
	ctx := context.Background()
	repo := newPostRepo(t)
	seedPosts(t, repo, 3)
	_, err := repo.Save(ctx, &post{Title: "noted", Status: "draft", Views: 10, Note: strPtr("a")})
	require.NoError(t, err)

	// rows without a note sort as '?', which comes before 'a'
	filter := types.NewUnpagedSearchFilter().
		OrderBy("coalesce(note, '?')", types.Asc).
		OrderBy("id", types.Asc)
	result, err := repo.FindFiltered(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, result.Entities.IDs())

	filter = types.NewUnpagedSearchFilter().
		OrderBy("coalesce(note, '?')", types.Desc).
		OrderBy("id", types.Desc)
	result, err = repo.FindFiltered(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3, 2, 1}, result.Entities.IDs())
}

func TestRepository_FindFilteredRequirements(t *testing.T) {
	ctx := context.Background()
	repo := newPostRepo(t)
	seedPosts(t, repo, 9)

	tests := []struct {
		name         string
		requirements []types.Requirement
		want         int
	}{
		{"scalar", []types.Requirement{types.NewRequirement("status", "draft")}, 3},
		{"negated", []types.Requirement{types.NewNegatedRequirement("status", "draft")}, 6},
		{"set", []types.Requirement{types.NewRequirement("status", []string{"draft", "archived"})}, 6},
		{"negated set", []types.Requirement{types.NewNegatedRequirement("status", []string{"draft", "archived"})}, 3},
		{"range", []types.Requirement{types.NewRequirement("views", types.Range{Min: 3, Max: 7})}, 5},
		{"lower bound", []types.Requirement{types.NewRequirement("views", types.Range{Min: 8})}, 2},
		{"upper bound", []types.Requirement{types.NewRequirement("views", types.Range{Max: 2})}, 2},
		{"null", []types.Requirement{types.NewRequirement("note", nil)}, 9},
		{"not null", []types.Requirement{types.NewNegatedRequirement("note", nil)}, 0},
		{"verbatim", []types.Requirement{types.NewRequirement("views > ?", 6)}, 3},
		{"verbatim spread", []types.Requirement{types.NewRequirement("views BETWEEN ? AND ?", []interface{}{2, 4})}, 3},
		{"negated verbatim", []types.Requirement{types.NewNegatedRequirement("views > ?", 6)}, 6},
		{"and", []types.Requirement{
			types.NewRequirement("status", "draft"),
			types.NewRequirement("views", types.Range{Min: 4}),
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := types.NewUnpagedSearchFilter().Require(tt.requirements...)
			result, err := repo.FindFiltered(ctx, filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Entities.Len())
			assert.Equal(t, tt.want, result.TotalRecords)

			count, err := repo.Count(ctx, filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)
		})
	}
}

func TestRepository_AfterLoadRunsOncePerEntity(t *testing.T) {
	ctx := context.Background()
	loaded := map[int64]int{}
	repo := newPostRepo(t, WithHooks[*post](HookFuncs[*post]{
		OnAfterLoad: func(_ context.Context, p *post) error {
			loaded[p.ID]++
			p.Title = strings.ToUpper(p.Title)
			return nil
		},
	}))
	seedPosts(t, repo, 3)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 1, 2: 1, 3: 1}, loaded)
	for _, p := range all.Values() {
		assert.True(t, strings.HasPrefix(p.Title, "POST-"))
	}
}

func TestRepository_AfterSave(t *testing.T) {
	var saved []int64
	repo := newPostRepo(t, WithHooks[*post](HookFuncs[*post]{
		OnAfterSave: func(_ context.Context, p *post) error {
			saved = append(saved, p.ID)
			return nil
		},
	}))
	seedPosts(t, repo, 2)
	assert.Equal(t, []int64{1, 2}, saved)
}

func TestRepository_HookErrorAborts(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	repo := newPostRepo(t, WithHooks[*post](HookFuncs[*post]{
		OnAfterLoad: func(context.Context, *post) error { return boom },
	}))
	seedPosts(t, repo, 1)

	_, err := repo.FindAll(ctx)
	assert.ErrorIs(t, err, boom)
	_, isPersistence := database.AsPersistenceError(err)
	assert.False(t, isPersistence)
}

func TestRepository_DeleteByID(t *testing.T) {
	ctx := context.Background()
	var deleted []int64
	repo := newPostRepo(t, WithHooks[*post](HookFuncs[*post]{
		OnBeforeDelete: func(_ context.Context, p *post) error {
			deleted = append(deleted, p.ID)
			return nil
		},
	}))
	seedPosts(t, repo, 3)

	require.NoError(t, repo.DeleteByID(ctx, 2))
	assert.Equal(t, []int64{2}, deleted)

	_, ok, err := repo.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	// missing id is a no-op
	require.NoError(t, repo.DeleteByID(ctx, 99))
	assert.Equal(t, []int64{2}, deleted)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Len())
}

func TestRepository_DeleteBy(t *testing.T) {
	ctx := context.Background()
	var deleted []int64
	repo := newPostRepo(t, WithHooks[*post](HookFuncs[*post]{
		OnBeforeDelete: func(_ context.Context, p *post) error {
			deleted = append(deleted, p.ID)
			return nil
		},
	}))
	seedPosts(t, repo, 6)

	require.NoError(t, repo.DeleteBy(ctx, "status", "draft"))
	assert.Equal(t, []int64{1, 4}, deleted)

	count, err := repo.Count(ctx, types.NewUnpagedSearchFilter())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestRepository_BeforeDeleteErrorKeepsRows(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("protected")
	repo := newPostRepo(t, WithHooks[*post](HookFuncs[*post]{
		OnBeforeDelete: func(context.Context, *post) error { return boom },
	}))
	seedPosts(t, repo, 2)

	assert.ErrorIs(t, repo.DeleteAll(ctx), boom)
	count, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRepository_DeleteAll(t *testing.T) {
	ctx := context.Background()
	calls := 0
	repo := newPostRepo(t, WithHooks[*post](HookFuncs[*post]{
		OnBeforeDelete: func(context.Context, *post) error {
			calls++
			return nil
		},
	}))
	seedPosts(t, repo, 4)

	require.NoError(t, repo.DeleteAll(ctx))
	assert.Equal(t, 4, calls)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, all.Len())

	has, err := repo.HasAnyRecords(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRepository_PersistenceError(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository[*post](newTestDB(t), "missing_posts", postConverter, WithLogger[*post](database.NopLogger()))

	_, err := repo.Create(ctx, &post{Title: "x", Status: "draft"})
	require.Error(t, err)
	pe, ok := database.AsPersistenceError(err)
	require.True(t, ok)
	assert.Equal(t, "create", pe.Op)
	assert.Equal(t, "missing_posts", pe.Table)
	assert.Equal(t, database.NoTableErr, pe.Kind)

	_, err = repo.FindAll(ctx)
	pe, ok = database.AsPersistenceError(err)
	require.True(t, ok)
	assert.Equal(t, "find_all", pe.Op)
}

func TestRepository_SetDBUsesTransaction(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRepository[*post](db, "posts", postConverter, WithLogger[*post](database.NopLogger()))

	rollback := errors.New("rollback")
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		txRepo := NewRepository[*post](db, "posts", postConverter, WithLogger[*post](database.NopLogger()))
		txRepo.SetDB(tx)
		_, err := txRepo.Save(ctx, &post{Title: "tx", Status: "draft"})
		require.NoError(t, err)
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	has, err := repo.HasAnyRecords(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRepository_Accessors(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository[*post](db, "posts", postConverter, WithIDColumn[*post]("id"))
	assert.Equal(t, "posts", repo.TableName())
	assert.Equal(t, "id", repo.IDColumn())
	assert.Same(t, db, repo.DB())
	assert.NotNil(t, repo.Converter())
}
