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
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomoncle/dao/database"
	"github.com/tomoncle/dao/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

const defaultIDColumn = "id"

type baseRepositoryImpl[E Entity] struct {
	db        bun.IDB
	table     string
	idColumn  string
	converter Converter[E]
	hooks     Hooks[E]
	logger    database.Logger
}

// Option customises a repository created by NewRepository.
type Option[E Entity] func(*baseRepositoryImpl[E])

// WithIDColumn overrides the identifier column (default "id").
func WithIDColumn[E Entity](column string) Option[E] {
	return func(r *baseRepositoryImpl[E]) {
		if column != "" {
			r.idColumn = column
		}
	}
}

// WithHooks installs load/save/delete hooks.
func WithHooks[E Entity](hooks Hooks[E]) Option[E] {
	return func(r *baseRepositoryImpl[E]) {
		if hooks != nil {
			r.hooks = hooks
		}
	}
}

// WithLogger replaces the global database logger.
func WithLogger[E Entity](logger database.Logger) Option[E] {
	return func(r *baseRepositoryImpl[E]) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRepository returns a repository for table, converting rows with
// converter and executing through db. db may be a *bun.DB or a bun.Tx.
func NewRepository[E Entity](db bun.IDB, table string, converter Converter[E], opts ...Option[E]) Repository[E] {
	r := &baseRepositoryImpl[E]{
		db:        db,
		table:     table,
		idColumn:  defaultIDColumn,
		converter: converter,
		hooks:     NopHooks[E]{},
		logger:    database.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *baseRepositoryImpl[E]) TableName() string { return r.table }

func (r *baseRepositoryImpl[E]) IDColumn() string { return r.idColumn }

func (r *baseRepositoryImpl[E]) Converter() Converter[E] { return r.converter }

func (r *baseRepositoryImpl[E]) DB() bun.IDB { return r.db }

func (r *baseRepositoryImpl[E]) SetDB(db bun.IDB) { r.db = db }

// NewSelect returns a SELECT * over the repository table.
func (r *baseRepositoryImpl[E]) NewSelect() *bun.SelectQuery {
	return r.db.NewSelect().ColumnExpr("*").TableExpr("?", bun.Ident(r.table))
}

func (r *baseRepositoryImpl[E]) Save(ctx context.Context, entity E) (E, error) {
	var err error
	if entity.GetID() != 0 {
		entity, err = r.Update(ctx, entity)
	} else {
		entity, err = r.Create(ctx, entity)
	}
	if err != nil {
		return entity, err
	}
	if err := r.hooks.AfterSave(ctx, entity); err != nil {
		return entity, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[E]) Create(ctx context.Context, entity E) (E, error) {
	values, err := r.values(entity)
	if err != nil {
		return entity, err
	}

	q := r.db.NewInsert().Model(&values).TableExpr("?", bun.Ident(r.table))

	var id int64
	if r.db.Dialect().Features().Has(feature.InsertReturning) {
		err = q.Returning("?", bun.Ident(r.idColumn)).Scan(ctx, &id)
		if errors.Is(err, sql.ErrNoRows) {
			err = database.ErrNoGeneratedID
		}
	} else {
		var res sql.Result
		if res, err = q.Exec(ctx); err == nil {
			id, err = res.LastInsertId()
		}
	}
	if err != nil {
		return entity, r.fail("create", err)
	}
	if id <= 0 {
		return entity, r.fail("create", database.ErrNoGeneratedID)
	}

	entity.SetID(id)
	r.logger.Debug("Entity created", "table", r.table, "id", id)
	return entity, nil
}

// Update writes every converted column of entity to the row with its id.
// Matching no row is not an error.
func (r *baseRepositoryImpl[E]) Update(ctx context.Context, entity E) (E, error) {
	values, err := r.values(entity)
	if err != nil {
		return entity, err
	}

	_, err = r.db.NewUpdate().
		Model(&values).
		TableExpr("?", bun.Ident(r.table)).
		Where("? = ?", bun.Ident(r.idColumn), entity.GetID()).
		Exec(ctx)
	if err != nil {
		return entity, r.fail("update", err)
	}
	r.logger.Debug("Entity updated", "table", r.table, "id", entity.GetID())
	return entity, nil
}

func (r *baseRepositoryImpl[E]) FindAll(ctx context.Context) (*types.IDMap[E], error) {
	return r.find(ctx, "find_all", r.NewSelect())
}

func (r *baseRepositoryImpl[E]) FindByID(ctx context.Context, id int64) (E, bool, error) {
	return r.FindOneBy(ctx, r.idColumn, id)
}

// MustFindByID is FindByID for callers that treat absence as an error; it
// returns a *NotFoundError when no row matches.
func (r *baseRepositoryImpl[E]) MustFindByID(ctx context.Context, id int64) (E, error) {
	entity, ok, err := r.FindByID(ctx, id)
	if err != nil {
		return entity, err
	}
	if !ok {
		return entity, &NotFoundError{Table: r.table, Column: r.idColumn, Value: id}
	}
	return entity, nil
}

func (r *baseRepositoryImpl[E]) FindByIDs(ctx context.Context, ids []int64) (*types.IDMap[E], error) {
	if len(ids) == 0 {
		return types.NewIDMap[E](0), nil
	}
	return r.FindBy(ctx, r.idColumn, ids)
}

// FindBy selects rows whose column matches value; value follows the
// requirement rules (scalar, slice, types.Range or nil).
func (r *baseRepositoryImpl[E]) FindBy(ctx context.Context, column string, value interface{}) (*types.IDMap[E], error) {
	c := compilePredicate(column, value)
	return r.find(ctx, "find_by", r.NewSelect().Where(c.query, c.args...))
}

func (r *baseRepositoryImpl[E]) FindOneBy(ctx context.Context, column string, value interface{}) (E, bool, error) {
	entities, err := r.FindBy(ctx, column, value)
	if err != nil {
		var zero E
		return zero, false, err
	}
	entity, ok := entities.First()
	return entity, ok, nil
}

func (r *baseRepositoryImpl[E]) HasAnyRecords(ctx context.Context) (bool, error) {
	var rows []map[string]interface{}
	if err := r.NewSelect().Limit(1).Scan(ctx, &rows); err != nil {
		return false, r.fail("has_any_records", err)
	}
	return len(rows) > 0, nil
}

// FindFiltered returns one page of matches plus the total match count. The
// count comes from a second query sharing the WHERE clause but without
// ordering or pagination, so it stays exact whatever the page size.
func (r *baseRepositoryImpl[E]) FindFiltered(ctx context.Context, filter *types.SearchFilter) (*types.SearchResult[E], error) {
	if filter == nil {
		filter = types.NewUnpagedSearchFilter()
	}

	q := r.NewSelect()
	if orderBy, args := compileOrderBy(filter.GetOrder()); orderBy != "" {
		q = q.OrderExpr(orderBy, args...)
	}
	q = applyConditions(q, compileRequirements(filter.GetRequirements()))
	if pageSize := filter.GetPageSize(); pageSize > 0 {
		q = q.Limit(pageSize).Offset(filter.GetOffset())
	}

	entities, err := r.find(ctx, "find_filtered", q)
	if err != nil {
		return nil, err
	}
	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &types.SearchResult[E]{
		Filter:       filter,
		Entities:     entities,
		TotalRecords: total,
		PageNumber:   filter.GetPageNumber(),
		PageSize:     filter.GetPageSize(),
	}, nil
}

// Count returns the number of rows matching the filter requirements,
// ignoring ordering and pagination.
func (r *baseRepositoryImpl[E]) Count(ctx context.Context, filter *types.SearchFilter) (int, error) {
	q := r.db.NewSelect().ColumnExpr("count(*)").TableExpr("?", bun.Ident(r.table))
	if filter != nil {
		q = applyConditions(q, compileRequirements(filter.GetRequirements()))
	}
	var total int
	if err := q.Scan(ctx, &total); err != nil {
		return 0, r.fail("count", err)
	}
	return total, nil
}

// DeleteAll runs BeforeDelete for every entity, then removes all rows with a
// single statement. The hooks are not rolled back if that statement fails.
func (r *baseRepositoryImpl[E]) DeleteAll(ctx context.Context) error {
	entities, err := r.FindAll(ctx)
	if err != nil {
		return err
	}
	if err := r.beforeDelete(ctx, entities); err != nil {
		return err
	}
	// bun refuses DELETE without a WHERE clause.
	_, err = r.db.NewDelete().
		TableExpr("?", bun.Ident(r.table)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return r.fail("delete_all", err)
	}
	r.logger.Debug("Entities deleted", "table", r.table, "count", entities.Len())
	return nil
}

func (r *baseRepositoryImpl[E]) DeleteByID(ctx context.Context, id int64) error {
	return r.DeleteBy(ctx, r.idColumn, id)
}

// DeleteBy runs BeforeDelete for every matching entity, then removes them
// with one statement. No match is a silent no-op.
func (r *baseRepositoryImpl[E]) DeleteBy(ctx context.Context, column string, value interface{}) error {
	entities, err := r.FindBy(ctx, column, value)
	if err != nil {
		return err
	}
	if err := r.beforeDelete(ctx, entities); err != nil {
		return err
	}
	c := compilePredicate(column, value)
	_, err = r.db.NewDelete().
		TableExpr("?", bun.Ident(r.table)).
		Where(c.query, c.args...).
		Exec(ctx)
	if err != nil {
		return r.fail("delete_by", err)
	}
	r.logger.Debug("Entities deleted", "table", r.table, "column", column, "count", entities.Len())
	return nil
}

func (r *baseRepositoryImpl[E]) find(ctx context.Context, op string, q *bun.SelectQuery) (*types.IDMap[E], error) {
	var rows []map[string]interface{}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, r.fail(op, err)
	}
	entities := types.NewIDMap[E](len(rows))
	for _, row := range rows {
		entity, err := r.toEntity(ctx, types.Row(row))
		if err != nil {
			return nil, err
		}
		entities.Put(entity.GetID(), entity)
	}
	return entities, nil
}

func (r *baseRepositoryImpl[E]) toEntity(ctx context.Context, row types.Row) (E, error) {
	entity, err := r.converter.ToEntity(row)
	if err != nil {
		return entity, fmt.Errorf("convert %s row: %w", r.table, err)
	}
	if err := r.hooks.AfterLoad(ctx, entity); err != nil {
		return entity, err
	}
	return entity, nil
}

// values converts entity to the column map written by INSERT/UPDATE. The id
// column is left to the database.
func (r *baseRepositoryImpl[E]) values(entity E) (map[string]interface{}, error) {
	row, err := r.converter.ToRow(entity)
	if err != nil {
		return nil, fmt.Errorf("convert %s entity: %w", r.table, err)
	}
	values := make(map[string]interface{}, len(row))
	for column, value := range row {
		if column != r.idColumn {
			values[column] = value
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("convert %s entity: no columns to write", r.table)
	}
	return values, nil
}

func (r *baseRepositoryImpl[E]) beforeDelete(ctx context.Context, entities *types.IDMap[E]) error {
	for _, entity := range entities.Values() {
		if err := r.hooks.BeforeDelete(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (r *baseRepositoryImpl[E]) fail(op string, err error) error {
	err = database.WrapError(op, r.table, err)
	r.logger.Error("Repository operation failed", "table", r.table, "op", op, "error", err)
	return err
}

func applyConditions(q *bun.SelectQuery, conds []condition) *bun.SelectQuery {
	for _, c := range conds {
		q = q.Where(c.query, c.args...)
	}
	return q
}
