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

	"github.com/tomoncle/dao/types"
	"github.com/uptrace/bun"
)

// Entity is a domain object identified by an auto-incremented integer id.
// A zero id means the entity has not been persisted yet.
type Entity interface {
	GetID() int64
	SetID(id int64)
}

// Converter maps between a table row and an entity.
type Converter[E Entity] interface {
	ToRow(entity E) (types.Row, error)
	ToEntity(row types.Row) (E, error)
}

// Hooks are extension points run around loads, saves and deletes. Returning
// an error aborts the surrounding operation.
type Hooks[E Entity] interface {
	// AfterLoad runs once per entity materialised from a row, before the
	// entity reaches the caller.
	AfterLoad(ctx context.Context, entity E) error
	// AfterSave runs once per Save, after the create or update.
	AfterSave(ctx context.Context, entity E) error
	// BeforeDelete runs once per entity before the DELETE statement that
	// removes it is executed.
	BeforeDelete(ctx context.Context, entity E) error
}

// CrudRepository defines basic CRUD operations for an entity table.
type CrudRepository[E Entity] interface {
	Save(ctx context.Context, entity E) (E, error)

	Create(ctx context.Context, entity E) (E, error)

	Update(ctx context.Context, entity E) (E, error)

	FindAll(ctx context.Context) (*types.IDMap[E], error)

	FindByID(ctx context.Context, id int64) (E, bool, error)

	MustFindByID(ctx context.Context, id int64) (E, error)

	FindByIDs(ctx context.Context, ids []int64) (*types.IDMap[E], error)

	FindBy(ctx context.Context, column string, value interface{}) (*types.IDMap[E], error)

	FindOneBy(ctx context.Context, column string, value interface{}) (E, bool, error)

	HasAnyRecords(ctx context.Context) (bool, error)

	DeleteAll(ctx context.Context) error

	DeleteByID(ctx context.Context, id int64) error

	DeleteBy(ctx context.Context, column string, value interface{}) error
}

// SearchRepository defines filtered, paginated search.
type SearchRepository[E Entity] interface {
	FindFiltered(ctx context.Context, filter *types.SearchFilter) (*types.SearchResult[E], error)

	Count(ctx context.Context, filter *types.SearchFilter) (int, error)
}

// Repository is the generic table repository. Concrete repositories embed
// it and add entity specific queries on top of DB and the exposed builders.
type Repository[E Entity] interface {
	CrudRepository[E]
	SearchRepository[E]
	TableName() string
	IDColumn() string
	Converter() Converter[E]
	DB() bun.IDB
	SetDB(db bun.IDB)
	NewSelect() *bun.SelectQuery
}
