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

package dao

import (
	"context"
	"sync"

	"github.com/tomoncle/dao/database"
	"github.com/tomoncle/dao/repository"
	"github.com/tomoncle/dao/types"
	"github.com/uptrace/bun"
)

type Service[E repository.Entity] interface {
	// Save creates or updates an entity depending on its id.
	Save(ctx context.Context, entity E) (E, error)

	// Get returns a single entity by id; found is false when absent.
	Get(ctx context.Context, id int64) (entity E, found bool, err error)

	// MustGet returns a single entity by id or a *repository.NotFoundError.
	MustGet(ctx context.Context, id int64) (E, error)

	// All returns all entities keyed by id.
	All(ctx context.Context) (*types.IDMap[E], error)

	// FindBy returns entities whose column matches value.
	FindBy(ctx context.Context, column string, value interface{}) (*types.IDMap[E], error)

	// Search returns one page of entities matching filter.
	Search(ctx context.Context, filter *types.SearchFilter) (*types.SearchResult[E], error)

	// Count returns the number of entities matching filter.
	Count(ctx context.Context, filter *types.SearchFilter) (int, error)

	// Delete removes an entity by id.
	Delete(ctx context.Context, id int64) error

	// DeleteAll removes every entity.
	DeleteAll(ctx context.Context) error

	// Repository exposes the repository bound to the current global
	// database.
	Repository() (repository.Repository[E], error)
}

type baseServiceImpl[E repository.Entity] struct {
	table     string
	converter repository.Converter[E]
	opts      []repository.Option[E]

	mu   sync.Mutex
	db   *bun.DB
	repo repository.Repository[E]
}

// NewService returns a default Service implementation using the generic
// repository backed by the global database connection. The repository is
// bound on use and rebound whenever database.GetDB changes, so InitDB may
// run after NewService and reconnects are followed.
func NewService[E repository.Entity](table string, converter repository.Converter[E], opts ...repository.Option[E]) Service[E] {
	return &baseServiceImpl[E]{table: table, converter: converter, opts: opts}
}

func (s *baseServiceImpl[E]) baseRepo() (repository.Repository[E], error) {
	db := database.GetDB()
	if db == nil {
		return nil, database.ErrNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == nil || s.db != db {
		s.repo = repository.NewRepository[E](db, s.table, s.converter, s.opts...)
		s.db = db
	}
	return s.repo, nil
}

func (s *baseServiceImpl[E]) Save(ctx context.Context, entity E) (E, error) {
	repo, err := s.baseRepo()
	if err != nil {
		var zero E
		return zero, err
	}
	return repo.Save(ctx, entity)
}

func (s *baseServiceImpl[E]) Get(ctx context.Context, id int64) (E, bool, error) {
	repo, err := s.baseRepo()
	if err != nil {
		var zero E
		return zero, false, err
	}
	return repo.FindByID(ctx, id)
}

func (s *baseServiceImpl[E]) MustGet(ctx context.Context, id int64) (E, error) {
	repo, err := s.baseRepo()
	if err != nil {
		var zero E
		return zero, err
	}
	return repo.MustFindByID(ctx, id)
}

func (s *baseServiceImpl[E]) All(ctx context.Context) (*types.IDMap[E], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindAll(ctx)
}

func (s *baseServiceImpl[E]) FindBy(ctx context.Context, column string, value interface{}) (*types.IDMap[E], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindBy(ctx, column, value)
}

func (s *baseServiceImpl[E]) Search(ctx context.Context, filter *types.SearchFilter) (*types.SearchResult[E], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindFiltered(ctx, filter)
}

func (s *baseServiceImpl[E]) Count(ctx context.Context, filter *types.SearchFilter) (int, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx, filter)
}

func (s *baseServiceImpl[E]) Delete(ctx context.Context, id int64) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.DeleteByID(ctx, id)
}

func (s *baseServiceImpl[E]) DeleteAll(ctx context.Context) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.DeleteAll(ctx)
}

func (s *baseServiceImpl[E]) Repository() (repository.Repository[E], error) {
	return s.baseRepo()
}
