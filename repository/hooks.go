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
)

// NopHooks does nothing; it is the default for every repository.
type NopHooks[E Entity] struct{}

func (NopHooks[E]) AfterLoad(context.Context, E) error    { return nil }
func (NopHooks[E]) AfterSave(context.Context, E) error    { return nil }
func (NopHooks[E]) BeforeDelete(context.Context, E) error { return nil }

// HookFuncs adapts plain functions to Hooks. Nil fields are no-ops.
type HookFuncs[E Entity] struct {
	OnAfterLoad    func(ctx context.Context, entity E) error
	OnAfterSave    func(ctx context.Context, entity E) error
	OnBeforeDelete func(ctx context.Context, entity E) error
}

func (h HookFuncs[E]) AfterLoad(ctx context.Context, entity E) error {
	if h.OnAfterLoad == nil {
		return nil
	}
	return h.OnAfterLoad(ctx, entity)
}

func (h HookFuncs[E]) AfterSave(ctx context.Context, entity E) error {
	if h.OnAfterSave == nil {
		return nil
	}
	return h.OnAfterSave(ctx, entity)
}

func (h HookFuncs[E]) BeforeDelete(ctx context.Context, entity E) error {
	if h.OnBeforeDelete == nil {
		return nil
	}
	return h.OnBeforeDelete(ctx, entity)
}

// ConverterFuncs adapts a pair of functions to Converter.
type ConverterFuncs[E Entity] struct {
	ToRowFunc    func(entity E) (types.Row, error)
	ToEntityFunc func(row types.Row) (E, error)
}

// NewConverter builds a Converter from its two directions.
func NewConverter[E Entity](toRow func(E) (types.Row, error), toEntity func(types.Row) (E, error)) Converter[E] {
	return ConverterFuncs[E]{ToRowFunc: toRow, ToEntityFunc: toEntity}
}

func (c ConverterFuncs[E]) ToRow(entity E) (types.Row, error) {
	return c.ToRowFunc(entity)
}

func (c ConverterFuncs[E]) ToEntity(row types.Row) (E, error) {
	return c.ToEntityFunc(row)
}
