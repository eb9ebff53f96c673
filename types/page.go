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

package types

// OrderBy is one entry of an ordering spec.
type OrderBy struct {
	Column    string
	Direction OrderDirection
}

// Range is a requirement value bounded on one or both sides. A nil bound is
// open.
type Range struct {
	Min interface{}
	Max interface{}
}

// Requirement is a single search predicate. Type is a column token or a SQL
// fragment; Value is a scalar, a slice, a Range or nil.
type Requirement struct {
	Type    string
	Value   interface{}
	Negated bool
}

// NewRequirement creates a non-negated requirement.
func NewRequirement(typ string, value interface{}) Requirement {
	return Requirement{Type: typ, Value: value}
}

// NewNegatedRequirement creates a requirement that must not hold.
func NewNegatedRequirement(typ string, value interface{}) Requirement {
	return Requirement{Type: typ, Value: value, Negated: true}
}

// SearchFilter describes one search request: ordering, requirements and
// pagination. A page size of 0 disables pagination.
type SearchFilter struct {
	order        []OrderBy
	requirements []Requirement
	pageNumber   int
	pageSize     int
}

// NewSearchFilter constructs a filter for the given 1-based page.
func NewSearchFilter(pageNumber int, pageSize int) *SearchFilter {
	return &SearchFilter{pageNumber: pageNumber, pageSize: pageSize}
}

// NewUnpagedSearchFilter constructs a filter that returns every match.
func NewUnpagedSearchFilter() *SearchFilter {
	return NewSearchFilter(1, 0)
}

// OrderBy appends a column to the ordering spec. Setting a column that is
// already present changes its direction and keeps its position.
func (f *SearchFilter) OrderBy(column string, direction OrderDirection) *SearchFilter {
	for i := range f.order {
		if f.order[i].Column == column {
			f.order[i].Direction = direction
			return f
		}
	}
	f.order = append(f.order, OrderBy{Column: column, Direction: direction})
	return f
}

// Require appends requirements; they are AND-ed in the order given.
func (f *SearchFilter) Require(requirements ...Requirement) *SearchFilter {
	f.requirements = append(f.requirements, requirements...)
	return f
}

// SetPage changes pagination.
func (f *SearchFilter) SetPage(pageNumber int, pageSize int) *SearchFilter {
	f.pageNumber = pageNumber
	f.pageSize = pageSize
	return f
}

func (f *SearchFilter) GetOrder() []OrderBy {
	order := make([]OrderBy, len(f.order))
	copy(order, f.order)
	return order
}

func (f *SearchFilter) GetRequirements() []Requirement {
	requirements := make([]Requirement, len(f.requirements))
	copy(requirements, f.requirements)
	return requirements
}

func (f *SearchFilter) GetPageSize() int {
	if f.pageSize < 0 {
		return 0
	}
	return f.pageSize
}

func (f *SearchFilter) GetPageNumber() int {
	if f.pageNumber < 1 {
		return 1
	}
	return f.pageNumber
}

func (f *SearchFilter) GetOffset() int {
	return f.GetPageSize() * (f.GetPageNumber() - 1)
}

// IDMap maps entity ids to entities and remembers insertion order.
// The zero value is ready to use.
type IDMap[T any] struct {
	ids   []int64
	items map[int64]T
}

// NewIDMap returns an empty map sized for n entries.
func NewIDMap[T any](n int) *IDMap[T] {
	return &IDMap[T]{ids: make([]int64, 0, n), items: make(map[int64]T, n)}
}

// Put stores v under id. Replacing an existing id keeps its position.
func (m *IDMap[T]) Put(id int64, v T) {
	if m.items == nil {
		m.items = make(map[int64]T)
	}
	if _, ok := m.items[id]; !ok {
		m.ids = append(m.ids, id)
	}
	m.items[id] = v
}

func (m *IDMap[T]) Get(id int64) (T, bool) {
	v, ok := m.items[id]
	return v, ok
}

func (m *IDMap[T]) Has(id int64) bool {
	_, ok := m.items[id]
	return ok
}

func (m *IDMap[T]) Len() int {
	return len(m.ids)
}

// IDs returns the ids in insertion order.
func (m *IDMap[T]) IDs() []int64 {
	ids := make([]int64, len(m.ids))
	copy(ids, m.ids)
	return ids
}

// Values returns the entities in insertion order.
func (m *IDMap[T]) Values() []T {
	values := make([]T, 0, len(m.ids))
	for _, id := range m.ids {
		values = append(values, m.items[id])
	}
	return values
}

// First returns the earliest inserted entity.
func (m *IDMap[T]) First() (T, bool) {
	if len(m.ids) == 0 {
		var zero T
		return zero, false
	}
	return m.items[m.ids[0]], true
}

// SearchResult holds one page of entities along with the total number of
// matches ignoring pagination.
type SearchResult[T any] struct {
	Filter       *SearchFilter
	Entities     *IDMap[T]
	TotalRecords int
	PageNumber   int
	PageSize     int
}

// TotalPages returns the number of pages needed for TotalRecords. An
// unpaged result has a single page unless it is empty.
func (r *SearchResult[T]) TotalPages() int {
	if r.TotalRecords <= 0 {
		return 0
	}
	if r.PageSize <= 0 {
		return 1
	}
	return (r.TotalRecords + r.PageSize - 1) / r.PageSize
}
