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
	"reflect"
	"strings"

	"github.com/tomoncle/dao/types"
	"github.com/uptrace/bun"
)

// condition is one AND-ed WHERE fragment with its bound arguments.
type condition struct {
	query string
	args  []interface{}
}

// compileOrderBy renders "? ASC|DESC" pairs joined by ", " with one
// argument per column. Columns are bound as bun.Safe so they are emitted
// verbatim and a "?" inside a column expression is not read as a
// placeholder. An empty ordering yields "".
func compileOrderBy(order []types.OrderBy) (string, []interface{}) {
	parts := make([]string, 0, len(order))
	args := make([]interface{}, 0, len(order))
	for _, o := range order {
		parts = append(parts, "? "+o.Direction.String())
		args = append(args, bun.Safe(o.Column))
	}
	return strings.Join(parts, ", "), args
}

// compileRequirements turns requirements into WHERE fragments in filter
// order. Negated requirements are prefixed with NOT.
func compileRequirements(requirements []types.Requirement) []condition {
	conds := make([]condition, 0, len(requirements))
	for _, req := range requirements {
		c := compilePredicate(req.Type, req.Value)
		if req.Negated {
			if isVerbatim(req.Type) {
				c.query = "NOT (" + c.query + ")"
			} else {
				c.query = "NOT " + c.query
			}
		}
		conds = append(conds, c)
	}
	return conds
}

// isVerbatim reports whether token is a complete SQL fragment with its own
// placeholders rather than a column token.
func isVerbatim(token string) bool {
	return strings.Contains(token, "?")
}

// compilePredicate builds the predicate for a column token and a value.
// Tokens are emitted unquoted so they may be qualified names or expressions;
// they must never come from user input.
//
//	nil          token IS NULL
//	slice        token IN (...)      (empty slice matches nothing)
//	types.Range  token BETWEEN ? AND ? / token >= ? / token <= ?
//	other        token = ?
//
// A token that already contains "?" is used as is, with value bound to its
// placeholder. A []interface{} value whose length equals the placeholder
// count is spread across them. Slices bound to a placeholder expand to a
// comma separated list, so "id IN (?)" takes a set.
func compilePredicate(token string, value interface{}) condition {
	if isVerbatim(token) {
		if args, ok := value.([]interface{}); ok && len(args) == strings.Count(token, "?") {
			spread := make([]interface{}, len(args))
			for i, arg := range args {
				spread[i] = expandSlice(arg)
			}
			return condition{query: token, args: spread}
		}
		return condition{query: token, args: []interface{}{expandSlice(value)}}
	}

	switch v := value.(type) {
	case nil:
		return condition{query: token + " IS NULL"}
	case types.Range:
		return compileRange(token, v)
	case *types.Range:
		if v == nil {
			return condition{query: token + " IS NULL"}
		}
		return compileRange(token, *v)
	case []byte:
		return condition{query: token + " = ?", args: []interface{}{v}}
	}

	if isSlice(value) {
		if reflect.ValueOf(value).Len() == 0 {
			return condition{query: "1 = 0"}
		}
		return condition{query: token + " IN (?)", args: []interface{}{bun.In(value)}}
	}
	return condition{query: token + " = ?", args: []interface{}{value}}
}

func isSlice(value interface{}) bool {
	if _, ok := value.([]byte); ok {
		return false
	}
	kind := reflect.ValueOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func expandSlice(value interface{}) interface{} {
	if isSlice(value) {
		return bun.In(value)
	}
	return value
}

func compileRange(token string, r types.Range) condition {
	switch {
	case r.Min != nil && r.Max != nil:
		return condition{query: token + " BETWEEN ? AND ?", args: []interface{}{r.Min, r.Max}}
	case r.Min != nil:
		return condition{query: token + " >= ?", args: []interface{}{r.Min}}
	case r.Max != nil:
		return condition{query: token + " <= ?", args: []interface{}{r.Max}}
	default:
		return condition{query: token + " IS NOT NULL"}
	}
}
