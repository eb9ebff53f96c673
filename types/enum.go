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

import "strings"

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// OrderDirection is the sort direction of a single ORDER BY column.
// The zero value is Asc.
type OrderDirection int

const (
	Asc OrderDirection = iota
	Desc
)

var _ BaseEnum = Asc

func (d OrderDirection) IsValid() bool {
	return d == Asc || d == Desc
}

func (d OrderDirection) Number() int {
	if !d.IsValid() {
		return IllegalValue
	}
	return int(d)
}

// String returns the SQL keyword. Anything not explicitly Desc sorts
// ascending, so invalid values render as ASC as well.
func (d OrderDirection) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

func (d OrderDirection) Name() string {
	switch d {
	case Asc:
		return "asc"
	case Desc:
		return "desc"
	default:
		return IllegalName
	}
}

func (d OrderDirection) Desc() string {
	switch d {
	case Asc:
		return "ascending"
	case Desc:
		return "descending"
	default:
		return IllegalDesc
	}
}

// ParseOrderDirection maps "asc"/"desc" (any case) to a direction.
// Unrecognised input yields Asc and false.
func ParseOrderDirection(s string) (OrderDirection, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Asc, true
	case "desc", "descending":
		return Desc, true
	default:
		return Asc, false
	}
}
