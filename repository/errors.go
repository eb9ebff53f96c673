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
	"errors"
	"fmt"
)

// ErrNotFound matches every *NotFoundError via errors.Is.
var ErrNotFound = errors.New("entity not found")

// NotFoundError is returned by lookups that require a match.
type NotFoundError struct {
	Table  string
	Column string
	Value  interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no row with %s = %v", e.Table, e.Column, e.Value)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
