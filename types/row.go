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

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Row is the flat column-name-to-value form of one database record.
//
// Drivers disagree on scalar types (MySQL hands back []byte for most
// columns, SQLite and Postgres return int64/string), so the accessors below
// normalise the common cases for converters.
type Row map[string]interface{}

// Has reports whether the column is present, even if NULL.
func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// IsNull reports whether the column is absent or NULL.
func (r Row) IsNull(column string) bool {
	return r[column] == nil
}

// Clone returns a shallow copy.
func (r Row) Clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Int64 reads an integer column. NULL reads as 0.
func (r Row) Int64(column string) (int64, error) {
	switch v := r[column].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("column %s: cannot convert %T to int64", column, v)
	}
}

// Float64 reads a numeric column. NULL reads as 0.
func (r Row) Float64(column string) (float64, error) {
	switch v := r[column].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("column %s: cannot convert %T to float64", column, v)
	}
}

// String reads a text column. NULL reads as "".
func (r Row) String(column string) (string, error) {
	switch v := r[column].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int64, int, float64, bool:
		return fmt.Sprint(v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	default:
		return "", fmt.Errorf("column %s: cannot convert %T to string", column, v)
	}
}

// Bool reads a boolean column; integer 0/1 and textual forms are accepted.
func (r Row) Bool(column string) (bool, error) {
	switch v := r[column].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("column %s: cannot convert %T to bool", column, v)
	}
}

var rowTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time reads a timestamp column. NULL reads as the zero time.
func (r Row) Time(column string) (time.Time, error) {
	var s string
	switch v := r[column].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return time.Time{}, fmt.Errorf("column %s: cannot convert %T to time", column, v)
	}
	for _, layout := range rowTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("column %s: unrecognised time %q", column, s)
}

// JSON decodes a JSON text column into dest. NULL leaves dest untouched.
func (r Row) JSON(column string, dest interface{}) error {
	var data []byte
	switch v := r[column].(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("column %s: cannot decode JSON from %T", column, v)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("column %s: %w", column, err)
	}
	return nil
}
