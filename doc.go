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

// Package dao provides generic table repositories over Bun.
//
// The database package owns connections, configuration, query hooks and
// error classification. The repository package implements CRUD and
// filtered, paginated search for any entity given a table name and a row
// converter. Service wraps a repository bound to the global connection
// opened by database.InitDB.
package dao
