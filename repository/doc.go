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

// Package repository provides a generic table repository built on Bun. A
// concrete repository supplies a table name and a Converter between rows and
// entities, and gets CRUD operations plus filtered, paginated search.
//
//	repo := repository.NewRepository[*Post](db, "posts", postConverter)
//	filter := types.NewSearchFilter(2, 10).
//		OrderBy("created_at", types.Desc).
//		Require(types.NewRequirement("status", []string{"draft", "published"}))
//	result, err := repo.FindFiltered(ctx, filter)
//
// Requirement tokens and FindBy columns are written into SQL unquoted and
// must never come from user input.
package repository
