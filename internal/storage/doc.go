/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists page documents and the mutation journal.
// Pages are stored as their canonical JSON next to an append-only log of the
// editor's committed mutations and a bounded ring of document snapshots.
// The default backend is an embedded SQLite file; PostgreSQL is supported
// through the pgx stdlib driver.
package storage
