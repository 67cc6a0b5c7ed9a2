/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "errors"

// Engine error taxonomy. None of these is fatal: callers abort the mutation,
// notify the user and return the interaction to idle.
var (
	// ErrGeometryUnavailable means the canvas container is not mounted, so
	// pointer coordinates cannot be mapped.
	ErrGeometryUnavailable = errors.New("canvas container not mounted")
	// ErrInvalidDropTarget is returned for a widget kind the target cannot
	// accept, or a drop onto a non-container.
	ErrInvalidDropTarget = errors.New("invalid drop target")
	// ErrLockedElement is returned for a drag, resize or delete of a locked item.
	ErrLockedElement = errors.New("element is locked")
	// ErrOrphanReference is returned when an id no longer resolves.
	ErrOrphanReference = errors.New("reference to missing element")
)
