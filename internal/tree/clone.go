/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tree

import (
	"encoding/json"
	"fmt"

	"pagecanvas/internal/domain"
)

// cloneElement deep-copies an element so the opaque bags of a duplicate are
// not shared with the source.
func cloneElement(e domain.Element) (domain.Element, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return domain.Element{}, fmt.Errorf("clone %q: %w", e.ID, err)
	}
	var out domain.Element
	if err := json.Unmarshal(b, &out); err != nil {
		return domain.Element{}, fmt.Errorf("clone %q: %w", e.ID, err)
	}
	if out.Children == nil {
		out.Children = []domain.Child{}
	}
	return out, nil
}
