/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package widget

import (
	"encoding/json"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"pagecanvas/internal/domain"
)

// templateSchema constrains palette blobs. Only type is required; the opaque
// bags stay free-form except for the structure discriminator.
const templateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"type": "string", "minLength": 1},
    "componentData": {
      "type": "object",
      "properties": {"structure": {"type": "string"}}
    },
    "styles": {"type": "object"},
    "size": {
      "type": "object",
      "properties": {
        "width": {"type": "number", "minimum": 0},
        "height": {"type": "number", "minimum": 0}
      }
    }
  }
}`

var templateSchemaLoader = gojsonschema.NewStringLoader(templateSchema)

// ParseTemplate validates a palette template blob and decodes it.
func ParseTemplate(raw []byte) (domain.Template, error) {
	res, err := gojsonschema.Validate(templateSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return domain.Template{}, fmt.Errorf("validate template: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.Template{}, fmt.Errorf("invalid template: %s", strings.Join(msgs, "; "))
	}
	var t domain.Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.Template{}, fmt.Errorf("decode template: %w", err)
	}
	return t, nil
}

// SizeFor resolves the footprint of a new item per axis: the template size
// when given, then width/height style hints, then the registry default.
func (r *Registry) SizeFor(t domain.Template) domain.Size {
	s := r.DefaultSize(t.Type)
	if w, ok := domain.StyleNumber(t.Styles, "width"); ok {
		s.Width = w
	}
	if h, ok := domain.StyleNumber(t.Styles, "height"); ok {
		s.Height = h
	}
	if t.Size != nil {
		if t.Size.Width > 0 {
			s.Width = t.Size.Width
		}
		if t.Size.Height > 0 {
			s.Height = t.Size.Height
		}
	}
	return s
}
