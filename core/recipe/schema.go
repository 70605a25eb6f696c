/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2024 CERN and copyright holders of ALICE O².
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 * In applying this license CERN does not waive the privileges and
 * immunities granted to it by virtue of its status as an
 * Intergovernmental Organization or submit itself to any jurisdiction.
 */

package recipe

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

var ErrSchema = errors.New("recipe does not match schema")

const schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "PECS recipe",
  "type": "object",
  "required": ["name", "initial", "transitions"],
  "additionalProperties": false,
  "properties": {
    "name": {"$ref": "#/definitions/id"},
    "description": {"type": "string"},
    "vars": {
      "type": "object",
      "additionalProperties": {"type": ["string", "number", "boolean", "object"]}
    },
    "initial": {"$ref": "#/definitions/id"},
    "states": {"type": "array", "items": {"$ref": "#/definitions/state"}},
    "transitions": {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/transition"}}
  },
  "definitions": {
    "id": {"type": "string", "minLength": 1},
    "ids": {"type": "array", "items": {"$ref": "#/definitions/id"}},
    "duration": {"type": "string", "pattern": "^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"},
    "state": {
      "type": "object",
      "required": ["id"],
      "additionalProperties": false,
      "properties": {
        "id": {"$ref": "#/definitions/id"},
        "operations": {"type": "array", "items": {"$ref": "#/definitions/operation"}},
        "next": {"$ref": "#/definitions/ids"}
      }
    },
    "operation": {
      "type": "object",
      "required": ["kind"],
      "additionalProperties": false,
      "properties": {
        "kind": {"$ref": "#/definitions/id"},
        "service": {"type": "string"},
        "command": {"type": "string"},
        "procedure": {"type": "integer", "minimum": 0},
        "state": {"type": "string"},
        "duration": {"$ref": "#/definitions/duration"},
        "timeout": {"$ref": "#/definitions/duration"},
        "optional": {"type": "boolean"}
      }
    },
    "transition": {
      "type": "object",
      "required": ["id", "condition"],
      "additionalProperties": false,
      "properties": {
        "id": {"$ref": "#/definitions/id"},
        "condition": {"$ref": "#/definitions/condition"},
        "next": {"$ref": "#/definitions/ids"}
      }
    },
    "condition": {
      "type": "object",
      "required": ["kind"],
      "additionalProperties": false,
      "properties": {
        "kind": {"$ref": "#/definitions/id"},
        "service": {"type": "string"},
        "state": {"type": "string"},
        "expression": {"type": "string"}
      }
    }
  }
}`

// CheckSchema validates a rendered recipe document. Every violation is
// reported.
func CheckSchema(rawYAML []byte) error {
	var document interface{}
	if err := yaml.Unmarshal(rawYAML, &document); err != nil {
		return fmt.Errorf("cannot decode recipe: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(document)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("cannot validate recipe: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var merr *multierror.Error
	for _, desc := range result.Errors() {
		merr = multierror.Append(merr, fmt.Errorf("%w: %s", ErrSchema, desc.String()))
	}
	return merr.ErrorOrNil()
}
