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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/AliceO2Group/ProcessControl/common/gera"
	"github.com/antonmedv/expr"
	"github.com/valyala/fasttemplate"
	"gopkg.in/yaml.v3"
)

// Render substitutes the {{ ... }} fields of a recipe document. Each field
// is an expression over the recipe's vars, with overrides taking
// precedence over the declared values. The vars block itself is not
// rendered.
//
// A scalar made of a single field takes the type of its rendered value, so
// that `procedure: "{{ proc }}"` decodes as an integer.
func Render(raw []byte, overrides map[string]string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("cannot decode recipe: %w", err)
	}
	if len(doc.Content) == 0 {
		return raw, nil
	}

	var declared struct {
		Vars *gera.StringMap `yaml:"vars"`
	}
	if err := doc.Decode(&declared); err != nil {
		return nil, fmt.Errorf("cannot decode recipe vars: %w", err)
	}
	stack := gera.MakeStringMap(overrides).Wrap(declared.Vars)
	vars, err := stack.Flattened()
	if err != nil {
		return nil, err
	}
	environment := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		environment[k] = v
	}

	if err = renderNode(doc.Content[0], environment, true); err != nil {
		return nil, err
	}
	return yaml.Marshal(&doc)
}

func renderNode(node *yaml.Node, environment map[string]interface{}, top bool) error {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if top && key.Value == "vars" {
				continue
			}
			if err := renderNode(value, environment, false); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if err := renderNode(item, environment, false); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		if !strings.Contains(node.Value, "{{") {
			return nil
		}
		rendered, err := renderField(node.Value, environment)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		if isSingleField(node.Value) {
			node.Tag = ""
			node.Style = 0
		}
		node.Value = rendered
	}
	return nil
}

func renderField(field string, environment map[string]interface{}) (string, error) {
	tmpl, err := fasttemplate.NewTemplate(field, "{{", "}}")
	if err != nil {
		return "", fmt.Errorf("bad template %q: %w", field, err)
	}
	buf := new(bytes.Buffer)
	_, err = tmpl.ExecuteFunc(buf, func(w io.Writer, tag string) (int, error) {
		program, err := expr.Compile(strings.TrimSpace(tag), expr.Env(environment))
		if err != nil {
			return 0, err
		}
		rawOutput, err := expr.Run(program, environment)
		if err != nil {
			return 0, err
		}
		switch rawOutput.(type) {
		case []interface{}, []string, map[string]interface{}:
			jsonOutput, err := json.Marshal(rawOutput)
			if err != nil {
				return 0, err
			}
			return w.Write(jsonOutput)
		default:
			return w.Write([]byte(fmt.Sprintf("%v", rawOutput)))
		}
	})
	if err != nil {
		return "", fmt.Errorf("cannot render %q: %w", field, err)
	}
	return buf.String(), nil
}

func isSingleField(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{{") &&
		strings.HasSuffix(s, "}}") &&
		strings.Count(s, "{{") == 1
}
