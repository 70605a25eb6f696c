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

// Package recipe loads recipe documents and builds the workflow nets that
// run them against the services of a process.
package recipe

import (
	"fmt"
	"time"

	"github.com/AliceO2Group/ProcessControl/common/gera"
	"github.com/AliceO2Group/ProcessControl/common/logger"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var log = logger.New(logrus.StandardLogger(), "recipe")

// Recipe is the decoded form of a recipe document.
type Recipe struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Vars        *gera.StringMap  `yaml:"vars,omitempty" json:"vars,omitempty"`
	Initial     string           `yaml:"initial" json:"initial"`
	States      []StateSpec      `yaml:"states" json:"states"`
	Transitions []TransitionSpec `yaml:"transitions" json:"transitions"`
}

type StateSpec struct {
	Id         string          `yaml:"id" json:"id"`
	Operations []OperationSpec `yaml:"operations,omitempty" json:"operations,omitempty"`
	Next       []string        `yaml:"next,omitempty" json:"next,omitempty"`
}

type TransitionSpec struct {
	Id        string        `yaml:"id" json:"id"`
	Condition ConditionSpec `yaml:"condition" json:"condition"`
	Next      []string      `yaml:"next,omitempty" json:"next,omitempty"`
}

// OperationSpec is a tagged variant: Kind selects the constructor and the
// fields it reads.
type OperationSpec struct {
	Kind      string        `yaml:"kind" json:"kind"`
	Service   string        `yaml:"service,omitempty" json:"service,omitempty"`
	Command   string        `yaml:"command,omitempty" json:"command,omitempty"`
	Procedure int           `yaml:"procedure,omitempty" json:"procedure,omitempty"`
	State     string        `yaml:"state,omitempty" json:"state,omitempty"`
	Duration  time.Duration `yaml:"duration,omitempty" json:"duration,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Optional  bool          `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// ConditionSpec is a tagged variant: Kind selects the constructor and the
// fields it reads.
type ConditionSpec struct {
	Kind       string `yaml:"kind" json:"kind"`
	Service    string `yaml:"service,omitempty" json:"service,omitempty"`
	State      string `yaml:"state,omitempty" json:"state,omitempty"`
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty"`
}

// Parse renders a recipe document with its variables, laid under
// overrides, checks it against the recipe schema and decodes it.
func Parse(raw []byte, overrides map[string]string) (*Recipe, error) {
	rendered, err := Render(raw, overrides)
	if err != nil {
		return nil, err
	}
	if err = CheckSchema(rendered); err != nil {
		return nil, err
	}

	r := &Recipe{}
	if err = yaml.Unmarshal(rendered, r); err != nil {
		return nil, fmt.Errorf("cannot decode recipe: %w", err)
	}
	log.WithField("recipe", r.Name).
		WithField("level", logger.IL_Devel).
		Debug("recipe parsed")
	return r, nil
}
