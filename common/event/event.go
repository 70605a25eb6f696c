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

// Package event defines the events published by services and recipe runs,
// along with the machinery to queue them and stream them to Kafka.
package event

import (
	"fmt"
	"time"

	"github.com/AliceO2Group/ProcessControl/common/event/topic"
	"github.com/google/uuid"
)

type Event interface {
	GetName() string
	GetId() string
	GetTimestamp() time.Time
	GetTopic() topic.Topic
	// GetKey is used as the Kafka message key, so that events belonging
	// to the same service or run stay ordered within one partition.
	GetKey() string
	Fields() map[string]interface{}
}

type eventBase struct {
	Id          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	MessageType string    `json:"_messageType"`
}

func newEventBase(messageType string) eventBase {
	return eventBase{
		Id:          uuid.NewString(),
		Timestamp:   time.Now(),
		MessageType: messageType,
	}
}

func (b *eventBase) GetId() string {
	if b == nil {
		return ""
	}
	return b.Id
}

func (b *eventBase) GetTimestamp() time.Time {
	if b == nil {
		return time.Time{}
	}
	return b.Timestamp
}

func (b *eventBase) baseFields() map[string]interface{} {
	return map[string]interface{}{
		"id":           b.Id,
		"timestamp":    b.Timestamp.UnixMilli(),
		"_messageType": b.MessageType,
	}
}

// ServiceStateChangedEvent is published by a service after a command (or the
// start of its state machine) changed its state.
type ServiceStateChangedEvent struct {
	eventBase
	Service       string `json:"service"`
	Command       string `json:"command"`
	PreviousState string `json:"previousState"`
	State         string `json:"state"`
	ProcedureCur  int    `json:"procedureCur"`
}

func NewServiceStateChangedEvent(service, command, previous, state string, procedureCur int) *ServiceStateChangedEvent {
	return &ServiceStateChangedEvent{
		eventBase:     newEventBase("ServiceStateChangedEvent"),
		Service:       service,
		Command:       command,
		PreviousState: previous,
		State:         state,
		ProcedureCur:  procedureCur,
	}
}

func (e *ServiceStateChangedEvent) GetName() string        { return "SERVICE_STATE_CHANGED" }
func (e *ServiceStateChangedEvent) GetTopic() topic.Topic { return topic.Service_StateChange }
func (e *ServiceStateChangedEvent) GetKey() string        { return e.Service }

func (e *ServiceStateChangedEvent) Fields() map[string]interface{} {
	f := e.baseFields()
	f["service"] = e.Service
	f["command"] = e.Command
	f["previousState"] = e.PreviousState
	f["state"] = e.State
	f["procedureCur"] = e.ProcedureCur
	return f
}

func (e *ServiceStateChangedEvent) String() string {
	return fmt.Sprintf("service %s: %s -> %s (%s)", e.Service, e.PreviousState, e.State, e.Command)
}

type runEventBase struct {
	eventBase
	RunId  string `json:"runId"`
	Recipe string `json:"recipe"`
}

func (e *runEventBase) GetKey() string { return e.RunId }

func (e *runEventBase) runFields() map[string]interface{} {
	f := e.baseFields()
	f["runId"] = e.RunId
	f["recipe"] = e.Recipe
	return f
}

// TransitionArmedEvent: a recipe transition started listening to its
// condition.
type TransitionArmedEvent struct {
	runEventBase
	Transition string `json:"transition"`
}

func NewTransitionArmedEvent(runId, recipe, transition string) *TransitionArmedEvent {
	return &TransitionArmedEvent{
		runEventBase: runEventBase{eventBase: newEventBase("TransitionArmedEvent"), RunId: runId, Recipe: recipe},
		Transition:   transition,
	}
}

func (e *TransitionArmedEvent) GetName() string        { return "TRANSITION_ARMED" }
func (e *TransitionArmedEvent) GetTopic() topic.Topic { return topic.Recipe_Transition }

func (e *TransitionArmedEvent) Fields() map[string]interface{} {
	f := e.runFields()
	f["transition"] = e.Transition
	return f
}

// StateActivatedEvent: a recipe state entered the marking and began running
// its operations.
type StateActivatedEvent struct {
	runEventBase
	State string `json:"state"`
}

func NewStateActivatedEvent(runId, recipe, state string) *StateActivatedEvent {
	return &StateActivatedEvent{
		runEventBase: runEventBase{eventBase: newEventBase("StateActivatedEvent"), RunId: runId, Recipe: recipe},
		State:        state,
	}
}

func (e *StateActivatedEvent) GetName() string        { return "STATE_ACTIVATED" }
func (e *StateActivatedEvent) GetTopic() topic.Topic { return topic.Recipe_State }

func (e *StateActivatedEvent) Fields() map[string]interface{} {
	f := e.runFields()
	f["state"] = e.State
	return f
}

// RecipeCompletedEvent: the run reached a transition without successor
// states.
type RecipeCompletedEvent struct {
	runEventBase
	Transition string `json:"transition"`
}

func NewRecipeCompletedEvent(runId, recipe, transition string) *RecipeCompletedEvent {
	return &RecipeCompletedEvent{
		runEventBase: runEventBase{eventBase: newEventBase("RecipeCompletedEvent"), RunId: runId, Recipe: recipe},
		Transition:   transition,
	}
}

func (e *RecipeCompletedEvent) GetName() string        { return "RECIPE_COMPLETED" }
func (e *RecipeCompletedEvent) GetTopic() topic.Topic { return topic.Recipe_Run }

func (e *RecipeCompletedEvent) Fields() map[string]interface{} {
	f := e.runFields()
	f["transition"] = e.Transition
	return f
}
