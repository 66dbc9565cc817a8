// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import "fmt"

// EventType names an event understood by the transition table.
type EventType string

const (
	EventAdd                     EventType = "add"
	EventCreate                  EventType = "create"
	EventFail                    EventType = "fail"
	EventInherit                 EventType = "inherit"
	EventInheritStoreInitialized EventType = "inheritStoreInitialized"
	EventInit                    EventType = "init"
	EventJoin                    EventType = "join"
	EventSucceed                 EventType = "succeed"
	EventSucceedMerging          EventType = "succeedMerging"
	EventSucceedRefreshing       EventType = "succeedRefreshing"
	EventSucceedStoreInitialized EventType = "succeedStoreInitialized"
	EventSucceedTranscribing     EventType = "succeedTranscribing"
	EventSync                    EventType = "sync"
)

// 📨 Event is an outcome reported by an actor, or a command raised
// internally. Only the payload fields relevant to Type are read.
type Event struct {
	Type EventType

	RemoteStatus     RemoteStatus
	CommonHasChanges bool
	ShadowHasChanges bool
	StoreType        StoreType

	// Err explains a fail event.
	Err error
}

func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s(%v)", e.Type, e.Err)
	}
	return string(e.Type)
}

// Succeed is the plain success event.
func Succeed() Event { return Event{Type: EventSucceed} }

// Fail wraps err in a fail event.
func Fail(err error) Event { return Event{Type: EventFail, Err: err} }

// ActionType names a context update or side effect produced by a transition.
type ActionType string

const (
	ActionRaiseCommand        ActionType = "raiseCommand"
	ActionSetStoreRemote      ActionType = "setStoreRemote"
	ActionSetCommonHasChanges ActionType = "setCommonHasChanges"
	ActionSetShadowHasChanges ActionType = "setShadowHasChanges"
	ActionSetStoreInitialized ActionType = "setStoreInitialized"
	ActionRecordHistory       ActionType = "recordHistory"
)

// Action is one effect of a transition. Apply folds the context updates;
// raiseCommand is carried out by the Machine.
type Action struct {
	Type ActionType

	RemoteStatus RemoteStatus
	HasChanges   bool
	StoreType    StoreType
	State        State
}

// Apply returns c with the action applied.
func (a Action) Apply(c Context) Context {
	switch a.Type {
	case ActionSetStoreRemote:
		c.Store.RemoteStatus = a.RemoteStatus
	case ActionSetCommonHasChanges:
		v := a.HasChanges
		c.Store.CommonHasChanges = &v
	case ActionSetShadowHasChanges:
		v := a.HasChanges
		c.Store.ShadowHasChanges = &v
	case ActionSetStoreInitialized:
		c.Store.Type = a.StoreType
		c.Store.Initialized = true
	case ActionRecordHistory:
		c.History = a.State
	}
	return c
}

// ApplyAll folds every action into c in order.
func ApplyAll(c Context, actions []Action) Context {
	for _, a := range actions {
		c = a.Apply(c)
	}
	return c
}

// Raised returns the events produced by raise actions.
func Raised(c Context, actions []Action) []Event {
	var out []Event
	for _, a := range actions {
		if a.Type == ActionRaiseCommand {
			out = append(out, Event{Type: EventType(c.Command)})
		}
	}
	return out
}
