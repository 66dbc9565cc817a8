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

// guarded is one candidate target of an event. A nil guard always passes.
type guarded struct {
	target State
	guard  func(Context) bool
}

func pick(c Context, candidates ...guarded) State {
	for _, g := range candidates {
		if g.guard == nil || g.guard(c) {
			return g.target
		}
	}
	return ""
}

// settle descends from a compound state to its initial leaf.
func settle(s State) State {
	switch s {
	case StateCLI:
		return StateReady
	case StateSyncingStore:
		return StateRefreshing
	case StateInitializingStore:
		return StateAwaitingInitType
	}
	return s
}

// enter builds the actions for moving from one state to another: the history
// of cli when detouring into initializingStore, then the entry actions of the
// target.
func enter(from, to State, actions ...Action) (State, []Action) {
	to = settle(to)
	if from.Within(StateCLI) && to.Within(StateInitializingStore) {
		actions = append(actions, Action{Type: ActionRecordHistory, State: from.childOf(StateCLI)})
	}
	if to == StateReady {
		actions = append(actions, Action{Type: ActionRaiseCommand})
	}
	return to, actions
}

// Start returns the initial state and its entry actions.
func Start() (State, []Action) {
	return enter("", StateCLI)
}

// 🔀 Transition applies e to s. It reports false when no transition of s or
// its ancestors handles e, in which case e is dropped.
func Transition(s State, e Event, c Context) (State, []Action, bool) {
	var (
		target  State
		actions []Action
	)

	switch s {
	case StateReady:
		switch e.Type {
		case EventInit:
			target = StatePreInit
		case EventSync:
			target = StatePreSync
		case EventAdd:
			target = StatePreAdd
		case EventInherit:
			target = StatePreInherit
		}

	case StateRefreshing:
		if e.Type == EventSucceedRefreshing {
			target = StateTranscribing
			actions = []Action{
				{Type: ActionSetStoreRemote, RemoteStatus: e.RemoteStatus},
				{Type: ActionSetCommonHasChanges, HasChanges: e.CommonHasChanges},
			}
		}

	case StateTranscribing:
		if e.Type == EventSucceedTranscribing {
			target = StateMerging
			actions = []Action{{Type: ActionSetShadowHasChanges, HasChanges: e.ShadowHasChanges}}
		}

	case StateMerging:
		switch e.Type {
		case EventSucceedMerging:
			target = StateDeploying
			actions = []Action{{Type: ActionSetCommonHasChanges, HasChanges: false}}
		case EventFail:
			target = pick(c,
				guarded{StateUploading, isLiveRemote},
				guarded{StateError, nil},
			)
		}

	case StateDeploying:
		if e.Type == EventSucceed {
			target = pick(c,
				guarded{StateSynchronizing, canSynchronize},
				guarded{StateUploading, isLiveRemote},
				guarded{StateExit, nil},
			)
		}

	case StateSynchronizing:
		if e.Type == EventSucceed {
			target = StateUploading
		}

	case StateUploading, StateAddingFile, StateInheriting:
		if e.Type == EventSucceed {
			target = StateExit
		}

	case StateAwaitingInitType:
		switch e.Type {
		case EventJoin:
			target = StateJoiningStore
		case EventCreate:
			target = StateCreatingStore
		}

	case StateJoiningStore:
		switch e.Type {
		case EventSucceedStoreInitialized:
			target = StateResume
			actions = []Action{{Type: ActionSetStoreInitialized, StoreType: e.StoreType}}
		case EventInheritStoreInitialized:
			target = StateInitInheriting
			actions = []Action{{Type: ActionSetStoreInitialized, StoreType: e.StoreType}}
		}

	case StateCreatingStore:
		if e.Type == EventSucceedStoreInitialized {
			target = StateResume
			actions = []Action{{Type: ActionSetStoreInitialized, StoreType: e.StoreType}}
		}

	case StateInitInheriting:
		if e.Type == EventSucceed {
			target = pick(c,
				guarded{StateExit, inheritCommand},
				guarded{StateResume, nil},
			)
		}
	}

	if target == "" && e.Type == EventFail && !s.IsFinal() {
		if s.Within(StateCLI) || s.Within(StateInitializingStore) {
			target = StateError
		}
	}

	if target == "" {
		return s, nil, false
	}

	next, acts := enter(s, target, actions...)
	return next, acts, true
}

// 🔁 Resolve takes the eventless transition out of s, if it has one: the
// preX guard states and the cli.resume history pseudostate.
func Resolve(s State, c Context) (State, []Action, bool) {
	var target State

	switch s {
	case StatePreInit:
		target = pick(c, guarded{StateExit, storeInitialized}, guarded{StateInitializingStore, nil})
	case StatePreSync:
		target = pick(c, guarded{StateSyncingStore, storeInitialized}, guarded{StateInitializingStore, nil})
	case StatePreAdd:
		target = pick(c, guarded{StateAddingFile, storeInitialized}, guarded{StateInitializingStore, nil})
	case StatePreInherit:
		target = pick(c, guarded{StateInheriting, storeInitialized}, guarded{StateInitializingStore, nil})
	case StateResume:
		target = c.History
		if target == "" {
			target = StateCLI
		}
	default:
		return s, nil, false
	}

	next, acts := enter(s, target)
	return next, acts, true
}
