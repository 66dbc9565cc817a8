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

import (
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/metafiles/pkg/path"
)

// 🎯 Command is the top-level operation requested by the frontend.
type Command string

const (
	CommandAdd     Command = "add"
	CommandInherit Command = "inherit"
	CommandInit    Command = "init"
	CommandSync    Command = "sync"
)

// ParseCommand validates s as a Command.
func ParseCommand(s string) (Command, error) {
	switch c := Command(s); c {
	case CommandAdd, CommandInherit, CommandInit, CommandSync:
		return c, nil
	}
	return "", errors.Errorf("unknown command %q", s)
}

// StoreType names a store backend. Empty means not yet known.
type StoreType string

// RemoteStatus is the reachability of the common store's remote. Empty means
// not yet observed.
type RemoteStatus string

const (
	RemoteUnknown RemoteStatus = ""
	RemoteLive    RemoteStatus = "live"
	RemoteOffline RemoteStatus = "offline"
	RemoteNone    RemoteStatus = "false"
)

// State is a dotted path naming a node of the state graph.
type State string

const (
	StateCLI           State = "cli"
	StateReady         State = "cli.ready"
	StatePreInit       State = "cli.preInit"
	StatePreSync       State = "cli.preSync"
	StatePreAdd        State = "cli.preAdd"
	StatePreInherit    State = "cli.preInherit"
	StateSyncingStore  State = "cli.syncingStore"
	StateRefreshing    State = "cli.syncingStore.refreshing"
	StateTranscribing  State = "cli.syncingStore.transcribing"
	StateMerging       State = "cli.syncingStore.merging"
	StateDeploying     State = "cli.syncingStore.deploying"
	StateSynchronizing State = "cli.syncingStore.synchronizing"
	StateUploading     State = "cli.syncingStore.uploading"
	StateAddingFile    State = "cli.addingFile"
	StateInheriting    State = "cli.inheriting"
	StateResume        State = "cli.resume"

	StateInitializingStore State = "initializingStore"
	StateAwaitingInitType  State = "initializingStore.awaitingInitType"
	StateJoiningStore      State = "initializingStore.joiningStore"
	StateCreatingStore     State = "initializingStore.creatingStore"
	StateInitInheriting    State = "initializingStore.inheriting"

	StateError State = "error"
	StateExit  State = "exit"
)

// IsFinal reports whether s is a terminal state.
func (s State) IsFinal() bool {
	return s == StateError || s == StateExit
}

// Within reports whether s is ancestor or one of its descendants.
func (s State) Within(ancestor State) bool {
	return s == ancestor || strings.HasPrefix(string(s), string(ancestor)+".")
}

// Leaf is the last segment of s.
func (s State) Leaf() string {
	str := string(s)
	if i := strings.LastIndex(str, "."); i >= 0 {
		return str[i+1:]
	}
	return str
}

// childOf returns the direct child of parent on the way to s.
func (s State) childOf(parent State) State {
	rest := strings.TrimPrefix(string(s), string(parent)+".")
	if i := strings.Index(rest, "."); i >= 0 {
		rest = rest[:i]
	}
	return parent + "." + State(rest)
}

// 📦 Params are the command-specific inputs supplied by the frontend.
type Params struct {
	// AddFilePath is the file or directory to add.
	AddFilePath path.AbsolutePath

	// InitStoreNew selects create (true) or join (false) when the store has
	// to be initialized. Nil means the frontend did not say.
	InitStoreNew *bool

	// InheritMachine is the machine to inherit from. Empty means none.
	InheritMachine string

	InitStoreJoinURI string
	InitStoreType    StoreType
}

// StoreContext is the mutable store status tracked across one run.
type StoreContext struct {
	Type         StoreType
	Initialized  bool
	RemoteStatus RemoteStatus

	// Nil until the refresher or transcriber reports.
	CommonHasChanges *bool
	ShadowHasChanges *bool
}

// Context is the state of one engine run. Only actions produced by the
// transition table change it.
type Context struct {
	Command Command
	Params  Params
	Store   StoreContext

	// History is the last active direct child of cli before the run left it.
	History State
}

// Input is what the frontend hands to Machine.Run.
type Input struct {
	Command          Command
	Params           Params
	StoreInitialized bool
	StoreType        StoreType
}

// NewContext builds the initial context for in.
func NewContext(in Input) Context {
	return Context{
		Command: in.Command,
		Params:  in.Params,
		Store: StoreContext{
			Type:        in.StoreType,
			Initialized: in.StoreInitialized,
		},
	}
}

func deref(b *bool) bool {
	return b != nil && *b
}

// Guards.

func storeInitialized(c Context) bool { return c.Store.Initialized }
func isLiveRemote(c Context) bool     { return c.Store.RemoteStatus == RemoteLive }
func inheritCommand(c Context) bool   { return c.Command == CommandInherit }

func canSynchronize(c Context) bool {
	return !deref(c.Store.CommonHasChanges) && isLiveRemote(c)
}
