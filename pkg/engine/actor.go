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
	"context"

	"github.com/walteh/metafiles/pkg/path"
)

// ActorName identifies the operation a phase state invokes.
type ActorName string

const (
	ActorStoreRefresher    ActorName = "storeRefresher"
	ActorStoreTranscriber  ActorName = "storeTranscriber"
	ActorStoreMerger       ActorName = "storeMerger"
	ActorStoreDeployer     ActorName = "storeDeployer"
	ActorStoreSynchronizer ActorName = "storeSynchronizer"
	ActorStoreUploader     ActorName = "storeUploader"
	ActorStoreInitializer  ActorName = "storeInitializer"
	ActorStoreJoiner       ActorName = "storeJoiner"
	ActorStoreCreator      ActorName = "storeCreator"
	ActorStoreInheriter    ActorName = "storeInheriter"
	ActorFileAdder         ActorName = "fileAdder"
)

// AllActors lists every actor the state graph can invoke.
var AllActors = []ActorName{
	ActorStoreRefresher,
	ActorStoreTranscriber,
	ActorStoreMerger,
	ActorStoreDeployer,
	ActorStoreSynchronizer,
	ActorStoreUploader,
	ActorStoreInitializer,
	ActorStoreJoiner,
	ActorStoreCreator,
	ActorStoreInheriter,
	ActorFileAdder,
}

// 🎭 Actor is the unit of work behind a phase. Run reports exactly one outcome
// event. It must return promptly once ctx is done.
type Actor interface {
	Run(ctx context.Context, in ActorInput) Event
}

// Cleaner is implemented by actors holding resources that must be released
// when the invoking state is left.
type Cleaner interface {
	Cleanup()
}

// ActorFunc adapts a function to Actor.
type ActorFunc func(ctx context.Context, in ActorInput) Event

func (f ActorFunc) Run(ctx context.Context, in ActorInput) Event { return f(ctx, in) }

// ActorInput is the snapshot of context handed to an actor. Only the fields
// the invoked actor reads are set.
type ActorInput struct {
	Command          Command
	StoreType        StoreType
	CommonHasChanges bool
	ShadowHasChanges bool

	NewStore       *bool
	InheritMachine string
	JoinType       StoreType
	JoinURI        string
	AddFilePath    path.AbsolutePath
}

// Invokes returns the actor bound to s, or "" for states without one.
func Invokes(s State) ActorName {
	switch s {
	case StateRefreshing:
		return ActorStoreRefresher
	case StateTranscribing:
		return ActorStoreTranscriber
	case StateMerging:
		return ActorStoreMerger
	case StateDeploying:
		return ActorStoreDeployer
	case StateSynchronizing:
		return ActorStoreSynchronizer
	case StateUploading:
		return ActorStoreUploader
	case StateAddingFile:
		return ActorFileAdder
	case StateInheriting, StateInitInheriting:
		return ActorStoreInheriter
	case StateAwaitingInitType:
		return ActorStoreInitializer
	case StateJoiningStore:
		return ActorStoreJoiner
	case StateCreatingStore:
		return ActorStoreCreator
	}
	return ""
}

// InputFor snapshots the fields of c that actor a reads.
func InputFor(a ActorName, c Context) ActorInput {
	switch a {
	case ActorStoreRefresher:
		return ActorInput{StoreType: c.Store.Type}
	case ActorStoreTranscriber:
		return ActorInput{StoreType: c.Store.Type, CommonHasChanges: deref(c.Store.CommonHasChanges)}
	case ActorStoreMerger:
		return ActorInput{
			StoreType:        c.Store.Type,
			CommonHasChanges: deref(c.Store.CommonHasChanges),
			ShadowHasChanges: deref(c.Store.ShadowHasChanges),
		}
	case ActorStoreDeployer, ActorStoreSynchronizer, ActorStoreUploader:
		return ActorInput{StoreType: c.Store.Type, ShadowHasChanges: deref(c.Store.ShadowHasChanges)}
	case ActorStoreInitializer:
		return ActorInput{NewStore: c.Params.InitStoreNew}
	case ActorStoreJoiner:
		return ActorInput{
			Command:        c.Command,
			InheritMachine: c.Params.InheritMachine,
			JoinType:       c.Params.InitStoreType,
			JoinURI:        c.Params.InitStoreJoinURI,
		}
	case ActorStoreCreator:
		return ActorInput{StoreType: c.Params.InitStoreType}
	case ActorStoreInheriter:
		return ActorInput{InheritMachine: c.Params.InheritMachine}
	case ActorFileAdder:
		return ActorInput{AddFilePath: c.Params.AddFilePath}
	}
	return ActorInput{}
}
