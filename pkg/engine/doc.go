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

/*
Package engine sequences one metafiles command through store initialization,
file addition, inheritance and the sync pipeline.

The transition table is a pure function of (state, event, context) so it can
be tested without running any actor. Machine drives the table: it invokes the
actor bound to each phase, waits for exactly one outcome event, applies the
resulting actions to the context and moves on.

# State graph

	cli
	 ├─ ready ──(command)──► preInit │ preSync │ preAdd │ preInherit
	 │                          │ store initialized?
	 │                 yes ◄────┴────► no ──► initializingStore
	 │
	 ├─ syncingStore
	 │   refreshing ─► transcribing ─► merging ─► deploying ─┬─► synchronizing ─► uploading ─► exit
	 │                                   │ fail              ├─► uploading ─► exit
	 │                                   ├─► uploading (live)└─► exit
	 │                                   └─► error
	 ├─ addingFile ─► exit
	 ├─ inheriting ─► exit
	 └─ resume (shallow history of cli)

	initializingStore
	 ├─ awaitingInitType ─► joiningStore │ creatingStore
	 ├─ joiningStore ─► cli.resume │ inheriting
	 ├─ creatingStore ─► cli.resume
	 └─ inheriting ─► exit (inherit command) │ cli.resume

	any unhandled fail ─► error

# Guards

Guards read only the context:

  - storeInitialized: Store.Initialized
  - isLiveRemote: Store.RemoteStatus == live
  - canSynchronize: common store has no pending changes and the remote is live
  - inheritCommand: Command == inherit

When more than one guarded transition is listed for an event, the first one
whose guard passes wins.

# Actors

Each phase state invokes one Actor. The actor runs in its own goroutine with a
context that is cancelled (and a Cleanup hook called, when implemented) as
soon as the machine leaves the state. An actor that outlives the bound set
with WithTimeout is reported as fail.
*/
package engine
