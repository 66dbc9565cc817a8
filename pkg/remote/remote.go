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

// Package remote is the boundary between the sync actors and whatever keeps
// the common and shadow stores under version control.
//
//	            push/fetch
//	 remote  <-------------->  common (branch master)
//	                              |  merge both ways
//	                              v
//	                           shadow (branch <machine>, worktree)
//	                              |  transcribe / deploy
//	                              v
//	                        live filesystem
//
// Backends register a constructor per Type; see the git subpackage.
package remote

import (
	"context"

	"github.com/walteh/metafiles/pkg/path"
)

// Type names a backend implementation.
type Type string

const TypeGit Type = "git"

func (t Type) String() string { return string(t) }

// Status is the reachability of the common store's remote.
type Status string

const (
	// StatusLive means the remote answered the last fetch.
	StatusLive Status = "live"
	// StatusOffline means a remote is configured but could not be reached.
	StatusOffline Status = "offline"
	// StatusNone means no remote is configured.
	StatusNone Status = "none"
)

// 📁 Layout locates the two stores of one machine.
type Layout struct {
	Common path.AbsolutePath
	Shadow path.AbsolutePath

	// Machine is the shadow store's branch.
	Machine string
	// Branch is the common store's branch.
	Branch string
	// Remote is the name of the upstream remote.
	Remote string
}

// 🔌 Backend performs version control operations on a Layout. Methods
// that talk to the network honour ctx.
type Backend interface {
	Type() Type

	// Create initializes an empty common store and the shadow store on top of it.
	Create(ctx context.Context) error

	// Join clones uri into the common store and sets up the shadow store.
	Join(ctx context.Context, uri string) error

	// Refresh fetches the remote and reports whether the common store holds
	// changes the shadow store has not merged yet.
	Refresh(ctx context.Context) (Status, bool, error)

	// Commit records every change in the shadow store. It reports false when
	// there was nothing to commit.
	Commit(ctx context.Context, message string) (bool, error)

	// ShadowAhead reports whether the shadow store holds changes the common
	// store has not merged yet.
	ShadowAhead(ctx context.Context) (bool, error)

	// MergeCommonIntoShadow brings upstream and common changes into the
	// shadow store. A conflict leaves the shadow store untouched and returns
	// an error matching ErrConflicts.
	MergeCommonIntoShadow(ctx context.Context) error

	// MergeShadowIntoCommon publishes the shadow store's changes to the
	// common store.
	MergeShadowIntoCommon(ctx context.Context) error

	// Push uploads the common and machine branches.
	Push(ctx context.Context) error

	// Inherit merges another machine's branch into the shadow store.
	Inherit(ctx context.Context, machine string) error
}
