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

package actor

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/metafiles/pkg/engine"
)

// ErrNoInitChoice is reported when the store has to be initialized but the
// frontend did not say whether to create or join one.
var ErrNoInitChoice = errors.New("store is not initialized: run mf init or mf join <target>")

// initializer routes to create or join.
type initializer struct{}

func (a *initializer) Run(ctx context.Context, in engine.ActorInput) engine.Event {
	switch {
	case in.NewStore == nil:
		return engine.Fail(ErrNoInitChoice)
	case *in.NewStore:
		return engine.Event{Type: engine.EventCreate}
	default:
		return engine.Event{Type: engine.EventJoin}
	}
}

// 🏗️ creator initializes an empty store.
type creator struct{ d *Deps }

func (a *creator) Run(ctx context.Context, in engine.ActorInput) engine.Event {
	t := a.d.storeType(in.StoreType)

	b, err := a.d.backend(in.StoreType)
	if err != nil {
		return engine.Fail(err)
	}

	if err := b.Create(ctx); err != nil {
		return engine.Fail(errors.Errorf("creating store: %w", err))
	}
	if err := a.d.markInitialized(ctx, t, ""); err != nil {
		return engine.Fail(err)
	}

	zerolog.Ctx(ctx).Info().Str("type", t.String()).Str("machine", a.d.Config.Machine).Msg("created store")
	return engine.Event{Type: engine.EventSucceedStoreInitialized, StoreType: engine.StoreType(t)}
}

// 🤝 joiner clones an existing store.
type joiner struct{ d *Deps }

func (a *joiner) Run(ctx context.Context, in engine.ActorInput) engine.Event {
	t := a.d.storeType(in.JoinType)

	uri, err := a.d.Resolvers.Resolve(ctx, in.JoinURI)
	if err != nil {
		return engine.Fail(err)
	}

	b, err := a.d.backend(in.JoinType)
	if err != nil {
		return engine.Fail(err)
	}

	if err := b.Join(ctx, uri); err != nil {
		return engine.Fail(errors.Errorf("joining %s: %w", uri, err))
	}
	if err := a.d.markInitialized(ctx, t, uri); err != nil {
		return engine.Fail(err)
	}

	zerolog.Ctx(ctx).Info().Str("type", t.String()).Str("uri", uri).Msg("joined store")

	ev := engine.Event{Type: engine.EventSucceedStoreInitialized, StoreType: engine.StoreType(t)}
	if in.Command == engine.CommandInherit && in.InheritMachine != "" {
		ev.Type = engine.EventInheritStoreInitialized
	}
	return ev
}

// 🧬 inheriter merges another machine's files and deploys them.
type inheriter struct{ d *Deps }

func (a *inheriter) Run(ctx context.Context, in engine.ActorInput) engine.Event {
	if in.InheritMachine == "" {
		return engine.Fail(errors.New("no machine to inherit from"))
	}
	if in.InheritMachine == a.d.Config.Machine {
		return engine.Fail(errors.Errorf("cannot inherit from this machine (%s)", in.InheritMachine))
	}

	b, err := a.d.backend("")
	if err != nil {
		return engine.Fail(err)
	}

	if err := b.Inherit(ctx, in.InheritMachine); err != nil {
		return engine.Fail(errors.Errorf("inheriting from %s: %w", in.InheritMachine, err))
	}
	if err := a.d.deploy(ctx); err != nil {
		return engine.Fail(err)
	}
	return engine.Succeed()
}
