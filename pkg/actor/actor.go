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

// Package actor implements the work behind every engine phase on top of the
// store, remote and state packages.
package actor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/metafiles/pkg/config"
	"github.com/walteh/metafiles/pkg/engine"
	"github.com/walteh/metafiles/pkg/log"
	"github.com/walteh/metafiles/pkg/path"
	"github.com/walteh/metafiles/pkg/remote"
	"github.com/walteh/metafiles/pkg/state"
	"github.com/walteh/metafiles/pkg/store"
)

// 📦 Deps is everything the actors touch outside the engine context.
type Deps struct {
	Fs     afero.Fs
	Config *config.Config

	// Backend overrides the backend built from the registry for the store
	// type in the actor input.
	Backend remote.Backend

	// Resolvers expand short join targets.
	Resolvers remote.Resolvers

	// Console, when set, is told about every file copied.
	Console *log.Logger

	Now func() time.Time
}

// 🎭 Actors builds every actor the engine can invoke.
func Actors(d *Deps) map[engine.ActorName]engine.Actor {
	if d.Now == nil {
		d.Now = time.Now
	}
	return map[engine.ActorName]engine.Actor{
		engine.ActorStoreRefresher:    &refresher{d},
		engine.ActorStoreTranscriber:  &transcriber{d},
		engine.ActorStoreMerger:       &merger{d},
		engine.ActorStoreDeployer:     &deployer{d},
		engine.ActorStoreSynchronizer: &synchronizer{d},
		engine.ActorStoreUploader:     &uploader{d},
		engine.ActorStoreInitializer:  &initializer{},
		engine.ActorStoreJoiner:       &joiner{d},
		engine.ActorStoreCreator:      &creator{d},
		engine.ActorStoreInheriter:    &inheriter{d},
		engine.ActorFileAdder:         &fileAdder{d},
	}
}

// storeType picks the type named by the engine, falling back to the
// configured one.
func (d *Deps) storeType(t engine.StoreType) remote.Type {
	if t != "" {
		return remote.Type(t)
	}
	return d.Config.StoreType
}

func (d *Deps) backend(t engine.StoreType) (remote.Backend, error) {
	if d.Backend != nil {
		return d.Backend, nil
	}
	b, err := remote.New(d.storeType(t), d.Config.Layout())
	if err != nil {
		return nil, errors.Errorf("opening store backend: %w", err)
	}
	return b, nil
}

// open settles the mirror name of a configured store. Stores that already
// hold a mirror subtree keep its name unless the configuration asks for the
// historical one.
func (d *Deps) open(s *store.Store) (*store.Store, error) {
	if s.Mirror != store.MirrorFSRoot {
		return s, nil
	}
	detected, err := store.DetectMirror(d.Fs, s.Root)
	if err != nil {
		return nil, errors.Errorf("detecting mirror of %s: %w", s.Root, err)
	}
	s.Mirror = detected
	return s, nil
}

func (d *Deps) shadow() (*store.Store, error) { return d.open(d.Config.ShadowStore()) }
func (d *Deps) common() (*store.Store, error) { return d.open(d.Config.CommonStore()) }

// sync copies every mapping, reporting each file to the console. Copy
// failures are logged and do not fail the phase; only cancellation does.
func (d *Deps) sync(ctx context.Context, kind string, fm store.FileMap, skipMissing bool, host func(store.Mapping) path.AbsolutePath) error {
	res := store.SyncStore(ctx, d.Fs, fm, store.SyncOptions{
		Concurrency: d.Config.Concurrency,
		SkipMissing: skipMissing,
		OnCopy: func(m store.Mapping, err error) {
			if d.Console != nil {
				d.Console.LogFileOperation(ctx, log.FileOperation{Path: host(m).String(), Kind: kind, Err: err})
			}
		},
	})

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := res.Err(); err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("kind", kind).
			Int("failed", len(res.Failed)).
			Msg("some files could not be copied")
	}

	zerolog.Ctx(ctx).Debug().
		Str("kind", kind).
		Int("copied", len(res.Copied)).
		Int("skipped", len(res.Skipped)).
		Int("failed", len(res.Failed)).
		Msg("sync finished")
	return nil
}

// deploy copies every file of the shadow store onto the host.
func (d *Deps) deploy(ctx context.Context) error {
	shadow, err := d.shadow()
	if err != nil {
		return err
	}
	fm, err := store.GenerateFileMap(ctx, d.Fs, shadow, nil, d.Config.Exclusion())
	if err != nil {
		return errors.Errorf("mapping shadow store: %w", err)
	}
	return d.sync(ctx, "deploy", fm.Reverse(), false, func(m store.Mapping) path.AbsolutePath { return m.StoreFile })
}

// markInitialized records a new store in the state file.
func (d *Deps) markInitialized(ctx context.Context, t remote.Type, joinedFrom string) error {
	return state.Update(ctx, d.Fs, d.Config.StateFile(), func(s *state.State) {
		s.MarkInitialized(t.String(), d.Config.Machine, joinedFrom, d.Now())
	})
}
