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
	"github.com/walteh/metafiles/pkg/path"
	"github.com/walteh/metafiles/pkg/remote"
	"github.com/walteh/metafiles/pkg/state"
	"github.com/walteh/metafiles/pkg/store"
)

// PreSyncMessage is the commit message for transcribed host changes.
const PreSyncMessage = "pre-sync"

func remoteStatus(s remote.Status) engine.RemoteStatus {
	switch s {
	case remote.StatusLive:
		return engine.RemoteLive
	case remote.StatusOffline:
		return engine.RemoteOffline
	default:
		return engine.RemoteNone
	}
}

// 🔄 refresher fetches the remote.
type refresher struct{ d *Deps }

func (a *refresher) Run(ctx context.Context, in engine.ActorInput) engine.Event {
	b, err := a.d.backend(in.StoreType)
	if err != nil {
		return engine.Fail(err)
	}

	status, changed, err := b.Refresh(ctx)
	if err != nil {
		return engine.Fail(errors.Errorf("refreshing common store: %w", err))
	}

	zerolog.Ctx(ctx).Debug().Str("status", string(status)).Bool("common_changed", changed).Msg("refreshed")

	return engine.Event{
		Type:             engine.EventSucceedRefreshing,
		RemoteStatus:     remoteStatus(status),
		CommonHasChanges: changed,
	}
}

// 📥 transcriber copies the host's copies of every tracked file into the
// shadow store and commits them. When the common store changed, its files
// are tracked too.
type transcriber struct{ d *Deps }

func (a *transcriber) Run(ctx context.Context, in engine.ActorInput) engine.Event {
	b, err := a.d.backend(in.StoreType)
	if err != nil {
		return engine.Fail(err)
	}

	shadow, err := a.d.shadow()
	if err != nil {
		return engine.Fail(err)
	}

	excl := a.d.Config.Exclusion()

	fm, err := store.GenerateFileMap(ctx, a.d.Fs, shadow, nil, excl)
	if err != nil {
		return engine.Fail(errors.Errorf("mapping shadow store: %w", err))
	}

	if in.CommonHasChanges {
		common, err := a.d.common()
		if err != nil {
			return engine.Fail(err)
		}
		cfm, err := store.GenerateFileMap(ctx, a.d.Fs, common, shadow, excl)
		if err != nil {
			return engine.Fail(errors.Errorf("mapping common store: %w", err))
		}
		fm = fm.Merge(cfm)
	}

	if err := a.d.sync(ctx, "transcribe", fm, true, func(m store.Mapping) path.AbsolutePath { return m.LocalFile }); err != nil {
		return engine.Fail(err)
	}

	if _, err := b.Commit(ctx, PreSyncMessage); err != nil {
		return engine.Fail(errors.Errorf("committing shadow store: %w", err))
	}

	ahead, err := b.ShadowAhead(ctx)
	if err != nil {
		return engine.Fail(errors.Errorf("comparing shadow store: %w", err))
	}

	return engine.Event{Type: engine.EventSucceedTranscribing, ShadowHasChanges: ahead}
}

// 🔀 merger brings common changes into the shadow store.
type merger struct{ d *Deps }

func (a *merger) Run(ctx context.Context, in engine.ActorInput) engine.Event {
	done := engine.Event{Type: engine.EventSucceedMerging, CommonHasChanges: false}
	if !in.CommonHasChanges {
		return done
	}

	b, err := a.d.backend(in.StoreType)
	if err != nil {
		return engine.Fail(err)
	}

	if err := b.MergeCommonIntoShadow(ctx); err != nil {
		return engine.Fail(errors.Errorf("merging common store: %w", err))
	}
	return done
}

// 📤 deployer copies the shadow store onto the host.
type deployer struct{ d *Deps }

func (a *deployer) Run(ctx context.Context, in engine.ActorInput) engine.Event {
	if err := a.d.deploy(ctx); err != nil {
		return engine.Fail(err)
	}
	return engine.Succeed()
}

// 🔁 synchronizer publishes shadow changes to the common store.
type synchronizer struct{ d *Deps }

func (a *synchronizer) Run(ctx context.Context, in engine.ActorInput) engine.Event {
	if !in.ShadowHasChanges {
		return engine.Succeed()
	}

	b, err := a.d.backend(in.StoreType)
	if err != nil {
		return engine.Fail(err)
	}

	if err := b.MergeShadowIntoCommon(ctx); err != nil {
		return engine.Fail(errors.Errorf("publishing shadow store: %w", err))
	}
	return engine.Succeed()
}

// ☁️ uploader pushes both stores and records the sync.
type uploader struct{ d *Deps }

func (a *uploader) Run(ctx context.Context, in engine.ActorInput) engine.Event {
	logger := zerolog.Ctx(ctx)

	b, err := a.d.backend(in.StoreType)
	if err != nil {
		return engine.Fail(err)
	}

	if err := b.Push(ctx); err != nil {
		if !errors.Is(err, remote.ErrNoRemote) {
			return engine.Fail(errors.Errorf("pushing: %w", err))
		}
		logger.Warn().Msg("no remote configured, nothing pushed")
	}

	if err := state.Update(ctx, a.d.Fs, a.d.Config.StateFile(), func(s *state.State) {
		s.MarkSynced(a.d.Now())
	}); err != nil {
		return engine.Fail(err)
	}
	return engine.Succeed()
}
