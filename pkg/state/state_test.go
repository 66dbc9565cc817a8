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

package state

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/metafiles/pkg/path"
)

func setupTestLogger(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

var statePath = path.MustAbsolute("/home/me/.files/state.json")

func TestLoadAndSave(t *testing.T) {
	ctx := setupTestLogger(t)

	t.Run("load_nonexistent_is_zero", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		s, err := Load(ctx, fs, statePath)
		require.NoError(t, err)
		assert.False(t, s.Initialized)
		assert.Empty(t, s.Type)
	})

	t.Run("save_and_load", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

		s := &State{}
		s.MarkInitialized("git", "laptop", "git@github.com:walteh/dotfiles.git", created)
		require.NoError(t, s.Save(ctx, fs, statePath))

		tmp, err := afero.Exists(fs, statePath.String()+".tmp")
		require.NoError(t, err)
		assert.False(t, tmp, "temporary file should be renamed away")

		got, err := Load(ctx, fs, statePath)
		require.NoError(t, err)
		assert.True(t, got.Initialized)
		assert.Equal(t, "git", got.Type)
		assert.Equal(t, "laptop", got.Machine)
		assert.Equal(t, "git@github.com:walteh/dotfiles.git", got.JoinedFrom)
		assert.True(t, created.Equal(got.Created))
		assert.Equal(t, SchemaVersion, got.SchemaVersion)
	})

	t.Run("created_is_kept", func(t *testing.T) {
		first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		s := &State{}
		s.MarkInitialized("git", "laptop", "", first)
		s.MarkInitialized("git", "laptop", "", first.Add(time.Hour))
		assert.True(t, first.Equal(s.Created))
	})

	t.Run("corrupt_file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, statePath.String(), []byte("{not json"), 0o644))
		_, err := Load(ctx, fs, statePath)
		require.Error(t, err)
	})

	t.Run("unknown_schema", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, statePath.String(), []byte(`{"schema_version": "9", "initialized": true}`), 0o644))
		_, err := Load(ctx, fs, statePath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema version")
	})
}

func TestUpdate(t *testing.T) {
	ctx := setupTestLogger(t)
	fs := afero.NewMemMapFs()
	synced := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

	require.NoError(t, Update(ctx, fs, statePath, func(s *State) {
		s.MarkInitialized("git", "desk", "", synced)
	}))
	require.NoError(t, Update(ctx, fs, statePath, func(s *State) {
		s.MarkSynced(synced)
	}))

	got, err := Load(ctx, fs, statePath)
	require.NoError(t, err)
	assert.True(t, got.Initialized)
	assert.Equal(t, "desk", got.Machine)
	assert.True(t, synced.Equal(got.LastSync))
}
