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

package store_test

import (
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/metafiles/pkg/path"
	"github.com/walteh/metafiles/pkg/store"
)

func mapping(from, to string) store.Mapping {
	return store.Mapping{LocalFile: path.MustAbsolute(from), StoreFile: path.MustAbsolute(to)}
}

func TestCopyFile(t *testing.T) {
	t.Run("creates_missing_parent_chain", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{"/home/me/.config/git/config": "[user]"})
		require.NoError(t, fs.MkdirAll("/stores/local", 0o755))

		err := store.CopyFile(fs, path.MustAbsolute("/home/me/.config/git/config"), path.MustAbsolute("/stores/local/.config/git/config"))
		require.NoError(t, err)

		got, err := afero.ReadFile(fs, "/stores/local/.config/git/config")
		require.NoError(t, err)
		assert.Equal(t, "[user]", string(got))
	})

	t.Run("overwrites_existing", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{
			"/home/me/.bashrc":      "new",
			"/stores/local/.bashrc": "old content that is longer",
		})

		require.NoError(t, store.CopyFile(fs, path.MustAbsolute("/home/me/.bashrc"), path.MustAbsolute("/stores/local/.bashrc")))

		got, err := afero.ReadFile(fs, "/stores/local/.bashrc")
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))
	})

	t.Run("parent_is_a_file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{
			"/home/me/.bashrc":    "x",
			"/stores/local/block": "i am a file",
		})

		err := store.CopyFile(fs, path.MustAbsolute("/home/me/.bashrc"), path.MustAbsolute("/stores/local/block/.bashrc"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("missing_source", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		err := store.CopyFile(fs, path.MustAbsolute("/home/me/.nope"), path.MustAbsolute("/stores/local/.nope"))
		require.Error(t, err)
	})
}

func TestSyncStore(t *testing.T) {
	ctx := setupTestLogger(t)

	t.Run("copies_everything", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{
			"/home/me/.bashrc":               "bash",
			"/home/me/.config/nvim/init.lua": "nvim",
			"/etc/hosts":                     "hosts",
		})
		fm := store.FileMap{
			mapping("/home/me/.bashrc", "/stores/local/.bashrc"),
			mapping("/home/me/.config/nvim/init.lua", "/stores/local/.config/nvim/init.lua"),
			mapping("/etc/hosts", "/stores/local/.files/fsroot/etc/hosts"),
		}

		res := store.SyncStore(ctx, fs, fm, store.SyncOptions{Concurrency: 2})
		require.NoError(t, res.Err())
		assert.Equal(t, []store.Mapping(fm), res.Copied)
		assert.Empty(t, res.Failed)

		got, err := afero.ReadFile(fs, "/stores/local/.files/fsroot/etc/hosts")
		require.NoError(t, err)
		assert.Equal(t, "hosts", string(got))
	})

	t.Run("failures_do_not_abort_siblings", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{
			"/home/me/a": "a",
			"/home/me/c": "c",
		})
		fm := store.FileMap{
			mapping("/home/me/a", "/stores/local/a"),
			mapping("/home/me/b", "/stores/local/b"),
			mapping("/home/me/c", "/stores/local/c"),
		}

		var mu sync.Mutex
		attempted := 0
		res := store.SyncStore(ctx, fs, fm, store.SyncOptions{OnCopy: func(store.Mapping, error) {
			mu.Lock()
			defer mu.Unlock()
			attempted++
		}})

		assert.Equal(t, 3, attempted)
		assert.Equal(t, []store.Mapping{fm[0], fm[2]}, res.Copied)
		require.Len(t, res.Failed, 1)
		assert.Equal(t, fm[1], res.Failed[0].Mapping)
		require.Error(t, res.Err())
		assert.Contains(t, res.Err().Error(), "/home/me/b")

		ok, err := afero.Exists(fs, "/stores/local/c")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("skip_missing", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{"/home/me/a": "a"})
		fm := store.FileMap{
			mapping("/home/me/a", "/stores/local/a"),
			mapping("/home/me/gone", "/stores/local/gone"),
		}

		res := store.SyncStore(ctx, fs, fm, store.SyncOptions{SkipMissing: true})
		require.NoError(t, res.Err())
		assert.Equal(t, []store.Mapping{fm[0]}, res.Copied)
		assert.Equal(t, []store.Mapping{fm[1]}, res.Skipped)
	})
}
