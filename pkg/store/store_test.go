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
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/metafiles/pkg/path"
	"github.com/walteh/metafiles/pkg/store"
)

var (
	home   = path.MustAbsolute("/home/me")
	local  = store.New(path.MustAbsolute("/stores/local"), home, "")
	master = store.New(path.MustAbsolute("/stores/master"), home, "")
)

func setupTestLogger(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, fs.MkdirAll(path.MustAbsolute(name).Dirname().String(), 0o755))
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{name: "inside_home", host: "/home/me/.bashrc", want: "/stores/local/.bashrc"},
		{name: "nested_in_home", host: "/home/me/.config/nvim/init.lua", want: "/stores/local/.config/nvim/init.lua"},
		{name: "outside_home", host: "/etc/hosts", want: "/stores/local/.files/fsroot/etc/hosts"},
		{name: "home_name_prefix_is_not_home", host: "/home/meow/.bashrc", want: "/stores/local/.files/fsroot/home/meow/.bashrc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := local.Location(path.MustAbsolute(tt.host))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestLocationRoundTrip(t *testing.T) {
	legacy := store.New(path.MustAbsolute("/stores/old"), home, store.MirrorRootFS)

	hosts := []string{
		"/home/me/.bashrc",
		"/home/me/.config/git/config",
		"/etc/hosts",
		"/usr/local/etc/my.cnf",
		"/home/meow/.profile",
	}

	for _, s := range []*store.Store{local, legacy} {
		for _, h := range hosts {
			host := path.MustAbsolute(h)
			assert.False(t, s.Reserved(host), "%s is storable", h)
			sf, err := s.FileAt(s.Location(host))
			require.NoError(t, err)
			assert.Equal(t, h, sf.HostPath().String(), "round trip through %s", s.Root)
		}
	}

	t.Run("home_paths_under_store_metadata", func(t *testing.T) {
		reserved := []string{
			"/home/me/.files/fsroot/etc/x",
			"/home/me/.files/rootfs/etc/x",
			"/home/me/.files/README.md",
		}
		for _, h := range reserved {
			assert.True(t, local.Reserved(path.MustAbsolute(h)), "%s is reserved", h)
		}

		host := path.MustAbsolute("/home/me/.files/fsroot/etc/x")
		sf, err := local.FileAt(local.Location(host))
		require.NoError(t, err)
		assert.Equal(t, "/etc/x", sf.HostPath().String(), "a reserved path does not map back")

		assert.False(t, local.Reserved(path.MustAbsolute("/home/me/.filesystem/notes")))
		assert.False(t, local.Reserved(path.MustAbsolute("/etc/x")))
	})
}

func TestStoreFile(t *testing.T) {
	mirrored := local.File(path.MustRelative(".files/fsroot/etc/hosts"))
	assert.True(t, mirrored.IsMirrored())
	assert.Equal(t, "/stores/local/.files/fsroot/etc/hosts", mirrored.Path().String())
	assert.Equal(t, "/etc/hosts", mirrored.HostPath().String())

	plain := local.File(path.MustRelative(".zshrc"))
	assert.False(t, plain.IsMirrored())
	assert.Equal(t, "/home/me/.zshrc", plain.HostPath().String())

	_, err := local.FileAt(path.MustAbsolute("/elsewhere/file"))
	require.Error(t, err)
	_, err = local.FileAt(local.Root)
	require.Error(t, err)
}

func TestDetectMirror(t *testing.T) {
	root := path.MustAbsolute("/stores/local")

	t.Run("empty_store_uses_fsroot", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		got, err := store.DetectMirror(fs, root)
		require.NoError(t, err)
		assert.Equal(t, store.MirrorFSRoot, got)
	})

	t.Run("legacy_only", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/stores/local/.files/rootfs", 0o755))
		got, err := store.DetectMirror(fs, root)
		require.NoError(t, err)
		assert.Equal(t, store.MirrorRootFS, got)
	})

	t.Run("both_prefers_fsroot", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/stores/local/.files/rootfs", 0o755))
		require.NoError(t, fs.MkdirAll("/stores/local/.files/fsroot", 0o755))
		got, err := store.DetectMirror(fs, root)
		require.NoError(t, err)
		assert.Equal(t, store.MirrorFSRoot, got)
	})
}
