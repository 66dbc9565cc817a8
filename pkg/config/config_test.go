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

package config

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/metafiles/pkg/path"
	"github.com/walteh/metafiles/pkg/remote"
	_ "github.com/walteh/metafiles/pkg/remote/git"
	"github.com/walteh/metafiles/pkg/store"
)

const home = "/home/me"

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func TestDefault(t *testing.T) {
	cfg := Default(path.MustAbsolute(home))

	assert.Equal(t, "/home/me/.files", cfg.FilesDir.String())
	assert.Equal(t, "/home/me/.files/store", cfg.StoreDir().String())
	assert.Equal(t, "/home/me/.files/store/master", cfg.CommonDir().String())
	assert.Equal(t, "/home/me/.files/store/local", cfg.ShadowDir().String())
	assert.Equal(t, "/home/me/.files/state.json", cfg.StateFile().String())
	assert.Equal(t, remote.TypeGit, cfg.StoreType)
	assert.Equal(t, "origin", cfg.Remote)
	assert.Equal(t, "master", cfg.Branch)
	assert.Equal(t, store.MirrorFSRoot, cfg.Mirror)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
	assert.NotEmpty(t, cfg.Machine)
	require.NoError(t, cfg.Validate())

	l := cfg.Layout()
	assert.Equal(t, cfg.CommonDir(), l.Common)
	assert.Equal(t, cfg.ShadowDir(), l.Shadow)
	assert.Equal(t, cfg.Machine, l.Machine)

	assert.Equal(t, cfg.ShadowDir(), cfg.ShadowStore().Root)
	assert.Equal(t, cfg.Home, cfg.CommonStore().Home)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "laptop", want: "laptop"},
		{in: "my laptop", want: "my-laptop"},
		{in: "work_box-2", want: "work_box-2"},
		{in: "émile", want: "mile"},
		{in: "---", want: "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize(tt.in))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		errContains string
	}{
		{name: "bad_machine", mutate: func(c *Config) { c.Machine = "my laptop" }, errContains: "invalid machine name"},
		{name: "empty_machine", mutate: func(c *Config) { c.Machine = "" }, errContains: "invalid machine name"},
		{name: "machine_is_branch", mutate: func(c *Config) { c.Machine = "master" }, errContains: "collides"},
		{name: "bad_branch", mutate: func(c *Config) { c.Branch = "-x" }, errContains: "invalid branch name"},
		{name: "no_remote", mutate: func(c *Config) { c.Remote = "" }, errContains: "remote is required"},
		{name: "unknown_type", mutate: func(c *Config) { c.StoreType = "svn" }, errContains: "unknown store type"},
		{name: "bad_mirror", mutate: func(c *Config) { c.Mirror = "root" }, errContains: "mirror must be"},
		{name: "zero_concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, errContains: "concurrency must be positive"},
		{name: "negative_timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, errContains: "timeout must not be negative"},
		{name: "bad_glob", mutate: func(c *Config) { c.Ignore = []string{"[unclosed"} }, errContains: "invalid ignore glob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(path.MustAbsolute(home))
			cfg.Machine = "laptop"
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}

	t.Run("registered_type_is_valid", func(t *testing.T) {
		if !remote.IsRegistered("hg") {
			remote.Register("hg", func(remote.Layout) (remote.Backend, error) { return nil, nil })
		}
		cfg := Default(path.MustAbsolute(home))
		cfg.Machine = "laptop"
		cfg.StoreType = "hg"
		require.NoError(t, cfg.Validate())
	})

	t.Run("legacy_mirror_is_valid", func(t *testing.T) {
		cfg := Default(path.MustAbsolute(home))
		cfg.Machine = "laptop"
		cfg.Mirror = store.MirrorRootFS
		require.NoError(t, cfg.Validate())
	})
}

func TestApply(t *testing.T) {
	str := func(s string) *string { return &s }
	n := 3

	cfg := Default(path.MustAbsolute(home))
	f := &File{
		Home:        str("/Users/me"),
		Machine:     str("laptop"),
		Concurrency: &n,
		Timeout:     str("90s"),
		Ignore:      []string{"**/*.swp"},
	}
	require.NoError(t, f.Apply(cfg))

	assert.Equal(t, "/Users/me", cfg.Home.String())
	assert.Equal(t, "/Users/me/.files", cfg.FilesDir.String(), "default files dir follows home")
	assert.Equal(t, "laptop", cfg.Machine)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"**/*.swp"}, cfg.Ignore)
	assert.Contains(t, cfg.Exclusion().Globs, "**/*.swp")
	assert.Contains(t, cfg.Exclusion().Names, ".git")

	t.Run("files_dir_relative_to_home", func(t *testing.T) {
		cfg := Default(path.MustAbsolute(home))
		require.NoError(t, (&File{FilesDir: str("~/dotfiles")}).Apply(cfg))
		assert.Equal(t, "/home/me/dotfiles", cfg.FilesDir.String())

		require.NoError(t, (&File{FilesDir: str("sync")}).Apply(cfg))
		assert.Equal(t, "/home/me/sync", cfg.FilesDir.String())
	})

	t.Run("bad_timeout", func(t *testing.T) {
		cfg := Default(path.MustAbsolute(home))
		err := (&File{Timeout: str("soon")}).Apply(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})
}

func TestResolve(t *testing.T) {
	ctx := testContext(t)

	t.Run("defaults_without_file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		cfg, err := Resolve(ctx, fs, Options{Home: home})
		require.NoError(t, err)
		assert.Empty(t, cfg.Source)
		assert.Equal(t, "/home/me/.files", cfg.FilesDir.String())
	})

	t.Run("finds_file_in_files_dir", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/home/me/.files/config.yaml", []byte("machine: desk\nconcurrency: 2\n"), 0o644))

		cfg, err := Resolve(ctx, fs, Options{Home: home})
		require.NoError(t, err)
		assert.Equal(t, "/home/me/.files/config.yaml", cfg.Source)
		assert.Equal(t, "desk", cfg.Machine)
		assert.Equal(t, 2, cfg.Concurrency)
	})

	t.Run("hcl_preferred", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/home/me/.files/config.yaml", []byte("machine: yaml\n"), 0o644))
		require.NoError(t, afero.WriteFile(fs, "/home/me/.files/config.hcl", []byte(`machine = "hcl"`), 0o644))

		cfg, err := Resolve(ctx, fs, Options{Home: home})
		require.NoError(t, err)
		assert.Equal(t, "hcl", cfg.Machine)
	})

	t.Run("explicit_path_must_exist", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		_, err := Resolve(ctx, fs, Options{Home: home, Path: "/etc/mf.toml"})
		require.Error(t, err)
	})

	t.Run("invalid_values_rejected", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/etc/mf.json", []byte(`{"machine": "laptop", "concurrency": -1}`), 0o644))

		_, err := Resolve(ctx, fs, Options{Home: home, Path: "/etc/mf.json"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "concurrency")
	})
}
