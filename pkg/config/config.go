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
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/metafiles/pkg/node"
	"github.com/walteh/metafiles/pkg/path"
	"github.com/walteh/metafiles/pkg/remote"
	"github.com/walteh/metafiles/pkg/store"
)

const (
	DefaultFilesDir    = ".files"
	DefaultStoreType   = "git"
	DefaultRemote      = "origin"
	DefaultBranch      = "master"
	DefaultConcurrency = 8
	DefaultTimeout     = 10 * time.Minute
)

// refName is what a machine or branch name may contain.
var refName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// 📚 Config is built once at startup and handed to everything that needs a
// store location.
type Config struct {
	Home     path.AbsolutePath
	FilesDir path.AbsolutePath

	Machine   string
	StoreType remote.Type
	Remote    string
	Branch    string
	Mirror    string

	Concurrency int
	Timeout     time.Duration

	LogFile   string
	Ignore    []string
	GitHubSSH bool

	// Source is the file the config was read from, if any.
	Source string
}

// 🏭 Default builds the configuration for home with no config file.
func Default(home path.AbsolutePath) *Config {
	return &Config{
		Home:        home,
		FilesDir:    home.Join(path.MustRelative(DefaultFilesDir)),
		Machine:     machineName(),
		StoreType:   DefaultStoreType,
		Remote:      DefaultRemote,
		Branch:      DefaultBranch,
		Mirror:      store.MirrorFSRoot,
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
	}
}

// machineName derives a branch-safe name from the hostname.
func machineName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	host, _, _ = strings.Cut(strings.ToLower(host), ".")
	return sanitize(host)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-_")
	if out == "" {
		return "localhost"
	}
	return out
}

// StoreDir holds both stores.
func (c *Config) StoreDir() path.AbsolutePath {
	return c.FilesDir.Join(path.MustRelative("store"))
}

// CommonDir is the store shared between machines.
func (c *Config) CommonDir() path.AbsolutePath {
	return c.StoreDir().Join(path.MustRelative("master"))
}

// ShadowDir is this machine's staging store.
func (c *Config) ShadowDir() path.AbsolutePath {
	return c.StoreDir().Join(path.MustRelative("local"))
}

// StateFile records whether and how the store was initialized.
func (c *Config) StateFile() path.AbsolutePath {
	return c.FilesDir.Join(path.MustRelative("state.json"))
}

// CommonStore views the common store directory as a Store.
func (c *Config) CommonStore() *store.Store {
	return store.New(c.CommonDir(), c.Home, c.Mirror)
}

// ShadowStore views the shadow store directory as a Store.
func (c *Config) ShadowStore() *store.Store {
	return store.New(c.ShadowDir(), c.Home, c.Mirror)
}

// Layout is the remote backend's view of the stores.
func (c *Config) Layout() remote.Layout {
	return remote.Layout{
		Common:  c.CommonDir(),
		Shadow:  c.ShadowDir(),
		Machine: c.Machine,
		Branch:  c.Branch,
		Remote:  c.Remote,
	}
}

// Exclusion is the fixed denylist plus the configured ignore globs.
func (c *Config) Exclusion() node.Exclusion {
	return store.WithGlobs(c.Ignore...)
}

// 🔍 Validate rejects settings the stores cannot work with. The store type
// must have a registered backend.
func (c *Config) Validate() error {
	if c.Home.IsZero() {
		return errors.New("home is required")
	}
	if c.FilesDir.IsZero() {
		return errors.New("files_dir is required")
	}
	if !refName.MatchString(c.Machine) {
		return errors.Errorf("invalid machine name %q", c.Machine)
	}
	if !refName.MatchString(c.Branch) {
		return errors.Errorf("invalid branch name %q", c.Branch)
	}
	if c.Machine == c.Branch {
		return errors.Errorf("machine name %q collides with the common branch", c.Machine)
	}
	if c.Remote == "" {
		return errors.New("remote is required")
	}
	if !remote.IsRegistered(c.StoreType) {
		return errors.Errorf("%w: %q", remote.ErrUnknownType, c.StoreType)
	}
	if c.Mirror != store.MirrorFSRoot && c.Mirror != store.MirrorRootFS {
		return errors.Errorf("mirror must be %s or %s, got %q", store.MirrorFSRoot, store.MirrorRootFS, c.Mirror)
	}
	if c.Concurrency <= 0 {
		return errors.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.Timeout < 0 {
		return errors.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	for _, g := range c.Ignore {
		if !doublestar.ValidatePattern(g) {
			return errors.Errorf("invalid ignore glob %q", g)
		}
	}
	return nil
}

// 📝 String summarizes the store layout.
func (c *Config) String() string {
	return fmt.Sprintf("%s store for %s at %s (remote %s, branch %s)", c.StoreType, c.Machine, c.StoreDir(), c.Remote, c.Branch)
}

// 📁 File is the on-disk configuration. Unset fields keep their defaults.
type File struct {
	Home        *string  `json:"home,omitempty" yaml:"home,omitempty" toml:"home,omitempty" hcl:"home,optional"`
	FilesDir    *string  `json:"files_dir,omitempty" yaml:"files_dir,omitempty" toml:"files_dir,omitempty" hcl:"files_dir,optional"`
	Machine     *string  `json:"machine,omitempty" yaml:"machine,omitempty" toml:"machine,omitempty" hcl:"machine,optional"`
	StoreType   *string  `json:"store_type,omitempty" yaml:"store_type,omitempty" toml:"store_type,omitempty" hcl:"store_type,optional"`
	Remote      *string  `json:"remote,omitempty" yaml:"remote,omitempty" toml:"remote,omitempty" hcl:"remote,optional"`
	Branch      *string  `json:"branch,omitempty" yaml:"branch,omitempty" toml:"branch,omitempty" hcl:"branch,optional"`
	Mirror      *string  `json:"mirror,omitempty" yaml:"mirror,omitempty" toml:"mirror,omitempty" hcl:"mirror,optional"`
	Concurrency *int     `json:"concurrency,omitempty" yaml:"concurrency,omitempty" toml:"concurrency,omitempty" hcl:"concurrency,optional"`
	Timeout     *string  `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty" hcl:"timeout,optional"`
	LogFile     *string  `json:"log_file,omitempty" yaml:"log_file,omitempty" toml:"log_file,omitempty" hcl:"log_file,optional"`
	Ignore      []string `json:"ignore,omitempty" yaml:"ignore,omitempty" toml:"ignore,omitempty" hcl:"ignore,optional"`
	GitHubSSH   *bool    `json:"github_ssh,omitempty" yaml:"github_ssh,omitempty" toml:"github_ssh,omitempty" hcl:"github_ssh,optional"`
}

// expand resolves "~" and relative paths against home.
func expand(s string, home path.AbsolutePath) (path.AbsolutePath, error) {
	switch {
	case s == "~":
		return home, nil
	case strings.HasPrefix(s, "~/"):
		return path.NewAbsoluteFrom(strings.TrimPrefix(s, "~/"), home)
	case path.IsAbsolute(s):
		return path.NewAbsolute(s)
	default:
		return path.NewAbsoluteFrom(s, home)
	}
}

// Apply overlays the fields set in f onto c.
func (f *File) Apply(c *Config) error {
	if f.Home != nil {
		home, err := expand(*f.Home, c.Home)
		if err != nil {
			return errors.Errorf("home: %w", err)
		}
		moved := c.FilesDir.Equal(c.Home.Join(path.MustRelative(DefaultFilesDir)))
		c.Home = home
		if moved {
			c.FilesDir = home.Join(path.MustRelative(DefaultFilesDir))
		}
	}
	if f.FilesDir != nil {
		dir, err := expand(*f.FilesDir, c.Home)
		if err != nil {
			return errors.Errorf("files_dir: %w", err)
		}
		c.FilesDir = dir
	}
	if f.Machine != nil {
		c.Machine = *f.Machine
	}
	if f.StoreType != nil {
		c.StoreType = remote.Type(*f.StoreType)
	}
	if f.Remote != nil {
		c.Remote = *f.Remote
	}
	if f.Branch != nil {
		c.Branch = *f.Branch
	}
	if f.Mirror != nil {
		c.Mirror = *f.Mirror
	}
	if f.Concurrency != nil {
		c.Concurrency = *f.Concurrency
	}
	if f.Timeout != nil {
		d, err := time.ParseDuration(*f.Timeout)
		if err != nil {
			return errors.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	if f.LogFile != nil {
		c.LogFile = *f.LogFile
	}
	if f.Ignore != nil {
		c.Ignore = append(c.Ignore, f.Ignore...)
	}
	if f.GitHubSSH != nil {
		c.GitHubSSH = *f.GitHubSSH
	}
	return nil
}

// Options selects where configuration comes from.
type Options struct {
	// Home overrides $HOME.
	Home string
	// Path is an explicit config file. It must exist when set.
	Path string
}

// 🎯 Resolve builds the configuration: defaults, then the config file found
// in the files dir or named by opts.Path, then validation.
func Resolve(ctx context.Context, fs afero.Fs, opts Options) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	homeStr := opts.Home
	if homeStr == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Errorf("finding home directory: %w", err)
		}
		homeStr = h
	}
	home, err := path.NewAbsolute(homeStr)
	if err != nil {
		return nil, errors.Errorf("home directory: %w", err)
	}

	cfg := Default(home)

	file := opts.Path
	if file == "" {
		file, err = Find(fs, cfg.FilesDir)
		if err != nil {
			return nil, err
		}
	}

	if file != "" {
		logger.Debug().Str("path", file).Msg("loading configuration")
		f, err := Load(ctx, fs, file)
		if err != nil {
			return nil, err
		}
		if err := f.Apply(cfg); err != nil {
			return nil, errors.Errorf("applying %s: %w", file, err)
		}
		cfg.Source = file
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	return cfg, nil
}
