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

package git_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/metafiles/pkg/path"
	"github.com/walteh/metafiles/pkg/remote"
	"github.com/walteh/metafiles/pkg/remote/git"
)

func setup(t *testing.T) context.Context {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	t.Setenv("HOME", t.TempDir())
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "mf test")
	t.Setenv("GIT_AUTHOR_EMAIL", "mf@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "mf test")
	t.Setenv("GIT_COMMITTER_EMAIL", "mf@example.com")

	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

func bareRemote(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "remote.git")
	gitCmd(t, "", "init", "--quiet", "--bare", "--initial-branch", "master", dir)
	return dir
}

type machine struct {
	*git.Git
	layout remote.Layout
}

func newMachine(t *testing.T, name string) machine {
	t.Helper()
	root := t.TempDir()
	l := remote.Layout{
		Common:  path.MustAbsolute(filepath.Join(root, "store", "master")),
		Shadow:  path.MustAbsolute(filepath.Join(root, "store", "local")),
		Machine: name,
		Branch:  "master",
		Remote:  "origin",
	}
	g, err := git.New(l)
	require.NoError(t, err)
	return machine{Git: g, layout: l}
}

func (m machine) write(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(m.layout.Shadow.String(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func (m machine) read(t *testing.T, root path.AbsolutePath, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root.String(), rel))
	require.NoError(t, err)
	return string(b)
}

// publish creates a store for m on remoteDir holding one file and pushes it.
func (m machine) publish(ctx context.Context, t *testing.T, remoteDir, rel, content string) {
	t.Helper()
	require.NoError(t, m.Create(ctx))
	gitCmd(t, m.layout.Common.String(), "remote", "add", "origin", remoteDir)

	m.write(t, rel, content)
	committed, err := m.Commit(ctx, "add "+rel)
	require.NoError(t, err)
	require.True(t, committed)
	require.NoError(t, m.MergeShadowIntoCommon(ctx))
	require.NoError(t, m.Push(ctx))
}

func TestNew(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	tests := []struct {
		name   string
		layout remote.Layout
	}{
		{name: "missing_paths", layout: remote.Layout{Machine: "laptop"}},
		{name: "missing_machine", layout: remote.Layout{Common: path.MustAbsolute("/a"), Shadow: path.MustAbsolute("/b")}},
		{name: "machine_is_branch", layout: remote.Layout{Common: path.MustAbsolute("/a"), Shadow: path.MustAbsolute("/b"), Machine: "master"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := git.New(tt.layout)
			require.Error(t, err)
		})
	}

	t.Run("registered", func(t *testing.T) {
		b, err := remote.New(remote.TypeGit, remote.Layout{
			Common:  path.MustAbsolute("/a"),
			Shadow:  path.MustAbsolute("/b"),
			Machine: "laptop",
		})
		require.NoError(t, err)
		assert.Equal(t, remote.TypeGit, b.Type())
	})
}

func TestCreate(t *testing.T) {
	ctx := setup(t)
	m := newMachine(t, "laptop")

	require.NoError(t, m.Create(ctx))

	assert.Contains(t, m.read(t, m.layout.Common, ".files/README.md"), "managed by mf")
	assert.Contains(t, m.read(t, m.layout.Shadow, ".files/README.md"), "managed by mf", "shadow starts from the init tag")
	assert.Equal(t, "laptop", gitCmd(t, m.layout.Shadow.String(), "rev-parse", "--abbrev-ref", "HEAD"))
	assert.Equal(t, "master", gitCmd(t, m.layout.Common.String(), "rev-parse", "--abbrev-ref", "HEAD"))
	assert.Equal(t,
		gitCmd(t, m.layout.Common.String(), "rev-parse", "master"),
		gitCmd(t, m.layout.Common.String(), "rev-parse", git.InitTag+"^{commit}"),
	)

	err := m.Create(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrAlreadyInitialized)
}

func TestUninitialized(t *testing.T) {
	ctx := setup(t)
	m := newMachine(t, "laptop")

	_, _, err := m.Refresh(ctx)
	assert.ErrorIs(t, err, remote.ErrNotInitialized)

	_, err = m.Commit(ctx, "nothing")
	assert.ErrorIs(t, err, remote.ErrNotInitialized)
}

func TestCommitAndShadowAhead(t *testing.T) {
	ctx := setup(t)
	m := newMachine(t, "laptop")
	require.NoError(t, m.Create(ctx))

	committed, err := m.Commit(ctx, "empty")
	require.NoError(t, err)
	assert.False(t, committed, "nothing to commit")

	ahead, err := m.ShadowAhead(ctx)
	require.NoError(t, err)
	assert.False(t, ahead)

	m.write(t, ".bashrc", "export EDITOR=vi\n")
	committed, err = m.Commit(ctx, "add .bashrc")
	require.NoError(t, err)
	assert.True(t, committed)

	ahead, err = m.ShadowAhead(ctx)
	require.NoError(t, err)
	assert.True(t, ahead)

	require.NoError(t, m.MergeShadowIntoCommon(ctx))
	assert.Equal(t, "export EDITOR=vi\n", m.read(t, m.layout.Common, ".bashrc"))

	ahead, err = m.ShadowAhead(ctx)
	require.NoError(t, err)
	assert.False(t, ahead)
}

func TestWithoutRemote(t *testing.T) {
	ctx := setup(t)
	m := newMachine(t, "laptop")
	require.NoError(t, m.Create(ctx))

	status, changed, err := m.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, remote.StatusNone, status)
	assert.False(t, changed)

	err = m.Push(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrNoRemote)
}

func TestRefreshOffline(t *testing.T) {
	ctx := setup(t)
	m := newMachine(t, "laptop")
	require.NoError(t, m.Create(ctx))
	gitCmd(t, m.layout.Common.String(), "remote", "add", "origin", filepath.Join(t.TempDir(), "gone.git"))

	status, changed, err := m.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, remote.StatusOffline, status)
	assert.False(t, changed)
}

func TestJoinAndMerge(t *testing.T) {
	ctx := setup(t)
	origin := bareRemote(t)

	laptop := newMachine(t, "laptop")
	laptop.publish(ctx, t, origin, ".bashrc", "alias ll='ls -l'\n")

	desktop := newMachine(t, "desktop")
	require.NoError(t, desktop.Join(ctx, origin))

	assert.Equal(t, "desktop", gitCmd(t, desktop.layout.Shadow.String(), "rev-parse", "--abbrev-ref", "HEAD"))
	assert.NoFileExists(t, filepath.Join(desktop.layout.Shadow.String(), ".bashrc"), "new machines start from init")

	status, changed, err := desktop.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, remote.StatusLive, status)
	assert.True(t, changed)

	require.NoError(t, desktop.MergeCommonIntoShadow(ctx))
	assert.Equal(t, "alias ll='ls -l'\n", desktop.read(t, desktop.layout.Shadow, ".bashrc"))

	_, changed, err = desktop.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	t.Run("upstream_change_reaches_shadow", func(t *testing.T) {
		laptop.write(t, ".vimrc", "set number\n")
		_, err := laptop.Commit(ctx, "add .vimrc")
		require.NoError(t, err)
		require.NoError(t, laptop.MergeShadowIntoCommon(ctx))
		require.NoError(t, laptop.Push(ctx))

		status, changed, err := desktop.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, remote.StatusLive, status)
		assert.True(t, changed)

		require.NoError(t, desktop.MergeCommonIntoShadow(ctx))
		assert.Equal(t, "set number\n", desktop.read(t, desktop.layout.Shadow, ".vimrc"))
	})
}

func TestJoinTracksExistingMachineBranch(t *testing.T) {
	ctx := setup(t)
	origin := bareRemote(t)

	laptop := newMachine(t, "laptop")
	laptop.publish(ctx, t, origin, ".bashrc", "laptop\n")

	again := newMachine(t, "laptop")
	require.NoError(t, again.Join(ctx, origin))

	assert.Equal(t, "laptop\n", again.read(t, again.layout.Shadow, ".bashrc"))
	assert.Equal(t, "origin/laptop", gitCmd(t, again.layout.Shadow.String(), "rev-parse", "--abbrev-ref", "laptop@{upstream}"))
}

func TestMergeConflict(t *testing.T) {
	ctx := setup(t)
	origin := bareRemote(t)

	laptop := newMachine(t, "laptop")
	laptop.publish(ctx, t, origin, ".bashrc", "from laptop\n")

	desktop := newMachine(t, "desktop")
	require.NoError(t, desktop.Join(ctx, origin))
	desktop.write(t, ".bashrc", "from desktop\n")
	_, err := desktop.Commit(ctx, "add .bashrc")
	require.NoError(t, err)

	_, changed, err := desktop.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, changed)

	err = desktop.MergeCommonIntoShadow(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrConflicts)
	assert.True(t, remote.IsUserActionRequired(err))
	assert.Contains(t, err.Error(), ".bashrc")

	assert.Equal(t, "from desktop\n", desktop.read(t, desktop.layout.Shadow, ".bashrc"), "aborted merge leaves the shadow store as it was")
	assert.Empty(t, gitCmd(t, desktop.layout.Shadow.String(), "status", "--porcelain"))
}

func TestInherit(t *testing.T) {
	ctx := setup(t)
	origin := bareRemote(t)

	laptop := newMachine(t, "laptop")
	laptop.publish(ctx, t, origin, ".gitconfig", "[user]\n\tname = me\n")

	desktop := newMachine(t, "desktop")
	require.NoError(t, desktop.Join(ctx, origin))

	require.NoError(t, desktop.Inherit(ctx, "laptop"))
	assert.Equal(t, "[user]\n\tname = me\n", desktop.read(t, desktop.layout.Shadow, ".gitconfig"))

	err := desktop.Inherit(ctx, "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrRefNotFound)
}
