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

// Package git backs the stores with git: the common store is a regular
// checkout on the shared branch and the shadow store is a worktree of it on
// the machine's own branch, so both share one object database and one set of
// refs.
package git

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/metafiles/pkg/path"
	"github.com/walteh/metafiles/pkg/remote"
)

// InitTag marks the first commit of every store. New machine branches start
// from it.
const InitTag = "init"

const readme = `# metafiles store

This repository is managed by mf. Each machine keeps its files on a branch
named after it; the shared branch holds what every machine agrees on.

Files under .files/fsroot mirror paths outside the home directory. Everything
else is relative to the home directory.
`

func init() {
	remote.Register(remote.TypeGit, func(l remote.Layout) (remote.Backend, error) {
		return New(l)
	})
}

// 🌳 Git implements remote.Backend with the git binary.
type Git struct {
	layout remote.Layout
	fs     afero.Fs
	bin    string
}

// New checks the layout and locates the git binary.
func New(l remote.Layout) (*Git, error) {
	if l.Common.IsZero() || l.Shadow.IsZero() {
		return nil, errors.New("common and shadow store paths are required")
	}
	if l.Machine == "" {
		return nil, errors.New("machine name is required")
	}
	if l.Branch == "" {
		l.Branch = "master"
	}
	if l.Remote == "" {
		l.Remote = "origin"
	}
	if l.Machine == l.Branch {
		return nil, errors.Errorf("machine name %q collides with the common branch", l.Machine)
	}

	bin, err := exec.LookPath("git")
	if err != nil {
		return nil, errors.Errorf("locating git: %w", err)
	}

	return &Git{layout: l, fs: afero.NewOsFs(), bin: bin}, nil
}

func (g *Git) Type() remote.Type { return remote.TypeGit }

// run runs git in dir and returns its trimmed combined output.
func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.bin, args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	zerolog.Ctx(ctx).Trace().Str("dir", dir).Strs("args", args).Msg("git")

	err := cmd.Run()
	text := strings.TrimSpace(out.String())
	if err != nil {
		if ctx.Err() != nil {
			return text, errors.Errorf("git %s: %w", strings.Join(args, " "), ctx.Err())
		}
		return text, errors.Errorf("git %s: %w: %s", strings.Join(args, " "), err, text)
	}
	return text, nil
}

func (g *Git) common(ctx context.Context, args ...string) (string, error) {
	return g.run(ctx, g.layout.Common.String(), args...)
}

func (g *Git) shadow(ctx context.Context, args ...string) (string, error) {
	return g.run(ctx, g.layout.Shadow.String(), args...)
}

// refExists reports whether ref resolves to a commit.
func (g *Git) refExists(ctx context.Context, ref string) bool {
	_, err := g.common(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	return err == nil
}

// count returns the number of commits reachable from to but not from.
func (g *Git) count(ctx context.Context, from, to string) (int, error) {
	out, err := g.common(ctx, "rev-list", "--count", from+".."+to)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, errors.Errorf("parsing rev-list count %q: %w", out, err)
	}
	return n, nil
}

func (g *Git) hasRemote(ctx context.Context) (bool, error) {
	out, err := g.common(ctx, "remote")
	if err != nil {
		return false, err
	}
	for _, r := range strings.Fields(out) {
		if r == g.layout.Remote {
			return true, nil
		}
	}
	return false, nil
}

func (g *Git) tracking(branch string) string {
	return "refs/remotes/" + g.layout.Remote + "/" + branch
}

func (g *Git) ensureAbsent() error {
	for _, p := range []string{g.layout.Common.String(), g.layout.Shadow.String()} {
		ok, err := afero.Exists(g.fs, p)
		if err != nil {
			return errors.Errorf("checking %s: %w", p, err)
		}
		if !ok {
			continue
		}
		empty, err := afero.IsEmpty(g.fs, p)
		if err != nil {
			return errors.Errorf("checking %s: %w", p, err)
		}
		if !empty {
			return errors.Errorf("%w: %s is not empty", remote.ErrAlreadyInitialized, p)
		}
	}
	return nil
}

func (g *Git) ensureInitialized() error {
	ok, err := afero.Exists(g.fs, g.layout.Shadow.Join(path.MustRelative(".git")).String())
	if err != nil {
		return errors.Errorf("checking shadow store: %w", err)
	}
	if !ok {
		return errors.Errorf("%w: no shadow store at %s", remote.ErrNotInitialized, g.layout.Shadow)
	}
	return nil
}

// 🆕 Create starts a common store with a README on the shared branch, tags
// it, and checks out the machine branch from the tag as the shadow store.
func (g *Git) Create(ctx context.Context) error {
	if err := g.ensureAbsent(); err != nil {
		return err
	}

	common := g.layout.Common.String()
	if err := g.fs.MkdirAll(common, 0o755); err != nil {
		return errors.Errorf("creating common store: %w", err)
	}
	if _, err := g.common(ctx, "init", "--initial-branch", g.layout.Branch); err != nil {
		return errors.Errorf("initializing common store: %w", err)
	}

	meta := g.layout.Common.Join(path.MustRelative(".files"))
	readmePath := meta.Join(path.MustRelative("README.md")).String()
	if err := g.fs.MkdirAll(meta.String(), 0o755); err != nil {
		return errors.Errorf("creating store metadata dir: %w", err)
	}
	if err := afero.WriteFile(g.fs, readmePath, []byte(readme), 0o644); err != nil {
		return errors.Errorf("writing store readme: %w", err)
	}

	if _, err := g.common(ctx, "add", ".files/README.md"); err != nil {
		return errors.Errorf("staging readme: %w", err)
	}
	if _, err := g.common(ctx, "commit", "--quiet", "-m", "init"); err != nil {
		return errors.Errorf("committing readme: %w", err)
	}
	if _, err := g.common(ctx, "tag", InitTag); err != nil {
		return errors.Errorf("tagging init: %w", err)
	}

	return g.addShadow(ctx, false)
}

// 🤝 Join clones uri as the common store. The shadow store tracks the
// machine's remote branch when one exists and starts from the init tag
// otherwise.
func (g *Git) Join(ctx context.Context, uri string) error {
	if err := g.ensureAbsent(); err != nil {
		return err
	}

	if _, err := g.run(ctx, "", "clone", "--quiet", "--origin", g.layout.Remote, "--branch", g.layout.Branch, uri, g.layout.Common.String()); err != nil {
		return errors.Errorf("cloning %s: %w", uri, err)
	}

	return g.addShadow(ctx, g.refExists(ctx, g.tracking(g.layout.Machine)))
}

func (g *Git) addShadow(ctx context.Context, track bool) error {
	shadow := g.layout.Shadow.String()
	machine := g.layout.Machine

	var args []string
	switch {
	case track:
		args = []string{"worktree", "add", "--quiet", "--track", "-b", machine, shadow, g.layout.Remote + "/" + machine}
	case g.refExists(ctx, "refs/tags/"+InitTag):
		args = []string{"worktree", "add", "--quiet", "-b", machine, shadow, InitTag}
	case g.refExists(ctx, g.layout.Branch):
		args = []string{"worktree", "add", "--quiet", "-b", machine, shadow, g.layout.Branch}
	default:
		return errors.Errorf("%w: neither tag %s nor branch %s", remote.ErrRefNotFound, InitTag, g.layout.Branch)
	}

	if _, err := g.common(ctx, args...); err != nil {
		return errors.Errorf("creating shadow store: %w", err)
	}
	return nil
}

// 🔄 Refresh fetches the remote. A failed fetch means offline, not an error.
func (g *Git) Refresh(ctx context.Context) (remote.Status, bool, error) {
	if err := g.ensureInitialized(); err != nil {
		return "", false, err
	}

	logger := zerolog.Ctx(ctx)
	status := remote.StatusNone

	ok, err := g.hasRemote(ctx)
	if err != nil {
		return "", false, errors.Errorf("listing remotes: %w", err)
	}
	if ok {
		status = remote.StatusLive
		if _, err := g.common(ctx, "fetch", "--quiet", "--tags", g.layout.Remote); err != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			logger.Warn().Err(err).Str("remote", g.layout.Remote).Msg("fetch failed, continuing offline")
			status = remote.StatusOffline
		}
	}

	refs := []string{g.layout.Branch}
	if t := g.tracking(g.layout.Branch); g.refExists(ctx, t) {
		refs = append(refs, t)
	}

	changed := false
	for _, ref := range refs {
		n, err := g.count(ctx, g.layout.Machine, ref)
		if err != nil {
			return "", false, errors.Errorf("comparing %s with %s: %w", g.layout.Machine, ref, err)
		}
		changed = changed || n > 0
	}

	logger.Debug().Str("status", string(status)).Bool("common_changed", changed).Msg("refreshed")
	return status, changed, nil
}

// 📝 Commit stages everything in the shadow store and commits it.
func (g *Git) Commit(ctx context.Context, message string) (bool, error) {
	if err := g.ensureInitialized(); err != nil {
		return false, err
	}

	if _, err := g.shadow(ctx, "add", "--all"); err != nil {
		return false, errors.Errorf("staging shadow store: %w", err)
	}
	out, err := g.shadow(ctx, "status", "--porcelain")
	if err != nil {
		return false, errors.Errorf("reading shadow status: %w", err)
	}
	if out == "" {
		return false, nil
	}
	if _, err := g.shadow(ctx, "commit", "--quiet", "-m", message); err != nil {
		return false, errors.Errorf("committing shadow store: %w", err)
	}
	return true, nil
}

func (g *Git) ShadowAhead(ctx context.Context) (bool, error) {
	if err := g.ensureInitialized(); err != nil {
		return false, err
	}
	n, err := g.count(ctx, g.layout.Branch, g.layout.Machine)
	if err != nil {
		return false, errors.Errorf("comparing %s with %s: %w", g.layout.Branch, g.layout.Machine, err)
	}
	return n > 0, nil
}

// merge merges ref into the checkout at dir, aborting on conflicts.
func (g *Git) merge(ctx context.Context, dir, ref string) error {
	_, err := g.run(ctx, dir, "merge", "--no-edit", "--quiet", ref)
	if err == nil {
		return nil
	}

	conflicted, lerr := g.run(ctx, dir, "diff", "--name-only", "--diff-filter=U")
	if lerr != nil || conflicted == "" {
		return errors.Errorf("merging %s: %w", ref, err)
	}

	if _, aerr := g.run(ctx, dir, "merge", "--abort"); aerr != nil {
		zerolog.Ctx(ctx).Error().Err(aerr).Str("dir", dir).Msg("aborting merge")
	}
	return errors.Errorf("%w: merging %s: %s", remote.ErrConflicts, ref, strings.Join(strings.Fields(conflicted), ", "))
}

// ⬇️ MergeCommonIntoShadow first folds the remote's shared branch into the
// local one, then the shared branch into the machine branch.
func (g *Git) MergeCommonIntoShadow(ctx context.Context) error {
	if err := g.ensureInitialized(); err != nil {
		return err
	}

	if t := g.tracking(g.layout.Branch); g.refExists(ctx, t) {
		if err := g.merge(ctx, g.layout.Common.String(), t); err != nil {
			return errors.Errorf("updating common store: %w", err)
		}
	}

	if err := g.merge(ctx, g.layout.Shadow.String(), g.layout.Branch); err != nil {
		return errors.Errorf("updating shadow store: %w", err)
	}
	return nil
}

// ⬆️ MergeShadowIntoCommon merges the machine branch into the shared branch.
func (g *Git) MergeShadowIntoCommon(ctx context.Context) error {
	if err := g.ensureInitialized(); err != nil {
		return err
	}
	if err := g.merge(ctx, g.layout.Common.String(), g.layout.Machine); err != nil {
		return errors.Errorf("updating common store: %w", err)
	}
	return nil
}

// 🚀 Push uploads the shared branch, the machine branch and the init tag.
func (g *Git) Push(ctx context.Context) error {
	if err := g.ensureInitialized(); err != nil {
		return err
	}

	ok, err := g.hasRemote(ctx)
	if err != nil {
		return errors.Errorf("listing remotes: %w", err)
	}
	if !ok {
		return errors.Errorf("%w: %s", remote.ErrNoRemote, g.layout.Remote)
	}

	args := []string{"push", "--quiet", "--porcelain", g.layout.Remote, g.layout.Branch, g.layout.Machine}
	if g.refExists(ctx, "refs/tags/"+InitTag) {
		args = append(args, "refs/tags/"+InitTag)
	}

	out, err := g.common(ctx, args...)
	if err != nil {
		if strings.Contains(out, "rejected") || strings.Contains(out, "non-fast-forward") {
			return errors.Errorf("%w: %s", remote.ErrPushRejected, out)
		}
		return errors.Errorf("pushing: %w", err)
	}
	return nil
}

// 🧬 Inherit merges machine's branch into the shadow store, preferring a
// local branch over the remote's.
func (g *Git) Inherit(ctx context.Context, machine string) error {
	if err := g.ensureInitialized(); err != nil {
		return err
	}
	if machine == "" {
		return errors.New("machine to inherit from is required")
	}

	for _, ref := range []string{"refs/heads/" + machine, g.tracking(machine)} {
		if !g.refExists(ctx, ref) {
			continue
		}
		if err := g.merge(ctx, g.layout.Shadow.String(), ref); err != nil {
			return errors.Errorf("inheriting %s: %w", machine, err)
		}
		return nil
	}
	return errors.Errorf("%w: no branch for machine %s", remote.ErrRefNotFound, machine)
}
