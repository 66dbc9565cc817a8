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

package store

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/metafiles/pkg/node"
	"github.com/walteh/metafiles/pkg/path"
)

const defaultConcurrency = 8

// SyncOptions tunes SyncStore.
type SyncOptions struct {
	// Concurrency bounds parallel copies. Zero means 8.
	Concurrency int

	// SkipMissing records mappings whose source does not exist as skipped
	// instead of failed.
	SkipMissing bool

	// OnCopy, when set, is called after each mapping is attempted.
	OnCopy func(m Mapping, err error)
}

// CopyFailure is one mapping that could not be copied.
type CopyFailure struct {
	Mapping Mapping
	Err     error
}

// SyncResult lists the outcome of every mapping in map order.
type SyncResult struct {
	Copied  []Mapping
	Skipped []Mapping
	Failed  []CopyFailure
}

// Err joins every copy failure, or returns nil when all copies succeeded.
func (r *SyncResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, errors.Errorf("copying %s to %s: %w", f.Mapping.LocalFile, f.Mapping.StoreFile, f.Err))
	}
	return errors.Join(errs...)
}

type outcome int

const (
	outcomeCopied outcome = iota
	outcomeSkipped
	outcomeFailed
)

// 🔄 SyncStore copies every LocalFile to its StoreFile. All copies are
// attempted; failures are collected in the result rather than stopping the
// batch. Only cancellation of ctx stops copies that have not started.
func SyncStore(ctx context.Context, fs afero.Fs, fm FileMap, opts SyncOptions) *SyncResult {
	logger := zerolog.Ctx(ctx)

	limit := opts.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	outcomes := make([]outcome, len(fm))
	errs := make([]error, len(fm))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, m := range fm {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i], errs[i] = outcomeFailed, err
				return nil
			}

			if opts.SkipMissing {
				ok, err := node.Exists(fs, m.LocalFile)
				if err == nil && !ok {
					outcomes[i] = outcomeSkipped
					logger.Debug().Str("source", m.LocalFile.String()).Msg("source missing, skipping")
					return nil
				}
			}

			err := CopyFile(fs, m.LocalFile, m.StoreFile)
			if err != nil {
				outcomes[i], errs[i] = outcomeFailed, err
				logger.Warn().Err(err).Str("source", m.LocalFile.String()).Str("target", m.StoreFile.String()).Msg("copy failed")
			} else {
				outcomes[i] = outcomeCopied
				logger.Debug().Str("source", m.LocalFile.String()).Str("target", m.StoreFile.String()).Msg("copied")
			}
			if opts.OnCopy != nil {
				opts.OnCopy(m, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := &SyncResult{}
	for i, m := range fm {
		switch outcomes[i] {
		case outcomeCopied:
			res.Copied = append(res.Copied, m)
		case outcomeSkipped:
			res.Skipped = append(res.Skipped, m)
		case outcomeFailed:
			res.Failed = append(res.Failed, CopyFailure{Mapping: m, Err: errs[i]})
		}
	}
	return res
}

// 📋 CopyFile copies the content and permissions of from into to, creating
// the missing parent chain of to first.
func CopyFile(fs afero.Fs, from, to path.AbsolutePath) error {
	src, err := fs.Open(from.String())
	if err != nil {
		return errors.Errorf("opening source %s: %w", from, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return errors.Errorf("stating source %s: %w", from, err)
	}
	if info.IsDir() {
		return errors.Errorf("source %s is a directory", from)
	}

	if err := ensureParent(fs, to); err != nil {
		return err
	}

	dst, err := fs.OpenFile(to.String(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Errorf("creating target %s: %w", to, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return errors.Errorf("writing target %s: %w", to, err)
	}
	if err := dst.Close(); err != nil {
		return errors.Errorf("closing target %s: %w", to, err)
	}
	return nil
}

// ensureParent walks up from the parent of target to the first existing
// ancestor (following symlinks), which must be a directory, then creates the
// missing chain in one step.
func ensureParent(fs afero.Fs, target path.AbsolutePath) error {
	parent := target.Dirname()
	missing := false
	for cur := parent; ; cur = cur.Dirname() {
		fi, err := fs.Stat(cur.String())
		if err == nil {
			if !fi.IsDir() {
				return errors.Errorf("parent %s of %s is not a directory", cur, target)
			}
			break
		}
		if !os.IsNotExist(err) {
			return errors.Errorf("checking parent %s: %w", cur, err)
		}
		missing = true
		if cur.IsRoot() {
			break
		}
	}

	if !missing {
		return nil
	}
	if err := fs.MkdirAll(parent.String(), 0o755); err != nil {
		return errors.Errorf("creating directory %s: %w", parent, err)
	}
	return nil
}
