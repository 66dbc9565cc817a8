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

package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/metafiles/cmd/mf/opts"
	"github.com/walteh/metafiles/pkg/actor"
	"github.com/walteh/metafiles/pkg/engine"
	"github.com/walteh/metafiles/pkg/path"
	"github.com/walteh/metafiles/pkg/state"
)

// ErrFailed is returned once the failure has already been reported.
var ErrFailed = errors.New("command failed")

// detectStore reads the state file. A shadow checkout without a state file
// still counts as an initialized store of the configured type.
func detectStore(ctx context.Context, o *opts.RootOpts) (bool, engine.StoreType, error) {
	s, err := state.Load(ctx, o.Fs, o.Config.StateFile())
	if err != nil {
		return false, "", err
	}
	if s.Initialized {
		return true, engine.StoreType(s.Type), nil
	}

	ok, err := afero.Exists(o.Fs, o.Config.ShadowDir().Join(path.MustRelative(".git")).String())
	if err != nil {
		return false, "", errors.Errorf("checking shadow store: %w", err)
	}
	if ok {
		return true, engine.StoreType(o.Config.StoreType), nil
	}
	return false, "", nil
}

// execute runs one command through the engine and reports the outcome.
func execute(ctx context.Context, o *opts.RootOpts, in engine.Input, question string) error {
	if o.Confirm && o.Prompt != nil {
		ok, err := o.Prompt(question)
		if err != nil {
			return errors.Errorf("confirming: %w", err)
		}
		if !ok {
			o.Console.Warning("aborted")
			return nil
		}
	}

	initialized, storeType, err := detectStore(ctx, o)
	if err != nil {
		return err
	}
	in.StoreInitialized = initialized
	in.StoreType = storeType
	if in.Params.InitStoreType == "" {
		in.Params.InitStoreType = engine.StoreType(o.Config.StoreType)
	}

	deps := &actor.Deps{
		Fs:        o.Fs,
		Config:    o.Config,
		Backend:   o.Backend,
		Resolvers: o.Resolvers,
		Console:   o.Console,
	}
	m := engine.New(actor.Actors(deps),
		engine.WithTimeout(o.Config.Timeout),
		engine.WithObserver(o.Console),
	)

	o.Console.Header(fmt.Sprintf("%s • %s", in.Command, o.Config))

	res, err := m.Run(ctx, in)
	if err != nil {
		return errors.Errorf("running %s: %w", in.Command, err)
	}

	o.Console.Summarize(ctx, res)
	if res.State == engine.StateError {
		return ErrFailed
	}
	return nil
}

// resolveArg makes a path argument absolute against the working directory.
// On the real filesystem symlinks are resolved to the file they point at.
func resolveArg(o *opts.RootOpts, arg string) (path.AbsolutePath, error) {
	cwd, err := path.NewAbsolute(o.Cwd)
	if err != nil {
		return path.AbsolutePath{}, errors.Errorf("working directory: %w", err)
	}
	p, err := path.Parse(arg, cwd)
	if err != nil {
		return path.AbsolutePath{}, err
	}

	if _, ok := o.Fs.(*afero.OsFs); !ok {
		return p, nil
	}
	resolved, err := filepath.EvalSymlinks(p.String())
	if err != nil {
		if os.IsNotExist(err) {
			return path.AbsolutePath{}, errors.Errorf("%s does not exist", arg)
		}
		return path.AbsolutePath{}, errors.Errorf("resolving %s: %w", arg, err)
	}
	return path.NewAbsolute(resolved)
}
