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

package opts

import (
	"github.com/spf13/afero"

	"github.com/walteh/metafiles/pkg/config"
	"github.com/walteh/metafiles/pkg/log"
	"github.com/walteh/metafiles/pkg/remote"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Config    *config.Config
	Fs        afero.Fs
	Console   *log.Logger
	Resolvers remote.Resolvers

	// Backend, when set, replaces the backend registered for the store type.
	Backend remote.Backend

	// Confirm asks before anything is changed.
	Confirm bool

	// Prompt asks a yes/no question.
	Prompt func(question string) (bool, error)

	// Cwd resolves relative path arguments.
	Cwd string
}
