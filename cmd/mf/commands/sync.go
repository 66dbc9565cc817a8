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
	"github.com/spf13/cobra"

	"github.com/walteh/metafiles/cmd/mf/opts"
	"github.com/walteh/metafiles/pkg/engine"
)

// NewSyncCmd creates a new sync command
func NewSyncCmd(o *opts.RootOpts) *cobra.Command {
	var join string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize this machine with the store",
		Long: `Sync brings this machine and the store up to date.
It will:
1. Fetch the remote
2. Copy tracked files into the shadow store and commit them
3. Merge changes from the common store
4. Copy the shadow store back onto this machine
5. Publish this machine's changes to the common store
6. Push`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), o, engine.Input{
				Command: engine.CommandSync,
				Params:  withJoin(engine.Params{}, join),
			}, "sync "+o.Config.Machine+"?")
		},
	}

	cmd.Flags().StringVar(&join, "join", "", "join this store first if none exists")
	return cmd
}
