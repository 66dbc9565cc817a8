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

// NewInitCmd creates a new init command
func NewInitCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new store for this machine",
		Long: `Init creates the common store on the shared branch, tags its first commit
and checks out this machine's branch as the shadow store.
Nothing happens when the store already exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			create := true
			return execute(cmd.Context(), o, engine.Input{
				Command: engine.CommandInit,
				Params:  engine.Params{InitStoreNew: &create},
			}, "create a new store in "+o.Config.StoreDir().String()+"?")
		},
	}

	return cmd
}

// NewJoinCmd creates a new join command
func NewJoinCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join <target>",
		Short: "Join an existing store",
		Long: `Join clones the target into the common store and checks out this machine's
branch as the shadow store. The target is a clone URL, a local path or
github:owner/repo.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			create := false
			return execute(cmd.Context(), o, engine.Input{
				Command: engine.CommandInit,
				Params: engine.Params{
					InitStoreNew:     &create,
					InitStoreJoinURI: args[0],
				},
			}, "join "+args[0]+"?")
		},
	}

	return cmd
}
