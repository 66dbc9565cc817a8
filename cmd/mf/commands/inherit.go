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

// NewInheritCmd creates a new inherit command
func NewInheritCmd(o *opts.RootOpts) *cobra.Command {
	var join string

	cmd := &cobra.Command{
		Use:   "inherit <machine>",
		Short: "Take over the files of another machine",
		Long: `Inherit merges another machine's branch into this machine's shadow store
and deploys the result. With --join the store is joined first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), o, engine.Input{
				Command: engine.CommandInherit,
				Params:  withJoin(engine.Params{InheritMachine: args[0]}, join),
			}, "inherit the files of "+args[0]+"?")
		},
	}

	cmd.Flags().StringVar(&join, "join", "", "join this store first if none exists")
	return cmd
}

func withJoin(p engine.Params, target string) engine.Params {
	if target == "" {
		return p
	}
	create := false
	p.InitStoreNew = &create
	p.InitStoreJoinURI = target
	return p
}
