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

// NewAddCmd creates a new add command
func NewAddCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Start tracking a file or directory",
		Long: `Add copies a file, or every file below a directory, into this machine's
shadow store and commits it. The next sync shares it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveArg(o, args[0])
			if err != nil {
				return err
			}
			return execute(cmd.Context(), o, engine.Input{
				Command: engine.CommandAdd,
				Params:  engine.Params{AddFilePath: p},
			}, "add "+p.String()+"?")
		},
	}

	return cmd
}
