/*
   Copyright The Debrepbuild Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/hixio-mh/debrepbuild/cmd/debrep/commands/global"
	"github.com/hixio-mh/debrepbuild/cmd/debrep/commands/internal"
)

var ConfigCommand = &cli.Command{
	Name:  "config",
	Usage: "inspect and edit the sources file",
	Subcommands: []*cli.Command{
		{
			Name:      "get",
			Usage:     "print the value at a dotted key, or a whole subtree",
			ArgsUsage: "<key>",
			Action: func(cliContext *cli.Context) error {
				if cliContext.NArg() != 1 {
					return fmt.Errorf("expected exactly one key")
				}
				cfg, err := internal.LoadConfig(cliContext)
				if err != nil {
					return err
				}
				value, err := cfg.Get(cliContext.Args().First())
				if err != nil {
					return err
				}
				fmt.Fprintln(cliContext.App.Writer, value)
				return nil
			},
		},
		{
			Name:      "set",
			Usage:     "assign the value at a dotted key and rewrite the sources file",
			ArgsUsage: "<key> <value>",
			Action: func(cliContext *cli.Context) error {
				if cliContext.NArg() != 2 {
					return fmt.Errorf("expected a key and a value")
				}
				cfg, err := internal.LoadConfig(cliContext)
				if err != nil {
					return err
				}
				if err := cfg.Set(cliContext.Args().Get(0), cliContext.Args().Get(1)); err != nil {
					return err
				}
				return cfg.Write(cliContext.String(global.ConfigFlag))
			},
		},
	},
}
