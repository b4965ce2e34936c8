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

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/hixio-mh/debrepbuild/cmd/debrep/commands"
	"github.com/hixio-mh/debrepbuild/cmd/debrep/commands/global"
	"github.com/hixio-mh/debrepbuild/version"
)

func main() {
	app := &cli.App{
		Name:    "debrep",
		Usage:   "build and maintain an apt package repository",
		Flags:   global.Flags,
		Version: fmt.Sprintf("%s %s", version.Version, version.Revision),
		Commands: []*cli.Command{
			commands.BuildCommand,
			commands.UpdateCommand,
			commands.ConfigCommand,
		},
		Before: func(cliContext *cli.Context) error {
			if cliContext.Bool(global.DebugFlag) {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "debrep: %v\n", err)
		os.Exit(1)
	}
}
