/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"oshicropper/internal/cli"
	"oshicropper/internal/crash"
	applog "oshicropper/internal/log"
	"oshicropper/internal/version"
)

func main() {
	// env-only logging until the root command has read the config
	applog.Init(applog.FromEnv())
	code := run()
	os.Exit(code)
}

func run() int {
	defer crash.Recover()
	if err := fang.Execute(
		context.Background(),
		cli.NewRootCmd(),
		fang.WithVersion(version.String()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		return 1
	}
	return 0
}
