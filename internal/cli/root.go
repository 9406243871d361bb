/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli wires the cobra command tree onto sessions, the crop editor and the exporters.
package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"oshicropper/internal/config"
	"oshicropper/internal/crash"
	applog "oshicropper/internal/log"
	"oshicropper/internal/session"
	"oshicropper/internal/storage"
	"oshicropper/internal/version"
)

// CLI holds state shared by all commands of one invocation.
type CLI struct {
	sessionDir string
	verbose    bool
	cfg        config.AppConfig
	log        *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	c := &CLI{cfg: config.Defaults()}
	root := &cobra.Command{
		Use:   "oshicropper",
		Short: "Crop photos and lay them out as can badges or bromide prints",
		Long: `oshicropper keeps a list of images in a session directory, crops them one at a time
and lays them out on printable sheets: round can badges on A4, or rectangular
photo prints (L, 2L, postcard, ...) on a configurable sheet.`,
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv()
			cfg, err := config.Load()
			c.cfg = cfg
			opts := cfg.LogOptions()
			if c.verbose {
				opts.Level = "debug"
			}
			applog.Init(opts)
			c.log = applog.WithComponent("cli")
			if err != nil {
				c.log.Warn("config not loaded, using defaults", "err", err)
			}
			abs, err := filepath.Abs(c.sessionDir)
			if err != nil {
				return fmt.Errorf("resolve session dir: %w", err)
			}
			c.sessionDir = abs
			c.log.Debug("command", "name", cmd.CommandPath(), "session", abs)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.sessionDir, "session", "s", ".", "session directory")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.initCommand())
	root.AddCommand(c.addCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.settingsCommand())
	root.AddCommand(c.cropCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.restoreCommand())
	root.AddCommand(c.thumbsCommand())
	root.AddCommand(c.uiCommand())
	return root
}

// open loads the session and registers it for crash autosave.
func (c *CLI) open() (*session.Handle, error) {
	h, err := session.Open(c.sessionDir)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w (run 'oshicropper init' first)", c.sessionDir, err)
	}
	crash.Track(h)
	return h, nil
}

func (c *CLI) save(h *session.Handle) error {
	if err := session.Save(h); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// cache opens the preview cache and has it follow edits of the session list.
func (c *CLI) cache(h *session.Handle) (*storage.Cache, error) {
	pc, err := storage.OpenCache(h.Root, c.cfg.Previews.MaxBytes)
	if err != nil {
		return nil, err
	}
	pc.Watch(h.List)
	return pc, nil
}
