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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pagecanvas/internal/config"
	"pagecanvas/internal/crash"
	"pagecanvas/internal/domain"
	"pagecanvas/internal/editor"
	applog "pagecanvas/internal/log"
	"pagecanvas/internal/notify"
	"pagecanvas/internal/script"
	"pagecanvas/internal/storage"
	"pagecanvas/internal/tree"
	"pagecanvas/internal/undo"
	"pagecanvas/internal/version"
	"pagecanvas/internal/widget"
)

// app carries what the commands share. The controller is kept so a crash
// report can include the page being edited.
type app struct {
	cfgPath  string
	cfg      config.AppConfig
	password string
	dataDir  string
	ctl      *editor.Controller
}

func (a *app) snapshot() []byte {
	if a.ctl == nil {
		return nil
	}
	return a.ctl.Snapshot()
}

func newRootCmd(a *app) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "pagecanvas",
		Short:         "Headless canvas layout and drag-drop placement engine",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load(verbose)
		},
	}
	root.SetVersionTemplate("PageCanvas {{.Version}}\n")
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default: user config dir)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newVersionCmd(),
		newNewCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newReplayCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) load(verbose bool) error {
	var (
		cfg config.AppConfig
		pw  string
		err error
	)
	if a.cfgPath != "" {
		cfg, pw, err = config.LoadFrom(a.cfgPath)
	} else {
		cfg, pw, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg, a.password = cfg, pw
	opts := applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	}
	if verbose {
		opts.Level = "debug"
	}
	applog.Init(opts)
	if dir, err := config.DataDir(); err == nil {
		a.dataDir = dir
		crash.SetReportDir(dir)
	}
	return nil
}

func (a *app) openStore(ctx context.Context) (*storage.Store, error) {
	return storage.Open(ctx, storage.Config{
		Driver:   a.cfg.Storage.Driver,
		DSN:      a.cfg.Storage.DSN,
		Dir:      a.dataDir,
		User:     a.cfg.Storage.User,
		Password: a.password,
	})
}

func (a *app) registry() (*widget.Registry, error) {
	if f := strings.TrimSpace(a.cfg.Editor.RegistryFile); f != "" {
		return widget.LoadRegistry(f)
	}
	return widget.DefaultRegistry(), nil
}

// controller builds an editor over doc using the configured view and undo
// budget.
func (a *app) controller(pageID string, doc *domain.PageDocument, hooks editor.Hooks) (*editor.Controller, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	vp, err := a.cfg.Editor.Viewport()
	if err != nil {
		return nil, err
	}
	view := editor.DefaultView()
	view.Viewport = vp
	view.Zoom = a.cfg.Editor.Zoom
	view.GridSize = a.cfg.Editor.GridSize
	view.ShowGrid = a.cfg.Editor.ShowGrid
	history := undo.NewManager(undo.Config{
		MaxBytes:    a.cfg.Editor.UndoMaxBytes,
		MaxPerPage:  200,
		MinInterval: 500 * time.Millisecond,
		Coalesce:    map[string]bool{"nudge": true},
	})
	c := editor.New(tree.New(doc, reg),
		editor.WithHooks(hooks),
		editor.WithHistory(history),
		editor.WithView(view),
		editor.WithPageID(pageID),
	)
	a.ctl = c
	return c, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "PageCanvas", version.String())
		},
	}
}

func newNewCmd(a *app) *cobra.Command {
	var width float64
	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create an empty page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			w := width
			if w <= 0 {
				w = a.cfg.Editor.CanvasWidth
			}
			doc := domain.NewPage(w)
			if h := a.cfg.Editor.CanvasHeight; h > 0 {
				doc.Canvas.Height = domain.CanvasHeight{Value: h}
			}
			info, err := st.CreatePage(ctx, args[0], doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.ID)
			return nil
		},
	}
	cmd.Flags().Float64Var(&width, "width", 0, "canvas width in pixels (default from config)")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			pages, err := st.ListPages(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range pages {
				fmt.Fprintf(out, "%s\t%s\t%s\n", p.ID, p.UpdatedAt.Local().Format(time.DateTime), p.Title)
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var (
		viewport string
		raw      bool
	)
	cmd := &cobra.Command{
		Use:   "show <page-id>",
		Short: "Print a page's layout in one viewport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			p, err := st.LoadPage(ctx, args[0])
			if err != nil {
				return err
			}
			if raw {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(p.Doc)
			}
			if viewport != "" {
				a.cfg.Editor.ViewMode = viewport
			}
			c, err := a.controller(p.ID, p.Doc, nil)
			if err != nil {
				return err
			}
			printLayout(cmd.OutOrStdout(), p, c)
			return nil
		},
	}
	cmd.Flags().StringVar(&viewport, "viewport", "", "desktop, tablet or mobile (default from config)")
	cmd.Flags().BoolVar(&raw, "raw", false, "dump the whole document as YAML")
	return cmd
}

func printLayout(w io.Writer, p storage.Page, c *editor.Controller) {
	fmt.Fprintf(w, "%s  %q  canvas %.0fx%.0f  %s\n", p.ID, p.Title, p.Doc.Canvas.Width, p.Doc.EffectiveHeight(), c.View().Viewport)
	for _, it := range c.RenderItems() {
		printItem(w, it, "  ")
	}
}

func printItem(w io.Writer, it editor.RenderItem, indent string) {
	flags := ""
	if it.Locked {
		flags = " locked"
	}
	fmt.Fprintf(w, "%s%-10s %-28s (%.0f,%.0f) %.0fx%.0f%s\n", indent, it.Type, it.ID, it.Rect.X, it.Rect.Y, it.Rect.W, it.Rect.H, flags)
	for _, ch := range it.Children {
		printItem(w, ch, indent+"  ")
	}
}

func newReplayCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "replay <page-id> <script.yaml>",
		Short: "Replay a gesture script against a page and persist the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := applog.WithPage(applog.WithComponent("cli"), args[0])
			src, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			sc, errs := script.Parse(string(src))
			if len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d:%d: %s\n", args[1], e.Line, e.Column, e.Message)
				}
				return fmt.Errorf("%s: %d script errors", args[1], len(errs))
			}

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			p, err := st.LoadPage(ctx, args[0])
			if err != nil {
				return err
			}

			var hooks editor.Hooks = editor.NopHooks{}
			var j *storage.Journal
			if !dryRun {
				j = storage.NewJournal(st, p.ID, storage.JournalOptions{SnapshotEvery: 10})
				hooks = j
			}
			c, err := a.controller(p.ID, p.Doc, hooks)
			if err != nil {
				return err
			}
			defer c.Bus().Subscribe(func(n notify.Notice) {
				l.Debug("notice", slog.String("code", n.Code), slog.String("msg", n.Message))
			})()

			sess := editor.NewSession(c, 16)
			var rep script.Report
			runErr := sess.Do(ctx, func(c *editor.Controller) error {
				var err error
				rep, err = script.Run(ctx, c, sc)
				return err
			})
			sess.Close()
			if j != nil {
				flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := j.Flush(flushCtx); err != nil {
					l.Warn("journal flush", slog.Any("err", err))
				}
				cancel()
				_ = j.Close()
				if s := j.Stats(); s.Errors > 0 || s.Dropped > 0 {
					l.Warn("journal incomplete", slog.Int64("errors", s.Errors), slog.Int64("dropped", s.Dropped))
				}
			}

			out := cmd.OutOrStdout()
			for _, r := range rep.Results {
				status := "ok"
				if r.Err != nil {
					status = r.Err.Error()
				}
				fmt.Fprintf(out, "%4d  %-17s %-28s %s\n", r.Line, r.Kind, r.ID, status)
			}
			fmt.Fprintf(out, "%d steps, %d failed\n", len(rep.Results), rep.Failed)
			return runErr
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run the script without saving")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <page-id>",
		Short: "Print a page's mutation journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			ms, err := st.Mutations(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range ms {
				fmt.Fprintf(out, "%6d  %s  %-22s %s\n", m.Seq, m.CreatedAt.Local().Format(time.DateTime), m.Op, m.Payload)
			}
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(a.cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.cfgPath
			if p == "" {
				var err error
				if p, err = config.ConfigPath(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-password",
		Short: "Store the database password in the OS keyring (reads stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 4096))
			if err != nil {
				return err
			}
			pw := strings.TrimSpace(string(b))
			if pw == "" {
				return errors.New("empty password")
			}
			if a.cfgPath != "" {
				return config.SaveTo(a.cfgPath, a.cfg, pw)
			}
			return config.Save(a.cfg, pw)
		},
	})
	return cmd
}
