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

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/npratt/dandiatlas/internal/app"
	"github.com/npratt/dandiatlas/internal/config"
	"github.com/npratt/dandiatlas/internal/datastore"
	"github.com/npratt/dandiatlas/internal/events"
	"github.com/npratt/dandiatlas/internal/shutdown"
	"github.com/npratt/dandiatlas/internal/tui"
)

// flushTimeout bounds how long the sinks get to write on exit.
const flushTimeout = 5 * time.Second

func newBrowseCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [hash]",
		Short: "Open the interactive atlas browser",
		Long: `Open the interactive atlas browser.

An optional hash (for example "region=313" or "dandiset=001176") restores
a view.
With --resume the last view of the previous session is restored instead.

Without a terminal the command refuses to start unless --force is given,
in which case the view is printed as plain text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool(FlagForce)
			interactive := tui.IsTerminal()
			if !interactive && !force {
				return errors.New("browse needs an interactive terminal (use --force for plain output)")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			var hash string
			if len(args) == 1 {
				hash = strings.TrimPrefix(args[0], "#")
			} else if resume, _ := cmd.Flags().GetBool(FlagResume); resume {
				hash = resumeHash(c.logger, cfg.Paths.State)
			}

			return runBrowse(cmd.Context(), c, cfg, hash, interactive)
		},
	}

	cmd.Flags().Bool(FlagForce, false, "Print a plain text view when no terminal is attached")
	cmd.Flags().Bool(FlagResume, false, "Restore the last view of the previous session")
	cmd.Flags().Bool(FlagNoTitles, false, "Do not look up dandiset titles")
	cmd.Flags().Int(FlagPageSize, 0, "Dandisets per page in the region listing")
	cmd.Flags().Int(FlagChunkSize, 0, "Meshes fetched per chunk")
	cmd.Flags().String(FlagPlane, "", "Projection plane (sagittal, coronal, horizontal)")
	return cmd
}

// resumeHash returns the last view saved in the state file, or "" when
// there is none.
func resumeHash(logger *slog.Logger, path string) string {
	st, err := events.ReadViewState(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("cannot read saved view", "path", path, "error", err)
		}
		return ""
	}
	return st.LastHash
}

// routerCloser closes the router so the sinks drain their channels.
type routerCloser struct {
	router *events.Router
}

func (rc routerCloser) Stop() error {
	rc.router.Close()
	return nil
}

func runBrowse(ctx context.Context, c *cli, cfg *config.Config, hash string, interactive bool) error {
	// TUI mode: keep log output and sink errors off the screen
	logger := c.logger
	var errOut io.Writer = os.Stderr
	if interactive {
		debug, err := openDebugLog(cfg, c.logLevel)
		if err != nil {
			return err
		}
		defer func() { _ = debug.Close() }()
		logger = debug.Logger
		errOut = debug.Writer()
		slog.SetDefault(logger)
	}

	router := events.NewRouter(events.DefaultBufferSize)
	router.SetLogger(logger)

	logSink := events.NewLogSink(cfg.Paths.EventLog,
		events.WithMaxBackups(cfg.LogRotation.MaxBackups),
		events.WithErrorOutput(errOut),
	)
	stateSink := events.NewStateSink(cfg.Paths.State)

	sinkCtx, sinkCancel := context.WithCancel(ctx)
	defer sinkCancel()

	if err := logSink.Start(sinkCtx, router.Subscribe()); err != nil {
		return fmt.Errorf("start log sink: %w", err)
	}
	if err := stateSink.Start(sinkCtx, router.SubscribeBuffered(events.StateBufferSize)); err != nil {
		router.Close()
		_ = logSink.Stop()
		return fmt.Errorf("start state sink: %w", err)
	}

	scene, err := newScene(cfg.Render)
	if err != nil {
		router.Close()
		_ = logSink.Stop()
		_ = stateSink.Stop()
		return err
	}

	s := newSession(cfg, logger)
	uiEvents := router.SubscribeBuffered(events.StateBufferSize)

	ended := false
	endSession := func(reason, last string) {
		if ended {
			return
		}
		ended = true
		router.Emit(&events.SessionEndEvent{
			BaseEvent: events.NewAppEvent(events.EventSessionEnd),
			Reason:    reason,
			Hash:      last,
		})
	}

	opts := []tui.Option{
		tui.WithMeshFetcher(s.meshes),
		tui.WithElectrodeFetcher(s.electrodes),
		tui.WithScene(scene),
		tui.WithEngineOptions(
			app.WithRouter(router),
			app.WithLogger(logger),
			app.WithPageSize(cfg.Panel.PageSize),
		),
		tui.WithLinks(cfg),
		tui.WithClipboard(clipboard.WriteAll),
		tui.WithChunkSize(cfg.Mesh.ChunkSize),
		tui.WithTitleBatch(cfg.Titles.BatchSize),
		tui.WithInitialHash(hash),
		tui.WithEvents(uiEvents),
		tui.WithOnQuit(func(h string) { endSession("quit", h) }),
	}
	if s.titles != nil {
		opts = append(opts, tui.WithTitleFetcher(s.titles))
	}

	logger.Info("dandiatlas starting",
		"version", version,
		"data", cfg.Data.Source,
		"hash", hash,
		"event_log", cfg.Paths.EventLog,
	)

	return shutdown.Run(ctx, logger, flushTimeout,
		func(runCtx context.Context) error {
			load := func(ctx context.Context) (*datastore.Bundle, error) {
				return s.loadBundle(ctx, router)
			}
			ui := tui.New(runCtx, load, opts...)
			err := ui.Run()
			// Nothing reads the UI channel once the program has exited.
			router.Unsubscribe(uiEvents)
			reason := "interrupted"
			if err != nil {
				reason = "error"
			} else if !interactive {
				reason = "printed"
			}
			endSession(reason, ui.LastHash())
			if n := router.Dropped(); n > 0 {
				logger.Warn("events dropped during session", "count", n)
			}
			return err
		},
		routerCloser{router: router}, logSink, stateSink,
	)
}
