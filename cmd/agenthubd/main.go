// Copyright 2025 Tom Barlow
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

// agenthubd is the Agent Hub daemon: an HTTP/JSON API and a stdio MCP
// server over one shared dispatch core.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/uaesivakumar/agenthub/internal/api"
	"github.com/uaesivakumar/agenthub/internal/catalog"
	"github.com/uaesivakumar/agenthub/internal/config"
	"github.com/uaesivakumar/agenthub/internal/log"
	hubmcp "github.com/uaesivakumar/agenthub/internal/mcp"
	"github.com/uaesivakumar/agenthub/internal/watcher"
	"github.com/uaesivakumar/agenthub/pkg/breaker"
	"github.com/uaesivakumar/agenthub/pkg/registry"
	"github.com/uaesivakumar/agenthub/pkg/router"
	"github.com/uaesivakumar/agenthub/pkg/sink"
	"github.com/uaesivakumar/agenthub/pkg/workflow"
)

// Version information (injected via ldflags at build time)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agenthubd",
		Short:         "Agent Hub dispatch daemon",
		Long:          "agenthubd exposes a fixed catalog of decision tools over HTTP/JSON and MCP, with workflow orchestration on top.",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMCPCmd())
	return root
}

// hub bundles the wired core shared by both front doors.
type hub struct {
	settings config.Settings
	logger   *slog.Logger
	registry *registry.Registry
	store    *workflow.Store
	router   *router.Router
	cleanup  []func()
}

// buildHub wires the core: registry + catalog, workflow store, shared
// breakers, engine, router, decision sink.
func buildHub(settings config.Settings, logger *slog.Logger) (*hub, error) {
	reg := registry.New(log.WithComponent(logger, "registry"))
	if err := catalog.Register(reg, nil); err != nil {
		return nil, fmt.Errorf("register catalog: %w", err)
	}

	store := workflow.NewStore()
	if settings.WorkflowDir != "" {
		n, err := store.LoadDir(settings.WorkflowDir)
		if err != nil {
			return nil, fmt.Errorf("load workflows: %w", err)
		}
		logger.Info("workflows loaded", "dir", settings.WorkflowDir, "count", n)
	}

	breakers := breaker.NewSet(breaker.Config{
		FailureThreshold: settings.BreakerFailureThreshold,
		SuccessThreshold: settings.BreakerSuccessThreshold,
		OpenTimeout:      settings.BreakerOpenTimeout,
	})

	engine := workflow.NewEngine(store, reg, breakers).
		WithLogger(log.WithComponent(logger, "engine"))
	dispatch := router.New(reg, engine, breakers).
		WithLogger(log.WithComponent(logger, "router"))

	h := &hub{
		settings: settings,
		logger:   logger,
		registry: reg,
		store:    store,
		router:   dispatch,
	}

	if settings.DecisionDB != "" {
		db, err := sink.NewSQLite(sink.SQLiteConfig{Path: settings.DecisionDB, WAL: true})
		if err != nil {
			return nil, fmt.Errorf("open decision db: %w", err)
		}
		async := sink.NewAsync(db, 256, log.WithComponent(logger, "sink"))
		dispatch.WithSink(async)
		h.cleanup = append(h.cleanup, func() {
			async.Close()
			db.Close()
		})
	}

	return h, nil
}

// close releases the hub's resources in reverse wiring order.
func (h *hub) close() {
	h.registry.StopHealthProbe()
	for i := len(h.cleanup) - 1; i >= 0; i-- {
		h.cleanup[i]()
	}
}

func newServeCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(log.FromEnv())
			slog.SetDefault(logger)

			settings := config.FromEnv()
			if listenAddr != "" {
				settings.ListenAddr = listenAddr
			}

			h, err := buildHub(settings, logger)
			if err != nil {
				return err
			}
			defer h.close()

			h.registry.StartHealthProbe(settings.HealthProbeInterval)

			if settings.WorkflowDir != "" {
				w, err := watcher.New(settings.WorkflowDir, h.store, logger)
				if err != nil {
					return fmt.Errorf("watch workflows: %w", err)
				}
				w.Start()
				defer w.Stop()
			}

			handler := api.NewRouter(h.router, h.registry, h.store, log.WithComponent(logger, "api"))
			server := &http.Server{
				Addr:              settings.ListenAddr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Agent Hub listening", "addr", settings.ListenAddr, "version", version)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				logger.Info("Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides LISTEN_ADDR)")
	return cmd
}

func newMCPCmd() *cobra.Command {
	var callsPerMinute int

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Logs go to stderr; stdout belongs to the MCP framing.
			logger := log.New(log.FromEnv())
			slog.SetDefault(logger)

			settings := config.FromEnv()
			h, err := buildHub(settings, logger)
			if err != nil {
				return err
			}
			defer h.close()

			h.registry.StartHealthProbe(settings.HealthProbeInterval)

			server, err := hubmcp.NewServer(hubmcp.ServerConfig{
				Version:        version,
				Dispatch:       h.router,
				Registry:       h.registry,
				CallsPerMinute: callsPerMinute,
				Logger:         log.WithComponent(logger, "mcp"),
			})
			if err != nil {
				return err
			}

			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&callsPerMinute, "calls-per-minute", 100, "tools/call rate limit")
	return cmd
}
