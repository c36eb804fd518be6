// Command agentrt is the reference host process for the agent runtime:
// it loads process-level config, boots the God Realm, drives the
// update loop on a wall-clock cadence via robfig/cron, and serves the
// admin HTTP surface. Grounded on a cmd/gateway/main.go-style shape:
// load config, wire collaborators, register signal handling, serve
// until interrupted, shut down in reverse order.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/vmrealm/agentrt/internal/adminhttp"
	"github.com/vmrealm/agentrt/internal/api"
	"github.com/vmrealm/agentrt/internal/configfile"
	"github.com/vmrealm/agentrt/internal/engine"
	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/rtlog"
	"github.com/vmrealm/agentrt/internal/rtpath"
	"github.com/vmrealm/agentrt/internal/variant"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "agentrt:", err)
		os.Exit(1)
	}
}

func run() error {
	hostCfg, err := configfile.LoadHostConfig(".env")
	if err != nil {
		return fmt.Errorf("loading host config: %w", err)
	}

	log := rtlog.New("agentrt", rtlog.Config{Level: hostCfg.LogLevel, Format: hostCfg.LogFormat})

	hub := adminhttp.NewTraceHub()
	log.AddHook(hub)

	resolver := rtpath.NewResolver()
	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	if err := resolver.SetLabel("root", rootDir); err != nil {
		return fmt.Errorf("setting %%root%% path label: %w", err)
	}
	if err := resolver.AddReadPath("%root%"); err != nil {
		return fmt.Errorf("granting root read access: %w", err)
	}

	registerer := prometheus.NewRegistry()
	a := api.New(api.Config{
		SchedulerTimeout: 50 * time.Millisecond,
		Registerer:       registerer,
		Log:              log,
		PathResolver:     resolver,
		MaxMemPercent:    hostCfg.MaxMemPercent,
	})
	a.RegisterScriptEngine(process.ImplEngine, engine.NewGojaEngine(a.Registry()))
	a.RegisterScriptEngine(process.ImplLua, &engine.UnsupportedEngine{Language: "lua"})
	a.RegisterScriptEngine(process.ImplPython, &engine.UnsupportedEngine{Language: "python"})

	godConfig := variant.NewDictionary()
	if hostCfg.RootScriptPath != "" {
		data, readErr := os.ReadFile(hostCfg.RootScriptPath)
		if readErr != nil {
			return fmt.Errorf("reading root realm config %q: %w", hostCfg.RootScriptPath, readErr)
		}
		parsed, parseErr := configfile.Parse(string(data))
		if parseErr != nil {
			return fmt.Errorf("parsing root realm config %q: %w", hostCfg.RootScriptPath, parseErr)
		}
		godConfig = parsed
	}

	god, err := a.CreateGod("god", godConfig)
	if err != nil {
		return fmt.Errorf("creating god realm: %w", err)
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer bootCancel()
	if err := god.Boot(func(scriptPath string, config *variant.Dictionary) error {
		return loadAndCall(bootCtx, a, god.VM.Master(), resolver, scriptPath, engine.EntryMain, config)
	}); err != nil {
		return fmt.Errorf("booting god realm: %w", err)
	}

	var httpServer *http.Server
	if hostCfg.AdminListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))
		mux.Handle("/", adminhttp.New(a, hub, adminhttp.Config{}))
		httpServer = &http.Server{Addr: hostCfg.AdminListenAddr, Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("admin http server stopped unexpectedly")
			}
		}()
		log.WithField("addr", hostCfg.AdminListenAddr).Info("admin http surface listening")
	}

	var simulatedTime float64
	c := cron.New()
	tickSpec := fmt.Sprintf("@every %dms", hostCfg.TickIntervalMS)
	if _, err := c.AddFunc(tickSpec, func() {
		simulatedTime += float64(hostCfg.TickIntervalMS) / 1000.0
		if err := a.UpdateGod(simulatedTime); err != nil {
			log.WithError(err).Error("update tick failed")
		}
	}); err != nil {
		return fmt.Errorf("scheduling update loop %q: %w", tickSpec, err)
	}
	c.Start()
	log.WithField("interval_ms", hostCfg.TickIntervalMS).Info("update loop started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")

	cronCtx := c.Stop()
	<-cronCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	if err := a.CloseDown(shutdownCtx); err != nil {
		return fmt.Errorf("closing down runtime: %w", err)
	}
	return nil
}

// loadAndCall reads scriptPath off disk through resolver (enforcing its
// read-path allow-list), loads it into the Process's script engine, and
// calls entryPoint with config converted to a single argument. It is
// the concrete implementation behind the Realm.Boot/Finalize seams.
// Boot/update script paths configured for this host must be written
// against the %root% label so they resolve under the process's
// working directory and pass the read-path check below.
func loadAndCall(ctx context.Context, a *api.Api, p *process.Process, resolver *rtpath.Resolver, scriptPath, entryPoint string, config *variant.Dictionary) error {
	expanded, err := resolver.Expand(scriptPath)
	if err != nil {
		return fmt.Errorf("expanding script path %q: %w", scriptPath, err)
	}
	if err := resolver.IsValidReadPath(expanded); err != nil {
		return fmt.Errorf("script path %q: %w", scriptPath, err)
	}

	source, err := os.ReadFile(expanded)
	if err != nil {
		return fmt.Errorf("reading script %q: %w", expanded, err)
	}

	eng, err := enginesFor(a, p)
	if err != nil {
		return err
	}
	if err := eng.Load(ctx, p, string(source)); err != nil {
		return fmt.Errorf("loading script %q: %w", expanded, err)
	}

	args := []variant.Variant{variant.FromDictionary(config)}
	_, err = eng.Call(ctx, p, entryPoint, args)
	return err
}

func enginesFor(a *api.Api, p *process.Process) (engine.ScriptEngine, error) {
	return a.Engines().For(p.Implementation)
}
