// Package api provides the host-embedding surface: CreateGod, UpdateGod,
// CreateWorld, DestroyWorld, CloseDown. It wires
// together internal/registry, internal/realm, internal/engine, and
// internal/rtmetrics the way a bootstrap package commonly wires
// dispatcher/router/bridge into one EventSystem behind a
// Config-struct-plus-constructor-plus-Start/Stop shape.
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vmrealm/agentrt/internal/engine"
	"github.com/vmrealm/agentrt/internal/hostapi"
	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/realm"
	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/rtlog"
	"github.com/vmrealm/agentrt/internal/rtmetrics"
	"github.com/vmrealm/agentrt/internal/rtpath"
	"github.com/vmrealm/agentrt/internal/scheduler"
	"github.com/vmrealm/agentrt/internal/variant"
	"github.com/vmrealm/agentrt/internal/vm"
)

// Config configures one Api instance. SchedulerTimeout bounds a single
// Scheduler.Update dispatch loop's wall-clock budget; Registerer
// receives the runtime's Prometheus collectors (pass nil to skip
// metrics registration entirely, e.g. in tests that construct many
// Apis in one process). PathResolver backs every hostapi System/shh
// function that touches %LABEL% paths; a nil Resolver disables those
// functions rather than panicking. MaxMemPercent is forwarded to every
// AssureIntegrity call the host-facing API triggers.
type Config struct {
	SchedulerTimeout time.Duration
	Registerer       prometheus.Registerer
	Log              *rtlog.Logger
	PathResolver     *rtpath.Resolver
	MaxMemPercent    float64
}

// Api is the single entry point a host program drives: it owns the
// Registry, the God Realm, the script engine registry, and the
// runtime's metrics.
type Api struct {
	mu sync.Mutex

	reg     *registry.Registry
	engines *engine.Registry
	metrics *rtmetrics.Metrics
	log     *rtlog.Logger

	god *realm.God

	templates map[string]*realm.Realm

	schedulerTimeout time.Duration
}

// New builds an Api with an empty Registry and no God yet constructed;
// CreateGod must be called before CreateWorld/UpdateGod.
func New(cfg Config) *Api {
	if cfg.SchedulerTimeout <= 0 {
		cfg.SchedulerTimeout = 50 * time.Millisecond
	}
	log := cfg.Log
	if log == nil {
		log = rtlog.NewDefault("agentrt")
	}

	a := &Api{
		reg:              registry.New(),
		engines:          engine.NewRegistry(),
		metrics:          rtmetrics.New(cfg.Registerer),
		log:              log,
		templates:        make(map[string]*realm.Realm),
		schedulerTimeout: cfg.SchedulerTimeout,
	}

	hooks := hostapi.Hooks{
		Engines:       a.engines,
		Resolver:      cfg.PathResolver,
		MaxMemPercent: cfg.MaxMemPercent,
		FindWorld: func(name string) (*realm.Environment, bool) {
			god := a.God()
			if god == nil {
				return nil, false
			}
			w := god.GetWorld(name)
			if w == nil {
				return nil, false
			}
			return w.Environment, true
		},
		CreateWorld: func(worldName, templateName string, overrides *variant.Dictionary) error {
			_, err := a.CreateWorld(worldName, templateName, overrides)
			return err
		},
		DestroyWorld: func(name string) error {
			return a.DestroyWorld(name, nil)
		},
	}
	if err := hostapi.RegisterAll(a.reg, hooks); err != nil {
		log.WithError(err).Error("failed to register host-facing native modules")
	}

	return a
}

// RegisterScriptEngine installs the ScriptEngine backing impl, keyed
// by the Implementation tag. Call before CreateGod/CreateWorld so
// every Realm's boot script can run immediately.
func (a *Api) RegisterScriptEngine(impl process.Implementation, e engine.ScriptEngine) {
	a.engines.Register(impl, e)
}

// RegisterTemplate records a Realm (already constructed by the caller,
// e.g. from a configfile.Parse result) under name, for later use as a
// CreateWorld template.
func (a *Api) RegisterTemplate(name string, r *realm.Realm) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.templates[name]; exists {
		return fmt.Errorf("template %q already registered", name)
	}
	a.templates[name] = r
	return a.reg.RegisterRealm(r)
}

// CreateGod constructs the root Realm from config. Only one God can
// exist per Api; calling it twice returns an error.
func (a *Api) CreateGod(name string, config *variant.Dictionary) (*realm.God, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.god != nil {
		return nil, fmt.Errorf("god %q already created for this api", a.god.Name)
	}

	sched := scheduler.New(a.schedulerTimeout)
	master := process.New(uuid.NewString(), process.PrivGod|process.PrivMaster, process.ImplEngine, nil)
	v := vm.New(name, master)
	master.VM = v
	v.CompleteInit()

	env := realm.NewEnvironment(name, sched, v, nil)
	master.CurrentEnvironment = env
	master.HomeEnvironment = env
	a.god = realm.NewGod(name, env, a.reg, config)
	return a.god, nil
}

// CreateWorld clones a registered template Realm into a running World.
// cloneVM is forwarded to God.CreateWorld.
func (a *Api) CreateWorld(worldName, templateName string, overrides *variant.Dictionary) (*realm.World, error) {
	a.mu.Lock()
	template, ok := a.templates[templateName]
	god := a.god
	timeout := a.schedulerTimeout
	a.mu.Unlock()

	if god == nil {
		return nil, fmt.Errorf("no god created yet")
	}
	if !ok {
		return nil, fmt.Errorf("template %q not registered", templateName)
	}

	newScheduler := scheduler.New(timeout)
	cloneVM := func(t *vm.VM, newID string) (*vm.VM, error) {
		master := process.New(uuid.NewString(), t.Master().GetPrivileges(), t.Master().Implementation, nil)
		cloned := vm.New(newID, master)
		master.VM = cloned
		cloned.CompleteInit()
		return cloned, nil
	}

	return god.CreateWorld(worldName, template, newScheduler, cloneVM, overrides)
}

// DestroyWorld tears a World down via God.DestroyWorld, invoking
// invokeFinalize (a caller-supplied shhFinalize call through an engine
// adapter) first.
func (a *Api) DestroyWorld(name string, invokeFinalize func(scriptPath string) error) error {
	a.mu.Lock()
	god := a.god
	a.mu.Unlock()
	if god == nil {
		return fmt.Errorf("no god created yet")
	}
	if invokeFinalize == nil {
		invokeFinalize = func(string) error { return nil }
	}
	return god.DestroyWorld(name, invokeFinalize)
}

// UpdateGod drives the God Realm's Scheduler (and, transitively, every
// World's own Scheduler, since each owns its own Update call) forward
// to until. A host's update loop calls this once per tick.
func (a *Api) UpdateGod(until float64) error {
	a.mu.Lock()
	god := a.god
	a.mu.Unlock()
	if god == nil {
		return fmt.Errorf("no god created yet")
	}
	if god.Paused {
		return nil
	}

	start := time.Now()
	god.Scheduler.Update(until, scheduler.PhaseUpdate)
	a.metrics.UpdateTickDuration.Observe(time.Since(start).Seconds())
	a.metrics.PendingQueueDepth.WithLabelValues(god.Name).Set(float64(god.Scheduler.PendingLen()))
	a.metrics.ActiveQueueDepth.WithLabelValues(god.Name).Set(float64(god.Scheduler.ActiveLen()))

	for _, w := range a.worldsSnapshot() {
		if w.Paused {
			continue
		}
		w.Scheduler.Update(until, scheduler.PhaseUpdate)
		a.metrics.PendingQueueDepth.WithLabelValues(w.Name).Set(float64(w.Scheduler.PendingLen()))
		a.metrics.ActiveQueueDepth.WithLabelValues(w.Name).Set(float64(w.Scheduler.ActiveLen()))
	}
	return nil
}

func (a *Api) worldsSnapshot() []*realm.World {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.god == nil {
		return nil
	}
	return a.god.Worlds()
}

// CloseDown tears down every running World and then the God Realm
// itself, ignoring individual World shhFinalize failures so a single
// broken World cannot block process shutdown.
func (a *Api) CloseDown(ctx context.Context) error {
	a.mu.Lock()
	god := a.god
	a.mu.Unlock()
	if god == nil {
		return nil
	}

	for _, w := range a.worldsSnapshot() {
		if err := god.DestroyWorld(w.Name, func(string) error { return nil }); err != nil {
			a.log.WithField("world", w.Name).WithError(err).Warn("failed to destroy world during shutdown")
		}
	}
	god.Teardown()
	return nil
}

// Registry exposes the underlying Registry, for hosts that need direct
// Module/Class registration before CreateGod.
func (a *Api) Registry() *registry.Registry { return a.reg }

// Metrics exposes the runtime's Prometheus collectors, for hosts
// wiring their own /metrics endpoint.
func (a *Api) Metrics() *rtmetrics.Metrics { return a.metrics }

// Engines exposes the ScriptEngine registry, for hosts driving a
// Realm's boot/update/finalize entry points directly.
func (a *Api) Engines() *engine.Registry { return a.engines }

// God returns the Api's God Realm, or nil if CreateGod has not been
// called yet.
func (a *Api) God() *realm.God {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.god
}
