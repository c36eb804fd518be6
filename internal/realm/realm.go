package realm

import (
	"fmt"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/variant"
)

// Well-known configuration keys read from a Realm's config Dictionary
// at construction.
const (
	ConfigBootScript   = "boot_script"
	ConfigUpdateScript = "update_script"
	ConfigScheduler    = "scheduler"
	ConfigLanguages    = "languages"
	ConfigSchemas      = "schemas"
	ConfigEngineClasses = "engine_classes"
	ConfigModules      = "modules"
	ConfigBootPaths    = "boot.paths"
	ConfigUpdatePaths  = "update.paths"
	ConfigScriptPaths  = "script.paths"
)

// Submodule is a Module instance cloned into a Realm.
type Submodule struct {
	Name string
}

// Realm is an Environment specialisation and the lifecycle root for a
// God or World: it adds Paused state, the boot/update script
// paths, and the submodule list a World clones from its template.
type Realm struct {
	*Environment

	Privileges process.Privileges
	Paused     bool

	CurrentTime float64

	BootScriptPath   string
	UpdateScriptPath string

	LifecycleProcess *process.Process

	ScriptPaths []string

	submodules []*Submodule
}

// NewRealm builds a Realm from a config Dictionary, reading at minimum
// the boot/update script path keys. It does not itself
// construct the Scheduler/VM — callers assemble an Environment first (via
// NewEnvironment) and pass it in, since Scheduler/VM construction needs
// host-specific wiring (script engine choice, time-out, etc.) that
// belongs to internal/api.
func NewRealm(env *Environment, privileges process.Privileges, config *variant.Dictionary) *Realm {
	r := &Realm{
		Environment: env,
		Privileges:  privileges,
	}
	env.localConfig.Merge(config)

	r.BootScriptPath = env.GetLocal(ConfigBootScript, variant.String("")).AsString()
	r.UpdateScriptPath = env.GetLocal(ConfigUpdateScript, variant.String("")).AsString()

	pathsDict := env.GetLocal(ConfigScriptPaths, variant.Nil())
	if pathsDict.IsDictionary() {
		pathsDict.AsDictionary().IterateInsertionOrder(func(k variant.Key, v variant.Variant) bool {
			r.ScriptPaths = append(r.ScriptPaths, v.AsString())
			return true
		})
	}
	return r
}

// Pause sets the Realm's pause flag and mirrors it onto its Scheduler,
// ("Pending realms paused via Pause(true) short-circuit
// Update to a no-op").
func (r *Realm) Pause(paused bool) {
	r.Paused = paused
	if r.Scheduler != nil {
		r.Scheduler.Pause(paused)
	}
}

// RegisterSubmodule appends a Module instance cloned into this Realm.
func (r *Realm) RegisterSubmodule(name string) {
	r.submodules = append(r.submodules, &Submodule{Name: name})
}

// Submodules lists the Realm's registered submodule instances.
func (r *Realm) Submodules() []*Submodule {
	out := make([]*Submodule, len(r.submodules))
	copy(out, r.submodules)
	return out
}

// Boot invokes the Realm's boot script entry point (shhMain(config)).
// The actual script invocation is the engine adapter's job
// (internal/engine); this method is the seam the World/God lifecycle
// drives, recording that boot has been requested.
func (r *Realm) Boot(invoke func(scriptPath string, config *variant.Dictionary) error) error {
	if r.BootScriptPath == "" {
		return nil
	}
	return invoke(r.BootScriptPath, r.LocalConfig())
}

// Finalize invokes the update script's shhFinalize entry point and
// returns when that call returns; it does not wait for the Realm's VM
// or processes to drain.
func (r *Realm) Finalize(invoke func(scriptPath string) error) error {
	if r.UpdateScriptPath == "" {
		return nil
	}
	return invoke(r.UpdateScriptPath)
}

// Teardown destroys every Object of each of the Realm's ClassManagers.
// It leaves the Scheduler and the VM untouched.
func (r *Realm) Teardown() {
	for _, cm := range r.ClassManagers() {
		cm.DestroyAll()
	}
}

func (r *Realm) String() string {
	return fmt.Sprintf("Realm(%s, privileges=%s, paused=%v)", r.Name, r.Privileges, r.Paused)
}
