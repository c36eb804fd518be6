package classmgr

import (
	"fmt"
	"os"
	"sync"

	"github.com/vmrealm/agentrt/internal/configfile"
	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/rterrors"
	"github.com/vmrealm/agentrt/internal/variant"
)

// Object is an instance of a Class bound to a Process.
type Object struct {
	ID          string
	Class       *Class
	Process     *process.Process
	Environment string

	// Backing holds the type-specific payload a hard class attaches to
	// its instances (e.g. a *schema.Node for the Node type, a
	// *schema.Agent for the Agent type), letting a single generic
	// constructor entry point serve every hard class without a
	// per-TypeName Go function.
	Backing any

	valid bool
}

// IsValid reports whether the object completed construction
// successfully and has not since been destroyed.
func (o *Object) IsValid() bool {
	return o.valid
}

// ClassManager holds a hierarchy of Classes for one type-name plus a
// per-Object registry.
type ClassManager struct {
	mu sync.RWMutex

	TypeName   string
	Privileges process.Privileges

	base *process.Process

	classes map[string]*Class
	objects map[string]*Object
}

// NewClassManager creates an empty ClassManager for typeName.
func NewClassManager(typeName string, privileges process.Privileges, base *process.Process) *ClassManager {
	return &ClassManager{
		TypeName:   typeName,
		Privileges: privileges,
		base:       base,
		classes:    make(map[string]*Class),
		objects:    make(map[string]*Object),
	}
}

// InstallHierarchy replaces the manager's class table with classes,
// the result of a ScanClasses + BuildHierarchy pass.
func (m *ClassManager) InstallHierarchy(classes map[string]*Class) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes = classes
}

// BaseProcess returns the Process new Objects are instantiated against.
func (m *ClassManager) BaseProcess() *process.Process {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.base
}

// GetClass returns the Class registered under name, or nil.
func (m *ClassManager) GetClass(name string) *Class {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.classes[name]
}

// ClassNames lists every registered class name.
func (m *ClassManager) ClassNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.classes))
	for name := range m.classes {
		out = append(out, name)
	}
	return out
}

// CreateObject implements the privilege-checked object-creation
// contract. On success it synchronously runs invokeInitialize (the
// caller's shhInitialize dispatch) against the newly built object with
// the remaining constructor arguments; if invokeInitialize returns an
// error the partially built object is torn down via DestroyObject and
// the error is returned to the caller. invokeInitialize may be nil for
// classes with no initializer (e.g. Classifier, which has no
// shhInitialize entry point).
func (m *ClassManager) CreateObject(className string, callerPrivileges process.Privileges, id string, boundProcess *process.Process, initArgs []variant.Variant, invokeInitialize func(obj *Object, args []variant.Variant) error) (*Object, bool, error) {
	m.mu.Lock()
	class, ok := m.classes[className]
	if !ok {
		m.mu.Unlock()
		return nil, false, fmt.Errorf("class %q not registered for type %q", className, m.TypeName)
	}
	if class.Abstract {
		m.mu.Unlock()
		return nil, false, fmt.Errorf("class %q is abstract and cannot be instantiated", className)
	}
	if !callerPrivileges.Has(m.Privileges) {
		m.mu.Unlock()
		return nil, false, rterrors.PrivilegeDenied(fmt.Sprintf("CreateObject(%s)", className), uint32(callerPrivileges), uint32(m.Privileges))
	}

	obj := &Object{ID: id, Class: class, Process: boundProcess, valid: true}
	m.objects[id] = obj
	m.mu.Unlock()

	if invokeInitialize != nil {
		if err := invokeInitialize(obj, initArgs); err != nil {
			m.DestroyObject(id)
			return nil, false, err
		}
	}
	return obj, true, nil
}

// VerifyIntegrity re-hashes every file-backed Class's source against the
// checksum recorded when it was scanned, returning an error naming the
// first class whose file is missing or has changed on disk since.
// Root and hard classes, which have no SourcePath, are skipped.
func (m *ClassManager) VerifyIntegrity() error {
	m.mu.RLock()
	classes := make([]*Class, 0, len(m.classes))
	for _, c := range m.classes {
		classes = append(classes, c)
	}
	m.mu.RUnlock()

	for _, c := range classes {
		if c.SourcePath == "" {
			continue
		}
		data, err := os.ReadFile(c.SourcePath)
		if err != nil {
			return rterrors.IntegrityDangling(fmt.Sprintf("class %q source %q unreadable: %v", c.Name, c.SourcePath, err))
		}
		if configfile.Checksum(data) != c.Checksum {
			return rterrors.IntegrityHashMismatch(fmt.Sprintf("class %q", c.Name), c.SourcePath)
		}
	}
	return nil
}

// GetObject returns the Object registered under id, or nil.
func (m *ClassManager) GetObject(id string) *Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[id]
}

// Objects lists every live Object this manager owns.
func (m *ClassManager) Objects() []*Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Object, 0, len(m.objects))
	for _, o := range m.objects {
		out = append(out, o)
	}
	return out
}

// DestroyObject invalidates and removes an Object, cascading from the
// owning ClassManager ownership summary ("A ClassManager
// exclusively owns its Objects").
func (m *ClassManager) DestroyObject(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[id]; ok {
		obj.valid = false
		delete(m.objects, id)
	}
}

// DestroyAll invalidates every live object, used when the owning Realm
// tears down (destruction "tears down its ClassManagers
// (which cascade to Objects)").
func (m *ClassManager) DestroyAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, obj := range m.objects {
		obj.valid = false
		delete(m.objects, id)
	}
}
