// Package classmgr implements ClassManager/Class/Object: a per-type-name
// hierarchy of script-defined SoftClasses (plus native HardClasses
// registered through internal/registry), object allocation,
// and the script-file class-spec scanner. It is grounded on the host
// registry's hierarchical, ordered registration pattern
// (system/core/registry.go) generalized from a flat service namespace
// to a parent/child class DAG with cycle detection.
package classmgr

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vmrealm/agentrt/internal/configfile"
	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/registry"
)

// Class is (name, type-name, defining process, process-constructor,
// object-constructor). A HardClass has native
// constructors; a SoftClass is scanned from a script file.
type Class struct {
	Name       string
	TypeName   string
	ParentName string
	Abstract   bool
	Final      bool

	OverridePrefix string

	BaseProcess *process.Process

	Instantiate registry.ObjectInstantiator

	// SourcePath and Checksum are set for script-scanned SoftClasses
	// (empty for root/HardClasses, which have no backing file) and let
	// ClassManager.VerifyIntegrity detect a class file that changed on
	// disk since it was scanned.
	SourcePath string
	Checksum   string
}

// IsHard reports whether this Class was registered natively (through
// the Registry's hard-class table) rather than scanned from script.
func (c *Class) IsHard() bool {
	return c.ParentName == "" && c.Instantiate != nil
}

var classSpecPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ClassSpec is one parsed line from a script file's class-spec header:
// `<ClassName> Specializes <ParentName>[ (Abstract|Final)]`.
type ClassSpec struct {
	ClassName  string
	ParentName string
	Abstract   bool
	Final      bool
	SourcePath string
	Checksum   string
}

// ParseClassSpecLine validates and parses one class-spec header line,
// after the caller has stripped the comment token prefix.
func ParseClassSpecLine(line string) (*ClassSpec, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[1] != "Specializes" {
		return nil, fmt.Errorf("malformed class spec line %q", line)
	}
	className, parentName := fields[0], fields[2]
	if !classSpecPattern.MatchString(className) {
		return nil, fmt.Errorf("invalid class name %q", className)
	}
	if !classSpecPattern.MatchString(parentName) {
		return nil, fmt.Errorf("invalid parent class name %q", parentName)
	}
	spec := &ClassSpec{ClassName: className, ParentName: parentName}
	if len(fields) >= 4 {
		switch strings.Trim(fields[3], "()") {
		case "Abstract":
			spec.Abstract = true
		case "Final":
			spec.Final = true
		}
	}
	return spec, nil
}

// ScanClasses walks dir (recursing if recurse is true), reading each
// file under commentToken in full, attempting to parse a class-spec
// header from its first line, and recording a content checksum so a
// later AssureIntegrity pass can detect the file changing on disk.
// Unparsable files are skipped and reported via report rather than
// aborting the scan.
func ScanClasses(dir string, commentToken string, recurse bool, report func(path string, err error)) ([]*ClassSpec, error) {
	var specs []*ClassSpec
	walker := filepath.WalkDir
	err := walker(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recurse {
				return filepath.SkipDir
			}
			return nil
		}
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			if report != nil {
				report(path, rerr)
			}
			return nil
		}
		line := firstLineOf(data)
		if line == "" {
			if report != nil {
				report(path, fmt.Errorf("empty file"))
			}
			return nil
		}
		line = strings.TrimPrefix(strings.TrimSpace(line), commentToken)
		line = strings.TrimSpace(line)
		spec, perr := ParseClassSpecLine(line)
		if perr != nil {
			if report != nil {
				report(path, perr)
			}
			return nil
		}
		spec.SourcePath = path
		spec.Checksum = configfile.Checksum(data)
		specs = append(specs, spec)
		return nil
	})
	return specs, err
}

func firstLineOf(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return string(data[:i])
	}
	return string(data)
}

// BuildHierarchy topologically sorts specs by parent name and
// constructs a Class for each, deriving the override-prefix from
// ParentName+separator; every new Class shares base as its BaseProcess.
// It detects cycles and rejects Final-parent violations.
func BuildHierarchy(typeName string, specs []*ClassSpec, base *process.Process, separator string) (map[string]*Class, error) {
	byName := make(map[string]*ClassSpec, len(specs))
	for _, s := range specs {
		if _, dup := byName[s.ClassName]; dup {
			return nil, fmt.Errorf("duplicate class %q", s.ClassName)
		}
		byName[s.ClassName] = s
	}

	classes := make(map[string]*Class)
	visiting := make(map[string]bool)

	var resolve func(name string) (*Class, error)
	resolve = func(name string) (*Class, error) {
		if c, ok := classes[name]; ok {
			return c, nil
		}
		spec, ok := byName[name]
		if !ok {
			// A root class: parent is the type's native base, not
			// another SoftClass.
			c := &Class{Name: name, TypeName: typeName, BaseProcess: base}
			classes[name] = c
			return c, nil
		}
		if visiting[name] {
			return nil, fmt.Errorf("cycle detected in class hierarchy at %q", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		parent, err := resolve(spec.ParentName)
		if err != nil {
			return nil, err
		}
		if parent.Final {
			return nil, fmt.Errorf("class %q specializes final class %q", name, spec.ParentName)
		}
		c := &Class{
			Name:           name,
			TypeName:       typeName,
			ParentName:     spec.ParentName,
			Abstract:       spec.Abstract,
			Final:          spec.Final,
			OverridePrefix: spec.ParentName + separator,
			BaseProcess:    base,
			SourcePath:     spec.SourcePath,
			Checksum:       spec.Checksum,
		}
		classes[name] = c
		return c, nil
	}

	for _, s := range specs {
		if _, err := resolve(s.ClassName); err != nil {
			return nil, err
		}
	}
	return classes, nil
}
