package modules

import (
	"github.com/funvibe/kerntrace/internal/evaluator"
)

// VirtualPackage is a namespace provided by the tracer rather than by
// source code, such as triton.language.
type VirtualPackage struct {
	Name    string
	Symbols map[string]evaluator.Object

	namespace *evaluator.Namespace
}

// virtualPackages maps package paths to their definitions
var virtualPackages = map[string]*VirtualPackage{}

// RegisterVirtualPackage registers a virtual package
func RegisterVirtualPackage(path string, pkg *VirtualPackage) {
	virtualPackages[path] = pkg
}

// GetVirtualPackage returns a virtual package by path, or nil if not found
func GetVirtualPackage(path string) *VirtualPackage {
	InitVirtualPackages()
	return virtualPackages[path]
}

// IsVirtualPackage checks if a path is a virtual package
func IsVirtualPackage(path string) bool {
	return GetVirtualPackage(path) != nil
}

// Namespace returns the object bound by importing the package.
func (vp *VirtualPackage) Namespace() *evaluator.Namespace {
	if vp.namespace == nil {
		vp.namespace = &evaluator.Namespace{Name: vp.Name, Members: vp.Symbols}
	}
	return vp.namespace
}

// Import resolves an import path; it has the evaluator.Importer signature.
func Import(path string) (evaluator.Object, bool) {
	pkg := GetVirtualPackage(path)
	if pkg == nil {
		return nil, false
	}
	return pkg.Namespace(), true
}
