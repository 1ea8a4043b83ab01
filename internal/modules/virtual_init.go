package modules

import (
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/evaluator"
	"sync"
)

var initVirtualPackagesOnce sync.Once

// InitVirtualPackages initializes all virtual packages.
// Safe to call multiple times; initialization is performed once.
func InitVirtualPackages() {
	initVirtualPackagesOnce.Do(func() {
		initCorePackage()
		initLanguagePackage()
		initTritonPackage()
	})
}

// Universe returns the names visible in every module without an import.
func Universe() map[string]evaluator.Object {
	return map[string]evaluator.Object{
		config.RangeFuncName:         &evaluator.Builtin{Name: config.RangeFuncName, Fn: builtinRange},
		config.LenFuncName:           &evaluator.Builtin{Name: config.LenFuncName, Fn: builtinLen},
		config.StaticMethodDecorator: &evaluator.Marker{Name: config.StaticMethodDecorator},
	}
}
