package modules

import (
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/evaluator"
	"github.com/funvibe/kerntrace/internal/typesystem"
)

const corePackagePath = config.LanguageModuleName + "." + config.CoreNamespaceName

var (
	constexprMarker = &evaluator.Marker{Name: config.ConstexprName}
	tensorMarker    = &evaluator.Marker{Name: config.TensorTypeName}
)

func initCorePackage() {
	RegisterVirtualPackage(corePackagePath, &VirtualPackage{
		Name: corePackagePath,
		Symbols: map[string]evaluator.Object{
			config.BuiltinDecorator: &evaluator.Marker{Name: config.BuiltinDecorator},
			config.ToTensorFuncName: &evaluator.Builtin{Name: config.ToTensorFuncName, Fn: builtinToTensor},
			config.ConstexprName:    constexprMarker,
			config.TensorTypeName:   tensorMarker,
		},
	})
}

func initLanguagePackage() {
	symbols := map[string]evaluator.Object{
		config.CoreNamespaceName:          virtualPackages[corePackagePath].Namespace(),
		config.ArangeFuncName:             &evaluator.Builtin{Name: config.ArangeFuncName, Fn: builtinArange},
		config.FullFuncName:               &evaluator.Builtin{Name: config.FullFuncName, Fn: builtinFull},
		config.ZerosFuncName:              &evaluator.Builtin{Name: config.ZerosFuncName, Fn: builtinZeros},
		config.ToTensorFuncName:           &evaluator.Builtin{Name: config.ToTensorFuncName, Fn: builtinToTensor},
		config.StaticRangeFuncName:        &evaluator.Builtin{Name: config.StaticRangeFuncName, Fn: builtinStaticRange},
		config.ConstexprName:              constexprMarker,
		config.TensorTypeName:             tensorMarker,
		config.AggregateDecorator:         &evaluator.Marker{Name: config.AggregateDecorator},
		config.ConstexprFunctionDecorator: &evaluator.Marker{Name: config.ConstexprFunctionDecorator},
	}
	for _, d := range typesystem.DTypes() {
		symbols[d.String()] = &evaluator.DType{Value: d}
	}
	RegisterVirtualPackage(config.LanguageModuleName, &VirtualPackage{
		Name:    config.LanguageModuleName,
		Symbols: symbols,
	})
}

func initTritonPackage() {
	RegisterVirtualPackage(config.TritonModuleName, &VirtualPackage{
		Name: config.TritonModuleName,
		Symbols: map[string]evaluator.Object{
			config.JitDecorator: &evaluator.Marker{Name: config.JitDecorator},
			"language":          virtualPackages[config.LanguageModuleName].Namespace(),
		},
	})
}
