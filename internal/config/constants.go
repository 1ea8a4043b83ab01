package config

const SourceFileExt = ".py"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".py"}

// Virtual namespaces resolvable by import statements
const (
	TritonModuleName   = "triton"
	LanguageModuleName = "triton.language"
	LanguageAlias      = "tl"
	CoreNamespaceName  = "core"
)

// Decorator names
const (
	JitDecorator               = "jit"
	BuiltinDecorator           = "builtin"
	AggregateDecorator         = "aggregate"
	ConstexprFunctionDecorator = "constexpr_function"
	StaticMethodDecorator      = "staticmethod"
)

// Built-in function names
const (
	RangeFuncName       = "range"
	LenFuncName         = "len"
	StaticRangeFuncName = "static_range"
	ArangeFuncName      = "arange"
	FullFuncName        = "full"
	ZerosFuncName       = "zeros"
	ToTensorFuncName    = "to_tensor"
	ConstexprName       = "constexpr"
	TensorTypeName      = "tensor"
)

// Special method and attribute names
const (
	InitMethodName = "__init__"
	SelfParamName  = "self"
	ShapeAttrName  = "shape"
	DTypeAttrName  = "dtype"
	LocalsMarker   = "<locals>"
)

// Name mangling
const (
	MangleParamsSeparator = "__"
	MangleParamSeparator  = "_"
	MangleConstexprPrefix = "c"
	MangleTupleDelimiter  = "T"
)

// DefaultMaxCallDepth bounds nested specialization requests.
const DefaultMaxCallDepth = 64
