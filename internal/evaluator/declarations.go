package evaluator

import (
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/diagnostics"
)

// DefineFunction turns a def into a Function value. Inside function
// bodies the enclosing locals are captured by value at this point.
func (in *Interpreter) DefineFunction(def *ast.FunctionDef, fr *frame, class *AggregateType) (*Function, error) {
	fn := &Function{
		Name:     def.Name.Value,
		QualName: fr.prefix + def.Name.Value,
		Module:   in.Module,
		Def:      def,
		Class:    class,
		Kind:     HostFunction,
	}
	if class != nil {
		fn.Kind = JitFunction
	}

	for _, dec := range def.Decorators {
		obj, err := in.Eval(dec, fr.env)
		if err != nil {
			return nil, err
		}
		marker, ok := obj.(*Marker)
		if !ok {
			return nil, diagnostics.NewUnsupportedError(in.pos(dec.GetToken()), "decorator "+obj.Inspect())
		}
		switch marker.Name {
		case config.JitDecorator:
			fn.Kind = JitFunction
		case config.BuiltinDecorator:
			fn.Kind = BuiltinMethod
		case config.ConstexprFunctionDecorator:
			fn.Kind = HostFunction
			fn.Constexpr = true
		case config.StaticMethodDecorator:
			if class == nil {
				return nil, diagnostics.NewUnsupportedError(in.pos(dec.GetToken()), "staticmethod outside a class")
			}
			fn.Static = true
		default:
			return nil, diagnostics.NewUnsupportedError(in.pos(dec.GetToken()), "decorator "+marker.Name)
		}
	}

	for _, p := range def.Parameters {
		param := Param{Name: p.Name}
		if p.Annotation != nil {
			ann, err := in.Eval(p.Annotation, fr.env)
			if err != nil {
				return nil, err
			}
			param.Constexpr = isConstexprMarker(ann)
		}
		if p.Default != nil {
			d, err := in.Eval(p.Default, fr.env)
			if err != nil {
				return nil, err
			}
			param.Default = d
		}
		fn.Params = append(fn.Params, param)
	}

	if fr.local {
		capture := captureLocals(fr.env)
		capture.Set(fn.Name, fn)
		fn.Scope = capture
	} else {
		fn.Scope = fr.env
	}
	return fn, nil
}

// DefineClass evaluates a tl.aggregate class body and binds the class.
func (in *Interpreter) DefineClass(cd *ast.ClassDef, fr *frame) (*AggregateType, error) {
	isAggregate := false
	for _, dec := range cd.Decorators {
		obj, err := in.Eval(dec, fr.env)
		if err != nil {
			return nil, err
		}
		if m, ok := obj.(*Marker); ok && m.Name == config.AggregateDecorator {
			isAggregate = true
			continue
		}
		return nil, diagnostics.NewUnsupportedError(in.pos(dec.GetToken()), "class decorator "+obj.Inspect())
	}
	if !isAggregate {
		return nil, diagnostics.NewUnsupportedError(in.pos(cd.Token), "class "+cd.Name.Value+" is not an aggregate")
	}

	class := &AggregateType{
		Name:     cd.Name.Value,
		QualName: fr.prefix + cd.Name.Value,
		Module:   in.Module,
		Methods:  make(map[string]*Function),
	}

	// Methods resolve free names in one shared scope that also sees the
	// class itself once it is bound below.
	methodScope := fr.env
	if fr.local {
		methodScope = captureLocals(fr.env)
	}
	methods := &frame{env: methodScope, prefix: class.QualName + "."}

	for _, stmt := range cd.Body {
		switch s := stmt.(type) {
		case *ast.PassStatement:
		case *ast.AssignStatement:
			name, ok := s.Target.(*ast.Identifier)
			if !ok || s.Value != nil || s.Annotation == nil {
				return nil, diagnostics.NewUnsupportedError(in.pos(s.Token), "only annotated field declarations are allowed in an aggregate body")
			}
			field, err := in.declareField(name, s.Annotation, fr.env)
			if err != nil {
				return nil, err
			}
			if class.FieldIndex(field.Name) >= 0 {
				return nil, diagnostics.NewTypeError(in.pos(s.Token), "duplicate field %s", field.Name)
			}
			class.Fields = append(class.Fields, field)
		case *ast.FunctionDef:
			fn, err := in.DefineFunction(s, methods, class)
			if err != nil {
				return nil, err
			}
			class.Methods[fn.Name] = fn
		default:
			return nil, diagnostics.NewUnsupportedError(in.pos(stmt.GetToken()), "statement in an aggregate body")
		}
	}

	if fr.local {
		methodScope.Set(class.Name, class)
	}
	fr.env.Set(class.Name, class)
	return class, nil
}

func (in *Interpreter) declareField(name *ast.Identifier, annotation ast.Expression, env *Environment) (Field, error) {
	ann, err := in.Eval(annotation, env)
	if err != nil {
		return Field{}, err
	}
	field := Field{Name: name.Value}
	switch a := ann.(type) {
	case *Marker:
		switch a.Name {
		case config.ConstexprName:
			field.Constexpr = true
		case config.TensorTypeName:
		default:
			return Field{}, diagnostics.NewTypeError(in.pos(name.Token), "invalid field type %s", a.Inspect())
		}
	case *AggregateType:
		field.Class = a
	case *DType:
	default:
		return Field{}, diagnostics.NewTypeError(in.pos(name.Token), "invalid field type %s", ann.Inspect())
	}
	return field, nil
}

func isConstexprMarker(obj Object) bool {
	m, ok := obj.(*Marker)
	return ok && m.Name == config.ConstexprName
}

// IsConstexprAnnotation reports whether an evaluated annotation is tl.constexpr.
func IsConstexprAnnotation(obj Object) bool { return isConstexprMarker(obj) }

// captureLocals copies the local chain of env into a fresh frame whose
// outer scope is the one the enclosing function itself resolves in.
func captureLocals(env *Environment) *Environment {
	snap := env.Snapshot()
	var scope *Environment
	for e := env; e != nil; e = e.outer {
		if e.root {
			scope = e.outer
			break
		}
	}
	capture := NewEnvironment()
	capture.outer = scope
	for _, name := range snap.Names() {
		v, _ := snap.Get(name)
		capture.Set(name, v)
	}
	return capture
}
