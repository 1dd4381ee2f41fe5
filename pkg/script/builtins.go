package script

import (
	"fmt"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/lddmodder/brickedit/pkg/project"
)

// builtinFunc is the signature zygomys expects for Go functions.
type builtinFunc = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the part macro builtins. Each one appends to
// plan; nothing touches a project during evaluation. Names are registered
// in the snake_case form preprocessSource produces.
func registerBuiltins(env *zygo.Zlisp, plan *Plan) {
	funcs := map[string]builtinFunc{
		"part_id":     partIDBuiltin(plan),
		"description": descriptionBuiltin(plan),
		"vec3":        vec3Builtin,
		"surface":     surfaceBuiltin(plan),
		"connection":  connectionBuiltin(plan),
		"box":         boxBuiltin(plan),
		"sphere":      sphereBuiltin(plan),
		"bone":        boneBuiltin(plan),
	}
	for name, fn := range funcs {
		env.AddFunction(name, fn)
	}
}

// (part-id 3001)
func partIDBuiltin(plan *Plan) builtinFunc {
	return func(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("part-id requires exactly 1 argument, got %d", len(args))
		}
		id, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part-id: %w", err)
		}
		plan.add(setPartID{id: id})
		return args[0], nil
	}
}

// (description "Brick 2 x 4")
func descriptionBuiltin(plan *Plan) builtinFunc {
	return func(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("description requires exactly 1 argument, got %d", len(args))
		}
		text, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("description: %w", err)
		}
		plan.add(setDescription{text: text})
		return args[0], nil
	}
}

// (vec3 1 2 3)
func vec3Builtin(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}
	var xyz [3]float64
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
		}
		xyz[i] = f
	}
	v := &sexpVec3{}
	v.vec.X, v.vec.Y, v.vec.Z = xyz[0], xyz[1], xyz[2]
	return v, nil
}

// (surface 1 :material 5)
func surfaceBuiltin(plan *Plan) builtinFunc {
	return func(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("surface requires a surface ID")
		}
		id, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("surface: id: %w", err)
		}
		e := addSurface{id: id}
		if err := pa.kwInt("material", &e.material); err != nil {
			return zygo.SexpNull, fmt.Errorf("surface: %w", err)
		}
		plan.add(e)
		return zygo.SexpNull, nil
	}
}

// (connection :custom2DField :at (vec3 0 0.96 0) :width 8 :height 4
//             :field "0:4,0")
func connectionBuiltin(plan *Plan) builtinFunc {
	return func(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var typeName string
		switch {
		case len(pa.flags) == 1 && len(pa.positional) == 0:
			typeName = pa.flags[0]
		case len(pa.flags) == 0 && len(pa.positional) == 1:
			s, err := toKeywordString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("connection: type: %w", err)
			}
			typeName = s
		default:
			return zygo.SexpNull, fmt.Errorf("connection requires exactly one connector type")
		}
		ct, err := project.ParseConnectorType(typeName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connection: %w", err)
		}

		e := &addConnection{connType: ct}
		if e.transform, err = pa.transform(); err != nil {
			return zygo.SexpNull, fmt.Errorf("connection: %w", err)
		}
		for _, opt := range []error{
			pa.kwInt("subtype", &e.subType),
			pa.kwFloat("length", &e.length),
			pa.kwInt("width", &e.width),
			pa.kwInt("height", &e.height),
		} {
			if opt != nil {
				return zygo.SexpNull, fmt.Errorf("connection: %w", opt)
			}
		}
		if v, ok := pa.kw["field"]; ok {
			if e.fieldData, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("connection: field: %w", err)
			}
		}
		plan.add(e)
		return &sexpConnection{edit: e}, nil
	}
}

// (box (vec3 0.8 0.48 0.4) :at (vec3 0 0.48 0))
func boxBuiltin(plan *Plan) builtinFunc {
	return func(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("box requires a size vector")
		}
		size, err := toVec3(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
		}
		e := &addCollision{collType: project.CollisionBox, size: size}
		if e.transform, err = pa.transform(); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		plan.add(e)
		return &sexpCollision{edit: e}, nil
	}
}

// (sphere 0.4 :at (vec3 0 0.4 0))
func sphereBuiltin(plan *Plan) builtinFunc {
	return func(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("sphere requires a radius")
		}
		r, err := toFloat64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
		}
		e := &addCollision{collType: project.CollisionSphere, radius: r}
		if e.transform, err = pa.transform(); err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		plan.add(e)
		return &sexpCollision{edit: e}, nil
	}
}

// (bone 0 :at (vec3 0 0 0.8) (connection :ball) (sphere 0.2))
func boneBuiltin(plan *Plan) builtinFunc {
	return func(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("bone requires a bone ID")
		}
		id, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bone: id: %w", err)
		}
		e := &addBone{id: id}
		if e.transform, err = pa.transform(); err != nil {
			return zygo.SexpNull, fmt.Errorf("bone: %w", err)
		}
		for i, child := range pa.positional[1:] {
			switch c := child.(type) {
			case *sexpConnection:
				if err := c.edit.claim(); err != nil {
					return zygo.SexpNull, fmt.Errorf("bone: child %d: %w", i+1, err)
				}
				e.connections = append(e.connections, c.edit)
			case *sexpCollision:
				if err := c.edit.claim(); err != nil {
					return zygo.SexpNull, fmt.Errorf("bone: child %d: %w", i+1, err)
				}
				e.collisions = append(e.collisions, c.edit)
			default:
				return zygo.SexpNull, fmt.Errorf("bone: child %d: expected connection or collision, got %s", i+1, describe(child))
			}
		}
		plan.add(e)
		return zygo.SexpNull, nil
	}
}
