package script

import (
	"fmt"
	"math"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/lddmodder/brickedit/pkg/project"
)

// ----------------------------------------------------------------------------
// Values passed between builtins
// ----------------------------------------------------------------------------

type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(*zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpConnection struct {
	edit *addConnection
}

func (c *sexpConnection) SexpString(*zygo.PrintState) string {
	return fmt.Sprintf("(connection %s)", c.edit.connType)
}
func (c *sexpConnection) Type() *zygo.RegisteredType { return nil }

type sexpCollision struct {
	edit *addCollision
}

func (c *sexpCollision) SexpString(*zygo.PrintState) string {
	return fmt.Sprintf("(%s)", strings.ToLower(c.edit.collType.String()))
}
func (c *sexpCollision) Type() *zygo.RegisteredType { return nil }

// ----------------------------------------------------------------------------
// Argument parsing
// ----------------------------------------------------------------------------

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
	flags      []string // keywords without a value, e.g. the connector type
}

// parseArgs splits args into keyword/value pairs and positional values. A
// keyword followed by another keyword or by nothing is a flag.
func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next {
				res.kw[name] = args[i+1]
				i++
				continue
			}
		}
		res.flags = append(res.flags, name)
	}
	return res
}

func describe(s zygo.Sexp) string {
	if s == nil {
		return "nil"
	}
	return s.SexpString(nil)
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, describe(s))
}

func toInt(s zygo.Sexp) (int, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("expected integer, got %g", f)
	}
	return int(f), nil
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, describe(s))
}

// toKeywordString accepts a keyword (:axel) or a plain string ("axel").
func toKeywordString(s zygo.Sexp) (string, error) {
	if name, ok := isKW(s); ok {
		return name, nil
	}
	return toString(s)
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, describe(s))
}

// kwFloat reads an optional numeric keyword into dst.
func (a kwArgs) kwFloat(name string, dst *float64) error {
	v, ok := a.kw[name]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = f
	return nil
}

func (a kwArgs) kwInt(name string, dst *int) error {
	v, ok := a.kw[name]
	if !ok {
		return nil
	}
	n, err := toInt(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}

// transform reads :at and either :rotation (Euler degrees) or :axis with
// :angle (degrees).
func (a kwArgs) transform() (project.ItemTransform, error) {
	var t project.ItemTransform
	if v, ok := a.kw["at"]; ok {
		p, err := toVec3(v)
		if err != nil {
			return t, fmt.Errorf("at: %w", err)
		}
		t.Position = p
	}
	if v, ok := a.kw["rotation"]; ok {
		r, err := toVec3(v)
		if err != nil {
			return t, fmt.Errorf("rotation: %w", err)
		}
		t.Rotation = r
	}
	if v, ok := a.kw["axis"]; ok {
		if _, ok := a.kw["rotation"]; ok {
			return t, fmt.Errorf("use either rotation or axis, not both")
		}
		axis, err := toVec3(v)
		if err != nil {
			return t, fmt.Errorf("axis: %w", err)
		}
		var angle float64
		if err := a.kwFloat("angle", &angle); err != nil {
			return t, err
		}
		t = project.TransformFromAxisAngle(angle, axis, t.Position)
	}
	return t, nil
}
