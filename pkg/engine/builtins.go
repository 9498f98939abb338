package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/chazu/hexcavity/pkg/inspect"
	"github.com/chazu/hexcavity/pkg/kernel"
	"github.com/chazu/hexcavity/pkg/kernel/manifold"
	"github.com/chazu/hexcavity/pkg/kernel/sdfx"
	"github.com/chazu/hexcavity/pkg/merge"
	"github.com/chazu/hexcavity/pkg/mesh"
	"github.com/chazu/hexcavity/pkg/pipeline"
	"github.com/chazu/hexcavity/pkg/tetra"
	zygo "github.com/glycerine/zygomys/zygo"
	"gonum.org/v1/gonum/spatial/r3"
)

// ---------------------------------------------------------------------------
// Values passed between builtins
// ---------------------------------------------------------------------------

// sexpMesh carries a mesh through the zygomys environment. name is set once
// the mesh is bound with defmesh.
type sexpMesh struct {
	m    *mesh.Mesh
	name string
}

func (s *sexpMesh) SexpString(ps *zygo.PrintState) string {
	if s.name != "" {
		return fmt.Sprintf("(mesh %q)", s.name)
	}
	return fmt.Sprintf("(mesh %dv %df %dc)", s.m.NbVertices(), s.m.NbFacets(), s.m.NbCells())
}
func (s *sexpMesh) Type() *zygo.RegisteredType { return nil }

type sexpVec3 struct {
	vec r3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker preprocessSource puts in front of keyword names.
const kwPrefix = "__kw_"

// isKW returns the keyword name of s when s is a preprocessed keyword.
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
}

// parseArgs splits args into keyword and positional arguments. A keyword
// with no value following it maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	pa := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			pa.positional = append(pa.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			pa.kw[name] = args[i+1]
			i++
		} else {
			pa.kw[name] = zygo.SexpNull
		}
	}
	return pa
}

// arg returns the keyword argument key, or else positional argument pos.
func (pa kwArgs) arg(key string, pos int) (zygo.Sexp, bool) {
	if v, ok := pa.kw[key]; ok {
		return v, true
	}
	if pos >= 0 && pos < len(pa.positional) {
		return pa.positional[pos], true
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts a preprocessed keyword (:manifold) or a plain
// string ("manifold").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toVec3(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return r3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a list or an array to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toMesh accepts a mesh value or the name of a mesh bound in scene. The
// returned name is "" for unbound meshes.
func toMesh(scene *Scene, s zygo.Sexp) (*mesh.Mesh, string, error) {
	switch v := s.(type) {
	case *sexpMesh:
		return v.m, v.name, nil
	case *zygo.SexpStr:
		m := scene.Lookup(v.S)
		if m == nil {
			return nil, "", fmt.Errorf("no mesh named %q", v.S)
		}
		return m, v.S, nil
	}
	return nil, "", fmt.Errorf("expected mesh, got %T (%s)", s, s.SexpString(nil))
}

func sexpBool(b bool) zygo.Sexp { return &zygo.SexpBool{Val: b} }

// ---------------------------------------------------------------------------
// Mesh names
// ---------------------------------------------------------------------------

var meshCounter uint64

// nextMeshName names meshes bound by defmesh without an explicit name.
func nextMeshName() string {
	n := atomic.AddUint64(&meshCounter, 1)
	return fmt.Sprintf("_anon_%d", n)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtin is the signature zygomys expects from Go functions.
type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// meshUnary wraps an operation taking a single mesh argument.
func meshUnary(scene *Scene, op string, fn func(m *mesh.Mesh, name string) (zygo.Sexp, error)) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("%s requires exactly 1 argument, got %d", op, len(args))
		}
		m, meshName, err := toMesh(scene, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		return fn(m, meshName)
	}
}

// surfaceKernel picks the kernel named by the :kernel argument.
func surfaceKernel(pa kwArgs) (kernel.Kernel, error) {
	cells := sdfx.DefaultMeshCells
	if v, ok := pa.kw["cells"]; ok {
		n, err := toInt(v)
		if err != nil {
			return nil, fmt.Errorf("cells: %w", err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("cells: must be positive, got %d", n)
		}
		cells = n
	}
	v, ok := pa.kw["kernel"]
	if !ok {
		return sdfx.NewWithResolution(cells), nil
	}
	k, err := toKeywordString(v)
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	switch k {
	case "sdfx":
		return sdfx.NewWithResolution(cells), nil
	case "manifold":
		return manifold.New()
	}
	return nil, fmt.Errorf("kernel: unknown kernel %q, expected sdfx or manifold", k)
}

// registerBuiltins installs the scene builtins into env. Meshes bound with
// defmesh land in scene, checks append their defects to scene.Diagnostics.
//
// Source must go through preprocessSource first so that :keyword tokens
// reach the builtins as recognisable strings.
func registerBuiltins(env *zygo.Zlisp, scene *Scene) {

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: r3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// (box-surface (vec3 0 0 0) (vec3 1 1 1)), or with :min and :max
	env.AddFunction("box_surface", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lo, hi, err := boxCorners(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box_surface: %w", err)
		}
		return &sexpMesh{m: mesh.BoxSurface(lo, hi)}, nil
	})

	// (hex-block :min (vec3 0 0 0) :size 1 :n 2)
	env.AddFunction("hex_block", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var min r3.Vec
		size, n := 1.0, 1
		if v, ok := pa.arg("min", 0); ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("hex_block: min: %w", err)
			}
			min = p
		}
		if v, ok := pa.arg("size", 1); ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("hex_block: size: %w", err)
			}
			size = f
		}
		if v, ok := pa.arg("n", 2); ok {
			i, err := toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("hex_block: n: %w", err)
			}
			n = i
		}
		if size <= 0 || n <= 0 {
			return zygo.SexpNull, fmt.Errorf("hex_block: size and n must be positive, got %g and %d", size, n)
		}
		return &sexpMesh{m: mesh.HexBlock(min, size, n)}, nil
	})

	// (tet a b c d)
	env.AddFunction("tet", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("tet requires exactly 4 points, got %d", len(args))
		}
		var p [4]r3.Vec
		for i, a := range args {
			v, err := toVec3(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("tet: point %d: %w", i, err)
			}
			p[i] = v
		}
		return &sexpMesh{m: mesh.Tetrahedron(p[0], p[1], p[2], p[3])}, nil
	})

	// (translate m (vec3 1 0 0)) returns a moved copy of m.
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("translate requires a mesh and a vec3")
		}
		m, _, err := toMesh(scene, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		d, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: offset: %w", err)
		}
		out := m.Copy()
		out.Translate(d)
		return &sexpMesh{m: out}, nil
	})

	// (reverse m) returns a copy of m with every facet flipped.
	env.AddFunction("reverse", meshUnary(scene, "reverse", func(m *mesh.Mesh, _ string) (zygo.Sexp, error) {
		out := m.Copy()
		for f := 0; f < out.NbFacets(); f++ {
			out.ReverseFacet(f)
		}
		return &sexpMesh{m: out}, nil
	}))

	// (remove-facet m 3) or (remove-facet m (list 3 4))
	env.AddFunction("remove_facet", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("remove_facet requires a mesh and a facet index")
		}
		m, _, err := toMesh(scene, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove_facet: %w", err)
		}
		items := []zygo.Sexp{args[1]}
		if _, isInt := args[1].(*zygo.SexpInt); !isInt {
			if items, err = sexpListToSlice(args[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("remove_facet: %w", err)
			}
		}
		mask := make([]bool, m.NbFacets())
		for _, it := range items {
			f, err := toInt(it)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("remove_facet: %w", err)
			}
			if f < 0 || f >= len(mask) {
				return zygo.SexpNull, fmt.Errorf("remove_facet: facet %d out of range [0, %d)", f, len(mask))
			}
			mask[f] = true
		}
		out := m.Copy()
		out.DeleteFacets(mask)
		return &sexpMesh{m: out}, nil
	})

	// (defmesh "name" m) binds m in the scene.
	env.AddFunction("defmesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		var meshName string
		var body zygo.Sexp
		switch len(args) {
		case 1:
			meshName, body = nextMeshName(), args[0]
		case 2:
			s, err := toString(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defmesh: name: %w", err)
			}
			meshName, body = s, args[1]
		default:
			return zygo.SexpNull, fmt.Errorf("defmesh requires a name and a mesh expression")
		}
		v, ok := body.(*sexpMesh)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("defmesh: expected mesh expression, got %T", body)
		}
		scene.Define(meshName, v.m)
		return &sexpMesh{m: v.m, name: meshName}, nil
	})

	// (mesh "name")
	env.AddFunction("mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("mesh requires a name argument")
		}
		meshName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("mesh: name: %w", err)
		}
		m := scene.Lookup(meshName)
		if m == nil {
			return zygo.SexpNull, fmt.Errorf("mesh: no mesh named %q", meshName)
		}
		return &sexpMesh{m: m, name: meshName}, nil
	})

	// (merge base volume) returns a copy of base with the border of volume
	// glued in.
	env.AddFunction("merge", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("merge requires a base mesh and a volume mesh")
		}
		base, baseName, err := toMesh(scene, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("merge: base: %w", err)
		}
		volume, _, err := toMesh(scene, args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("merge: volume: %w", err)
		}
		out := base.Copy()
		report, err := merge.Merge(out, volume)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("merge: %w", err)
		}
		for _, g := range report.Ambiguous {
			scene.diagnose("merge", baseName, inspect.Ambiguous(g.Facets, g.Reason))
		}
		return &sexpMesh{m: out}, nil
	})

	// (manifold? m)
	env.AddFunction("manifold_p", meshUnary(scene, "manifold?", func(m *mesh.Mesh, meshName string) (zygo.Sexp, error) {
		if d := inspect.CheckManifold(m); d != nil {
			scene.diagnose("manifold?", meshName, d)
			return sexpBool(false), nil
		}
		return sexpBool(true), nil
	}))

	// (tetgenifiable? m)
	env.AddFunction("tetgenifiable_p", meshUnary(scene, "tetgenifiable?", func(m *mesh.Mesh, meshName string) (zygo.Sexp, error) {
		check := inspect.IsAcceptableForTetrahedralization
		if m.NbCells() > 0 {
			check = inspect.VolumeIsAcceptableForTetrahedralization
		}
		if ok, d := check(m, tetra.NewChecker()); !ok {
			scene.diagnose("tetgenifiable?", meshName, d)
			return sexpBool(false), nil
		}
		return sexpBool(true), nil
	}))

	// (hex-fraction m) returns the hexahedral share of the cell volume and
	// records both shares in the scene log.
	env.AddFunction("hex_fraction", meshUnary(scene, "hex_fraction", func(m *mesh.Mesh, _ string) (zygo.Sexp, error) {
		nb, vol := inspect.HexVolumeFraction(m)
		scene.Log.Value("nb_hex_prop", nb)
		scene.Log.Value("vol_hex_prop", vol)
		return &zygo.SexpFloat{Val: vol}, nil
	}))

	// (facet-stats m) returns the manifold counters as a string.
	env.AddFunction("facet_stats", meshUnary(scene, "facet_stats", func(m *mesh.Mesh, _ string) (zygo.Sexp, error) {
		s, err := inspect.FacetStats(m)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("facet_stats: %w", err)
		}
		return &zygo.SexpStr{S: s.String()}, nil
	}))

	env.AddFunction("nb_vertices", meshUnary(scene, "nb_vertices", func(m *mesh.Mesh, _ string) (zygo.Sexp, error) {
		return &zygo.SexpInt{Val: int64(m.NbVertices())}, nil
	}))
	env.AddFunction("nb_facets", meshUnary(scene, "nb_facets", func(m *mesh.Mesh, _ string) (zygo.Sexp, error) {
		return &zygo.SexpInt{Val: int64(m.NbFacets())}, nil
	}))
	env.AddFunction("nb_cells", meshUnary(scene, "nb_cells", func(m *mesh.Mesh, _ string) (zygo.Sexp, error) {
		return &zygo.SexpInt{Val: int64(m.NbCells())}, nil
	}))

	// (cavity quad hexes) runs the cavity stage. A rejected surface is still
	// returned; the rejection goes to the scene diagnostics.
	env.AddFunction("cavity", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("cavity requires a quad-dominant surface and a hex mesh")
		}
		quad, quadName, err := toMesh(scene, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cavity: surface: %w", err)
		}
		hexes, _, err := toMesh(scene, args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cavity: hexahedra: %w", err)
		}
		res, err := pipeline.CavityWithLog(quad, hexes, tetra.NewChecker(), scene.Log)
		var se *pipeline.StageError
		switch {
		case errors.As(err, &se):
			scene.diagnose("cavity", quadName, se.Defect)
		case err != nil:
			return zygo.SexpNull, fmt.Errorf("cavity: %w", err)
		}
		for _, d := range res.Ambiguous {
			scene.diagnose("cavity", quadName, d)
		}
		return &sexpMesh{m: res.Cavity}, nil
	})

	// (sdf-box (vec3 0 0 0) (vec3 10 10 10) :cells 40 :kernel :sdfx)
	env.AddFunction("sdf_box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lo, hi, err := boxCorners(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sdf_box: %w", err)
		}
		k, err := surfaceKernel(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sdf_box: %w", err)
		}
		m, err := k.ToSurface(k.Box(lo, hi))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sdf_box: %w", err)
		}
		return &sexpMesh{m: m}, nil
	})

	// (sdf-sphere (vec3 0 0 0) 5 :cells 40)
	env.AddFunction("sdf_sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var center r3.Vec
		radius := 1.0
		if v, ok := pa.arg("center", 0); ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sdf_sphere: center: %w", err)
			}
			center = p
		}
		if v, ok := pa.arg("radius", 1); ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sdf_sphere: radius: %w", err)
			}
			radius = f
		}
		if radius <= 0 {
			return zygo.SexpNull, fmt.Errorf("sdf_sphere: radius must be positive, got %g", radius)
		}
		k, err := surfaceKernel(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sdf_sphere: %w", err)
		}
		m, err := k.ToSurface(k.Sphere(center, radius))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sdf_sphere: %w", err)
		}
		return &sexpMesh{m: m}, nil
	})
}

// boxCorners reads the min and max corners of a box, by keyword or in
// position.
func boxCorners(pa kwArgs) (lo, hi r3.Vec, err error) {
	v, ok := pa.arg("min", 0)
	if !ok {
		return lo, hi, errors.New("missing min corner")
	}
	if lo, err = toVec3(v); err != nil {
		return lo, hi, fmt.Errorf("min: %w", err)
	}
	if v, ok = pa.arg("max", 1); !ok {
		return lo, hi, errors.New("missing max corner")
	}
	if hi, err = toVec3(v); err != nil {
		return lo, hi, fmt.Errorf("max: %w", err)
	}
	if hi.X <= lo.X || hi.Y <= lo.Y || hi.Z <= lo.Z {
		return lo, hi, fmt.Errorf("max %v must exceed min %v on every axis", hi, lo)
	}
	return lo, hi, nil
}
