package engine

import (
	"strings"
	"testing"

	"github.com/chazu/hexcavity/pkg/inspect"
	"github.com/chazu/hexcavity/pkg/kernel/manifold"
)

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(hex-block :size 2)`,
			expect: `(hex_block "__kw_size" 2)`,
		},
		{
			name:   "multiple keywords",
			input:  `(sdf-box :min a :max b)`,
			expect: `(sdf_box "__kw_min" a "__kw_max" b)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "escaped quote in string",
			input:  `"a \" :b" :c`,
			expect: `"a \" :b" "__kw_c"`,
		},
		{
			name:   "backtick string preserved",
			input:  "`raw :kw manifold?`",
			expect: "`raw :kw manifold?`",
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "predicate suffix",
			input:  `(manifold? m)`,
			expect: `(manifold_p m)`,
		},
		{
			name:   "kebab predicate",
			input:  `(volume-ok? m)`,
			expect: `(volume_ok_p m)`,
		},
		{
			name:   "lone question mark kept",
			input:  `(f ?)`,
			expect: `(f ?)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword and manifold?`,
			expect: `// comment with :keyword and manifold?`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:max-depth`,
			expect: `"__kw_max-depth"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// mustEvaluate runs source and fails the test on any error.
func mustEvaluate(t *testing.T, source string) *Scene {
	t.Helper()
	scene, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if scene == nil {
		t.Fatal("expected non-nil scene")
	}
	return scene
}

// mustFail runs source and expects at least one eval error.
func mustFail(t *testing.T, source string) []EvalError {
	t.Helper()
	scene, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if scene != nil {
		t.Fatal("expected nil scene on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	for _, e := range evalErrs {
		if e.Message == "" {
			t.Error("eval error should have a non-empty message")
		}
	}
	return evalErrs
}

func logValue(t *testing.T, s *Scene, name string) float64 {
	t.Helper()
	for _, v := range s.Log.Summary().Values {
		if v.Name == name {
			return v.Value
		}
	}
	t.Fatalf("no logged value %q", name)
	return 0
}

func TestBoxSurface(t *testing.T) {
	s := mustEvaluate(t, `(defmesh "cube" (box-surface (vec3 0 0 0) (vec3 1 2 3)))`)
	cube := s.Lookup("cube")
	if cube == nil {
		t.Fatal("expected mesh named 'cube'")
	}
	if cube.NbVertices() != 8 || cube.NbFacets() != 6 {
		t.Errorf("cube has %d vertices and %d facets, want 8 and 6", cube.NbVertices(), cube.NbFacets())
	}
	if bb := cube.BoundingBox(); bb.Max.Z != 3 {
		t.Errorf("cube max Z = %f, want 3", bb.Max.Z)
	}
}

func TestBoxSurfaceKeywords(t *testing.T) {
	s := mustEvaluate(t, `(defmesh "b" (box-surface :max (vec3 4 4 4) :min (vec3 1 1 1)))`)
	if bb := s.Lookup("b").BoundingBox(); bb.Min.X != 1 || bb.Max.X != 4 {
		t.Errorf("box spans X %f..%f, want 1..4", bb.Min.X, bb.Max.X)
	}
}

func TestVariableReference(t *testing.T) {
	s := mustEvaluate(t, `
(def edge 0.5)
(defmesh "hexes" (hex-block :min (vec3 1 0 0) :size edge :n 2))
`)
	hexes := s.Lookup("hexes")
	if hexes == nil {
		t.Fatal("expected mesh named 'hexes'")
	}
	if hexes.NbCells() != 8 {
		t.Errorf("NbCells() = %d, want 8", hexes.NbCells())
	}
	if hexes.NbVertices() != 27 {
		t.Errorf("NbVertices() = %d, want 27", hexes.NbVertices())
	}
	if bb := hexes.BoundingBox(); bb.Max.X != 2 {
		t.Errorf("max X = %f, want 2", bb.Max.X)
	}
}

func TestDefmeshOrderAndLookup(t *testing.T) {
	s := mustEvaluate(t, `
(defmesh "b" (box-surface (vec3 0 0 0) (vec3 1 1 1)))
(defmesh "a" (translate (mesh "b") (vec3 5 0 0)))
(defmesh (tet (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0) (vec3 0 0 1)))
`)
	names := s.Names()
	if len(names) != 3 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("Names() = %v, want [b a _anon_N]", names)
	}
	if !strings.HasPrefix(names[2], "_anon_") {
		t.Errorf("anonymous mesh named %q", names[2])
	}
	if got := s.Lookup("a").BoundingBox().Min.X; got != 5 {
		t.Errorf("translated min X = %f, want 5", got)
	}
	if got := s.Lookup("b").BoundingBox().Min.X; got != 0 {
		t.Errorf("translate moved its input: min X = %f", got)
	}
}

func TestManifoldPredicate(t *testing.T) {
	s := mustEvaluate(t, `
(defmesh "cube" (box-surface (vec3 0 0 0) (vec3 1 1 1)))
(defmesh "open" (remove-facet (mesh "cube") 5))
(manifold? "cube")
(manifold? (mesh "open"))
`)
	if len(s.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(s.Diagnostics), s.Diagnostics)
	}
	d := s.Diagnostics[0]
	if d.Op != "manifold?" || d.Mesh != "open" {
		t.Errorf("diagnostic = %+v, want manifold? on open", d)
	}
	if d.Defect.Kind != inspect.UnmatchedHalfEdge {
		t.Errorf("defect kind = %s, want %s", d.Defect.Kind, inspect.UnmatchedHalfEdge)
	}
	if s.Lookup("cube").NbFacets() != 6 {
		t.Error("remove-facet modified its input")
	}
}

func TestReverse(t *testing.T) {
	s := mustEvaluate(t, `
(defmesh "cube" (box-surface (vec3 0 0 0) (vec3 1 1 1)))
(defmesh "flipped" (reverse (mesh "cube")))
(defmesh "mixed" (merge (remove-facet "cube" 0) (remove-facet "cube" (list 1 2 3 4 5))))
(manifold? "flipped")
(manifold? "mixed")
`)
	if s.Lookup("flipped").FacetVertex(0, 1) == s.Lookup("cube").FacetVertex(0, 1) {
		t.Error("reverse kept the winding of facet 0")
	}
	if len(s.Diagnostics) != 1 || s.Diagnostics[0].Mesh != "mixed" {
		t.Fatalf("diagnostics = %v, want one on mixed", s.Diagnostics)
	}
}

func TestRemoveFacetOutOfRange(t *testing.T) {
	mustFail(t, `(remove-facet (box-surface (vec3 0 0 0) (vec3 1 1 1)) 6)`)
}

func TestCavityScript(t *testing.T) {
	s := mustEvaluate(t, `
(defmesh "quad" (box-surface (vec3 0 0 0) (vec3 1 1 1)))
(defmesh "hexes" (hex-block :min (vec3 1 0 0) :size 1 :n 1))
(defmesh "cavity" (cavity "quad" "hexes"))
`)
	if len(s.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", s.Diagnostics)
	}
	if got := s.Lookup("cavity").NbFacets(); got != 10 {
		t.Errorf("cavity has %d facets, want 10", got)
	}
	if got := logValue(t, s, "cancelled_facets"); got != 2 {
		t.Errorf("cancelled_facets = %g, want 2", got)
	}
	if s.Lookup("quad").NbFacets() != 6 {
		t.Error("cavity modified its input surface")
	}
}

func TestNestedCavityIsManifold(t *testing.T) {
	s := mustEvaluate(t, `
(defmesh "quad" (box-surface (vec3 0 0 0) (vec3 3 3 3)))
(defmesh "cavity" (cavity "quad" (hex-block :min (vec3 1 1 1))))
(manifold? "cavity")
(tetgenifiable? "cavity")
`)
	if len(s.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", s.Diagnostics)
	}
	if got := s.Lookup("cavity").NbFacets(); got != 12 {
		t.Errorf("cavity has %d facets, want 12", got)
	}
	if got := logValue(t, s, "welded_vertices"); got != 0 {
		t.Errorf("welded_vertices = %g, want 0", got)
	}
}

// Gluing the hex beside the box cancels the shared face but flips the
// orientation of the remaining hex facets relative to the box.
func TestAdjacentBlockIsNotACavity(t *testing.T) {
	s := mustEvaluate(t, `
(defmesh "cavity" (cavity (box-surface (vec3 0 0 0) (vec3 1 1 1))
                          (hex-block :min (vec3 1 0 0))))
(manifold? "cavity")
`)
	if len(s.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(s.Diagnostics), s.Diagnostics)
	}
	if d := s.Diagnostics[0]; d.Op != "manifold?" || d.Defect.Kind != inspect.UnmatchedHalfEdge {
		t.Errorf("diagnostic = %+v, want an unmatched half-edge on cavity", d)
	}
}

func TestCavityRejection(t *testing.T) {
	s := mustEvaluate(t, `
(defmesh "quad" (box-surface (vec3 0 0 0) (vec3 2 2 2)))
(defmesh "cavity" (cavity "quad" (hex-block :min (vec3 1 0.5 0.7) :size 2)))
(tetgenifiable? "cavity")
`)
	if len(s.Diagnostics) != 2 {
		t.Fatalf("got %d diagnostics, want 2: %v", len(s.Diagnostics), s.Diagnostics)
	}
	for _, d := range s.Diagnostics {
		if d.Defect.Kind != inspect.TetrahedralizationRejected {
			t.Errorf("%s: defect kind = %s, want %s", d.Op, d.Defect.Kind, inspect.TetrahedralizationRejected)
		}
	}
	if s.Diagnostics[0].Op != "cavity" || s.Diagnostics[0].Mesh != "quad" {
		t.Errorf("first diagnostic = %+v, want cavity on quad", s.Diagnostics[0])
	}
	if got := s.Lookup("cavity").NbFacets(); got != 12 {
		t.Errorf("rejected cavity has %d facets, want 12", got)
	}
	if s.Log.Failure() == "" {
		t.Error("step log should record the failure")
	}
}

func TestTetgenifiableVolume(t *testing.T) {
	s := mustEvaluate(t, `
(tetgenifiable? (hex-block :n 2))
(tetgenifiable? (box-surface (vec3 0 0 0) (vec3 1 1 1)))
`)
	if len(s.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", s.Diagnostics)
	}
}

func TestHexFraction(t *testing.T) {
	s := mustEvaluate(t, `(hex-fraction (hex-block :n 2))`)
	if got := logValue(t, s, "vol_hex_prop"); got != 1 {
		t.Errorf("vol_hex_prop = %g, want 1", got)
	}
	if got := logValue(t, s, "nb_hex_prop"); got != 1 {
		t.Errorf("nb_hex_prop = %g, want 1", got)
	}

	s = mustEvaluate(t, `(hex-fraction (tet (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0) (vec3 0 0 1)))`)
	if got := logValue(t, s, "vol_hex_prop"); got != 0 {
		t.Errorf("vol_hex_prop = %g, want 0", got)
	}
}

func TestCounters(t *testing.T) {
	mustEvaluate(t, `
(def cube (box-surface (vec3 0 0 0) (vec3 1 1 1)))
(def n (+ (nb-vertices cube) (nb-facets cube) (nb-cells cube)))
(facet-stats cube)
`)
}

func TestSdfBox(t *testing.T) {
	s := mustEvaluate(t, `(defmesh "b" (sdf-box (vec3 0 0 0) (vec3 10 10 10) :cells 20))`)
	b := s.Lookup("b")
	if b.NbFacets() == 0 {
		t.Fatal("expected a non-empty surface")
	}
	for f := 0; f < b.NbFacets(); f++ {
		if n := b.NbCorners(f); n != 3 {
			t.Fatalf("facet %d has %d corners, want 3", f, n)
		}
	}
}

func TestSdfSphere(t *testing.T) {
	s := mustEvaluate(t, `(defmesh "s" (sdf-sphere :center (vec3 5 5 5) :radius 2 :cells 20 :kernel :sdfx))`)
	if bb := s.Lookup("s").BoundingBox(); bb.Max.X > 7.5 || bb.Min.X < 2.5 {
		t.Errorf("sphere spans X %f..%f, want about 3..7", bb.Min.X, bb.Max.X)
	}
}

func TestManifoldKernelUnavailable(t *testing.T) {
	if manifold.Available {
		t.Skip("manifold kernel compiled in")
	}
	mustFail(t, `(sdf-sphere (vec3 0 0 0) 1 :kernel :manifold)`)
}

func TestBuiltinArgumentErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"vec3 arity", `(vec3 1 2)`},
		{"vec3 type", `(vec3 1 2 "z")`},
		{"missing mesh", `(mesh "nonexistent")`},
		{"mesh by unknown name", `(manifold? "nonexistent")`},
		{"flat box", `(box-surface (vec3 0 0 0) (vec3 1 0 1))`},
		{"hex block size", `(hex-block :size 0)`},
		{"tet arity", `(tet (vec3 0 0 0))`},
		{"defmesh body", `(defmesh "x" 3)`},
		{"unknown kernel", `(sdf-box (vec3 0 0 0) (vec3 1 1 1) :kernel :cgal)`},
		{"negative cells", `(sdf-box (vec3 0 0 0) (vec3 1 1 1) :cells -2)`},
		{"negative radius", `(sdf-sphere (vec3 0 0 0) -1)`},
		{"cavity arity", `(cavity (box-surface (vec3 0 0 0) (vec3 1 1 1)))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustFail(t, tt.source)
		})
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	s := mustEvaluate(t, "(+ 1 2)")
	if s.MeshCount() != 0 {
		t.Errorf("expected empty scene, got %d meshes", s.MeshCount())
	}
}
