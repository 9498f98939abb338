// Command hexcavity runs a scene script and reports on the meshes it builds:
// manifold checks, hex-dominance statistics, cavity stage outcomes and the
// step timings of the pipeline.
//
// Usage:
//
//	hexcavity [-json] [-timing depth] script.hexs
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/chazu/hexcavity/pkg/mesh"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("hexcavity: ")

	asJSON := flag.Bool("json", false, "write the full result as JSON")
	timing := flag.Int("timing", -1, "print step timings down to this section depth (-1: none)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: hexcavity [-json] [-timing depth] script.hexs\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	source, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	result := NewApp().Evaluate(string(source))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatal(err)
		}
	} else if err := writeText(os.Stdout, result, *timing); err != nil {
		log.Fatal(err)
	}
	os.Exit(exitCode(result))
}

// exitCode is 1 when the script failed, 3 when a check reported a defect.
func exitCode(r Result) int {
	switch {
	case len(r.Errors) > 0:
		return 1
	case len(r.Diagnostics) > 0:
		return 3
	}
	return 0
}

func writeText(w io.Writer, r Result, timing int) error {
	for _, e := range r.Errors {
		if e.Line > 0 {
			fmt.Fprintf(w, "error: line %d: %s\n", e.Line, e.Message)
		} else {
			fmt.Fprintf(w, "error: %s\n", e.Message)
		}
	}
	for _, m := range r.Meshes {
		fmt.Fprintf(w, "%s: %d vertices, %d facets, %d cells\n", m.Name, m.Vertices, m.Facets, m.Cells)
		if m.Stats != nil {
			fmt.Fprintf(w, "    %s\n", m.Stats)
		}
		if m.Manifold {
			fmt.Fprintf(w, "    manifold\n")
		} else if m.Defect != nil {
			fmt.Fprintf(w, "    %s\n", m.Defect)
		}
		if m.Cells > 0 {
			fmt.Fprintf(w, "    hex proportion %.3f by count, %.3f by volume\n", m.NbHexProp, m.VolHexProp)
		}
		if m.InvertedCell != mesh.NoIndex {
			fmt.Fprintf(w, "    cell %d is an inverted tetrahedron\n", m.InvertedCell)
		}
	}
	for _, d := range r.Diagnostics {
		if d.Mesh != "" {
			fmt.Fprintf(w, "%s %s: %s\n", d.Op, d.Mesh, d.Message)
		} else {
			fmt.Fprintf(w, "%s: %s\n", d.Op, d.Message)
		}
	}
	if len(r.Errors) > 0 || (timing < 0 && len(r.Log.Values) == 0) {
		return nil
	}
	return r.Log.Report(w, timing)
}
