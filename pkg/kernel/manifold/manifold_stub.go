//go:build !manifold

// Package manifold binds the Manifold boolean library as a geometry kernel.
// Without the "manifold" build tag this stub is compiled instead and New
// reports the kernel as unavailable.
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"

	"github.com/chazu/hexcavity/pkg/kernel"
)

// Available reports whether the binding was compiled in.
const Available = false

// ErrUnavailable is returned by New when the binding was not compiled in.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")

// New returns ErrUnavailable.
func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
