// Package export writes relief meshes to interchange formats.
//
// Every exporter works on a private copy of the mesh: the transform is
// baked into the vertices, Y-up formats get a Z-up to Y-up rotation,
// mirrored transforms have their triangle winding reversed, and normals
// are recomputed from the final geometry. Output is byte-for-byte
// deterministic for identical input.
package export

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Faultbox/relief-forge/pkg/material"
	"github.com/Faultbox/relief-forge/pkg/math"
	"github.com/Faultbox/relief-forge/pkg/relief"
)

const (
	// DefaultObjectName names the exported object where a format has one.
	DefaultObjectName = "ReliefModel"

	// DefaultBaseName is the stem of default file names.
	DefaultBaseName = "relief"

	generator = "relief-forge"
)

// Options control a single export.
type Options struct {
	// Transform is baked into the vertices. A zero Scale counts as 1.
	Transform math.Transform
	// Materials for slots 0 and 1. Formats that carry materials fall back
	// to solid DefaultItemColor when nil.
	Materials  *[2]material.Material
	ObjectName string
}

// DefaultOptions returns identity-transform options.
func DefaultOptions() Options {
	return Options{Transform: math.IdentityTransform(), ObjectName: DefaultObjectName}
}

func (o Options) objectName() string {
	if o.ObjectName == "" {
		return DefaultObjectName
	}
	return o.ObjectName
}

func (o Options) materials() [2]material.Material {
	if o.Materials != nil {
		return *o.Materials
	}
	return material.Describe(material.Config{ItemColor: material.DefaultItemColor})
}

func (o Options) matrix() math.Mat4 {
	t := o.Transform
	if t.Scale == (math.Vec3{}) {
		t.Scale = math.Vec3{X: 1, Y: 1, Z: 1}
	}
	return t.Matrix()
}

// Exporter serializes a mesh in one format.
type Exporter interface {
	// Name is the registry key, e.g. "stl" or "ply-ascii".
	Name() string
	// Extension is the file extension without the dot.
	Extension() string
	MediaType() string
	// Export writes m to w. m is not modified.
	Export(w io.Writer, m *relief.Mesh, opts Options) error
}

var exporters = []Exporter{
	STL{},
	STL{ASCII: true},
	OBJ{},
	PLY{},
	PLY{ASCII: true},
	GLTF{Binary: true},
	GLTF{},
	USDZ{},
}

// Formats returns every registered exporter.
func Formats() []Exporter {
	return slices.Clone(exporters)
}

// Names returns the registry keys in registration order.
func Names() []string {
	names := make([]string, len(exporters))
	for i, e := range exporters {
		names[i] = e.Name()
	}
	return names
}

// Lookup finds an exporter by name, case-insensitively.
func Lookup(name string) (Exporter, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, e := range exporters {
		if e.Name() == key {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// DefaultFilename returns "relief.<ext>" for e.
func DefaultFilename(e Exporter) string {
	return DefaultBaseName + "." + e.Extension()
}
