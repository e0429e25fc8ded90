// Package pipeline runs a depth image through conditioning, mesh
// construction, simplification and material selection.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	gomath "math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/relief-forge/internal/config"
	"github.com/Faultbox/relief-forge/internal/imageio"
	"github.com/Faultbox/relief-forge/internal/logger"
	"github.com/Faultbox/relief-forge/pkg/depthmap"
	"github.com/Faultbox/relief-forge/pkg/material"
	"github.com/Faultbox/relief-forge/pkg/math"
	"github.com/Faultbox/relief-forge/pkg/relief"
	"github.com/Faultbox/relief-forge/pkg/simplify"
)

// ErrImageDecode marks input images that could not be read.
var ErrImageDecode = errors.New("image decode failed")

// Request is one mesh generation.
type Request struct {
	ID    string
	Depth image.Image
	// Texture replaces the depth image on the top surface when set.
	Texture image.Image
	Config  config.Relief
}

// NewRequest returns a request with a fresh ID and its own copy of cfg.
func NewRequest(depth, texture image.Image, cfg config.Relief) Request {
	return Request{
		ID:      uuid.NewString(),
		Depth:   depth,
		Texture: texture,
		Config:  cfg.Clone(),
	}
}

// Result is a generated relief ready for export.
type Result struct {
	RequestID string
	Mesh      *relief.Mesh
	Materials [2]material.Material
	// Transform orients the Z-up relief upright in a Y-up viewer. Exports
	// that should match the viewer bake it in.
	Transform  math.Transform
	Resolution relief.Resolution
	Params     relief.Params
	Depth      depthmap.Report
	Simplify   simplify.Result
	Elapsed    time.Duration
}

// DefaultTransform is the viewer orientation: a quarter turn about X
// followed by a half turn about Y.
func DefaultTransform() math.Transform {
	t := math.IdentityTransform()
	t.Rotation = math.Vec3{X: gomath.Pi / 2, Y: gomath.Pi}
	return t
}

// Decode reads an image, wrapping failures in ErrImageDecode.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := imageio.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}
	return img, nil
}

// DecodeFile reads an image file, wrapping failures in ErrImageDecode.
func DecodeFile(path string) (image.Image, error) {
	img, _, err := imageio.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}
	return img, nil
}

// Generate builds the relief for req. Configuration is validated before
// any work starts and ctx is checked between stages. Simplification
// events are passed to obs, which may be nil. A failed simplification is
// not an error: the unsimplified mesh is kept and Result.Simplify.Err is
// set.
func Generate(ctx context.Context, req Request, obs simplify.Observer) (*Result, error) {
	start := time.Now()
	log := logger.Named("pipeline").With(logger.RequestID(req.ID))

	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if req.Depth == nil {
		return nil, fmt.Errorf("%w: no depth image", ErrImageDecode)
	}

	b := req.Depth.Bounds()
	w, h := relief.TargetResolution(b.Dx(), b.Dy(), cfg.MaxResolution)
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("%w: %dx%d image gives a %dx%d grid", relief.ErrGridTooSmall, b.Dx(), b.Dy(), w, h)
	}
	log.Debug("resampling depth image", logger.Size("source", b.Dx(), b.Dy()), logger.Size("grid", w, h))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	grid := depthmap.FromImage(imageio.Resample(req.Depth, w, h))
	grid, report := depthmap.Process(grid, cfg.DepthOptions())
	if report.ContourRescued {
		log.Warn("contour flattening had no direction enabled, flattening above threshold")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := cfg.Params(b.Dx(), b.Dy())
	mesh, err := relief.Build(grid, params)
	if err != nil {
		return nil, fmt.Errorf("build mesh: %w", err)
	}
	log.Debug("mesh built",
		zap.Int("vertices", mesh.VertexCount()),
		zap.Int("triangles", mesh.TriangleCount()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mesh, sres := simplify.Simplify(mesh, float64(cfg.GeometrySimplification), simplify.WithObserver(obs))
	switch {
	case sres.Err != nil:
		log.Warn("simplification failed, keeping full mesh", zap.Error(sres.Err))
	case sres.Skipped == simplify.SkipTooLarge:
		log.Info("mesh too large to simplify", zap.Int("vertices", sres.OriginalVertices))
	case sres.Skipped == simplify.NotSkipped:
		log.Debug("mesh simplified",
			zap.Int("from", sres.OriginalVertices),
			zap.Int("to", sres.FinalVertices),
			zap.Duration("took", sres.Elapsed))
	}

	// Simplified meshes have no UVs left to map a texture with.
	mats := material.Describe(material.Config{
		ShowTexture: cfg.ShowTexture && mesh.UVs != nil,
		Texture:     req.Texture,
		DepthImage:  req.Depth,
		ItemColor:   cfg.Color(),
	})

	res := &Result{
		RequestID:  req.ID,
		Mesh:       mesh,
		Materials:  mats,
		Transform:  DefaultTransform(),
		Resolution: mesh.Resolution,
		Params:     params,
		Depth:      report,
		Simplify:   sres,
		Elapsed:    time.Since(start),
	}
	log.Info("relief generated",
		logger.Size("resolution", w, h),
		zap.Int("vertices", mesh.VertexCount()),
		zap.Int("triangles", mesh.TriangleCount()),
		logger.Elapsed(start))
	return res, nil
}
