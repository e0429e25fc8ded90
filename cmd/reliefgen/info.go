package main

import (
	"context"
	"fmt"
	gomath "math"

	"github.com/Faultbox/relief-forge/internal/config"
	"github.com/Faultbox/relief-forge/internal/imageio"
	"github.com/Faultbox/relief-forge/internal/pipeline"
	"github.com/Faultbox/relief-forge/pkg/export"
	"github.com/Faultbox/relief-forge/pkg/relief"
	"github.com/Faultbox/relief-forge/pkg/simplify"
)

func cmdInfo(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: reliefgen info <depth.png>")
	}

	depth, err := pipeline.DecodeFile(args[0])
	if err != nil {
		return err
	}

	res, err := pipeline.Generate(ctx, pipeline.NewRequest(depth, nil, cfg.Relief), nil)
	if err != nil {
		return err
	}

	m := res.Mesh
	b := depth.Bounds()
	size := m.Bounds().Size()
	bits := 8
	if imageio.Is16Bit(depth) {
		bits = 16
	}

	fmt.Printf("Image:      %s (%dx%d, %d-bit)\n", args[0], b.Dx(), b.Dy(), bits)
	fmt.Printf("Grid:       %dx%d\n", res.Resolution.Width, res.Resolution.Height)
	fmt.Printf("Vertices:   %d\n", m.VertexCount())
	fmt.Printf("Triangles:  %d\n", m.TriangleCount())
	fmt.Printf("Size:       %.2f x %.2f x %.2f mm\n", size[0], size[1], size[2])
	fmt.Printf("Volume:     %.2f cm³\n", relief.SignedVolume(m.Positions, m.Indices)/1000)
	fmt.Printf("Enhanced:   %v\n", res.Depth.Enhanced)
	fmt.Printf("Flattened:  %v\n", res.Depth.Flattened)
	fmt.Printf("Simplified: %s\n", simplifySummary(res))
	fmt.Printf("Viewer rot: %.0f° %.0f° %.0f°\n",
		degrees(res.Transform.Rotation.X), degrees(res.Transform.Rotation.Y), degrees(res.Transform.Rotation.Z))
	fmt.Printf("Groups:     %d\n", len(m.Groups))
	fmt.Printf("Exports:    %v\n", export.Names())
	return nil
}

func simplifySummary(res *pipeline.Result) string {
	s := res.Simplify
	switch {
	case s.Err != nil:
		return "failed: " + s.Err.Error()
	case s.Skipped != simplify.NotSkipped:
		return "skipped (" + s.Skipped.String() + ")"
	default:
		return fmt.Sprintf("%d -> %d vertices in %v", s.OriginalVertices, s.FinalVertices, s.Elapsed)
	}
}

func degrees(rad float32) float64 {
	return float64(rad) * 180 / gomath.Pi
}

func cmdFormats() {
	fmt.Printf("%-10s %-6s %s\n", "NAME", "EXT", "MEDIA TYPE")
	for _, e := range export.Formats() {
		fmt.Printf("%-10s %-6s %s\n", e.Name(), e.Extension(), e.MediaType())
	}
}
