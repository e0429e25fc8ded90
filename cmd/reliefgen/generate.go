package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/relief-forge/internal/config"
	"github.com/Faultbox/relief-forge/internal/logger"
	"github.com/Faultbox/relief-forge/internal/pipeline"
	"github.com/Faultbox/relief-forge/pkg/export"
)

func cmdGenerate(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	outDir := fs.String("o", cfg.Export.OutputDir, "Output directory")
	formats := fs.String("f", strings.Join(cfg.Export.Formats, ","), "Comma-separated export formats")
	textureFile := fs.String("texture-file", "", "Image for the top surface instead of the depth map")
	name := fs.String("name", cfg.Export.ObjectName, "Object name in exported files")
	viewer := fs.Bool("viewer", false, "Bake the upright viewer orientation into exports")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: reliefgen generate [options] <depth.png>")
	}

	cfg.Export.Formats = strings.Split(*formats, ",")
	if err := cfg.Validate(); err != nil {
		return err
	}

	depth, err := pipeline.DecodeFile(fs.Arg(0))
	if err != nil {
		return err
	}
	var texture image.Image
	if *textureFile != "" {
		if texture, err = pipeline.DecodeFile(*textureFile); err != nil {
			return err
		}
	}

	res, err := generate(ctx, pipeline.NewRequest(depth, texture, cfg.Relief))
	if err != nil {
		return err
	}

	opts := export.DefaultOptions()
	opts.Materials = &res.Materials
	opts.ObjectName = *name
	if *viewer {
		opts.Transform = res.Transform
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return err
	}

	var failed int
	for _, o := range exportAll(ctx, res, opts, cfg.Export.ExportFormats()) {
		if o.Err != nil {
			failed++
			logger.Error("export failed", zap.String("format", o.Format), zap.Error(o.Err))
			continue
		}
		path := filepath.Join(*outDir, o.Filename)
		if err := os.WriteFile(path, o.Data, 0644); err != nil {
			return err
		}
		fmt.Printf("%-10s %s (%d bytes)\n", o.Format, path, len(o.Data))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(cfg.Export.ExportFormats()))
	}
	return nil
}

// generate runs one request through a session, logging its events, and
// returns the installed result.
func generate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	s := pipeline.NewSession()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range s.Events() {
			if e.Kind == pipeline.EventProgress {
				logger.Debug("simplify", zap.String("event", fmt.Sprintf("%T", e.Simplify)))
			}
		}
	}()

	s.Submit(ctx, req)
	s.Wait()
	res, err := s.Current(), s.LastError()

	// The default release hook is a no-op, so res stays usable after Close.
	s.Close()
	<-done
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("generation %s produced no mesh", req.ID)
	}
	return res, nil
}

// exportAll runs the exporters and gives outcomes that would share a file
// name (stl and stl-ascii) distinct names.
func exportAll(ctx context.Context, res *pipeline.Result, opts export.Options, formats []string) []export.Outcome {
	outcomes := export.ExportAll(ctx, res.Mesh, opts, formats...)

	used := make(map[string]bool)
	for i, o := range outcomes {
		if o.Err != nil {
			continue
		}
		if used[o.Filename] {
			ext := filepath.Ext(o.Filename)
			outcomes[i].Filename = strings.TrimSuffix(o.Filename, ext) + "-" + o.Format + ext
		}
		used[outcomes[i].Filename] = true
	}
	return outcomes
}
