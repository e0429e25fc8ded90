package export

import (
	"bytes"
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/relief-forge/pkg/relief"
)

// Outcome is the result of one format in ExportAll.
type Outcome struct {
	Format   string
	Filename string
	Data     []byte
	Err      error
}

// ExportAll runs the named exporters concurrently over m. Outcomes are
// returned in the order of formats; a failing format does not stop the
// others. Formats not yet started when ctx is cancelled fail with the
// context error.
func ExportAll(ctx context.Context, m *relief.Mesh, opts Options, formats ...string) []Outcome {
	out := make([]Outcome, len(formats))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, name := range formats {
		out[i].Format = name
		e, err := Lookup(name)
		if err != nil {
			out[i].Err = err
			continue
		}
		out[i].Format = e.Name()
		out[i].Filename = DefaultFilename(e)

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = wrap(e.Name(), err)
				return nil
			}
			var buf bytes.Buffer
			if err := e.Export(&buf, m, opts); err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Data = buf.Bytes()
			return nil
		})
	}

	_ = g.Wait()
	return out
}
