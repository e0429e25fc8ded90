// reliefgen turns depth maps into printable relief meshes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/relief-forge/internal/config"
	"github.com/Faultbox/relief-forge/internal/logger"
)

func main() {
	config.ParseFlags()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	var run func(context.Context, *config.Config, []string) error
	switch command {
	case "generate", "gen":
		run = cmdGenerate
	case "info":
		run = cmdInfo
	case "histogram", "hist":
		run = cmdHistogram
	case "formats":
		cmdFormats()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, args); err != nil {
		logger.Error(command+" failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`reliefgen - depth map to relief mesh generator

Usage:
  reliefgen [settings] <command> [options]

Commands:
  generate <depth.png> [-o dir] [-f stl,glb] [-texture-file img]
                                     Build the relief and export it
  info <depth.png>                   Show mesh statistics for an image
  histogram <depth.png> <out.png>    Plot depth histograms before and after enhancement
  formats                            List export formats

Settings (before the command):
  -config path   -debug   -depth mm   -base mm   -width mm   -height mm
  -max-res px    -simplify ratio      -color #rrggbb          -texture

Examples:
  reliefgen generate depth.png
  reliefgen -depth 5 -width 80 generate -f stl,usdz -o out depth.png
  reliefgen -texture generate -f glb -texture-file photo.jpg depth.png
  reliefgen histogram depth.png hist.png`)
}
