// thetawarp renders a dual-fisheye still into an equirectangular image.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/thetawarp/internal/config"
	"github.com/Faultbox/thetawarp/internal/logger"
	"github.com/Faultbox/thetawarp/internal/viewer"
)

var (
	flagOut = flag.String("out", "panorama.png", "Output image (.png or .jpg)")
	flagPTS = flag.Duration("pts", 0, "Timestamp used to evaluate the rotation control")
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Source.Image == "" && flag.NArg() > 0 {
		cfg.Source.Image = flag.Arg(0)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := viewer.Convert(context.Background(), cfg, *flagOut, *flagPTS); err != nil {
		logger.Error("conversion failed", zap.Error(err))
		os.Exit(1)
	}
}
