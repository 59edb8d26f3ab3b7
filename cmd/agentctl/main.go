package main

import (
	"fmt"
	"os"

	"github.com/fenwick-run/agentctl/internal/config"
	"github.com/fenwick-run/agentctl/internal/logger"
)

func main() {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		Rotation: logger.RotationPolicy{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSize,
			MaxAgeDays: cfg.Logging.MaxAge,
			Compress:   cfg.Logging.Compress,
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Close()

	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
