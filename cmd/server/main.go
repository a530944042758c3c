package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/config"
	"github.com/floorpro/measure-backend-go/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "measure-server",
	Short: "Laser floor-plan measurement backend",
	Long: `measure-server captures laser distance readings over BLE, turns them into
room outlines and serves plans, exports and photos over HTTP.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup 加载配置并创建日志
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "measure-backend")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}
