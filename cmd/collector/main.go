package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"skyline/internal/collector"
	"skyline/internal/config"
	"skyline/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("SKYLINE_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logger.SetLevel(cfg.App.LogLevel)

	c, err := collector.New(collector.Options{
		WSURL:  cfg.Venue.WSBaseURL,
		Pair:   cfg.Venue.Pair,
		Depth:  cfg.Collector.Depth,
		OutDir: cfg.Collector.OutDir,
	})
	if err != nil {
		log.Fatalf("初始化采集器失败: %v", err)
	}
	logger.Infof("✓ 采集器启动: %s", cfg.Venue.Pair)
	if err := c.Run(ctx); err != nil {
		log.Fatalf("采集器退出: %v", err)
	}
}
