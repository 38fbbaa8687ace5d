package main

import (
	"log"
	"os"

	"skyline/internal/config"
	"skyline/internal/logger"
	"skyline/internal/rush"
)

func main() {
	cfgPath := os.Getenv("SKYLINE_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logger.SetLevel(cfg.App.LogLevel)

	store, err := rush.NewStore(cfg.Rush.DBPath)
	if err != nil {
		log.Fatalf("打开动量事件库失败: %v", err)
	}
	defer store.Close()

	srv, err := rush.NewServer(cfg.Rush.ListenAddr, cfg.Rush.Board, store)
	if err != nil {
		log.Fatalf("初始化接收服务失败: %v", err)
	}
	logger.Infof("✓ 动量事件接收服务: %s (board=%s)", cfg.Rush.ListenAddr, cfg.Rush.Board)
	if err := srv.Run(); err != nil {
		log.Fatalf("接收服务退出: %v", err)
	}
}
