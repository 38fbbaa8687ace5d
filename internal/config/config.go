package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"skyline/internal/logger"
)

// Load 读取 YAML 配置并套用默认值与校验。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path 不能为空")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Tuning 持有策略参数的可热更新快照。引擎每次读取 Snapshot，
// 配置文件变更时由 fsnotify 回调换入新快照。
type Tuning struct {
	path string

	mu   sync.RWMutex
	snap StrategyConfig

	listeners []func(StrategyConfig)
}

// NewTuning 以当前配置初始化并开始监听文件变更。
func NewTuning(path string, initial StrategyConfig) (*Tuning, error) {
	t := &Tuning{path: path, snap: initial}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read tuning config failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		cfg, err := Load(t.path)
		if err != nil {
			logger.Errorf("策略参数重载失败: %v", err)
			return
		}
		t.mu.Lock()
		t.snap = cfg.Strategy
		listeners := append([]func(StrategyConfig){}, t.listeners...)
		t.mu.Unlock()
		logger.Infof("策略参数已重载 (%s)", evt.Name)
		for _, fn := range listeners {
			fn(cfg.Strategy)
		}
	})
	v.WatchConfig()
	return t, nil
}

// Snapshot 返回当前参数快照。
func (t *Tuning) Snapshot() StrategyConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// OnChange 注册重载回调。
func (t *Tuning) OnChange(fn func(StrategyConfig)) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}
