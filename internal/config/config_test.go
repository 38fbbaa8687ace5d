package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
mode: backtest
backtest:
  dataset: testdata/dataset.yaml
  start: "2019-03-25 01:00:00"
  end: "2019-03-25 02:00:00"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bitmex", cfg.Venue.Name)
	assert.Equal(t, "XBTUSD", cfg.Venue.Pair)
	// 端点路径由连接器拼接, 基址不带 /api/v1
	assert.Equal(t, "https://www.bitmex.com", cfg.Venue.RESTBaseURL)
	assert.Equal(t, 15, cfg.Venue.HTTPTimeoutSec)
	assert.Equal(t, int64(300), cfg.Strategy.RotationSec)
	assert.Equal(t, int64(5), cfg.Strategy.PollSec)
	assert.Equal(t, 0.5, cfg.Strategy.Shift)
	assert.Equal(t, float64(10), cfg.Strategy.NearHorizon)
	assert.Equal(t, 0.00075, cfg.Strategy.TakerFee)
	assert.Equal(t, int64(3600), cfg.Horizon.LookbackSec)
	assert.Equal(t, 25, cfg.Collector.Depth)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
mode: backtest
strategy:
  rotation_sec: 120
  depth_threshold: 5000
  shift: 1.5
backtest:
  dataset: ds.yaml
  start: "2019-03-25 01:00:00"
  end: "2019-03-25 02:00:00"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(120), cfg.Strategy.RotationSec)
	assert.Equal(t, float64(5000), cfg.Strategy.DepthThreshold)
	assert.Equal(t, 1.5, cfg.Strategy.Shift)
}

func TestValidateRejectsBadMode(t *testing.T) {
	path := writeConfig(t, "mode: paper\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateLiveNeedsCredentials(t *testing.T) {
	path := writeConfig(t, "mode: live\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestValidateBacktestNeedsDataset(t *testing.T) {
	path := writeConfig(t, "mode: backtest\n")
	_, err := Load(path)
	assert.Error(t, err)
}
