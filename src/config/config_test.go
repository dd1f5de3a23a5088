package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"RentalDashboard/src/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigs(t *testing.T, cfg, dcfg string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataconfig.json"), []byte(dcfg), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfigs(t, `{
  "server": {"addr": ":9090", "mode": "test"},
  "data": {"dir": "testdata", "hourly_file": "hour.xlsx", "sheet_name": "Sheet1"},
  "dashboard": {"filter_hourly": true},
  "log": {"file": "app.log", "max_size_mb": 2},
  "email": {"check_interval": "90s"}
}`, `{
  "columns": {"cnt": ["cnt", "total_count"]},
  "weather_labels": {"1": "Clear sky"},
  "locale": "id"
}`)

	cfg, dcfg, err := loadConfigs(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Dashboard.FilterHourly)
	assert.Equal(t, filepath.Join("testdata", "hour.xlsx"), cfg.HourlyPath())
	assert.Equal(t, filepath.Join("testdata", "day.csv"), cfg.DailyPath())
	assert.Equal(t, 90*time.Second, cfg.Email.CheckInterval)
	assert.Equal(t, "info", cfg.Log.Level)

	span, err := cfg.Span()
	require.NoError(t, err)
	assert.Equal(t, dataset.DefaultSpan, span)

	canonical, ok := dcfg.GetColumn("Total_Count")
	require.True(t, ok)
	assert.Equal(t, dataset.ColCount, canonical)
	// 未覆盖的列保留默认别名
	canonical, ok = dcfg.GetColumn("mnth")
	require.True(t, ok)
	assert.Equal(t, dataset.ColMonth, canonical)
	_, ok = dcfg.GetColumn("temperature")
	assert.False(t, ok)

	assert.Equal(t, "Clear sky", dcfg.WeatherLabel(dataset.Clear))
	assert.Equal(t, "Berawan", dcfg.WeatherLabel(dataset.Cloudy))
	assert.Equal(t, "Summer", dcfg.SeasonLabel(dataset.Summer))
	assert.Equal(t, "id", dcfg.Locale)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("RENTAL_SERVER_ADDR", ":7070")
	dir := writeConfigs(t, `{}`, `{}`)

	cfg, _, err := loadConfigs(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoadConfigMissingFiles(t *testing.T) {
	_, _, err := loadConfigs(t.TempDir(), "config.json", "dataconfig.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "配置加载遇到多个错误")
}

func TestValidate(t *testing.T) {
	dir := writeConfigs(t, `{
  "server": {"mode": "production"},
  "push": {"enabled": true, "webhook": ""}
}`, `{}`)

	_, _, err := loadConfigs(dir, "config.json", "dataconfig.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Mode")
	assert.Contains(t, err.Error(), "Webhook")
}

func TestValidateSpan(t *testing.T) {
	dir := writeConfigs(t, `{"data": {"span_start": "2012-01-01", "span_end": "2011-01-01"}}`, `{}`)

	_, _, err := loadConfigs(dir, "config.json", "dataconfig.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before")
}

func TestSetAliases(t *testing.T) {
	dc := &DataConfig{}
	dc.SetAliases(dataset.ColHour, "hr", "Hour_Of_Day")

	canonical, ok := dc.GetColumn("hour_of_day")
	require.True(t, ok)
	assert.Equal(t, dataset.ColHour, canonical)
	assert.Equal(t, []string{"hr", "Hour_Of_Day"}, dc.GetAliases(dataset.ColHour))
}
