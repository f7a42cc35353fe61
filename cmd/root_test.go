package cmd

import (
	"testing"

	"github.com/spf13/viper"

	"github.com/ginjaninja78/xtractpajak/internal/config"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("XTRACTPAJAK_OUTPUT_DIR", "/srv/out")
	t.Setenv("XTRACTPAJAK_LOG_LEVEL", "debug")
	t.Setenv("XTRACTPAJAK_INPUT_DIR", "")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfg := config.DefaultMainConfig()
	applyEnvOverrides(cfg, v)

	if cfg.OutputDir != "/srv/out" || cfg.LogLevel != "debug" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.InputDir != "./input" {
		t.Errorf("empty variable overrode InputDir: %q", cfg.InputDir)
	}
}
