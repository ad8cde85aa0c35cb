package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	req.NoError(err)
	req.Equal(path, resolved)
	req.Equal(Default().Addr, cfg.Addr)
	req.Equal(Default().AdmissionTimeout, cfg.AdmissionTimeout)

	_, err = os.Stat(path)
	req.NoError(err, "missing config file should be written with defaults")
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("DMWIRE_ADDR", ":9999")

	cfg, _, err := Load(nil, path)
	req.NoError(err)
	req.Equal(":9999", cfg.Addr)
}

func TestLoadEnvNamesConfigFile(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "alt.yaml")
	t.Setenv(envConfigPath, path)

	_, resolved, err := Load(nil, "")
	req.NoError(err)
	req.Equal(path, resolved)
}
