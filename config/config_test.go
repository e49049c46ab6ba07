package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadS3Config(t *testing.T) {
	path := writeFile(t, "s3cfg", `[default]
# comment
access_key = AKIA123
secret_key = s3cr3t
host_base = s3.echo.stfc.ac.uk
host_bucket = s3.echo.stfc.ac.uk
`)
	cfg, err := LoadS3Config(path)
	require.NoError(t, err)
	assert.Equal(t, "AKIA123", cfg.AccessKey)
	assert.Equal(t, "s3cr3t", cfg.SecretKey)
	assert.Equal(t, "s3.echo.stfc.ac.uk", cfg.HostBase)
	assert.Equal(t, "https://s3.echo.stfc.ac.uk", cfg.Endpoint())
	assert.Equal(t, defaultRegion, cfg.Region)
}

func TestLoadS3ConfigOptionalKeys(t *testing.T) {
	path := writeFile(t, "s3cfg", "access_key=a\nsecret_key=b\nhost_base=localhost:9000\nuse_https=False\nbucket_location=eu-west-2\n")
	cfg, err := LoadS3Config(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", cfg.Endpoint())
	assert.Equal(t, "eu-west-2", cfg.Region)
}

func TestLoadS3ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
		line    int
	}{
		{name: "missing secret", content: "access_key=a\nhost_base=h\n", field: "secret_key"},
		{name: "empty access key", content: "access_key=\nsecret_key=b\nhost_base=h\n", field: "access_key"},
		{name: "scheme in host", content: "access_key=a\nsecret_key=b\nhost_base=https://h\n", field: "host_base"},
		{name: "malformed line", content: "access_key=a\nsecret_key b\n", line: 2},
		{name: "bad bool", content: "access_key=a\nsecret_key=b\nhost_base=h\nuse_https=maybe\n", field: "use_https"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadS3Config(writeFile(t, "s3cfg", tt.content))
			var perr *ConfigParseError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, tt.field, perr.Field)
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestLoadS3ConfigMissingFile(t *testing.T) {
	_, err := LoadS3Config(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadProfile(t *testing.T) {
	path := writeFile(t, "scan.yaml", `samples: 10
file_size: 1024
workers: [1, 2, 4]
quiescence: 2s
op_timeout: 30s
payload: float32
verify: true
on_error: abort
`)
	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Samples)
	assert.Equal(t, int64(1024), p.FileSize)
	assert.Equal(t, []int{1, 2, 4}, p.Workers)
	assert.Equal(t, 2*time.Second, p.Quiescence)
	assert.Equal(t, 30*time.Second, p.OpTimeout)
	assert.Equal(t, "float32", p.Payload)
	assert.True(t, p.Verify)
	assert.Equal(t, "abort", p.OnError)
}

func TestLoadProfileRejects(t *testing.T) {
	for name, content := range map[string]string{
		"unknown key": "samples: 1\nthreads: 4\n",
		"zero worker": "workers: [0, 2]\n",
		"negative":    "samples: -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadProfile(writeFile(t, "p.yaml", content))
			var perr *ConfigParseError
			assert.True(t, errors.As(err, &perr), "got %v", err)
		})
	}
}
