package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/pkg/errors"
)

const defaultRegion = "us-east-1"

// ConfigParseError reports a malformed or incomplete credentials file.
type ConfigParseError struct {
	Path   string
	Line   int // 0 when the error is not tied to a line
	Field  string
	Reason string
}

func (e *ConfigParseError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("config %s:%d: %s", e.Path, e.Line, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("config %s: %s: %s", e.Path, e.Field, e.Reason)
	default:
		return fmt.Sprintf("config %s: %s", e.Path, e.Reason)
	}
}

// S3Config holds the credential triple of an s3cmd-style configuration file.
type S3Config struct {
	AccessKey string
	SecretKey string
	HostBase  string // hostname without scheme
	UseHTTPS  bool
	Region    string
}

// Endpoint returns the base URL of the object store.
func (c *S3Config) Endpoint() string {
	if c.UseHTTPS {
		return "https://" + c.HostBase
	}
	return "http://" + c.HostBase
}

// LoadS3Config reads access_key, secret_key and host_base from a flat key-value file.
func LoadS3Config(path string) (*S3Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer f.Close()

	kv := make(map[string]string, 8)
	scanner := bufio.NewScanner(f)
	for lineno := 1; scanner.Scan(); lineno++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == ';' || line[0] == '[' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &ConfigParseError{Path: path, Line: lineno, Reason: fmt.Sprintf("expected key = value, got %q", line)}
		}
		kv[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	cfg := &S3Config{UseHTTPS: true, Region: defaultRegion}
	for _, field := range []struct {
		name string
		dst  *string
	}{
		{"access_key", &cfg.AccessKey},
		{"secret_key", &cfg.SecretKey},
		{"host_base", &cfg.HostBase},
	} {
		v := kv[field.name]
		if v == "" {
			return nil, &ConfigParseError{Path: path, Field: field.name, Reason: "missing or empty"}
		}
		*field.dst = v
	}
	if strings.Contains(cfg.HostBase, "://") {
		return nil, &ConfigParseError{Path: path, Field: "host_base", Reason: "must be a hostname without scheme"}
	}
	if v, ok := kv["use_https"]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, &ConfigParseError{Path: path, Field: "use_https", Reason: fmt.Sprintf("invalid boolean %q", v)}
		}
		cfg.UseHTTPS = b
	}
	if v := kv["bucket_location"]; v != "" && !strings.EqualFold(v, "US") {
		cfg.Region = v
	}
	return cfg, nil
}

// LoadOCIConfig loads the OCI configuration from the specified config file path
func LoadOCIConfig(configFilePath string) (common.ConfigurationProvider, error) {
	provider, err := common.ConfigurationProviderFromFile(configFilePath, "DEFAULT")
	if err != nil {
		return nil, errors.Wrap(err, "failed to load OCI config from file")
	}
	return provider, nil
}
