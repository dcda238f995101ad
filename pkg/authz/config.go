package authz

import (
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/pkg/configuration"
)

// Config captures the inputs necessary to initialize the Casbin enforcer.
// Empty paths select the embedded model and policy.
type Config struct {
	ModelPath  string
	PolicyPath string
	Logger     *logrus.Logger
}

func (c Config) validate() error {
	if c.ModelPath != "" && c.PolicyPath == "" {
		return configError("model path %q given without a policy path", c.ModelPath)
	}
	return nil
}

func (c Config) normalized() Config {
	c.ModelPath = strings.TrimSpace(c.ModelPath)
	c.PolicyPath = strings.TrimSpace(c.PolicyPath)
	if c.ModelPath != "" {
		c.ModelPath = filepath.Clean(c.ModelPath)
	}
	if c.PolicyPath != "" {
		c.PolicyPath = filepath.Clean(c.PolicyPath)
	}
	return c
}

// DefaultConfig builds a Config using the global configuration singleton.
func DefaultConfig() Config {
	cfg := configuration.Use()
	return Config{
		ModelPath:  cfg.Authz.ModelPath,
		PolicyPath: cfg.Authz.PolicyPath,
		Logger:     cfg.Logger(),
	}
}
