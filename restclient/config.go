/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"fmt"
	"time"

	"github.com/acronis/go-asyncrest/config"
	"github.com/acronis/go-asyncrest/httpclient"
)

const (
	cfgKeyConnectTimeout        = "connectTimeout"
	cfgKeyReadTimeout           = "readTimeout"
	cfgKeyMaxConcurrentRequests = "maxConcurrentRequests"
	cfgKeyPacingDelay           = "pacingDelay"
	cfgKeyTransport             = "transport"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Config represents a set of configuration parameters for Client.
type Config struct {
	// ConnectTimeout bounds establishing of a connection. Zero means no timeout.
	ConnectTimeout time.Duration `mapstructure:"connectTimeout" yaml:"connectTimeout" json:"connectTimeout"`

	// ReadTimeout bounds waiting for a response after the request is sent. Zero means no timeout.
	ReadTimeout time.Duration `mapstructure:"readTimeout" yaml:"readTimeout" json:"readTimeout"`

	// MaxConcurrentRequests is the maximum number of in-flight requests. Zero means unbounded.
	MaxConcurrentRequests int `mapstructure:"maxConcurrentRequests" yaml:"maxConcurrentRequests" json:"maxConcurrentRequests"`

	// PacingDelay is the extra time a finished request holds its permit
	// while more requests are pending than MaxConcurrentRequests allows. Zero disables pacing.
	PacingDelay time.Duration `mapstructure:"pacingDelay" yaml:"pacingDelay" json:"pacingDelay"`

	Transport httpclient.Config `mapstructure:"transport" yaml:"transport" json:"transport"`

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix("")
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	c.Transport.SetProviderDefaults(config.NewKeyPrefixedDataProvider(dp, cfgKeyTransport))
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.ConnectTimeout, err = dp.GetDuration(cfgKeyConnectTimeout); err != nil {
		return err
	}
	if c.ConnectTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyConnectTimeout, fmt.Errorf("%w: cannot be negative", ErrInvalidConfig))
	}
	if c.ReadTimeout, err = dp.GetDuration(cfgKeyReadTimeout); err != nil {
		return err
	}
	if c.ReadTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyReadTimeout, fmt.Errorf("%w: cannot be negative", ErrInvalidConfig))
	}
	if c.MaxConcurrentRequests, err = dp.GetInt(cfgKeyMaxConcurrentRequests); err != nil {
		return err
	}
	if c.MaxConcurrentRequests < 0 {
		return dp.WrapKeyErr(cfgKeyMaxConcurrentRequests, fmt.Errorf("%w: cannot be negative", ErrInvalidConfig))
	}
	if c.PacingDelay, err = dp.GetDuration(cfgKeyPacingDelay); err != nil {
		return err
	}
	if c.PacingDelay < 0 {
		return dp.WrapKeyErr(cfgKeyPacingDelay, fmt.Errorf("%w: cannot be negative", ErrInvalidConfig))
	}
	if c.PacingDelay > 0 && c.MaxConcurrentRequests == 0 {
		return dp.WrapKeyErr(cfgKeyPacingDelay, fmt.Errorf("%w: requires positive %s",
			ErrInvalidConfig, cfgKeyMaxConcurrentRequests))
	}
	return c.Transport.Set(config.NewKeyPrefixedDataProvider(dp, cfgKeyTransport))
}

// Validate checks the consistency of the configuration.
// It's called by NewClient, so configs built in code are checked the same way as loaded ones.
func (c *Config) Validate() error {
	switch {
	case c.ConnectTimeout < 0:
		return fmt.Errorf("%w: connect timeout cannot be negative", ErrInvalidConfig)
	case c.ReadTimeout < 0:
		return fmt.Errorf("%w: read timeout cannot be negative", ErrInvalidConfig)
	case c.MaxConcurrentRequests < 0:
		return fmt.Errorf("%w: max concurrent requests cannot be negative", ErrInvalidConfig)
	case c.PacingDelay < 0:
		return fmt.Errorf("%w: pacing delay cannot be negative", ErrInvalidConfig)
	case c.PacingDelay > 0 && c.MaxConcurrentRequests == 0:
		return fmt.Errorf("%w: pacing delay requires positive max concurrent requests", ErrInvalidConfig)
	}
	return nil
}
