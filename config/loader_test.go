/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type clientTestConfig struct {
	MaxConcurrent int
	PacingDelay   time.Duration
	BufferSize    ByteSize
	Mode          string
	keyPrefix     string
}

func (c *clientTestConfig) KeyPrefix() string { return c.keyPrefix }

func (c *clientTestConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("maxConcurrent", 4)
	dp.SetDefault("mode", "fifo")
}

func (c *clientTestConfig) Set(dp DataProvider) error {
	var err error
	if c.MaxConcurrent, err = dp.GetInt("maxConcurrent"); err != nil {
		return err
	}
	if c.MaxConcurrent < 0 {
		return dp.WrapKeyErr("maxConcurrent", errors.New("cannot be negative"))
	}
	if c.PacingDelay, err = dp.GetDuration("pacingDelay"); err != nil {
		return err
	}
	if c.BufferSize, err = dp.GetByteSize("bufferSize"); err != nil {
		return err
	}
	if c.Mode, err = dp.GetStringFromSet("mode", []string{"fifo", "lifo"}, true); err != nil {
		return err
	}
	return nil
}

func TestLoader_LoadFromReader(t *testing.T) {
	tests := []struct {
		name       string
		dataType   DataType
		data       string
		keyPrefix  string
		want       clientTestConfig
		wantErrMsg string
	}{
		{
			name:     "yaml with defaults",
			dataType: DataTypeYAML,
			data:     "pacingDelay: 250ms\nbufferSize: 1Mi\n",
			want:     clientTestConfig{MaxConcurrent: 4, PacingDelay: 250 * time.Millisecond, BufferSize: 1024 * 1024, Mode: "fifo"},
		},
		{
			name:      "json with key prefix",
			dataType:  DataTypeJSON,
			data:      `{"client": {"maxConcurrent": 10, "mode": "LIFO", "bufferSize": 2048}}`,
			keyPrefix: "client",
			want:      clientTestConfig{MaxConcurrent: 10, BufferSize: 2048, Mode: "LIFO", keyPrefix: "client"},
		},
		{
			name:       "validation error contains prefixed key",
			dataType:   DataTypeYAML,
			data:       "client:\n  maxConcurrent: -1\n",
			keyPrefix:  "client",
			wantErrMsg: "client.maxConcurrent: cannot be negative",
		},
		{
			name:       "value out of set",
			dataType:   DataTypeYAML,
			data:       "mode: random\n",
			wantErrMsg: `mode: unknown value "random", should be one of [fifo lifo]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &clientTestConfig{keyPrefix: tt.keyPrefix}
			err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(tt.data), tt.dataType, cfg)
			if tt.wantErrMsg != "" {
				require.EqualError(t, err, tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, *cfg)
		})
	}
}

func TestLoader_EnvVars(t *testing.T) {
	require.NoError(t, os.Setenv("RESTTEST_CLIENT_MAXCONCURRENT", "7"))
	defer func() { _ = os.Unsetenv("RESTTEST_CLIENT_MAXCONCURRENT") }()

	cfg := &clientTestConfig{keyPrefix: "client"}
	err := NewDefaultLoader("resttest").LoadFromReader(bytes.NewBufferString("client:\n  maxConcurrent: 3\n"), DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.MaxConcurrent)
}
