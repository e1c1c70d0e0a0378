package cmd

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillframe/gallery-agent/tools"
)

func TestToolConfigDefaults(t *testing.T) {
	cfg := viper.New()
	assert.Equal(t, tools.DefaultConfig(), toolConfig(cfg))
}

func TestToolConfigOverrides(t *testing.T) {
	cfg := viper.New()
	cfg.Set("max-page-size", 20)
	cfg.Set("related-limit", 8)

	out := toolConfig(cfg)
	assert.Equal(t, 20, out.MaxPageSize)
	assert.Equal(t, 8, out.RelatedLimit)
	assert.Equal(t, tools.DefaultConfig().DefaultPerPage, out.DefaultPerPage)
}

func TestRootCmdExposesLimitFlags(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"max-page-size", "related-limit", "cache-ttl", "max-rounds", "model", "debug"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "flag %s", name)
	}
}

func TestCacheTTLReadsConfig(t *testing.T) {
	cfg := viper.New()
	require.Zero(t, cacheTTL(cfg))
	cfg.Set("cache-ttl", "15m")
	assert.Equal(t, 15*time.Minute, cacheTTL(cfg))
}
