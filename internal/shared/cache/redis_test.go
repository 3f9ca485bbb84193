package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisCounterRejectsBadURL(t *testing.T) {
	_, err := NewRedisCounter("http://not-redis")
	assert.Error(t, err)
}

func TestNewRedisCounterParsesURL(t *testing.T) {
	rc, err := NewRedisCounter("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, rc.client.Options().DB)
	assert.NoError(t, rc.Close())
}
