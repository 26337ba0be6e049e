package proxy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectClient(t *testing.T) {
	c, err := NewSocksClient("", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, c.Transport)
	assert.Equal(t, time.Minute, c.Timeout)
}

func TestSocksClientUsesProxyDialer(t *testing.T) {
	c, err := NewSocksClient("127.0.0.1:1080", 2*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, c.Transport)
	assert.Equal(t, 2*time.Minute, c.Timeout)
}
