package cache

import (
	"net"
	"strconv"
	"testing"

	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
)

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func redisConfig(host string, port int) config.RedisConfig {
	return config.RedisConfig{Host: host, Port: port}
}
