package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/brewfridge/internal/config"
)

func TestDisabledClientIsNoop(t *testing.T) {
	c := New(config.Datadog{Enabled: false})
	c.Gauge("fridge.temperature", 4.5)
	assert.NoError(t, c.Close())

	var nilClient *Client
	nilClient.Gauge("fridge.temperature", 4.5)
}

func TestGaugeReachesAgent(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	c := New(config.Datadog{
		Enabled:   true,
		AgentAddr: conn.LocalAddr().String(),
		Namespace: "brewfridge.",
		Tags:      []string{"site:cellar"},
	})
	c.Gauge("fridge.temperature", 4.5)
	require.NoError(t, c.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1024)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)

	packet := string(buf[:n])
	assert.True(t, strings.HasPrefix(packet, "brewfridge.fridge.temperature:4.5|g"), packet)
	assert.Contains(t, packet, "site:cellar")
}
