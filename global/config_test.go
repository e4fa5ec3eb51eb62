package global

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadEnvOverrides(t *testing.T) {
	t.Cleanup(func() { Config = defaults() })

	t.Setenv("CHAT_FANOUT_WORKERS", "3")
	t.Setenv("CHAT_MAX_PAYLOAD", "1024")
	t.Setenv("CHAT_MAX_ATTACHMENT", "2048")
	t.Setenv("CHAT_PRESENCE_TTL", "30s")
	t.Setenv("CHAT_DIRECT_RECEIPTS", "false")
	t.Setenv("CHAT_GROUP_RECEIPTS", "true")
	t.Setenv("CHAT_SUB_QUEUE", "64")

	Config = defaults()
	Load()

	require.Equal(t, 3, Config.FanoutWorkers)
	require.Equal(t, 1024, Config.MaxPayloadLen)
	require.EqualValues(t, 2048, Config.MaxAttachmentLen)
	require.Equal(t, 30*time.Second, Config.PresenceTTL)
	require.False(t, Config.DirectReceipts)
	require.True(t, Config.GroupReceipts)
	require.Equal(t, 64, Config.SubQueueSize)
}

func TestLoadIgnoresBadValues(t *testing.T) {
	t.Cleanup(func() { Config = defaults() })

	t.Setenv("CHAT_FANOUT_WORKERS", "many")
	t.Setenv("CHAT_PRESENCE_TTL", "soon")
	t.Setenv("CHAT_GROUP_RECEIPTS", "maybe")

	Config = defaults()
	Load()

	def := defaults()
	require.Equal(t, def.FanoutWorkers, Config.FanoutWorkers)
	require.Equal(t, def.PresenceTTL, Config.PresenceTTL)
	require.Equal(t, def.GroupReceipts, Config.GroupReceipts)
}
