package global

import (
	"os"
	"strconv"
	"time"

	"chatcore/logger"

	"github.com/joho/godotenv"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// AppConfig 单个网关节点的全部配置；零值即可在单机内存模式下启动。
type AppConfig struct {
	NodeID string // 节点ID（presence 与 NATS relay 用）
	Port   int    // WebSocket 服务端口

	Storage  string // memory | mongo
	MongoURI string
	MongoDB  string

	RedisAddr     string // 空 = 不启用 Redis presence
	RedisPassword string
	RedisDB       int

	NatsServers string // 逗号分隔；空 = 单节点，不启用 relay

	JwtSecret []byte

	// Gateway / router tuning
	SendQueueSize    int           // 每连接出站队列
	SubQueueSize     int           // 每订阅事件队列（溢出即踢订阅）
	FanoutWorkers    int
	CatchUpMaxBatch  int           // 单次 catch-up 上限，客户端需循环
	MaxAttachmentLen int64         // 附件 fileSize 上限（字节）
	MaxPayloadLen    int           // 消息 payload 上限（字节）
	PresenceTTL      time.Duration

	// Receipt policy defaults (per-conversation override at creation)
	DirectReceipts bool
	GroupReceipts  bool
}

var Config = defaults()

func defaults() AppConfig {
	return AppConfig{
		NodeID:           "gateway_1",
		Port:             8080,
		Storage:          StorageMemory,
		MongoURI:         "mongodb://localhost:27017",
		MongoDB:          "chatcore",
		JwtSecret:        []byte("dev-secret-change-me"),
		SendQueueSize:    256,
		SubQueueSize:     512,
		FanoutWorkers:    8,
		CatchUpMaxBatch:  200,
		MaxAttachmentLen: 64 << 20,
		MaxPayloadLen:    64 << 10,
		PresenceTTL:      2 * time.Minute,
		DirectReceipts:   true,
		GroupReceipts:    false,
	}
}

// Load 读取 .env（存在时）与环境变量，覆盖默认值。
func Load() {
	if err := godotenv.Load(); err == nil {
		logger.Infof("[config] .env loaded")
	}
	c := &Config
	c.NodeID = envStr("CHAT_NODE_ID", c.NodeID)
	c.Port = envInt("CHAT_PORT", c.Port)
	c.Storage = envStr("CHAT_STORAGE", c.Storage)
	c.MongoURI = envStr("CHAT_MONGO_URI", c.MongoURI)
	c.MongoDB = envStr("CHAT_MONGO_DB", c.MongoDB)
	c.RedisAddr = envStr("CHAT_REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = envStr("CHAT_REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = envInt("CHAT_REDIS_DB", c.RedisDB)
	c.NatsServers = envStr("CHAT_NATS_SERVERS", c.NatsServers)
	if s := os.Getenv("CHAT_JWT_SECRET"); s != "" {
		c.JwtSecret = []byte(s)
	}
	c.CatchUpMaxBatch = envInt("CHAT_CATCHUP_MAX_BATCH", c.CatchUpMaxBatch)
	c.SendQueueSize = envInt("CHAT_SEND_QUEUE", c.SendQueueSize)
	c.SubQueueSize = envInt("CHAT_SUB_QUEUE", c.SubQueueSize)
	c.FanoutWorkers = envInt("CHAT_FANOUT_WORKERS", c.FanoutWorkers)
	c.MaxPayloadLen = envInt("CHAT_MAX_PAYLOAD", c.MaxPayloadLen)
	c.MaxAttachmentLen = envInt64("CHAT_MAX_ATTACHMENT", c.MaxAttachmentLen)
	c.PresenceTTL = envDuration("CHAT_PRESENCE_TTL", c.PresenceTTL)
	c.DirectReceipts = envBool("CHAT_DIRECT_RECEIPTS", c.DirectReceipts)
	c.GroupReceipts = envBool("CHAT_GROUP_RECEIPTS", c.GroupReceipts)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
