package main

import (
	"context"
	"fmt"
	"strings"

	"chatcore/data/database/mgo/mongoutil"
	"chatcore/global"
	"chatcore/logger"
	logstore "chatcore/module/chat/log"
	"chatcore/module/chat/session"
	"chatcore/module/chat/tracker"
	"chatcore/service/chat"
	"chatcore/service/natsx"
	"chatcore/service/router"
	"chatcore/service/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	global.Load()
	cfg := &global.Config

	ctx := context.Background()

	// ---- 存储 ----
	var (
		store   logstore.Store
		cursors tracker.CursorStore
		err     error
	)
	switch cfg.Storage {
	case global.StorageMongo:
		mgo, merr := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
			Uri:      cfg.MongoURI,
			Database: cfg.MongoDB,
		})
		if merr != nil {
			logger.Errorf("[boot] mongo: %v", merr)
			return
		}
		store, err = logstore.NewMongoStore(ctx, mgo.GetDB())
		if err == nil {
			cursors, err = tracker.NewMongoCursorStore(ctx, mgo.GetDB())
		}
		if err != nil {
			logger.Errorf("[boot] storage init: %v", err)
			return
		}
	default:
		store = logstore.NewMemStore()
		cursors = tracker.NewMemCursorStore()
	}
	logger.Infof("[boot] storage=%s", cfg.Storage)

	// ---- presence (optional) ----
	if cfg.RedisAddr != "" {
		if err := storage.InitRedis(storage.Config{
			Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
		}); err != nil {
			logger.Errorf("[boot] redis: %v", err)
			return
		}
		logger.Infof("[boot] redis presence enabled addr=%s", cfg.RedisAddr)
	}

	// ---- cross-node relay (optional) ----
	var relay *natsx.Relay
	if cfg.NatsServers != "" {
		relay, err = natsx.Dial(natsx.Config{
			Servers: strings.Split(cfg.NatsServers, ","),
			NodeID:  cfg.NodeID,
		})
		if err != nil {
			logger.Errorf("[boot] nats: %v", err)
			return
		}
		defer relay.Close()
		logger.Infof("[boot] nats relay enabled node=%s", cfg.NodeID)
	}

	// ---- 组装 ----
	rt := router.New(cfg.SubQueueSize, cfg.FanoutWorkers, cfg.SubQueueSize)
	trk := tracker.New(cursors, store)
	sink := chat.NewEventSink(rt, relay, cfg.NodeID)
	sessions := session.NewManager(store, trk, sink,
		session.Limits{
			MaxPayloadLen:    cfg.MaxPayloadLen,
			MaxAttachmentLen: cfg.MaxAttachmentLen,
			CatchUpMaxBatch:  cfg.CatchUpMaxBatch,
		},
		session.ReceiptPolicy{Direct: cfg.DirectReceipts, Group: cfg.GroupReceipts},
	)
	server := chat.NewServer(cfg, sessions, trk, rt, relay)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Infof("[boot] gateway node=%s listening on %s", cfg.NodeID, addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("[boot] serve: %v", err)
	}
}
