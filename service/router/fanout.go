package router

import (
	"hash/fnv"

	"chatcore/module/chat/model"
)

type fanoutJob struct {
	subs []*Subscription
	ev   *model.Event
}

// Fanout 推送工作池。按会话ID哈希分片到固定 worker，
// 同一会话的事件始终走同一条队列，单订阅者看到的就是 seq 顺序。
type Fanout struct {
	router *Router
	shards []chan fanoutJob
}

func NewFanout(r *Router, workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{router: r, shards: make([]chan fanoutJob, workers)}
	for i := range f.shards {
		ch := make(chan fanoutJob, queue)
		f.shards[i] = ch
		go func() {
			for job := range ch {
				for _, sub := range job.subs {
					select {
					case sub.Events <- job.ev:
					default:
						// 慢订阅者：踢掉，由其重连后 catch-up；不拖累同会话其他人
						f.router.drop(sub)
					}
				}
			}
		}()
	}
	return f
}

func (f *Fanout) shard(convID string) chan fanoutJob {
	h := fnv.New32a()
	_, _ = h.Write([]byte(convID))
	return f.shards[int(h.Sum32())%len(f.shards)]
}

// Broadcast 非阻塞入列：发送方（会话独占段内）永不等 fan-out。
func (f *Fanout) Broadcast(subs []*Subscription, ev *model.Event) {
	if len(subs) == 0 || ev == nil {
		return
	}
	select {
	case f.shard(ev.ConversationID) <- fanoutJob{subs: subs, ev: ev}:
	default:
		// 分片积压说明 worker 侧整体拥塞：按溢出策略踢掉这批订阅者，
		// 被踢者重连后走 catch-up，不丢已提交的数据
		for _, sub := range subs {
			f.router.drop(sub)
		}
	}
}
