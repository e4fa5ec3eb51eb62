package router

import (
	"testing"
	"time"

	"chatcore/module/chat/model"

	"github.com/stretchr/testify/require"
)

func msgEvent(conv string, seq int64) *model.Event {
	return &model.Event{
		Type:           model.EventMessage,
		ConversationID: conv,
		Seq:            seq,
		Message: &model.Message{
			ConversationID: conv,
			Seq:            seq,
			SenderID:       "alice",
			Kind:           model.KindText,
			Payload:        []byte("hello"),
		},
	}
}

func recvEvent(t *testing.T, sub *Subscription) *model.Event {
	t.Helper()
	select {
	case ev := <-sub.Events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishDeliversInSeqOrder(t *testing.T) {
	r := New(64, 4, 64)
	sub := r.Subscribe("bob", []string{"c1"})
	defer r.Unsubscribe(sub)

	for i := int64(1); i <= 20; i++ {
		r.Publish("c1", msgEvent("c1", i), "alice")
	}
	for i := int64(1); i <= 20; i++ {
		ev := recvEvent(t, sub)
		require.EqualValues(t, i, ev.Seq)
	}
}

func TestPublishExcludesSender(t *testing.T) {
	r := New(16, 2, 16)
	alice := r.Subscribe("alice", []string{"c1"})
	bob := r.Subscribe("bob", []string{"c1"})
	defer r.Unsubscribe(alice)
	defer r.Unsubscribe(bob)

	r.Publish("c1", msgEvent("c1", 1), "alice")

	ev := recvEvent(t, bob)
	require.EqualValues(t, 1, ev.Seq)

	select {
	case <-alice.Events:
		t.Fatal("sender received its own event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishOnlyToSubscribedConversations(t *testing.T) {
	r := New(16, 2, 16)
	bob := r.Subscribe("bob", []string{"c1"})
	defer r.Unsubscribe(bob)

	r.Publish("c2", msgEvent("c2", 1), "")
	r.Publish("c1", msgEvent("c1", 1), "")

	ev := recvEvent(t, bob)
	require.Equal(t, "c1", ev.ConversationID)
}

func TestOverflowDropsSubscriberNotSender(t *testing.T) {
	r := New(2, 1, 64) // tiny per-subscription queue
	slow := r.Subscribe("bob", []string{"c1"})

	// nobody drains slow.Events; publishing stays non-blocking throughout
	done := make(chan struct{})
	go func() {
		for i := int64(1); i <= 10; i++ {
			r.Publish("c1", msgEvent("c1", i), "")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	select {
	case <-slow.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("overloaded subscriber was not evicted")
	}
	require.True(t, slow.Dropped())

	// evicted sub no longer receives; a fresh one does
	fresh := r.Subscribe("bob", []string{"c1"})
	defer r.Unsubscribe(fresh)
	r.Publish("c1", msgEvent("c1", 11), "")
	ev := recvEvent(t, fresh)
	require.EqualValues(t, 11, ev.Seq)
}

func TestPublishNeverBlocksOnSaturatedFanout(t *testing.T) {
	// one-slot shard and subscriber queues: the worst case for backpressure
	r := New(1, 1, 1)
	slow := r.Subscribe("bob", []string{"c1"})
	_ = slow // never drained

	done := make(chan struct{})
	go func() {
		for i := int64(1); i <= 500; i++ {
			r.Publish("c1", msgEvent("c1", i), "")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("publish blocked inside the fan-out")
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	r := New(16, 2, 16)
	sub := r.Subscribe("bob", []string{"c1", "c2"})
	require.ElementsMatch(t, []string{"c1", "c2"}, sub.Conversations())

	r.Unsubscribe(sub)
	r.Unsubscribe(sub) // second leave is a no-op
	r.Unsubscribe(nil)

	select {
	case <-sub.Done:
	default:
		t.Fatal("Done not closed after unsubscribe")
	}

	r.Publish("c1", msgEvent("c1", 1), "")
	select {
	case <-sub.Events:
		t.Fatal("received after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}
