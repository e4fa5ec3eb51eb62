package chat

import (
	"encoding/json"
	"testing"

	"chatcore/module/chat/model"
	"chatcore/tools/errs"

	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"send","reqId":"r1","conversationId":"p2p:a_b","kind":"text","payload":"aGk="}`))
	require.NoError(t, err)
	require.Equal(t, FrameSend, f.Type)
	require.Equal(t, "r1", f.ReqID)
	require.Equal(t, "p2p:a_b", f.ConversationID)
	require.Equal(t, model.KindText, f.Kind)
	require.Equal(t, []byte("hi"), f.Payload)
}

func TestParseFrameErrors(t *testing.T) {
	_, err := ParseFrame([]byte(`{not json`))
	require.Error(t, err)

	_, err = ParseFrame([]byte(`{"reqId":"r1"}`))
	require.Error(t, err)
}

func TestBuildRejectedCodes(t *testing.T) {
	f := BuildRejected("r1", errs.ErrNotAuthorized)
	require.Equal(t, FrameRejected, f.Type)
	require.Equal(t, errs.ErrNotAuthorized.Code, f.Code)
	require.NotEmpty(t, f.Reason)

	// wrapped CodeError still maps to its code
	f = BuildRejected("r2", errs.ErrOverloaded.WrapMsg("queue full"))
	require.Equal(t, errs.ErrOverloaded.Code, f.Code)

	// anything else is an opaque internal error
	f = BuildRejected("r3", json.Unmarshal([]byte("x"), &struct{}{}))
	require.Equal(t, 500, f.Code)
	require.Equal(t, "internal error", f.Reason)
}

func TestEventFrameRoundTrip(t *testing.T) {
	ev := model.NewMessageEvent(&model.Message{
		ConversationID: "c1",
		Seq:            7,
		SenderID:       "alice",
		Kind:           model.KindText,
		Payload:        []byte("hello"),
	})
	data, err := json.Marshal(BuildEventFrame(ev))
	require.NoError(t, err)

	got, err := ParseFrame(data)
	require.NoError(t, err)
	require.Equal(t, FrameEvent, got.Type)
	require.EqualValues(t, 7, got.Seq)
	require.NotNil(t, got.Event)
	require.Equal(t, model.EventMessage, got.Event.Type)
	require.Equal(t, []byte("hello"), got.Event.Message.Payload)
}
