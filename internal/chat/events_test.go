package chat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tyrowin/chatrooms/internal/chat"
)

func TestFanoutDeliversOncePerRecipient(t *testing.T) {
	got := map[string][]chat.Event{}
	d := chat.DelivererFunc(func(recipient string, event chat.Event) {
		got[recipient] = append(got[recipient], event)
	})

	evt := chat.MessageReceived("lobby", "alice", "hi")
	chat.Fanout(d, []string{"alice", "bob"}, evt)

	assert.Equal(t, map[string][]chat.Event{
		"alice": {evt},
		"bob":   {evt},
	}, got)
	assert.Equal(t, []string{"alice", "hi"}, evt.Args)
	assert.Equal(t, chat.EventMessageReceived, evt.Name)
}

func TestEventConstructors(t *testing.T) {
	assert.Equal(t, chat.Event{Name: chat.EventRoomCreated, Room: "r", Args: []string{"r"}}, chat.RoomCreated("r"))
	assert.Equal(t, chat.Event{Name: chat.EventUserJoined, Room: "r", Args: []string{"u"}}, chat.UserJoined("r", "u"))
	assert.Equal(t, chat.Event{Name: chat.EventUserLeft, Room: "r", Args: []string{"u"}}, chat.UserLeft("r", "u"))
}

func TestKindName(t *testing.T) {
	e := chat.NewEngine()
	assert.Empty(t, chat.KindName(nil))

	err := e.CreateRoom("", "alice")
	assert.Equal(t, "InvalidRoomName", chat.KindName(err))

	_ = e.CreateRoom("lobby", "alice")
	assert.Equal(t, "RoomAlreadyExists", chat.KindName(e.CreateRoom("lobby", "alice")))

	_, err = e.JoinRoom("lobby", "")
	assert.Equal(t, "InvalidParticipant", chat.KindName(err))

	_, err = e.SendMessage("lobby", "bob", "x")
	assert.Equal(t, "SenderNotMember", chat.KindName(err))
}
