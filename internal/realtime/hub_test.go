package realtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConversationStreamNaming(t *testing.T) {
	require.Equal(t, "conversation:abc", ConversationStream("abc"))
}

func TestPublishWithoutSubscribersIsNoOp(t *testing.T) {
	hub := NewHub()
	require.Zero(t, hub.SubscriberCount(ConversationStream("abc")))
	// Must not panic with nobody listening.
	hub.Publish(ConversationStream("abc"), "message.created", map[string]string{"id": "1"})
}

func TestHostOf(t *testing.T) {
	require.Equal(t, "stays.example", hostOf("https://stays.example:8443/path"))
	require.Equal(t, "localhost", hostOf("localhost:3000"))
}
