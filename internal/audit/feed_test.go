package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_RecorderPublishes(t *testing.T) {
	feed := NewFeed(4)
	r := NewRecorder(NewLogSink(nil, 10), nil).WithFeed(feed)

	entries, unsubscribe := feed.Subscribe()
	defer unsubscribe()

	r.Record(WithActor(context.Background(), "admin-1"), "society.purge", "societies/s1", nil)

	select {
	case e := <-entries:
		assert.Equal(t, "society.purge", e.Action)
		assert.Equal(t, "admin-1", e.Actor)
	default:
		t.Fatal("entry was not published")
	}
}

func TestFeed_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	feed := NewFeed(1)
	entries, unsubscribe := feed.Subscribe()

	feed.Publish(Entry{Action: "a"})
	feed.Publish(Entry{Action: "b"})

	e := <-entries
	assert.Equal(t, "a", e.Action)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, feed.Subscribers())

	_, open := <-entries
	require.False(t, open)
}
