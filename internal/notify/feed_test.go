package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pgportal/internal/model"
)

type fakeReadAPI struct {
	failNext bool
	count    int
	marked   []string
}

func (f *fakeReadAPI) MarkRead(ctx context.Context, id string) error {
	if f.failNext {
		f.failNext = false
		return errors.New("server unavailable")
	}
	f.marked = append(f.marked, "read:"+id)
	f.count--
	return nil
}

func (f *fakeReadAPI) MarkUnread(ctx context.Context, id string) error {
	if f.failNext {
		f.failNext = false
		return errors.New("server unavailable")
	}
	f.marked = append(f.marked, "unread:"+id)
	f.count++
	return nil
}

func (f *fakeReadAPI) UnreadCount(ctx context.Context) (int, error) {
	return f.count, nil
}

func sampleFeed() []model.Notification {
	return []model.Notification{
		{ID: "n1", Message: "one", Category: "info"},
		{ID: "n2", Message: "two", Category: "warning"},
	}
}

func TestFeedReplaceDetectsChanges(t *testing.T) {
	f := NewFeed(&fakeReadAPI{})
	assert.True(t, f.Replace(sampleFeed()))
	assert.False(t, f.Replace(sampleFeed()))

	changed := sampleFeed()
	changed[1].Read = true
	assert.True(t, f.Replace(changed))
	assert.True(t, f.Items()[1].Read)
}

func TestFeedMarkReadAndUnread(t *testing.T) {
	api := &fakeReadAPI{count: 2}
	f := NewFeed(api)
	f.Replace(sampleFeed())
	f.SetUnread(2)

	require.NoError(t, f.MarkRead(context.Background(), "n1"))
	assert.True(t, f.Items()[0].Read)
	assert.NotNil(t, f.Items()[0].ReadAt)
	assert.Equal(t, 1, f.Unread())

	require.NoError(t, f.MarkUnread(context.Background(), "n1"))
	assert.False(t, f.Items()[0].Read)
	assert.Nil(t, f.Items()[0].ReadAt)
	assert.Equal(t, 2, f.Unread())
	assert.Equal(t, []string{"read:n1", "unread:n1"}, api.marked)
}

func TestFeedMarkReadRevertsOnFailure(t *testing.T) {
	api := &fakeReadAPI{count: 2, failNext: true}
	f := NewFeed(api)
	f.Replace(sampleFeed())
	f.SetUnread(2)

	err := f.MarkRead(context.Background(), "n2")
	require.Error(t, err)
	assert.False(t, f.Items()[1].Read)
	assert.Equal(t, 2, f.Unread())
}

func TestFeedMarkUnknown(t *testing.T) {
	f := NewFeed(&fakeReadAPI{})
	f.Replace(sampleFeed())
	assert.Error(t, f.MarkRead(context.Background(), "missing"))
}

func TestFeedReplaceAfterLocalReadStateChange(t *testing.T) {
	f := NewFeed(&fakeReadAPI{count: 2})
	require.True(t, f.Replace(sampleFeed()))
	require.NoError(t, f.MarkRead(context.Background(), "n1"))
	require.True(t, f.Items()[0].Read)

	// The portal still reports n1 unread; the refetch must win.
	assert.True(t, f.Replace(sampleFeed()))
	assert.False(t, f.Items()[0].Read)

	assert.False(t, f.Replace(sampleFeed()))
}
