package channel

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pgportal/internal/model"
)

type fakeSub struct {
	closed bool
}

func (s *fakeSub) Close() error {
	s.closed = true
	return nil
}

type fakeTransport struct {
	mu       sync.Mutex
	err      error
	channels []string
	subs     []*fakeSub
	deliver  func([]byte)
}

func (f *fakeTransport) Subscribe(
	ctx context.Context,
	token, channel, event string,
	deliver func([]byte),
) (io.Closer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sub := &fakeSub{}
	f.channels = append(f.channels, channel)
	f.subs = append(f.subs, sub)
	f.deliver = deliver
	return sub, nil
}

func testConfig() Config {
	return Config{
		Prefix:      "private-notifications.",
		SharedTopic: "admin",
		Event:       "notification.sent",
		Buffer:      2,
	}
}

func TestTopic(t *testing.T) {
	a := NewAdapter(&fakeTransport{}, testConfig(), zerolog.Nop())
	assert.Equal(t, "private-notifications.admin", a.Topic(Subject{UserID: 1, Role: model.RoleAdmin}))
	assert.Equal(t, "private-notifications.42", a.Topic(Subject{UserID: 42, Role: model.RoleSupervisor}))
	assert.Equal(t, "private-notifications.9", a.Topic(Subject{UserID: 9, Role: model.RoleStudent}))
}

func TestConnectWithoutTokenIsSkipped(t *testing.T) {
	tr := &fakeTransport{}
	a := NewAdapter(tr, testConfig(), zerolog.Nop())
	require.NoError(t, a.Connect(context.Background(), "", Subject{UserID: 1}))
	assert.Empty(t, tr.channels)
	assert.False(t, a.Connected())
}

func TestReconnectTearsDownPrevious(t *testing.T) {
	tr := &fakeTransport{}
	a := NewAdapter(tr, testConfig(), zerolog.Nop())

	require.NoError(t, a.Connect(context.Background(), "t1", Subject{UserID: 1, Role: model.RoleStudent}))
	require.NoError(t, a.Connect(context.Background(), "t2", Subject{UserID: 2, Role: model.RoleAdmin}))

	require.Len(t, tr.subs, 2)
	assert.True(t, tr.subs[0].closed)
	assert.False(t, tr.subs[1].closed)
	assert.Equal(t, []string{"private-notifications.1", "private-notifications.admin"}, tr.channels)

	a.Disconnect()
	assert.True(t, tr.subs[1].closed)
	assert.False(t, a.Connected())
}

func TestConnectError(t *testing.T) {
	tr := &fakeTransport{err: errors.New("refused")}
	a := NewAdapter(tr, testConfig(), zerolog.Nop())
	err := a.Connect(context.Background(), "tok", Subject{UserID: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private-notifications.3")
	assert.False(t, a.Connected())
}

func TestDeliverDecodesAndDropsInvalid(t *testing.T) {
	tr := &fakeTransport{}
	a := NewAdapter(tr, testConfig(), zerolog.Nop())
	require.NoError(t, a.Connect(context.Background(), "tok", Subject{UserID: 5}))

	tr.deliver([]byte("{broken"))
	tr.deliver([]byte(`{"notification":{"message":"New request","type":"info"}}`))
	tr.deliver([]byte(`{"notification":{"message":"second"}}`))
	tr.deliver([]byte(`{"notification":{"message":"overflow"}}`))

	select {
	case ev := <-a.Events():
		assert.Equal(t, "New request", ev.Message)
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
	ev := <-a.Events()
	assert.Equal(t, "second", ev.Message)

	select {
	case ev := <-a.Events():
		t.Fatalf("unexpected event %q", ev.Message)
	default:
	}
}
