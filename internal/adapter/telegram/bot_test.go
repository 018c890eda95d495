package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	updates chan tgbotapi.Update
	stopped chan struct{}
	once    sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{updates: make(chan tgbotapi.Update, 64), stopped: make(chan struct{})}
}

func (s *fakeSource) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return s.updates
}

func (s *fakeSource) StopReceivingUpdates() {
	s.once.Do(func() { close(s.stopped) })
}

// recordingHandler keeps the order in which each chat's updates were handled
type recordingHandler struct {
	mu     sync.Mutex
	byChat map[int64][]int
	wg     sync.WaitGroup
}

func (h *recordingHandler) Handle(_ context.Context, u tgbotapi.Update) {
	defer h.wg.Done()
	if u.Message.Text == "panic" {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byChat[u.Message.Chat.ID] = append(h.byChat[u.Message.Chat.ID], u.UpdateID)
}

func TestPoller_KeepsPerChatOrder(t *testing.T) {
	src := newFakeSource()
	handler := &recordingHandler{byChat: make(map[int64][]int)}
	poller := NewPoller(src, handler, NewSessionStore(time.Minute), 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	handler.wg.Add(30)
	for i := 0; i < 30; i++ {
		u := textUpdate(int64(i%3), "x")
		u.UpdateID = i
		src.updates <- u
	}
	handler.wg.Wait()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	select {
	case <-src.stopped:
	default:
		t.Fatal("updates were not stopped")
	}

	for chat, ids := range handler.byChat {
		require.Len(t, ids, 10, "chat %d", chat)
		for i := 1; i < len(ids); i++ {
			assert.Less(t, ids[i-1], ids[i], "chat %d handled out of order", chat)
		}
	}
}

func TestPoller_SurvivesPanic(t *testing.T) {
	src := newFakeSource()
	handler := &recordingHandler{byChat: make(map[int64][]int)}
	poller := NewPoller(src, handler, NewSessionStore(time.Minute), 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	handler.wg.Add(2)
	src.updates <- textUpdate(1, "panic")
	ok := textUpdate(1, "fine")
	ok.UpdateID = 2
	src.updates <- ok
	handler.wg.Wait()

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, []int{2}, handler.byChat[1])
}

// gatedHandler holds the first update until released and records the context state of each
type gatedHandler struct {
	started  chan struct{}
	release  chan struct{}
	mu       sync.Mutex
	ctxErrs  []error
	handled  int
	blocking bool
}

func (h *gatedHandler) Handle(ctx context.Context, _ tgbotapi.Update) {
	h.mu.Lock()
	first := h.handled == 0
	h.handled++
	h.mu.Unlock()

	if first {
		close(h.started)
		if h.blocking {
			<-ctx.Done()
		} else {
			<-h.release
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctxErrs = append(h.ctxErrs, ctx.Err())
}

func TestPoller_DrainsBufferedUpdatesAfterCancel(t *testing.T) {
	src := newFakeSource()
	handler := &gatedHandler{started: make(chan struct{}), release: make(chan struct{})}
	poller := NewPoller(src, handler, NewSessionStore(time.Minute), 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	src.updates <- textUpdate(1, "first")
	<-handler.started
	src.updates <- textUpdate(1, "BTC 1 100")
	require.Eventually(t, func() bool { return len(src.updates) == 0 }, time.Second, 5*time.Millisecond)
	// let the poller move the second update into the shard
	time.Sleep(20 * time.Millisecond)

	cancel()
	close(handler.release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.ctxErrs, 2)
	assert.NoError(t, handler.ctxErrs[1], "buffered update handled with a cancelled context")
}

func TestPoller_DrainIsBounded(t *testing.T) {
	src := newFakeSource()
	handler := &gatedHandler{started: make(chan struct{}), blocking: true}
	poller := NewPoller(src, handler, NewSessionStore(time.Minute), 1, nil)
	poller.drain = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	src.updates <- textUpdate(1, "slow")
	<-handler.started
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after the drain timeout")
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.ctxErrs, 1)
	assert.ErrorIs(t, handler.ctxErrs[0], context.Canceled)
}

func TestShardFor(t *testing.T) {
	assert.Equal(t, 0, shardFor(tgbotapi.Update{}, 4))
	assert.Equal(t, 3, shardFor(textUpdate(7, ""), 4))
	assert.Equal(t, 3, shardFor(textUpdate(-7, ""), 4))
	assert.Equal(t, shardFor(textUpdate(9, ""), 4), shardFor(callbackUpdate(9, "x"), 4))
}
