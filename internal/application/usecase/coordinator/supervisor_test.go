package coordinator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"watchbar/internal/application/port"
)

// ---- 测试替身 ----

type fakeConn struct {
	mu     sync.Mutex
	in     chan []byte
	writes [][]byte
	done   chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), done: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case raw := <-c.in:
		return raw, nil
	case <-c.done:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), payload...))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	for i, w := range c.writes {
		out[i] = string(w)
	}
	return out
}

type fakeDialer struct {
	mu    sync.Mutex
	fail  bool
	dials int
	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (port.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.fail {
		return nil, errors.New("dial refused")
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

type fakeSource struct {
	name   string
	resub  bool
	decode func(raw []byte) port.DecodeResult
}

func (s *fakeSource) Name() string { return s.name }
func (s *fakeSource) URL() string  { return "ws://test" }

func (s *fakeSource) BuildSubscribe(natives []string) ([]port.OutMessage, error) {
	return []port.OutMessage{{Payload: []byte("sub:" + strings.Join(natives, ","))}}, nil
}

func (s *fakeSource) Decode(raw []byte) port.DecodeResult {
	if s.decode != nil {
		return s.decode(raw)
	}
	return port.DecodeResult{}
}

func (s *fakeSource) ResubscribeOnChange() bool { return s.resub }

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// ---- 用例 ----

func TestSupervisorConnectsAndSubscribes(t *testing.T) {
	d := &fakeDialer{}
	sup := NewSupervisor(context.Background(), &fakeSource{name: "test"}, d, time.Second, nil, nil)

	sup.SetSelection([]string{"BTC-USD", "ETH-USD"})
	waitFor(t, func() bool { return sup.State() == StateStreaming }, "never reached Streaming")

	writes := d.lastConn().written()
	if len(writes) != 1 || writes[0] != "sub:BTC-USD,ETH-USD" {
		t.Fatalf("unexpected subscribe frames: %v", writes)
	}
	sup.Stop()
}

func TestSupervisorCooldownSingleReconnect(t *testing.T) {
	const cooldown = 200 * time.Millisecond
	d := &fakeDialer{fail: true}
	sup := NewSupervisor(context.Background(), &fakeSource{name: "test"}, d, cooldown, nil, nil)

	sup.SetSelection([]string{"BTC-USD"})
	waitFor(t, func() bool { return d.dialCount() == 1 }, "first dial never happened")

	// 冷却窗口内：不允许出现第二次尝试
	time.Sleep(cooldown / 2)
	if n := d.dialCount(); n != 1 {
		t.Fatalf("reconnect before cooldown: %d dials", n)
	}

	// 冷却期满：正好一次新尝试
	waitFor(t, func() bool { return d.dialCount() == 2 }, "reconnect after cooldown never happened")
	time.Sleep(cooldown / 4)
	if n := d.dialCount(); n > 3 {
		t.Fatalf("reconnect storm: %d dials", n)
	}
	sup.Stop()
}

func TestSupervisorStopClearsPendingReconnect(t *testing.T) {
	const cooldown = 150 * time.Millisecond
	d := &fakeDialer{fail: true}
	sup := NewSupervisor(context.Background(), &fakeSource{name: "test"}, d, cooldown, nil, nil)

	sup.SetSelection([]string{"BTC-USD"})
	waitFor(t, func() bool { return sup.State() == StateReconnectPending }, "never reached ReconnectPending")

	sup.Stop()
	if st := sup.State(); st != StateIdle {
		t.Fatalf("expected Idle after stop, got %v", st)
	}

	time.Sleep(cooldown * 2)
	if n := d.dialCount(); n != 1 {
		t.Fatalf("pending reconnect survived Stop: %d dials", n)
	}
}

func TestSupervisorEmptySelectionTearsDown(t *testing.T) {
	d := &fakeDialer{}
	sup := NewSupervisor(context.Background(), &fakeSource{name: "test"}, d, time.Second, nil, nil)

	sup.SetSelection([]string{"BTC-USD"})
	waitFor(t, func() bool { return sup.State() == StateStreaming }, "never reached Streaming")

	sup.SetSelection(nil)
	if st := sup.State(); st != StateIdle {
		t.Fatalf("expected Idle after empty selection, got %v", st)
	}
	if sup.HasSelection() {
		t.Error("HasSelection must be false")
	}
}

func TestSupervisorBroadcastKeepsConnectionOnChange(t *testing.T) {
	d := &fakeDialer{}
	sup := NewSupervisor(context.Background(), &fakeSource{name: "hyper", resub: false}, d, time.Second, nil, nil)

	sup.SetSelection([]string{"ETH"})
	waitFor(t, func() bool { return sup.State() == StateStreaming }, "never reached Streaming")

	// 广播源：追加符号不触发重连
	sup.SetSelection([]string{"ETH", "SOL"})
	time.Sleep(50 * time.Millisecond)
	if n := d.dialCount(); n != 1 {
		t.Fatalf("broadcast feed reconnected on selection change: %d dials", n)
	}
	sup.Stop()
}

func TestSupervisorPerSymbolResubscribesOnChange(t *testing.T) {
	d := &fakeDialer{}
	sup := NewSupervisor(context.Background(), &fakeSource{name: "coinbase", resub: true}, d, time.Second, nil, nil)

	sup.SetSelection([]string{"BTC-USD"})
	waitFor(t, func() bool { return sup.State() == StateStreaming }, "never reached Streaming")

	sup.SetSelection([]string{"BTC-USD", "ETH-USD"})
	waitFor(t, func() bool { return d.dialCount() == 2 }, "per-symbol feed never reconnected")
	waitFor(t, func() bool {
		c := d.lastConn()
		if c == nil {
			return false
		}
		w := c.written()
		return len(w) == 1 && w[0] == "sub:BTC-USD,ETH-USD"
	}, "new subscription does not list both symbols")
	sup.Stop()
}

func TestSupervisorForceReconnect(t *testing.T) {
	d := &fakeDialer{}
	sup := NewSupervisor(context.Background(), &fakeSource{name: "test"}, d, time.Hour, nil, nil)

	sup.SetSelection([]string{"BTC-USD"})
	waitFor(t, func() bool { return sup.State() == StateStreaming }, "never reached Streaming")

	// 冷却设成 1 小时也挡不住显式重连
	sup.ForceReconnect()
	waitFor(t, func() bool { return d.dialCount() == 2 }, "force reconnect did not dial")
	sup.Stop()
}

func TestSupervisorProtocolErrorSchedulesReconnect(t *testing.T) {
	const cooldown = 150 * time.Millisecond
	src := &fakeSource{
		name: "test",
		decode: func(raw []byte) port.DecodeResult {
			if string(raw) == "boom" {
				return port.DecodeResult{Err: errors.New("critical_error")}
			}
			return port.DecodeResult{}
		},
	}
	d := &fakeDialer{}
	sup := NewSupervisor(context.Background(), src, d, cooldown, nil, nil)

	sup.SetSelection([]string{"BTC-USD"})
	waitFor(t, func() bool { return sup.State() == StateStreaming }, "never reached Streaming")

	d.lastConn().in <- []byte("boom")
	waitFor(t, func() bool { return d.dialCount() == 2 }, "no reconnect after protocol error")
	sup.Stop()
}

func TestSupervisorHeartbeatReplies(t *testing.T) {
	src := &fakeSource{
		name: "tv",
		decode: func(raw []byte) port.DecodeResult {
			if strings.HasPrefix(string(raw), "ping") {
				return port.DecodeResult{Replies: [][]byte{raw}}
			}
			return port.DecodeResult{}
		},
	}
	d := &fakeDialer{}
	sup := NewSupervisor(context.Background(), src, d, time.Second, nil, nil)

	sup.SetSelection([]string{"AAPL"})
	waitFor(t, func() bool { return sup.State() == StateStreaming }, "never reached Streaming")

	conn := d.lastConn()
	conn.in <- []byte("ping-7")
	waitFor(t, func() bool {
		w := conn.written()
		return len(w) == 2 && w[1] == "ping-7"
	}, "heartbeat was not echoed back")
	sup.Stop()
}
