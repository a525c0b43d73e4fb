package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"watchbar/internal/application/port"
)

const (
	dialTimeout  = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 25 * time.Second
	writeTimeout = 5 * time.Second
)

// Dialer gorilla 实现的 port.Dialer
type Dialer struct{}

func NewDialer() *Dialer { return &Dialer{} }

func (d *Dialer) Dial(ctx context.Context, url string) (port.Conn, error) {
	cctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	ws, _, err := websocket.DefaultDialer.DialContext(cctx, url, nil)
	if err != nil {
		return nil, err
	}

	c := &Conn{ws: ws, done: make(chan struct{})}
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	go c.pingLoop()
	return c, nil
}

// Conn 单条 websocket 连接；控制帧 ping 由内部 goroutine 维持
type Conn struct {
	ws   *websocket.Conn
	done chan struct{}
	once sync.Once
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout))
		}
	}
}

func (c *Conn) ReadMessage() ([]byte, error) {
	_, b, err := c.ws.ReadMessage()
	if err == nil {
		_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	}
	return b, err
}

func (c *Conn) WriteMessage(payload []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close 关闭底层 socket；会让阻塞中的 ReadMessage 立即失败返回
// 拆除路径和失败路径可能并发关同一条连接，要幂等
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.ws.Close()
}
