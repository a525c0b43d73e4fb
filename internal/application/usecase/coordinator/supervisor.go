package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"watchbar/internal/application/port"
	"watchbar/internal/infrastructure/svc"
)

// Supervisor 一个 provider-group 一台状态机，管一条 socket 的完整生命周期：
// 连接、订阅、收包、拆除、带冷却窗口的重连
//
// 状态迁移（全部在 mu 内完成）：
//
//	Idle --选中非空--> Connecting --socket open--> Subscribing --进入收包循环--> Streaming
//	Streaming/Connecting --失败--> ReconnectPending --冷却期满且仍选中--> Connecting
//	任意状态 --显式 stop--> Idle（清掉所有挂起的重连守卫）
//
// 冷却从 lastReconnectAt 起算，窗口内到达的重连请求直接丢弃不排队；
// reconnectScheduled 是单发守卫，定时器挂起期间新的失败信号不会再排一个
type Supervisor struct {
	src      port.StreamSource
	dialer   port.Dialer
	cooldown time.Duration

	onUpdate func(port.PriceUpdate)
	onState  func()

	mu                 sync.Mutex
	ctx                context.Context
	state              ConnState
	conn               port.Conn
	gen                uint64 // 连接代数：显式拆除后旧 goroutine 的失败上报作废
	natives            []string
	lastMessageAt      time.Time
	lastReconnectAt    time.Time
	reconnectScheduled bool
	reconnectTimer     *time.Timer
}

func NewSupervisor(ctx context.Context, src port.StreamSource, dialer port.Dialer, cooldown time.Duration,
	onUpdate func(port.PriceUpdate), onState func()) *Supervisor {
	if onUpdate == nil {
		onUpdate = func(port.PriceUpdate) {}
	}
	if onState == nil {
		onState = func() {}
	}
	return &Supervisor{
		ctx:      ctx,
		src:      src,
		dialer:   dialer,
		cooldown: cooldown,
		onUpdate: onUpdate,
		onState:  onState,
		state:    StateIdle,
	}
}

func (s *Supervisor) Group() string { return s.src.Name() }

func (s *Supervisor) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) LastMessageAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMessageAt
}

func (s *Supervisor) LastAttemptAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReconnectAt
}

func (s *Supervisor) HasSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.natives) > 0
}

// SetSelection 选择集变化时由 coordinator 调用，natives 是本组当前选中的原生符号
//   - 变空：无条件拆除回 Idle（最后一个标的被取消）
//   - Idle -> 非空：启动
//   - 已连接 + 按符号订阅的源：整体重连重订阅（会话状态绑定在 socket 上）
//   - 已连接 + 广播源：不动，全量 feed 天然覆盖新选择
func (s *Supervisor) SetSelection(natives []string) {
	s.mu.Lock()
	s.natives = append([]string(nil), natives...)

	switch {
	case len(natives) == 0:
		s.teardownLocked()
	case s.state == StateIdle:
		s.beginLocked()
	case s.src.ResubscribeOnChange() && (s.state == StateConnecting || s.state == StateSubscribing || s.state == StateStreaming):
		log.Info().Str("feed", s.Group()).Msg("selection changed, resubscribing")
		s.teardownLocked()
		s.beginLocked()
	default:
		// ReconnectPending 挂起的定时器到点会带上新选择；广播源保持现状
	}
	s.mu.Unlock()
	s.onState()
}

// Stop 显式拆除：取消 socket、作废旧代、清空重连守卫，回到 Idle
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
	s.onState()
}

// ForceReconnect 健康检查 / 手动重连入口
// 绕过一次冷却检查：假死纠偏是刻意动作，不属于失败级联
func (s *Supervisor) ForceReconnect() {
	s.mu.Lock()
	s.teardownLocked()
	if len(s.natives) > 0 {
		s.beginLocked()
	}
	s.mu.Unlock()
	s.onState()
}

func (s *Supervisor) teardownLocked() {
	s.gen++
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.reconnectScheduled = false
	if s.conn != nil {
		s.state = StateClosing
		_ = s.conn.Close() // 让阻塞中的 ReadMessage 立即失败
		s.conn = nil
	}
	s.state = StateIdle
}

// beginLocked Idle/重连点火：记录尝试时间并起一条新收包 goroutine
func (s *Supervisor) beginLocked() {
	if s.ctx.Err() != nil {
		return
	}
	s.gen++
	s.state = StateConnecting
	s.lastReconnectAt = time.Now()
	go s.run(s.ctx, s.gen, append([]string(nil), s.natives...))
}

func (s *Supervisor) run(ctx context.Context, gen uint64, natives []string) {
	log.Info().Str("feed", s.Group()).Str("url", s.src.URL()).Msg("ws connecting")

	conn, err := s.dialer.Dial(ctx, s.src.URL())
	if err != nil {
		log.Error().Str("feed", s.Group()).Err(err).Msg("ws dial failed")
		s.failed(gen, nil)
		return
	}

	s.mu.Lock()
	if gen != s.gen || s.state != StateConnecting {
		s.mu.Unlock()
		_ = conn.Close() // 连接期间被显式拆除
		return
	}
	s.conn = conn
	s.state = StateSubscribing
	s.mu.Unlock()
	s.onState()

	msgs, err := s.src.BuildSubscribe(natives)
	if err == nil {
		err = s.sendSubscribe(ctx, conn, msgs)
	}
	if err != nil {
		log.Error().Str("feed", s.Group()).Err(err).Msg("subscribe failed")
		s.failed(gen, conn)
		return
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.state = StateStreaming
	s.lastMessageAt = time.Now()
	s.mu.Unlock()
	s.onState()
	log.Info().Str("feed", s.Group()).Msg("ws connected & subscribed")

	s.readLoop(ctx, gen, conn)
}

func (s *Supervisor) sendSubscribe(ctx context.Context, conn port.Conn, msgs []port.OutMessage) error {
	for _, m := range msgs {
		if m.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.Delay):
			}
		}
		if err := conn.WriteMessage(m.Payload); err != nil {
			return fmt.Errorf("%w: %v", svc.ErrSubscribeSend, err)
		}
	}
	return nil
}

func (s *Supervisor) readLoop(ctx context.Context, gen uint64, conn port.Conn) {
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && s.currentGen() == gen {
				log.Warn().Str("feed", s.Group()).Err(err).Msg("ws disconnected")
			}
			s.failed(gen, conn)
			return
		}

		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.lastMessageAt = time.Now()
		s.mu.Unlock()

		res := s.src.Decode(raw)

		for _, reply := range res.Replies {
			if werr := conn.WriteMessage(reply); werr != nil {
				log.Warn().Str("feed", s.Group()).Err(werr).Msg("heartbeat echo failed")
				s.failed(gen, conn)
				return
			}
		}

		if res.Err != nil {
			// 会话级协议错误：终止当前会话并调度重连
			log.Error().Str("feed", s.Group()).Err(res.Err).Msg("session terminated by protocol error")
			s.failed(gen, conn)
			return
		}

		for _, u := range res.Updates {
			s.onUpdate(u)
		}
	}
}

func (s *Supervisor) currentGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// failed 统一的失败汇聚点：显式拆除后的旧代上报在这里作废
func (s *Supervisor) failed(gen uint64, conn port.Conn) {
	if conn != nil {
		_ = conn.Close()
	}

	s.mu.Lock()
	if gen != s.gen || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.scheduleReconnectLocked()
	s.mu.Unlock()
	s.onState()
}

func (s *Supervisor) scheduleReconnectLocked() {
	if s.reconnectScheduled {
		// 单发守卫：已有挂起的重连，后续失败信号直接丢弃
		return
	}
	s.state = StateReconnectPending
	s.reconnectScheduled = true

	// 冷却从本次连接尝试的时刻起算
	delay := time.Until(s.lastReconnectAt.Add(s.cooldown))
	if delay < 0 {
		delay = 0
	}
	s.reconnectTimer = time.AfterFunc(delay, s.reconnectDue)
}

func (s *Supervisor) reconnectDue() {
	s.mu.Lock()
	s.reconnectScheduled = false
	s.reconnectTimer = nil
	if s.state != StateReconnectPending {
		s.mu.Unlock()
		return
	}
	if len(s.natives) == 0 || s.ctx.Err() != nil {
		s.state = StateIdle
		s.mu.Unlock()
		s.onState()
		return
	}
	s.beginLocked()
	s.mu.Unlock()
	s.onState()
}
