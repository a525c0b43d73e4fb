package port

import (
	"context"
	"time"

	"watchbar/internal/domain"
)

// PriceUpdate 解码后的一条规范化价格更新
type PriceUpdate struct {
	ID       string // instrument id, e.g. "CB:BTC-USD"
	PriceStr string // raw string
	PriceNum float64
	Baseline float64 // >0 时同时刷新基准价（如 Coinbase 的 open_24h）
	Ts       int64   // unix ms
}

// OutMessage 一条待发送的出站帧；Delay>0 表示发送前等待
// （TradingView 的 add-symbols 必须等 session 注册完成）
type OutMessage struct {
	Payload []byte
	Delay   time.Duration
}

// DecodeResult 一帧的解码产物
// Replies 是需要原样回写给对端的帧（心跳回显）
// Err 非空表示 provider 报了会话级错误，当前连接必须终止并调度重连
type DecodeResult struct {
	Updates []PriceUpdate
	Replies [][]byte
	Err     error
}

// StreamSource 每个 provider-group 实现一次的流式能力
// 订阅构造、帧解码和 key 归类都在实现内部，监督器不做任何身份判断
type StreamSource interface {
	// Name returns the provider-group name (application.Group*)
	Name() string
	URL() string

	// BuildSubscribe 用当前选中的原生符号构造订阅消息序列
	BuildSubscribe(natives []string) ([]OutMessage, error)

	// Decode 解析一个原始帧；无法识别的帧返回空结果即可
	Decode(raw []byte) DecodeResult

	// ResubscribeOnChange 选择变化时是否需要整体重连重订阅
	// true: 按符号订阅的流（Coinbase / TradingView）
	// false: 广播全量的流（Hyperliquid / HyperEVM）
	ResubscribeOnChange() bool
}

// NativeOf 从标的取该流期望的订阅符号；默认就是 NativeSymbol
func NativeOf(it domain.Instrument) string { return it.NativeSymbol }

// Conn 受监督的一条流式连接
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(payload []byte) error
	Close() error
}

// Dialer 建立 Conn；infrastructure/websocket 提供 gorilla 实现
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// CatalogSource 每个 provider 一个的目录加载能力
type CatalogSource interface {
	Provider() domain.Provider
	// Load 一次 REST 拉取，成功时返回该 provider 的完整标的集合
	Load(ctx context.Context) ([]domain.Instrument, error)
}
