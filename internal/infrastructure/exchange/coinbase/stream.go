package coinbase

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"watchbar/internal/application"
	"watchbar/internal/application/port"
	"watchbar/internal/domain"
)

// Stream 现货 ticker 流
// 按符号订阅：选择变化必须整体重连重订阅（会话状态绑定在 socket 上）
type Stream struct {
	wsURL string // e.g. wss://ws-feed.exchange.coinbase.com
}

func NewStream(wsURL string) *Stream {
	return &Stream{wsURL: strings.TrimSpace(wsURL)}
}

func (s *Stream) Name() string              { return application.GroupCoinbase }
func (s *Stream) URL() string               { return s.wsURL }
func (s *Stream) ResubscribeOnChange() bool { return true }

type subscribeReq struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

func (s *Stream) BuildSubscribe(natives []string) ([]port.OutMessage, error) {
	b, err := json.Marshal(subscribeReq{
		Type:       "subscribe",
		ProductIDs: natives,
		Channels:   []string{"ticker"},
	})
	if err != nil {
		return nil, err
	}
	return []port.OutMessage{{Payload: b}}, nil
}

type tickerMsg struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Open24h   string `json:"open_24h"`
	Volume24h string `json:"volume_24h"`
	Message   string `json:"message"` // type == "error"
	Reason    string `json:"reason"`
}

func (s *Stream) Decode(raw []byte) port.DecodeResult {
	var msg tickerMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Error().Str("feed", s.Name()).Err(err).Msg("json unmarshal failed")
		return port.DecodeResult{}
	}

	switch msg.Type {
	case "ticker":
		// fallthrough below
	case "subscriptions":
		// 订阅确认，忽略
		return port.DecodeResult{}
	case "error":
		// 报出来但不立即断开；连接是否健康交给下一轮健康检查判定
		log.Error().Str("feed", s.Name()).
			Str("message", msg.Message).Str("reason", msg.Reason).
			Msg("provider error message")
		return port.DecodeResult{}
	default:
		return port.DecodeResult{}
	}

	sym := strings.TrimSpace(msg.ProductID)
	pxs := strings.TrimSpace(msg.Price)
	if sym == "" || pxs == "" {
		return port.DecodeResult{}
	}
	pxn, err := strconv.ParseFloat(pxs, 64)
	if err != nil {
		log.Debug().Str("feed", s.Name()).Str("price", pxs).Msg("unparseable price, skipped")
		return port.DecodeResult{}
	}
	open, _ := strconv.ParseFloat(strings.TrimSpace(msg.Open24h), 64)

	return port.DecodeResult{Updates: []port.PriceUpdate{{
		ID:       domain.InstrumentID(domain.ProviderCoinbase, sym),
		PriceStr: pxs,
		PriceNum: pxn,
		Baseline: open,
		Ts:       time.Now().UnixMilli(),
	}}}
}
