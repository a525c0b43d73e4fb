package hyperliquid

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

// Stream 永续+现货共用的 allMids 广播流
// 一条订阅覆盖全平台所有标的，选择变化无需重连
// 每帧携带 全部 符号的 mid 价，按 key 形态归类到永续或现货目录：
// '@' 开头或含 '/' 的 key 是现货，其余是永续
type Stream struct {
	wsURL string // e.g. wss://api.hyperliquid.xyz/ws
}

func NewStream(wsURL string) *Stream {
	return &Stream{wsURL: strings.TrimSpace(wsURL)}
}

func (s *Stream) Name() string              { return application.GroupHyper }
func (s *Stream) URL() string               { return s.wsURL }
func (s *Stream) ResubscribeOnChange() bool { return false }

type subscribeReq struct {
	Method       string       `json:"method"`
	Subscription subscription `json:"subscription"`
}

type subscription struct {
	Type string `json:"type"`
	Dex  string `json:"dex,omitempty"`
}

func (s *Stream) BuildSubscribe(_ []string) ([]port.OutMessage, error) {
	b, err := json.Marshal(subscribeReq{Method: "subscribe", Subscription: subscription{Type: "allMids"}})
	if err != nil {
		return nil, err
	}
	return []port.OutMessage{{Payload: b}}, nil
}

type allMidsMsg struct {
	Channel string `json:"channel"`
	Data    struct {
		Mids map[string]string `json:"mids"`
	} `json:"data"`
}

func (s *Stream) Decode(raw []byte) port.DecodeResult {
	return decodeAllMids(s.Name(), raw, classify)
}

// classify key 形态 -> 目录
func classify(key string) domain.Provider {
	if strings.HasPrefix(key, "@") || strings.Contains(key, "/") {
		return domain.ProviderHyperliquidSpot
	}
	return domain.ProviderHyperliquidPerp
}

// decodeAllMids allMids 帧的通用解码；keyToProvider 决定 id 归属
func decodeAllMids(feed string, raw []byte, keyToProvider func(string) domain.Provider) port.DecodeResult {
	var msg allMidsMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Error().Str("feed", feed).Err(err).Msg("json unmarshal failed")
		return port.DecodeResult{}
	}
	if msg.Channel != "allMids" || len(msg.Data.Mids) == 0 {
		// subscriptionResponse / pong 之类，忽略
		return port.DecodeResult{}
	}

	ts := time.Now().UnixMilli()
	updates := make([]port.PriceUpdate, 0, len(msg.Data.Mids))
	for key, pxs := range msg.Data.Mids {
		key = strings.TrimSpace(key)
		pxs = strings.TrimSpace(pxs)
		if key == "" || pxs == "" {
			continue
		}
		pxn, err := strconv.ParseFloat(pxs, 64)
		if err != nil || pxn <= 0 {
			continue
		}
		updates = append(updates, port.PriceUpdate{
			ID:       domain.InstrumentID(keyToProvider(key), key),
			PriceStr: pxs,
			PriceNum: pxn,
			Ts:       ts,
		})
	}
	return port.DecodeResult{Updates: updates}
}
