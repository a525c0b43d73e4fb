package hyperevm

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

// Stream builder-dex 的 allMids 广播流
// 线格式与主站一致，但 feed 里所有 key 都属于本组，无需形态归类
type Stream struct {
	wsURL string
	dex   string
}

func NewStream(wsURL, dex string) *Stream {
	return &Stream{wsURL: strings.TrimSpace(wsURL), dex: strings.TrimSpace(dex)}
}

func (s *Stream) Name() string              { return application.GroupHyperEVM }
func (s *Stream) URL() string               { return s.wsURL }
func (s *Stream) ResubscribeOnChange() bool { return false }

type subscribeReq struct {
	Method       string       `json:"method"`
	Subscription subscription `json:"subscription"`
}

type subscription struct {
	Type string `json:"type"`
	Dex  string `json:"dex"`
}

func (s *Stream) BuildSubscribe(_ []string) ([]port.OutMessage, error) {
	b, err := json.Marshal(subscribeReq{Method: "subscribe", Subscription: subscription{Type: "allMids", Dex: s.dex}})
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
	var msg allMidsMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Error().Str("feed", s.Name()).Err(err).Msg("json unmarshal failed")
		return port.DecodeResult{}
	}
	if msg.Channel != "allMids" || len(msg.Data.Mids) == 0 {
		return port.DecodeResult{}
	}

	ts := time.Now().UnixMilli()
	updates := make([]port.PriceUpdate, 0, len(msg.Data.Mids))
	for key, pxs := range msg.Data.Mids {
		// dex 前缀形如 "unit:SOL"，目录里用裸符号
		if _, bare, ok := strings.Cut(key, ":"); ok {
			key = bare
		}
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
			ID:       domain.InstrumentID(domain.ProviderHyperEVM, key),
			PriceStr: pxs,
			PriceNum: pxn,
			Ts:       ts,
		})
	}
	return port.DecodeResult{Updates: updates}
}
