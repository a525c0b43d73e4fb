package tradingview

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"watchbar/internal/application"
	"watchbar/internal/application/port"
	"watchbar/internal/domain"
	"watchbar/internal/infrastructure/svc"
)

// Stream 股票报价流
// 订阅是有序多步：匿名 token -> 新建 quote session -> 声明字段 -> 逐个加符号
// add-symbols 必须比建会话晚一点发出，否则服务端可能拒绝尚未注册完的 session
// 按符号订阅：选择变化需要整体重连重订阅
type Stream struct {
	wsURL string
}

const (
	anonToken      = "unauthorized_user_token"
	addSymbolDelay = 500 * time.Millisecond
)

func NewStream(wsURL string) *Stream {
	return &Stream{wsURL: strings.TrimSpace(wsURL)}
}

func (s *Stream) Name() string              { return application.GroupTradingView }
func (s *Stream) URL() string               { return s.wsURL }
func (s *Stream) ResubscribeOnChange() bool { return true }

const sessionChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// 每次订阅都要新生成的随机会话 id
func newSessionID() string {
	b := make([]byte, 12)
	for i := range b {
		b[i] = sessionChars[rand.Intn(len(sessionChars))]
	}
	return "qs_" + string(b)
}

func wireMsg(m string, params ...any) ([]byte, error) {
	b, err := json.Marshal(map[string]any{"m": m, "p": params})
	if err != nil {
		return nil, err
	}
	return Wrap(b), nil
}

func (s *Stream) BuildSubscribe(natives []string) ([]port.OutMessage, error) {
	session := newSessionID()

	auth, err := wireMsg("set_auth_token", anonToken)
	if err != nil {
		return nil, err
	}
	create, err := wireMsg("quote_create_session", session)
	if err != nil {
		return nil, err
	}
	fields, err := wireMsg("quote_set_fields", session, "lp", "chp", "open_price")
	if err != nil {
		return nil, err
	}

	out := []port.OutMessage{
		{Payload: auth},
		{Payload: create},
		{Payload: fields},
	}
	for i, n := range natives {
		add, err := wireMsg("quote_add_symbols", session, n)
		if err != nil {
			return nil, err
		}
		msg := port.OutMessage{Payload: add}
		if i == 0 {
			msg.Delay = addSymbolDelay
		}
		out = append(out, msg)
	}
	return out, nil
}

type quoteMsg struct {
	M string            `json:"m"`
	P []json.RawMessage `json:"p"`
}

type quoteData struct {
	N string `json:"n"` // "NASDAQ:AAPL"
	V struct {
		LP        *float64 `json:"lp"`
		CHP       *float64 `json:"chp"`
		OpenPrice *float64 `json:"open_price"`
	} `json:"v"`
}

func (s *Stream) Decode(raw []byte) port.DecodeResult {
	var result port.DecodeResult

	for _, payload := range Split(raw) {
		if IsHeartbeat(payload) {
			// 心跳必须原样回显：重新打包产生与收到的帧完全相同的字节
			result.Replies = append(result.Replies, Wrap(payload))
			continue
		}

		var msg quoteMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Debug().Str("feed", s.Name()).Err(err).Msg("unrecognized frame, skipped")
			continue
		}

		switch msg.M {
		case "qsd":
			if u, ok := s.decodeQSD(msg); ok {
				result.Updates = append(result.Updates, u)
			}
		case "protocol_error", "critical_error":
			log.Error().Str("feed", s.Name()).Str("m", msg.M).Msg("provider session error")
			result.Err = fmt.Errorf("%w: %s", svc.ErrProtocol, msg.M)
			return result
		default:
			// quote_completed / session ack 等，忽略
		}
	}
	return result
}

// qsd 的 p = [session, {n, v:{lp, chp, open_price}}]，v 是增量值包
func (s *Stream) decodeQSD(msg quoteMsg) (port.PriceUpdate, bool) {
	if len(msg.P) < 2 {
		return port.PriceUpdate{}, false
	}
	var qd quoteData
	if err := json.Unmarshal(msg.P[1], &qd); err != nil || qd.N == "" || qd.V.LP == nil {
		return port.PriceUpdate{}, false
	}

	u := port.PriceUpdate{
		ID:       domain.InstrumentID(domain.ProviderTradingView, qd.N),
		PriceStr: fmt.Sprintf("%g", *qd.V.LP),
		PriceNum: *qd.V.LP,
		Ts:       time.Now().UnixMilli(),
	}
	switch {
	case qd.V.OpenPrice != nil && *qd.V.OpenPrice > 0:
		u.Baseline = *qd.V.OpenPrice
	case qd.V.CHP != nil && *qd.V.CHP > -100:
		// 只给了涨跌幅时反推基准价，保持 price/baseline 对的一致性
		u.Baseline = *qd.V.LP * 100 / (100 + *qd.V.CHP)
	}
	return u, true
}
