package coinbase

import (
	"encoding/json"
	"testing"
)

func TestBuildSubscribe(t *testing.T) {
	s := NewStream("wss://ws-feed.exchange.coinbase.com")
	if !s.ResubscribeOnChange() {
		t.Fatal("per-symbol feed must resubscribe on selection change")
	}

	msgs, err := s.BuildSubscribe([]string{"BTC-USD", "ETH-USD"})
	if err != nil || len(msgs) != 1 {
		t.Fatalf("expected single subscribe frame, got %d err=%v", len(msgs), err)
	}
	var req subscribeReq
	if err := json.Unmarshal(msgs[0].Payload, &req); err != nil {
		t.Fatalf("unmarshal subscribe: %v", err)
	}
	if req.Type != "subscribe" || len(req.ProductIDs) != 2 || req.Channels[0] != "ticker" {
		t.Fatalf("unexpected subscribe: %+v", req)
	}
}

func TestDecodeTicker(t *testing.T) {
	s := NewStream("wss://x")
	raw := []byte(`{"type":"ticker","product_id":"BTC-USD","price":"97250.12","open_24h":"96000.00"}`)
	res := s.Decode(raw)
	if res.Err != nil || len(res.Updates) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	u := res.Updates[0]
	if u.ID != "CB:BTC-USD" || u.PriceNum != 97250.12 || u.Baseline != 96000 {
		t.Fatalf("unexpected update: %+v", u)
	}
}

func TestDecodeErrorMessageDoesNotTerminate(t *testing.T) {
	s := NewStream("wss://x")
	raw := []byte(`{"type":"error","message":"Failed to subscribe","reason":"bad product"}`)
	res := s.Decode(raw)
	// provider 的 error 帧只记日志：断不断连交给健康检查
	if res.Err != nil || len(res.Updates) != 0 {
		t.Fatalf("error frame must not terminate session: %+v", res)
	}
}

func TestDecodeIgnoresOtherFrames(t *testing.T) {
	s := NewStream("wss://x")
	for _, raw := range []string{
		`{"type":"subscriptions","channels":[]}`,
		`{"type":"heartbeat"}`,
		`{"type":"ticker","product_id":"BTC-USD","price":"oops"}`,
		`garbage`,
	} {
		res := s.Decode([]byte(raw))
		if res.Err != nil || len(res.Updates) != 0 {
			t.Errorf("frame %q must decode to empty result: %+v", raw, res)
		}
	}
}
