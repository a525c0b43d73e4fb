package coordinator

// ConnState 单条流式连接的生命周期状态
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateSubscribing
	StateStreaming
	StateClosing
	StateReconnectPending
)

var stateNames = map[ConnState]string{
	StateIdle:             "idle",
	StateConnecting:       "connecting",
	StateSubscribing:      "subscribing",
	StateStreaming:        "streaming",
	StateClosing:          "closing",
	StateReconnectPending: "reconnect_pending",
}

func (s ConnState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}
