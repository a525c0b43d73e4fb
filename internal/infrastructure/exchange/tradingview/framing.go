package tradingview

import (
	"bytes"
	"strconv"
)

// 线级分帧：每条逻辑消息包成 ~m~<字节数>~m~<payload>
// 长度是 payload 的精确字节数，ASCII 十进制，无填充

var frameMarker = []byte("~m~")

// Wrap 打包一条载荷
func Wrap(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+16)
	out = append(out, frameMarker...)
	out = strconv.AppendInt(out, int64(len(payload)), 10)
	out = append(out, frameMarker...)
	out = append(out, payload...)
	return out
}

// Split 把一个接收缓冲切成零或多个完整载荷
// 读不出合法长度头或载荷不完整时停止，丢弃残帧
func Split(buf []byte) [][]byte {
	var out [][]byte
	for len(buf) > 0 {
		if !bytes.HasPrefix(buf, frameMarker) {
			break
		}
		rest := buf[len(frameMarker):]
		end := bytes.Index(rest, frameMarker)
		if end <= 0 {
			break
		}
		n, err := strconv.Atoi(string(rest[:end]))
		if err != nil || n < 0 {
			break
		}
		body := rest[end+len(frameMarker):]
		if len(body) < n {
			break
		}
		out = append(out, body[:n])
		buf = body[n:]
	}
	return out
}

// IsHeartbeat 心跳载荷以 ~h~ 开头，必须原样回显
func IsHeartbeat(payload []byte) bool {
	return bytes.HasPrefix(payload, []byte("~h~"))
}
