package pricefeed

import (
	"watchbar/internal/application/port"

	"github.com/rs/zerolog/log"
)

// Options 流式源构造参数
type Options struct {
	WsURL string
	Dex   string // hyperevm builder-dex 命名空间，其他组为空
}

// Factory 按 provider-group 构造 StreamSource
type Factory func(opt Options) port.StreamSource

// registry maps provider-group names to their stream source factories
var registry = make(map[string]Factory)

// Register 注册一个 stream source factory
// 由各 provider 包的 init() 自注册
func Register(group string, factory Factory) {
	if factory == nil {
		log.Warn().Str("group", group).Msg("invalid stream source factory")
		return
	}
	if _, exists := registry[group]; exists {
		log.Warn().Str("group", group).Msg("stream source factory already registered, overwriting")
	}
	registry[group] = factory
	log.Debug().Str("group", group).Msg("stream source factory registered")
}

// Get 获取已注册的 factory
func Get(group string) (Factory, bool) {
	factory, ok := registry[group]
	return factory, ok
}
