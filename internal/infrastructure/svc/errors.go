package svc

import "errors"

// 错误分类：本系统没有致命错误，所有失败最终落到 "稍后重试" 或 "忽略继续收"
var (
	// ErrCatalogFetch 目录拉取失败（传输或解析）；不清空旧目录，readiness 照常推进
	ErrCatalogFetch = errors.New("catalog fetch failed")

	// ErrSubscribeSend 订阅消息写入失败；与读失败同等对待，调度重连
	ErrSubscribeSend = errors.New("subscribe send failed")

	// ErrProtocol provider 报告的会话级错误；终止当前会话并调度重连
	ErrProtocol = errors.New("provider protocol error")

	// ErrStaleConnection 健康检查判定连接假死；触发强制重连，不算用户可见错误
	ErrStaleConnection = errors.New("stale connection")

	// ErrNoFeedsEnabled 配置里没有启用任何价格源
	ErrNoFeedsEnabled = errors.New("no stream sources enabled")
)
