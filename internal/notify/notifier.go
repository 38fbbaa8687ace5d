package notify

// TextNotifier 是最小化的文本推送接口, 调用方不依赖具体实现。
type TextNotifier interface {
	SendText(text string) error
}

// Noop 丢弃所有消息, 未配置推送渠道时使用。
type Noop struct{}

func (Noop) SendText(string) error { return nil }
