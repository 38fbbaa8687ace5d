package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"skyline/internal/logger"
)

const sendRetries = 3

// Telegram 把成交与异常信息推送到指定群/频道。
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// SendText 发送 Markdown 文本, 失败时退避重试。
func (t *Telegram) SendText(text string) error {
	if t.botToken == "" || t.chatID == "" {
		return fmt.Errorf("telegram 配置不完整")
	}
	body, err := json.Marshal(map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)

	var lastErr error
	for attempt := 1; attempt <= sendRetries; attempt++ {
		lastErr = t.sendOnce(url, body)
		if lastErr == nil {
			return nil
		}
		logger.Warnf("[notify] telegram 第 %d 次发送失败: %v", attempt, lastErr)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return lastErr
}

func (t *Telegram) sendOnce(url string, body []byte) error {
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return nil
}
