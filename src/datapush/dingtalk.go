package datapush

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// 常量定义
const (
	RETRY_TIMES    = 3
	RETRY_INTERVAL = 2 * time.Second
)

// 钉钉 API 响应结构体
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Robot 钉钉群自定义机器人
type Robot struct {
	webhook string
	secret  string // 加签密钥，为空时不加签
	client  *http.Client
	now     func() time.Time

	retries  int
	interval time.Duration
}

func NewRobot(webhook, secret string) *Robot {
	return &Robot{
		webhook: webhook,
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,

		retries:  RETRY_TIMES,
		interval: RETRY_INTERVAL,
	}
}

// signedURL 加签: HMAC-SHA256(timestamp + "\n" + secret)，base64 后放入 sign 参数
func (r *Robot) signedURL() (string, error) {
	if r.secret == "" {
		return r.webhook, nil
	}
	u, err := url.Parse(r.webhook)
	if err != nil {
		return "", fmt.Errorf("webhook 地址无效: %w", err)
	}

	ts := strconv.FormatInt(r.now().UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(r.secret))
	mac.Write([]byte(ts + "\n" + r.secret))

	q := u.Query()
	q.Set("timestamp", ts)
	q.Set("sign", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SendMarkdown 发送 markdown 消息，失败时按固定间隔重试
func (r *Robot) SendMarkdown(ctx context.Context, title, text string) error {
	payload := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": title,
			"text":  text,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %v", err)
	}

	return retry(ctx, func() error { return r.post(ctx, body) }, r.retries, r.interval)
}

func (r *Robot) post(ctx context.Context, body []byte) error {
	target, err := r.signedURL()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("钉钉返回 HTTP %d: %s", resp.StatusCode, respBody)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("发送消息失败: %s", result.ErrMsg)
	}
	return nil
}

// 重试函数
func retry(ctx context.Context, fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %w", times, err)
}
