package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ynhind/open-library-client/internal/constants"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// TokenSource 会话凭证来源（由 session.Store 实现）
type TokenSource interface {
	Token() string
	Clear() error
}

// Client 后端 JSON 接口客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *zap.Logger
}

// NewClient 创建接口客户端
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     log,
	}
}

// RequestOptions 单次请求选项
type RequestOptions struct {
	Method  string            // 默认 GET
	Body    interface{}       // nil / string / []byte / *MultipartBody / 可 JSON 序列化对象
	Headers map[string]string // 逐项合并，后写覆盖默认
	Auth    bool              // 是否附带 Authorization
}

// Request 发起一次 JSON 请求并返回原始响应体。
// 认证与过期哨兵在此集中处理：缺 token 直接失败不发请求，
// 后端返回过期哨兵时清除本地凭证并返回 ErrTokenExpired。
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions) (json.RawMessage, error) {
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodGet
	}

	var token string
	if opts.Auth {
		if c.tokens != nil {
			token = strings.TrimSpace(c.tokens.Token())
		}
		if token == "" {
			return nil, ErrAuthenticationRequired
		}
	}

	reader, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/" + strings.TrimPrefix(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("api_request",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := parseErrorMessage(body)
		if message == "" {
			message = fmt.Sprintf("API Error: %d", resp.StatusCode)
		}
		c.logger.Debug("api_request_failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message),
		)
		if opts.Auth && message == constants.SentinelTokenExpired {
			if c.tokens != nil {
				if clearErr := c.tokens.Clear(); clearErr != nil {
					c.logger.Warn("session_clear_failed", zap.Error(clearErr))
				}
			}
			return nil, ErrTokenExpired
		}
		return nil, &Error{Status: resp.StatusCode, Message: message}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	return json.RawMessage(body), nil
}

func encodeBody(body interface{}) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *MultipartBody:
		// multipart 不设置默认 Content-Type，由编码时生成的 boundary 决定
		return bytes.NewReader(b.content), b.contentType, nil
	case string:
		return strings.NewReader(b), "application/json", nil
	case []byte:
		return bytes.NewReader(b), "application/json", nil
	case json.RawMessage:
		return bytes.NewReader(b), "application/json", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body failed: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func parseErrorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.Message)
}

// MultipartBody 已编码的 multipart 表单体
type MultipartBody struct {
	content     []byte
	contentType string
}

// MultipartFile multipart 文件字段
type MultipartFile struct {
	Filename string
	Content  []byte
}

// NewMultipartBody 构造 multipart 表单体
func NewMultipartBody(fields map[string]string, files map[string]MultipartFile) (*MultipartBody, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	for name, file := range files {
		part, err := writer.CreateFormFile(name, file.Filename)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return &MultipartBody{content: buf.Bytes(), contentType: writer.FormDataContentType()}, nil
}
