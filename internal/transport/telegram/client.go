package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// HTTPClient implements Client over the Telegram Bot HTTP API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a client for token. An empty baseURL means DefaultAPIURL.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

func (c *HTTPClient) GetUpdates(ctx context.Context, offset int, timeout int) ([]Update, error) {
	params := map[string]interface{}{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message", "callback_query"},
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second+timeoutSend)
	defer cancel()

	rawResp, err := c.doRequest(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err = json.Unmarshal(rawResp, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (*Message, error) {
	params := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	applyOptions(params, opts)

	ctx, cancel := context.WithTimeout(ctx, timeoutSend)
	defer cancel()

	rawResp, err := c.doRequest(ctx, "sendMessage", params)
	if err != nil {
		return nil, err
	}

	var message Message
	if err = json.Unmarshal(rawResp, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *HTTPClient) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *SendOptions) error {
	params := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	applyOptions(params, opts)

	ctx, cancel := context.WithTimeout(ctx, timeoutSend)
	defer cancel()

	_, err := c.doRequest(ctx, "editMessageText", params)
	return err
}

func (c *HTTPClient) EditMessageReplyMarkup(ctx context.Context, chatID int64, messageID int, markup *InlineKeyboardMarkup) error {
	params := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	if markup != nil {
		params["reply_markup"] = markup
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutSend)
	defer cancel()

	_, err := c.doRequest(ctx, "editMessageReplyMarkup", params)
	return err
}

func (c *HTTPClient) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	params := map[string]interface{}{
		"callback_query_id": callbackID,
	}
	if text != "" {
		params["text"] = text
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutSend)
	defer cancel()

	_, err := c.doRequest(ctx, "answerCallbackQuery", params)
	return err
}

func (c *HTTPClient) SendDocument(ctx context.Context, chatID int64, fileName string, data []byte) error {
	return c.upload(ctx, "sendDocument", "document", chatID, fileName, data)
}

func (c *HTTPClient) SendPhoto(ctx context.Context, chatID int64, fileName string, data []byte) error {
	return c.upload(ctx, "sendPhoto", "photo", chatID, fileName, data)
}

func (c *HTTPClient) upload(ctx context.Context, method, field string, chatID int64, fileName string, data []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("add chat_id field to multipart form: %w", err)
	}
	part, err := writer.CreateFormFile(field, fileName)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err = part.Write(data); err != nil {
		return fmt.Errorf("write data to multipart form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutUpload)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), &buf)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())

	_, err = c.do(request)
	return err
}

func (c *HTTPClient) doRequest(ctx context.Context, method string, params map[string]interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")

	return c.do(request)
}

func (c *HTTPClient) do(request *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var result struct {
		OK          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		Description string          `json:"description"`
		ErrorCode   int             `json:"error_code"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !result.OK {
		return nil, &APIError{Code: result.ErrorCode, Description: result.Description}
	}
	return result.Result, nil
}

func (c *HTTPClient) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func applyOptions(params map[string]interface{}, opts *SendOptions) {
	if opts == nil {
		return
	}
	if opts.ParseMode != "" {
		params["parse_mode"] = opts.ParseMode
	}
	if opts.ReplyMarkup != nil {
		params["reply_markup"] = opts.ReplyMarkup
	}
}

// APIError is a response with "ok": false.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// notModified reports the harmless error returned when an edit changes nothing.
func notModified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified")
}
