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
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.telegram.org"

	// Long polls block server-side for up to pollTimeout; the HTTP client
	// timeout must sit comfortably above it.
	defaultTimeout = 65 * time.Second
)

// Client calls Bot API methods over HTTPS.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	log        *zap.Logger
}

// NewClient creates a Bot API client for the given bot token.
func NewClient(token string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		token:      token,
		log:        log,
	}
}

// SetBaseURL overrides the API endpoint (tests, local bot API servers).
func (c *Client) SetBaseURL(url string) { c.baseURL = url }

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// APIError is a non-ok Bot API response.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}

	// Correlation id ties the request log line to the error that follows it.
	reqID := uuid.NewString()
	c.log.Debug("api call", zap.String("method", method), zap.String("req_id", reqID))

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api call failed", zap.String("req_id", reqID), zap.Error(err))
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if err := decodeResponse(method, resp.Body, result); err != nil {
		c.log.Debug("api call failed", zap.String("req_id", reqID), zap.Error(err))
		return err
	}
	return nil
}

func decodeResponse(method string, r io.Reader, result any) error {
	var api apiResponse
	if err := json.NewDecoder(r).Decode(&api); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !api.OK {
		return &APIError{Method: method, Code: api.ErrorCode, Description: api.Description}
	}
	if result != nil {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetUpdates long-polls for updates after offset, blocking up to
// timeoutSec server-side.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	params := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends a text message and returns its message id.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb *InlineKeyboardMarkup) (int, error) {
	params := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if kb != nil {
		params["reply_markup"] = kb
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		// A broken HTML entity must not eat the message (or its
		// keyboard): retry once as plain text.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == 400 {
			delete(params, "parse_mode")
			if retryErr := c.call(ctx, "sendMessage", params, &msg); retryErr == nil {
				return msg.MessageID, nil
			}
		}
		return 0, err
	}
	return msg.MessageID, nil
}

// SendPhoto sends a photo by file id or URL and returns the message id.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileID, caption string, kb *InlineKeyboardMarkup) (int, error) {
	params := map[string]any{
		"chat_id":    chatID,
		"photo":      fileID,
		"caption":    caption,
		"parse_mode": "HTML",
	}
	if kb != nil {
		params["reply_markup"] = kb
	}
	var msg Message
	if err := c.call(ctx, "sendPhoto", params, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// SendMediaGroup sends an album (2..10 items) and returns the ids of all
// messages it produced.
func (c *Client) SendMediaGroup(ctx context.Context, chatID int64, media []InputMedia) ([]int, error) {
	params := map[string]any{
		"chat_id": chatID,
		"media":   media,
	}
	var msgs []Message
	if err := c.call(ctx, "sendMediaGroup", params, &msgs); err != nil {
		return nil, err
	}
	ids := make([]int, len(msgs))
	for i, m := range msgs {
		ids[i] = m.MessageID
	}
	return ids, nil
}

// SendVoice sends a voice note by file id.
func (c *Client) SendVoice(ctx context.Context, chatID int64, fileID string) (int, error) {
	var msg Message
	err := c.call(ctx, "sendVoice", map[string]any{"chat_id": chatID, "voice": fileID}, &msg)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// SendVideoNote sends a round video message by file id.
func (c *Client) SendVideoNote(ctx context.Context, chatID int64, fileID string) (int, error) {
	var msg Message
	err := c.call(ctx, "sendVideoNote", map[string]any{"chat_id": chatID, "video_note": fileID}, &msg)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// SendDocument uploads a local file as a document.
func (c *Client) SendDocument(ctx context.Context, chatID int64, path, caption string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return 0, fmt.Errorf("write chat_id field: %w", err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return 0, fmt.Errorf("write caption field: %w", err)
		}
	}
	part, err := w.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return 0, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, fmt.Errorf("copy document: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendDocument", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return 0, fmt.Errorf("build sendDocument request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call sendDocument: %w", err)
	}
	defer resp.Body.Close()

	var msg Message
	if err := decodeResponse("sendDocument", resp.Body, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// DeleteMessage deletes a message. Callers treat failure as success;
// the error is returned only for logging.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

// EditMessageText replaces the text of an existing message.
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	return c.call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}, nil)
}

// EditMessageReplyMarkup replaces (or with nil removes) a message's inline
// keyboard.
func (c *Client) EditMessageReplyMarkup(ctx context.Context, chatID int64, messageID int, kb *InlineKeyboardMarkup) error {
	params := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	if kb != nil {
		params["reply_markup"] = kb
	}
	return c.call(ctx, "editMessageReplyMarkup", params, nil)
}

// AnswerCallback acknowledges a button press, optionally with a toast or
// alert.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, showAlert bool) error {
	params := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		params["text"] = text
		params["show_alert"] = showAlert
	}
	return c.call(ctx, "answerCallbackQuery", params, nil)
}
