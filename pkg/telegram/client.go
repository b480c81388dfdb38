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
	"net/url"

	"github.com/sirupsen/logrus"
)

const DefaultApiUrl = "https://api.telegram.org"

// CaptionLimit is the maximum number of characters of a photo caption.
const CaptionLimit = 1024

const ParseModeHTML = "HTML"

var ErrNotConfigured = errors.New("telegram bot token or chat id missing")

var log = logrus.StandardLogger().WithField("package", "telegram")

// Client talks to the Telegram Bot API on behalf of a single bot and always
// delivers to the same chat.
type Client struct {
	http     *http.Client
	endpoint *url.URL
	token    string
	chatId   string
}

type apiResponse struct {
	Ok          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

type sendMessageRequest struct {
	ChatId    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func New(endpoint string, token string, chatId string) (*Client, error) {
	if token == "" || chatId == "" {
		return nil, ErrNotConfigured
	}
	if endpoint == "" {
		endpoint = DefaultApiUrl
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme %s is not supported", u.Scheme)
	}

	return &Client{
		http:     &http.Client{},
		endpoint: u,
		token:    token,
		chatId:   chatId,
	}, nil
}

func (c *Client) SetHttpTransport(transport http.RoundTripper) {
	c.http.Transport = transport
}

func (c *Client) methodUrl(method string) string {
	u := *c.endpoint
	u.Path = fmt.Sprintf("/bot%s/%s", c.token, method)
	return u.String()
}

// SendMessage sends text to the configured chat. parseMode may be empty.
func (c *Client) SendMessage(ctx context.Context, text string, parseMode string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatId:    c.chatId,
		Text:      text,
		ParseMode: parseMode,
	})
	if err != nil {
		return fmt.Errorf("unable to marshal JSON: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodUrl("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("unable to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, "sendMessage")
}

// SendPhoto uploads photo to the configured chat with an optional plain
// text caption.
func (c *Client) SendPhoto(ctx context.Context, photo io.Reader, fileName string, caption string) error {
	buf := bytes.NewBuffer(nil)
	w := multipart.NewWriter(buf)
	if err := w.WriteField("chat_id", c.chatId); err != nil {
		return err
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("photo", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, photo); err != nil {
		return fmt.Errorf("unable to read photo: %v", err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodUrl("sendPhoto"), buf)
	if err != nil {
		return fmt.Errorf("unable to create request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, "sendPhoto")
}

func (c *Client) do(req *http.Request, method string) error {
	res, err := c.http.Do(req)
	if err != nil {
		// the token is part of the URL, keep it out of the logs
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("%s: unable to perform HTTP request: %v", method, err)
	}
	defer res.Body.Close()

	var apiRes apiResponse
	decodeErr := json.NewDecoder(res.Body).Decode(&apiRes)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		if decodeErr == nil && apiRes.Description != "" {
			return fmt.Errorf("%s: unexpected status %s: %s", method, res.Status, apiRes.Description)
		}
		return fmt.Errorf("%s: unexpected status %s", method, res.Status)
	}
	if decodeErr != nil {
		return fmt.Errorf("%s: unable to decode response: %v", method, decodeErr)
	}
	if !apiRes.Ok {
		return fmt.Errorf("%s: telegram refused the request: %s", method, apiRes.Description)
	}
	log.Debugf("%s delivered", method)
	return nil
}
