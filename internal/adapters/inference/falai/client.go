// Package falai runs models on fal.ai through its queue API: submit a
// request, poll its status until it completes, then fetch the result.
package falai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lipsync/internal/pkg/logger"
	"lipsync/internal/ports"
)

const (
	DefaultQueueURL = "https://queue.fal.run"
	DefaultModel    = "fal-ai/sync-lipsync"

	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

type Options struct {
	Key          string
	Model        string
	QueueURL     string
	WebhookURL   string
	PollInterval time.Duration
	HTTPClient   *http.Client
}

type Client struct {
	key          string
	model        string
	queueURL     string
	webhookURL   string
	pollInterval time.Duration
	http         *http.Client
	log          *logger.Logger
}

func New(opts Options, log *logger.Logger) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.QueueURL == "" {
		opts.QueueURL = DefaultQueueURL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		key:          opts.Key,
		model:        strings.Trim(opts.Model, "/"),
		queueURL:     strings.TrimRight(opts.QueueURL, "/"),
		webhookURL:   opts.WebhookURL,
		pollInterval: opts.PollInterval,
		http:         opts.HTTPClient,
		log:          log.WithComponent("falai"),
	}
}

func (c *Client) Provider() string { return "fal" }

// Model is the model id requests are submitted to.
func (c *Client) Model() string { return c.model }

type queueSubmit struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type logEntry struct {
	Message string `json:"message"`
}

type queueStatus struct {
	Status        string     `json:"status"`
	QueuePosition int        `json:"queue_position"`
	Logs          []logEntry `json:"logs"`
}

type lipSyncOutput struct {
	Video struct {
		URL string `json:"url"`
	} `json:"video"`
}

// LipSync submits req and blocks until the provider completes it. Log lines
// reported while the request is in progress are passed to onLog once each.
func (c *Client) LipSync(ctx context.Context, req ports.LipSyncRequest, onLog func(string)) (ports.LipSyncResult, error) {
	sub, err := c.submit(ctx, req)
	if err != nil {
		return ports.LipSyncResult{}, err
	}

	log := c.log.WithProviderRequestID(sub.RequestID)
	log.Info("request queued", "model", c.model)

	if err := c.waitCompleted(ctx, sub, onLog); err != nil {
		return ports.LipSyncResult{RequestID: sub.RequestID}, err
	}

	var out lipSyncOutput
	if err := c.do(ctx, http.MethodGet, c.responseURL(sub), nil, &out); err != nil {
		return ports.LipSyncResult{RequestID: sub.RequestID}, err
	}
	if out.Video.URL == "" {
		return ports.LipSyncResult{RequestID: sub.RequestID}, fmt.Errorf("fal: result of %s has no video url", sub.RequestID)
	}

	log.Info("request completed")
	return ports.LipSyncResult{RequestID: sub.RequestID, SyncedVideoURL: out.Video.URL}, nil
}

func (c *Client) submit(ctx context.Context, input any) (queueSubmit, error) {
	target := c.queueURL + "/" + c.model
	if c.webhookURL != "" {
		target += "?fal_webhook=" + url.QueryEscape(c.webhookURL)
	}

	var sub queueSubmit
	if err := c.do(ctx, http.MethodPost, target, input, &sub); err != nil {
		return queueSubmit{}, err
	}
	if sub.RequestID == "" {
		return queueSubmit{}, fmt.Errorf("fal: submit response has no request_id")
	}
	return sub, nil
}

func (c *Client) waitCompleted(ctx context.Context, sub queueSubmit, onLog func(string)) error {
	statusURL := c.statusURL(sub)
	seen := 0

	for {
		var st queueStatus
		if err := c.do(ctx, http.MethodGet, statusURL, nil, &st); err != nil {
			return err
		}

		switch st.Status {
		case StatusInQueue:
		case StatusInProgress, StatusCompleted:
			if st.Status == StatusInProgress && onLog != nil {
				for _, l := range st.Logs[min(seen, len(st.Logs)):] {
					onLog(l.Message)
				}
			}
			seen = max(seen, len(st.Logs))
			if st.Status == StatusCompleted {
				return nil
			}
		default:
			return fmt.Errorf("fal: unexpected queue status %q", st.Status)
		}

		t := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) statusURL(sub queueSubmit) string {
	u := sub.StatusURL
	if u == "" {
		u = c.requestURL(sub.RequestID) + "/status"
	}
	if strings.Contains(u, "?") {
		return u + "&logs=1"
	}
	return u + "?logs=1"
}

func (c *Client) responseURL(sub queueSubmit) string {
	if sub.ResponseURL != "" {
		return sub.ResponseURL
	}
	return c.requestURL(sub.RequestID)
}

func (c *Client) requestURL(id string) string {
	return c.queueURL + "/" + c.model + "/requests/" + id
}

func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Key "+c.key)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fal: %s %s: %w", method, redact(target), err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("fal: read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return parseAPIError(res.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("fal: decode response: %w", err)
	}
	return nil
}

// redact drops the query string, which may carry the webhook URL.
func redact(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}
