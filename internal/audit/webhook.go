package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/outstaff/outstaff/internal/config"
	"github.com/outstaff/outstaff/internal/safego"
)

const (
	defaultWebhookTimeout = 10 * time.Second
	defaultFlushInterval  = 5 * time.Second
	webhookQueueSize      = 1000
)

// WebhookShipper POSTs records as JSON. With a batch size set, records are
// queued and sent as a JSON array when the batch fills, on the flush interval,
// and on Close.
type WebhookShipper struct {
	url        string
	headers    map[string]string
	batchSize  int
	flushEvery time.Duration
	maxRetries uint64
	client     *http.Client

	queue     chan *Record
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewWebhookShipper validates cfg and starts the batch loop when batching is on
func NewWebhookShipper(cfg *config.AuditWebhookConfig) (*WebhookShipper, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	flushEvery := time.Duration(cfg.FlushInterval) * time.Second
	if flushEvery <= 0 {
		flushEvery = defaultFlushInterval
	}

	ws := &WebhookShipper{
		url:        cfg.URL,
		headers:    cfg.Headers,
		batchSize:  cfg.BatchSize,
		flushEvery: flushEvery,
		client:     &http.Client{Timeout: timeout},
		closing:    make(chan struct{}),
		done:       make(chan struct{}),
	}
	if cfg.MaxRetries > 0 {
		ws.maxRetries = uint64(cfg.MaxRetries)
	}

	if ws.batchSize > 0 {
		ws.queue = make(chan *Record, webhookQueueSize)
		safego.Go("audit_webhook_batch", ws.run)
	} else {
		close(ws.done)
	}
	return ws, nil
}

// Ship queues rec when batching, or sends it immediately. A full queue falls
// back to a direct send rather than dropping the record.
func (ws *WebhookShipper) Ship(ctx context.Context, rec *Record) error {
	if ws.queue != nil {
		select {
		case <-ws.closing:
		default:
			select {
			case ws.queue <- rec:
				return nil
			default:
			}
		}
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	return ws.post(ctx, body)
}

// run owns the pending batch; nothing else touches it
func (ws *WebhookShipper) run() {
	defer close(ws.done)

	ticker := time.NewTicker(ws.flushEvery)
	defer ticker.Stop()

	batch := make([]*Record, 0, ws.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ws.sendBatch(batch)
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-ws.queue:
			batch = append(batch, rec)
			if len(batch) >= ws.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ws.closing:
			// Drain whatever was queued before Close
			for {
				select {
				case rec := <-ws.queue:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (ws *WebhookShipper) sendBatch(batch []*Record) {
	body, err := json.Marshal(batch)
	if err != nil {
		slog.Warn("failed to marshal audit batch", "records", len(batch), "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ws.client.Timeout*time.Duration(ws.maxRetries+1))
	defer cancel()
	if err := ws.post(ctx, body); err != nil {
		slog.Warn("failed to send audit batch", "records", len(batch), "error", err)
	}
}

// post delivers body, retrying transport errors and 5xx responses with
// exponential backoff. A 4xx response is not retried.
func (ws *WebhookShipper) post(ctx context.Context, body []byte) error {
	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range ws.headers {
			req.Header.Set(k, v)
		}

		resp, err := ws.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send webhook: %w", err)
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("webhook returned status %d", resp.StatusCode))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	return backoff.RetryNotify(attempt,
		backoff.WithContext(backoff.WithMaxRetries(bo, ws.maxRetries), ctx),
		func(err error, wait time.Duration) {
			slog.Debug("retrying audit webhook", "url", ws.url, "wait", wait, "error", err)
		},
	)
}

// Close flushes queued records and waits for the batch loop to exit
func (ws *WebhookShipper) Close() error {
	ws.closeOnce.Do(func() { close(ws.closing) })
	<-ws.done
	return nil
}
