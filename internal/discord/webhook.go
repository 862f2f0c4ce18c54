package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Attachment is a binary file sent alongside the message, typically an event
// thumbnail.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Webhook delivers messages to one Discord webhook URL. Its HTTP client uses
// standard TLS verification; the relaxed config for the Protect console must
// never leak here.
type Webhook struct {
	http *resty.Client
	url  string
	log  zerolog.Logger
}

func NewWebhook(url string, timeout time.Duration, log zerolog.Logger) *Webhook {
	r := resty.New()
	r.SetTimeout(timeout)
	return &Webhook{http: r, url: url, log: log}
}

// Send posts the message. Without an attachment the body is plain JSON; with
// one it is a multipart form carrying the same JSON under payload_json plus
// the file part. Discord signals success with 200 or 204.
func (w *Webhook) Send(ctx context.Context, msg *Message, attachment *Attachment) error {
	var (
		resp *resty.Response
		err  error
	)

	if attachment == nil {
		resp, err = w.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(msg).
			Post(w.url)
	} else {
		payload, merr := json.Marshal(msg)
		if merr != nil {
			return fmt.Errorf("marshal webhook payload: %w", merr)
		}
		resp, err = w.http.R().
			SetContext(ctx).
			SetMultipartField("payload_json", "", "application/json", bytes.NewReader(payload)).
			SetMultipartField("files[0]", attachment.Filename, attachment.ContentType, bytes.NewReader(attachment.Data)).
			Post(w.url)
	}

	if err != nil {
		return fmt.Errorf("discord delivery: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("discord delivery: unexpected status %d: %s", resp.StatusCode(), resp.String())
	}

	w.log.Debug().Int("status", resp.StatusCode()).Bool("attachment", attachment != nil).Msg("webhook delivered")
	return nil
}
