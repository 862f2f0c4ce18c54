// Package bridge orchestrates one event's trip from raw payload to
// delivered Discord message.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/btholt/discord-unifi/internal/discord"
	"github.com/btholt/discord-unifi/internal/event"
	"github.com/btholt/discord-unifi/internal/protect"
	"github.com/btholt/discord-unifi/internal/session"
)

// PlatformClient is the slice of the Protect client the dispatcher needs.
type PlatformClient interface {
	EnsureAuthenticated(ctx context.Context) (*session.Session, error)
	GetEvent(ctx context.Context, sess *session.Session, eventID string) (*protect.EventMetadata, error)
	GetThumbnail(ctx context.Context, sess *session.Session, eventID string, animated bool) (*protect.Thumbnail, error)
}

// Deliverer sends the final message.
type Deliverer interface {
	Send(ctx context.Context, msg *discord.Message, attachment *discord.Attachment) error
}

// Dispatcher runs the pipeline: ensure session, normalize, best-effort
// thumbnail, format, deliver. Each dispatch is independent; there is no
// shared state beyond the session record the platform client manages.
type Dispatcher struct {
	platform PlatformClient // nil when the controller is not configured
	webhook  Deliverer
	animated bool
	log      zerolog.Logger
}

func NewDispatcher(platform PlatformClient, webhook Deliverer, animated bool, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{platform: platform, webhook: webhook, animated: animated, log: log}
}

// Dispatch relays one raw webhook payload. Failure modes, in order: an
// authentication failure aborts everything; normalization cannot fail; a
// thumbnail failure degrades to a message without attachment; a delivery
// failure is the returned outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, raw map[string]any) error {
	var sess *session.Session
	if d.platform != nil {
		var err error
		sess, err = d.platform.EnsureAuthenticated(ctx)
		if err != nil {
			return fmt.Errorf("ensure session: %w", err)
		}
	}

	e := event.Normalize(raw)
	d.log.Info().
		Str("event_type", e.Type).
		Str("event_id", e.EventID).
		Str("device", e.DeviceLabel).
		Msg("event normalized")

	attachment := d.fetchThumbnail(ctx, sess, e.EventID)
	return d.deliver(ctx, e, attachment)
}

// DispatchEventID is the one-shot path: look the event up on the
// controller, synthesize a payload from its metadata, and relay it.
func (d *Dispatcher) DispatchEventID(ctx context.Context, eventID string) error {
	if d.platform == nil {
		return errors.New("protect controller is not configured")
	}

	sess, err := d.platform.EnsureAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}

	meta, err := d.platform.GetEvent(ctx, sess, eventID)
	if err != nil {
		return fmt.Errorf("fetch event: %w", err)
	}

	e := event.Normalize(map[string]any{
		"eventType":  meta.Type,
		"cameraName": meta.Camera,
		"timestamp":  float64(meta.Start),
	})
	e.EventID = eventID

	attachment := d.fetchThumbnail(ctx, sess, eventID)
	return d.deliver(ctx, e, attachment)
}

// fetchThumbnail never fails the dispatch. Every error path logs and
// returns nil, which deliver treats as "no attachment". A nil session is
// fine: in API-key mode the client authenticates the request itself.
func (d *Dispatcher) fetchThumbnail(ctx context.Context, sess *session.Session, eventID string) *discord.Attachment {
	if d.platform == nil || eventID == "" {
		return nil
	}

	thumb, err := d.platform.GetThumbnail(ctx, sess, eventID, d.animated)
	if err != nil {
		d.log.Warn().Err(err).Str("event_id", eventID).Msg("thumbnail unavailable, sending without attachment")
		return nil
	}

	filename := "thumbnail.jpg"
	if d.animated {
		filename = "thumbnail.gif"
	}
	return &discord.Attachment{
		Filename:    filename,
		ContentType: thumb.ContentType,
		Data:        thumb.Data,
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e *event.Event, attachment *discord.Attachment) error {
	msg := discord.Format(e)
	if err := d.webhook.Send(ctx, msg, attachment); err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	d.log.Info().Str("event_type", e.Type).Bool("attachment", attachment != nil).Msg("event relayed")
	return nil
}
