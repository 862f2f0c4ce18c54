// Package discord formats normalized events as webhook embeds and delivers
// them.
package discord

import (
	"time"

	"github.com/btholt/discord-unifi/internal/event"
)

// Discord rejects embed field values beyond 1024 characters.
const fieldValueLimit = 1024

// Message is the webhook payload. Marshals directly to the Discord webhook
// JSON body.
type Message struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds"`
}

type Embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// style is the presentation tuple for one event type.
type style struct {
	emoji string
	title string
	color int
}

var styles = map[string]style{
	"motion":       {"🚨", "Motion Detected", 0xED4245},  // red
	"alert":        {"⚠️", "Alert Triggered", 0xFEE75C}, // yellow
	"person":       {"👤", "Person Detected", 0x3498DB},  // blue
	"vehicle":      {"🚗", "Vehicle Detected", 0x1ABC9C}, // cyan
	"package":      {"📦", "Package Detected", 0x57F287}, // green
	"face_known":   {"👤", "Known Face Detected", 0x3498DB},
	"face_unknown": {"👤", "Unknown Face Detected", 0xFEE75C},
}

var fallbackStyle = style{"🔔", "Event Detected", 0x9B59B6} // purple

// Format maps a normalized event to its outbound message. Pure and
// deterministic: the same event always yields the same message.
func Format(e *event.Event) *Message {
	s, ok := styles[e.Type]
	if !ok {
		s = fallbackStyle
	}

	embed := Embed{
		Title:       s.title,
		Description: truncate(e.Description),
		Color:       s.color,
		Timestamp:   e.Timestamp.UTC().Format(time.RFC3339),
	}

	// Field order is fixed; absent values are skipped, never rendered empty.
	addField := func(name, value string, inline bool) {
		if value == "" {
			return
		}
		embed.Fields = append(embed.Fields, Field{Name: name, Value: truncate(value), Inline: inline})
	}
	addField("Event Type", e.Type, true)
	addField("Person", e.PersonName, true)
	addField("Device", e.DeviceLabel, false)
	addField("Event ID", e.EventID, false)
	addField("Conditions", e.Conditions, false)

	return &Message{
		Content: s.emoji + " **" + s.title + "**",
		Embeds:  []Embed{embed},
	}
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= fieldValueLimit {
		return s
	}
	return string(runes[:fieldValueLimit])
}
