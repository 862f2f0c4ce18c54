package discord

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btholt/discord-unifi/internal/event"
)

func motionEvent() *event.Event {
	return &event.Event{
		Type:        "motion",
		DeviceLabel: "Device: 74ACB99F4E24 | Trigger: motion",
		Timestamp:   time.UnixMilli(1722526793954),
		Conditions:  "motion (is)",
	}
}

func TestFormatMotion(t *testing.T) {
	msg := Format(motionEvent())

	assert.Equal(t, "🚨 **Motion Detected**", msg.Content)
	require.Len(t, msg.Embeds, 1)

	embed := msg.Embeds[0]
	assert.Equal(t, "Motion Detected", embed.Title)
	assert.Equal(t, 0xED4245, embed.Color)
	assert.Equal(t, "2024-08-01T15:39:53Z", embed.Timestamp)

	require.Len(t, embed.Fields, 3)
	assert.Equal(t, Field{Name: "Event Type", Value: "motion", Inline: true}, embed.Fields[0])
	assert.Equal(t, Field{Name: "Device", Value: "Device: 74ACB99F4E24 | Trigger: motion"}, embed.Fields[1])
	assert.Equal(t, Field{Name: "Conditions", Value: "motion (is)"}, embed.Fields[2])
}

func TestFormatUnmappedTypeFallsBack(t *testing.T) {
	msg := Format(&event.Event{Type: "cat", Timestamp: time.Unix(0, 0)})

	assert.Equal(t, "🔔 **Event Detected**", msg.Content)
	assert.Equal(t, "Event Detected", msg.Embeds[0].Title)
	assert.Equal(t, 0x9B59B6, msg.Embeds[0].Color)
}

func TestFormatFieldOrderAndPresence(t *testing.T) {
	msg := Format(&event.Event{
		Type:       "face_known",
		PersonName: "Alice",
		EventID:    "abc123",
		Timestamp:  time.Unix(0, 0),
	})

	var names []string
	for _, f := range msg.Embeds[0].Fields {
		names = append(names, f.Name)
	}
	// Device and Conditions are absent and must be skipped, order preserved.
	assert.Equal(t, []string{"Event Type", "Person", "Event ID"}, names)
}

func TestFormatIdempotent(t *testing.T) {
	a := Format(motionEvent())
	b := Format(motionEvent())
	assert.Equal(t, a, b)
}

func TestFormatTruncatesLongValues(t *testing.T) {
	e := motionEvent()
	e.Conditions = strings.Repeat("x", 5000)
	e.Description = strings.Repeat("y", 5000)

	msg := Format(e)
	assert.Len(t, []rune(msg.Embeds[0].Description), 1024)
	for _, f := range msg.Embeds[0].Fields {
		assert.LessOrEqual(t, len([]rune(f.Value)), 1024)
	}
}

func TestAllMappedTypes(t *testing.T) {
	cases := map[string]string{
		"motion":       "🚨 **Motion Detected**",
		"alert":        "⚠️ **Alert Triggered**",
		"person":       "👤 **Person Detected**",
		"vehicle":      "🚗 **Vehicle Detected**",
		"package":      "📦 **Package Detected**",
		"face_known":   "👤 **Known Face Detected**",
		"face_unknown": "👤 **Unknown Face Detected**",
	}
	for typ, content := range cases {
		msg := Format(&event.Event{Type: typ, Timestamp: time.Unix(0, 0)})
		assert.Equal(t, content, msg.Content, typ)
	}
}
