package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// typeKeywords is the extraction priority for nested-alarm payloads. When a
// condition source mentions several keywords, the earlier one wins.
var typeKeywords = []string{
	"motion",
	"person",
	"vehicle",
	"package",
	"alert",
	"face_known",
	"face_unknown",
}

// Normalize converts any supported payload shape into an Event. It is total:
// whatever the input looks like, the result has at least Type set (worst
// case "unknown") and a usable timestamp.
func Normalize(raw map[string]any) *Event {
	e := &Event{Type: TypeUnknown}

	if alarm, ok := raw["alarm"].(map[string]any); ok {
		normalizeAlarm(e, alarm)
	} else {
		normalizeFlat(e, raw)
	}

	e.Timestamp = normalizeTimestamp(raw["timestamp"])
	return e
}

func normalizeFlat(e *Event, raw map[string]any) {
	if t := stringField(raw, "eventType"); t != "" {
		e.Type = strings.ToLower(t)
	}
	e.DeviceLabel = stringField(raw, "cameraName")
	if e.DeviceLabel == "" {
		e.DeviceLabel = stringField(raw, "location")
	}
	e.Description = stringField(raw, "description")
}

func normalizeAlarm(e *Event, alarm map[string]any) {
	conditions, _ := alarm["conditions"].([]any)
	triggers, _ := alarm["triggers"].([]any)

	e.Type = extractType(conditions)
	e.Conditions = summarizeConditions(conditions)
	e.DeviceLabel = extractDeviceLabel(triggers)
	e.PersonName, e.EventID = extractPerson(triggers)
	if e.EventID == "" {
		e.EventID = extractEventID(triggers)
	}
	e.Description = stringField(alarm, "name")
}

// extractType scans condition sources for the priority keywords
// (case-insensitive substring match). With no keyword hit, the first
// condition's source is used verbatim, lower-cased.
func extractType(conditions []any) string {
	if len(conditions) == 0 {
		return TypeUnknown
	}

	var sources []string
	for _, c := range conditions {
		cond, ok := c.(map[string]any)
		if !ok {
			continue
		}
		inner, ok := cond["condition"].(map[string]any)
		if !ok {
			continue
		}
		if src := stringField(inner, "source"); src != "" {
			sources = append(sources, strings.ToLower(src))
		}
	}

	for _, keyword := range typeKeywords {
		for _, src := range sources {
			if strings.Contains(src, keyword) {
				return keyword
			}
		}
	}

	if len(sources) > 0 {
		return sources[0]
	}
	return TypeUnknown
}

// extractDeviceLabel joins per-trigger fragments: "Device: <x>" for a device
// field, "Trigger: <y>" for a key field, separated by " | ".
func extractDeviceLabel(triggers []any) string {
	var parts []string
	for _, t := range triggers {
		trigger, ok := t.(map[string]any)
		if !ok {
			continue
		}
		if device := stringField(trigger, "device"); device != "" {
			parts = append(parts, "Device: "+device)
		}
		if key := stringField(trigger, "key"); key != "" {
			parts = append(parts, "Trigger: "+key)
		}
	}
	return strings.Join(parts, " | ")
}

// extractPerson finds the first face-recognition trigger. The identity comes
// from group.name when present, else the trigger value; the trigger's event
// id rides along for thumbnail lookup.
func extractPerson(triggers []any) (name, eventID string) {
	for _, t := range triggers {
		trigger, ok := t.(map[string]any)
		if !ok {
			continue
		}
		key := stringField(trigger, "key")
		if key != "face_known" && key != "face_unknown" {
			continue
		}
		if group, ok := trigger["group"].(map[string]any); ok {
			name = stringField(group, "name")
		}
		if name == "" {
			name = stringField(trigger, "value")
		}
		return name, stringField(trigger, "eventId")
	}
	return "", ""
}

// extractEventID returns the first trigger, in document order, carrying a
// non-empty eventId.
func extractEventID(triggers []any) string {
	for _, t := range triggers {
		trigger, ok := t.(map[string]any)
		if !ok {
			continue
		}
		if id := stringField(trigger, "eventId"); id != "" {
			return id
		}
	}
	return ""
}

// summarizeConditions renders each condition as "<source> (<type>)", both
// defaulting to "unknown", comma-separated.
func summarizeConditions(conditions []any) string {
	var parts []string
	for _, c := range conditions {
		cond, ok := c.(map[string]any)
		if !ok {
			continue
		}
		inner, _ := cond["condition"].(map[string]any)
		source := stringField(inner, "source")
		if source == "" {
			source = TypeUnknown
		}
		condType := stringField(inner, "type")
		if condType == "" {
			condType = TypeUnknown
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", source, condType))
	}
	return strings.Join(parts, ", ")
}

// normalizeTimestamp handles the three forms upstream uses: epoch millis as
// a JSON number, a textual timestamp, or nothing (now).
func normalizeTimestamp(v any) time.Time {
	switch ts := v.(type) {
	case float64:
		return time.UnixMilli(int64(ts))
	case int64:
		return time.UnixMilli(ts)
	case json.Number:
		if ms, err := ts.Int64(); err == nil {
			return time.UnixMilli(ms)
		}
	case string:
		if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
			return time.UnixMilli(ms)
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t
		}
	}
	return time.Now()
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
