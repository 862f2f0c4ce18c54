// Package event turns the loosely-typed webhook payloads UniFi Protect
// sends into one canonical shape. Three payload families are handled: flat
// test payloads, nested alarm objects with conditions/triggers, and alarm
// objects whose triggers carry face-recognition identities.
package event

import "time"

// Sentinel type when nothing in the payload identifies the event.
const TypeUnknown = "unknown"

// Event is the canonical, normalized form. Type is always populated; every
// other field is optional and empty when the payload did not carry it.
type Event struct {
	Type        string
	DeviceLabel string // e.g. "Device: 74ACB99F4E24 | Trigger: motion"
	PersonName  string
	EventID     string
	Timestamp   time.Time
	Description string
	Conditions  string // e.g. "motion (is), person (is)"
}
