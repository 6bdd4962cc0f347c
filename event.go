package servicestatus

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// EventKind identifies a lifecycle event.
type EventKind uint8

const (
	// EventOnline signals that a service became usable.
	EventOnline EventKind = iota
	// EventOffline signals that a service became unusable.
	EventOffline
	// EventStarting signals that a service is being started.
	EventStarting
	// EventCrash signals that a service crashed.
	EventCrash
)

func (k EventKind) String() string {
	switch k {
	case EventOnline:
		return "online"
	case EventOffline:
		return "offline"
	case EventStarting:
		return "starting"
	case EventCrash:
		return "crash"
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Event is a lifecycle event delivered to the state machine of a service.
type Event struct {
	Kind EventKind
	// Origin identifies who initiated a starting event. Informational only.
	Origin string
}

// Online returns an online event.
func Online() Event { return Event{Kind: EventOnline} }

// Offline returns an offline event.
func Offline() Event { return Event{Kind: EventOffline} }

// Starting returns a starting event initiated by origin.
func Starting(origin string) Event { return Event{Kind: EventStarting, Origin: origin} }

// Crash returns a crash signal.
func Crash() Event { return Event{Kind: EventCrash} }

func (e Event) String() string {
	if e.Kind == EventStarting && e.Origin != "" {
		return e.Kind.String() + ":" + e.Origin
	}
	return e.Kind.String()
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e Event) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("kind", e.Kind.String())
	if e.Origin != "" {
		enc.AddString("origin", e.Origin)
	}
	return nil
}

// ParseEvent parses the string form of an event: "online", "offline", "crash",
// "starting" or "starting:<origin>".
func ParseEvent(s string) (Event, error) {
	kind, origin := s, ""
	if i := strings.IndexByte(s, ':'); i >= 0 {
		kind, origin = s[:i], s[i+1:]
	}
	switch kind {
	case "online":
		if origin == "" {
			return Online(), nil
		}
	case "offline":
		if origin == "" {
			return Offline(), nil
		}
	case "crash":
		if origin == "" {
			return Crash(), nil
		}
	case "starting":
		return Starting(origin), nil
	}
	return Event{}, fmt.Errorf("unknown event %q", s)
}
