package events

import (
	"log/slog"

	"github.com/goccy/go-json"
)

// eventEnvelope is used for the first parsing pass to find the event type.
type eventEnvelope struct {
	Type EventType `json:"type"`
}

var constructors = map[EventType]func() Event{
	EventSessionStart:     func() Event { return &SessionStartEvent{} },
	EventSessionEnd:       func() Event { return &SessionEndEvent{} },
	EventSelectionChanged: func() Event { return &SelectionChangedEvent{} },
	EventNavigation:       func() Event { return &NavigationEvent{} },
	EventMeshBatch:        func() Event { return &MeshBatchEvent{} },
	EventMeshFailed:       func() Event { return &MeshFailedEvent{} },
	EventTitlesResolved:   func() Event { return &TitlesResolvedEvent{} },
	EventElectrodesLoaded: func() Event { return &ElectrodesLoadedEvent{} },
	EventError:            func() Event { return &ErrorEvent{} },
	EventParseError:       func() Event { return &ParseErrorEvent{} },
}

// ParseEvent parses a JSON line into a typed Event. Unknown event types
// return nil with no error.
func ParseEvent(line []byte) (Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, err
	}

	newEvent, ok := constructors[envelope.Type]
	if !ok {
		slog.Debug("unknown event type", "type", envelope.Type)
		return nil, nil
	}
	ev := newEvent()
	if err := json.Unmarshal(line, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// GetHash returns the navigation hash an event refers to, if any.
func GetHash(ev Event) string {
	switch e := ev.(type) {
	case *SelectionChangedEvent:
		return e.Hash
	case *NavigationEvent:
		return e.Hash
	case *SessionEndEvent:
		return e.Hash
	default:
		return ""
	}
}
