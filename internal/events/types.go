// Package events defines the session event taxonomy of the atlas browser and
// the pub/sub router, log sink and view-state sink that consume it.
package events

import "time"

// EventType identifies the category and nature of an event.
type EventType string

const (
	// Session events
	EventSessionStart EventType = "session.start"
	EventSessionEnd   EventType = "session.end"

	// Selection and navigation events
	EventSelectionChanged EventType = "selection.changed"
	EventNavigation       EventType = "navigation"

	// Mesh events
	EventMeshBatch  EventType = "mesh.batch"
	EventMeshFailed EventType = "mesh.failed"

	// Metadata events
	EventTitlesResolved   EventType = "titles.resolved"
	EventElectrodesLoaded EventType = "electrodes.loaded"

	// Error events
	EventError      EventType = "error"
	EventParseError EventType = "error.parse"
)

// Source constants identify the origin of events.
const (
	SourceApp    = "app"
	SourceLoader = "loader"
	SourceTUI    = "tui"
)

// Event is the base interface for all events in the system.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      time.Time `json:"timestamp"`
	Src       string    `json:"source"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// Source returns the origin of the event.
func (e BaseEvent) Source() string {
	return e.Src
}

// SessionStartEvent is emitted once the startup documents are loaded.
type SessionStartEvent struct {
	BaseEvent
	DataSource  string `json:"data_source"`
	Structures  int    `json:"structures"`
	Dandisets   int    `json:"dandisets"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// SessionEndEvent is emitted when the browser exits.
type SessionEndEvent struct {
	BaseEvent
	Reason string `json:"reason,omitempty"`
	Hash   string `json:"hash,omitempty"`
}

// SelectionChangedEvent is emitted after every accepted selection
// operation.
type SelectionChangedEvent struct {
	BaseEvent
	Operation string `json:"operation"`
	From      string `json:"from"`
	To        string `json:"to"`
	Version   uint64 `json:"version"`
	Hash      string `json:"hash"`
}

// NavigationEvent is emitted when a navigation hash is applied.
type NavigationEvent struct {
	BaseEvent
	Hash  string `json:"hash"`
	Error string `json:"error,omitempty"`
}

// MeshBatchEvent is emitted when one chunk of mesh fetches completes.
type MeshBatchEvent struct {
	BaseEvent
	Requested  int   `json:"requested"`
	Loaded     int   `json:"loaded"`
	Failed     int   `json:"failed"`
	Done       int   `json:"done"`
	Total      int   `json:"total"`
	DurationMs int64 `json:"duration_ms"`
}

// MeshFailedEvent is emitted for each mesh whose fetch failed. The failure
// is negative-cached for the session.
type MeshFailedEvent struct {
	BaseEvent
	StructureID int    `json:"structure_id"`
	Error       string `json:"error"`
}

// TitlesResolvedEvent is emitted when a title lookup batch finishes.
type TitlesResolvedEvent struct {
	BaseEvent
	Requested int `json:"requested"`
	Resolved  int `json:"resolved"`
}

// ElectrodesLoadedEvent is emitted when electrode coordinates for a
// dandiset become available.
type ElectrodesLoadedEvent struct {
	BaseEvent
	DandisetID string `json:"dandiset_id"`
	Points     int    `json:"points"`
	Shown      int    `json:"shown"`
}

// Severity constants for error events.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
	SeverityFatal   = "fatal"
)

// ErrorEvent is emitted for any error condition.
type ErrorEvent struct {
	BaseEvent
	Message  string            `json:"message"`
	Severity string            `json:"severity"`
	Context  map[string]string `json:"context,omitempty"`
}

// ParseErrorEvent is emitted when an event log line cannot be decoded.
type ParseErrorEvent struct {
	BaseEvent
	Line  string `json:"line"`
	Error string `json:"error"`
}

// NewEvent creates a BaseEvent with the given type and source.
func NewEvent(eventType EventType, source string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
		Src:       source,
	}
}

// NewAppEvent creates a BaseEvent with the engine as the source.
func NewAppEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceApp)
}

// NewLoaderEvent creates a BaseEvent with the fetch layer as the source.
func NewLoaderEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceLoader)
}
