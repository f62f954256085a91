package ir

// ActivityInstanceID identifies a planned activity (a directive) across
// simulation runs. It is assigned by the planner, not by the engine.
type ActivityInstanceID string

// SerializedActivity is an activity type name plus its serialized arguments.
type SerializedActivity struct {
	Type      string   `json:"type"`
	Arguments IRObject `json:"arguments"`
}

func (a SerializedActivity) argumentsOrEmpty() IRObject {
	if a.Arguments == nil {
		return IRObject{}
	}
	return a.Arguments
}

// Directive places a serialized activity at a start offset in a plan.
type Directive struct {
	ID       ActivityInstanceID `json:"id"`
	Start    Duration           `json:"start"`
	Activity SerializedActivity `json:"activity"`
}

// Version constants for the serialized records and engine.
const (
	// IRVersion is the schema version of persisted records.
	IRVersion = "1"

	// EngineVersion is the simulation engine version.
	EngineVersion = "0.1.0"
)
