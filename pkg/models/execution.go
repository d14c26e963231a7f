package models

// DispatchDepthMax bounds automation-to-automation chains. A dispatch_event
// or run_automation action deeper than this fails instead of recursing.
const DispatchDepthMax = 6

// ExecutionContext carries per-run state through the engine and into action
// handlers.
type ExecutionContext struct {
	AutomationID string
	ProjectID    string
	Source       TriggerSource
	Actor        string
	Payload      EventPayload
	DryRun       bool

	// Origin is the automation that started the current dispatch chain,
	// Depth how many hops the chain has taken. Both guard against loops.
	Origin string
	Depth  int
}
