package event

import (
	"encoding/json"
	"fmt"

	"github.com/flowline/flowline/pkg/model"
)

// DecodeFunc turns a serialized payload back into its concrete event.
type DecodeFunc func(data []byte) (model.Event, error)

// Registry maps stable event-type tags to decode functions. It is built once
// at startup and passed by handle to whatever needs lookups; there is no
// package-level catalog.
type Registry struct {
	decoders map[string]DecodeFunc
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]DecodeFunc)}
}

// Register associates an event type with its decoder. Registering the same
// type twice is a wiring bug and panics during startup.
func (r *Registry) Register(eventType string, decode DecodeFunc) {
	if eventType == "" {
		panic("event: empty event type")
	}
	if decode == nil {
		panic(fmt.Sprintf("event: nil decoder for %q", eventType))
	}
	if _, ok := r.decoders[eventType]; ok {
		panic(fmt.Sprintf("event: type %q is already registered", eventType))
	}
	r.decoders[eventType] = decode
}

// Decode resolves the decoder for eventType and applies it. An unknown type
// or malformed payload is a terminal failure for the message carrying it.
func (r *Registry) Decode(eventType string, data []byte) (model.Event, error) {
	decode, ok := r.decoders[eventType]
	if !ok {
		return nil, fmt.Errorf("event type %q is not registered", eventType)
	}
	evt, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return evt, nil
}

// Known reports whether eventType has a registered decoder.
func (r *Registry) Known(eventType string) bool {
	_, ok := r.decoders[eventType]
	return ok
}

func decodeJSON[T model.Event](data []byte) (model.Event, error) {
	var evt T
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return evt, nil
}

// NewWorkflowRegistry builds the registry for the workflow aggregate family.
func NewWorkflowRegistry() *Registry {
	r := NewRegistry()
	r.Register(model.EventTypeWorkflowCreated, decodeJSON[model.WorkflowCreated])
	r.Register(model.EventTypeWorkflowUpdated, decodeJSON[model.WorkflowUpdated])
	r.Register(model.EventTypeWorkflowDeleted, decodeJSON[model.WorkflowDeletedEvent])
	return r
}

// NewUserRegistry builds the registry for the user aggregate family.
func NewUserRegistry() *Registry {
	r := NewRegistry()
	r.Register(model.EventTypeUserCreated, decodeJSON[model.UserCreated])
	r.Register(model.EventTypeUserUpdated, decodeJSON[model.UserUpdated])
	r.Register(model.EventTypeUserDeleted, decodeJSON[model.UserDeletedEvent])
	return r
}
