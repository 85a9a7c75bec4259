// Package services controls the system daemons whose configuration this
// module generates.
package services

import (
	"context"
)

// ServiceStatus represents the current state of a service.
type ServiceStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	Enabled bool   `json:"enabled"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Controller starts, stops and inspects system services by name.
type Controller interface {
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Status(ctx context.Context, name string) (ServiceStatus, error)
}

// Service defines the lifecycle of a long-running in-process component.
type Service interface {
	// Name returns the unique name of the service.
	Name() string

	// Start starts the service.
	Start(ctx context.Context) error

	// Stop stops the service.
	Stop(ctx context.Context) error

	// Status returns the current status of the service.
	Status() ServiceStatus
}

// Action is a service-control verb accepted from callers.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
)

// Apply dispatches action to the matching Controller method.
func Apply(ctx context.Context, c Controller, name string, action Action) error {
	switch action {
	case ActionStart:
		return c.Start(ctx, name)
	case ActionStop:
		return c.Stop(ctx, name)
	case ActionRestart:
		return c.Restart(ctx, name)
	default:
		return ErrUnknownAction(string(action))
	}
}
