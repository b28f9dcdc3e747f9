package mock

import (
	"context"
	"errors"
	"sync"

	"speech-translate-service/internal/service/stt"
)

// ErrMicrophoneDenied is returned by RequestMicrophone when Deny is set.
var ErrMicrophoneDenied = errors.New("microphone access denied")

// Permissions is an in-memory permission store implementing
// stt.PermissionQuerier, stt.PermissionStatus and stt.MediaAccess.
type Permissions struct {
	mu        sync.Mutex
	state     stt.Permission
	deny      bool
	requests  int
	listeners []func(stt.Permission)
}

// NewPermissions creates a permission store in the given state.
func NewPermissions(state stt.Permission) *Permissions {
	return &Permissions{state: state}
}

// QueryMicrophone returns the store itself as the permission status.
func (p *Permissions) QueryMicrophone(ctx context.Context) (stt.PermissionStatus, error) {
	return p, nil
}

// State returns the current permission.
func (p *Permissions) State() stt.Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// OnChange subscribes to permission changes.
func (p *Permissions) OnChange(fn func(stt.Permission)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Set changes the permission and notifies subscribers.
func (p *Permissions) Set(state stt.Permission) {
	p.mu.Lock()
	p.state = state
	listeners := append([]func(stt.Permission){}, p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// SetDeny makes subsequent microphone requests fail.
func (p *Permissions) SetDeny(deny bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deny = deny
}

// RequestMicrophone grants access unless Deny is set.
func (p *Permissions) RequestMicrophone(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++
	if p.deny {
		p.state = stt.PermissionDenied
		return ErrMicrophoneDenied
	}
	p.state = stt.PermissionGranted
	return nil
}

// Requests reports how many microphone requests were made.
func (p *Permissions) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}
