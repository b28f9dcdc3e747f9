package audio

import (
	"context"
	"errors"
	"sync"
	"time"

	"speech-translate-service/internal/service/stt"
)

var (
	// ErrPermissionRejected is returned when the client refuses microphone access.
	ErrPermissionRejected = errors.New("microphone access rejected by client")
	// ErrPermissionTimeout is returned when the client does not answer a request.
	ErrPermissionTimeout = errors.New("microphone permission request timed out")
)

// PermissionBridge relays microphone permission between the capture machine
// and a remote client. It implements stt.PermissionQuerier,
// stt.PermissionStatus and stt.MediaAccess.
type PermissionBridge struct {
	ask     func() error
	timeout time.Duration

	mu        sync.Mutex
	state     stt.Permission
	listeners []func(stt.Permission)
	pending   chan stt.Permission
}

// NewPermissionBridge creates a bridge starting at the permission the client
// reported. ask sends a permission request to the client; a zero timeout
// waits until the request context ends.
func NewPermissionBridge(initial stt.Permission, ask func() error, timeout time.Duration) *PermissionBridge {
	return &PermissionBridge{
		ask:     ask,
		timeout: timeout,
		state:   initial,
	}
}

func (b *PermissionBridge) QueryMicrophone(ctx context.Context) (stt.PermissionStatus, error) {
	return b, nil
}

func (b *PermissionBridge) State() stt.Permission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *PermissionBridge) OnChange(fn func(stt.Permission)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// RequestMicrophone asks the client for access and waits for its answer.
func (b *PermissionBridge) RequestMicrophone(ctx context.Context) error {
	reply := make(chan stt.Permission, 1)
	b.mu.Lock()
	b.pending = reply
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		if b.pending == reply {
			b.pending = nil
		}
		b.mu.Unlock()
	}()

	if err := b.ask(); err != nil {
		return err
	}

	var expired <-chan time.Time
	if b.timeout > 0 {
		t := time.NewTimer(b.timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case p := <-reply:
		if p != stt.PermissionGranted {
			return ErrPermissionRejected
		}
		return nil
	case <-expired:
		return ErrPermissionTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Answer records a permission reported by the client. It answers a pending
// request if there is one; otherwise it is an external change and listeners
// are notified.
func (b *PermissionBridge) Answer(p stt.Permission) {
	b.mu.Lock()
	prev := b.state
	b.state = p
	if b.pending != nil {
		b.pending <- p
		b.pending = nil
		b.mu.Unlock()
		return
	}
	listeners := append([]func(stt.Permission){}, b.listeners...)
	b.mu.Unlock()

	if prev == p {
		return
	}
	for _, fn := range listeners {
		fn(p)
	}
}
