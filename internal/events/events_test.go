package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/devlab/internal/domain"
)

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventRegistrationApproved, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	})
	d.Subscribe(EventRegistrationApproved, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventRegistrationApproved})
	assert.EqualError(t, err, "first failed")
	assert.Equal(t, []string{"first", "second"}, calls)

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventRegistrationRejected}))
}

func TestNATSForwarder(t *testing.T) {
	pub := &fakePublisher{}
	f := NewNATSForwarder(pub, "devlab", zap.NewNop())
	d := NewInMemoryDispatcher()
	f.Attach(d)

	coordinator := domain.Session{UserID: "c-1", Role: domain.RoleCoordinator}
	require.NoError(t, d.Publish(context.Background(), Event{
		ID:             "e-1",
		Type:           EventRegistrationRejected,
		RegistrationID: "r-1",
		Actor:          SessionActor(coordinator),
		Payload:        RegistrationRejectedPayload{Email: "a@x.com", Reason: "incomplete"},
	}))

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "devlab.registration_rejected", pub.subjects[0])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, "r-1", decoded["registration_id"])
	assert.Equal(t, "coordinator", decoded["actor"].(map[string]any)["role"])

	pub.err = errors.New("no route")
	assert.Error(t, d.Publish(context.Background(), Event{Type: EventRegistrationSubmitted}))
}

func TestSessionActorAnonymous(t *testing.T) {
	actor := SessionActor(domain.Session{})
	assert.Nil(t, actor.UserID)
	assert.Nil(t, actor.Role)
}
