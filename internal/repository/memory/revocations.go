package memory

import (
	"context"
	"sync"
	"time"
)

// Revocations is an in-process repository.RevocationRepository.
type Revocations struct {
	mu      sync.Mutex
	expires map[string]time.Time
	cutoffs map[string]userCutoff
	clock   func() time.Time
}

type userCutoff struct {
	at      time.Time
	expires time.Time
}

// NewRevocations returns an empty revocation list.
func NewRevocations() *Revocations {
	return &Revocations{
		expires: make(map[string]time.Time),
		cutoffs: make(map[string]userCutoff),
		clock:   time.Now,
	}
}

func (r *Revocations) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock()
	for id, exp := range r.expires {
		if !exp.After(now) {
			delete(r.expires, id)
		}
	}
	r.expires[tokenID] = now.Add(ttl)
	return nil
}

func (r *Revocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.expires[tokenID]
	return ok && exp.After(r.clock()), nil
}

func (r *Revocations) RevokeIssuedBefore(_ context.Context, userID string, cutoff time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cutoffs[userID] = userCutoff{at: cutoff, expires: r.clock().Add(ttl)}
	return nil
}

func (r *Revocations) IssuedCutoff(_ context.Context, userID string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cutoffs[userID]
	if !ok {
		return time.Time{}, nil
	}
	if !c.expires.After(r.clock()) {
		delete(r.cutoffs, userID)
		return time.Time{}, nil
	}
	return c.at, nil
}
