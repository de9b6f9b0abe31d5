package identity

import (
	"errors"
	"sync"
)

// ErrNoIdentities is returned when a pool is built without any identity.
var ErrNoIdentities = errors.New("no publishing identities configured")

// Identity is a set of credentials authorizing posts as one user.
type Identity struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
}

// Pool hands out identities in round-robin order.
type Pool struct {
	mu         sync.Mutex
	identities []Identity
	current    int
	rotations  int
}

// NewPool creates a pool over a copy of the given identities.
func NewPool(identities []Identity) (*Pool, error) {
	if len(identities) == 0 {
		return nil, ErrNoIdentities
	}

	ids := make([]Identity, len(identities))
	copy(ids, identities)

	return &Pool{identities: ids}, nil
}

// Current returns the identity the pointer is on.
func (p *Pool) Current() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.identities[p.current]
}

// Next advances the pointer and returns the new current identity.
func (p *Pool) Next() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = (p.current + 1) % len(p.identities)
	p.rotations++

	return p.identities[p.current]
}

// Position returns the index of the current identity.
func (p *Pool) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.current
}

// Rotations returns how many times Next has been called.
func (p *Pool) Rotations() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.rotations
}

// Len returns the number of identities.
func (p *Pool) Len() int {
	return len(p.identities)
}

// Usernames lists the usernames in rotation order.
func (p *Pool) Usernames() []string {
	names := make([]string, len(p.identities))
	for i, id := range p.identities {
		names[i] = id.Username
	}
	return names
}
