package wallet

import (
	"strings"
	"sync"
)

// Locker serializes transaction flows per wallet address. Two flows for the
// same wallet contend on one mutex; flows for different wallets never block
// each other. The lock must be held from nonce fetch through broadcast.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocker() *Locker {
	return &Locker{locks: map[string]*sync.Mutex{}}
}

// Lock acquires the wallet's mutex and returns its unlock function.
func (l *Locker) Lock(address string) func() {
	key := strings.ToLower(address)

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
