package e2e

import (
	"errors"

	"github.com/downfa11-org/go-kvs/pkg/types"
)

// Actions represents test actions (When phase)
type Actions struct {
	ctx *TestContext
}

func (a *Actions) StartServer() *Actions {
	a.ctx.t.Logf("Starting %s server on %s...", a.ctx.engineName, a.ctx.dataDir)
	if err := a.ctx.startServer(); err != nil {
		a.ctx.t.Fatalf("Failed to start server: %v", err)
	}
	return a
}

func (a *Actions) RestartServer() *Actions {
	a.ctx.t.Log("Restarting server...")
	a.ctx.stopServer()
	return a.StartServer()
}

// StartServerExpectingError tries to start the server and records the failure.
func (a *Actions) StartServerExpectingError() *Actions {
	a.ctx.stopServer()
	if err := a.ctx.startServer(); err != nil {
		a.ctx.lastError = err
		return a
	}
	a.ctx.t.Fatal("server started although a failure was expected")
	return a
}

// SetKeys writes every key once per configured round.
func (a *Actions) SetKeys() *Actions {
	rounds := a.ctx.rounds
	for r := 1; r <= rounds; r++ {
		a.ctx.rounds = r
		for i := 0; i < a.ctx.numKeys; i++ {
			if err := a.ctx.getClient().Set(a.ctx.key(i), a.ctx.value(i)); err != nil {
				a.ctx.lastError = err
				return a
			}
			delete(a.ctx.removed, a.ctx.key(i))
		}
	}
	a.ctx.t.Logf("Set %d keys over %d rounds", a.ctx.numKeys, rounds)
	return a
}

// RemoveKeys removes the keys with index below n.
func (a *Actions) RemoveKeys(n int) *Actions {
	for i := 0; i < n; i++ {
		err := a.ctx.getClient().Remove(a.ctx.key(i))
		if err != nil && !errors.Is(err, types.ErrKeyNotFound) {
			a.ctx.lastError = err
			return a
		}
		a.ctx.removed[a.ctx.key(i)] = true
	}
	return a
}

// RemoveMissingKey removes a key that was never written.
func (a *Actions) RemoveMissingKey() *Actions {
	a.ctx.lastError = a.ctx.getClient().Remove("never-written")
	return a
}

func (a *Actions) Then() *Consequences {
	return &Consequences{ctx: a.ctx}
}
