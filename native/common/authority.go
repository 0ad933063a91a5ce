package common

import "strings"

// Capabilities recognised by the settlement modules. The access-control
// system granting them lives outside this core; modules only consult the
// Authority view.
const (
	// CapabilitySystemPause permits pausing and resuming a settlement engine.
	CapabilitySystemPause = "system.pause"
	// CapabilityPoolCreate permits seeding new liquidity pools.
	CapabilityPoolCreate = "dex.pool.create"
)

// Authority answers capability checks for privileged module operations.
type Authority interface {
	HasCapability(account, capability string) bool
}

// StaticAuthority is an in-memory Authority with explicit grants. It backs
// tests and single-process deployments; production wiring substitutes the
// platform's access-control service.
type StaticAuthority struct {
	grants map[string]map[string]struct{}
}

// NewStaticAuthority returns an empty authority with no grants.
func NewStaticAuthority() *StaticAuthority {
	return &StaticAuthority{grants: make(map[string]map[string]struct{})}
}

// Grant records a capability for the account. Blank inputs are ignored.
func (a *StaticAuthority) Grant(account, capability string) {
	if a == nil {
		return
	}
	account = strings.TrimSpace(account)
	capability = strings.TrimSpace(capability)
	if account == "" || capability == "" {
		return
	}
	caps, ok := a.grants[account]
	if !ok {
		caps = make(map[string]struct{})
		a.grants[account] = caps
	}
	caps[capability] = struct{}{}
}

// Revoke removes a capability from the account.
func (a *StaticAuthority) Revoke(account, capability string) {
	if a == nil {
		return
	}
	if caps, ok := a.grants[account]; ok {
		delete(caps, capability)
	}
}

// HasCapability implements Authority.
func (a *StaticAuthority) HasCapability(account, capability string) bool {
	if a == nil {
		return false
	}
	caps, ok := a.grants[strings.TrimSpace(account)]
	if !ok {
		return false
	}
	_, ok = caps[strings.TrimSpace(capability)]
	return ok
}
