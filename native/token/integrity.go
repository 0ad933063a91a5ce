package token

import "fmt"

// Severity ranks integrity findings.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Issue is a single integrity finding.
type Issue struct {
	Severity Severity
	Detail   string
}

// VerifyIntegrity audits the ledger invariants and returns every violation
// found. An empty slice means the book balances.
func (l *Ledger) VerifyIntegrity() []Issue {
	l.mu.Lock()
	defer l.mu.Unlock()

	var issues []Issue

	var sum uint64
	overflowed := false
	for _, balance := range l.balances {
		next := sum + balance
		if next < sum {
			overflowed = true
			break
		}
		sum = next
	}
	if overflowed {
		issues = append(issues, Issue{
			Severity: SeverityCritical,
			Detail:   "balance sum overflows uint64",
		})
	} else if sum != l.totalSupply {
		issues = append(issues, Issue{
			Severity: SeverityCritical,
			Detail:   fmt.Sprintf("balance sum %d does not match total supply %d", sum, l.totalSupply),
		})
	}

	if l.totalSupply > l.maxSupply {
		issues = append(issues, Issue{
			Severity: SeverityCritical,
			Detail:   fmt.Sprintf("total supply %d exceeds cap %d", l.totalSupply, l.maxSupply),
		})
	}

	for account, locked := range l.lockedBalances {
		if locked > l.balances[account] {
			issues = append(issues, Issue{
				Severity: SeverityCritical,
				Detail:   fmt.Sprintf("locked balance %d exceeds balance %d for %s", locked, l.balances[account], account),
			})
		}
	}

	// A guard left in progress outside an operation means a release was
	// dropped somewhere.
	if l.guard.InProgress() {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Detail:   "guard reports an operation in progress",
		})
	}

	if len(l.eventLog) > maxAuditEvents {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Detail:   fmt.Sprintf("audit log holds %d entries, cap is %d", len(l.eventLog), maxAuditEvents),
		})
	}

	return issues
}
