// Package security enforces per-triple access control and keeps an audit log
// of every allow/deny decision.
package security

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Wildcard matches any value in an access rule component.
const Wildcard = "*"

// AccessRule restricts who may mutate triples in its scope. A rule matches a
// triple when each non-wildcard component equals the corresponding triple
// component; a matching triple may only be mutated by one of the listed
// roles.
type AccessRule struct {
	Subject   string   `json:"subject"`
	Predicate string   `json:"predicate"`
	Object    string   `json:"object"`
	Roles     []string `json:"roles"`
}

func (r AccessRule) matches(subject, predicate, object string) bool {
	return matchComponent(r.Subject, subject) &&
		matchComponent(r.Predicate, predicate) &&
		matchComponent(r.Object, object)
}

func matchComponent(pattern, value string) bool {
	return pattern == Wildcard || pattern == "" || pattern == value
}

func (r AccessRule) allows(role string) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// AuditEntry is an immutable record of one access decision.
type AuditEntry struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Subject   string    `json:"subject"`
	Predicate string    `json:"predicate"`
	Object    string    `json:"object"`
	Role      string    `json:"role"`
	Allowed   bool      `json:"allowed"`
	Timestamp time.Time `json:"timestamp"`
}

// Guard evaluates access rules and records audit entries. The policy is
// permissive by default: a request is denied only when at least one rule
// matches the triple and none of the matching rules list the role. The
// configured admin role bypasses rule evaluation entirely.
//
// Safe for concurrent use.
type Guard struct {
	mu        sync.Mutex
	rules     []AccessRule
	audit     []AuditEntry
	auditCap  int
	adminRole string
}

// NewGuard creates a Guard. auditCap bounds the audit log; once full, the
// oldest entries are dropped. A cap of 0 or less defaults to 1000.
func NewGuard(adminRole string, auditCap int) *Guard {
	if auditCap <= 0 {
		auditCap = 1000
	}
	return &Guard{adminRole: adminRole, auditCap: auditCap}
}

// AddRule registers an access rule. Rules are evaluated in registration
// order; the first matching rule decides.
func (g *Guard) AddRule(rule AccessRule) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rules = append(g.rules, rule)
}

// Rules returns a copy of the registered rules.
func (g *Guard) Rules() []AccessRule {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]AccessRule, len(g.rules))
	copy(out, g.rules)
	return out
}

// Authorize decides whether role may perform operation on the triple and
// records the decision in the audit log.
func (g *Guard) Authorize(operation, subject, predicate, object, role string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	allowed := g.decide(subject, predicate, object, role)
	g.record(AuditEntry{
		ID:        uuid.NewString(),
		Operation: operation,
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
		Role:      role,
		Allowed:   allowed,
		Timestamp: time.Now().UTC(),
	})
	return allowed
}

func (g *Guard) decide(subject, predicate, object, role string) bool {
	if g.adminRole != "" && role == g.adminRole {
		return true
	}
	for _, rule := range g.rules {
		if rule.matches(subject, predicate, object) {
			return rule.allows(role)
		}
	}
	return true
}

func (g *Guard) record(entry AuditEntry) {
	g.audit = append(g.audit, entry)
	if len(g.audit) > g.auditCap {
		g.audit = g.audit[len(g.audit)-g.auditCap:]
	}
}

// Audit returns the most recent entries, newest first. A limit of 0 or less
// returns everything retained.
func (g *Guard) Audit(limit int) []AuditEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]AuditEntry, 0, len(g.audit))
	for i := len(g.audit) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, g.audit[i])
	}
	return out
}

// Reset drops all rules and audit entries.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rules = nil
	g.audit = nil
}
