package policy

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// RoleSet is a set of roles.
type RoleSet map[Role]struct{}

// Contains reports membership. Anonymous callers are members of no set.
func (s RoleSet) Contains(id Identity) bool {
	if id.Anonymous() {
		return false
	}
	_, ok := s[id.Role]
	return ok
}

// Rule is the declared policy for one (resource, action) pair. Allow entries
// that were wildcard markers (*, all, any) collapse into AllowAny; the "self"
// entry collapses into AllowSelf.
type Rule struct {
	Resource  string
	Action    string
	Allow     RoleSet
	AllowSelf bool
	AllowAny  bool
	Deny      RoleSet
}

// Unrestricted reports whether the rule declares no restriction at all.
func (r Rule) Unrestricted() bool {
	return len(r.Allow) == 0 && len(r.Deny) == 0 && !r.AllowSelf && !r.AllowAny
}

// Registry holds every declared route policy, keyed by (resource, action).
// It is populated while routes are mounted, before the server accepts traffic,
// and is read-only afterwards; the mutex only serializes registration.
type Registry struct {
	mu    sync.Mutex
	rules map[string]Rule
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register normalizes and stores a rule. Allow entries may be role names,
// "self", or one of the wildcard markers; deny entries must be role names.
// Registering the same (resource, action) again overwrites the earlier rule.
func (reg *Registry) Register(resource, action string, allow, deny []string) error {
	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	if resource == "" || action == "" {
		return fmt.Errorf("policy: resource and action required")
	}

	rule := Rule{
		Resource: resource,
		Action:   action,
		Allow:    make(RoleSet),
		Deny:     make(RoleSet),
	}

	for _, entry := range allow {
		switch normalized := strings.ToLower(strings.TrimSpace(entry)); normalized {
		case "":
			continue
		case "self":
			rule.AllowSelf = true
		case "*", "all", "any":
			rule.AllowAny = true
		default:
			role, ok := RoleFromString(entry)
			if !ok {
				return fmt.Errorf("policy: unknown role %q in allow list for %s:%s", entry, resource, action)
			}
			rule.Allow[role] = struct{}{}
		}
	}

	for _, entry := range deny {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		role, ok := RoleFromString(entry)
		if !ok {
			return fmt.Errorf("policy: unknown role %q in deny list for %s:%s", entry, resource, action)
		}
		rule.Deny[role] = struct{}{}
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.rules[ruleKey(resource, action)] = rule
	return nil
}

// Lookup returns the rule for (resource, action), if one was registered.
func (reg *Registry) Lookup(resource, action string) (Rule, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rule, ok := reg.rules[ruleKey(resource, action)]
	return rule, ok
}

// Rules returns a snapshot of every registered rule, ordered by resource then
// action so that derived views are deterministic.
func (reg *Registry) Rules() []Rule {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rules := make([]Rule, 0, len(reg.rules))
	for _, rule := range reg.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Resource != rules[j].Resource {
			return rules[i].Resource < rules[j].Resource
		}
		return rules[i].Action < rules[j].Action
	})
	return rules
}

func ruleKey(resource, action string) string {
	return resource + ":" + action
}
