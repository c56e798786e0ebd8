package policy

// Scope derives, for the given identity, every resource:action pair the
// registry would admit. Actions admitted only through the self allowance carry
// a ":self" suffix. The result is a pure replay of Decide over the full
// registry and therefore cannot drift from per-request enforcement.
func Scope(reg *Registry, id Identity) map[string][]string {
	scope := make(map[string][]string)
	for _, rule := range reg.Rules() {
		decision := Decide(rule, id)
		if !decision.Allowed {
			continue
		}
		action := rule.Action
		if decision.Self {
			action += ":self"
		}
		scope[rule.Resource] = append(scope[rule.Resource], action)
	}
	return scope
}
