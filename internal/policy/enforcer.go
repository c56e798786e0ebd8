package policy

import (
	"log/slog"
	"net/http"

	"github.com/adevav/adevav-api/internal/platform/httpx"
	"github.com/adevav/adevav-api/internal/shared"
)

// Decision is the outcome of evaluating a rule against an identity.
type Decision struct {
	Allowed bool
	// Self marks that the only admitting branch was the self allowance. The
	// handler must verify ownership against the resource instance.
	Self bool
}

// Decide evaluates a declared rule against the caller. Each branch
// short-circuits, and the order is load-bearing:
//
//  1. no restriction declared, or a wildcard marker, admits everyone;
//  2. an allow-list hit admits the caller;
//  3. a deny-list that was declared but does not name the caller admits them,
//     unless the rule is self-scoped;
//  4. the self allowance admits any caller the deny-list does not name, flagged
//     for the handler's ownership check;
//  5. everything else is denied.
//
// Anonymous callers are members of no role set; routes that must not serve them
// declare Auth on their Spec and are cut off before Decide runs.
func Decide(rule Rule, id Identity) Decision {
	if rule.Unrestricted() || rule.AllowAny {
		return Decision{Allowed: true}
	}
	if rule.Allow.Contains(id) {
		return Decision{Allowed: true}
	}
	if len(rule.Deny) > 0 && !rule.Deny.Contains(id) && !rule.AllowSelf {
		return Decision{Allowed: true}
	}
	if rule.AllowSelf && !rule.Deny.Contains(id) {
		return Decision{Allowed: true, Self: true}
	}
	return Decision{}
}

// DecisionMetrics receives counters for denied requests.
type DecisionMetrics interface {
	PolicyDenied(resource, action string)
}

// DenyHook is invoked after a denial has been written, for audit trails.
type DenyHook func(r *http.Request, resource, action string, id Identity)

// Guard is the route policy gate. Protect both registers the declared rule and
// returns the middleware enforcing it, so the registry is complete once the
// router is mounted.
type Guard struct {
	registry *Registry
	logger   *slog.Logger
	metrics  DecisionMetrics
	onDeny   DenyHook
}

// NewGuard constructs a Guard around the given registry. Metrics and the deny
// hook are optional.
func NewGuard(registry *Registry, logger *slog.Logger, metrics DecisionMetrics, onDeny DenyHook) *Guard {
	return &Guard{registry: registry, logger: logger, metrics: metrics, onDeny: onDeny}
}

// Registry exposes the guarded registry for derived views.
func (g *Guard) Registry() *Registry {
	return g.registry
}

// Spec declares the policy of a single route. Resource and Action may be left
// empty for routes that only require authentication.
type Spec struct {
	Resource string
	Action   string
	Auth     bool
	Allow    []string
	Deny     []string
}

// Protect registers the spec's rule and returns the enforcement middleware.
// Route declarations are startup-time constants, so a malformed spec panics
// rather than returning an error every mount site would have to thread.
func (g *Guard) Protect(spec Spec) func(http.Handler) http.Handler {
	hasRule := spec.Resource != "" && spec.Action != ""
	if hasRule {
		if err := g.registry.Register(spec.Resource, spec.Action, spec.Allow, spec.Deny); err != nil {
			panic(err)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())

			// Missing credentials on an auth-required route deny as 403, not
			// 401; the response must not reveal whether a policy exists.
			if spec.Auth && id.Anonymous() {
				g.deny(w, r, spec, id)
				return
			}
			if !hasRule {
				next.ServeHTTP(w, r)
				return
			}
			rule, ok := g.registry.Lookup(spec.Resource, spec.Action)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			decision := Decide(rule, id)
			if !decision.Allowed {
				g.deny(w, r, spec, id)
				return
			}
			if decision.Self {
				id.Self = true
				r = r.WithContext(ContextWithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request, spec Spec, id Identity) {
	if g.logger != nil {
		g.logger.Debug("policy denied",
			slog.String("resource", spec.Resource),
			slog.String("action", spec.Action),
			slog.String("path", r.URL.Path))
	}
	if g.metrics != nil {
		g.metrics.PolicyDenied(spec.Resource, spec.Action)
	}
	if g.onDeny != nil {
		g.onDeny(r, spec.Resource, spec.Action, id)
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", shared.ForbiddenMessage)
}
