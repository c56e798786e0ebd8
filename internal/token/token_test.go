package token

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/shared"
)

func newManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()
	manager, err := NewManager("test-secret", ttl)
	require.NoError(t, err)
	return manager
}

func TestManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("", time.Hour)
	require.Error(t, err)
}

func TestIssueVerifyRoundtrip(t *testing.T) {
	manager := newManager(t, time.Hour)
	subjectID := uuid.New()

	credential, err := manager.Issue(subjectID, policy.Editor)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(credential, "Bearer "))

	id, err := manager.Verify(FromHeader(credential))
	require.NoError(t, err)
	require.Equal(t, subjectID, id.SubjectID)
	require.Equal(t, policy.Editor, id.Role)
	require.False(t, id.Anonymous())
}

func TestVerifyRejectsExpired(t *testing.T) {
	manager := newManager(t, time.Millisecond)
	credential, err := manager.Issue(uuid.New(), policy.Author)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = manager.Verify(FromHeader(credential))
	require.True(t, errors.Is(err, shared.ErrInvalidCredential))
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	manager := newManager(t, time.Hour)
	other := newManager(t, time.Hour)
	other.secret = []byte("different-secret")

	credential, err := other.Issue(uuid.New(), policy.Author)
	require.NoError(t, err)

	_, err = manager.Verify(FromHeader(credential))
	require.True(t, errors.Is(err, shared.ErrInvalidCredential))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	manager := newManager(t, time.Hour)
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := manager.Verify(raw)
		require.True(t, errors.Is(err, shared.ErrInvalidCredential), raw)
	}
}

func TestVerifyRejectsUnassignableRole(t *testing.T) {
	manager := newManager(t, time.Hour)
	credential, err := manager.Issue(uuid.New(), policy.Private)
	require.NoError(t, err)

	_, err = manager.Verify(FromHeader(credential))
	require.True(t, errors.Is(err, shared.ErrInvalidCredential))
}

func TestFromHeader(t *testing.T) {
	require.Equal(t, "abc", FromHeader("Bearer abc"))
	require.Equal(t, "abc", FromHeader("Token abc"))
	require.Equal(t, "", FromHeader("abc"))
	require.Equal(t, "", FromHeader(""))
	require.Equal(t, "", FromHeader("Bearer abc extra"))
}

func TestResolverLenientOnBadCredential(t *testing.T) {
	manager := newManager(t, time.Hour)
	resolver := NewResolver(manager)

	require.True(t, resolver.Resolve("").Anonymous())
	require.True(t, resolver.Resolve("Bearer garbage").Anonymous())

	credential, err := manager.Issue(uuid.New(), policy.Subscriber)
	require.NoError(t, err)
	id := resolver.Resolve(credential)
	require.False(t, id.Anonymous())
	require.Equal(t, policy.Subscriber, id.Role)
}

func TestResolverMiddlewareStoresIdentity(t *testing.T) {
	manager := newManager(t, time.Hour)
	resolver := NewResolver(manager)
	subjectID := uuid.New()

	credential, err := manager.Issue(subjectID, policy.Contributor)
	require.NoError(t, err)

	var seen policy.Identity
	handler := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = policy.IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", credential)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, subjectID, seen.SubjectID)
	require.Equal(t, policy.Contributor, seen.Role)
}
