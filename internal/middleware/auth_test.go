package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveWithToken(handler http.Handler, token string) int {
	req := httptest.NewRequest("GET", "/api/transactions/get", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w.Code
}

// Feature: pos-backoffice, Protected endpoints reject missing tokens
func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			path := "/api/" + pathSuffix
			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PATCH", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: pos-backoffice, Expired tokens are rejected
func TestProperty_ExpiredTokensAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("expired tokens are rejected with 401", prop.ForAll(
		func(userID string, role string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())
			token := signToken(t, jwt.MapClaims{
				"user_id": userID,
				"role":    role,
				"kind":    "staff",
				"exp":     time.Now().Add(-1 * time.Hour).Unix(),
			})

			return serveWithToken(handler, token) == http.StatusUnauthorized
		},
		gen.Identifier(),
		gen.OneConstOf("user", "admin"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: pos-backoffice, Valid tokens allow processing
func TestProperty_ValidTokensAllowProcessing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid tokens put the account into the request context", prop.ForAll(
		func(userID string, role string, kind string) bool {
			token := signToken(t, jwt.MapClaims{
				"user_id": userID,
				"role":    role,
				"kind":    kind,
				"exp":     time.Now().Add(1 * time.Hour).Unix(),
			})

			handlerCalled := false
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true

				ctxUserID, ok1 := GetUserID(r.Context())
				ctxRole, ok2 := GetUserRole(r.Context())
				ctxKind, ok3 := GetUserKind(r.Context())
				if !ok1 || !ok2 || !ok3 || ctxUserID != userID || ctxRole != role || ctxKind != kind {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))

			return serveWithToken(handler, token) == http.StatusOK && handlerCalled
		},
		gen.Identifier(),
		gen.OneConstOf("user", "admin", "customer"),
		gen.OneConstOf("staff", "customer"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestTokensOfAnotherKindAreForbidden(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop(), "staff")(okHandler())

	customer := signToken(t, jwt.MapClaims{
		"user_id": "c-1", "role": "customer", "kind": "customer",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if code := serveWithToken(handler, customer); code != http.StatusForbidden {
		t.Errorf("customer token on staff route: expected 403, got %d", code)
	}

	staff := signToken(t, jwt.MapClaims{
		"user_id": "s-1", "role": "user", "kind": "staff",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if code := serveWithToken(handler, staff); code != http.StatusOK {
		t.Errorf("staff token on staff route: expected 200, got %d", code)
	}
}

func TestTokensSignedWithAnotherSecretAreRejected(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "s-1", "role": "admin", "kind": "staff",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("another-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if code := serveWithToken(handler, forged); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop())(RequireAdmin(zap.NewNop())(okHandler()))

	for role, want := range map[string]int{"admin": http.StatusOK, "user": http.StatusForbidden, "customer": http.StatusForbidden} {
		token := signToken(t, jwt.MapClaims{
			"user_id": "s-1", "role": role, "kind": "staff",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		if code := serveWithToken(handler, token); code != want {
			t.Errorf("role %s: expected %d, got %d", role, want, code)
		}
	}
}

// Feature: pos-backoffice, Malformed tokens are rejected
func TestProperty_InvalidTokenFormatRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("invalid token formats are rejected", prop.ForAll(
		func(invalidToken string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())
			return serveWithToken(handler, invalidToken) == http.StatusUnauthorized
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Test missing Bearer prefix
func TestProperty_MissingBearerPrefixRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("tokens without Bearer prefix are rejected", prop.ForAll(
		func(token string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			req := httptest.NewRequest("GET", "/api/transactions/get", nil)
			req.Header.Set("Authorization", token)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
