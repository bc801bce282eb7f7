package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/authlog"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/jwks"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/keypair"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/keypool"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/keystore"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/register"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/token"
)

type testServer struct {
	router  chi.Router
	keys    *keypool.Service
	authLog *authlog.InMemoryRepository
}

func newTestServer(t *testing.T, seed int, extraOpts ...Option) *testServer {
	t.Helper()

	keys := keypool.NewService(keystore.NewInMemoryRepository(), 1024, true)
	if seed > 0 {
		require.NoError(t, keys.Seed(context.Background(), seed))
	}

	authLog := authlog.NewInMemoryRepository()
	opts := []Option{
		WithKeyService(keys),
		WithIssuer(token.NewIssuer("jwks-server", "")),
		WithRegisterService(register.NewService(register.NewInMemoryRepository(), nil)),
		WithAuthLog(authLog),
	}
	opts = append(opts, extraOpts...)

	r := chi.NewRouter()
	Routes(r, NewHandle(opts...))

	return &testServer{router: r, keys: keys, authLog: authLog}
}

func (ts *testServer) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "192.0.2.1:33000"
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeToken(t *testing.T, raw string) *jwt.Token {
	t.Helper()
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	require.NoError(t, err)
	return tok
}

func jwksKids(t *testing.T, ts *testServer) map[string]bool {
	t.Helper()
	rec := ts.do(t, http.MethodGet, "/.well-known/jwks.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc jwks.JWKS
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

	kids := make(map[string]bool, len(doc.Keys))
	for _, k := range doc.Keys {
		kids[k.Kid] = true
	}
	return kids
}

func TestGetJWKS(t *testing.T) {
	t.Run("PublishesOnlyUnexpiredKeys", func(t *testing.T) {
		ts := newTestServer(t, 6)

		rec := ts.do(t, http.MethodGet, "/.well-known/jwks.json", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

		var doc jwks.JWKS
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

		// Seeding alternates valid and expired members
		assert.Len(t, doc.Keys, 3)
		for _, k := range doc.Keys {
			assert.Equal(t, "RSA", k.Kty)
			assert.Equal(t, "sig", k.Use)
			assert.NotEmpty(t, k.Kid)
			assert.NotEmpty(t, k.N)
			assert.NotEmpty(t, k.E)
		}
	})

	t.Run("EmptyPoolServesEmptyKeysArray", func(t *testing.T) {
		ts := newTestServer(t, 0)

		rec := ts.do(t, http.MethodGet, "/.well-known/jwks.json", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"keys":[]}`, rec.Body.String())
	})

	t.Run("NoPrivateKeyMaterialInDocument", func(t *testing.T) {
		ts := newTestServer(t, 2)

		rec := ts.do(t, http.MethodGet, "/.well-known/jwks.json", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "\"d\"")
		assert.NotContains(t, rec.Body.String(), "PRIVATE KEY")
	})
}

func TestAuth(t *testing.T) {
	t.Run("IssuesTokenSignedWithPublishedKey", func(t *testing.T) {
		ts := newTestServer(t, 4)

		rec := ts.do(t, http.MethodPost, "/auth", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

		raw := strings.TrimSpace(rec.Body.String())
		require.Equal(t, 3, len(strings.Split(raw, ".")))

		tok := decodeToken(t, raw)
		kid, ok := tok.Header["kid"].(string)
		require.True(t, ok)

		kids := jwksKids(t, ts)
		assert.True(t, kids[kid], "kid of a valid-key token must appear in the JWKS")

		// Default subject is the signing key's kid
		claims := tok.Claims.(jwt.MapClaims)
		assert.Equal(t, kid, claims["sub"])
	})

	t.Run("ExpiredRequestsUseUnpublishedKey", func(t *testing.T) {
		ts := newTestServer(t, 4)

		rec := ts.do(t, http.MethodPost, "/auth?expired=true", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		tok := decodeToken(t, strings.TrimSpace(rec.Body.String()))
		kid, ok := tok.Header["kid"].(string)
		require.True(t, ok)

		kids := jwksKids(t, ts)
		assert.False(t, kids[kid], "kid of an expired-key token must not appear in the JWKS")

		exp, err := tok.Claims.GetExpirationTime()
		require.NoError(t, err)
		assert.Negative(t, exp.Unix()-timeNowUnix(t), "expired-key token must carry a past exp")
	})

	t.Run("InvalidExpiredParameter", func(t *testing.T) {
		ts := newTestServer(t, 2)

		rec := ts.do(t, http.MethodPost, "/auth?expired=bogus", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_INPUT", resp.Error)
	})

	t.Run("NoMatchingKeyIsBadRequest", func(t *testing.T) {
		ts := newTestServer(t, 0)
		// Pool holds only valid keys, so expired selection cannot be satisfied
		_, err := ts.keys.CreateKey(context.Background(), 0, 3600)
		require.NoError(t, err)

		rec := ts.do(t, http.MethodPost, "/auth?expired=true", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "NO_MATCHING_KEY", resp.Error)
	})

	t.Run("ValidCredentialsSelectSubject", func(t *testing.T) {
		ts := newTestServer(t, 2)

		body, _ := json.Marshal(RegisterRequest{Username: "alice", Email: "alice@example.com"})
		rec := ts.do(t, http.MethodPost, "/register", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var reg RegisterResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))

		creds, _ := json.Marshal(AuthRequest{Username: "alice", Password: reg.Password})
		rec = ts.do(t, http.MethodPost, "/auth", creds)
		require.Equal(t, http.StatusOK, rec.Code)

		tok := decodeToken(t, strings.TrimSpace(rec.Body.String()))
		claims := tok.Claims.(jwt.MapClaims)
		assert.Equal(t, "alice", claims["sub"])
	})

	t.Run("InvalidCredentialsFallBackToKidSubject", func(t *testing.T) {
		ts := newTestServer(t, 2)

		creds, _ := json.Marshal(AuthRequest{Username: "nobody", Password: "wrong"})
		rec := ts.do(t, http.MethodPost, "/auth", creds)
		require.Equal(t, http.StatusOK, rec.Code)

		tok := decodeToken(t, strings.TrimSpace(rec.Body.String()))
		claims := tok.Claims.(jwt.MapClaims)
		assert.Equal(t, tok.Header["kid"], claims["sub"])
	})

	t.Run("StrictAuthRejectsInvalidCredentials", func(t *testing.T) {
		ts := newTestServer(t, 2, WithStrictAuth(true))

		creds, _ := json.Marshal(AuthRequest{Username: "nobody", Password: "wrong"})
		rec := ts.do(t, http.MethodPost, "/auth", creds)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RecordsAuthLogEntry", func(t *testing.T) {
		ts := newTestServer(t, 2)

		rec := ts.do(t, http.MethodPost, "/auth?expired=true", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		entries, err := ts.authLog.List(context.Background())
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "192.0.2.1", entries[0].RequestIP)
		assert.True(t, entries[0].Expired)
		assert.NotEmpty(t, entries[0].Kid)
	})
}

func TestCreateKeyPair(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		ts := newTestServer(t, 0)

		rec := ts.do(t, http.MethodGet, "/create-key-pair", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp KeyPairResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Kid)
		assert.Equal(t, "RS256", resp.Alg)
		assert.Contains(t, resp.PublicKeyPEM, "BEGIN PUBLIC KEY")
		assert.NotContains(t, rec.Body.String(), "PRIVATE KEY")
		assert.Greater(t, resp.Expiry, timeNowUnix(t))

		// The new key is served by the JWKS endpoint
		kids := jwksKids(t, ts)
		assert.True(t, kids[resp.Kid])
	})

	t.Run("NegativeExpiryDurationCreatesExpiredKey", func(t *testing.T) {
		ts := newTestServer(t, 0)

		rec := ts.do(t, http.MethodGet, "/create-key-pair?expiry_duration=-100", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp KeyPairResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Less(t, resp.Expiry, timeNowUnix(t))

		kids := jwksKids(t, ts)
		assert.False(t, kids[resp.Kid])
	})

	t.Run("InvalidKeySize", func(t *testing.T) {
		ts := newTestServer(t, 0)

		rec := ts.do(t, http.MethodGet, "/create-key-pair?key_size=tiny", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("InvalidExpiryDuration", func(t *testing.T) {
		ts := newTestServer(t, 0)

		rec := ts.do(t, http.MethodGet, "/create-key-pair?expiry_duration=soon", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRegister(t *testing.T) {
	t.Run("ReturnsGeneratedPasswordOnce", func(t *testing.T) {
		ts := newTestServer(t, 0)

		body, _ := json.Marshal(RegisterRequest{Username: "bob", Email: "bob@example.com"})
		rec := ts.do(t, http.MethodPost, "/register", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp RegisterResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "bob", resp.Username)
		assert.NotEmpty(t, resp.ID)
		assert.NotEmpty(t, resp.Password)
	})

	t.Run("DuplicateUsernameConflicts", func(t *testing.T) {
		ts := newTestServer(t, 0)

		body, _ := json.Marshal(RegisterRequest{Username: "carol"})
		rec := ts.do(t, http.MethodPost, "/register", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = ts.do(t, http.MethodPost, "/register", body)
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("EmptyUsername", func(t *testing.T) {
		ts := newTestServer(t, 0)

		body, _ := json.Marshal(RegisterRequest{Username: "  "})
		rec := ts.do(t, http.MethodPost, "/register", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		ts := newTestServer(t, 0)

		rec := ts.do(t, http.MethodPost, "/register", []byte("{not json"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFallbackRoutes(t *testing.T) {
	ts := newTestServer(t, 0)

	t.Run("NotFound", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/no-such-route", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "404: NOT FOUND", rec.Body.String())
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/auth", nil)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "405: METHOD NOT ALLOWED", rec.Body.String())
	})

	t.Run("IndexAndHealth", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodGet, "/healthz", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	})
}

func timeNowUnix(t *testing.T) int64 {
	t.Helper()
	now, err := keypair.NowUnix()
	require.NoError(t, err)
	return now
}
