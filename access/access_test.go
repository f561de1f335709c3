package access

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/G4brym/openclaw-cloudflare/observe"
)

// roundTripFunc lets a test serve the JWKS endpoint for the real
// cloudflareaccess.com URL without touching the network.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// newTestAccessVerifier builds a Verifier whose HTTP client serves the
// given key set for the team's certs URL.
func newTestAccessVerifier(t *testing.T, audience string, jwks ...map[string]any) *Verifier {
	t.Helper()

	body, err := json.Marshal(map[string]any{"keys": jwks})
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}

	client := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.String() != CertsURL(testTeamDomain) {
				t.Errorf("fetch URL = %q, want %q", r.URL.String(), CertsURL(testTeamDomain))
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       io.NopCloser(bytes.NewReader(body)),
			}, nil
		}),
	}

	v, err := New(Config{
		TeamDomain: testTeamDomain,
		Audience:   audience,
		HTTPClient: client,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return v
}

func TestNew_RequiresTeamDomain(t *testing.T) {
	if _, err := New(Config{}); err != ErrMissingTeamDomain {
		t.Errorf("New() error = %v, want ErrMissingTeamDomain", err)
	}
}

func TestVerifier_Verify(t *testing.T) {
	key, _ := rsa.GenerateKey(rand.Reader, 2048)
	v := newTestAccessVerifier(t, "", rsaJWK(t, "k1", &key.PublicKey))

	t.Run("valid token", func(t *testing.T) {
		id := v.Verify(context.Background(), signRS256(t, key, "k1", validClaims()))
		if id == nil {
			t.Fatal("Verify() = nil, want identity")
		}
		if id.Email != "alice@example.com" {
			t.Errorf("Email = %q, want alice@example.com", id.Email)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		if id := v.Verify(context.Background(), ""); id != nil {
			t.Errorf("Verify() = %+v, want nil", id)
		}
	})

	t.Run("garbage never panics", func(t *testing.T) {
		inputs := []string{
			"x", "..", "a.b.c", strings.Repeat(".", 100),
			"\x00\x01\x02", strings.Repeat("A", 10000),
		}
		for _, in := range inputs {
			if id := v.Verify(context.Background(), in); id != nil {
				t.Errorf("Verify(%q) = %+v, want nil", in, id)
			}
		}
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		if id := v.Verify(context.Background(), signRS256(t, key, "k1", claims)); id != nil {
			t.Errorf("Verify() = %+v, want nil", id)
		}
	})
}

func TestVerifier_AudienceMismatchEndToEnd(t *testing.T) {
	key, _ := rsa.GenerateKey(rand.Reader, 2048)
	v := newTestAccessVerifier(t, "aud-x", rsaJWK(t, "k1", &key.PublicKey))

	claims := validClaims()
	claims["aud"] = "aud-y"
	if id := v.Verify(context.Background(), signRS256(t, key, "k1", claims)); id != nil {
		t.Errorf("Verify() = %+v, want nil on audience mismatch", id)
	}
}

func TestVerifier_LogsRejectionCause(t *testing.T) {
	key, _ := rsa.GenerateKey(rand.Reader, 2048)

	body, _ := json.Marshal(map[string]any{"keys": []map[string]any{rsaJWK(t, "k1", &key.PublicKey)}})
	client := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewReader(body)),
			}, nil
		}),
	}

	var logs bytes.Buffer
	v, err := New(Config{
		TeamDomain: testTeamDomain,
		HTTPClient: client,
		Logger:     observe.NewLoggerWithWriter("debug", &logs),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if id := v.Verify(context.Background(), "not.a.token"); id != nil {
		t.Fatalf("Verify() = %+v, want nil", id)
	}
	if !strings.Contains(logs.String(), "token rejected") {
		t.Errorf("expected a rejection log record, got %q", logs.String())
	}
	if !strings.Contains(logs.String(), `"component":"access"`) {
		t.Errorf("log record should carry the component, got %q", logs.String())
	}
}
