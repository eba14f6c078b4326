package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func guarded(keys []string, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat/", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	RequireAPIKey(keys)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)
	return rr
}

func TestRequireAPIKey_DisabledWithoutKeys(t *testing.T) {
	for _, keys := range [][]string{nil, {"", "  "}} {
		if rr := guarded(keys, ""); rr.Code != http.StatusNoContent {
			t.Errorf("keys %q: status %d", keys, rr.Code)
		}
	}
}

func TestRequireAPIKey_RejectsWithJSON(t *testing.T) {
	rr := guarded([]string{"secret"}, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != CodeUnauthorized || resp.Message != errNoCredentials.Error() {
		t.Errorf("response = %+v", resp)
	}
}

func TestRequireAPIKey_AcceptsAnyConfiguredKey(t *testing.T) {
	for _, header := range []string{"Bearer key1", "Bearer key2", "bearer key2"} {
		if rr := guarded([]string{"key1", "key2"}, header); rr.Code != http.StatusNoContent {
			t.Errorf("%q: status %d", header, rr.Code)
		}
	}
}

func TestKeyringVerify(t *testing.T) {
	ring := newKeyring([]string{"secret"})
	tests := []struct {
		header string
		want   error
	}{
		{"", errNoCredentials},
		{"Basic dXNlcjpwYXNz", errNotBearer},
		{"Bearer", errNotBearer},
		{"Bearer ", errUnknownKey},
		{"Bearer wrong", errUnknownKey},
		{"Bearer secret", nil},
	}
	for _, tt := range tests {
		if err := ring.verify(tt.header); !errors.Is(err, tt.want) {
			t.Errorf("verify(%q) = %v, want %v", tt.header, err, tt.want)
		}
	}
}
