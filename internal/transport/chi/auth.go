package chi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	errNoCredentials = errors.New("missing authorization header")
	errNotBearer     = errors.New("authorization header must use Bearer scheme")
	errUnknownKey    = errors.New("invalid api key")
)

type keyring [][]byte

func newKeyring(keys []string) keyring {
	var k keyring
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			k = append(k, []byte(key))
		}
	}
	return k
}

// verify checks an Authorization header value. Every key is compared so
// timing does not reveal which one matched.
func (k keyring) verify(header string) error {
	if header == "" {
		return errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return errNotBearer
	}
	match := 0
	for _, key := range k {
		match |= subtle.ConstantTimeCompare(key, []byte(token))
	}
	if match != 1 {
		return errUnknownKey
	}
	return nil
}

// RequireAPIKey rejects requests whose bearer token is not one of keys.
// With no non-blank keys it lets everything through.
func RequireAPIKey(keys []string) func(http.Handler) http.Handler {
	ring := newKeyring(keys)
	return func(next http.Handler) http.Handler {
		if len(ring) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ring.verify(r.Header.Get("Authorization")); err != nil {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
