package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

const TwilioSignatureHeader = "X-Twilio-Signature"

// TwilioSignature rejects webhook calls whose X-Twilio-Signature does not
// match. publicURL is the webhook URL as configured on the Twilio side,
// without the path; the request path and query are appended to it.
func TwilioSignature(authToken, publicURL string, logger zerolog.Logger) func(next http.Handler) http.Handler {
	publicURL = strings.TrimRight(publicURL, "/")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				rejectSignature(w)
				return
			}

			expected := ComputeTwilioSignature(authToken, publicURL+r.URL.RequestURI(), r.PostForm)
			got := r.Header.Get(TwilioSignatureHeader)
			if got == "" || !hmac.Equal([]byte(expected), []byte(got)) {
				logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("invalid twilio signature")
				RecordIntegrationError("twilio_signature")
				rejectSignature(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ComputeTwilioSignature is base64(HMAC-SHA1(authToken, url + sorted key/value pairs)).
func ComputeTwilioSignature(authToken, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func rejectSignature(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"error": "invalid signature"})
}
