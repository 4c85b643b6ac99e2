package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSMS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Accounts/AC123/Messages.json", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "+15550001111", r.PostForm.Get("To"))
		assert.Equal(t, "+15559990000", r.PostForm.Get("From"))
		assert.Equal(t, "hello", r.PostForm.Get("Body"))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM42","status":"queued","to":"+15550001111","error_code":null}`))
	}))
	defer srv.Close()

	c := NewClient("AC123", "secret", "+15559990000", zerolog.Nop()).WithBaseURL(srv.URL)
	sid, err := c.SendSMS(context.Background(), "+15550001111", "hello")

	require.NoError(t, err)
	assert.Equal(t, "SM42", sid)
}

func TestSendSMSAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number.","status":400}`))
	}))
	defer srv.Close()

	c := NewClient("AC123", "secret", "+15559990000", zerolog.Nop()).WithBaseURL(srv.URL)
	_, err := c.SendSMS(context.Background(), "bad", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
}

func TestSendSMSNotConfigured(t *testing.T) {
	c := NewClient("", "", "", zerolog.Nop())
	_, err := c.SendSMS(context.Background(), "+15550001111", "hello")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
