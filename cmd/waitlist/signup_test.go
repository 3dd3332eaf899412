package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waitlist-gateway/waitlist/analytics"
	"waitlist-gateway/waitlist/form"
)

func TestRunSignup_PrintsToasts(t *testing.T) {
	st, err := buildStack(context.Background(), baseConfig(fakeWebhook(t).URL), zerolog.Nop())
	require.NoError(t, err)
	defer st.close()
	api := httptest.NewServer(st.handler)
	defer api.Close()

	var out, logs bytes.Buffer
	got := runSignup(context.Background(), signupParams{
		apiURL:  api.URL,
		consent: analytics.ConsentAccepted,
		email:   "Person@Example.com",
		agree:   true,
		out:     &out,
		log:     zerolog.New(&logs),
	})

	assert.Equal(t, form.OutcomeSuccess, got)
	assert.Equal(t, "[ok] Check your email!: ok\n", out.String())
	assert.Contains(t, logs.String(), analytics.EventSignupCompleted)
	assert.Contains(t, logs.String(), "example.com")
	assert.NotContains(t, logs.String(), "person@")
}

func TestRunSignup_ValidationFailsLocally(t *testing.T) {
	var out, logs bytes.Buffer
	got := runSignup(context.Background(), signupParams{
		apiURL:  "http://127.0.0.1:1",
		consent: analytics.ConsentRejected,
		email:   "not-an-email",
		agree:   true,
		out:     &out,
		log:     zerolog.New(&logs),
	})

	assert.Equal(t, form.OutcomeInvalid, got)
	assert.Equal(t, "[erro] Validation Error: Please enter a valid email address\n", out.String())
	assert.Empty(t, logs.String())
}

func TestRunSignup_ConnectionError(t *testing.T) {
	var out bytes.Buffer
	got := runSignup(context.Background(), signupParams{
		apiURL: "http://127.0.0.1:1",
		email:  "a@example.com",
		agree:  true,
		out:    &out,
		log:    zerolog.Nop(),
	})

	assert.Equal(t, form.OutcomeNetworkError, got)
	assert.True(t, strings.HasPrefix(out.String(), "[erro] Connection Error"))
}

func TestPromptEmail(t *testing.T) {
	var out bytes.Buffer
	email, err := promptEmail(strings.NewReader("a@example.com\r\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)
	assert.Equal(t, "Email: ", out.String())

	email, err = promptEmail(strings.NewReader("no-newline@example.com"), &out)
	require.NoError(t, err)
	assert.Equal(t, "no-newline@example.com", email)

	_, err = promptEmail(strings.NewReader(""), &out)
	assert.Error(t, err)
}
