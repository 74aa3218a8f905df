package core

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"universe-gateway/core/adapter"
)

func newTestClient(gen Generator, km *KeyStateManager) *GenerativeClient {
	if km == nil {
		km = NewKeyStateManager()
	}
	if gen == nil {
		return NewGenerativeClient(nil, "", km, time.Second, quietLogger())
	}
	return NewGenerativeClient(gen, "test-key", km, time.Second, quietLogger())
}

func TestExecute_Unconfigured(t *testing.T) {
	c := newTestClient(nil, nil)
	assert.False(t, c.Configured())

	out := c.Execute(context.Background(), NewContentRequestBuilder("m", 6).BuildFeedRequest(nil))
	assert.Equal(t, OutcomeUnconfigured, out.Kind)
	assert.ErrorIs(t, out.Err, ErrNotConfigured)
	assert.Nil(t, out.Payload)
}

func TestExecute_Classification(t *testing.T) {
	builder := NewContentRequestBuilder("m", 6)
	feed := builder.BuildFeedRequest([]string{"Sci-Fi"})
	co := builder.BuildCoCreationRequest("dragons")

	tests := []struct {
		name string
		spec RequestSpec
		text string
		err  error
		want OutcomeKind
	}{
		{"feed success", feed, validFeedJSON, nil, OutcomeSuccess},
		{"feed fenced success", feed, "```json\n" + validFeedJSON + "\n```", nil, OutcomeSuccess},
		{"feed with incomplete element is still success", feed, `[{"title":"only"}]`, nil, OutcomeSuccess},
		{"feed object instead of array", feed, `{"title":"x"}`, nil, OutcomeMalformed},
		{"feed not json", feed, `Sure! Here are six items:`, nil, OutcomeMalformed},
		{"empty body", feed, "   ", nil, OutcomeMalformed},
		{"cocreate success", co, `{"title":"t","content":"c","suggestedVisuals":"v"}`, nil, OutcomeSuccess},
		{"cocreate missing field", co, `{"title":"t","content":"c"}`, nil, OutcomeMalformed},
		{"cocreate null field", co, `{"title":"t","content":null,"suggestedVisuals":"v"}`, nil, OutcomeMalformed},
		{"cocreate array", co, `[]`, nil, OutcomeMalformed},
		{"network error", feed, "", errors.New("dial tcp: connection refused"), OutcomeTransportFailure},
		{"upstream 500", co, "", &adapter.UpstreamError{StatusCode: 500, Body: "boom"}, OutcomeTransportFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{text: tt.text, err: tt.err}
			out := newTestClient(gen, nil).Execute(context.Background(), tt.spec)

			assert.Equal(t, tt.want, out.Kind, "err: %v", out.Err)
			assert.Equal(t, 1, gen.Calls(), "exactly one attempt, never retried")
			if tt.want == OutcomeSuccess {
				assert.NoError(t, out.Err)
				assert.NotEmpty(t, out.Payload)
			} else {
				assert.Error(t, out.Err)
				assert.Nil(t, out.Payload)
			}
		})
	}
}

func TestExecute_PassesSpecToGenerator(t *testing.T) {
	gen := &fakeGenerator{text: validFeedJSON}
	spec := NewContentRequestBuilder("gemini-x", 6).BuildFeedRequest([]string{"Jazz"})

	newTestClient(gen, nil).Execute(context.Background(), spec)

	assert.Equal(t, spec.Instruction, gen.lastInstruction)
	assert.Equal(t, "gemini-x", gen.lastModel)
	assert.Equal(t, "array", gen.lastSchema["type"])
}

func TestExecute_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	gen := &fakeGenerator{block: make(chan struct{})}
	defer close(gen.block)

	c := NewGenerativeClient(gen, "k", nil, 30*time.Millisecond, quietLogger())
	start := time.Now()
	out := c.Execute(context.Background(), NewContentRequestBuilder("m", 6).BuildFeedRequest(nil))

	assert.Equal(t, OutcomeTransportFailure, out.Kind)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecute_RateLimitCooldown(t *testing.T) {
	km := NewKeyStateManager()
	gen := &fakeGenerator{err: &adapter.UpstreamError{StatusCode: http.StatusTooManyRequests, RetryAfter: time.Minute}}
	c := newTestClient(gen, km)
	spec := NewContentRequestBuilder("m", 6).BuildFeedRequest(nil)

	first := c.Execute(context.Background(), spec)
	assert.Equal(t, OutcomeTransportFailure, first.Kind)

	second := c.Execute(context.Background(), spec)
	assert.Equal(t, OutcomeCooldown, second.Kind)
	assert.ErrorIs(t, second.Err, ErrCredentialHeld)
	assert.Equal(t, 1, gen.Calls(), "no network I/O during cooldown")

	assert.Equal(t, KeyStatusCooldown, c.CredentialStatus())
	c.ResetCredential()
	assert.Equal(t, KeyStatusAvailable, c.CredentialStatus())
	gen.mu.Lock()
	gen.err = nil
	gen.text = validFeedJSON
	gen.mu.Unlock()
	assert.Equal(t, OutcomeSuccess, c.Execute(context.Background(), spec).Kind)
}

func TestExecute_RejectedCredential(t *testing.T) {
	km := NewKeyStateManager()
	gen := &fakeGenerator{err: &adapter.UpstreamError{StatusCode: http.StatusForbidden}}
	c := newTestClient(gen, km)
	spec := NewContentRequestBuilder("m", 6).BuildCoCreationRequest("x")

	require.Equal(t, OutcomeTransportFailure, c.Execute(context.Background(), spec).Kind)
	assert.Equal(t, KeyStatusDead, km.Status(c.credentialID))
	assert.Equal(t, OutcomeCooldown, c.Execute(context.Background(), spec).Kind)
	assert.Equal(t, 1, gen.Calls())

	c.ResetCredential()
	assert.Equal(t, KeyStatusAvailable, c.CredentialStatus())
	c.Execute(context.Background(), spec)
	assert.Equal(t, 2, gen.Calls(), "reset credential reaches upstream again")
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "malformed", OutcomeMalformed.String())
	assert.Equal(t, "transport_failure", OutcomeTransportFailure.String())
	assert.Equal(t, "unconfigured", OutcomeUnconfigured.String())
	assert.Equal(t, "cooldown", OutcomeCooldown.String())
}

func TestCredentialIDDoesNotLeakKey(t *testing.T) {
	id := credentialID("AIzaSySecretValue")
	assert.Len(t, id, 12)
	assert.NotContains(t, id, "Secret")
	assert.Empty(t, credentialID(""))
}
