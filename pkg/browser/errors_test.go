package browser

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"target closed", errors.New("Target page, context or browser has been closed"), ErrDisconnected},
		{"browser disconnected", errors.New("Browser has disconnected"), ErrDisconnected},
		{"timeout", errors.New("Timeout 30000ms exceeded."), ErrTimeout},
		{"dns failure", errors.New("net::ERR_NAME_NOT_RESOLVED at https://nope.invalid"), ErrNavigationFailed},
		{"element missing", errors.New("failed to find element matching selector"), ErrElementNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err, "original error must stay reachable")
			assert.Equal(t, tt.err.Error(), got.Error())
		})
	}
}

func TestClassify_Passthrough(t *testing.T) {
	assert.NoError(t, classify(nil))

	plain := errors.New("something odd")
	assert.Same(t, plain, classify(plain))

	known := fmt.Errorf("wrapped: %w", ErrTimeout)
	assert.Same(t, known, classify(known))
}

func TestSelectorError(t *testing.T) {
	err := NotFound("#missing")

	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Contains(t, err.Error(), "#missing")

	var selErr *SelectorError
	assert.ErrorAs(t, err, &selErr)
	assert.Equal(t, "#missing", selErr.Selector)
}

func TestIsDisconnected(t *testing.T) {
	assert.True(t, IsDisconnected(fmt.Errorf("click: %w", ErrDisconnected)))
	assert.True(t, IsDisconnected(classify(errors.New("Target closed"))))
	assert.False(t, IsDisconnected(ErrTimeout))
	assert.False(t, IsDisconnected(nil))
}

func TestExponentialBackoff(t *testing.T) {
	b := NewExponentialBackoff(250*time.Millisecond, 5*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 250 * time.Millisecond},
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, time.Second},
		{5, 4 * time.Second},
		{6, 5 * time.Second},
		{20, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestNoBackoff(t *testing.T) {
	assert.Zero(t, NoBackoff{}.Delay(3))
}
