package plugin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/docstore/backend"
	"github.com/c360/docstore/document"
)

// recordSleeps swaps the plugin's sleep for one that records waits and
// returns immediately, so backoff tests run in microseconds.
func recordSleeps(p *Plugin) *[]time.Duration {
	var sleeps []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return &sleeps
}

func TestTransientFailureBackoffLadder(t *testing.T) {
	opener := &fakeOpener{factory: func() *fakeHandle {
		return &fakeHandle{writeErr: backend.NewStoreError(backend.StatusUnavailable, "store overloaded")}
	}}
	p := quietPlugin(t, opener)
	sleeps := recordSleeps(p)

	_, err := p.BulkOperations(context.Background(), []document.Document{document.New("order")}, nil, nil)
	require.Error(t, err)

	assert.Equal(t, []time.Duration{
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1600 * time.Millisecond,
	}, *sleeps, "waits double from 25ms until the ceiling")
	assert.Equal(t, 8, opener.opens, "rejects on the eighth attempt")

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.True(t, strings.HasPrefix(err.Error(), "Retry Failed. Max Wait: 2000."),
		"got %q", err.Error())
	assert.Contains(t, err.Error(), "store overloaded", "original message is preserved")
	assert.Equal(t, backend.StatusUnavailable, backend.StatusOf(err),
		"the original error stays reachable through the wrapper")

	for _, h := range opener.handles {
		assert.True(t, h.closed, "each failed attempt closes its handle")
	}
}

func TestTerminalFailureRejectsImmediately(t *testing.T) {
	storeErr := backend.NewStoreError(backend.StatusNotFound, "no such document")
	opener := &fakeOpener{factory: func() *fakeHandle {
		return &fakeHandle{writeErr: storeErr}
	}}
	p := quietPlugin(t, opener)
	sleeps := recordSleeps(p)

	_, err := p.BulkOperations(context.Background(), nil, nil, []document.Document{document.New("order")})
	require.Error(t, err)

	assert.Equal(t, 1, opener.opens, "no second attempt")
	assert.Empty(t, *sleeps, "no timer scheduled")
	assert.Equal(t, storeErr, err, "the original error is propagated unmodified")

	var exhausted *RetryExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestPlainErrorsAreTerminal(t *testing.T) {
	opener := &fakeOpener{factory: func() *fakeHandle {
		return &fakeHandle{writeErr: errors.New("something unexpected")}
	}}
	p := quietPlugin(t, opener)
	sleeps := recordSleeps(p)

	_, err := p.BulkOperations(context.Background(), []document.Document{document.New("order")}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, 1, opener.opens)
	assert.Empty(t, *sleeps)
}

func TestRetryRecoversWhenStoreComesBack(t *testing.T) {
	attempts := 0
	opener := &fakeOpener{factory: func() *fakeHandle {
		attempts++
		if attempts < 3 {
			return &fakeHandle{writeErr: backend.NewStoreError(backend.StatusUnavailable, "still starting")}
		}
		return &fakeHandle{writeOutcomes: []backend.WriteOutcome{{ID: "doc-1", Rev: "1", OK: true}}}
	}}
	p := quietPlugin(t, opener)
	sleeps := recordSleeps(p)

	doc := document.Document{document.FieldID: "doc-1", document.FieldDocType: "order"}
	resp, err := p.BulkOperations(context.Background(), []document.Document{doc}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, opener.opens)
	assert.Equal(t, []time.Duration{25 * time.Millisecond, 50 * time.Millisecond}, *sleeps)
	assert.Equal(t, 1, resp.SuccessCount)
}

func TestRetryLadderStopsOnCancelledContext(t *testing.T) {
	opener := &fakeOpener{factory: func() *fakeHandle {
		return &fakeHandle{writeErr: backend.NewStoreError(backend.StatusUnavailable, "down")}
	}}
	p := quietPlugin(t, opener)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.BulkOperations(ctx, []document.Document{document.New("order")}, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, opener.opens, "cancellation stops the ladder before the next attempt")
}

func TestExecTxOpenFailureIsRetried(t *testing.T) {
	opener := &fakeOpener{openErr: backend.NewStoreError(backend.StatusUnavailable, "connect refused")}
	p := quietPlugin(t, opener)
	sleeps := recordSleeps(p)

	_, _, err := execTx(context.Background(), p, func(context.Context, backend.Handle) (int, error) {
		return 0, nil
	})
	require.Error(t, err)
	assert.Len(t, *sleeps, 7, "open failures walk the same ladder as write failures")
}

func TestExecTxReturnsOpenHandleOnSuccess(t *testing.T) {
	opener := &fakeOpener{}
	p := quietPlugin(t, opener)

	result, handle, err := execTx(context.Background(), p, func(context.Context, backend.Handle) (string, error) {
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	require.Len(t, opener.handles, 1)
	assert.Same(t, backend.Handle(opener.handles[0]), handle)
	assert.False(t, opener.handles[0].closed, "the handle comes back open for chained reads")
}
