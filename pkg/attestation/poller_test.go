package attestation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedFetcher struct {
	mu        sync.Mutex
	calls     int
	readyAt   int
	result    string
	failWith  error
	seenHashes []string
}

func (f *scriptedFetcher) Fetch(_ context.Context, hash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.seenHashes = append(f.seenHashes, hash)
	if f.readyAt > 0 && f.calls >= f.readyAt {
		return f.result, nil
	}
	if f.failWith != nil {
		return "", f.failWith
	}
	return "", ErrNotAvailable
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPoller_ReturnsAttestationAfterPending(t *testing.T) {
	f := &scriptedFetcher{readyAt: 3, result: "0xabcd"}
	p := NewPoller(f, 5*time.Millisecond, time.Second, zap.NewNop())

	att, err := p.Poll(context.Background(), testHash)
	require.NoError(t, err)
	assert.Equal(t, "0xabcd", att)
	assert.Equal(t, 3, f.Calls())
	assert.Equal(t, testHash, f.seenHashes[0])
}

func TestPoller_TransientErrorsAreRetried(t *testing.T) {
	f := &scriptedFetcher{readyAt: 2, result: "0x01", failWith: errors.New("connection reset")}
	p := NewPoller(f, 5*time.Millisecond, time.Second, zap.NewNop())

	att, err := p.Poll(context.Background(), testHash)
	require.NoError(t, err)
	assert.Equal(t, "0x01", att)
}

func TestPoller_Timeout(t *testing.T) {
	f := &scriptedFetcher{}
	p := NewPoller(f, 10*time.Millisecond, 60*time.Millisecond, zap.NewNop())

	start := time.Now()
	_, err := p.Poll(context.Background(), testHash)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "attestation timeout", err.Error())
	assert.GreaterOrEqual(t, f.Calls(), 2)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPoller_ContextCanceled(t *testing.T) {
	f := &scriptedFetcher{}
	p := NewPoller(f, 10*time.Millisecond, time.Minute, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := p.Poll(ctx, testHash)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
