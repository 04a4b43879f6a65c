package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCard = "4111111111111111"

func TestMemoryCounter_EmptyCard(t *testing.T) {
	c := NewMemoryCounter()

	count, err := c.RecentAttemptCount(context.Background(), testCard, time.Now(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryCounter_CountsRecordedAttempts(t *testing.T) {
	c := NewMemoryCounter()
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.RecordAttempt(context.Background(), testCard, now.Add(time.Duration(i)*time.Minute)))
	}

	count, err := c.RecentAttemptCount(context.Background(), testCard, now.Add(10*time.Minute), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestMemoryCounter_PerCardIsolation(t *testing.T) {
	c := NewMemoryCounter()
	now := time.Now()

	require.NoError(t, c.RecordAttempt(context.Background(), testCard, now))

	count, err := c.RecentAttemptCount(context.Background(), "5555555555554444", now, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// The window is half-open: an attempt exactly at asOf-window has aged out,
// one a nanosecond inside has not, and one exactly at asOf counts.
func TestMemoryCounter_WindowBoundaries(t *testing.T) {
	now := time.Now()
	window := time.Hour

	tests := []struct {
		name     string
		at       time.Time
		expected int
	}{
		{name: "exactly at lower bound is excluded", at: now.Add(-window), expected: 0},
		{name: "just inside lower bound is included", at: now.Add(-window).Add(time.Nanosecond), expected: 1},
		{name: "exactly at asOf is included", at: now, expected: 1},
		{name: "after asOf is not yet counted", at: now.Add(time.Second), expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMemoryCounter()
			require.NoError(t, c.RecordAttempt(context.Background(), testCard, tt.at))

			count, err := c.RecentAttemptCount(context.Background(), testCard, now, window)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, count)
		})
	}
}

func TestMemoryCounter_WindowRollover(t *testing.T) {
	c := NewMemoryCounter()
	now := time.Now()
	window := time.Hour

	for i := 0; i < 5; i++ {
		require.NoError(t, c.RecordAttempt(context.Background(), testCard, now))
	}

	count, err := c.RecentAttemptCount(context.Background(), testCard, now, window)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	// One minute past the window the burst has fully aged out.
	count, err = c.RecentAttemptCount(context.Background(), testCard, now.Add(window+time.Minute), window)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryCounter_ConcurrentRecords(t *testing.T) {
	c := NewMemoryCounter()
	now := time.Now()

	const workers = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.RecordAttempt(context.Background(), testCard, now))
		}()
	}
	wg.Wait()

	count, err := c.RecentAttemptCount(context.Background(), testCard, now, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, workers, count)
}
