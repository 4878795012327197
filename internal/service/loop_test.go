package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/shortsdash/internal/domain"
)

func TestLoop_RunsCallbacksInOrder(t *testing.T) {
	l := NewLoop(0)
	go l.Run()
	defer l.Stop()

	var got []int
	for i := range 10 {
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Do(context.Background(), func() {}))

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestLoop_Stop(t *testing.T) {
	l := NewLoop(0)
	go l.Run()

	l.Stop()
	l.Stop()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), domain.ErrViewClosed)
}

func TestLoop_DoHonorsContext(t *testing.T) {
	l := NewLoop(0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
