package utils

import (
	"context"
	"testing"
	"time"

	"market-attention/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGoSafe_LogsRecoveredPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	done := make(chan struct{})
	GoSafe(log, func() {
		defer close(done)
		panic("boom")
	})
	<-done

	require.Eventually(t, func() bool { return logs.Len() == 1 }, time.Second, 5*time.Millisecond)
	entry := logs.All()[0]
	assert.Equal(t, "Recovered from panic", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "boom", fields["panic"])
	assert.Contains(t, fields["stack"], "goroutine")
}

func TestSleep_ReturnsEarlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
