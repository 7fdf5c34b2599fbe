package notify

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecorder(t *testing.T) {
	var r Recorder

	_, ok := r.Last()
	assert.False(t, ok)

	r.Notify(Success("Worker added successfully!"))
	r.Notify(Error("Failed to add worker: boom"))

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, LevelSuccess, all[0].Level)
	assert.Equal(t, LevelError, all[1].Level)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "Failed to add worker: boom", last.Message)

	r.Reset()
	assert.Empty(t, r.All())
}

func TestRecorder_Concurrent(t *testing.T) {
	var r Recorder
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Notify(Success("ok"))
		}()
	}
	wg.Wait()
	assert.Len(t, r.All(), 50)
}

func TestMulti(t *testing.T) {
	var a, b Recorder
	m := Multi(&a, nil, &b)
	m.Notify(Success("done"))

	assert.Len(t, a.All(), 1)
	assert.Len(t, b.All(), 1)
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Notify(Success("Worker added successfully!"))
	p.Notify(Error("Failed to delete worker: not found"))

	assert.Equal(t, "✓ Worker added successfully!\n✗ Failed to delete worker: not found\n", buf.String())
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewLog(zap.New(core))

	l.Notify(Success("saved"))
	l.Notify(Error("failed"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "saved", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "failed", entries[1].Message)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard.Notify(Error("ignored")) })
}
