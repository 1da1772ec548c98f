package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topics  []string
	digests []Digest
}

func (p *capturePublisher) Publish(_ context.Context, topic string, _ []byte, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.digests = append(p.digests, value.(Digest))
	return nil
}

func TestCollectorFoldsRepeatedErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 50, Topic: "digests", Source: "test", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("stage failed", Symbol("TCS.NS"), Stage("features"))
	}
	l.Warn("input missing", Symbol("INFY.NS"))
	l.Info("not collected")

	require.Equal(t, 2, l.collector.Pending())
	l.RemoveCollector()

	require.Len(t, pub.digests, 1)
	d := pub.digests[0]
	assert.Equal(t, "digests", pub.topics[0])
	assert.Equal(t, "test", d.Source)
	require.Len(t, d.Entries, 2)
	assert.Equal(t, 3, d.Entries[0].Count)
	assert.Equal(t, "stage failed", d.Entries[0].Message)
	assert.Equal(t, "TCS.NS", d.Entries[0].Fields["symbol"])
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})

	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")
	assert.Equal(t, 0, c.Pending())

	c.Close()
	assert.Len(t, pub.digests, 1)
}
