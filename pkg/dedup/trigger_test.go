package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/kafka"
)

func scrapeMessage(payload string) *kafka.IncomingMessage {
	return &kafka.IncomingMessage{
		Key:     "bizbuysell",
		Value:   []byte(payload),
		Headers: map[string]string{"type": "scrape.completed"},
	}
}

func TestTriggerHandlerRunsDedup(t *testing.T) {
	h := newHarness(duplicateWindow())
	handler := NewTriggerHandler(testLogger(), h.coordinator, 7)

	msg := scrapeMessage(`{"type":"scrape.completed","platform":"bizbuysell","execution_id":"exec-1","status":"success"}`)
	err := handler.Handle(context.Background(), msg)
	require.NoError(t, err)

	assert.Len(t, h.runLog.started, 1)
	assert.Equal(t, 1, len(h.store.all()))
}

func TestTriggerHandlerSwallowsRunInFlight(t *testing.T) {
	h := newHarness(duplicateWindow())
	h.guard.locked = true
	handler := NewTriggerHandler(testLogger(), h.coordinator, 7)

	msg := scrapeMessage(`{"type":"scrape.completed","platform":"bizbuysell","execution_id":"exec-1","status":"success"}`)

	// An in-flight run covers the same window; the message must commit
	err := handler.Handle(context.Background(), msg)
	assert.NoError(t, err)
	assert.Empty(t, h.runLog.started)
}

func TestTriggerHandlerSkipsFailedScrape(t *testing.T) {
	h := newHarness(duplicateWindow())
	handler := NewTriggerHandler(testLogger(), h.coordinator, 7)

	msg := scrapeMessage(`{"type":"scrape.completed","platform":"bizbuysell","execution_id":"exec-1","status":"failed"}`)
	err := handler.Handle(context.Background(), msg)
	require.NoError(t, err)

	assert.Empty(t, h.runLog.started)
}

func TestTriggerHandlerSwallowsMalformedPayload(t *testing.T) {
	h := newHarness(duplicateWindow())
	handler := NewTriggerHandler(testLogger(), h.coordinator, 7)

	err := handler.Handle(context.Background(), scrapeMessage(`not json`))
	assert.NoError(t, err)
	assert.Empty(t, h.runLog.started)
}

func TestTriggerHandlerPropagatesRunFailure(t *testing.T) {
	h := newHarness(&fakeListingSource{err: errors.New("connection refused")})
	handler := NewTriggerHandler(testLogger(), h.coordinator, 7)

	msg := scrapeMessage(`{"type":"scrape.completed","platform":"bizbuysell","execution_id":"exec-1","status":"success"}`)

	// A hard failure should surface so the message is redelivered
	err := handler.Handle(context.Background(), msg)
	assert.Error(t, err)
}
