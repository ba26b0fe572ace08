package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var alerts = []entity.LowStockAlert{
	{SKU: entity.SKU{DeviceID: "pixel-9", Color: "negro", Storage: "128GB"}, AvailableStock: 0, AlertThreshold: 5, Severity: entity.AlertSeverityCritical},
	{SKU: entity.SKU{DeviceID: "pixel-9", Color: "verde", Storage: "256GB"}, AvailableStock: 2, AlertThreshold: 5, Severity: entity.AlertSeverityWarning},
}

func TestAlertPublisher_UnMensajePorAlerta(t *testing.T) {
	w := &fakeWriter{}
	p := NewAlertPublisher(w, logger.Nop())
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	require.NoError(t, p.Publish(context.Background(), alerts))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "pixel-9/negro/128GB", string(w.msgs[0].Key))
	assert.Equal(t, "CRITICAL", string(w.msgs[0].Headers[0].Value))

	var ev alertEvent
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &ev))
	assert.Equal(t, alertEvent{
		DeviceID: "pixel-9", Color: "verde", Storage: "256GB",
		AvailableStock: 2, AlertThreshold: 5,
		Severity: entity.AlertSeverityWarning, EmittedAt: fixed,
	}, ev)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestAlertPublisher_ErrorDelBroker(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewAlertPublisher(w, logger.Nop())

	err := p.Publish(context.Background(), alerts)
	assert.ErrorContains(t, err, "leader not available")
}

func TestAlertPublisher_SinAlertasNoEscribe(t *testing.T) {
	w := &fakeWriter{err: errors.New("no debería llamarse")}
	p := NewAlertPublisher(w, logger.Nop())

	assert.NoError(t, p.Publish(context.Background(), nil))
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(logger.NewWithWriter(&buf, "debug"))

	require.NoError(t, p.Publish(context.Background(), alerts))
	out := buf.String()
	assert.Contains(t, out, "pixel-9/negro/128GB")
	assert.Contains(t, out, "CRITICAL")
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, "stock.low")
	assert.Equal(t, "stock.low", w.Topic)
	assert.Equal(t, "localhost:9092", w.Addr.String())
}
