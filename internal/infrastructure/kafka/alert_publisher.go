// Package kafka publica el feed de alertas de stock bajo en un tópico de Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/device-stock-api/internal/domain/entity"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

// MessageWriter subconjunto de *kafka.Writer que usa el publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// alertEvent mensaje publicado por cada alerta.
type alertEvent struct {
	DeviceID       string               `json:"device_id"`
	Color          string               `json:"color"`
	Storage        string               `json:"storage"`
	AvailableStock int                  `json:"available_stock"`
	AlertThreshold int                  `json:"alert_threshold"`
	Severity       entity.AlertSeverity `json:"severity"`
	EmittedAt      time.Time            `json:"emitted_at"`
}

// AlertPublisher escribe una alerta por mensaje; la clave es el SKU para que las alertas
// de una variante queden en la misma partición.
type AlertPublisher struct {
	writer MessageWriter
	log    *logger.Logger
	now    func() time.Time
}

// NewWriter construye el writer de kafka-go para el tópico de alertas.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		RequiredAcks: kafka.RequireOne,
	}
}

// NewAlertPublisher envuelve un writer ya configurado.
func NewAlertPublisher(writer MessageWriter, log *logger.Logger) *AlertPublisher {
	return &AlertPublisher{writer: writer, log: log.Named("kafka_alerts"), now: time.Now}
}

func (p *AlertPublisher) Publish(ctx context.Context, alerts []entity.LowStockAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	now := p.now().UTC()
	msgs := make([]kafka.Message, 0, len(alerts))
	for _, a := range alerts {
		payload, err := json.Marshal(alertEvent{
			DeviceID:       a.SKU.DeviceID,
			Color:          a.SKU.Color,
			Storage:        a.SKU.Storage,
			AvailableStock: a.AvailableStock,
			AlertThreshold: a.AlertThreshold,
			Severity:       a.Severity,
			EmittedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("serializar alerta %s: %w", a.SKU, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(a.SKU.String()),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "severity", Value: []byte(a.Severity)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	p.log.Debug().Int("messages", len(msgs)).Msg("alertas enviadas a kafka")
	return nil
}

// Close libera el writer.
func (p *AlertPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher alternativa sin broker: deja cada alerta en el log.
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher se usa cuando KAFKA_BROKERS está vacío.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("low_stock_alerts")}
}

func (p *LogPublisher) Publish(_ context.Context, alerts []entity.LowStockAlert) error {
	for _, a := range alerts {
		p.log.Warn().
			Str("sku", a.SKU.String()).
			Int("available_stock", a.AvailableStock).
			Int("alert_threshold", a.AlertThreshold).
			Str("severity", string(a.Severity)).
			Msg("stock bajo")
	}
	return nil
}
