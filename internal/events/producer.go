// Package events menerbitkan event lifecycle order ke Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ppob-backend/internal/models"

	"github.com/IBM/sarama"
)

// TopicPrefix: topic = ppob.order.<event>
const TopicPrefix = "ppob.order."

// OrderEvent adalah payload yang dikirim ke Kafka
type OrderEvent struct {
	Event         string    `json:"event"`
	OrderID       string    `json:"orderId"`
	UserID        string    `json:"userId"`
	ProductID     string    `json:"productId"`
	Type          string    `json:"type"`
	Price         int64     `json:"price"`
	GrossAmount   int64     `json:"grossAmount"`
	PointsUsed    int64     `json:"pointsUsed"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	SerialNumber  *string   `json:"serialNumber,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func NewOrderEvent(event string, t models.Transaction, at time.Time) OrderEvent {
	return OrderEvent{
		Event:         event,
		OrderID:       t.ID,
		UserID:        t.UserID,
		ProductID:     t.ProductID,
		Type:          t.Type,
		Price:         t.Price,
		GrossAmount:   t.GrossAmount,
		PointsUsed:    t.PointsUsed,
		Status:        t.Status,
		PaymentStatus: t.PaymentStatus,
		SerialNumber:  t.SerialNumber,
		OccurredAt:    at,
	}
}

// Producer adalah orders.Observer yang publish ke Kafka
type Producer struct {
	producer sarama.SyncProducer
}

func NewProducerFrom(p sarama.SyncProducer) *Producer {
	return &Producer{producer: p}
}

// NewProducer konek ke broker, retry sampai `retries` kali (Kafka di docker biasanya
// belum siap saat service start).
func NewProducer(brokers []string, retries int, wait time.Duration) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	if retries <= 0 {
		retries = 1
	}

	var producer sarama.SyncProducer
	var err error
	for i := 1; i <= retries; i++ {
		producer, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			log.Println("[Kafka] producer initialized")
			return &Producer{producer: producer}, nil
		}
		log.Printf("[Kafka] waiting for broker... (%d/%d) error: %v", i, retries, err)
		if i < retries {
			time.Sleep(wait)
		}
	}
	return nil, fmt.Errorf("kafka producer: %w", err)
}

func (p *Producer) Notify(ctx context.Context, event string, t models.Transaction) {
	if err := p.Publish(NewOrderEvent(event, t, time.Now())); err != nil {
		log.Printf("[Kafka] gagal publish %s untuk %s: %v", event, t.ID, err)
	}
}

// Publish mengirim event ke topic ppob.order.<event> dengan key = order id.
// Tiap event punya topic sendiri dan dikirim dari goroutine terpisah, jadi
// tidak ada jaminan urutan antar event; consumer mengurutkan lewat occurredAt.
func (p *Producer) Publish(e OrderEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: TopicPrefix + e.Event,
		Key:   sarama.StringEncoder(e.OrderID),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return err
	}
	log.Printf("[Kafka] published %s%s: %s", TopicPrefix, e.Event, e.OrderID)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
