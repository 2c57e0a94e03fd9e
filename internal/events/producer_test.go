package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ppob-backend/internal/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestNotifyPublishesOrderEvent(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var e OrderEvent
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if e.Event != "completed" || e.OrderID != "TRX-1" || e.Price != 10500 {
			return errors.New("unexpected payload: " + string(val))
		}
		return nil
	})

	p := NewProducerFrom(mock)
	p.Notify(context.Background(), "completed", models.Transaction{ID: "TRX-1", UserID: "u1", Price: 10500, Status: models.StatusSuccess})

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPublishReturnsBrokerError(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerFrom(mock)
	if err := p.Publish(OrderEvent{Event: "paid", OrderID: "TRX-1"}); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected broker error, got %v", err)
	}
	p.Close()
}

type captureProducer struct {
	sarama.SyncProducer
	msgs []*sarama.ProducerMessage
}

func (c *captureProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	c.msgs = append(c.msgs, msg)
	return 0, int64(len(c.msgs)), nil
}

func TestPublishUsesTopicPerEventKeyedByOrder(t *testing.T) {
	capture := &captureProducer{}
	p := NewProducerFrom(capture)

	paidAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tx := models.Transaction{ID: "TRX-9", Status: models.StatusProcessing}
	if err := p.Publish(NewOrderEvent("paid", tx, paidAt)); err != nil {
		t.Fatalf("publish paid: %v", err)
	}
	if err := p.Publish(NewOrderEvent("completed", tx, paidAt.Add(time.Second))); err != nil {
		t.Fatalf("publish completed: %v", err)
	}

	if len(capture.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(capture.msgs))
	}
	if capture.msgs[0].Topic != "ppob.order.paid" || capture.msgs[1].Topic != "ppob.order.completed" {
		t.Fatalf("unexpected topics %s, %s", capture.msgs[0].Topic, capture.msgs[1].Topic)
	}
	for _, m := range capture.msgs {
		if key, _ := m.Key.Encode(); string(key) != "TRX-9" {
			t.Fatalf("expected order id key, got %s", key)
		}
	}

	// urutan antar topic tidak dijamin, consumer memakai occurredAt
	raw, _ := capture.msgs[1].Value.Encode()
	var e OrderEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !e.OccurredAt.Equal(paidAt.Add(time.Second)) {
		t.Fatalf("unexpected occurredAt %v", e.OccurredAt)
	}
}
