package events

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"chucheritas/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"

	publishTimeout = 5 * time.Second
)

// OrderEvent is the payload written to the orders topic, keyed by order ID.
type OrderEvent struct {
	Type         string             `json:"type"`
	OrderID      int                `json:"order_id"`
	CustomerID   int                `json:"customer_id"`
	Status       domain.OrderStatus `json:"status"`
	Previous     domain.OrderStatus `json:"previous_status,omitempty"`
	Total        decimal.Decimal    `json:"total"`
	Lines        []domain.OrderLine `json:"lines,omitempty"`
	DeliveryDate time.Time          `json:"delivery_date"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(brokersCSV string) []string {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

type KafkaPublisher struct {
	writer messageWriter
	log    *logrus.Logger
	now    func() time.Time
}

func NewKafkaPublisher(writer messageWriter, logger *logrus.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: logger, now: time.Now}
}

// New returns a Kafka publisher when brokers are configured and a no-op one
// otherwise.
func New(brokersCSV, topic string, logger *logrus.Logger) Publisher {
	brokers := ParseBrokers(brokersCSV)
	if len(brokers) == 0 {
		return Noop{}
	}
	logger.Infof("Order events enabled: topic %s on %d broker(s)", topic, len(brokers))
	return NewKafkaPublisher(NewWriter(brokers, topic), logger)
}

func (p *KafkaPublisher) OrderPlaced(ctx context.Context, order *domain.Order) {
	p.publish(ctx, p.event(TypeOrderPlaced, order, ""))
}

func (p *KafkaPublisher) OrderStatusChanged(ctx context.Context, order *domain.Order, from domain.OrderStatus) {
	ev := p.event(TypeOrderStatusChanged, order, from)
	ev.Lines = nil
	p.publish(ctx, ev)
}

func (p *KafkaPublisher) event(kind string, order *domain.Order, from domain.OrderStatus) OrderEvent {
	return OrderEvent{
		Type:         kind,
		OrderID:      order.ID,
		CustomerID:   order.CustomerID,
		Status:       order.Status,
		Previous:     from,
		Total:        order.Total,
		Lines:        order.Lines,
		DeliveryDate: order.DeliveryDate,
		OccurredAt:   p.now().UTC(),
	}
}

// publish is best effort: the order is already committed, so failures are
// only logged.
func (p *KafkaPublisher) publish(ctx context.Context, ev OrderEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Errorf("Events: failed to encode %s for order %d: %v", ev.Type, ev.OrderID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(strconv.Itoa(ev.OrderID)),
		Value: data,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.WithFields(logrus.Fields{
			"event":    ev.Type,
			"order_id": ev.OrderID,
		}).Errorf("Events: failed to publish: %v", err)
		return
	}
	p.log.WithFields(logrus.Fields{"event": ev.Type, "order_id": ev.OrderID}).Debug("Events: published")
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
