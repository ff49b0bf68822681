// Package mq 基于RabbitMQ的领域事件发布与消费
//
// 交换机使用topic类型,路由键形如"shipment.created",
// 消费方可以用"shipment.*"订阅所有运单事件
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xiebiao/shiptrack/pkg/metrics"
)

// ExchangeTopic 默认交换机类型
const ExchangeTopic = "topic"

// Event 事件信封
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"` // 同路由键
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// channel *amqp.Channel中发布者用到的方法
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher 消息发布者
// 可被多个goroutine共享,amqp091在Channel内部对发送加锁
type Publisher struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	log      *zap.Logger
}

// NewPublisher 连接RabbitMQ并声明持久化交换机
func NewPublisher(url, exchange string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,      // Exchange名称
		ExchangeTopic, // Exchange类型
		true,          // Durable
		false,         // AutoDelete
		false,         // Internal
		false,         // NoWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明Exchange失败: %w", err)
	}

	log.Info("message publisher ready", zap.String("exchange", exchange))

	p := newPublisher(ch, exchange, log)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, log *zap.Logger) *Publisher {
	return &Publisher{channel: ch, exchange: exchange, log: log}
}

// Publish 发布事件
// payload序列化为JSON放入信封,消息持久化
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("消息序列化失败: %w", err)
	}

	now := time.Now().UTC()
	evt := Event{
		ID:         uuid.NewString(),
		Type:       routingKey,
		OccurredAt: now,
		Payload:    body,
	}
	envelope, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("消息序列化失败: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    evt.ID,
			Type:         routingKey,
			Body:         envelope,
			DeliveryMode: amqp.Persistent,
			Timestamp:    now,
		},
	)
	metrics.RecordMessagePublished(p.exchange, routingKey, err)
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	p.log.Debug("message published",
		zap.String("routing_key", routingKey),
		zap.String("message_id", evt.ID),
	)
	return nil
}

// Close 关闭channel和连接
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

// Consumer 消息消费者(运维工具用来查看事件流)
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     *zap.Logger
}

// NewConsumer 声明队列并绑定路由键
// queue为空时创建服务端命名的独占临时队列,断开即删除
func NewConsumer(url, exchange, queue string, routingKeys []string, log *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	fail := func(format string, err error) (*Consumer, error) {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf(format, err)
	}

	if err := ch.ExchangeDeclare(exchange, ExchangeTopic, true, false, false, false, nil); err != nil {
		return fail("声明Exchange失败: %w", err)
	}

	temporary := queue == ""
	q, err := ch.QueueDeclare(
		queue,
		!temporary, // Durable
		temporary,  // AutoDelete
		temporary,  // Exclusive
		false,      // NoWait
		nil,
	)
	if err != nil {
		return fail("声明Queue失败: %w", err)
	}

	for _, key := range routingKeys {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return fail("绑定Queue失败: %w", err)
		}
	}

	log.Info("message consumer ready", zap.String("queue", q.Name), zap.Strings("routing_keys", routingKeys))

	return &Consumer{conn: conn, channel: ch, queue: q.Name, log: log}, nil
}

// Consume 阻塞消费直到ctx取消
// handler返回错误时消息重新入队
func (c *Consumer) Consume(ctx context.Context, handler func(Event) error) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("设置Qos失败: %w", err)
	}

	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("开始消费失败: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("消息Channel已关闭")
			}
			handleDelivery(msg, handler, c.log)
		}
	}
}

// acknowledger amqp.Delivery的确认方法
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(msg amqp.Delivery, handler func(Event) error, log *zap.Logger) {
	dispatch(msg.Body, &msg, handler, log)
}

func dispatch(body []byte, ack acknowledger, handler func(Event) error, log *zap.Logger) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		// 无法解析的消息重新入队只会无限循环
		log.Warn("dropping malformed message", zap.Error(err))
		ack.Nack(false, false)
		return
	}

	if err := handler(evt); err != nil {
		log.Warn("message handler failed, requeue", zap.String("message_id", evt.ID), zap.Error(err))
		ack.Nack(false, true)
		return
	}
	ack.Ack(false)
}

// Close 关闭channel和连接
func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}
