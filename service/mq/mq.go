package mq

import (
	"context"
	"docinsight-backend/service/processing"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/apache/rocketmq-client-go/v2"
	c "github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/apache/rocketmq-client-go/v2/rlog"
	"github.com/avast/retry-go/v4"
)

const (
	TopicDocument = "topic_document"
	TagProcess    = "tag_process"

	consumeGroupDocument = "cg_document"

	sendMessageAttempts  = 3
	maxReconsumeTimes    = 5
	consumeGoroutineNums = 10
)

type MessageHandler func(context.Context, *primitive.MessageExt) error

type Message struct {
	Topic   string
	Tag     string
	Payload any
}

// Sender 发送消息，测试中替换为内存实现
type Sender interface {
	SendSync(ctx context.Context, msgs ...*primitive.Message) (*primitive.SendResult, error)
}

// TaskPool 执行处理任务的本地队列
type TaskPool interface {
	Submit(task processing.Task) (*processing.Handle, error)
	Cancel(documentID string) bool
}

// Scheduler 通过 RocketMQ 分发文档处理任务，消费者把任务交给本地 worker 池执行
type Scheduler struct {
	producer rocketmq.Producer
	consumer rocketmq.PushConsumer
	sender   Sender
	pool     TaskPool

	// 消息处理器表
	handlers map[string]MessageHandler
}

var _ processing.Scheduler = (*Scheduler)(nil)

func NewScheduler(nameServer []string, pool TaskPool) (*Scheduler, error) {
	// 设置RocketMQ客户端（使用rlog）的日志级别
	rlog.SetLogLevel("warn")

	consumer, err := rocketmq.NewPushConsumer(
		c.WithNameServer(nameServer),
		c.WithGroupName(consumeGroupDocument),
		c.WithConsumerModel(c.Clustering),
		c.WithConsumeFromWhere(c.ConsumeFromLastOffset),
		c.WithMaxReconsumeTimes(maxReconsumeTimes),
		c.WithConsumeGoroutineNums(consumeGoroutineNums),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %v", err)
	}

	p, err := rocketmq.NewProducer(
		producer.WithNameServer(nameServer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %v", err)
	}

	s := newScheduler(p, pool)
	s.producer = p
	s.consumer = consumer
	return s, nil
}

func newScheduler(sender Sender, pool TaskPool) *Scheduler {
	s := &Scheduler{
		sender:   sender,
		pool:     pool,
		handlers: make(map[string]MessageHandler),
	}
	s.handlers[TopicDocument] = s.handleProcessMessage
	return s
}

func (s *Scheduler) Run() error {
	// 注册消息处理器
	if err := s.subscribe(TopicDocument, TagProcess); err != nil {
		return fmt.Errorf("failed to register handler, topic: %s, tag: %s, err: %v", TopicDocument, TagProcess, err)
	}

	if err := s.producer.Start(); err != nil {
		return fmt.Errorf("failed to start producer: %v", err)
	}

	if err := s.consumer.Start(); err != nil {
		return fmt.Errorf("failed to start consumer: %v", err)
	}
	return nil
}

func (s *Scheduler) subscribe(topic string, tag string) error {
	selector := c.MessageSelector{}
	if tag != "" {
		selector = c.MessageSelector{
			Type:       c.TAG,
			Expression: tag,
		}
	}

	err := s.consumer.Subscribe(topic, selector, func(ctx context.Context, messages ...*primitive.MessageExt) (c.ConsumeResult, error) {
		return s.consume(ctx, messages...)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %v", topic, err)
	}
	return nil
}

func (s *Scheduler) consume(ctx context.Context, messages ...*primitive.MessageExt) (c.ConsumeResult, error) {
	for _, msg := range messages {
		h := s.handlers[msg.Topic]
		if h == nil {
			slog.Warn("No message handler found for topic", "topic", msg.Topic)
			continue
		}

		if err := h(ctx, msg); err != nil {
			slog.Error("Failed to process message",
				"topic", msg.Topic,
				"msg_id", msg.MsgId,
				"err", err)
			return c.ConsumeRetryLater, err
		}
	}
	return c.ConsumeSuccess, nil
}

// handleProcessMessage 把任务交给本地 worker 池并等待结束
// 处理失败已经写入文档，不再要求重新投递；只有本地队列已满时才稍后重试
func (s *Scheduler) handleProcessMessage(ctx context.Context, msg *primitive.MessageExt) error {
	var task processing.Task
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		slog.Error("Dropping malformed process message", "msg_id", msg.MsgId, "err", err)
		return nil
	}

	handle, err := s.pool.Submit(task)
	switch {
	case errors.Is(err, processing.ErrAlreadyRunning):
		slog.Info("Document is already being processed", "document_id", task.DocumentID)
		return nil
	case err != nil:
		return fmt.Errorf("failed to submit document %s: %w", task.DocumentID, err)
	}

	if err := handle.Wait(ctx); err != nil {
		slog.Warn("Document processing finished with error",
			"document_id", task.DocumentID,
			"err", err,
		)
	}
	return nil
}

// Schedule 发送处理任务消息
func (s *Scheduler) Schedule(ctx context.Context, task processing.Task) error {
	return s.SendMessage(ctx, &Message{
		Topic:   TopicDocument,
		Tag:     TagProcess,
		Payload: task,
	})
}

// Cancel 只能取消由本实例执行的任务
func (s *Scheduler) Cancel(documentID string) bool {
	return s.pool.Cancel(documentID)
}

// SendMessage 向MQ发送消息
func (s *Scheduler) SendMessage(ctx context.Context, message *Message) error {
	payloadJSON, err := json.Marshal(message.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	msg := primitive.NewMessage(message.Topic, payloadJSON)
	if message.Tag != "" {
		msg = msg.WithTag(message.Tag)
	}

	err = retry.Do(
		func() error {
			_, err := s.sender.SendSync(ctx, msg)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(sendMessageAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying to send message",
				"attempt", n+1,
				"topic", msg.Topic,
				"err", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s after retries: %v", msg.Topic, err)
	}

	return nil
}

// Shutdown 关闭MQ服务
func (s *Scheduler) Shutdown() {
	if s.producer != nil {
		if err := s.producer.Shutdown(); err != nil {
			slog.Error("Failed to shutdown producer", "err", err)
		}
	}
	if s.consumer != nil {
		if err := s.consumer.Shutdown(); err != nil {
			slog.Error("Failed to shutdown consumer", "err", err)
		}
	}
}
