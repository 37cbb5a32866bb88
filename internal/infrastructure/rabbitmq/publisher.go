// Package rabbitmq はドメインイベントを RabbitMQ のキューへ発行する
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/event"
	"github.com/pmg1020/AquaTicketWeb/internal/pkg/logger"
)

var queues = []string{event.QueueBookingConfirmed, event.QueueHoldReleased}

// Publisher は永続キューへ JSON メッセージを発行する
// チャネルはスレッドセーフではないため発行をミューテックスで直列化する
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher はブローカーへ接続し、キューを宣言する
func NewPublisher(url string) (*Publisher, error) {
	p := &Publisher{url: url}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect は mu を保持した状態、または初期化時に呼ぶ
func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("RabbitMQ接続に失敗: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("チャネル作成に失敗: %w", err)
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("キュー宣言に失敗 (%s): %w", q, err)
		}
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *Publisher) PublishBookingConfirmed(ctx context.Context, e event.BookingConfirmed) error {
	return p.publish(ctx, event.QueueBookingConfirmed, e)
}

func (p *Publisher) PublishHoldReleased(ctx context.Context, e event.HoldReleased) error {
	return p.publish(ctx, event.QueueHoldReleased, e)
}

func (p *Publisher) publish(ctx context.Context, queue string, payload any) error {
	msg, err := newMessage(payload, time.Now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// ブローカー再起動等で閉じていれば一度だけ張り直す
	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		p.closeLocked()
		if err := p.connect(); err != nil {
			return err
		}
		logger.Component("event-publisher").Info("RabbitMQに再接続しました")
	}

	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		logger.Component("event-publisher").Warn("イベント発行に失敗", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("イベント発行に失敗 (%s): %w", queue, err)
	}
	return nil
}

// newMessage は永続化指定の JSON メッセージを組み立てる
func newMessage(payload any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("イベントの変換に失敗: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close は接続を閉じる
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

var _ event.Publisher = (*Publisher)(nil)
