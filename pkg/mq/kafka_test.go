package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

type memWriter struct {
	mu   sync.Mutex
	sent []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.sent = append(w.sent, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

// memReader 依次返回队列中的消息，取空后阻塞到 ctx 取消
type memReader struct {
	queue     []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *memReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.queue[0]
	r.queue = r.queue[1:]
	return m, nil
}

func (r *memReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *memReader) Close() error { return nil }

func TestSendMessageEncodesJSON(t *testing.T) {
	w := &memWriter{}
	p := &Producer{writer: w}

	if err := p.SendMessage(context.Background(), "pricing.option_priced", "AAPL", map[string]float64{"price": 10.45}); err != nil {
		t.Fatal(err)
	}
	if len(w.sent) != 1 {
		t.Fatalf("sent %d messages", len(w.sent))
	}
	msg := w.sent[0]
	if msg.Topic != "pricing.option_priced" || string(msg.Key) != "AAPL" {
		t.Fatalf("unexpected message %s/%s", msg.Topic, msg.Key)
	}
	var body map[string]float64
	if err := json.Unmarshal(msg.Value, &body); err != nil || body["price"] != 10.45 {
		t.Fatalf("payload = %s (%v)", msg.Value, err)
	}
}

func TestSendMessagePropagatesWriteError(t *testing.T) {
	p := &Producer{writer: &memWriter{err: errors.New("broker down")}}
	if err := p.SendMessage(context.Background(), "t", "k", 1); err == nil {
		t.Fatal("expected write error")
	}
}

func TestConsumerRetriesThenDeadLetters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dlqWriter := &memWriter{}
	reader := &memReader{
		queue: []kafka.Message{
			{Topic: "requests", Offset: 1, Key: []byte("ok"), Value: []byte(`{}`)},
			{Topic: "requests", Offset: 2, Key: []byte("bad"), Value: []byte(`{}`)},
		},
		cancel: cancel,
	}
	c := &Consumer{
		reader:     reader,
		topic:      "requests",
		maxRetries: 3,
		dlq:        NewDeadLetterQueue(&Producer{writer: dlqWriter}, "requests.dlq"),
	}

	attempts := map[string]int{}
	err := c.Run(ctx, func(_ context.Context, msg *Message) error {
		attempts[msg.Key]++
		if msg.Key == "bad" {
			return fmt.Errorf("cannot price")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if attempts["ok"] != 1 || attempts["bad"] != 3 {
		t.Fatalf("attempts = %v", attempts)
	}
	if len(reader.committed) != 2 {
		t.Fatalf("committed offsets = %v", reader.committed)
	}
	if len(dlqWriter.sent) != 1 {
		t.Fatalf("dead letters = %d", len(dlqWriter.sent))
	}
	var letter DeadLetter
	if err := json.Unmarshal(dlqWriter.sent[0].Value, &letter); err != nil {
		t.Fatal(err)
	}
	if letter.OriginalOffset != 2 || letter.FailureError != "cannot price" || dlqWriter.sent[0].Topic != "requests.dlq" {
		t.Fatalf("dead letter = %+v", letter)
	}
}

func TestConsumerPermanentErrorSkipsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &memReader{
		queue:  []kafka.Message{{Topic: "requests", Offset: 7, Value: []byte(`not json`)}},
		cancel: cancel,
	}
	c := &Consumer{reader: reader, topic: "requests", maxRetries: 5}

	calls := 0
	if err := c.Run(ctx, func(_ context.Context, msg *Message) error {
		calls++
		var v map[string]any
		if err := msg.UnmarshalPayload(&v); err != nil {
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("handler called %d times", calls)
	}
	if len(reader.committed) != 1 {
		t.Fatal("message not committed")
	}
}
