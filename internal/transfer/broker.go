package transfer

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Broker 按主题广播消息。没有订阅者时消息被丢弃。
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe 返回消息通道与取消函数；ctx 结束或调用取消函数后通道关闭。
	Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error)
}

type redisPubSub interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisBroker 基于 Redis Pub/Sub，多个 API 实例之间可以互相转发。
type RedisBroker struct {
	client redisPubSub
}

// NewRedisBroker 创建 Redis 广播器。
func NewRedisBroker(client redisPubSub) *RedisBroker {
	return &RedisBroker{client: client}
}

// Publish 实现 Broker。
func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe 实现 Broker。
func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error) {
	pubsub := b.client.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}

// MemoryBroker 进程内广播器。
type MemoryBroker struct {
	mu     sync.Mutex
	topics map[string]map[*memorySub]struct{}
}

type memorySub struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

// NewMemoryBroker 创建进程内广播器。
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: map[string]map[*memorySub]struct{}{}}
}

// Publish 实现 Broker。订阅者缓冲区已满时该订阅者错过本条消息。
func (b *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.topics[topic] {
		select {
		case sub.ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe 实现 Broker。
func (b *MemoryBroker) Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error) {
	sub := &memorySub{ch: make(chan []byte, 16), done: make(chan struct{})}
	b.mu.Lock()
	if b.topics[topic] == nil {
		b.topics[topic] = map[*memorySub]struct{}{}
	}
	b.topics[topic][sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			b.mu.Lock()
			delete(b.topics[topic], sub)
			if len(b.topics[topic]) == 0 {
				delete(b.topics, topic)
			}
			close(sub.ch)
			close(sub.done)
			b.mu.Unlock()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()
	return sub.ch, cancel, nil
}
