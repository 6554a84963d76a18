package transfer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"phResumeRender/internal/resume"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub() *Hub {
	return NewHub(NewMemoryStore(time.Hour, discardLogger()), NewMemoryBroker(), discardLogger())
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHubHandshake(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := newTestHub()

	toOpener, stopOpener, err := hub.Subscribe(ctx, "s1", RoleOpener)
	if err != nil {
		t.Fatalf("subscribe opener: %v", err)
	}
	defer stopOpener()
	toReceiver, stopReceiver, err := hub.Subscribe(ctx, "s1", RoleReceiver)
	if err != nil {
		t.Fatalf("subscribe receiver: %v", err)
	}
	defer stopReceiver()

	if err := hub.Handle(ctx, "s1", RoleReceiver, Message{Type: TypeReady}); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if msg := receive(t, toOpener); msg.Type != TypeReady {
		t.Fatalf("opener got %q", msg.Type)
	}

	rec := &resume.Record{Title: "张三", Modules: []resume.Module{{ID: "m", Title: "教育经历"}}}
	msg, err := NewResumeData(rec)
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	if err := hub.Handle(ctx, "s1", RoleOpener, msg); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	got := receive(t, toReceiver)
	decoded, err := got.Record()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, rec) {
		t.Fatalf("relayed record mismatch: %+v", decoded)
	}

	// 刷新后从存储读取
	latest, err := hub.Latest(ctx, "s1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Title != "张三" {
		t.Fatalf("unexpected stored title %q", latest.Title)
	}
}

func TestHubSessionsAreIsolated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := newTestHub()

	other, stop, err := hub.Subscribe(ctx, "other", RoleReceiver)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	if err := hub.Deliver(ctx, "s1", &resume.Record{Title: "x"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	select {
	case msg := <-other:
		t.Fatalf("unexpected message %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
	if _, err := hub.Latest(ctx, "other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHubWithoutCounterpart(t *testing.T) {
	hub := newTestHub()
	if err := hub.Ready(context.Background(), "lonely"); err != nil {
		t.Fatalf("ready without opener must be silent: %v", err)
	}
	if err := hub.Deliver(context.Background(), "lonely", &resume.Record{}); err != nil {
		t.Fatalf("deliver without receiver must be silent: %v", err)
	}
}

func TestHubRejects(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	if err := hub.Handle(ctx, "s1", RoleReceiver, Message{Type: TypeResumeData}); !errors.Is(err, ErrUnexpectedMessage) {
		t.Fatalf("receiver may not send data, got %v", err)
	}
	if err := hub.Handle(ctx, "s1", RoleOpener, Message{Type: TypeResumeData, Data: []byte(`"oops"`)}); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("expected ErrMalformedMessage, got %v", err)
	}
	if err := hub.Deliver(ctx, "../etc", &resume.Record{}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := newTestHub()
	ch, _, err := hub.Subscribe(ctx, "s1", RoleReceiver)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"ready"}`))
	if err != nil || msg.Type != TypeReady {
		t.Fatalf("got %+v, %v", msg, err)
	}
	for _, raw := range []string{`not json`, `{}`, `{"data":{}}`} {
		if _, err := DecodeMessage([]byte(raw)); !errors.Is(err, ErrMalformedMessage) {
			t.Fatalf("%s: expected ErrMalformedMessage, got %v", raw, err)
		}
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{"": RoleReceiver, "receiver": RoleReceiver, "opener": RoleOpener}
	for in, want := range cases {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseRole("admin"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute, discardLogger())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, "s1", &resume.Record{Title: "a"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Load(ctx, "s1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}

	store.put("bad", []byte("{broken"))
	if _, err := store.Load(ctx, "bad"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("malformed data must read as absent, got %v", err)
	}
}

type fakeKV struct {
	data map[string]string
	ttl  time.Duration
}

func (f *fakeKV) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func TestRedisStore(t *testing.T) {
	kv := &fakeKV{data: map[string]string{}}
	store := NewRedisStore(kv, 30*time.Minute, discardLogger())
	ctx := context.Background()

	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Save(ctx, "s1", &resume.Record{Title: "t"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := kv.data["resumeData:s1"]; !ok || kv.ttl != 30*time.Minute {
		t.Fatalf("unexpected redis state: %v ttl=%s", kv.data, kv.ttl)
	}
	rec, err := store.Load(ctx, "s1")
	if err != nil || rec.Title != "t" {
		t.Fatalf("load: %+v, %v", rec, err)
	}

	kv.data["resumeData:s2"] = "{not json"
	if _, err := store.Load(ctx, "s2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("malformed data must read as absent, got %v", err)
	}
}
