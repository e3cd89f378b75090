package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"concord/internal/cache"
	"concord/internal/event"
	"concord/internal/store"
)

var testDBSeq atomic.Int64

func testStore(t *testing.T) *store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return st
}

// testPassword is a valid client-side pre-hash: 96 lowercase hex chars.
var testPassword = strings.Repeat("ab", 48)

// recordPub captures published envelopes per topic.
type recordPub struct {
	mu     sync.Mutex
	topics []string
	events []event.Envelope
}

func (p *recordPub) Publish(ctx context.Context, topic string, payload any) error {
	env, ok := payload.(event.Envelope)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", payload)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, env)
	return nil
}

func (p *recordPub) last() (string, event.Envelope, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return "", event.Envelope{}, false
	}
	return p.topics[len(p.topics)-1], p.events[len(p.events)-1], true
}

func (p *recordPub) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newTestCache() cache.Cache { return cache.NewMemory() }
