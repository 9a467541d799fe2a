package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/street-resolver/internal/cache/keys"
	"github.com/mohammed-shakir/street-resolver/internal/cache/memstore"
	"github.com/mohammed-shakir/street-resolver/internal/cellmap"
	"github.com/mohammed-shakir/street-resolver/internal/core/model"
	"github.com/mohammed-shakir/street-resolver/internal/invalidation"
)

type fakeStore struct {
	failFirst atomic.Bool
	mu        sync.Mutex
	prefixes  []string
}

func (f *fakeStore) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (f *fakeStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (f *fakeStore) Close() error                                             { return nil }
func (f *fakeStore) DelPrefix(_ context.Context, prefix string) (int, error) {
	f.mu.Lock()
	f.prefixes = append(f.prefixes, prefix)
	f.mu.Unlock()
	if f.failFirst.Load() {
		f.failFirst.Store(false)
		return 0, errors.New("boom")
	}
	return 1, nil
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prefixes)
}

type fakeMapper struct{}

func (fakeMapper) CellsAround(_ model.BBox, _ int) (model.Cells, error) {
	return model.Cells{"88659b3b8bfffff", "88659b3b8dfffff"}, nil
}

type sess struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *sess) Claims() map[string][]int32 { return nil }
func (s *sess) MemberID() string           { return "" }
func (s *sess) GenerationID() int32        { return 0 }
func (s *sess) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}
func (s *sess) ResetOffset(_ string, _ int32, _ int64, _ string) {}
func (s *sess) MarkOffset(_ string, _ int32, _ int64, _ string)  {}
func (s *sess) Context() context.Context                         { return s.ctx }
func (s *sess) Commit()                                          {}

type claim struct {
	part int32
	msgs chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return "osm-edits" }
func (c *claim) Partition() int32                         { return c.part }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func editEvent(wayID int64, changeset uint64) []byte {
	ev := invalidation.Event{
		Version: 1, Op: "update", TS: time.Now().UTC(), WayID: wayID, Changeset: changeset,
		BBox: &invalidation.BBox{X1: 123.884, Y1: 10.294, X2: 123.885, Y2: 10.295},
	}
	b, _ := json.Marshal(ev)
	return b
}

func newConsumerForTest(st *fakeStore) *Consumer {
	cfg := Config{Brokers: []string{"x"}, Topic: "osm-edits", GroupID: "g", RingK: 1}
	return New(cfg, nil, st, fakeMapper{})
}

func TestSinglePartition_OrderAndCommitAfterWork(t *testing.T) {
	st := &fakeStore{}
	c := newConsumerForTest(st)

	g := &groupHandler{process: c.ProcessOne}
	s := &sess{ctx: t.Context()}
	ch := make(chan *sarama.ConsumerMessage, 2)
	ch <- &sarama.ConsumerMessage{Topic: "osm-edits", Partition: 0, Offset: 10, Value: editEvent(1, 1)}
	ch <- &sarama.ConsumerMessage{Topic: "osm-edits", Partition: 0, Offset: 11, Value: editEvent(2, 1)}
	close(ch)

	if err := g.ConsumeClaim(s, &claim{part: 0, msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 2 || s.marked[0] != 10 || s.marked[1] != 11 {
		t.Fatalf("marked offsets=%v want [10 11]", s.marked)
	}
	if st.calls() != 4 {
		t.Fatalf("expected one DelPrefix per cell per event, got %v", st.prefixes)
	}
	if st.prefixes[0] != keys.CellPrefix("88659b3b8bfffff") {
		t.Fatalf("unexpected prefix %q", st.prefixes[0])
	}
}

func TestRetry_CommitOnceAfterSuccess(t *testing.T) {
	st := &fakeStore{}
	st.failFirst.Store(true)
	c := newConsumerForTest(st)
	ctx := context.Background()

	msg := &sarama.ConsumerMessage{Topic: "osm-edits", Partition: 0, Offset: 5, Value: editEvent(9, 3)}
	if err := c.ProcessOne(ctx, msg); err == nil {
		t.Fatalf("expected error on first attempt")
	}

	// redelivery of the same changeset must not be treated as stale
	s := &sess{ctx: ctx}
	g := &groupHandler{process: c.ProcessOne}
	ch := make(chan *sarama.ConsumerMessage, 1)
	ch <- msg
	close(ch)
	if err := g.ConsumeClaim(s, &claim{part: 0, msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim second attempt: %v", err)
	}
	if len(s.marked) != 1 || s.marked[0] != 5 {
		t.Fatalf("offset was not marked after success; marked=%v", s.marked)
	}
}

func TestMalformedEventsAreSkippedAndMarked(t *testing.T) {
	st := &fakeStore{}
	c := newConsumerForTest(st)
	g := &groupHandler{process: c.ProcessOne}
	s := &sess{ctx: t.Context()}

	ch := make(chan *sarama.ConsumerMessage, 2)
	ch <- &sarama.ConsumerMessage{Topic: "osm-edits", Offset: 1, Value: []byte("{not json")}
	ch <- &sarama.ConsumerMessage{Topic: "osm-edits", Offset: 2, Value: []byte(`{"version":1,"op":"update","ts":"2025-10-26T12:00:00Z"}`)}
	close(ch)

	if err := g.ConsumeClaim(s, &claim{msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 2 || st.calls() != 0 {
		t.Fatalf("marked=%v store calls=%d", s.marked, st.calls())
	}
}

func TestStaleChangesetSkipped(t *testing.T) {
	st := &fakeStore{}
	c := newConsumerForTest(st)
	ctx := context.Background()

	for i, cs := range []uint64{5, 4, 5, 6} {
		msg := &sarama.ConsumerMessage{Offset: int64(i), Value: editEvent(77, cs)}
		if err := c.ProcessOne(ctx, msg); err != nil {
			t.Fatalf("ProcessOne: %v", err)
		}
	}
	// changesets 5 and 6 applied, 4 and the replayed 5 skipped
	if st.calls() != 4 {
		t.Fatalf("store calls=%d want 4", st.calls())
	}
}

func TestMultiPartition_Parallel_NoCrossOrdering(t *testing.T) {
	st := &fakeStore{}
	c := newConsumerForTest(st)
	g := &groupHandler{process: c.ProcessOne}
	s := &sess{ctx: t.Context()}

	p0 := make(chan *sarama.ConsumerMessage, 2)
	p1 := make(chan *sarama.ConsumerMessage, 2)
	p0 <- &sarama.ConsumerMessage{Topic: "t", Partition: 0, Offset: 1, Value: editEvent(0, 0)}
	p0 <- &sarama.ConsumerMessage{Topic: "t", Partition: 0, Offset: 2, Value: editEvent(0, 0)}
	p1 <- &sarama.ConsumerMessage{Topic: "t", Partition: 1, Offset: 1, Value: editEvent(0, 0)}
	p1 <- &sarama.ConsumerMessage{Topic: "t", Partition: 1, Offset: 2, Value: editEvent(0, 0)}
	close(p0)
	close(p1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = g.ConsumeClaim(s, &claim{part: 0, msgs: p0}) }()
	go func() { defer wg.Done(); _ = g.ConsumeClaim(s, &claim{part: 1, msgs: p1}) }()
	wg.Wait()

	if len(s.marked) != 4 {
		t.Fatalf("expected 4 marks total; got %v", s.marked)
	}
}

func TestProcessOne_DropsCachedResolutionsNearEdit(t *testing.T) {
	m, err := cellmap.New(8)
	if err != nil {
		t.Fatalf("cellmap: %v", err)
	}
	st := memstore.New(64, time.Hour)
	ctx := context.Background()

	p := model.Point{Lat: 10.2945, Lon: 123.8847}
	cell, _ := m.CellFor(p)
	inside := keys.Key(cell, model.RawQuery{StreetName: "Rizal St", Point: p})
	far := model.Point{Lat: 14.5995, Lon: 120.9842}
	farCell, _ := m.CellFor(far)
	outside := keys.Key(farCell, model.RawQuery{StreetName: "Rizal St", Point: far})
	for _, k := range []string{inside, outside} {
		if err := st.Set(ctx, k, []byte("{}"), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	c := New(Config{RingK: 1}, nil, st, m)
	if err := c.ProcessOne(ctx, &sarama.ConsumerMessage{Value: editEvent(1, 1)}); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if _, ok, _ := st.Get(ctx, inside); ok {
		t.Fatalf("entry near the edit should be gone")
	}
	if _, ok, _ := st.Get(ctx, outside); !ok {
		t.Fatalf("entry far from the edit must survive")
	}
}
