package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"vessel-proximity/internal/fetcher"
	"vessel-proximity/internal/metrics"
	"vessel-proximity/internal/model"
	"vessel-proximity/pkg/logger"
)

var testRef = model.ReferencePoint{Latitude: 25.0, Longitude: -80.0}

func frame(mmsi int64, lat, lon float64, ts time.Time) []byte {
	return []byte(fmt.Sprintf(`{"MessageType":"PositionReport","MetaData":{"MMSI":%d,"ShipName":"V%d","time_utc":%q},"Message":{"PositionReport":{"UserID":%d,"Latitude":%v,"Longitude":%v,"Sog":5,"Cog":90,"TrueHeading":90}}}`,
		mmsi, mmsi, ts.UTC().Format("2006-01-02 15:04:05.999999999 -0700 MST"), mmsi, lat, lon))
}

// fakeStream delivers its frames, then blocks until closed. If eof is set
// it fails with io.EOF once the frames are consumed.
type fakeStream struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeStream(eof bool, frames ...[]byte) *fakeStream {
	s := &fakeStream{
		frames: make(chan []byte, len(frames)),
		closed: make(chan struct{}),
	}
	for _, f := range frames {
		s.frames <- f
	}
	if eof {
		close(s.frames)
	}
	return s
}

func (s *fakeStream) Receive() ([]byte, error) {
	select {
	case <-s.closed:
		return nil, errors.New("use of closed network connection")
	default:
	}
	select {
	case f, ok := <-s.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-s.closed:
		return nil, errors.New("use of closed network connection")
	}
}

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// fakeDialer hands out streams in order, then fails every further dial
type fakeDialer struct {
	mu      sync.Mutex
	streams []*fakeStream
	block   bool
	calls   int
	subs    []model.Subscription
}

func (d *fakeDialer) Dial(ctx context.Context, sub model.Subscription) (fetcher.Stream, error) {
	d.mu.Lock()
	d.calls++
	d.subs = append(d.subs, sub)
	if d.block {
		d.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	defer d.mu.Unlock()

	if len(d.streams) == 0 {
		return nil, errors.New("connection refused")
	}
	s := d.streams[0]
	d.streams = d.streams[1:]
	return s, nil
}

func (d *fakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func newTestCollector(d fetcher.StreamDialer, duration time.Duration, maxReconnects int) *Collector {
	return NewCollector(CollectorConfig{
		Reference:      testRef,
		RadiusNM:       25,
		Duration:       duration,
		APIKey:         "key",
		MaxReconnects:  maxReconnects,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	}, d, logger.NewNop(), metrics.NewMetrics())
}

func TestCollectorAggregatesUntilDeadline(t *testing.T) {
	t1 := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	stream := newFakeStream(false,
		frame(123456789, 25.1, -80.1, t1),
		frame(222222222, 25.5, -81.0, t1),
		[]byte(`{"MessageType":"ShipStaticData","Message":{"ShipStaticData":{}}}`),
		[]byte(`not json`),
		frame(123456789, 25.05, -80.05, t1.Add(time.Minute)),
	)
	dialer := &fakeDialer{streams: []*fakeStream{stream}}
	c := newTestCollector(dialer, 150*time.Millisecond, 3)

	start := time.Now()
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("collection overran its window: %v", elapsed)
	}

	if res.State != model.StateClosed || c.State() != model.StateClosed {
		t.Fatalf("expected closed state, got %s", res.State)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 vessel in range, got %d", len(res.Records))
	}
	if got := res.Records[0].Position; got.MMSI != 123456789 || got.Latitude != 25.05 {
		t.Fatalf("expected latest position of 123456789, got %+v", got)
	}

	want := model.CollectorStats{Received: 5, Accepted: 2, OutOfRange: 1, NonPosition: 1, Malformed: 1}
	if res.Stats != want {
		t.Fatalf("expected stats %+v, got %+v", want, res.Stats)
	}

	if len(dialer.subs) != 1 || dialer.subs[0].APIKey != "key" || len(dialer.subs[0].BoundingBoxes) != 1 {
		t.Fatalf("unexpected subscription %+v", dialer.subs)
	}
	box := dialer.subs[0].BoundingBoxes[0]
	if box[0][0] > 25 || box[1][0] < 25 || box[0][1] > -80 || box[1][1] < -80 {
		t.Fatalf("subscription box %v does not contain the reference point", box)
	}
}

func TestCollectorUnresponsiveFeedReturnsOnDeadline(t *testing.T) {
	tests := []struct {
		name   string
		dialer *fakeDialer
	}{
		{"silent stream", &fakeDialer{streams: []*fakeStream{newFakeStream(false)}}},
		{"hanging handshake", &fakeDialer{block: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCollector(tt.dialer, 200*time.Millisecond, 3)

			start := time.Now()
			res, err := c.Run(context.Background())
			elapsed := time.Since(start)

			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if elapsed > 700*time.Millisecond {
				t.Fatalf("expected return shortly after the deadline, took %v", elapsed)
			}
			if res.State != model.StateClosed {
				t.Fatalf("expected closed, got %s", res.State)
			}
			if res.Records == nil || len(res.Records) != 0 {
				t.Fatalf("expected an empty but valid snapshot, got %v", res.Records)
			}
		})
	}
}

func TestCollectorAuthRejected(t *testing.T) {
	stream := newFakeStream(false, []byte(`{"error":"Api Key Is Not Valid"}`))
	dialer := &fakeDialer{streams: []*fakeStream{stream}}
	c := newTestCollector(dialer, 5*time.Second, 3)

	res, err := c.Run(context.Background())
	if !errors.Is(err, fetcher.ErrAuthRejected) {
		t.Fatalf("expected auth rejection, got %v", err)
	}
	if res == nil || res.State != model.StateFailed {
		t.Fatalf("expected failed state, got %+v", res)
	}
	if dialer.Calls() != 1 {
		t.Fatalf("expected no retry after auth rejection, got %d dials", dialer.Calls())
	}
}

func TestCollectorExhaustedReconnectsKeepPartialResults(t *testing.T) {
	t1 := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	first := newFakeStream(true, frame(111111111, 25.1, -80.1, t1))
	dialer := &fakeDialer{streams: []*fakeStream{first}}
	c := newTestCollector(dialer, 5*time.Second, 2)

	start := time.Now()
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("exhausted reconnects must not be fatal, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("expected reconnects to give up well before the window ends")
	}
	if res.State != model.StateFailed {
		t.Fatalf("expected failed state, got %s", res.State)
	}
	if res.Err == nil {
		t.Fatal("expected the last transient error to be reported")
	}
	if len(res.Records) != 1 || res.Records[0].Position.MMSI != 111111111 {
		t.Fatalf("expected partial results to be kept, got %+v", res.Records)
	}
	if res.Stats.Reconnects != 2 {
		t.Fatalf("expected 2 reconnects, got %d", res.Stats.Reconnects)
	}
	if dialer.Calls() != 3 {
		t.Fatalf("expected 3 dial attempts, got %d", dialer.Calls())
	}
}

func TestCollectorReconnectResumes(t *testing.T) {
	t1 := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	first := newFakeStream(true, frame(111111111, 25.1, -80.1, t1))
	second := newFakeStream(false, frame(222222222, 25.2, -80.0, t1))
	dialer := &fakeDialer{streams: []*fakeStream{first, second}}
	c := newTestCollector(dialer, 300*time.Millisecond, 3)

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != model.StateClosed {
		t.Fatalf("expected closed, got %s", res.State)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected records from both sessions, got %d", len(res.Records))
	}
	if res.Stats.Reconnects != 1 {
		t.Fatalf("expected 1 reconnect, got %d", res.Stats.Reconnects)
	}
}

func TestCollectorExternalCancellation(t *testing.T) {
	t1 := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	stream := newFakeStream(false, frame(123456789, 25.1, -80.1, t1))
	dialer := &fakeDialer{streams: []*fakeStream{stream}}
	c := newTestCollector(dialer, 10*time.Second, 3)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	res, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("expected cancellation to end collection promptly")
	}
	if res.State != model.StateClosed {
		t.Fatalf("expected closed, got %s", res.State)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected partial results after cancellation, got %d", len(res.Records))
	}
}

func TestCollectorRunsOnce(t *testing.T) {
	c := newTestCollector(&fakeDialer{streams: []*fakeStream{newFakeStream(false)}}, 20*time.Millisecond, 0)
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := c.Run(context.Background()); err == nil {
		t.Fatal("expected a second run to be refused")
	}
}
