package statusexport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/me/ticksched/internal/logging"
	"github.com/me/ticksched/pkg/model"
)

type fakeWriter struct {
	mu     sync.Mutex
	fail   bool
	writes [][]uint16
	addrs  []uint16
	units  []uint8
	done   chan struct{}
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{done: make(chan struct{}, 16)}
}

func (f *fakeWriter) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	f.mu.Lock()
	defer func() {
		f.mu.Unlock()
		f.done <- struct{}{}
	}()
	if f.fail {
		return errors.New("connection refused")
	}
	f.writes = append(f.writes, regs)
	f.addrs = append(f.addrs, addr)
	f.units = append(f.units, unitID)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func (f *fakeWriter) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for write")
	}
}

func TestEncode(t *testing.T) {
	regs := Encode(model.StatsView{
		Ticks:         0x12345,
		Fires:         7,
		Overruns:      0x1_0000_0003,
		Active:        3,
		PendingAdd:    1,
		PendingRemove: 2,
		Paused:        4,
		Capacity:      70000,
		PendingTicks:  0x2_0000,
	})

	want := map[int]uint16{
		RegTicksHi:       0x0001,
		RegTicksLo:       0x2345,
		RegFiresHi:       0,
		RegFiresLo:       7,
		RegOverrunsHi:    0,
		RegOverrunsLo:    3,
		RegActive:        3,
		RegPendingAdd:    1,
		RegPendingRemove: 2,
		RegPaused:        4,
		RegCapacity:      0xFFFF,
		RegPendingTicks:  0xFFFF,
	}
	if len(regs) != BlockSize || BlockSize != 12 {
		t.Fatalf("len = %d, BlockSize = %d, want 12", len(regs), BlockSize)
	}
	for at, v := range want {
		if regs[at] != v {
			t.Errorf("reg[%d] = %#x, want %#x", at, regs[at], v)
		}
	}
}

func TestPackRegisters(t *testing.T) {
	got := packRegisters([]uint16{0x0102, 0xA0B0})
	want := []byte{0x01, 0x02, 0xA0, 0xB0}
	if string(got) != string(want) {
		t.Errorf("packRegisters = %x, want %x", got, want)
	}
}

func TestOffer_LatestWins(t *testing.T) {
	e := New(newFakeWriter(), Config{}, logging.Discard())
	e.Offer(model.StatsView{Ticks: 1})
	e.Offer(model.StatsView{Ticks: 2})
	e.Offer(model.StatsView{Ticks: 3})

	select {
	case s := <-e.latest:
		if s.Ticks != 3 {
			t.Errorf("ticks = %d, want 3", s.Ticks)
		}
	default:
		t.Fatal("nothing offered")
	}
	select {
	case s := <-e.latest:
		t.Errorf("unexpected second value %+v", s)
	default:
	}
}

func TestRun_WritesAndRecovers(t *testing.T) {
	w := newFakeWriter()
	e := New(w, Config{UnitID: 5, BaseAddr: 100}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()

	w.mu.Lock()
	w.fail = true
	w.mu.Unlock()
	e.Offer(model.StatsView{Ticks: 1})
	w.wait(t)

	w.mu.Lock()
	w.fail = false
	w.mu.Unlock()
	e.Offer(model.StatsView{Ticks: 2, Capacity: 8})
	w.wait(t)

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("run: %v", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(w.writes))
	}
	if w.addrs[0] != 100 || w.units[0] != 5 {
		t.Errorf("addr/unit = %d/%d, want 100/5", w.addrs[0], w.units[0])
	}
	if w.writes[0][RegTicksLo] != 2 || w.writes[0][RegCapacity] != 8 {
		t.Errorf("regs = %v", w.writes[0])
	}
	if e.writes != 1 || e.failed {
		t.Errorf("writes = %d failed = %v", e.writes, e.failed)
	}
}

func TestNewTCPWriter(t *testing.T) {
	if _, err := NewTCPWriter(TCPConfig{}); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	w, err := NewTCPWriter(TCPConfig{Endpoint: "127.0.0.1:1502", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewTCPWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close before connect: %v", err)
	}
}
