package server

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

// fakeProcs simulates processes holding a port.
type fakeProcs struct {
	mu           sync.Mutex
	alive        map[int]bool
	ignoreTerm   map[int]bool
	terminated   []int
	killed       []int
	ownersErr    error
	ownersResult []int
}

func newFakeProcs(pids ...int) *fakeProcs {
	f := &fakeProcs{alive: make(map[int]bool), ignoreTerm: make(map[int]bool)}
	for _, pid := range pids {
		f.alive[pid] = true
	}
	f.ownersResult = pids
	return f
}

func (f *fakeProcs) reclaimer() *PortReclaimer {
	return &PortReclaimer{
		FindOwners: func(ctx context.Context, port int) ([]int, error) {
			return f.ownersResult, f.ownersErr
		},
		Terminate: func(pid int) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.terminated = append(f.terminated, pid)
			if !f.ignoreTerm[pid] {
				f.alive[pid] = false
			}
			return nil
		},
		Kill: func(pid int) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.killed = append(f.killed, pid)
			f.alive[pid] = false
			return nil
		},
		Alive: func(pid int) bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.alive[pid]
		},
		PortFree: func(addr string) bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			for _, up := range f.alive {
				if up {
					return false
				}
			}
			return true
		},
		Grace:        50 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		SelfPID:      1000,
	}
}

func TestPortReclaimer_TerminatesStaleListener(t *testing.T) {
	procs := newFakeProcs(4242)
	pids, err := procs.reclaimer().Reclaim(context.Background(), "", 8001)
	if err != nil {
		t.Fatalf("Reclaim() error = %v", err)
	}
	if !reflect.DeepEqual(pids, []int{4242}) {
		t.Errorf("pids = %v, want [4242]", pids)
	}
	if !reflect.DeepEqual(procs.terminated, []int{4242}) {
		t.Errorf("terminated = %v", procs.terminated)
	}
	if len(procs.killed) != 0 {
		t.Errorf("killed = %v, SIGTERM should have been enough", procs.killed)
	}
}

func TestPortReclaimer_KillsAfterGrace(t *testing.T) {
	procs := newFakeProcs(4242)
	procs.ignoreTerm[4242] = true

	pids, err := procs.reclaimer().Reclaim(context.Background(), "", 8001)
	if err != nil {
		t.Fatalf("Reclaim() error = %v", err)
	}
	if !reflect.DeepEqual(pids, []int{4242}) {
		t.Errorf("pids = %v", pids)
	}
	if !reflect.DeepEqual(procs.killed, []int{4242}) {
		t.Errorf("killed = %v, want [4242]", procs.killed)
	}
}

func TestPortReclaimer_SkipsSelf(t *testing.T) {
	procs := newFakeProcs(1000)
	pids, err := procs.reclaimer().Reclaim(context.Background(), "", 8001)
	if err != nil {
		t.Fatalf("Reclaim() error = %v", err)
	}
	if len(pids) != 0 || len(procs.terminated) != 0 {
		t.Errorf("own process was signalled: pids=%v terminated=%v", pids, procs.terminated)
	}
}

func TestPortReclaimer_NoOwners(t *testing.T) {
	procs := newFakeProcs()
	pids, err := procs.reclaimer().Reclaim(context.Background(), "", 8001)
	if err != nil || pids != nil {
		t.Errorf("Reclaim() = %v, %v; want nil, nil", pids, err)
	}
}

func TestPortReclaimer_LookupFailure(t *testing.T) {
	procs := newFakeProcs()
	procs.ownersErr = errors.New("lsof: not found")

	if _, err := procs.reclaimer().Reclaim(context.Background(), "", 8001); err == nil {
		t.Error("Reclaim() should fail when owners cannot be listed")
	}
}

func TestPortReclaimer_PortStaysBusy(t *testing.T) {
	procs := newFakeProcs(4242)
	r := procs.reclaimer()
	r.PortFree = func(string) bool { return false }

	if _, err := r.Reclaim(context.Background(), "", 8001); err == nil {
		t.Error("Reclaim() should fail when the port never frees up")
	}
}

func TestParsePIDList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"single", "123\n", []int{123}, false},
		{"sorted and deduplicated", "9\n3\n9\n\n5\n", []int{3, 5, 9}, false},
		{"surrounding whitespace", "  42  \n", []int{42}, false},
		{"garbage", "12\nabc\n", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePIDList(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePIDList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePIDList() = %v, want %v", got, tt.want)
			}
		})
	}
}
