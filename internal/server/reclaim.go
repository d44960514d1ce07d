package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/plantmeet/modelserve/internal/logging"
)

const (
	// DefaultReclaimGrace is how long a stale listener gets to exit after
	// SIGTERM before it is killed.
	DefaultReclaimGrace = 2 * time.Second

	defaultReclaimPoll = 100 * time.Millisecond
)

// PortReclaimer frees a TCP port held by a stale process before the server
// binds it. It is best effort: the port may be taken again between reclaim
// and bind, and the server does not retry.
type PortReclaimer struct {
	// FindOwners returns the PIDs listening on port.
	FindOwners func(ctx context.Context, port int) ([]int, error)

	// Terminate asks pid to exit (SIGTERM); Kill forces it (SIGKILL).
	Terminate func(pid int) error
	Kill      func(pid int) error

	// Alive reports whether pid still exists.
	Alive func(pid int) bool

	// PortFree reports whether addr can be bound right now.
	PortFree func(addr string) bool

	// Grace bounds each wait for the port to become free.
	Grace time.Duration

	// PollInterval is the wait between PortFree checks.
	PollInterval time.Duration

	// SelfPID is never signalled.
	SelfPID int
}

// NewPortReclaimer returns a reclaimer backed by lsof and POSIX signals.
func NewPortReclaimer() *PortReclaimer {
	return &PortReclaimer{
		FindOwners:   LsofOwners,
		Terminate:    terminateProcess,
		Kill:         killProcess,
		Alive:        processAlive,
		PortFree:     portFree,
		Grace:        DefaultReclaimGrace,
		PollInterval: defaultReclaimPoll,
		SelfPID:      os.Getpid(),
	}
}

// Reclaim terminates every foreign process listening on host:port and waits
// for the port to become bindable. It returns the PIDs it signalled.
func (p *PortReclaimer) Reclaim(ctx context.Context, host string, port int) ([]int, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	owners, err := p.FindOwners(ctx, port)
	if err != nil {
		return nil, fmt.Errorf("failed to find processes on port %d: %w", port, err)
	}

	pids := make([]int, 0, len(owners))
	for _, pid := range owners {
		if pid <= 0 || pid == p.SelfPID {
			continue
		}
		pids = append(pids, pid)
	}
	if len(pids) == 0 {
		return nil, nil
	}

	for _, pid := range pids {
		logging.Warn("Terminating stale process holding port",
			zap.Int("pid", pid),
			zap.Int("port", port),
		)
		if err := p.Terminate(pid); err != nil && p.Alive(pid) {
			logging.Warn("Failed to signal process", zap.Int("pid", pid), zap.Error(err))
		}
	}

	if p.waitFree(ctx, addr) {
		return pids, nil
	}

	for _, pid := range pids {
		if !p.Alive(pid) {
			continue
		}
		logging.Warn("Process ignored SIGTERM, killing", zap.Int("pid", pid))
		if err := p.Kill(pid); err != nil && p.Alive(pid) {
			return pids, fmt.Errorf("failed to kill pid %d: %w", pid, err)
		}
	}

	if !p.waitFree(ctx, addr) {
		return pids, fmt.Errorf("port %d still busy after terminating %v", port, pids)
	}
	return pids, nil
}

// waitFree polls PortFree until it succeeds, Grace elapses or ctx ends.
func (p *PortReclaimer) waitFree(ctx context.Context, addr string) bool {
	grace := p.Grace
	if grace <= 0 {
		grace = DefaultReclaimGrace
	}
	poll := p.PollInterval
	if poll <= 0 {
		poll = defaultReclaimPoll
	}

	deadline := time.Now().Add(grace)
	for {
		if p.PortFree(addr) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(poll):
		}
	}
}

// LsofOwners lists PIDs with a TCP listener on port using lsof.
func LsofOwners(ctx context.Context, port int) ([]int, error) {
	cmd := exec.CommandContext(ctx, "lsof", "-t", "-n", "-P", fmt.Sprintf("-iTCP:%d", port), "-sTCP:LISTEN")
	out, err := cmd.Output()
	if err != nil {
		// lsof exits 1 with no output when nothing matches.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(strings.TrimSpace(string(out))) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("lsof failed: %w", err)
	}
	return ParsePIDList(string(out))
}

// ParsePIDList parses newline separated PIDs, dropping blanks and duplicates.
func ParsePIDList(s string) ([]int, error) {
	seen := make(map[int]bool)
	var pids []int

	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("invalid pid %q: %w", line, err)
		}
		if !seen[pid] {
			seen[pid] = true
			pids = append(pids, pid)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.Ints(pids)
	return pids, nil
}

func portFree(addr string) bool {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
