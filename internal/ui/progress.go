package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/plantmeet/modelserve/internal/artifact"
)

// ProgressMsg reports bytes on disk out of the total size. Total is 0 when
// the size is unknown.
type ProgressMsg struct {
	Done  int64
	Total int64
}

// FinishedMsg ends the progress display.
type FinishedMsg struct {
	Err error
}

// DownloadModel is a Bubble Tea model showing a byte-count progress bar.
type DownloadModel struct {
	Label string

	bar         progress.Model
	done        int64
	total       int64
	resumedFrom int64
	started     time.Time
	now         func() time.Time

	finished    bool
	interrupted bool
	err         error
}

// NewDownloadModel creates a progress model with the given label
func NewDownloadModel(label string) DownloadModel {
	return DownloadModel{
		Label:       label,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		resumedFrom: -1,
		started:     time.Now(),
		now:         time.Now,
	}
}

// Init implements tea.Model
func (m DownloadModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m DownloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.interrupted = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = barWidth(msg.Width)
	case ProgressMsg:
		if m.resumedFrom < 0 {
			m.resumedFrom = msg.Done
		}
		m.done = msg.Done
		m.total = msg.Total
	case FinishedMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model
func (m DownloadModel) View() string {
	var b strings.Builder
	b.WriteString(ProgressLabelStyle.Render(m.Label))
	b.WriteString("\n\n  ")
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("  ")
	b.WriteString(ProgressStatsStyle.Render(m.Stats()))
	b.WriteString("\n")
	return b.String()
}

// Percent returns completion in [0, 1]; 0 when the total is unknown.
func (m DownloadModel) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	p := float64(m.done) / float64(m.total)
	if p > 1 {
		p = 1
	}
	return p
}

// Stats renders "1.20 GiB / 4.10 GiB  12.5 MiB/s".
func (m DownloadModel) Stats() string {
	s := artifact.FormatSize(m.done)
	if m.total > 0 {
		s += " / " + artifact.FormatSize(m.total)
	}
	if rate := m.Rate(); rate > 0 {
		s += fmt.Sprintf("  %s/s", artifact.FormatSize(int64(rate)))
	}
	return s
}

// Rate returns bytes per second transferred in this session, excluding the
// bytes already on disk when the first report arrived.
func (m DownloadModel) Rate() float64 {
	elapsed := m.now().Sub(m.started).Seconds()
	if elapsed <= 0 || m.resumedFrom < 0 {
		return 0
	}
	return float64(m.done-m.resumedFrom) / elapsed
}

// Interrupted reports whether the user pressed Ctrl+C.
func (m DownloadModel) Interrupted() bool {
	return m.interrupted
}

func barWidth(termWidth int) int {
	w := termWidth - 40 // Room for the byte counters
	if w < 20 {
		w = 20
	}
	if w > 60 {
		w = 60
	}
	return w
}

// ProgressFunc receives progress updates from a long-running operation.
type ProgressFunc func(done, total int64)

// RunWithProgress runs op while rendering a progress bar to out. Ctrl+C
// cancels the context passed to op. The error returned is op's.
func RunWithProgress(ctx context.Context, label string, out io.Writer, op func(ctx context.Context, onProgress ProgressFunc) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewDownloadModel(label), tea.WithOutput(out))

	errCh := make(chan error, 1)
	go func() {
		err := op(ctx, func(done, total int64) {
			p.Send(ProgressMsg{Done: done, Total: total})
		})
		errCh <- err
		p.Send(FinishedMsg{Err: err})
	}()

	_, runErr := p.Run()
	cancel()
	opErr := <-errCh
	if opErr != nil {
		return opErr
	}
	return runErr
}
