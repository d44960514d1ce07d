package fetch

import (
	"fmt"
	"io"

	"github.com/plantmeet/modelserve/internal/artifact"
)

// DefaultReportStep is how many bytes pass between plain progress lines
const DefaultReportStep = 10 << 20

// LineReporter returns a ProgressFunc that prints a line to w each time
// another step bytes have arrived, and once more on completion. It is used
// when output is not a terminal.
func LineReporter(w io.Writer, step int64) ProgressFunc {
	if step <= 0 {
		step = DefaultReportStep
	}
	next := int64(-1)
	finished := false

	return func(done, total int64) {
		if next < 0 {
			// First report: align to the resume point.
			next = done - done%step + step
			if done > 0 {
				_, _ = fmt.Fprintf(w, "resuming at %s\n", describe(done, total))
			}
		}
		complete := total > 0 && done >= total
		if done < next && !complete {
			return
		}
		if complete {
			if finished {
				return
			}
			finished = true
		}
		for next <= done {
			next += step
		}
		_, _ = fmt.Fprintf(w, "downloaded %s\n", describe(done, total))
	}
}

func describe(done, total int64) string {
	if total <= 0 {
		return artifact.FormatSize(done)
	}
	return fmt.Sprintf("%.1f%% (%s / %s)",
		float64(done)*100/float64(total), artifact.FormatSize(done), artifact.FormatSize(total))
}
