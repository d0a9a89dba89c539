package build

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/abadi199/elm-make/internal/project"
)

// Progress logs compile completions, throttled so large builds do not flood
// the log. It is only touched from the driver goroutine.
type Progress struct {
	limiter *rate.Limiter
	total   int
	done    int
}

// NewProgress creates a reporter for a build of total modules, emitting at
// most a few lines per second plus an unconditional final summary.
func NewProgress(total int) *Progress {
	return &Progress{
		limiter: rate.NewLimiter(rate.Limit(4), 1),
		total:   total,
	}
}

func (p *Progress) Completed(id project.ModuleID) {
	if p == nil {
		return
	}
	p.done++
	if p.done == p.total || p.limiter.AllowN(time.Now(), 1) {
		slog.Info("compiled", "module", id.Name, "done", p.done, "total", p.total)
	}
}

func (p *Progress) Done() int {
	if p == nil {
		return 0
	}
	return p.done
}
