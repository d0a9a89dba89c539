// Package timeline records nested phase timings for the build report.
package timeline

import (
	"fmt"
	"strings"
	"time"
)

// Phase is a tagged time interval. Subphase intervals are contained in their
// parent's and timestamps come from the monotonic clock.
type Phase struct {
	Tag      string
	Start    time.Time
	Children []*Phase
	End      time.Time
}

func (p *Phase) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Timeline tracks an open stack of phases. It is owned by the driver
// goroutine only; workers never touch it.
type Timeline struct {
	root  *Phase
	stack []*Phase
}

// New opens the root phase wrapping the entire build.
func New(tag string) *Timeline {
	root := &Phase{Tag: tag, Start: time.Now()}
	return &Timeline{root: root, stack: []*Phase{root}}
}

// Phase records the wall-clock duration of fn and any nested Phase calls made
// within it.
func (t *Timeline) Phase(tag string, fn func() error) error {
	p := &Phase{Tag: tag, Start: time.Now()}
	top := t.stack[len(t.stack)-1]
	top.Children = append(top.Children, p)
	t.stack = append(t.stack, p)

	err := fn()

	p.End = time.Now()
	t.stack = t.stack[:len(t.stack)-1]
	return err
}

// Finish closes the root phase and returns the completed tree.
func (t *Timeline) Finish() *Phase {
	t.root.End = time.Now()
	return t.root
}

// Render emits one line per phase, "<percent>% - <tag>" indented by depth.
// Percent is relative to the parent phase's duration, truncated to an
// integer; the root renders as 100%.
func Render(root *Phase) string {
	var b strings.Builder
	renderPhase(&b, root, root.Duration(), 0)
	return b.String()
}

func renderPhase(b *strings.Builder, p *Phase, parentDur time.Duration, depth int) {
	percent := 100
	if parentDur > 0 {
		percent = int(100 * p.Duration() / parentDur)
	}
	fmt.Fprintf(b, "%s%d%% - %s\n", strings.Repeat("  ", depth), percent, p.Tag)
	for _, child := range p.Children {
		renderPhase(b, child, p.Duration(), depth+1)
	}
}
