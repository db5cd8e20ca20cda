package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// progressPrinter keeps a single status line updated while sources settle.
type progressPrinter struct {
	out      io.Writer
	total    int
	name     string
	mu       sync.Mutex
	ok       int
	fail     int
	last     string
	duration time.Duration
	updates  chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	started  bool
	stopOnce sync.Once
}

func newProgressPrinter(out io.Writer, total int, name string) *progressPrinter {
	if total <= 0 {
		total = 1
	}
	return &progressPrinter{
		out:     out,
		total:   total,
		name:    name,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (p *progressPrinter) Start() {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	go p.loop()
}

// Increment records one settled source. Safe for concurrent use.
func (p *progressPrinter) Increment(source string, success bool, elapsed time.Duration) {
	p.mu.Lock()
	if success {
		p.ok++
	} else {
		p.fail++
	}
	p.last = source
	p.duration += elapsed
	p.mu.Unlock()

	select {
	case p.updates <- struct{}{}:
	default:
	}
}

// Stop ends the refresh loop and leaves the final line on screen.
func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		started := p.started
		p.mu.Unlock()
		if started {
			<-p.stopped
		}
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 80))
		p.print()
		fmt.Fprintln(p.out)
	})
}

func (p *progressPrinter) loop() {
	defer close(p.stopped)
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.updates:
			p.print()
		case <-ticker.C:
			p.print()
		case <-p.done:
			return
		}
	}
}

func (p *progressPrinter) print() {
	p.mu.Lock()
	ok, fail, last, dur := p.ok, p.fail, p.last, p.duration
	p.mu.Unlock()

	completed := ok + fail
	total := p.total
	if completed > total {
		total = completed
	}

	percent := (float64(completed) / float64(total)) * 100
	avg := 0.0
	if completed > 0 {
		avg = dur.Seconds() / float64(completed)
	}

	line := fmt.Sprintf("\r[%s] Sources: %d/%d (%.1f%%) OK:%d Fail:%d Avg:%.2fs",
		p.name, completed, total, percent, ok, fail, avg)
	if last != "" {
		line += " Last:" + last
	}
	fmt.Fprint(p.out, line)
}
