package transfer

import "sync"

// Progress accumulates bytes from concurrent workers. The counter is the
// only state shared between workers of one transfer.
type Progress struct {
	mu     sync.Mutex
	done   int64
	total  int64
	report func(done, total int64)
}

// NewProgress creates an accumulator for total bytes. report may be nil.
func NewProgress(total int64, report func(done, total int64)) *Progress {
	return &Progress{total: total, report: report}
}

// Add records n more bytes and reports the new aggregate.
func (p *Progress) Add(n int64) {
	p.mu.Lock()
	p.done += n
	done := p.done
	p.mu.Unlock()

	if p.report != nil {
		p.report(done, p.total)
	}
}

// Done returns the bytes recorded so far.
func (p *Progress) Done() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Progress) Total() int64 { return p.total }
