package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"pan123/pkg/types"
)

// prompter asks questions on the terminal. Transfers run on pool workers,
// so questions are serialised. While a shell serves the prompter, one
// goroutine owns input and worker questions are answered from the shell's
// read loop instead of racing it for the next line.
type prompter struct {
	mu    sync.Mutex
	in    *bufio.Reader
	out   io.Writer
	atEOF bool

	lines     chan inputLine
	questions chan question
	stopped   chan struct{}
}

type inputLine struct {
	text string
	eof  bool
}

type question struct {
	text  string
	reply chan string
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// ask prints question and returns the trimmed answer. EOF reads as empty.
// It must not be called from the goroutine running serve's read loop.
func (p *prompter) ask(text string) string {
	p.mu.Lock()
	if p.questions != nil {
		questions, stopped := p.questions, p.stopped
		p.mu.Unlock()
		q := question{text: text, reply: make(chan string, 1)}
		select {
		case questions <- q:
			return <-q.reply
		case <-stopped:
			return ""
		}
	}
	defer p.mu.Unlock()
	fmt.Fprint(p.out, text)
	return p.readLocked()
}

func (p *prompter) readLocked() string {
	if p.lines != nil {
		l, ok := <-p.lines
		p.atEOF = !ok || l.eof
		return strings.TrimSpace(l.text)
	}
	line, err := p.in.ReadString('\n')
	p.atEOF = err == io.EOF
	return strings.TrimSpace(line)
}

// serve hands input to a background reader so command reads can be
// interleaved with questions from workers. The returned func stops serving;
// questions still pending then read as empty.
func (p *prompter) serve() (stop func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lines == nil {
		lines := make(chan inputLine)
		go func(in *bufio.Reader) {
			defer close(lines)
			for {
				line, err := in.ReadString('\n')
				lines <- inputLine{text: line, eof: err != nil}
				if err != nil {
					return
				}
			}
		}(p.in)
		p.lines = lines
	}
	p.questions = make(chan question)
	p.stopped = make(chan struct{})
	stopped := p.stopped

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			close(stopped)
			p.questions = nil
		})
	}
}

// command reads one command line for the shell. Worker questions that
// arrive while it waits are printed and answered with the next line, then
// the prompt is shown again.
func (p *prompter) command(prompt string) string {
	p.mu.Lock()
	lines, questions := p.lines, p.questions
	p.mu.Unlock()
	if lines == nil {
		return p.ask(prompt)
	}

	fmt.Fprint(p.out, prompt)
	for {
		select {
		case l, ok := <-lines:
			p.setEOF(!ok || l.eof)
			return strings.TrimSpace(l.text)
		case q := <-questions:
			fmt.Fprint(p.out, "\n"+q.text)
			l, ok := <-lines
			p.setEOF(!ok || l.eof)
			q.reply <- strings.TrimSpace(l.text)
			if !ok || l.eof {
				return ""
			}
			fmt.Fprint(p.out, prompt)
		}
	}
}

func (p *prompter) setEOF(eof bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.atEOF = eof
}

// eof reports whether input ended during the last read.
func (p *prompter) eof() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.atEOF
}

func (p *prompter) confirmOverwrite(ctx context.Context, path string) bool {
	answer := strings.ToLower(p.ask(fmt.Sprintf("%s already exists. Overwrite? [y/N] ", path)))
	return answer == "y" || answer == "yes"
}

func (p *prompter) resolveConflict(ctx context.Context, name string) (types.DuplicatePolicy, bool) {
	answer := strings.ToLower(p.ask(fmt.Sprintf("%q already exists remotely. [o]verwrite, [k]eep both, [s]kip? ", name)))
	switch answer {
	case "o", "overwrite":
		return types.DuplicateOverwrite, true
	case "k", "keep", "keep-both", "keep both":
		return types.DuplicateKeepBoth, true
	default:
		return types.DuplicateFail, false
	}
}

func parsePolicy(s string) (types.DuplicatePolicy, error) {
	switch strings.ToLower(s) {
	case "", "ask", "fail":
		return types.DuplicateFail, nil
	case "overwrite":
		return types.DuplicateOverwrite, nil
	case "keep-both", "keep":
		return types.DuplicateKeepBoth, nil
	default:
		return 0, fmt.Errorf("unknown duplicate policy %q (use ask, overwrite or keep-both)", s)
	}
}
