// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package ui renders romloader progress events, either as a Bubble Tea
// progress bar on a terminal or as plain lines elsewhere.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Thermoquad/romloader/pkg/romloader"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Reporter consumes progress events from a running operation.
type Reporter interface {
	Update(p romloader.Progress)
	// Finish ends the display. It must be called exactly once.
	Finish(err error)
}

// NewReporter returns a bar renderer when out is a terminal and fancy is
// true, otherwise a line based reporter. interrupt is called if the user
// presses Ctrl+C while the bar is shown.
func NewReporter(out *os.File, fancy bool, title string, interrupt func()) Reporter {
	if fancy && term.IsTerminal(int(out.Fd())) {
		return newBarReporter(out, title, interrupt)
	}
	return NewTextReporter(out)
}

// Messages
type progressMsg romloader.Progress
type finishMsg struct{ err error }

type progressModel struct {
	title     string
	bar       progress.Model
	phase     romloader.Phase
	done      int
	total     int
	err       error
	finished  bool
	interrupt func()
}

func newProgressModel(title string, interrupt func()) progressModel {
	return progressModel{
		title:     title,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		interrupt: interrupt,
	}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.interrupt != nil {
			m.interrupt()
		}

	case tea.WindowSizeMsg:
		width := msg.Width - 40
		if width < 20 {
			width = 20
		}
		if width > 60 {
			width = 60
		}
		m.bar.Width = width

	case progressMsg:
		m.phase = msg.Phase
		m.done = msg.Done
		m.total = msg.Total

	case finishMsg:
		m.err = msg.err
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}

func (m progressModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	p := float64(m.done) / float64(m.total)
	if p > 1 {
		p = 1
	}
	return p
}

func (m progressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if m.phase != "" {
		b.WriteString(labelStyle.Render(string(m.phase)))
		b.WriteString(" ")
		b.WriteString(m.bar.ViewAs(m.percent()))
		b.WriteString(" ")
		if m.total > 0 {
			b.WriteString(countStyle.Render(fmt.Sprintf("%d/%d", m.done, m.total)))
		} else {
			b.WriteString(countStyle.Render(fmt.Sprintf("%d", m.done)))
		}
		b.WriteString("\n")
	}

	switch {
	case m.finished && m.err != nil:
		b.WriteString("\n" + errorStyle.Render("Aborted.") + "\n")
	case m.finished:
		b.WriteString("\n" + successStyle.Render("Done.") + "\n")
	default:
		b.WriteString("\n" + helpStyle.Render("ctrl+c: stop after the current command") + "\n")
	}

	return b.String()
}

// barReporter drives a Bubble Tea program from the operation goroutine.
type barReporter struct {
	program  *tea.Program
	done     chan struct{}
	throttle throttle
}

func newBarReporter(out io.Writer, title string, interrupt func()) *barReporter {
	r := &barReporter{
		program: tea.NewProgram(newProgressModel(title, interrupt), tea.WithOutput(out)),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return r
}

func (r *barReporter) Update(p romloader.Progress) {
	if r.throttle.pass(p) {
		r.program.Send(progressMsg(p))
	}
}

func (r *barReporter) Finish(err error) {
	r.program.Send(progressMsg(r.throttle.last))
	r.program.Send(finishMsg{err: err})
	<-r.done
}

// TextReporter prints one line per phase and per 10% step.
type TextReporter struct {
	mu       sync.Mutex
	out      io.Writer
	phase    romloader.Phase
	lastStep int
}

// NewTextReporter creates a TextReporter writing to out.
func NewTextReporter(out io.Writer) *TextReporter {
	return &TextReporter{out: out, lastStep: -1}
}

func (r *TextReporter) Update(p romloader.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.Phase != r.phase {
		r.phase = p.Phase
		r.lastStep = -1
		fmt.Fprintf(r.out, "%s...\n", capitalize(string(p.Phase)))
	}
	if p.Total <= 0 {
		return
	}

	step := p.Done * 10 / p.Total
	if step != r.lastStep {
		r.lastStep = step
		fmt.Fprintf(r.out, "  %3d%% (%d/%d)\n", step*10, p.Done, p.Total)
	}
}

func (r *TextReporter) Finish(err error) {}

// throttle drops events that would not change the rendered bar.
type throttle struct {
	last     romloader.Progress
	permille int
}

func (t *throttle) pass(p romloader.Progress) bool {
	permille := 0
	if p.Total > 0 {
		permille = p.Done * 1000 / p.Total
	}
	changed := p.Phase != t.last.Phase || permille != t.permille || p.Total == 0
	t.last = p
	t.permille = permille
	return changed
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
