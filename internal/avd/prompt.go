// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"bytes"
	"io"
)

// Prompt pairs a question the SDK tool prints with the line we type back.
type Prompt struct {
	Question string
	Answer   string
}

var (
	licensePrompt = Prompt{Question: "Do you accept the license", Answer: "y"}
	profilePrompt = Prompt{Question: "Do you wish to create a custom hardware profile", Answer: "no"}
)

type AnswerState int

const (
	// AnswerWaiting means the question has not shown up yet.
	AnswerWaiting AnswerState = iota
	// AnswerAnswered means at least one occurrence has been answered.
	AnswerAnswered
)

func (s AnswerState) String() string {
	if s == AnswerAnswered {
		return "answered"
	}
	return "waiting"
}

// Answerer scans tool output for a prompt and writes the answer to the tool's stdin.
// Each occurrence is answered once, including occurrences split across chunks.
type Answerer struct {
	prompt   Prompt
	stdin    io.Writer
	pending  []byte
	state    AnswerState
	answered int
	err      error
}

func NewAnswerer(prompt Prompt, stdin io.Writer) *Answerer {
	return &Answerer{prompt: prompt, stdin: stdin}
}

// Write feeds one chunk of output. It never fails so the output pipe keeps draining;
// stdin write failures are kept in Err.
func (a *Answerer) Write(chunk []byte) (int, error) {
	question := []byte(a.prompt.Question)
	if len(question) == 0 {
		return len(chunk), nil
	}
	a.pending = append(a.pending, chunk...)
	for {
		idx := bytes.Index(a.pending, question)
		if idx < 0 {
			break
		}
		a.pending = a.pending[idx+len(question):]
		a.answer()
	}
	if keep := len(question) - 1; len(a.pending) > keep {
		a.pending = append([]byte(nil), a.pending[len(a.pending)-keep:]...)
	}
	return len(chunk), nil
}

func (a *Answerer) answer() {
	a.state = AnswerAnswered
	a.answered++
	if _, err := io.WriteString(a.stdin, a.prompt.Answer+"\n"); err != nil && a.err == nil {
		a.err = err
	}
}

func (a *Answerer) State() AnswerState { return a.state }

// Answered counts the prompts answered so far.
func (a *Answerer) Answered() int { return a.answered }

func (a *Answerer) Err() error { return a.err }
