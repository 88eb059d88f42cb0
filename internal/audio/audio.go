// Package audio provides the players the announcement engine speaks
// through. Console prints earcons and utterances; Remote leaves playback to
// an external text-to-speech client that reports completion over the API.
package audio

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jsdx761/nexus/internal/timeutil"
)

// Completer receives utterance completions. *announce.Engine satisfies it.
type Completer interface {
	SpeechDone(id string)
}

// Console writes every audio step to a writer and completes each utterance
// after a delay proportional to its word count.
type Console struct {
	out       io.Writer
	sched     *timeutil.Scheduler
	wordDelay time.Duration

	mu      sync.Mutex
	done    Completer
	focused bool
}

// NewConsole creates a Console writing to out. Utterances take wordDelay
// per word; zero completes them immediately.
func NewConsole(out io.Writer, sched *timeutil.Scheduler, wordDelay time.Duration) *Console {
	return &Console{out: out, sched: sched, wordDelay: wordDelay}
}

// SetCompleter sets who is told when an utterance finishes. It must be set
// before the first PlaySpeech.
func (c *Console) SetCompleter(done Completer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = done
}

// Focused reports whether the console currently holds audio focus.
func (c *Console) Focused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

func (c *Console) RequestFocus() {
	c.setFocus(true)
	fmt.Fprintln(c.out, "audio: focus")
}

func (c *Console) AbandonFocus() {
	c.setFocus(false)
	fmt.Fprintln(c.out, "audio: release")
}

func (c *Console) setFocus(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focused = on
}

func (c *Console) PlayEarcon(id string) {
	fmt.Fprintf(c.out, "audio: earcon %s\n", id)
}

func (c *Console) PlaySpeech(text, utteranceID string) {
	fmt.Fprintf(c.out, "audio: say %q\n", text)
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return
	}
	d := time.Duration(len(strings.Fields(text))) * c.wordDelay
	if d <= 0 || c.sched == nil {
		done.SpeechDone(utteranceID)
		return
	}
	c.sched.After(d, func() { done.SpeechDone(utteranceID) })
}

// Remote plays nothing itself. A client subscribed to the speech events
// speaks them and posts the completion back; the engine's speech timeout
// covers clients that never answer.
type Remote struct{}

func (Remote) RequestFocus()             {}
func (Remote) AbandonFocus()             {}
func (Remote) PlayEarcon(string)         {}
func (Remote) PlaySpeech(string, string) {}
