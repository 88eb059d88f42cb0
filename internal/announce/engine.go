// Package announce turns the tracked threat lists into a single sequence of
// earcons and utterances. It decides what needs (re)announcing, queues the
// announcement jobs of all sources on one audio channel, reference counts
// audio focus and reports when a source becomes all clear.
//
// Every Engine method except SpeechDone and Snapshot must be called from the
// scheduler the engine was created with.
package announce

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jsdx761/nexus/internal/monitoring"
	"github.com/jsdx761/nexus/internal/threat"
	"github.com/jsdx761/nexus/internal/timeutil"
)

// EventKind distinguishes what an Event carries.
type EventKind string

const (
	EventThreats EventKind = "threats"
	EventSpeech  EventKind = "speech"
	EventEarcon  EventKind = "earcon"
)

// Event is published to listeners whenever the merged list changes or a
// sound is played.
type Event struct {
	Kind    EventKind        `json:"kind"`
	Time    time.Time        `json:"time"`
	Threats []*threat.Threat `json:"threats,omitempty"`
	Text    string           `json:"text,omitempty"`
	Earcon  string           `json:"earcon,omitempty"`
	// ID of a speech event, for players reporting completion remotely.
	ID string `json:"id,omitempty"`
}

// Listener receives engine events. Publish is called from the scheduler and
// must not block.
type Listener interface {
	Publish(Event)
}

// action is one audio step: an earcon or an utterance.
type action struct {
	earcon string
	speech string
}

// job is one announcement batch. Its actions play strictly in order and
// nothing else plays until the job is finished.
type job struct {
	name    string
	actions []action
	pos     int
	done    func()
}

// Engine is the announcement state machine.
type Engine struct {
	sched    *timeutil.Scheduler
	player   Player
	focus    *Focus
	settings Settings

	lists    [numSources][]*threat.Threat
	allClear [numSources]bool

	queue       []*job
	active      *job
	speechID    string
	speechTimer *timeutil.Task
	gapTimer    *timeutil.Task

	reminders    [numSources]*timeutil.Task
	allClearTask *timeutil.Task
	listeners    []Listener

	mu       sync.RWMutex
	snapshot []*threat.Threat
}

// NewEngine creates an Engine playing through player and running on sched.
func NewEngine(sched *timeutil.Scheduler, player Player, settings Settings) *Engine {
	e := &Engine{
		sched:    sched,
		player:   player,
		focus:    NewFocus(player),
		settings: settings,
	}
	for i := range e.allClear {
		e.allClear[i] = true
	}
	return e
}

// AddListener registers l. Listeners must be added before Start.
func (e *Engine) AddListener(l Listener) {
	e.listeners = append(e.listeners, l)
}

// Start arms the periodic reminder and all-clear checks.
func (e *Engine) Start() {
	e.scheduleReminder(SourceReports)
	e.scheduleReminder(SourceAircraft)
	e.scheduleAllClear()
	diagf("engine started")
}

// Stop cancels every timer, drops queued jobs and clears the tracked lists.
// Completion callbacks of dropped jobs are not run.
func (e *Engine) Stop() {
	for i := range e.reminders {
		e.reminders[i].Cancel()
		e.reminders[i] = nil
	}
	e.allClearTask.Cancel()
	e.speechTimer.Cancel()
	e.gapTimer.Cancel()
	e.allClearTask, e.speechTimer, e.gapTimer = nil, nil, nil

	if e.active != nil {
		e.focus.Release()
		e.active = nil
	}
	for range e.queue {
		e.focus.Release()
	}
	e.queue = nil
	e.speechID = ""
	for i := range e.lists {
		e.lists[i] = nil
	}
	e.publish()
	diagf("engine stopped")
}

// Tracked returns the tracked list of a source, priority sorted. The slice
// is owned by the engine.
func (e *Engine) Tracked(src Source) []*threat.Threat {
	return e.lists[src]
}

// Busy reports whether an announcement is playing or queued.
func (e *Engine) Busy() bool { return e.active != nil || len(e.queue) > 0 }

// FocusCount returns the audio focus reference count.
func (e *Engine) FocusCount() int { return e.focus.Count() }

// Snapshot returns a copy of the merged list: radar, then reports, then
// aircraft. It is safe to call from any goroutine.
func (e *Engine) Snapshot() []*threat.Threat {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*threat.Threat, len(e.snapshot))
	for i, t := range e.snapshot {
		out[i] = t.Clone()
	}
	return out
}

func (e *Engine) setList(src Source, list []*threat.Threat) []*threat.Threat {
	sorted := append([]*threat.Threat(nil), list...)
	threat.SortByPriority(sorted)
	e.lists[src] = sorted
	monitoring.TrackedThreats.WithLabelValues(src.String()).Set(float64(len(sorted)))
	e.publish()
	return sorted
}

// SetRadar replaces the tracked detector alerts and announces every unmuted
// one. done runs once the announcement finished, or right away when there
// is nothing to announce.
func (e *Engine) SetRadar(list []*threat.Threat, done func()) {
	sorted := e.setList(SourceRadar, list)
	var announces []*threat.Threat
	for _, t := range sorted {
		if !t.Muted {
			t.MarkAnnounced()
			announces = append(announces, t)
		}
	}
	s := e.settings.Radar
	e.enqueue(e.buildJob(SourceRadar, announces, s.MaxSpeech, s.MaxEarcons), done)
}

// SetReports replaces the tracked reports and announces the ones that are
// new or moved enough since their last announcement.
func (e *Engine) SetReports(list []*threat.Threat) {
	e.setLocated(SourceReports, list)
}

// SetAircraft replaces the tracked aircraft and announces the ones that are
// new or moved enough since their last announcement.
func (e *Engine) SetAircraft(list []*threat.Threat) {
	e.setLocated(SourceAircraft, list)
}

func (e *Engine) setLocated(src Source, list []*threat.Threat) {
	sorted := e.setList(src, list)
	if len(sorted) == 0 {
		return
	}
	e.allClear[src] = false

	s := e.settings.source(src)
	var announces []*threat.Threat
	for _, t := range sorted {
		if t.ShouldAnnounce(s.ReminderDistance, s.ReminderBearing) {
			t.MarkAnnounced()
			announces = append(announces, t)
		}
	}
	if len(announces) == 0 {
		return
	}
	e.scheduleReminder(src)
	e.enqueue(e.buildJob(src, announces, s.MaxSpeech, s.MaxEarcons), nil)
}

// AnnounceEvent queues a single utterance, such as an availability change.
func (e *Engine) AnnounceEvent(text string) {
	diagf("event: %s", text)
	e.enqueue(&job{name: "event", actions: []action{{speech: text}}}, nil)
}

// SpeechDone reports completion of the utterance with the given id. It is
// safe to call from any goroutine, including from inside PlaySpeech.
func (e *Engine) SpeechDone(id string) {
	e.sched.Post(func() { e.speechDone(id) })
}

// buildJob lays out the earcon and speech steps for announces, capped at
// maxEarcons earcons and maxSpeech utterances.
func (e *Engine) buildJob(src Source, announces []*threat.Threat, maxSpeech, maxEarcons int) *job {
	j := &job{name: src.String()}
	for i, t := range announces {
		if i < maxEarcons {
			j.actions = append(j.actions, action{earcon: t.Earcon()})
		}
		if i < maxSpeech && (t.Announced <= 1 || t.Class.SpeaksReminders()) {
			j.actions = append(j.actions, action{speech: t.Speech()})
		}
	}
	return j
}

func (e *Engine) enqueue(j *job, done func()) {
	if j == nil || len(j.actions) == 0 {
		if done != nil {
			done()
		}
		return
	}
	j.done = done
	e.focus.Request()
	monitoring.Announcements.WithLabelValues(j.name).Inc()
	e.queue = append(e.queue, j)
	tracef("queued %s job with %d steps, %d pending", j.name, len(j.actions), len(e.queue))
	e.startNext()
}

func (e *Engine) startNext() {
	if e.active != nil || len(e.queue) == 0 {
		return
	}
	e.active = e.queue[0]
	e.queue = e.queue[1:]
	e.advance()
}

// advance plays the next step of the active job, or finishes it.
func (e *Engine) advance() {
	j := e.active
	if j == nil {
		return
	}
	e.gapTimer = nil
	if j.pos >= len(j.actions) {
		e.finish()
		return
	}
	a := j.actions[j.pos]
	j.pos++

	if a.earcon != "" {
		tracef("%s earcon %s", j.name, a.earcon)
		monitoring.Utterances.WithLabelValues("earcon").Inc()
		e.player.PlayEarcon(a.earcon)
		e.emit(Event{Kind: EventEarcon, Earcon: a.earcon})
		e.gapTimer = e.sched.After(e.settings.EarconGap, e.advance)
		return
	}

	id := uuid.NewString()
	e.speechID = id
	e.speechTimer = e.sched.After(e.settings.SpeechTimeout, func() {
		if e.speechID != id {
			return
		}
		opsf("no completion for utterance %s after %v, moving on", id, e.settings.SpeechTimeout)
		monitoring.Utterances.WithLabelValues("timeout").Inc()
		e.speechDone(id)
	})
	tracef("%s speech %q id %s", j.name, a.speech, id)
	monitoring.Utterances.WithLabelValues("speech").Inc()
	e.player.PlaySpeech(a.speech, id)
	e.emit(Event{Kind: EventSpeech, Text: a.speech, ID: id})
}

func (e *Engine) speechDone(id string) {
	if id == "" || id != e.speechID {
		tracef("ignoring completion of stale utterance %s", id)
		return
	}
	e.speechID = ""
	e.speechTimer.Cancel()
	e.speechTimer = nil
	e.advance()
}

func (e *Engine) finish() {
	j := e.active
	e.active = nil
	e.focus.Release()
	tracef("%s job done", j.name)
	if j.done != nil {
		j.done()
	}
	e.startNext()
}

func (e *Engine) scheduleReminder(src Source) {
	e.reminders[src].Cancel()
	e.reminders[src] = nil
	interval := e.settings.source(src).ReminderInterval
	if interval <= 0 {
		return
	}
	e.reminders[src] = e.sched.After(interval, func() { e.remind(src) })
}

// remind plays the earcon of the nearest record of src.
func (e *Engine) remind(src Source) {
	e.reminders[src] = nil
	if list := e.lists[src]; len(list) > 0 {
		tracef("%s reminder", src)
		e.enqueue(e.buildJob(src, list[:1], 0, 1), nil)
	}
	e.scheduleReminder(src)
}

func (e *Engine) scheduleAllClear() {
	if e.settings.AllClearInterval <= 0 {
		return
	}
	e.allClearTask = e.sched.After(e.settings.AllClearInterval, e.checkAllClear)
}

// checkAllClear announces sources whose list emptied since the last check.
func (e *Engine) checkAllClear() {
	if len(e.lists[SourceReports]) == 0 && !e.allClear[SourceReports] {
		e.allClear[SourceReports] = true
		e.AnnounceEvent(fmt.Sprintf("%s alerts are all clear now", e.settings.ReportsSourceName))
	}
	if len(e.lists[SourceAircraft]) == 0 && !e.allClear[SourceAircraft] {
		e.allClear[SourceAircraft] = true
		e.AnnounceEvent("Aircraft alerts are all clear now")
	}
	e.scheduleAllClear()
}

// publish refreshes the snapshot and notifies listeners.
func (e *Engine) publish() {
	var merged []*threat.Threat
	for _, list := range e.lists {
		for _, t := range list {
			merged = append(merged, t.Clone())
		}
	}
	e.mu.Lock()
	e.snapshot = merged
	e.mu.Unlock()
	e.emit(Event{Kind: EventThreats, Threats: merged})
}

func (e *Engine) emit(ev Event) {
	ev.Time = e.sched.Clock().Now()
	for _, l := range e.listeners {
		l.Publish(ev)
	}
}
