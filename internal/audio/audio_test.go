package audio

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jsdx761/nexus/internal/announce"
	"github.com/jsdx761/nexus/internal/timeutil"
)

var _ announce.Player = (*Console)(nil)
var _ announce.Player = Remote{}

// TestConsoleCompletesAfterWords checks that an utterance holds the engine
// for its word count times the word delay.
func TestConsoleCompletesAfterWords(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	sched := timeutil.NewScheduler(clock)
	var out bytes.Buffer
	player := NewConsole(&out, sched, 100*time.Millisecond)
	engine := announce.NewEngine(sched, player, announce.DefaultSettings())
	player.SetCompleter(engine)

	engine.AnnounceEvent("Network is offline")
	sched.RunDue()
	assert.True(t, player.Focused())
	assert.True(t, engine.Busy())

	clock.Advance(200 * time.Millisecond)
	sched.RunDue()
	assert.True(t, engine.Busy(), "three words take 300ms")

	clock.Advance(100 * time.Millisecond)
	sched.RunDue()
	assert.False(t, engine.Busy())
	assert.False(t, player.Focused())
	assert.Equal(t, "audio: focus\naudio: say \"Network is offline\"\naudio: release\n", out.String())
}

func TestConsoleImmediate(t *testing.T) {
	sched := timeutil.NewScheduler(timeutil.NewMockClock(time.Now()))
	var out bytes.Buffer
	player := NewConsole(&out, sched, 0)
	engine := announce.NewEngine(sched, player, announce.DefaultSettings())
	player.SetCompleter(engine)

	engine.AnnounceEvent("Location is off")
	sched.RunDue()
	assert.False(t, engine.Busy())

	player.PlayEarcon("[s5]")
	assert.Contains(t, out.String(), "audio: earcon [s5]\n")
}

type recorder struct{ ids []string }

func (r *recorder) SpeechDone(id string) { r.ids = append(r.ids, id) }

func TestConsoleWithoutScheduler(t *testing.T) {
	var out bytes.Buffer
	rec := &recorder{}
	player := NewConsole(&out, nil, time.Second)
	player.PlaySpeech("Laser", "a")
	assert.Empty(t, rec.ids, "no completer set yet")

	player.SetCompleter(rec)
	player.PlaySpeech("Laser", "b")
	assert.Equal(t, []string{"b"}, rec.ids)
}
