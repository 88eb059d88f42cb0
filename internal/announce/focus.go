package announce

// Player is the audio collaborator. Playback is asynchronous: PlaySpeech
// returns immediately and the player later reports completion through
// Engine.SpeechDone with the same utterance id, even when playback failed.
type Player interface {
	RequestFocus()
	AbandonFocus()
	PlayEarcon(id string)
	PlaySpeech(text, utteranceID string)
}

// Focus reference counts audio focus so that overlapping announcement jobs
// share one claim on the output channel. The player is only asked to
// acquire focus on the 0 to 1 transition and to abandon it on 1 to 0.
// Focus is owned by the engine and only touched from its scheduler.
type Focus struct {
	player Player
	count  int
}

// NewFocus creates a Focus for player.
func NewFocus(player Player) *Focus {
	return &Focus{player: player}
}

// Request takes a reference on audio focus.
func (f *Focus) Request() {
	f.count++
	if f.count == 1 {
		tracef("requesting audio focus")
		f.player.RequestFocus()
	}
}

// Release drops a reference. Excess releases are ignored.
func (f *Focus) Release() {
	if f.count == 0 {
		diagf("ignoring audio focus release with no holder")
		return
	}
	f.count--
	if f.count == 0 {
		tracef("abandoning audio focus")
		f.player.AbandonFocus()
	}
}

// Count returns the number of references held.
func (f *Focus) Count() int { return f.count }
