// Package player holds the single playback session of a client: what is
// playing, where in the track it is, the volume, and the queue that
// next/previous walk.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tunebox/tunebox/models"
)

// ErrClosed is returned by transport calls after Close.
var ErrClosed = errors.New("player: session closed")

// EventKind names a notification from the audio primitive.
type EventKind int

const (
	TimeUpdate EventKind = iota
	MetadataLoaded
	Ended
)

func (k EventKind) String() string {
	switch k {
	case TimeUpdate:
		return "timeupdate"
	case MetadataLoaded:
		return "loadedmetadata"
	case Ended:
		return "ended"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a notification from the audio primitive. Value is the elapsed
// time for TimeUpdate and the duration for MetadataLoaded, in seconds. Seq
// is the load generation of the track the event is about.
type Event struct {
	Kind  EventKind
	Value float64
	Seq   uint64
}

// Audio is the platform primitive the coordinator drives. Load tags every
// later event with seq and discards undelivered events of earlier loads.
// Methods must not block on event delivery.
type Audio interface {
	Load(src string, seq uint64) error
	Play() error
	Pause()
	Seek(seconds float64)
	SetVolume(level float64)
	Events() <-chan Event
	Close() error
}

// State is the coarse play state of a session.
type State int

const (
	Idle State = iota
	Paused
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MissingSongPolicy decides the cursor when PlaySong is given a queue that
// does not contain the song.
type MissingSongPolicy int

const (
	// CursorToStart points the cursor at queue[0] while the given song
	// plays. The next Next() moves to queue[1].
	CursorToStart MissingSongPolicy = iota
	// PrependSong inserts the song at the front of the queue so the cursor
	// and the playing song agree.
	PrependSong
)

// Snapshot is a copy of the session state.
type Snapshot struct {
	State    State
	Current  *models.Song
	Elapsed  float64
	Duration float64
	Volume   float64
	Queue    []models.Song
	Index    int
}

func (s Snapshot) Playing() bool { return s.State == Playing }

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMissingSongPolicy sets how PlaySong places the cursor for a song that
// is not in the given queue. The default is CursorToStart.
func WithMissingSongPolicy(p MissingSongPolicy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// Coordinator owns one Audio and is the only writer of session state.
// Transport calls and Run may be used from different goroutines.
type Coordinator struct {
	// held across Audio.Load so track changes apply in call order;
	// mu is never held while loading
	switching sync.Mutex

	mu     sync.Mutex
	audio  Audio
	policy MissingSongPolicy
	closed bool

	current  *models.Song
	playing  bool
	elapsed  float64
	duration float64
	volume   float64
	queue    []models.Song
	index    int

	seq     uint64  // generation of the current track
	lastSeq uint64  // last generation handed to Load
	loading uint64  // generation being fetched, 0 when none
	early   []Event // events of the loading generation seen before commit
}

// NewCoordinator returns an idle session at full volume that drives audio.
func NewCoordinator(audio Audio, opts ...Option) *Coordinator {
	c := &Coordinator{
		audio:  audio,
		volume: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// change is a track change waiting for its load to succeed
type change struct {
	song  models.Song
	queue []models.Song
	index int
}

// PlaySong loads song and plays it from the start. A non-nil queue replaces
// the session queue and moves the cursor to song; a nil queue leaves queue
// and cursor alone. Nothing changes if the song cannot be loaded.
func (c *Coordinator) PlaySong(song models.Song, queue []models.Song) error {
	c.switching.Lock()
	defer c.switching.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	next := change{song: song, queue: c.queue, index: c.index}
	c.mu.Unlock()

	if queue != nil {
		q := make([]models.Song, len(queue))
		copy(q, queue)

		idx := indexOf(q, song.ID)
		if idx < 0 {
			idx = 0
			if c.policy == PrependSong {
				q = append([]models.Song{song}, q...)
			}
		}
		next.queue = q
		next.index = idx
	}

	return c.switchTo(next)
}

// switchTo loads the change and commits it. The caller holds c.switching.
func (c *Coordinator) switchTo(next change) error {
	c.mu.Lock()
	c.lastSeq++
	seq := c.lastSeq
	c.loading = seq
	c.early = nil
	c.mu.Unlock()

	loadErr := c.audio.Load(next.song.AudioURL, seq)

	c.mu.Lock()
	defer c.mu.Unlock()

	early := c.early
	c.loading = 0
	c.early = nil

	if c.closed {
		return ErrClosed
	}
	if loadErr != nil {
		return fmt.Errorf("load %s: %w", next.song.AudioURL, loadErr)
	}

	c.audio.SetVolume(c.volume)
	if err := c.audio.Play(); err != nil {
		// the primitive no longer holds the old track
		c.playing = false
		return fmt.Errorf("play %s: %w", next.song.AudioURL, err)
	}

	s := next.song
	c.current = &s
	c.queue = next.queue
	c.index = next.index
	c.seq = seq
	c.playing = true
	c.elapsed = 0
	c.duration = 0
	for _, ev := range early {
		c.apply(ev)
	}
	return nil
}

// Pause stops playback. No-op unless playing.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.playing {
		return
	}
	c.audio.Pause()
	c.playing = false
}

// Resume continues a paused track. No-op when idle or already playing.
func (c *Coordinator) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.current == nil || c.playing {
		return nil
	}
	if err := c.audio.Play(); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	c.playing = true
	return nil
}

// Next plays the following queue entry, wrapping to the first. No-op on an
// empty queue.
func (c *Coordinator) Next() error {
	return c.step(1)
}

// Previous plays the preceding queue entry, wrapping to the last. No-op on
// an empty queue.
func (c *Coordinator) Previous() error {
	return c.step(-1)
}

func (c *Coordinator) step(delta int) error {
	c.switching.Lock()
	defer c.switching.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	n := len(c.queue)
	if n == 0 {
		c.mu.Unlock()
		return nil
	}
	idx := ((c.index+delta)%n + n) % n
	next := change{song: c.queue[idx], queue: c.queue, index: idx}
	c.mu.Unlock()

	return c.switchTo(next)
}

// Seek moves the playhead. The position is clamped to [0, duration] once
// the duration is known, and to >= 0 before that. No-op when idle.
func (c *Coordinator) Seek(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.current == nil {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if c.duration > 0 && seconds > c.duration {
		seconds = c.duration
	}
	c.audio.Seek(seconds)
	c.elapsed = seconds
}

// SetVolume clamps level to [0, 1] and applies it whether or not anything
// is playing.
func (c *Coordinator) SetVolume(level float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	switch {
	case level < 0:
		level = 0
	case level > 1:
		level = 1
	}
	c.audio.SetVolume(level)
	c.volume = level
}

// HandleEvent mirrors a primitive notification into session state. Events
// of an earlier track are dropped. Ended only clears the playing flag: the
// session does not advance on its own.
func (c *Coordinator) HandleEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case ev.Seq == c.seq:
		c.apply(ev)
	case c.loading != 0 && ev.Seq == c.loading:
		// the new track reports before its load returned
		c.early = append(c.early, ev)
	}
}

func (c *Coordinator) apply(ev Event) {
	switch ev.Kind {
	case TimeUpdate:
		c.elapsed = ev.Value
	case MetadataLoaded:
		c.duration = ev.Value
	case Ended:
		c.playing = false
	}
}

// Run feeds the primitive's events into the session until ctx is done or
// the primitive closes its event channel.
func (c *Coordinator) Run(ctx context.Context) {
	events := c.audio.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.HandleEvent(ev)
		}
	}
}

// State returns a copy of the session. It does not wait for a track that is
// still loading.
func (c *Coordinator) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Elapsed:  c.elapsed,
		Duration: c.duration,
		Volume:   c.volume,
		Index:    c.index,
		Queue:    append([]models.Song(nil), c.queue...),
	}
	if c.current != nil {
		s := *c.current
		snap.Current = &s
		snap.State = Paused
		if c.playing {
			snap.State = Playing
		}
	}
	return snap
}

// Close stops playback and releases the primitive. The session cannot be
// used afterwards.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.playing {
		c.audio.Pause()
		c.playing = false
	}
	return c.audio.Close()
}

func indexOf(queue []models.Song, id string) int {
	for i, s := range queue {
		if s.ID == id {
			return i
		}
	}
	return -1
}
