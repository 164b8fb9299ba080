package player

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ErrNotLoaded is returned by Play before any track was loaded.
var ErrNotLoaded = errors.New("player: nothing loaded")

// DurationFunc reports the length in seconds of a fetched resource.
type DurationFunc func(src string, data []byte) float64

// EstimateDuration assumes a 128 kbit/s stream.
func EstimateDuration(_ string, data []byte) float64 {
	return float64(len(data)) * 8 / 128000
}

// HTTPAudio is a headless Audio for terminals. Load fetches the whole
// resource; playback is a clock that advances while playing and reports
// progress through Events.
type HTTPAudio struct {
	client     *http.Client
	base       *url.URL
	durationOf DurationFunc
	now        func() time.Time

	events chan Event
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once

	mu       sync.Mutex
	seq      uint64
	src      string
	data     []byte
	duration float64
	position float64 // at anchor
	anchor   time.Time
	playing  bool
	volume   float64
	pending  []Event
}

// HTTPAudioOption configures an HTTPAudio.
type HTTPAudioOption func(*HTTPAudio)

// WithHTTPClient replaces the default client, which times out after 30s.
func WithHTTPClient(client *http.Client) HTTPAudioOption {
	return func(a *HTTPAudio) { a.client = client }
}

// WithDurationFunc replaces EstimateDuration.
func WithDurationFunc(fn DurationFunc) HTTPAudioOption {
	return func(a *HTTPAudio) { a.durationOf = fn }
}

func withClock(now func() time.Time) HTTPAudioOption {
	return func(a *HTTPAudio) { a.now = now }
}

// NewHTTPAudio resolves relative locators against baseURL and reports
// progress every tick.
func NewHTTPAudio(baseURL string, tick time.Duration, opts ...HTTPAudioOption) (*HTTPAudio, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	a := &HTTPAudio{
		client:     &http.Client{Timeout: 30 * time.Second},
		base:       base,
		durationOf: EstimateDuration,
		now:        time.Now,
		events:     make(chan Event, 16),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		volume:     1,
	}
	for _, opt := range opts {
		opt(a)
	}

	go a.loop(tick)
	return a, nil
}

// Load fetches src completely. The previous track keeps playing until the
// fetch succeeds; then its undelivered events are discarded.
func (a *HTTPAudio) Load(src string, seq uint64) error {
	ref, err := url.Parse(src)
	if err != nil {
		return fmt.Errorf("parse %s: %w", src, err)
	}
	resolved := a.base.ResolveReference(ref).String()

	resp, err := a.client.Get(resolved)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", resolved, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", resolved, err)
	}

	duration := a.durationOf(src, data)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq = seq
	a.src = src
	a.data = data
	a.duration = duration
	a.position = 0
	a.anchor = a.now()
	a.playing = false
	a.pending = []Event{{Kind: MetadataLoaded, Value: duration, Seq: seq}}
	return nil
}

// Play starts the clock. A finished track starts over.
func (a *HTTPAudio) Play() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.data == nil {
		return ErrNotLoaded
	}
	if a.playing {
		return nil
	}
	if a.duration > 0 && a.position >= a.duration {
		a.position = 0
	}
	a.anchor = a.now()
	a.playing = true
	return nil
}

func (a *HTTPAudio) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.position = a.positionLocked()
	a.playing = false
}

func (a *HTTPAudio) Seek(seconds float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.position = seconds
	a.anchor = a.now()
	a.pending = append(a.pending, Event{Kind: TimeUpdate, Value: seconds, Seq: a.seq})
}

func (a *HTTPAudio) SetVolume(level float64) {
	a.mu.Lock()
	a.volume = level
	a.mu.Unlock()
}

func (a *HTTPAudio) Volume() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.volume
}

func (a *HTTPAudio) Events() <-chan Event {
	return a.events
}

// Close stops the event loop and closes the Events channel.
func (a *HTTPAudio) Close() error {
	a.once.Do(func() {
		close(a.stop)
		<-a.done
	})
	return nil
}

func (a *HTTPAudio) positionLocked() float64 {
	if !a.playing {
		return a.position
	}
	return a.position + a.now().Sub(a.anchor).Seconds()
}

// advance moves the clock and collects what should be reported, along with
// the generation of the loaded track
func (a *HTTPAudio) advance() ([]Event, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.pending
	a.pending = nil

	if !a.playing {
		return out, a.seq
	}

	pos := a.positionLocked()
	if a.duration > 0 && pos >= a.duration {
		a.position = a.duration
		a.playing = false
		return append(out,
			Event{Kind: TimeUpdate, Value: a.duration, Seq: a.seq},
			Event{Kind: Ended, Seq: a.seq},
		), a.seq
	}
	return append(out, Event{Kind: TimeUpdate, Value: pos, Seq: a.seq}), a.seq
}

func (a *HTTPAudio) loop(tick time.Duration) {
	defer close(a.done)
	defer close(a.events)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var queued []Event
	for {
		var send chan<- Event
		var next Event
		if len(queued) > 0 {
			send = a.events
			next = queued[0]
		}

		select {
		case <-a.stop:
			return
		case send <- next:
			queued = queued[1:]
		case <-ticker.C:
			fresh, seq := a.advance()
			queued = coalesce(append(current(queued, seq), fresh...))
		}
	}
}

// current drops events about tracks other than generation seq
func current(events []Event, seq uint64) []Event {
	out := events[:0]
	for _, ev := range events {
		if ev.Seq == seq {
			out = append(out, ev)
		}
	}
	return out
}

// coalesce drops a TimeUpdate that is directly superseded by another
func coalesce(events []Event) []Event {
	out := events[:0]
	for i, ev := range events {
		if ev.Kind == TimeUpdate && i+1 < len(events) && events[i+1].Kind == TimeUpdate {
			continue
		}
		out = append(out, ev)
	}
	return out
}
