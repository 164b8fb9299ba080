package player

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tunebox/tunebox/models"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *manualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func audioServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/audio/sample1.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(make([]byte, 32000)) // two seconds at 128 kbit/s
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func waitFor(t *testing.T, events <-chan Event, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "events closed while waiting for %s", kind)
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestHTTPAudioLifecycle(t *testing.T) {
	srv := audioServer(t)
	clock := &manualClock{now: time.Unix(0, 0)}

	a, err := NewHTTPAudio(srv.URL, 5*time.Millisecond, withClock(clock.Now))
	require.NoError(t, err)
	defer a.Close()

	assert.ErrorIs(t, a.Play(), ErrNotLoaded)

	require.NoError(t, a.Load("/audio/sample1.mp3", 1))
	ev := waitFor(t, a.Events(), MetadataLoaded)
	assert.InDelta(t, 2.0, ev.Value, 0.001)
	assert.Equal(t, uint64(1), ev.Seq)

	require.NoError(t, a.Play())
	clock.Advance(time.Second)
	// ticks that landed before the advance report 0
	for ev = waitFor(t, a.Events(), TimeUpdate); ev.Value == 0; {
		ev = waitFor(t, a.Events(), TimeUpdate)
	}
	assert.InDelta(t, 1.0, ev.Value, 0.001)

	clock.Advance(5 * time.Second)
	waitFor(t, a.Events(), Ended)

	// playing a finished track starts over
	require.NoError(t, a.Play())
	a.Pause()
	a.mu.Lock()
	assert.Zero(t, a.position)
	a.mu.Unlock()
}

func TestHTTPAudioLoadErrors(t *testing.T) {
	srv := audioServer(t)

	a, err := NewHTTPAudio(srv.URL, time.Second)
	require.NoError(t, err)
	defer a.Close()

	err = a.Load("/audio/missing.mp3", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPAudioDurationFunc(t *testing.T) {
	srv := audioServer(t)

	a, err := NewHTTPAudio(srv.URL, 5*time.Millisecond, WithDurationFunc(func(src string, _ []byte) float64 {
		if src == "/audio/sample1.mp3" {
			return 355
		}
		return 0
	}))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Load("/audio/sample1.mp3", 1))
	ev := waitFor(t, a.Events(), MetadataLoaded)
	assert.Equal(t, 355.0, ev.Value)
}

func TestCoordinatorOverHTTPAudio(t *testing.T) {
	srv := audioServer(t)
	clock := &manualClock{now: time.Unix(0, 0)}

	a, err := NewHTTPAudio(srv.URL, 5*time.Millisecond, withClock(clock.Now))
	require.NoError(t, err)

	c := NewCoordinator(a)
	done := make(chan struct{})
	go func() {
		c.Run(t.Context())
		close(done)
	}()

	song := models.Song{ID: "s1", Title: "Bohemian Rhapsody", AudioURL: "/audio/sample1.mp3", Duration: 355}
	require.NoError(t, c.PlaySong(song, []models.Song{song}))

	assert.Eventually(t, func() bool { return c.State().Duration > 0 }, 2*time.Second, 5*time.Millisecond)

	c.SetVolume(0.3)
	assert.Equal(t, 0.3, a.Volume())

	clock.Advance(10 * time.Second)
	assert.Eventually(t, func() bool { return c.State().State == Paused }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "s1", c.State().Current.ID)

	require.NoError(t, c.Close())
	<-done
}

func TestHTTPAudioDropsEventsOfPreviousTrack(t *testing.T) {
	srv := audioServer(t)
	clock := &manualClock{now: time.Unix(0, 0)}

	a, err := NewHTTPAudio(srv.URL, 5*time.Millisecond, withClock(clock.Now))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Load("/audio/sample1.mp3", 1))
	waitFor(t, a.Events(), MetadataLoaded)
	require.NoError(t, a.Play())
	a.Seek(1.5)

	require.NoError(t, a.Load("/audio/sample1.mp3", 2))
	for ev := waitFor(t, a.Events(), MetadataLoaded); ev.Seq != 2; {
		ev = waitFor(t, a.Events(), MetadataLoaded)
	}

	require.NoError(t, a.Play())
	clock.Advance(3 * time.Second)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-a.Events():
			assert.Equal(t, uint64(2), ev.Seq, "%s after the second load", ev.Kind)
			if ev.Kind == Ended {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for ended")
		}
	}
}

// the second track takes a while to arrive while the first one ends
func TestCoordinatorSlowTrackChange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/audio/short.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 1600))
	})
	mux.HandleFunc("/audio/slow.mp3", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write(make([]byte, 1600))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	durations := map[string]float64{"/audio/short.mp3": 0.1, "/audio/slow.mp3": 60}
	a, err := NewHTTPAudio(srv.URL, 5*time.Millisecond, WithDurationFunc(func(src string, _ []byte) float64 {
		return durations[src]
	}))
	require.NoError(t, err)

	c := NewCoordinator(a)
	go c.Run(t.Context())
	defer c.Close()

	q := []models.Song{
		{ID: "a", Title: "Short", AudioURL: "/audio/short.mp3"},
		{ID: "b", Title: "Slow", AudioURL: "/audio/slow.mp3"},
	}
	require.NoError(t, c.PlaySong(q[0], q))

	nextDone := make(chan error, 1)
	go func() { nextDone <- c.Next() }()

	// the session stays readable while b is fetched
	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	snap := c.State()
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, "a", snap.Current.ID)

	require.NoError(t, <-nextDone)

	assert.Eventually(t, func() bool { return c.State().Duration == 60 }, 2*time.Second, 5*time.Millisecond)
	snap = c.State()
	assert.Equal(t, "b", snap.Current.ID)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, Playing, snap.State)
	assert.Less(t, snap.Elapsed, 1.0)
}
