package typeahead

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var barangays = []Option{
	{Value: "072217001", Label: "Apas, Cebu City, Cebu"},
	{Value: "072217002", Label: "Banilad, Cebu City, Cebu"},
	{Value: "072217003", Label: "Capitol Site, Cebu City, Cebu"},
}

// recordingSearch answers immediately and records every query it receives.
type recordingSearch struct {
	mu      sync.Mutex
	queries []string
	results []Option
	err     error
}

func (r *recordingSearch) Search(ctx context.Context, q string) ([]Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
	return r.results, r.err
}

func (r *recordingSearch) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func TestSelectDebouncesBurst(t *testing.T) {
	for _, delay := range []time.Duration{50 * time.Millisecond, DefaultDelay, OccupationDelay, time.Second} {
		t.Run(delay.String(), func(t *testing.T) {
			clock := newManualClock()
			rs := &recordingSearch{results: barangays[:1]}
			s := New(Config{Search: rs.Search, Clock: clock, Delay: delay})
			defer s.Close()

			// keystrokes arrive just inside the window
			gap := delay - time.Millisecond
			for _, text := range []string{"Sa", "San", "Sant"} {
				s.Type(text)
				clock.Advance(gap)
			}
			assert.Equal(t, StatusLoading, s.Snapshot().Status)
			assert.Empty(t, rs.Queries())

			clock.Advance(time.Millisecond)
			s.Wait()

			assert.Equal(t, []string{"Sant"}, rs.Queries())
			snap := s.Snapshot()
			assert.Equal(t, StatusReady, snap.Status)
			assert.Equal(t, barangays[:1], snap.Visible)
		})
	}
}

func TestSelectConcurrentTypeSearchesLatestText(t *testing.T) {
	for run := 0; run < 50; run++ {
		clock := newManualClock()
		rs := &recordingSearch{}
		s := New(Config{Search: rs.Search, Clock: clock})

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 8; i++ {
			text := "Cebu " + string(rune('A'+i))
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				s.Type(text)
			}()
		}
		close(start)
		wg.Wait()

		clock.Advance(DefaultDelay)
		s.Wait()
		require.Equal(t, []string{s.Snapshot().Query}, rs.Queries())
		s.Close()
	}
}

func TestSelectWaitWhileTimerFires(t *testing.T) {
	rs := &recordingSearch{results: barangays}
	s := New(Config{Search: rs.Search, Delay: time.Millisecond})
	defer s.Close()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				s.Wait()
			}
		}
	}()

	for _, text := range []string{"Ap", "Apa", "Apas"} {
		s.Type(text)
		time.Sleep(3 * time.Millisecond)
	}
	s.Flush()
	assert.Eventually(t, func() bool {
		s.Wait()
		return s.Snapshot().Status == StatusReady
	}, time.Second, 5*time.Millisecond)

	close(stop)
	<-done
	assert.Equal(t, barangays, s.Snapshot().Visible)
}

func TestSelectDiscardsStaleResponse(t *testing.T) {
	clock := newManualClock()
	gates := map[string]chan []Option{
		"Ban":  make(chan []Option),
		"Bani": make(chan []Option),
	}
	var changes []Snapshot
	var mu sync.Mutex
	s := New(Config{
		Clock: clock,
		Search: func(ctx context.Context, q string) ([]Option, error) {
			return <-gates[q], nil
		},
		OnChange: func(snap Snapshot) {
			mu.Lock()
			changes = append(changes, snap)
			mu.Unlock()
		},
	})
	defer s.Close()

	s.Type("Ban")
	clock.Advance(300 * time.Millisecond)
	s.Type("Bani")
	clock.Advance(300 * time.Millisecond)

	// fast newer response first, slow older response last
	gates["Bani"] <- barangays[1:2]
	gates["Ban"] <- barangays
	s.Wait()

	assert.Equal(t, barangays[1:2], s.Snapshot().Visible)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 1)
	assert.Equal(t, barangays[1:2], changes[0].Visible)
}

func TestSelectTooShortSkipsSearch(t *testing.T) {
	clock := newManualClock()
	rs := &recordingSearch{}
	s := New(Config{Search: rs.Search, Clock: clock, MinSearchLength: 3})
	defer s.Close()

	s.Type("Ce")
	clock.Advance(time.Second)
	s.Wait()

	snap := s.Snapshot()
	assert.Empty(t, rs.Queries())
	assert.Equal(t, StatusTooShort, snap.Status)
	assert.Equal(t, MessageNoResults, snap.Message)
	assert.Equal(t, OpenUnfocused, snap.State)
}

func TestSelectSearchFailure(t *testing.T) {
	clock := newManualClock()
	rs := &recordingSearch{err: errors.New("connection refused")}
	s := New(Config{Search: rs.Search, Clock: clock})
	defer s.Close()

	s.Type("Cebu")
	s.Flush()
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, MessageLoadFailed, snap.Message)
	assert.Empty(t, snap.Visible)
}

func TestSelectStaticFilter(t *testing.T) {
	s := New(Config{
		Options:    []Option{{Value: "a", Label: "Apple"}, {Value: "b", Label: "Banana"}},
		Searchable: true,
	})
	defer s.Close()

	s.Type("an")
	snap := s.Snapshot()
	assert.Equal(t, OpenUnfocused, snap.State)
	assert.Equal(t, []Option{{Value: "b", Label: "Banana"}}, snap.Visible)

	s.Type("zz")
	assert.Equal(t, MessageNoResults, s.Snapshot().Message)
}

func TestSelectKeyboardNavigation(t *testing.T) {
	var selected *Option
	s := New(Config{Options: barangays, OnSelect: func(o *Option) { selected = o }})
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Key(ctx, KeyArrowDown))
	snap := s.Snapshot()
	assert.Equal(t, OpenFocused, snap.State)
	assert.Equal(t, 0, snap.Highlight)

	require.NoError(t, s.Key(ctx, KeyArrowUp))
	assert.Equal(t, 2, s.Snapshot().Highlight, "wraps to the last option")

	require.NoError(t, s.Key(ctx, KeyArrowDown))
	assert.Equal(t, 0, s.Snapshot().Highlight, "wraps to the first option")

	require.NoError(t, s.Key(ctx, KeyArrowDown))
	hl, ok := s.Highlighted()
	require.True(t, ok)
	assert.Equal(t, "072217002", hl.Value)

	require.NoError(t, s.Key(ctx, KeyEnter))
	require.NotNil(t, selected)
	assert.Equal(t, "072217002", selected.Value)
	assert.Equal(t, Closed, s.Snapshot().State)

	display, ok := s.Display()
	require.True(t, ok)
	assert.Equal(t, "Banilad, Cebu City, Cebu", display.Label)
}

func TestSelectUpFromNothingHighlightsLast(t *testing.T) {
	s := New(Config{Options: barangays})
	defer s.Close()

	require.NoError(t, s.Key(context.Background(), KeyArrowUp))
	assert.Equal(t, 2, s.Snapshot().Highlight)
}

func TestSelectEscapeAndClickOutside(t *testing.T) {
	var calls int
	s := New(Config{Options: barangays, OnSelect: func(*Option) { calls++ }})
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Key(ctx, KeyArrowDown))
	require.NoError(t, s.Key(ctx, KeyEscape))
	assert.Equal(t, Closed, s.Snapshot().State)

	s.Type("Apas")
	s.ClickOutside()
	snap := s.Snapshot()
	assert.Equal(t, Closed, snap.State)
	assert.Equal(t, -1, snap.Highlight)
	assert.Zero(t, calls)
	assert.Nil(t, snap.Selected)
}

func TestSelectEnterCommitsExactMatch(t *testing.T) {
	var selected *Option
	s := New(Config{Options: barangays, Searchable: true, OnSelect: func(o *Option) { selected = o }})
	defer s.Close()

	s.Type("apas, cebu city, cebu")
	require.NoError(t, s.Key(context.Background(), KeyEnter))
	require.NotNil(t, selected)
	assert.Equal(t, "072217001", selected.Value)
}

func TestSelectCreateCustom(t *testing.T) {
	var selected *Option
	s := New(Config{
		Options:     barangays,
		Searchable:  true,
		AllowCustom: true,
		Create: func(ctx context.Context, text string) (Option, error) {
			return Option{Value: "custom-1", Label: text}, nil
		},
		OnSelect: func(o *Option) { selected = o },
	})
	defer s.Close()

	s.Type("Sitio Mahayag")
	require.NoError(t, s.Key(context.Background(), KeyEnter))

	require.NotNil(t, selected)
	assert.Equal(t, Option{Value: "custom-1", Label: "Sitio Mahayag"}, *selected)
	s.Type("")
	assert.Contains(t, s.Snapshot().Visible, Option{Value: "custom-1", Label: "Sitio Mahayag"})
}

func TestSelectCreateFailureKeepsText(t *testing.T) {
	boom := errors.New("duplicate occupation")
	var calls int
	s := New(Config{
		Options:     barangays,
		Searchable:  true,
		AllowCustom: true,
		Create: func(ctx context.Context, text string) (Option, error) {
			return Option{}, boom
		},
		OnSelect: func(*Option) { calls++ },
	})
	defer s.Close()

	s.Type("Sitio Mahayag")
	err := s.Key(context.Background(), KeyEnter)
	require.ErrorIs(t, err, boom)

	snap := s.Snapshot()
	assert.Equal(t, "Sitio Mahayag", snap.Query)
	assert.Equal(t, OpenUnfocused, snap.State)
	assert.Empty(t, snap.Visible)
	assert.Zero(t, calls)

	s.Type("")
	assert.Len(t, s.Snapshot().Visible, len(barangays))
}

func TestSelectSetValuePlaceholder(t *testing.T) {
	s := New(Config{Options: barangays})
	defer s.Close()

	s.SetValue("137404001", "Bagong Pag-asa, Quezon City")
	display, ok := s.Display()
	require.True(t, ok)
	assert.Equal(t, Option{Value: "137404001", Label: "Bagong Pag-asa, Quezon City"}, display)

	// label stays stable once the real option shows up
	s.SetOptions(append(barangays, Option{Value: "137404001", Label: "Bagong Pag-asa, Quezon City, NCR"}))
	s.SetValue("137404001", "")
	display, _ = s.Display()
	assert.Equal(t, "Bagong Pag-asa, Quezon City", display.Label)

	s.SetValue("072217003", "")
	display, _ = s.Display()
	assert.Equal(t, "Capitol Site, Cebu City, Cebu", display.Label)

	s.SetValue("999", "")
	display, _ = s.Display()
	assert.Equal(t, "999", display.Label)

	s.SetValue("", "")
	_, ok = s.Display()
	assert.False(t, ok)
}

func TestSelectClear(t *testing.T) {
	notified := false
	var got *Option
	s := New(Config{Options: barangays, OnSelect: func(o *Option) { notified = true; got = o }})
	defer s.Close()

	s.SetValue("072217001", "")
	s.Clear()
	assert.True(t, notified)
	assert.Nil(t, got)
	_, ok := s.Display()
	assert.False(t, ok)
}

func TestSelectCloseDropsPending(t *testing.T) {
	clock := newManualClock()
	rs := &recordingSearch{}
	s := New(Config{Search: rs.Search, Clock: clock})

	s.Type("Cebu")
	s.Close()
	clock.Advance(time.Second)
	s.Wait()

	assert.Empty(t, rs.Queries())
	assert.ErrorIs(t, s.Key(context.Background(), KeyEnter), ErrClosed)
}
