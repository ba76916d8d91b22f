package typeahead

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	DefaultDelay           = 300 * time.Millisecond
	DefaultMinSearchLength = 2
	// occupation titles are longer to type, so their picker waits a bit more
	OccupationDelay = 350 * time.Millisecond

	MessageNoResults  = "no results"
	MessageLoadFailed = "couldn't load results"
)

// ErrClosed is returned by operations on a select after Close.
var ErrClosed = errors.New("typeahead: select closed")

// State of the dropdown.
type State int

const (
	Closed State = iota
	OpenUnfocused
	OpenFocused
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case OpenUnfocused:
		return "open"
	case OpenFocused:
		return "focused"
	default:
		return "unknown"
	}
}

// Status of the option list.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusTooShort
	StatusFailed
)

func (s Status) String() string {
	return [...]string{"idle", "loading", "ready", "too_short", "failed"}[s]
}

// Key is a navigation key.
type Key int

const (
	KeyArrowDown Key = iota
	KeyArrowUp
	KeyEnter
	KeyEscape
)

// Config configures a Select. Options alone gives a static picker; Search
// makes it remote.
type Config struct {
	Options         []Option
	Search          SearchFunc
	Create          CreateFunc
	Searchable      bool
	AllowCustom     bool
	MinSearchLength int
	Delay           time.Duration
	Clock           Clock
	OnSelect        func(*Option)
	OnChange        func(Snapshot)
	Logger          *zap.Logger
}

// Snapshot is a consistent view of the select for rendering.
type Snapshot struct {
	State     State
	Highlight int
	Query     string
	Visible   []Option
	Status    Status
	Message   string
	Selected  *Option
}

// Select is the headless search-select state machine. It is safe for
// concurrent use; callbacks run without internal locks held.
type Select struct {
	cfg       Config
	logger    *zap.Logger
	debouncer *Debouncer
	seq       Sequencer
	inflight  inflight

	mu        sync.Mutex
	state     State
	highlight int
	query     string
	options   []Option
	visible   []Option
	status    Status
	message   string
	selected  *Option
	closed    bool
}

// New builds a Select in the Closed state.
func New(cfg Config) *Select {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Search != nil && cfg.MinSearchLength <= 0 {
		cfg.MinSearchLength = DefaultMinSearchLength
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Select{
		cfg:       cfg,
		logger:    cfg.Logger,
		debouncer: NewDebouncer(cfg.Clock),
		highlight: -1,
		options:   append([]Option(nil), cfg.Options...),
	}
	s.inflight.idle.L = &s.inflight.mu
	if !s.remote() {
		s.visible = s.options
		s.status = StatusReady
	}
	return s
}

func (s *Select) remote() bool { return s.cfg.Search != nil }

// Type replaces the query text, opening the dropdown unfocused. Static
// pickers filter synchronously; remote pickers debounce a search.
func (s *Select) Type(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.query = text
	s.state = OpenUnfocused
	s.highlight = -1

	if !s.remote() {
		s.refilter()
		s.mu.Unlock()
		return
	}

	query := strings.TrimSpace(text)
	if utf8.RuneCountInString(query) < s.cfg.MinSearchLength {
		s.debouncer.Cancel()
		s.seq.Next()
		s.visible = nil
		s.status = StatusTooShort
		s.message = MessageNoResults
		s.mu.Unlock()
		return
	}

	// responses to earlier text are stale as soon as the text changes
	s.seq.Next()
	s.status = StatusLoading
	s.message = ""
	// scheduled under mu so the timer left pending belongs to the latest text
	s.debouncer.Schedule(func() { s.search(query) }, s.cfg.Delay)
	s.mu.Unlock()
}

// refilter recomputes visible options for a static picker. Caller holds mu.
func (s *Select) refilter() {
	if s.cfg.Searchable {
		s.visible = Filter(s.options, s.query)
	} else {
		s.visible = s.options
	}
	s.status = StatusReady
	s.message = ""
	if len(s.visible) == 0 {
		s.message = MessageNoResults
	}
}

// search issues a request stamped with a fresh sequence number. Results that
// come back after a newer request was issued are dropped.
func (s *Select) search(query string) {
	seq := s.seq.Next()
	s.inflight.add()
	go func() {
		defer s.inflight.done()
		results, err := s.cfg.Search(context.Background(), query)
		s.apply(seq, query, results, err)
	}()
}

func (s *Select) apply(seq uint64, query string, results []Option, err error) {
	s.mu.Lock()
	if s.closed || !s.seq.IsCurrent(seq) {
		s.mu.Unlock()
		s.logger.Debug("discarding stale search response", zap.String("query", query), zap.Uint64("seq", seq))
		return
	}

	if err != nil {
		s.logger.Warn("typeahead search failed", zap.String("query", query), zap.Error(err))
		s.visible = nil
		s.status = StatusFailed
		s.message = MessageLoadFailed
	} else {
		s.options = results
		s.visible = results
		s.status = StatusReady
		s.message = ""
		if len(results) == 0 {
			s.message = MessageNoResults
		}
	}
	if s.highlight >= len(s.visible) {
		s.highlight = -1
		if s.state == OpenFocused {
			s.state = OpenUnfocused
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.cfg.OnChange != nil {
		s.cfg.OnChange(snap)
	}
}

// Flush runs a pending debounced search immediately.
func (s *Select) Flush() {
	s.mu.Lock()
	query := strings.TrimSpace(s.query)
	ready := s.remote() && !s.closed && s.status == StatusLoading
	s.mu.Unlock()

	if ready && s.debouncer.Cancel() {
		s.search(query)
	}
}

// Wait blocks until issued searches have been applied or discarded. A search
// still inside its debounce window is not waited for; Flush it first.
func (s *Select) Wait() {
	s.inflight.wait()
}

// inflight counts running searches. Unlike sync.WaitGroup it allows the count
// to rise from zero while another goroutine waits, which happens when a
// debounce timer fires during Wait.
type inflight struct {
	mu   sync.Mutex
	idle sync.Cond
	n    int
}

func (f *inflight) add() {
	f.mu.Lock()
	f.n++
	f.mu.Unlock()
}

func (f *inflight) done() {
	f.mu.Lock()
	f.n--
	if f.n == 0 {
		f.idle.Broadcast()
	}
	f.mu.Unlock()
}

func (f *inflight) wait() {
	f.mu.Lock()
	for f.n > 0 {
		f.idle.Wait()
	}
	f.mu.Unlock()
}

// Key handles navigation. Enter may create a custom option and returns the
// creation error, leaving the typed text in place.
func (s *Select) Key(ctx context.Context, k Key) error {
	switch k {
	case KeyArrowDown:
		s.move(1)
	case KeyArrowUp:
		s.move(-1)
	case KeyEscape:
		s.mu.Lock()
		s.state = Closed
		s.highlight = -1
		s.mu.Unlock()
	case KeyEnter:
		return s.enter(ctx)
	}
	return nil
}

func (s *Select) move(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if s.state == Closed && !s.remote() {
		s.refilter()
	}
	n := len(s.visible)
	if n == 0 {
		s.state = OpenUnfocused
		s.highlight = -1
		return
	}

	switch {
	case s.highlight < 0 && delta > 0:
		s.highlight = 0
	case s.highlight < 0:
		s.highlight = n - 1
	default:
		s.highlight = ((s.highlight+delta)%n + n) % n
	}
	s.state = OpenFocused
}

func (s *Select) enter(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	if s.state == OpenFocused && s.highlight >= 0 && s.highlight < len(s.visible) {
		opt := s.visible[s.highlight]
		if opt.Disabled {
			s.mu.Unlock()
			return nil
		}
		s.commitLocked(opt)
		s.mu.Unlock()
		s.notifySelect(&opt)
		return nil
	}

	text := strings.TrimSpace(s.query)
	for _, opt := range s.visible {
		if !opt.Disabled && text != "" && EqualFold(opt.Label, text) {
			s.commitLocked(opt)
			s.mu.Unlock()
			s.notifySelect(&opt)
			return nil
		}
	}

	if !s.cfg.AllowCustom || s.cfg.Create == nil || text == "" {
		s.state = Closed
		s.highlight = -1
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	created, err := s.cfg.Create(ctx, text)
	if err != nil {
		s.logger.Warn("custom option creation failed", zap.String("text", text), zap.Error(err))
		return fmt.Errorf("create %q: %w", text, err)
	}

	s.mu.Lock()
	if !containsValue(s.options, created.Value) {
		s.options = append(s.options, created)
	}
	if !containsValue(s.visible, created.Value) {
		s.visible = append(s.visible, created)
	}
	s.commitLocked(created)
	s.mu.Unlock()
	s.notifySelect(&created)
	return nil
}

// commitLocked records the selection and closes. Caller holds mu.
func (s *Select) commitLocked(opt Option) {
	s.debouncer.Cancel()
	s.selected = &opt
	s.query = opt.Label
	s.state = Closed
	s.highlight = -1
}

func (s *Select) notifySelect(opt *Option) {
	if s.cfg.OnSelect != nil {
		s.cfg.OnSelect(opt)
	}
}

// ClickOutside closes the dropdown without committing.
func (s *Select) ClickOutside() {
	s.mu.Lock()
	s.state = Closed
	s.highlight = -1
	s.mu.Unlock()
}

// Clear removes the selection and reports null to OnSelect.
func (s *Select) Clear() {
	s.mu.Lock()
	s.selected = nil
	s.query = ""
	s.state = Closed
	s.highlight = -1
	s.mu.Unlock()
	s.notifySelect(nil)
}

// SetValue sets the controlled value from outside. A value that is not among
// the loaded options is shown with knownLabel (or the raw value) so that
// saved records render before the lookup finishes.
func (s *Select) SetValue(value, knownLabel string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == "" {
		s.selected = nil
		return
	}
	if s.selected != nil && s.selected.Value == value {
		return
	}
	for _, opt := range s.options {
		if opt.Value == value {
			o := opt
			s.selected = &o
			return
		}
	}
	label := strings.TrimSpace(knownLabel)
	if label == "" {
		label = value
	}
	s.selected = &Option{Value: value, Label: label}
}

// Display returns the option to render in the closed control.
func (s *Select) Display() (Option, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return Option{}, false
	}
	return *s.selected, true
}

// SetOptions replaces the option list. Any in-flight remote search is
// superseded.
func (s *Select) SetOptions(opts []Option) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.options = append([]Option(nil), opts...)
	if s.remote() {
		s.seq.Next()
		s.visible = s.options
		s.status = StatusReady
	} else {
		s.refilter()
	}
	if s.highlight >= len(s.visible) {
		s.highlight = -1
	}
}

// Snapshot returns the current view.
func (s *Select) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Select) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:     s.state,
		Highlight: s.highlight,
		Query:     s.query,
		Visible:   append([]Option(nil), s.visible...),
		Status:    s.status,
		Message:   s.message,
	}
	if s.selected != nil {
		sel := *s.selected
		snap.Selected = &sel
	}
	return snap
}

// Highlighted returns the focused option, if any.
func (s *Select) Highlighted() (Option, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != OpenFocused || s.highlight < 0 || s.highlight >= len(s.visible) {
		return Option{}, false
	}
	return s.visible[s.highlight], true
}

// Close cancels the pending search and drops any response still in flight.
func (s *Select) Close() {
	s.debouncer.Cancel()
	s.seq.Next()
	s.mu.Lock()
	s.closed = true
	s.state = Closed
	s.mu.Unlock()
}

func containsValue(opts []Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}
