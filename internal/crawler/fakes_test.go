package crawler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

type fetchStep struct {
	status int
	body   string
	err    error
}

// scriptedFetcher replays a fixed sequence of responses per URL.
type scriptedFetcher struct {
	mu    sync.Mutex
	steps map[string][]fetchStep
	calls map[string]int
}

func newScriptedFetcher(steps map[string][]fetchStep) *scriptedFetcher {
	return &scriptedFetcher{steps: steps, calls: map[string]int{}}
}

func (f *scriptedFetcher) Fetch(_ context.Context, url string) (FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	list := f.steps[url]
	if len(list) == 0 {
		return FetchResponse{}, fmt.Errorf("unexpected fetch of %s", url)
	}
	step := list[0]
	if len(list) > 1 {
		f.steps[url] = list[1:]
	}
	if step.err != nil {
		return FetchResponse{}, step.err
	}
	return FetchResponse{URL: url, StatusCode: step.status, Body: []byte(step.body)}, nil
}

func (f *scriptedFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// recordingSleeper records requested durations without blocking.
type recordingSleeper struct {
	mu     sync.Mutex
	slept  []time.Duration
	onCall func(n int) error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	n := len(s.slept)
	s.mu.Unlock()
	if s.onCall != nil {
		if err := s.onCall(n); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (s *recordingSleeper) durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type sequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (g *sequenceIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("pass-%d", g.n), nil
}

// memoryStore implements Store over slices, computing the frontier from the
// stored games on every call.
type memoryStore struct {
	mu          sync.Mutex
	players     map[string]Player
	games       []Game
	frontierErr error
	saveErr     error
	frontierLog []int
}

func newMemoryStore(games ...Game) *memoryStore {
	return &memoryStore{players: map[string]Player{}, games: games}
}

func (s *memoryStore) Frontier(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frontierLog = append(s.frontierLog, limit)
	if s.frontierErr != nil {
		return nil, s.frontierErr
	}
	seen := map[string]struct{}{}
	var out []string
	for _, g := range s.games {
		for _, u := range []string{g.White.Username, g.Black.Username} {
			if _, stored := s.players[u]; stored {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) HasPlayer(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[username]
	return ok, nil
}

func (s *memoryStore) SavePlayer(_ context.Context, player Player, games []Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.players[player.Username]; ok {
		return fmt.Errorf("insert %q: %w", player.Username, ErrPlayerExists)
	}
	s.players[player.Username] = player
	s.games = append(s.games, games...)
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreStats{Players: int64(len(s.players)), Games: int64(len(s.games))}, nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }

func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) playerNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.players))
	for name := range s.players {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type resolution struct {
	player Player
	games  []Game
	err    error
}

// mapResolver resolves usernames from a fixed table.
type mapResolver struct {
	mu       sync.Mutex
	results  map[string]resolution
	resolved []string
	hook     func(username string)
}

func (r *mapResolver) Resolve(_ context.Context, username string) (Player, []Game, error) {
	r.mu.Lock()
	r.resolved = append(r.resolved, username)
	res, ok := r.results[username]
	hook := r.hook
	r.mu.Unlock()
	if hook != nil {
		hook(username)
	}
	if !ok {
		return Player{}, nil, fmt.Errorf("fetch: %w", ErrEntityNotFound)
	}
	return res.player, res.games, res.err
}

type memoryFailures struct {
	mu        sync.Mutex
	usernames []string
	err       error
}

func (f *memoryFailures) RecordFailure(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.usernames = append(f.usernames, username)
	return nil
}

func (f *memoryFailures) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.usernames...)
}

type memoryPublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []any
}

func (p *memoryPublisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return fmt.Sprintf("memory-%d", len(p.payloads)), nil
}

var errStoreDown = errors.New("connection refused")

func game(white, black string) Game {
	return Game{
		TimeControl: "600",
		EndTime:     1700000000,
		Rated:       true,
		TimeClass:   "rapid",
		Rules:       "chess",
		White:       Side{Username: white, Rating: 1500, Result: "win"},
		Black:       Side{Username: black, Rating: 1480, Result: "resigned"},
	}
}
