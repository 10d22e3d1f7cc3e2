// Package memory is a complete in-memory event store. It backs unit
// tests and storeless simulation runs; semantics mirror the postgres
// implementation.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/alignmentlab/secret-agi/internal/model"
	"github.com/alignmentlab/secret-agi/internal/repository"
)

// core holds every table in maps guarded by one mutex. The per-repo
// types below share it so the interface method sets stay disjoint.
type core struct {
	mu      sync.Mutex
	games   map[string]*model.Game
	players map[string][]model.PlayerRow
	states  map[string]map[int]*model.StateSnapshot
	actions map[string][]*model.ActionRecord
	events  map[string][]model.EventRecord
	chat    map[string][]model.ChatMessage
	metrics map[string][]model.AgentMetric
}

type gameRepo struct{ c *core }
type playerRepo struct{ c *core }
type stateRepo struct{ c *core }
type actionRepo struct{ c *core }
type eventRepo struct{ c *core }
type chatRepo struct{ c *core }
type metricsRepo struct{ c *core }
type analyticsRepo struct{ c *core }
type coordinator struct{ c *core }

// New creates an empty store bundled behind the repository interfaces.
func New() *repository.Store {
	c := &core{
		games:   make(map[string]*model.Game),
		players: make(map[string][]model.PlayerRow),
		states:  make(map[string]map[int]*model.StateSnapshot),
		actions: make(map[string][]*model.ActionRecord),
		events:  make(map[string][]model.EventRecord),
		chat:    make(map[string][]model.ChatMessage),
		metrics: make(map[string][]model.AgentMetric),
	}
	return &repository.Store{
		Games:     &gameRepo{c},
		Players:   &playerRepo{c},
		States:    &stateRepo{c},
		Actions:   &actionRepo{c},
		Events:    &eventRepo{c},
		Chat:      &chatRepo{c},
		Metrics:   &metricsRepo{c},
		Analytics: &analyticsRepo{c},
		Tx:        &coordinator{c},
	}
}

// GameRepository

func (r *gameRepo) Create(_ context.Context, g *model.Game) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	cp := *g
	r.c.games[g.ID] = &cp
	return nil
}

func (r *gameRepo) FindByID(_ context.Context, id string) (*model.Game, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	g, ok := r.c.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r *gameRepo) ListByStatus(_ context.Context, status string) ([]model.Game, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	var games []model.Game
	for _, g := range r.c.games {
		if g.Status == status {
			games = append(games, *g)
		}
	}
	sort.Slice(games, func(i, j int) bool { return games[i].CreatedAt.Before(games[j].CreatedAt) })
	return games, nil
}

func (r *gameRepo) UpdateTurn(_ context.Context, gameID string, currentTurn int, status string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if g, ok := r.c.games[gameID]; ok {
		g.CurrentTurn = currentTurn
		g.Status = status
		g.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *gameRepo) SetOutcome(_ context.Context, gameID, status string, finalOutcome json.RawMessage) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if g, ok := r.c.games[gameID]; ok {
		g.Status = status
		g.FinalOutcome = finalOutcome
		g.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *gameRepo) MergeMetadata(_ context.Context, gameID string, patch json.RawMessage) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	g, ok := r.c.games[gameID]
	if !ok {
		return nil
	}
	merged := map[string]json.RawMessage{}
	if g.Metadata != nil {
		if err := json.Unmarshal(g.Metadata, &merged); err != nil {
			return err
		}
	}
	var incoming map[string]json.RawMessage
	if err := json.Unmarshal(patch, &incoming); err != nil {
		return err
	}
	for k, v := range incoming {
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	g.Metadata = data
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// PlayerRepository

func (r *playerRepo) CreateAll(_ context.Context, players []model.PlayerRow) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, p := range players {
		r.c.players[p.GameID] = append(r.c.players[p.GameID], p)
	}
	return nil
}

func (r *playerRepo) ListByGame(_ context.Context, gameID string) ([]model.PlayerRow, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return append([]model.PlayerRow(nil), r.c.players[gameID]...), nil
}

// StateRepository

func (r *stateRepo) Save(_ context.Context, snap *model.StateSnapshot) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	r.c.saveSnapshotLocked(snap)
	return nil
}

func (c *core) saveSnapshotLocked(snap *model.StateSnapshot) {
	if c.states[snap.GameID] == nil {
		c.states[snap.GameID] = make(map[int]*model.StateSnapshot)
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	cp := *snap
	c.states[snap.GameID][snap.TurnNumber] = &cp
}

func (r *stateRepo) FindByTurn(_ context.Context, gameID string, turn int) (*model.StateSnapshot, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	snap, ok := r.c.states[gameID][turn]
	if !ok {
		return nil, nil
	}
	cp := *snap
	return &cp, nil
}

func (r *stateRepo) FindLatest(_ context.Context, gameID string) (*model.StateSnapshot, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.c.findLatestLocked(gameID, -1), nil
}

func (r *stateRepo) FindLatestAtOrBelow(_ context.Context, gameID string, turn int) (*model.StateSnapshot, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.c.findLatestLocked(gameID, turn), nil
}

// findLatestLocked returns the highest-turn snapshot, bounded above by
// maxTurn when maxTurn >= 0.
func (c *core) findLatestLocked(gameID string, maxTurn int) *model.StateSnapshot {
	var best *model.StateSnapshot
	for turn, snap := range c.states[gameID] {
		if maxTurn >= 0 && turn > maxTurn {
			continue
		}
		if best == nil || turn > best.TurnNumber {
			best = snap
		}
	}
	if best == nil {
		return nil
	}
	cp := *best
	return &cp
}

// ActionRepository

func (r *actionRepo) InsertPending(_ context.Context, a *model.ActionRecord) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	cp := *a
	r.c.actions[a.GameID] = append(r.c.actions[a.GameID], &cp)
	return nil
}

func (r *actionRepo) CountValid(_ context.Context, gameID string) (int, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	count := 0
	for _, a := range r.c.actions[gameID] {
		if a.IsValid != nil && *a.IsValid {
			count++
		}
	}
	return count, nil
}

func (r *actionRepo) Latest(_ context.Context, gameID string) (*model.ActionRecord, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	records := r.c.actions[gameID]
	if len(records) == 0 {
		return nil, nil
	}
	cp := *records[len(records)-1]
	return &cp, nil
}

func (r *actionRepo) ListPending(_ context.Context, gameID string) ([]model.ActionRecord, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	var pending []model.ActionRecord
	for _, a := range r.c.actions[gameID] {
		if a.IsValid == nil {
			pending = append(pending, *a)
		}
	}
	return pending, nil
}

func (r *actionRepo) FailPending(_ context.Context, gameID, marker string) (int, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	n := 0
	for _, a := range r.c.actions[gameID] {
		if a.IsValid == nil {
			invalid := false
			a.IsValid = &invalid
			a.Error = marker
			n++
		}
	}
	return n, nil
}

func (r *actionRepo) ListInterruptedGames(_ context.Context) ([]string, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	var ids []string
	for id, g := range r.c.games {
		if g.Status != model.GameStatusActive {
			continue
		}
		for _, a := range r.c.actions[id] {
			if a.IsValid == nil {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// EventRepository

func (r *eventRepo) Append(_ context.Context, events []model.EventRecord) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	r.c.appendEventsLocked(events)
	return nil
}

func (c *core) appendEventsLocked(events []model.EventRecord) {
	for _, e := range events {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		c.events[e.GameID] = append(c.events[e.GameID], e)
	}
}

func (r *eventRepo) ListByGame(_ context.Context, gameID string) ([]model.EventRecord, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return append([]model.EventRecord(nil), r.c.events[gameID]...), nil
}

// ChatRepository

func (r *chatRepo) Insert(_ context.Context, m *model.ChatMessage) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	r.c.insertChatLocked(m)
	return nil
}

func (c *core) insertChatLocked(m *model.ChatMessage) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	c.chat[m.GameID] = append(c.chat[m.GameID], *m)
}

func (r *chatRepo) ListByGame(_ context.Context, gameID string) ([]model.ChatMessage, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return append([]model.ChatMessage(nil), r.c.chat[gameID]...), nil
}

// MetricsRepository

func (r *metricsRepo) Record(_ context.Context, m *model.AgentMetric) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	r.c.metrics[m.GameID] = append(r.c.metrics[m.GameID], *m)
	return nil
}

// AnalyticsRepository

func (r *analyticsRepo) AgentPerformance(_ context.Context, gameID string) ([]model.AgentPerformance, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	byActor := map[string]*model.AgentPerformance{}
	sums := map[string]int64{}
	counted := map[string]int{}
	for _, a := range r.c.actions[gameID] {
		p := byActor[a.ActorID]
		if p == nil {
			p = &model.AgentPerformance{ActorID: a.ActorID}
			byActor[a.ActorID] = p
		}
		p.TotalActions++
		if a.IsValid != nil {
			if *a.IsValid {
				p.ValidActions++
			} else {
				p.InvalidActions++
			}
		}
		if a.ProcessingMs != nil {
			sums[a.ActorID] += *a.ProcessingMs
			counted[a.ActorID]++
		}
	}
	var perf []model.AgentPerformance
	for actor, p := range byActor {
		if counted[actor] > 0 {
			p.AvgProcessingMs = float64(sums[actor]) / float64(counted[actor])
		}
		perf = append(perf, *p)
	}
	sort.Slice(perf, func(i, j int) bool { return perf[i].ActorID < perf[j].ActorID })
	return perf, nil
}

func (r *analyticsRepo) GameTimeline(_ context.Context, gameID string) ([]model.TimelineEntry, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	var entries []model.TimelineEntry
	for _, a := range r.c.actions[gameID] {
		entries = append(entries, model.TimelineEntry{
			TurnNumber: a.TurnNumber,
			Kind:       "action",
			Type:       a.Kind,
			ActorID:    a.ActorID,
			Detail:     a.Params,
			CreatedAt:  a.CreatedAt,
		})
	}
	for _, e := range r.c.events[gameID] {
		entries = append(entries, model.TimelineEntry{
			TurnNumber: e.TurnNumber,
			Kind:       "event",
			Type:       e.Type,
			ActorID:    e.ActorID,
			Detail:     e.Payload,
			CreatedAt:  e.CreatedAt,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TurnNumber != entries[j].TurnNumber {
			return entries[i].TurnNumber < entries[j].TurnNumber
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// Coordinator

// CommitAction applies the bundled writes under the store lock; the
// whole bundle is visible at once, like the postgres transaction.
func (t *coordinator) CommitAction(_ context.Context, w *repository.ActionWrite) error {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()

	for _, a := range t.c.actions[w.GameID] {
		if a.ID == w.ActionID {
			valid := w.IsValid
			a.TurnNumber = w.TurnNumber
			a.IsValid = &valid
			a.Error = w.Error
			ms := w.ProcessingMs
			a.ProcessingMs = &ms
			break
		}
	}

	if w.Snapshot != nil {
		t.c.saveSnapshotLocked(w.Snapshot)
	}
	t.c.appendEventsLocked(w.Events)
	if w.Chat != nil {
		t.c.insertChatLocked(w.Chat)
	}
	for _, u := range w.AliveUpdates {
		seats := t.c.players[w.GameID]
		for i := range seats {
			if seats[i].SeatID == u.SeatID {
				seats[i].Alive = u.Alive
			}
		}
	}
	if w.IsValid {
		if g, ok := t.c.games[w.GameID]; ok {
			g.CurrentTurn = w.CurrentTurn
			g.Status = w.Status
			if w.FinalOutcome != nil {
				g.FinalOutcome = w.FinalOutcome
			}
			g.UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}
