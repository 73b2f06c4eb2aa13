package game

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
)

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrLobbyFull      = errors.New("lobby full")
	ErrGameInProgress = errors.New("game already in progress")
)

const joinCodeLength = 5

// Registry is the process-wide session table. It owns game lifecycle
// (create, lookup, delete) and the lifetime face-off win counters that
// outlive individual games. It never mutates game state beyond the timer
// cancel on delete; that is the Engine's job.
type Registry struct {
	mu    sync.RWMutex
	games map[string]*Game
	wins  map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		games: make(map[string]*Game),
		wins:  make(map[string]int),
	}
}

// Create registers a new game in the Lobby phase. Public and private games
// share the code space; the id prefix encodes visibility.
func (r *Registry) Create(hostID string, private bool, lobbyType LobbyType) *Game {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := "PUBLIC-"
	if private {
		prefix = "PRIVATE-"
	}
	id := prefix + randomCode(joinCodeLength)
	for r.games[id] != nil {
		id = prefix + randomCode(joinCodeLength)
	}

	g := &Game{
		ID:        id,
		HostID:    hostID,
		LobbyType: lobbyType,
		Phase:     PhaseLobby,
	}
	r.games[id] = g
	return g
}

func (r *Registry) Get(id string) *Game {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.games[id]
}

// FindByCode resolves the human-entered join code (the id suffix),
// case-insensitively.
func (r *Registry) FindByCode(code string) *Game {
	if code == "" {
		return nil
	}
	suffix := strings.ToUpper(code)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, g := range r.games {
		if strings.HasSuffix(id, suffix) {
			return g
		}
	}
	return nil
}

// FindByPlayer locates the game a player is currently seated in. Used for
// disconnect handling, where only the connection id is known.
func (r *Registry) FindByPlayer(playerID string) *Game {
	r.mu.RLock()
	games := make([]*Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	r.mu.RUnlock()

	for _, g := range games {
		g.mu.Lock()
		found := g.playerLocked(playerID) != nil
		g.mu.Unlock()
		if found {
			return g
		}
	}
	return nil
}

// Delete removes the game and cancels any in-flight countdown so a stale
// completion cannot fire against a dead game. The registry lock is released
// before the game lock is taken; a countdown tick holding the game lock may
// be querying the registry at the same time.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	g := r.games[id]
	delete(r.games, id)
	r.mu.Unlock()

	if g != nil {
		g.mu.Lock()
		g.stopTimerLocked()
		g.mu.Unlock()
	}
}

// AddWin bumps a player's lifetime face-off win counter.
func (r *Registry) AddWin(playerID string) {
	r.mu.Lock()
	r.wins[playerID]++
	r.mu.Unlock()
}

func (r *Registry) WinsOf(playerID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.wins[playerID]
}

func randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
