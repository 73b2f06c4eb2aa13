package game

import (
	"context"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Content produces round material and simulated-player behavior. Theme and
// acronym generation is synchronous and deterministic; Backronym and
// ChooseVote may call out to a text-generation backend but must recover from
// any failure internally and always return something usable.
type Content interface {
	// ThemeAndAcronym picks an unused round theme and generates an acronym
	// of letterCount letters. recycled reports that the theme pool was
	// exhausted and the used list should be reset.
	ThemeAndAcronym(letterCount int, used []string) (theme, acronym string, recycled bool)
	FaceoffThemeAndAcronym(letterCount int, lobbyType LobbyType) (theme, acronym string)
	Backronym(ctx context.Context, acronym, theme string, player Player) string
	// ChooseVote returns the playerId of one of candidates. Candidates never
	// include the voter's own submission.
	ChooseVote(ctx context.Context, acronym, theme string, candidates []Submission, voter Player) string
}

// Broadcaster pushes a snapshot to every connection of a game's room.
type Broadcaster interface {
	GameState(gameID string, state Snapshot)
}

// Engine is the sole mutator of game state. Every exported action locks the
// target game's mutex for its duration, giving each game the single-writer
// guarantee the phase machine depends on.
//
// Protocol violations (wrong phase, unknown player, duplicate or self
// votes) are silent no-ops: no mutation, no broadcast.
type Engine struct {
	reg       *Registry
	content   Content
	broadcast Broadcaster
	clock     clockwork.Clock
	timings   Timings
}

func NewEngine(reg *Registry, content Content, broadcast Broadcaster, clock clockwork.Clock, timings Timings) *Engine {
	return &Engine{
		reg:       reg,
		content:   content,
		broadcast: broadcast,
		clock:     clock,
		timings:   timings,
	}
}

// CreateGame registers a new game and seats the creator as host. Public
// games immediately start their lobby countdown and will auto-fill with
// simulated players when it expires; private games wait for an explicit
// host start.
func (e *Engine) CreateGame(p Player, private bool, lobbyType LobbyType) *Game {
	g := e.reg.Create(p.ID, private, lobbyType)
	if err := e.Join(g.ID, p); err != nil {
		// Freshly created lobby; cannot be full or started.
		log.Error().Err(err).Str("game", g.ID).Msg("host failed to join own game")
	}
	log.Info().Str("game", g.ID).Str("host", p.ID).Bool("private", private).Msg("game created")

	if !private {
		g.mu.Lock()
		e.runCountdownLocked(g, e.timings.LobbyStart, func() { e.startGame(g.ID) })
		g.mu.Unlock()
	}
	return g
}

// Join seats a player in the lobby. Re-joining with a seated id is an
// idempotent no-op so reconnects don't burn a seat.
func (e *Engine) Join(gameID string, p Player) error {
	g := e.reg.Get(gameID)
	if g == nil {
		return ErrGameNotFound
	}

	g.mu.Lock()
	if g.Phase != PhaseLobby {
		g.mu.Unlock()
		return ErrGameInProgress
	}
	if g.playerLocked(p.ID) == nil {
		if len(g.Players) >= lobbySize {
			g.mu.Unlock()
			return ErrLobbyFull
		}
		p.Score = 0
		p.HasSubmitted = false
		p.Wins = e.reg.WinsOf(p.ID)
		seat := p
		g.Players = append(g.Players, &seat)
	}
	snap := g.snapshotLocked()
	g.mu.Unlock()

	log.Info().Str("game", gameID).Str("player", p.ID).Str("name", p.Name).Msg("player joined")
	e.broadcast.GameState(gameID, snap)
	return nil
}

// JoinByCode resolves a human-entered join code to a game and seats the
// player, returning the full game id.
func (e *Engine) JoinByCode(code string, p Player) (string, error) {
	g := e.reg.FindByCode(code)
	if g == nil {
		return "", ErrGameNotFound
	}
	return g.ID, e.Join(g.ID, p)
}

// Leave removes a player. The last departing human tears the game down;
// otherwise host ownership passes to the next human seat.
func (e *Engine) Leave(gameID, playerID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}

	g.mu.Lock()
	removed := false
	kept := g.Players[:0]
	for _, p := range g.Players {
		if p.ID != playerID {
			kept = append(kept, p)
		} else {
			removed = true
		}
	}
	if !removed {
		g.mu.Unlock()
		return
	}
	g.Players = kept

	humans := 0
	for _, p := range g.Players {
		if !p.IsAI {
			humans++
		}
	}
	if humans == 0 {
		g.mu.Unlock()
		e.reg.Delete(gameID)
		log.Info().Str("game", gameID).Msg("no human players left, deleting game")
		return
	}

	if g.HostID == playerID {
		for _, p := range g.Players {
			if !p.IsAI {
				g.HostID = p.ID
				break
			}
		}
	}
	snap := g.snapshotLocked()
	g.mu.Unlock()

	log.Info().Str("game", gameID).Str("player", playerID).Msg("player left")
	e.broadcast.GameState(gameID, snap)
}

// StartGame is the host's explicit start action for a lobby.
func (e *Engine) StartGame(gameID, requesterID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}
	g.mu.Lock()
	ok := g.Phase == PhaseLobby && g.HostID == requesterID
	g.mu.Unlock()
	if ok {
		e.startGame(gameID)
	}
}

// startGame leaves the lobby: public games fill empty seats with simulated
// players, everyone's score resets, and round one begins.
func (e *Engine) startGame(gameID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.Phase != PhaseLobby {
		g.mu.Unlock()
		return
	}
	g.stopTimerLocked()
	if strings.HasPrefix(g.ID, "PUBLIC-") {
		e.fillBotsLocked(g)
	}
	for _, p := range g.Players {
		p.Score = 0
	}
	g.mu.Unlock()

	log.Info().Str("game", gameID).Msg("game starting")
	e.startRound(gameID)
}

// Submit records a player's backronym for the current round. Duplicate
// submissions are dropped. The phase advances the moment every human has
// submitted.
func (e *Engine) Submit(gameID, playerID, text string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}

	g.mu.Lock()
	if g.Phase != PhaseSubmitting {
		g.mu.Unlock()
		return
	}
	p := g.playerLocked(playerID)
	if p == nil || p.HasSubmitted {
		g.mu.Unlock()
		return
	}
	p.HasSubmitted = true
	g.Submissions = append(g.Submissions, &Submission{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Backronym:  text,
		Votes:      []string{},
	})

	allHumans := true
	for _, pl := range g.Players {
		if !pl.IsAI && !pl.HasSubmitted {
			allHumans = false
			break
		}
	}
	var snap Snapshot
	if allHumans {
		g.stopTimerLocked()
	} else {
		snap = g.snapshotLocked()
	}
	g.mu.Unlock()

	if allHumans {
		e.startVotingPhase(gameID)
	} else {
		e.broadcast.GameState(gameID, snap)
	}
}

// CastVote records one vote for another player's submission. Self-votes,
// double votes, and votes for absent submissions are dropped. The phase
// advances the moment every player has voted.
func (e *Engine) CastVote(gameID, voterID, targetPlayerID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}

	g.mu.Lock()
	if g.Phase != PhaseVoting {
		g.mu.Unlock()
		return
	}
	sub := findSubmission(g.Submissions, targetPlayerID)
	if sub == nil || sub.PlayerID == voterID || hasVoted(g.Submissions, voterID) {
		g.mu.Unlock()
		return
	}
	sub.Votes = append(sub.Votes, voterID)

	advance := e.allVotedLocked(g)
	if advance {
		g.stopTimerLocked()
	}
	snap := g.snapshotLocked()
	g.mu.Unlock()

	e.broadcast.GameState(gameID, snap)
	if advance {
		log.Info().Str("game", gameID).Msg("all players have voted, advancing")
		e.startRoundResults(gameID)
	}
}

// SubmitFaceoff records a finalist's face-off backronym. The phase advances
// the moment every finalist (human or simulated) has submitted.
func (e *Engine) SubmitFaceoff(gameID, playerID, text string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}

	g.mu.Lock()
	if g.Phase != PhaseFaceoffSubmitting || !g.isFaceoffPlayerLocked(playerID) {
		g.mu.Unlock()
		return
	}
	p := g.playerLocked(playerID)
	if p == nil || p.HasSubmitted {
		g.mu.Unlock()
		return
	}
	p.HasSubmitted = true
	g.FaceoffSubmissions = append(g.FaceoffSubmissions, &Submission{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Backronym:  text,
		Votes:      []string{},
	})

	advance := g.allFaceoffSubmittedLocked()
	var snap Snapshot
	if advance {
		g.stopTimerLocked()
	} else {
		snap = g.snapshotLocked()
	}
	g.mu.Unlock()

	if advance {
		e.startFaceoffVoting(gameID)
	} else {
		e.broadcast.GameState(gameID, snap)
	}
}

// CastFaceoffVote records an audience vote. Finalists cannot vote.
func (e *Engine) CastFaceoffVote(gameID, voterID, targetPlayerID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}

	g.mu.Lock()
	if g.Phase != PhaseFaceoffVoting || g.isFaceoffPlayerLocked(voterID) {
		g.mu.Unlock()
		return
	}
	sub := findSubmission(g.FaceoffSubmissions, targetPlayerID)
	if sub == nil || sub.PlayerID == voterID || hasVoted(g.FaceoffSubmissions, voterID) {
		g.mu.Unlock()
		return
	}
	sub.Votes = append(sub.Votes, voterID)

	advance := e.allVotedLocked(g)
	if advance {
		g.stopTimerLocked()
	}
	snap := g.snapshotLocked()
	g.mu.Unlock()

	e.broadcast.GameState(gameID, snap)
	if advance {
		log.Info().Str("game", gameID).Msg("audience has voted, advancing face-off")
		e.startFaceoffResults(gameID)
	}
}

// Snapshot returns the current client-visible state of a game.
func (e *Engine) Snapshot(gameID string) (Snapshot, bool) {
	g := e.reg.Get(gameID)
	if g == nil {
		return Snapshot{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked(), true
}

func (g *Game) allFaceoffSubmittedLocked() bool {
	for _, id := range g.FaceoffPlayers {
		p := g.playerLocked(id)
		if p == nil || !p.HasSubmitted {
			return false
		}
	}
	return len(g.FaceoffPlayers) > 0
}

// allVotedLocked reports whether every eligible voter for the current phase
// has cast a vote. Eligibility differs per phase: everyone votes in general
// rounds, only non-finalists vote in the face-off. An empty voter pool never
// early-advances; the countdown covers that case.
func (e *Engine) allVotedLocked(g *Game) bool {
	var subs []*Submission
	var eligible []*Player
	switch g.Phase {
	case PhaseVoting:
		subs = g.Submissions
		eligible = g.Players
	case PhaseFaceoffVoting:
		subs = g.FaceoffSubmissions
		for _, p := range g.Players {
			if !g.isFaceoffPlayerLocked(p.ID) {
				eligible = append(eligible, p)
			}
		}
	default:
		return false
	}
	if len(eligible) == 0 {
		return false
	}

	voted := make(map[string]bool)
	for _, s := range subs {
		for _, v := range s.Votes {
			voted[v] = true
		}
	}
	for _, p := range eligible {
		if !voted[p.ID] {
			return false
		}
	}
	return true
}

func findSubmission(subs []*Submission, playerID string) *Submission {
	for _, s := range subs {
		if s.PlayerID == playerID {
			return s
		}
	}
	return nil
}

func hasVoted(subs []*Submission, voterID string) bool {
	for _, s := range subs {
		for _, v := range s.Votes {
			if v == voterID {
				return true
			}
		}
	}
	return false
}
