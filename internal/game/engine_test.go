package game

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubContent is a deterministic Content: fixed themes, fixed-letter
// acronyms, instant backronyms, and votes for the first candidate.
type stubContent struct{}

func (stubContent) ThemeAndAcronym(letterCount int, used []string) (string, string, bool) {
	return "Test Theme", strings.Repeat("A", letterCount), false
}

func (stubContent) FaceoffThemeAndAcronym(letterCount int, lobbyType LobbyType) (string, string) {
	return "Faceoff Theme", strings.Repeat("B", letterCount)
}

func (stubContent) Backronym(ctx context.Context, acronym, theme string, player Player) string {
	return fmt.Sprintf("%s by %s", acronym, player.Name)
}

func (stubContent) ChooseVote(ctx context.Context, acronym, theme string, candidates []Submission, voter Player) string {
	return candidates[0].PlayerID
}

// recordBroadcaster collects every snapshot pushed for inspection.
type recordBroadcaster struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (b *recordBroadcaster) GameState(gameID string, state Snapshot) {
	b.mu.Lock()
	b.snaps = append(b.snaps, state)
	b.mu.Unlock()
}

func (b *recordBroadcaster) all() []Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Snapshot{}, b.snaps...)
}

// fastTimings runs every phase at zero seconds on a millisecond tick.
// Individual tests pin a phase open by raising its duration.
func fastTimings() Timings {
	return Timings{
		Tick:         2 * time.Millisecond,
		VoteDelayMin: time.Millisecond,
		VoteDelayMax: 2 * time.Millisecond,
	}
}

func newTestEngine(timings Timings) (*Engine, *Registry, *recordBroadcaster) {
	reg := NewRegistry()
	bc := &recordBroadcaster{}
	e := NewEngine(reg, stubContent{}, bc, clockwork.NewRealClock(), timings)
	return e, reg, bc
}

func phaseOf(e *Engine, gameID string) Phase {
	snap, ok := e.Snapshot(gameID)
	if !ok {
		return ""
	}
	return snap.Phase
}

func waitPhase(t *testing.T, e *Engine, gameID string, want Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return phaseOf(e, gameID) == want
	}, 5*time.Second, time.Millisecond, "expected phase %s, last was %s", want, phaseOf(e, gameID))
}

func TestCreatePrivateGame(t *testing.T) {
	e, _, _ := newTestEngine(fastTimings())
	host := NewPlayer("h1", "Host", GenZ, "California")

	g := e.CreateGame(host, true, LobbyAllGenerations)

	require.True(t, strings.HasPrefix(g.ID, "PRIVATE-"))
	snap, ok := e.Snapshot(g.ID)
	require.True(t, ok)
	assert.Equal(t, PhaseLobby, snap.Phase)
	assert.Equal(t, "h1", snap.HostID)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Host", snap.Players[0].Name)

	// A private lobby waits for the host; no countdown may start it.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, PhaseLobby, phaseOf(e, g.ID))
}

func TestPublicGameAutoStartsAndFills(t *testing.T) {
	timings := fastTimings()
	timings.ThemeReveal = 9999
	e, _, _ := newTestEngine(timings)
	host := NewPlayer("h1", "Host", GenZ, "California")

	g := e.CreateGame(host, false, LobbyAllGenerations)
	require.True(t, strings.HasPrefix(g.ID, "PUBLIC-"))

	// LobbyStart is zero seconds, so the lobby countdown expires on its
	// first tick and the game begins with a full roster.
	waitPhase(t, e, g.ID, PhaseRoundThemeReveal)
	snap, _ := e.Snapshot(g.ID)
	assert.Len(t, snap.Players, lobbySize)
	bots := 0
	for _, p := range snap.Players {
		if p.IsAI {
			bots++
		}
	}
	assert.Equal(t, lobbySize-1, bots)
	assert.Equal(t, 1, snap.RoundNumber)
	assert.Equal(t, "Test Theme", snap.Theme)
	assert.Len(t, snap.Acronym, 1+acronymLengthOffset)
}

func TestJoinIsIdempotent(t *testing.T) {
	e, _, _ := newTestEngine(fastTimings())
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)

	require.NoError(t, e.Join(g.ID, host))
	require.NoError(t, e.Join(g.ID, host))

	snap, _ := e.Snapshot(g.ID)
	assert.Len(t, snap.Players, 1)
}

func TestJoinErrors(t *testing.T) {
	timings := fastTimings()
	timings.ThemeReveal = 9999
	e, _, _ := newTestEngine(timings)
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)

	require.ErrorIs(t, e.Join("PRIVATE-XXXXX", host), ErrGameNotFound)

	for i := 1; i < lobbySize; i++ {
		p := NewPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("P%d", i), GenZ, "")
		require.NoError(t, e.Join(g.ID, p))
	}
	extra := NewPlayer("extra", "Extra", GenZ, "")
	require.ErrorIs(t, e.Join(g.ID, extra), ErrLobbyFull)

	e.StartGame(g.ID, "h1")
	waitPhase(t, e, g.ID, PhaseRoundThemeReveal)
	late := NewPlayer("late", "Late", GenZ, "")
	require.ErrorIs(t, e.Join(g.ID, late), ErrGameInProgress)
}

func TestJoinByCodeIsCaseInsensitive(t *testing.T) {
	e, _, _ := newTestEngine(fastTimings())
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)
	code := strings.TrimPrefix(g.ID, "PRIVATE-")

	p := NewPlayer("p2", "Two", Millennials, "")
	gameID, err := e.JoinByCode(strings.ToLower(code), p)
	require.NoError(t, err)
	assert.Equal(t, g.ID, gameID)
}

func TestLeaveTransfersHostAndDeletesEmptyGame(t *testing.T) {
	e, reg, _ := newTestEngine(fastTimings())
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)
	p2 := NewPlayer("p2", "Two", Millennials, "")
	require.NoError(t, e.Join(g.ID, p2))

	e.Leave(g.ID, "h1")
	snap, ok := e.Snapshot(g.ID)
	require.True(t, ok)
	assert.Equal(t, "p2", snap.HostID)

	e.Leave(g.ID, "p2")
	assert.Nil(t, reg.Get(g.ID))
}

func TestStartGameRequiresHost(t *testing.T) {
	timings := fastTimings()
	timings.ThemeReveal = 9999
	e, _, _ := newTestEngine(timings)
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)

	e.StartGame(g.ID, "someone-else")
	assert.Equal(t, PhaseLobby, phaseOf(e, g.ID))

	e.StartGame(g.ID, "h1")
	waitPhase(t, e, g.ID, PhaseRoundThemeReveal)
}

// twoHumanGame builds a started private game with two humans and pins the
// submission window open.
func twoHumanGame(t *testing.T, timings Timings) (*Engine, *Registry, string) {
	t.Helper()
	e, reg, _ := newTestEngine(timings)
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)
	require.NoError(t, e.Join(g.ID, NewPlayer("p2", "Two", Millennials, "")))
	e.StartGame(g.ID, "h1")
	waitPhase(t, e, g.ID, PhaseSubmitting)
	return e, reg, g.ID
}

func TestAllHumansSubmittedAdvancesEarly(t *testing.T) {
	timings := fastTimings()
	timings.Submission = 9999
	timings.Voting = 9999
	e, _, gameID := twoHumanGame(t, timings)

	e.Submit(gameID, "h1", "Alpha Beta Cats")
	assert.Equal(t, PhaseSubmitting, phaseOf(e, gameID))

	e.Submit(gameID, "p2", "Another Big Cat")
	assert.Equal(t, PhaseVoting, phaseOf(e, gameID))

	snap, _ := e.Snapshot(gameID)
	require.Len(t, snap.Submissions, 2)
}

func TestDuplicateSubmissionDropped(t *testing.T) {
	timings := fastTimings()
	timings.Submission = 9999
	timings.Voting = 9999
	e, _, gameID := twoHumanGame(t, timings)

	e.Submit(gameID, "h1", "first")
	e.Submit(gameID, "h1", "second")

	snap, _ := e.Snapshot(gameID)
	require.Len(t, snap.Submissions, 1)
	assert.Equal(t, "first", snap.Submissions[0].Backronym)
}

func TestVotingTimeoutAddsPlaceholders(t *testing.T) {
	timings := fastTimings()
	timings.Voting = 9999
	e, _, _ := newTestEngine(timings)
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)
	require.NoError(t, e.Join(g.ID, NewPlayer("p2", "Two", Millennials, "")))
	e.StartGame(g.ID, "h1")
	gameID := g.ID

	// Nobody submits; the zero-second submission window expires on its own.
	waitPhase(t, e, gameID, PhaseVoting)
	snap, _ := e.Snapshot(gameID)
	require.Len(t, snap.Submissions, 2)
	for _, sub := range snap.Submissions {
		assert.Equal(t, "Didn't submit in time!", sub.Backronym)
	}
}

func TestVoteRules(t *testing.T) {
	timings := fastTimings()
	timings.Submission = 9999
	timings.Voting = 9999
	timings.RoundResults = 9999
	e, _, gameID := twoHumanGame(t, timings)

	e.Submit(gameID, "h1", "one")
	e.Submit(gameID, "p2", "two")
	require.Equal(t, PhaseVoting, phaseOf(e, gameID))

	// Self-votes and votes for absent submissions are dropped.
	e.CastVote(gameID, "h1", "h1")
	e.CastVote(gameID, "h1", "ghost")
	snap, _ := e.Snapshot(gameID)
	for _, sub := range snap.Submissions {
		assert.Empty(t, sub.Votes)
	}

	e.CastVote(gameID, "h1", "p2")
	// A second vote from the same player changes nothing.
	e.CastVote(gameID, "h1", "p2")
	snap, _ = e.Snapshot(gameID)
	total := 0
	for _, sub := range snap.Submissions {
		total += len(sub.Votes)
	}
	assert.Equal(t, 1, total)
}

func TestAllVotedScoresRound(t *testing.T) {
	timings := fastTimings()
	timings.Submission = 9999
	timings.Voting = 9999
	timings.RoundResults = 9999
	e, _, gameID := twoHumanGame(t, timings)

	e.Submit(gameID, "h1", "one")
	e.Submit(gameID, "p2", "two")
	e.CastVote(gameID, "h1", "p2")
	assert.Equal(t, PhaseVoting, phaseOf(e, gameID))

	// The last eligible vote closes the phase without waiting the timer.
	e.CastVote(gameID, "p2", "h1")
	snap, _ := e.Snapshot(gameID)
	require.Equal(t, PhaseRoundResults, snap.Phase)

	// One vote each is 100 points; the first submission holding the
	// highest count takes the 300 bonus and the round winner slot.
	scores := map[string]int{}
	for _, p := range snap.Players {
		scores[p.ID] = p.Score
	}
	assert.Equal(t, "h1", snap.RoundWinnerID)
	assert.Equal(t, 400, scores["h1"])
	assert.Equal(t, 100, scores["p2"])
}

func TestFaceoffSelectsTopTwoWithTies(t *testing.T) {
	timings := fastTimings()
	timings.FaceoffSubmit = 9999
	e, reg, _ := newTestEngine(timings)
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)
	for _, id := range []string{"p2", "p3", "p4"} {
		require.NoError(t, e.Join(g.ID, NewPlayer(id, strings.ToUpper(id), Millennials, "")))
	}

	// Pin the game just before the face-off hand-off with a score spread
	// where two players tie for second place.
	gm := reg.Get(g.ID)
	gm.mu.Lock()
	gm.Phase = PhaseRoundResults
	gm.RoundNumber = roundCap
	for _, p := range gm.Players {
		switch p.ID {
		case "h1":
			p.Score = 700
		case "p2", "p3":
			p.Score = 400
		case "p4":
			p.Score = 100
		}
	}
	gm.mu.Unlock()

	e.startFaceoff(g.ID)

	snap, _ := e.Snapshot(g.ID)
	require.Equal(t, PhaseFaceoffSubmitting, snap.Phase)
	assert.ElementsMatch(t, []string{"h1", "p2", "p3"}, snap.FaceoffPlayers)
	assert.Equal(t, "Faceoff Theme", snap.Theme)
	assert.Len(t, snap.Acronym, faceoffAcronymLetters)
}

func TestFaceoffVoteRestrictedToAudience(t *testing.T) {
	timings := fastTimings()
	timings.FaceoffSubmit = 9999
	timings.FaceoffVote = 9999
	timings.FaceoffResults = 9999
	e, reg, _ := newTestEngine(timings)
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)
	for _, id := range []string{"p2", "p3"} {
		require.NoError(t, e.Join(g.ID, NewPlayer(id, strings.ToUpper(id), Millennials, "")))
	}

	gm := reg.Get(g.ID)
	gm.mu.Lock()
	gm.Phase = PhaseRoundResults
	gm.RoundNumber = roundCap
	for _, p := range gm.Players {
		switch p.ID {
		case "h1":
			p.Score = 500
		case "p2":
			p.Score = 400
		}
	}
	gm.mu.Unlock()

	e.startFaceoff(g.ID)
	require.Equal(t, PhaseFaceoffSubmitting, phaseOf(e, g.ID))

	// Only finalists may submit.
	e.SubmitFaceoff(g.ID, "p3", "not a finalist")
	snap, _ := e.Snapshot(g.ID)
	assert.Empty(t, snap.FaceoffSubmissions)

	e.SubmitFaceoff(g.ID, "h1", "host entry")
	e.SubmitFaceoff(g.ID, "p2", "runner up entry")
	require.Equal(t, PhaseFaceoffVoting, phaseOf(e, g.ID))

	// Finalists cannot vote on their own duel.
	e.CastFaceoffVote(g.ID, "h1", "p2")
	snap, _ = e.Snapshot(g.ID)
	for _, sub := range snap.FaceoffSubmissions {
		assert.Empty(t, sub.Votes)
	}

	// The sole audience member's vote closes the phase and decides it.
	e.CastFaceoffVote(g.ID, "p3", "p2")
	snap, _ = e.Snapshot(g.ID)
	require.Equal(t, PhaseFaceoffResults, snap.Phase)
	assert.Equal(t, "p2", snap.GameWinnerID)
}

func TestFullGameReachesGameOver(t *testing.T) {
	timings := fastTimings()
	e, reg, _ := newTestEngine(timings)
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)
	e.AddBot(g.ID, "h1")
	e.AddBot(g.ID, "h1")
	e.AddBot(g.ID, "h1")
	e.StartGame(g.ID, "h1")

	// Every phase lasts zero seconds; three rounds plus the face-off run
	// end to end on countdown expiries alone.
	waitPhase(t, e, g.ID, PhaseGameOver)
	snap, _ := e.Snapshot(g.ID)
	assert.Equal(t, roundCap, snap.RoundNumber)
	require.NotEmpty(t, snap.GameWinnerID)
	assert.Equal(t, 1, reg.WinsOf(snap.GameWinnerID))
	winner := false
	for _, p := range snap.Players {
		if p.ID == snap.GameWinnerID {
			winner = true
			assert.Equal(t, 1, p.Wins)
		}
	}
	assert.True(t, winner, "game winner should hold a seat")

	// Terminal phase lingers until the last human leaves.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, PhaseGameOver, phaseOf(e, g.ID))
	e.Leave(g.ID, "h1")
	assert.Nil(t, reg.Get(g.ID))
}

func TestAddRemoveBot(t *testing.T) {
	e, _, _ := newTestEngine(fastTimings())
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)

	e.AddBot(g.ID, "h1")
	e.AddBot(g.ID, "h1")
	snap, _ := e.Snapshot(g.ID)
	require.Len(t, snap.Players, 3)
	assert.NotEqual(t, snap.Players[1].Name, snap.Players[2].Name)

	// Non-hosts cannot manage the roster.
	e.RemoveBot(g.ID, "stranger")
	snap, _ = e.Snapshot(g.ID)
	require.Len(t, snap.Players, 3)

	e.RemoveBot(g.ID, "h1")
	snap, _ = e.Snapshot(g.ID)
	require.Len(t, snap.Players, 2)
}

func TestSnapshotHidesInternalState(t *testing.T) {
	timings := fastTimings()
	timings.ThemeReveal = 9999
	e, reg, _ := newTestEngine(timings)
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)
	e.StartGame(g.ID, "h1")
	waitPhase(t, e, g.ID, PhaseRoundThemeReveal)

	// The game now carries a live timer handle and a used-theme entry;
	// neither may reach clients.
	gm := reg.Get(g.ID)
	gm.mu.Lock()
	require.NotNil(t, gm.timer)
	require.NotEmpty(t, gm.usedThemes)
	gm.mu.Unlock()

	snap, ok := e.Snapshot(g.ID)
	require.True(t, ok)
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	var keys map[string]any
	require.NoError(t, json.Unmarshal(raw, &keys))
	assert.NotContains(t, keys, "timer")
	assert.NotContains(t, keys, "timerId")
	assert.NotContains(t, keys, "usedThemes")
	assert.Contains(t, keys, "countdown")
	assert.Contains(t, keys, "players")
}

func TestSnapshotClampsNegativeCountdown(t *testing.T) {
	e, reg, _ := newTestEngine(fastTimings())
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)

	// The tick loop holds a negative value for the instant between the
	// final decrement and the phase flip; a concurrent snapshot in that
	// window must still read zero.
	gm := reg.Get(g.ID)
	gm.mu.Lock()
	gm.Countdown = -1
	gm.mu.Unlock()

	snap, ok := e.Snapshot(g.ID)
	require.True(t, ok)
	assert.Equal(t, 0, snap.Countdown)
}

func TestLeaveUnknownPlayerIsSilent(t *testing.T) {
	e, reg, bc := newTestEngine(fastTimings())
	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)
	before := len(bc.all())

	e.Leave(g.ID, "nobody")

	require.NotNil(t, reg.Get(g.ID))
	snap, _ := e.Snapshot(g.ID)
	require.Len(t, snap.Players, 1)
	assert.Len(t, bc.all(), before, "no broadcast for a no-op leave")
}

func TestLifetimeWinsSurviveRejoin(t *testing.T) {
	e, reg, _ := newTestEngine(fastTimings())
	reg.AddWin("h1")
	reg.AddWin("h1")

	host := NewPlayer("h1", "Host", GenZ, "California")
	g := e.CreateGame(host, true, LobbyAllGenerations)
	snap, _ := e.Snapshot(g.ID)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, 2, snap.Players[0].Wins)
}
