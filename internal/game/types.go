package game

import (
	"sync"
	"time"
)

// Phase is the current state of a game's state machine. Every phase after
// Lobby is left either by a countdown expiry or by an early-completion
// condition (all eligible players have acted).
type Phase string

const (
	PhaseLobby              Phase = "Lobby"
	PhaseRoundThemeReveal   Phase = "RoundThemeReveal"
	PhaseRoundAcronymReveal Phase = "RoundAcronymReveal"
	PhaseSubmitting         Phase = "Submitting"
	PhaseVoting             Phase = "Voting"
	PhaseRoundResults       Phase = "RoundResults"
	PhaseFaceoffSubmitting  Phase = "FaceoffSubmitting"
	PhaseFaceoffVoting      Phase = "FaceoffVoting"
	PhaseFaceoffResults     Phase = "FaceoffResults"
	PhaseGameOver           Phase = "GameOver"
)

type Generation string

const (
	GenZ        Generation = "Gen Z"
	Millennials Generation = "Millennials"
	GenX        Generation = "Gen X"
	Boomers     Generation = "Boomers"
)

// LobbyType is either a single Generation or LobbyAllGenerations. It only
// influences the face-off theme pool.
type LobbyType string

const LobbyAllGenerations LobbyType = "All Generations"

const (
	lobbySize             = 10
	roundCap              = 3
	acronymLengthOffset   = 2 // round 1 -> 3 letters, round 2 -> 4, round 3 -> 5
	faceoffAcronymLetters = 5
)

type Player struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Generation   Generation `json:"generation"`
	IsAI         bool       `json:"isAI"`
	Region       string     `json:"region"`
	Score        int        `json:"score"`
	HasSubmitted bool       `json:"hasSubmitted"`
	Wins         int        `json:"wins"`
}

// NewPlayer builds a human player seat. The id is connection-derived and
// stable for the lifetime of the connection.
func NewPlayer(id, name string, generation Generation, region string) Player {
	return Player{ID: id, Name: name, Generation: generation, Region: region}
}

type Submission struct {
	PlayerID   string   `json:"playerId"`
	PlayerName string   `json:"playerName"`
	Backronym  string   `json:"backronym"`
	Votes      []string `json:"votes"`
}

// Game is one game instance. Only the Engine mutates it, always under mu.
// The timer handle and usedThemes never leave the server; clients see a
// Snapshot.
type Game struct {
	mu sync.Mutex

	ID                 string
	HostID             string
	LobbyType          LobbyType
	Phase              Phase
	RoundNumber        int
	Acronym            string
	Theme              string
	Players            []*Player
	Submissions        []*Submission
	FaceoffPlayers     []string
	FaceoffSubmissions []*Submission
	RoundWinnerID      string
	GameWinnerID       string
	Countdown          int

	usedThemes []string
	timer      *countdown
}

// Snapshot is the client-visible copy of a Game, pushed to every connection
// of the game's room after any state-affecting event.
type Snapshot struct {
	ID                 string       `json:"id"`
	HostID             string       `json:"hostId"`
	LobbyType          LobbyType    `json:"lobbyType"`
	Phase              Phase        `json:"phase"`
	RoundNumber        int          `json:"roundNumber"`
	Acronym            string       `json:"acronym"`
	Theme              string       `json:"theme"`
	Players            []Player     `json:"players"`
	Submissions        []Submission `json:"submissions"`
	FaceoffPlayers     []string     `json:"faceoffPlayers"`
	FaceoffSubmissions []Submission `json:"faceoffSubmissions"`
	RoundWinnerID      string       `json:"roundWinnerId,omitempty"`
	GameWinnerID       string       `json:"gameWinnerId,omitempty"`
	Countdown          int          `json:"countdown"`
}

func (g *Game) snapshotLocked() Snapshot {
	// The final tick briefly holds a negative value before the phase
	// flips; clients never see it.
	cd := g.Countdown
	if cd < 0 {
		cd = 0
	}
	return Snapshot{
		ID:                 g.ID,
		HostID:             g.HostID,
		LobbyType:          g.LobbyType,
		Phase:              g.Phase,
		RoundNumber:        g.RoundNumber,
		Acronym:            g.Acronym,
		Theme:              g.Theme,
		Players:            copyPlayers(g.Players),
		Submissions:        copySubmissions(g.Submissions),
		FaceoffPlayers:     append([]string{}, g.FaceoffPlayers...),
		FaceoffSubmissions: copySubmissions(g.FaceoffSubmissions),
		RoundWinnerID:      g.RoundWinnerID,
		GameWinnerID:       g.GameWinnerID,
		Countdown:          cd,
	}
}

func copyPlayers(players []*Player) []Player {
	out := make([]Player, 0, len(players))
	for _, p := range players {
		out = append(out, *p)
	}
	return out
}

func copySubmissions(subs []*Submission) []Submission {
	out := make([]Submission, 0, len(subs))
	for _, s := range subs {
		cp := *s
		cp.Votes = append([]string{}, s.Votes...)
		out = append(out, cp)
	}
	return out
}

func (g *Game) playerLocked(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) isFaceoffPlayerLocked(id string) bool {
	for _, fid := range g.FaceoffPlayers {
		if fid == id {
			return true
		}
	}
	return false
}

// Timings carries every phase duration in seconds, the countdown tick
// interval, and the simulated-voter delay range. Tests shrink the tick to
// run full games in milliseconds.
type Timings struct {
	LobbyStart     int
	ThemeReveal    int
	AcronymReveal  int
	Submission     int
	Voting         int
	RoundResults   int
	FaceoffSubmit  int
	FaceoffVote    int
	FaceoffResults int

	Tick         time.Duration
	VoteDelayMin time.Duration
	VoteDelayMax time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		LobbyStart:     10,
		ThemeReveal:    5,
		AcronymReveal:  5,
		Submission:     45,
		Voting:         20,
		RoundResults:   8,
		FaceoffSubmit:  30,
		FaceoffVote:    20,
		FaceoffResults: 8,
		Tick:           time.Second,
		VoteDelayMin:   3 * time.Second,
		VoteDelayMax:   13 * time.Second,
	}
}
