package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// botTemplate is one of the fixed simulated-opponent personas. A lobby can
// seat each persona at most once; the seat id gets a uuid suffix so ids
// never collide across games.
type botTemplate struct {
	name       string
	generation Generation
	region     string
}

var botRoster = []botTemplate{
	{"Zoe", GenZ, "California"},
	{"Mike", Millennials, "New York"},
	{"Xander", GenX, "Quebec"},
	{"Barbara", Boomers, "Illinois"},
	{"Kyle", GenZ, "Georgia"},
	{"Ashley", Millennials, "Ontario"},
	{"Heather", GenX, "California"},
	{"Richard", Boomers, "New York"},
	{"Liam", GenZ, "Illinois"},
	{"Chad", Millennials, "Quebec"},
}

// AddBot seats the next unused simulated opponent. Host-only, lobby-only.
func (e *Engine) AddBot(gameID, requesterID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.Phase != PhaseLobby || g.HostID != requesterID || len(g.Players) >= lobbySize {
		g.mu.Unlock()
		return
	}
	added := e.addBotLocked(g)
	var snap Snapshot
	if added {
		snap = g.snapshotLocked()
	}
	g.mu.Unlock()

	if added {
		e.broadcast.GameState(gameID, snap)
	}
}

// RemoveBot unseats the most recently added simulated opponent.
// Host-only, lobby-only.
func (e *Engine) RemoveBot(gameID, requesterID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.Phase != PhaseLobby || g.HostID != requesterID {
		g.mu.Unlock()
		return
	}
	removed := false
	for i := len(g.Players) - 1; i >= 0; i-- {
		if g.Players[i].IsAI {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			removed = true
			break
		}
	}
	var snap Snapshot
	if removed {
		snap = g.snapshotLocked()
	}
	g.mu.Unlock()

	if removed {
		e.broadcast.GameState(gameID, snap)
	}
}

func (e *Engine) addBotLocked(g *Game) bool {
	for _, tmpl := range botRoster {
		taken := false
		for _, p := range g.Players {
			if p.IsAI && p.Name == tmpl.name {
				taken = true
				break
			}
		}
		if taken {
			continue
		}
		g.Players = append(g.Players, &Player{
			ID:         fmt.Sprintf("ai-%s-%s", strings.ToLower(tmpl.name), uuid.NewString()[:8]),
			Name:       tmpl.name,
			Generation: tmpl.generation,
			Region:     tmpl.region,
			IsAI:       true,
		})
		return true
	}
	return false
}

// fillBotsLocked tops a public lobby up to capacity at start time.
func (e *Engine) fillBotsLocked(g *Game) {
	for len(g.Players) < lobbySize {
		if !e.addBotLocked(g) {
			return
		}
	}
}

// botsLocked returns value copies of the simulated players matching the
// optional filter, safe to hand to goroutines outside the lock.
func botsLocked(g *Game, filter func(*Player) bool) []Player {
	var out []Player
	for _, p := range g.Players {
		if p.IsAI && (filter == nil || filter(p)) {
			out = append(out, *p)
		}
	}
	return out
}

// queueBotBackronyms issues one content-generation request per simulated
// player, each resolving independently. A completion only lands if the game
// is still in the same submission window it was issued for; anything later
// is dropped so a stale round can never leak into the current one.
func (e *Engine) queueBotBackronyms(gameID string, round int, acronym, theme string, bots []Player, faceoff bool) {
	for _, bot := range bots {
		go func(bot Player) {
			text := e.content.Backronym(context.Background(), acronym, theme, bot)
			e.deliverBotSubmission(gameID, round, bot, text, faceoff)
		}(bot)
	}
}

func (e *Engine) deliverBotSubmission(gameID string, round int, bot Player, text string, faceoff bool) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}

	g.mu.Lock()
	if faceoff {
		if g.Phase != PhaseFaceoffSubmitting || !g.isFaceoffPlayerLocked(bot.ID) {
			g.mu.Unlock()
			return
		}
	} else if g.Phase != PhaseSubmitting || g.RoundNumber != round {
		g.mu.Unlock()
		return
	}
	p := g.playerLocked(bot.ID)
	if p == nil || p.HasSubmitted {
		g.mu.Unlock()
		return
	}
	p.HasSubmitted = true
	sub := &Submission{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Backronym:  text,
		Votes:      []string{},
	}

	advance := false
	if faceoff {
		g.FaceoffSubmissions = append(g.FaceoffSubmissions, sub)
		advance = g.allFaceoffSubmittedLocked()
		if advance {
			g.stopTimerLocked()
		}
	} else {
		// Bot entries stay hidden until voting; no broadcast, and only
		// humans drive the early advance of a general round.
		g.Submissions = append(g.Submissions, sub)
	}
	g.mu.Unlock()

	if advance {
		log.Info().Str("game", gameID).Msg("all finalists submitted, advancing face-off")
		e.startFaceoffVoting(gameID)
	}
}

// queueBotVotes schedules one delayed vote per eligible simulated voter so
// bot votes trickle in like human ones instead of landing instantly.
func (e *Engine) queueBotVotes(gameID string, round int, acronym, theme string, voters []Player, faceoff bool) {
	for _, bot := range voters {
		delay := e.timings.VoteDelayMin
		if span := e.timings.VoteDelayMax - e.timings.VoteDelayMin; span > 0 {
			delay += time.Duration(rand.Int63n(int64(span)))
		}
		go func(bot Player, delay time.Duration) {
			<-e.clock.After(delay)
			e.castBotVote(gameID, round, acronym, theme, bot, faceoff)
		}(bot, delay)
	}
}

// castBotVote snapshots the votable candidates, asks the content layer to
// pick one, and routes the choice through the normal vote path. By the time
// the delayed vote fires the phase may have moved on; the guards here and
// in CastVote/CastFaceoffVote drop it silently.
func (e *Engine) castBotVote(gameID string, round int, acronym, theme string, bot Player, faceoff bool) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}

	g.mu.Lock()
	var subs []*Submission
	if faceoff {
		if g.Phase != PhaseFaceoffVoting {
			g.mu.Unlock()
			return
		}
		subs = g.FaceoffSubmissions
	} else {
		if g.Phase != PhaseVoting || g.RoundNumber != round {
			g.mu.Unlock()
			return
		}
		subs = g.Submissions
	}
	if hasVoted(subs, bot.ID) {
		g.mu.Unlock()
		return
	}
	var candidates []Submission
	for _, s := range subs {
		if s.PlayerID != bot.ID {
			cp := *s
			candidates = append(candidates, cp)
		}
	}
	g.mu.Unlock()

	if len(candidates) == 0 {
		return
	}
	choice := e.content.ChooseVote(context.Background(), acronym, theme, candidates, bot)
	if choice == "" {
		return
	}
	log.Debug().Str("game", gameID).Str("bot", bot.Name).Str("vote", choice).Msg("bot voting")
	if faceoff {
		e.CastFaceoffVote(gameID, bot.ID, choice)
	} else {
		e.CastVote(gameID, bot.ID, choice)
	}
}
