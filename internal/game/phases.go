package game

import (
	"sort"

	"github.com/rs/zerolog/log"
)

const (
	placeholderRound   = "Didn't submit in time!"
	placeholderFaceoff = "Ran out of time!"
)

// startRound enters RoundThemeReveal for the next round: bumps the round
// number, clears round state, resets submission flags, and assigns a fresh
// theme and acronym. The acronym grows one letter per round.
func (e *Engine) startRound(gameID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}

	g.mu.Lock()
	g.RoundNumber++
	g.Phase = PhaseRoundThemeReveal
	g.Submissions = nil
	g.RoundWinnerID = ""
	for _, p := range g.Players {
		p.HasSubmitted = false
	}

	theme, acronym, recycled := e.content.ThemeAndAcronym(g.RoundNumber+acronymLengthOffset, g.usedThemes)
	if recycled {
		g.usedThemes = g.usedThemes[:0]
	}
	g.usedThemes = append(g.usedThemes, theme)
	g.Theme = theme
	g.Acronym = acronym

	log.Info().Str("game", gameID).Int("round", g.RoundNumber).
		Str("theme", theme).Str("acronym", acronym).Msg("round started")
	e.runCountdownLocked(g, e.timings.ThemeReveal, func() { e.startAcronymReveal(gameID) })
	g.mu.Unlock()
}

func (e *Engine) startAcronymReveal(gameID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.Phase != PhaseRoundThemeReveal {
		g.mu.Unlock()
		return
	}
	g.Phase = PhaseRoundAcronymReveal
	e.runCountdownLocked(g, e.timings.AcronymReveal, func() { e.startSubmissionPhase(gameID) })
	g.mu.Unlock()
}

// startSubmissionPhase opens the round for entries and kicks off one
// background generation request per simulated player. The countdown does
// not wait for those requests; a slow backend only costs the bot its entry.
func (e *Engine) startSubmissionPhase(gameID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.Phase != PhaseRoundAcronymReveal {
		g.mu.Unlock()
		return
	}
	g.Phase = PhaseSubmitting
	round := g.RoundNumber
	acronym, theme := g.Acronym, g.Theme
	bots := botsLocked(g, nil)
	e.runCountdownLocked(g, e.timings.Submission, func() { e.startVotingPhase(gameID) })
	g.mu.Unlock()

	e.queueBotBackronyms(gameID, round, acronym, theme, bots, false)
}

// startVotingPhase closes submissions. Anyone without an entry gets a
// placeholder so the candidate set always covers the roster, then every
// simulated player schedules a delayed vote.
func (e *Engine) startVotingPhase(gameID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.Phase != PhaseSubmitting {
		g.mu.Unlock()
		return
	}
	g.stopTimerLocked()
	g.Phase = PhaseVoting
	for _, p := range g.Players {
		if findSubmission(g.Submissions, p.ID) == nil {
			g.Submissions = append(g.Submissions, &Submission{
				PlayerID:   p.ID,
				PlayerName: p.Name,
				Backronym:  placeholderRound,
				Votes:      []string{},
			})
		}
	}
	round := g.RoundNumber
	acronym, theme := g.Acronym, g.Theme
	voters := botsLocked(g, nil)
	e.runCountdownLocked(g, e.timings.Voting, func() { e.startRoundResults(gameID) })
	g.mu.Unlock()

	e.queueBotVotes(gameID, round, acronym, theme, voters, false)
}

// startRoundResults scores the round: every vote is worth 100 points to the
// submission's author, and the first submission holding the highest vote
// count earns a 300 point bonus and the round winner slot. Round three
// hands off to the face-off.
func (e *Engine) startRoundResults(gameID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.Phase != PhaseVoting {
		g.mu.Unlock()
		return
	}
	g.stopTimerLocked()
	g.Phase = PhaseRoundResults

	maxVotes := -1
	winnerID := ""
	for _, sub := range g.Submissions {
		if p := g.playerLocked(sub.PlayerID); p != nil {
			p.Score += len(sub.Votes) * 100
		}
		if len(sub.Votes) > maxVotes {
			maxVotes = len(sub.Votes)
			winnerID = sub.PlayerID
		}
	}
	if winner := g.playerLocked(winnerID); winner != nil {
		winner.Score += 300
		g.RoundWinnerID = winner.ID
	}

	next := func() { e.startRound(gameID) }
	if g.RoundNumber >= roundCap {
		next = func() { e.startFaceoff(gameID) }
	}
	log.Info().Str("game", gameID).Int("round", g.RoundNumber).
		Str("winner", g.RoundWinnerID).Msg("round scored")
	e.runCountdownLocked(g, e.timings.RoundResults, next)
	g.mu.Unlock()
}

// startFaceoff selects the finalists (top two scores, with everyone tied
// for second included) and opens the face-off submission window with a
// persona-flavored theme and a longer acronym. With fewer than two players
// there is nothing to contest and the game ends immediately.
func (e *Engine) startFaceoff(gameID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.Phase != PhaseRoundResults {
		g.mu.Unlock()
		return
	}
	for _, p := range g.Players {
		p.HasSubmitted = false
	}

	ranked := make([]*Player, len(g.Players))
	copy(ranked, g.Players)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	if len(ranked) < 2 {
		if len(ranked) == 1 {
			g.GameWinnerID = ranked[0].ID
		}
		g.mu.Unlock()
		e.startGameOver(gameID)
		return
	}

	finalists := []string{ranked[0].ID, ranked[1].ID}
	runnerUpScore := ranked[1].Score
	for _, p := range ranked[2:] {
		if p.Score != runnerUpScore {
			break
		}
		finalists = append(finalists, p.ID)
	}
	g.FaceoffPlayers = finalists
	g.FaceoffSubmissions = nil
	g.GameWinnerID = ""

	theme, acronym := e.content.FaceoffThemeAndAcronym(faceoffAcronymLetters, g.LobbyType)
	g.Theme = theme
	g.Acronym = acronym
	g.Phase = PhaseFaceoffSubmitting

	round := g.RoundNumber
	botFinalists := botsLocked(g, func(p *Player) bool { return g.isFaceoffPlayerLocked(p.ID) })
	log.Info().Str("game", gameID).Strs("finalists", finalists).
		Str("theme", theme).Str("acronym", acronym).Msg("face-off started")
	e.runCountdownLocked(g, e.timings.FaceoffSubmit, func() { e.startFaceoffVoting(gameID) })
	g.mu.Unlock()

	e.queueBotBackronyms(gameID, round, acronym, theme, botFinalists, true)
}

// startFaceoffVoting closes face-off submissions, backfills placeholders
// for slow finalists, and schedules delayed votes from the simulated
// audience members.
func (e *Engine) startFaceoffVoting(gameID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.Phase != PhaseFaceoffSubmitting {
		g.mu.Unlock()
		return
	}
	g.stopTimerLocked()
	for _, id := range g.FaceoffPlayers {
		if findSubmission(g.FaceoffSubmissions, id) == nil {
			if p := g.playerLocked(id); p != nil {
				g.FaceoffSubmissions = append(g.FaceoffSubmissions, &Submission{
					PlayerID:   p.ID,
					PlayerName: p.Name,
					Backronym:  placeholderFaceoff,
					Votes:      []string{},
				})
			}
		}
	}
	g.Phase = PhaseFaceoffVoting

	round := g.RoundNumber
	acronym, theme := g.Acronym, g.Theme
	audience := botsLocked(g, func(p *Player) bool { return !g.isFaceoffPlayerLocked(p.ID) })
	e.runCountdownLocked(g, e.timings.FaceoffVote, func() { e.startFaceoffResults(gameID) })
	g.mu.Unlock()

	e.queueBotVotes(gameID, round, acronym, theme, audience, true)
}

// startFaceoffResults crowns the game winner: the first face-off submission
// holding the highest vote count. The winner's lifetime win counter is
// bumped. With no submissions at all, the first finalist wins by default.
func (e *Engine) startFaceoffResults(gameID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.Phase != PhaseFaceoffVoting {
		g.mu.Unlock()
		return
	}
	g.stopTimerLocked()
	g.Phase = PhaseFaceoffResults

	var winner *Submission
	for _, sub := range g.FaceoffSubmissions {
		if winner == nil || len(sub.Votes) > len(winner.Votes) {
			winner = sub
		}
	}
	if winner != nil {
		g.GameWinnerID = winner.PlayerID
		if p := g.playerLocked(winner.PlayerID); p != nil {
			p.Wins++
			e.reg.AddWin(p.ID)
		}
	} else if len(g.FaceoffPlayers) > 0 {
		g.GameWinnerID = g.FaceoffPlayers[0]
	}

	log.Info().Str("game", gameID).Str("winner", g.GameWinnerID).Msg("face-off decided")
	e.runCountdownLocked(g, e.timings.FaceoffResults, func() { e.startGameOver(gameID) })
	g.mu.Unlock()
}

// startGameOver is terminal. The game lingers until its last human leaves;
// leave handling then deletes it.
func (e *Engine) startGameOver(gameID string) {
	g := e.reg.Get(gameID)
	if g == nil {
		return
	}
	g.mu.Lock()
	g.stopTimerLocked()
	g.Phase = PhaseGameOver
	g.Countdown = 0
	snap := g.snapshotLocked()
	g.mu.Unlock()

	log.Info().Str("game", gameID).Str("winner", snap.GameWinnerID).Msg("game over")
	e.broadcast.GameState(gameID, snap)
}
