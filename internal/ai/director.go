package ai

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/acrobash/server/internal/game"
)

const (
	blankFallback  = "I'm drawing a blank..."
	requestTimeout = 15 * time.Second
	vowels         = "AEIOU"
	consonants     = "BCDFGHJKLMNPQRSTVWXYZ"
)

// Director implements game.Content. Theme and acronym selection is local
// and deterministic; backronyms and votes go through the Provider with a
// per-call timeout and degrade to canned text or a random pick on any
// failure. A nil provider (no API key configured) runs the whole game on
// fallbacks.
type Director struct {
	provider Provider
	model    string
	timeout  time.Duration
}

func NewDirector(provider Provider, model string) *Director {
	return &Director{provider: provider, model: model, timeout: requestTimeout}
}

// ThemeAndAcronym picks a general-round theme not yet used this game and
// generates a pronounceable-looking acronym. When every theme has been
// used, the pool restarts and recycled tells the caller to reset its used
// list.
func (d *Director) ThemeAndAcronym(letterCount int, used []string) (string, string, bool) {
	available := make([]string, 0, len(generalThemes))
	for _, t := range generalThemes {
		seen := false
		for _, u := range used {
			if u == t {
				seen = true
				break
			}
		}
		if !seen {
			available = append(available, t)
		}
	}

	recycled := false
	if len(available) == 0 && len(generalThemes) > 0 {
		available = generalThemes
		recycled = true
	}

	theme := defaultRoundTheme
	if len(available) > 0 {
		theme = available[rand.Intn(len(available))]
	}
	return theme, randomAcronym(letterCount), recycled
}

// FaceoffThemeAndAcronym draws from the persona pool of the lobby's
// generation, or from all pools together for a mixed lobby.
func (d *Director) FaceoffThemeAndAcronym(letterCount int, lobbyType game.LobbyType) (string, string) {
	var pool []string
	if lobbyType == game.LobbyAllGenerations {
		for _, themes := range faceoffThemes {
			pool = append(pool, themes...)
		}
	} else {
		pool = faceoffThemes[game.Generation(lobbyType)]
	}

	theme := defaultFaceoffTheme
	if len(pool) > 0 {
		theme = pool[rand.Intn(len(pool))]
	}
	return theme, randomAcronym(letterCount)
}

// Backronym asks the provider for a themed backronym in the bot's persona.
// Any failure yields a canned phrase so a broken backend never stalls a
// round.
func (d *Director) Backronym(ctx context.Context, acronym, theme string, player game.Player) string {
	if d.provider == nil {
		return fmt.Sprintf("Mock backronym for %s", acronym)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`You are a game AI named %s, representing the %s generation.
Your highest priority is to create a witty and creative backronym for the acronym: %s.
The backronym MUST strictly follow the theme: "%s".
While you can add a touch of your generation's humor, it must be relevant to the theme.
Keep it concise (under 100 characters).
Respond ONLY with the backronym phrase itself. Do not use quotes or any other text.`,
		player.Name, player.Generation, acronym, theme)

	text, err := d.provider.Complete(ctx, d.model, prompt)
	if err != nil {
		log.Error().Err(err).Str("bot", player.Name).Msg("backronym generation failed")
		return blankFallback
	}
	text = strings.TrimSpace(strings.ReplaceAll(text, `"`, ""))
	if text == "" {
		return blankFallback
	}
	return text
}

// ChooseVote asks the provider to pick the best candidate in the voter's
// persona. An error, an unparseable answer, or a hallucinated id all fall
// back to a uniform random choice among the candidates.
func (d *Director) ChooseVote(ctx context.Context, acronym, theme string, candidates []game.Submission, voter game.Player) string {
	if len(candidates) == 0 {
		return ""
	}

	if d.provider != nil {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		var sb strings.Builder
		for _, c := range candidates {
			fmt.Fprintf(&sb, "%s: %q\n", c.PlayerID, c.Backronym)
		}
		prompt := fmt.Sprintf(`You are the game AI %s, a %s. The theme was "%s".
You must vote for one of the following backronyms for "%s".
Pick the one that is the most clever, funny, or impressive from your perspective.
%s
Respond ONLY with the player ID of your choice (e.g., the part before the colon). Do not add any other text or explanation.`,
			voter.Name, voter.Generation, theme, acronym, sb.String())

		resp, err := d.provider.Complete(ctx, d.model, prompt)
		if err == nil {
			choice := strings.TrimSpace(resp)
			for _, c := range candidates {
				if c.PlayerID == choice && choice != voter.ID {
					return choice
				}
			}
			log.Warn().Str("bot", voter.Name).Str("answer", choice).Msg("unusable vote answer, choosing randomly")
		} else {
			log.Error().Err(err).Str("bot", voter.Name).Msg("vote generation failed")
		}
	}

	return candidates[rand.Intn(len(candidates))].PlayerID
}

// randomAcronym alternates consonants and vowels from a random starting
// class so the result looks pronounceable.
func randomAcronym(letterCount int) string {
	b := make([]byte, letterCount)
	useVowel := rand.Intn(2) == 0
	for i := range b {
		if useVowel {
			b[i] = vowels[rand.Intn(len(vowels))]
		} else {
			b[i] = consonants[rand.Intn(len(consonants))]
		}
		useVowel = !useVowel
	}
	return string(b)
}
