package ai

import "github.com/acrobash/server/internal/game"

const (
	defaultRoundTheme   = "Freestyle Frenzy"
	defaultFaceoffTheme = "The Final Showdown"
)

// generalThemes is the pool for the three general rounds, shared by every
// lobby type.
var generalThemes = []string{
	"Politics",
	"Pop Culture",
	"Movies",
	"TV Shows",
	"Celebrities",
	"Video Games",
	"Comics & Superheroes",
}

// faceoffThemes are persona prompts for the final round, keyed by the
// generation of the lobby. An All Generations lobby draws from every pool.
var faceoffThemes = map[game.Generation][]string{
	game.GenZ: {
		"Create a name for an upcoming TikTok trend",
		"I can't find a job because...",
		"During my emo phase I...",
		"My fate during WW3",
		"Being a Gen Z is like...",
		"Why do Boomers...",
		"Gen Alpha scares me because...",
	},
	game.Millennials: {
		"My kid just told me...",
		"90's kids are better because...",
		"During my emo phase I...",
		"My fate during WW3",
		"Being a Millennial is like...",
		"Why does Gen Z...",
	},
	game.GenX: {
		"My kid just told me...",
		"How I cope with midlife crisis",
		"Back in my day...",
		"Being a Gen X is like...",
		"Why does Gen Z...",
	},
	game.Boomers: {
		"Back in my day...",
		"Being a Boomer is like...",
		"Why does Gen Z...",
	},
}
