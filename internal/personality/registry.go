package personality

import (
	"fmt"
	"strings"

	"github.com/boijuny/chorizoventures/internal/models"
)

// Mode is the selectable assistant personality for a chat turn.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeRoast  Mode = "roast"
	ModeStonks Mode = "stonks"
)

// aliases maps legacy wire values still sent by older widget builds.
var aliases = map[string]Mode{
	"calculator": ModeStonks,
}

// Profile is everything the chat pipeline needs for one mode: the system
// prompt, generation parameters, the reply substituted when the upstream
// returns an empty completion, and widget-facing metadata.
type Profile struct {
	SystemPrompt string
	Sampling     models.SamplingParams
	Fallback     string
	Label        string
	Description  string
}

var profiles = map[Mode]Profile{
	ModeNormal: {
		SystemPrompt: "You are a helpful and professional assistant for Chorizo Ventures, " +
			"a satirical VC firm. Provide thoughtful, balanced responses while maintaining " +
			"a subtle sense of humor about startup culture. Keep answers under 150 words.",
		Sampling: models.SamplingParams{
			Temperature:      0.6,
			MaxTokens:        200,
			TopP:             0.95,
			PresencePenalty:  0.1,
			FrequencyPenalty: 0.1,
		},
		Fallback:    "Our AI is experiencing an existential crisis. Please try again.",
		Label:       "Normal",
		Description: "Standard VC wisdom",
	},
	ModeRoast: {
		SystemPrompt: "You are a brutally honest but professional assistant for Chorizo " +
			"Ventures. Provide sharp, satirical feedback about startup ideas with wit and " +
			"humor, but keep it constructive and clever rather than mean-spirited. Keep " +
			"answers under 150 words.",
		Sampling: models.SamplingParams{
			Temperature:      0.8,
			MaxTokens:        200,
			TopP:             0.95,
			PresencePenalty:  0.4,
			FrequencyPenalty: 0.3,
		},
		Fallback:    "Even our AI is speechless. That's either very good or very bad for your idea.",
		Label:       "Roast",
		Description: "Brutal honesty mode",
	},
	ModeStonks: {
		SystemPrompt: "You are a financial analysis expert at Chorizo Ventures with a keen " +
			"eye for numbers and market reality. Provide detailed financial insights with a " +
			"touch of satirical commentary about startup economics and market dynamics. Keep " +
			"answers under 150 words.",
		Sampling: models.SamplingParams{
			Temperature:      0.3,
			MaxTokens:        200,
			TopP:             0.8,
			PresencePenalty:  0,
			FrequencyPenalty: 0,
		},
		Fallback:    "Error 404: Profitability not found. Our spreadsheet folded itself into a pitch deck.",
		Label:       "Stonks",
		Description: "Financial analysis",
	},
}

// Modes returns the canonical mode set in stable order.
func Modes() []Mode {
	return []Mode{ModeNormal, ModeRoast, ModeStonks}
}

// Accepted returns the accepted wire values for validation messages.
func Accepted() string {
	values := make([]string, 0, len(profiles))
	for _, m := range Modes() {
		values = append(values, string(m))
	}
	return strings.Join(values, ", ")
}

// Resolve maps a wire value to its mode and profile. Legacy aliases are
// accepted; anything else is rejected.
func Resolve(raw string) (Mode, Profile, error) {
	mode := Mode(raw)
	if alias, ok := aliases[raw]; ok {
		mode = alias
	}
	profile, ok := profiles[mode]
	if !ok {
		return "", Profile{}, fmt.Errorf("unknown mode %q", raw)
	}
	return mode, profile, nil
}

// Lookup returns the profile for a canonical mode.
func Lookup(m Mode) (Profile, bool) {
	profile, ok := profiles[m]
	return profile, ok
}

// Validate checks the registry for completeness. Called at startup so a
// hole in the table refuses to boot instead of failing a live request.
func Validate() error {
	for _, m := range Modes() {
		profile, ok := profiles[m]
		if !ok {
			return fmt.Errorf("mode %s has no profile", m)
		}
		if profile.SystemPrompt == "" {
			return fmt.Errorf("mode %s has no system prompt", m)
		}
		if profile.Fallback == "" {
			return fmt.Errorf("mode %s has no fallback reply", m)
		}
		if profile.Sampling.MaxTokens <= 0 {
			return fmt.Errorf("mode %s has no token ceiling", m)
		}
	}
	for raw, target := range aliases {
		if _, ok := profiles[target]; !ok {
			return fmt.Errorf("alias %s points at unknown mode %s", raw, target)
		}
	}
	return nil
}
