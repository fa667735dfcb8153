package generator

import "strings"

// Tone is the voice alternatives are written in.
type Tone string

// Supported tones.
const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneUrgent       Tone = "urgent"
	TonePlayful      Tone = "playful"
	ToneLuxury       Tone = "luxury"
)

// EmojiLevel controls how many emoji generated copy may contain.
type EmojiLevel string

// Supported emoji levels.
const (
	EmojiNone     EmojiLevel = "none"
	EmojiLight    EmojiLevel = "light"
	EmojiModerate EmojiLevel = "moderate"
)

// Creative control bounds and defaults.
const (
	DefaultCreativity = 5
	MaxCreativity     = 10
	DefaultVariations = 3
	MaxVariations     = 5
	maxBrandVoiceLen  = 500
)

// CreativeControls tunes how alternatives are generated.
type CreativeControls struct {
	Tone           Tone       `json:"tone"`
	Creativity     int        `json:"creativity"`
	EmojiLevel     EmojiLevel `json:"emoji_level"`
	IncludeNumbers bool       `json:"include_numbers"`
	Variations     int        `json:"variations"`
	BrandVoice     string     `json:"brand_voice"`
}

// Normalize fills defaults and clamps every field into its documented range.
// Zero Creativity or Variations means unset. Unknown tones fall back to
// professional and unknown emoji levels to none.
func (c CreativeControls) Normalize() CreativeControls {
	switch Tone(strings.ToLower(strings.TrimSpace(string(c.Tone)))) {
	case ToneProfessional, ToneFriendly, ToneUrgent, TonePlayful, ToneLuxury:
		c.Tone = Tone(strings.ToLower(strings.TrimSpace(string(c.Tone))))
	default:
		c.Tone = ToneProfessional
	}

	switch EmojiLevel(strings.ToLower(strings.TrimSpace(string(c.EmojiLevel)))) {
	case EmojiLight:
		c.EmojiLevel = EmojiLight
	case EmojiModerate:
		c.EmojiLevel = EmojiModerate
	default:
		c.EmojiLevel = EmojiNone
	}

	if c.Creativity <= 0 {
		c.Creativity = DefaultCreativity
	}
	if c.Creativity > MaxCreativity {
		c.Creativity = MaxCreativity
	}
	if c.Variations <= 0 {
		c.Variations = DefaultVariations
	}
	if c.Variations > MaxVariations {
		c.Variations = MaxVariations
	}

	c.BrandVoice = strings.TrimSpace(c.BrandVoice)
	if len(c.BrandVoice) > maxBrandVoiceLen {
		c.BrandVoice = c.BrandVoice[:maxBrandVoiceLen]
	}
	return c
}

// Temperature maps creativity 0-10 onto a sampling temperature in [0.2, 1.2].
func (c CreativeControls) Temperature() float64 {
	creativity := c.Creativity
	if creativity < 0 {
		creativity = 0
	}
	if creativity > MaxCreativity {
		creativity = MaxCreativity
	}
	return 0.2 + float64(creativity)*0.1
}
