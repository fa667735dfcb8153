// Package analysis scores ad copy and meters each analysis against the credit ledger.
package analysis

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidInput marks a request rejected before any credits are charged.
var ErrInvalidInput = errors.New("analysis: invalid input")

// Platform is an ad network the copy targets.
type Platform string

// Supported platforms.
const (
	PlatformFacebook  Platform = "facebook"
	PlatformGoogle    Platform = "google"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
)

// platformLimits are the recommended character counts per platform.
var platformLimits = map[Platform]struct {
	headline int
	body     int
	cta      int
}{
	PlatformFacebook:  {headline: 40, body: 125, cta: 20},
	PlatformGoogle:    {headline: 30, body: 90, cta: 15},
	PlatformLinkedIn:  {headline: 70, body: 150, cta: 20},
	PlatformInstagram: {headline: 40, body: 125, cta: 20},
	PlatformTikTok:    {headline: 40, body: 100, cta: 20},
}

// Input length bounds.
const (
	maxHeadlineLen = 300
	maxBodyLen     = 5000
	maxCTALen      = 200
	maxIndustryLen = 255
	maxAudienceLen = 1000
)

// ParsePlatform normalizes a platform name.
func ParsePlatform(raw string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := platformLimits[p]
	return p, ok
}

// AdInput is the copy submitted for analysis.
type AdInput struct {
	Headline       string `json:"headline"`
	BodyText       string `json:"body_text"`
	CTA            string `json:"cta"`
	Platform       string `json:"platform"`
	Industry       string `json:"industry"`
	TargetAudience string `json:"target_audience"`
}

// Normalize trims every field and lowercases the platform.
func (in AdInput) Normalize() AdInput {
	in.Headline = strings.TrimSpace(in.Headline)
	in.BodyText = strings.TrimSpace(in.BodyText)
	in.CTA = strings.TrimSpace(in.CTA)
	in.Platform = strings.ToLower(strings.TrimSpace(in.Platform))
	in.Industry = strings.TrimSpace(in.Industry)
	in.TargetAudience = strings.TrimSpace(in.TargetAudience)
	return in
}

// Validate checks required fields and length bounds on a normalized input.
func (in AdInput) Validate() error {
	if in.Headline == "" {
		return fmt.Errorf("%w: headline is required", ErrInvalidInput)
	}
	if in.BodyText == "" {
		return fmt.Errorf("%w: body_text is required", ErrInvalidInput)
	}
	if _, ok := ParsePlatform(in.Platform); !ok {
		return fmt.Errorf("%w: unsupported platform %q", ErrInvalidInput, in.Platform)
	}
	bounds := []struct {
		field string
		value string
		max   int
	}{
		{"headline", in.Headline, maxHeadlineLen},
		{"body_text", in.BodyText, maxBodyLen},
		{"cta", in.CTA, maxCTALen},
		{"industry", in.Industry, maxIndustryLen},
		{"target_audience", in.TargetAudience, maxAudienceLen},
	}
	for _, b := range bounds {
		if utf8.RuneCountInString(b.value) > b.max {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, b.field, b.max)
		}
	}
	return nil
}

// FullText joins headline, body and call to action for text-wide checks.
func (in AdInput) FullText() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{in.Headline, in.BodyText, in.CTA} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}
