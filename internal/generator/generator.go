// Package generator produces alternative ad copy with a language model.
package generator

import (
	"context"
	"errors"
)

// ErrNoAlternatives is returned when the model reply held no usable copy.
var ErrNoAlternatives = errors.New("generator: no alternatives returned")

// Request is the ad an alternative set is generated for.
type Request struct {
	Platform       string
	Headline       string
	BodyText       string
	CTA            string
	Industry       string
	TargetAudience string
	Controls       CreativeControls
}

// Alternative is one rewritten version of the ad.
type Alternative struct {
	Headline string `json:"headline"`
	BodyText string `json:"body_text"`
	CTA      string `json:"cta"`
	Strategy string `json:"strategy"`
}

// Generator writes alternative copy for an ad.
type Generator interface {
	Alternatives(ctx context.Context, req Request) ([]Alternative, error)
}
