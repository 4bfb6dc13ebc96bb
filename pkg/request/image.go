package request

import (
	"math/rand"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultImageEndpoint = "https://image.pollinations.ai/"
	DefaultWidth         = 768
	DefaultHeight        = 512

	// ImageModel is the label recorded as the model of image records
	ImageModel = "image.pollinations"

	DemoImagePrompt = "A neon pink-purple robot portrait, 1980s synthwave, cinematic lighting"

	maxSeed = 999999
)

type ImageParams struct {
	Prompt string
	Width  int
	Height int
	Seed   string
}

// Normalize fills default width/height and trims the seed
func (p ImageParams) Normalize() ImageParams {
	if p.Width <= 0 {
		p.Width = DefaultWidth
	}
	if p.Height <= 0 {
		p.Height = DefaultHeight
	}
	p.Seed = strings.TrimSpace(p.Seed)
	return p
}

// ImageURL builds the GET URL of an image. prompt, width and height are always present;
// seed only when set.
func ImageURL(base string, p ImageParams) string {
	if base == "" {
		base = DefaultImageEndpoint
	}
	p = p.Normalize()

	q := url.Values{}
	q.Set("prompt", p.Prompt)
	q.Set("width", strconv.Itoa(p.Width))
	q.Set("height", strconv.Itoa(p.Height))
	if p.Seed != "" {
		q.Set("seed", p.Seed)
	}

	return base + "?" + q.Encode()
}

// RandomSeed picks a seed in [0, 999999)
func RandomSeed(r *rand.Rand) string {
	return strconv.Itoa(r.Intn(maxSeed))
}
