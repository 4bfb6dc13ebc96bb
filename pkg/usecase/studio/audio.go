package studio

import (
	"context"

	"github.com/m-mizutani/pollen/pkg/model"
)

// DefaultAudioLibrary is the experimental audio list. Nothing is generated yet.
var DefaultAudioLibrary = []model.AudioItem{
	{
		ID:    "exp-1",
		Title: "Dreamy Loop (demo)",
		URL:   "https://cdn.jsdelivr.net/gh/pollinations/samples/dreamy.mp3",
	},
}

func (uc *UseCase) AudioLibrary(ctx context.Context) []model.AudioItem {
	return append([]model.AudioItem{}, uc.audio...)
}
