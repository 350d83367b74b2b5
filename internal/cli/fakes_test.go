package cli

import (
	"context"
	"errors"

	"github.com/aretw0/intheflow/pkg/ports"
)

type fakeGenerator struct {
	err error
}

func (g fakeGenerator) GenerateImage(ctx context.Context, req ports.ImageRequest) (string, error) {
	return "data:image/png;base64,SU1H", g.err
}

func (g fakeGenerator) GenerateText(ctx context.Context, req ports.TextRequest) (ports.TextResult, error) {
	return ports.TextResult{Text: "script: " + req.Prompt}, g.err
}

func (g fakeGenerator) GenerateSpeech(ctx context.Context, req ports.SpeechRequest) (string, error) {
	return "data:audio/wav;base64,AA", g.err
}

func (g fakeGenerator) GenerateVideo(ctx context.Context, req ports.VideoRequest, progress ports.ProgressFunc) (string, error) {
	return "data:video/mp4;base64,AA", g.err
}

var errQuota = errors.New("quota exceeded")
