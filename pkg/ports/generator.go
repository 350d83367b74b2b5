package ports

import (
	"context"
	"errors"

	"github.com/aretw0/intheflow/pkg/domain"
)

// TextMode selects the persona used for text generation.
type TextMode string

const (
	TextScript    TextMode = "script"
	TextResearch  TextMode = "research"
	TextCharacter TextMode = "character"
)

// ImageRequest asks for a single still image.
type ImageRequest struct {
	Prompt      string
	AspectRatio string
}

// VideoRequest asks for a short clip. StartFrame, when set, is an image payload
// (data URI or URL) the clip animates.
type VideoRequest struct {
	Prompt      string
	AspectRatio string
	StartFrame  string
}

// TextRequest asks for text in the given mode. Research requests are grounded
// with web search and may return sources.
type TextRequest struct {
	Prompt string
	Mode   TextMode
}

// TextResult is the generated text and any web sources it was grounded on.
type TextResult struct {
	Text    string
	Sources []domain.Source
}

// SpeechRequest asks for spoken audio of Text using a prebuilt voice.
type SpeechRequest struct {
	Text  string
	Voice string
}

// ProgressFunc receives human readable progress messages for long operations.
type ProgressFunc func(message string)

// Generator is the content-generation collaborator.
// Image, speech and video results are opaque payloads (data URIs or URLs).
// Any error is treated as a generic generation failure.
type Generator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
	GenerateText(ctx context.Context, req TextRequest) (TextResult, error)
	GenerateSpeech(ctx context.Context, req SpeechRequest) (string, error)
	GenerateVideo(ctx context.Context, req VideoRequest, progress ProgressFunc) (string, error)
}

// Credentials is the credential collaborator consulted before video generation.
type Credentials interface {
	// HasCredential reports whether a usable API credential is configured.
	HasCredential(ctx context.Context) bool
	// RequestCredential asks the environment to provide a credential.
	RequestCredential(ctx context.Context) error
}

// ErrCredentialRejected marks generator errors caused by an unusable API key.
var ErrCredentialRejected = errors.New("api credential rejected")
