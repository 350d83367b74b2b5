package content

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

var (
	ImageAspectRatios = []string{"1:1", "16:9", "9:16", "3:4", "4:3"}
	VideoAspectRatios = []string{"16:9", "9:16"}
	Voices            = []string{"Kore", "Puck", "Charon", "Fenrir", "Zephyr"}
)

const (
	DefaultImageAspectRatio = "1:1"
	DefaultVideoAspectRatio = "16:9"
	DefaultVoice            = "Kore"
	// DefaultAnimatePrompt is used when a video is requested from an image input alone.
	DefaultAnimatePrompt = "Animate this image"
)

// ImageParams are the user inputs of an image generator node.
type ImageParams struct {
	Prompt      string `mapstructure:"prompt"`
	AspectRatio string `mapstructure:"aspect_ratio"`
}

// VideoParams are the user inputs of a video generator node.
type VideoParams struct {
	Prompt      string `mapstructure:"prompt"`
	AspectRatio string `mapstructure:"aspect_ratio"`
}

// TextParams are the user inputs of the text kinds.
type TextParams struct {
	Prompt string `mapstructure:"prompt"`
}

// SpeechParams are the user inputs of a voice generator node.
type SpeechParams struct {
	Text  string `mapstructure:"text"`
	Voice string `mapstructure:"voice"`
}

// decode fills out from a loose parameter map, rejecting unknown keys.
func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidParams, err)
	}
	return nil
}

func oneOf(field, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%w: %s %q must be one of %s", domain.ErrInvalidParams, field, value, strings.Join(allowed, ", "))
}

// request is a validated generation request for one node.
type request struct {
	kind   domain.Kind
	image  ports.ImageRequest
	video  ports.VideoRequest
	text   ports.TextRequest
	speech ports.SpeechRequest
}

// textModes maps the text kinds to generator personas.
var textModes = map[domain.Kind]ports.TextMode{
	domain.KindScriptWriter:  ports.TextScript,
	domain.KindSceneCreator:  ports.TextScript,
	domain.KindResearchAgent: ports.TextResearch,
	domain.KindCharacterGen:  ports.TextCharacter,
}

// buildRequest validates raw parameters for kind. inputs are the node's
// resolved upstream outputs.
func buildRequest(kind domain.Kind, raw map[string]any, inputs []string) (request, error) {
	r := request{kind: kind}
	switch kind {
	case domain.KindImageGenerator:
		var p ImageParams
		if err := decode(raw, &p); err != nil {
			return r, err
		}
		if strings.TrimSpace(p.Prompt) == "" {
			return r, fmt.Errorf("%w: prompt is required", domain.ErrInvalidParams)
		}
		if p.AspectRatio == "" {
			p.AspectRatio = DefaultImageAspectRatio
		}
		if err := oneOf("aspect_ratio", p.AspectRatio, ImageAspectRatios); err != nil {
			return r, err
		}
		r.image = ports.ImageRequest{Prompt: p.Prompt, AspectRatio: p.AspectRatio}

	case domain.KindVideoGenerator:
		var p VideoParams
		if err := decode(raw, &p); err != nil {
			return r, err
		}
		var frame string
		if len(inputs) > 0 {
			frame = inputs[0]
		}
		if strings.TrimSpace(p.Prompt) == "" {
			if frame == "" {
				return r, fmt.Errorf("%w: prompt or image input is required", domain.ErrInvalidParams)
			}
			p.Prompt = DefaultAnimatePrompt
		}
		if p.AspectRatio == "" {
			p.AspectRatio = DefaultVideoAspectRatio
		}
		if err := oneOf("aspect_ratio", p.AspectRatio, VideoAspectRatios); err != nil {
			return r, err
		}
		r.video = ports.VideoRequest{Prompt: p.Prompt, AspectRatio: p.AspectRatio, StartFrame: frame}

	case domain.KindScriptWriter, domain.KindSceneCreator, domain.KindResearchAgent, domain.KindCharacterGen:
		var p TextParams
		if err := decode(raw, &p); err != nil {
			return r, err
		}
		if strings.TrimSpace(p.Prompt) == "" {
			return r, fmt.Errorf("%w: prompt is required", domain.ErrInvalidParams)
		}
		r.text = ports.TextRequest{Prompt: p.Prompt, Mode: textModes[kind]}

	case domain.KindVoiceGenerator:
		var p SpeechParams
		if err := decode(raw, &p); err != nil {
			return r, err
		}
		if strings.TrimSpace(p.Text) == "" {
			return r, fmt.Errorf("%w: text is required", domain.ErrInvalidParams)
		}
		if p.Voice == "" {
			p.Voice = DefaultVoice
		}
		if err := oneOf("voice", p.Voice, Voices); err != nil {
			return r, err
		}
		r.speech = ports.SpeechRequest{Text: p.Text, Voice: p.Voice}

	default:
		return r, fmt.Errorf("%w: %s", domain.ErrNotGenerative, kind)
	}
	return r, nil
}
