package domain

import (
	"fmt"
	"strings"
)

// Kind identifies the tool variant of a node.
type Kind string

const (
	KindImageGenerator Kind = "IMAGE_GENERATOR"
	KindVideoGenerator Kind = "VIDEO_GENERATOR"
	KindScriptWriter   Kind = "SCRIPT_WRITER"
	KindResearchAgent  Kind = "RESEARCH_AGENT"
	KindCharacterGen   Kind = "CHARACTER_GEN"
	KindSceneCreator   Kind = "SCENE_CREATOR"
	KindVoiceGenerator Kind = "VOICE_GENERATOR"
	KindSequencer      Kind = "SEQUENCER"
	KindImageSource    Kind = "IMAGE_SOURCE"
	KindVideoSource    Kind = "VIDEO_SOURCE"
)

// Arity describes how many upstream inputs a kind consumes.
type Arity int

const (
	// ArityNone kinds ignore their incoming connections.
	ArityNone Arity = iota
	// AritySingle kinds consume the primary (first) input only.
	AritySingle
	// ArityMultiple kinds consume every resolved input in connection order.
	ArityMultiple
)

func (a Arity) String() string {
	switch a {
	case AritySingle:
		return "single"
	case ArityMultiple:
		return "multiple"
	default:
		return "none"
	}
}

// MarshalText renders the arity by name in JSON and YAML.
func (a Arity) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Media is the type of payload a kind produces.
type Media string

const (
	MediaImage Media = "image"
	MediaVideo Media = "video"
	MediaText  Media = "text"
	MediaAudio Media = "audio"
	MediaNone  Media = "none"
)

// KindInfo is the display metadata and input contract of a tool kind.
type KindInfo struct {
	Kind        Kind    `json:"kind" yaml:"kind"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Color       string  `json:"color" yaml:"color"`
	Icon        string  `json:"icon" yaml:"icon"`
	Output      Media   `json:"output" yaml:"output"`
	Arity       Arity   `json:"arity" yaml:"arity"`
	Width       float64 `json:"width" yaml:"width"`
}

// Generative reports whether nodes of this kind call a content generator.
func (k KindInfo) Generative() bool {
	switch k.Kind {
	case KindSequencer, KindImageSource, KindVideoSource:
		return false
	}
	return true
}

// Registry lists every tool kind in sidebar order.
var Registry = []KindInfo{
	{Kind: KindScriptWriter, Name: "Script Writer", Description: "Draft scenes and dialogue", Color: "bg-slate-100 text-slate-700", Icon: "script", Output: MediaText, Arity: ArityNone, Width: DefaultNodeWidth},
	{Kind: KindResearchAgent, Name: "Research Agent", Description: "Search-grounded research notes", Color: "bg-blue-100 text-blue-700", Icon: "search", Output: MediaText, Arity: ArityNone, Width: DefaultNodeWidth},
	{Kind: KindCharacterGen, Name: "Character Designer", Description: "Detailed character profiles", Color: "bg-orange-100 text-orange-700", Icon: "user", Output: MediaText, Arity: ArityNone, Width: DefaultNodeWidth},
	{Kind: KindSceneCreator, Name: "Scene Creator", Description: "Break a story into scenes", Color: "bg-teal-100 text-teal-700", Icon: "clapperboard", Output: MediaText, Arity: ArityNone, Width: DefaultNodeWidth},
	{Kind: KindImageGenerator, Name: "Image Generator", Description: "Text to image", Color: "bg-pink-100 text-pink-700", Icon: "image", Output: MediaImage, Arity: ArityNone, Width: DefaultNodeWidth},
	{Kind: KindVideoGenerator, Name: "Video Generator", Description: "Text or image to video", Color: "bg-purple-100 text-purple-700", Icon: "video", Output: MediaVideo, Arity: AritySingle, Width: DefaultNodeWidth},
	{Kind: KindVoiceGenerator, Name: "Voice Generator", Description: "Text to speech", Color: "bg-green-100 text-green-700", Icon: "mic", Output: MediaAudio, Arity: ArityNone, Width: DefaultNodeWidth},
	{Kind: KindSequencer, Name: "Sequencer", Description: "Play connected clips in order", Color: "bg-indigo-100 text-indigo-700", Icon: "film", Output: MediaNone, Arity: ArityMultiple, Width: DefaultNodeWidth},
	{Kind: KindImageSource, Name: "Image Source", Description: "Upload an image", Color: "bg-yellow-100 text-yellow-700", Icon: "upload", Output: MediaImage, Arity: ArityNone, Width: DefaultNodeWidth},
	{Kind: KindVideoSource, Name: "Video Source", Description: "Upload a video", Color: "bg-red-100 text-red-700", Icon: "upload", Output: MediaVideo, Arity: ArityNone, Width: DefaultNodeWidth},
}

// LookupKind returns the registry entry for k.
func LookupKind(k Kind) (KindInfo, bool) {
	for _, info := range Registry {
		if info.Kind == k {
			return info, true
		}
	}
	return KindInfo{}, false
}

// ParseKind resolves a kind name case-insensitively. Both "IMAGE_GENERATOR" and
// "image-generator" are accepted.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	if _, ok := LookupKind(Kind(norm)); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return Kind(norm), nil
}
