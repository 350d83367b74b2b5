package gemini

// Gemini API request and response bodies as they appear on the wire.

type wireRequest struct {
	Contents          []wireContent  `json:"contents"`
	SystemInstruction *wireContent   `json:"systemInstruction,omitempty"`
	Tools             []wireTool     `json:"tools,omitempty"`
	GenerationConfig  *wireGenConfig `json:"generationConfig,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *wireInline `json:"inlineData,omitempty"`
}

type wireInline struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type wireTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type wireGenConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
	SpeechConfig       *struct {
		VoiceConfig struct {
			PrebuiltVoiceConfig struct {
				VoiceName string `json:"voiceName"`
			} `json:"prebuiltVoiceConfig"`
		} `json:"voiceConfig"`
	} `json:"speechConfig,omitempty"`
	ImageConfig *struct {
		AspectRatio string `json:"aspectRatio"`
	} `json:"imageConfig,omitempty"`
}

type wireResponse struct {
	Candidates []wireCandidate `json:"candidates,omitempty"`
}

type wireCandidate struct {
	Content           *wireContent   `json:"content,omitempty"`
	GroundingMetadata *wireGrounding `json:"groundingMetadata,omitempty"`
}

type wireGrounding struct {
	GroundingChunks []wireChunk `json:"groundingChunks"`
}

type wireChunk struct {
	Web *wireWeb `json:"web,omitempty"`
}

type wireWeb struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type wirePredictRequest struct {
	Instances []struct {
		Prompt string `json:"prompt"`
		Image  *struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
		} `json:"image,omitempty"`
	} `json:"instances"`
	Parameters struct {
		AspectRatio string `json:"aspectRatio"`
		Resolution  string `json:"resolution"`
		SampleCount int    `json:"sampleCount"`
	} `json:"parameters"`
}

type wireOperation struct {
	Name     string         `json:"name"`
	Done     bool           `json:"done,omitempty"`
	Error    map[string]any `json:"error,omitempty"`
	Response *wireVideoResp `json:"response,omitempty"`
}

type wireVideoResp struct {
	GenerateVideoResponse struct {
		GeneratedSamples []wireSample `json:"generatedSamples"`
	} `json:"generateVideoResponse"`
}

type wireSample struct {
	Video struct {
		URI          string `json:"uri,omitempty"`
		EncodedVideo string `json:"encodedVideo,omitempty"`
		Encoding     string `json:"encoding,omitempty"`
	} `json:"video"`
}
