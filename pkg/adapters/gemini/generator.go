package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/ports"
)

var _ ports.Generator = (*Client)(nil)

// maxStartFrame bounds the size of a fetched start frame image.
const maxStartFrame = 20 << 20

var systemPrompts = map[ports.TextMode]string{
	ports.TextResearch:  "You are a helpful research assistant. Provide detailed, sourced information.",
	ports.TextCharacter: "You are a character design expert. Create detailed character profiles including background, personality, and appearance.",
	ports.TextScript:    "You are a professional screenwriter. Write a script scene based on the prompt.",
}

// GenerateImage returns the first inline image of the response as a data URI.
func (c *Client) GenerateImage(ctx context.Context, req ports.ImageRequest) (string, error) {
	client, err := c.sdk(ctx)
	if err != nil {
		return "", err
	}
	config := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: req.AspectRatio},
	}
	res, err := client.Models.GenerateContent(ctx, c.models.Image, genai.Text(req.Prompt), config)
	if err != nil {
		return "", apiError(err)
	}
	blob := firstInline(res)
	if blob == nil {
		return "", fmt.Errorf("gemini: no image in response: %w", domain.ErrNoOutput)
	}
	return dataURI(blob.MIMEType, blob.Data), nil
}

// GenerateText returns the concatenated text parts. Research requests are
// grounded with Google Search and report the web sources used.
func (c *Client) GenerateText(ctx context.Context, req ports.TextRequest) (ports.TextResult, error) {
	mode := req.Mode
	if _, ok := systemPrompts[mode]; !ok {
		mode = ports.TextScript
	}
	client, err := c.sdk(ctx)
	if err != nil {
		return ports.TextResult{}, err
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompts[mode], genai.RoleUser),
	}
	if mode == ports.TextResearch {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	res, err := client.Models.GenerateContent(ctx, c.models.Text, genai.Text(req.Prompt), config)
	if err != nil {
		return ports.TextResult{}, apiError(err)
	}

	var out ports.TextResult
	if len(res.Candidates) == 0 {
		return out, nil
	}
	cand := res.Candidates[0]
	if cand.Content != nil {
		var sb strings.Builder
		for _, p := range cand.Content.Parts {
			if p != nil && !p.Thought {
				sb.WriteString(p.Text)
			}
		}
		out.Text = sb.String()
	}
	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			out.Sources = append(out.Sources, domain.Source{URL: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}
	return out, nil
}

// GenerateSpeech returns the spoken audio as a data URI. Raw PCM responses
// are wrapped in a WAV container so the payload is directly playable.
func (c *Client) GenerateSpeech(ctx context.Context, req ports.SpeechRequest) (string, error) {
	client, err := c.sdk(ctx)
	if err != nil {
		return "", err
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: req.Voice},
			},
		},
	}
	res, err := client.Models.GenerateContent(ctx, c.models.Speech, genai.Text(req.Text), config)
	if err != nil {
		return "", apiError(err)
	}
	blob := firstInline(res)
	if blob == nil {
		return "", fmt.Errorf("gemini: no audio in response: %w", domain.ErrNoOutput)
	}
	return audioURI(blob.MIMEType, blob.Data), nil
}

// GenerateVideo starts a long-running video operation, polls it until done
// and downloads the first sample into a data URI.
func (c *Client) GenerateVideo(ctx context.Context, req ports.VideoRequest, progress ports.ProgressFunc) (string, error) {
	if progress == nil {
		progress = func(string) {}
	}

	var image *genai.Image
	if req.StartFrame != "" {
		img, err := c.startFrame(ctx, req.StartFrame)
		if err != nil {
			return "", err
		}
		image = img
	}

	client, err := c.sdk(ctx)
	if err != nil {
		return "", err
	}
	config := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    req.AspectRatio,
		Resolution:     "720p",
	}
	op, err := client.Models.GenerateVideos(ctx, c.models.Video, req.Prompt, image, config)
	if err != nil {
		return "", apiError(err)
	}

	started := time.Now()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for !op.Done {
		progress(fmt.Sprintf("Rendering video... (%ds)", int(time.Since(started).Seconds())))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		if op, err = client.Operations.GetVideosOperation(ctx, op, nil); err != nil {
			return "", apiError(err)
		}
	}

	if op.Error != nil {
		return "", operationError(op.Error)
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		reason := ""
		if op.Response != nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
			reason = " (" + strings.Join(op.Response.RAIMediaFilteredReasons, "; ") + ")"
		}
		return "", fmt.Errorf("gemini: no video in operation %s%s: %w", op.Name, reason, domain.ErrNoOutput)
	}
	video := op.Response.GeneratedVideos[0].Video
	mime := video.MIMEType
	if mime == "" {
		mime = "video/mp4"
	}
	if len(video.VideoBytes) > 0 {
		return dataURI(mime, video.VideoBytes), nil
	}
	if video.URI == "" {
		return "", fmt.Errorf("gemini: empty video uri: %w", domain.ErrNoOutput)
	}

	progress("Downloading video...")
	raw, err := client.Files.Download(ctx, genai.NewDownloadURIFromVideo(video), nil)
	if err != nil {
		return "", apiError(err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("gemini: empty video download: %w", domain.ErrNoOutput)
	}
	return dataURI(mime, raw), nil
}

// startFrame turns an image payload into inline bytes. Data URIs are decoded
// locally; URLs are fetched. Images over maxStartFrame are rejected.
func (c *Client) startFrame(ctx context.Context, payload string) (*genai.Image, error) {
	if mime, data, ok := parseDataURI(payload); ok {
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("gemini: decoding start frame: %w: %w", domain.ErrInvalidParams, err)
		}
		return &genai.Image{ImageBytes: raw, MIMEType: mime}, nil
	}
	if !strings.HasPrefix(payload, "http") {
		return nil, fmt.Errorf("gemini: unsupported start frame reference: %w", domain.ErrInvalidParams)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: fetching start frame: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini: fetching start frame: http %d", res.StatusCode)
	}
	if res.ContentLength > maxStartFrame {
		return nil, errStartFrameTooLarge
	}
	raw, err := io.ReadAll(io.LimitReader(res.Body, maxStartFrame+1))
	if err != nil {
		return nil, fmt.Errorf("gemini: reading start frame: %w", err)
	}
	if len(raw) > maxStartFrame {
		return nil, errStartFrameTooLarge
	}
	mime := res.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(raw)
	}
	return &genai.Image{ImageBytes: raw, MIMEType: mime}, nil
}

var errStartFrameTooLarge = fmt.Errorf("gemini: start frame exceeds %d bytes: %w", maxStartFrame, domain.ErrInvalidParams)

func firstInline(res *genai.GenerateContentResponse) *genai.Blob {
	if res == nil {
		return nil
	}
	for _, cand := range res.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return p.InlineData
			}
		}
	}
	return nil
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func parseDataURI(s string) (mime, data string, ok bool) {
	rest, found := strings.CutPrefix(s, "data:")
	if !found {
		return "", "", false
	}
	meta, data, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", "", false
	}
	return mime, data, true
}
