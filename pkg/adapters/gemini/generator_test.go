package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/ports"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(StaticKey("test-key"), WithBaseURL(srv.URL), WithPollInterval(time.Millisecond))
}

func decodeRequest(t *testing.T, r *http.Request) wireRequest {
	t.Helper()
	var req wireRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGenerateImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash-image:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		req := decodeRequest(t, r)
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "a red fox", req.Contents[0].Parts[0].Text)
		require.NotNil(t, req.GenerationConfig)
		assert.Equal(t, "16:9", req.GenerationConfig.ImageConfig.AspectRatio)

		writeJSON(w, wireResponse{Candidates: []wireCandidate{{Content: &wireContent{Parts: []wirePart{
			{Text: "here you go"},
			{InlineData: &wireInline{MimeType: "image/png", Data: "AAAA"}},
		}}}}})
	})

	got, err := c.GenerateImage(context.Background(), ports.ImageRequest{Prompt: "a red fox", AspectRatio: "16:9"})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", got)
}

func TestGenerateImage_NoInlineData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, wireResponse{Candidates: []wireCandidate{{Content: &wireContent{Parts: []wirePart{{Text: "sorry"}}}}}})
	})

	_, err := c.GenerateImage(context.Background(), ports.ImageRequest{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrNoOutput)
}

func TestGenerateText(t *testing.T) {
	t.Run("Research Is Grounded", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
			req := decodeRequest(t, r)
			require.NotNil(t, req.SystemInstruction)
			assert.Contains(t, req.SystemInstruction.Parts[0].Text, "research assistant")
			require.Len(t, req.Tools, 1)
			assert.NotNil(t, req.Tools[0].GoogleSearch)

			writeJSON(w, wireResponse{Candidates: []wireCandidate{{
				Content: &wireContent{Parts: []wirePart{{Text: "Foxes "}, {Text: "are canids."}}},
				GroundingMetadata: &wireGrounding{GroundingChunks: []wireChunk{
					{Web: &wireWeb{URI: "https://example.com/fox", Title: "Fox"}},
					{},
				}},
			}}})
		})

		got, err := c.GenerateText(context.Background(), ports.TextRequest{Prompt: "foxes", Mode: ports.TextResearch})
		require.NoError(t, err)
		assert.Equal(t, "Foxes are canids.", got.Text)
		assert.Equal(t, []domain.Source{{URL: "https://example.com/fox", Title: "Fox"}}, got.Sources)
	})

	t.Run("Script Has No Tools", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			assert.Contains(t, req.SystemInstruction.Parts[0].Text, "screenwriter")
			assert.Empty(t, req.Tools)
			writeJSON(w, wireResponse{Candidates: []wireCandidate{{Content: &wireContent{Parts: []wirePart{{Text: "INT. DEN"}}}}}})
		})

		got, err := c.GenerateText(context.Background(), ports.TextRequest{Prompt: "scene", Mode: ports.TextScript})
		require.NoError(t, err)
		assert.Equal(t, "INT. DEN", got.Text)
		assert.Empty(t, got.Sources)
	})

	t.Run("Character Prompt", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			req := decodeRequest(t, r)
			assert.Contains(t, req.SystemInstruction.Parts[0].Text, "character design expert")
			writeJSON(w, wireResponse{})
		})

		got, err := c.GenerateText(context.Background(), ports.TextRequest{Prompt: "hero", Mode: ports.TextCharacter})
		require.NoError(t, err)
		assert.Empty(t, got.Text)
	})
}

func TestGenerateSpeech(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash-preview-tts:generateContent", r.URL.Path)
		req := decodeRequest(t, r)
		require.NotNil(t, req.GenerationConfig)
		assert.Equal(t, []string{"AUDIO"}, req.GenerationConfig.ResponseModalities)
		assert.Equal(t, "Puck", req.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)

		writeJSON(w, wireResponse{Candidates: []wireCandidate{{Content: &wireContent{Parts: []wirePart{
			{InlineData: &wireInline{MimeType: "audio/L16;codec=pcm;rate=16000", Data: base64.StdEncoding.EncodeToString(pcm)}},
		}}}}})
	})

	got, err := c.GenerateSpeech(context.Background(), ports.SpeechRequest{Text: "hello", Voice: "Puck"})
	require.NoError(t, err)

	mime, data, ok := parseDataURI(got)
	require.True(t, ok)
	assert.Equal(t, "audio/wav", mime)
	wav, err := base64.StdEncoding.DecodeString(data)
	require.NoError(t, err)
	require.Len(t, wav, 44+len(pcm))
	assert.Equal(t, "RIFF", string(wav[:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, []byte{0x80, 0x3e, 0, 0}, wav[24:28], "sample rate 16000")
	assert.Equal(t, pcm, wav[44:])
}

func TestGenerateSpeech_PassesThroughEncodedAudio(t *testing.T) {
	assert.Equal(t, "data:audio/mpeg;base64,QUJD", audioURI("audio/mpeg", []byte("ABC")))
	assert.Equal(t, "data:audio/mp3;base64,QUJD", audioURI("", []byte("ABC")))
}

func TestGenerateVideo(t *testing.T) {
	var polls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1beta/models/veo-3.1-fast-generate-preview:predictLongRunning":
			var req wirePredictRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Instances, 1)
			assert.Equal(t, "Animate this image", req.Instances[0].Prompt)
			require.NotNil(t, req.Instances[0].Image)
			assert.Equal(t, "image/png", req.Instances[0].Image.MimeType)
			assert.Equal(t, "AAAA", req.Instances[0].Image.BytesBase64Encoded)
			assert.Equal(t, "9:16", req.Parameters.AspectRatio)
			assert.Equal(t, "720p", req.Parameters.Resolution)
			assert.Equal(t, 1, req.Parameters.SampleCount)
			writeJSON(w, wireOperation{Name: "operations/op1"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1beta/operations/op1":
			if polls.Add(1) < 2 {
				writeJSON(w, wireOperation{Name: "operations/op1"})
				return
			}
			op := wireOperation{Name: "operations/op1", Done: true, Response: &wireVideoResp{}}
			sample := wireSample{}
			sample.Video.URI = "https://generativelanguage.googleapis.com/v1beta/files/video1:download?alt=media"
			op.Response.GenerateVideoResponse.GeneratedSamples = []wireSample{sample}
			writeJSON(w, op)
		case r.Method == http.MethodGet && r.URL.Path == "/v1beta/files/video1:download":
			assert.Equal(t, "media", r.URL.Query().Get("alt"))
			_, _ = w.Write([]byte("mp4-bytes"))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	})

	var messages []string
	got, err := c.GenerateVideo(context.Background(), ports.VideoRequest{
		Prompt:      "Animate this image",
		AspectRatio: "9:16",
		StartFrame:  "data:image/png;base64,AAAA",
	}, func(m string) { messages = append(messages, m) })
	require.NoError(t, err)

	assert.Equal(t, "data:video/mp4;base64,"+base64.StdEncoding.EncodeToString([]byte("mp4-bytes")), got)
	assert.Equal(t, int32(2), polls.Load())
	require.NotEmpty(t, messages)
	assert.True(t, strings.HasPrefix(messages[0], "Rendering video..."))
	assert.Equal(t, "Downloading video...", messages[len(messages)-1])
}

func TestGenerateVideo_InlineBytes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		op := wireOperation{Name: "operations/op3", Done: true, Response: &wireVideoResp{}}
		sample := wireSample{}
		sample.Video.EncodedVideo = base64.StdEncoding.EncodeToString([]byte("webm"))
		sample.Video.Encoding = "video/webm"
		op.Response.GenerateVideoResponse.GeneratedSamples = []wireSample{sample}
		writeJSON(w, op)
	})

	got, err := c.GenerateVideo(context.Background(), ports.VideoRequest{Prompt: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "data:video/webm;base64,"+base64.StdEncoding.EncodeToString([]byte("webm")), got)
}

func TestGenerateVideo_NoSamples(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, wireOperation{Name: "operations/op4", Done: true, Response: &wireVideoResp{}})
	})

	_, err := c.GenerateVideo(context.Background(), ports.VideoRequest{Prompt: "x"}, nil)
	assert.ErrorIs(t, err, domain.ErrNoOutput)
}

func TestGenerateVideo_OperationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, wireOperation{Name: "operations/op2", Done: true, Error: map[string]any{"code": 400, "message": "blocked"}})
	})

	_, err := c.GenerateVideo(context.Background(), ports.VideoRequest{Prompt: "x"}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.StatusCode)
	assert.Equal(t, "blocked", se.Message)
	assert.NotErrorIs(t, err, ports.ErrCredentialRejected)
}

func TestGenerateVideo_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, wireOperation{Name: "operations/slow"})
	})
	c.pollInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.GenerateVideo(ctx, ports.VideoRequest{Prompt: "x"}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateVideo_StartFrameURL(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nframe")
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	t.Cleanup(images.Close)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req wirePredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Instances[0].Image)
		assert.Equal(t, "image/png", req.Instances[0].Image.MimeType)
		assert.Equal(t, base64.StdEncoding.EncodeToString(png), req.Instances[0].Image.BytesBase64Encoded)
		writeJSON(w, wireOperation{Name: "operations/op5", Done: true, Response: &wireVideoResp{}})
	})

	_, err := c.GenerateVideo(context.Background(), ports.VideoRequest{Prompt: "x", StartFrame: images.URL + "/frame.png"}, nil)
	assert.ErrorIs(t, err, domain.ErrNoOutput)
}

func TestGenerateVideo_StartFrameTooLarge(t *testing.T) {
	tests := []struct {
		name          string
		contentLength bool
	}{
		{"Declared Length", true},
		{"Streamed Body", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/png")
				if tt.contentLength {
					w.Header().Set("Content-Length", strconv.Itoa(maxStartFrame+1))
				}
				chunk := bytes.Repeat([]byte{0xff}, 1<<20)
				for written := 0; written <= maxStartFrame; written += len(chunk) {
					if _, err := w.Write(chunk); err != nil {
						return
					}
				}
			}))
			t.Cleanup(images.Close)

			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusTeapot)
			})

			_, err := c.GenerateVideo(context.Background(), ports.VideoRequest{Prompt: "x", StartFrame: images.URL}, nil)
			assert.ErrorIs(t, err, domain.ErrInvalidParams)
			assert.Zero(t, calls.Load(), "no video request is sent")
		})
	}
}

func TestGenerateVideo_BadStartFrame(t *testing.T) {
	c := New(StaticKey("k"))
	_, err := c.GenerateVideo(context.Background(), ports.VideoRequest{Prompt: "x", StartFrame: "ftp://host/frame.png"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	_, err = c.GenerateVideo(context.Background(), ports.VideoRequest{Prompt: "x", StartFrame: "data:image/png;base64,!!"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		rejected bool
	}{
		{"Entity Not Found", http.StatusNotFound, true},
		{"Forbidden", http.StatusForbidden, true},
		{"Server Error", http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`, tt.status)
			})

			_, err := c.GenerateImage(context.Background(), ports.ImageRequest{Prompt: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "Requested entity was not found.")
			assert.Equal(t, tt.rejected, errors.Is(err, ports.ErrCredentialRejected))
		})
	}
}

func TestMissingKeyIsRejected(t *testing.T) {
	c := New(StaticKey(""))
	_, err := c.GenerateText(context.Background(), ports.TextRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ports.ErrCredentialRejected)
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestNew_BaseURLFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_BASE_URL", "http://proxy.local/v1beta/")
	c := New(StaticKey("k"))
	assert.Equal(t, "http://proxy.local/", c.baseURL)
	assert.Equal(t, "v1beta", c.apiVersion)

	c = New(StaticKey("k"), WithBaseURL("http://other/gemini"), WithModels(Models{Text: "custom"}))
	assert.Equal(t, "http://other/gemini/", c.baseURL)
	assert.Empty(t, c.apiVersion)
	assert.Equal(t, "custom", c.Models().Text)
	assert.Equal(t, DefaultModels().Image, c.Models().Image)
}

func TestSplitVersion(t *testing.T) {
	tests := []struct {
		in, base, version string
	}{
		{DefaultBaseURL, "https://generativelanguage.googleapis.com/", "v1beta"},
		{"https://proxy.local/api/v1alpha", "https://proxy.local/api/", "v1alpha"},
		{"http://127.0.0.1:8080", "http://127.0.0.1:8080/", ""},
		{"http://127.0.0.1:8080/v1/", "http://127.0.0.1:8080/", "v1"},
	}
	for _, tt := range tests {
		base, version := splitVersion(tt.in)
		assert.Equal(t, tt.base, base, tt.in)
		assert.Equal(t, tt.version, version, tt.in)
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")

	creds := NewEnvCredentials(envFile)
	ctx := context.Background()
	assert.False(t, creds.HasCredential(ctx))
	assert.ErrorIs(t, creds.RequestCredential(ctx), ErrNoCredential)

	require.NoError(t, os.WriteFile(envFile, []byte("GEMINI_API_KEY=from-file\n"), 0o600))
	require.NoError(t, creds.RequestCredential(ctx))
	assert.True(t, creds.HasCredential(ctx))
	assert.Equal(t, "from-file", creds.APIKey())
}

func TestEnvCredentials_KeyIsReadPerRequest(t *testing.T) {
	t.Setenv(APIKeyEnv, "first")
	creds := NewEnvCredentials(filepath.Join(t.TempDir(), "missing.env"))

	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("x-goog-api-key"))
		writeJSON(w, wireResponse{})
	}))
	t.Cleanup(srv.Close)
	c := New(creds, WithBaseURL(srv.URL))

	_, err := c.GenerateText(context.Background(), ports.TextRequest{Prompt: "x"})
	require.NoError(t, err)

	t.Setenv(APIKeyEnv, "second")
	require.NoError(t, creds.RequestCredential(context.Background()))
	_, err = c.GenerateText(context.Background(), ports.TextRequest{Prompt: "x"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, seen)
}
