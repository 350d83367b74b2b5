package gemini

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"
)

const defaultSampleRate = 24000

// audioURI converts inline audio into a playable data URI. Linear PCM
// (audio/L16 or audio/pcm) is wrapped in a 16-bit mono WAV header.
func audioURI(mimeType string, data []byte) string {
	mime := strings.ToLower(mimeType)
	if !strings.HasPrefix(mime, "audio/l16") && !strings.HasPrefix(mime, "audio/pcm") {
		if mime == "" {
			mime = "audio/mp3"
		}
		return dataURI(mime, data)
	}
	return dataURI("audio/wav", wavFromPCM(data, sampleRate(mime)))
}

func sampleRate(mime string) int {
	for _, param := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || k != "rate" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultSampleRate
}

func wavFromPCM(pcm []byte, rate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	blockAlign := channels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
