// Package gemini implements ports.Generator with the Google Gen AI SDK
// (google.golang.org/genai) against the Gemini Developer API.
//
// Images, text and speech use Models.GenerateContent; video uses
// Models.GenerateVideos, polled through Operations.GetVideosOperation and
// fetched with Files.Download into a data URI. The API key comes from a
// KeySource on every call so a key supplied after start-up is picked up
// without restarting.
package gemini
