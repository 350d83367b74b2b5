package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the intheflow banner with a violet to rose gradient.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	lines := []struct {
		text, color string
	}{
		{" _       _   _           __ _               ", "#818cf8"},
		{"(_)_ __ | |_| |__   ___ / _| | _____      __", "#a78bfa"},
		{"| | '_ \\| __| '_ \\ / _ \\ |_| |/ _ \\ \\ /\\ / /", "#c084fc"},
		{"| | | | | |_| | | |  __/  _| | (_) \\ V  V / ", "#e879f9"},
		{"|_|_| |_|\\__|_| |_|\\___|_| |_|\\___/ \\_/\\_/  ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Foreground(p.Color("#fb7185")).Faint())
	}
	fmt.Fprintln(w)
}
