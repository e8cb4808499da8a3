package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`  _   _ _              _                 `, "#818cf8"},
	{` | | | | |_ ___  _ __ (_)_   _ _ __ ___  `, "#a78bfa"},
	{` | | | | __/ _ \| '_ \| | | | | '_ ' _ \ `, "#c084fc"},
	{` | |_| | || (_) | |_) | | |_| | | | | | |`, "#e879f9"},
	{`  \___/ \__\___/| .__/|_|\__,_|_| |_| |_|`, "#f472b6"},
	{`                |_|                      `, "#fb7185"},
}

// PrintBanner writes the Utopium banner, followed by the version when given.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()

	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, p.String(line.text).Foreground(p.Color(line.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, p.String("  assistant v"+v).Faint())
	}
	fmt.Fprintln(w)
}
