package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the otsync ASCII banner.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"        _                       ", "#818cf8"},
		{"   ___ | |_ ___ _   _ _ __   ___", "#a78bfa"},
		{"  / _ \\| __/ __| | | | '_ \\ / __|", "#c084fc"},
		{" | (_) | |_\\__ \\ |_| | | | | (__", "#e879f9"},
		{"  \\___/ \\__|___/\\__, |_| |_|\\___|", "#f472b6"},
		{"                |___/  " + version, "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
