package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// renderMarkdown renders markdown content, using glamour for terminal output or plain text otherwise
func renderMarkdown(markdown string, theme string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return markdown
	}
	rendered, err := glamour.Render(markdown, theme)
	if err != nil {
		// plain markdown is still readable
		return markdown
	}
	return rendered
}

// printMarkdown renders and prints markdown using the current context's theme
func printMarkdown(w io.Writer, config *Config, markdown string) {
	fmt.Fprint(w, renderMarkdown(markdown, getTheme(config)))
}

// getTheme returns the theme from the current context, or "auto" if config is unavailable
func getTheme(config *Config) string {
	if config == nil {
		return "auto"
	}

	ctx, err := config.GetCurrentContext()
	if err != nil {
		return "auto"
	}

	return ctx.Theme()
}
