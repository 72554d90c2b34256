package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"saysh/internal/pipeline"
	"saysh/internal/ux"
)

// helpMarkdown is the prompt's reference text.
func helpMarkdown(settings ux.Settings) string {
	var b strings.Builder
	b.WriteString("# saysh\n\n")
	b.WriteString("Type what you want in plain English, for example `list files`, ")
	b.WriteString("`create a file called notes.txt` or `display that file`.\n\n")

	b.WriteString("## Pipelines\n\n")
	b.WriteString("Join operations with *and*, *then*, *after that* or *pipe to*; each command's output feeds the next.\n\n")
	for _, group := range pipeline.ExampleUtterances() {
		fmt.Fprintf(&b, "**%s**\n\n", group.Topic)
		for _, u := range group.Utterances {
			fmt.Fprintf(&b, "- `%s`\n", u)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Commands\n\n")
	b.WriteString("| Command | Does |\n|---|---|\n")
	b.WriteString("| `help` | show this text |\n")
	b.WriteString("| `settings` | list the toggles |\n")
	b.WriteString("| `<setting> on` / `<setting> off` | flip a toggle |\n")
	b.WriteString("| `clear` | clear the screen |\n")
	b.WriteString("| `exit`, `quit`, `bye` | leave |\n\n")

	b.WriteString("## Settings\n\n")
	b.WriteString("| Setting | State | Meaning |\n|---|---|---|\n")
	for _, s := range settings.List() {
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", s.Name, onOff(s.On), s.Name.Description())
	}
	return b.String()
}

// renderMarkdown renders md for the terminal; plain streams get the
// unstyled form.
func renderMarkdown(md string, plain bool) string {
	style := glamour.WithAutoStyle()
	if plain {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(80))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
