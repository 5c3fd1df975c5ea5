package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"
)

// stdinIsTerminal gates interactive prompts.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func askSpec() (string, error) {
	var out string
	prompt := &survey.Input{
		Message: "OpenAPI document URL or file:",
		Help:    "An http(s) URL, or a path to a JSON or YAML file",
	}
	if err := survey.AskOne(prompt, &out, survey.WithValidator(survey.Required)); err != nil {
		return "", fmt.Errorf("prompt spec: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func askPassword(username string) (string, error) {
	var out string
	prompt := &survey.Password{Message: fmt.Sprintf("Password for %s:", username)}
	if err := survey.AskOne(prompt, &out); err != nil {
		return "", fmt.Errorf("prompt password: %w", err)
	}
	return out, nil
}
