package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/jroimartin/gocui"
	"github.com/kballard/go-shellquote"
)

// editorEnv names the editor for request bodies, before $EDITOR.
const editorEnv = "SWV_EDITOR"

// singleLineEditor leaves Enter to the view's keybinding.
type singleLineEditor struct{}

func (singleLineEditor) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	switch {
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		v.EditDelete(true)
	case key == gocui.KeyDelete:
		v.EditDelete(false)
	case key == gocui.KeyArrowLeft:
		v.MoveCursor(-1, 0, false)
	case key == gocui.KeyArrowRight:
		v.MoveCursor(1, 0, false)
	case key == gocui.KeyHome || key == gocui.KeyCtrlA:
		v.SetCursor(0, 0)
	case key == gocui.KeyEnd || key == gocui.KeyCtrlE:
		v.SetCursor(len(viewText(v)), 0)
	case key == gocui.KeySpace:
		v.EditWrite(' ')
	case key == gocui.KeyEnter:
	case ch != 0 && mod == 0:
		v.EditWrite(ch)
	}
}

// editBodyInEditor writes the current body to a temp file and leaves the
// main loop so Run can hand the terminal to the editor.
func (a *App) editBodyInEditor(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing || !a.active.HasBody() {
		return nil
	}
	seed := strings.TrimSpace(a.inputs.Body)
	if seed == "" {
		seed = "{}"
	}

	f, err := os.CreateTemp("", "swagger-viewer-body-*.json")
	if err != nil {
		a.errorMsg = err.Error()
		return nil
	}
	defer f.Close()
	if _, err := f.WriteString(seed + "\n"); err != nil {
		a.errorMsg = err.Error()
		return nil
	}
	a.suspendEditorFile = f.Name()
	return gocui.ErrQuit
}

func (a *App) runExternalEditor(file string) error {
	defer os.Remove(file)

	args, err := editorArgs(editorCommand(), file)
	if err != nil {
		return err
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", args[0], err)
	}

	b, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	body, err := normalizeBody(string(b))
	if err != nil {
		return err
	}
	a.inputs.Body = body
	return nil
}

func editorCommand() string {
	for _, env := range []string{editorEnv, "EDITOR"} {
		if e := strings.TrimSpace(os.Getenv(env)); e != "" {
			return e
		}
	}
	return "vi"
}

// editorArgs splits an editor command line with shell quoting rules and
// appends the file to edit.
func editorArgs(editor, file string) ([]string, error) {
	args, err := shellquote.Split(editor)
	if err != nil {
		return nil, fmt.Errorf("editor command %q: %w", editor, err)
	}
	if len(args) == 0 {
		args = []string{"vi"}
	}
	return append(args, file), nil
}

var errMultipleValues = errors.New("invalid json body: multiple json values")

// normalizeBody validates an edited body and re-indents it. Blank input
// clears the body.
func normalizeBody(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("invalid json body: %w", err)
	}
	if dec.More() {
		return "", errMultipleValues
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return "", fmt.Errorf("invalid json body: %w", err)
	}
	return buf.String(), nil
}
