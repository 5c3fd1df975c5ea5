// Package ui is the gocui terminal browser over a loaded document.
package ui

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jroimartin/gocui"

	"github.com/erdncyz/swagger-viewer/internal/httpclient"
	"github.com/erdncyz/swagger-viewer/internal/model"
	"github.com/erdncyz/swagger-viewer/internal/openapi"
)

type screen int

const (
	screenEndpoints screen = iota
	screenDetail
	screenBuilder
	screenResponse
)

// Options configures the browser.
type Options struct {
	// BaseURL overrides the document's first server.
	BaseURL string
	// Auth is sent with every request unless a scheme set in the auth
	// dialog applies to the endpoint.
	Auth   httpclient.Auth
	Client *httpclient.Client
	Logger *slog.Logger
}

type App struct {
	sess    *openapi.Session
	baseURL string
	auth    httpclient.Auth
	client  *httpclient.Client
	logger  *slog.Logger

	g   *gocui.Gui
	scr screen

	filter     string
	rows       []row
	selected   int
	selectedID string

	active     *model.Endpoint
	detailText string
	defaults   httpclient.Inputs
	inputs     httpclient.Inputs
	pane       string

	editing    bool
	editTarget string

	dlg authDialog

	suspendEditorFile string

	lastReq     httpclient.RequestSpec
	lastRes     httpclient.Result
	showHeaders bool
	errorMsg    string
}

func NewApp(sess *openapi.Session, opts Options) *App {
	a := &App{
		sess:    sess,
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		auth:    opts.Auth,
		client:  opts.Client,
		logger:  opts.Logger,
		scr:     screenEndpoints,
		dlg:     authDialog{store: map[string]credential{}},
	}
	if a.baseURL == "" {
		a.baseURL = sess.BaseURL()
	}
	if a.client == nil {
		a.client = &httpclient.Client{}
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a.recomputeFilter()
	return a
}

// Run blocks until the user quits. Editing a request body leaves the main
// loop, runs the external editor and then builds a fresh GUI.
func (a *App) Run() error {
	for {
		g, err := gocui.NewGui(gocui.OutputNormal)
		if err != nil {
			return err
		}
		a.g = g

		g.BgColor = gocui.ColorBlack
		g.FgColor = gocui.ColorWhite
		g.Cursor = true
		g.InputEsc = true
		g.SetManagerFunc(a.layout)

		if err := a.bindKeys(); err != nil {
			g.Close()
			return err
		}

		err = g.MainLoop()
		g.Close()

		if a.suspendEditorFile != "" {
			file := a.suspendEditorFile
			a.suspendEditorFile = ""
			if err := a.runExternalEditor(file); err != nil {
				a.logger.Warn("body editor failed", "error", err)
				a.errorMsg = err.Error()
			}
			continue
		}

		if err != nil && err != gocui.ErrQuit {
			return err
		}
		return nil
	}
}

func (a *App) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView("title", 0, 0, maxX-1, 2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		v.BgColor = gocui.ColorBlack
		v.FgColor = gocui.ColorWhite
	}
	a.renderTitle()

	if v, err := g.SetView("footer", 0, maxY-2, maxX-1, maxY); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		v.BgColor = gocui.ColorBlack
		v.FgColor = gocui.ColorWhite
	}
	a.renderFooter()

	if a.dlg.open {
		return a.layoutAuth(maxX, maxY)
	}

	switch a.scr {
	case screenEndpoints:
		return a.layoutEndpoints(maxX, maxY)
	case screenDetail:
		return a.layoutDetail(maxX, maxY)
	case screenBuilder:
		return a.layoutBuilder(maxX, maxY)
	case screenResponse:
		return a.layoutResponse(maxX, maxY)
	}
	return nil
}

var mainViews = []string{"filter", "endpoints", "detail", "selected", "path", "query", "header", "cookie", "body", "edit", "response"}

func (a *App) clearMainViews(keep ...string) {
	keepSet := map[string]bool{}
	for _, k := range keep {
		keepSet[k] = true
	}
	for _, n := range mainViews {
		if keepSet[n] {
			continue
		}
		if v, err := a.g.View(n); err == nil {
			v.Clear()
			a.g.DeleteView(n)
		}
	}
}

type binding struct {
	view    string
	key     any
	handler func(*gocui.Gui, *gocui.View) error
}

func (a *App) bindKeys() error {
	bs := []binding{
		{"", gocui.KeyCtrlC, a.quit},
		{"", gocui.KeyEsc, a.back},
		{"", gocui.KeyTab, a.tabPane},
		{"", gocui.KeyCtrlR, a.executeRequest},

		{"endpoints", gocui.KeyArrowDown, a.moveSel(1)},
		{"endpoints", gocui.KeyArrowUp, a.moveSel(-1)},
		{"endpoints", gocui.KeyPgdn, a.moveSel(10)},
		{"endpoints", gocui.KeyPgup, a.moveSel(-10)},
		{"endpoints", gocui.KeyEnter, a.openDetail},
		{"endpoints", gocui.KeyBackspace, a.filterBackspace},
		{"endpoints", gocui.KeyBackspace2, a.filterBackspace},
		{"endpoints", gocui.KeyCtrlA, a.openAuth},
		{"endpoints", gocui.KeySpace, a.appendFilterRune(' ')},

		{"detail", gocui.KeyArrowDown, a.scroll(1)},
		{"detail", gocui.KeyArrowUp, a.scroll(-1)},
		{"detail", gocui.KeyPgdn, a.scroll(10)},
		{"detail", gocui.KeyPgup, a.scroll(-10)},
		{"detail", gocui.KeyEnter, a.openBuilder},
		{"detail", 'b', a.openBuilder},

		{"body", gocui.KeyEnter, a.editBodyInEditor},
		{"edit", gocui.KeyEnter, a.confirmEdit},

		{"response", gocui.KeyArrowDown, a.scroll(1)},
		{"response", gocui.KeyArrowUp, a.scroll(-1)},
		{"response", gocui.KeyPgdn, a.scroll(10)},
		{"response", gocui.KeyPgup, a.scroll(-10)},
		{"response", 'r', a.rerun},
		{"response", 'h', a.toggleHeaders},
		{"response", gocui.KeyEnter, a.responseToEndpoints},

		{"auth-schemes", gocui.KeyArrowDown, a.moveAuthSel(1)},
		{"auth-schemes", gocui.KeyArrowUp, a.moveAuthSel(-1)},
		{"auth-schemes", gocui.KeyEnter, a.startAuthEdit},
		{"auth-form", gocui.KeyEnter, a.submitAuth},
		{"auth-form", gocui.KeyCtrlD, a.clearAuth},
		{"auth-form", gocui.KeyBackspace, a.authBackspace},
		{"auth-form", gocui.KeyBackspace2, a.authBackspace},
		{"auth-form", gocui.KeySpace, a.authTypeRune(' ')},
	}

	// q and A on every view that does not take typed text
	for _, v := range []string{"detail", "path", "query", "header", "cookie", "body", "response"} {
		bs = append(bs, binding{v, 'q', a.quit}, binding{v, 'A', a.openAuth})
	}
	for _, v := range paramPanes {
		bs = append(bs,
			binding{v, gocui.KeyArrowDown, a.moveRow(1)},
			binding{v, gocui.KeyArrowUp, a.moveRow(-1)},
			binding{v, gocui.KeyEnter, a.beginEdit(v)},
			binding{v, 'd', a.resetParam},
		)
	}
	bs = append(bs,
		binding{"body", gocui.KeyArrowDown, a.scroll(1)},
		binding{"body", gocui.KeyArrowUp, a.scroll(-1)},
		binding{"body", 'd', a.resetParam},
	)

	// 1-5 quick select only fires on an empty filter; digits are filter
	// text otherwise.
	for i := 1; i <= 5; i++ {
		bs = append(bs, binding{"endpoints", rune('0' + i), a.selectEndpointByNumber(i)})
	}
	for r := rune(32); r <= rune(126); r++ {
		bs = append(bs,
			binding{"endpoints", r, a.appendFilterRune(r)},
			binding{"auth-form", r, a.authTypeRune(r)},
		)
	}

	for _, b := range bs {
		if err := a.g.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return fmt.Errorf("binding %v on %q: %w", b.key, b.view, err)
		}
	}
	return nil
}

func (a *App) quit(*gocui.Gui, *gocui.View) error { return gocui.ErrQuit }

func (a *App) back(*gocui.Gui, *gocui.View) error {
	if a.dlg.open {
		a.closeAuth()
		return nil
	}
	if a.editing {
		return a.closeEdit()
	}
	switch a.scr {
	case screenResponse:
		a.scr = screenBuilder
	case screenBuilder:
		a.scr = screenDetail
	case screenDetail:
		a.scr = screenEndpoints
	case screenEndpoints:
		if a.filter != "" {
			a.filter = ""
			a.recomputeFilter()
		}
	}
	a.errorMsg = ""
	return nil
}

// scroll moves the origin of the current view.
func (a *App) scroll(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if v == nil || a.editing || a.dlg.open {
			return nil
		}
		ox, oy := v.Origin()
		oy += delta
		if max := len(viewLines(v)) - 1; oy > max {
			oy = max
		}
		if oy < 0 {
			oy = 0
		}
		return v.SetOrigin(ox, oy)
	}
}

func (a *App) renderTitle() {
	v, err := a.g.View("title")
	if err != nil {
		return
	}
	v.Clear()
	fmt.Fprintf(v, "%sswagger-viewer%s  %s", colorGreen, colorReset, a.sess.Title())
	if version := a.sess.Info().String("version"); version != "" {
		fmt.Fprintf(v, " %s%s%s", colorDim, version, colorReset)
	}
	if a.baseURL != "" {
		fmt.Fprintf(v, "  %s", a.baseURL)
	}
}

func (a *App) renderFooter() {
	v, err := a.g.View("footer")
	if err != nil {
		return
	}
	v.Clear()
	if a.errorMsg != "" {
		fmt.Fprintf(v, "%s%s%s", colorRed, a.errorMsg, colorReset)
		return
	}
	fmt.Fprint(v, a.help())
}

func (a *App) help() string {
	if a.dlg.open {
		return "auth: enter=edit/save   tab=next field   ctrl+d=clear   esc=close"
	}
	switch a.scr {
	case screenEndpoints:
		return "type: filter   1-5: quick select   enter: open   esc: clear filter   ctrl+a: auth   ctrl+c: quit"
	case screenDetail:
		return "up/down: scroll   enter/b: build request   ctrl+r: send with defaults   A: auth   esc: back   q: quit"
	case screenBuilder:
		if a.pane == "body" {
			return "tab: switch pane   enter: edit json ($EDITOR)   d: reset body   ctrl+r: send   A: auth   esc: back"
		}
		return "tab: switch pane   enter: edit   d: reset param   ctrl+r: send   A: auth   esc: back"
	case screenResponse:
		return "up/down: scroll   r: rerun   h: headers   enter: endpoints   A: auth   esc: back"
	}
	return ""
}

// focusLine moves the cursor to line, scrolling when it is off screen.
func focusLine(v *gocui.View, line int) {
	_, h := v.Size()
	if h <= 0 || line < 0 {
		return
	}
	ox, oy := v.Origin()
	if line < oy {
		oy = line
	} else if line >= oy+h {
		oy = line - h + 1
	}
	_ = v.SetOrigin(ox, oy)
	_ = v.SetCursor(0, line-oy)
}

func viewText(v *gocui.View) string {
	return strings.TrimSuffix(v.Buffer(), "\n")
}

func viewLines(v *gocui.View) []string {
	buf := strings.TrimSuffix(v.Buffer(), "\n")
	if buf == "" {
		return nil
	}
	return strings.Split(buf, "\n")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

const (
	colorDim    = "\033[90m"
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)
