package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jroimartin/gocui"

	"github.com/erdncyz/swagger-viewer/internal/httpclient"
	"github.com/erdncyz/swagger-viewer/internal/model"
	"github.com/erdncyz/swagger-viewer/internal/openapi"
	"github.com/erdncyz/swagger-viewer/internal/render"
)

const requestTimeout = 30 * time.Second

// paramPanes are the builder panes for parameters, in display order. Each
// is named after its parameter location.
var paramPanes = []string{"path", "query", "header", "cookie"}

var paneTitles = map[string]string{
	"path":   "Path Params",
	"query":  "Query Params",
	"header": "Headers",
	"cookie": "Cookies",
	"body":   "Body",
}

// panes lists the builder panes the active endpoint needs.
func (a *App) panes() []string {
	var out []string
	for _, p := range paramPanes {
		if len(a.active.ParamsIn(model.ParamLocation(p))) > 0 {
			out = append(out, p)
		}
	}
	if a.active.HasBody() {
		out = append(out, "body")
	}
	if len(out) == 0 {
		out = []string{"path"}
	}
	return out
}

func (a *App) values(pane string) map[string]string {
	switch pane {
	case "path":
		return a.inputs.Path
	case "query":
		return a.inputs.Query
	case "header":
		return a.inputs.Header
	case "cookie":
		return a.inputs.Cookie
	}
	return nil
}

func cloneInputs(in httpclient.Inputs) httpclient.Inputs {
	cp := func(m map[string]string) map[string]string {
		out := make(map[string]string, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	return httpclient.Inputs{
		Path:   cp(in.Path),
		Query:  cp(in.Query),
		Header: cp(in.Header),
		Cookie: cp(in.Cookie),
		Body:   in.Body,
	}
}

func (a *App) layoutBuilder(maxX, maxY int) error {
	panes := a.panes()
	keep := append([]string{"selected"}, panes...)
	if a.editing {
		keep = append(keep, "edit")
	}
	a.clearMainViews(keep...)
	if !slices.Contains(panes, a.pane) {
		a.pane = panes[0]
	}

	if v, err := a.g.SetView("selected", 0, 2, maxX-1, 6); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Request"
	}

	top, bottom := 6, maxY-3
	h := (bottom - top) / len(panes)
	for i, p := range panes {
		y0 := top + i*h
		y1 := y0 + h
		if i == len(panes)-1 {
			y1 = bottom
		}
		if v, err := a.g.SetView(p, 0, y0, maxX-1, y1); err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
			v.Title = paneTitles[p]
			v.Highlight = p != "body"
		}
	}

	a.renderBuilder(panes)
	a.updatePanelColors(panes)

	if a.editing {
		if _, err := a.g.SetViewOnTop("edit"); err != nil {
			return err
		}
		_, err := a.g.SetCurrentView("edit")
		return err
	}
	_, err := a.g.SetCurrentView(a.pane)
	return err
}

func (a *App) updatePanelColors(panes []string) {
	for _, p := range panes {
		v, err := a.g.View(p)
		if err != nil {
			continue
		}
		if p == a.pane && !a.editing {
			v.SelBgColor = gocui.ColorGreen
			v.SelFgColor = gocui.ColorBlack
			v.FgColor = gocui.ColorWhite
		} else {
			v.SelBgColor = gocui.ColorDefault
			v.SelFgColor = gocui.ColorDefault
			v.FgColor = gocui.ColorDefault
		}
	}
}

func (a *App) renderBuilder(panes []string) {
	ep := a.active
	if v, err := a.g.View("selected"); err == nil {
		v.Clear()
		note := firstNonEmpty(ep.Summary, ep.OperationID)
		if note != "" {
			note = "  " + render.PlainText(note)
		}
		fmt.Fprintf(v, "%s %s%s\n", render.Method(ep.Method, true), render.Path(ep.Path, true), note)
		if a.baseURL == "" {
			fmt.Fprintf(v, "%sbase URL unknown%s\n", colorYellow, colorReset)
		} else {
			fmt.Fprintf(v, "base: %s\n", a.baseURL)
		}
		if len(ep.Security) > 0 {
			if a.authorized(ep) {
				fmt.Fprintf(v, "%sauth: set%s\n", colorCyan, colorReset)
			} else {
				fmt.Fprintf(v, "%sauth: %s required (press A)%s\n", colorYellow, strings.Join(ep.Security, " or "), colorReset)
			}
		}
	}

	for _, p := range panes {
		v, err := a.g.View(p)
		if err != nil {
			continue
		}
		v.Clear()
		if p == "body" {
			a.renderBody(v)
			continue
		}
		params := ep.ParamsIn(model.ParamLocation(p))
		if len(params) == 0 {
			fmt.Fprintln(v, "(none)")
			continue
		}
		vals := a.values(p)
		for _, param := range params {
			fmt.Fprintln(v, paramLine(a.sess, param, vals[param.Name]))
		}
	}
}

// paramLine renders "name = value", or a dimmed hint when value is empty.
// Required parameters are starred.
func paramLine(sess *openapi.Session, p model.Param, value string) string {
	req := " "
	if p.Required {
		req = "*"
	}
	if value != "" {
		return fmt.Sprintf("%s%s = %s", req, p.Name, value)
	}
	hint := []string{openapi.TypeLabel(sess.Document, p.Schema)}
	if len(p.Enum) > 0 {
		opts := make([]string, len(p.Enum))
		for i, e := range p.Enum {
			opts[i] = fmt.Sprint(e)
		}
		hint = append(hint, strings.Join(opts, "|"))
	}
	if d := render.PlainText(p.Description); d != "" {
		hint = append(hint, d)
	}
	return fmt.Sprintf("%s%s = %s%s%s", req, p.Name, colorDim, strings.Join(hint, ", "), colorReset)
}

func (a *App) renderBody(v *gocui.View) {
	if strings.TrimSpace(a.inputs.Body) == "" {
		fmt.Fprintln(v, "(empty)")
		return
	}
	fmt.Fprintln(v, render.Body("application/json", a.inputs.Body, true))
}

func (a *App) authorized(ep *model.Endpoint) bool {
	for _, name := range ep.Security {
		if _, ok := a.dlg.store[name]; ok {
			return true
		}
	}
	return strings.TrimSpace(a.auth.Token) != ""
}

func (a *App) tabPane(*gocui.Gui, *gocui.View) error {
	if a.dlg.open {
		a.authNextField()
		return nil
	}
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	panes := a.panes()
	i := slices.Index(panes, a.pane)
	a.pane = panes[(i+1)%len(panes)]
	return nil
}

// selectedParam is the parameter under the cursor of a parameter pane.
func (a *App) selectedParam(pane string, v *gocui.View) (model.Param, bool) {
	params := a.active.ParamsIn(model.ParamLocation(pane))
	_, oy := v.Origin()
	_, cy := v.Cursor()
	i := oy + cy
	if i < 0 || i >= len(params) {
		return model.Param{}, false
	}
	return params[i], true
}

func (a *App) moveRow(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if a.scr != screenBuilder || a.editing || v == nil {
			return nil
		}
		_, oy := v.Origin()
		_, cy := v.Cursor()
		line := oy + cy + delta
		if line < 0 || line >= len(viewLines(v)) {
			return nil
		}
		focusLine(v, line)
		return nil
	}
}

func (a *App) resetParam(g *gocui.Gui, v *gocui.View) error {
	if a.scr != screenBuilder || a.editing || v == nil {
		return nil
	}
	if a.pane == "body" {
		a.inputs.Body = a.defaults.Body
		return nil
	}
	p, ok := a.selectedParam(a.pane, v)
	if !ok {
		return nil
	}
	vals := a.values(a.pane)
	if d, ok := defaultValue(a.defaults, a.pane, p.Name); ok {
		vals[p.Name] = d
	} else {
		delete(vals, p.Name)
	}
	return nil
}

func defaultValue(in httpclient.Inputs, pane, name string) (string, bool) {
	var m map[string]string
	switch pane {
	case "path":
		m = in.Path
	case "query":
		m = in.Query
	case "header":
		m = in.Header
	case "cookie":
		m = in.Cookie
	}
	v, ok := m[name]
	return v, ok
}

func (a *App) beginEdit(pane string) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if a.scr != screenBuilder || a.editing || v == nil {
			return nil
		}
		p, ok := a.selectedParam(pane, v)
		if !ok {
			return nil
		}

		a.editing = true
		a.editTarget = pane + ":" + p.Name

		maxX, maxY := g.Size()
		width := min(60, maxX-4)
		x0 := (maxX - width) / 2
		y0 := (maxY - 3) / 2
		ev, err := g.SetView("edit", x0, y0, x0+width, y0+2)
		if err != nil && err != gocui.ErrUnknownView {
			return err
		}
		ev.Title = fmt.Sprintf(" %s: %s (enter=ok, esc=cancel) ", p.Name, openapi.TypeLabel(a.sess.Document, p.Schema))
		ev.Editable = true
		ev.Editor = singleLineEditor{}
		ev.Clear()
		cur := a.values(pane)[p.Name]
		fmt.Fprint(ev, cur)
		_ = ev.SetCursor(len(cur), 0)
		_, err = g.SetCurrentView("edit")
		return err
	}
}

func (a *App) closeEdit() error {
	if !a.editing {
		return nil
	}
	if v, err := a.g.View("edit"); err == nil {
		v.Clear()
		a.g.DeleteView("edit")
	}
	a.editing = false
	a.editTarget = ""
	return nil
}

func (a *App) confirmEdit(g *gocui.Gui, v *gocui.View) error {
	if !a.editing {
		return nil
	}
	val := strings.TrimSpace(viewText(v))
	pane, name, ok := strings.Cut(a.editTarget, ":")
	if vals := a.values(pane); ok && vals != nil {
		if val == "" {
			delete(vals, name)
		} else {
			vals[name] = val
		}
	}
	return a.closeEdit()
}

// executeRequest sends the active endpoint with the current inputs. From
// the detail screen that means the document defaults.
func (a *App) executeRequest(*gocui.Gui, *gocui.View) error {
	if (a.scr != screenBuilder && a.scr != screenDetail) || a.editing || a.dlg.open {
		return nil
	}
	if a.baseURL == "" {
		a.errorMsg = "base URL unknown: the document declares no servers (use --base-url)"
		return nil
	}
	spec, err := authorize(a.baseURL, a.active, a.inputs, a.sess.Security, a.dlg.store, a.auth)
	if err != nil {
		a.errorMsg = err.Error()
		return nil
	}
	a.send(spec)
	a.scr = screenResponse
	return nil
}

func (a *App) send(spec httpclient.RequestSpec) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	a.lastReq = spec
	a.lastRes = a.client.Do(ctx, spec)
	a.errorMsg = ""
}
