package ui

import (
	"fmt"
	"strings"

	"github.com/jroimartin/gocui"

	"github.com/erdncyz/swagger-viewer/internal/httpclient"
	"github.com/erdncyz/swagger-viewer/internal/model"
	"github.com/erdncyz/swagger-viewer/internal/render"
)

// row is one line of the endpoint list: a tag heading when ep is nil.
type row struct {
	tag string
	ep  *model.Endpoint
}

// buildRows lays the endpoint list out tag by tag. With a filter each tag
// keeps only its matching endpoints, best match first, and tags without a
// match are dropped.
func buildRows(tags *model.TagIndex, filter string) []row {
	needle := strings.TrimSpace(filter)
	var rows []row
	for _, tag := range tags.Tags() {
		eps := rankEndpoints(tags.Endpoints(tag), needle)
		if len(eps) == 0 {
			continue
		}
		rows = append(rows, row{tag: tag})
		for _, ep := range eps {
			rows = append(rows, row{tag: tag, ep: ep})
		}
	}
	return rows
}

// selectRow returns the row holding the endpoint id, or the first endpoint
// row when id is not listed. It returns -1 for a list without endpoints.
func selectRow(rows []row, id string) int {
	first := -1
	for i, r := range rows {
		if r.ep == nil {
			continue
		}
		if r.ep.ID == id {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

// stepRow moves from i by delta endpoint rows, skipping headings and
// stopping at either end.
func stepRow(rows []row, i, delta int) int {
	dir := 1
	if delta < 0 {
		dir, delta = -1, -delta
	}
	for ; delta > 0; delta-- {
		next := i + dir
		for next >= 0 && next < len(rows) && rows[next].ep == nil {
			next += dir
		}
		if next < 0 || next >= len(rows) {
			break
		}
		i = next
	}
	return i
}

func (a *App) recomputeFilter() {
	a.rows = buildRows(a.sess.Tags, a.filter)
	a.selected = selectRow(a.rows, a.selectedID)
	if a.selected >= 0 {
		a.selectedID = a.rows[a.selected].ep.ID
	}
}

func (a *App) layoutEndpoints(maxX, maxY int) error {
	a.clearMainViews("filter", "endpoints")

	if v, err := a.g.SetView("filter", 0, 2, maxX-1, 4); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Filter"
	}
	if v, err := a.g.SetView("endpoints", 0, 4, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Highlight = true
		v.SelFgColor = gocui.ColorBlack
		v.SelBgColor = gocui.ColorGreen
	}
	a.renderFilter()
	a.renderEndpoints()
	_, err := a.g.SetCurrentView("endpoints")
	return err
}

func (a *App) renderFilter() {
	v, err := a.g.View("filter")
	if err != nil {
		return
	}
	v.Clear()
	fmt.Fprint(v, a.filter)
}

func (a *App) renderEndpoints() {
	v, err := a.g.View("endpoints")
	if err != nil {
		return
	}
	v.Clear()
	v.Title = fmt.Sprintf("Endpoints (%d)", len(a.sess.Endpoints))

	if len(a.rows) == 0 {
		if a.filter != "" {
			fmt.Fprintf(v, "no endpoint matches %q\n", a.filter)
		} else {
			fmt.Fprintln(v, "the document declares no operations")
		}
		return
	}

	n := 0
	for _, r := range a.rows {
		if r.ep == nil {
			fmt.Fprintf(v, "%s%s%s\n", colorYellow, r.tag, colorReset)
			continue
		}
		n++
		prefix := "   "
		if n <= 5 && a.filter == "" {
			prefix = fmt.Sprintf(" %d ", n)
		}
		note := firstNonEmpty(r.ep.Summary, r.ep.OperationID)
		if note != "" {
			note = "  " + render.PlainText(note)
		}
		if r.ep.Deprecated {
			note += colorDim + " (deprecated)" + colorReset
		}
		fmt.Fprintf(v, "%s%s %s%s\n", prefix, render.Method(r.ep.Method, true), render.Path(r.ep.Path, true), note)
	}
	focusLine(v, a.selected)
}

func (a *App) appendFilterRune(r rune) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		if a.scr != screenEndpoints || a.dlg.open {
			return nil
		}
		a.filter += string(r)
		a.recomputeFilter()
		return nil
	}
}

func (a *App) filterBackspace(*gocui.Gui, *gocui.View) error {
	if a.scr != screenEndpoints || a.filter == "" {
		return nil
	}
	a.filter = a.filter[:len(a.filter)-1]
	a.recomputeFilter()
	return nil
}

func (a *App) moveSel(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		if a.scr != screenEndpoints || a.selected < 0 {
			return nil
		}
		a.selected = stepRow(a.rows, a.selected, delta)
		a.selectedID = a.rows[a.selected].ep.ID
		return nil
	}
}

func (a *App) selectEndpointByNumber(num int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if a.scr != screenEndpoints || a.filter != "" {
			return nil
		}
		n := 0
		for i, r := range a.rows {
			if r.ep == nil {
				continue
			}
			if n++; n == num {
				a.selected = i
				a.selectedID = r.ep.ID
				return a.openDetail(g, v)
			}
		}
		return nil
	}
}

// openDetail shows the selected endpoint and resets the request inputs
// to the document's defaults.
func (a *App) openDetail(*gocui.Gui, *gocui.View) error {
	if a.scr != screenEndpoints || a.selected < 0 {
		return nil
	}
	ep := a.rows[a.selected].ep
	a.active = ep
	a.detailText = a.describe(ep)
	a.defaults = httpclient.DefaultInputs(a.sess.Document, ep)
	a.inputs = cloneInputs(a.defaults)
	a.pane = ""
	a.scr = screenDetail
	a.errorMsg = ""
	a.logger.Debug("endpoint opened", "endpoint", ep.ID)
	return nil
}
