package ui

import (
	"fmt"
	"strings"

	"github.com/jroimartin/gocui"

	"github.com/erdncyz/swagger-viewer/internal/httpclient"
	"github.com/erdncyz/swagger-viewer/internal/model"
	"github.com/erdncyz/swagger-viewer/internal/render"
)

// describe renders the endpoint detail: the description from render, the
// sample request and one sample per documented response.
func (a *App) describe(ep *model.Endpoint) string {
	var sb strings.Builder
	render.Endpoint(&sb, a.sess.Document, ep, true)

	ex := httpclient.BuildExample(a.sess.Document, ep, a.baseURL)
	fmt.Fprintln(&sb, "\nExample request")
	if ex.Request.Error != "" {
		fmt.Fprintf(&sb, "  %s%s%s\n", colorDim, ex.Request.Error, colorReset)
	} else {
		render.Indent(&sb, ex.Request.Curl, "  ")
	}
	if ex.Request.Body != nil {
		render.Indent(&sb, render.JSON(ex.Request.Body, true), "  ")
	}
	for _, r := range ep.Responses {
		v, ok := ex.Responses[r.Status]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "\nExample response %s\n", render.Status(r.Status, r.Status, true))
		render.Indent(&sb, render.JSON(v, true), "  ")
	}
	return sb.String()
}

func (a *App) layoutDetail(maxX, maxY int) error {
	a.clearMainViews("detail")

	if v, err := a.g.SetView("detail", 0, 2, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Wrap = true
		fmt.Fprint(v, a.detailText)
	}
	if v, err := a.g.View("detail"); err == nil {
		v.Title = a.active.ID
	}
	_, err := a.g.SetCurrentView("detail")
	return err
}

func (a *App) openBuilder(*gocui.Gui, *gocui.View) error {
	if a.scr != screenDetail || a.active == nil {
		return nil
	}
	a.scr = screenBuilder
	a.errorMsg = ""
	return nil
}
