package ui

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/jroimartin/gocui"

	"github.com/erdncyz/swagger-viewer/internal/httpclient"
	"github.com/erdncyz/swagger-viewer/internal/render"
)

func (a *App) layoutResponse(maxX, maxY int) error {
	a.clearMainViews("response")

	if v, err := a.g.SetView("response", 0, 2, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Response"
	}
	if v, err := a.g.View("response"); err == nil {
		v.Clear()
		writeResponse(v, a.lastReq, a.lastRes, a.showHeaders)
	}
	_, err := a.g.SetCurrentView("response")
	return err
}

func writeResponse(w io.Writer, req httpclient.RequestSpec, res httpclient.Result, headers bool) {
	status := res.Status
	if res.StatusCode == 0 {
		status = httpclient.NetworkErrorStatus
	}
	fmt.Fprintf(w, "%s  %dms\n", render.Status(strconv.Itoa(res.StatusCode), status, true), res.Elapsed.Milliseconds())
	fmt.Fprintf(w, "%s%s %s%s\n", colorDim, req.Method, req.URL, colorReset)
	if headers {
		keys := make([]string, 0, len(res.Headers))
		for k := range res.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s: %s\n", k, res.Headers[k])
		}
	} else if ct, ok := res.Headers["content-type"]; ok {
		fmt.Fprintf(w, "content-type: %s\n", ct)
	}
	fmt.Fprintln(w)
	if res.Data != nil {
		fmt.Fprintln(w, render.JSON(res.Data, true))
		return
	}
	fmt.Fprintln(w, render.Body(res.Headers["content-type"], res.Body, true))
	if res.Truncated {
		fmt.Fprintf(w, "%s(body truncated after %d bytes)%s\n", colorYellow, len(res.Body), colorReset)
	}
}

func (a *App) rerun(*gocui.Gui, *gocui.View) error {
	if a.scr != screenResponse || a.lastReq.URL == "" {
		return nil
	}
	a.send(a.lastReq)
	return nil
}

func (a *App) toggleHeaders(*gocui.Gui, *gocui.View) error {
	a.showHeaders = !a.showHeaders
	return nil
}

func (a *App) responseToEndpoints(*gocui.Gui, *gocui.View) error {
	if a.scr != screenResponse {
		return nil
	}
	a.scr = screenEndpoints
	a.errorMsg = ""
	return nil
}
