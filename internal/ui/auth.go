package ui

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/jroimartin/gocui"

	"github.com/erdncyz/swagger-viewer/internal/auth"
	"github.com/erdncyz/swagger-viewer/internal/httpclient"
	"github.com/erdncyz/swagger-viewer/internal/model"
)

const tokenTimeout = 10 * time.Second

// Scheme kinds the dialog can fill in.
const (
	kindBearer   = "bearer"
	kindBasic    = "basic"
	kindAPIKey   = "apiKey"
	kindPassword = "password"
)

func schemeKind(s model.SecurityScheme) string {
	switch {
	case s.Type == "http" && strings.EqualFold(s.Scheme, "bearer"):
		return kindBearer
	case s.Type == "http" && strings.EqualFold(s.Scheme, "basic"):
		return kindBasic
	case s.Type == "apiKey" && s.ParamName != "":
		return kindAPIKey
	case s.Type == "oauth2" && s.TokenURL != "":
		return kindPassword
	}
	return ""
}

type authField int

const (
	fieldToken authField = iota
	fieldUser
	fieldPass
	fieldScope
)

func fieldsFor(kind string) []authField {
	switch kind {
	case kindBasic:
		return []authField{fieldUser, fieldPass}
	case kindPassword:
		return []authField{fieldUser, fieldPass, fieldScope}
	}
	return []authField{fieldToken}
}

// credential is what the dialog stored for one scheme. For API keys token
// is the key itself.
type credential struct {
	token     string
	tokenType string
	acquired  time.Time
}

type authDialog struct {
	open     bool
	editing  bool
	selected int
	field    authField

	token    string
	username string
	password string
	scope    string
	err      string

	store map[string]credential
}

func (d *authDialog) value(f authField) *string {
	switch f {
	case fieldUser:
		return &d.username
	case fieldPass:
		return &d.password
	case fieldScope:
		return &d.scope
	}
	return &d.token
}

func findScheme(schemes []model.SecurityScheme, name string) (model.SecurityScheme, bool) {
	for _, s := range schemes {
		if s.Name == name {
			return s, true
		}
	}
	return model.SecurityScheme{}, false
}

// authorize builds the request for ep with stored credentials applied. The
// first stored token among the endpoint's schemes replaces fallback; API
// keys are added to the built request.
func authorize(baseURL string, ep *model.Endpoint, in httpclient.Inputs, schemes []model.SecurityScheme,
	store map[string]credential, fallback httpclient.Auth) (httpclient.RequestSpec, error) {
	creds := fallback
	haveToken := false
	var keys []model.SecurityScheme
	seen := map[string]bool{}
	for _, name := range ep.Security {
		cred, stored := store[name]
		s, declared := findScheme(schemes, name)
		if !stored || !declared || seen[name] {
			continue
		}
		seen[name] = true
		if schemeKind(s) == kindAPIKey {
			keys = append(keys, s)
			continue
		}
		if !haveToken {
			creds = httpclient.Auth{Token: cred.token, TokenType: cred.tokenType}
			haveToken = true
		}
	}

	spec, err := httpclient.BuildRequest(baseURL, ep, in, creds)
	if err != nil {
		return spec, err
	}
	for _, s := range keys {
		if spec, err = httpclient.WithAPIKey(spec, s.In, s.ParamName, store[s.Name].token); err != nil {
			return spec, err
		}
	}
	return spec, nil
}

func (a *App) currentScheme() (model.SecurityScheme, bool) {
	if a.dlg.selected < 0 || a.dlg.selected >= len(a.sess.Security) {
		return model.SecurityScheme{}, false
	}
	return a.sess.Security[a.dlg.selected], true
}

func (a *App) openAuth(*gocui.Gui, *gocui.View) error {
	if a.dlg.open || a.editing {
		return nil
	}
	if len(a.sess.Security) == 0 {
		a.errorMsg = "the document declares no security schemes"
		return nil
	}
	a.dlg.open = true
	a.dlg.editing = false
	a.dlg.err = ""
	a.dlg.selected = 0
	a.loadAuthForm()
	return nil
}

func (a *App) closeAuth() {
	a.dlg.open = false
	a.dlg.editing = false
	a.dlg.err = ""
	for _, n := range []string{"auth-form", "auth-schemes", "auth-box"} {
		if v, err := a.g.View(n); err == nil {
			v.Clear()
			a.g.DeleteView(n)
		}
	}
}

func (a *App) layoutAuth(maxX, maxY int) error {
	width := min(maxX-10, 100)
	width = max(width, 34)
	height := min(16, maxY-4)
	height = max(height, 10)
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	x1 := x0 + width
	y1 := y0 + height

	if v, err := a.g.SetView("auth-box", x0, y0, x1, y1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Authentication"
	}

	leftW := 28
	if width < 60 {
		leftW = width / 3
	}
	leftW = min(leftW, (x1-2)-(x0+1)-17)
	leftW = max(leftW, 12)
	schemesX1 := x0 + leftW

	if v, err := a.g.SetView("auth-schemes", x0+1, y0+2, schemesX1, y1-2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Schemes"
		v.Highlight = true
		v.SelFgColor = gocui.ColorBlack
		v.SelBgColor = gocui.ColorGreen
	}
	if v, err := a.g.SetView("auth-form", schemesX1+1, y0+2, x1-2, y1-2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Details"
		v.Wrap = true
	}
	a.renderAuth()

	current := "auth-schemes"
	if a.dlg.editing {
		current = "auth-form"
	}
	if _, err := a.g.SetCurrentView(current); err != nil {
		return err
	}
	for _, n := range []string{"auth-box", "auth-schemes", "auth-form"} {
		if _, err := a.g.SetViewOnTop(n); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) moveAuthSel(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		if !a.dlg.open || a.dlg.editing {
			return nil
		}
		a.dlg.selected = min(max(a.dlg.selected+delta, 0), len(a.sess.Security)-1)
		a.dlg.err = ""
		a.loadAuthForm()
		return nil
	}
}

func (a *App) startAuthEdit(*gocui.Gui, *gocui.View) error {
	s, ok := a.currentScheme()
	if !a.dlg.open || !ok {
		return nil
	}
	kind := schemeKind(s)
	if kind == "" {
		a.dlg.err = "unsupported security scheme"
		return nil
	}
	a.dlg.editing = true
	a.dlg.err = ""
	a.dlg.field = fieldsFor(kind)[0]
	return nil
}

func (a *App) authTypeRune(r rune) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		if !a.dlg.open || !a.dlg.editing {
			return nil
		}
		p := a.dlg.value(a.dlg.field)
		*p += string(r)
		return nil
	}
}

func (a *App) authBackspace(*gocui.Gui, *gocui.View) error {
	if !a.dlg.open || !a.dlg.editing {
		return nil
	}
	if p := a.dlg.value(a.dlg.field); len(*p) > 0 {
		*p = (*p)[:len(*p)-1]
	}
	return nil
}

func (a *App) authNextField() {
	s, ok := a.currentScheme()
	if !ok || !a.dlg.editing {
		return
	}
	fields := fieldsFor(schemeKind(s))
	for i, f := range fields {
		if f == a.dlg.field {
			a.dlg.field = fields[(i+1)%len(fields)]
			return
		}
	}
	a.dlg.field = fields[0]
}

func (a *App) clearAuth(*gocui.Gui, *gocui.View) error {
	s, ok := a.currentScheme()
	if !a.dlg.open || !ok {
		return nil
	}
	delete(a.dlg.store, s.Name)
	a.dlg.token, a.dlg.username, a.dlg.password, a.dlg.scope = "", "", "", ""
	a.dlg.err = ""
	a.dlg.editing = false
	return nil
}

func (a *App) submitAuth(*gocui.Gui, *gocui.View) error {
	s, ok := a.currentScheme()
	if !a.dlg.open || !ok {
		return nil
	}
	cred := credential{acquired: time.Now()}
	switch schemeKind(s) {
	case kindBearer, kindAPIKey:
		cred.token = strings.TrimSpace(a.dlg.token)
		if cred.token == "" {
			delete(a.dlg.store, s.Name)
			a.dlg.editing = false
			return nil
		}
		if s.Type == "http" {
			cred.tokenType = "Bearer"
		}
	case kindBasic:
		if strings.TrimSpace(a.dlg.username) == "" {
			a.dlg.err = "username is required"
			return nil
		}
		cred.token = base64.StdEncoding.EncodeToString([]byte(a.dlg.username + ":" + a.dlg.password))
		cred.tokenType = "Basic"
	case kindPassword:
		ctx, cancel := context.WithTimeout(context.Background(), tokenTimeout)
		defer cancel()
		tok, err := a.client.FetchOAuthPasswordToken(ctx, a.baseURL, httpclient.PasswordGrant{
			TokenURL: s.TokenURL,
			Username: a.dlg.username,
			Password: a.dlg.password,
			Scope:    a.dlg.scope,
		})
		if err != nil {
			a.logger.Warn("token request failed", "scheme", s.Name, "error", err)
			a.dlg.err = err.Error()
			return nil
		}
		cred.token, cred.tokenType = tok.AccessToken, tok.TokenType
		a.logger.Debug("token acquired", "scheme", s.Name, "token_url", s.TokenURL)
	default:
		a.dlg.err = "unsupported security scheme"
		return nil
	}
	a.dlg.store[s.Name] = cred
	a.dlg.token = cred.token
	a.dlg.editing = false
	a.dlg.err = ""
	return nil
}

func (a *App) loadAuthForm() {
	s, ok := a.currentScheme()
	if !ok {
		return
	}
	a.dlg.token = ""
	if st, ok := a.dlg.store[s.Name]; ok {
		a.dlg.token = st.token
	}
	if schemeKind(s) != kindPassword {
		a.dlg.username, a.dlg.password, a.dlg.scope = "", "", ""
	}
}

func (a *App) renderAuth() {
	if v, err := a.g.View("auth-schemes"); err == nil {
		v.Clear()
		for _, s := range a.sess.Security {
			status := "[ ]"
			if _, ok := a.dlg.store[s.Name]; ok {
				status = "[x]"
			}
			fmt.Fprintf(v, "%s %s\n", status, s.Name)
		}
		focusLine(v, a.dlg.selected)
	}

	v, err := a.g.View("auth-form")
	if err != nil {
		return
	}
	v.Clear()
	s, ok := a.currentScheme()
	if !ok {
		return
	}
	if a.dlg.err != "" {
		fmt.Fprintf(v, "%serror: %s%s\n\n", colorRed, a.dlg.err, colorReset)
	}
	fmt.Fprintf(v, "scheme: %s\n", s.Name)
	fmt.Fprintf(v, "type:   %s\n", strings.TrimSpace(s.Type+" "+s.Scheme))
	if s.Description != "" {
		fmt.Fprintf(v, "%s%s%s\n", colorDim, s.Description, colorReset)
	}
	fmt.Fprintln(v)

	switch schemeKind(s) {
	case kindBearer:
		fmt.Fprintf(v, "token: %s%s\n", fieldMarker(a.dlg.editing), a.shownToken())
		if info := auth.Inspect(a.dlg.token); info.JWT && !info.Expires.IsZero() {
			state := "valid"
			if info.Expired(time.Now()) {
				state = "expired"
			}
			fmt.Fprintf(v, "%sJWT expires %s (%s)%s\n", colorDim, info.Expires.Format(time.RFC3339), state, colorReset)
		}
	case kindAPIKey:
		fmt.Fprintf(v, "%s %q\n", s.In, s.ParamName)
		fmt.Fprintf(v, "key: %s%s\n", fieldMarker(a.dlg.editing), a.shownToken())
	case kindBasic:
		fmt.Fprintf(v, "username: %s%s\n", fieldMarker(a.isField(fieldUser)), a.dlg.username)
		fmt.Fprintf(v, "password: %s%s\n", fieldMarker(a.isField(fieldPass)), mask(a.dlg.password))
	case kindPassword:
		fmt.Fprintf(v, "OAuth2 password flow\ntokenUrl: %s\n\n", s.TokenURL)
		fmt.Fprintf(v, "username: %s%s\n", fieldMarker(a.isField(fieldUser)), a.dlg.username)
		fmt.Fprintf(v, "password: %s%s\n", fieldMarker(a.isField(fieldPass)), mask(a.dlg.password))
		fmt.Fprintf(v, "scope:    %s%s\n", fieldMarker(a.isField(fieldScope)), a.dlg.scope)
		if st, ok := a.dlg.store[s.Name]; ok {
			fmt.Fprintf(v, "\ntoken: %s (%s)\n", auth.Masked(st.token), st.acquired.Format(time.Kitchen))
		}
	default:
		fmt.Fprintln(v, "not supported: only bearer, basic, API key and OAuth2 password flows can be set here")
	}
}

// shownToken is the token being typed, or the stored one masked.
func (a *App) shownToken() string {
	if a.dlg.editing {
		return a.dlg.token
	}
	return auth.Masked(a.dlg.token)
}

func (a *App) isField(f authField) bool {
	return a.dlg.editing && a.dlg.field == f
}

func fieldMarker(active bool) string {
	if active {
		return "> "
	}
	return "  "
}

func mask(s string) string {
	return strings.Repeat("*", len(s))
}
