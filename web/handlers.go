package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/pmsworks/pms"
	"github.com/pmsworks/pms/social"
	"golang.org/x/text/language"
)

const clientCookieTTL = 365 * 24 * time.Hour

// ErrInteractiveDisabled is returned by the provider routes when no
// interactive flow is configured.
var ErrInteractiveDisabled = goerrors.New("interactive sign-in is not configured", goerrors.CategoryNotFound).
	WithTextCode("interactive_disabled").
	WithCode(goerrors.CodeNotFound)

// InteractiveFlow is a provider sign-in that starts with a redirect.
type InteractiveFlow interface {
	pms.InteractiveProvider
	Begin(from string) (string, error)
	Peek(state string) (*social.OAuthState, error)
}

// Handlers holds the request handlers and what they share across clients.
type Handlers struct {
	directory   *pms.Directory
	tokens      pms.TokenService
	board       *pms.Board
	flow        InteractiveFlow
	latches     *ClientLatches
	limiter     *RateLimiter
	metrics     *Metrics
	logger      pms.Logger
	timeout     time.Duration
	cookies     cookieJar
	defaultLang language.Tag
	debug       bool
}

// clientScope is the view of one client for the length of a request.
type clientScope struct {
	id       string
	client   *pms.AuthClient
	observer *pms.SessionObserver
	session  *pms.Session
	loc      *pms.Localizer

	mu      sync.Mutex
	changed bool
	latest  *pms.Session
}

func (s *clientScope) close() {
	s.observer.Close()
}

func (s *clientScope) onChange(next *pms.Session) {
	s.mu.Lock()
	s.changed = true
	s.latest = next
	s.mu.Unlock()
}

// open restores the client's session and waits for the observer to leave
// the determining state, so nothing renders before the session is known.
func (h *Handlers) open(c router.Context) (*clientScope, error) {
	opts := []pms.ClientOption{
		pms.WithRestoredSession(h.restore(c)),
		pms.WithClientLogger(h.logger),
		pms.WithActivitySink(h.metrics),
	}
	if h.flow != nil {
		opts = append(opts, pms.WithInteractiveProvider(h.flow))
	}

	scope := &clientScope{
		id:     h.clientID(c),
		client: pms.NewAuthClient(h.directory, opts...),
		loc:    h.localizer(c),
	}
	scope.observer = pms.NewSessionObserver(scope.client)

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	session, err := scope.observer.Wait(ctx)
	if err != nil {
		scope.observer.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "session state not determined").
			WithCode(goerrors.CodeInternal)
	}
	scope.session = session
	scope.observer.OnChange(scope.onChange)

	return scope, nil
}

// commit writes the session cookie if the session changed during the
// request. Cookies are only touched from the handler goroutine.
func (h *Handlers) commit(c router.Context, scope *clientScope) {
	scope.mu.Lock()
	changed, latest := scope.changed, scope.latest
	scope.mu.Unlock()

	if !changed {
		return
	}

	if !latest.Present() {
		h.cookies.clear(c, CookieSession)
		return
	}

	token, err := h.tokens.Generate(latest)
	if err != nil {
		h.logger.Error("failed to sign session", "error", err)
		h.cookies.clear(c, CookieSession)
		return
	}
	h.cookies.set(c, CookieSession, token, h.tokens.Expiration())
}

func (h *Handlers) restore(c router.Context) *pms.Session {
	raw := c.Cookies(CookieSession)
	if raw == "" {
		return nil
	}

	session, err := h.tokens.Validate(raw)
	if err != nil {
		h.logger.Debug("discarding session cookie", "error", err)
		h.cookies.clear(c, CookieSession)
		return nil
	}
	return session
}

func (h *Handlers) clientID(c router.Context) string {
	if raw := c.Cookies(CookieClient); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	h.cookies.set(c, CookieClient, id, clientCookieTTL)
	return id
}

// localizer resolves ?lang, then the language cookie, then Accept-Language.
// A valid ?lang is remembered in the language cookie.
func (h *Handlers) localizer(c router.Context) *pms.Localizer {
	if tag, ok := pms.ParseLanguage(c.Query("lang")); ok {
		h.cookies.set(c, CookieLang, tag.String(), clientCookieTTL)
		return pms.NewLocalizer(tag)
	}

	accept, _ := c.Locals(localsAcceptLanguage).(string)
	return h.resolveLocalizer("", c.Cookies(CookieLang), accept)
}

func (h *Handlers) resolveLocalizer(query, cookie, accept string) *pms.Localizer {
	for _, raw := range []string{query, cookie, accept} {
		if raw == "" {
			continue
		}
		if tag, ok := pms.ParseLanguage(raw); ok {
			return pms.NewLocalizer(tag)
		}
	}
	return pms.NewLocalizer(h.defaultLang)
}

func (h *Handlers) newForm(scope *clientScope, nav pms.Navigator) *pms.CredentialForm {
	return pms.NewCredentialForm(scope.client, nav,
		pms.WithLatch(h.latches.For(scope.id)),
		pms.WithProviderTimeout(h.timeout),
		pms.WithFormLogger(h.logger),
	)
}

func (h *Handlers) Health(c router.Context) error {
	return c.JSON(http.StatusOK, router.ViewContext{"ok": true})
}

// Home renders the board. It is readable without a session.
func (h *Handlers) Home(c router.Context) error {
	scope, err := h.open(c)
	if err != nil {
		return err
	}
	defer scope.close()

	state := consumeNavState(c, h.cookies)
	project, _ := h.board.Project(c.Query("project"))
	query := c.Query("q")

	projects := make([]projectView, 0)
	for _, p := range h.board.Projects() {
		projects = append(projects, projectView{
			ID:     p.ID,
			Name:   p.Name,
			Icon:   p.Icon(),
			Active: p.ID == project.ID,
		})
	}

	columns := make([]columnView, 0, len(pms.Columns))
	for _, col := range h.board.Columns(project.ID, query) {
		columns = append(columns, newColumnView(col))
	}

	data := router.ViewContext{
		"title":    project.Name,
		"project":  projectView{ID: project.ID, Name: project.Name, Icon: project.Icon()},
		"projects": projects,
		"columns":  columns,
		"query":    query,
		"from":     pms.SafeReturnPath(c.OriginalURL()),
		"notice":   notice(scope.loc, state),
	}
	if scope.session.Present() {
		data["user"] = newUserView(scope.session)
	}

	return c.Render(viewHome, h.viewData(scope.loc, data))
}

// TaskCreate is the guarded "new task" action.
func (h *Handlers) TaskCreate(c router.Context) error {
	return h.guarded(c, func(scope *clientScope, nav *cookieNavigator, from string) error {
		return nav.Navigate(from, pms.NavigateOptions{
			Replace: true,
			State:   &pms.NavigationState{Notice: pms.NoticeTaskCreateSoon},
		})
	})
}

// TaskAdd is the guarded "add task to column" action.
func (h *Handlers) TaskAdd(c router.Context) error {
	status, ok := pms.ParseStatus(c.Param("status"))
	if !ok {
		return c.Redirect(pms.RouteHome, http.StatusSeeOther)
	}

	return h.guarded(c, func(scope *clientScope, nav *cookieNavigator, from string) error {
		return nav.Navigate(from, pms.NavigateOptions{
			Replace: true,
			State: &pms.NavigationState{
				Notice: pms.NoticeTaskAddSoon,
				Detail: string(status),
			},
		})
	})
}

// Logout signs the client out and returns to the login view.
func (h *Handlers) Logout(c router.Context) error {
	return h.guarded(c, func(scope *clientScope, nav *cookieNavigator, _ string) error {
		if err := scope.client.SignOut(c.Context()); err != nil {
			return err
		}
		return nav.Navigate(pms.RouteLogin, pms.NavigateOptions{Replace: true})
	})
}

// guarded runs action through pms.Guard. The originating page travels in
// the "from" form field.
func (h *Handlers) guarded(c router.Context, action func(*clientScope, *cookieNavigator, string) error) error {
	scope, err := h.open(c)
	if err != nil {
		return err
	}
	defer scope.close()

	from := pms.SafeReturnPath(c.FormValue("from"))
	nav := newNavigator(c, h.cookies, from, nil)

	if err := pms.Guard(scope.session, nav, func() error {
		return action(scope, nav, from)
	}); err != nil {
		return err
	}
	h.commit(c, scope)

	if !scope.session.Present() {
		h.metrics.RecordGuardRedirect()
	}

	if !nav.Redirected() {
		return c.Redirect(from, http.StatusSeeOther)
	}
	return nav.Redirect()
}

func (h *Handlers) LoginShow(c router.Context) error {
	scope, err := h.open(c)
	if err != nil {
		return err
	}
	defer scope.close()

	if scope.session.Present() {
		return c.Redirect(pms.RouteHome, http.StatusFound)
	}

	state := h.arrivalState(c)
	form := h.newForm(scope, newNavigator(c, h.cookies, pms.RouteLogin, state))

	return h.renderLogin(c, scope, http.StatusOK, router.ViewContext{
		"from":   form.From(),
		"notice": notice(scope.loc, state),
	})
}

func (h *Handlers) LoginPost(c router.Context) error {
	return h.submit(c, viewLogin, pms.RouteLogin, func(ctx context.Context, form *pms.CredentialForm, creds pms.Credentials) error {
		return form.Login(ctx, creds)
	})
}

func (h *Handlers) SignupShow(c router.Context) error {
	scope, err := h.open(c)
	if err != nil {
		return err
	}
	defer scope.close()

	state := h.arrivalState(c)
	form := h.newForm(scope, newNavigator(c, h.cookies, pms.RouteSignup, state))

	return c.Render(viewSignup, h.viewData(scope.loc, router.ViewContext{
		"title": scope.loc.T(pms.LabelSignup),
		"from":  form.From(),
	}))
}

func (h *Handlers) SignupPost(c router.Context) error {
	return h.submit(c, viewSignup, pms.RouteSignup, func(ctx context.Context, form *pms.CredentialForm, creds pms.Credentials) error {
		return form.Signup(ctx, creds)
	})
}

// submit runs a credential form submission and either follows the form's
// navigation or re-renders view with the mapped message.
func (h *Handlers) submit(c router.Context, view, path string, run func(context.Context, *pms.CredentialForm, pms.Credentials) error) error {
	scope, err := h.open(c)
	if err != nil {
		return err
	}
	defer scope.close()

	creds := pms.Credentials{}
	if err := c.Bind(&creds); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid form payload").
			WithCode(goerrors.CodeBadRequest)
	}

	state := &pms.NavigationState{From: pms.SafeReturnPath(c.FormValue("from"))}
	nav := newNavigator(c, h.cookies, path, state)
	form := h.newForm(scope, nav)

	data := router.ViewContext{
		"from":  form.From(),
		"email": creds.Email,
	}

	if !h.limiter.Allow(c.IP()) {
		h.metrics.RecordRateLimited()
		data["error"] = scope.loc.T(pms.MsgTooManyAttempts)
		return h.renderForm(c, scope, view, http.StatusTooManyRequests, data)
	}

	err = run(c.Context(), form, creds)
	h.commit(c, scope)

	if err != nil {
		status := http.StatusOK
		switch {
		case goerrors.Is(err, pms.ErrBusy):
			h.metrics.RecordBusy()
			status = http.StatusConflict
		case pms.IsValidationError(err):
			status = http.StatusUnprocessableEntity
		}

		if h.debug {
			if meta := pms.ErrorMetadata(err); meta != nil {
				h.logger.Debug("submission failed", "view", view, "details", print.MaybePrettyJSON(meta))
			}
		}

		data["error"] = scope.loc.T(form.Error())
		return h.renderForm(c, scope, view, status, data)
	}

	return nav.Redirect()
}

// InteractiveBegin redirects to the provider consent screen.
func (h *Handlers) InteractiveBegin(c router.Context) error {
	if h.flow == nil {
		return ErrInteractiveDisabled
	}

	redirect, err := h.flow.Begin(c.Query("from"))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to start interactive sign-in").
			WithCode(goerrors.CodeInternal)
	}
	return c.Redirect(redirect, http.StatusFound)
}

// InteractiveCallback completes the provider sign-in. Failures, including
// the user declining consent, land back on the login view.
func (h *Handlers) InteractiveCallback(c router.Context) error {
	if h.flow == nil {
		return ErrInteractiveDisabled
	}

	scope, err := h.open(c)
	if err != nil {
		return err
	}
	defer scope.close()

	from := pms.RouteHome
	if state, err := h.flow.Peek(c.Query("state")); err == nil {
		from = state.From
	}

	nav := newNavigator(c, h.cookies, routeGoogleCallback, &pms.NavigationState{From: from})
	form := h.newForm(scope, nav)

	err = form.Interactive(c.Context(), pms.InteractiveProof{
		Provider: h.flow.Name(),
		Code:     c.Query("code"),
		State:    c.Query("state"),
		Error:    c.Query("error"),
	})
	h.commit(c, scope)

	if err != nil {
		return h.renderLogin(c, scope, http.StatusOK, router.ViewContext{
			"from":  form.From(),
			"error": scope.loc.T(form.Error()),
		})
	}
	return nav.Redirect()
}

// Fallback sends unknown paths to the board.
func (h *Handlers) Fallback(c router.Context) error {
	return c.Redirect(pms.RouteHome, http.StatusFound)
}

// arrivalState is the navigation state a view opened with: the one-shot
// cookie, or a ?from link between login and signup.
func (h *Handlers) arrivalState(c router.Context) *pms.NavigationState {
	if state := consumeNavState(c, h.cookies); state != nil {
		return state
	}
	if from := c.Query("from"); from != "" {
		return &pms.NavigationState{From: pms.SafeReturnPath(from)}
	}
	return nil
}

func (h *Handlers) renderForm(c router.Context, scope *clientScope, view string, status int, data router.ViewContext) error {
	if view == viewLogin {
		return h.renderLogin(c, scope, status, data)
	}
	data["title"] = scope.loc.T(pms.LabelSignup)
	return c.Status(status).Render(view, h.viewData(scope.loc, data))
}

func (h *Handlers) renderLogin(c router.Context, scope *clientScope, status int, data router.ViewContext) error {
	data["title"] = scope.loc.T(pms.LabelLogin)
	data["google"] = h.flow != nil
	return c.Status(status).Render(viewLogin, h.viewData(scope.loc, data))
}

// errorHandler is the fiber error handler. Errors that are not already
// categorized are reported as internal failures.
func (h *Handlers) errorHandler(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		var ferr *fiber.Error
		if goerrors.As(err, &ferr) {
			richErr = goerrors.New(ferr.Message, categoryForStatus(ferr.Code)).WithCode(ferr.Code)
		} else {
			richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
				WithCode(goerrors.CodeInternal)
		}
	}

	code := richErr.Code
	if code == 0 {
		code = goerrors.CodeInternal
	}

	h.logger.Error("request failed",
		"path", c.Path(),
		"status", code,
		"error", richErr.Message,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	loc := h.resolveLocalizer(c.Query("lang"), c.Cookies(CookieLang), c.Get(fiber.HeaderAcceptLanguage))
	message := loc.T(pms.LabelServerError)
	if code < http.StatusInternalServerError {
		message = richErr.Message
	}

	if rErr := c.Status(code).Render(viewError, h.viewData(loc, router.ViewContext{
		"title":   "PMS",
		"message": message,
	})); rErr != nil {
		return c.Status(code).SendString(message)
	}
	return nil
}

func categoryForStatus(status int) goerrors.Category {
	switch {
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusMethodNotAllowed:
		return goerrors.CategoryMethodNotAllowed
	case status < http.StatusInternalServerError:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryInternal
	}
}
