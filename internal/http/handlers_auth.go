package http

import (
	"errors"
	"net/http"
	"strings"

	"walletlog/internal/api"
	"walletlog/internal/graphql"
	"walletlog/internal/log"
	"walletlog/internal/router"
)

const (
	msgServiceUnavailable = "The expense service is unavailable right now. Please try again."
	msgSessionFailed      = "Could not update your session. Please try again."
)

// apiFailure classifies an API error for a page. An expired or rejected
// token clears the session and redirects to the login page; in that case
// redirected is true and nothing else should be written.
func (s *Server) apiFailure(w http.ResponseWriter, r *http.Request, op string, err error) (status int, msg string, redirected bool) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	s.appMetrics.apiErrors.Add(1)

	if errors.Is(err, graphql.ErrUnauthorized) {
		logger.InfoContext(ctx, "API rejected session token",
			log.FieldComponent, log.ComponentAuth,
			log.FieldOperation, op,
			log.FieldError, err.Error())
		if lerr := s.sessions.Logout(ctx); lerr != nil {
			logger.WarnContext(ctx, "Session clear failed", log.FieldError, lerr.Error())
		}
		RedirectSeeOther(w, r, router.LoginPath)
		return 0, "", true
	}

	var re *graphql.ResponseError
	if errors.As(err, &re) {
		logger.InfoContext(ctx, "API rejected operation",
			log.FieldComponent, log.ComponentGraphQL,
			log.FieldOperation, op,
			log.FieldError, err.Error())
		return http.StatusUnprocessableEntity, strings.Join(re.Messages(), "; "), false
	}

	logger.ErrorContext(ctx, "API call failed",
		log.FieldComponent, log.ComponentGraphQL,
		log.FieldOperation, op,
		log.FieldError, err.Error())
	return http.StatusBadGateway, msgServiceUnavailable, false
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	s.NewPage(r, tmplLanding, "Welcome").Write(w, r)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead, http.MethodPost) {
		return
	}
	if r.Method != http.MethodPost {
		s.NewPage(r, tmplLogin, "Log in").Data(CredentialsForm{}).Write(w, r)
		return
	}
	if !ParseFormOrFail(w, r) {
		return
	}

	form := ParseCredentialsForm(r.PostForm)
	render := func(status int, msg string, errs FormErrors) {
		form.Password = ""
		s.NewPage(r, tmplLogin, "Log in").Status(status).Error(msg).FieldErrors(errs).Data(form).Write(w, r)
	}

	if errs := form.ValidateLogin(); errs.Any() {
		render(http.StatusUnprocessableEntity, "", errs)
		return
	}

	ctx, cancel := s.apiContext(r)
	defer cancel()
	creds, err := s.api.Login(ctx, form.Email, form.Password)
	if err != nil {
		status, msg, redirected := s.apiFailure(w, r, log.OpLogin, err)
		if !redirected {
			render(status, msg, nil)
		}
		return
	}

	s.startSession(w, r, log.OpLogin, creds.Token, creds.User.ID)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead, http.MethodPost) {
		return
	}
	if r.Method != http.MethodPost {
		s.NewPage(r, tmplRegister, "Register").Data(CredentialsForm{}).Write(w, r)
		return
	}
	if !ParseFormOrFail(w, r) {
		return
	}

	form := ParseCredentialsForm(r.PostForm)
	render := func(status int, msg string, errs FormErrors) {
		form.Password = ""
		s.NewPage(r, tmplRegister, "Register").Status(status).Error(msg).FieldErrors(errs).Data(form).Write(w, r)
	}

	if errs := form.ValidateRegistration(); errs.Any() {
		render(http.StatusUnprocessableEntity, "", errs)
		return
	}

	ctx, cancel := s.apiContext(r)
	defer cancel()
	creds, err := s.api.Register(ctx, api.Registration{Name: form.Name, Email: form.Email, Password: form.Password})
	if err != nil {
		status, msg, redirected := s.apiFailure(w, r, log.OpRegister, err)
		if !redirected {
			render(status, msg, nil)
		}
		return
	}

	s.startSession(w, r, log.OpRegister, creds.Token, creds.User.ID)
}

// startSession stores token and sends the browser to the dashboard.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, op, token, userID string) {
	ctx := r.Context()
	if err := s.sessions.Login(ctx, token); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Session store failed",
			log.FieldComponent, log.ComponentSession,
			log.FieldOperation, op,
			log.FieldError, err.Error())
		ErrorResponse(w, http.StatusInternalServerError, msgSessionFailed)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "User signed in",
		log.FieldComponent, log.ComponentAuth,
		log.FieldOperation, op,
		"user_id", userID)
	RedirectSeeOther(w, r, "/dashboard")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.sessions.Logout(ctx); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Session clear failed",
			log.FieldComponent, log.ComponentSession,
			log.FieldOperation, log.OpLogout,
			log.FieldError, err.Error())
		ErrorResponse(w, http.StatusInternalServerError, msgSessionFailed)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "User signed out",
		log.FieldComponent, log.ComponentAuth,
		log.FieldOperation, log.OpLogout)
	RedirectSeeOther(w, r, router.LoginPath)
}
