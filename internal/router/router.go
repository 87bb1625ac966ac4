package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/authenticator"
	"github.com/patric-chuzhbe/tinyapp/internal/gzippedhttp"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/ownership"
	"github.com/patric-chuzhbe/tinyapp/internal/service"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
	"github.com/patric-chuzhbe/tinyapp/internal/views"
)

type urlsService interface {
	Register(ctx context.Context, email, password string) (*user.User, error)
	Login(ctx context.Context, email, password string) (*user.User, error)
	GetUser(ctx context.Context, userID string) (*user.User, error)
	ShortenURL(ctx context.Context, userID, longURL string) (models.URLRecord, error)
	GetUserURL(ctx context.Context, userID, short string) (models.URLRecord, error)
	UpdateURL(ctx context.Context, userID, short, longURL string) (models.URLRecord, error)
	DeleteURL(ctx context.Context, userID, short string) error
	GetUserURLs(ctx context.Context, userID string) (models.URLMap, error)
	Resolve(ctx context.Context, short string) (string, error)
	Ping(ctx context.Context) error
	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
	GetShortURL(short string) string
}

type trustedGuard interface {
	TrustedOnly(h http.Handler) http.Handler
}

// Router holds the HTTP handlers of tinyapp.
type Router struct {
	svc       urlsService
	auth      authenticator.Authenticator
	ipChecker trustedGuard
	validate  *validator.Validate
}

const (
	msgNotLoggedIn        = "Please log in or register first."
	msgMissingCredentials = "Email and password must not be empty."
	msgEmailTaken         = "This email is already registered."
	msgInvalidCredentials = "Email or password is incorrect."
	msgURLNotFound        = "This short URL does not exist."
	msgNotOwner           = "This short URL belongs to another user."
	msgMissingURL         = "Please enter a URL."
	msgInvalidURL         = "Please enter a valid http(s) URL."
	msgInternal           = "Something went wrong."
)

// writeServiceError maps service errors to the fixed status/message pairs.
// Validation problems are 400, authentication problems are 403, the rest is 500.
func writeServiceError(response http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotLoggedIn):
		views.RenderError(response, http.StatusForbidden, msgNotLoggedIn)
	case errors.Is(err, service.ErrInvalidCredentials):
		views.RenderError(response, http.StatusForbidden, msgInvalidCredentials)
	case errors.Is(err, service.ErrMissingCredentials):
		views.RenderError(response, http.StatusBadRequest, msgMissingCredentials)
	case errors.Is(err, service.ErrEmailTaken):
		views.RenderError(response, http.StatusBadRequest, msgEmailTaken)
	case errors.Is(err, service.ErrURLNotFound):
		views.RenderError(response, http.StatusBadRequest, msgURLNotFound)
	case errors.Is(err, service.ErrNotOwner):
		views.RenderError(response, http.StatusBadRequest, msgNotOwner)
	case errors.Is(err, service.ErrMissingURL):
		views.RenderError(response, http.StatusBadRequest, msgMissingURL)
	case errors.Is(err, service.ErrInvalidURL):
		views.RenderError(response, http.StatusBadRequest, msgInvalidURL)
	default:
		logger.Log.Errorw("Unexpected service error", zap.Error(err))
		views.RenderError(response, http.StatusInternalServerError, msgInternal)
	}
}

func (router *Router) currentUser(request *http.Request) (*user.User, error) {
	return router.svc.GetUser(request.Context(), auth.UserIDFromContext(request.Context()))
}

func (router *Router) parseCredentials(request *http.Request) (models.CredentialsForm, error) {
	if err := request.ParseForm(); err != nil {
		return models.CredentialsForm{}, service.ErrMissingCredentials
	}
	form := models.CredentialsForm{
		Email:    request.PostForm.Get("email"),
		Password: request.PostForm.Get("password"),
	}
	if err := router.validate.Struct(form); err != nil {
		return models.CredentialsForm{}, service.ErrMissingCredentials
	}

	return form, nil
}

func (router *Router) parseLongURL(request *http.Request) (models.LongURLForm, error) {
	if err := request.ParseForm(); err != nil {
		return models.LongURLForm{}, service.ErrMissingURL
	}
	form := models.LongURLForm{
		LongURL: request.PostForm.Get("longURL"),
	}
	if err := router.validate.Struct(form); err != nil {
		return models.LongURLForm{}, service.ErrMissingURL
	}

	return form, nil
}

// GetRoot sends logged-in users to their URL list and everyone else to the login page.
func (router *Router) GetRoot(response http.ResponseWriter, request *http.Request) {
	if _, err := router.currentUser(request); err != nil {
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}
	http.Redirect(response, request, "/urls", http.StatusFound)
}

// GetUrls renders the URL list of the logged-in user.
func (router *Router) GetUrls(response http.ResponseWriter, request *http.Request) {
	usr, err := router.currentUser(request)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	urls, err := router.svc.GetUserURLs(request.Context(), usr.ID)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	views.Render(response, http.StatusOK, views.PageURLsIndex, views.Page{
		User: usr,
		URLs: ownership.Sorted(urls),
	})
}

// GetUrlsjson returns the URLs of the logged-in user as a JSON object keyed by short code.
func (router *Router) GetUrlsjson(response http.ResponseWriter, request *http.Request) {
	urls, err := router.svc.GetUserURLs(request.Context(), auth.UserIDFromContext(request.Context()))
	if errors.Is(err, service.ErrNotLoggedIn) {
		http.Error(response, msgNotLoggedIn, http.StatusForbidden)
		return
	}
	if err != nil {
		logger.Log.Errorw("Error calling the `router.svc.GetUserURLs()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(response).Encode(urls); err != nil {
		logger.Log.Debugw("Error encoding the response", zap.Error(err))
	}
}

// GetUrlsnew renders the creation form, or redirects anonymous users to the login page.
func (router *Router) GetUrlsnew(response http.ResponseWriter, request *http.Request) {
	usr, err := router.currentUser(request)
	if errors.Is(err, service.ErrNotLoggedIn) {
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}
	if err != nil {
		writeServiceError(response, err)
		return
	}

	views.Render(response, http.StatusOK, views.PageURLsNew, views.Page{User: usr})
}

// PostUrls creates a short URL and redirects to its page.
func (router *Router) PostUrls(response http.ResponseWriter, request *http.Request) {
	usr, err := router.currentUser(request)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	form, err := router.parseLongURL(request)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	record, err := router.svc.ShortenURL(request.Context(), usr.ID, form.LongURL)
	if err != nil {
		writeServiceError(response, err)
		return
	}
	logger.AddRequestFields(request.Context(), "short_url", record.ShortURL)

	http.Redirect(response, request, "/urls/"+record.ShortURL, http.StatusFound)
}

// GetURL renders the show/edit page of a URL owned by the logged-in user.
func (router *Router) GetURL(response http.ResponseWriter, request *http.Request) {
	usr, err := router.currentUser(request)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	record, err := router.svc.GetUserURL(request.Context(), usr.ID, chi.URLParam(request, "shortURL"))
	if err != nil {
		writeServiceError(response, err)
		return
	}

	views.Render(response, http.StatusOK, views.PageURLsShow, views.Page{
		User:     usr,
		URL:      record,
		ShortURL: router.svc.GetShortURL(record.ShortURL),
	})
}

// PostURL points an owned short URL at a new long URL.
func (router *Router) PostURL(response http.ResponseWriter, request *http.Request) {
	usr, err := router.currentUser(request)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	form, err := router.parseLongURL(request)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	_, err = router.svc.UpdateURL(request.Context(), usr.ID, chi.URLParam(request, "shortURL"), form.LongURL)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

// PostURLDelete deletes an owned short URL.
func (router *Router) PostURLDelete(response http.ResponseWriter, request *http.Request) {
	usr, err := router.currentUser(request)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	err = router.svc.DeleteURL(request.Context(), usr.ID, chi.URLParam(request, "shortURL"))
	if err != nil {
		writeServiceError(response, err)
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

// GetRedirecttolongurl redirects anyone to the long URL behind a short code.
func (router *Router) GetRedirecttolongurl(response http.ResponseWriter, request *http.Request) {
	longURL, err := router.svc.Resolve(request.Context(), chi.URLParam(request, "shortURL"))
	if err != nil {
		writeServiceError(response, err)
		return
	}

	http.Redirect(response, request, longURL, http.StatusFound)
}

// GetRegister renders the registration form.
func (router *Router) GetRegister(response http.ResponseWriter, request *http.Request) {
	if _, err := router.currentUser(request); err == nil {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}

	views.Render(response, http.StatusOK, views.PageRegister, views.Page{})
}

// PostRegister creates a user, starts its session and redirects to the URL list.
func (router *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	form, err := router.parseCredentials(request)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	usr, err := router.svc.Register(request.Context(), form.Email, form.Password)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	router.startSessionAndRedirect(response, request, usr.ID)
}

// GetLogin renders the login form.
func (router *Router) GetLogin(response http.ResponseWriter, request *http.Request) {
	if _, err := router.currentUser(request); err == nil {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}

	views.Render(response, http.StatusOK, views.PageLogin, views.Page{})
}

// PostLogin checks the credentials, starts a session and redirects to the URL list.
func (router *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	form, err := router.parseCredentials(request)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	usr, err := router.svc.Login(request.Context(), form.Email, form.Password)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	router.startSessionAndRedirect(response, request, usr.ID)
}

func (router *Router) startSessionAndRedirect(response http.ResponseWriter, request *http.Request, userID string) {
	if err := router.auth.StartSession(response, userID); err != nil {
		logger.Log.Errorw("Error calling the `router.auth.StartSession()`", zap.Error(err))
		views.RenderError(response, http.StatusInternalServerError, msgInternal)
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

// PostLogout clears the session cookie.
func (router *Router) PostLogout(response http.ResponseWriter, request *http.Request) {
	router.auth.EndSession(response)
	http.Redirect(response, request, "/login", http.StatusFound)
}

// GetPing reports whether the storage is reachable.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.svc.Ping(request.Context()); err != nil {
		logger.Log.Errorw("Error calling the `router.svc.Ping()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetApiinternalstats returns the number of users and short URLs.
func (router *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.svc.GetInternalStats(request.Context())
	if err != nil {
		logger.Log.Errorw("Error calling the `router.svc.GetInternalStats()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(response).Encode(stats); err != nil {
		logger.Log.Debugw("Error encoding the response", zap.Error(err))
	}
}

func corsHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// New builds the tinyapp HTTP handler.
// The JSON endpoints answer cross-origin requests from allowedOrigins only;
// with no origins they stay same-origin.
func New(
	svc urlsService,
	theAuth authenticator.Authenticator,
	ipChecker trustedGuard,
	allowedOrigins []string,
) *chi.Mux {
	router := &Router{
		svc:       svc,
		auth:      theAuth,
		ipChecker: ipChecker,
		validate:  validator.New(),
	}

	mux := chi.NewRouter()
	mux.Use(logger.WithLoggingHTTPMiddleware)
	mux.Use(gzippedhttp.UngzipRequest)
	mux.Use(gzippedhttp.GzipResponse)
	mux.Use(theAuth.AuthenticateUser)

	mux.Get(`/`, router.GetRoot)

	mux.Get(`/urls`, router.GetUrls)
	mux.Post(`/urls`, router.PostUrls)
	mux.Get(`/urls/new`, router.GetUrlsnew)
	mux.Get(`/urls/{shortURL}`, router.GetURL)
	mux.Post(`/urls/{shortURL}`, router.PostURL)
	mux.Post(`/urls/{shortURL}/delete`, router.PostURLDelete)

	mux.Get(`/u/{shortURL}`, router.GetRedirecttolongurl)

	mux.Get(`/register`, router.GetRegister)
	mux.Post(`/register`, router.PostRegister)
	mux.Get(`/login`, router.GetLogin)
	mux.Post(`/login`, router.PostLogin)
	mux.Post(`/logout`, router.PostLogout)

	mux.Get(`/ping`, router.GetPing)

	mux.Group(func(r chi.Router) {
		if len(allowedOrigins) > 0 {
			r.Use(corsHandler(allowedOrigins))
		}
		r.Get(`/urls.json`, router.GetUrlsjson)
		r.With(ipChecker.TrustedOnly).Get(`/api/internal/stats`, router.GetApiinternalstats)
	})

	return mux
}
