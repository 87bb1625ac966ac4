// Package views renders the HTML pages of tinyapp from embedded templates.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

const (
	PageURLsIndex = "urls_index"
	PageURLsNew   = "urls_new"
	PageURLsShow  = "urls_show"
	PageRegister  = "register"
	PageLogin     = "login"
	pageError     = "error"
)

// Page is the data every page template receives.
type Page struct {
	User     *user.User
	URLs     []models.URLRecord
	URL      models.URLRecord
	ShortURL string
}

type errorPage struct {
	Status     int
	StatusText string
	Message    string
}

func execute(name string, data interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	if err := templates.ExecuteTemplate(&buffer, name, data); err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

// Render writes the named page with the given status.
// The page is rendered completely before anything is sent.
func Render(response http.ResponseWriter, status int, name string, data Page) {
	body, err := execute(name, data)
	if err != nil {
		logger.Log.Errorw("Error rendering the page", "page", name, zap.Error(err))
		RenderError(response, http.StatusInternalServerError, "Something went wrong.")
		return
	}

	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(status)
	_, _ = response.Write(body)
}

// RenderError writes the static error page.
func RenderError(response http.ResponseWriter, status int, message string) {
	body, err := execute(pageError, errorPage{
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    message,
	})
	if err != nil {
		logger.Log.Errorw("Error rendering the error page", zap.Error(err))
		http.Error(response, message, status)
		return
	}

	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(status)
	_, _ = response.Write(body)
}
