package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"leaveportal/internal/domain/auth"
	"leaveportal/internal/domain/leave"
	"leaveportal/internal/platform/version"
	"leaveportal/internal/requestctx"
)

//go:embed templates/*.html assets/app.css
var templatesFS embed.FS

// NonceField is the hidden form field read by the SubmitGuard middleware.
const NonceField = "_nonce"

// Page is the data every template receives.
type Page struct {
	Title     string
	Active    string
	User      *auth.User
	Flash     *Flash
	Nonce     string
	Errors    map[string]string
	Form      map[string]string
	Data      any
	RequestID string
	AppName   string
	Year      int
}

// Field returns a submitted form value for re-rendering.
func (p Page) Field(name string) string {
	return p.Form[name]
}

// Error returns the validation message for a field.
func (p Page) Error(name string) string {
	return p.Errors[name]
}

func (p Page) Can(permission string) bool {
	return p.User != nil && p.User.Role.Can(permission)
}

type Renderer struct {
	pages map[string]*template.Template
	now   func() time.Time
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return leave.FormatDate(t)
	},
	"datetime": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
	"days": func(d decimal.Decimal) string {
		return d.StringFixedBank(1)
	},
	"lower": strings.ToLower,
	"statusClass": func(s leave.Status) string {
		return "status-" + strings.ToLower(string(s))
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
	"dict": func(pairs ...any) (map[string]any, error) {
		if len(pairs)%2 != 0 {
			return nil, fmt.Errorf("dict: odd number of arguments")
		}
		out := make(map[string]any, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			key, ok := pairs[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
			}
			out[key] = pairs[i+1]
		}
		return out, nil
	},
	"pageHref": pageHref,
}

// pageHref links to page n of a listing, keeping its other query parameters.
func pageHref(path, query string, n int) string {
	values, _ := url.ParseQuery(query)
	if values == nil {
		values = url.Values{}
	}
	values.Set("page", strconv.Itoa(n))
	return path + "?" + values.Encode()
}

// NewRenderer parses every page template together with the shared layout
// and partials.
func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		base := strings.TrimSuffix(strings.TrimPrefix(name, "templates/"), ".html")
		if base == "layout" || base == "partials" {
			continue
		}
		tmpl, err := template.New(base).Funcs(templateFuncs).ParseFS(templatesFS, "templates/layout.html", "templates/partials.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", base, err)
		}
		pages[base] = tmpl
	}
	return &Renderer{pages: pages, now: time.Now}, nil
}

// Render executes page name inside the layout and writes it with status.
func (rn *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	tmpl, ok := rn.pages[name]
	if !ok {
		slog.Error("unknown template", "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if page.User == nil {
		if user, ok := CurrentUser(r.Context()); ok {
			page.User = &user
		}
	}
	if flash := popFlash(w, r); page.Flash == nil {
		page.Flash = flash
	}
	if page.Nonce == "" {
		page.Nonce = uuid.NewString()
	}
	page.RequestID = requestctx.GetRequestID(r.Context())
	page.AppName = version.Application
	page.Year = rn.now().Year()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		slog.Error("render template", "name", name, "err", err, "requestId", page.RequestID)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// AppCSS serves the embedded stylesheet.
func AppCSS(w http.ResponseWriter, r *http.Request) {
	data, err := templatesFS.ReadFile("assets/app.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

// Attachment streams body as a download named fileName.
func Attachment(w http.ResponseWriter, contentType, fileName string, body io.Reader) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("write attachment", "file", fileName, "err", err)
	}
}

// Redirect sends a 303 so a form POST is followed by a GET.
func Redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// FormValues copies the submitted fields for re-rendering, leaving out
// secrets. The last value wins so a checked box overrides its hidden default.
func FormValues(r *http.Request) map[string]string {
	out := map[string]string{}
	for key, values := range r.Form {
		if len(values) == 0 || key == NonceField || strings.Contains(strings.ToLower(key), "password") {
			continue
		}
		out[key] = values[len(values)-1]
	}
	return out
}
