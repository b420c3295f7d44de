package demo

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/safehtml"
	"github.com/google/safehtml/template"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Alp4ka/gotable"
	"github.com/Alp4ka/gotable/internal/config"
)

const (
	SessionCookie = "gotable_session"
	UserHeader    = "X-User-ID"
)

var _pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
{{.Table}}
</body>
</html>
`))

type page struct {
	Title string
	Table safehtml.HTML
}

// Handler serves the events table.
type Handler struct {
	db       *gorm.DB
	view     *gotable.TableView
	sessions gotable.SessionStore
	profiles gotable.ProfileStore
	renderer gotable.HTMLRenderer
	table    config.TableConfig
	log      *slog.Logger
}

func NewHandler(
	db *gorm.DB,
	sessions gotable.SessionStore,
	renderer gotable.HTMLRenderer,
	table config.TableConfig,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		db:       db,
		view:     gotable.NewTableView(EventsTable, EventsTableID),
		sessions: sessions,
		profiles: gotable.NewGormProfileStore(db),
		renderer: renderer,
		table:    table,
		log:      log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := h.sessions.Open(ctx, h.sessionID(w, r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	req := gotable.NewHTTPRequest(r, session, userOf(r))
	c := gotable.NewController(h.view, NewEventSource(h.db), req,
		gotable.WithRowsPerPage(h.table.RowsPerPage),
		gotable.WithPaginator(h.table.PaginatorFactory()),
		gotable.WithProfileStore(h.profiles),
		gotable.WithRenderer(h.renderer),
		gotable.WithLogger(h.log),
	)

	resp, err := c.ProcessRequest()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if resp != nil {
		resp.ServeHTTP(w, r)
		return
	}

	table, err := c.RenderHTML(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err = _pageTemplate.Execute(w, page{Title: EventsTable.Meta().Title, Table: table}); err != nil {
		h.log.Error("write page", slog.Any("err", err))
	}
}

// sessionID returns the session id of the request cookie, issuing a new one
// when it is missing or malformed.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, gotable.ErrPageNotFound) {
		http.NotFound(w, r)
		return
	}

	h.log.Error("serve table", slog.String("path", r.URL.Path), slog.Any("err", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// userOf reads the user id header. Requests without one are anonymous.
func userOf(r *http.Request) *gotable.User {
	id, err := strconv.ParseUint(r.Header.Get(UserHeader), 10, 64)
	if err != nil || id == 0 {
		return &gotable.User{IsAnonymous: true}
	}

	return &gotable.User{ID: uint(id)}
}

// NewMux routes the demo endpoints.
func NewMux(events http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/events", events)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/events", http.StatusFound)
	})

	return mux
}
