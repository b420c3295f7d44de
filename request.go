package gotable

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// User is the authenticated (or anonymous) user behind a request.
type User struct {
	ID          uint
	IsAnonymous bool
	Permissions []string
}

// HasPermission reports whether the user holds the named permission.
func (u *User) HasPermission(name string) bool {
	if u == nil || u.IsAnonymous {
		return false
	}

	return slices.Contains(u.Permissions, name)
}

// Request is the part of an inbound request the controller works with.
type Request interface {
	Context() context.Context
	Method() string
	// Query returns the URL query parameters.
	Query() url.Values
	// Form returns the POST body parameters. It is empty for other methods.
	Form() url.Values
	IsAjax() bool
	Session() Session
	User() *User
	Location() *time.Location
}

// HTTPRequest adapts *http.Request to Request.
type HTTPRequest struct {
	r        *http.Request
	session  Session
	user     *User
	location *time.Location
	form     url.Values
}

// NewHTTPRequest wraps r. The POST form is parsed eagerly; parse failures
// leave it empty.
func NewHTTPRequest(r *http.Request, session Session, user *User) *HTTPRequest {
	req := &HTTPRequest{
		r:       r,
		session: session,
		user:    user,
		form:    url.Values{},
	}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			req.form = r.PostForm
		}
	}

	return req
}

// WithLocation sets the time zone used by localized widgets.
func (r *HTTPRequest) WithLocation(loc *time.Location) *HTTPRequest {
	r.location = loc

	return r
}

// Context - implements Request.
func (r *HTTPRequest) Context() context.Context {
	return r.r.Context()
}

// Method - implements Request.
func (r *HTTPRequest) Method() string {
	return r.r.Method
}

// Query - implements Request.
func (r *HTTPRequest) Query() url.Values {
	return r.r.URL.Query()
}

// Form - implements Request.
func (r *HTTPRequest) Form() url.Values {
	return r.form
}

// IsAjax - implements Request.
func (r *HTTPRequest) IsAjax() bool {
	return strings.EqualFold(r.r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

// Session - implements Request.
func (r *HTTPRequest) Session() Session {
	return r.session
}

// User - implements Request.
func (r *HTTPRequest) User() *User {
	if r.user == nil {
		return &User{IsAnonymous: true}
	}

	return r.user
}

// Location - implements Request.
func (r *HTTPRequest) Location() *time.Location {
	if r.location == nil {
		return time.Local
	}

	return r.location
}

// HTTP returns the wrapped request.
func (r *HTTPRequest) HTTP() *http.Request {
	return r.r
}

var _ Request = (*HTTPRequest)(nil)
