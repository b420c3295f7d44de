package gotable

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoReverseMatch is returned when a named route cannot be reversed.
var ErrNoReverseMatch = errors.New("no reverse match")

// Router reverses named routes into URLs.
type Router interface {
	Reverse(name string, args ...any) (string, error)
}

// PatternRouter reverses routes declared as path patterns with "{param}"
// placeholders, e.g. "/events/{id}/". Placeholders are filled positionally.
type PatternRouter map[string]string

// Reverse - implements Router.
func (p PatternRouter) Reverse(name string, args ...any) (string, error) {
	pattern, ok := p[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown route '%s'", ErrNoReverseMatch, name)
	}

	var sb strings.Builder
	rest := pattern
	for i := 0; ; i++ {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if i != len(args) {
				return "", fmt.Errorf("%w: route '%s' takes %d arguments, got %d", ErrNoReverseMatch, name, i, len(args))
			}
			sb.WriteString(rest)

			break
		}

		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			return "", fmt.Errorf("%w: malformed route '%s'", ErrNoReverseMatch, name)
		}

		if i >= len(args) || args[i] == nil {
			return "", fmt.Errorf("%w: missing argument %d for route '%s'", ErrNoReverseMatch, i, name)
		}

		sb.WriteString(rest[:open])
		sb.WriteString(url.PathEscape(fmt.Sprint(args[i])))
		rest = rest[open+closing+1:]
	}

	return sb.String(), nil
}

var _ Router = PatternRouter(nil)
