package gotable

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Args returns query as a relative URL ("?..."), with key set to the
// concatenation of values. query itself is not modified.
//
// Example:
//
//	Args(url.Values{"search": {"foo"}}, "page", 2) // "?page=2&search=foo"
func Args(query url.Values, key string, values ...any) string {
	ret := make(url.Values, len(query)+1)
	for k, v := range query {
		ret[k] = slices.Clone(v)
	}

	var sb strings.Builder
	for _, v := range values {
		fmt.Fprint(&sb, v)
	}
	ret.Set(key, sb.String())

	return "?" + ret.Encode()
}
