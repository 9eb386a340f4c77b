package core

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

type Params map[string]any

// Request describes one REST call before it reaches the transport.
// The query is encoded once by QueryString and the signature, when present,
// is appended to exactly that text.
type Request struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Query       Params            `json:"query,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Weight      int               `json:"weight"`
	RequireAuth bool              `json:"require_auth"`
	Signature   string            `json:"-"`
}

func NewRequest(method, path string) *Request {
	return &Request{
		Method:  method,
		Path:    path,
		Query:   make(Params),
		Headers: make(map[string]string),
		Weight:  1,
	}
}

// NewGet is shorthand for NewRequest(http.MethodGet, path).
func NewGet(path string) *Request {
	return NewRequest(http.MethodGet, path)
}

func (r *Request) SetQuery(key string, value any) *Request {
	if r.Query == nil {
		r.Query = make(Params)
	}
	r.Query[key] = value
	return r
}

func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

func (r *Request) SetWeight(weight int) *Request {
	r.Weight = weight
	return r
}

func (r *Request) SetRequireAuth(require bool) *Request {
	r.RequireAuth = require
	return r
}

func (r *Request) SetQueryParams(params Params) *Request {
	if r.Query == nil {
		r.Query = make(Params)
	}
	maps.Copy(r.Query, params)
	return r
}

// SetSignature stores the hex signature appended by URL.
func (r *Request) SetSignature(sig string) *Request {
	r.Signature = sig
	return r
}

// QueryString returns the canonical query text: keys sorted, values
// percent-encoded. Signing and transmission both use this text.
func (r *Request) QueryString() string {
	if len(r.Query) == 0 {
		return ""
	}
	var b strings.Builder
	for i, key := range slices.Sorted(maps.Keys(r.Query)) {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(fmt.Sprint(r.Query[key])))
	}
	return b.String()
}

// URL joins base, path, the canonical query and the signature.
func (r *Request) URL(base string) string {
	u := strings.TrimRight(base, "/") + r.Path
	q := r.QueryString()
	if r.Signature != "" {
		if q != "" {
			q += "&"
		}
		q += "signature=" + r.Signature
	}
	if q == "" {
		return u
	}
	return u + "?" + q
}
