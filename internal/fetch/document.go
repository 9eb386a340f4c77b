package fetch

import (
	"errors"

	"github.com/bytedance/sonic"
)

// numbers keeps integers such as millisecond timestamps exact.
var numbers = sonic.Config{UseNumber: true}.Froze()

// Document is a parsed JSON body. Numbers decode as json.Number.
type Document struct {
	raw    []byte
	value  any
	status int
}

// Parse decodes raw into a Document. An empty body is invalid JSON.
func Parse(raw []byte) (*Document, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty body")
	}
	var v any
	if err := numbers.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &Document{raw: raw, value: v}, nil
}

func (d *Document) Raw() []byte {
	return d.raw
}

func (d *Document) Value() any {
	return d.value
}

// StatusCode is the HTTP status of the response the document came from.
func (d *Document) StatusCode() int {
	return d.status
}

// Object returns the top-level JSON object, if the body is one.
func (d *Document) Object() (map[string]any, bool) {
	m, ok := d.value.(map[string]any)
	return m, ok
}

// Array returns the top-level JSON array, if the body is one.
func (d *Document) Array() ([]any, bool) {
	a, ok := d.value.([]any)
	return a, ok
}

// Decode unmarshals the raw body into v.
func (d *Document) Decode(v any) error {
	return sonic.Unmarshal(d.raw, v)
}
