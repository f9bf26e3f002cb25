package couch

import (
	"io"
)

// Param is one query parameter.
type Param struct {
	Key   string
	Value any
}

// Params is an ordered list of query parameters. Values may be scalars,
// slices (one pair per element) or structured values (sent as JSON text).
type Params []Param

// Add appends a parameter and keeps insertion order.
func (p *Params) Add(key string, value any) {
	*p = append(*p, Param{Key: key, Value: value})
}

// Set replaces the first parameter named key, or appends it.
func (p *Params) Set(key string, value any) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value

			return
		}
	}

	p.Add(key, value)
}

// Get returns the first value stored under key.
func (p Params) Get(key string) (any, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}

	return nil, false
}

// Body is a request payload: either JSONBody or StreamBody.
type Body interface {
	isBody()
}

// JSONBody is serialized to JSON and sent with Content-Type: application/json.
type JSONBody struct {
	Value any
}

func (JSONBody) isBody() {}

// StreamBody is sent unmodified. The Content-Type comes from the call headers.
//
// A Reader that is not an io.ReadSeeker is read fully into memory before the
// request is sent. Pass an *os.File or another io.ReadSeeker to stream large
// payloads; it is rewound when a transport retry resends the body.
type StreamBody struct {
	Reader io.Reader
}

func (StreamBody) isBody() {}

// CallParams are the optional parts of a generic call made with Do.
type CallParams struct {
	Query   Params
	Body    Body
	Headers map[string]string
	// Debug logs the request before it is sent.
	Debug bool
}
