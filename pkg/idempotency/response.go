package idempotency

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HeaderPair is one response header line; order and duplicates are preserved.
type HeaderPair struct {
	Name  string `json:"name"`
	Value []byte `json:"value"`
}

// Response is a captured HTTP response that can be replayed byte for byte.
type Response struct {
	Status  int
	Headers []HeaderPair
	Body    []byte
}

func NewJSONResponse(status int, payload any) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal response body: %w", err)
	}
	return Response{
		Status: status,
		Headers: []HeaderPair{
			{Name: "Content-Type", Value: []byte("application/json")},
		},
		Body: body,
	}, nil
}

// Header returns the first value stored under name, matched case-insensitively.
func (r Response) Header(name string) ([]byte, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return nil, false
}

// Replay writes the captured response to w.
func (r Response) Replay(w http.ResponseWriter) error {
	for _, h := range r.Headers {
		w.Header().Add(h.Name, string(h.Value))
	}
	w.WriteHeader(r.Status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

func (r Response) validate() error {
	if r.Status < 100 || r.Status > 999 {
		return fmt.Errorf("%w: status %d out of range", ErrInvalidResponse, r.Status)
	}
	for _, h := range r.Headers {
		if strings.TrimSpace(h.Name) == "" {
			return fmt.Errorf("%w: empty header name", ErrInvalidResponse)
		}
	}
	return nil
}

func encodeHeaders(headers []HeaderPair) ([]byte, error) {
	if headers == nil {
		headers = []HeaderPair{}
	}
	return json.Marshal(headers)
}

func decodeHeaders(raw []byte) ([]HeaderPair, error) {
	var headers []HeaderPair
	if err := json.Unmarshal(raw, &headers); err != nil {
		return nil, err
	}
	return headers, nil
}
