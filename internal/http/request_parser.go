// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"budget/internal/core"
)

const maxBodyBytes = 1 << 20

var errToBeforeFrom = errors.New("must not be before from")

// DecodeJSON reads one JSON value from the body into v. Unknown fields and
// trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// ParseDateParam reads an optional YYYY-MM-DD query parameter.
func ParseDateParam(query url.Values, key string) (core.Date, bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, false, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, false, core.Invalid(key, err)
	}
	return d, true, nil
}

// ParseFilter builds a transaction filter from from, to, type, category
// and q query parameters.
func ParseFilter(query url.Values) (core.Filter, error) {
	var f core.Filter
	var err error
	if f.From, _, err = ParseDateParam(query, "from"); err != nil {
		return core.Filter{}, err
	}
	if f.To, _, err = ParseDateParam(query, "to"); err != nil {
		return core.Filter{}, err
	}
	if t := strings.TrimSpace(query.Get("type")); t != "" {
		if f.Type, err = core.ParseTxType(t); err != nil {
			return core.Filter{}, err
		}
	}
	f.Category = sanitizeInput(query.Get("category"))
	f.Query = sanitizeInput(query.Get("q"))
	return f, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
