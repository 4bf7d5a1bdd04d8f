// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/jushkitchen/jush/config"
	"github.com/jushkitchen/jush/pkg/validate"
)

// maxBodyBytes returns the configured request body size limit (default 1 MB).
func maxBodyBytes() int64 {
	n, err := strconv.ParseInt(config.Get("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil || n <= 0 {
		return 1 << 20
	}
	return n
}

// ErrEmptyBody is returned when the request carries no JSON document at all.
var ErrEmptyBody = errors.New("request body is empty")

// JSON decodes r.Body as JSON into dest and runs validation.
// Returns (errs, nil) when there are validation failures.
// Returns (nil, err) when the body is missing, malformed or too large.
func JSON(r *http.Request, dest any) (errs map[string]string, err error) {
	if err = Decode(r, dest); err != nil {
		return nil, err
	}

	errs = validate.Struct(dest)
	if validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}

// Decode only decodes; handlers that produce their own validation messages
// use it and validate afterwards.
func Decode(r *http.Request, dest any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return ErrEmptyBody
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
