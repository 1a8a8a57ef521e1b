package validation

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ReadBody drains r. A body cut off by http.MaxBytesReader is reported as a
// validation issue; any other read failure is returned as is.
func ReadBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fail(fmt.Sprintf("request body must be at most %d bytes", tooLarge.Limit))
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
