package stream

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrOpen           = errors.New("cannot open device")
	ErrCapture        = errors.New("cannot capture frame")
	ErrInvalidOptions = errors.New("invalid options")
)

// StatusError is returned by Upload when the collector answers with anything
// other than 200.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status code %d (%s)", e.StatusCode, http.StatusText(e.StatusCode))
}
