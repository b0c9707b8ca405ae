package trading

import (
	"errors"
	"fmt"
)

// TimeoutError signals a transport-level timeout talking to the
// exchange. The condition is expected to be transient: the caller may
// retry within the same trade cycle or defer to the next one. The
// timeout threshold is adapter-specific.
type TimeoutError struct {
	Exchange string
	Op       string
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s: exchange timeout: %v", e.Exchange, e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// APIError signals any contract operation failure other than a timeout:
// malformed responses, authentication loss, exchange-side rejections,
// unexpected data shapes. It is not assumed transient; continued
// automated trading should be treated as unsafe and escalated toward an
// engine shutdown.
type APIError struct {
	Exchange string
	Op       string
	Reason   string
	Err      error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Exchange, e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Exchange, e.Op, e.Reason)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is (or wraps) a contract TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsAPIErr reports whether err is (or wraps) a contract APIError.
func IsAPIErr(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}
