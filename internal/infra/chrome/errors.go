package chrome

import (
	"context"
	"errors"
	"strings"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("chrome pool closed")

// ErrPoolDisabled is returned by NewPool when chrome_pool_size is zero.
var ErrPoolDisabled = errors.New("chrome pool disabled")

// ErrBrowserNotRunning is returned by Acquire after a failed Restart left the
// pool without a browser. A later successful Restart recovers it.
var ErrBrowserNotRunning = errors.New("chrome browser not running")

var interruptedMarkers = []string{
	"target closed",
	"session closed",
	"websocket",
	"invalid context",
	"browser closed",
	"connection reset",
	"browser not running",
}

// IsSessionInterrupted reports whether err means the browser session went away
// mid-render, so a fresh session may succeed.
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range interruptedMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
