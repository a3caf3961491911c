package utils

import "log/slog"

// ErrAttr attaches err to a structured log record under the "error" key.
func ErrAttr(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
