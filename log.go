package pdfocr

import "log/slog"

var nopLogger = slog.New(slog.DiscardHandler)

func orNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return nopLogger
	}
	return l
}
