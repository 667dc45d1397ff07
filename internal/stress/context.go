// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"context"

	"go.uber.org/zap"
)

type contextKey uint32

const loggerKey contextKey = 1

// WithLogger adds the given Logger to the context so that it can be
// retrieved with Logger.
func WithLogger(parent context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(parent, loggerKey, logger)
}

// Logger retrieves the logger associated with the context. If no logger is
// present in the context, a no-op logger is returned instead.
func Logger(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.NewNop()
}
