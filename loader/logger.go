package loader

import "go.uber.org/zap"

var pkgLogger = zap.NewNop()

// Logger returns the package-wide logger used by loader instances that
// were not given one explicitly through Options.
func Logger() *zap.Logger { return pkgLogger }

// SetLogger installs the package-wide default logger. Passing nil resets
// it to a no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	pkgLogger = l
}
