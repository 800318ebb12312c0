package middleware

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/sirupsen/logrus"
)

// Compress gzips responses of at least minSize bytes for clients that
// accept it.
func Compress(next http.Handler, minSize int) http.Handler {
	wrapper, err := gzhttp.NewWrapper(gzhttp.MinSize(minSize))
	if err != nil {
		logrus.WithError(err).Warn("Compress: falling back to default gzip settings")
		return gzhttp.GzipHandler(next)
	}
	return wrapper(next)
}
