package server

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RequestTime logs the handling time of every request.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.Infof("request time: %v %v: %v", r.Method, r.URL.Path, time.Since(start))
	})
}
