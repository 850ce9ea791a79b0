package middleware

import (
	"net/http"

	"github.com/mssola/useragent"

	"charak/pkg/requestcontext"
)

// DeviceMetadata parses the User-Agent and stores the device profile in
// the request context. Custody and purge audit entries use it to record
// which kind of device acted.
func DeviceMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.UserAgent()
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		ua := useragent.New(raw)
		browser, _ := ua.Browser()
		device := requestcontext.Device{
			Platform: ua.Platform(),
			OS:       ua.OS(),
			Browser:  browser,
			Mobile:   ua.Mobile(),
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithDeviceInfo(r.Context(), device)))
	})
}
