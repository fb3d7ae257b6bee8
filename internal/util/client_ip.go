package util

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller IP used for rate-limit keys. The forwarded
// header is only honored when trustForwarded is set (i.e. the app sits
// behind a reverse proxy the operator controls).
func ClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		forwarded := r.Header.Get("X-Forwarded-For")
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			if ip := net.ParseIP(first); ip != nil {
				return ip.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
