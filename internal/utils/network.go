package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetRealIP extracts the client IP address from the request, preferring
// proxy headers over the socket address: X-Real-IP first, then the
// first public entry of X-Forwarded-For, then gin's ClientIP fallback.
func GetRealIP(c *gin.Context) string {
	realIP := strings.TrimSpace(c.Request.Header.Get("X-Real-IP"))
	if realIP != "" && isValidIP(realIP) && !isPrivateIP(net.ParseIP(realIP)) {
		return realIP
	}

	// X-Forwarded-For: client, proxy1, proxy2. Take the first public IP.
	forwarded := c.Request.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		for _, ipStr := range strings.Split(forwarded, ",") {
			clientIP := strings.TrimSpace(ipStr)
			if isValidIP(clientIP) {
				ip := net.ParseIP(clientIP)
				if !isPrivateIP(ip) && !isLocalhost(clientIP) {
					return clientIP
				}
			}
		}
	}

	return c.ClientIP()
}

func isValidIP(s string) bool {
	return net.ParseIP(s) != nil
}

func isLocalhost(s string) bool {
	return s == "127.0.0.1" || s == "::1" || s == "localhost"
}

func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
}
