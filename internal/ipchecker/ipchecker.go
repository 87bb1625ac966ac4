// Package ipchecker guards internal endpoints by the client address.
// Only clients inside the configured trusted subnet get through.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
)

// IPChecker extracts a client's IP address from a request and
// tells whether it belongs to the trusted subnet.
type IPChecker struct {
	trustedSubnet     *net.IPNet
	trustProxyHeaders bool
}

type initOptions struct {
	trustProxyHeaders bool
}

type InitOption func(*initOptions)

// WithProxyHeaders makes the checker read the client address from X-Real-IP
// and X-Forwarded-For. Enable it only behind a proxy that overwrites them.
func WithProxyHeaders(value bool) InitOption {
	return func(options *initOptions) {
		options.trustProxyHeaders = value
	}
}

// New creates an IPChecker for a subnet in CIDR notation (e.g. "192.168.1.0/24").
// An empty trustedSubnet trusts nobody.
func New(trustedSubnet string, optionsProto ...InitOption) (*IPChecker, error) {
	options := &initOptions{
		trustProxyHeaders: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	result := &IPChecker{
		trustedSubnet:     nil,
		trustProxyHeaders: options.trustProxyHeaders,
	}
	if trustedSubnet == "" {
		return result, nil
	}

	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while `net.ParseCIDR()` calling: %w", err)
	}
	result.trustedSubnet = allowedNet

	return result, nil
}

// Check verifies whether clientIP belongs to the trusted subnet.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

// GetClientIP extracts the client's IP address from an HTTP request.
// Behind a trusted proxy it checks the "X-Real-IP" header, then the
// "X-Forwarded-For" header; otherwise only the request's RemoteAddr counts.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if checker.trustProxyHeaders {
		if ip := net.ParseIP(request.Header.Get("X-Real-IP")); ip != nil {
			return ip, nil
		}
		if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
			ips := strings.Split(xff, ",")
			return net.ParseIP(strings.TrimSpace(ips[0])), nil
		}
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/GetClientIP(): error while `net.SplitHostPort()` calling: %w", err)
	}
	return net.ParseIP(host), nil
}

// IsTrustedSubnetEmpty returns true if the IPChecker was initialized
// without a trusted subnet.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

// TrustedOnly answers 403 Forbidden to every client outside the trusted subnet.
func (checker *IPChecker) TrustedOnly(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if checker.IsTrustedSubnetEmpty() {
			response.WriteHeader(http.StatusForbidden)
			return
		}

		clientIP, err := checker.GetClientIP(request)
		if err != nil {
			logger.Log.Debugw("Unable to get the client IP", zap.Error(err))
			response.WriteHeader(http.StatusForbidden)
			return
		}

		if !checker.Check(clientIP) {
			response.WriteHeader(http.StatusForbidden)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
