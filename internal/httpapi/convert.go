package httpapi

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ptulin/folio/server/internal/folio/types"
)

func requestAccessInput(r types.ActionRequest) types.RequestAccessInput {
	return types.RequestAccessInput{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		Phone:         r.Phone,
		Message:       r.Message,
		RequestedCode: bool(r.RequestPassword),
	}
}

func verifyPasswordInput(r types.ActionRequest) types.VerifyPasswordInput {
	return types.VerifyPasswordInput{
		Password:  r.Password,
		Email:     r.Email,
		IP:        r.IP,
		UserAgent: r.UserAgent,
	}
}

func logAccessInput(r types.ActionRequest) types.LogAccessInput {
	return types.LogAccessInput{
		Code:      r.AccessCode(),
		Email:     r.Email,
		IP:        r.IP,
		UserAgent: r.UserAgent,
	}
}

func forgotPasswordInput(r types.ActionRequest) types.ForgotPasswordInput {
	return types.ForgotPasswordInput{
		Email:     r.Email,
		IP:        r.IP,
		UserAgent: r.UserAgent,
	}
}

// clientIP is the address recorded in the audit log: the first
// X-Forwarded-For hop, then the remote address. Callers control the header,
// so it must not feed the rate limiter.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// proxyList holds the reverse proxies whose X-Forwarded-For is believed.
type proxyList []netip.Prefix

func parseProxies(specs []string, log logrus.FieldLogger) proxyList {
	var out proxyList
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if strings.Contains(spec, "/") {
			p, err := netip.ParsePrefix(spec)
			if err != nil {
				log.WithError(err).Warnf("Ignoring trusted proxy %q", spec)
				continue
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(spec)
		if err != nil {
			log.WithError(err).Warnf("Ignoring trusted proxy %q", spec)
			continue
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

func (p proxyList) contains(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// limitIP is the address the rate limiter keys on. It is the TCP peer unless
// the peer is a trusted proxy, in which case X-Forwarded-For is walked from
// the right and the first untrusted hop wins.
func (p proxyList) limitIP(r *http.Request) string {
	peer := remoteHost(r)
	if !p.contains(peer) {
		return peer
	}
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" || p.contains(hop) {
			continue
		}
		if addr, err := netip.ParseAddr(hop); err == nil {
			return addr.Unmap().String()
		}
		return hop
	}
	return peer
}
