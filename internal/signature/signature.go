// Package signature issues signing certificates: the metadata bound to a
// signature at submission time so the signed record can be audited later.
package signature

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"funding-apply/internal/common/httpclient"
	"funding-apply/internal/common/logger"

	"github.com/google/uuid"
)

// IPUnavailable is recorded when the public IP lookup fails. Certificate
// issuance never fails on a lookup error.
const IPUnavailable = "Unavailable"

// Certificate is attached to an application at submission time.
type Certificate struct {
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Timestamp time.Time `json:"timestamp"`
	SigningID string    `json:"signingId"`
}

// IPLookup resolves the applicant's public IP.
type IPLookup interface {
	PublicIP(ctx context.Context) (string, error)
}

// IpifyLookup queries a JSON what-is-my-ip endpoint.
type IpifyLookup struct {
	url    string
	client *httpclient.Client
}

func NewIpifyLookup(url string, client *httpclient.Client) *IpifyLookup {
	return &IpifyLookup{url: url, client: client}
}

func (l *IpifyLookup) PublicIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.IP, nil
}

// Service issues certificates.
type Service struct {
	lookup IPLookup
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(lookup IPLookup, log logger.Logger) *Service {
	return &Service{
		lookup: lookup,
		logger: log.WithFields(map[string]interface{}{"component": "signature"}),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Issue builds a certificate for the given user agent. The IP lookup is
// best effort: on failure the certificate carries IPUnavailable.
func (s *Service) Issue(ctx context.Context, userAgent string) Certificate {
	ip := IPUnavailable
	if resolved, err := s.lookup.PublicIP(ctx); err != nil {
		s.logger.Warn("public ip lookup failed", map[string]interface{}{
			"error": err,
		})
	} else if strings.TrimSpace(resolved) != "" {
		ip = resolved
	}

	return Certificate{
		IP:        ip,
		UserAgent: userAgent,
		Timestamp: s.now().UTC(),
		SigningID: s.newID(),
	}
}
