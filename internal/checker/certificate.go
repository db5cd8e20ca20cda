package checker

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha1" // #nosec G505 -- SHA-1 fingerprints are displayed, not used for security.
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	consts "github.com/khanhnv2901/domain-insight/internal/shared/constants"
)

// certificateErrorMessage is reported for every connection-level failure.
const certificateErrorMessage = "SSL Certificate Error"

// certTimeLayout matches the validity format browsers and Node display.
const certTimeLayout = "Jan _2 15:04:05 2006 GMT"

// DialFunc opens the raw TCP connection used for the handshake.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// CertificateChecker fetches the peer certificate served on port 443. It
// never aborts on trust failures: untrusted and self-signed certificates are
// reported with Authorized=false.
type CertificateChecker struct {
	Timeout time.Duration
	Port    string
	Profile Profile
	Dial    DialFunc
	Roots   *x509.CertPool // nil uses the system pool
	Now     func() time.Time
}

// Inspect connects to domain, completes a handshake, and describes the leaf certificate.
func (c *CertificateChecker) Inspect(ctx context.Context, domain string) (*report.Certificate, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	port := c.Port
	if port == "" {
		port = consts.HTTPSPort
	}
	dial := c.Dial
	if dial == nil {
		dialer := &net.Dialer{Timeout: c.Timeout}
		dial = dialer.DialContext
	}

	conn, err := dial(ctx, "tcp", net.JoinHostPort(domain, port))
	if err != nil {
		return nil, report.NewSourceError(report.KindConnectionError, certificateErrorMessage, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	state, err := handshake(ctx, conn, domain, c.Profile)
	if err != nil {
		return nil, report.NewSourceError(report.KindConnectionError, certificateErrorMessage, err)
	}
	if len(state.PeerCertificates) == 0 {
		return nil, report.NewSourceError(report.KindConnectionError, certificateErrorMessage, fmt.Errorf("peer presented no certificate"))
	}

	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	return c.describe(domain, state, now), nil
}

func (c *CertificateChecker) describe(domain string, state *handshakeState, now time.Time) *report.Certificate {
	leaf := state.PeerCertificates[0]
	sha1Sum := sha1.Sum(leaf.Raw) // #nosec G401
	sha256Sum := sha256.Sum256(leaf.Raw)

	cert := &report.Certificate{
		Subject:            distinguishedName(leaf.Subject),
		Issuer:             distinguishedName(leaf.Issuer),
		SubjectAltName:     subjectAltName(leaf),
		ValidFrom:          leaf.NotBefore.UTC().Format(certTimeLayout),
		ValidTo:            leaf.NotAfter.UTC().Format(certTimeLayout),
		SerialNumber:       strings.ToUpper(leaf.SerialNumber.Text(16)),
		Fingerprint:        colonHex(sha1Sum[:]),
		Fingerprint256:     colonHex(sha256Sum[:]),
		Bits:               keyBits(leaf),
		SignatureAlgorithm: leaf.SignatureAlgorithm.String(),
		SelfSigned:         leaf.Subject.String() == leaf.Issuer.String(),
		DaysUntilExpiry:    int(leaf.NotAfter.Sub(now).Hours() / 24),
		TLSVersion:         tlsVersionString(state.Version),
		CipherSuite:        cipherSuiteString(state.CipherSuite),
	}

	intermediates := x509.NewCertPool()
	for _, ic := range state.PeerCertificates[1:] {
		intermediates.AddCert(ic)
	}
	_, verifyErr := leaf.Verify(x509.VerifyOptions{
		DNSName:       domain,
		Roots:         c.Roots,
		Intermediates: intermediates,
		CurrentTime:   now,
	})
	cert.Authorized = verifyErr == nil
	if verifyErr != nil {
		cert.AuthorizationError = verifyErr.Error()
	}

	cert.Issues = assessCertificate(state, cert, now, leaf.NotAfter)
	if issue := keySizeIssue(leaf.PublicKeyAlgorithm.String(), cert.Bits); issue != "" {
		cert.Issues = append(cert.Issues, issue)
	}
	return cert
}

func distinguishedName(name pkix.Name) report.DistinguishedName {
	dn := report.DistinguishedName{}
	set := func(key string, values []string) {
		if len(values) > 0 {
			dn[key] = strings.Join(values, ", ")
		}
	}
	if name.CommonName != "" {
		dn["CN"] = name.CommonName
	}
	set("O", name.Organization)
	set("OU", name.OrganizationalUnit)
	set("C", name.Country)
	set("ST", name.Province)
	set("L", name.Locality)
	return dn
}

func subjectAltName(cert *x509.Certificate) string {
	names := make([]string, 0, len(cert.DNSNames)+len(cert.IPAddresses))
	for _, dns := range cert.DNSNames {
		names = append(names, "DNS:"+dns)
	}
	for _, ip := range cert.IPAddresses {
		names = append(names, "IP Address:"+ip.String())
	}
	return strings.Join(names, ", ")
}

func keyBits(cert *x509.Certificate) int {
	switch key := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return key.N.BitLen()
	case *ecdsa.PublicKey:
		return key.Curve.Params().BitSize
	case ed25519.PublicKey:
		return 256
	}
	return 0
}

func colonHex(sum []byte) string {
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}
