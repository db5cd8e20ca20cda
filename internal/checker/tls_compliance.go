package checker

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	consts "github.com/khanhnv2901/domain-insight/internal/shared/constants"
)

// versionSSL30 represents the legacy SSL 3.0 protocol version (0x0300).
// Defined locally so we can report SSL 3.0 without referencing the
// deprecated tls.VersionSSL30 symbol.
const versionSSL30 uint16 = 0x0300

// Weak cipher suites that should not be used (PCI DSS 4.1)
var weakCipherSuites = map[uint16]string{
	tls.TLS_RSA_WITH_RC4_128_SHA:                "TLS_RSA_WITH_RC4_128_SHA",
	tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA:           "TLS_RSA_WITH_3DES_EDE_CBC_SHA",
	tls.TLS_RSA_WITH_AES_128_CBC_SHA:            "TLS_RSA_WITH_AES_128_CBC_SHA",
	tls.TLS_RSA_WITH_AES_256_CBC_SHA:            "TLS_RSA_WITH_AES_256_CBC_SHA",
	tls.TLS_ECDHE_ECDSA_WITH_RC4_128_SHA:        "TLS_ECDHE_ECDSA_WITH_RC4_128_SHA",
	tls.TLS_ECDHE_RSA_WITH_RC4_128_SHA:          "TLS_ECDHE_RSA_WITH_RC4_128_SHA",
	tls.TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA:     "TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA",
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256: "TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256",
}

// assessCertificate lists protocol and certificate findings worth surfacing
// next to the certificate itself. Order follows severity.
func assessCertificate(state *handshakeState, cert *report.Certificate, now time.Time, notAfter time.Time) []string {
	var issues []string

	if state.Version < tls.VersionTLS12 {
		issues = append(issues, fmt.Sprintf("insecure protocol %s (TLS 1.2 or newer required)", tlsVersionString(state.Version)))
	}
	if name, weak := weakCipherSuites[state.CipherSuite]; weak {
		issues = append(issues, fmt.Sprintf("weak cipher suite %s", name))
	}
	if state.Version < tls.VersionTLS13 && !strings.Contains(cipherSuiteString(state.CipherSuite), "ECDHE") {
		issues = append(issues, "cipher suite lacks forward secrecy")
	}

	switch {
	case now.After(notAfter):
		issues = append(issues, "certificate has expired")
	case notAfter.Sub(now) < consts.TLSSoonExpiryWindow:
		issues = append(issues, fmt.Sprintf("certificate expires in %d days", cert.DaysUntilExpiry))
	}

	if cert.SelfSigned {
		issues = append(issues, "self-signed certificate")
	}
	if !cert.Authorized && cert.AuthorizationError != "" {
		issues = append(issues, "untrusted chain: "+cert.AuthorizationError)
	}

	sigAlg := strings.ToLower(cert.SignatureAlgorithm)
	if strings.Contains(sigAlg, "md5") || strings.Contains(sigAlg, "sha1") {
		issues = append(issues, fmt.Sprintf("weak signature algorithm %s", cert.SignatureAlgorithm))
	}

	return issues
}

// keySizeIssue reports keys below the PCI DSS minimums (2048 RSA, 224 ECC).
func keySizeIssue(publicKeyAlg string, bits int) string {
	switch {
	case bits <= 0:
		return ""
	case strings.Contains(publicKeyAlg, "RSA") && bits < 2048:
		return fmt.Sprintf("RSA key too small: %d bits", bits)
	case strings.Contains(publicKeyAlg, "ECDSA") && bits < 224:
		return fmt.Sprintf("ECC key too small: %d bits", bits)
	}
	return ""
}

// tlsVersionString converts TLS version constant to string
func tlsVersionString(version uint16) string {
	switch version {
	case versionSSL30:
		return "SSL 3.0"
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}

// cipherSuiteString converts cipher suite constant to string
func cipherSuiteString(suite uint16) string {
	if name, ok := weakCipherSuites[suite]; ok {
		return name
	}
	if name := tls.CipherSuiteName(suite); name != "" {
		return name
	}
	return fmt.Sprintf("Unknown (0x%04x)", suite)
}
