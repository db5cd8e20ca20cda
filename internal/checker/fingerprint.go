package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"

	utls "github.com/refraction-networking/utls"
)

// Profile selects the ClientHello presented during the certificate handshake.
// Some edge networks serve different chains to non-browser fingerprints.
type Profile string

const (
	ProfileGo      Profile = "go" // standard crypto/tls
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileRandom  Profile = "random"
)

// ParseProfile validates a profile name. Empty selects ProfileGo.
func ParseProfile(name string) (Profile, error) {
	switch p := Profile(name); p {
	case "":
		return ProfileGo, nil
	case ProfileGo, ProfileChrome, ProfileFirefox, ProfileSafari, ProfileRandom:
		return p, nil
	default:
		return "", fmt.Errorf("unknown tls fingerprint profile %q", name)
	}
}

// handshakeState is the subset of the negotiated connection the adapter reports.
type handshakeState struct {
	Version          uint16
	CipherSuite      uint16
	PeerCertificates []*x509.Certificate
}

// handshake runs a TLS client handshake over conn without verifying the peer.
// Trust is evaluated separately so invalid certificates can still be reported.
func handshake(ctx context.Context, conn net.Conn, serverName string, profile Profile) (*handshakeState, error) {
	if profile == ProfileGo || profile == "" {
		tlsConn := tls.Client(conn, &tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: true, // #nosec G402 -- the certificate is inspected, not trusted.
		})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, err
		}
		st := tlsConn.ConnectionState()
		return &handshakeState{Version: st.Version, CipherSuite: st.CipherSuite, PeerCertificates: st.PeerCertificates}, nil
	}

	var helloID utls.ClientHelloID
	switch profile {
	case ProfileChrome:
		helloID = utls.HelloChrome_Auto
	case ProfileFirefox:
		helloID = utls.HelloFirefox_Auto
	case ProfileSafari:
		helloID = utls.HelloIOS_Auto
	case ProfileRandom:
		helloID = utls.HelloRandomizedALPN
	default:
		return nil, fmt.Errorf("unknown tls fingerprint profile %q", profile)
	}

	uConn := utls.UClient(conn, &utls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: true, // #nosec G402 -- the certificate is inspected, not trusted.
	}, helloID)
	if err := uConn.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("utls handshake failed: %w", err)
	}
	st := uConn.ConnectionState()
	return &handshakeState{Version: st.Version, CipherSuite: st.CipherSuite, PeerCertificates: st.PeerCertificates}, nil
}
