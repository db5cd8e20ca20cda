// Package checker holds the source adapters behind a domain analysis.
//
// Each adapter answers one question about a single normalized domain and
// is safe for concurrent use:
//
//   - RegistryChecker parses WHOIS text into a camelCase field map.
//   - CertificateChecker handshakes on port 443, optionally with a browser
//     ClientHello profile, and reports the peer certificate together with
//     its chain verification result and TLS findings.
//   - ResolutionChecker resolves the first IPv4 address and geolocates it.
//   - GradeChecker asks the grading service for the first endpoint grade.
//   - AuditChecker launches a browser, runs one performance audit and
//     always terminates the browser before returning.
//
// Failures are returned as *report.SourceError so the orchestrator can
// classify them into the report's error taxonomy. NormalizeDomain reduces
// user input to the hostname every adapter receives.
package checker
