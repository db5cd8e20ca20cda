package report

import "time"

// Unknown is the sentinel used for fields a source could not determine.
const Unknown = "Unknown"

// Slot names, in report order.
const (
	SlotRegistry    = "registry"
	SlotCertificate = "certificate"
	SlotResolution  = "resolution"
	SlotGrade       = "grade"
	SlotAudit       = "audit"
)

// SlotNames lists the fixed slot set of a CompositeReport.
var SlotNames = []string{SlotRegistry, SlotCertificate, SlotResolution, SlotGrade, SlotAudit}

// CompositeReport is the assembled result of one domain analysis. Every slot
// is always present, either ok or failed.
type CompositeReport struct {
	ID         string    `json:"id"`
	Domain     string    `json:"domain"`
	AnalyzedAt time.Time `json:"analyzedAt"`
	DurationMS int64     `json:"durationMs"`

	Registry    SourceResult[RegistryRecord] `json:"domainInfo"`
	Certificate SourceResult[*Certificate]   `json:"sslCertificate"`
	Resolution  SourceResult[*ServerInfo]    `json:"serverInfo"`
	Grade       SourceResult[string]         `json:"securityGrade"`
	Audit       SourceResult[*AuditReport]   `json:"lighthouseResult"`
}

// SlotStatus is a flattened view of one slot used by renderers and metrics.
type SlotStatus struct {
	Name    string
	OK      bool
	Failure *ErrorDescriptor
}

// Slots returns the status of every slot in fixed order.
func (r *CompositeReport) Slots() []SlotStatus {
	return []SlotStatus{
		{Name: SlotRegistry, OK: r.Registry.OK(), Failure: r.Registry.Failure()},
		{Name: SlotCertificate, OK: r.Certificate.OK(), Failure: r.Certificate.Failure()},
		{Name: SlotResolution, OK: r.Resolution.OK(), Failure: r.Resolution.Failure()},
		{Name: SlotGrade, OK: r.Grade.OK(), Failure: r.Grade.Failure()},
		{Name: SlotAudit, OK: r.Audit.OK(), Failure: r.Audit.Failure()},
	}
}

// FailedCount returns how many slots failed.
func (r *CompositeReport) FailedCount() int {
	n := 0
	for _, s := range r.Slots() {
		if !s.OK {
			n++
		}
	}
	return n
}

// RegistryRecord holds WHOIS fields keyed by camelCase field name.
type RegistryRecord map[string]string

// DistinguishedName maps short attribute names (CN, O, OU, C, ST, L) to values.
type DistinguishedName map[string]string

// Certificate describes the peer certificate presented on port 443.
type Certificate struct {
	Subject            DistinguishedName `json:"subject"`
	Issuer             DistinguishedName `json:"issuer"`
	SubjectAltName     string            `json:"subjectaltname,omitempty"`
	ValidFrom          string            `json:"valid_from"`
	ValidTo            string            `json:"valid_to"`
	SerialNumber       string            `json:"serialNumber"`
	Fingerprint        string            `json:"fingerprint"`
	Fingerprint256     string            `json:"fingerprint256"`
	Bits               int               `json:"bits,omitempty"`
	SignatureAlgorithm string            `json:"signatureAlgorithm"`
	Authorized         bool              `json:"authorized"`
	AuthorizationError string            `json:"authorizationError,omitempty"`
	SelfSigned         bool              `json:"selfSigned"`
	DaysUntilExpiry    int               `json:"daysUntilExpiry"`
	TLSVersion         string            `json:"tlsVersion"`
	CipherSuite        string            `json:"cipherSuite"`
	Issues             []string          `json:"issues,omitempty"`
}

// ServerInfo is the resolution slot payload.
type ServerInfo struct {
	IPAddress string   `json:"ipAddress"`
	Location  Location `json:"location"`
}

// Location is a best-effort geolocation. Country and City are never empty.
type Location struct {
	Country  string    `json:"country"`
	City     string    `json:"city"`
	Region   string    `json:"region,omitempty"`
	Timezone string    `json:"timezone,omitempty"`
	LatLong  []float64 `json:"ll,omitempty"`
}

// UnknownLocation is the location used when geolocation has no match.
func UnknownLocation() Location {
	return Location{Country: Unknown, City: Unknown}
}

// Normalize fills empty country/city with the Unknown sentinel.
func (l Location) Normalize() Location {
	if l.Country == "" {
		l.Country = Unknown
	}
	if l.City == "" {
		l.City = Unknown
	}
	return l
}

// AuditReport is the normalized performance audit. Score is in [0,1];
// Metrics maps audit ids to display values. The embedded detail keeps the
// renderer-derived audits for presentation.
type AuditReport struct {
	Score   float64           `json:"score"`
	Metrics map[string]string `json:"metrics"`
	*AuditDetail
}

// AuditDetail mirrors the subset of a Lighthouse result the presenter reads.
type AuditDetail struct {
	RequestedURL string                   `json:"requestedUrl"`
	FinalURL     string                   `json:"finalUrl,omitempty"`
	FetchTime    time.Time                `json:"fetchTime"`
	Categories   map[string]AuditCategory `json:"categories"`
	Audits       map[string]AuditMetric   `json:"audits"`
	Diagnostics  map[string]float64       `json:"diagnostics,omitempty"`
}

// AuditCategory is a scored group of audits.
type AuditCategory struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// AuditMetric is one measured audit.
type AuditMetric struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Score        float64 `json:"score"`
	NumericValue float64 `json:"numericValue"`
	NumericUnit  string  `json:"numericUnit"`
	DisplayValue string  `json:"displayValue"`
}
