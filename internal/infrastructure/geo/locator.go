// Package geo resolves IP addresses to coarse locations using a MaxMind
// GeoLite2/GeoIP2 City database.
package geo

import (
	"fmt"
	"net"
	"sync"

	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	"github.com/oschwald/geoip2-golang"
)

// cityReader is the part of *geoip2.Reader the locator uses.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// Locator looks addresses up in a city database. A nil *Locator or one opened
// without a database path reports every lookup as a miss.
type Locator struct {
	mu     sync.RWMutex
	reader cityReader
	lang   string
}

// Open loads the database at path. An empty path returns a locator that never matches.
func Open(path string) (*Locator, error) {
	if path == "" {
		return &Locator{lang: "en"}, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database %s: %w", path, err)
	}
	return &Locator{reader: reader, lang: "en"}, nil
}

// Lookup returns the location for ip. Errors and misses both return ok=false.
func (l *Locator) Lookup(ip net.IP) (report.Location, bool) {
	if l == nil || ip == nil {
		return report.Location{}, false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.reader == nil {
		return report.Location{}, false
	}

	record, err := l.reader.City(ip)
	if err != nil || record == nil {
		return report.Location{}, false
	}
	return toLocation(record, l.lang)
}

// Close releases the database.
func (l *Locator) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reader == nil {
		return nil
	}
	err := l.reader.Close()
	l.reader = nil
	return err
}

func toLocation(record *geoip2.City, lang string) (report.Location, bool) {
	loc := report.Location{
		Country:  record.Country.IsoCode,
		City:     record.City.Names[lang],
		Timezone: record.Location.TimeZone,
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].IsoCode
	}
	if record.Location.Latitude != 0 || record.Location.Longitude != 0 {
		loc.LatLong = []float64{record.Location.Latitude, record.Location.Longitude}
	}

	if loc.Country == "" && loc.City == "" && loc.LatLong == nil {
		return report.Location{}, false
	}
	return loc, true
}
