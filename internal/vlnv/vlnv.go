// Package vlnv implements the Vendor:Library:Name:Version document key used to
// address every document in an IP-XACT library.
package vlnv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrMalformed is returned when a VLNV string does not have four fields.
var ErrMalformed = errors.New("malformed vlnv")

// DocumentType tags the kind of document a VLNV addresses.
type DocumentType int

const (
	Invalid DocumentType = iota
	Component
	Design
	DesignConfiguration
	BusDefinition
	AbstractionDefinition
	APIDefinition
	COMDefinition
	GeneratorChain
	Abstractor
	Catalog
)

var typeNames = map[DocumentType]string{
	Invalid:               "INVALID",
	Component:             "COMPONENT",
	Design:                "DESIGN",
	DesignConfiguration:   "DESIGNCONFIGURATION",
	BusDefinition:         "BUSDEFINITION",
	AbstractionDefinition: "ABSTRACTIONDEFINITION",
	APIDefinition:         "APIDEFINITION",
	COMDefinition:         "COMDEFINITION",
	GeneratorChain:        "GENERATORCHAIN",
	Abstractor:            "ABSTRACTOR",
	Catalog:               "CATALOG",
}

// String returns the upper-case tag used in reports, e.g. "COMPONENT".
func (t DocumentType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return typeNames[Invalid]
}

// ParseDocumentType maps a tag back to its DocumentType. Unknown tags map to Invalid.
func ParseDocumentType(s string) DocumentType {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == upper {
			return t
		}
	}
	return Invalid
}

// MarshalText implements encoding.TextMarshaler.
func (t DocumentType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DocumentType) UnmarshalText(b []byte) error {
	*t = ParseDocumentType(string(b))
	return nil
}

// VLNV identifies one document. Two VLNVs are equal only when all four fields
// and the type match exactly; versions are plain strings.
type VLNV struct {
	Type    DocumentType `json:"type"`
	Vendor  string       `json:"vendor"`
	Library string       `json:"library"`
	Name    string       `json:"name"`
	Version string       `json:"version"`
}

// New builds a VLNV of the given type.
func New(t DocumentType, vendor, library, name, version string) VLNV {
	return VLNV{Type: t, Vendor: vendor, Library: library, Name: name, Version: version}
}

// Parse reads a "vendor:library:name:version" string.
func Parse(s string, t DocumentType) (VLNV, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 4 {
		return VLNV{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return New(t, parts[0], parts[1], parts[2], parts[3]), nil
}

// String formats the key as "vendor:library:name:version".
func (v VLNV) String() string {
	return v.Vendor + ":" + v.Library + ":" + v.Name + ":" + v.Version
}

// IsEmpty reports whether no field of the key is set.
func (v VLNV) IsEmpty() bool {
	return v.Vendor == "" && v.Library == "" && v.Name == "" && v.Version == ""
}

// IsValid reports whether all four fields are set and the type is known.
func (v VLNV) IsValid() bool {
	return v.Type != Invalid && v.Vendor != "" && v.Library != "" && v.Name != "" && v.Version != ""
}

// Key drops the document type, leaving the 4-tuple a library indexes by.
func (v VLNV) Key() VLNV {
	v.Type = Invalid
	return v
}

// WithType returns a copy of v with its document type replaced.
func (v VLNV) WithType(t DocumentType) VLNV {
	v.Type = t
	return v
}

// SameItem reports whether a and b name the same vendor, library and name,
// ignoring version and type.
func SameItem(a, b VLNV) bool {
	return a.Vendor == b.Vendor && a.Library == b.Library && a.Name == b.Name
}

// Compare orders two VLNVs by vendor, library, name and then version. Versions
// that both parse as semantic versions are compared semantically, everything
// else falls back to string order.
func Compare(a, b VLNV) int {
	if c := strings.Compare(a.Vendor, b.Vendor); c != 0 {
		return c
	}
	if c := strings.Compare(a.Library, b.Library); c != 0 {
		return c
	}
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return CompareVersions(a.Version, b.Version)
}

// CompareVersions compares two version strings.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	}
	return strings.Compare(a, b)
}
