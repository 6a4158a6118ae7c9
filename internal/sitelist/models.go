// Package sitelist runs data-driven existence checks against JSON catalogues
// in the WhatsMyName style: hundreds of sites described by URL templates and
// expected status/body markers instead of one scanner type per site.
//
// Datasets are not bundled. Callers point at local catalogue files.
package sitelist

import "fmt"

// UsernameSite describes one username catalogue entry.
type UsernameSite struct {
	Name     string `json:"name"`
	URICheck string `json:"uri_check"`
	ECode    int    `json:"e_code"`
	EString  string `json:"e_string"`

	MString string `json:"m_string,omitempty"`
	MCode   int    `json:"m_code,omitempty"`

	Cat string `json:"cat,omitempty"`
}

// EmailSite describes one email catalogue entry. Email catalogues allow POST
// checks and identifier transforms (hashes, urlencode).
type EmailSite struct {
	Name     string `json:"name"`
	URICheck string `json:"uri_check"`

	Method  string            `json:"method,omitempty"`
	Data    string            `json:"data,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	ECode   int    `json:"e_code"`
	EString string `json:"e_string"`

	MString string `json:"m_string,omitempty"`
	MCode   int    `json:"m_code,omitempty"`

	Cat            string `json:"cat,omitempty"`
	InputOperation string `json:"input_operation,omitempty"`
}

// UsernameSitesFile is the on-disk catalogue shape {"sites": [...]}.
type UsernameSitesFile struct {
	Sites []UsernameSite `json:"sites"`
}

// EmailSitesFile is the on-disk catalogue shape {"sites": [...]}.
type EmailSitesFile struct {
	Sites []EmailSite `json:"sites"`
}

func validStatus(code int) bool {
	return code >= 100 && code <= 599
}

func (s UsernameSite) validate() error {
	if s.Name == "" || s.URICheck == "" || s.EString == "" {
		return fmt.Errorf("site %q: name, uri_check and e_string are required", s.Name)
	}
	if !validStatus(s.ECode) {
		return fmt.Errorf("site %q: e_code %d out of range", s.Name, s.ECode)
	}
	if s.MCode != 0 && !validStatus(s.MCode) {
		return fmt.Errorf("site %q: m_code %d out of range", s.Name, s.MCode)
	}
	return nil
}

func (s EmailSite) validate() error {
	if s.Name == "" || s.URICheck == "" || s.EString == "" {
		return fmt.Errorf("site %q: name, uri_check and e_string are required", s.Name)
	}
	if !validStatus(s.ECode) {
		return fmt.Errorf("site %q: e_code %d out of range", s.Name, s.ECode)
	}
	if s.MCode != 0 && !validStatus(s.MCode) {
		return fmt.Errorf("site %q: m_code %d out of range", s.Name, s.MCode)
	}
	return nil
}
