package model

import (
	"fmt"
	"net"
	"strings"
)

const (
	maxDomainLength = 253
	maxLabelLength  = 63
	maxYears        = 10
)

// ValidateDomain applies DNS label rules to a registerable domain name. The
// name must be bare: no scheme, no trailing dot, at least two labels.
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain must be provided")
	}
	if strings.Contains(domain, "://") {
		return fmt.Errorf("domain must not include a scheme")
	}
	if strings.HasSuffix(domain, ".") {
		return fmt.Errorf("domain must not end with a dot")
	}
	if len(domain) > maxDomainLength {
		return fmt.Errorf("domain must be at most %d characters", maxDomainLength)
	}
	if !strings.Contains(domain, ".") {
		return fmt.Errorf("domain must contain at least one dot")
	}

	for _, label := range strings.Split(domain, ".") {
		if label == "" {
			return fmt.Errorf("domain contains an empty label")
		}
		if len(label) > maxLabelLength {
			return fmt.Errorf("label %q exceeds %d characters", label, maxLabelLength)
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return fmt.Errorf("label %q must not start or end with a hyphen", label)
		}
		for _, c := range label {
			if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' {
				continue
			}
			return fmt.Errorf("label %q contains invalid character %q", label, c)
		}
	}

	return nil
}

func (q QuoteRequest) Validate() error {
	if err := ValidateDomain(q.Domain); err != nil {
		return err
	}
	if q.Years < 0 || q.Years > maxYears {
		return fmt.Errorf("years must be between 1 and %d", maxYears)
	}
	return nil
}

// Years defaults to one registration year when the caller leaves it unset.
func (q QuoteRequest) NormalizedYears() int {
	if q.Years == 0 {
		return 1
	}
	return q.Years
}

func (r RecordRequest) Validate() error {
	if err := IsValidRecordType(r.Type); err != nil {
		return err
	}

	if r.Name == "" {
		return fmt.Errorf("record name must be provided")
	}

	if r.Content == "" {
		return fmt.Errorf("record content must be provided")
	}

	switch r.Type {
	case RecordTypeA:
		ip := net.ParseIP(r.Content)
		if ip == nil || strings.Contains(r.Content, ":") {
			return fmt.Errorf("content %v is not a valid IPv4 address", r.Content)
		}
	case RecordTypeAAAA:
		ip := net.ParseIP(r.Content)
		if ip == nil || !strings.Contains(r.Content, ":") {
			return fmt.Errorf("content %v is not a valid IPv6 address", r.Content)
		}
	case RecordTypeMx, RecordTypeSrv:
		if r.Priority == nil {
			return fmt.Errorf("%s records require a priority", r.Type)
		}
	}

	if r.Proxied {
		switch r.Type {
		case RecordTypeA, RecordTypeAAAA, RecordTypeCname:
		default:
			return fmt.Errorf("%s records cannot be proxied", r.Type)
		}
	}

	if r.Priority != nil && (*r.Priority < 0 || *r.Priority > 65535) {
		return fmt.Errorf("priority must be between 0 and 65535")
	}

	return nil
}
