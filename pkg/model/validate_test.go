package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDomain(t *testing.T) {
	valid := []string{
		"example.com",
		"sub.example.com",
		"xn--nxasmq6b.example",
		"a-b.c-d.io",
		"123.example.org",
	}
	for _, domain := range valid {
		assert.NoError(t, ValidateDomain(domain), domain)
	}

	invalid := []string{
		"",
		"nodot",
		"example.com.",
		"http://example.com",
		".example.com",
		"exa mple.com",
		"-example.com",
		"example-.com",
		"under_score.com",
		strings.Repeat("a", 64) + ".com",
		strings.Repeat("a.", 127) + strings.Repeat("b", 60) + ".com",
	}
	for _, domain := range invalid {
		assert.Error(t, ValidateDomain(domain), domain)
	}
}

func TestQuoteRequestYears(t *testing.T) {
	assert.NoError(t, QuoteRequest{Domain: "example.com"}.Validate())
	assert.Equal(t, 1, QuoteRequest{Domain: "example.com"}.NormalizedYears())
	assert.Equal(t, 3, QuoteRequest{Domain: "example.com", Years: 3}.NormalizedYears())

	assert.Error(t, QuoteRequest{Domain: "example.com", Years: 11}.Validate())
	assert.Error(t, QuoteRequest{Domain: "example.com", Years: -1}.Validate())
}

func TestRecordRequestValidate(t *testing.T) {
	priority := 10
	tooBig := 70000

	cases := []struct {
		name    string
		req     RecordRequest
		wantErr bool
	}{
		{"a", RecordRequest{Type: RecordTypeA, Name: "www.example.com", Content: "192.0.2.10"}, false},
		{"a with v6 content", RecordRequest{Type: RecordTypeA, Name: "www.example.com", Content: "2001:db8::1"}, true},
		{"aaaa", RecordRequest{Type: RecordTypeAAAA, Name: "www.example.com", Content: "2001:db8::1"}, false},
		{"aaaa with v4 content", RecordRequest{Type: RecordTypeAAAA, Name: "www.example.com", Content: "192.0.2.10"}, true},
		{"cname proxied", RecordRequest{Type: RecordTypeCname, Name: "blog.example.com", Content: "pages.example.net", Proxied: true}, false},
		{"txt proxied", RecordRequest{Type: RecordTypeTxt, Name: "example.com", Content: "v=spf1 -all", Proxied: true}, true},
		{"mx without priority", RecordRequest{Type: RecordTypeMx, Name: "example.com", Content: "mail.example.com"}, true},
		{"mx", RecordRequest{Type: RecordTypeMx, Name: "example.com", Content: "mail.example.com", Priority: &priority}, false},
		{"srv without priority", RecordRequest{Type: RecordTypeSrv, Name: "_sip._tcp.example.com", Content: "5 5060 sip.example.com"}, true},
		{"priority out of range", RecordRequest{Type: RecordTypeMx, Name: "example.com", Content: "mail.example.com", Priority: &tooBig}, true},
		{"unknown type", RecordRequest{Type: "SPF", Name: "example.com", Content: "x"}, true},
		{"missing name", RecordRequest{Type: RecordTypeA, Content: "192.0.2.10"}, true},
		{"missing content", RecordRequest{Type: RecordTypeA, Name: "www.example.com"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
