package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
	"github.com/primsh/prim.sh-sub000/pkg/model"
)

// stubBackend records what the routing layer passed through and replies with
// either a scripted error or zero values.
type stubBackend struct {
	lastCaller string
	lastZone   string
	lastRecord string
	lastDomain string

	err *apierror.Error

	quoteResp model.QuoteResponse
}

func (s *stubBackend) Quote(ctx context.Context, req model.QuoteRequest, caller string) (model.QuoteResponse, *apierror.Error) {
	s.lastCaller = caller
	s.lastDomain = req.Domain
	return s.quoteResp, s.err
}

func (s *stubBackend) Register(ctx context.Context, req model.RegisterRequest, caller string) (model.RegistrationResponse, *apierror.Error) {
	s.lastCaller = caller
	return model.RegistrationResponse{}, s.err
}

func (s *stubBackend) Recover(ctx context.Context, recoveryToken, caller string) (model.RegistrationResponse, *apierror.Error) {
	s.lastCaller = caller
	return model.RegistrationResponse{}, s.err
}

func (s *stubBackend) ConfigureNameservers(ctx context.Context, domain, caller string) (model.RegistrationResponse, *apierror.Error) {
	s.lastCaller = caller
	s.lastDomain = domain
	return model.RegistrationResponse{}, s.err
}

func (s *stubBackend) GetRegistration(ctx context.Context, domain, caller string) (model.RegistrationResponse, *apierror.Error) {
	s.lastCaller = caller
	s.lastDomain = domain
	return model.RegistrationResponse{}, s.err
}

func (s *stubBackend) ListRegistrations(ctx context.Context, caller string) ([]model.RegistrationResponse, *apierror.Error) {
	s.lastCaller = caller
	return nil, s.err
}

func (s *stubBackend) CreateZone(ctx context.Context, req model.CreateZoneRequest, caller string) (model.ZoneResponse, *apierror.Error) {
	s.lastCaller = caller
	s.lastDomain = req.Domain
	return model.ZoneResponse{}, s.err
}

func (s *stubBackend) GetZone(ctx context.Context, zoneID, caller string) (model.ZoneResponse, *apierror.Error) {
	s.lastCaller = caller
	s.lastZone = zoneID
	return model.ZoneResponse{}, s.err
}

func (s *stubBackend) ListZones(ctx context.Context, caller string) ([]model.ZoneResponse, *apierror.Error) {
	s.lastCaller = caller
	return nil, s.err
}

func (s *stubBackend) DeleteZone(ctx context.Context, zoneID, caller string) *apierror.Error {
	s.lastCaller = caller
	s.lastZone = zoneID
	return s.err
}

func (s *stubBackend) ActivateZone(ctx context.Context, zoneID, caller string) (model.ZoneResponse, *apierror.Error) {
	s.lastCaller = caller
	s.lastZone = zoneID
	return model.ZoneResponse{}, s.err
}

func (s *stubBackend) CreateRecord(ctx context.Context, zoneID string, req model.RecordRequest, caller string) (model.RecordResponse, *apierror.Error) {
	s.lastCaller = caller
	s.lastZone = zoneID
	return model.RecordResponse{}, s.err
}

func (s *stubBackend) UpdateRecord(ctx context.Context, zoneID, recordID string, req model.RecordRequest, caller string) (model.RecordResponse, *apierror.Error) {
	s.lastCaller = caller
	s.lastZone = zoneID
	s.lastRecord = recordID
	return model.RecordResponse{}, s.err
}

func (s *stubBackend) DeleteRecord(ctx context.Context, zoneID, recordID, caller string) *apierror.Error {
	s.lastCaller = caller
	s.lastZone = zoneID
	s.lastRecord = recordID
	return s.err
}

func (s *stubBackend) ListRecords(ctx context.Context, zoneID, caller string) ([]model.RecordResponse, *apierror.Error) {
	s.lastCaller = caller
	s.lastZone = zoneID
	return nil, s.err
}

func (s *stubBackend) BatchRecords(ctx context.Context, zoneID string, req model.BatchRecordsRequest, caller string) (model.BatchRecordsResponse, *apierror.Error) {
	s.lastCaller = caller
	s.lastZone = zoneID
	return model.BatchRecordsResponse{}, s.err
}

func (s *stubBackend) Verify(ctx context.Context, zoneID, caller string) (model.VerifyResult, *apierror.Error) {
	s.lastCaller = caller
	s.lastZone = zoneID
	return model.VerifyResult{}, s.err
}

func newTestServer(t *testing.T) (*httptest.Server, *stubBackend) {
	t.Helper()
	stub := &stubBackend{}
	a := NewAPIServer(context.Background(), logrus.WithField("test", t.Name()), 0)
	server := httptest.NewServer(a.buildRouter(newHandler(stub)))
	t.Cleanup(server.Close)
	return server, stub
}

func doRequest(t *testing.T, server *httptest.Server, method, path, body string, authed bool) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	if authed {
		req.Header.Set("X-Payer-Address", "0xabc123")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(t, server, "GET", "/healthz", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRequiresPayerIdentity(t *testing.T) {
	server, stub := newTestServer(t)

	resp := doRequest(t, server, "POST", "/v1/quotes", `{"domain":"example.com"}`, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, stub.lastCaller)

	var body model.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.OK)
	assert.Equal(t, apierror.CodeForbidden, body.Code)
}

func TestQuoteSuccessEnvelope(t *testing.T) {
	server, stub := newTestServer(t)
	stub.quoteResp = model.QuoteResponse{ID: "q-1", Domain: "example.com", Total: 4025}

	resp := doRequest(t, server, "POST", "/v1/quotes", `{"domain":"example.com"}`, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0xabc123", stub.lastCaller)
	assert.Equal(t, "example.com", stub.lastDomain)

	var body struct {
		OK   bool                `json:"ok"`
		Data model.QuoteResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.OK)
	assert.Equal(t, "q-1", body.Data.ID)
	assert.Equal(t, int64(4025), body.Data.Total)
}

func TestErrorEnvelopeAndRetryAfter(t *testing.T) {
	server, stub := newTestServer(t)
	stub.err = apierror.RateLimited(30)

	resp := doRequest(t, server, "POST", "/v1/quotes", `{"domain":"example.com"}`, true)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "30", resp.Header.Get("Retry-After"))

	var body model.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.OK)
	assert.Equal(t, apierror.CodeRateLimited, body.Code)
	assert.Equal(t, 30, body.RetryAfterSeconds)
}

func TestMalformedBodyRejected(t *testing.T) {
	server, stub := newTestServer(t)

	resp := doRequest(t, server, "POST", "/v1/quotes", `{"domain":`, true)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, stub.lastCaller, "a body that fails to decode never reaches the backend")
}

func TestRouteParameters(t *testing.T) {
	server, stub := newTestServer(t)

	resp := doRequest(t, server, "PUT", "/v1/zones/z-1/records/r-9", `{"type":"A","name":"www.example.com","content":"192.0.2.10"}`, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "z-1", stub.lastZone)
	assert.Equal(t, "r-9", stub.lastRecord)

	resp = doRequest(t, server, "POST", "/v1/registrations/example.com/configure-ns", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "example.com", stub.lastDomain)

	resp = doRequest(t, server, "POST", "/v1/zones/z-2/verify", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "z-2", stub.lastZone)

	resp = doRequest(t, server, "POST", "/v1/zones/z-3/records/batch", `{"creates":[]}`, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "z-3", stub.lastZone)
}

func TestDeleteZoneEnvelope(t *testing.T) {
	server, stub := newTestServer(t)

	resp := doRequest(t, server, "DELETE", "/v1/zones/z-1", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "z-1", stub.lastZone)

	var body struct {
		OK   bool            `json:"ok"`
		Data map[string]bool `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.OK)
	assert.True(t, body.Data["deleted"])
}
