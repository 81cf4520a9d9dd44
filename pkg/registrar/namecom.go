package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
)

const defaultNamecomURL = "https://api.name.com"

type namecom struct {
	baseURL  string
	username string
	token    string
	client   *http.Client
}

// NewNamecom returns a Gateway backed by the name.com v4 API. baseURL is
// overridable for their OTE sandbox and for tests.
func NewNamecom(baseURL, username, token string) Gateway {
	if baseURL == "" {
		baseURL = defaultNamecomURL
	}
	return &namecom{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type searchRequest struct {
	DomainNames []string `json:"domainNames"`
}

type searchResponse struct {
	Results []struct {
		DomainName    string  `json:"domainName"`
		Purchasable   bool    `json:"purchasable"`
		Premium       bool    `json:"premium"`
		PurchasePrice float64 `json:"purchasePrice"`
	} `json:"results"`
}

func (n *namecom) Search(ctx context.Context, domains []string) ([]SearchResult, error) {
	var out searchResponse
	err := n.do(ctx, http.MethodPost, "/v4/domains:checkAvailability", searchRequest{DomainNames: domains}, &out)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(out.Results))
	for _, r := range out.Results {
		result := SearchResult{
			Domain:    r.DomainName,
			Available: r.Purchasable,
			Premium:   r.Premium,
		}
		if r.Purchasable && r.PurchasePrice > 0 {
			cents := int64(math.Round(r.PurchasePrice * 100))
			result.Price = &cents
		}
		results = append(results, result)
	}
	return results, nil
}

type registerRequest struct {
	Domain struct {
		DomainName string `json:"domainName"`
	} `json:"domain"`
	Years int `json:"years"`
}

type registerResponse struct {
	Order int64 `json:"order"`
}

func (n *namecom) Register(ctx context.Context, domain string, years int) (RegisterResult, error) {
	req := registerRequest{Years: years}
	req.Domain.DomainName = domain

	var out registerResponse
	if err := n.do(ctx, http.MethodPost, "/v4/domains", req, &out); err != nil {
		return RegisterResult{}, err
	}

	return RegisterResult{OrderID: strconv.FormatInt(out.Order, 10)}, nil
}

type nameserversPayload struct {
	Nameservers []string `json:"nameservers"`
}

func (n *namecom) SetNameservers(ctx context.Context, domain string, nameservers []string) error {
	path := fmt.Sprintf("/v4/domains/%s:setNameservers", domain)
	return n.do(ctx, http.MethodPost, path, nameserversPayload{Nameservers: nameservers}, nil)
}

func (n *namecom) GetNameservers(ctx context.Context, domain string) ([]string, error) {
	var out nameserversPayload
	path := fmt.Sprintf("/v4/domains/%s:getNameservers", domain)
	if err := n.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Nameservers, nil
}

type errorResponse struct {
	Message string `json:"message"`
	Details string `json:"details"`
}

func (n *namecom) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apierror.Internal("encoding registrar request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, n.baseURL+path, reader)
	if err != nil {
		return apierror.Internal("building registrar request: %v", err)
	}
	req.SetBasicAuth(n.username, n.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return apierror.Registrar("registrar unreachable: %s", n.redact(err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return n.mapError(method, path, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apierror.Registrar("decoding registrar response: %v", err)
		}
	}
	return nil
}

// mapError translates a name.com failure onto the error taxonomy. The raw
// body is logged (redacted) but only the registrar's message is surfaced.
func (n *namecom) mapError(method, path string, resp *http.Response) *apierror.Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body errorResponse
	_ = json.Unmarshal(raw, &body)
	message := body.Message
	if body.Details != "" {
		message = fmt.Sprintf("%s: %s", message, body.Details)
	}
	message = n.redact(message)

	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Warnf("registrar error: %s", message)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return apierror.RateLimited(retryAfter)
	case resp.StatusCode == http.StatusNotFound:
		return apierror.NotFound("registrar: %s", message)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return apierror.Registrar("registrar rejected credentials")
	case isAlreadyRegistered(message):
		return apierror.New(http.StatusConflict, apierror.CodeDomainTaken, "domain is already registered")
	case resp.StatusCode < 500:
		return apierror.InvalidRequest("registrar: %s", message)
	default:
		return apierror.Registrar("registrar: %s", message)
	}
}

func isAlreadyRegistered(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "already purchased") ||
		strings.Contains(m, "already registered") ||
		strings.Contains(m, "not purchasable")
}

// redact strips credentials from anything that might leave the package.
func (n *namecom) redact(s string) string {
	if n.token != "" {
		s = strings.ReplaceAll(s, n.token, "[redacted]")
	}
	if n.username != "" {
		s = strings.ReplaceAll(s, n.username+":", "[redacted]:")
	}
	return s
}
