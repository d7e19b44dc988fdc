// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/crypto/tls"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/flexrpl/ddtool/pkg/ddtool/failure"
	"github.com/flexrpl/ddtool/pkg/util/version"
)

// DefaultSite is the Datadog site used when none is configured.
const DefaultSite = "datadoghq.com"

const (
	apiKeyHeader = "DD-API-KEY"
	appKeyHeader = "DD-APPLICATION-KEY"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrResourceNotFound = errors.New("requested resource not found")
	errUnauthorized     = errors.New("authentication failed, check the API and application keys")
	errForbidden        = errors.New("the application key is not allowed to manage dashboards")
	errTooManyRequests  = errors.New("too many requests")
)

// UserAgent returns build information in format suitable to be used in HTTP User-Agent header.
func UserAgent() string {
	return fmt.Sprintf("ddtool/%s %s", version.Version, version.Info())
}

// Config is used to configure a DatadogClient.
type Config struct {
	APIKey string `yaml:"api_key"`
	AppKey string `yaml:"app_key"`
	// Site selects the Datadog region, the API is reached at https://api.<site>.
	Site string `yaml:"site"`
	// Address overrides the endpoint derived from Site.
	Address      string `yaml:"address"`
	TLS          tls.ClientConfig
	Timeout      time.Duration     `yaml:"timeout"`
	ExtraHeaders map[string]string `yaml:"extra_headers"`
}

// Endpoint returns the base URL of the API.
func (cfg Config) Endpoint() string {
	if cfg.Address != "" {
		return cfg.Address
	}
	site := cfg.Site
	if site == "" {
		site = DefaultSite
	}
	return "https://api." + site
}

// DatadogClient is a client to the Datadog dashboards API.
type DatadogClient struct {
	apiKey       string
	appKey       string
	endpoint     *url.URL
	Client       http.Client
	extraHeaders map[string]string
	logger       log.Logger
}

// New returns a new DatadogClient.
func New(cfg Config, logger log.Logger) (*DatadogClient, error) {
	var missing []string
	if cfg.APIKey == "" {
		missing = append(missing, "API key")
	}
	if cfg.AppKey == "" {
		missing = append(missing, "application key")
	}
	if len(missing) > 0 {
		return nil, failure.Newf(failure.MissingCredentials, "missing required credentials: %s", strings.Join(missing, ", "))
	}

	address := cfg.Endpoint()
	endpoint, err := url.Parse(address)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid Datadog address %q", address)
	}

	level.Debug(logger).Log("msg", "New Datadog client created", "address", address)

	client := http.Client{Timeout: cfg.Timeout}

	tlsConfig, err := cfg.TLS.GetTLSConfig()
	if err != nil {
		level.Error(logger).Log("msg", "error loading TLS files", "tls-ca", cfg.TLS.CAPath, "tls-cert", cfg.TLS.CertPath, "tls-key", cfg.TLS.KeyPath, "err", err)
		return nil, errors.Wrap(err, "Datadog client initialization unsuccessful")
	}

	if tlsConfig != nil {
		client.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: tlsConfig,
		}
	}

	return &DatadogClient{
		apiKey:       cfg.APIKey,
		appKey:       cfg.AppKey,
		endpoint:     endpoint,
		Client:       client,
		extraHeaders: cfg.ExtraHeaders,
		logger:       logger,
	}, nil
}

// doRequest sends a request to the API. Every failure, including non 2xx
// responses, is reported as a failure.RemoteServiceError.
func (c *DatadogClient) doRequest(ctx context.Context, path, method string, payload io.Reader, contentLength int64) (*http.Response, error) {
	req, err := buildRequest(ctx, path, method, *c.endpoint, payload, contentLength)
	if err != nil {
		return nil, failure.New(failure.RemoteServiceError, err)
	}

	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set(appKeyHeader, c.appKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range c.extraHeaders {
		req.Header.Add(k, v)
	}

	level.Debug(c.logger).Log("msg", "sending request to Datadog API", "url", req.URL.String(), "method", req.Method)

	resp, err := c.Client.Do(req)
	if err != nil {
		level.Error(c.logger).Log("msg", "error during request to Datadog API", "url", req.URL.String(), "method", req.Method, "err", err)
		return nil, failure.New(failure.RemoteServiceError, err)
	}

	if err := c.checkResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, failure.New(failure.RemoteServiceError, errors.Wrapf(err, "%s request to %s failed", req.Method, req.URL.String()))
	}

	return resp, nil
}

// checkResponse checks an API response for errors.
func (c *DatadogClient) checkResponse(r *http.Response) error {
	level.Debug(c.logger).Log("msg", "checking response", "status", r.Status)
	if 200 <= r.StatusCode && r.StatusCode <= 299 {
		return nil
	}

	bodyHead, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		return errors.Wrapf(err, "reading body")
	}
	bodyStr := string(bodyHead)
	const msg = "response"

	switch r.StatusCode {
	case http.StatusNotFound:
		level.Debug(c.logger).Log("msg", msg, "status", r.Status, "body", bodyStr)
		return ErrResourceNotFound
	case http.StatusUnauthorized:
		level.Debug(c.logger).Log("msg", msg, "status", r.Status, "body", bodyStr)
		return errUnauthorized
	case http.StatusForbidden:
		level.Debug(c.logger).Log("msg", msg, "status", r.Status, "body", bodyStr)
		return errForbidden
	case http.StatusTooManyRequests:
		level.Debug(c.logger).Log("msg", msg, "status", r.Status, "body", bodyStr)
		return errTooManyRequests
	}

	level.Error(c.logger).Log("msg", msg, "status", r.Status, "body", bodyStr)

	if bodyStr == "" {
		return fmt.Errorf("server returned HTTP status: %s", r.Status)
	}
	return fmt.Errorf("server returned HTTP status: %s, body: %q", r.Status, bodyStr)
}

func joinPath(baseURLPath, targetPath string) string {
	// trim exactly one slash at the end of the base URL, this expects target
	// path to always start with a slash
	return strings.TrimSuffix(baseURLPath, "/") + targetPath
}

func buildRequest(ctx context.Context, p, m string, endpoint url.URL, payload io.Reader, contentLength int64) (*http.Request, error) {
	// p may already carry escaped path segments, so parse it rather than
	// assigning it to Path.
	pURL, err := url.Parse(p)
	if err != nil {
		return nil, err
	}

	if pURL.RawPath != "" || endpoint.RawPath != "" {
		endpoint.RawPath = joinPath(endpoint.EscapedPath(), pURL.EscapedPath())
	}
	endpoint.Path = joinPath(endpoint.Path, pURL.Path)
	endpoint.RawQuery = pURL.RawQuery
	r, err := http.NewRequestWithContext(ctx, m, endpoint.String(), payload)
	if err != nil {
		return nil, err
	}
	if contentLength >= 0 {
		r.ContentLength = contentLength
	}
	r.Header.Add("User-Agent", UserAgent())
	return r, nil
}
