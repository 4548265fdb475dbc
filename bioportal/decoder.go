package bioportal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"soarbench.org/soar/logger"
	"soarbench.org/soar/redis"
	"soarbench.org/soar/types"
	"soarbench.org/soar/utils"
)

type Config struct {
	APIKey       string        `envconfig:"SOAR_BIOPORTAL_TOKEN"`
	RestURL      string        `envconfig:"SOAR_BIOPORTAL_REST_URL" default:"http://data.bioontology.org"`
	Ontology     string        `envconfig:"SOAR_BIOPORTAL_ONTOLOGY" default:"CL"`
	TimeInterval time.Duration `envconfig:"SOAR_BIOPORTAL_TIME_INTERVAL" default:"1s"`
	HTTPTimeout  time.Duration `envconfig:"SOAR_BIOPORTAL_HTTP_TIMEOUT" default:"30s"`
}

func ReadEnvironment() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

// Cache stores decoded terms between runs.
type Cache interface {
	GetJSON(ctx context.Context, key string, v interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}) error
	Lock(ctx context.Context, key string) (redis.ReleaseLock, error)
}

// Record is one class returned by the search and parents endpoints.
type Record struct {
	ID         string          `json:"@id"`
	PrefLabel  string          `json:"prefLabel"`
	Synonym    []string        `json:"synonym"`
	Definition json.RawMessage `json:"definition"`
	Links      struct {
		Parents string `json:"parents"`
	} `json:"links"`
}

// SearchHit is a search result with its direct parents.
type SearchHit struct {
	Result  Record
	Parents []Record
}

type searchResponse struct {
	Collection []Record `json:"collection"`
}

// RequestError is returned for any failed remote call. It is never retried.
type RequestError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bioportal request %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("bioportal request %s: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

type Decoder struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	cache   Cache
	log     zerolog.Logger
}

type Option func(*Decoder)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Decoder) { d.client = c }
}

func WithCache(c Cache) Option {
	return func(d *Decoder) { d.cache = c }
}

func NewDecoder(cfg Config, opts ...Option) *Decoder {
	if cfg.RestURL == "" {
		cfg.RestURL = "http://data.bioontology.org"
	}
	if cfg.Ontology == "" {
		cfg.Ontology = "CL"
	}

	limit := rate.Inf
	if cfg.TimeInterval > 0 {
		limit = rate.Every(cfg.TimeInterval)
	}

	d := &Decoder{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: rate.NewLimiter(limit, 1),
		log:     logger.NewLogger("BioPortal decoder").With().Str("ontology", cfg.Ontology).Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// quote escapes like a URL path quote: spaces become %20 and '/' is kept.
func quote(s string) string {
	return strings.NewReplacer("+", "%20", "%2F", "/").Replace(url.QueryEscape(s))
}

func (d *Decoder) getJSON(ctx context.Context, rawURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &RequestError{URL: rawURL, Err: err}
	}
	req.Header.Set("Authorization", "apikey token="+d.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return &RequestError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(body)))}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &RequestError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// QueryCell searches the ontology for name and fetches the parents of the first topK hits.
func (d *Decoder) QueryCell(ctx context.Context, name string, topK int) ([]SearchHit, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s&ontologies=%s", strings.TrimRight(d.cfg.RestURL, "/"), quote(name), d.cfg.Ontology)

	var results searchResponse
	if err := d.getJSON(ctx, searchURL, &results); err != nil {
		return nil, err
	}

	top := results.Collection
	if topK >= 0 && len(top) > topK {
		top = top[:topK]
	}

	hits := make([]SearchHit, 0, len(top))
	for _, result := range top {
		hit := SearchHit{Result: result}
		if result.Links.Parents != "" {
			if err := d.getJSON(ctx, result.Links.Parents, &hit.Parents); err != nil {
				return nil, err
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DecodeOne returns the flattened topK hits for name, or a single record
// carrying name when the search finds nothing.
func (d *Decoder) DecodeOne(ctx context.Context, name string, topK int) ([]types.DecodedTerm, error) {
	key := d.cacheKey(name, topK)
	if terms, ok := d.fromCache(ctx, key); ok {
		return terms, nil
	}

	if d.cache != nil {
		release, err := d.cache.Lock(ctx, key)
		if err != nil {
			d.log.Warn().Err(err).Str("term", name).Msg("Could not lock cache key")
		} else {
			defer func() {
				if err := release(); err != nil {
					d.log.Warn().Err(err).Str("term", name).Msg("Could not release cache lock")
				}
			}()
			// filled by another process while we waited
			if terms, ok := d.fromCache(ctx, key); ok {
				return terms, nil
			}
		}
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	hits, err := d.QueryCell(ctx, name, topK)
	if err != nil {
		return nil, err
	}

	terms := flatten(name, hits)
	if d.cache != nil {
		if err := d.cache.SetJSON(ctx, key, terms); err != nil {
			d.log.Warn().Err(err).Str("term", name).Msg("Could not store decoded term")
		}
	}
	return terms, nil
}

// Decode decodes every name in order, pacing the remote queries.
func (d *Decoder) Decode(ctx context.Context, names []string, topK int) ([][]types.DecodedTerm, error) {
	results := make([][]types.DecodedTerm, 0, len(names))
	for _, name := range names {
		terms, err := d.DecodeOne(ctx, name, topK)
		if err != nil {
			return nil, err
		}
		results = append(results, terms)
	}
	return results, nil
}

func (d *Decoder) cacheKey(name string, topK int) string {
	return fmt.Sprintf("bioportal:%s:%s", d.cfg.Ontology, utils.HashKey(name, fmt.Sprint(topK)))
}

func (d *Decoder) fromCache(ctx context.Context, key string) ([]types.DecodedTerm, bool) {
	if d.cache == nil {
		return nil, false
	}
	var terms []types.DecodedTerm
	found, err := d.cache.GetJSON(ctx, key, &terms)
	if err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("Could not read cache")
		return nil, false
	}
	return terms, found
}

func flatten(name string, hits []SearchHit) []types.DecodedTerm {
	if len(hits) == 0 {
		return []types.DecodedTerm{types.FallbackTerm(name)}
	}

	terms := make([]types.DecodedTerm, 0, len(hits))
	for _, hit := range hits {
		term := decodeRecord(hit.Result)
		term.Parents = make([]types.DecodedTerm, 0, len(hit.Parents))
		for _, p := range hit.Parents {
			term.Parents = append(term.Parents, decodeRecord(p))
		}
		terms = append(terms, term)
	}
	return terms
}

func decodeRecord(r Record) types.DecodedTerm {
	synonyms := r.Synonym
	if synonyms == nil {
		synonyms = []string{}
	}
	return types.DecodedTerm{
		PrefLabel:  r.PrefLabel,
		Synonym:    synonyms,
		Definition: definition(r.Definition),
	}
}

// definition accepts a string or a list of strings.
func definition(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, " ")
	}
	return ""
}
