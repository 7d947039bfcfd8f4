package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caseflow-systems/docingest/internal/logging"
)

var ErrCompanyNotFound = errors.New("company not found")

// Company is the registration record returned by the registry API.
type Company struct {
	CNPJ      string `json:"cnpj"`
	LegalName string `json:"razao_social"`
	TradeName string `json:"nome_fantasia"`
	Status    string `json:"descricao_situacao_cadastral"`
	City      string `json:"municipio"`
	State     string `json:"uf"`
	OpenedAt  string `json:"data_inicio_atividade"`
}

type Config struct {
	APIURL   string
	Timeout  time.Duration
	RedisURL string
	CacheTTL time.Duration
}

// Registry resolves CNPJ numbers against the registry API, with a Redis
// cache in front of it.
type Registry struct {
	apiURL     string
	httpClient *http.Client
	cache      *redis.Client
	ttl        time.Duration
	logger     *logging.Logger
}

func New(cfg Config, logger *logging.Logger) (*Registry, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return newWithCache(cfg, client, logger), nil
}

func newWithCache(cfg Config, cache *redis.Client, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		apiURL: cfg.APIURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cache,
		ttl:    cfg.CacheTTL,
		logger: logger,
	}
}

// Lookup resolves a CNPJ. The input may be formatted or bare digits;
// invalid numbers are rejected before any network or cache access.
func (r *Registry) Lookup(ctx context.Context, cnpj string) (*Company, error) {
	if !Valid(cnpj) {
		return nil, ErrInvalidCNPJ
	}
	digits := Normalize(cnpj)
	cacheKey := "cnpj:" + digits

	if cached, err := r.cache.Get(ctx, cacheKey).Bytes(); err == nil {
		var company Company
		if err := json.Unmarshal(cached, &company); err == nil {
			return &company, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		r.logger.WarnContext(ctx, "registry cache read failed", logging.Err(err))
	}

	company, err := r.fetch(ctx, digits)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(company); err == nil {
		if err := r.cache.Set(ctx, cacheKey, data, r.ttl).Err(); err != nil {
			r.logger.WarnContext(ctx, "registry cache write failed", logging.Err(err))
		}
	}

	return company, nil
}

func (r *Registry) fetch(ctx context.Context, digits string) (*Company, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, r.apiURL+"/"+digits, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := r.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("fetch company: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrCompanyNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("registry response status %d", resp.StatusCode)
	}

	var company Company
	if err := json.NewDecoder(resp.Body).Decode(&company); err != nil {
		return nil, fmt.Errorf("decode company: %w", err)
	}
	return &company, nil
}

// Close releases the cache connection.
func (r *Registry) Close() error {
	return r.cache.Close()
}
