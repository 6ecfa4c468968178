package extraction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ghmd86/document-hub-sub000/internal/validation"
)

// defaultSourceTimeout applies when a source declares no timeout.
const defaultSourceTimeout = 5 * time.Second

// ResponseCache caches raw response bodies per data source. Implementations
// must be safe for concurrent use. A nil ResponseCache disables caching.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration)
}

// Executor runs extraction plans: level-parallel fan-out, strict sequencing
// between levels, per-source timeout and retry. A single source's failure
// degrades to an empty contribution and never fails the plan.
type Executor struct {
	client *http.Client
	cache  ResponseCache
	logger *slog.Logger
}

// NewExecutor creates an Executor. cache may be nil to disable response
// caching. If logger is nil, it defaults to slog.Default().
func NewExecutor(client *http.Client, cache ResponseCache, logger *slog.Logger) *Executor {
	validation.AssertNotNil(client, "http client")
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

// Execute runs the plan against the configured sources, starting from the
// initial context and returning the merged result. The only error conditions
// are a source id missing from the config (broken plan/config pairing) and
// cancellation of ctx; per-source fetch failures are absorbed.
//
// cfg.Mode is not consulted here: parallel mode forbids dependencies at parse
// time, so BuildPlan emits a single level and the per-level fan-out below
// already fires every source at once. Both modes reduce to the same loop.
func (e *Executor) Execute(ctx context.Context, plan *Plan, cfg *Config, initial Context) (Context, error) {
	specs := make(map[string]SourceSpec, len(cfg.Sources))
	for _, src := range cfg.Sources {
		specs[src.ID] = src
	}

	merged := initial.Clone()

	for _, level := range plan.Levels {
		results := make([]Context, len(level))
		// Sibling sources read a snapshot of the merged context; their own
		// contributions only become visible once the whole level settles.
		snapshot := merged.Clone()

		g, gctx := errgroup.WithContext(ctx)
		for i, id := range level {
			spec, ok := specs[id]
			if !ok {
				return nil, fmt.Errorf("plan references unknown data source %q", id)
			}
			g.Go(func() error {
				results[i] = e.fetchSource(gctx, spec, snapshot)
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("extraction aborted: %w", err)
		}

		for _, fields := range results {
			merged.Merge(fields)
		}
	}

	return merged, nil
}

// fetchSource performs one source's fetch with retry and response mapping.
// Every failure path returns an empty contribution.
func (e *Executor) fetchSource(ctx context.Context, spec SourceSpec, snapshot Context) Context {
	log := e.logger.With("source", spec.ID)

	url, err := resolvePlaceholders(spec.BaseURL+spec.Endpoint, snapshot)
	if err != nil {
		log.Warn("skipping data source: unresolved endpoint placeholder", "error", err)
		return Context{}
	}

	cacheKey, cacheTTL, cacheable := e.cacheParams(spec, snapshot, log)
	if cacheable {
		if body, hit := e.cache.Get(ctx, cacheKey); hit {
			return MapFields(body, spec.ResponseMapping, log)
		}
	}

	body, err := e.doRequest(ctx, spec, url, snapshot)
	if err != nil {
		log.Warn("data source fetch failed, contributing no fields", "error", err)
		return Context{}
	}

	if cacheable {
		e.cache.Set(ctx, cacheKey, body, cacheTTL)
	}

	return MapFields(body, spec.ResponseMapping, log)
}

func (e *Executor) cacheParams(spec SourceSpec, snapshot Context, log *slog.Logger) (string, time.Duration, bool) {
	if e.cache == nil || spec.Cache == nil || !spec.Cache.Enabled {
		return "", 0, false
	}
	key, err := resolvePlaceholders(spec.Cache.KeyPattern, snapshot)
	if err != nil || key == "" {
		log.Warn("response cache disabled for source: unresolved key pattern", "error", err)
		return "", 0, false
	}
	return key, time.Duration(spec.Cache.TTLSeconds) * time.Second, true
}

// doRequest applies the configured retry count and per-attempt timeout.
func (e *Executor) doRequest(ctx context.Context, spec SourceSpec, url string, snapshot Context) ([]byte, error) {
	timeout := defaultSourceTimeout
	if spec.TimeoutMs > 0 {
		timeout = time.Duration(spec.TimeoutMs) * time.Millisecond
	}

	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	attempts := spec.RetryCount + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := e.attempt(ctx, method, url, snapshot, timeout)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

func (e *Executor) attempt(ctx context.Context, method, url string, snapshot Context, timeout time.Duration) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token, ok := snapshot[ContextKeyAuthToken].(string); ok && token != "" {
		req.Header.Set("Authorization", token)
	}
	if cid, ok := snapshot[ContextKeyCorrelationID].(string); ok && cid != "" {
		req.Header.Set("X-Correlation-Id", cid)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_.]+)\}`)

// resolvePlaceholders substitutes every {param} token from the context.
// An unresolvable token is an error so a half-built URL is never fetched.
func resolvePlaceholders(template string, ctx Context) (string, error) {
	var missing []string
	resolved := placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		key := token[1 : len(token)-1]
		v, ok := ctx[key]
		if !ok || v == nil {
			missing = append(missing, key)
			return token
		}
		return valueString(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved placeholders %v", missing)
	}
	return resolved, nil
}

func valueString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
