// Package assist wraps a remote chat-completion service used to rewrite
// résumé text.
//
// Results are cached per operation and input, so repeating a request within
// the cache TTL does not reach the service again. Model output is treated as
// untrusted text: markup is stripped before it is returned.
package assist

import (
	"context"
	"errors"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/vitae/internal/cachemanager"
	"github.com/zjrosen/vitae/internal/log"
	"github.com/zjrosen/vitae/internal/tracing"
)

const (
	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "gpt-4o-mini"
	// DefaultCacheTTL is used when Config.CacheTTL is zero.
	DefaultCacheTTL = 30 * time.Minute

	opEnhance   = "enhance"
	opTransform = "transform"
	opSalary    = "salary_estimate"
)

// Config holds configuration for creating a Client.
type Config struct {
	APIKey string
	// BaseURL overrides the service endpoint. Empty means the public API.
	BaseURL    string
	Model      string
	CacheTTL   time.Duration
	HTTPClient *http.Client
	// Tracer defaults to a no-op tracer if nil.
	Tracer trace.Tracer
}

type request struct {
	op     string
	system string
	user   string
}

// Client performs text generation requests.
type Client struct {
	api      openai.Client
	hasKey   bool
	model    string
	cacheTTL time.Duration
	tracer   trace.Tracer
	cache    *cachemanager.ReadThroughCache[string, request]
	policy   *bluemonday.Policy
}

// New creates a Client. A missing API key is not an error here; every call
// reports it instead so hosts can surface it where the user asked for help.
func New(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("assist")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	c := &Client{
		api:      openai.NewClient(opts...),
		hasKey:   strings.TrimSpace(cfg.APIKey) != "",
		model:    model,
		cacheTTL: ttl,
		tracer:   tracer,
		policy:   bluemonday.StrictPolicy(),
	}
	store := cachemanager.NewInMemoryCacheManager[string]("assist", ttl, cachemanager.DefaultCleanupInterval)
	c.cache = cachemanager.NewReadThroughCache(store, c.complete, false)
	return c
}

// Enhance rewrites free text, such as a summary, to read more professionally.
// section names where the text appears in the résumé.
func (c *Client) Enhance(ctx context.Context, text, section string) (string, error) {
	return c.run(ctx, request{
		op:     opEnhance,
		system: enhancePrompt,
		user:   "Section: " + section + "\n\nText:\n" + text,
	})
}

// Transform rewrites a single experience bullet for the given role.
func (c *Client) Transform(ctx context.Context, bullet, role string) (string, error) {
	return c.run(ctx, request{
		op:     opTransform,
		system: transformPrompt,
		user:   "Role: " + role + "\n\nBullet:\n" + bullet,
	})
}

// Stats returns cache hit and miss counts.
func (c *Client) Stats() (hits, misses int64) {
	return c.cache.Stats()
}

func (c *Client) run(ctx context.Context, req request) (string, error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanPrefixAssist+req.op,
		trace.WithAttributes(
			attribute.String(tracing.AttrAssistModel, c.model),
			attribute.Int(tracing.AttrInputBytes, len(req.user)),
		))
	defer span.End()

	if !c.hasKey {
		err := &Error{Kind: KindConfig, Op: req.op, Err: ErrMissingAPIKey}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	key := cachemanager.Key(req.op, c.model, req.system, req.user)
	out, err := c.cache.Get(ctx, key, req, c.cacheTTL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.ErrorErr(log.CatAssist, "Request failed", err, "op", req.op)
		return "", err
	}
	span.SetAttributes(attribute.Int(tracing.AttrOutputBytes, len(out)))
	return out, nil
}

// complete performs one uncached request.
func (c *Client) complete(ctx context.Context, req request) (string, error) {
	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.system),
			openai.UserMessage(req.user),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			trace.SpanFromContext(ctx).SetAttributes(attribute.Int(tracing.AttrHTTPStatus, apiErr.StatusCode))
			return "", &Error{Kind: KindUpstream, Op: req.op, Status: apiErr.StatusCode, Err: err}
		}
		return "", &Error{Kind: KindUpstream, Op: req.op, Err: err}
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(tracing.AttrHTTPStatus, http.StatusOK))

	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindUpstream, Op: req.op, Err: errors.New("response has no choices")}
	}
	out := c.clean(resp.Choices[0].Message.Content)
	log.Debug(log.CatAssist, "Request completed", "op", req.op, "duration", time.Since(start), "bytes", len(out))
	return out, nil
}

// clean strips markup from model output and trims it.
func (c *Client) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(s)))
}

const enhancePrompt = `You improve résumé text. Rewrite the user's text to be concise, ` +
	`specific and professional. Keep every fact, invent nothing, and answer with the ` +
	`rewritten text only, without quotes or commentary.`

const transformPrompt = `You rewrite a single résumé bullet point for the given role. ` +
	`Start with a strong verb, quantify impact when the bullet already contains numbers, ` +
	`and answer with one line of plain text only.`
