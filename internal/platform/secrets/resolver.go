package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	scheme              = "secret://"
	defaultFallbackPath = ".secrets.local"
	defaultTimeout      = 5 * time.Second
)

var clientFactory = func(ctx context.Context, opts ...option.ClientOption) (accessor, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Resolver turns secret://name references into values stored in Secret
// Manager. When the service cannot be reached, values come from a local
// dotenv-style fallback file keyed by the upper-cased secret name.
type Resolver struct {
	client     accessor
	ownsClient bool
	project    string
	timeout    time.Duration
	backoff    gax.Backoff
	logger     *zap.Logger

	fallbackPath string
	fallbackOnce sync.Once
	fallbackVals map[string]string
	fallbackErr  error
}

type resolverConfig struct {
	project      string
	fallbackPath string
	timeout      time.Duration
	logger       *zap.Logger
	client       accessor
	clientOpts   []option.ClientOption
}

// Option customises NewResolver.
type Option func(*resolverConfig)

// WithProject sets the project used when a reference does not name one.
func WithProject(project string) Option {
	return func(cfg *resolverConfig) {
		cfg.project = strings.TrimSpace(project)
	}
}

// WithFallbackFile overrides the local fallback file. An empty path disables it.
func WithFallbackFile(path string) Option {
	return func(cfg *resolverConfig) {
		cfg.fallbackPath = strings.TrimSpace(path)
	}
}

// WithTimeout bounds each resolution including retries.
func WithTimeout(d time.Duration) Option {
	return func(cfg *resolverConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *resolverConfig) {
		cfg.logger = logger
	}
}

// WithClientOptions forwards options to the Secret Manager client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(cfg *resolverConfig) {
		cfg.clientOpts = append(cfg.clientOpts, opts...)
	}
}

func withClient(client accessor) Option {
	return func(cfg *resolverConfig) {
		cfg.client = client
	}
}

// IsReference reports whether value names a secret instead of holding one.
func IsReference(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), scheme)
}

// NewResolver builds a Resolver. A Secret Manager client that cannot be
// created leaves the resolver in fallback-only mode.
func NewResolver(ctx context.Context, opts ...Option) (*Resolver, error) {
	cfg := resolverConfig{
		fallbackPath: defaultFallbackPath,
		timeout:      defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	r := &Resolver{
		project:      cfg.project,
		timeout:      cfg.timeout,
		backoff:      gax.Backoff{Initial: 50 * time.Millisecond, Max: time.Second, Multiplier: 2},
		logger:       cfg.logger,
		fallbackPath: cfg.fallbackPath,
	}
	if cfg.client != nil {
		r.client = cfg.client
		return r, nil
	}
	client, err := clientFactory(ctx, cfg.clientOpts...)
	if err != nil {
		cfg.logger.Warn("secret manager client unavailable; using fallback file only", zap.Error(err))
		return r, nil
	}
	r.client = client
	r.ownsClient = true
	return r, nil
}

// Close releases the Secret Manager client when the resolver created it.
func (r *Resolver) Close() error {
	if r.ownsClient && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Resolve returns value unchanged unless it is a secret:// reference, in
// which case the referenced secret is fetched.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}
	ref, err := parseReference(value)
	if err != nil {
		return "", err
	}
	project := ref.project
	if project == "" {
		project = r.project
	}

	if r.client != nil && project != "" {
		secret, err := r.fetch(ctx, project, ref)
		if err == nil {
			return secret, nil
		}
		if !isFallbackError(err) {
			return "", fmt.Errorf("secrets: fetch %s: %w", ref.name, err)
		}
		r.logger.Warn("secret manager unreachable; trying fallback file", zap.String("secret", ref.name), zap.Error(err))
	}

	if secret, ok := r.lookupFallback(ref.name); ok {
		return secret, nil
	}
	if r.fallbackErr != nil {
		return "", fmt.Errorf("secrets: %s not resolved: %w", ref.name, r.fallbackErr)
	}
	return "", fmt.Errorf("secrets: %s not resolved", ref.name)
}

func (r *Resolver) fetch(ctx context.Context, project string, ref reference) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, ref.name, ref.version),
	}
	backoff := r.backoff
	retry := gax.WithRetry(func() gax.Retryer {
		return gax.OnCodes([]codes.Code{codes.Unavailable}, backoff)
	})

	var resp *secretmanagerpb.AccessSecretVersionResponse
	err := gax.Invoke(ctx, func(ctx context.Context, _ gax.CallSettings) error {
		var callErr error
		resp, callErr = r.client.AccessSecretVersion(ctx, req)
		return callErr
	}, retry)
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("empty payload for %s", req.Name)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (r *Resolver) lookupFallback(name string) (string, bool) {
	r.fallbackOnce.Do(func() {
		r.fallbackVals = map[string]string{}
		if r.fallbackPath == "" {
			return
		}
		values, err := godotenv.Read(r.fallbackPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				r.fallbackErr = err
			}
			return
		}
		r.fallbackVals = values
	})
	value, ok := r.fallbackVals[fallbackKey(name)]
	return value, ok
}

type reference struct {
	name    string
	version string
	project string
}

func parseReference(raw string) (reference, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return reference{}, fmt.Errorf("secrets: invalid reference %q: %w", raw, err)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" || strings.Contains(name, "/") {
		return reference{}, fmt.Errorf("secrets: reference %q needs secret://name", raw)
	}
	q := u.Query()
	version := strings.TrimSpace(q.Get("version"))
	if version == "" {
		version = "latest"
	}
	return reference{name: name, version: version, project: strings.TrimSpace(q.Get("project"))}, nil
}

// fallbackKey maps "cart-cookie-key" to "CART_COOKIE_KEY".
func fallbackKey(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

func isFallbackError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}
