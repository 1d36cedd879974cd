package consentservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ggoodman/consent-message-go/cache"
	"github.com/ggoodman/consent-message-go/consent"
)

// Description strings of the errors returned by ConsentMessage.
const (
	decodeFailedDescription = "Failed to decode the argument"
)

// supportedStandards is returned by SupportedStandards, in order.
var supportedStandards = [...]consent.SupportedStandard{
	{Name: "ICRC-10", URL: "https://github.com/dfinity/ICRCs/ICRC-10.md"},
	{Name: "ICRC-21", URL: "https://github.com/dfinity/ICRC/blob/main/ICRCs/ICRC-21/ICRC-21.md"},
}

// Service routes consent message requests to registered operations. It holds
// no mutable state after construction and is safe for concurrent use.
type Service struct {
	ops      map[string]Operation
	names    []string
	log      *slog.Logger
	cache    cache.Cache
	cacheTTL time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithOperations replaces the default operation set (Greet) with ops.
func WithOperations(ops ...Operation) Option {
	return func(s *Service) {
		s.ops = make(map[string]Operation, len(ops))
		for _, op := range ops {
			s.ops[op.Name()] = op
		}
	}
}

// WithLogger sets the logger. If not provided, logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCache memoizes successful consent envelopes in c for ttl (zero means
// no expiry). Cache failures are logged and otherwise ignored.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// New constructs a Service. By default it serves the Greet operation.
func New(opts ...Option) *Service {
	s := &Service{
		log: slog.New(slog.DiscardHandler),
	}
	WithOperations(Greet())(s)
	for _, opt := range opts {
		opt(s)
	}
	for name := range s.ops {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s
}

// Methods returns the names of the registered operations, sorted.
func (s *Service) Methods() []string {
	return append([]string(nil), s.names...)
}

// SupportedStandards lists the standards implemented by this service.
func (s *Service) SupportedStandards(ctx context.Context) []consent.SupportedStandard {
	return append([]consent.SupportedStandard(nil), supportedStandards[:]...)
}

// ConsentMessage produces the consent message for req. Failures the caller
// can act on are returned as *consent.Error; nothing is ever partially
// produced.
func (s *Service) ConsentMessage(ctx context.Context, req *consent.ConsentMessageRequest) (*consent.ConsentInfo, error) {
	if req == nil {
		return nil, consent.UnsupportedOperation("missing consent message request")
	}

	op, ok := s.ops[req.Method]
	if !ok {
		s.log.InfoContext(ctx, "consent.method.unsupported", slog.String("method", req.Method))
		return nil, consent.UnsupportedOperation(s.unsupportedDescription())
	}

	key := ""
	if s.cache != nil {
		key = cacheKey(req)
		if info := s.lookup(ctx, req.Method, key); info != nil {
			return info, nil
		}
	}

	desc, err := op.Describe(req.Arg)
	if err != nil {
		s.log.InfoContext(ctx, "consent.arg.decode.fail", slog.String("method", req.Method), slog.String("err", err.Error()))
		return nil, consent.UnsupportedOperation(decodeFailedDescription)
	}

	info, err := Compose(desc, req.UserPreferences.DeviceSpec)
	if err != nil {
		var ce *consent.Error
		if !errors.As(err, &ce) {
			s.log.ErrorContext(ctx, "consent.compose.fail", slog.String("err", err.Error()))
		}
		return nil, err
	}

	if s.cache != nil {
		s.store(ctx, req.Method, key, info)
	}
	s.log.DebugContext(ctx, "consent.compose.ok", slog.String("method", req.Method))
	return info, nil
}

// ErrNoCache is returned by cache maintenance calls on a Service built
// without WithCache.
var ErrNoCache = errors.New("consentservice: no cache configured")

// Forget drops the cached envelope for req, if there is one.
func (s *Service) Forget(ctx context.Context, req *consent.ConsentMessageRequest) error {
	if s.cache == nil {
		return ErrNoCache
	}
	if err := s.cache.Delete(ctx, cache.WithNamespace(req.Method), cache.WithKey(cacheKey(req))); err != nil {
		return fmt.Errorf("forget %s: %w", req.Method, err)
	}
	return nil
}

// FlushCache drops every cached envelope of the named methods, or of all
// registered methods when none are named.
func (s *Service) FlushCache(ctx context.Context, methods ...string) error {
	if s.cache == nil {
		return ErrNoCache
	}
	if len(methods) == 0 {
		methods = s.names
	}
	var errs []error
	for _, m := range methods {
		if err := s.cache.Delete(ctx, cache.WithNamespace(m)); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", m, err))
		}
	}
	s.log.InfoContext(ctx, "consent.cache.flush", slog.Int("methods", len(methods)), slog.Int("failed", len(errs)))
	return errors.Join(errs...)
}

func (s *Service) unsupportedDescription() string {
	quoted := make([]string, len(s.names))
	for i, n := range s.names {
		quoted[i] = "'" + n + "'"
	}
	switch len(quoted) {
	case 0:
		return "No methods are supported"
	case 1:
		return fmt.Sprintf("Only the %s method is supported", quoted[0])
	default:
		return fmt.Sprintf("Only the %s methods are supported", strings.Join(quoted, ", "))
	}
}

func (s *Service) lookup(ctx context.Context, method, key string) *consent.ConsentInfo {
	item, err := s.cache.Get(ctx, key, cache.WithNamespace(method))
	if err != nil {
		s.log.WarnContext(ctx, "consent.cache.get.fail", slog.String("err", err.Error()))
		return nil
	}
	if item == nil {
		s.log.DebugContext(ctx, "consent.cache.miss")
		return nil
	}
	var info consent.ConsentInfo
	if err := json.Unmarshal(item.Data, &info); err != nil {
		s.log.WarnContext(ctx, "consent.cache.decode.fail", slog.String("err", err.Error()))
		return nil
	}
	s.log.DebugContext(ctx, "consent.cache.hit")
	return &info
}

func (s *Service) store(ctx context.Context, method, key string, info *consent.ConsentInfo) {
	b, err := json.Marshal(info)
	if err != nil {
		s.log.WarnContext(ctx, "consent.cache.encode.fail", slog.String("err", err.Error()))
		return
	}
	opts := []cache.Option{cache.WithNamespace(method)}
	if s.cacheTTL > 0 {
		opts = append(opts, cache.WithTTL(s.cacheTTL))
	}
	if err := s.cache.Set(ctx, key, b, opts...); err != nil {
		s.log.WarnContext(ctx, "consent.cache.set.fail", slog.String("err", err.Error()))
	}
}

// cacheKey digests everything the envelope depends on. Requested metadata is
// excluded: the reply locale is fixed.
func cacheKey(req *consent.ConsentMessageRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%s", len(req.Method), req.Method)
	fmt.Fprintf(h, "%d:", len(req.Arg))
	h.Write(req.Arg)
	if spec := req.UserPreferences.DeviceSpec; spec != nil {
		fmt.Fprintf(h, "%d:%d:%d", spec.Kind, spec.CharactersPerLine, spec.LinesPerPage)
	} else {
		h.Write([]byte("-"))
	}
	return hex.EncodeToString(h.Sum(nil))
}
