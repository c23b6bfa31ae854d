package request

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/household-ledger/internal/dal"
	"github.com/household-ledger/internal/ledgererr"
	"github.com/household-ledger/internal/logging"
)

// OperationKind classifies an incoming operation. Only mutations may commit.
type OperationKind string

const (
	KindQuery        OperationKind = "query"
	KindMutation     OperationKind = "mutation"
	KindSubscription OperationKind = "subscription"
)

// IntrospectionSentinel is the trivial liveness probe UI clients send.
// Operations matching it never acquire a transaction.
const IntrospectionSentinel = "{__typename}"

// Classify derives the operation kind from the raw operation source. The
// source either opens with an explicit operation keyword or uses the
// shorthand form, which is always a query.
func Classify(source string) OperationKind {
	trimmed := strings.TrimLeftFunc(source, unicode.IsSpace)
	switch {
	case strings.HasPrefix(trimmed, "mutation"):
		return KindMutation
	case strings.HasPrefix(trimmed, "subscription"):
		return KindSubscription
	default:
		return KindQuery
	}
}

// IsIntrospection reports whether the raw source is the introspection
// sentinel, ignoring surrounding and internal whitespace.
func IsIntrospection(source string) bool {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, source)
	return compact == IntrospectionSentinel
}

// fieldName extracts the first top-level field from the operation source,
// e.g. "accountBalance" from `query ($t: ID!) { accountBalance(...) {...} }`.
func fieldName(source string) string {
	body := source
	if idx := strings.Index(source, "{"); idx >= 0 {
		body = source[idx+1:]
	}
	body = strings.TrimLeftFunc(body, unicode.IsSpace)
	end := 0
	for end < len(body) {
		c := rune(body[end])
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' {
			break
		}
		end++
	}
	return body[:end]
}

// Resolver executes one operation field against the request's data-access
// facade. The facade is handed in explicitly and must not be retained.
type Resolver func(ctx context.Context, d *dal.DAL, vars map[string]interface{}) (interface{}, error)

// Operation is one incoming request envelope.
type Operation struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Executor dispatches operations to registered resolvers, wrapping each in
// a request scope with the commit/rollback policy of its kind.
type Executor struct {
	beginner       TxBeginner
	acquireTimeout time.Duration
	logger         *logging.Logger
	queries        map[string]Resolver
	mutations      map[string]Resolver
}

// NewExecutor creates an executor over the given transaction source.
func NewExecutor(beginner TxBeginner, acquireTimeout time.Duration, logger *logging.Logger) *Executor {
	return &Executor{
		beginner:       beginner,
		acquireTimeout: acquireTimeout,
		logger:         logger,
		queries:        make(map[string]Resolver),
		mutations:      make(map[string]Resolver),
	}
}

// RegisterQuery registers a resolver for a query (or subscription) field.
func (e *Executor) RegisterQuery(field string, r Resolver) {
	e.queries[field] = r
}

// RegisterMutation registers a resolver for a mutation field.
func (e *Executor) RegisterMutation(field string, r Resolver) {
	e.mutations[field] = r
}

// Execute runs one operation end to end: introspection probes are answered
// by a stub without touching the database; everything else runs inside a
// freshly acquired scope that is ended exactly once before the result is
// returned. The resolver's error is always re-surfaced, even when the
// rollback it triggered had trouble of its own.
func (e *Executor) Execute(ctx context.Context, op Operation) (interface{}, error) {
	if IsIntrospection(op.Query) {
		return map[string]interface{}{"__typename": "Query"}, nil
	}

	kind := Classify(op.Query)
	field := fieldName(op.Query)
	if field == "" {
		return nil, ledgererr.NewValidation("query", "no operation field")
	}

	var resolver Resolver
	var ok bool
	if kind == KindMutation {
		resolver, ok = e.mutations[field]
	} else {
		resolver, ok = e.queries[field]
	}
	if !ok {
		return nil, ledgererr.NewValidation("query", "unknown operation field: "+field)
	}

	scope, err := Acquire(ctx, e.beginner, e.acquireTimeout, e.logger)
	if err != nil {
		return nil, err
	}

	opLogger := e.logger.WithFields(map[string]interface{}{
		"operation": field,
		"kind":      string(kind),
	})
	start := time.Now()

	result, opErr := func() (res interface{}, rErr error) {
		// Ending in a defer guarantees release even if the resolver panics;
		// a panic counts as an errored execution, so mutations roll back.
		defer func() {
			if p := recover(); p != nil {
				rErr = ledgererr.NewInternal("resolver panicked", nil)
				opLogger.WithField("panic", p).Error("resolver panicked")
			}
			scope.End(ctx, kind, rErr)
		}()
		return resolver(logging.IntoContext(ctx, opLogger), scope.DAL(), op.Variables)
	}()

	if opErr != nil {
		opLogger.WithError(opErr).Warn("operation failed")
		return nil, opErr
	}
	opLogger.WithField("duration", time.Since(start).String()).Debug("operation completed")
	return map[string]interface{}{field: result}, nil
}
