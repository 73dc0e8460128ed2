package guard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"unicode/utf8"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/cache"
	"github.com/jonwraymond/chatguard/observe"
	"github.com/jonwraymond/chatguard/ratelimit"
	"github.com/jonwraymond/chatguard/validate"
)

// shadowParams are Params keys reserved for top-level Request fields.
var shadowParams = map[string]bool{"text": true, "roomId": true, "roomName": true}

// paramCheckers validates the known keys of Request.Params.
var paramCheckers = map[string]func(*validate.Validator, any) validate.Result{
	"messageId": (*validate.Validator).MessageID,
	"threadId":  (*validate.Validator).ThreadID,
	"userId":    (*validate.Validator).UserID,
	"username":  (*validate.Validator).Username,
	"query":     (*validate.Validator).Query,
	"emoji":     (*validate.Validator).Emoji,
}

// Pipeline runs requests through the guard stages of a Container.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: an identity already attached with auth.WithIdentity is used
//     as is; otherwise credentials are read from headers attached with
//     auth.WithHeaders.
//   - Errors: a rejected request returns a *Denial; upstream errors are
//     returned unchanged and never cached.
type Pipeline struct {
	c       *Container
	check   observe.ExecuteFunc
	execute observe.ExecuteFunc
}

type call struct {
	req      *Request
	upstream cache.ExecutorFunc
}

func newPipeline(c *Container) *Pipeline {
	p := &Pipeline{c: c}
	p.check = c.middleware.Wrap(func(ctx context.Context, _ observe.OperationMeta, input any) (any, error) {
		return p.admit(ctx, input.(*call).req)
	})
	p.execute = c.middleware.Wrap(func(ctx context.Context, _ observe.OperationMeta, input any) (any, error) {
		return p.run(ctx, input.(*call))
	})
	return p
}

// Check runs every admission stage without calling upstream. A write that
// passes has consumed one unit of its caller's quota.
func (p *Pipeline) Check(ctx context.Context, req *Request) (*Decision, error) {
	if req == nil {
		return nil, newDenial(CodeValidation, StageValidate, "request is required", validate.ErrInvalidInput)
	}
	out, err := p.check(ctx, p.meta(ctx, req), &call{req: req})
	if err != nil {
		return nil, err
	}
	return out.(*Decision), nil
}

// Execute admits req and then calls upstream: directly for writes, through
// the read-through cache for everything else. Reads with a Schema have the
// upstream body validated in the configured schema mode before it is
// cached.
func (p *Pipeline) Execute(ctx context.Context, req *Request, upstream cache.ExecutorFunc) ([]byte, error) {
	if upstream == nil {
		return nil, ErrNilUpstream
	}
	if req == nil {
		return nil, newDenial(CodeValidation, StageValidate, "request is required", validate.ErrInvalidInput)
	}
	out, err := p.execute(ctx, p.meta(ctx, req), &call{req: req, upstream: upstream})
	body, _ := out.([]byte)
	return body, err
}

func (p *Pipeline) meta(ctx context.Context, req *Request) observe.OperationMeta {
	k := req.kind()
	policy, err := p.policy(req, k)
	if err != nil {
		policy = defaultPolicy(k)
	}
	kind := string(k)
	if !k.valid() {
		kind = "unknown"
	}
	meta := observe.OperationMeta{Kind: kind, Name: req.Operation, Policy: policy}
	if id := auth.IdentityFromContext(ctx); id != nil {
		meta.Caller = id.Principal
	}
	return meta
}

func (p *Pipeline) run(ctx context.Context, c *call) ([]byte, error) {
	d, err := p.admit(ctx, c.req)
	if err != nil {
		return nil, err
	}
	ctx = auth.WithIdentity(ctx, d.identity)
	params := d.UpstreamParams()

	if d.Kind == KindWrite {
		return c.upstream(ctx, d.Operation, params)
	}

	exec := c.upstream
	if c.req.Schema != nil {
		mode := p.c.safety.Load().SchemaMode
		exec = func(ctx context.Context, operation string, params any) ([]byte, error) {
			body, err := c.upstream(ctx, operation, params)
			if err != nil {
				return nil, err
			}
			if err := validate.Apply(ctx, c.req.Schema, mode, body, p.c.logger); err != nil {
				return nil, fmt.Errorf("guard: %s response: %w", operation, err)
			}
			return body, nil
		}
	}
	return p.c.cacheMW.Execute(ctx, d.Operation, params, exec)
}

// admit runs authenticate, validate, rate limit and, for writes, the write
// guard, the length limit and the sanitizer.
func (p *Pipeline) admit(ctx context.Context, req *Request) (*Decision, error) {
	if req.Operation == "" {
		return nil, newDenial(CodeValidation, StageValidate, "operation is required", validate.ErrInvalidInput)
	}

	id, err := p.authenticate(ctx, req.Operation)
	if err != nil {
		return nil, err
	}

	k := req.kind()
	if !k.valid() {
		den := newDenial(CodeValidation, StageValidate, fmt.Sprintf("Unknown kind %q", k), validate.ErrInvalidInput)
		den.Field = "kind"
		return nil, den
	}
	policy, err := p.policy(req, k)
	if err != nil {
		return nil, err
	}
	d := &Decision{
		Operation: req.Operation,
		Kind:      k,
		Policy:    policy,
		Caller:    id.RateKey(),
		Method:    id.Method,
		identity:  id,
	}

	if err := p.validate(ctx, req, d); err != nil {
		return nil, err
	}
	if err := p.limit(ctx, d); err != nil {
		return nil, err
	}
	if k != KindWrite {
		return d, nil
	}
	if err := p.authorizeWrite(ctx, req, d); err != nil {
		return nil, err
	}
	if err := p.sanitize(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// policy resolves the rate-limit policy of req. A caller-supplied name must be
// configured, and a write may not pick a policy looser than write.
func (p *Pipeline) policy(req *Request, k Kind) (string, error) {
	name := req.policy(k)
	if req.Policy == "" {
		return name, nil
	}
	cfg, ok := p.c.limits.Policy(name)
	if !ok {
		den := newDenial(CodeValidation, StageValidate, fmt.Sprintf("Unknown rate limit policy %q", name),
			&validate.FieldError{Field: "policy", Reason: "not configured"})
		den.Field = "policy"
		return "", den
	}
	if k != KindWrite {
		return name, nil
	}
	if write, _ := p.c.limits.Policy(ratelimit.PolicyWrite); !cfg.Within(write) {
		den := newDenial(CodeValidation, StageValidate,
			fmt.Sprintf("Rate limit policy %q is looser than %s for a write", name, ratelimit.PolicyWrite),
			&validate.FieldError{Field: "policy", Reason: "looser than write"})
		den.Field = "policy"
		return "", den
	}
	return name, nil
}

func (p *Pipeline) authenticate(ctx context.Context, operation string) (*auth.Identity, error) {
	if id := auth.IdentityFromContext(ctx); id != nil {
		return id, nil
	}
	result, err := p.c.Authenticator().Authenticate(ctx, auth.RequestFromContext(ctx, operation))
	if err != nil {
		return nil, fmt.Errorf("guard: authenticate: %w", err)
	}
	if !result.Authenticated {
		cause := result.Error
		if cause == nil {
			cause = auth.ErrInvalidCredentials
		}
		return nil, newDenial(CodeUnauthenticated, StageAuth, cause.Error(), cause)
	}
	return result.Identity, nil
}

func (p *Pipeline) validate(ctx context.Context, req *Request, d *Decision) error {
	v := p.c.validator
	metrics := p.c.metrics

	fail := func(r validate.Result) error {
		metrics.RecordValidationFailure(ctx, r.Field())
		return validationDenial(r)
	}

	if req.RoomID != "" || d.Kind == KindWrite {
		r := v.RoomID(req.RoomID)
		if !r.Valid {
			return fail(r)
		}
		d.RoomID = r.Sanitized
	}
	if req.Text != "" {
		r := v.MessageText(req.Text)
		if !r.Valid {
			return fail(r)
		}
		d.Text = r.Sanitized
	}

	if len(req.Params) == 0 {
		return nil
	}
	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d.Params = make(map[string]any, len(req.Params))
	for _, k := range keys {
		raw := req.Params[k]
		if shadowParams[k] {
			den := newDenial(CodeValidation, StageValidate,
				fmt.Sprintf("params.%s is not allowed, use the top-level %s field", k, k),
				&validate.FieldError{Field: k, Reason: "duplicates a request field"})
			den.Field = k
			metrics.RecordValidationFailure(ctx, k)
			return den
		}
		switch k {
		case "limit":
			d.Params[k] = validate.PageLimit(raw)
			continue
		case "offset":
			d.Params[k] = validate.Offset(raw, 0)
			continue
		}
		checker, ok := paramCheckers[k]
		if !ok {
			if d.Kind == KindWrite && !scalar(raw) {
				den := newDenial(CodeValidation, StageValidate,
					fmt.Sprintf("params.%s must be a string, number or boolean on a write", k),
					&validate.FieldError{Field: k, Reason: "not a scalar"})
				den.Field = k
				metrics.RecordValidationFailure(ctx, k)
				return den
			}
			d.Params[k] = raw
			d.free = append(d.free, k)
			continue
		}
		r := checker(v, raw)
		if !r.Valid {
			return fail(r)
		}
		d.Params[k] = r.Sanitized
	}
	return nil
}

func (p *Pipeline) limit(ctx context.Context, d *Decision) error {
	r := p.c.limits.Check(d.Policy, d.Caller)
	p.c.metrics.RecordRateLimit(ctx, d.Policy, r.Allowed)
	if r.Allowed {
		d.Remaining = r.Remaining
		return nil
	}
	return rateLimitDenial(&ratelimit.LimitError{
		Policy:     d.Policy,
		Key:        d.Caller,
		Limit:      p.c.limits.Limiter(d.Policy).Config().MaxRequests,
		RetryAfter: r.RetryAfter,
		ResetAt:    r.ResetAt,
	})
}

func (p *Pipeline) authorizeWrite(ctx context.Context, req *Request, d *Decision) error {
	err := p.c.WriteGuard().Authorize(ctx, &auth.AuthzRequest{
		Subject:    d.identity,
		TargetID:   d.RoomID,
		TargetName: req.RoomName,
		Action:     auth.ActionWrite,
	})
	if err == nil {
		return nil
	}
	var authzErr *auth.AuthzError
	if !errors.As(err, &authzErr) {
		return newDenial(CodePermissionDenied, StageWrite, err.Error(), err)
	}
	p.c.metrics.RecordWriteDenial(ctx, authzErr.Code)
	p.c.logger.Debug(ctx, "write denied",
		observe.F("operation", d.Operation),
		observe.F("room", d.RoomID),
		observe.F("code", authzErr.Code),
	)
	return writeDenial(authzErr)
}

func (p *Pipeline) sanitize(ctx context.Context, d *Decision) error {
	if d.Text != "" {
		text, err := p.sanitizeText(ctx, d, "text", d.Text)
		if err != nil {
			return err
		}
		d.Text = text
	}
	for _, k := range d.free {
		s, ok := d.Params[k].(string)
		if !ok || s == "" {
			continue
		}
		text, err := p.sanitizeText(ctx, d, k, s)
		if err != nil {
			return err
		}
		d.Params[k] = text
	}
	return nil
}

// sanitizeText applies the length limit and the sanitizer to one outbound
// string of a write and records what was neutralized on d.
func (p *Pipeline) sanitizeText(ctx context.Context, d *Decision, field, text string) (string, error) {
	limit := p.c.safety.Load().MaxMessageLength
	if n := utf8.RuneCountInString(text); n > limit {
		p.c.metrics.RecordValidationFailure(ctx, field)
		msg := fmt.Sprintf("Message text exceeds maximum length of %d", limit)
		if field != "text" {
			msg = fmt.Sprintf("params.%s exceeds maximum length of %d", field, limit)
		}
		den := newDenial(CodeValidation, StageSanitize, msg,
			&validate.FieldError{Field: field, Reason: "too long"})
		den.Field = field
		return "", den
	}

	res := p.c.Sanitizer().Sanitize(text)
	for _, rule := range res.Neutralized {
		p.c.metrics.RecordNeutralized(ctx, rule, 1)
		if !slices.Contains(d.Neutralized, rule) {
			d.Neutralized = append(d.Neutralized, rule)
		}
	}
	d.Sanitized = d.Sanitized || res.Modified
	return res.Text, nil
}

func scalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, float32, float64, json.Number,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
