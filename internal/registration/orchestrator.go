// Package registration creates an account in the local store and its profile
// in the remote profile service as one logical operation.
//
// The steps run strictly in order and never retry:
//
//	Start → Validated → EmailChecked → PhoneChecked → LocalCreated → RemoteProvisioned
//
// A remote failure after LocalCreated deletes the local account before the
// outcome is returned.
package registration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/atinyakov/GophAuth/internal/models"
)

// AccountStore is the part of the local store registration needs.
type AccountStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, account models.Account) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Hasher turns a plaintext password into an opaque hash.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// ProfileService is the remote profile service contract.
type ProfileService interface {
	PhoneExists(ctx context.Context, phone string) (bool, error)
	CreateProfile(ctx context.Context, req models.ProfileRequest) error
}

type state string

const (
	stateValidated    state = "validated"
	stateEmailChecked state = "email_checked"
	statePhoneChecked state = "phone_checked"
	stateLocalCreated state = "local_created"
	stateProvisioned  state = "remote_provisioned"
	stateCompensated  state = "compensated"
)

// Options tunes an Orchestrator. Zero values pick defaults.
type Options struct {
	// CompensationTimeout bounds the rollback delete.
	CompensationTimeout time.Duration
	// Now is the clock used for CreatedAt.
	Now func() time.Time
	// NewID generates account ids.
	NewID func() (uuid.UUID, error)
}

// Orchestrator sequences one registration. It holds no per-call state and is
// safe for concurrent use.
type Orchestrator struct {
	checker     uniquenessChecker
	registrar   registrar
	provisioner provisioner
	log         *zap.Logger
	tracer      trace.Tracer
}

// NewOrchestrator wires the registration pipeline. A nil logger or tracer
// is replaced by a no-op one.
func NewOrchestrator(accounts AccountStore, hasher Hasher, profiles ProfileService, log *zap.Logger, tracer trace.Tracer, opts Options) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("registration")
	}
	if opts.CompensationTimeout <= 0 {
		opts.CompensationTimeout = DefaultCompensationTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewRandom
	}

	return &Orchestrator{
		checker: uniquenessChecker{accounts: accounts, profiles: profiles},
		registrar: registrar{
			accounts: accounts,
			hasher:   hasher,
			now:      opts.Now,
			newID:    opts.NewID,
		},
		provisioner: provisioner{
			accounts: accounts,
			profiles: profiles,
			log:      log,
			timeout:  opts.CompensationTimeout,
		},
		log:    log,
		tracer: tracer,
	}
}

// Register runs the whole pipeline and returns exactly one Outcome. No raw
// store or transport error escapes other than in Outcome.Err.
func (o *Orchestrator) Register(ctx context.Context, req models.RegistrationRequest) Outcome {
	ctx, span := o.tracer.Start(ctx, "registration.Register")
	defer span.End()

	account, err := o.run(ctx, req)
	out := classify(account, err)

	span.SetAttributes(attribute.String("registration.outcome", out.Kind.String()))
	switch out.Kind {
	case Created:
		span.SetAttributes(attribute.String("account.id", out.Account.ID.String()))
		o.log.Info("account registered", zap.Stringer("account_id", out.Account.ID))
	case InternalError:
		span.RecordError(err)
		span.SetStatus(codes.Error, "registration failed")
		o.log.Error("registration failed", zap.String("email", req.Email), zap.Error(err))
	case UpstreamUnavailable:
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile service unavailable")
		o.log.Warn("registration aborted, profile service unavailable",
			zap.Int("upstream_status", out.UpstreamStatus), zap.Error(err))
	default:
		o.log.Debug("registration rejected", zap.Stringer("outcome", out.Kind), zap.Error(err))
	}
	return out
}

func (o *Orchestrator) run(ctx context.Context, req models.RegistrationRequest) (models.Account, error) {
	span := trace.SpanFromContext(ctx)

	if err := Validate(req); err != nil {
		return models.Account{}, err
	}
	o.advance(span, stateValidated)

	if err := o.checker.checkEmail(ctx, req.Email); err != nil {
		return models.Account{}, err
	}
	o.advance(span, stateEmailChecked)

	if err := o.checker.checkPhone(ctx, req.PhoneNumber); err != nil {
		return models.Account{}, err
	}
	o.advance(span, statePhoneChecked)

	account, err := o.registrar.create(ctx, req)
	if err != nil {
		// A cancelled insert may still have committed.
		if account.ID != uuid.Nil && ctx.Err() != nil {
			o.provisioner.compensate(ctx, account, err)
		}
		return models.Account{}, err
	}
	o.advance(span, stateLocalCreated)

	if err := o.provisioner.provision(ctx, account, req); err != nil {
		return models.Account{}, err
	}
	o.advance(span, stateProvisioned)

	return account, nil
}

func (o *Orchestrator) advance(span trace.Span, s state) {
	span.AddEvent(string(s))
	o.log.Debug("registration state", zap.String("state", string(s)))
}
