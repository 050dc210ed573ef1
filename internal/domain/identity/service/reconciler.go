package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"botdash-server-go/internal/domain/identity/aggregate"
	"botdash-server-go/internal/domain/identity/repository"
	apierrors "botdash-server-go/internal/platform/errors"
	"botdash-server-go/internal/platform/logging"
	"botdash-server-go/internal/platform/observability"
)

// TemporaryID is the placeholder user id returned when settings could
// not be durably attached to any record.
const TemporaryID = "temporary-id"

// WarningNotPersisted tags degraded responses: the request succeeded
// from the client's point of view but nothing was saved.
const WarningNotPersisted = "settings were not persisted; the account store is inconsistent"

// Request carries the session identity the reconciler works from.
// Settings is the payload to persist on the write path, nil on reads.
type Request struct {
	SubjectID string
	Email     string
	Name      string
	Settings  map[string]any
}

// Outcome tags the reconciliation result.
type Outcome int

const (
	// OutcomeResolved means a durable record was located or created.
	OutcomeResolved Outcome = iota
	// OutcomeDegraded means persistence was abandoned; the response
	// carries the requested or default settings plus a warning.
	OutcomeDegraded
)

// Resolution is the reconciler's answer. Resolved carries Record;
// Degraded carries Settings and Warning instead.
type Resolution struct {
	Outcome  Outcome
	Record   *aggregate.Identity
	Settings map[string]any
	Warning  string
}

// UserID returns the id clients see for this resolution.
func (r *Resolution) UserID() string {
	if r.Outcome == OutcomeResolved && r.Record != nil {
		return r.Record.ID
	}
	return TemporaryID
}

// Reconciler locates or materializes the identity record behind an
// authenticated session when the primary-key lookup is insufficient.
// Lookup failures drive the next strategy instead of failing the
// request; the design favors returning something usable to the client
// over surfacing identity ambiguity.
type Reconciler struct {
	repo    repository.IdentityRepository
	logger  *logging.Logger
	cleanup bool
}

// NewReconciler builds the reconciler. cleanup enables best-effort
// deletion of superfluous records when the fuzzy scan finds several.
func NewReconciler(repo repository.IdentityRepository, logger *logging.Logger, cleanup bool) *Reconciler {
	return &Reconciler{
		repo:    repo,
		logger:  logger,
		cleanup: cleanup,
	}
}

// lookupStrategy attempts one way of locating an existing record.
// Returning (nil, nil) means "try the next one".
type lookupStrategy struct {
	name string
	run  func(ctx context.Context, req *Request) (*aggregate.Identity, error)
}

func (r *Reconciler) lookupStrategies() []lookupStrategy {
	return []lookupStrategy{
		{
			name: "primary_key",
			run: func(ctx context.Context, req *Request) (*aggregate.Identity, error) {
				if req.SubjectID == "" {
					return nil, nil
				}
				return r.repo.FindByID(ctx, req.SubjectID)
			},
		},
		{
			name: "email_fold",
			run: func(ctx context.Context, req *Request) (*aggregate.Identity, error) {
				if req.Email == "" {
					return nil, nil
				}
				return r.repo.FindByEmailFold(ctx, req.Email)
			},
		},
		{
			name: "email_exact",
			run: func(ctx context.Context, req *Request) (*aggregate.Identity, error) {
				if req.Email == "" {
					return nil, nil
				}
				return r.repo.FindByEmail(ctx, req.Email)
			},
		},
	}
}

// GetSettings resolves the caller's record and returns its settings,
// falling back to the defaults when the record has none.
func (r *Reconciler) GetSettings(ctx context.Context, subjectID, email, name string) (*Resolution, error) {
	req := &Request{SubjectID: subjectID, Email: email, Name: name}

	res, err := r.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.Outcome == OutcomeResolved && res.Record.Settings == nil {
		res.Record.Settings = aggregate.DefaultSettings()
	}
	return res, nil
}

// UpdateSettings resolves the caller's record and overwrites its
// settings with the supplied payload.
func (r *Reconciler) UpdateSettings(ctx context.Context, subjectID, email, name string, settings map[string]any) (*Resolution, error) {
	if settings == nil {
		return nil, apierrors.BadRequest("settings.update", "settings payload required")
	}
	req := &Request{SubjectID: subjectID, Email: email, Name: name, Settings: settings}

	res, err := r.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.Outcome == OutcomeDegraded {
		return res, nil
	}

	res.Record.Settings = settings
	if err := r.repo.Update(ctx, res.Record); err != nil {
		return nil, apierrors.Wrap("settings.update", "failed to persist settings", err)
	}
	return res, nil
}

func (r *Reconciler) resolve(ctx context.Context, req *Request) (res *Resolution, err error) {
	ctx, endSpan := observability.StartSpan(ctx, "identity", "reconcile")
	defer func() { endSpan(err) }()

	for _, strategy := range r.lookupStrategies() {
		record, err := strategy.run(ctx, req)
		if err != nil {
			// Lookup failures degrade to "not found" and the cascade
			// continues.
			r.logger.Warn("[RECONCILE] %s lookup failed, continuing: %v", strategy.name, err)
			continue
		}
		if record != nil {
			return &Resolution{Outcome: OutcomeResolved, Record: record}, nil
		}
	}

	if strings.TrimSpace(req.Email) == "" {
		return nil, apierrors.BadRequest("identity.reconcile", "no email available to locate or create the account")
	}

	created := aggregate.NewIdentity(req.Name, req.Email, req.Settings)
	err = r.repo.Create(ctx, created)
	if err == nil {
		return &Resolution{Outcome: OutcomeResolved, Record: created}, nil
	}
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, apierrors.Wrap("identity.reconcile", "failed to create account record", err)
	}

	// Another record already holds this email under some normalization
	// the earlier lookups did not find.
	return r.reconcileFuzzy(ctx, req)
}

// reconcileFuzzy is reached only after a duplicate-key conflict. It
// scans every record and matches emails by bidirectional containment,
// case-insensitively. The loose match is deliberate: it absorbs
// whitespace and casing drift between providers, at the known risk of
// matching unrelated addresses that happen to be substrings of one
// another.
func (r *Reconciler) reconcileFuzzy(ctx context.Context, req *Request) (*Resolution, error) {
	all, err := r.repo.FindAll(ctx)
	if err != nil {
		return nil, apierrors.Wrap("identity.reconcile", "failed to scan account records", err)
	}

	subject := strings.ToLower(strings.TrimSpace(req.Email))
	var candidates []*aggregate.Identity
	for _, record := range all {
		email := strings.ToLower(strings.TrimSpace(record.Email))
		if email == "" {
			continue
		}
		if email == subject || strings.Contains(email, subject) || strings.Contains(subject, email) {
			candidates = append(candidates, record)
		}
	}

	switch len(candidates) {
	case 0:
		return r.retryCreateNormalized(ctx, req, subject)
	case 1:
		return &Resolution{Outcome: OutcomeResolved, Record: candidates[0]}, nil
	default:
		return r.adoptNewest(ctx, candidates), nil
	}
}

// retryCreateNormalized makes one last creation attempt with the
// lower-cased, trimmed email. A second duplicate conflict with zero
// visible candidates means the store is inconsistent beyond repair from
// here; the caller gets a degraded success rather than an error.
func (r *Reconciler) retryCreateNormalized(ctx context.Context, req *Request, normalized string) (*Resolution, error) {
	created := aggregate.NewIdentity(req.Name, normalized, req.Settings)
	err := r.repo.Create(ctx, created)
	if err == nil {
		return &Resolution{Outcome: OutcomeResolved, Record: created}, nil
	}
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, apierrors.Wrap("identity.reconcile", "failed to create account record", err)
	}

	r.logger.Warn("[RECONCILE] duplicate conflict with no visible candidates for %s, returning degraded response", normalized)

	settings := req.Settings
	if settings == nil {
		settings = aggregate.DefaultSettings()
	}
	return &Resolution{
		Outcome:  OutcomeDegraded,
		Settings: settings,
		Warning:  WarningNotPersisted,
	}, nil
}

// adoptNewest picks the most recently created candidate. Records whose
// timestamp could not be recovered sort as epoch zero, so they lose to
// any record with a real one.
func (r *Reconciler) adoptNewest(ctx context.Context, candidates []*aggregate.Identity) *Resolution {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	winner := candidates[0]

	if r.cleanup {
		for _, loser := range candidates[1:] {
			if err := r.repo.Delete(ctx, loser.ID); err != nil {
				// Best effort; a failed deletion never aborts the response.
				r.logger.Warn("[RECONCILE] cleanup of record %s failed: %v", loser.ID, err)
			}
		}
	}

	return &Resolution{Outcome: OutcomeResolved, Record: winner}
}
