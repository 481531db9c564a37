package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"acadrive/internal/config"
	"acadrive/internal/dedup"
	"acadrive/internal/fingerprint"
	"acadrive/internal/identity"
	"acadrive/internal/model"
	"acadrive/internal/query"
	"acadrive/internal/repository"
	"acadrive/internal/storage"
	"acadrive/internal/vote"
)

// DefaultLinkExpiry is used by DownloadURL for a non-positive expiry.
const DefaultLinkExpiry = 15 * time.Minute

const (
	maxSubjectName = 200
	maxSubjectCode = 50
	maxFileName    = 255
)

var tracer = otel.Tracer("acadrive/internal/service")

// UploadInput is one upload request. Content is read once, up to the configured limit.
type UploadInput struct {
	SubjectName  string
	SubjectCode  string
	Semester     int
	ResourceType string
	FileName     string
	Content      io.Reader
}

// BrowseResult is the service-level DTO for a filtered catalog listing.
type BrowseResult struct {
	Items []model.Resource `json:"data"`
	Total int              `json:"total"`
}

// CatalogService defines the use cases of the resource catalog.
type CatalogService interface {
	// Upload validates, fingerprints and deduplicates the file, stores the blob and then
	// the catalog row. A failed row insert removes the blob again.
	Upload(ctx context.Context, in UploadInput) (*model.Resource, error)

	// Browse returns every resource matching f in ranking order.
	Browse(ctx context.Context, f query.Filters) (*BrowseResult, error)

	// Get returns a single resource by its ID.
	Get(ctx context.Context, id string) (*model.Resource, error)

	// Vote applies one vote by the current identity. publish may be nil; see vote.Applier.
	Vote(ctx context.Context, id string, dir model.VoteDirection, publish func(model.Resource)) (vote.Outcome, error)

	// Delete removes a resource owned by the current identity, row first, then blob.
	Delete(ctx context.Context, id string) error

	// Open streams the stored file of a resource. The caller closes the reader.
	Open(ctx context.Context, id string) (io.ReadCloser, *model.Resource, error)

	// DownloadURL returns a time-limited link to the stored file.
	DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error)
}

// Deps are the collaborators of the catalog service.
type Deps struct {
	Repo     repository.ResourceRepository
	Store    storage.Storage
	Identity identity.Provider
	Ledger   vote.Ledger
	Upload   config.UploadConfig
	Logger   *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type catalogService struct {
	repo    repository.ResourceRepository
	store   storage.Storage
	ids     identity.Provider
	guard   *dedup.Guard
	applier *vote.Applier
	limits  config.UploadConfig
	log     *slog.Logger
	now     func() time.Time
}

// NewCatalogService constructs a new CatalogService.
func NewCatalogService(d Deps) CatalogService {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Ledger == nil {
		d.Ledger = vote.NopLedger{}
	}
	d.Upload = d.Upload.WithDefaults()
	return &catalogService{
		repo:    d.Repo,
		store:   d.Store,
		ids:     d.Identity,
		guard:   dedup.NewGuard(d.Repo),
		applier: vote.NewApplier(d.Ledger, d.Repo, d.Identity, d.Logger),
		limits:  d.Upload,
		log:     d.Logger,
		now:     d.Now,
	}
}

func (s *catalogService) Upload(ctx context.Context, in UploadInput) (_ *model.Resource, err error) {
	ctx, span := tracer.Start(ctx, "catalog.Upload")
	defer func() { finish(span, err) }()

	res, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	data, contentType, err := s.readFile(in.Content)
	if err != nil {
		return nil, err
	}

	owner, err := s.ids.ID(ctx)
	if err != nil {
		return nil, err
	}

	fp, err := fingerprint.Compute(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("resource.file_hash", fp), attribute.Int("resource.size", len(data)))

	conflict, err := s.guard.Check(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if conflict != nil {
		s.log.InfoContext(ctx, "upload rejected as duplicate", "file_hash", fp, "existing_id", conflict.ResourceID)
		return nil, conflict
	}

	now := s.now()
	key := storage.ObjectKey(now, fp, res.FileName)
	if _, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": res.FileName,
			"file-hash":         fp,
		},
	}); err != nil {
		return nil, fmt.Errorf("%w: upload to storage: %w", ErrStorage, err)
	}

	res.ID = uuid.NewString()
	res.FileURL = s.store.URL(key)
	res.FileHash = fp
	res.OwnerID = owner
	res.CreatedAt = now.UTC()

	stored, err := s.repo.Create(ctx, res)
	if err == nil {
		s.log.InfoContext(ctx, "resource uploaded", "resource_id", stored.ID, "key", key, "owner_id", owner)
		return stored, nil
	}

	// Rollback: the row was not written, so the blob must not stay.
	var cause error
	if errors.Is(err, repository.ErrDuplicateHash) {
		cause = s.guard.Conflict(ctx, fp)
	} else {
		cause = fmt.Errorf("%w: save metadata: %w", ErrStorage, err)
	}
	if delErr := s.store.Delete(ctx, key); delErr != nil && !errors.Is(delErr, storage.ErrObjectNotFound) {
		s.log.ErrorContext(ctx, "orphaned object after failed upload",
			"key", key, "file_hash", fp, "error", err, "rollback_error", delErr)
		if errors.Is(cause, dedup.ErrDuplicate) {
			return nil, cause
		}
		return nil, &PartialWriteError{Op: "upload", Key: key, Err: errors.Join(err, delErr)}
	}
	return nil, cause
}

// validate checks the metadata and returns the resource skeleton it describes.
func (s *catalogService) validate(in UploadInput) (*model.Resource, error) {
	name := strings.TrimSpace(in.SubjectName)
	if name == "" {
		return nil, invalid("subject_name", "is required")
	}
	if utf8.RuneCountInString(name) > maxSubjectName {
		return nil, invalid("subject_name", "must be at most %d characters", maxSubjectName)
	}
	code := strings.TrimSpace(in.SubjectCode)
	if utf8.RuneCountInString(code) > maxSubjectCode {
		return nil, invalid("subject_code", "must be at most %d characters", maxSubjectCode)
	}
	if in.Semester < model.MinSemester || in.Semester > model.MaxSemester {
		return nil, invalid("semester", "must be between %d and %d", model.MinSemester, model.MaxSemester)
	}
	rt, err := model.ParseResourceType(strings.TrimSpace(in.ResourceType))
	if err != nil {
		return nil, invalid("resource_type", "%v", err)
	}
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		return nil, invalid("file", "a file name is required")
	}
	if utf8.RuneCountInString(fileName) > maxFileName {
		return nil, invalid("file", "name must be at most %d characters", maxFileName)
	}
	if in.Content == nil {
		return nil, invalid("file", "is required")
	}
	return &model.Resource{
		SubjectName:  name,
		SubjectCode:  code,
		Semester:     in.Semester,
		ResourceType: rt,
		FileName:     fileName,
	}, nil
}

// readFile reads at most MaxBytes+1 bytes and checks size and the sniffed content type.
func (s *catalogService) readFile(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.limits.MaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", invalid("file", "is empty")
	}
	if int64(len(data)) > s.limits.MaxBytes {
		return nil, "", invalid("file", "must be at most %d bytes", s.limits.MaxBytes)
	}
	detected := http.DetectContentType(data)
	mediaType, _, _ := strings.Cut(detected, ";")
	mediaType = strings.TrimSpace(mediaType)
	if !slices.Contains(s.limits.AllowedContentTypes, mediaType) {
		return nil, "", invalid("file", "content type %s is not allowed (allowed: %s)",
			mediaType, strings.Join(s.limits.AllowedContentTypes, ", "))
	}
	return data, mediaType, nil
}

func (s *catalogService) Browse(ctx context.Context, f query.Filters) (*BrowseResult, error) {
	var owner string
	if f.OwnerOnly {
		id, err := s.ids.ID(ctx)
		if err != nil {
			return nil, err
		}
		owner = id
	}

	q, err := query.Compose(f, owner)
	if err != nil {
		switch {
		case errors.Is(err, query.ErrOwnerRequired):
			return nil, identity.ErrMissing
		case errors.Is(err, query.ErrInvalidFilter):
			return nil, invalid("filters", "%s", strings.TrimPrefix(err.Error(), query.ErrInvalidFilter.Error()+": "))
		}
		return nil, err
	}

	items, err := s.repo.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: query catalog: %w", ErrStorage, err)
	}
	items = q.Apply(items)
	return &BrowseResult{Items: items, Total: len(items)}, nil
}

func (s *catalogService) Get(ctx context.Context, id string) (*model.Resource, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return res, nil
}

func (s *catalogService) Vote(ctx context.Context, id string, dir model.VoteDirection, publish func(model.Resource)) (_ vote.Outcome, err error) {
	ctx, span := tracer.Start(ctx, "catalog.Vote", trace.WithAttributes(
		attribute.String("resource.id", id),
		attribute.String("vote.direction", string(dir)),
	))
	defer func() { finish(span, err) }()

	if !dir.Valid() {
		return vote.Outcome{}, invalid("direction", "must be %q or %q", model.VoteUp, model.VoteDown)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return vote.Outcome{}, err
	}

	out, err := s.applier.Apply(ctx, *current, dir, publish)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrMissing):
			return out, err
		case errors.Is(err, repository.ErrNotFound):
			return out, ErrNotFound
		}
		return out, fmt.Errorf("%w: vote: %w", ErrStorage, err)
	}
	span.SetAttributes(attribute.Bool("vote.applied", out.Applied))
	return out, nil
}

func (s *catalogService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "catalog.Delete", trace.WithAttributes(attribute.String("resource.id", id)))
	defer func() { finish(span, err) }()

	owner, err := s.ids.ID(ctx)
	if err != nil {
		return err
	}
	res, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if res.OwnerID != owner {
		return ErrForbidden
	}
	key, keyErr := storage.KeyFromURL(res.FileURL)

	if err := s.repo.Delete(ctx, id, owner); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: delete row: %w", ErrStorage, err)
	}

	if keyErr != nil {
		s.log.ErrorContext(ctx, "resource deleted but object key unknown", "resource_id", id, "file_url", res.FileURL, "error", keyErr)
		return &PartialWriteError{Op: "delete", ResourceID: id, Err: keyErr}
	}
	if err := s.store.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.log.WarnContext(ctx, "object already gone", "resource_id", id, "key", key)
			return nil
		}
		s.log.ErrorContext(ctx, "orphaned object after delete", "resource_id", id, "key", key, "error", err)
		return &PartialWriteError{Op: "delete", Key: key, ResourceID: id, Err: err}
	}
	s.log.InfoContext(ctx, "resource deleted", "resource_id", id, "key", key)
	return nil
}

func (s *catalogService) Open(ctx context.Context, id string) (io.ReadCloser, *model.Resource, error) {
	res, key, err := s.locate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.log.WarnContext(ctx, "catalog row without object", "resource_id", id, "key", key)
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: download: %w", ErrStorage, err)
	}
	return rc, res, nil
}

func (s *catalogService) DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = DefaultLinkExpiry
	}
	_, key, err := s.locate(ctx, id)
	if err != nil {
		return "", err
	}
	link, err := s.store.PresignGet(ctx, key, expiry)
	if err != nil {
		return "", fmt.Errorf("%w: presign: %w", ErrStorage, err)
	}
	return link, nil
}

// locate resolves a resource and the object key its file is stored under.
func (s *catalogService) locate(ctx context.Context, id string) (*model.Resource, string, error) {
	res, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	key, err := storage.KeyFromURL(res.FileURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return res, key, nil
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
