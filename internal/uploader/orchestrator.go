package uploader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"qapp_backend/internal/adapters/storage"
	"qapp_backend/platform/logger"
	"qapp_backend/platform/validator"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	MinItems = 1
	MaxItems = 10

	maxHashtags      = 10
	maxHashtagLength = 30

	defaultCompressConcurrency = 4
	defaultCompensationTimeout = 30 * time.Second
)

// Dependencies are the collaborators a session sequences. Compensator is
// optional; without it objects of a failed session are left for the
// server-side orphan sweep.
type Dependencies struct {
	Compressor  Compressor
	Presigner   Presigner
	Store       ObjectStore
	Records     RecordCreator
	Compensator Compensator
}

// Options tune an Orchestrator. Zero values select the defaults.
type Options struct {
	MaxFileSize         int64
	CompressConcurrency int
	CompensationTimeout time.Duration
	Validator           *validator.Validator
	Logger              *logger.Logger
}

// Orchestrator starts upload sessions. It holds no per-session state and
// may be shared.
type Orchestrator struct {
	deps Dependencies
	opts Options
	val  *validator.Validator
	log  *logger.Logger
}

// New creates an orchestrator.
func New(deps Dependencies, opts Options) (*Orchestrator, error) {
	if deps.Presigner == nil || deps.Store == nil || deps.Records == nil {
		return nil, errors.New("uploader: presigner, object store and record creator are required")
	}
	if deps.Compressor == nil {
		deps.Compressor = PassthroughCompressor{}
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = storage.MaxImageSize
	}
	if opts.CompressConcurrency <= 0 {
		opts.CompressConcurrency = defaultCompressConcurrency
	}
	if opts.CompensationTimeout <= 0 {
		opts.CompensationTimeout = defaultCompensationTimeout
	}

	val := opts.Validator
	if val == nil {
		val = validator.New()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &Orchestrator{deps: deps, opts: opts, val: val, log: log}, nil
}

// Start validates the input and runs the pipeline on a new goroutine.
// Validation failures are returned as *ValidationError before any network
// call. The caller's items are not modified.
func (o *Orchestrator) Start(ctx context.Context, items []Item, meta Metadata, observer Observer) (*Session, error) {
	prepared, err := o.prepare(items, meta)
	if err != nil {
		return nil, err
	}

	s := newSession(ctx, uuid.NewString(), prepared)
	go o.run(s, prepared, meta, observer)
	return s, nil
}

// Upload runs a session to completion.
func (o *Orchestrator) Upload(ctx context.Context, items []Item, meta Metadata, observer Observer) (Record, error) {
	s, err := o.Start(ctx, items, meta, observer)
	if err != nil {
		return Record{}, err
	}
	return s.Wait()
}

// Validate runs the pre-flight checks of Start without starting a session.
func (o *Orchestrator) Validate(items []Item, meta Metadata) error {
	_, err := o.prepare(items, meta)
	return err
}

func (o *Orchestrator) prepare(items []Item, meta Metadata) ([]Item, error) {
	if len(items) < MinItems || len(items) > MaxItems {
		return nil, &ValidationError{Reason: fmt.Sprintf("between %d and %d images are required, got %d", MinItems, MaxItems, len(items))}
	}

	prepared := make([]Item, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if item.Name == "" {
			item.Name = fmt.Sprintf("image-%d", i+1)
		}
		item.ContentType = storage.NormalizeContentType(item.ContentType)
		if err := storage.ValidateContentType(item.ContentType); err != nil {
			return nil, &ValidationError{Index: i + 1, Name: item.Name, Reason: err.Error(), Err: err}
		}
		if err := storage.ValidateFileSize(item.Size(), o.opts.MaxFileSize); err != nil {
			return nil, &ValidationError{Index: i + 1, Name: item.Name, Reason: err.Error(), Err: err}
		}
		if item.ClientID == "" {
			item.ClientID = uuid.NewString()
		}
		if seen[item.ClientID] {
			return nil, &ValidationError{Index: i + 1, Name: item.Name, Reason: fmt.Sprintf("duplicate client id %q", item.ClientID)}
		}
		seen[item.ClientID] = true
		prepared[i] = item
	}

	if err := o.val.Struct(meta); err != nil {
		fields := validator.Fields(err)
		reasons := make([]string, 0, len(fields))
		for _, f := range fields {
			reasons = append(reasons, f.String())
		}
		return nil, &ValidationError{Reason: "invalid metadata: " + strings.Join(reasons, "; "), Err: err}
	}

	tags := NormalizeHashtags(meta.Hashtags)
	if len(tags) > maxHashtags {
		return nil, &ValidationError{Reason: fmt.Sprintf("at most %d hashtags are allowed, got %d", maxHashtags, len(tags))}
	}
	for _, tag := range tags {
		if utf8.RuneCountInString(tag) > maxHashtagLength {
			return nil, &ValidationError{Reason: fmt.Sprintf("hashtag %q exceeds %d characters", tag, maxHashtagLength)}
		}
	}

	return prepared, nil
}

func (o *Orchestrator) run(s *Session, items []Item, meta Metadata, observer Observer) {
	defer close(s.done)
	defer s.cancel()

	rec, uploaded, err := o.execute(s, items, meta, observer)
	if err != nil {
		if len(uploaded) > 0 {
			o.compensate(s, uploaded)
		}
		stage, _ := StageOf(err)
		o.log.Warn("upload session failed", "session_id", s.id, "stage", string(stage), "error", err)
		o.notify(observer, s.fail(err))
		return
	}

	o.log.Info("upload session complete", "session_id", s.id, "record_id", rec.ID, "images", len(items))
	o.notify(observer, s.complete(rec))
}

// execute runs the phases in order. The returned keys are the objects
// uploaded before a failure.
func (o *Orchestrator) execute(s *Session, items []Item, meta Metadata, observer Observer) (Record, []string, error) {
	o.notify(observer, s.advance(PhaseCompressing, progressCompressing))
	compressed, err := o.compress(s, items)
	if err != nil {
		return Record{}, nil, err
	}
	o.notify(observer, s.advance(PhaseUploading, progressCompressed))

	if err := s.ctx.Err(); err != nil {
		return Record{}, nil, &CancelledError{During: StagePresign, Err: err}
	}
	grants, err := o.presign(s.ctx, compressed)
	if err != nil {
		return Record{}, nil, err
	}

	urls, keys, err := o.upload(s, compressed, grants, observer)
	if err != nil {
		return Record{}, keys, err
	}

	if err := s.ctx.Err(); err != nil {
		return Record{}, keys, &CancelledError{During: StageCreate, Err: err}
	}
	o.notify(observer, s.advance(PhaseCreating, progressCreating))

	rec, err := o.create(s.ctx, meta, urls)
	if err != nil {
		return Record{}, keys, err
	}
	return rec, keys, nil
}

func (o *Orchestrator) compress(s *Session, items []Item) ([]Item, error) {
	out := make([]Item, len(items))

	g, gctx := errgroup.WithContext(s.ctx)
	g.SetLimit(o.opts.CompressConcurrency)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := o.deps.Compressor.Compress(gctx, item)
			if err != nil {
				return &CompressionError{Index: i + 1, Name: item.Name, Err: err}
			}

			c.ClientID = item.ClientID
			if c.Name == "" {
				c.Name = item.Name
			}
			c.ContentType = storage.NormalizeContentType(c.ContentType)
			if err := storage.ValidateContentType(c.ContentType); err != nil {
				return &CompressionError{Index: i + 1, Name: item.Name, Err: err}
			}
			if err := storage.ValidateFileSize(c.Size(), o.opts.MaxFileSize); err != nil {
				return &CompressionError{Index: i + 1, Name: item.Name, Err: err}
			}

			out[i] = c
			s.setItem(i, func(p *ItemProgress) {
				p.Name = c.Name
				p.ContentType = c.ContentType
				p.Size = c.Size()
				p.State = ItemCompressed
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return nil, &CancelledError{During: StageCompress, Err: ctxErr}
		}
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) presign(ctx context.Context, items []Item) ([]Grant, error) {
	files := make([]PresignFile, len(items))
	for i, item := range items {
		files[i] = PresignFile{
			ClientID:    item.ClientID,
			Filename:    item.Name,
			ContentType: item.ContentType,
			Size:        item.Size(),
		}
	}

	grants, err := o.deps.Presigner.PresignBatch(ctx, files)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &CancelledError{During: StagePresign, Err: ctxErr}
		}
		pe := &AuthOrPresignError{Message: err.Error(), Err: err}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			pe.StatusCode = httpErr.StatusCode
			pe.Message = httpErr.Message
		}
		return nil, pe
	}

	return matchGrants(items, grants)
}

// matchGrants orders grants like items, matching on client id. A response
// without any client ids is matched by position.
func matchGrants(items []Item, grants []Grant) ([]Grant, error) {
	if len(grants) != len(items) {
		return nil, &AuthOrPresignError{Message: fmt.Sprintf("expected %d grants, got %d", len(items), len(grants))}
	}

	positional := true
	for _, g := range grants {
		if g.ClientID != "" {
			positional = false
			break
		}
	}

	ordered := make([]Grant, len(items))
	if positional {
		copy(ordered, grants)
	} else {
		byID := make(map[string]Grant, len(grants))
		for _, g := range grants {
			if g.ClientID == "" {
				return nil, &AuthOrPresignError{Message: "grant without client id in a correlated response"}
			}
			if _, dup := byID[g.ClientID]; dup {
				return nil, &AuthOrPresignError{Message: fmt.Sprintf("duplicate grant for client id %q", g.ClientID)}
			}
			byID[g.ClientID] = g
		}
		for i, item := range items {
			g, ok := byID[item.ClientID]
			if !ok {
				return nil, &AuthOrPresignError{Message: fmt.Sprintf("no grant for image %d (%s)", i+1, item.Name)}
			}
			ordered[i] = g
		}
	}

	for i, g := range ordered {
		if g.PresignedURL == "" || g.PublicURL == "" {
			return nil, &AuthOrPresignError{Message: fmt.Sprintf("incomplete grant for image %d", i+1)}
		}
	}
	return ordered, nil
}

// upload PUTs items strictly in index order. It returns the public URLs and
// object keys of the items uploaded so far.
func (o *Orchestrator) upload(s *Session, items []Item, grants []Grant, observer Observer) ([]string, []string, error) {
	n := len(items)
	urls := make([]string, 0, n)
	keys := make([]string, 0, n)

	for i, item := range items {
		if err := s.ctx.Err(); err != nil {
			return urls, keys, &CancelledError{During: StageUpload, Err: err}
		}

		g := grants[i]
		if err := o.deps.Store.Put(s.ctx, g.PresignedURL, item.ContentType, item.Data); err != nil {
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return urls, keys, &CancelledError{During: StageUpload, Err: ctxErr}
			}
			ue := &UploadError{Index: i + 1, Name: item.Name, Err: err}
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				ue.StatusCode = httpErr.StatusCode
			}
			return urls, keys, ue
		}

		urls = append(urls, g.PublicURL)
		if g.Key != "" {
			keys = append(keys, g.Key)
		}
		s.appendURL(g.PublicURL)
		s.setItem(i, func(p *ItemProgress) {
			p.State = ItemUploaded
			p.PublicURL = g.PublicURL
		})
		o.notify(observer, s.advance(PhaseUploading, progressCompressed+uploadSpan*float64(i+1)/float64(n)))
	}
	return urls, keys, nil
}

func (o *Orchestrator) create(ctx context.Context, meta Metadata, urls []string) (Record, error) {
	rec, err := o.deps.Records.CreateRecord(ctx, RecordRequest{
		Title:      meta.Title,
		CourseCode: meta.CourseCode,
		CourseName: meta.CourseName,
		Level:      meta.Level,
		Year:       meta.Year,
		Semester:   meta.Semester,
		Hashtags:   NormalizeHashtags(meta.Hashtags),
		Images:     urls,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Record{}, &CancelledError{During: StageCreate, Err: ctxErr}
		}
		re := &RecordCreationError{Message: err.Error(), Err: err}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			re.StatusCode = httpErr.StatusCode
			re.Message = httpErr.Message
		}
		return Record{}, re
	}
	if rec.ID == "" {
		return Record{}, &RecordCreationError{Message: "response did not contain a record id"}
	}
	return rec, nil
}

// compensate deletes the objects of a failed session. Its outcome never
// replaces the session error.
func (o *Orchestrator) compensate(s *Session, keys []string) {
	if o.deps.Compensator == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), o.opts.CompensationTimeout)
	defer cancel()

	if err := o.deps.Compensator.Discard(ctx, keys); err != nil {
		o.log.Warn("failed to discard uploaded objects", "session_id", s.id, "keys", len(keys), "error", err)
		return
	}
	s.setDiscarded(keys)
	o.log.Info("discarded uploaded objects", "session_id", s.id, "keys", len(keys))
}

func (o *Orchestrator) notify(observer Observer, snap Snapshot) {
	o.log.UploadPhase(snap.SessionID, string(snap.Phase), snap.Progress)
	if observer != nil {
		observer.OnProgress(snap)
	}
}
