package reconcile

import (
	"context"
	"log"
	"strconv"
	"strings"

	"authorsync/internal/markup"
	"authorsync/internal/taxonomy"
	"authorsync/pkg/models"
	"authorsync/pkg/utils"
)

// MediaResolver turns an image reference (attachment id or URL) into an
// attachment id. Implemented by media.Store.
type MediaResolver interface {
	Resolve(ctx context.Context, value string) (int64, error)
}

type Config struct {
	SKUMetaKey  string
	SiteBaseURL string
}

// Service upserts exactly one term per sync payload. No state persists
// between calls except the term store itself.
type Service struct {
	Terms  *taxonomy.Repo
	Media  MediaResolver
	Conf   Config
	Logger *log.Logger
}

func NewService(terms *taxonomy.Repo, media MediaResolver, conf Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if conf.SKUMetaKey == "" {
		conf.SKUMetaKey = "author_sku"
	}
	return &Service{Terms: terms, Media: media, Conf: conf, Logger: logger}
}

// metadata key holding the resolved attachment id
const profileImageMetaKey = "profile_image_id"

// coreInput is the payload's view of the three core term fields.
type coreInput struct {
	name    string
	hasName bool
	slug    string
	hasSlug bool
	desc    string // sanitized HTML, valid only when hasDesc
	hasDesc bool
}

func extractCore(p models.SyncPayload) coreInput {
	var in coreInput
	in.name, in.hasName = p.GetAny(models.FieldName, models.FieldAuthorTitle)
	in.hasName = in.hasName && in.name != ""

	in.slug, in.hasSlug = p.Get(models.FieldSlug)
	in.hasSlug = in.hasSlug && in.slug != ""

	if raw, ok := p.Get(models.FieldAuthorDesc); ok {
		in.hasDesc = true
		in.desc = markup.Normalize(raw)
	}
	return in
}

// lookupSlug is the slug used for the legacy fallback match: the payload's
// slug when given, else derived from the name.
func (in coreInput) lookupSlug() string {
	if in.hasSlug {
		return in.slug
	}
	if in.hasName {
		return utils.Slugify(in.name)
	}
	return ""
}

// Sync validates the payload, finds-or-creates the term keyed by SKU,
// writes only what changed and reports it.
func (s *Service) Sync(ctx context.Context, p models.SyncPayload) (*models.SyncResult, error) {
	sku := strings.TrimSpace(p.SKU)
	if sku == "" {
		return nil, ErrMissingSKU
	}

	in := extractCore(p)

	term, err := s.Terms.FindBySKU(ctx, s.Conf.SKUMetaKey, sku)
	if err != nil {
		return nil, &StoreError{Op: "lookup by sku", Err: err}
	}
	if term == nil {
		// legacy terms created before SKU tagging are adopted by slug
		if slug := in.lookupSlug(); slug != "" {
			term, err = s.Terms.FindBySlug(ctx, slug)
			if err != nil {
				return nil, &StoreError{Op: "lookup by slug", Err: err}
			}
		}
	}

	if status, ok := p.Get(models.FieldStatus); ok && status == models.StatusTrash {
		return s.trash(ctx, p, term)
	}

	changed := models.ChangedFields{Core: []string{}, Meta: []string{}}
	created := false

	if term == nil {
		term, created, err = s.create(ctx, in)
		if err != nil {
			return nil, err
		}
		if created {
			changed.Core = append(changed.Core, "name", "slug")
			if in.hasDesc && in.desc != "" {
				changed.Core = append(changed.Core, "description")
			}
		}
	}

	if !created {
		core, err := s.updateCore(ctx, term, in)
		if err != nil {
			return nil, err
		}
		changed.Core = append(changed.Core, core...)
	}

	// the SKU meta is the join key: written on every sync so it never drifts
	if err := s.Terms.SetMeta(ctx, term.ID, s.Conf.SKUMetaKey, sku); err != nil {
		if !taxonomy.IsConflict(err) {
			return nil, &StoreError{Op: "write sku meta", Err: err}
		}
		// another term already owns this SKU: a concurrent create won the
		// race. Drop the loser and continue as an update of the winner.
		winner, ferr := s.Terms.FindBySKU(ctx, s.Conf.SKUMetaKey, sku)
		if ferr != nil || winner == nil {
			return nil, &ConflictError{Op: "write sku meta", Err: err}
		}
		if created {
			_, _ = s.Terms.DeleteTerm(ctx, term.ID)
		}
		term = winner
		created = false
		changed.Core = changed.Core[:0]
		core, uerr := s.updateCore(ctx, term, in)
		if uerr != nil {
			return nil, uerr
		}
		changed.Core = append(changed.Core, core...)
	}

	meta, err := s.applyMeta(ctx, term.ID, p)
	if err != nil {
		return nil, err
	}
	changed.Meta = append(changed.Meta, meta...)

	// image failures never abort the sync: core fields and metadata above
	// have already committed
	if ref, ok := p.GetAny(models.FieldProfileImage, models.FieldProfileImageLink); ok && ref != "" {
		if name, imgChanged := s.attachImage(ctx, term.ID, sku, ref); imgChanged {
			changed.Meta = append(changed.Meta, name)
		}
	}

	action := models.ActionUpdated
	if created {
		action = models.ActionCreated
	}

	return &models.SyncResult{
		TermID:   term.ID,
		TermURL:  s.termURL(term.Slug),
		Action:   action,
		RecordID: p.Record(),
		Changed:  changed,
	}, nil
}

func (s *Service) trash(ctx context.Context, p models.SyncPayload, term *models.Term) (*models.SyncResult, error) {
	res := &models.SyncResult{
		Action:   models.ActionTrashed,
		RecordID: p.Record(),
		Changed:  models.ChangedFields{Core: []string{}, Meta: []string{}},
	}
	if term == nil {
		// unknown SKU: nothing to delete, still a success
		return res, nil
	}
	if _, err := s.Terms.DeleteTerm(ctx, term.ID); err != nil {
		return nil, &StoreError{Op: "delete term", Err: err}
	}
	res.TermID = term.ID
	return res, nil
}

// create inserts a new term. A duplicate-slug conflict means someone holds
// the slug already; that term is adopted and the sync proceeds as an
// update (created == false).
func (s *Service) create(ctx context.Context, in coreInput) (*models.Term, bool, error) {
	if !in.hasName {
		return nil, false, ErrMissingName
	}
	slug := in.slug
	if !in.hasSlug {
		slug = utils.Slugify(in.name)
	}
	desc := ""
	if in.hasDesc {
		desc = in.desc
	}

	id, err := s.Terms.CreateTerm(ctx, in.name, slug, desc)
	if err == nil {
		return &models.Term{ID: id, Name: in.name, Slug: slug, Description: desc}, true, nil
	}
	if !taxonomy.IsConflict(err) {
		return nil, false, &StoreError{Op: "create term", Err: err}
	}

	existing, ferr := s.Terms.FindBySlug(ctx, slug)
	if ferr != nil || existing == nil {
		return nil, false, &ConflictError{Op: "create term", Err: err}
	}
	return existing, false, nil
}

// updateCore writes the core-field set only when something changed and
// mutates term to the stored state. Omitted fields stay untouched.
func (s *Service) updateCore(ctx context.Context, term *models.Term, in coreInput) ([]string, error) {
	changed := []string{}
	next := *term

	if in.hasName && in.name != term.Name {
		next.Name = in.name
		changed = append(changed, "name")
	}
	if in.hasSlug && in.slug != term.Slug {
		next.Slug = in.slug
		changed = append(changed, "slug")
	}
	if in.hasDesc && in.desc != term.Description {
		next.Description = in.desc
		changed = append(changed, "description")
	}

	if len(changed) == 0 {
		return changed, nil
	}

	if err := s.Terms.UpdateTerm(ctx, next); err != nil {
		if taxonomy.IsConflict(err) {
			return nil, &ConflictError{Op: "update term", Err: err}
		}
		return nil, &StoreError{Op: "update term", Err: err}
	}
	*term = next
	return changed, nil
}

// whitelisted metadata fields, stored under their payload names
var metaWhitelist = []struct {
	field    string
	sanitize bool
}{
	{models.FieldASDesc, true},
	{models.FieldNewsDesc, true},
	{models.FieldStatus, false},
}

func (s *Service) applyMeta(ctx context.Context, termID int64, p models.SyncPayload) ([]string, error) {
	changed := []string{}

	for _, w := range metaWhitelist {
		value, ok := p.Get(w.field)
		if !ok {
			continue
		}
		if w.sanitize && value != "" {
			value = markup.Normalize(value)
		}

		current, exists, err := s.Terms.GetMeta(ctx, termID, w.field)
		if err != nil {
			return nil, &StoreError{Op: "read meta", Err: err}
		}

		if value == "" {
			// explicit null clears the entry
			if !exists {
				continue
			}
			if err := s.Terms.DeleteMeta(ctx, termID, w.field); err != nil {
				return nil, &StoreError{Op: "clear meta", Err: err}
			}
			changed = append(changed, w.field)
			continue
		}

		if exists && current == value {
			continue
		}
		if err := s.Terms.SetMeta(ctx, termID, w.field, value); err != nil {
			return nil, &StoreError{Op: "write meta", Err: err}
		}
		changed = append(changed, w.field)
	}

	return changed, nil
}

func (s *Service) attachImage(ctx context.Context, termID int64, sku, ref string) (string, bool) {
	if s.Media == nil {
		return "", false
	}

	id, err := s.Media.Resolve(ctx, ref)
	if err != nil {
		s.Logger.Printf("[reconcile] image resolve failed for sku %s: %v", sku, err)
		return "", false
	}

	value := strconv.FormatInt(id, 10)
	current, exists, err := s.Terms.GetMeta(ctx, termID, profileImageMetaKey)
	if err != nil {
		s.Logger.Printf("[reconcile] image meta read failed for sku %s: %v", sku, err)
		return "", false
	}
	if exists && current == value {
		return "", false
	}
	if err := s.Terms.SetMeta(ctx, termID, profileImageMetaKey, value); err != nil {
		s.Logger.Printf("[reconcile] image meta write failed for sku %s: %v", sku, err)
		return "", false
	}
	return models.FieldProfileImage, true
}

func (s *Service) termURL(slug string) string {
	base := strings.TrimRight(s.Conf.SiteBaseURL, "/")
	if base == "" {
		return ""
	}
	return base + "/author/" + slug
}
