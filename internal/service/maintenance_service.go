package service

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fixit/internal/events"
	"fixit/internal/maintenance"
	"fixit/internal/models"
	"fixit/internal/repository"
	"fixit/internal/tokencache"
)

// appendRetries bounds how often an unversioned append reloads after losing
// a compare-and-swap race. Appends commute, so a retry is always safe.
const appendRetries = 3

type MaintenanceOptions struct {
	LinkPolicy   maintenance.LinkPolicy
	PublicOrigin string
	Now          func() time.Time
	Entropy      io.Reader
}

// MaintenanceService runs every request operation as
// load -> authorize -> domain step -> compare-and-swap write -> publish.
type MaintenanceService struct {
	requests repository.RequestRepository
	users    repository.UserRepository
	vendors  repository.VendorRepository
	events   events.Publisher
	links    tokencache.Index
	log      zerolog.Logger

	policy  maintenance.LinkPolicy
	origin  string
	now     func() time.Time
	entropy io.Reader
}

func NewMaintenanceService(
	requests repository.RequestRepository,
	users repository.UserRepository,
	vendors repository.VendorRepository,
	pub events.Publisher,
	links tokencache.Index,
	log zerolog.Logger,
	opts MaintenanceOptions,
) *MaintenanceService {
	if pub == nil {
		pub = events.Multi{}
	}
	if links == nil {
		links = tokencache.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Entropy == nil {
		opts.Entropy = rand.Reader
	}
	return &MaintenanceService{
		requests: requests,
		users:    users,
		vendors:  vendors,
		events:   pub,
		links:    links,
		log:      log.With().Str("component", "maintenance").Logger(),
		policy:   opts.LinkPolicy,
		origin:   strings.TrimRight(opts.PublicOrigin, "/"),
		now:      opts.Now,
		entropy:  opts.Entropy,
	}
}

// PublicLink is the one-time view of a freshly issued link.
type PublicLink struct {
	Token     string     `json:"token"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt"`
	Version   int64      `json:"version"`
}

// AssigneeOption is one entry of the assignee picker.
type AssigneeOption struct {
	ID    string              `json:"id"`
	Name  string              `json:"name"`
	Email string              `json:"email,omitempty"`
	Kind  models.AssigneeKind `json:"kind"`
	Role  models.Role         `json:"role"`
}

func (s *MaintenanceService) Create(ctx context.Context, c maintenance.Caller, in maintenance.CreateInput) (*models.Request, error) {
	req, ev, err := maintenance.Create(in, c, s.clock())
	if err != nil {
		return nil, s.deny(c, "", "create", err)
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, mapRepoErr(err)
	}
	s.publish(ctx, ev)
	return req, nil
}

// Get returns the request and the caller's capability set on it.
func (s *MaintenanceService) Get(ctx context.Context, c maintenance.Caller, id string) (*models.Request, maintenance.OpSet, error) {
	req, err := s.load(ctx, c, id)
	if err != nil {
		return nil, 0, err
	}
	return req, maintenance.Capabilities(c, req), nil
}

// List shows manager-tier callers everything and everyone else only the
// requests they opened or are assigned to.
func (s *MaintenanceService) List(ctx context.Context, c maintenance.Caller, f repository.RequestFilter) ([]models.Request, int, error) {
	if !c.Authenticated() {
		return nil, 0, maintenance.ErrForbidden
	}
	if !c.ManagerTier() {
		f.VisibleTo = c.ID
	}
	f = f.Normalize()
	items, total, err := s.requests.List(ctx, f)
	if err != nil {
		return nil, 0, mapRepoErr(err)
	}
	return items, total, nil
}

// Transition moves the request to target. expectedVersion of zero means
// "whatever is current".
func (s *MaintenanceService) Transition(ctx context.Context, c maintenance.Caller, id string, target models.Status, expectedVersion int64) (*models.Request, error) {
	req, err := s.loadVersion(ctx, c, id, expectedVersion)
	if err != nil {
		return nil, err
	}
	out, ev, changed, err := maintenance.Transition(req, target, c, s.clock())
	if err != nil {
		return nil, s.deny(c, id, "transition", err)
	}
	if !changed {
		return out, nil
	}
	if err := s.save(ctx, out, req.Version); err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return out, nil
}

func (s *MaintenanceService) Assign(ctx context.Context, c maintenance.Caller, id, assigneeID string, kind models.AssigneeKind, expectedVersion int64) (*models.Request, error) {
	req, err := s.loadVersion(ctx, c, id, expectedVersion)
	if err != nil {
		return nil, err
	}
	if !c.ManagerTier() {
		return nil, s.deny(c, id, "assign", maintenance.ErrForbidden)
	}
	a, err := s.resolveAssignee(ctx, strings.TrimSpace(assigneeID), kind)
	if err != nil {
		return nil, err
	}
	out, evs, err := maintenance.Assign(req, a, c, s.clock())
	if err != nil {
		return nil, s.deny(c, id, "assign", err)
	}
	if len(evs) == 0 {
		return out, nil
	}
	if err := s.save(ctx, out, req.Version); err != nil {
		return nil, err
	}
	s.publish(ctx, evs...)
	return out, nil
}

// EnablePublicLink issues or rotates the request's public token. The raw
// token is only ever returned here.
func (s *MaintenanceService) EnablePublicLink(ctx context.Context, c maintenance.Caller, id string, expiryDays int, expectedVersion int64) (PublicLink, error) {
	req, err := s.loadVersion(ctx, c, id, expectedVersion)
	if err != nil {
		return PublicLink{}, err
	}
	now := s.clock()
	out, link, ev, err := maintenance.EnablePublicAccess(req, expiryDays, c, now, s.policy, s.entropy)
	if err != nil {
		return PublicLink{}, s.deny(c, id, "enable_public_link", err)
	}
	if err := s.save(ctx, out, req.Version); err != nil {
		return PublicLink{}, err
	}
	if link.PreviousHash != "" {
		s.forget(ctx, link.PreviousHash)
	}
	s.remember(ctx, out.PublicAccess.TokenHash, out.ID, link.ExpiresAt, now)
	s.publish(ctx, ev)
	return PublicLink{
		Token:     link.Token,
		URL:       s.PublicURL(link.Token),
		ExpiresAt: link.ExpiresAt,
		Version:   out.Version,
	}, nil
}

func (s *MaintenanceService) DisablePublicLink(ctx context.Context, c maintenance.Caller, id string, expectedVersion int64) (*models.Request, error) {
	req, err := s.loadVersion(ctx, c, id, expectedVersion)
	if err != nil {
		return nil, err
	}
	out, ev, changed, err := maintenance.DisablePublicAccess(req, c, s.clock())
	if err != nil {
		return nil, s.deny(c, id, "disable_public_link", err)
	}
	if !changed {
		return out, nil
	}
	if err := s.save(ctx, out, req.Version); err != nil {
		return nil, err
	}
	s.forget(ctx, out.PublicAccess.TokenHash)
	s.publish(ctx, ev)
	return out, nil
}

// ResolvePublicLink maps a raw token to its request. An expired link is
// switched off on first sight; concurrent resolvers converge on one expiry
// event.
func (s *MaintenanceService) ResolvePublicLink(ctx context.Context, token string) (*models.Request, maintenance.OpSet, error) {
	req, err := s.resolve(ctx, token)
	if err != nil {
		return nil, 0, err
	}
	return PublicView(req), maintenance.PublicOps, nil
}

func (s *MaintenanceService) resolve(ctx context.Context, token string) (*models.Request, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, maintenance.ErrTokenNotFound
	}
	hash := maintenance.HashToken(token)
	req, err := s.findByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	switch err := maintenance.CheckToken(req, token, now); {
	case err == nil:
		return req, nil
	case errors.Is(err, maintenance.ErrTokenExpired):
		s.expire(ctx, req, hash, now)
		return nil, maintenance.ErrTokenExpired
	default:
		s.forget(ctx, hash)
		return nil, err
	}
}

func (s *MaintenanceService) findByHash(ctx context.Context, hash string) (*models.Request, error) {
	if id, ok, err := s.links.Lookup(ctx, hash); err != nil {
		s.log.Warn().Err(err).Msg("public link cache lookup failed")
	} else if ok {
		req, err := s.requests.Get(ctx, id)
		if err == nil && req.PublicAccess != nil && req.PublicAccess.TokenHash == hash {
			return req, nil
		}
		s.forget(ctx, hash)
	}

	req, err := s.requests.GetByTokenHash(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, maintenance.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	if req.PublicAccess != nil && req.PublicAccess.Enabled {
		s.remember(ctx, hash, req.ID, req.PublicAccess.ExpiresAt, s.clock())
	}
	return req, nil
}

func (s *MaintenanceService) expire(ctx context.Context, req *models.Request, hash string, now time.Time) {
	s.forget(ctx, hash)
	changed, err := s.requests.ExpirePublicAccess(ctx, req.ID, hash, now)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", req.ID).Msg("expire public link")
		return
	}
	if !changed {
		return
	}
	_, ev, _ := maintenance.ExpirePublicAccess(req, now)
	s.publish(ctx, ev)
}

// AddComment appends a comment as an authenticated caller.
func (s *MaintenanceService) AddComment(ctx context.Context, c maintenance.Caller, id, message string, expectedVersion int64) (models.Comment, error) {
	var cm models.Comment
	err := s.appendWithRetry(ctx, expectedVersion, func(int) error {
		req, err := s.loadVersion(ctx, c, id, expectedVersion)
		if err != nil {
			return err
		}
		now := s.clock()
		comment, ev, err := maintenance.NewComment(req, c, message, now)
		if err != nil {
			return s.deny(c, id, "comment", err)
		}
		if _, err := s.requests.AppendComment(ctx, comment, req.Version, now); err != nil {
			return mapRepoErr(err)
		}
		cm = comment
		s.publish(ctx, ev)
		return nil
	})
	return cm, err
}

// PublicComment appends a comment through a public link.
func (s *MaintenanceService) PublicComment(ctx context.Context, token, authorName, message string) (models.Comment, error) {
	var cm models.Comment
	c := maintenance.PublicCaller(strings.TrimSpace(authorName))
	err := s.appendWithRetry(ctx, 0, func(int) error {
		req, err := s.resolve(ctx, token)
		if err != nil {
			return err
		}
		now := s.clock()
		comment, ev, err := maintenance.NewComment(req, c, message, now)
		if err != nil {
			return err
		}
		if _, err := s.requests.AppendComment(ctx, comment, req.Version, now); err != nil {
			return mapRepoErr(err)
		}
		cm = comment
		s.publish(ctx, ev)
		return nil
	})
	return cm, err
}

func (s *MaintenanceService) AddMedia(ctx context.Context, c maintenance.Caller, id string, m models.Media, expectedVersion int64) (models.Media, error) {
	var added models.Media
	err := s.appendWithRetry(ctx, expectedVersion, func(int) error {
		req, err := s.loadVersion(ctx, c, id, expectedVersion)
		if err != nil {
			return err
		}
		now := s.clock()
		media, ev, err := maintenance.NewMedia(req, c, m, now)
		if err != nil {
			return s.deny(c, id, "upload_media", err)
		}
		if _, err := s.requests.AppendMedia(ctx, media, req.Version, now); err != nil {
			return mapRepoErr(err)
		}
		added = media
		s.publish(ctx, ev)
		return nil
	})
	return added, err
}

// PublicAddMedia attaches a media reference through a public link.
func (s *MaintenanceService) PublicAddMedia(ctx context.Context, token, uploaderName string, m models.Media) (models.Media, error) {
	var added models.Media
	c := maintenance.PublicCaller(strings.TrimSpace(uploaderName))
	err := s.appendWithRetry(ctx, 0, func(int) error {
		req, err := s.resolve(ctx, token)
		if err != nil {
			return err
		}
		now := s.clock()
		media, ev, err := maintenance.NewMedia(req, c, m, now)
		if err != nil {
			return err
		}
		if _, err := s.requests.AppendMedia(ctx, media, req.Version, now); err != nil {
			return mapRepoErr(err)
		}
		added = media
		s.publish(ctx, ev)
		return nil
	})
	return added, err
}

func (s *MaintenanceService) RemoveMedia(ctx context.Context, c maintenance.Caller, id, mediaID string, expectedVersion int64) error {
	return s.appendWithRetry(ctx, expectedVersion, func(int) error {
		req, err := s.loadVersion(ctx, c, id, expectedVersion)
		if err != nil {
			return err
		}
		now := s.clock()
		ev, err := maintenance.RemoveMedia(req, c, mediaID, now)
		if err != nil {
			return s.deny(c, id, "remove_media", err)
		}
		if _, err := s.requests.RemoveMedia(ctx, id, mediaID, req.Version, now); err != nil {
			return mapRepoErr(err)
		}
		s.publish(ctx, ev)
		return nil
	})
}

// Assignees lists candidates for the assignee picker. Only manager-tier
// callers may browse the directory.
func (s *MaintenanceService) Assignees(ctx context.Context, c maintenance.Caller, kind models.AssigneeKind, q string, limit int) ([]AssigneeOption, error) {
	if !c.ManagerTier() {
		return nil, maintenance.ErrForbidden
	}
	if kind != "" && !kind.Valid() {
		return nil, maintenance.ErrInvalidInput
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	active := true
	var out []AssigneeOption

	if kind == "" || kind == models.AssigneeInternalUser {
		users, _, err := s.users.List(ctx, q, []models.Role{models.RolePropertyManager, models.RoleLandlord, models.RoleAdmin}, &active, limit, 0)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			out = append(out, AssigneeOption{ID: u.ID, Name: u.Name, Email: u.Email, Kind: models.AssigneeInternalUser, Role: u.Role})
		}
	}
	if kind == "" || kind == models.AssigneeVendor {
		users, _, err := s.users.List(ctx, q, []models.Role{models.RoleVendor}, &active, limit, 0)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			out = append(out, AssigneeOption{ID: u.ID, Name: u.Name, Email: u.Email, Kind: models.AssigneeVendor, Role: u.Role})
		}
		vendors, _, err := s.vendors.List(ctx, q, true, limit, 0)
		if err != nil {
			return nil, err
		}
		for _, v := range vendors {
			out = append(out, AssigneeOption{ID: v.ID, Name: v.Name, Email: v.Email, Kind: models.AssigneeVendor, Role: models.RoleVendor})
		}
	}
	return out, nil
}

// PublicURL builds the shareable link for token.
func (s *MaintenanceService) PublicURL(token string) string {
	return s.origin + "/public/requests/" + token
}

// PublicView strips link state and every internal user id. Display names
// and kinds stay.
func PublicView(req *models.Request) *models.Request {
	out := req.Clone()
	out.PublicAccess = nil
	out.CreatedBy = ""
	out.AssignedBy = ""
	out.AssignedTo = ""
	for i := range out.Comments {
		out.Comments[i].AuthorID = ""
	}
	for i := range out.Media {
		if out.Media[i].UploaderKind == models.AuthorUser {
			out.Media[i].UploadedBy = ""
		}
	}
	return out
}

func (s *MaintenanceService) resolveAssignee(ctx context.Context, id string, kind models.AssigneeKind) (maintenance.Assignee, error) {
	a := maintenance.Assignee{ID: id, Kind: kind}
	if id == "" || !kind.Valid() {
		return a, maintenance.ErrInvalidAssignee
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return a, err
	}
	if u != nil {
		a.Found, a.Role, a.Active = true, u.Role, u.Active
		return a, nil
	}
	if kind != models.AssigneeVendor {
		return a, nil
	}
	v, err := s.vendors.GetByID(ctx, id)
	if err != nil {
		return a, err
	}
	if v != nil {
		a.Found, a.Role, a.Active = true, models.RoleVendor, v.Active
	}
	return a, nil
}

// load fetches id and requires the caller to be able to see it.
func (s *MaintenanceService) load(ctx context.Context, c maintenance.Caller, id string) (*models.Request, error) {
	req, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if err := maintenance.Authorize(c, req, maintenance.OpView); err != nil {
		return nil, s.deny(c, id, "view", err)
	}
	return req, nil
}

// loadVersion is load plus an early stale-version check.
func (s *MaintenanceService) loadVersion(ctx context.Context, c maintenance.Caller, id string, expectedVersion int64) (*models.Request, error) {
	req, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != 0 && expectedVersion != req.Version {
		return nil, maintenance.ErrConflict
	}
	return req, nil
}

func (s *MaintenanceService) save(ctx context.Context, out *models.Request, expectedVersion int64) error {
	v, err := s.requests.Save(ctx, out, expectedVersion)
	if err != nil {
		return mapRepoErr(err)
	}
	out.Version = v
	return nil
}

// appendWithRetry retries fn on conflict only when the caller did not pin a
// version.
func (s *MaintenanceService) appendWithRetry(ctx context.Context, expectedVersion int64, fn func(attempt int) error) error {
	var err error
	for attempt := 0; attempt < appendRetries; attempt++ {
		err = fn(attempt)
		if expectedVersion != 0 || !errors.Is(err, maintenance.ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func (s *MaintenanceService) publish(ctx context.Context, evs ...models.Event) {
	if len(evs) == 0 {
		return
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), evs...); err != nil {
		s.log.Error().Err(err).Int("events", len(evs)).Str("request_id", evs[0].RequestID).Msg("publish events")
	}
}

func (s *MaintenanceService) remember(ctx context.Context, hash, requestID string, expiresAt *time.Time, now time.Time) {
	var ttl time.Duration
	if expiresAt != nil {
		ttl = expiresAt.Sub(now)
		if ttl <= 0 {
			return
		}
	}
	if err := s.links.Store(ctx, hash, requestID, ttl); err != nil {
		s.log.Warn().Err(err).Str("request_id", requestID).Msg("cache public link")
	}
}

func (s *MaintenanceService) forget(ctx context.Context, hash string) {
	if err := s.links.Forget(ctx, hash); err != nil {
		s.log.Warn().Err(err).Msg("forget public link")
	}
}

// deny logs authorization refusals at debug level and passes err through.
func (s *MaintenanceService) deny(c maintenance.Caller, requestID, op string, err error) error {
	if errors.Is(err, maintenance.ErrForbidden) {
		s.log.Debug().Str("actor", c.Actor()).Str("request_id", requestID).Str("op", op).Msg("denied")
	}
	return err
}

// clock truncates to milliseconds, the coarsest precision any store keeps.
func (s *MaintenanceService) clock() time.Time { return s.now().UTC().Truncate(time.Millisecond) }

func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrConflict):
		return maintenance.ErrConflict
	case errors.Is(err, repository.ErrNotFound):
		return maintenance.ErrNotFound
	}
	return err
}
