package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neomorfeo/roomlist/internal/domain"
)

// RoomService orchestrates the room lifecycle: drafting, moderation and discovery.
// Every operation checks all guards before the single conditional write.
type RoomService struct {
	repo      domain.RoomRepository
	notifier  domain.Notifier
	validator domain.TransitionValidator
	images    domain.ImageStore
	profiles  domain.ProfileDirectory
	public    domain.RoomSearcher
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a RoomService.
type Option func(*RoomService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *RoomService) { s.now = now }
}

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *RoomService) { s.logger = l }
}

// WithImageStore enables AddImages.
func WithImageStore(store domain.ImageStore) Option {
	return func(s *RoomService) { s.images = store }
}

// WithProfiles enables contact phone defaults from owner profiles.
func WithProfiles(p domain.ProfileDirectory) Option {
	return func(s *RoomService) { s.profiles = p }
}

// WithPublicSearcher routes discovery through a different searcher, e.g. a cache.
func WithPublicSearcher(searcher domain.RoomSearcher) Option {
	return func(s *RoomService) { s.public = searcher }
}

// NewRoomService creates a service with the given adapters.
func NewRoomService(repo domain.RoomRepository, notifier domain.Notifier, validator domain.TransitionValidator, opts ...Option) *RoomService {
	s := &RoomService{
		repo:      repo,
		notifier:  notifier,
		validator: validator,
		public:    repo,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDraft validates the owner's fields and stores a new draft.
func (s *RoomService) CreateDraft(ctx context.Context, actor domain.Actor, patch domain.ContentPatch) (domain.Room, error) {
	if actor.ID == "" || actor.Role != domain.RoleOwner {
		return domain.Room{}, &domain.AuthorizationError{ActorID: actor.ID, Action: "create room"}
	}

	content, err := patch.Merge(domain.Content{})
	if err != nil {
		return domain.Room{}, err
	}
	if content.ContactPhone == "" {
		if content.ContactPhone, err = s.defaultPhone(ctx, actor.ID); err != nil {
			return domain.Room{}, err
		}
	}
	if err := content.CheckRequired(); err != nil {
		return domain.Room{}, err
	}

	id, err := generateID()
	if err != nil {
		return domain.Room{}, fmt.Errorf("generating room id: %w", err)
	}

	room := domain.NewRoom(id, actor.ID, content, s.now())
	if err := s.repo.Create(ctx, room); err != nil {
		return domain.Room{}, fmt.Errorf("creating room: %w", err)
	}

	s.logger.InfoContext(ctx, "room drafted", "room_id", room.ID, "owner_id", actor.ID)
	return room, nil
}

func (s *RoomService) defaultPhone(ctx context.Context, ownerID string) (string, error) {
	if s.profiles == nil {
		return "", nil
	}
	phone, err := s.profiles.ContactPhone(ctx, ownerID)
	if err != nil {
		return "", &domain.UpstreamError{Service: "profiles", Err: err}
	}
	return strings.TrimSpace(phone), nil
}

// UpdateDraft applies a content patch. Only the owner may edit, and only while draft.
func (s *RoomService) UpdateDraft(ctx context.Context, id string, actor domain.Actor, patch domain.ContentPatch) (domain.Room, error) {
	room, err := s.editableRoom(ctx, id, actor, "edit room")
	if err != nil {
		return domain.Room{}, err
	}
	if patch.Empty() {
		return room, nil
	}

	content, err := patch.Merge(room.Content())
	if err != nil {
		return domain.Room{}, err
	}
	if err := content.CheckRequired(); err != nil {
		return domain.Room{}, err
	}

	room.ApplyContent(content)
	return s.save(ctx, room)
}

// editableRoom loads a room the actor owns and that is still a draft.
func (s *RoomService) editableRoom(ctx context.Context, id string, actor domain.Actor, action string) (domain.Room, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	if !actor.Owns(room) {
		return domain.Room{}, &domain.AuthorizationError{ActorID: actor.ID, Action: action}
	}
	if !room.Status.Editable() {
		return domain.Room{}, &domain.StateConflictError{
			RoomID: room.ID,
			Status: room.Status,
			Reason: "content can only change while the room is a draft",
		}
	}
	return room, nil
}

// SubmitForReview moves a complete draft to pending.
func (s *RoomService) SubmitForReview(ctx context.Context, id string, actor domain.Actor) (domain.Room, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	if err := domain.Authorize(actor, domain.EventSubmit, room); err != nil {
		return domain.Room{}, err
	}

	dst, err := s.validator.Apply(ctx, room.Status, domain.EventSubmit)
	if err != nil {
		return domain.Room{}, err
	}
	if err := room.Content().CheckReviewReady(); err != nil {
		return domain.Room{}, err
	}

	room.Status = dst
	return s.save(ctx, room)
}

// AdminTransition applies a moderation decision and notifies the owner of
// rejections and change requests.
func (s *RoomService) AdminTransition(ctx context.Context, id string, actor domain.Actor, req domain.ModerationRequest) (domain.Room, error) {
	if !actor.IsAdmin() {
		return domain.Room{}, &domain.AuthorizationError{ActorID: actor.ID, Action: "moderate room"}
	}
	event, err := req.Event()
	if err != nil {
		return domain.Room{}, err
	}

	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	dst, err := s.validator.Apply(ctx, room.Status, event)
	if err != nil {
		return domain.Room{}, err
	}

	room.ApplyModeration(event, dst, actor, req.Note, s.now())
	room, err = s.save(ctx, room)
	if err != nil {
		return domain.Room{}, err
	}

	s.logger.InfoContext(ctx, "room moderated",
		"room_id", room.ID, "event", string(event), "status", string(room.Status), "admin_id", actor.ID)

	if room.Status.NotifiesOwner() {
		s.notify(ctx, room)
	}
	return room, nil
}

// notify hands the decision to the notifier. Delivery failures never undo the transition.
func (s *RoomService) notify(ctx context.Context, room domain.Room) {
	n := domain.Notification{
		OwnerID: room.OwnerID,
		RoomID:  room.ID,
		Status:  room.Status,
		Reason:  room.AdminNote,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "moderation notification failed",
			"room_id", room.ID, "owner_id", room.OwnerID, "status", string(room.Status), "error", err)
	}
}

// SetOwnerStatus lets the owner flip a published room between available and rented.
func (s *RoomService) SetOwnerStatus(ctx context.Context, id string, actor domain.Actor, status domain.Status) (domain.Room, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	if !actor.Owns(room) {
		return domain.Room{}, &domain.AuthorizationError{ActorID: actor.ID, Action: "change room status"}
	}
	event, err := domain.OwnerStatusEvent(status)
	if err != nil {
		return domain.Room{}, err
	}
	return s.transition(ctx, room, event)
}

// Revise sends a rejected or needs-changes room back to draft for editing.
func (s *RoomService) Revise(ctx context.Context, id string, actor domain.Actor) (domain.Room, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	if err := domain.Authorize(actor, domain.EventRevise, room); err != nil {
		return domain.Room{}, err
	}
	return s.transition(ctx, room, domain.EventRevise)
}

func (s *RoomService) transition(ctx context.Context, room domain.Room, event domain.Event) (domain.Room, error) {
	dst, err := s.validator.Apply(ctx, room.Status, event)
	if err != nil {
		return domain.Room{}, err
	}
	room.Status = dst
	return s.save(ctx, room)
}

func (s *RoomService) save(ctx context.Context, room domain.Room) (domain.Room, error) {
	saved, err := s.repo.Update(ctx, room)
	if err != nil {
		var conflict *domain.StateConflictError
		if errors.As(err, &conflict) || errors.Is(err, domain.ErrRoomNotFound) {
			return domain.Room{}, err
		}
		return domain.Room{}, fmt.Errorf("updating room: %w", err)
	}
	return saved, nil
}

// Delete removes a room. Only its owner may delete it.
func (s *RoomService) Delete(ctx context.Context, id string, actor domain.Actor) error {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Owns(room) {
		return &domain.AuthorizationError{ActorID: actor.ID, Action: "delete room"}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "room deleted", "room_id", id, "owner_id", actor.ID)
	return nil
}

// AddImages uploads files and appends their references to a draft. Files that
// fail to upload are logged and skipped; at least one must succeed. The merged
// list is written once, so a partial list is never persisted.
func (s *RoomService) AddImages(ctx context.Context, id string, actor domain.Actor, uploads []domain.ImageUpload) (domain.Room, error) {
	room, err := s.editableRoom(ctx, id, actor, "add images")
	if err != nil {
		return domain.Room{}, err
	}
	if len(uploads) == 0 {
		return domain.Room{}, &domain.ValidationError{Field: "images", Message: "at least one image file is required"}
	}
	if s.images == nil {
		return domain.Room{}, &domain.UpstreamError{Service: "image store", Err: errors.New("not configured")}
	}
	// Checked before uploading so a rejected batch leaves nothing behind in the store.
	if free := domain.MaxImages - len(room.Images); len(uploads) > free {
		return domain.Room{}, &domain.ValidationError{
			Field:   "images",
			Message: fmt.Sprintf("at most %d images are allowed, %d more can be added", domain.MaxImages, max(free, 0)),
		}
	}

	refs := make([]string, 0, len(uploads))
	for _, up := range uploads {
		ref, err := s.images.Upload(ctx, actor.ID, up)
		if err != nil {
			s.logger.WarnContext(ctx, "image upload failed",
				"room_id", room.ID, "filename", up.Filename, "error", err)
			continue
		}
		refs = append(refs, ref)
	}
	if len(refs) == 0 {
		return domain.Room{}, &domain.ValidationError{Field: "images", Message: "no image could be uploaded"}
	}

	images := append(append([]string(nil), room.Images...), refs...)
	content, err := domain.ContentPatch{Images: &images}.Merge(room.Content())
	if err != nil {
		return domain.Room{}, err
	}
	room.ApplyContent(content)
	return s.save(ctx, room)
}

// RecordCall counts a contact call placed through the call-log collaborator.
func (s *RoomService) RecordCall(ctx context.Context, id string) error {
	return s.repo.IncrementCallCount(ctx, id)
}

// Get returns a room. Public rooms are visible to anyone; other statuses only
// to the owner and admins, and look missing to everyone else.
func (s *RoomService) Get(ctx context.Context, id string, actor domain.Actor) (domain.Room, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	if room.Status.Public() || actor.Owns(room) || actor.IsAdmin() {
		return room, nil
	}
	return domain.Room{}, domain.ErrRoomNotFound
}

// ListPublic runs discovery over untrusted query input.
func (s *RoomService) ListPublic(ctx context.Context, q domain.PublicQuery) (domain.Paged[domain.Room], error) {
	query := domain.BuildPublicSearch(q)
	rooms, total, err := s.public.Search(ctx, query)
	if err != nil {
		return domain.Paged[domain.Room]{}, fmt.Errorf("searching rooms: %w", err)
	}
	return domain.Paged[domain.Room]{Items: rooms, Pagination: domain.NewPagination(query.Page, total)}, nil
}

// ListForOwner returns every room of the actor. status may be a stored status
// or a derived label (expiring, expired), which is evaluated here at read time.
func (s *RoomService) ListForOwner(ctx context.Context, actor domain.Actor, status, keyword string) ([]domain.Room, error) {
	if actor.ID == "" {
		return nil, &domain.AuthorizationError{Action: "list own rooms"}
	}

	query := domain.SearchQuery{
		OwnerID: actor.ID,
		Keyword: domain.CleanKeyword(keyword),
		Sort:    domain.DefaultSort,
	}

	status = strings.TrimSpace(status)
	derived, isDerived := domain.ParseDerivedStatus(status)
	switch {
	case status == "":
	case isDerived:
		query.Statuses = []domain.Status{domain.StatusAvailable}
	case domain.Status(status).Valid():
		query.Statuses = []domain.Status{domain.Status(status)}
	default:
		return nil, &domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}

	rooms, _, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing owner rooms: %w", err)
	}
	if !isDerived {
		return rooms, nil
	}

	now := s.now()
	out := make([]domain.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.Derived(now) == derived {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListForAdmin is the moderation queue: any stored status, paginated.
func (s *RoomService) ListForAdmin(ctx context.Context, actor domain.Actor, statuses []string, keyword string, page, limit int) (domain.Paged[domain.Room], error) {
	if !actor.IsAdmin() {
		return domain.Paged[domain.Room]{}, &domain.AuthorizationError{ActorID: actor.ID, Action: "list rooms for moderation"}
	}

	query := domain.ModerationSearch(statuses, keyword, domain.NormalizePage(page, limit, domain.ModerationPaging))
	rooms, total, err := s.repo.Search(ctx, query)
	if err != nil {
		return domain.Paged[domain.Room]{}, fmt.Errorf("listing rooms for moderation: %w", err)
	}
	return domain.Paged[domain.Room]{Items: rooms, Pagination: domain.NewPagination(query.Page, total)}, nil
}

// Actions lists the lifecycle events actor may trigger on room right now.
func (s *RoomService) Actions(actor domain.Actor, room domain.Room) []domain.Event {
	var out []domain.Event
	for _, ev := range s.validator.Available(room.Status) {
		if domain.Authorize(actor, ev, room) == nil {
			out = append(out, ev)
		}
	}
	return out
}

// SaveContactPhone stores the owner's default phone for future drafts.
func (s *RoomService) SaveContactPhone(ctx context.Context, actor domain.Actor, phone string) error {
	if actor.ID == "" || actor.Role != domain.RoleOwner {
		return &domain.AuthorizationError{ActorID: actor.ID, Action: "update profile"}
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return &domain.ValidationError{Field: "contactPhone", Message: "contact phone is required"}
	}
	if s.profiles == nil {
		return &domain.UpstreamError{Service: "profiles", Err: errors.New("not configured")}
	}
	if err := s.profiles.SaveContactPhone(ctx, actor.ID, phone); err != nil {
		return &domain.UpstreamError{Service: "profiles", Err: err}
	}
	return nil
}

// Now exposes the service clock so read models derive labels consistently.
func (s *RoomService) Now() time.Time {
	return s.now()
}
