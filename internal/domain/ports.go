package domain

import "context"

// RoomRepository defines the persistence contract for rooms.
type RoomRepository interface {
	Create(ctx context.Context, room Room) error
	GetByID(ctx context.Context, id string) (Room, error)
	// Update writes room if the stored version still equals room.Version and
	// returns the stored result with the next version and a fresh UpdatedAt.
	Update(ctx context.Context, room Room) (Room, error)
	Delete(ctx context.Context, id string) error
	IncrementCallCount(ctx context.Context, id string) error
	RoomSearcher
}

// RoomSearcher runs a normalized listing query and returns the page plus the total match count.
type RoomSearcher interface {
	Search(ctx context.Context, query SearchQuery) ([]Room, int, error)
}

// TransitionValidator decides whether event is legal from current and returns the destination.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
	// Available lists the events that are legal from current, in table order.
	Available(current Status) []Event
}

// Notification asks the owner to look at a moderation decision.
type Notification struct {
	OwnerID string
	RoomID  string
	Status  Status
	Reason  string
}

// Notifier hands moderation notifications to the delivery collaborator.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ImageUpload is one file an owner attaches to a draft.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageStore uploads binary images and returns their public reference.
type ImageStore interface {
	Upload(ctx context.Context, ownerID string, img ImageUpload) (string, error)
}

// ProfileDirectory resolves owner profile defaults. An unknown owner has an empty phone.
type ProfileDirectory interface {
	ContactPhone(ctx context.Context, ownerID string) (string, error)
	SaveContactPhone(ctx context.Context, ownerID, phone string) error
}
