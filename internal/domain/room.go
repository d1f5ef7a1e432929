package domain

import (
	"slices"
	"time"
)

// Listing rules shared by validation, submission and storage.
const (
	MinDescriptionLength = 20
	MinArea              = 5.0
	MaxImages            = 10
	MinReviewImages      = 3
)

// Status represents the lifecycle state of a room listing.
type Status string

const (
	StatusDraft        Status = "draft"
	StatusPending      Status = "pending"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	StatusNeedsChanges Status = "needs_changes"
	StatusAvailable    Status = "available"
	StatusRented       Status = "rented"
	StatusReserved     Status = "reserved"
)

// Statuses lists every stored status in display order.
var Statuses = []Status{
	StatusDraft,
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusNeedsChanges,
	StatusAvailable,
	StatusRented,
	StatusReserved,
}

// PublicStatuses are the only statuses visible through discovery.
var PublicStatuses = []Status{StatusApproved, StatusAvailable}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Public reports whether listings in this status may be shown to anyone.
func (s Status) Public() bool {
	return slices.Contains(PublicStatuses, s)
}

// Editable reports whether content fields may change in this status.
func (s Status) Editable() bool {
	return s == StatusDraft
}

// Room is the listing published by an owner.
type Room struct {
	ID           string
	OwnerID      string
	Type         string
	Title        string
	Description  string
	Price        float64
	Area         float64
	Address      string
	Location     *GeoPoint
	Images       []string
	ContactPhone string
	Status       Status
	AdminNote    string
	ApprovedAt   *time.Time
	ApprovedBy   string
	RejectedAt   *time.Time
	RejectedBy   string
	CallCount    int64
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewRoom creates a room in the initial "draft" state.
func NewRoom(id, ownerID string, content Content, now time.Time) Room {
	now = now.UTC()
	room := Room{
		ID:        id,
		OwnerID:   ownerID,
		Status:    StatusDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	room.apply(content)
	return room
}

// Content is the owner-editable part of a room, already coerced and normalized.
type Content struct {
	Type         string
	Title        string
	Description  string
	Price        float64
	Area         float64
	Address      string
	Location     *GeoPoint
	Images       []string
	ContactPhone string
}

// Content returns the editable fields of r.
func (r Room) Content() Content {
	return Content{
		Type:         r.Type,
		Title:        r.Title,
		Description:  r.Description,
		Price:        r.Price,
		Area:         r.Area,
		Address:      r.Address,
		Location:     r.Location,
		Images:       slices.Clone(r.Images),
		ContactPhone: r.ContactPhone,
	}
}

func (r *Room) apply(c Content) {
	r.Type = c.Type
	r.Title = c.Title
	r.Description = c.Description
	r.Price = c.Price
	r.Area = c.Area
	r.Address = c.Address
	r.Location = c.Location
	r.Images = NormalizeImages(c.Images)
	r.ContactPhone = c.ContactPhone
}

// NormalizeImages drops empty and duplicate references, keeping first occurrences in order.
func NormalizeImages(images []string) []string {
	out := make([]string, 0, len(images))
	seen := make(map[string]struct{}, len(images))
	for _, img := range images {
		if img == "" {
			continue
		}
		if _, dup := seen[img]; dup {
			continue
		}
		seen[img] = struct{}{}
		out = append(out, img)
	}
	return out
}

// Role identifies what an actor is allowed to do.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

// Actor is the already-authenticated caller. Identity issuance lives outside this service.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin && a.ID != "" }

// Owns reports whether the actor is the owner of r.
func (a Actor) Owns(r Room) bool { return a.ID != "" && a.ID == r.OwnerID }
