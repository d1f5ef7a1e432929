package http

import (
	"time"

	"github.com/neomorfeo/roomlist/internal/domain"
)

// LocationResponse is a GeoJSON point; coordinates are [lng, lat].
type LocationResponse struct {
	Type        string     `json:"type" doc:"Always Point"`
	Coordinates [2]float64 `json:"coordinates" doc:"Longitude, latitude"`
}

// RoomResponse is the API representation of a room.
type RoomResponse struct {
	ID            string            `json:"id" doc:"Unique identifier"`
	OwnerID       string            `json:"owner_id" doc:"Owner user ID"`
	Type          string            `json:"type" doc:"Room category"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Price         float64           `json:"price" doc:"Monthly price"`
	Area          float64           `json:"area" doc:"Floor area in square meters"`
	Address       string            `json:"address,omitempty"`
	Location      *LocationResponse `json:"location,omitempty"`
	Images        []string          `json:"images"`
	ContactPhone  string            `json:"contact_phone,omitempty"`
	Status        string            `json:"status" doc:"Stored lifecycle state"`
	DerivedStatus string            `json:"derived_status,omitempty" doc:"expiring or expired, computed from the last update"`
	AdminNote     string            `json:"admin_note,omitempty" doc:"Latest moderation note"`
	ApprovedAt    string            `json:"approved_at,omitempty"`
	ApprovedBy    string            `json:"approved_by,omitempty"`
	RejectedAt    string            `json:"rejected_at,omitempty"`
	RejectedBy    string            `json:"rejected_by,omitempty"`
	CallCount     int64             `json:"call_count"`
	Version       int64             `json:"version" doc:"Optimistic concurrency token"`
	Actions       []string          `json:"actions" doc:"Lifecycle events the caller may trigger now"`
	CreatedAt     string            `json:"created_at" doc:"Creation timestamp (RFC 3339)"`
	UpdatedAt     string            `json:"updated_at" doc:"Last update timestamp (RFC 3339)"`
}

// PaginationResponse describes a page against the total match count.
type PaginationResponse struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// RoomPageResponse is one page of rooms.
type RoomPageResponse struct {
	Items      []RoomResponse     `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

type presenter struct {
	actor   domain.Actor
	now     time.Time
	actions func(domain.Actor, domain.Room) []domain.Event
}

func (p presenter) room(r domain.Room) RoomResponse {
	resp := RoomResponse{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Type:          r.Type,
		Title:         r.Title,
		Description:   r.Description,
		Price:         r.Price,
		Area:          r.Area,
		Address:       r.Address,
		Images:        append([]string{}, r.Images...),
		ContactPhone:  r.ContactPhone,
		Status:        string(r.Status),
		DerivedStatus: string(r.Derived(p.now)),
		AdminNote:     r.AdminNote,
		ApprovedAt:    formatOptional(r.ApprovedAt),
		ApprovedBy:    r.ApprovedBy,
		RejectedAt:    formatOptional(r.RejectedAt),
		RejectedBy:    r.RejectedBy,
		CallCount:     r.CallCount,
		Version:       r.Version,
		Actions:       []string{},
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if r.Location != nil {
		g := r.Location.GeoJSON()
		resp.Location = &LocationResponse{Type: g.Type, Coordinates: g.Coordinates}
	}
	for _, ev := range p.actions(p.actor, r) {
		resp.Actions = append(resp.Actions, string(ev))
	}
	return resp
}

func (p presenter) rooms(rs []domain.Room) []RoomResponse {
	out := make([]RoomResponse, len(rs))
	for i, r := range rs {
		out[i] = p.room(r)
	}
	return out
}

func (p presenter) page(pg domain.Paged[domain.Room]) RoomPageResponse {
	return RoomPageResponse{
		Items: p.rooms(pg.Items),
		Pagination: PaginationResponse{
			Page:       pg.Page,
			Limit:      pg.Limit,
			Total:      pg.Total,
			TotalPages: pg.TotalPages,
		},
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
