package http

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/roomlist/internal/app"
	"github.com/neomorfeo/roomlist/internal/domain"
)

// maxUploadBytes bounds one multipart image request.
const maxUploadBytes = 100 << 20

// ActorHeaders identify the caller. The auth gateway in front of the service sets them.
type ActorHeaders struct {
	ActorID   string `header:"X-Actor-ID" doc:"Authenticated user ID"`
	ActorRole string `header:"X-Actor-Role" doc:"owner or admin"`
}

func (h ActorHeaders) actor() domain.Actor {
	a := domain.Actor{ID: strings.TrimSpace(h.ActorID)}
	switch domain.Role(strings.ToLower(strings.TrimSpace(h.ActorRole))) {
	case domain.RoleAdmin:
		a.Role = domain.RoleAdmin
	case domain.RoleOwner:
		a.Role = domain.RoleOwner
	}
	return a
}

// ContentBody is the owner-editable payload. Price and area accept a number or
// a locale formatted string such as "3.500.000". Omitted fields stay unchanged.
type ContentBody struct {
	Type         *string   `json:"type,omitempty" doc:"Room category"`
	Title        *string   `json:"title,omitempty"`
	Description  *string   `json:"description,omitempty" doc:"At least 20 characters"`
	Price        any       `json:"price,omitempty" doc:"Positive number or numeric string"`
	Area         any       `json:"area,omitempty" doc:"Square meters, greater than 5"`
	Address      *string   `json:"address,omitempty"`
	ContactPhone *string   `json:"contact_phone,omitempty" doc:"Defaults to the owner's profile phone on create"`
	Lat          *float64  `json:"lat,omitempty" minimum:"-90" maximum:"90"`
	Lng          *float64  `json:"lng,omitempty" minimum:"-180" maximum:"180"`
	Images       *[]string `json:"images,omitempty" doc:"Full image list, replaces the current one"`
}

func (b ContentBody) patch() domain.ContentPatch {
	return domain.ContentPatch{
		Type:         b.Type,
		Title:        b.Title,
		Description:  b.Description,
		Price:        b.Price,
		Area:         b.Area,
		Address:      b.Address,
		ContactPhone: b.ContactPhone,
		Lat:          b.Lat,
		Lng:          b.Lng,
		Images:       b.Images,
	}
}

// --- Inputs and outputs ---

type RoomIDInput struct {
	ActorHeaders
	ID string `path:"id" doc:"Room ID"`
}

type CreateRoomInput struct {
	ActorHeaders
	Body ContentBody
}

type UpdateRoomInput struct {
	ActorHeaders
	ID   string `path:"id" doc:"Room ID"`
	Body ContentBody
}

type RoomOutput struct {
	Body RoomResponse
}

type SearchRoomsInput struct {
	ActorHeaders
	Keyword  string   `query:"q" doc:"Case-insensitive text in title, description or address"`
	Status   []string `query:"status" doc:"approved and/or available; other values are ignored"`
	MinPrice string   `query:"min_price"`
	MaxPrice string   `query:"max_price"`
	MinArea  string   `query:"min_area"`
	MaxArea  string   `query:"max_area"`
	OwnerID  string   `query:"owner_id"`
	Lat      string   `query:"lat"`
	Lng      string   `query:"lng"`
	RadiusKm string   `query:"radius_km" doc:"Defaults to 5 when lat and lng are set"`
	Sort     string   `query:"sort" doc:"price, area or createdAt; prefix - for descending"`
	Page     int      `query:"page" doc:"1-indexed page"`
	Limit    int      `query:"limit" doc:"Page size, default 20, max 100"`
}

type RoomPageOutput struct {
	Body RoomPageResponse
}

type OwnerStatusInput struct {
	ActorHeaders
	ID   string `path:"id" doc:"Room ID"`
	Body struct {
		Status string `json:"status" enum:"available,rented" doc:"Owner-settable status"`
	}
}

type UploadImagesInput struct {
	ActorHeaders
	ID      string `path:"id" doc:"Room ID"`
	RawBody multipart.Form
}

type MyRoomsInput struct {
	ActorHeaders
	Status  string `query:"status" doc:"Stored status, or expiring / expired"`
	Keyword string `query:"q"`
}

type RoomListOutput struct {
	Body []RoomResponse
}

type ProfileInput struct {
	ActorHeaders
	Body struct {
		ContactPhone string `json:"contact_phone" minLength:"1" doc:"Default phone for new drafts"`
	}
}

type AdminRoomsInput struct {
	ActorHeaders
	Status  []string `query:"status" doc:"Any stored status; empty means all"`
	Keyword string   `query:"q"`
	Page    int      `query:"page"`
	Limit   int      `query:"limit" doc:"Page size, default 10, max 50"`
}

type ModerationInput struct {
	ActorHeaders
	ID   string `path:"id" doc:"Room ID"`
	Body struct {
		Status string `json:"status" enum:"approved,rejected,needs_changes"`
		Note   string `json:"note,omitempty" doc:"Required for rejected and needs_changes"`
	}
}

// Register adds all room API routes to the Huma API.
func Register(api huma.API, svc *app.RoomService) {
	view := func(actor domain.Actor) presenter {
		return presenter{actor: actor, now: svc.Now(), actions: svc.Actions}
	}
	one := func(actor domain.Actor, room domain.Room, err error) (*RoomOutput, error) {
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RoomOutput{Body: view(actor).room(room)}, nil
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-room",
		Method:        http.MethodPost,
		Path:          "/api/v1/rooms",
		Summary:       "Create a draft room",
		Tags:          []string{"Rooms"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateRoomInput) (*RoomOutput, error) {
		actor := input.actor()
		room, err := svc.CreateDraft(ctx, actor, input.Body.patch())
		return one(actor, room, err)
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-rooms",
		Method:      http.MethodGet,
		Path:        "/api/v1/rooms",
		Summary:     "Discover published rooms",
		Tags:        []string{"Discovery"},
	}, func(ctx context.Context, input *SearchRoomsInput) (*RoomPageOutput, error) {
		page, err := svc.ListPublic(ctx, domain.PublicQuery{
			Keyword:  input.Keyword,
			Statuses: input.Status,
			MinPrice: input.MinPrice,
			MaxPrice: input.MaxPrice,
			MinArea:  input.MinArea,
			MaxArea:  input.MaxArea,
			OwnerID:  input.OwnerID,
			Lat:      input.Lat,
			Lng:      input.Lng,
			RadiusKm: input.RadiusKm,
			Sort:     input.Sort,
			Page:     input.Page,
			Limit:    input.Limit,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RoomPageOutput{Body: view(input.actor()).page(page)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-room",
		Method:      http.MethodGet,
		Path:        "/api/v1/rooms/{id}",
		Summary:     "Get a room by ID",
		Tags:        []string{"Rooms"},
	}, func(ctx context.Context, input *RoomIDInput) (*RoomOutput, error) {
		actor := input.actor()
		room, err := svc.Get(ctx, input.ID, actor)
		return one(actor, room, err)
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-room",
		Method:      http.MethodPatch,
		Path:        "/api/v1/rooms/{id}",
		Summary:     "Edit a draft room",
		Tags:        []string{"Rooms"},
	}, func(ctx context.Context, input *UpdateRoomInput) (*RoomOutput, error) {
		actor := input.actor()
		room, err := svc.UpdateDraft(ctx, input.ID, actor, input.Body.patch())
		return one(actor, room, err)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-room",
		Method:        http.MethodDelete,
		Path:          "/api/v1/rooms/{id}",
		Summary:       "Delete a room",
		Tags:          []string{"Rooms"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *RoomIDInput) (*struct{}, error) {
		if err := svc.Delete(ctx, input.ID, input.actor()); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-room",
		Method:      http.MethodPost,
		Path:        "/api/v1/rooms/{id}/submit",
		Summary:     "Submit a draft for review",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *RoomIDInput) (*RoomOutput, error) {
		actor := input.actor()
		room, err := svc.SubmitForReview(ctx, input.ID, actor)
		return one(actor, room, err)
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-room-status",
		Method:      http.MethodPost,
		Path:        "/api/v1/rooms/{id}/status",
		Summary:     "Mark a published room available or rented",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *OwnerStatusInput) (*RoomOutput, error) {
		actor := input.actor()
		room, err := svc.SetOwnerStatus(ctx, input.ID, actor, domain.Status(input.Body.Status))
		return one(actor, room, err)
	})

	huma.Register(api, huma.Operation{
		OperationID: "revise-room",
		Method:      http.MethodPost,
		Path:        "/api/v1/rooms/{id}/revise",
		Summary:     "Return a rejected room to draft",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *RoomIDInput) (*RoomOutput, error) {
		actor := input.actor()
		room, err := svc.Revise(ctx, input.ID, actor)
		return one(actor, room, err)
	})

	huma.Register(api, huma.Operation{
		OperationID:  "upload-room-images",
		Method:       http.MethodPost,
		Path:         "/api/v1/rooms/{id}/images",
		Summary:      "Upload images to a draft",
		Description:  "Multipart form with one or more files in the files field.",
		Tags:         []string{"Rooms"},
		MaxBodyBytes: maxUploadBytes,
	}, func(ctx context.Context, input *UploadImagesInput) (*RoomOutput, error) {
		uploads, err := readUploads(input.RawBody.File["files"])
		if err != nil {
			return nil, huma.Error400BadRequest("reading uploaded files", err)
		}
		actor := input.actor()
		room, err := svc.AddImages(ctx, input.ID, actor, uploads)
		return one(actor, room, err)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "record-room-call",
		Method:        http.MethodPost,
		Path:          "/api/v1/rooms/{id}/calls",
		Summary:       "Record a contact call",
		Tags:          []string{"Rooms"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *RoomIDInput) (*struct{}, error) {
		if err := svc.RecordCall(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-my-rooms",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/rooms",
		Summary:     "List the caller's rooms",
		Tags:        []string{"Owner"},
	}, func(ctx context.Context, input *MyRoomsInput) (*RoomListOutput, error) {
		actor := input.actor()
		rooms, err := svc.ListForOwner(ctx, actor, input.Status, input.Keyword)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RoomListOutput{Body: view(actor).rooms(rooms)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "update-my-profile",
		Method:        http.MethodPut,
		Path:          "/api/v1/me/profile",
		Summary:       "Set the default contact phone",
		Tags:          []string{"Owner"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *ProfileInput) (*struct{}, error) {
		if err := svc.SaveContactPhone(ctx, input.actor(), input.Body.ContactPhone); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-moderation-queue",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/rooms",
		Summary:     "List rooms for moderation",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *AdminRoomsInput) (*RoomPageOutput, error) {
		actor := input.actor()
		page, err := svc.ListForAdmin(ctx, actor, input.Status, input.Keyword, input.Page, input.Limit)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RoomPageOutput{Body: view(actor).page(page)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "moderate-room",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/rooms/{id}/moderation",
		Summary:     "Approve, reject or request changes",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *ModerationInput) (*RoomOutput, error) {
		actor := input.actor()
		room, err := svc.AdminTransition(ctx, input.ID, actor, domain.ModerationRequest{
			Status: domain.Status(input.Body.Status),
			Note:   input.Body.Note,
		})
		return one(actor, room, err)
	})
}

func readUploads(files []*multipart.FileHeader) ([]domain.ImageUpload, error) {
	uploads := make([]domain.ImageUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, domain.ImageUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}
