package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/neomorfeo/roomlist/internal/adapter/sqlite"
	"github.com/neomorfeo/roomlist/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestRepo creates an in-memory SQLite repository for testing.
func newTestRepo(t *testing.T) *sqlite.RoomRepository {
	t.Helper()
	repo, err := sqlite.New(":memory:", sqlite.WithClock(func() time.Time { return baseTime.Add(time.Hour) }))
	if err != nil {
		t.Fatalf("creating test repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testRoom(id, owner string, status domain.Status) domain.Room {
	room := domain.NewRoom(id, owner, domain.Content{
		Type:         "single",
		Title:        "Sunny room " + id,
		Description:  "A bright room close to the river and the old market.",
		Price:        3_000_000,
		Area:         18,
		Address:      "12 Nguyen Trai, District 1",
		Location:     &domain.GeoPoint{Lat: 10.77, Lng: 106.69},
		Images:       []string{"a.jpg", "b.jpg", "c.jpg"},
		ContactPhone: "0900000000",
	}, baseTime)
	room.Status = status
	return room
}

func mustCreate(t *testing.T, repo *sqlite.RoomRepository, room domain.Room) {
	t.Helper()
	if err := repo.Create(context.Background(), room); err != nil {
		t.Fatalf("mustCreate failed: %v", err)
	}
}

func ids(rooms []domain.Room) []string {
	out := make([]string, len(rooms))
	for i, r := range rooms {
		out[i] = r.ID
	}
	return out
}

func TestCreate_And_GetByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	room := testRoom("r-1", "owner-1", domain.StatusDraft)
	mustCreate(t, repo, room)

	got, err := repo.GetByID(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.OwnerID != "owner-1" {
		t.Errorf("OwnerID = %q, want %q", got.OwnerID, "owner-1")
	}
	if got.Status != domain.StatusDraft {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusDraft)
	}
	if got.Price != 3_000_000 || got.Area != 18 {
		t.Errorf("Price/Area = %v/%v", got.Price, got.Area)
	}
	if !slices.Equal(got.Images, room.Images) {
		t.Errorf("Images = %v, want %v", got.Images, room.Images)
	}
	if got.Location == nil || *got.Location != *room.Location {
		t.Errorf("Location = %v, want %v", got.Location, room.Location)
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}
	if !got.CreatedAt.Equal(baseTime) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, baseTime)
	}
	if got.ApprovedAt != nil || got.RejectedAt != nil {
		t.Error("audit timestamps should be empty for a new draft")
	}
}

func TestCreate_WithoutLocation(t *testing.T) {
	repo := newTestRepo(t)

	room := testRoom("r-1", "owner-1", domain.StatusDraft)
	room.Location = nil
	room.Images = nil
	mustCreate(t, repo, room)

	got, err := repo.GetByID(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Location != nil {
		t.Errorf("Location = %v, want nil", got.Location)
	}
	if len(got.Images) != 0 {
		t.Errorf("Images = %v, want empty", got.Images)
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	repo := newTestRepo(t)
	mustCreate(t, repo, testRoom("r-1", "owner-1", domain.StatusDraft))

	err := repo.Create(context.Background(), testRoom("r-1", "owner-2", domain.StatusDraft))
	var conflict *domain.StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError, got %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestUpdate_BumpsVersion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustCreate(t, repo, testRoom("r-1", "owner-1", domain.StatusPending))

	room, _ := repo.GetByID(ctx, "r-1")
	approvedAt := baseTime.Add(time.Minute)
	room.Status = domain.StatusApproved
	room.ApprovedAt = &approvedAt
	room.ApprovedBy = "admin-1"

	updated, err := repo.Update(ctx, room)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("returned Version = %d, want 2", updated.Version)
	}
	if !updated.UpdatedAt.Equal(baseTime.Add(time.Hour)) {
		t.Errorf("returned UpdatedAt = %v", updated.UpdatedAt)
	}

	got, _ := repo.GetByID(ctx, "r-1")
	if got.Status != domain.StatusApproved {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusApproved)
	}
	if got.Version != 2 {
		t.Errorf("stored Version = %d, want 2", got.Version)
	}
	if got.ApprovedAt == nil || !got.ApprovedAt.Equal(approvedAt) {
		t.Errorf("ApprovedAt = %v, want %v", got.ApprovedAt, approvedAt)
	}
	if got.ApprovedBy != "admin-1" {
		t.Errorf("ApprovedBy = %q", got.ApprovedBy)
	}
}

func TestUpdate_StaleVersion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustCreate(t, repo, testRoom("r-1", "owner-1", domain.StatusDraft))

	first, _ := repo.GetByID(ctx, "r-1")
	second := first

	first.Title = "First writer"
	if _, err := repo.Update(ctx, first); err != nil {
		t.Fatalf("first Update failed: %v", err)
	}

	second.Title = "Second writer"
	_, err := repo.Update(ctx, second)
	var conflict *domain.StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError, got %v", err)
	}

	got, _ := repo.GetByID(ctx, "r-1")
	if got.Title != "First writer" {
		t.Errorf("Title = %q, the stale write must not land", got.Title)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Update(context.Background(), testRoom("ghost", "owner-1", domain.StatusDraft))
	if !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustCreate(t, repo, testRoom("r-1", "owner-1", domain.StatusDraft))

	if err := repo.Delete(ctx, "r-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, "r-1"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "r-1"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("second Delete: expected ErrRoomNotFound, got %v", err)
	}
}

func TestIncrementCallCount_LeavesVersionAlone(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustCreate(t, repo, testRoom("r-1", "owner-1", domain.StatusAvailable))

	for range 3 {
		if err := repo.IncrementCallCount(ctx, "r-1"); err != nil {
			t.Fatalf("IncrementCallCount failed: %v", err)
		}
	}

	got, _ := repo.GetByID(ctx, "r-1")
	if got.CallCount != 3 {
		t.Errorf("CallCount = %d, want 3", got.CallCount)
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}
	if !got.UpdatedAt.Equal(baseTime) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, baseTime)
	}

	if err := repo.IncrementCallCount(ctx, "ghost"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestSearch_StatusAndOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, testRoom("r-1", "owner-1", domain.StatusApproved))
	mustCreate(t, repo, testRoom("r-2", "owner-1", domain.StatusDraft))
	mustCreate(t, repo, testRoom("r-3", "owner-2", domain.StatusAvailable))
	mustCreate(t, repo, testRoom("r-4", "owner-2", domain.StatusRejected))

	rooms, total, err := repo.Search(ctx, domain.SearchQuery{
		Statuses: domain.PublicStatuses,
		Sort:     domain.SortSpec{Field: domain.SortPrice},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 2 || !slices.Equal(ids(rooms), []string{"r-1", "r-3"}) {
		t.Errorf("public search = %v (total %d)", ids(rooms), total)
	}

	rooms, total, _ = repo.Search(ctx, domain.SearchQuery{OwnerID: "owner-2", Sort: domain.DefaultSort})
	if total != 2 || !slices.Equal(ids(rooms), []string{"r-4", "r-3"}) {
		t.Errorf("owner search = %v (total %d)", ids(rooms), total)
	}
}

func TestSearch_KeywordIsCaseInsensitive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := testRoom("r-1", "owner-1", domain.StatusApproved)
	a.Address = "45 Lê Lợi, Quận 1"
	b := testRoom("r-2", "owner-1", domain.StatusApproved)
	b.Title = "Studio with BALCONY"
	mustCreate(t, repo, a)
	mustCreate(t, repo, b)

	tests := []struct {
		keyword string
		want    []string
	}{
		{"quận 1", []string{"r-1"}},
		{"balcony", []string{"r-2"}},
		{"SUNNY", []string{"r-1"}},
		{"nowhere", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			rooms, total, err := repo.Search(ctx, domain.SearchQuery{Keyword: tt.keyword, Sort: domain.DefaultSort})
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if total != len(tt.want) || !slices.Equal(ids(rooms), tt.want) {
				t.Errorf("Search(%q) = %v (total %d), want %v", tt.keyword, ids(rooms), total, tt.want)
			}
		})
	}
}

func TestSearch_RangesSortAndPaging(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		room := testRoom(fmt.Sprintf("r-%02d", i), "owner-1", domain.StatusAvailable)
		room.Price = float64(i) * 1_000_000
		room.Area = float64(10 + i)
		room.CreatedAt = baseTime.Add(time.Duration(i) * time.Minute)
		mustCreate(t, repo, room)
	}

	min, max := 5_000_000.0, 20_000_000.0
	minArea := 20.0
	rooms, total, err := repo.Search(ctx, domain.SearchQuery{
		Statuses: domain.PublicStatuses,
		MinPrice: &min,
		MaxPrice: &max,
		MinArea:  &minArea,
		Sort:     domain.SortSpec{Field: domain.SortPrice, Desc: true},
		Page:     domain.Page{Number: 2, Limit: 5},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// Prices 10..20 match both bounds: 11 rooms, page 2 of 5 is prices 15..11.
	if total != 11 {
		t.Errorf("total = %d, want 11", total)
	}
	want := []string{"r-15", "r-14", "r-13", "r-12", "r-11"}
	if !slices.Equal(ids(rooms), want) {
		t.Errorf("page = %v, want %v", ids(rooms), want)
	}

	rooms, _, _ = repo.Search(ctx, domain.SearchQuery{Sort: domain.DefaultSort, Page: domain.Page{Number: 1, Limit: 3}})
	if !slices.Equal(ids(rooms), []string{"r-25", "r-24", "r-23"}) {
		t.Errorf("newest first = %v", ids(rooms))
	}

	rooms, total, _ = repo.Search(ctx, domain.SearchQuery{Sort: domain.DefaultSort})
	if len(rooms) != 25 || total != 25 {
		t.Errorf("zero limit should return all rows, got %d of %d", len(rooms), total)
	}
}

// haversineKm is an independent reference implementation.
func haversineKm(a, b domain.GeoPoint) float64 {
	const r = 6371.0
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Pow(math.Sin(dLng/2), 2)
	return 2 * r * math.Asin(math.Sqrt(h))
}

func TestSearch_GeoRadiusMatchesHaversine(t *testing.T) {
	centers := []struct {
		name     string
		center   domain.GeoPoint
		radiusKm float64
	}{
		{"saigon 5km", domain.GeoPoint{Lat: 10.7769, Lng: 106.7009}, 5},
		{"saigon 1km", domain.GeoPoint{Lat: 10.7769, Lng: 106.7009}, 1},
		{"antimeridian", domain.GeoPoint{Lat: -16.5, Lng: 179.98}, 8},
		{"high latitude", domain.GeoPoint{Lat: 69.65, Lng: 18.96}, 20},
		{"wide", domain.GeoPoint{Lat: 48.85, Lng: 2.35}, 900},
	}

	for _, tc := range centers {
		t.Run(tc.name, func(t *testing.T) {
			repo := newTestRepo(t)
			ctx := context.Background()
			rng := rand.New(rand.NewPCG(7, uint64(len(tc.name))))

			spread := 2.5 * tc.radiusKm / 111.0
			var want []string
			for i := range 300 {
				p := domain.GeoPoint{
					Lat: math.Max(-90, math.Min(90, tc.center.Lat+(rng.Float64()*2-1)*spread)),
					Lng: tc.center.Lng + (rng.Float64()*2-1)*spread/math.Cos(tc.center.Lat*math.Pi/180),
				}
				if p.Lng > 180 {
					p.Lng -= 360
				}
				room := testRoom(fmt.Sprintf("g-%03d", i), "owner-1", domain.StatusAvailable)
				room.Location = &p
				mustCreate(t, repo, room)
				if haversineKm(tc.center, p) <= tc.radiusKm {
					want = append(want, room.ID)
				}
			}
			noLoc := testRoom("no-location", "owner-1", domain.StatusAvailable)
			noLoc.Location = nil
			mustCreate(t, repo, noLoc)

			rooms, total, err := repo.Search(ctx, domain.SearchQuery{
				Geo:  &domain.GeoRadius{Center: tc.center, RadiusKm: tc.radiusKm},
				Sort: domain.SortSpec{Field: domain.SortCreatedAt},
			})
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}

			got := ids(rooms)
			slices.Sort(got)
			slices.Sort(want)
			if total != len(want) || !slices.Equal(got, want) {
				t.Errorf("geo search returned %d rooms, haversine expects %d\nextra/missing diff: got=%v want=%v",
					total, len(want), got, want)
			}
		})
	}
}

func TestProfileStore(t *testing.T) {
	repo := newTestRepo(t)
	store := sqlite.NewProfileStore(repo.DB())
	ctx := context.Background()

	phone, err := store.ContactPhone(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ContactPhone failed: %v", err)
	}
	if phone != "" {
		t.Errorf("phone = %q, want empty for unknown owner", phone)
	}

	if err := store.SaveContactPhone(ctx, "owner-1", "0911111111"); err != nil {
		t.Fatalf("SaveContactPhone failed: %v", err)
	}
	if err := store.SaveContactPhone(ctx, "owner-1", "0922222222"); err != nil {
		t.Fatalf("SaveContactPhone upsert failed: %v", err)
	}

	phone, _ = store.ContactPhone(ctx, "owner-1")
	if phone != "0922222222" {
		t.Errorf("phone = %q, want %q", phone, "0922222222")
	}
}

func TestSearch_KeywordStaysWithinOneField(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	room := testRoom("r-1", "owner-1", domain.StatusApproved)
	room.Title = "Quiet studio"
	room.Description = "Balcony facing the park, fully furnished."
	mustCreate(t, repo, room)

	for _, kw := range []string{"studio\nbalcony", "studio\x1fbalcony", "studio\tbalcony"} {
		rooms, total, err := repo.Search(ctx, domain.SearchQuery{Keyword: kw, Sort: domain.DefaultSort})
		if err != nil {
			t.Fatalf("Search(%q) failed: %v", kw, err)
		}
		if total != 0 || len(rooms) != 0 {
			t.Errorf("Search(%q) = %v, want no match across title and description", kw, ids(rooms))
		}
	}
}

func TestGetByID_CorruptTimestampIsAnError(t *testing.T) {
	ctx := context.Background()

	for _, column := range []string{"created_at", "updated_at", "approved_at"} {
		t.Run(column, func(t *testing.T) {
			repo := newTestRepo(t)
			mustCreate(t, repo, testRoom("r-1", "owner-1", domain.StatusAvailable))
			if _, err := repo.DB().ExecContext(ctx, "UPDATE rooms SET "+column+" = 'yesterday' WHERE id = 'r-1'"); err != nil {
				t.Fatalf("corrupting %s: %v", column, err)
			}
			_, err := repo.GetByID(ctx, "r-1")
			if err == nil {
				t.Fatalf("GetByID returned no error for a corrupt %s", column)
			}
			if errors.Is(err, domain.ErrRoomNotFound) {
				t.Errorf("GetByID error = %v, want a scan error", err)
			}
		})
	}
}
