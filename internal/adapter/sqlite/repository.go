package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"golang.org/x/text/cases"

	"github.com/neomorfeo/roomlist/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Fixed-width so that text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

const roomColumns = `id, owner_id, type, title, description, price, area, address,
	lat, lng, images, contact_phone, status, admin_note,
	approved_at, approved_by, rejected_at, rejected_by,
	call_count, version, created_at, updated_at`

// Compile-time check: RoomRepository implements domain.RoomRepository.
var _ domain.RoomRepository = (*RoomRepository)(nil)

// RoomRepository implements domain.RoomRepository using SQLite.
type RoomRepository struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a RoomRepository.
type Option func(*RoomRepository)

// WithClock overrides the clock used to stamp updated_at on writes.
func WithClock(now func() time.Time) Option {
	return func(r *RoomRepository) { r.now = now }
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string, opts ...Option) (*RoomRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db, opts...)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB, opts ...Option) (*RoomRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	r := &RoomRepository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close closes the underlying database connection.
func (r *RoomRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *RoomRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

func (r *RoomRepository) Create(ctx context.Context, room domain.Room) error {
	w, err := newRoomWrite(room)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO rooms (id, owner_id, type, title, description, price, area, address,
			lat, lng, location, geohash, images, contact_phone, status, admin_note,
			approved_at, approved_by, rejected_at, rejected_by,
			call_count, version, search_text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID, room.OwnerID, room.Type, room.Title, room.Description, room.Price, room.Area, room.Address,
		w.lat, w.lng, w.location, w.geohash, w.images, room.ContactPhone, string(room.Status), room.AdminNote,
		formatTime(room.ApprovedAt), room.ApprovedBy, formatTime(room.RejectedAt), room.RejectedBy,
		room.CallCount, room.Version, w.searchText,
		room.CreatedAt.UTC().Format(timeFormat),
		room.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.StateConflictError{RoomID: room.ID, Status: room.Status, Reason: "room already exists"}
		}
		return fmt.Errorf("inserting room: %w", err)
	}
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id string) (domain.Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return room, err
}

// Update writes every mutable column when the stored version still matches
// room.Version. Owner, call count and creation time are never touched.
func (r *RoomRepository) Update(ctx context.Context, room domain.Room) (domain.Room, error) {
	w, err := newRoomWrite(room)
	if err != nil {
		return domain.Room{}, err
	}
	now := r.now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET type = ?, title = ?, description = ?, price = ?, area = ?, address = ?,
			lat = ?, lng = ?, location = ?, geohash = ?, images = ?, contact_phone = ?,
			status = ?, admin_note = ?, approved_at = ?, approved_by = ?, rejected_at = ?, rejected_by = ?,
			search_text = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		room.Type, room.Title, room.Description, room.Price, room.Area, room.Address,
		w.lat, w.lng, w.location, w.geohash, w.images, room.ContactPhone,
		string(room.Status), room.AdminNote, formatTime(room.ApprovedAt), room.ApprovedBy,
		formatTime(room.RejectedAt), room.RejectedBy,
		w.searchText, now.Format(timeFormat),
		room.ID, room.Version,
	)
	if err != nil {
		return domain.Room{}, fmt.Errorf("updating room: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Room{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.Room{}, r.staleWrite(ctx, room)
	}

	room.Version++
	room.UpdatedAt = now
	return room, nil
}

// staleWrite explains why a conditional update matched nothing.
func (r *RoomRepository) staleWrite(ctx context.Context, room domain.Room) error {
	stored, err := r.GetByID(ctx, room.ID)
	if err != nil {
		return err
	}
	return &domain.StateConflictError{
		RoomID: room.ID,
		Status: stored.Status,
		Reason: fmt.Sprintf("room was modified concurrently (version %d, stored %d)", room.Version, stored.Version),
	}
}

func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}
	return expectOneRow(result)
}

// IncrementCallCount bumps the call counter without touching version or updated_at.
func (r *RoomRepository) IncrementCallCount(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET call_count = call_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("incrementing call count: %w", err)
	}
	return expectOneRow(result)
}

// Search returns one page of rooms matching q plus the total match count.
func (r *RoomRepository) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Room, int, error) {
	where, args := applySearch(q)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting rooms: %w", err)
	}
	if total == 0 {
		return []domain.Room{}, 0, nil
	}

	query := `SELECT ` + roomColumns + ` FROM rooms ` + where + ` ORDER BY ` + orderBy(q.Sort)
	pageArgs := slices.Clone(args)
	if q.Page.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		pageArgs = append(pageArgs, q.Page.Limit, q.Page.Offset())
	}

	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("searching rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]domain.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		rooms = append(rooms, room)
	}
	return rooms, total, rows.Err()
}

// roomWrite holds the derived column values written alongside a room.
type roomWrite struct {
	lat, lng   sql.NullFloat64
	location   sql.NullString
	geohash    sql.NullString
	images     string
	searchText string
}

// newRoomWrite derives every location column from the same point so they cannot drift.
func newRoomWrite(room domain.Room) (roomWrite, error) {
	images := room.Images
	if images == nil {
		images = []string{}
	}
	encoded, err := json.Marshal(images)
	if err != nil {
		return roomWrite{}, fmt.Errorf("encoding images: %w", err)
	}

	w := roomWrite{
		images:     string(encoded),
		searchText: foldText(room.Title, room.Description, room.Address),
	}
	if p := room.Location; p != nil {
		geo, err := json.Marshal(p.GeoJSON())
		if err != nil {
			return roomWrite{}, fmt.Errorf("encoding location: %w", err)
		}
		w.lat = sql.NullFloat64{Float64: p.Lat, Valid: true}
		w.lng = sql.NullFloat64{Float64: p.Lng, Valid: true}
		w.location = sql.NullString{String: string(geo), Valid: true}
		w.geohash = sql.NullString{String: encodePoint(*p, geohashChars), Valid: true}
	}
	return w, nil
}

// fieldSeparator sits between the folded fields. Keywords are stripped of
// control characters, so no keyword can match across two fields.
const fieldSeparator = "\x1f"

// foldText joins and case-folds the searchable fields.
func foldText(parts ...string) string {
	return cases.Fold().String(strings.Join(parts, fieldSeparator))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(row scanner) (domain.Room, error) {
	var (
		room                   domain.Room
		lat, lng               sql.NullFloat64
		images, status         string
		approvedAt, rejectedAt sql.NullString
		createdAt, updatedAt   string
	)

	err := row.Scan(&room.ID, &room.OwnerID, &room.Type, &room.Title, &room.Description,
		&room.Price, &room.Area, &room.Address, &lat, &lng, &images, &room.ContactPhone,
		&status, &room.AdminNote, &approvedAt, &room.ApprovedBy, &rejectedAt, &room.RejectedBy,
		&room.CallCount, &room.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Room{}, err
		}
		return domain.Room{}, fmt.Errorf("scanning room: %w", err)
	}

	room.Status = domain.Status(status)
	if lat.Valid && lng.Valid {
		room.Location = &domain.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	if err := json.Unmarshal([]byte(images), &room.Images); err != nil {
		return domain.Room{}, fmt.Errorf("decoding images of room %q: %w", room.ID, err)
	}
	if room.ApprovedAt, err = parseNullTime(approvedAt); err != nil {
		return domain.Room{}, fmt.Errorf("scanning approved_at of room %q: %w", room.ID, err)
	}
	if room.RejectedAt, err = parseNullTime(rejectedAt); err != nil {
		return domain.Room{}, fmt.Errorf("scanning rejected_at of room %q: %w", room.ID, err)
	}
	if room.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return domain.Room{}, fmt.Errorf("scanning created_at of room %q: %w", room.ID, err)
	}
	if room.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return domain.Room{}, fmt.Errorf("scanning updated_at of room %q: %w", room.ID, err)
	}

	return room, nil
}

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
