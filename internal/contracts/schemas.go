// Package contracts holds the JSON schemas of payloads that leave the service
// and validates outgoing messages against them.
package contracts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/neomorfeo/roomlist/internal/domain"
)

//go:embed schemas
var schemaFS embed.FS

const (
	ModerationNotificationEvent   = "ModerationNotificationEvent"
	ModerationNotificationVersion = "1.0.0"
)

var compiledSchemas = mustCompileSchemas()

func mustCompileSchemas() map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	root, err := fs.Sub(schemaFS, "schemas")
	if err != nil {
		panic(err)
	}

	var paths []string
	err = fs.WalkDir(root, "events", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		file, err := root.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := compiler.AddResource(path, file); err != nil {
			return fmt.Errorf("adding schema %s: %w", path, err)
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("loading schemas: %v", err))
	}

	out := make(map[string]*jsonschema.Schema, len(paths))
	for _, path := range paths {
		schema, err := compiler.Compile(path)
		if err != nil {
			panic(fmt.Sprintf("compiling schema %s: %v", path, err))
		}
		out[schemaKey(path)] = schema
	}
	return out
}

// schemaKey turns "events/moderation-notification/v1.json" into
// "ModerationNotificationEvent/1.0.0".
func schemaKey(path string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, "events/"), ".json")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 {
		return ""
	}

	caser := cases.Title(language.English)
	var name strings.Builder
	for _, p := range strings.Split(parts[0], "-") {
		name.WriteString(caser.String(p))
	}
	name.WriteString("Event")

	return name.String() + "/" + strings.TrimPrefix(parts[1], "v") + ".0.0"
}

// ValidateEvent checks body against the registered schema for eventType and version.
func ValidateEvent(eventType, version string, body []byte) error {
	schema, ok := compiledSchemas[eventType+"/"+version]
	if !ok {
		return fmt.Errorf("schema for event %q version %q not found", eventType, version)
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("message body is not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ModerationNotification is the wire form of domain.Notification.
type ModerationNotification struct {
	EventID    string    `json:"event_id"`
	OwnerID    string    `json:"owner_id"`
	RoomID     string    `json:"room_id"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewModerationNotification stamps n with an event id and time.
func NewModerationNotification(n domain.Notification, eventID string, at time.Time) ModerationNotification {
	return ModerationNotification{
		EventID:    eventID,
		OwnerID:    n.OwnerID,
		RoomID:     n.RoomID,
		Status:     string(n.Status),
		Reason:     n.Reason,
		OccurredAt: at.UTC(),
	}
}

// Validate marshals m and checks it against its schema.
func (m ModerationNotification) Validate() error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	return ValidateEvent(ModerationNotificationEvent, ModerationNotificationVersion, body)
}
