package domain

import (
	"strings"
)

// ContentPatch carries the fields an owner sends on create or draft edit.
// Nil means "leave unchanged".
type ContentPatch struct {
	Type         *string
	Title        *string
	Description  *string
	Price        any
	Area         any
	Address      *string
	ContactPhone *string
	Lat          *float64
	Lng          *float64
	Images       *[]string
}

// Empty reports whether the patch would change nothing.
func (p ContentPatch) Empty() bool {
	return p.Type == nil && p.Title == nil && p.Description == nil &&
		p.Price == nil && p.Area == nil && p.Address == nil &&
		p.ContactPhone == nil && p.Lat == nil && p.Lng == nil && p.Images == nil
}

// Merge applies p onto base, validates the result and returns the coerced content.
// It never mutates base.
func (p ContentPatch) Merge(base Content) (Content, error) {
	out := base
	out.Images = append([]string(nil), base.Images...)

	fields := ContentFields{
		Type:        base.Type,
		Title:       base.Title,
		Description: base.Description,
		Price:       base.Price,
		Area:        base.Area,
	}
	if p.Type != nil {
		fields.Type = strings.TrimSpace(*p.Type)
	}
	if p.Title != nil {
		fields.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		fields.Description = strings.TrimSpace(*p.Description)
	}
	if p.Price != nil {
		fields.Price = p.Price
	}
	if p.Area != nil {
		fields.Area = p.Area
	}
	if err := ValidateContent(fields); err != nil {
		return Content{}, err
	}
	out.Type = fields.Type
	out.Title = fields.Title
	out.Description = fields.Description
	out.Price = CoerceNumber(fields.Price)
	out.Area = CoerceNumber(fields.Area)

	if p.Address != nil {
		out.Address = strings.TrimSpace(*p.Address)
	}
	if p.ContactPhone != nil {
		out.ContactPhone = strings.TrimSpace(*p.ContactPhone)
	}

	if p.Lat != nil || p.Lng != nil {
		loc, err := NewGeoPoint(p.Lat, p.Lng)
		if err != nil {
			return Content{}, err
		}
		out.Location = loc
	}

	if p.Images != nil {
		images := NormalizeImages(*p.Images)
		if len(images) > MaxImages {
			return Content{}, invalid("images", "at most %d images are allowed", MaxImages)
		}
		out.Images = images
	}

	return out, nil
}

// CheckRequired verifies the fields every persisted listing must carry.
func (c Content) CheckRequired() error {
	if c.Address == "" {
		return invalid("address", "address is required")
	}
	if c.ContactPhone == "" {
		return invalid("contactPhone", "contact phone is required")
	}
	return nil
}

// CheckReviewReady verifies the extra preconditions of submitting for review.
func (c Content) CheckReviewReady() error {
	if err := ValidateContent(ContentFields{
		Type:        c.Type,
		Title:       c.Title,
		Description: c.Description,
		Price:       c.Price,
		Area:        c.Area,
	}); err != nil {
		return err
	}
	if err := c.CheckRequired(); err != nil {
		return err
	}
	if len(c.Images) < MinReviewImages {
		return invalid("images", "minimum %d images required", MinReviewImages)
	}
	if c.Location == nil || !c.Location.Valid() {
		return invalid("location", "location with both lat and lng is required")
	}
	return nil
}
