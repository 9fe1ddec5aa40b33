// Package core holds the domain of the archive: items, their remote layout,
// the canonical ordering and the ports implemented by the adapters.
package core

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Kind is the type of an archived item. It is fixed at creation.
type Kind string

const (
	KindNote  Kind = "note"
	KindLink  Kind = "link"
	KindImage Kind = "image"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindNote, KindLink, KindImage:
		return true
	}
	return false
}

// Flag names one of the independent boolean toggles of an item.
type Flag string

const (
	FlagPinned   Flag = "pinned"
	FlagStarred  Flag = "starred"
	FlagArchived Flag = "archived"
)

// Item is the unit of storage.
//
// Content is free text for notes, a URL for links and a caption for images.
// CreatedAt together with ID forms the remote path, so it is never mutated
// after the first write. An item decoded from a createdAt text that is not in
// the canonical RFC 3339 UTC form keeps that text, and writes it back
// unchanged.
type Item struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
	Title     string    `json:"title,omitempty"`
	Note      string    `json:"note,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	AssetPath string    `json:"assetPath,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	Pinned    bool      `json:"pinned"`
	Starred   bool      `json:"starred"`
	Archived  bool      `json:"archived"`

	createdText string
}

// New returns an item of the given kind with a fresh id and creation time.
func New(kind Kind, content string) Item {
	return Item{
		ID:        uuid.NewString(),
		Kind:      kind,
		Content:   content,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

// NewNote creates a note item.
func NewNote(text string) Item {
	return New(KindNote, text)
}

// NewLink creates a link item pointing at url.
func NewLink(url string) Item {
	return New(KindLink, url)
}

// NewImage creates an image item referencing an uploaded asset.
func NewImage(caption, assetPath string) Item {
	it := New(KindImage, caption)
	it.AssetPath = assetPath
	return it
}

// Validate checks the invariants an item must hold before it is written.
func (it Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if !it.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, it.Kind)
	}
	if it.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing createdAt", ErrInvalidItem)
	}
	switch it.Kind {
	case KindLink:
		if it.Content == "" {
			return fmt.Errorf("%w: link without url", ErrInvalidItem)
		}
	case KindImage:
		if it.AssetPath == "" {
			return fmt.Errorf("%w: image without asset", ErrInvalidItem)
		}
	}
	return nil
}

// Flag returns the value of the named flag.
func (it Item) Flag(f Flag) (bool, error) {
	switch f {
	case FlagPinned:
		return it.Pinned, nil
	case FlagStarred:
		return it.Starred, nil
	case FlagArchived:
		return it.Archived, nil
	}
	return false, fmt.Errorf("unknown flag %q", f)
}

// WithFlag returns a copy of it with the named flag set to v.
func (it Item) WithFlag(f Flag, v bool) (Item, error) {
	switch f {
	case FlagPinned:
		it.Pinned = v
	case FlagStarred:
		it.Starred = v
	case FlagArchived:
		it.Archived = v
	default:
		return it, fmt.Errorf("unknown flag %q", f)
	}
	return it, nil
}

// Toggled returns a copy of it with the named flag inverted.
func (it Item) Toggled(f Flag) (Item, error) {
	cur, err := it.Flag(f)
	if err != nil {
		return it, err
	}
	return it.WithFlag(f, !cur)
}

// HasTag reports whether the item carries tag.
func (it Item) HasTag(tag string) bool {
	return slices.Contains(it.Tags, tag)
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	it.Tags = slices.Clone(it.Tags)
	return it
}

// Patch describes a partial change to an item. Nil fields are left untouched.
// Kind, ID and CreatedAt cannot be patched.
type Patch struct {
	Content   *string   `json:"content,omitempty"`
	Title     *string   `json:"title,omitempty"`
	Note      *string   `json:"note,omitempty"`
	Tags      *[]string `json:"tags,omitempty"`
	AssetPath *string   `json:"assetPath,omitempty"`
	Pinned    *bool     `json:"pinned,omitempty"`
	Starred   *bool     `json:"starred,omitempty"`
	Archived  *bool     `json:"archived,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Apply merges the patch into it and returns the result.
func (p Patch) Apply(it Item) Item {
	it = it.Clone()
	if p.Content != nil {
		it.Content = *p.Content
	}
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.Note != nil {
		it.Note = *p.Note
	}
	if p.Tags != nil {
		it.Tags = NormalizeTags(*p.Tags)
	}
	if p.AssetPath != nil {
		it.AssetPath = *p.AssetPath
	}
	if p.Pinned != nil {
		it.Pinned = *p.Pinned
	}
	if p.Starred != nil {
		it.Starred = *p.Starred
	}
	if p.Archived != nil {
		it.Archived = *p.Archived
	}
	return it
}

// NormalizeTags drops empty and duplicate tags. Order is irrelevant for tags
// but kept stable so that rewrites produce identical files.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
