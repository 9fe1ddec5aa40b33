package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Encode serializes an item as pretty-printed JSON, the stored wire format.
func Encode(it Item) ([]byte, error) {
	data, err := json.MarshalIndent(it, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode item %s: %w", it.ID, err)
	}
	return append(data, '\n'), nil
}

// Decode parses a stored item. Malformed content and content that does not
// describe an item both yield ErrParseFailure.
func Decode(data []byte) (Item, error) {
	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if it.ID == "" || !it.Kind.Valid() {
		return Item{}, fmt.Errorf("%w: missing id or kind", ErrParseFailure)
	}
	return it, nil
}

// wireItem is the stored shape of an Item, with createdAt kept as text.
type wireItem struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
	Title     string    `json:"title,omitempty"`
	Note      string    `json:"note,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	AssetPath string    `json:"assetPath,omitempty"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	Pinned    bool      `json:"pinned"`
	Starred   bool      `json:"starred"`
	Archived  bool      `json:"archived"`
}

// CreatedText returns createdAt as it is stored remotely.
func (it Item) CreatedText() string {
	if it.createdText != "" {
		return it.createdText
	}
	return it.CreatedAt.UTC().Format(time.RFC3339Nano)
}

// WithCreatedFrom returns it carrying the stored createdAt text of stored
// when both describe the same instant.
func (it Item) WithCreatedFrom(stored Item) Item {
	if it.CreatedAt.Equal(stored.CreatedAt) {
		it.createdText = stored.createdText
	}
	return it
}

// MarshalJSON implements json.Marshaler.
func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireItem{
		ID:        it.ID,
		Kind:      it.Kind,
		Content:   it.Content,
		Title:     it.Title,
		Note:      it.Note,
		Tags:      it.Tags,
		AssetPath: it.AssetPath,
		CreatedAt: it.CreatedText(),
		UpdatedAt: it.UpdatedAt,
		Pinned:    it.Pinned,
		Starred:   it.Starred,
		Archived:  it.Archived,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (it *Item) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var created time.Time
	if w.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, w.CreatedAt)
		if err != nil {
			return fmt.Errorf("invalid createdAt: %w", err)
		}
		created = t
	}

	*it = Item{
		ID:        w.ID,
		Kind:      w.Kind,
		Content:   w.Content,
		Title:     w.Title,
		Note:      w.Note,
		Tags:      w.Tags,
		AssetPath: w.AssetPath,
		CreatedAt: created,
		UpdatedAt: w.UpdatedAt,
		Pinned:    w.Pinned,
		Starred:   w.Starred,
		Archived:  w.Archived,
	}
	if w.CreatedAt != "" && w.CreatedAt != created.UTC().Format(time.RFC3339Nano) {
		it.createdText = w.CreatedAt
	}
	return nil
}
