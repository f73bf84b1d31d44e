package models

import (
	"time"

	"github.com/plaidsound/tonearm/internal/rules"
)

// Track is one audio file in the library. Metadata comes from import;
// PlayCount and LastPlayed are maintained by the play-history recorder.
type Track struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"index" json:"title"`
	Artist      string     `gorm:"index" json:"artist"`
	Album       string     `gorm:"index" json:"album"`
	Genre       string     `gorm:"index" json:"genre,omitempty"`
	Year        *int       `json:"year,omitempty"`
	TrackNumber *int       `json:"track_number,omitempty"`
	Duration    float64    `json:"duration"`
	FileFormat  string     `gorm:"type:varchar(16)" json:"file_format"`
	FileSize    *int64     `json:"file_size,omitempty"`
	FilePath    string     `gorm:"index" json:"file_path"`
	AlbumArtURL string     `json:"album_art_url,omitempty"`
	IsFavorite  bool       `json:"is_favorite"`
	PlayCount   int        `json:"play_count"`
	LastPlayed  *time.Time `json:"last_played,omitempty"`
	CreatedAt   time.Time  `json:"created_date"`
	UpdatedAt   time.Time  `json:"-"`
}

// RuleValue exposes track fields to the rule engine. The second return
// is false for optional fields that are unset, so rules against them
// fail closed.
func (t Track) RuleValue(field rules.Field) (rules.Value, bool) {
	switch field {
	case rules.FieldTitle:
		return rules.TextValue(t.Title), true
	case rules.FieldArtist:
		return rules.TextValue(t.Artist), true
	case rules.FieldAlbum:
		return rules.TextValue(t.Album), true
	case rules.FieldGenre:
		return rules.TextValue(t.Genre), t.Genre != ""
	case rules.FieldYear:
		if t.Year == nil {
			return rules.Value{}, false
		}
		return rules.NumberValue(float64(*t.Year)), true
	case rules.FieldTrackNumber:
		if t.TrackNumber == nil {
			return rules.Value{}, false
		}
		return rules.NumberValue(float64(*t.TrackNumber)), true
	case rules.FieldDuration:
		return rules.NumberValue(t.Duration), true
	case rules.FieldPlayCount:
		return rules.NumberValue(float64(t.PlayCount)), true
	case rules.FieldIsFavorite:
		return rules.BoolValue(t.IsFavorite), true
	case rules.FieldFileFormat:
		return rules.TextValue(t.FileFormat), true
	default:
		return rules.Value{}, false
	}
}

// Playlist is a manual or smart playlist. For smart playlists TrackIDs
// is a derived cache: it always equals the materialization of
// SmartCriteria over the library after a maintenance pass and is not
// user-editable while IsSmart holds.
type Playlist struct {
	ID            string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string         `gorm:"index" json:"name"`
	Description   string         `gorm:"type:text" json:"description,omitempty"`
	TrackIDs      []string       `gorm:"serializer:json" json:"track_ids"`
	IsSmart       bool           `gorm:"index" json:"is_smart"`
	SmartCriteria *rules.RuleSet `gorm:"serializer:json" json:"smart_criteria,omitempty"`
	CreatedAt     time.Time      `json:"created_date"`
	UpdatedAt     time.Time      `json:"-"`
}

// PlayHistoryEntry is an append-only scrobble record.
type PlayHistoryEntry struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	TrackID        string    `gorm:"type:uuid;index" json:"track_id"`
	DurationPlayed float64   `json:"duration_played"`
	WasSkipped     bool      `json:"was_skipped"`
	CreatedAt      time.Time `gorm:"index" json:"created_date"`
}
