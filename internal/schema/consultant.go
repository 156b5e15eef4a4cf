package schema

import (
	"fmt"
	"net/url"
	"strings"
)

// NoPhotoSentinel marks an avatar cell that intentionally has no picture.
const NoPhotoSentinel = "SEM FOTO"

// minAvatarLen is the shortest avatar value treated as a real address.
const minAvatarLen = 11

// Consultant is a field agent identity, one per sector.
type Consultant struct {
	ID     string `json:"id"`
	Sector string `json:"sector"`
	Name   string `json:"name"`

	// Pass is the sector password; empty means none is required.
	Pass string `json:"pass"`

	AvatarURL string `json:"avatarUrl"`

	// AvatarBase64 holds the avatar as a data URL when a sync could fetch
	// it, so the picture is available offline.
	AvatarBase64 string `json:"avatarBase64,omitempty"`
}

// Key returns the store key for the consultant.
func (c Consultant) Key() string { return c.ID }

// Validate checks that the consultant has an id and a sector.
func (c Consultant) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("id is required")
	}
	if c.Sector == "" {
		return fmt.Errorf("sector is required")
	}
	return nil
}

// HasRemoteAvatar reports whether AvatarURL is an http(s) address that can
// be fetched and inlined.
func (c Consultant) HasRemoteAvatar() bool {
	if c.AvatarURL == "" {
		return false
	}
	u, err := url.Parse(c.AvatarURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// WithAvatar returns a copy of c carrying the inlined avatar.
func (c Consultant) WithAvatar(dataURL string) Consultant {
	c.AvatarBase64 = dataURL
	return c
}

// cleanAvatar discards sentinel and implausibly short avatar values.
func cleanAvatar(v string) string {
	if len(v) < minAvatarLen || strings.Contains(strings.ToUpper(v), NoPhotoSentinel) {
		return ""
	}
	return v
}

// DecodeConsultants maps the Consultants feed. Rows need at least five
// columns and a non-blank id and sector.
func DecodeConsultants(rows [][]string) ([]Consultant, DecodeStats) {
	data := dataRows(rows)
	stats := DecodeStats{Rows: len(data)}
	out := make([]Consultant, 0, len(data))

	for _, values := range data {
		if len(values) < 5 {
			stats.Dropped++
			continue
		}
		r := row{values: values}
		id, sector := r.get(0), r.get(1)
		if id == "" || sector == "" {
			stats.Dropped++
			continue
		}
		raw := r.get(3)
		avatar := cleanAvatar(raw)
		if avatar == "" && raw != "" {
			stats.Defaulted++
		}
		out = append(out, Consultant{
			ID:        id,
			Sector:    sector,
			Name:      r.get(4),
			Pass:      r.get(2),
			AvatarURL: avatar,
		})
	}

	stats.Decoded = len(out)
	return out, stats
}
