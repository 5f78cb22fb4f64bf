// Package navstate maps selection states to and from the compact
// navigation hash, e.g. "dandiset=001176&subject=sub-01".
package navstate

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/npratt/dandiatlas/internal/selection"
)

// ErrInvalidHash is returned for strings outside the navigation grammar.
var ErrInvalidHash = errors.New("invalid navigation hash")

// Keys of the navigation hash, in canonical order.
const (
	KeyRegion   = "region"
	KeyDandiset = "dandiset"
	KeySubject  = "subject"
	KeySession  = "session"
)

// Target is a decoded navigation hash.
type Target struct {
	Region         int
	HasRegion      bool
	DandisetID     string
	SubjectID      string
	SessionAssetID string
}

// Default reports whether the target is the default root view.
func (t Target) Default() bool {
	return !t.HasRegion && t.DandisetID == ""
}

// FromState returns the target that reproduces s. The hidden set is not
// part of the navigation hash.
func FromState(s selection.State) Target {
	switch s.Kind {
	case selection.KindRegion:
		id, _ := s.Region()
		return Target{Region: id, HasRegion: true}
	case selection.KindDandiset:
		t := Target{DandisetID: s.DandisetID}
		t.Region, t.HasRegion = s.RegionFilter()
		return t
	case selection.KindSubject:
		return Target{DandisetID: s.DandisetID, SubjectID: s.SubjectID, SessionAssetID: s.SessionAssetID}
	}
	return Target{}
}

// Encode returns the canonical hash of s without a leading '#'. The default
// view encodes as the empty string.
func Encode(s selection.State) string {
	return FromState(s).String()
}

// String returns the canonical encoding of t.
func (t Target) String() string {
	var b strings.Builder
	add := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}
	if t.DandisetID == "" {
		if t.HasRegion {
			add(KeyRegion, strconv.Itoa(t.Region))
		}
		return b.String()
	}
	add(KeyDandiset, t.DandisetID)
	if t.SubjectID != "" {
		add(KeySubject, t.SubjectID)
		if t.SessionAssetID != "" {
			add(KeySession, t.SessionAssetID)
		}
		return b.String()
	}
	if t.HasRegion {
		add(KeyRegion, strconv.Itoa(t.Region))
	}
	return b.String()
}

// Parse decodes a navigation hash. A leading '#' is ignored and keys may
// appear in any order; repeated or unknown keys, empty values and
// combinations outside the grammar fail with ErrInvalidHash.
func Parse(hash string) (Target, error) {
	hash = strings.TrimPrefix(strings.TrimSpace(hash), "#")
	var t Target
	if hash == "" {
		return t, nil
	}

	seen := make(map[string]bool, 4)
	for _, pair := range strings.Split(hash, "&") {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return Target{}, fmt.Errorf("%w: %q has no value", ErrInvalidHash, pair)
		}
		if seen[key] {
			return Target{}, fmt.Errorf("%w: repeated key %q", ErrInvalidHash, key)
		}
		seen[key] = true

		value, err := url.QueryUnescape(raw)
		if err != nil {
			return Target{}, fmt.Errorf("%w: %s: %v", ErrInvalidHash, key, err)
		}
		if value == "" {
			return Target{}, fmt.Errorf("%w: empty %s", ErrInvalidHash, key)
		}

		switch key {
		case KeyRegion:
			id, err := strconv.Atoi(value)
			if err != nil {
				return Target{}, fmt.Errorf("%w: region %q is not an id", ErrInvalidHash, value)
			}
			t.Region, t.HasRegion = id, true
		case KeyDandiset:
			t.DandisetID = value
		case KeySubject:
			t.SubjectID = value
		case KeySession:
			t.SessionAssetID = value
		default:
			return Target{}, fmt.Errorf("%w: unknown key %q", ErrInvalidHash, key)
		}
	}

	switch {
	case t.SubjectID != "" && t.DandisetID == "":
		return Target{}, fmt.Errorf("%w: subject without dandiset", ErrInvalidHash)
	case t.SessionAssetID != "" && t.SubjectID == "":
		return Target{}, fmt.Errorf("%w: session without subject", ErrInvalidHash)
	case t.SubjectID != "" && t.HasRegion:
		return Target{}, fmt.Errorf("%w: subject and region are exclusive", ErrInvalidHash)
	}
	return t, nil
}

// Apply drives c to the target. A dandiset target is applied step by step:
// when a later step fails (stale region or subject) the controller keeps
// the dandiset selection and the error is returned.
func (t Target) Apply(c *selection.Controller) error {
	switch {
	case t.DandisetID != "":
		if err := c.SelectDandiset(t.DandisetID); err != nil {
			return fmt.Errorf("apply %s: %w", t, err)
		}
		if t.HasRegion {
			if err := c.FilterDandisetByRegion(t.Region); err != nil {
				return fmt.Errorf("apply %s: %w", t, err)
			}
		}
		if t.SubjectID != "" {
			if err := c.SelectSubjectOrSession(t.SubjectID, t.SessionAssetID); err != nil {
				return fmt.Errorf("apply %s: %w", t, err)
			}
		}
	case t.HasRegion:
		if err := c.SelectRegion(t.Region); err != nil {
			return fmt.Errorf("apply %s: %w", t, err)
		}
	default:
		c.Clear()
	}
	return nil
}
