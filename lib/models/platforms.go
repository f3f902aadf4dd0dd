package models

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// DefaultPlatforms is used for channels without a stored platform set.
var DefaultPlatforms = NewPlatforms("pc", "xbox", "ps")

const fallbackIcon = "unknown.png"

var platformIcons = map[string]string{
	"pc":          "pc.png",
	"ps":          "ps.png",
	"playstation": "ps.png",
	"xbox":        "xbox.png",
}

// Platforms is a set of lower-cased platform tags, kept sorted and free of duplicates.
type Platforms []string

func NewPlatforms(tags ...string) Platforms {
	set := lo.Uniq(lo.FilterMap(tags, func(tag string, _ int) (string, bool) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		return tag, tag != ""
	}))
	sort.Strings(set)
	return Platforms(set)
}

// ParsePlatforms reads a comma-separated list such as "pc, PS,xbox".
func ParsePlatforms(csv string) Platforms {
	return NewPlatforms(strings.Split(csv, ",")...)
}

func (p Platforms) Empty() bool {
	return len(p) == 0
}

func (p Platforms) Contains(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	i := sort.SearchStrings(p, tag)
	return i < len(p) && p[i] == tag
}

func (p Platforms) Intersects(other Platforms) bool {
	return lo.Some(p, other)
}

func (p Platforms) Equal(other Platforms) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

func (p Platforms) String() string {
	return strings.Join(p, ",")
}

// Matches reports whether an item published for itemPlatforms is relevant to a
// subscription on subscribed. Comparison ignores case.
func Matches(itemPlatforms, subscribed []string) bool {
	return NewPlatforms(itemPlatforms...).Intersects(NewPlatforms(subscribed...))
}

// RenderIcons returns one icon path per platform present in both sets, in tag order.
func RenderIcons(itemPlatforms, subscribed []string, staticDir string) []string {
	sub := NewPlatforms(subscribed...)
	return lo.FilterMap(NewPlatforms(itemPlatforms...), func(tag string, _ int) (string, bool) {
		if !sub.Contains(tag) {
			return "", false
		}
		return IconPath(staticDir, tag), true
	})
}

func IconPath(staticDir, tag string) string {
	name, ok := platformIcons[strings.ToLower(tag)]
	if !ok {
		name = fallbackIcon
	}
	return filepath.Join(staticDir, name)
}
