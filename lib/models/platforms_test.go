package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPlatformsNormalises(t *testing.T) {
	assert.Equal(t, Platforms{"pc", "ps", "xbox"}, NewPlatforms(" XBOX", "pc", "", "PS", "pc"))
	assert.Equal(t, Platforms{"pc", "ps"}, ParsePlatforms("ps, PC,,"))
	assert.True(t, ParsePlatforms(" , ").Empty())
	assert.Equal(t, "pc,ps,xbox", DefaultPlatforms.String())
}

func TestMatches(t *testing.T) {
	tests := []struct {
		a, b []string
		want bool
	}{
		{[]string{"PC"}, []string{"pc"}, true},
		{[]string{"xbox", "ps"}, []string{"pc"}, false},
		{[]string{"pc", "ps"}, []string{"Ps"}, true},
		{nil, []string{"pc"}, false},
		{[]string{"pc"}, nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Matches(tt.a, tt.b), "%v vs %v", tt.a, tt.b)
		assert.Equal(t, Matches(tt.a, tt.b), Matches(tt.b, tt.a), "symmetry %v vs %v", tt.a, tt.b)
	}
}

func TestRenderIcons(t *testing.T) {
	icons := RenderIcons([]string{"xbox", "PC", "switch", "ps"}, []string{"pc", "xbox", "switch"}, "static")
	assert.Equal(t, []string{"static/pc.png", "static/unknown.png", "static/xbox.png"}, icons)

	assert.Empty(t, RenderIcons([]string{"xbox", "ps"}, []string{"pc"}, "static"))
	assert.Equal(t, []string{"static/ps.png"}, RenderIcons([]string{"playstation"}, []string{"PlayStation"}, "static"))
}

func TestPlatformsContains(t *testing.T) {
	p := NewPlatforms("pc", "xbox")
	assert.True(t, p.Contains("PC"))
	assert.False(t, p.Contains("ps"))
	assert.True(t, p.Equal(Platforms{"pc", "xbox"}))
	assert.False(t, p.Equal(Platforms{"pc"}))
}
