package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry([]Spec{
		{Key: "vrbo", FeedURL: "https://vrbo.test/a.ics", ExcludeSummary: "Not available"},
		{Key: " air ", FeedURL: " https://airbnb.test/b.ics ", StripPattern: "Reserved - ", AddPrefix: "air"},
		{Key: "misterb", FeedURL: "https://misterb.test/c.ics"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{"vrbo", "air", "misterb"}, reg.Keys())

	air, ok := reg.Get("air")
	require.True(t, ok)
	assert.Equal(t, "https://airbnb.test/b.ics", air.FeedURL)
	require.NotNil(t, air.StripPattern)
	assert.Equal(t, "Jeff Jones", air.StripPattern.ReplaceAllLiteralString("Reserved - Jeff Jones", ""))
	assert.Equal(t, "air", air.AddPrefix)

	vrbo, ok := reg.Get("vrbo")
	require.True(t, ok)
	assert.Nil(t, vrbo.StripPattern)
	assert.Equal(t, "Not available", vrbo.ExcludeSummary)

	_, ok = reg.Get("booking")
	assert.False(t, ok)
	_, ok = reg.Get(AllKey)
	assert.False(t, ok)
}

func TestNewRegistryRejects(t *testing.T) {
	tests := []struct {
		name    string
		specs   []Spec
		wantErr string
	}{
		{
			name:    "empty key",
			specs:   []Spec{{Key: "  ", FeedURL: "https://x.test"}},
			wantErr: "key is empty",
		},
		{
			name:    "reserved key",
			specs:   []Spec{{Key: "all", FeedURL: "https://x.test"}},
			wantErr: "reserved",
		},
		{
			name: "duplicate key",
			specs: []Spec{
				{Key: "air", FeedURL: "https://x.test"},
				{Key: "air", FeedURL: "https://y.test"},
			},
			wantErr: "duplicate key",
		},
		{
			name:    "missing url",
			specs:   []Spec{{Key: "air"}},
			wantErr: "url is empty",
		},
		{
			name:    "bad strip pattern",
			specs:   []Spec{{Key: "air", FeedURL: "https://x.test", StripPattern: "Reserved ("}},
			wantErr: "strip pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewRegistry(tt.specs)
			assert.Nil(t, reg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistryCopies(t *testing.T) {
	reg, err := NewRegistry([]Spec{
		{Key: "a", FeedURL: "https://a.test"},
		{Key: "b", FeedURL: "https://b.test"},
	})
	require.NoError(t, err)

	keys := reg.Keys()
	keys[0] = "mutated"
	sources := reg.Sources()
	sources[1].Key = "mutated"

	assert.Equal(t, []string{"a", "b"}, reg.Keys())
	assert.Equal(t, "b", reg.Sources()[1].Key)
}

func TestEmptyAndNilRegistry(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)
	assert.Zero(t, reg.Len())
	assert.Empty(t, reg.Keys())

	var nilReg *Registry
	assert.Zero(t, nilReg.Len())
	assert.Nil(t, nilReg.Sources())
	_, ok := nilReg.Get("a")
	assert.False(t, ok)
}
