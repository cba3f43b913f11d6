package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParentLink(t *testing.T) {
	tests := []struct {
		in    string
		wantW int
		wantL int
		mount int
		isMnt bool
	}{
		{in: "1121", mount: 1121, isMnt: true},
		{in: "w1121l1122", wantW: 1121, wantL: 1122},
		{in: "l1122w1121", wantW: 1121, wantL: 1122},
		{in: " w101l201 ", wantW: 101, wantL: 201},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			link, err := ParseParentLink(tt.in)
			require.NoError(t, err)

			if tt.isMnt {
				pos, ok := link.Position(RoleMount)
				require.True(t, ok)
				assert.Equal(t, tt.mount, pos)
				return
			}
			w, okW := link.Position(RoleW)
			l, okL := link.Position(RoleL)
			require.True(t, okW && okL)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantL, l)
		})
	}
}

func TestParseParentLinkInvalid(t *testing.T) {
	for _, in := range []string{"", "w1121", "l1122", "w1121w1122", "w1121l", "x1121l1122", "w1121l1122l1", "wl"} {
		_, err := ParseParentLink(in)
		assert.True(t, errors.Is(err, ErrInvalidParentLink), "ParseParentLink(%q) error = %v", in, err)
	}
}

func TestParentLinkString(t *testing.T) {
	assert.Equal(t, "1121", MountLink(1121).String())
	assert.Equal(t, "w1121l1122", SensorLink(1121, 1122).String())

	text, err := SensorLink(101, 201).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "w101l201", string(text))

	back, err := ParseParentLink(SensorLink(101, 201).String())
	require.NoError(t, err)
	assert.Equal(t, SensorLink(101, 201), back)
}

func TestParentLinkUnmarshalText(t *testing.T) {
	var link ParentLink
	require.NoError(t, link.UnmarshalText([]byte("l1122w1121")))
	pos, ok := link.Position(RoleW)
	assert.True(t, ok)
	assert.Equal(t, 1121, pos)

	err := link.UnmarshalText([]byte("w1121"))
	assert.True(t, errors.Is(err, ErrInvalidParentLink), "UnmarshalText() error = %v", err)
	pos, _ = link.Position(RoleL)
	assert.Equal(t, 1122, pos, "failed decode must leave the link unchanged")
}
