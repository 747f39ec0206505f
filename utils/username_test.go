package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidUsername(t *testing.T) {
	for _, name := range []string{"bob", "Zoë_99", "a.b-c", "名前です"} {
		require.True(t, ValidUsername(name), name)
	}
	for _, name := range []string{"", "ab", "has space", "semi;colon", "waytoolongusernamethatkeepsgoingon"} {
		require.False(t, ValidUsername(name), name)
	}
}

func TestUsernameKey(t *testing.T) {
	require.Equal(t, "zoe", UsernameKey("Zoë"))
	require.Equal(t, UsernameKey("RENÉE"), UsernameKey("renee"))
	require.NotEqual(t, UsernameKey("alice"), UsernameKey("alicia"))
}

func TestDecodeSVG(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><rect/></svg>`
	raw, err := DecodeSVG(base64.StdEncoding.EncodeToString([]byte(svg)))
	require.NoError(t, err)
	require.Equal(t, svg, string(raw))

	_, err = DecodeSVG("%%%")
	require.ErrorIs(t, err, ErrInvalidSVG)
	_, err = DecodeSVG(base64.StdEncoding.EncodeToString([]byte("<html></html>")))
	require.ErrorIs(t, err, ErrInvalidSVG)
}

func TestBadgeImageKey(t *testing.T) {
	key := BadgeImageKey("gold-star")
	require.Regexp(t, `^badges/gold-star-[0-9a-f-]{36}\.svg$`, key)
	require.NotEqual(t, key, BadgeImageKey("gold-star"))
	require.Regexp(t, `^badges/badge-`, BadgeImageKey(""))
}
