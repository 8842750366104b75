package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	t.Run("replaces invalid characters", func(t *testing.T) {
		actual, err := SanitizeFileName(` photo<2026>?.jpg `)
		require.NoError(t, err)
		require.Equal(t, "photo_2026__.jpg", actual)
	})

	t.Run("drops directory components", func(t *testing.T) {
		actual, err := SanitizeFileName(`..\..\windows\evil.jpg`)
		require.NoError(t, err)
		require.Equal(t, "evil.jpg", actual)

		actual, err = SanitizeFileName("/etc/passwd")
		require.NoError(t, err)
		require.Equal(t, "passwd", actual)
	})

	t.Run("rejects empty and dot names", func(t *testing.T) {
		for _, name := range []string{"   ", "..", "../", "\u200B\u200C"} {
			_, err := SanitizeFileName(name)
			require.Error(t, err, name)
		}
	})

	t.Run("strips invisible characters", func(t *testing.T) {
		actual, err := SanitizeFileName("holi\u200Bday\uFEFF.jpg")
		require.NoError(t, err)
		require.Equal(t, "holiday.jpg", actual)
	})

	t.Run("truncates by runes", func(t *testing.T) {
		actual, err := SanitizeFileName(strings.Repeat("é", 300) + ".jpg")
		require.NoError(t, err)
		require.Len(t, []rune(actual), 255)
		require.True(t, utf8.ValidString(actual))
	})
}
