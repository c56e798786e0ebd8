package posts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Educación y Vida", "educacion-y-vida"},
		{"¿Qué pasó ayer?", "que-paso-ayer"},
		{"Año Nuevo: ¡Feliz 2026!", "ano-nuevo-feliz-2026"},
		{"multiple---separators___here", "multiple-separators-here"},
		{"", ""},
		{"???", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Slugify(tc.title), tc.title)
	}
}
