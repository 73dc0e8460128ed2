package sanitize

import (
	"strings"
	"testing"
)

func BenchmarkSanitize_Clean(b *testing.B) {
	s := MustNew(DefaultConfig())
	text := strings.Repeat("a perfectly ordinary sentence. ", 100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Sanitize(text)
	}
}

func BenchmarkSanitize_Dirty(b *testing.B) {
	s := MustNew(DefaultConfig())
	text := strings.Repeat("@all look at javascript:x ", 100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Sanitize(text)
	}
}
