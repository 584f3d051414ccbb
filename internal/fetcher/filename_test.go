package fetcher

import "testing"

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "song.mp3", want: "song.mp3"},
		{in: "Café del Mar.mp3", want: "Cafe_del_Mar.mp3"},
		{in: "Beyoncé – Halo.mp4", want: "Beyonce__Halo.mp4"},
		{in: "../etc/passwd", want: "etc_passwd"},
		{in: "__--..", want: "download"},
		{in: "", want: "download"},
		{in: "日本語", want: "download"},
		{in: "ﬁle.mp3", want: "file.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SafeFilename(tt.in); got != tt.want {
				t.Errorf("SafeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
