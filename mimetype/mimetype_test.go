package mimetype

import "testing"

func TestLookup(t *testing.T) {
	cases := []struct {
		ext  string
		want string
		ok   bool
	}{
		{".html", "text/html", true},
		{"html", "text/html", true},
		{".HTML", "text/html", true},
		{".css", "text/css", true},
		{".js", "application/javascript", true},
		{".png", "image/png", true},
		{".jpg", "image/jpeg", true},
		{".svg", "image/svg+xml", true},
		{".woff2", "font/woff2", true},
		{".unknownext", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := Lookup(c.ext)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", c.ext, got, ok, c.want, c.ok)
		}
	}
}

func TestDetect(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	mime, ext, ok := Detect(png)
	if !ok || mime != "image/png" || ext != "png" {
		t.Errorf("Detect(png header) = (%q, %q, %v)", mime, ext, ok)
	}
	if _, _, ok := Detect([]byte("just some text")); ok {
		t.Error("plain text must not be detected")
	}
}
