package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodedFileName(t *testing.T) {
	tests := []struct {
		name string
		url  string
		src  string
		want string
	}{
		{"url with file", "https://kiwix.org/contributors/contributors_list.pdf", "", "contributors_list.pdf"},
		{"url without extension", "https://kiwix.org/contributors/", "", ""},
		{"nothing", "", "", ""},
		{"bare src name", "", "android_tutorials.pdf", ""},
		{"src path", "", "/html/images/test.png", "test.png"},
		{"src directory", "", "/html/images/", ""},
		{"escaped url", "https://kiwix.org/files/my%20book.pdf", "", "my book.pdf"},
		{"url falls back to src", "https://kiwix.org/dir/", "/img/logo.svg", "logo.svg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodedFileName(tt.url, tt.src))
		})
	}
}
