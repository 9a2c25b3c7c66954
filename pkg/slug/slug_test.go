package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Hello World":              "hello-world",
		"  Go -- Concurrency!  ":   "go-concurrency",
		"C++ & Rust: a comparison": "c-rust-a-comparison",
		"???":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Make(in, 0), in)
	}

	assert.Equal(t, "abc", Make("abc def", 4), "trailing hyphen is trimmed after the cut")
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("intro-to-go"))
	assert.True(t, Valid("go2"))
	assert.False(t, Valid("Intro"))
	assert.False(t, Valid("double--hyphen"))
	assert.False(t, Valid("-leading"))
	assert.False(t, Valid(""))
}
