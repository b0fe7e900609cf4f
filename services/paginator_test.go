package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePage(t *testing.T) {
	assert.Equal(t, 1, ParsePage(""))
	assert.Equal(t, 1, ParsePage("abc"))
	assert.Equal(t, 1, ParsePage("0"))
	assert.Equal(t, 1, ParsePage("-3"))
	assert.Equal(t, 4, ParsePage("4"))
}

func TestPageWindow(t *testing.T) {
	cases := []struct {
		name                     string
		count                    int64
		requested                int
		number, numPages, offset int
	}{
		{"empty listing has one page", 0, 1, 1, 1, 0},
		{"empty listing clamps high page", 0, 5, 1, 1, 0},
		{"first page", 13, 1, 1, 2, 0},
		{"last page", 13, 2, 2, 2, 10},
		{"beyond last clamps", 13, 99, 2, 2, 10},
		{"below first clamps", 13, 0, 1, 2, 0},
		{"exact multiple", 20, 2, 2, 2, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			number, numPages, offset := pageWindow(tc.count, 10, tc.requested)
			assert.Equal(t, tc.number, number)
			assert.Equal(t, tc.numPages, numPages)
			assert.Equal(t, tc.offset, offset)
		})
	}
}

func TestNewPostPageFlags(t *testing.T) {
	p := newPostPage(2, 3, 25, nil)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrevious)
	assert.NotNil(t, p.Posts)

	p = newPostPage(1, 1, 0, nil)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrevious)
}
