package services

import (
	"strconv"

	"blog/models"
)

const DefaultPageSize = 10

// PostPage - одна страница ленты
type PostPage struct {
	Number      int           `json:"number"`
	NumPages    int           `json:"num_pages"`
	Count       int64         `json:"count"`
	HasNext     bool          `json:"has_next"`
	HasPrevious bool          `json:"has_previous"`
	Posts       []models.Post `json:"posts"`
}

// ParsePage разбирает ?page=; нечисловое значение - первая страница
func ParsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// pageWindow прижимает номер страницы к [1, последняя] и считает offset.
// Пустая выборка - одна пустая страница.
func pageWindow(count int64, size, requested int) (number, numPages, offset int) {
	if size < 1 {
		size = DefaultPageSize
	}
	numPages = int((count + int64(size) - 1) / int64(size))
	if numPages < 1 {
		numPages = 1
	}
	number = requested
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return number, numPages, (number - 1) * size
}

func newPostPage(number, numPages int, count int64, posts []models.Post) *PostPage {
	if posts == nil {
		posts = []models.Post{}
	}
	return &PostPage{
		Number:      number,
		NumPages:    numPages,
		Count:       count,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
		Posts:       posts,
	}
}
