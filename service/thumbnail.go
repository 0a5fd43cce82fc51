package service

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/kevinaaaquil/transcribe/store"
)

// thumbnailTemplates are tried in order; %s is the page number, unpadded
// first and then zero-padded to each of thumbnailPadWidths.
var thumbnailTemplates = []string{
	"page-%s.jpg",
	"page-%s.jpeg",
	"page-%s.png",
	"page_%s.jpg",
	"%s.jpg",
}

var thumbnailPadWidths = []int{2, 3, 4}

// thumbnailIndex resolves page numbers against one census listing.
type thumbnailIndex struct {
	byName map[string]string
	images []store.Object
}

func newThumbnailIndex(images []store.Object) thumbnailIndex {
	idx := thumbnailIndex{byName: make(map[string]string, len(images)), images: images}
	for _, img := range images {
		name := strings.ToLower(path.Base(img.Path))
		if _, dup := idx.byName[name]; !dup {
			idx.byName[name] = img.URL
		}
	}
	return idx
}

func pageNumberForms(n int) []string {
	forms := []string{strconv.Itoa(n)}
	for _, w := range thumbnailPadWidths {
		padded := fmt.Sprintf("%0*d", w, n)
		if padded != forms[len(forms)-1] {
			forms = append(forms, padded)
		}
	}
	return forms
}

// resolve returns the URL of page n's image, or nil when no file name fits.
func (idx thumbnailIndex) resolve(n int) *string {
	for _, form := range pageNumberForms(n) {
		for _, tmpl := range thumbnailTemplates {
			if u, ok := idx.byName[fmt.Sprintf(tmpl, form)]; ok && u != "" {
				return &u
			}
		}
	}

	num := strconv.Itoa(n)
	needles := []string{"." + num + ".", "-" + num + ".", "_" + num + "."}
	for _, img := range idx.images {
		name := strings.ToLower(path.Base(img.Path))
		for _, needle := range needles {
			if strings.Contains(name, needle) && img.URL != "" {
				u := img.URL
				return &u
			}
		}
	}
	return nil
}

// ResolveThumbnail finds the image URL for page n among images. A nil result
// means the page has no resolvable image and should render as a placeholder.
func ResolveThumbnail(n int, images []store.Object) *string {
	return newThumbnailIndex(images).resolve(n)
}
