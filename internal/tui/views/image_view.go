package views

import (
	"image"

	"github.com/feedchat/feedchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ImageView shows one full-resolution picture.
type ImageView struct {
	*tview.Image
}

// NewImageView creates an empty image view.
func NewImageView(theme *ui.Theme) *ImageView {
	img := tview.NewImage()
	img.SetBorder(true).SetTitle(" Image (esc to close) ")
	img.SetBorderColor(theme.BorderColor)
	img.SetTitleColor(theme.TitleColor)
	return &ImageView{Image: img}
}

// Show replaces the displayed picture.
func (iv *ImageView) Show(img image.Image) {
	iv.SetImage(img)
}
