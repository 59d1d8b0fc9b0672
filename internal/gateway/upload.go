package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// MaxImageWidth bounds uploaded product and banner images. Height follows
// the aspect ratio.
const MaxImageWidth = 800

var (
	ErrUnsupportedImage = errors.New("gateway: unsupported image format, only PNG, JPG, JPEG are allowed")
	// ErrBadImage means the file has a supported extension but does not decode.
	ErrBadImage = errors.New("gateway: image could not be decoded")
)

type uploadReply struct {
	Status
	Result struct {
		URL string `json:"url"`
	} `json:"result"`
}

// PrepareImage decodes a PNG or JPEG, shrinks it to MaxImageWidth when wider
// and re-encodes it as JPEG.
func PrepareImage(filename string, r io.Reader) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		img, err = png.Decode(r)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(r)
	default:
		return nil, ErrUnsupportedImage
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadImage, err)
	}

	if img.Bounds().Dx() > MaxImageWidth {
		img = resize.Resize(MaxImageWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("gateway: encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// UploadProductImage sends an image to the admin upload endpoint and returns
// the hosted URL.
func (c *Client) UploadProductImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	data, err := PrepareImage(filename, r)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("my_file", uuid.New().String()+".jpg")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var out uploadReply
	if err := c.send(ctx, http.MethodPost, "/api/admin/products/upload-image", &body, mw.FormDataContentType(), nil, &out); err != nil {
		return "", err
	}
	return out.Result.URL, nil
}
