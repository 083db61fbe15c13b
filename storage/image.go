package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// MaxImageSize bounds avatar, logo and payment screenshot uploads.
const MaxImageSize = 2 << 20

var (
	ErrImageTooLarge   = errors.New("image exceeds the 2 MB limit")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Image is a validated upload held in memory.
type Image struct {
	ContentType string
	Ext         string
	Data        []byte
}

func (img *Image) Reader() io.Reader {
	return bytes.NewReader(img.Data)
}

// ReadImage reads at most MaxImageSize bytes and sniffs the content type from the data
// itself, ignoring whatever the client declared.
func ReadImage(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, ErrUnsupportedType
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return &Image{ContentType: contentType, Ext: ext, Data: data}, nil
}

func AvatarKey(userID int, ext string) string {
	return fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), ext)
}

func TournamentLogoKey(tournamentID int, ext string) string {
	return fmt.Sprintf("logos/tournaments/%d/%s%s", tournamentID, uuid.NewString(), ext)
}

func PaymentScreenshotKey(registrationID int, ext string) string {
	return fmt.Sprintf("payments/%d/%s%s", registrationID, uuid.NewString(), ext)
}
