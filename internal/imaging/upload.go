package imaging

import (
	"errors"
	"io"
	"net/http"

	"github.com/erazemk/najdeno/internal/model"
)

// FormUpload returns the named file of a parsed multipart form, or nil if
// none was sent. The MIME type is the one the client declared; Prepare
// checks it against the content.
func FormUpload(r *http.Request, field string) (*Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, model.Wrap(model.KindInvalidInput, "The selected image could not be read.", err)
	}
	defer file.Close()

	if header.Size == 0 && header.Filename == "" {
		return nil, nil
	}
	if header.Size > MaxUploadSize {
		return nil, model.Errorf(model.KindInvalidInput, "File size exceeds %dMB. Please choose a smaller image.", MaxUploadSize>>20)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, model.Wrap(model.KindInvalidInput, "The selected image could not be read.", err)
	}

	return &Upload{
		Filename: header.Filename,
		MIME:     header.Header.Get("Content-Type"),
		Size:     header.Size,
		Data:     data,
	}, nil
}
