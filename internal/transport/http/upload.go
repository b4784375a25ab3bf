package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/cwrk-planet/live-room-service/internal/transport/http/httputil"
)

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: multipart field \"file\" is missing", httputil.ErrInvalidInput)
		}
		if err != nil {
			return nil, uploadErr(err)
		}
		if part.FormName() == "file" {
			return part, nil
		}
		_ = part.Close()
	}
}

func uploadErr(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return fmt.Errorf("%w: audio exceeds %d bytes", httputil.ErrInvalidInput, mbe.Limit)
	}
	return fmt.Errorf("%w: read upload: %v", httputil.ErrInvalidInput, err)
}

func bytesReader(b []byte) (io.Reader, int64) {
	return bytes.NewReader(b), int64(len(b))
}
