package skella

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// Form is a multipart form body. Fields and files are written in the order
// they are added; the first error sticks and is reported by Encode.
type Form struct {
	buf    bytes.Buffer
	writer *multipart.Writer
	err    error
	done   bool
}

// NewForm creates an empty multipart form.
func NewForm() *Form {
	form := &Form{}
	form.writer = multipart.NewWriter(&form.buf)

	return form
}

// AddField writes a plain form field.
func (f *Form) AddField(name, value string) *Form {
	if f.err != nil || f.done {
		return f
	}

	err := f.writer.WriteField(name, value)
	if err != nil {
		f.err = fmt.Errorf("writing field %s: %w", name, err)
	}

	return f
}

// AddFile copies content into a file part named field.
func (f *Form) AddFile(field, filename string, content io.Reader) *Form {
	if f.err != nil || f.done {
		return f
	}

	part, err := f.writer.CreateFormFile(field, filename)
	if err != nil {
		f.err = fmt.Errorf("creating file part %s: %w", field, err)

		return f
	}

	_, err = io.Copy(part, content)
	if err != nil {
		f.err = fmt.Errorf("copying file %s: %w", filename, err)
	}

	return f
}

// ContentType returns the multipart content type including the boundary.
func (f *Form) ContentType() string {
	return f.writer.FormDataContentType()
}

// Encode terminates the form and returns its body. Further additions are ignored.
func (f *Form) Encode() ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}

	if !f.done {
		f.done = true

		err := f.writer.Close()
		if err != nil {
			f.err = fmt.Errorf("closing form: %w", err)

			return nil, f.err
		}
	}

	return f.buf.Bytes(), nil
}
