// Package dispatch delivers rendered reports: as an HTTP download or as an
// email attachment.
package dispatch

import (
	"fmt"
	"net/http"
	"strconv"
)

// WritePDF writes pdf as a file download named filename.
func WritePDF(w http.ResponseWriter, pdf []byte, filename string) error {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(pdf)
	return err
}
