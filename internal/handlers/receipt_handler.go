package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const maxReceiptSize = 10 << 20

var receiptTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// ReceiptHandler stores uploaded expense receipts on disk and serves them under /uploads/.
type ReceiptHandler struct {
	Dir string
}

func NewReceiptHandler(dir string) *ReceiptHandler {
	return &ReceiptHandler{Dir: dir}
}

// UploadReceiptHandler handles POST /receipts (multipart field "file") and returns the
// URL to store on an expense.
func (h *ReceiptHandler) UploadReceiptHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptSize)
	if err := r.ParseMultipartForm(maxReceiptSize); err != nil {
		http.Error(w, "File too large or invalid form", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	contentType := strings.SplitN(http.DetectContentType(head[:n]), ";", 2)[0]
	ext, allowed := receiptTypes[contentType]
	if !allowed {
		http.Error(w, "Only JPEG, PNG or PDF receipts are accepted", http.StatusUnsupportedMediaType)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeError(w, r, err)
		return
	}

	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		writeError(w, r, err)
		return
	}
	fileName := uuid.NewString() + ext
	out, err := os.Create(filepath.Join(h.Dir, fileName))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		writeError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"user_id": actor.ID.Hex(), "file": fileName}).Info("Receipt uploaded")
	writeJSON(w, http.StatusCreated, map[string]string{"url": "/uploads/" + fileName})
}
