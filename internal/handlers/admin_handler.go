package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/service"
)

// AdminHandler handles system administration HTTP requests
type AdminHandler struct {
	backupService *service.BackupService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(backupService *service.BackupService) *AdminHandler {
	return &AdminHandler{backupService: backupService}
}

// ExportBackup streams a full database export as a JSON attachment
func (h *AdminHandler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("finans-backup-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.backupService.ExportToWriter(w); err != nil {
		// Headers are already out; all we can do is log.
		log.Printf("backup export failed: %v", err)
	}
}

// ImportBackup restores a database from an uploaded export
func (h *AdminHandler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("backup")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing backup file upload")
		return
	}
	defer file.Close()

	if err := h.backupService.ImportFromReader(file); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}
