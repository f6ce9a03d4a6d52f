package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/tutor/internal/handler/views"
	appI18n "github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/knowledge"
	"github.com/pavelanni/tutor/internal/model"
)

const maxUploadSize = 10 << 20

func (h *Handler) renderAdminKnowledge(w http.ResponseWriter, r *http.Request, status int, msg string, isErr bool) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.AdminKnowledgePage(msg, isErr, h.kb.Sections()).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleAdminKnowledgePage(w http.ResponseWriter, r *http.Request) {
	h.renderAdminKnowledge(w, r, http.StatusOK, "", false)
}

func (h *Handler) handleAddKnowledge(w http.ResponseWriter, r *http.Request) {
	item := model.KnowledgeImport{
		Subject:    strings.TrimSpace(r.FormValue("subject")),
		ClassLevel: strings.TrimSpace(r.FormValue("class")),
		Topic:      strings.TrimSpace(r.FormValue("topic")),
		Content:    strings.TrimSpace(r.FormValue("content")),
	}
	if err := knowledge.ValidateImport(item); err != nil {
		h.renderAdminKnowledge(w, r, http.StatusBadRequest, appI18n.T(r.Context(), "ContentInvalid"), true)
		return
	}

	if err := h.store.SaveKnowledge(item, "admin"); err != nil {
		slog.Error("failed to save knowledge", "error", err)
		http.Error(w, "failed to save content: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.kb.AddContent(item.Subject, item.ClassLevel, item.Topic, item.Content)
	slog.Info("knowledge added via admin", "subject", item.Subject, "class", item.ClassLevel, "topic", item.Topic)

	msg := appI18n.Td(r.Context(), "ContentAdded", map[string]any{
		"Topic":   item.Topic,
		"Subject": item.Subject,
		"Class":   item.ClassLevel,
	})
	h.renderAdminKnowledge(w, r, http.StatusOK, msg, false)
}

func (h *Handler) handleUploadKnowledge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("knowledge_file")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	items, err := knowledge.ParseImport(data)
	if err != nil {
		slog.Warn("rejected knowledge upload", "filename", header.Filename, "error", err)
		h.renderAdminKnowledge(w, r, http.StatusBadRequest, appI18n.T(r.Context(), "UploadInvalid")+" "+err.Error(), true)
		return
	}

	sum := sha256.Sum256(data)
	applied, err := h.store.ImportKnowledgeFile(header.Filename, hex.EncodeToString(sum[:]), items)
	if err != nil {
		slog.Error("failed to import knowledge", "error", err)
		http.Error(w, "failed to import: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !applied {
		h.renderAdminKnowledge(w, r, http.StatusOK, appI18n.T(r.Context(), "UploadDuplicate"), true)
		return
	}
	h.kb.Import(items)

	slog.Info("uploaded knowledge via admin", "filename", header.Filename, "count", len(items))
	h.renderAdminKnowledge(w, r, http.StatusOK, appI18n.Tp(r.Context(), "ImportDone", len(items)), false)
}
