package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/authflow"
)

// NoticeLevel is the flavour of a transient notification
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient notification shown with a view
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

func success(msg string) *Notice { return &Notice{Level: NoticeSuccess, Message: msg} }
func info(msg string) *Notice    { return &Notice{Level: NoticeInfo, Message: msg} }
func failed(msg string) *Notice  { return &Notice{Level: NoticeError, Message: msg} }

// Envelope is the body of every page response
type Envelope struct {
	View     string           `json:"view"`
	Data     any              `json:"data,omitempty"`
	Notice   *Notice          `json:"notice,omitempty"`
	Redirect string           `json:"redirect,omitempty"`
	Dialog   *authflow.Dialog `json:"dialog,omitempty"`
	Form     *authflow.State  `json:"form,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteView writes a page envelope
func WriteView(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	WriteJSON(w, status, env, logger)
}

// WriteError writes an error notice for view
func WriteError(w http.ResponseWriter, status int, view, message string, logger *slog.Logger) {
	WriteJSON(w, status, Envelope{View: view, Notice: failed(message)}, logger)
}

// Redirect answers with 303 See Other to path. The envelope repeats the
// target so JSON clients need not read the Location header.
func Redirect(w http.ResponseWriter, path string, notice *Notice, logger *slog.Logger) {
	w.Header().Set("Location", path)
	WriteJSON(w, http.StatusSeeOther, Envelope{View: "redirect", Redirect: path, Notice: notice}, logger)
}
