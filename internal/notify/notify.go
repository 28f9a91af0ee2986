// Package notify carries user-facing notifications over the bus.
package notify

import "github.com/matheus3301/gchat/internal/bus"

// KindToast is the bus kind of a toast notification.
const KindToast = "notify.toast"

// Levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Toast is a short message meant for whatever UI is attached.
type Toast struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Error publishes an error toast.
func Error(b *bus.Bus, msg string) {
	b.Emit(KindToast, Toast{Level: LevelError, Message: msg})
}

// Info publishes an informational toast.
func Info(b *bus.Bus, msg string) {
	b.Emit(KindToast, Toast{Level: LevelInfo, Message: msg})
}
