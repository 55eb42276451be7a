// Package i18n renders the user-facing timer messages in the configured
// locale. English is the fallback for any locale without a translation.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/alexanderramin/tasktimer/internal/domain"
)

const (
	keyStartFailed    = "Failed to start timer"
	keyPauseFailed    = "Failed to pause timer"
	keyBusy           = "Timer is busy, try again"
	keyAlreadyRunning = "Timer is already running"
	keyNotRunning     = "Timer is not running"
	keyTransport      = "network error"
	keyAuth           = "session expired"
	keyRejected       = "rejected by server"
	keyCannotStart    = "Task %s cannot be started (status %s)"
)

var translations = map[language.Tag]map[string]string{
	language.English: {
		keyStartFailed:    keyStartFailed,
		keyPauseFailed:    keyPauseFailed,
		keyBusy:           keyBusy,
		keyAlreadyRunning: keyAlreadyRunning,
		keyNotRunning:     keyNotRunning,
		keyTransport:      keyTransport,
		keyAuth:           keyAuth,
		keyRejected:       keyRejected,
		keyCannotStart:    keyCannotStart,
	},
	language.Spanish: {
		keyStartFailed:    "No se pudo iniciar el temporizador",
		keyPauseFailed:    "No se pudo pausar el temporizador",
		keyBusy:           "El temporizador está ocupado, inténtalo de nuevo",
		keyAlreadyRunning: "El temporizador ya está en marcha",
		keyNotRunning:     "El temporizador no está en marcha",
		keyTransport:      "error de red",
		keyAuth:           "la sesión ha expirado",
		keyRejected:       "rechazado por el servidor",
		keyCannotStart:    "La tarea %s no se puede iniciar (estado %s)",
	},
}

var (
	cat       = buildCatalog()
	supported = cat.Languages()
	matcher   = language.NewMatcher(supported)
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, table := range translations {
		for key, msg := range table {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Messages renders timer messages for one locale.
type Messages struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns Messages for the closest supported match of locale, e.g.
// "es-MX" resolves to Spanish. Empty or unknown locales yield English.
func New(locale string) *Messages {
	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			_, idx, conf := matcher.Match(parsed)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}
	return &Messages{tag: tag, printer: message.NewPrinter(tag, message.Catalog(cat))}
}

// Default returns English messages.
func Default() *Messages {
	return New("")
}

// Tag returns the resolved language.
func (m *Messages) Tag() language.Tag {
	return m.tag
}

func (m *Messages) StartFailed(kind domain.FailureKind) string {
	return m.withReason(keyStartFailed, kind)
}

func (m *Messages) PauseFailed(kind domain.FailureKind) string {
	return m.withReason(keyPauseFailed, kind)
}

func (m *Messages) Busy() string {
	return m.printer.Sprintf(keyBusy)
}

func (m *Messages) AlreadyRunning() string {
	return m.printer.Sprintf(keyAlreadyRunning)
}

func (m *Messages) NotRunning() string {
	return m.printer.Sprintf(keyNotRunning)
}

func (m *Messages) CannotStart(taskID string, status domain.TaskStatus) string {
	return m.printer.Sprintf(keyCannotStart, taskID, string(status))
}

func (m *Messages) withReason(key string, kind domain.FailureKind) string {
	head := m.printer.Sprintf(key)
	var reason string
	switch kind {
	case domain.FailureTransport:
		reason = m.printer.Sprintf(keyTransport)
	case domain.FailureAuth:
		reason = m.printer.Sprintf(keyAuth)
	case domain.FailureRejected:
		reason = m.printer.Sprintf(keyRejected)
	default:
		return head
	}
	return head + ": " + reason
}
