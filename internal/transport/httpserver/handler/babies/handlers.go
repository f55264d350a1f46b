package babies

import (
	babydomain "babyhabits/internal/domain/baby"
	"babyhabits/internal/domain/preferences"
	"babyhabits/pkg/logger"
)

type Handlers struct {
	Babies      *babydomain.Service
	Preferences *preferences.Service
	appBaseURL  string
	log         logger.Logger
}

func New(babies *babydomain.Service, prefs *preferences.Service, appBaseURL string, log logger.Logger) *Handlers {
	return &Handlers{
		Babies:      babies,
		Preferences: prefs,
		appBaseURL:  appBaseURL,
		log:         log,
	}
}

func (h *Handlers) registry(userID string) *babydomain.Registry {
	return babydomain.NewRegistry(h.Babies, h.Preferences, userID)
}
