package tracking

import (
	"net/http"
	"time"

	babydomain "babyhabits/internal/domain/baby"
	trackingdomain "babyhabits/internal/domain/tracking"
	"babyhabits/internal/realtime"
	"babyhabits/internal/transport/httpserver/handler/common"
	"babyhabits/internal/transport/httpserver/middleware"
	"babyhabits/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const defaultHeartbeat = 25 * time.Second

type Handlers struct {
	Tracking   *trackingdomain.Service
	Babies     *babydomain.Service
	Subscriber realtime.Subscriber
	location   *time.Location
	heartbeat  time.Duration
	now        func() time.Time
	log        logger.Logger
}

func New(tracking *trackingdomain.Service, babies *babydomain.Service, subscriber realtime.Subscriber, location *time.Location, log logger.Logger) *Handlers {
	if location == nil {
		location = time.UTC
	}
	return &Handlers{
		Tracking:   tracking,
		Babies:     babies,
		Subscriber: subscriber,
		location:   location,
		heartbeat:  defaultHeartbeat,
		now:        time.Now,
		log:        log,
	}
}

type scoped struct {
	user    middleware.User
	babyID  string
	tracker *trackingdomain.Tracker
}

// authorize resolves the caller and the baby from the request and checks
// the caller's role allows action. It writes the error response itself.
func (h *Handlers) authorize(w http.ResponseWriter, r *http.Request, scope string, action babydomain.Action) (scoped, bool) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return scoped{}, false
	}
	babyID := chi.URLParam(r, "baby_id")

	if _, err := h.Babies.Authorize(r.Context(), babyID, user.ID, action); err != nil {
		common.WriteDomainError(w, h.log, scope, err, "user_id", user.ID, "baby_id", babyID)
		return scoped{}, false
	}
	return scoped{
		user:    user,
		babyID:  babyID,
		tracker: h.Tracking.Tracker(user.ID, babyID),
	}, true
}
