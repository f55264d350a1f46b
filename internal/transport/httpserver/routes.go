package httpserver

import (
	"net/http"
	"time"

	"babyhabits/internal/config"
	"babyhabits/internal/transport/httpserver/handler"
	authmw "babyhabits/internal/transport/httpserver/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 30 * time.Second

func NewRouter(cfg config.Config, handlers *handler.Handlers, auth *authmw.SupabaseAuth) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(authmw.NewCORS(cfg.CORS.AllowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))

			r.Get("/health", handlers.Common.Health)
			r.Post("/auth/signin", handlers.Common.SignIn)
			r.Post("/auth/signup", handlers.Common.SignUp)
			r.Get("/auth/oauth/{provider}", handlers.Common.OAuthStart)
			r.Post("/auth/oauth/exchange", handlers.Common.OAuthExchange)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			// Long-lived stream, kept out of the request timeout.
			r.Get("/babies/{baby_id}/events", handlers.Tracking.Events)

			r.Group(func(r chi.Router) {
				r.Use(chimw.Timeout(requestTimeout))

				r.Get("/auth/me", handlers.Common.AuthMe)
				r.Post("/auth/signout", handlers.Common.SignOut)
				r.Get("/me/preferences", handlers.Common.GetPreferences)
				r.Put("/me/preferences", handlers.Common.UpdatePreferences)

				r.Get("/babies", handlers.Babies.ListBabies)
				r.Post("/babies", handlers.Babies.CreateBaby)
				r.Get("/babies/current", handlers.Babies.GetCurrentBaby)
				r.Put("/babies/current", handlers.Babies.SelectCurrentBaby)
				r.Get("/babies/{baby_id}", handlers.Babies.GetBaby)
				r.Patch("/babies/{baby_id}", handlers.Babies.UpdateBaby)
				r.Delete("/babies/{baby_id}", handlers.Babies.DeleteBaby)

				r.Get("/babies/{baby_id}/caregivers", handlers.Babies.ListCaregivers)
				r.Post("/babies/{baby_id}/caregivers/invite", handlers.Babies.InviteCaregiver)
				r.Patch("/babies/{baby_id}/caregivers/{user_id}", handlers.Babies.UpdateCaregiverRole)
				r.Delete("/babies/{baby_id}/caregivers/{user_id}", handlers.Babies.RemoveCaregiver)
				r.Post("/babies/{baby_id}/invitations", handlers.Babies.CreateInviteLink)
				r.Delete("/babies/{baby_id}/pending/{pending_id}", handlers.Babies.CancelPendingInvite)
				r.Post("/invitations/redeem", handlers.Babies.RedeemInvitation)

				r.Get("/babies/{baby_id}/today", handlers.Tracking.Today)
				r.Post("/babies/{baby_id}/feedings", handlers.Tracking.StartFeeding)
				r.Post("/babies/{baby_id}/feedings/stop", handlers.Tracking.StopFeeding)
				r.Post("/babies/{baby_id}/sleeps", handlers.Tracking.StartSleep)
				r.Post("/babies/{baby_id}/sleeps/{session_id}/stop", handlers.Tracking.StopSleep)
				r.Post("/babies/{baby_id}/diapers", handlers.Tracking.AddDiaper)
				r.Post("/babies/{baby_id}/weights", handlers.Tracking.AddWeight)
				r.Patch("/babies/{baby_id}/{kind}/{id}/note", handlers.Tracking.UpdateNote)
				r.Delete("/babies/{baby_id}/{kind}/{id}", handlers.Tracking.DeleteEvent)
				r.Post("/babies/{baby_id}/reap", handlers.Tracking.Reap)
				r.Get("/babies/{baby_id}/export", handlers.Tracking.Export)
			})
		})
	})

	return r
}
