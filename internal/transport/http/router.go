package http

import (
	"net/http"
	"time"

	"github.com/voicecanvas/listening-room/internal/ratelimit"
	"github.com/voicecanvas/listening-room/internal/service"
	"github.com/voicecanvas/listening-room/internal/session"
	httpmw "github.com/voicecanvas/listening-room/internal/transport/http/middleware"
	"github.com/voicecanvas/listening-room/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Services       *service.Services
	Sessions       *session.Manager
	WS             *ws.Server
	Limiter        ratelimit.Limiter
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	if d.Limiter == nil {
		d.Limiter = ratelimit.Noop{}
	}
	h := NewHandler(d.Services)

	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(httpmw.RequestLogger)
	r.Use(middlewareChi.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))

	// WS endpoint, токен в query
	if d.WS != nil {
		r.Get("/ws/rooms/{code}", d.WS.HandleWS)
	}

	r.Route("/rooms", func(rm chi.Router) {
		rm.Use(middlewareChi.Timeout(30 * time.Second))

		rm.With(httpmw.RateLimit(d.Limiter)).Post("/", h.CreateRoom)
		rm.Get("/", h.ListRooms)

		rm.Route("/{code}", func(rr chi.Router) {
			rr.With(httpmw.RateLimit(d.Limiter)).Post("/join", h.JoinRoom)

			// дальше только с токеном участника этой комнаты
			rr.Group(func(pr chi.Router) {
				pr.Use(httpmw.SessionAuth(d.Sessions))
				pr.Use(httpmw.Presence(d.Services.Members))
				pr.Use(httpmw.RateLimit(d.Limiter))

				pr.Get("/", h.GetRoom)
				pr.Post("/leave", h.LeaveRoom)
				pr.Post("/close", h.CloseRoom)
				pr.Post("/host", h.TransferHost)
				pr.Get("/tracks", h.ListTracks)
				pr.Post("/tracks", h.AddTrack)
				pr.Post("/tracks/{trackID}/vote", h.Vote)
				pr.Post("/tracks/{trackID}/finished", h.FinishTrack)
				pr.Post("/skip", h.Skip)
				pr.Get("/chat", h.GetChat)
				pr.Post("/chat", h.PostMessage)
			})
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
