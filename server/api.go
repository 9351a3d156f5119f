package server

import (
	"net/http"
	"time"

	"github.com/cyclopcam/emocam/server/model"
	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) setupHttpRoutes() error {
	router := httprouter.New()

	unprotected := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, handle)
	}

	// Processing a video holds the handling goroutine for the full duration
	// of the job, so the expensive endpoint gets a per-IP rate limit.
	ratelimited := func(method, route string, handle httprouter.Handle, requestLimit int, windowLength time.Duration) {
		limited := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	unprotected("GET", "/api/ping", s.httpPing)
	ratelimited("POST", "/api/video/process", s.httpProcessVideo, 4, time.Minute)
	unprotected("GET", "/api/jobs/list", s.httpJobsList)
	unprotected("GET", "/api/jobs/:id", s.httpJobGet)

	s.httpRouter = router
	return nil
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type pingJSON struct {
		Time int64 `json:"time"`
	}
	ping := &pingJSON{
		Time: time.Now().Unix(),
	}
	www.SendJSON(w, ping)
}

func (s *Server) httpJobsList(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	jobs := []model.Job{}
	www.Check(s.DB.Order("created_at DESC").Find(&jobs).Error)
	www.SendJSON(w, jobs)
}
