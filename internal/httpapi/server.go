// Package httpapi exposes the application over a local JSON API that a
// browser page drives.
package httpapi

import (
	"log"
	"net/http"

	"geoloc/internal/app"
	"geoloc/internal/auth"
	"geoloc/internal/form"
	"geoloc/internal/mapview"
	"geoloc/internal/models"
	"geoloc/internal/notify"

	"github.com/gin-gonic/gin"
)

// Deps are the components the API drives. Geocoder may be nil.
type Deps struct {
	App           *app.App
	Auth          *auth.Store
	Form          *form.Form
	Notifications *notify.Queue
	Geocoder      form.Geocoder
	// MaxUploadBytes caps an image upload request. Zero means
	// DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// DefaultMaxUploadBytes bounds camera captures, which the form accepts at any
// size, to what a phone camera produces.
const DefaultMaxUploadBytes = 20 << 20

type Server struct {
	app       *app.App
	auth      *auth.Store
	form      *form.Form
	queue     *notify.Queue
	geocoder  form.Geocoder
	maxUpload int64

	layer   *mapview.Layer
	display *mapview.Display
	engine  *gin.Engine
}

func New(d Deps) *Server {
	s := &Server{
		app:      d.App,
		auth:     d.Auth,
		form:     d.Form,
		queue:    d.Notifications,
		geocoder: d.Geocoder,
		layer:    mapview.NewLayer(),
	}
	s.maxUpload = d.MaxUploadBytes
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	s.display = mapview.New(s.layer, s.selectMarker)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	s.routes(r)
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/state", s.getState)
		api.GET("/places", s.listPlaces)
		api.POST("/places/refresh", s.refreshPlaces)
		api.POST("/places/:id/select", s.selectPlace)
		api.GET("/stats", s.getStats)
		api.GET("/types", s.listTypes)
		api.GET("/notifications", s.drainNotifications)
	}

	m := api.Group("/map")
	{
		m.GET("", s.getMap)
		m.GET("/visible", s.visiblePlaces)
		m.POST("/click", s.clickMap)
		m.POST("/markers/:id/click", s.clickMarker)
	}

	add := api.Group("/add")
	{
		add.POST("", s.openAdd)
		add.POST("/cancel", s.cancelAdd)
		add.GET("/form", s.getForm)
		add.PATCH("/form", s.patchForm)
		add.POST("/image", s.attachImage)
		add.DELETE("/image", s.clearImage)
		add.POST("/submit", s.submit)
	}

	a := api.Group("/auth")
	{
		a.GET("/session", s.getSession)
		a.POST("/signin", s.signIn)
		a.POST("/signup", s.signUp)
		a.POST("/magic-link", s.magicLink)
		a.POST("/verify", s.verifyMagicLink)
		a.GET("/confirm", s.confirmMagicLink)
		a.POST("/signout", s.signOut)
		a.POST("/reset-password", s.resetPassword)
	}
}

// selectMarker focuses the place behind a clicked marker. A refetch between
// the last render and the click may have removed it.
func (s *Server) selectMarker(p models.Place) {
	if _, err := s.app.SelectPlace(p.ID); err != nil {
		log.Printf("Error selecting marker %s: %v", p.ID, err)
	}
}

// render pushes the current orchestrator state to the map. Map clicks reach
// the orchestrator only while the add form is open.
func (s *Server) render() app.State {
	st := s.app.Snapshot()
	v := mapview.View{
		Places:    st.Places,
		Candidate: st.SelectedLocation,
		Selected:  st.SelectedPlace,
	}
	if st.ShowAddModal {
		v.OnSelect = s.app.HandleLocationSelect
	}
	s.display.Render(v)
	return st
}
