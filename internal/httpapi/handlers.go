package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"geoloc/internal/app"
	"geoloc/internal/form"
	"geoloc/internal/models"
	"geoloc/internal/placetype"

	"github.com/gin-gonic/gin"
)

type stateResponse struct {
	app.State
	User        *models.User `json:"user"`
	AuthLoading bool         `json:"auth_loading"`
	Form        *form.View   `json:"form,omitempty"`
	Stats       app.Stats    `json:"stats"`
}

func (s *Server) getState(c *gin.Context) {
	st := s.app.Snapshot()
	resp := stateResponse{
		State:       st,
		User:        s.auth.User(),
		AuthLoading: s.auth.Loading(),
		Stats:       app.ComputeStats(st.Places),
	}
	if st.ShowAddModal {
		v := s.form.View(st.SelectedLocation)
		resp.Form = &v
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listPlaces(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.Snapshot().Places)
}

func (s *Server) refreshPlaces(c *gin.Context) {
	if err := s.app.FetchPlaces(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.app.Snapshot().Places)
}

func (s *Server) selectPlace(c *gin.Context) {
	p, err := s.app.SelectPlace(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, app.ComputeStats(s.app.Snapshot().Places))
}

func (s *Server) listTypes(c *gin.Context) {
	c.JSON(http.StatusOK, placetype.All())
}

func (s *Server) drainNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, s.queue.Drain())
}

func (s *Server) getMap(c *gin.Context) {
	s.render()
	c.JSON(http.StatusOK, s.layer.FeatureCollection())
}

// parseBounds reads "south,west,north,east".
func parseBounds(raw string) (models.Bounds, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return models.Bounds{}, errBadBounds
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.Bounds{}, errBadBounds
		}
		v[i] = f
	}
	return models.Bounds{
		SouthWest: models.Location{Lat: v[0], Lng: v[1]},
		NorthEast: models.Location{Lat: v[2], Lng: v[3]},
	}, nil
}

func (s *Server) visiblePlaces(c *gin.Context) {
	b, err := parseBounds(c.Query("bbox"))
	if err != nil {
		fail(c, err)
		return
	}
	s.render()
	places, err := s.display.Visible(b)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, places)
}

type clickResponse struct {
	Handled          bool             `json:"handled"`
	SelectedLocation *models.Location `json:"selected_location,omitempty"`
	AddressSuggested bool             `json:"address_suggested"`
}

func (s *Server) clickMap(c *gin.Context) {
	var loc models.Location
	if err := c.ShouldBindJSON(&loc); err != nil {
		badRequest(c, err)
		return
	}
	if err := loc.Validate(); err != nil {
		fail(c, err)
		return
	}

	s.render()
	resp := clickResponse{Handled: s.display.Click(loc)}
	if resp.Handled {
		resp.SelectedLocation = s.render().SelectedLocation
		resp.AddressSuggested = s.form.SuggestAddress(c.Request.Context(), s.geocoder, loc)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) clickMarker(c *gin.Context) {
	id := c.Param("id")
	s.render()
	if err := s.display.ClickMarker(id); err != nil {
		fail(c, err)
		return
	}
	st := s.render()
	if st.SelectedPlace == nil || st.SelectedPlace.ID != id {
		fail(c, fmt.Errorf("%w: %s", app.ErrUnknownPlace, id))
		return
	}
	c.JSON(http.StatusOK, st.SelectedPlace)
}

// openAdd opens a fresh form.
func (s *Server) openAdd(c *gin.Context) {
	if err := s.app.HandleAddPlace(); err != nil {
		fail(c, err)
		return
	}
	s.form.Reset()
	s.render()
	c.JSON(http.StatusOK, s.form.View(nil))
}

func (s *Server) cancelAdd(c *gin.Context) {
	s.app.CloseAddModal()
	s.render()
	c.Status(http.StatusNoContent)
}

func (s *Server) getForm(c *gin.Context) {
	st := s.app.Snapshot()
	if !st.ShowAddModal {
		fail(c, errFormClosed)
		return
	}
	c.JSON(http.StatusOK, s.form.View(st.SelectedLocation))
}

func (s *Server) patchForm(c *gin.Context) {
	st := s.app.Snapshot()
	if !st.ShowAddModal {
		fail(c, errFormClosed)
		return
	}
	var p form.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.form.Update(p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.form.View(st.SelectedLocation))
}

func (s *Server) attachImage(c *gin.Context) {
	st := s.app.Snapshot()
	if !st.ShowAddModal {
		fail(c, errFormClosed)
		return
	}
	src, err := form.ParseSource(c.Query("source"))
	if err != nil {
		fail(c, err)
		return
	}
	if c.Request.ContentLength > s.maxUpload {
		fail(c, errUploadTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, errUploadTooLarge)
			return
		}
		badRequest(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()

	if err := s.form.AttachImage(src, f, fh.Size); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.form.View(st.SelectedLocation))
}

func (s *Server) clearImage(c *gin.Context) {
	s.form.ClearImage()
	c.Status(http.StatusNoContent)
}

func (s *Server) submit(c *gin.Context) {
	st := s.app.Snapshot()
	if !st.ShowAddModal {
		fail(c, errFormClosed)
		return
	}
	if err := s.form.Submit(c.Request.Context(), st.SelectedLocation, s.app.HandleSubmitPlace); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.render())
}

type sessionResponse struct {
	User    *models.User `json:"user"`
	Loading bool         `json:"loading"`
}

func (s *Server) session() sessionResponse {
	return sessionResponse{User: s.auth.User(), Loading: s.auth.Loading()}
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.session())
}

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

func (s *Server) signIn(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.auth.SignInWithEmail(c.Request.Context(), in.Email, in.Password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.session())
}

func (s *Server) signUp(c *gin.Context) {
	var in signUpRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.auth.SignUpWithEmail(c.Request.Context(), in.toSignUp()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.session())
}

func (s *Server) magicLink(c *gin.Context) {
	var in emailRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.auth.SignInWithMagicLink(c.Request.Context(), in.Email); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type verifyRequest struct {
	TokenHash string `json:"token_hash" form:"token_hash" binding:"required"`
	Type      string `json:"type" form:"type"`
}

func (s *Server) verifyMagicLink(c *gin.Context) {
	var in verifyRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.auth.VerifyMagicLink(c.Request.Context(), in.TokenHash, in.Type); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.session())
}

// confirmMagicLink is the landing route of emailed links. It signs in and
// sends the browser back to the map.
func (s *Server) confirmMagicLink(c *gin.Context) {
	var in verifyRequest
	if err := c.ShouldBindQuery(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.auth.VerifyMagicLink(c.Request.Context(), in.TokenHash, in.Type); err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.auth.SignOut(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.session())
}

func (s *Server) resetPassword(c *gin.Context) {
	var in emailRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.auth.ResetPassword(c.Request.Context(), in.Email); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
