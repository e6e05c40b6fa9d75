package httpapi

import (
	"errors"
	"log"
	"net/http"

	"geoloc/internal/app"
	"geoloc/internal/auth"
	"geoloc/internal/form"
	"geoloc/internal/mapview"
	"geoloc/internal/models"

	"github.com/gin-gonic/gin"
)

var (
	errFormClosed     = errors.New("the add-place form is not open")
	errBadBounds      = errors.New("bbox must be south,west,north,east")
	errUploadTooLarge = errors.New("upload is too large")
)

// statusFor maps an operation error onto a response code. Anything not a
// known precondition failure came from the backend.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrUnknownPlace), errors.Is(err, mapview.ErrUnknownMarker):
		return http.StatusNotFound
	case errors.Is(err, app.ErrSubmitInFlight), errors.Is(err, form.ErrSubmitting),
		errors.Is(err, form.ErrImageAttached), errors.Is(err, errFormClosed):
		return http.StatusConflict
	case errors.Is(err, form.ErrImageTooLarge), errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, form.ErrNoLocation), errors.Is(err, form.ErrNameRequired),
		errors.Is(err, form.ErrInvalidType), errors.Is(err, form.ErrInvalidRating),
		errors.Is(err, form.ErrImageEmpty), errors.Is(err, form.ErrUnknownSource),
		errors.Is(err, auth.ErrPasswordMismatch), errors.Is(err, models.ErrInvalidPlace),
		errors.Is(err, mapview.ErrEmptyBounds), errors.Is(err, errBadBounds):
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusBadGateway {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
