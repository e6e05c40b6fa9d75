// Package form implements the add-place form: field state, photo
// attachment and submission against a map-selected location.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"geoloc/internal/models"
	"geoloc/internal/notify"
	"geoloc/internal/placetype"
)

var (
	ErrNoLocation    = errors.New("no location selected on the map")
	ErrSubmitting    = errors.New("form is already submitting")
	ErrInvalidType   = errors.New("unknown place type")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrNameRequired  = errors.New("name is required")
	ErrImageTooLarge = errors.New("image exceeds the size limit")
	ErrImageAttached = errors.New("an image is already attached")
	ErrImageEmpty    = errors.New("image is empty")
	ErrUnknownSource = errors.New("unknown image source")
)

const (
	DefaultRating = 5
	MinRating     = 1
	MaxRating     = 5
)

const (
	msgPickLocation = "Pick a location on the map first"
	msgNameRequired = "Give the place a name"
)

// Fields are the user-editable inputs.
type Fields struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Rating      int    `json:"rating"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

// DefaultFields is the state of a fresh form.
func DefaultFields() Fields {
	return Fields{Type: placetype.Default, Rating: DefaultRating}
}

// SubmitFunc receives the assembled payload. A nil error means the place was
// created.
type SubmitFunc func(ctx context.Context, payload models.NewPlace) error

// View is what the page needs to draw the form.
type View struct {
	Fields    Fields `json:"fields"`
	Preview   string `json:"preview,omitempty"`
	Busy      bool   `json:"busy"`
	CanSubmit bool   `json:"can_submit"`
}

type Form struct {
	notifier notify.Notifier

	mu     sync.Mutex
	fields Fields
	image  string
	busy   bool
}

func New(notifier notify.Notifier) *Form {
	return &Form{notifier: notifier, fields: DefaultFields()}
}

func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

func (f *Form) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// View reports the form state for a candidate location, which may be nil.
func (f *Form) View(loc *models.Location) View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{
		Fields:    f.fields,
		Preview:   f.image,
		Busy:      f.busy,
		CanSubmit: loc != nil && !f.busy,
	}
}

func (f *Form) SetName(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields.Name = name
}

func (f *Form) SetType(value string) error {
	if !placetype.Valid(value) {
		return fmt.Errorf("%w: %q", ErrInvalidType, value)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields.Type = value
	return nil
}

// SetRating sets a whole-star rating.
func (f *Form) SetRating(stars int) error {
	if stars < MinRating || stars > MaxRating {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, stars)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields.Rating = stars
	return nil
}

func (f *Form) SetAddress(address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields.Address = address
}

func (f *Form) SetDescription(description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields.Description = description
}

// Update applies a partial edit. Nil pointers leave a field unchanged.
func (f *Form) Update(p Patch) error {
	if p.Type != nil {
		if err := f.SetType(*p.Type); err != nil {
			return err
		}
	}
	if p.Rating != nil {
		if err := f.SetRating(*p.Rating); err != nil {
			return err
		}
	}
	if p.Name != nil {
		f.SetName(*p.Name)
	}
	if p.Address != nil {
		f.SetAddress(*p.Address)
	}
	if p.Description != nil {
		f.SetDescription(*p.Description)
	}
	return nil
}

// Patch is a partial field edit.
type Patch struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Rating      *int    `json:"rating"`
	Address     *string `json:"address"`
	Description *string `json:"description"`
}

// Reset restores the default fields and drops the image.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = DefaultFields()
	f.image = ""
}

// Submit assembles the payload for loc and hands it to submit. The form
// resets only when submit succeeds, so a failed attempt keeps the input.
func (f *Form) Submit(ctx context.Context, loc *models.Location, submit SubmitFunc) error {
	if loc == nil {
		f.notifier.Error(msgPickLocation)
		return ErrNoLocation
	}

	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return ErrSubmitting
	}
	if strings.TrimSpace(f.fields.Name) == "" {
		f.mu.Unlock()
		f.notifier.Error(msgNameRequired)
		return ErrNameRequired
	}
	payload := f.payloadLocked(*loc)
	f.busy = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.busy = false
		f.mu.Unlock()
	}()

	if err := submit(ctx, payload); err != nil {
		return err
	}
	f.Reset()
	return nil
}

func (f *Form) payloadLocked(loc models.Location) models.NewPlace {
	rating := f.fields.Rating
	p := models.NewPlace{
		Name:        f.fields.Name,
		Type:        f.fields.Type,
		Rating:      &rating,
		Description: f.fields.Description,
		Address:     f.fields.Address,
		Latitude:    loc.Lat,
		Longitude:   loc.Lng,
	}
	if f.image != "" {
		img := f.image
		p.Image = &img
	}
	return p
}
