package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"geoloc/internal/models"
)

func setLabel(label string) Step[models.ArchivedPlace] {
	return func(_ context.Context, p *models.ArchivedPlace) error {
		p.TypeLabel = label
		return nil
	}
}

func setColor(color string) Step[models.ArchivedPlace] {
	return func(_ context.Context, p *models.ArchivedPlace) error {
		p.TypeColor = color
		return nil
	}
}

// copyLabel reads what an earlier stage wrote.
func copyLabel(_ context.Context, p *models.ArchivedPlace) error {
	p.Description = p.TypeLabel
	return nil
}

func failing(_ context.Context, _ *models.ArchivedPlace) error {
	return errors.New("geocoder down")
}

func TestPipeline_Process(t *testing.T) {
	tests := []struct {
		name   string
		stages []Stage[models.ArchivedPlace]
		want   models.ArchivedPlace
	}{
		{
			name:   "single step",
			stages: []Stage[models.ArchivedPlace]{NewStage(setLabel("Bar"))},
			want:   models.ArchivedPlace{TypeLabel: "Bar"},
		},
		{
			name: "steps of one stage write disjoint fields",
			stages: []Stage[models.ArchivedPlace]{
				NewStage(setLabel("Bar"), setColor("#8b5cf6")),
			},
			want: models.ArchivedPlace{TypeLabel: "Bar", TypeColor: "#8b5cf6"},
		},
		{
			name: "later stage sees earlier stage",
			stages: []Stage[models.ArchivedPlace]{
				NewStage(setLabel("Culture")),
				NewStage(copyLabel),
			},
			want: models.ArchivedPlace{
				Place:     models.Place{Description: "Culture"},
				TypeLabel: "Culture",
			},
		},
		{
			name: "failed step keeps the item going",
			stages: []Stage[models.ArchivedPlace]{
				NewStage(failing, setColor("#10b981")),
				NewStage(setLabel("Outdoors")),
			},
			want: models.ArchivedPlace{TypeLabel: "Outdoors", TypeColor: "#10b981"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			item := &models.ArchivedPlace{}
			in := make(chan *models.ArchivedPlace, 1)
			in <- item
			close(in)

			var out []*models.ArchivedPlace
			for rec := range NewPipeline(tt.stages...).Process(ctx, in) {
				out = append(out, rec)
			}

			if len(out) != 1 || out[0] != item {
				t.Fatalf("got %d items, want the input item once", len(out))
			}
			if item.TypeLabel != tt.want.TypeLabel || item.TypeColor != tt.want.TypeColor || item.Description != tt.want.Description {
				t.Errorf("got %+v, want %+v", *item, tt.want)
			}
		})
	}
}

func TestPipeline_ProcessStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan *models.ArchivedPlace, 2)
	in <- &models.ArchivedPlace{}
	in <- &models.ArchivedPlace{}
	close(in)

	out := NewPipeline(NewStage(setLabel("Bar"))).Process(ctx, in)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("output not closed after cancel")
		}
	}
}
