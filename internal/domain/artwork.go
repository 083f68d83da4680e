package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type Artwork struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Year        int    `json:"year" yaml:"year"`
	Dimensions  string `json:"dimensions" yaml:"dimensions"`
	Medium      string `json:"medium" yaml:"medium"`
	Image       string `json:"image" yaml:"image"`
	Series      string `json:"series,omitempty" yaml:"series"`
	Description string `json:"description" yaml:"description"`
	// ForSale doubles as the visibility flag: only artworks with it set appear on the site.
	ForSale bool `json:"forSale" yaml:"for_sale"`
}

type Exhibition struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Gallery     string `json:"gallery" yaml:"gallery"`
	Location    string `json:"location" yaml:"location"`
	StartDate   string `json:"startDate" yaml:"start_date"`
	EndDate     string `json:"endDate" yaml:"end_date"`
	Image       string `json:"image" yaml:"image"`
	Description string `json:"description" yaml:"description"`
}

// ArtworkField names an editable artwork attribute.
type ArtworkField string

const (
	FieldTitle       ArtworkField = "title"
	FieldYear        ArtworkField = "year"
	FieldDimensions  ArtworkField = "dimensions"
	FieldMedium      ArtworkField = "medium"
	FieldImage       ArtworkField = "image"
	FieldSeries      ArtworkField = "series"
	FieldDescription ArtworkField = "description"
	FieldForSale     ArtworkField = "forSale"
)

// Set applies a single field edit. The id is never editable.
func (a *Artwork) Set(field ArtworkField, value string) error {
	switch field {
	case FieldTitle:
		a.Title = value
	case FieldYear:
		year, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return &ValidationError{Field: string(field), Message: "year must be a number"}
		}
		a.Year = year
	case FieldDimensions:
		a.Dimensions = value
	case FieldMedium:
		a.Medium = value
	case FieldImage:
		a.Image = value
	case FieldSeries:
		a.Series = value
	case FieldDescription:
		a.Description = value
	case FieldForSale:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return &ValidationError{Field: string(field), Message: "forSale must be true or false"}
		}
		a.ForSale = b
	default:
		return &ValidationError{Field: string(field), Message: fmt.Sprintf("unknown field %q", field)}
	}
	return nil
}

// FindArtwork returns the index of the artwork with id, or -1.
func FindArtwork(list []Artwork, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
