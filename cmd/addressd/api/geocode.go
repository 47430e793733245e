package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/manzanit0/geosearch/pkg/addrsearch"
	"github.com/manzanit0/geosearch/pkg/geocode"
)

// GeocodeController serves stateless lookups through the shared cache.
type GeocodeController struct {
	lookup *addrsearch.Lookup
}

func NewGeocodeController(lookup *addrsearch.Lookup) *GeocodeController {
	return &GeocodeController{lookup: lookup}
}

type searchResponse struct {
	Query      string              `json:"query"`
	Candidates []geocode.Candidate `json:"candidates"`
	Error      bool                `json:"error"`
}

type reverseResponse struct {
	Address     string              `json:"address"`
	Coordinates geocode.Coordinates `json:"coordinates"`
	Degraded    bool                `json:"degraded"`
}

// Search handles GET /v1/geocode/search?q=&lat=&lng=. Queries shorter than
// three characters answer an empty list.
func (g *GeocodeController) Search(c *gin.Context) {
	var proximity *geocode.Coordinates
	if c.Query("lat") != "" || c.Query("lng") != "" {
		p, err := coordinatesFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		proximity = &p
	}

	q := geocode.NewSearchQuery(c.Query("q"), proximity)
	candidates, err := g.lookup.Forward(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
	}

	c.JSON(http.StatusOK, searchResponse{Query: q.Text, Candidates: candidates, Error: err != nil})
}

// Reverse handles GET /v1/geocode/reverse?lat=&lng=. It always answers an
// address; degraded is set when it is only the coordinate label.
func (g *GeocodeController) Reverse(c *gin.Context) {
	p, err := coordinatesFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address, err := g.lookup.Reverse(c.Request.Context(), p.Lat, p.Lng)
	if err != nil {
		_ = c.Error(err)
	}

	c.JSON(http.StatusOK, reverseResponse{Address: address, Coordinates: p, Degraded: err != nil})
}

func coordinatesFromQuery(c *gin.Context) (geocode.Coordinates, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return geocode.Coordinates{}, fmt.Errorf("invalid lat: %q", c.Query("lat"))
	}

	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		return geocode.Coordinates{}, fmt.Errorf("invalid lng: %q", c.Query("lng"))
	}

	return validCoordinates(lat, lng)
}

func validCoordinates(lat, lng float64) (geocode.Coordinates, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return geocode.Coordinates{}, fmt.Errorf("coordinates out of range: %f, %f", lat, lng)
	}

	return geocode.Coordinates{Lat: lat, Lng: lng}, nil
}
