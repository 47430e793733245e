package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manzanit0/geosearch/pkg/addrsearch"
	"github.com/manzanit0/geosearch/pkg/geocode"
	"github.com/manzanit0/geosearch/pkg/middleware"
)

const ctxKeySession = "addrsearch.session"

// SessionController exposes address sessions to a remote form. Every
// mutating call answers the resulting state; lookups complete in the
// background and show up on the next GET.
type SessionController struct {
	sessions *addrsearch.Registry
}

func NewSessionController(sessions *addrsearch.Registry) *SessionController {
	return &SessionController{sessions: sessions}
}

type createSessionRequest struct {
	Address     string               `json:"address"`
	Coordinates *geocode.Coordinates `json:"coordinates"`
	Proximity   *geocode.Coordinates `json:"proximity"`
}

type sessionResponse struct {
	ID    string              `json:"id"`
	State addrsearch.Snapshot `json:"state"`
}

type queryRequest struct {
	Text string `json:"text"`
}

type coordinatesRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

// selectRequest picks a suggestion by index. Without an index the
// highlighted suggestion is selected, as the enter key would.
type selectRequest struct {
	Index *int `json:"index"`
}

type highlightRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func (s *SessionController) Create(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var opts []addrsearch.SessionOption
	if req.Address != "" || req.Coordinates != nil {
		opts = append(opts, addrsearch.WithInitialLocation(req.Address, req.Coordinates))
	}
	if req.Proximity != nil {
		opts = append(opts, addrsearch.WithProximity(*req.Proximity))
	}

	id, sess := s.sessions.Create(opts...)
	c.JSON(http.StatusCreated, sessionResponse{ID: id, State: sess.Snapshot()})
}

// Load resolves :id into the session for the handlers below it.
func (s *SessionController) Load(c *gin.Context) {
	id := c.Param("id")

	sess, ok := s.sessions.Get(id)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.Request = c.Request.WithContext(middleware.WithSessionID(c.Request.Context(), id))
	c.Set(ctxKeySession, sess)
	c.Next()
}

func (s *SessionController) Get(c *gin.Context) {
	respond(c, http.StatusOK)
}

func (s *SessionController) Delete(c *gin.Context) {
	if !s.sessions.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *SessionController) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session(c).UpdateQuery(req.Text)
	respond(c, http.StatusOK)
}

func (s *SessionController) Coordinates(c *gin.Context) {
	var req coordinatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := validCoordinates(*req.Lat, *req.Lng)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session(c).UpdateCoordinates(p.Lat, p.Lng)
	respond(c, http.StatusAccepted)
}

func (s *SessionController) Select(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ok bool
	if req.Index != nil {
		ok = session(c).SelectIndex(*req.Index)
	} else {
		ok = session(c).SelectHighlighted()
	}

	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no such suggestion"})
		return
	}

	respond(c, http.StatusOK)
}

func (s *SessionController) Highlight(c *gin.Context) {
	var req highlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session(c).MoveHighlight(req.Delta)
	respond(c, http.StatusOK)
}

func (s *SessionController) Open(c *gin.Context) {
	session(c).OpenSuggestions()
	respond(c, http.StatusOK)
}

func (s *SessionController) Close(c *gin.Context) {
	session(c).CloseSuggestions()
	respond(c, http.StatusOK)
}

func (s *SessionController) Clear(c *gin.Context) {
	session(c).Clear()
	respond(c, http.StatusOK)
}

func session(c *gin.Context) *addrsearch.Session {
	return c.MustGet(ctxKeySession).(*addrsearch.Session)
}

func respond(c *gin.Context, status int) {
	c.JSON(status, sessionResponse{ID: c.Param("id"), State: session(c).Snapshot()})
}
