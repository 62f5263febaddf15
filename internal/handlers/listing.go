package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/tourism-chat/internal/database"
	"github.com/thereayou/tourism-chat/internal/handlers/dto"
	"github.com/thereayou/tourism-chat/internal/listings"
	"github.com/thereayou/tourism-chat/internal/middleware"
	"github.com/thereayou/tourism-chat/internal/models"
)

type ListingHandler struct {
	db       *database.Database
	listings *listings.Service
}

func NewListingHandler(db *database.Database, svc *listings.Service) *ListingHandler {
	return &ListingHandler{db: db, listings: svc}
}

func (h *ListingHandler) currentUser(c *gin.Context) (*models.User, bool) {
	user, err := h.db.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return user, true
}

func (h *ListingHandler) Create(c *gin.Context) {
	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	owner, ok := h.currentUser(c)
	if !ok {
		return
	}

	listing, err := h.listings.Create(c.Request.Context(), owner, models.ListingKind(req.Kind), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h *ListingHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	listing, err := h.listings.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *ListingHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := h.currentUser(c)
	if !ok {
		return
	}
	if err := h.listings.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ListingHandler) AddReview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	rating, err := h.listings.AddReview(c.Request.Context(), user, id, req.Rating, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ReviewResponse{ListingID: id, Rating: rating})
}
