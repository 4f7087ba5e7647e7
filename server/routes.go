package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wellspring-io/wellspring/engine"
	"github.com/wellspring-io/wellspring/internal/version"
	"github.com/wellspring-io/wellspring/store"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.health)
	if s.exporter != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.exporter.Handler()))
	}

	v1 := s.echo.Group("/api/v1")
	v1.POST("/users/:user/interactions", s.trackInteraction)
	v1.GET("/users/:user/recommendations", s.generateRecommendations)
	v1.POST("/users/:user/recommendations/adapt", s.adaptRecommendations)
	v1.POST("/users/:user/moods", s.recordMood)
	v1.PUT("/users/:user/peer-profile", s.upsertPeerProfile)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.GetCurrentVersion(s.profile.Mode),
	})
}

func userIDParam(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("user"), 10, 32)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	return int32(id), nil
}

type trackInteractionRequest struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func (s *Server) trackInteraction(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req trackInteractionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Type == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "type is required")
	}

	e := s.engineFor(c.Request().Context(), userID)
	event := e.TrackInteraction(c.Request().Context(), req.Type, req.Payload)
	return c.JSON(http.StatusCreated, event)
}

func (s *Server) generateRecommendations(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	e := s.engineFor(c.Request().Context(), userID)
	bundle := e.GenerateRecommendations(c.Request().Context())
	return c.JSON(http.StatusOK, bundle)
}

type adaptRequest struct {
	Base    *engine.RecommendationsBundle `json:"base,omitempty"`
	Context *engine.ContextSnapshot       `json:"context,omitempty"`
}

func (s *Server) adaptRecommendations(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req adaptRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	e := s.engineFor(c.Request().Context(), userID)
	base := req.Base
	if base == nil {
		generated := e.GenerateRecommendations(c.Request().Context())
		base = &generated
	}
	adapted := e.AdaptRecommendations(c.Request().Context(), base, req.Context)
	return c.JSON(http.StatusOK, adapted)
}

type recordMoodRequest struct {
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
	StressLevel  *int32  `json:"stressLevel,omitempty"`
	AnxietyLevel *int32  `json:"anxietyLevel,omitempty"`
}

func (s *Server) recordMood(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req recordMoodRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Category == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "category is required")
	}

	now := time.Now()
	entry := &store.MoodEntry{
		UserID:       userID,
		Category:     req.Category,
		Confidence:   req.Confidence,
		StressLevel:  req.StressLevel,
		AnxietyLevel: req.AnxietyLevel,
		CreatedTs:    now.Unix(),
	}
	if _, err := s.store.CreateMoodEntry(c.Request().Context(), entry); err != nil {
		// Durable mood storage is best-effort; the in-memory reading
		// still feeds the engine below.
		slog.Warn("failed to persist mood entry", "user", userID, "error", err)
	}

	state := engine.MoodState{
		Category:   req.Category,
		Confidence: req.Confidence,
		ObservedAt: now,
	}
	if req.StressLevel != nil {
		level := int(*req.StressLevel)
		state.StressLevel = &level
	}
	if req.AnxietyLevel != nil {
		level := int(*req.AnxietyLevel)
		state.AnxietyLevel = &level
	}
	s.engineFor(c.Request().Context(), userID).ObserveMood(state)

	return c.JSON(http.StatusCreated, entry)
}

type peerProfileRequest struct {
	Interests          []string `json:"interests"`
	Experiences        []string `json:"experiences"`
	CommunicationStyle string   `json:"communicationStyle"`
	AgeRange           string   `json:"ageRange"`
	ActiveBuckets      []string `json:"activeBuckets"`
}

func (s *Server) upsertPeerProfile(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req peerProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	interests, _ := json.Marshal(req.Interests)
	experiences, _ := json.Marshal(req.Experiences)
	buckets, _ := json.Marshal(req.ActiveBuckets)

	pp, err := s.store.UpsertPeerProfile(c.Request().Context(), &store.UpsertPeerProfile{
		UserID:             userID,
		Interests:          string(interests),
		Experiences:        string(experiences),
		CommunicationStyle: req.CommunicationStyle,
		AgeRange:           req.AgeRange,
		ActiveBuckets:      string(buckets),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save peer profile")
	}
	return c.JSON(http.StatusOK, pp)
}
