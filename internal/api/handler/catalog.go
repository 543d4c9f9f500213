package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/repository"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/usecase"
)

// Response types

type VideoPartResponse struct {
	Cid      int64  `json:"cid"`
	Page     int    `json:"page"`
	Part     string `json:"part"`
	Duration int64  `json:"duration"`
	Ctime    int64  `json:"ctime"`
}

type VideoResponse struct {
	Aid          int64               `json:"aid"`
	Bvid         string              `json:"bvid"`
	Mid          int64               `json:"mid"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Pic          string              `json:"pic,omitempty"`
	Created      int64               `json:"created"`
	SeasonID     int64               `json:"season_id,omitempty"`
	Tags         []string            `json:"tags"`
	Parts        []VideoPartResponse `json:"parts"`
	TouhouStatus string              `json:"touhou_status"`
}

type VideoListResponse struct {
	Count  int             `json:"count"`
	Videos []VideoResponse `json:"videos"`
}

type UploaderResponse struct {
	Mid  int64  `json:"mid"`
	Name string `json:"name"`
}

// CatalogHandler handles archive read requests.
type CatalogHandler struct {
	svc usecase.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(svc usecase.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// List handles GET /v1/videos
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	videos, err := h.svc.ListVideos(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := VideoListResponse{
		Count:  len(videos),
		Videos: make([]VideoResponse, 0, len(videos)),
	}
	for _, v := range videos {
		resp.Videos = append(resp.Videos, toVideoResponse(v))
	}

	JSON(w, http.StatusOK, resp)
}

// Get handles GET /v1/videos/{aid}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	aid, err := strconv.ParseInt(chi.URLParam(r, "aid"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_aid", "Video aid must be an integer")
		return
	}

	video, err := h.svc.GetVideo(r.Context(), aid)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(video))
}

// GetUploader handles GET /v1/uploaders/{mid}
func (h *CatalogHandler) GetUploader(w http.ResponseWriter, r *http.Request) {
	mid, err := strconv.ParseInt(chi.URLParam(r, "mid"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_mid", "Uploader mid must be an integer")
		return
	}

	uploader, err := h.svc.GetUploader(r.Context(), mid)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, UploaderResponse{
		Mid:  uploader.Mid,
		Name: uploader.Name,
	})
}

func (h *CatalogHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrVideoNotFound):
		Error(w, http.StatusNotFound, "video_not_found", "Video not found")
	case errors.Is(err, repository.ErrUploaderNotFound):
		Error(w, http.StatusNotFound, "uploader_not_found", "Uploader not found")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func toVideoResponse(v *model.Video) VideoResponse {
	parts := make([]VideoPartResponse, 0, len(v.Parts))
	for _, p := range v.Parts {
		parts = append(parts, VideoPartResponse{
			Cid:      p.Cid,
			Page:     p.Page,
			Part:     p.Part,
			Duration: p.Duration,
			Ctime:    p.Ctime,
		})
	}
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}
	return VideoResponse{
		Aid:          v.Aid,
		Bvid:         v.Bvid,
		Mid:          v.Mid,
		Title:        v.Title,
		Description:  v.Description,
		Pic:          v.Pic,
		Created:      v.Created,
		SeasonID:     v.SeasonID,
		Tags:         tags,
		Parts:        parts,
		TouhouStatus: v.TouhouStatus.String(),
	}
}
