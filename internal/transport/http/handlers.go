package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/meet/internal/app"
	"github.com/dkeye/meet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Controller is the part of a meeting the control API drives.
type Controller interface {
	Participants() []domain.Participant
	Unpinned() []domain.Participant
	PinState() domain.PinState
	State() app.State
	TogglePinLocal() (domain.PinState, error)
	Pin(id domain.UserID) (domain.PinState, error)
	SetMicrophoneMuted(muted bool) error
	SetCameraOff(off bool) error
	Leave(ctx context.Context) error
}

type Handlers struct {
	Meeting Controller
}

type MicRequest struct {
	Muted *bool `json:"muted" binding:"required"`
}

type CameraRequest struct {
	Off *bool `json:"off" binding:"required"`
}

type PinResponse struct {
	Kind string        `json:"kind"`
	ID   domain.UserID `json:"id,omitempty"`
}

func pinResponse(st domain.PinState) PinResponse {
	switch {
	case st.IsLocal():
		return PinResponse{Kind: "local"}
	case st.IsRemote():
		id, _ := st.RemoteID()
		return PinResponse{Kind: "remote", ID: id}
	}
	return PinResponse{Kind: "none"}
}

func (h *Handlers) dtos(ps []domain.Participant) []domain.ParticipantDTO {
	pin := h.Meeting.PinState()
	out := make([]domain.ParticipantDTO, 0, len(ps))
	for _, p := range ps {
		dto := p.DTO()
		dto.Pinned = pin.Matches(p)
		out = append(out, dto)
	}
	return out
}

func (h *Handlers) Roster(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"participants": h.dtos(h.Meeting.Participants())})
}

func (h *Handlers) Unpinned(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"participants": h.dtos(h.Meeting.Unpinned())})
}

func (h *Handlers) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.Meeting.State())
}

func (h *Handlers) PinLocal(c *gin.Context) {
	st, err := h.Meeting.TogglePinLocal()
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, pinResponse(st))
}

func (h *Handlers) PinRemote(c *gin.Context) {
	st, err := h.Meeting.Pin(domain.UserID(c.Param("id")))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, pinResponse(st))
}

func (h *Handlers) Microphone(c *gin.Context) {
	var req MicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid muted"})
		return
	}
	if err := h.Meeting.SetMicrophoneMuted(*req.Muted); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"muted": *req.Muted})
}

func (h *Handlers) Camera(c *gin.Context) {
	var req CameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid off"})
		return
	}
	if err := h.Meeting.SetCameraOff(*req.Off); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"off": *req.Off})
}

func (h *Handlers) Leave(c *gin.Context) {
	if err := h.Meeting.Leave(c.Request.Context()); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func abort(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrNotJoined), errors.Is(err, app.ErrClosed):
		code = http.StatusConflict
	case errors.Is(err, app.ErrUnknownParticipant):
		code = http.StatusNotFound
	}
	log.Debug().Err(err).Str("module", "transport.http").Str("path", c.FullPath()).Int("status", code).Msg("request failed")
	c.JSON(code, gin.H{"error": err.Error()})
}
