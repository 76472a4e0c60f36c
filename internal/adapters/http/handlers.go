package http

import (
	"net/http"

	"github.com/dkeye/Discuss/internal/adapters/rtc"
	"github.com/dkeye/Discuss/internal/app/orch"
	"github.com/dkeye/Discuss/internal/domain"
	"github.com/gin-gonic/gin"
)

type TopicResponse struct {
	Topic string `json:"topic"`
}

type RoomResponse struct {
	Room    domain.RoomID   `json:"room"`
	Members []domain.ConnID `json:"members"`
}

type Handlers struct {
	Orch *orch.Orchestrator
	ICE  rtc.ClientConfig
}

// FetchTopic selects a topic for this caller only.
func (h *Handlers) FetchTopic(c *gin.Context) {
	c.JSON(http.StatusOK, TopicResponse{Topic: h.Orch.FetchTopic()})
}

// StartDiscussion selects a topic, pushes it to every socket and returns it.
func (h *Handlers) StartDiscussion(c *gin.Context) {
	c.JSON(http.StatusOK, TopicResponse{Topic: h.Orch.StartDiscussion(orch.TriggerHTTP)})
}

func (h *Handlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.Orch.Registry.Rooms())
}

func (h *Handlers) RoomMembers(c *gin.Context) {
	id := domain.RoomID(c.Param("id"))
	members := h.Orch.MembersOf(id)
	if len(members) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, RoomResponse{Room: id, Members: members})
}

func (h *Handlers) ICEServers(c *gin.Context) {
	c.JSON(http.StatusOK, h.ICE)
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": h.Orch.Registry.Count(),
		"rooms":       h.Orch.Registry.RoomCount(),
	})
}
