package http

import (
	"net/http"

	"github.com/dkeye/Rendezvous/internal/app/orch"
	"github.com/dkeye/Rendezvous/internal/config"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type roomsAPI struct {
	orch       *orch.Orchestrator
	iceServers []webrtc.ICEServer
}

func iceServersFromConfig(cfg *config.Config) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}

func (a *roomsAPI) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": a.orch.Registry.Len()})
}

func (a *roomsAPI) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": a.orch.Registry.List()})
}

func (a *roomsAPI) getRoom(c *gin.Context) {
	id, err := domain.ParseRoomID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	info, ok := a.orch.Registry.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// newRoom hands out an id nobody is using yet. The room itself only comes
// into existence on the first join.
func (a *roomsAPI) newRoom(c *gin.Context) {
	id, err := a.orch.Registry.NewRoomID()
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("room id generation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate room id"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"roomId": id})
}

func (a *roomsAPI) listICEServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": a.iceServers})
}
