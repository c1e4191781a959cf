package router

import (
	"strings"

	"github.com/riftsignal/signalserver/internal/apperr"
)

func (rt *Router) validateGameName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > rt.Config.Protocol.MaxGameNameLength {
		return apperr.New(apperr.CodeInvalidGameName, "gameName is empty or exceeds the configured length limit")
	}
	return nil
}

func (rt *Router) validatePlayerName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > rt.Config.Protocol.MaxPlayerNameLength {
		return apperr.New(apperr.CodeInvalidPlayerName, "playerName is empty or exceeds the configured length limit")
	}
	return nil
}

func (rt *Router) clampMaxPlayers(requested int) int {
	if requested <= 0 {
		return rt.Config.Server.DefaultMaxPlayers
	}
	if requested > rt.Config.Protocol.MaxPlayersLimit {
		return rt.Config.Protocol.MaxPlayersLimit
	}
	return requested
}
