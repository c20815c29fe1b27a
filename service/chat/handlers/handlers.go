// Package handlers serves the client events of the chat gateway.
package handlers

import "HoodChat/service/chat"

// All returns every client event handler.
func All() []chat.Handler {
	return []chat.Handler{
		NewJoinHandler(),
		NewVerifyHandler(),
		NewLeaveHandler(),
	}
}
