package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-hap/internal/accessory"
)

// handleListAccessories returns the full bridged accessory tree.
func (s *Server) handleListAccessories(w http.ResponseWriter, _ *http.Request) {
	accessories := s.bridge.Accessories()
	writeJSON(w, http.StatusOK, map[string]any{
		"accessories": accessories,
		"count":       len(accessories),
	})
}

// handleGetAccessory returns a single accessory by its accessory ID.
func (s *Server) handleGetAccessory(w http.ResponseWriter, r *http.Request) {
	aid, err := strconv.ParseUint(chi.URLParam(r, "aid"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid accessory id")
		return
	}

	acc, ok := s.bridge.AccessoryByAID(aid)
	if !ok {
		writeNotFound(w, "accessory not found")
		return
	}

	writeJSON(w, http.StatusOK, acc)
}

// characteristicWriteRequest is the request body for characteristic writes.
type characteristicWriteRequest struct {
	Value any `json:"value"`
}

// handleWriteCharacteristic applies a client write to one characteristic.
//
// The write flows through the same path a HomeKit controller write would:
// coercion and clamping in the accessory layer, then the engine's write
// hook, which issues the device command. Out-of-range values are rejected
// with 400; semantically invalid ones (a mode the device lacks) are
// absorbed by the engine and corrected on the next state refresh, so the
// response is 204 either way.
func (s *Server) handleWriteCharacteristic(w http.ResponseWriter, r *http.Request) {
	aid, err := strconv.ParseUint(chi.URLParam(r, "aid"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid accessory id")
		return
	}
	iid, err := strconv.ParseUint(chi.URLParam(r, "iid"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid characteristic id")
		return
	}

	acc, ok := s.bridge.AccessoryByAID(aid)
	if !ok {
		writeNotFound(w, "accessory not found")
		return
	}

	char := acc.Characteristic(iid)
	if char == nil {
		writeNotFound(w, "characteristic not found")
		return
	}

	var req characteristicWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := char.Write(req.Value); err != nil {
		if errors.Is(err, accessory.ErrInvalidValue) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to apply characteristic write")
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
