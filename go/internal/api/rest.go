package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/auction"
	"github.com/mcdev12/bidroom/go/internal/validate"
)

type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: auction.Code(err)})
}

func writeValidation(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Error:  "validation failed",
		Code:   auction.Code(auction.ErrInvalidArgument),
		Fields: validate.Fields(err),
	})
}

// decodeBody reads an optional JSON body into dst. An empty body leaves dst
// untouched.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// routes registers the REST surface on r.
func (s *Service) routes(r chi.Router) {
	r.Post("/room/create", s.handleCreateRoom)
	r.Get("/room/{code}", s.handleGetRoom)
	r.Post("/room/{code}/start", s.handleStartAuction)
	r.Post("/room/{code}/join", s.handleJoinRoom)
	r.Post("/room/{code}/bid", s.handlePlaceBid)
	r.Delete("/room/{code}", s.handleCloseRoom)
	r.Get("/players", s.handleListPlayers)
}

func (s *Service) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, auction.ErrInvalidArgument)
		return
	}
	res, err := s.createRoom(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetRoom answers an unknown code with 200 and found=false.
func (s *Service) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	req := GetRoomRequest{RoomCode: chi.URLParam(r, "code")}
	if err := validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusOK, GetRoomResponse{Found: false, Error: auction.ErrRoomNotFound.Error()})
		return
	}
	res, err := s.getRoom(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	if !res.Found {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusOK, res.Room)
}

func (s *Service) handleStartAuction(w http.ResponseWriter, r *http.Request) {
	var req StartAuctionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, auction.ErrInvalidArgument)
		return
	}
	req.RoomCode = chi.URLParam(r, "code")
	if err := validate.Struct(&req); err != nil {
		writeValidation(w, err)
		return
	}
	res, err := s.startAuction(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req JoinRoomRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, auction.ErrInvalidArgument)
		return
	}
	req.RoomCode = chi.URLParam(r, "code")
	if err := validate.Struct(&req); err != nil {
		writeValidation(w, err)
		return
	}
	res, err := s.joinRoom(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	var req PlaceBidRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, auction.ErrInvalidArgument)
		return
	}
	req.RoomCode = chi.URLParam(r, "code")
	if err := validate.Struct(&req); err != nil {
		writeValidation(w, err)
		return
	}
	res, err := s.placeBid(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleCloseRoom(w http.ResponseWriter, r *http.Request) {
	req := CloseRoomRequest{
		RoomCode:    chi.URLParam(r, "code"),
		RequesterID: r.URL.Query().Get("requester_id"),
	}
	if err := validate.Struct(&req); err != nil {
		writeValidation(w, err)
		return
	}
	res, err := s.closeRoom(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleListPlayers returns a bare array of players.
func (s *Service) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	req := ListPlayersRequest{Role: r.URL.Query().Get("role")}
	if err := validate.Struct(&req); err != nil {
		writeValidation(w, err)
		return
	}
	res, err := s.listPlayers(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Players)
}
