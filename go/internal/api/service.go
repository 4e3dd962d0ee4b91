package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/auction"
	"github.com/mcdev12/bidroom/go/internal/models"
	"github.com/mcdev12/bidroom/go/internal/validate"
)

const ServiceName = "auction.v1.AuctionService"

const (
	CreateRoomProcedure   = "/" + ServiceName + "/CreateRoom"
	GetRoomProcedure      = "/" + ServiceName + "/GetRoom"
	StartAuctionProcedure = "/" + ServiceName + "/StartAuction"
	JoinRoomProcedure     = "/" + ServiceName + "/JoinRoom"
	PlaceBidProcedure     = "/" + ServiceName + "/PlaceBid"
	ListPlayersProcedure  = "/" + ServiceName + "/ListPlayers"
	CloseRoomProcedure    = "/" + ServiceName + "/CloseRoom"
)

// RoomApp defines what the service layer needs from the room layer.
type RoomApp interface {
	CreateRoom(ctx context.Context, creatorID string) (*models.Room, error)
	GetRoom(ctx context.Context, code string) (*models.Room, error)
	StartAuction(ctx context.Context, code, requesterID string) (*models.Room, error)
	JoinRoom(ctx context.Context, code, teamName, ownerID string) (models.Team, *models.Room, error)
	PlaceBid(ctx context.Context, code, ownerID string, amount int64) (auction.BidReceipt, error)
	ListPlayers(ctx context.Context, role models.Role) []models.Player
	CloseRoom(ctx context.Context, code, requesterID string) error
}

// Service implements the auction RPCs. The REST routes call the same
// methods through their plain variants.
type Service struct {
	app RoomApp
}

func NewService(app RoomApp) *Service {
	return &Service{app: app}
}

// Handler returns the mount path and handler of the connect service.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{
		connect.WithCodec(Codec{}),
		connect.WithInterceptors(logInterceptor()),
	}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateRoomProcedure, connect.NewUnaryHandler(CreateRoomProcedure, s.CreateRoom, opts...))
	mux.Handle(GetRoomProcedure, connect.NewUnaryHandler(GetRoomProcedure, s.GetRoom, opts...))
	mux.Handle(StartAuctionProcedure, connect.NewUnaryHandler(StartAuctionProcedure, s.StartAuction, opts...))
	mux.Handle(JoinRoomProcedure, connect.NewUnaryHandler(JoinRoomProcedure, s.JoinRoom, opts...))
	mux.Handle(PlaceBidProcedure, connect.NewUnaryHandler(PlaceBidProcedure, s.PlaceBid, opts...))
	mux.Handle(ListPlayersProcedure, connect.NewUnaryHandler(ListPlayersProcedure, s.ListPlayers, opts...))
	mux.Handle(CloseRoomProcedure, connect.NewUnaryHandler(CloseRoomProcedure, s.CloseRoom, opts...))
	return "/" + ServiceName + "/", mux
}

func logInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			res, err := next(ctx, req)

			evt := log.Debug()
			if err != nil && connectCode(err) == connect.CodeInternal {
				evt = log.Error()
			}
			evt.Err(err).
				Str("procedure", req.Spec().Procedure).
				Dur("duration", time.Since(start)).
				Msg("rpc")
			return res, err
		}
	}
}

func (s *Service) CreateRoom(ctx context.Context, req *connect.Request[CreateRoomRequest]) (*connect.Response[CreateRoomResponse], error) {
	res, err := s.createRoom(ctx, req.Msg)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) GetRoom(ctx context.Context, req *connect.Request[GetRoomRequest]) (*connect.Response[GetRoomResponse], error) {
	res, err := s.getRoom(ctx, req.Msg)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) StartAuction(ctx context.Context, req *connect.Request[StartAuctionRequest]) (*connect.Response[StartAuctionResponse], error) {
	res, err := s.startAuction(ctx, req.Msg)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) JoinRoom(ctx context.Context, req *connect.Request[JoinRoomRequest]) (*connect.Response[JoinRoomResponse], error) {
	res, err := s.joinRoom(ctx, req.Msg)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) PlaceBid(ctx context.Context, req *connect.Request[PlaceBidRequest]) (*connect.Response[PlaceBidResponse], error) {
	res, err := s.placeBid(ctx, req.Msg)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) ListPlayers(ctx context.Context, req *connect.Request[ListPlayersRequest]) (*connect.Response[ListPlayersResponse], error) {
	res, err := s.listPlayers(ctx, req.Msg)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) CloseRoom(ctx context.Context, req *connect.Request[CloseRoomRequest]) (*connect.Response[CloseRoomResponse], error) {
	res, err := s.closeRoom(ctx, req.Msg)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) createRoom(ctx context.Context, req *CreateRoomRequest) (*CreateRoomResponse, error) {
	room, err := s.app.CreateRoom(ctx, req.CreatorID)
	if err != nil {
		return nil, err
	}
	return &CreateRoomResponse{RoomCode: room.Code, Room: room}, nil
}

func (s *Service) getRoom(ctx context.Context, req *GetRoomRequest) (*GetRoomResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err)
	}
	room, err := s.app.GetRoom(ctx, req.RoomCode)
	if errors.Is(err, auction.ErrNotFound) {
		return &GetRoomResponse{Found: false, Error: auction.ErrRoomNotFound.Error()}, nil
	}
	if err != nil {
		return nil, err
	}
	return &GetRoomResponse{Found: true, Room: room}, nil
}

func (s *Service) startAuction(ctx context.Context, req *StartAuctionRequest) (*StartAuctionResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err)
	}
	room, err := s.app.StartAuction(ctx, req.RoomCode, req.RequesterID)
	if err != nil {
		return nil, err
	}
	return &StartAuctionResponse{Message: "Auction started", Room: room}, nil
}

func (s *Service) joinRoom(ctx context.Context, req *JoinRoomRequest) (*JoinRoomResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err)
	}
	team, room, err := s.app.JoinRoom(ctx, req.RoomCode, req.TeamName, req.OwnerID)
	if err != nil {
		return nil, err
	}
	return &JoinRoomResponse{Team: team, Room: room}, nil
}

func (s *Service) placeBid(ctx context.Context, req *PlaceBidRequest) (*PlaceBidResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err)
	}
	receipt, err := s.app.PlaceBid(ctx, req.RoomCode, req.OwnerID, req.BidAmount)
	if err != nil {
		return nil, err
	}
	return &PlaceBidResponse{Bid: receipt}, nil
}

func (s *Service) listPlayers(ctx context.Context, req *ListPlayersRequest) (*ListPlayersResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err)
	}
	players := s.app.ListPlayers(ctx, models.Role(req.Role))
	if players == nil {
		players = []models.Player{}
	}
	return &ListPlayersResponse{Players: players}, nil
}

func (s *Service) closeRoom(ctx context.Context, req *CloseRoomRequest) (*CloseRoomResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err)
	}
	if err := s.app.CloseRoom(ctx, req.RoomCode, req.RequesterID); err != nil {
		return nil, err
	}
	return &CloseRoomResponse{Message: "Room closed"}, nil
}
