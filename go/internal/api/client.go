package api

import (
	"context"

	"connectrpc.com/connect"
)

// Client calls the auction service over connect with the JSON codec.
type Client struct {
	createRoom   *connect.Client[CreateRoomRequest, CreateRoomResponse]
	getRoom      *connect.Client[GetRoomRequest, GetRoomResponse]
	startAuction *connect.Client[StartAuctionRequest, StartAuctionResponse]
	joinRoom     *connect.Client[JoinRoomRequest, JoinRoomResponse]
	placeBid     *connect.Client[PlaceBidRequest, PlaceBidResponse]
	listPlayers  *connect.Client[ListPlayersRequest, ListPlayersResponse]
	closeRoom    *connect.Client[CloseRoomRequest, CloseRoomResponse]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &Client{
		createRoom:   connect.NewClient[CreateRoomRequest, CreateRoomResponse](httpClient, baseURL+CreateRoomProcedure, opts...),
		getRoom:      connect.NewClient[GetRoomRequest, GetRoomResponse](httpClient, baseURL+GetRoomProcedure, opts...),
		startAuction: connect.NewClient[StartAuctionRequest, StartAuctionResponse](httpClient, baseURL+StartAuctionProcedure, opts...),
		joinRoom:     connect.NewClient[JoinRoomRequest, JoinRoomResponse](httpClient, baseURL+JoinRoomProcedure, opts...),
		placeBid:     connect.NewClient[PlaceBidRequest, PlaceBidResponse](httpClient, baseURL+PlaceBidProcedure, opts...),
		listPlayers:  connect.NewClient[ListPlayersRequest, ListPlayersResponse](httpClient, baseURL+ListPlayersProcedure, opts...),
		closeRoom:    connect.NewClient[CloseRoomRequest, CloseRoomResponse](httpClient, baseURL+CloseRoomProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	res, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) CreateRoom(ctx context.Context, req *CreateRoomRequest) (*CreateRoomResponse, error) {
	return call(ctx, c.createRoom, req)
}

func (c *Client) GetRoom(ctx context.Context, req *GetRoomRequest) (*GetRoomResponse, error) {
	return call(ctx, c.getRoom, req)
}

func (c *Client) StartAuction(ctx context.Context, req *StartAuctionRequest) (*StartAuctionResponse, error) {
	return call(ctx, c.startAuction, req)
}

func (c *Client) JoinRoom(ctx context.Context, req *JoinRoomRequest) (*JoinRoomResponse, error) {
	return call(ctx, c.joinRoom, req)
}

func (c *Client) PlaceBid(ctx context.Context, req *PlaceBidRequest) (*PlaceBidResponse, error) {
	return call(ctx, c.placeBid, req)
}

func (c *Client) ListPlayers(ctx context.Context, req *ListPlayersRequest) (*ListPlayersResponse, error) {
	return call(ctx, c.listPlayers, req)
}

func (c *Client) CloseRoom(ctx context.Context, req *CloseRoomRequest) (*CloseRoomResponse, error) {
	return call(ctx, c.closeRoom, req)
}
