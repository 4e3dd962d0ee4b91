package auction

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/auction/events"
	"github.com/mcdev12/bidroom/go/internal/models"
)

// SnapshotSink receives every snapshot a room publishes. Save must not block.
type SnapshotSink interface {
	Save(room *models.Room)
}

// Metrics observes bid and item outcomes.
type Metrics interface {
	BidEvaluated(outcome string)
	ItemClosed(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) BidEvaluated(string) {}
func (noopMetrics) ItemClosed(string)   {}

const (
	OutcomeAccepted = "accepted"
	OutcomeSold     = "sold"
	OutcomeUnsold   = "unsold"
)

// Item close reasons reported in item_unsold events and logs.
const (
	closeTimer        = "timer"
	closeUncontested  = "uncontested"
	closeUnaffordable = "unaffordable"
	closeNoBids       = "no_bids"
)

type Option func(*Engine)

func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithSnapshotSink(s SnapshotSink) Option {
	return func(e *Engine) { e.sink = s }
}

func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithCreator restricts Start to the given connection.
func WithCreator(id string) Option {
	return func(e *Engine) { e.creatorID = id }
}

// BidReceipt describes an accepted bid.
type BidReceipt struct {
	ItemID   uuid.UUID `json:"item_id"`
	TeamID   uuid.UUID `json:"team_id"`
	TeamName string    `json:"team_name"`
	Amount   int64     `json:"amount"`
	TimerEnd time.Time `json:"timer_end"`
	// Sold is set when the bid closed the item because no other team could
	// outbid it.
	Sold bool `json:"sold"`
}

type teamSeat struct {
	id    uuid.UUID
	name  string
	owner string
}

type command struct {
	name  string
	run   func() (any, error)
	reply chan result
}

type result struct {
	value any
	err   error
}

// Engine is the state machine of one auction room. All mutations run on a
// single goroutine fed by a mailbox; snapshots can be read from any goroutine.
type Engine struct {
	id        uuid.UUID
	code      string
	creatorID string
	settings  Settings
	arbiter   Arbiter
	clock     clockwork.Clock
	publisher events.Publisher
	sink      SnapshotSink
	metrics   Metrics
	logger    zerolog.Logger

	mailbox     chan command
	quit        chan struct{}
	done        chan struct{}
	quitOnce    sync.Once
	closeReason string
	snapshot    atomic.Pointer[models.Room]

	// Owned by the run goroutine.
	phase       models.Phase
	players     []models.Player
	index       int
	currentBid  int64
	bidder      uuid.UUID
	teams       []teamSeat
	owners      map[string]uuid.UUID
	ledger      *Ledger
	timer       *Timer
	sold        []uuid.UUID
	unsold      []uuid.UUID
	closed      bool
	version     uint64
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
}

// New creates a room in the waiting phase and starts its goroutine. players
// is the auction order and is not modified.
func New(code string, players []models.Player, settings Settings, opts ...Option) *Engine {
	if settings.MailboxSize < 1 {
		settings.MailboxSize = 1
	}
	e := &Engine{
		id:        uuid.New(),
		code:      code,
		settings:  settings,
		arbiter:   Arbiter{MinIncrement: settings.MinIncrement},
		clock:     clockwork.NewRealClock(),
		publisher: events.Discard,
		metrics:   noopMetrics{},
		mailbox:   make(chan command, settings.MailboxSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		phase:     models.PhaseWaiting,
		players:   append([]models.Player{}, players...),
		owners:    make(map[string]uuid.UUID),
		ledger:    NewLedger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = log.With().Str("component", "auction_engine").Str("room_code", code).Logger()
	e.timer = NewTimer(e.clock, e.enqueueExpiry)
	e.createdAt = e.clock.Now()
	e.publishSnapshot()

	go e.run()
	return e
}

func (e *Engine) ID() uuid.UUID { return e.id }

func (e *Engine) Code() string { return e.code }

// Snapshot returns the latest published room state.
func (e *Engine) Snapshot() *models.Room { return e.snapshot.Load() }

// Done is closed once the room has shut down.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Join adds a team owned by ownerID. Teams can only join before the start.
func (e *Engine) Join(ctx context.Context, teamName, ownerID string) (models.Team, error) {
	return submit(ctx, e, "join", func() (models.Team, error) {
		return e.join(teamName, ownerID)
	})
}

// Start moves the room to active and opens the first player.
func (e *Engine) Start(ctx context.Context, requesterID string) error {
	_, err := submit(ctx, e, "start", func() (struct{}, error) {
		return struct{}{}, e.start(requesterID)
	})
	return err
}

// PlaceBid submits a bid for the open player on behalf of the team owned by
// ownerID.
func (e *Engine) PlaceBid(ctx context.Context, ownerID string, amount int64) (BidReceipt, error) {
	return submit(ctx, e, "bid", func() (BidReceipt, error) {
		return e.placeBid(ownerID, amount)
	})
}

// CloseReasonInternalError is the room_closed reason after a command panicked.
const CloseReasonInternalError = "internal_error"

// Close tears the room down and waits for its goroutine to exit. Queued and
// later commands fail with ErrRoomClosed.
func (e *Engine) Close(reason string) {
	e.quitOnce.Do(func() {
		e.closeReason = reason
		close(e.quit)
	})
	<-e.done
}

func submit[T any](ctx context.Context, e *Engine, name string, fn func() (T, error)) (T, error) {
	var zero T
	select {
	case <-e.quit:
		return zero, ErrRoomClosed
	default:
	}

	cmd := command{
		name:  name,
		run:   func() (any, error) { return fn() },
		reply: make(chan result, 1),
	}
	select {
	case e.mailbox <- cmd:
	case <-e.done:
		return zero, ErrRoomClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return unwrap[T](res)
	case <-e.done:
		// A reply sent before shutdown still wins.
		select {
		case res := <-cmd.reply:
			return unwrap[T](res)
		default:
			return zero, ErrRoomClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func unwrap[T any](res result) (T, error) {
	v, _ := res.value.(T)
	return v, res.err
}

func (e *Engine) run() {
	defer close(e.done)

	for {
		select {
		case <-e.quit:
			e.shutdown()
			return
		case cmd := <-e.mailbox:
			select {
			case <-e.quit:
				e.reject(cmd)
				e.shutdown()
				return
			default:
			}
			e.handle(cmd)
		}
	}
}

func (e *Engine) handle(cmd command) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("command", cmd.name).
				Interface("panic", r).
				Msg("recovered from panic while handling command")
			if cmd.reply != nil {
				cmd.reply <- result{err: fmt.Errorf("internal error handling %s", cmd.name)}
			}
			// The command may have stopped halfway through a mutation, so the
			// room cannot keep trading on its state.
			e.quitOnce.Do(func() {
				e.closeReason = CloseReasonInternalError
				close(e.quit)
			})
		}
	}()

	v, err := cmd.run()
	if cmd.reply != nil {
		cmd.reply <- result{value: v, err: err}
	}
}

func (e *Engine) reject(cmd command) {
	if cmd.reply != nil {
		cmd.reply <- result{err: ErrRoomClosed}
	}
}

func (e *Engine) shutdown() {
	e.timer.Cancel()

drain:
	for {
		select {
		case cmd := <-e.mailbox:
			e.reject(cmd)
		default:
			break drain
		}
	}

	e.closed = true
	e.emit(events.TypeRoomClosed, events.RoomClosedPayload{Reason: e.closeReason})
	e.publishSnapshot()

	e.logger.Info().
		Str("phase", string(e.phase)).
		Str("reason", e.closeReason).
		Msg("room closed")
}

// enqueueExpiry runs on the timer goroutine.
func (e *Engine) enqueueExpiry(exp Expiry) {
	cmd := command{
		name: "expire",
		run: func() (any, error) {
			e.handleExpiry(exp)
			return nil, nil
		},
	}
	select {
	case e.mailbox <- cmd:
	case <-e.done:
	}
}

func (e *Engine) join(teamName, ownerID string) (models.Team, error) {
	name := strings.TrimSpace(teamName)
	switch {
	case e.phase != models.PhaseWaiting:
		return models.Team{}, ErrAlreadyStarted
	case len(e.teams) >= e.settings.MaxTeams:
		return models.Team{}, ErrRoomFull
	case ownerID == "":
		return models.Team{}, ErrMissingOwner
	case name == "" || utf8.RuneCountInString(name) > MaxTeamNameLen:
		return models.Team{}, ErrInvalidTeamName
	}
	if _, ok := e.owners[ownerID]; ok {
		return models.Team{}, ErrAlreadyJoined
	}
	for _, t := range e.teams {
		if strings.EqualFold(t.name, name) {
			return models.Team{}, ErrTeamNameTaken
		}
	}

	seat := teamSeat{id: uuid.New(), name: name, owner: ownerID}
	e.teams = append(e.teams, seat)
	e.owners[ownerID] = seat.id
	e.ledger.Open(seat.id, e.settings.StartingBudget)

	team := e.team(seat)
	e.emit(events.TypeTeamJoined, events.TeamJoinedPayload{Team: team, TotalTeams: len(e.teams)})
	e.publishSnapshot()

	e.logger.Info().
		Str("team_id", seat.id.String()).
		Str("team_name", name).
		Str("connection_id", ownerID).
		Int("total_teams", len(e.teams)).
		Msg("team joined")
	return team, nil
}

func (e *Engine) start(requesterID string) error {
	if e.phase != models.PhaseWaiting {
		return ErrAlreadyStarted
	}
	if e.creatorID != "" && requesterID != e.creatorID {
		return ErrNotCreator
	}
	if len(e.teams) == 0 {
		return ErrNoTeams
	}

	e.phase = models.PhaseActive
	e.startedAt = e.clock.Now()
	e.logger.Info().
		Int("teams", len(e.teams)).
		Int("players", len(e.players)).
		Msg("auction started")

	if len(e.players) == 0 {
		e.complete()
		e.publishSnapshot()
		return nil
	}

	// auction_started names the player that actually opens, after any
	// unaffordable ones are skipped. A pool nobody can afford completes
	// without it.
	for _, p := range e.players {
		if e.affordable(p) {
			e.emit(events.TypeAuctionStarted, events.AuctionStartedPayload{
				CurrentItem: p,
				CurrentBid:  p.BasePrice,
				TotalItems:  len(e.players),
			})
			break
		}
	}
	e.openFrom(0)
	e.publishSnapshot()
	return nil
}

func (e *Engine) placeBid(ownerID string, amount int64) (BidReceipt, error) {
	teamID, known := e.owners[ownerID]
	lot := Lot{
		Open:       e.phase == models.PhaseActive && e.timer.Pending(),
		CurrentBid: e.currentBid,
	}
	if err := e.arbiter.Evaluate(lot, Bid{TeamID: teamID, Known: known, Amount: amount}, e.ledger); err != nil {
		e.metrics.BidEvaluated(Code(err))
		e.logger.Debug().
			Err(err).
			Str("connection_id", ownerID).
			Int64("amount", amount).
			Int64("current_bid", e.currentBid).
			Msg("bid rejected")
		return BidReceipt{}, err
	}
	e.metrics.BidEvaluated(OutcomeAccepted)

	player := e.players[e.index]
	e.currentBid = amount
	e.bidder = teamID
	deadline := e.timer.Arm(e.settings.BidWindow, e.index)

	seat := e.seat(teamID)
	e.emit(events.TypeNewBid, events.NewBidPayload{
		BidAmount:    amount,
		BidderTeam:   seat.name,
		BidderTeamID: teamID.String(),
		ItemID:       player.ID.String(),
		TimerEnd:     deadline,
	})

	receipt := BidReceipt{
		ItemID:   player.ID,
		TeamID:   teamID,
		TeamName: seat.name,
		Amount:   amount,
		TimerEnd: deadline,
	}

	if !e.biddable(teamID) {
		e.closeItem(closeUncontested)
		receipt.Sold = true
	}
	e.publishSnapshot()
	return receipt, nil
}

func (e *Engine) handleExpiry(exp Expiry) {
	if e.phase != models.PhaseActive || !e.timer.Matches(exp) || exp.ItemIndex != e.index {
		e.logger.Warn().
			Uint64("generation", exp.Generation).
			Int("item_index", exp.ItemIndex).
			Int("current_index", e.index).
			Str("phase", string(e.phase)).
			Msg("ignoring stale timer expiry")
		return
	}
	e.timer.Fired()
	e.closeItem(closeTimer)
	e.publishSnapshot()
}

// openFrom opens the first player at or after i that some team can still
// afford. Players nobody can afford are closed unsold on the spot.
func (e *Engine) openFrom(i int) {
	for ; i < len(e.players); i++ {
		p := e.players[i]
		e.index = i
		e.currentBid = p.BasePrice
		e.bidder = uuid.Nil

		if e.affordable(p) {
			deadline := e.timer.Arm(e.settings.BidWindow, i)
			e.emit(events.TypeItemOpened, events.ItemOpenedPayload{
				Item:       p,
				ItemIndex:  i,
				CurrentBid: p.BasePrice,
				TimerEnd:   deadline,
			})
			return
		}

		e.unsold = append(e.unsold, p.ID)
		e.metrics.ItemClosed(OutcomeUnsold)
		e.emit(events.TypeItemUnsold, events.ItemUnsoldPayload{Item: p, Reason: closeUnaffordable})
	}
	e.complete()
}

// closeItem settles the open player exactly once and moves on.
func (e *Engine) closeItem(reason string) {
	e.timer.Cancel()
	p := e.players[e.index]

	sold := false
	if e.bidder != uuid.Nil {
		if err := e.ledger.Debit(e.bidder, e.currentBid, p.ID); err != nil {
			e.logger.Error().
				Err(err).
				Str("player_id", p.ID.String()).
				Msg("failed to debit winning bid, closing unsold")
		} else {
			sold = true
		}
	}

	if sold {
		e.sold = append(e.sold, p.ID)
		e.metrics.ItemClosed(OutcomeSold)
		e.emit(events.TypeItemSold, events.ItemSoldPayload{
			Team:  e.team(e.seat(e.bidder)),
			Item:  p,
			Price: e.currentBid,
		})
		e.logger.Info().
			Str("player", p.Name).
			Str("team_id", e.bidder.String()).
			Int64("price", e.currentBid).
			Str("reason", reason).
			Msg("player sold")
	} else {
		if reason == closeTimer {
			reason = closeNoBids
		}
		e.unsold = append(e.unsold, p.ID)
		e.metrics.ItemClosed(OutcomeUnsold)
		e.emit(events.TypeItemUnsold, events.ItemUnsoldPayload{Item: p, Reason: reason})
		e.logger.Info().Str("player", p.Name).Str("reason", reason).Msg("player unsold")
	}

	e.bidder = uuid.Nil
	e.openFrom(e.index + 1)
}

func (e *Engine) complete() {
	e.timer.Cancel()
	e.phase = models.PhaseCompleted
	e.completedAt = e.clock.Now()
	e.index = len(e.players)
	e.currentBid = 0
	e.bidder = uuid.Nil

	e.emit(events.TypeAuctionCompleted, events.AuctionCompletedPayload{
		SoldCount:   len(e.sold),
		UnsoldCount: len(e.unsold),
		CompletedAt: e.completedAt,
	})
	e.logger.Info().
		Int("sold", len(e.sold)).
		Int("unsold", len(e.unsold)).
		Msg("auction completed")
}

// biddable reports whether any team other than exclude could place the next
// acceptable bid.
func (e *Engine) biddable(exclude uuid.UUID) bool {
	need := e.arbiter.NextMinimum(e.currentBid)
	for _, t := range e.teams {
		if t.id == exclude {
			continue
		}
		if e.ledger.ReserveCheck(t.id, need) {
			return true
		}
	}
	return false
}

// affordable reports whether some team could open the bidding on p.
func (e *Engine) affordable(p models.Player) bool {
	need := e.arbiter.NextMinimum(p.BasePrice)
	for _, t := range e.teams {
		if e.ledger.ReserveCheck(t.id, need) {
			return true
		}
	}
	return false
}

func (e *Engine) seat(id uuid.UUID) teamSeat {
	for _, t := range e.teams {
		if t.id == id {
			return t
		}
	}
	return teamSeat{id: id}
}

func (e *Engine) team(seat teamSeat) models.Team {
	budget, _ := e.ledger.Budget(seat.id)
	owned := e.ledger.Owned(seat.id)
	if owned == nil {
		owned = []uuid.UUID{}
	}
	return models.Team{
		ID:      seat.id,
		Name:    seat.name,
		OwnerID: seat.owner,
		Budget:  budget,
		Players: owned,
	}
}

func (e *Engine) emit(t events.Type, payload any) {
	ev, err := events.New(e.code, t, payload, e.clock.Now())
	if err != nil {
		e.logger.Error().Err(err).Str("event_type", string(t)).Msg("failed to build event")
		return
	}
	e.publisher.Publish(ev)
}

func (e *Engine) publishSnapshot() {
	e.version++
	room := &models.Room{
		ID:           e.id,
		Code:         e.code,
		CreatorID:    e.creatorID,
		Teams:        make([]models.Team, 0, len(e.teams)),
		Phase:        e.phase,
		CurrentIndex: e.index,
		CurrentBid:   e.currentBid,
		TotalPlayers: len(e.players),
		Closed:       e.closed,
		Version:      e.version,
		CreatedAt:    e.createdAt,
	}
	for _, seat := range e.teams {
		room.Teams = append(room.Teams, e.team(seat))
	}

	if e.phase == models.PhaseActive && e.index < len(e.players) {
		p := e.players[e.index]
		room.CurrentPlayer = &p
	}
	if e.bidder != uuid.Nil {
		b := e.bidder
		room.CurrentBidder = &b
	}
	if deadline, ok := e.timer.Deadline(); ok {
		room.TimerEnd = &deadline
	}

	start := e.index
	if e.phase == models.PhaseWaiting {
		start = 0
	}
	room.PlayersPool = make([]uuid.UUID, 0, len(e.players))
	for i := start; i < len(e.players); i++ {
		room.PlayersPool = append(room.PlayersPool, e.players[i].ID)
	}
	room.SoldPlayers = append(make([]uuid.UUID, 0, len(e.sold)), e.sold...)
	room.UnsoldPlayers = append(make([]uuid.UUID, 0, len(e.unsold)), e.unsold...)

	if !e.startedAt.IsZero() {
		t := e.startedAt
		room.StartedAt = &t
	}
	if !e.completedAt.IsZero() {
		t := e.completedAt
		room.CompletedAt = &t
	}

	e.snapshot.Store(room)
	if e.sink != nil {
		e.sink.Save(room)
	}
}
