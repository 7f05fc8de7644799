package http

import (
	"errors"
	"net/http"
	"time"

	"ordersync/internal/core/application/usecases/commands"
	"ordersync/internal/core/application/usecases/queries"
	"ordersync/internal/core/domain/model/chat"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/rider"
	"ordersync/internal/core/domain/model/tracking"
	"ordersync/internal/core/services"
	"ordersync/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Server coordinates between HTTP handlers and the application core.
// Status transitions, location fixes and chat messages go straight to the
// realtime services; order creation and reads go through use case handlers.
type Server struct {
	createOrderHandler commands.CreateOrderCommandHandler
	createRiderHandler commands.CreateRiderCommandHandler

	getActiveOrdersHandler         queries.GetActiveOrdersQueryHandler
	getRidersHandler               queries.GetRidersQueryHandler
	getConversationMessagesHandler queries.GetConversationMessagesQueryHandler

	stateMachine *services.OrderStateMachine
	stream       *services.LocationStream
	registry     *services.ConversationRegistry
	router       *services.MessageRouter
}

// NewServer creates an HTTP server wired to the realtime services and the
// command/query handlers.
func NewServer(
	createOrderHandler commands.CreateOrderCommandHandler,
	createRiderHandler commands.CreateRiderCommandHandler,
	getActiveOrdersHandler queries.GetActiveOrdersQueryHandler,
	getRidersHandler queries.GetRidersQueryHandler,
	getConversationMessagesHandler queries.GetConversationMessagesQueryHandler,
	stateMachine *services.OrderStateMachine,
	stream *services.LocationStream,
	registry *services.ConversationRegistry,
	router *services.MessageRouter,
) *Server {
	return &Server{
		createOrderHandler:             createOrderHandler,
		createRiderHandler:             createRiderHandler,
		getActiveOrdersHandler:         getActiveOrdersHandler,
		getRidersHandler:               getRidersHandler,
		getConversationMessagesHandler: getConversationMessagesHandler,
		stateMachine:                   stateMachine,
		stream:                         stream,
		registry:                       registry,
		router:                         router,
	}
}

// RegisterRoutes mounts all API routes on the given echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", s.Health)

	api := e.Group("/api/v1")
	api.POST("/orders", s.CreateOrder)
	api.GET("/orders", s.GetActiveOrders)
	api.POST("/orders/:id/status", s.UpdateOrderStatus)
	api.POST("/orders/:id/location", s.PublishLocation)
	api.GET("/orders/:id/conversation", s.GetOrderConversation)
	api.POST("/riders", s.CreateRider)
	api.GET("/riders", s.GetRiders)
	api.POST("/conversations/:id/messages", s.SendMessage)
	api.GET("/conversations/:id/messages", s.GetConversationMessages)
}

// Error is the JSON error body returned by all endpoints.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Waypoint is a named coordinate in order payloads.
type Waypoint struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Item is one order line in order payloads.
type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// NewOrder is the request body for order creation.
type NewOrder struct {
	RestaurantID string   `json:"restaurantId"`
	CustomerID   string   `json:"customerId"`
	RiderID      string   `json:"riderId"`
	Pickup       Waypoint `json:"pickup"`
	Dropoff      Waypoint `json:"dropoff"`
	Items        []Item   `json:"items"`
}

// Health handles GET /health.
func (s *Server) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// CreateOrder handles POST /api/v1/orders - registers a new delivery order
// and provisions its chat conversation.
func (s *Server) CreateOrder(ctx echo.Context) error {
	var body NewOrder
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	restaurantID, err := kernel.UUIDFromString(body.RestaurantID)
	if err != nil {
		return badRequest(ctx, "Invalid restaurant id: "+err.Error())
	}
	customerID, err := kernel.UUIDFromString(body.CustomerID)
	if err != nil {
		return badRequest(ctx, "Invalid customer id: "+err.Error())
	}
	riderID, err := kernel.UUIDFromString(body.RiderID)
	if err != nil {
		return badRequest(ctx, "Invalid rider id: "+err.Error())
	}

	pickup, err := toDomainWaypoint(body.Pickup)
	if err != nil {
		return badRequest(ctx, "Invalid pickup: "+err.Error())
	}
	dropoff, err := toDomainWaypoint(body.Dropoff)
	if err != nil {
		return badRequest(ctx, "Invalid dropoff: "+err.Error())
	}

	items := make([]order.Item, len(body.Items))
	for i, item := range body.Items {
		items[i] = order.Item{Name: item.Name, Quantity: item.Quantity}
	}

	orderID := kernel.NewUUID()
	cmd, err := commands.NewCreateOrderCommand(orderID, restaurantID, customerID, riderID, pickup, dropoff, items)
	if err != nil {
		return badRequest(ctx, "Invalid order data: "+err.Error())
	}

	if handleErr := s.createOrderHandler.Handle(ctx.Request().Context(), cmd); handleErr != nil {
		return ctx.JSON(http.StatusConflict, Error{
			Code:    http.StatusConflict,
			Message: "Failed to create order",
		})
	}

	return ctx.JSON(http.StatusCreated, map[string]string{"orderId": orderID.String()})
}

// GetActiveOrders handles GET /api/v1/orders - lists orders not yet delivered.
func (s *Server) GetActiveOrders(ctx echo.Context) error {
	orders, err := s.getActiveOrdersHandler.Handle(ctx.Request().Context(), queries.NewGetActiveOrdersQuery())
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, Error{
			Code:    http.StatusInternalServerError,
			Message: "Failed to retrieve orders",
		})
	}

	type activeOrder struct {
		ID        string    `json:"id"`
		RiderID   string    `json:"riderId"`
		Status    string    `json:"status"`
		Dropoff   string    `json:"dropoff"`
		CreatedAt time.Time `json:"createdAt"`
	}

	response := make([]activeOrder, len(orders))
	for i, o := range orders {
		response[i] = activeOrder{
			ID:        o.ID.String(),
			RiderID:   o.RiderID.String(),
			Status:    o.Status,
			Dropoff:   o.Dropoff,
			CreatedAt: o.CreatedAt,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// NewRider is the request body for rider registration.
type NewRider struct {
	Name         string `json:"name"`
	RestaurantID string `json:"restaurantId"`
	Vehicle      string `json:"vehicle"`
	Phone        string `json:"phone"`
}

// CreateRider handles POST /api/v1/riders - registers a rider profile.
func (s *Server) CreateRider(ctx echo.Context) error {
	var body NewRider
	if err := ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	restaurantID, err := kernel.UUIDFromString(body.RestaurantID)
	if err != nil {
		return badRequest(ctx, "Invalid restaurant id: "+err.Error())
	}

	vehicle, err := rider.ParseVehicleType(body.Vehicle)
	if err != nil {
		return badRequest(ctx, "Invalid vehicle type: "+err.Error())
	}

	riderID := kernel.NewUUID()
	cmd, err := commands.NewCreateRiderCommand(riderID, body.Name, restaurantID, vehicle, body.Phone)
	if err != nil {
		return badRequest(ctx, "Invalid rider data: "+err.Error())
	}

	if handleErr := s.createRiderHandler.Handle(ctx.Request().Context(), cmd); handleErr != nil {
		return ctx.JSON(http.StatusConflict, Error{
			Code:    http.StatusConflict,
			Message: "Failed to create rider",
		})
	}

	return ctx.JSON(http.StatusCreated, map[string]string{"riderId": riderID.String()})
}

// GetRiders handles GET /api/v1/riders?restaurantId= - lists a restaurant's riders.
func (s *Server) GetRiders(ctx echo.Context) error {
	restaurantID, err := kernel.UUIDFromString(ctx.QueryParam("restaurantId"))
	if err != nil {
		return badRequest(ctx, "Invalid restaurant id: "+err.Error())
	}

	query, err := queries.NewGetRidersQuery(restaurantID)
	if err != nil {
		return badRequest(ctx, "Invalid query: "+err.Error())
	}

	riders, err := s.getRidersHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return internalError(ctx, "Failed to retrieve riders")
	}

	type riderProfile struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Vehicle string `json:"vehicle"`
		Phone   string `json:"phone,omitempty"`
	}

	response := make([]riderProfile, len(riders))
	for i, r := range riders {
		response[i] = riderProfile{
			ID:      r.ID.String(),
			Name:    r.Name,
			Vehicle: r.Vehicle,
			Phone:   r.Phone,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// StatusUpdateRequest is the request body for order status transitions.
type StatusUpdateRequest struct {
	RiderID string `json:"riderId"`
	Status  string `json:"status"`
}

// UpdateOrderStatus handles POST /api/v1/orders/:id/status - advances the
// order along its delivery workflow.
func (s *Server) UpdateOrderStatus(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}

	var body StatusUpdateRequest
	if err = ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	riderID, err := kernel.UUIDFromString(body.RiderID)
	if err != nil {
		return badRequest(ctx, "Invalid rider id: "+err.Error())
	}

	target, err := order.ParseStatus(body.Status)
	if err != nil {
		return badRequest(ctx, "Invalid status: "+err.Error())
	}

	status, err := s.stateMachine.Transition(ctx.Request().Context(), orderID, riderID, target)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrObjectNotFound):
			return notFound(ctx, "Order not found")
		case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrOrderClosed):
			return ctx.JSON(http.StatusConflict, Error{
				Code:    http.StatusConflict,
				Message: err.Error(),
			})
		default:
			return internalError(ctx, "Failed to update order status")
		}
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"orderId": orderID.String(),
		"status":  status.String(),
	})
}

// LocationRequest is the request body for rider location fixes.
type LocationRequest struct {
	RiderID  string    `json:"riderId"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Speed    float64   `json:"speed"`
	Bearing  float64   `json:"bearing"`
	Ts       time.Time `json:"ts"`
	Accuracy *float64  `json:"accuracy,omitempty"`
}

// PublishLocation handles POST /api/v1/orders/:id/location - accepts a rider
// location fix for throttled broadcast.
func (s *Server) PublishLocation(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}

	var body LocationRequest
	if err = ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	riderID, err := kernel.UUIDFromString(body.RiderID)
	if err != nil {
		return badRequest(ctx, "Invalid rider id: "+err.Error())
	}

	sample, err := tracking.NewSample(body.Lat, body.Lng, body.Speed, body.Bearing, body.Ts, body.Accuracy)
	if err != nil {
		return badRequest(ctx, "Invalid location sample: "+err.Error())
	}

	broadcast, err := s.stream.Publish(ctx.Request().Context(), orderID, riderID, sample)
	if err != nil {
		if errors.Is(err, order.ErrOrderClosed) {
			return ctx.JSON(http.StatusConflict, Error{
				Code:    http.StatusConflict,
				Message: "Order is closed for location updates",
			})
		}
		return internalError(ctx, "Failed to publish location")
	}

	return ctx.JSON(http.StatusAccepted, map[string]bool{"broadcast": broadcast})
}

// GetOrderConversation handles GET /api/v1/orders/:id/conversation - resolves
// (creating on first access) the order's chat conversation.
func (s *Server) GetOrderConversation(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}

	conversation, err := s.registry.GetOrCreate(ctx.Request().Context(), orderID)
	if err != nil {
		if errors.Is(err, errs.ErrObjectNotFound) {
			return notFound(ctx, "Order not found")
		}
		return internalError(ctx, "Failed to resolve conversation")
	}

	participants := make([]string, 0, len(conversation.Participants()))
	for _, p := range conversation.Participants() {
		participants = append(participants, p.String())
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"conversationId": conversation.ID().String(),
		"orderId":        conversation.OrderID().String(),
		"participants":   participants,
	})
}

// MessageRequest is the request body for chat message sends.
type MessageRequest struct {
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
}

// SendMessage handles POST /api/v1/conversations/:id/messages - appends a
// chat message and fans it out to subscribers.
func (s *Server) SendMessage(ctx echo.Context) error {
	conversationID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return badRequest(ctx, "Invalid conversation id: "+err.Error())
	}

	var body MessageRequest
	if err = ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	senderID, err := kernel.UUIDFromString(body.SenderID)
	if err != nil {
		return badRequest(ctx, "Invalid sender id: "+err.Error())
	}

	msg, err := s.router.Send(ctx.Request().Context(), conversationID, senderID, body.Content)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrObjectNotFound):
			return notFound(ctx, "Conversation not found")
		case errors.Is(err, chat.ErrConversationClosed):
			return ctx.JSON(http.StatusConflict, Error{
				Code:    http.StatusConflict,
				Message: "Conversation is closed",
			})
		case errors.Is(err, chat.ErrContentIsRequired):
			return badRequest(ctx, "Message content is required")
		default:
			return internalError(ctx, "Failed to send message")
		}
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"conversationId": msg.ConversationID().String(),
		"sequence":       msg.Sequence(),
		"sentAt":         msg.SentAt(),
	})
}

// GetConversationMessages handles GET /api/v1/conversations/:id/messages -
// reads a page of the conversation log for reconnect catch-up.
func (s *Server) GetConversationMessages(ctx echo.Context) error {
	conversationID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return badRequest(ctx, "Invalid conversation id: "+err.Error())
	}

	var params struct {
		After int64 `query:"after"`
		Limit int   `query:"limit"`
	}
	if err = ctx.Bind(&params); err != nil {
		return badRequest(ctx, "Invalid query parameters")
	}

	query, err := queries.NewGetConversationMessagesQuery(conversationID, params.After, params.Limit)
	if err != nil {
		return badRequest(ctx, "Invalid query: "+err.Error())
	}

	messages, err := s.getConversationMessagesHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return internalError(ctx, "Failed to retrieve messages")
	}

	type storedMessage struct {
		ConversationID string    `json:"conversationId"`
		Sequence       int64     `json:"sequence"`
		SenderID       string    `json:"senderId"`
		Content        string    `json:"content"`
		SentAt         time.Time `json:"sentAt"`
	}

	response := make([]storedMessage, len(messages))
	for i, m := range messages {
		response[i] = storedMessage{
			ConversationID: m.ConversationID.String(),
			Sequence:       m.Sequence,
			SenderID:       m.SenderID.String(),
			Content:        m.Content,
			SentAt:         m.SentAt,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

func toDomainWaypoint(w Waypoint) (order.Waypoint, error) {
	point, err := kernel.NewGeoPoint(w.Lat, w.Lng)
	if err != nil {
		return order.Waypoint{}, err
	}
	return order.Waypoint{Name: w.Name, Point: point}, nil
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: message})
}

func notFound(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusNotFound, Error{Code: http.StatusNotFound, Message: message})
}

func internalError(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusInternalServerError, Error{Code: http.StatusInternalServerError, Message: message})
}
