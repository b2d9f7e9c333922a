package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/goevery/notifier/internal/auth"
	"github.com/goevery/notifier/internal/broadcaster"
	"github.com/goevery/notifier/internal/handler"
	"github.com/goevery/notifier/internal/ierr"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodySize = 64 << 10

type StatsProvider interface {
	Stats() map[string]int
}

type StatusChangeBody struct {
	Status string `json:"status"`
}

type StatsResponse struct {
	Rooms    map[string]int `json:"rooms"`
	Sessions int            `json:"sessions"`
}

// RESTServer lets the ordering backend report order events and exposes
// registry statistics.
type RESTServer struct {
	logger *zap.Logger

	notifyHandler handler.NotifyHandlerInterface
	stats         StatsProvider
	authenticator *auth.Authenticator
}

func NewRESTServer(
	logger *zap.Logger,
	notifyHandler handler.NotifyHandlerInterface,
	stats StatsProvider,
	authenticator *auth.Authenticator,
) *RESTServer {
	return &RESTServer{
		logger,
		notifyHandler,
		stats,
		authenticator,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	router.Handle("/events/orders", s.requireAPIKey(func(w http.ResponseWriter, r *http.Request) {
		var summary broadcaster.OrderSummary
		if err := decodeBody(w, r, &summary); err != nil {
			s.writeError(w, err)
			return
		}

		if err := s.notifyHandler.NotifyNewOrder(r.Context(), summary); err != nil {
			s.writeError(w, err)
			return
		}

		s.logEvent(r, broadcaster.TypeNewOrder, summary.OrderId)

		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	})).Methods(http.MethodPost)

	router.Handle("/events/orders/{orderId}/status", s.requireAPIKey(func(w http.ResponseWriter, r *http.Request) {
		orderId, err := strconv.ParseInt(mux.Vars(r)["orderId"], 10, 64)
		if err != nil {
			s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid order id")))
			return
		}

		var body StatusChangeBody
		if err := decodeBody(w, r, &body); err != nil {
			s.writeError(w, err)
			return
		}

		err = s.notifyHandler.NotifyOrderStatusChange(r.Context(), handler.OrderStatusChangeRequest{
			OrderId: orderId,
			Status:  body.Status,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.logEvent(r, broadcaster.TypeOrderStatusChange, orderId)

		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	})).Methods(http.MethodPost)

	router.Handle("/stats", s.requireAPIKey(func(w http.ResponseWriter, r *http.Request) {
		rooms := s.stats.Stats()

		sessions := 0
		for _, count := range rooms {
			sessions += count
		}

		s.writeJSON(w, http.StatusOK, StatsResponse{Rooms: rooms, Sessions: sessions})
	})).Methods(http.MethodGet)
}

func (s *RESTServer) requireAPIKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.authenticator.AuthenticateAPIKey(bearerToken(r))
		if err != nil {
			s.writeError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

func (s *RESTServer) logEvent(r *http.Request, eventType string, orderId int64) {
	fields := []zap.Field{
		zap.String("type", eventType),
		zap.Int64("orderId", orderId),
	}

	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		fields = append(fields, zap.String("callerRole", string(identity.Role)))
	}

	s.logger.Info("order event accepted", fields...)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
	if err == nil {
		return nil
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("request body too large"))
	}

	return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid request body"))
}

func (s *RESTServer) writeError(w http.ResponseWriter, err error) {
	var handlerErr ierr.Error
	if !errors.As(err, &handlerErr) {
		s.logger.Error("error in rest handler", zap.Error(err))
		handlerErr = ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
	}

	s.writeJSON(w, httpStatus(handlerErr.Code), handlerErr)
}

func (s *RESTServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func httpStatus(code ierr.ErrorCode) int {
	switch code {
	case ierr.ErrorCodeInvalidArgument:
		return http.StatusBadRequest
	case ierr.ErrorCodeUnauthenticated:
		return http.StatusUnauthorized
	case ierr.ErrorCodePermissionDenied:
		return http.StatusForbidden
	case ierr.ErrorCodeNotFound:
		return http.StatusNotFound
	case ierr.ErrorCodeFailedPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
