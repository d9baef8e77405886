package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/npezzotti/go-chatrelay/internal/server"
	"github.com/npezzotti/go-chatrelay/internal/users"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type UserNameResponse struct {
	Username string `json:"username"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorw("json encode", "error", err)
	}
}

func (s *ChatApp) writeError(w http.ResponseWriter, errResp *ApiError) {
	if errResp.StatusCode >= http.StatusInternalServerError {
		s.log.Errorw("request failed", "error", errResp)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

// chatError maps a relay error onto an HTTP error.
func chatError(err error) *ApiError {
	var chatErr *server.ChatError
	if !errors.As(err, &chatErr) {
		return NewInternalServerError(err)
	}

	switch chatErr.Kind {
	case server.KindValidation:
		return NewBadRequestError().WithMessage(chatErr.Message)
	case server.KindNotFound:
		return NewNotFoundError().WithMessage(chatErr.Message)
	default:
		return NewInternalServerError(err)
	}
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ChatApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	u, err := s.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		var authErr *users.AuthError
		if errors.As(err, &authErr) {
			s.writeError(w, NewBadRequestError().WithMessage(authErr.Reason))
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, u)
}

func (s *ChatApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if lr.Username == "" || lr.Password == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	u, err := s.users.Authenticate(r.Context(), lr.Username, lr.Password)
	if err != nil {
		var authErr *users.AuthError
		if errors.As(err, &authErr) {
			s.writeError(w, NewUnauthorizedError().WithMessage(authErr.Reason))
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	token, err := s.createJwtForSession(u.Id, defaultJwtExpiration)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, u)
}

func (s *ChatApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	u, err := s.users.Get(r.Context(), userId)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			s.writeError(w, NewNotFoundError())
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, u)
}

func (s *ChatApp) logout(w http.ResponseWriter, _ *http.Request) {
	// overwrite the cookie with an expired one so the browser drops it
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *ChatApp) getUser(w http.ResponseWriter, r *http.Request) {
	userId, err := strconv.Atoi(r.PathValue("userId"))
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	name, err := s.users.DisplayName(r.Context(), userId)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			s.writeError(w, NewNotFoundError().WithMessage("User not found"))
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, UserNameResponse{Username: name})
}

func (s *ChatApp) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.relay.Rooms.ListAll(r.Context())
	if err != nil {
		s.writeError(w, chatError(err))
		return
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *ChatApp) createRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	room, err := s.relay.Rooms.Create(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, chatError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, room)
}

func (s *ChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	roomId := r.PathValue("roomId")

	if _, err := s.relay.Rooms.Get(r.Context(), roomId); err != nil {
		s.writeError(w, chatError(err))
		return
	}

	messages, err := s.relay.Store.ListByRoom(r.Context(), roomId)
	if err != nil {
		s.writeError(w, chatError(err))
		return
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("error upgrading connection", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.relay.Serve(conn)
}
