package server

import (
	"net/http"

	"StockSimDesk/internal/model"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp,omitempty"`
}

type sessionView struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	StartedAt   string `json:"startedAt"`
}

// handleLogin starts a session.
// POST /api/session/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.sessions.Login(s.callCtx(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sessionView{
		Email:       sess.Email,
		DisplayName: sess.DisplayName(),
		StartedAt:   sess.StartedAt.Format(timeLayout),
	})
}

// handleLogout ends the session. It succeeds when there is none.
// POST /api/session/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout()
	s.writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

// GET /api/session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Current()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sessionView{
		Email:       sess.Email,
		DisplayName: sess.DisplayName(),
		StartedAt:   sess.StartedAt.Format(timeLayout),
	})
}

// POST /api/account/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.Register(s.callCtx(), req.Email, req.Password, req.OTP); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, map[string]bool{"success": true})
}

// POST /api/account/otp
func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		Purpose string `json:"purpose"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.SendOTP(s.callCtx(), req.Email, req.Purpose); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

// POST /api/account/reset-password
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.ResetPassword(s.callCtx(), req.Email, req.Password, req.OTP); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

// handleUpgrade forwards a premium upgrade request for the signed-in user.
// POST /api/account/upgrade
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	var req model.UpgradeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Method == "" {
		s.writeError(w, r, &badRequest{msg: "method is required"})
		return
	}
	res, err := s.backend.SubmitUpgradeRequest(s.callCtx(), sessionFrom(r).Email, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}
