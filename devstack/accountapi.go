package devstack

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/scanpool/scanpool/account"
)

// loginCookieName is the session cookie the emulated service sets on a
// successful sign-in and requires on profile reads.
const loginCookieName = "wpscan_session"

// signUpRequest is the subset of the sign-up form the emulation validates.
type signUpRequest struct {
	User struct {
		Name                 string `json:"name"`
		Email                string `json:"email"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
		TermsAccepted        bool   `json:"terms_accepted"`
	} `json:"user"`
}

func (srv *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if !srv.sessionCookieOK(r) {
		http.Error(w, "Missing or invalid session cookie", http.StatusForbidden)
		return
	}

	var payload signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		srv.log.Error("Failed to parse sign-up payload", "err", err)
		http.Error(w, "Invalid sign-up payload", http.StatusBadRequest)
		return
	}

	user := payload.User
	switch {
	case user.Email == "" || user.Password == "":
		srv.writeServiceError(w, "Email and password are required")
		return
	case user.Password != user.PasswordConfirmation:
		srv.writeServiceError(w, "Password confirmation doesn't match Password")
		return
	case !user.TermsAccepted:
		srv.writeServiceError(w, "Terms of service must be accepted")
		return
	}

	token, created := srv.state.createAccount(user.Email, user.Name, user.Password)
	if !created {
		srv.writeServiceError(w, "Email has already been taken")
		return
	}

	srv.state.deliverAfter(srv.cfg.DeliveryDelay, user.Email, message{
		id:      newToken(),
		from:    srv.cfg.Sender,
		subject: "Confirm your account",
		body:    fmt.Sprintf("Welcome %s!\n\nConfirm your account:\n%s%s\n", user.Name, srv.cfg.LinkBase, token),
	})

	srv.log.Info("Account signed up", "email", user.Email)
	srv.writeJSON(w, "sign-up", map[string]string{"status": "ok"})
}

// sessionCookieOK enforces the configured _hcp cookie on sign-up. An empty
// configured value disables the check.
func (srv *Server) sessionCookieOK(r *http.Request) bool {
	if srv.cfg.SessionCookie == "" {
		return true
	}
	cookie, err := r.Cookie(account.SessionCookieName)
	return err == nil && cookie.Value == srv.cfg.SessionCookie
}

// writeServiceError mirrors the service's error shape: a 400 with the detail
// in the message field.
func (srv *Server) writeServiceError(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(map[string]string{"message": detail}); err != nil {
		srv.log.Error("Failed to encode error response", "err", err)
	}
}

func (srv *Server) handleConfirmation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		srv.log.Error("Failed to parse confirmation payload", "err", err)
		http.Error(w, "Invalid confirmation payload", http.StatusBadRequest)
		return
	}

	// Unknown tokens answer success=false rather than an error status, the
	// way the real service does.
	activated := srv.state.activate(payload.Token)
	if activated {
		srv.log.Info("Account activated")
	}
	srv.writeJSON(w, "confirmation", map[string]bool{"success": activated})
}

func (srv *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		srv.log.Error("Failed to parse sign-in payload", "err", err)
		http.Error(w, "Invalid sign-in payload", http.StatusBadRequest)
		return
	}

	session, ok := srv.state.signIn(payload.Email, payload.Password)
	if ok {
		http.SetCookie(w, &http.Cookie{Name: loginCookieName, Value: session, Path: "/"})
		srv.log.Info("Account signed in", "email", payload.Email)
	}
	srv.writeJSON(w, "sign-in", map[string]bool{"success": ok})
}

func (srv *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(loginCookieName)
	if err != nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	token, ok := srv.state.profileToken(cookie.Value)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	srv.writeJSON(w, "users", map[string]any{
		"data": map[string]any{
			"api": map[string]string{"token": token},
		},
	})
}
