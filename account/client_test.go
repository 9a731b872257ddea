package account

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scanpool/scanpool/interfaces"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRegisterSendsSignUpForm(t *testing.T) {
	var received map[string]map[string]any
	var gotCookie string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/wp-json/wpscan/v1/sign-up", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if c, err := r.Cookie(SessionCookieName); err == nil {
			gotCookie = c.Value
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL+"/wp-json/wpscan/v1/", "session-secret", testLog)
	require.NoError(t, err)

	id := interfaces.Identity{Username: "quietriver42", Domain: "example.org"}
	err = client.Register(context.Background(), id, "pw123!", "Dana")
	require.NoError(t, err)

	require.Equal(t, "session-secret", gotCookie)

	user := received["user"]
	require.Equal(t, "Dana", user["name"])
	require.Equal(t, "quietriver42@example.org", user["email"])
	require.Equal(t, "pw123!", user["password"])
	require.Equal(t, "pw123!", user["password_confirmation"])
	require.Equal(t, "", user["homepage"])
	require.Equal(t, "", user["address_country"])
	require.Equal(t, false, user["newsletter"])
	require.Equal(t, true, user["terms_accepted"])
}

func TestRegisterSurfacesServiceMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"Email has already been taken"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", testLog)
	require.NoError(t, err)

	id := interfaces.Identity{Username: "quietriver42", Domain: "example.org"}
	err = client.Register(context.Background(), id, "pw", "Dana")
	require.Error(t, err)

	var reqErr *interfaces.RequestError
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, http.StatusUnprocessableEntity, reqErr.StatusCode)
	require.Contains(t, err.Error(), "Email has already been taken")
	require.Contains(t, err.Error(), "quietriver42@example.org")
}

func TestConfirmActivationReturnsSuccessFlag(t *testing.T) {
	var gotToken string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/confirmation", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotToken = payload["token"]
		if gotToken == "valid" {
			w.Write([]byte(`{"success":true}`))
		} else {
			w.Write([]byte(`{"success":false}`))
		}
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", testLog)
	require.NoError(t, err)

	ok, err := client.ConfirmActivation(context.Background(), "valid")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.ConfirmActivation(context.Background(), "stale")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "stale", gotToken)
}

func TestLoginEstablishesSessionForProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sign-in", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "quietriver42@example.org", payload["email"])
		require.Equal(t, "pw123!", payload["password"])
		require.Equal(t, true, payload["remember_me"])
		http.SetCookie(w, &http.Cookie{Name: "wp_session", Value: "logged-in", Path: "/"})
		w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("wp_session")
		if err != nil || c.Value != "logged-in" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":{"id":7,"api":{"token":"tok-abc123"}}}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := NewClient(srv.URL, "", testLog)
	require.NoError(t, err)

	ok, err := client.Login(context.Background(), "quietriver42@example.org", "pw123!")
	require.NoError(t, err)
	require.True(t, ok)

	profile, err := client.FetchProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-abc123", profile.API.Token)
}

func TestFetchProfileWithoutSessionFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", testLog)
	require.NoError(t, err)

	_, err = client.FetchProfile(context.Background())
	require.Error(t, err)

	var reqErr *interfaces.RequestError
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	client, err := NewClient("", "", testLog)
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, client.baseURL)
}
