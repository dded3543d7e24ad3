package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/filekeeper/internal/common"
)

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type infoResponse struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched when
// allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

// writeValidation replies 400 with the validation message when err is a
// validation error and reports whether it did.
func writeValidation(w http.ResponseWriter, err error) bool {
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		writeMessage(w, http.StatusBadRequest, ve.Message)
		return true
	}
	return false
}

func (s *HTTPServer) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	pair, err := s.users.Signup(r.Context(), req.Login, req.Password)
	if err != nil {
		switch {
		case writeValidation(w, err):
		case errors.Is(err, common.ErrorAlreadyExists):
			writeMessage(w, http.StatusConflict, msgUserExists)
		default:
			s.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, pair)
}

func (s *HTTPServer) signin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	pair, err := s.users.Signin(r.Context(), req.Login, req.Password)
	if err != nil {
		switch {
		case writeValidation(w, err):
		case errors.Is(err, common.ErrorUnauthorized):
			writeMessage(w, http.StatusUnauthorized, msgBadCredentials)
		default:
			s.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (s *HTTPServer) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case writeValidation(w, err):
		case errors.Is(err, common.ErrorUnauthorized):
			writeMessage(w, http.StatusForbidden, msgBadRefresh)
		default:
			s.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// logout accepts the access token from the Authorization header and the
// refresh token from an optional JSON body; either one suffices.
func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	err := s.users.Logout(r.Context(), bearerToken(r), req.RefreshToken)
	if err != nil {
		switch {
		case writeValidation(w, err):
		case errors.Is(err, common.ErrorUnauthorized):
			writeMessage(w, http.StatusUnauthorized, msgInvalidToken)
		case errors.Is(err, common.ErrorForbidden):
			writeMessage(w, http.StatusForbidden, msgForbidden)
		default:
			s.internalError(w, r, err)
		}
		return
	}

	writeMessage(w, http.StatusOK, msgLoggedOut)
}

func (s *HTTPServer) info(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgNoToken)
		return
	}
	writeJSON(w, http.StatusOK, infoResponse{ID: user.ID, Login: user.Login})
}
