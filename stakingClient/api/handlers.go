package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	stakingerrors "github.com/pushchain/easystake/stakingClient/errors"
	"github.com/pushchain/easystake/stakingClient/staking"
	"github.com/pushchain/easystake/stakingClient/utils"
)

// handlerFunc is an http.HandlerFunc that returns an error.
type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError carries the status an error is answered with.
type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string { return e.cause.Error() }

func badRequest(cause error) error {
	return &httpError{cause: cause, status: http.StatusBadRequest}
}

// wrap converts a handlerFunc to http.HandlerFunc. Staking errors are
// answered with the status their code maps to.
func wrap(f handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}
		status := http.StatusInternalServerError
		code := ""
		var he *httpError
		var se *stakingerrors.StakingError
		switch {
		case stakingerrors.As(err, &he):
			status = he.status
		case stakingerrors.As(err, &se):
			code = string(se.Code)
			status = statusFor(se.Code)
		}
		writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
	}
}

func statusFor(code stakingerrors.ErrorCode) int {
	switch code {
	case stakingerrors.ErrCodeValidation:
		return http.StatusBadRequest
	case stakingerrors.ErrCodeState:
		return http.StatusConflict
	case stakingerrors.ErrCodeConfig:
		return http.StatusServiceUnavailable
	case stakingerrors.ErrCodeNetwork, stakingerrors.ErrCodeRPC, stakingerrors.ErrCodeTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) respond(w http.ResponseWriter, status int, data interface{}) error {
	writeJSON(w, status, QueryResponse{
		Data:      data,
		ChainName: s.deps.Session.ChainName(),
		Served:    time.Now().UTC(),
	})
	return nil
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleSnapshot handles GET /api/v1/snapshot
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) error {
	return s.respond(w, http.StatusOK, s.deps.Session.Snapshot())
}

// handleSelected handles GET /api/v1/validators/selected
func (s *Server) handleSelected(w http.ResponseWriter, r *http.Request) error {
	return s.respond(w, http.StatusOK, s.deps.Session.SelectedValidators())
}

// handleNominated handles GET /api/v1/validators/nominated
func (s *Server) handleNominated(w http.ResponseWriter, r *http.Request) error {
	return s.respond(w, http.StatusOK, s.deps.Session.Snapshot().Nominated)
}

// handleValidator handles GET /api/v1/validators/{id}
func (s *Server) handleValidator(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["id"]
	d, ok := s.deps.Session.Validator(id)
	if !ok {
		return &httpError{cause: fmt.Errorf("validator %s not found", id), status: http.StatusNotFound}
	}
	return s.respond(w, http.StatusOK, d)
}

// handleGetAction handles GET /api/v1/action
func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) error {
	return s.respond(w, http.StatusOK, s.actionResponse())
}

func (s *Server) actionResponse() ActionResponse {
	amount := s.deps.Session.AmountToConfirm()
	return ActionResponse{
		Action:          s.deps.Session.Action(),
		AmountToConfirm: amount.String(),
		Human:           utils.FormatAmount(amount, s.deps.Decimals, s.deps.Token),
	}
}

// handleStartAction handles POST /api/v1/action
func (s *Server) handleStartAction(w http.ResponseWriter, r *http.Request) error {
	var req ActionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return badRequest(fmt.Errorf("invalid request body: %w", err))
	}
	a, err := staking.ParseAction(req.Action)
	if err != nil {
		return err
	}
	amount, err := utils.AmountToMachine(req.Amount, s.deps.Decimals)
	if err != nil {
		return badRequest(err)
	}

	sess := s.deps.Session
	switch a {
	case staking.StakeManual, staking.ChangeValidators, staking.SetNominees:
		if len(req.Validators) == 0 {
			return badRequest(fmt.Errorf("%s needs at least one validator", a))
		}
	}

	switch a {
	case staking.StakeManual:
		err = sess.Stake(a, amount, req.Validators...)
	case staking.StakeAuto, staking.StakeKeepNominated:
		err = sess.Stake(a, amount)
	case staking.Unstake:
		err = sess.HandleNextToUnstake(amount)
	case staking.StopNominating:
		err = sess.HandleStopNominating()
	case staking.TuneUp:
		err = sess.HandleRebag()
	case staking.WithdrawUnbound:
		err = sess.HandleWithdrawUnbound()
	case staking.ChangeValidators, staking.SetNominees:
		err = sess.HandleSelectValidators(a == staking.SetNominees, req.Validators...)
	}
	if err != nil {
		return err
	}
	s.logger.Info().Str("action", a.String()).Msg("action started via api")
	return s.respond(w, http.StatusOK, s.actionResponse())
}

// handleSetValidators handles PUT /api/v1/action/validators
func (s *Server) handleSetValidators(w http.ResponseWriter, r *http.Request) error {
	var req ValidatorsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return badRequest(fmt.Errorf("invalid request body: %w", err))
	}
	if err := s.deps.Session.SetManualValidators(req.Validators); err != nil {
		return err
	}
	return s.respond(w, http.StatusOK, s.actionResponse())
}

// handleCancelAction handles DELETE /api/v1/action
func (s *Server) handleCancelAction(w http.ResponseWriter, r *http.Request) error {
	prev := s.deps.Session.Cancel()
	return s.respond(w, http.StatusOK, map[string]staking.Action{"cancelled": prev})
}

// handleConfirm handles POST /api/v1/action/confirm. The confirmation runs
// in the background; its outcome shows up in the snapshot.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) error {
	c, err := s.deps.Session.Prepare()
	if err != nil {
		return err
	}
	if err := s.deps.Session.Confirm(nil); err != nil {
		return err
	}
	return s.respond(w, http.StatusAccepted, c)
}

// handleRefresh handles POST /api/v1/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Refresh == nil {
		return &httpError{cause: fmt.Errorf("refresh is not available"), status: http.StatusNotImplemented}
	}
	s.deps.Refresh()
	return s.respond(w, http.StatusAccepted, map[string][]string{"pending": s.deps.Session.Pending()})
}

// handleProxyTypes handles GET /api/v1/proxy-types?chain=<chain>
func (s *Server) handleProxyTypes(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Proxies == nil {
		return &httpError{cause: fmt.Errorf("proxy registry is not configured"), status: http.StatusNotImplemented}
	}
	chainName := r.URL.Query().Get("chain")
	if chainName == "" {
		chainName = s.deps.Session.ChainName()
	}
	types, err := s.deps.Proxies.Types(chainName)
	if err != nil {
		return err
	}
	return s.respond(w, http.StatusOK, types)
}
