package rpc

import (
	"log/slog"
	"net/http"
)

type stakeMutateParams struct {
	Participant string `json:"participant"`
	Amount      string `json:"amount"`
}

type stakeBalanceParams struct {
	Participant string `json:"participant"`
}

type stakeBalanceResult struct {
	Participant string `json:"participant"`
	Balance     string `json:"balance"`
	TotalStaked string `json:"totalStaked"`
}

func (s *Server) handleStakeDeposit(w http.ResponseWriter, req *RPCRequest, logger *slog.Logger) {
	var params stakeMutateParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	participant, err := parseAddress(params.Participant, "participant")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.pool.Stake(s.now(), participant, amount)
	s.record("stake", err)
	if err != nil {
		engineError(w, req.ID, err)
		return
	}
	s.persist(logger)
	logger.Info("stake deposited", "participant", participant.Hex(), "amount", amount.String())
	writeResult(w, req.ID, stakeBalanceResult{
		Participant: participant.Hex(),
		Balance:     bigString(s.pool.BalanceOf(participant)),
		TotalStaked: bigString(s.pool.TotalStaked()),
	})
}

func (s *Server) handleStakeWithdraw(w http.ResponseWriter, req *RPCRequest, logger *slog.Logger) {
	var params stakeMutateParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	participant, err := parseAddress(params.Participant, "participant")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.pool.Unstake(s.now(), participant, amount)
	s.record("unstake", err)
	if err != nil {
		engineError(w, req.ID, err)
		return
	}
	s.persist(logger)
	logger.Info("stake withdrawn", "participant", participant.Hex(), "amount", amount.String())
	writeResult(w, req.ID, stakeBalanceResult{
		Participant: participant.Hex(),
		Balance:     bigString(s.pool.BalanceOf(participant)),
		TotalStaked: bigString(s.pool.TotalStaked()),
	})
}

func (s *Server) handleStakeBalance(w http.ResponseWriter, req *RPCRequest) {
	var params stakeBalanceParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	participant, err := parseAddress(params.Participant, "participant")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, stakeBalanceResult{
		Participant: participant.Hex(),
		Balance:     bigString(s.pool.BalanceOf(participant)),
		TotalStaked: bigString(s.pool.TotalStaked()),
	})
}
