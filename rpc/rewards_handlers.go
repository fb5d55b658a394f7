package rpc

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type rewardsClaimParams struct {
	Participant string `json:"participant"`
	Asset       string `json:"asset,omitempty"`
}

type rewardsDepositParams struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type rewardsScheduleParams struct {
	Caller   string `json:"caller"`
	Asset    string `json:"asset"`
	Duration uint64 `json:"duration"`
}

type rewardsAssetInfoParams struct {
	Asset string `json:"asset"`
}

type rewardsPendingParams struct {
	Participant string `json:"participant"`
	Asset       string `json:"asset,omitempty"`
}

type rewardsClaimResult struct {
	Participant string            `json:"participant"`
	Paid        map[string]string `json:"paid"`
}

type rewardsPoolInfoResult struct {
	Admin        string   `json:"admin"`
	StakeAsset   string   `json:"stakeAsset"`
	TotalStaked  string   `json:"totalStaked"`
	RewardAssets []string `json:"rewardAssets"`
}

type rewardsAssetInfoResult struct {
	Asset         string `json:"asset"`
	Duration      uint64 `json:"duration"`
	PeriodFinish  uint64 `json:"periodFinish"`
	LastUpdated   uint64 `json:"lastUpdated"`
	Rate          string `json:"rate"`
	Index         string `json:"index"`
	RewardBalance string `json:"rewardBalance"`
}

type rewardsPeriodInfoResult struct {
	Asset              string `json:"asset"`
	Active             bool   `json:"active"`
	Total              string `json:"total"`
	Emitted            string `json:"emitted"`
	Remaining          string `json:"remaining"`
	LastTimeApplicable uint64 `json:"lastTimeApplicable"`
	CurrentIndex       string `json:"currentIndex"`
}

func (s *Server) handleRewardsClaim(w http.ResponseWriter, req *RPCRequest, logger *slog.Logger) {
	var params rewardsClaimParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	participant, err := parseAddress(params.Participant, "participant")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	paid := make(map[string]string)
	if strings.TrimSpace(params.Asset) != "" {
		asset, err := parseAddress(params.Asset, "asset")
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		amount, err := s.pool.Claim(s.now(), participant, asset)
		s.record("claim", err)
		if err != nil {
			engineError(w, req.ID, err)
			return
		}
		paid[asset.Hex()] = bigString(amount)
	} else {
		amounts, err := s.pool.ClaimAll(s.now(), participant)
		s.record("claim_all", err)
		if err != nil {
			engineError(w, req.ID, err)
			return
		}
		for asset, amount := range amounts {
			paid[asset.Hex()] = bigString(amount)
		}
	}
	s.persist(logger)
	logger.Info("rewards claimed", "participant", participant.Hex(), "assets", len(paid))
	writeResult(w, req.ID, rewardsClaimResult{Participant: participant.Hex(), Paid: paid})
}

func (s *Server) handleRewardsDeposit(w http.ResponseWriter, r *http.Request, req *RPCRequest, logger *slog.Logger) {
	if authErr := s.auth.Authorize(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params rewardsDepositParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress(params.Asset, "asset")
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
	err = s.pool.DepositRewards(s.now(), caller, asset, amount)
	s.record("deposit_rewards", err)
	if err != nil {
		engineError(w, req.ID, err)
		return
	}
	s.persist(logger)
	logger.Info("rewards deposited", "asset", asset.Hex(), "amount", amount.String())
	writeResult(w, req.ID, s.assetInfo(asset))
}

func (s *Server) handleRewardsAdd(w http.ResponseWriter, r *http.Request, req *RPCRequest, logger *slog.Logger) {
	if authErr := s.auth.Authorize(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params rewardsScheduleParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress(params.Asset, "asset")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.pool.AddReward(caller, asset, params.Duration)
	s.record("add_reward", err)
	if err != nil {
		engineError(w, req.ID, err)
		return
	}
	s.persist(logger)
	logger.Info("reward asset added", "asset", asset.Hex(), "duration", params.Duration)
	writeResult(w, req.ID, s.assetInfo(asset))
}

func (s *Server) handleRewardsSetDuration(w http.ResponseWriter, r *http.Request, req *RPCRequest, logger *slog.Logger) {
	if authErr := s.auth.Authorize(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params rewardsScheduleParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress(params.Asset, "asset")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.pool.SetDuration(s.now(), caller, asset, params.Duration)
	s.record("set_duration", err)
	if err != nil {
		engineError(w, req.ID, err)
		return
	}
	s.persist(logger)
	logger.Info("reward duration updated", "asset", asset.Hex(), "duration", params.Duration)
	writeResult(w, req.ID, s.assetInfo(asset))
}

func (s *Server) handleRewardsPoolInfo(w http.ResponseWriter, req *RPCRequest) {
	assets := s.pool.RewardAssets()
	hexAssets := make([]string, 0, len(assets))
	for _, asset := range assets {
		hexAssets = append(hexAssets, asset.Hex())
	}
	writeResult(w, req.ID, rewardsPoolInfoResult{
		Admin:        s.pool.Admin().Hex(),
		StakeAsset:   s.pool.StakeAsset().Hex(),
		TotalStaked:  bigString(s.pool.TotalStaked()),
		RewardAssets: hexAssets,
	})
}

func (s *Server) handleRewardsAssetInfo(w http.ResponseWriter, req *RPCRequest) {
	var params rewardsAssetInfoParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	asset, err := parseAddress(params.Asset, "asset")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if _, ok := s.pool.RewardState(asset); !ok {
		writeError(w, http.StatusNotFound, req.ID, codeInvalidParams, "unknown reward asset", asset.Hex())
		return
	}
	writeResult(w, req.ID, s.assetInfo(asset))
}

func (s *Server) handleRewardsPeriodInfo(w http.ResponseWriter, req *RPCRequest) {
	var params rewardsAssetInfoParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	asset, err := parseAddress(params.Asset, "asset")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if _, ok := s.pool.RewardState(asset); !ok {
		writeError(w, http.StatusNotFound, req.ID, codeInvalidParams, "unknown reward asset", asset.Hex())
		return
	}
	now := s.now()
	writeResult(w, req.ID, rewardsPeriodInfoResult{
		Asset:              asset.Hex(),
		Active:             s.pool.PeriodRewardActive(now, asset),
		Total:              bigString(s.pool.PeriodRewardTotal(asset)),
		Emitted:            bigString(s.pool.PeriodRewardEmitted(now, asset)),
		Remaining:          bigString(s.pool.PeriodRewardRemaining(now, asset)),
		LastTimeApplicable: s.pool.LastTimeRewardApplicable(now, asset),
		CurrentIndex:       bigString(s.pool.CurrentIndex(now, asset)),
	})
}

func (s *Server) handleRewardsPending(w http.ResponseWriter, req *RPCRequest) {
	var params rewardsPendingParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	participant, err := parseAddress(params.Participant, "participant")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	now := s.now()
	pending := make(map[string]string)
	if strings.TrimSpace(params.Asset) != "" {
		asset, err := parseAddress(params.Asset, "asset")
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		if _, ok := s.pool.RewardState(asset); !ok {
			writeError(w, http.StatusNotFound, req.ID, codeInvalidParams, "unknown reward asset", asset.Hex())
			return
		}
		pending[asset.Hex()] = bigString(s.pool.PendingRewards(now, participant, asset))
	} else {
		for _, asset := range s.pool.RewardAssets() {
			pending[asset.Hex()] = bigString(s.pool.PendingRewards(now, participant, asset))
		}
	}
	writeResult(w, req.ID, rewardsClaimResult{Participant: participant.Hex(), Paid: pending})
}

func (s *Server) assetInfo(asset common.Address) rewardsAssetInfoResult {
	state, _ := s.pool.RewardState(asset)
	return rewardsAssetInfoResult{
		Asset:         asset.Hex(),
		Duration:      state.Duration,
		PeriodFinish:  state.PeriodFinish,
		LastUpdated:   state.LastUpdated,
		Rate:          bigString(state.Rate),
		Index:         bigString(state.Index),
		RewardBalance: bigString(s.pool.RewardBalance(asset)),
	}
}
