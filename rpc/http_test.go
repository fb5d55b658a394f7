package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"stakevault/custody"
	"stakevault/rewards"
	"stakevault/state"
	"stakevault/storage"
)

var (
	testStakeAsset  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testRewardAsset = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	testAdmin       = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	testAlice       = common.HexToAddress("0x0000000000000000000000000000000000000a02")
)

const testSecret = "test-secret"

type testHarness struct {
	server *Server
	router http.Handler
	keeper *state.Keeper
	now    uint64

	stakeLedger  *custody.Ledger
	rewardLedger *custody.Ledger
}

func newTestHarness(t *testing.T, authEnabled bool) *testHarness {
	t.Helper()
	stakeLedger := custody.NewLedger(testStakeAsset)
	rewardLedger := custody.NewLedger(testRewardAsset)
	directory := custody.NewDirectory()
	directory.Register(testRewardAsset, rewardLedger)

	pool, err := rewards.NewMultiPool(rewards.MultiPoolConfig{
		Admin:      testAdmin,
		StakeAsset: testStakeAsset,
		StakeVault: stakeLedger,
		Vaults:     directory,
	})
	require.NoError(t, err)

	keeper := state.NewKeeper(storage.NewMemDB())
	h := &testHarness{
		keeper:       keeper,
		now:          1_000_000,
		stakeLedger:  stakeLedger,
		rewardLedger: rewardLedger,
	}
	server, err := NewServer(ServerConfig{
		Pool:     pool,
		Keeper:   keeper,
		PoolName: "test",
		Auth: AuthConfig{
			Enabled:    authEnabled,
			HMACSecret: testSecret,
			Issuer:     "stakevault",
			Audience:   "ops",
		},
		Now: func() uint64 { return h.now },
	})
	require.NoError(t, err)
	h.server = server
	h.router = server.Router()
	return h
}

func (h *testHarness) call(t *testing.T, token, method string, params ...interface{}) (*RPCResponse, int) {
	t.Helper()
	rawParams := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		encoded, err := json.Marshal(p)
		require.NoError(t, err)
		rawParams = append(rawParams, encoded)
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: rawParams, ID: 1})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var resp RPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return &resp, rec.Code
}

func decodeResult(t *testing.T, resp *RPCResponse, v interface{}) {
	t.Helper()
	encoded, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(encoded, v))
}

func adminToken(t *testing.T, issuer, audience string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss": issuer,
		"aud": audience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestStakeDepositAndBalance(t *testing.T) {
	h := newTestHarness(t, false)
	h.stakeLedger.Mint(testAlice, big.NewInt(500))

	resp, code := h.call(t, "", "stake_deposit", map[string]string{
		"participant": testAlice.Hex(),
		"amount":      "200",
	})
	require.Equal(t, http.StatusOK, code)
	require.Nil(t, resp.Error)

	var result stakeBalanceResult
	decodeResult(t, resp, &result)
	require.Equal(t, "200", result.Balance)
	require.Equal(t, "200", result.TotalStaked)

	resp, _ = h.call(t, "", "stake_balance", map[string]string{"participant": testAlice.Hex()})
	decodeResult(t, resp, &result)
	require.Equal(t, "200", result.Balance)
}

func TestStakeWithdrawBeyondBalance(t *testing.T) {
	h := newTestHarness(t, false)
	h.stakeLedger.Mint(testAlice, big.NewInt(100))
	resp, _ := h.call(t, "", "stake_deposit", map[string]string{
		"participant": testAlice.Hex(), "amount": "100",
	})
	require.Nil(t, resp.Error)

	resp, code := h.call(t, "", "stake_withdraw", map[string]string{
		"participant": testAlice.Hex(), "amount": "101",
	})
	require.Equal(t, http.StatusConflict, code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeStateConflict, resp.Error.Code)
}

func TestInvalidParams(t *testing.T) {
	h := newTestHarness(t, false)

	resp, code := h.call(t, "", "stake_deposit", map[string]string{
		"participant": "not-hex", "amount": "1",
	})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	resp, _ = h.call(t, "", "stake_deposit")
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	resp, code = h.call(t, "", "no_such_method", map[string]string{})
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestAdminMethodsRequireAuth(t *testing.T) {
	h := newTestHarness(t, true)
	params := map[string]interface{}{
		"caller":   testAdmin.Hex(),
		"asset":    testRewardAsset.Hex(),
		"duration": uint64(604800),
	}

	resp, code := h.call(t, "", "rewards_add", params)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	resp, code = h.call(t, adminToken(t, "someone-else", "ops"), "rewards_add", params)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	resp, code = h.call(t, adminToken(t, "stakevault", "ops"), "rewards_add", params)
	require.Equal(t, http.StatusOK, code)
	require.Nil(t, resp.Error)

	var info rewardsAssetInfoResult
	decodeResult(t, resp, &info)
	require.Equal(t, uint64(604800), info.Duration)
}

func TestRewardsLifecycle(t *testing.T) {
	h := newTestHarness(t, false)
	h.stakeLedger.Mint(testAlice, big.NewInt(100))
	h.rewardLedger.Mint(testAdmin, new(big.Int).Mul(big.NewInt(604800), big.NewInt(7)))

	resp, _ := h.call(t, "", "rewards_add", map[string]interface{}{
		"caller": testAdmin.Hex(), "asset": testRewardAsset.Hex(), "duration": uint64(604800),
	})
	require.Nil(t, resp.Error)

	resp, _ = h.call(t, "", "stake_deposit", map[string]string{
		"participant": testAlice.Hex(), "amount": "100",
	})
	require.Nil(t, resp.Error)

	deposit := new(big.Int).Mul(big.NewInt(604800), big.NewInt(7))
	resp, _ = h.call(t, "", "rewards_deposit", map[string]string{
		"caller": testAdmin.Hex(),
		"asset":  testRewardAsset.Hex(),
		"amount": deposit.String(),
	})
	require.Nil(t, resp.Error)

	var info rewardsAssetInfoResult
	decodeResult(t, resp, &info)
	require.Equal(t, "7", info.Rate)

	h.now += 86400

	resp, _ = h.call(t, "", "rewards_pending", map[string]string{"participant": testAlice.Hex()})
	require.Nil(t, resp.Error)
	var pending rewardsClaimResult
	decodeResult(t, resp, &pending)
	expected := fmt.Sprintf("%d", 7*86400)
	require.Equal(t, expected, pending.Paid[testRewardAsset.Hex()])

	resp, _ = h.call(t, "", "rewards_claim", map[string]string{"participant": testAlice.Hex()})
	require.Nil(t, resp.Error)
	var paid rewardsClaimResult
	decodeResult(t, resp, &paid)
	require.Equal(t, expected, paid.Paid[testRewardAsset.Hex()])
	require.Equal(t, expected, h.rewardLedger.BalanceOf(testAlice).String())

	resp, _ = h.call(t, "", "rewards_periodInfo", map[string]string{"asset": testRewardAsset.Hex()})
	require.Nil(t, resp.Error)
	var period rewardsPeriodInfoResult
	decodeResult(t, resp, &period)
	require.True(t, period.Active)
	require.Equal(t, expected, period.Emitted)
}

func TestMutationsPersistSnapshots(t *testing.T) {
	h := newTestHarness(t, false)
	h.stakeLedger.Mint(testAlice, big.NewInt(100))

	resp, _ := h.call(t, "", "stake_deposit", map[string]string{
		"participant": testAlice.Hex(), "amount": "100",
	})
	require.Nil(t, resp.Error)

	snap, ok, err := h.keeper.LoadMultiPool("test")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, snap.Balances, 1)
	require.Equal(t, testAlice, snap.Balances[0].Participant)
	require.Equal(t, "100", snap.Balances[0].Amount.String())
}

func TestPoolInfo(t *testing.T) {
	h := newTestHarness(t, false)
	resp, _ := h.call(t, "", "rewards_add", map[string]interface{}{
		"caller": testAdmin.Hex(), "asset": testRewardAsset.Hex(), "duration": uint64(3600),
	})
	require.Nil(t, resp.Error)

	resp, _ = h.call(t, "", "rewards_poolInfo")
	require.Nil(t, resp.Error)
	var info rewardsPoolInfoResult
	decodeResult(t, resp, &info)
	require.Equal(t, testAdmin.Hex(), info.Admin)
	require.Equal(t, testStakeAsset.Hex(), info.StakeAsset)
	require.Equal(t, []string{testRewardAsset.Hex()}, info.RewardAssets)
}
